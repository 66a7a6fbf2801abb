// Package app builds the object graph shared by the server, worker and
// dbtool binaries.
package app

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"tradie-schedule-service/internal/adapters/cache"
	"tradie-schedule-service/internal/adapters/calendar"
	"tradie-schedule-service/internal/adapters/distance"
	"tradie-schedule-service/internal/adapters/locking"
	"tradie-schedule-service/internal/adapters/messaging"
	"tradie-schedule-service/internal/adapters/repositories"
	"tradie-schedule-service/internal/config"
	"tradie-schedule-service/internal/domain"
	"tradie-schedule-service/internal/platform/db"
	"tradie-schedule-service/internal/ports"
	"tradie-schedule-service/internal/services"
)

// Container holds all application dependencies.
type Container struct {
	Config *config.Config
	Loc    *time.Location

	WorkdayStart domain.TimeOfDay
	WorkdayEnd   domain.TimeOfDay

	DB      *sql.DB
	Dialect db.Dialect
	Redis   *redis.Client

	Events    ports.EventRepository
	Catalog   *repositories.SQLCatalog
	Distances ports.DistanceProvider
	Geocoder  ports.Geocoder
	Locker    ports.OwnerLocker
	Notifier  ports.DayChangeNotifier
	Exporter  *calendar.ICSExporter
	// Purgers are the SQL-backed caches in use; the worker empties their
	// expired rows.
	Purgers []cache.Purger

	Chain        *services.TravelChain
	Optimizer    *services.DayOptimizer
	Availability *services.Availability
	Queries      *services.ScheduleQueries
	Commands     *services.EventCommands
	Sweep        *services.TravelSweep

	closers []func() error
}

// Options tweak how much of the graph New builds.
type Options struct {
	// Migrate creates the schema before anything reads it.
	Migrate bool
	// InlineNotifier forces in-process recalculation whatever NOTIFIER says.
	// The worker sets it: it consumes day-changed messages, it does not publish them.
	InlineNotifier bool
}

// New opens every backing service named by cfg and wires the services.
// On error anything already opened is closed.
func New(ctx context.Context, cfg *config.Config, opts Options) (_ *Container, err error) {
	c := &Container{Config: cfg}
	defer func() {
		if err != nil {
			_ = c.Close()
		}
	}()

	if c.Loc, err = cfg.Location(); err != nil {
		return nil, err
	}
	if c.WorkdayStart, c.WorkdayEnd, err = cfg.Workday(); err != nil {
		return nil, err
	}

	if c.DB, c.Dialect, err = db.Open(ctx, cfg.DatabaseURL); err != nil {
		return nil, fmt.Errorf("app: %w", err)
	}
	c.closers = append(c.closers, c.DB.Close)

	if opts.Migrate {
		if err := repositories.InitSchema(ctx, c.DB, c.Dialect); err != nil {
			return nil, fmt.Errorf("app: %w", err)
		}
	}

	if cfg.DistanceCache == "redis" || cfg.Locker == "redis" {
		if err := c.openRedis(ctx); err != nil {
			return nil, err
		}
	}

	c.Events = repositories.NewSQLEventRepository(c.DB, c.Dialect)
	c.Catalog = repositories.NewSQLCatalog(c.DB, c.Dialect)
	c.Exporter = calendar.NewICSExporter(c.Loc)

	if err := c.buildDistances(); err != nil {
		return nil, err
	}

	switch cfg.Locker {
	case "redis":
		c.Locker = locking.NewRedisLocker(c.Redis, 2*time.Minute)
	default:
		c.Locker = locking.NewMemoryLocker()
	}

	c.Chain = services.NewTravelChain(c.Events, c.Catalog, c.Distances, c.Locker, c.Loc, cfg.DistanceTimeout)
	c.Optimizer = services.NewDayOptimizer(c.Events, c.Distances, c.Locker, c.Loc)
	c.Availability = services.NewAvailability(c.Events, c.Loc, c.WorkdayStart, c.WorkdayEnd)
	c.Queries = services.NewScheduleQueries(c.Events, c.Catalog, c.Loc)
	c.Sweep = services.NewTravelSweep(c.Events, c.Chain, c.Loc)

	if cfg.Notifier == "amqp" && !opts.InlineNotifier {
		n, err := messaging.NewAMQPNotifier(cfg.AMQPURL)
		if err != nil {
			return nil, fmt.Errorf("app: %w", err)
		}
		c.closers = append(c.closers, n.Close)
		c.Notifier = n
	} else {
		c.Notifier = messaging.NewInlineNotifier(c.Chain.Recalculate)
	}
	c.Commands = services.NewEventCommands(c.Events, c.Catalog, c.Notifier, c.Loc)

	slog.InfoContext(ctx, "application wired",
		"db", c.Dialect.String(),
		"distance_provider", cfg.DistanceProvider,
		"distance_cache", cfg.DistanceCache,
		"locker", cfg.Locker,
		"notifier", fmt.Sprintf("%T", c.Notifier),
	)
	return c, nil
}

func (c *Container) openRedis(ctx context.Context) error {
	opts, err := redis.ParseURL(c.Config.RedisURL)
	if err != nil {
		return fmt.Errorf("app: parse REDIS_URL: %w", err)
	}
	client := redis.NewClient(opts)
	c.closers = append(c.closers, client.Close)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		return fmt.Errorf("app: ping redis: %w", err)
	}
	c.Redis = client
	return nil
}

// buildDistances layers the provider: cache outside, circuit breaker inside,
// so cache hits never count against the breaker.
func (c *Container) buildDistances() error {
	cfg := c.Config

	var (
		base     ports.DistanceProvider
		geocoder ports.Geocoder = distance.UnavailableGeocoder{}
	)
	switch cfg.DistanceProvider {
	case "ors":
		gc := cache.NewSQLGeocodeCache(c.DB, c.Dialect, 30*24*time.Hour)
		ors, err := distance.NewORSDistanceProvider(cfg.ORSAPIKey,
			distance.WithRateLimit(cfg.ProviderRPS),
			distance.WithGeocodeCache(gc),
		)
		if err != nil {
			return fmt.Errorf("app: %w", err)
		}
		base, geocoder = ors, ors
		c.Purgers = append(c.Purgers, gc)
	default:
		base = distance.NewHaversineProvider()
	}

	var provider ports.DistanceProvider = distance.NewResilientProvider(base, cfg.DistanceTimeout)

	var dc ports.DistanceCache
	switch cfg.DistanceCache {
	case "memory":
		dc = cache.NewMemoryDistanceCache(cfg.DistanceCacheTTL)
	case "redis":
		dc = cache.NewRedisDistanceCache(c.Redis, cfg.DistanceCacheTTL)
	case "sql":
		sc := cache.NewSQLDistanceCache(c.DB, c.Dialect, cfg.DistanceCacheTTL)
		c.Purgers = append(c.Purgers, sc)
		dc = sc
	}
	if dc != nil {
		provider = distance.NewCachedProvider(provider, dc)
	}

	c.Distances = provider
	c.Geocoder = geocoder
	return nil
}

// Close releases connections in reverse order of opening.
func (c *Container) Close() error {
	var errs []error
	for i := len(c.closers) - 1; i >= 0; i-- {
		if err := c.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	c.closers = nil
	return errors.Join(errs...)
}
