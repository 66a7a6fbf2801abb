package api

import (
	"time"

	"github.com/gin-gonic/gin"

	"tradie-schedule-service/internal/api/handlers"
	"tradie-schedule-service/internal/domain"
	"tradie-schedule-service/internal/ports"
	"tradie-schedule-service/internal/services"
)

// Dependencies are the services the HTTP layer calls into.
type Dependencies struct {
	Queries      *services.ScheduleQueries
	Commands     *services.EventCommands
	Availability *services.Availability
	Optimizer    *services.DayOptimizer
	Chain        *services.TravelChain
	Owners       ports.OwnerDirectory
	Geocoder     ports.Geocoder
	Exporter     handlers.CalendarExporter

	Loc          *time.Location
	WorkDayStart domain.TimeOfDay
	// Now defaults to time.Now; requests without a date use today in Loc.
	Now func() time.Time

	RateLimitPerSec float64
	RateLimitBurst  int
}

// NewRouter wires HTTP handlers with their dependencies and returns a gin engine.
// This is the API composition root (handlers stay unaware of concrete adapters).
func NewRouter(deps Dependencies) *gin.Engine {
	if deps.Now == nil {
		deps.Now = time.Now
	}
	if deps.RateLimitBurst <= 0 {
		deps.RateLimitBurst = 5
	}

	r := gin.New()
	r.Use(gin.Recovery(), requestID(), accessLog())

	scheduleHandler := &handlers.ScheduleHandler{
		Queries:  deps.Queries,
		Exporter: deps.Exporter,
		Loc:      deps.Loc,
		Now:      deps.Now,
	}
	eventHandler := &handlers.EventHandler{Commands: deps.Commands}
	slotHandler := &handlers.SlotHandler{Availability: deps.Availability, Loc: deps.Loc, Now: deps.Now}
	routeHandler := &handlers.RouteHandler{
		Optimizer:    deps.Optimizer,
		Chain:        deps.Chain,
		Owners:       deps.Owners,
		WorkDayStart: deps.WorkDayStart,
		Loc:          deps.Loc,
		Now:          deps.Now,
	}
	geocodeHandler := &handlers.GeocodeHandler{Geocoder: deps.Geocoder}

	r.GET("/health", handlers.Health)

	api := r.Group("/")
	if deps.RateLimitPerSec > 0 {
		api.Use(rateLimit(deps.RateLimitPerSec, deps.RateLimitBurst))
	}
	{
		api.GET("/geocode", geocodeHandler.Geocode)

		owner := api.Group("/owners/:ownerID")
		owner.GET("/schedule/day", scheduleHandler.Day)
		owner.GET("/schedule/week", scheduleHandler.Week)
		owner.GET("/schedule/month", scheduleHandler.Month)
		owner.GET("/schedule/export.ics", scheduleHandler.Export)
		owner.POST("/schedule/optimize", routeHandler.Optimize)
		owner.GET("/conflicts", scheduleHandler.Conflicts)
		owner.GET("/slots", slotHandler.Find)
		owner.POST("/travel/recalculate", routeHandler.Recalculate)

		owner.POST("/events", eventHandler.Create)
		owner.POST("/events/quick-add", eventHandler.QuickAdd)
		owner.GET("/events/:eventID", eventHandler.Get)
		owner.PUT("/events/:eventID", eventHandler.Update)
		owner.DELETE("/events/:eventID", eventHandler.Delete)
	}

	return r
}
