package messaging

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"tradie-schedule-service/internal/domain"
)

// AMQPConsumer runs day recalculations requested by AMQPNotifier.
type AMQPConsumer struct {
	conn    *amqp.Connection
	channel *amqp.Channel
	queue   string
	loc     *time.Location
	recalc  RecalculateFunc
}

type AMQPConsumerConfig struct {
	URL       string
	QueueName string
	Location  *time.Location
}

func NewAMQPConsumer(cfg AMQPConsumerConfig, recalc RecalculateFunc) (*AMQPConsumer, error) {
	if cfg.QueueName == "" {
		cfg.QueueName = DefaultQueueName
	}
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}

	conn, err := amqp.Dial(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("amqp consumer: connect: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("amqp consumer: open channel: %w", err)
	}

	closeAll := func() {
		_ = ch.Close()
		_ = conn.Close()
	}

	if err := declareExchange(ch); err != nil {
		closeAll()
		return nil, fmt.Errorf("amqp consumer: %w", err)
	}

	if _, err := ch.QueueDeclare(
		cfg.QueueName,
		true,  // durable
		false, // auto-delete
		false, // exclusive
		false, // no-wait
		nil,
	); err != nil {
		closeAll()
		return nil, fmt.Errorf("amqp consumer: declare queue: %w", err)
	}

	if err := ch.QueueBind(cfg.QueueName, DayChangedKey, ExchangeName, false, nil); err != nil {
		closeAll()
		return nil, fmt.Errorf("amqp consumer: bind queue: %w", err)
	}

	slog.Info("amqp consumer connected", "queue", cfg.QueueName, "exchange", ExchangeName)

	return &AMQPConsumer{
		conn:    conn,
		channel: ch,
		queue:   cfg.QueueName,
		loc:     cfg.Location,
		recalc:  recalc,
	}, nil
}

// Run consumes until ctx is cancelled or the broker closes the channel.
func (c *AMQPConsumer) Run(ctx context.Context) error {
	// One message at a time keeps per-owner work ordered within this worker.
	if err := c.channel.Qos(1, 0, false); err != nil {
		return fmt.Errorf("amqp consumer: set qos: %w", err)
	}

	msgs, err := c.channel.ConsumeWithContext(ctx,
		c.queue,
		"",    // consumer tag
		false, // auto-ack
		false, // exclusive
		false, // no-local
		false, // no-wait
		nil,
	)
	if err != nil {
		return fmt.Errorf("amqp consumer: consume: %w", err)
	}

	slog.Info("consuming day changed messages", "queue", c.queue)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg, ok := <-msgs:
			if !ok {
				return errors.New("amqp consumer: delivery channel closed")
			}
			c.handle(ctx, msg)
		}
	}
}

func (c *AMQPConsumer) handle(ctx context.Context, msg amqp.Delivery) {
	ack, requeue := c.process(ctx, msg.Body, msg.Redelivered)
	if ack {
		if err := msg.Ack(false); err != nil {
			slog.WarnContext(ctx, "amqp ack failed", "err", err)
		}
		return
	}
	if err := msg.Nack(false, requeue); err != nil {
		slog.WarnContext(ctx, "amqp nack failed", "err", err)
	}
}

// process returns whether to ack, and when not, whether to requeue.
// Malformed messages are dropped; other failures get one redelivery.
func (c *AMQPConsumer) process(ctx context.Context, body []byte, redelivered bool) (ack, requeue bool) {
	ownerID, date, err := DecodeDayChanged(body, c.loc)
	if err != nil {
		slog.ErrorContext(ctx, "dropping malformed day changed message", "err", err)
		return false, false
	}

	if err := c.recalc(ctx, ownerID, date); err != nil {
		slog.ErrorContext(ctx, "day recalculation failed",
			"owner_id", ownerID,
			"date", date.Format(time.DateOnly),
			"redelivered", redelivered,
			"err", err,
		)
		if errors.Is(err, domain.ErrInvalidInput) {
			return false, false
		}
		return false, !redelivered
	}
	return true, false
}

func (c *AMQPConsumer) Close() error {
	if err := c.channel.Close(); err != nil {
		slog.Warn("error closing amqp channel", "err", err)
	}
	return c.conn.Close()
}
