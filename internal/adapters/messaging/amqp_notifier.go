package messaging

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

// AMQPNotifier publishes day-changed messages for the worker to consume.
type AMQPNotifier struct {
	conn     *amqp.Connection
	channel  *amqp.Channel
	exchange string
	mu       sync.Mutex
}

func NewAMQPNotifier(url string) (*AMQPNotifier, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("amqp notifier: connect: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("amqp notifier: open channel: %w", err)
	}

	if err := declareExchange(ch); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, fmt.Errorf("amqp notifier: %w", err)
	}

	slog.Info("amqp notifier connected", "exchange", ExchangeName)

	return &AMQPNotifier{conn: conn, channel: ch, exchange: ExchangeName}, nil
}

func (n *AMQPNotifier) NotifyDayChanged(ctx context.Context, ownerID string, date time.Time) error {
	body, err := EncodeDayChanged(ownerID, date)
	if err != nil {
		return fmt.Errorf("notify day changed: %w", err)
	}

	n.mu.Lock()
	defer n.mu.Unlock()

	err = n.channel.PublishWithContext(ctx,
		n.exchange,
		DayChangedKey,
		false, // mandatory
		false, // immediate
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			Timestamp:    time.Now(),
			Body:         body,
		},
	)
	if err != nil {
		return fmt.Errorf("notify day changed: publish: %w", err)
	}

	slog.DebugContext(ctx, "day changed published", "owner_id", ownerID, "date", date.Format(time.DateOnly))
	return nil
}

func (n *AMQPNotifier) Close() error {
	n.mu.Lock()
	defer n.mu.Unlock()

	if err := n.channel.Close(); err != nil {
		slog.Warn("error closing amqp channel", "err", err)
	}
	return n.conn.Close()
}

func declareExchange(ch *amqp.Channel) error {
	err := ch.ExchangeDeclare(
		ExchangeName,
		"topic",
		true,  // durable
		false, // auto-deleted
		false, // internal
		false, // no-wait
		nil,
	)
	if err != nil {
		return fmt.Errorf("declare exchange: %w", err)
	}
	return nil
}
