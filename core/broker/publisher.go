package broker

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"
	"waitlist-service/core/logger"

	amqp "github.com/rabbitmq/amqp091-go"
)

// Publisher sends JSON messages to a topic exchange.
type Publisher interface {
	PublishJSON(ctx context.Context, routingKey string, v any) error
	Close() error
}

type RabbitPublisher struct {
	mu       sync.Mutex
	conn     *amqp.Connection
	ch       *amqp.Channel
	exchange string
}

func NewRabbitPublisher(url, exchange string) (*RabbitPublisher, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("dial rabbitmq: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("open channel: %w", err)
	}
	if err := ch.ExchangeDeclare(exchange, "topic", true, false, false, false, nil); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, fmt.Errorf("declare exchange: %w", err)
	}
	logger.Info("Broker initialized successfully", "exchange", exchange)
	return &RabbitPublisher{conn: conn, ch: ch, exchange: exchange}, nil
}

func (p *RabbitPublisher) PublishJSON(ctx context.Context, routingKey string, v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	// amqp channels are not safe for concurrent publishing
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.ch.PublishWithContext(ctx, p.exchange, routingKey, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    time.Now(),
		Body:         b,
	})
}

func (p *RabbitPublisher) Close() error {
	if p.ch != nil {
		_ = p.ch.Close()
	}
	if p.conn != nil {
		return p.conn.Close()
	}
	return nil
}
