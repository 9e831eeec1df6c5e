package events

import (
	"context"
	"fmt"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/sony/gobreaker"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/boddenberg/fintrack-bfa-go/internal/domain"
	"github.com/boddenberg/fintrack-bfa-go/internal/infra/resilience"
)

var tracer = otel.Tracer("events")

const publishTimeout = 5 * time.Second

// AMQPPublisher publishes events to a durable direct exchange.
type AMQPPublisher struct {
	conn       *amqp.Connection
	ch         *amqp.Channel
	mu         sync.Mutex // amqp channels are not safe for concurrent use
	exchange   string
	routingKey string
	cb         *gobreaker.CircuitBreaker
	cfg        resilience.Config
	logger     *zap.Logger
}

// NewAMQPPublisher dials the broker and declares the exchange, a durable
// queue named after the routing key, and their binding.
func NewAMQPPublisher(url, exchange, routingKey string, cb *gobreaker.CircuitBreaker, cfg resilience.Config, logger *zap.Logger) (*AMQPPublisher, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("dial AMQP: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("open channel: %w", err)
	}

	p := &AMQPPublisher{
		conn:       conn,
		ch:         ch,
		exchange:   exchange,
		routingKey: routingKey,
		cb:         cb,
		cfg:        cfg,
		logger:     logger,
	}
	if err := p.setup(); err != nil {
		p.Close()
		return nil, fmt.Errorf("setup exchange and queue: %w", err)
	}

	logger.Info("amqp publisher ready",
		zap.String("exchange", exchange),
		zap.String("routing_key", routingKey),
	)
	return p, nil
}

func (p *AMQPPublisher) setup() error {
	if err := p.ch.ExchangeDeclare(
		p.exchange, // name
		"direct",   // type
		true,       // durable
		false,      // auto-deleted
		false,      // internal
		false,      // no-wait
		nil,        // arguments
	); err != nil {
		return fmt.Errorf("declare exchange: %w", err)
	}

	if _, err := p.ch.QueueDeclare(
		p.routingKey, // name
		true,         // durable
		false,        // delete when unused
		false,        // exclusive
		false,        // no-wait
		nil,          // arguments
	); err != nil {
		return fmt.Errorf("declare queue: %w", err)
	}

	if err := p.ch.QueueBind(p.routingKey, p.routingKey, p.exchange, false, nil); err != nil {
		return fmt.Errorf("bind queue: %w", err)
	}
	return nil
}

// Publish sends evt as a persistent JSON message, retrying inside the
// circuit breaker.
func (p *AMQPPublisher) Publish(ctx context.Context, evt domain.Event) error {
	ctx, span := tracer.Start(ctx, "AMQP.Publish")
	defer span.End()
	span.SetAttributes(attribute.String("event.type", string(evt.Type)))

	body, err := Encode(evt)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	err = resilience.Call(ctx, p.cb, p.cfg, func() error {
		pctx, cancel := context.WithTimeout(ctx, publishTimeout)
		defer cancel()

		p.mu.Lock()
		defer p.mu.Unlock()
		return p.ch.PublishWithContext(pctx,
			p.exchange,   // exchange
			p.routingKey, // routing key
			false,        // mandatory
			false,        // immediate
			amqp.Publishing{
				ContentType:  "application/json",
				DeliveryMode: amqp.Persistent,
				Timestamp:    evt.Timestamp,
				Type:         string(evt.Type),
				Body:         body,
			},
		)
	})
	if err != nil {
		return fmt.Errorf("publish %s: %w", evt.Type, err)
	}

	p.logger.Debug("event published",
		zap.String("type", string(evt.Type)),
		zap.String("user_id", evt.UserID),
	)
	return nil
}

// Close shuts the channel and connection.
func (p *AMQPPublisher) Close() error {
	if p.ch != nil {
		p.ch.Close()
	}
	if p.conn != nil {
		return p.conn.Close()
	}
	return nil
}

// NoopPublisher drops events. Used when no broker is configured.
type NoopPublisher struct {
	logger *zap.Logger
}

// NewNoopPublisher returns a publisher that only logs at debug level.
func NewNoopPublisher(logger *zap.Logger) *NoopPublisher {
	return &NoopPublisher{logger: logger}
}

func (n *NoopPublisher) Publish(_ context.Context, evt domain.Event) error {
	n.logger.Debug("event dropped (no broker)", zap.String("type", string(evt.Type)))
	return nil
}

func (n *NoopPublisher) Close() error { return nil }
