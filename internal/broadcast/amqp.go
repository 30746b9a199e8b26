package broadcast

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/sony/gobreaker"
)

const (
	// DefaultExchange is the topic exchange trip events are published to
	DefaultExchange = "itinerary.trips"
	publishTimeout  = 3 * time.Second
)

// AMQPPublisher publishes trip events to a RabbitMQ topic exchange behind a circuit breaker
type AMQPPublisher struct {
	conn     *amqp.Connection
	channel  *amqp.Channel
	exchange string
	cb       *gobreaker.CircuitBreaker
}

func publisherBreakerSettings(name string) gobreaker.Settings {
	return gobreaker.Settings{
		Name:        name,
		MaxRequests: 3,
		Interval:    30 * time.Second,
		Timeout:     10 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures > 3
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			log.Printf("[BREAKER] State change: name=%s from=%s to=%s", name, from.String(), to.String())
		},
	}
}

// DialAMQP connects to url and declares a durable topic exchange
func DialAMQP(url, exchange string) (*AMQPPublisher, error) {
	if exchange == "" {
		exchange = DefaultExchange
	}

	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to open channel: %w", err)
	}
	if err := ch.ExchangeDeclare(exchange, "topic", true, false, false, false, nil); err != nil {
		ch.Close()
		conn.Close()
		return nil, fmt.Errorf("failed to declare exchange %s: %w", exchange, err)
	}

	log.Printf("[BROADCAST] AMQP publisher: exchange=%s", exchange)
	return &AMQPPublisher{
		conn:     conn,
		channel:  ch,
		exchange: exchange,
		cb:       gobreaker.NewCircuitBreaker(publisherBreakerSettings("AMQPPublisher")),
	}, nil
}

func (p *AMQPPublisher) Publish(ctx context.Context, ev TripEvent) error {
	body, err := encodeEvent(ev)
	if err != nil {
		return err
	}

	_, err = p.cb.Execute(func() (interface{}, error) {
		ctx, cancel := context.WithTimeout(ctx, publishTimeout)
		defer cancel()

		return nil, p.channel.PublishWithContext(ctx,
			p.exchange,
			string(ev.Type),
			false,
			false,
			amqp.Publishing{
				ContentType:  "application/json",
				Body:         body,
				MessageId:    ev.TripID,
				Timestamp:    ev.At,
				DeliveryMode: amqp.Persistent,
			},
		)
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) {
			log.Printf("[BROADCAST] AMQP circuit open, skipping: trip=%s", ev.TripID)
		}
		return fmt.Errorf("amqp publish failed: %w", err)
	}
	return nil
}

func (p *AMQPPublisher) Close() error {
	return errors.Join(p.channel.Close(), p.conn.Close())
}
