package order

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/rs/zerolog"
)

// Rabbit publishes JSON events to a durable topic exchange.
type Rabbit struct {
	conn     *amqp.Connection
	ch       *amqp.Channel
	exchange string
	log      zerolog.Logger

	// amqp channels are not safe for concurrent publishes.
	mu sync.Mutex
}

func NewRabbit(url, exchange string, log zerolog.Logger) (*Rabbit, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, err
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, err
	}
	if err := ch.ExchangeDeclare(exchange, "topic", true, false, false, false, nil); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, err
	}
	return &Rabbit{conn: conn, ch: ch, exchange: exchange, log: log}, nil
}

func (r *Rabbit) Close() error {
	var errs []error
	if r.ch != nil {
		errs = append(errs, r.ch.Close())
	}
	if r.conn != nil {
		errs = append(errs, r.conn.Close())
	}
	return errors.Join(errs...)
}

func (r *Rabbit) PublishJSON(ctx context.Context, routingKey string, v any) error {
	body, err := json.Marshal(v)
	if err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.ch.PublishWithContext(ctx, r.exchange, routingKey, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    time.Now(),
		Body:         body,
	})
}

type ConsumerHandler func(rk string, body []byte) error

// ConsumeTopic binds queueName to the given routing keys and hands every
// delivery to handler until ctx is done or the channel closes.
func (r *Rabbit) ConsumeTopic(ctx context.Context, queueName string, bindings []string, handler ConsumerHandler) error {
	r.mu.Lock()
	q, err := r.ch.QueueDeclare(queueName, queueName != "", queueName == "", queueName == "", false, nil)
	if err != nil {
		r.mu.Unlock()
		return err
	}
	for _, rk := range bindings {
		if err := r.ch.QueueBind(q.Name, rk, r.exchange, false, nil); err != nil {
			r.mu.Unlock()
			return err
		}
	}
	msgs, err := r.ch.ConsumeWithContext(ctx, q.Name, "", true, false, false, false, nil)
	r.mu.Unlock()
	if err != nil {
		return err
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case d, ok := <-msgs:
			if !ok {
				r.log.Info().Str("queue", q.Name).Msg("consumer stopped")
				return nil
			}
			if err := handler(d.RoutingKey, d.Body); err != nil {
				r.log.Error().Err(err).Str("rk", d.RoutingKey).Msg("handler error")
			}
		}
	}
}
