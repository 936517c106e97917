package publish

import (
	"fmt"
	"sync"
	"time"

	"github.com/streadway/amqp"
	"go.uber.org/zap"
)

// amqpReconnectDelay mirrors the reconnect backoff the teacher's failure
// detector uses against RabbitMQ.
const amqpReconnectDelay = 5 * time.Second

// amqpBus publishes records to a RabbitMQ exchange, an optional Transport
// for sites that already run a message broker instead of consuming the
// tcpBus directly.
type amqpBus struct {
	url      string
	exchange string
	logger   *zap.Logger

	mu      sync.Mutex
	conn    *amqp.Connection
	channel *amqp.Channel
}

// NewAMQPBus dials url and declares exchange as a fanout exchange,
// publishing every record to it.
func NewAMQPBus(url, exchange string, logger *zap.Logger) (Transport, error) {
	b := &amqpBus{url: url, exchange: exchange, logger: logger}
	if err := b.connect(); err != nil {
		return nil, err
	}
	return b, nil
}

func (b *amqpBus) connect() error {
	conn, err := amqp.Dial(b.url)
	if err != nil {
		return fmt.Errorf("publish: amqp dial: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return fmt.Errorf("publish: amqp channel: %w", err)
	}
	if err := ch.ExchangeDeclare(
		b.exchange,
		"fanout",
		true,  // durable
		false, // auto-deleted
		false, // internal
		false, // no-wait
		nil,
	); err != nil {
		ch.Close()
		conn.Close()
		return fmt.Errorf("publish: amqp exchange declare: %w", err)
	}

	b.mu.Lock()
	b.conn, b.channel = conn, ch
	b.mu.Unlock()
	return nil
}

// Send publishes rec to the configured exchange, reconnecting once on a
// stale connection before giving up for this call.
func (b *amqpBus) Send(rec []byte) error {
	b.mu.Lock()
	ch := b.channel
	b.mu.Unlock()

	err := ch.Publish(
		b.exchange,
		"",    // routing key, ignored by fanout exchanges
		false, // mandatory
		false, // immediate
		amqp.Publishing{
			ContentType: "application/json",
			Body:        rec,
			Timestamp:   time.Now(),
		},
	)
	if err == nil {
		return nil
	}

	b.logger.Warn("amqp publish failed, reconnecting", zap.Error(err))
	if rerr := b.connect(); rerr != nil {
		return fmt.Errorf("publish: amqp reconnect: %w", rerr)
	}
	return err
}

func (b *amqpBus) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.channel != nil {
		b.channel.Close()
	}
	if b.conn != nil {
		return b.conn.Close()
	}
	return nil
}
