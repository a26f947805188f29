package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"alfredoptarigan/resume-registry/internal/models"
)

const amqpFeedSource = "amqp change feed"

var errFeedClosed = errors.New("change feed closed")

// amqpChangeFeed fans change events out through a RabbitMQ exchange. Each
// instance consumes from its own exclusive queue, so every instance sees
// every event, including its own.
type amqpChangeFeed struct {
	*remoteReceiver
	url      string
	exchange string

	// mu guards conn and channel, which are replaced on reconnect. amqp
	// channels are not safe for concurrent publishing either.
	mu      sync.Mutex
	conn    *amqp.Connection
	channel *amqp.Channel
}

func NewAMQPChangeFeed(url, exchange string) (ChangeFeed, error) {
	f := &amqpChangeFeed{
		remoteReceiver: newRemoteReceiver(),
		url:            url,
		exchange:       exchange,
	}

	msgs, err := f.connect()
	if err != nil {
		return nil, err
	}

	f.wg.Add(1)
	go f.consume(msgs)

	log.Printf("✅ Connected to RabbitMQ and bound to exchange '%s'\n", exchange)
	return f, nil
}

// connect dials the broker, binds a fresh exclusive queue to the exchange
// and installs the new connection in place of the old one.
func (f *amqpChangeFeed) connect() (<-chan amqp.Delivery, error) {
	conn, err := amqp.Dial(f.url)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to open channel: %w", err)
	}

	err = ch.ExchangeDeclare(
		f.exchange, // name
		"fanout",   // kind
		true,       // durable
		false,      // auto-deleted
		false,      // internal
		false,      // no-wait
		nil,        // args
	)
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to declare exchange: %w", err)
	}

	q, err := ch.QueueDeclare(
		"",    // server-named
		false, // durable
		true,  // delete when unused
		true,  // exclusive
		false, // no-wait
		nil,   // args
	)
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to declare queue: %w", err)
	}

	if err := ch.QueueBind(q.Name, "", f.exchange, false, nil); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to bind queue: %w", err)
	}

	msgs, err := ch.Consume(
		q.Name,
		"",
		true,  // auto-ack
		true,  // exclusive
		false, // no-local
		false, // no-wait
		nil,
	)
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to register consumer: %w", err)
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	select {
	case <-f.stopChan:
		conn.Close()
		return nil, errFeedClosed
	default:
	}

	if f.conn != nil {
		f.conn.Close()
	}
	f.conn, f.channel = conn, ch
	return msgs, nil
}

// consume reads deliveries until the feed is closed. When the broker drops
// the delivery channel it reconnects and forces a refresh.
func (f *amqpChangeFeed) consume(msgs <-chan amqp.Delivery) {
	defer f.wg.Done()

	for {
		select {
		case <-f.stopChan:
			return
		case d, ok := <-msgs:
			if ok {
				f.receive(amqpFeedSource, d.Body)
				continue
			}

			log.Println("⚠️  RabbitMQ change feed delivery channel closed")
			connected := retryUntilStopped(f.stopChan, reconnectDelay, maxReconnectDelay, amqpFeedSource, func() error {
				var err error
				msgs, err = f.connect()
				return err
			})
			if !connected {
				return
			}
			f.reconnected(amqpFeedSource)
		}
	}
}

func (f *amqpChangeFeed) Publish(ctx context.Context, event models.ChangeEvent) error {
	body, err := encodeChangeEvent(event)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	f.mu.Lock()
	defer f.mu.Unlock()

	err = f.channel.PublishWithContext(
		ctx,
		f.exchange, // exchange
		"",         // routing key
		false,
		false,
		amqp.Publishing{
			ContentType: "application/json",
			Body:        body,
		},
	)
	if err != nil {
		return fmt.Errorf("failed to publish change event: %w", err)
	}
	return nil
}

func (f *amqpChangeFeed) Changes() <-chan models.ChangeEvent {
	return f.changes
}

func (f *amqpChangeFeed) Close() error {
	var err error
	f.closeOnce.Do(func() {
		close(f.stopChan)

		f.mu.Lock()
		err = f.conn.Close()
		f.mu.Unlock()

		f.wg.Wait()
		if errors.Is(err, amqp.ErrClosed) {
			err = nil
		}
	})
	return err
}
