// Package queue also provides a RabbitMQ-backed Queue, built on the
// streadway/amqp client behind the AMQPConnection/AMQPChannel/AMQPDialer
// seam so it can be exercised against a mock in tests without a broker.
package queue

import (
	"fmt"
	"time"

	"github.com/streadway/amqp"

	"github.com/TedCassirer/sidequest/log"
)

// RabbitConfig configures a RabbitMQ-backed Queue.
type RabbitConfig struct {
	URL       string
	QueueName string
}

// RabbitMQ is a Queue backed by a single durable RabbitMQ queue.
type RabbitMQ struct {
	connection AMQPConnection
	channel    AMQPChannel
	config     RabbitConfig
	deliveries <-chan amqp.Delivery
}

// NewRabbitMQ dials RabbitConfig.URL, declares the configured queue as
// durable, and returns a ready-to-use Queue.
func NewRabbitMQ(config RabbitConfig) (*RabbitMQ, error) {
	return NewRabbitMQWithDialer(config, amqpDialer{})
}

// NewRabbitMQWithDialer is NewRabbitMQ with an injectable dialer, used by
// tests to substitute a mock broker.
func NewRabbitMQWithDialer(config RabbitConfig, dialer AMQPDialer) (*RabbitMQ, error) {
	conn, err := dialer.Dial(config.URL)
	if err != nil {
		return nil, fmt.Errorf("queue: failed to connect to RabbitMQ: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("queue: failed to open a channel: %w", err)
	}

	_, err = ch.QueueDeclare(
		config.QueueName,
		true,  // durable
		false, // delete when unused
		false, // exclusive
		false, // no-wait
		nil,
	)
	if err != nil {
		ch.Close()
		conn.Close()
		return nil, fmt.Errorf("queue: failed to declare queue %q: %w", config.QueueName, err)
	}

	deliveries, err := ch.Consume(config.QueueName, "", false, false, false, false, nil)
	if err != nil {
		ch.Close()
		conn.Close()
		return nil, fmt.Errorf("queue: failed to start consuming %q: %w", config.QueueName, err)
	}

	return &RabbitMQ{
		connection: conn,
		channel:    ch,
		config:     config,
		deliveries: deliveries,
	}, nil
}

// Send publishes msg to the queue as JSON.
func (r *RabbitMQ) Send(msg Message) error {
	body, err := encodeMessage(msg)
	if err != nil {
		return fmt.Errorf("queue: failed to marshal message: %w", err)
	}

	err = r.channel.Publish(
		"",                 // default exchange
		r.config.QueueName, // routing key
		false,              // mandatory
		false,              // immediate
		amqp.Publishing{
			ContentType: "application/json",
			Body:        body,
		},
	)
	if err != nil {
		return fmt.Errorf("queue: failed to publish message: %w", err)
	}

	log.WithField("task_id", msg.TaskID).Debug("published message")
	return nil
}

// Receive waits up to timeout for the next delivery, decodes it, and acks
// it. It returns (nil, nil) on timeout.
func (r *RabbitMQ) Receive(timeout time.Duration) (*Message, error) {
	select {
	case d, ok := <-r.deliveries:
		if !ok {
			return nil, fmt.Errorf("queue: delivery channel closed")
		}
		msg, err := decodeMessage(d.Body)
		if err != nil {
			d.Nack(false, false)
			return nil, fmt.Errorf("queue: failed to unmarshal message: %w", err)
		}
		if err := d.Ack(false); err != nil {
			return nil, fmt.Errorf("queue: failed to ack message: %w", err)
		}
		return &msg, nil
	case <-time.After(timeout):
		return nil, nil
	}
}

// Empty reports whether the declared queue currently holds no messages.
func (r *RabbitMQ) Empty() (bool, error) {
	q, err := r.channel.QueueInspect(r.config.QueueName)
	if err != nil {
		return false, fmt.Errorf("queue: failed to inspect queue: %w", err)
	}
	return q.Messages == 0, nil
}

// Close releases the channel and connection.
func (r *RabbitMQ) Close() error {
	if r.channel != nil {
		r.channel.Close()
	}
	if r.connection != nil {
		r.connection.Close()
	}
	return nil
}

var _ Queue = (*RabbitMQ)(nil)
