package queue

import (
	"github.com/streadway/amqp"
)

// AMQPConnection is the subset of *amqp.Connection the RabbitMQ queue
// depends on, narrow enough to substitute a mock in tests without a
// broker.
type AMQPConnection interface {
	Channel() (AMQPChannel, error)
	Close() error
}

// AMQPChannel is the subset of *amqp.Channel a RabbitMQ queue needs:
// declare its queue once, then publish and consume against it.
type AMQPChannel interface {
	QueueDeclare(name string, durable, autoDelete, exclusive, noWait bool, args amqp.Table) (amqp.Queue, error)
	Publish(exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	Consume(queue, consumer string, autoAck, exclusive, noLocal, noWait bool, args amqp.Table) (<-chan amqp.Delivery, error)
	QueueInspect(name string) (amqp.Queue, error)
	Close() error
}

// AMQPDialer opens an AMQPConnection. Injected so NewRabbitMQWithDialer can
// be driven by a mock dialer in tests.
type AMQPDialer interface {
	Dial(url string) (AMQPConnection, error)
}

// amqpConn adapts *amqp.Connection to AMQPConnection.
type amqpConn struct {
	conn *amqp.Connection
}

func (c *amqpConn) Channel() (AMQPChannel, error) {
	ch, err := c.conn.Channel()
	if err != nil {
		return nil, err
	}
	return &amqpChan{ch: ch}, nil
}

func (c *amqpConn) Close() error {
	return c.conn.Close()
}

// amqpChan adapts *amqp.Channel to AMQPChannel.
type amqpChan struct {
	ch *amqp.Channel
}

func (c *amqpChan) QueueDeclare(name string, durable, autoDelete, exclusive, noWait bool, args amqp.Table) (amqp.Queue, error) {
	return c.ch.QueueDeclare(name, durable, autoDelete, exclusive, noWait, args)
}

func (c *amqpChan) Publish(exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error {
	return c.ch.Publish(exchange, key, mandatory, immediate, msg)
}

func (c *amqpChan) Consume(queue, consumer string, autoAck, exclusive, noLocal, noWait bool, args amqp.Table) (<-chan amqp.Delivery, error) {
	return c.ch.Consume(queue, consumer, autoAck, exclusive, noLocal, noWait, args)
}

func (c *amqpChan) QueueInspect(name string) (amqp.Queue, error) {
	return c.ch.QueueInspect(name)
}

func (c *amqpChan) Close() error {
	return c.ch.Close()
}

// amqpDialer is the production AMQPDialer, backed by amqp.Dial.
type amqpDialer struct{}

func (amqpDialer) Dial(url string) (AMQPConnection, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, err
	}
	return &amqpConn{conn: conn}, nil
}
