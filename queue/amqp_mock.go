package queue

import (
	"fmt"

	"github.com/streadway/amqp"
)

// mockConn is a test double for AMQPConnection.
type mockConn struct {
	channel    AMQPChannel
	channelErr error
}

func (m *mockConn) Channel() (AMQPChannel, error) {
	if m.channelErr != nil {
		return nil, m.channelErr
	}
	return m.channel, nil
}

func (m *mockConn) Close() error { return nil }

// mockChannel is a test double for AMQPChannel: it records what was
// published and lets a test feed deliveries and canned errors.
type mockChannel struct {
	PublishedMessages []amqp.Publishing
	PublishedKeys     []string

	QueueDeclareErr error
	PublishErr      error

	// Deliveries is returned from Consume; tests push onto it directly.
	Deliveries   chan amqp.Delivery
	ConsumeErr   error
	InspectQueue amqp.Queue
	InspectErr   error
}

func (m *mockChannel) QueueDeclare(name string, durable, autoDelete, exclusive, noWait bool, args amqp.Table) (amqp.Queue, error) {
	if m.QueueDeclareErr != nil {
		return amqp.Queue{}, m.QueueDeclareErr
	}
	return amqp.Queue{Name: name}, nil
}

func (m *mockChannel) Publish(exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error {
	if m.PublishErr != nil {
		return m.PublishErr
	}
	m.PublishedMessages = append(m.PublishedMessages, msg)
	m.PublishedKeys = append(m.PublishedKeys, key)
	return nil
}

// Consume returns the preconfigured Deliveries channel, creating an empty
// one if the test never set one.
func (m *mockChannel) Consume(queue, consumer string, autoAck, exclusive, noLocal, noWait bool, args amqp.Table) (<-chan amqp.Delivery, error) {
	if m.ConsumeErr != nil {
		return nil, m.ConsumeErr
	}
	if m.Deliveries == nil {
		m.Deliveries = make(chan amqp.Delivery, 16)
	}
	return m.Deliveries, nil
}

func (m *mockChannel) QueueInspect(name string) (amqp.Queue, error) {
	if m.InspectErr != nil {
		return amqp.Queue{}, m.InspectErr
	}
	return m.InspectQueue, nil
}

func (m *mockChannel) Close() error { return nil }

// mockDialer is a test double for AMQPDialer.
type mockDialer struct {
	conn AMQPConnection
	err  error
}

func (m *mockDialer) Dial(url string) (AMQPConnection, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.conn, nil
}

// NewMockAMQPDialerWithError returns a dialer whose Dial always fails.
func NewMockAMQPDialerWithError(err error) AMQPDialer {
	return &mockDialer{err: err}
}

// SetupMockDialerForTest wires a dialer to a connection to a channel, all
// succeeding by default, and returns the channel and connection for the
// test to drive or inspect.
func SetupMockDialerForTest() (AMQPDialer, *mockChannel, *mockConn) {
	ch := &mockChannel{}
	conn := &mockConn{channel: ch}
	return &mockDialer{conn: conn}, ch, conn
}

// SetupMockDialerWithChannelError returns a dialer whose connection fails
// to open a channel.
func SetupMockDialerWithChannelError() AMQPDialer {
	conn := &mockConn{channelErr: fmt.Errorf("failed to open channel")}
	return &mockDialer{conn: conn}
}

// SetupMockDialerWithQueueError returns a dialer whose channel fails to
// declare a queue, and the channel itself for the test to inspect.
func SetupMockDialerWithQueueError() (AMQPDialer, *mockChannel) {
	ch := &mockChannel{QueueDeclareErr: fmt.Errorf("failed to declare queue")}
	conn := &mockConn{channel: ch}
	return &mockDialer{conn: conn}, ch
}
