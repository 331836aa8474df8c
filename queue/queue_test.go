package queue

import (
	"testing"
	"time"

	"github.com/streadway/amqp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRabbitMQWithDialer_DialError(t *testing.T) {
	dialer := NewMockAMQPDialerWithError(assertErr("dial failed"))
	svc, err := NewRabbitMQWithDialer(RabbitConfig{URL: "amqp://x", QueueName: "q"}, dialer)
	require.Error(t, err)
	assert.Nil(t, svc)
	assert.Contains(t, err.Error(), "failed to connect to RabbitMQ")
}

func TestNewRabbitMQWithDialer_ChannelError(t *testing.T) {
	dialer := SetupMockDialerWithChannelError()
	svc, err := NewRabbitMQWithDialer(RabbitConfig{URL: "amqp://x", QueueName: "q"}, dialer)
	require.Error(t, err)
	assert.Nil(t, svc)
	assert.Contains(t, err.Error(), "failed to open a channel")
}

func TestNewRabbitMQWithDialer_QueueDeclareError(t *testing.T) {
	dialer, _ := SetupMockDialerWithQueueError()
	svc, err := NewRabbitMQWithDialer(RabbitConfig{URL: "amqp://x", QueueName: "q"}, dialer)
	require.Error(t, err)
	assert.Nil(t, svc)
	assert.Contains(t, err.Error(), "failed to declare queue")
}

func TestRabbitMQ_SendPublishesJSON(t *testing.T) {
	dialer, mockChannel, _ := SetupMockDialerForTest()
	svc, err := NewRabbitMQWithDialer(RabbitConfig{URL: "amqp://x", QueueName: "tasks"}, dialer)
	require.NoError(t, err)

	msg := Message{TaskID: "t-1", QuestName: "greet", Args: []any{"world"}}
	require.NoError(t, svc.Send(msg))

	require.Len(t, mockChannel.PublishedMessages, 1)
	assert.Equal(t, "tasks", mockChannel.PublishedKeys[0])

	decoded, err := decodeMessage(mockChannel.PublishedMessages[0].Body)
	require.NoError(t, err)
	assert.Equal(t, msg.TaskID, decoded.TaskID)
	assert.Equal(t, msg.QuestName, decoded.QuestName)
}

func TestRabbitMQ_ReceiveDecodesDelivery(t *testing.T) {
	dialer, mockChannel, _ := SetupMockDialerForTest()
	svc, err := NewRabbitMQWithDialer(RabbitConfig{URL: "amqp://x", QueueName: "tasks"}, dialer)
	require.NoError(t, err)

	body, err := encodeMessage(Message{TaskID: "t-2", QuestName: "square", Args: []any{3.0}})
	require.NoError(t, err)
	mockChannel.Deliveries <- amqp.Delivery{Body: body, Acknowledger: noopAcknowledger{}}

	got, err := svc.Receive(time.Second)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "t-2", got.TaskID)
	assert.Equal(t, "square", got.QuestName)
}

func TestRabbitMQ_ReceiveTimeout(t *testing.T) {
	dialer, _, _ := SetupMockDialerForTest()
	svc, err := NewRabbitMQWithDialer(RabbitConfig{URL: "amqp://x", QueueName: "tasks"}, dialer)
	require.NoError(t, err)

	got, err := svc.Receive(10 * time.Millisecond)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestRabbitMQ_EmptyReportsQueueDepth(t *testing.T) {
	dialer, mockChannel, _ := SetupMockDialerForTest()
	svc, err := NewRabbitMQWithDialer(RabbitConfig{URL: "amqp://x", QueueName: "tasks"}, dialer)
	require.NoError(t, err)

	mockChannel.InspectQueue = amqp.Queue{Name: "tasks", Messages: 0}
	empty, err := svc.Empty()
	require.NoError(t, err)
	assert.True(t, empty)

	mockChannel.InspectQueue = amqp.Queue{Name: "tasks", Messages: 2}
	empty, err = svc.Empty()
	require.NoError(t, err)
	assert.False(t, empty)
}

func TestRabbitMQ_CloseIsNilSafe(t *testing.T) {
	svc := &RabbitMQ{}
	assert.NotPanics(t, func() {
		svc.Close()
	})
}

// noopAcknowledger implements amqp.Acknowledger so mock deliveries can be
// acked/nacked without a real channel.
type noopAcknowledger struct{}

func (noopAcknowledger) Ack(tag uint64, multiple bool) error               { return nil }
func (noopAcknowledger) Nack(tag uint64, multiple, requeue bool) error     { return nil }
func (noopAcknowledger) Reject(tag uint64, requeue bool) error             { return nil }

func assertErr(msg string) error { return &testErr{msg} }

type testErr struct{ msg string }

func (e *testErr) Error() string { return e.msg }
