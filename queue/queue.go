// Package queue defines the transport abstraction sidequest dispatches task
// messages over, plus the backends that implement it.
package queue

import (
	"encoding/json"
	"time"
)

// Message is one dispatched task: the quest to run and its already-resolved
// (or still-referenced) arguments, keyed by task id.
type Message struct {
	TaskID    string         `json:"task_id"`
	QuestName string         `json:"quest_name"`
	Args      []any          `json:"args,omitempty"`
	Kwargs    map[string]any `json:"kwargs,omitempty"`
	Deps      []string       `json:"deps,omitempty"`
}

// Queue is the minimal transport a worker pool needs: push a message, pull
// the next one (blocking up to timeout), and ask whether anything is
// outstanding. Every backend — in-memory, RabbitMQ, Redis — implements it
// the same way so dispatch and worker code never know which one they're
// talking to.
type Queue interface {
	// Send enqueues msg.
	Send(msg Message) error

	// Receive blocks up to timeout for the next message. A nil message with
	// a nil error means the timeout elapsed with nothing available.
	Receive(timeout time.Duration) (*Message, error)

	// Empty reports whether the queue currently holds no messages. Callers
	// use it to decide when a queue has drained; Worker itself never calls
	// it.
	Empty() (bool, error)
}

func encodeMessage(msg Message) ([]byte, error) {
	return json.Marshal(msg)
}

func decodeMessage(data []byte) (Message, error) {
	var msg Message
	err := json.Unmarshal(data, &msg)
	return msg, err
}
