package slicer

import (
	"github.com/google/uuid"
	"go.uber.org/zap"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/Faultbox/provelslice/internal/logger"
	"github.com/Faultbox/provelslice/internal/mesh"
	"github.com/Faultbox/provelslice/internal/ring"
)

// MessageType tags a Task message.
type MessageType string

const (
	MessageProgress MessageType = "progress"
	MessageDone     MessageType = "done"
)

// Message is one notification from a running Task. Progress messages carry
// Fraction; the single Done message carries the result.
type Message struct {
	Type     MessageType
	Fraction float64
	Levels   ring.Levels
	Center   r3.Vec
	Err      error
}

// Task runs an extraction in its own goroutine. Progress messages are
// dropped rather than block when the consumer falls behind; the Done
// message is always delivered, after which the channel is closed.
type Task struct {
	ID       string
	messages chan Message
}

// Start slices the flat position buffer in the background. buffer bounds
// the number of undelivered progress messages.
func Start(positions []float32, p Params, buffer int) *Task {
	if buffer < 1 {
		buffer = 1
	}
	t := &Task{
		ID:       uuid.NewString(),
		messages: make(chan Message, buffer+1),
	}
	go t.run(positions, p, buffer)
	return t
}

// Messages returns the receive side of the notification stream.
func (t *Task) Messages() <-chan Message {
	return t.messages
}

// Wait drains the stream and returns the Done payload.
func (t *Task) Wait() (ring.Levels, r3.Vec, error) {
	var done Message
	for msg := range t.messages {
		if msg.Type == MessageDone {
			done = msg
		}
	}
	return done.Levels, done.Center, done.Err
}

func (t *Task) run(positions []float32, p Params, buffer int) {
	defer close(t.messages)
	log := logger.Named("slicer").With(zap.String("task", t.ID))

	e, err := NewExtractor(mesh.FromPositions(positions), p)
	if err != nil {
		log.Error("slice task failed", zap.Error(err))
		t.messages <- Message{Type: MessageDone, Err: err}
		return
	}

	levels := e.Extract(func(f float64) {
		// One slot is always left free for the Done message.
		if len(t.messages) >= buffer {
			return
		}
		t.messages <- Message{Type: MessageProgress, Fraction: f}
	})

	t.messages <- Message{Type: MessageDone, Levels: levels, Center: e.Center()}
}
