package events

import (
	"fmt"
	"sync"

	"github.com/apex/log"
)

// PredictionCreated is published after a prediction has been accepted.
type PredictionCreated struct {
	StudentID string `json:"student_id"`
}

type Handler func(PredictionCreated)

type subscription struct {
	id      uint64
	handler Handler
}

// Bus delivers "prediction created" signals to whoever is subscribed at
// publish time. There is no queueing or replay.
type Bus struct {
	mu     sync.Mutex
	nextID uint64
	subs   []subscription
}

func NewBus() *Bus {
	return &Bus{}
}

// Subscribe registers h and returns a function that removes it. Calling
// the returned function more than once is harmless.
func (b *Bus) Subscribe(h Handler) func() {
	b.mu.Lock()
	b.nextID++
	id := b.nextID
	b.subs = append(b.subs, subscription{id: id, handler: h})
	b.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() { b.remove(id) })
	}
}

func (b *Bus) remove(id uint64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for i, s := range b.subs {
		if s.id == id {
			b.subs = append(b.subs[:i:i], b.subs[i+1:]...)
			return
		}
	}
}

// Publish calls every current subscriber synchronously, in registration
// order, on a snapshot of the subscriber list.
func (b *Bus) Publish(evt PredictionCreated) {
	b.mu.Lock()
	snapshot := make([]subscription, len(b.subs))
	copy(snapshot, b.subs)
	b.mu.Unlock()

	log.WithFields(log.Fields{"student_id": evt.StudentID, "subscribers": len(snapshot)}).Debug("prediction created")
	for _, s := range snapshot {
		s.handler(evt)
	}
}

func (b *Bus) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subs)
}

// Isolate wraps h so that a panic inside it is logged and swallowed.
// Subscribers wrap their own handlers; the bus does not recover.
func Isolate(name string, h Handler) Handler {
	return func(evt PredictionCreated) {
		defer func() {
			if r := recover(); r != nil {
				log.WithFields(log.Fields{
					"handler":    name,
					"student_id": evt.StudentID,
				}).WithError(fmt.Errorf("%v", r)).Error("prediction handler panicked")
			}
		}()
		h(evt)
	}
}
