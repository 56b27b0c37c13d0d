package event

import (
	"log/slog"
	"sync"
)

// Log is the producer side of the core's event stream. The core appends,
// never blocks: each subscriber gets a bounded channel, and an event is
// dropped for a subscriber that cannot keep up. A full in-memory history is
// retained for queries.
type Log struct {
	mu      sync.Mutex
	buffer  int
	subs    []chan Event
	history []Event
}

// NewLog creates an event log whose subscriber channels hold buffer events.
func NewLog(buffer int) *Log {
	if buffer <= 0 {
		buffer = 256
	}
	return &Log{buffer: buffer}
}

// Publish appends the event to the history and fans it out to all
// subscribers without blocking.
func (l *Log) Publish(ev Event) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.history = append(l.history, ev)
	for _, ch := range l.subs {
		select {
		case ch <- ev:
		default:
			slog.Warn("event subscriber full, dropping event",
				slog.String("type", string(ev.EventType())))
		}
	}
}

// Subscribe registers a new consumer and returns its receive channel.
func (l *Log) Subscribe() <-chan Event {
	l.mu.Lock()
	defer l.mu.Unlock()

	ch := make(chan Event, l.buffer)
	l.subs = append(l.subs, ch)
	return ch
}

// History returns a snapshot of every event published so far.
func (l *Log) History() []Event {
	l.mu.Lock()
	defer l.mu.Unlock()

	out := make([]Event, len(l.history))
	copy(out, l.history)
	return out
}
