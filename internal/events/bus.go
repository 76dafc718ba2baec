package events

import "sync"

// RunCompleted announces a finished pipeline run.
type RunCompleted struct {
	RunID        string
	SourceFile   string
	Status       string
	MainRows     int
	FeedbackRows int
	Err          string
}

// Bus provides simple in-process pub/sub for observability.
type Bus struct {
	mu   sync.RWMutex
	subs []chan RunCompleted
}

func NewBus() *Bus { return &Bus{} }

func (b *Bus) Subscribe() <-chan RunCompleted {
	ch := make(chan RunCompleted, 16)
	b.mu.Lock()
	defer b.mu.Unlock()
	b.subs = append(b.subs, ch)
	return ch
}

func (b *Bus) Publish(ev RunCompleted) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	for _, ch := range b.subs {
		select {
		case ch <- ev:
		default:
		}
	}
}
