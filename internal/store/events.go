package store

import (
	"sync"

	"github.com/dmitrijs2005/ampcare/internal/models"
	"github.com/google/uuid"
)

type EventKind int

const (
	// EventUpserted reports that one record was added or changed.
	EventUpserted EventKind = iota
	// EventRemoved reports that the backing file of a record disappeared.
	EventRemoved
	// EventReset reports that the whole collection was rebuilt.
	EventReset
	// EventDiscovered reports a message that arrived through external sync.
	EventDiscovered
)

func (k EventKind) String() string {
	switch k {
	case EventUpserted:
		return "upserted"
	case EventRemoved:
		return "removed"
	case EventReset:
		return "reset"
	case EventDiscovered:
		return "discovered"
	default:
		return "unknown"
	}
}

// Event describes a change of the collection. Message is a private copy
// and is nil for EventReset and EventRemoved.
type Event struct {
	Kind    EventKind
	ID      uuid.UUID
	Message *models.Message
}

type Listener func(Event)

type listeners struct {
	mu   sync.Mutex
	next int
	fns  map[int]Listener
}

func (l *listeners) add(fn Listener) func() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.fns == nil {
		l.fns = make(map[int]Listener)
	}
	id := l.next
	l.next++
	l.fns[id] = fn
	return func() {
		l.mu.Lock()
		defer l.mu.Unlock()
		delete(l.fns, id)
	}
}

func (l *listeners) dispatch(events []Event) {
	if len(events) == 0 {
		return
	}
	l.mu.Lock()
	fns := make([]Listener, 0, len(l.fns))
	for i := 0; i < l.next; i++ {
		if fn, ok := l.fns[i]; ok {
			fns = append(fns, fn)
		}
	}
	l.mu.Unlock()

	for _, ev := range events {
		for _, fn := range fns {
			fn(ev)
		}
	}
}
