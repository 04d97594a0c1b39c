// Package events implements the typed publish/subscribe bus that decouples
// mutations from the surfaces that render them.
package events

import (
	"sync/atomic"
)

// Type identifies an event kind.
type Type int

const (
	PromptsChanged Type = iota + 1
	FoldersChanged
	PreferencesChanged
	ImportCompleted
	Notice
)

// String returns the wire name used on the SSE stream.
func (t Type) String() string {
	switch t {
	case PromptsChanged:
		return "prompts.changed"
	case FoldersChanged:
		return "folders.changed"
	case PreferencesChanged:
		return "preferences.changed"
	case ImportCompleted:
		return "import.completed"
	case Notice:
		return "notice"
	default:
		return "unknown"
	}
}

// Level is the severity of a user-facing notice.
type Level string

const (
	LevelInfo  Level = "info"
	LevelWarn  Level = "warning"
	LevelError Level = "error"
)

// NoticeData is the payload of a Notice event.
type NoticeData struct {
	Level   Level  `json:"level"`
	Message string `json:"message"`
}

// ChangeData is the payload of the *Changed events.
type ChangeData struct {
	Op string `json:"op"`
	ID string `json:"id,omitempty"`
}

// ImportData is the payload of an ImportCompleted event.
type ImportData struct {
	Mode    string `json:"mode"`
	Prompts int    `json:"prompts"`
	Folders int    `json:"folders"`
}

// Event is a single message on the bus.
type Event struct {
	Type Type
	Data any
}

// Notifier is the single non-blocking channel for user-visible messages.
type Notifier interface {
	Notify(level Level, msg string)
}

// Verify *Bus satisfies Notifier at compile time.
var _ Notifier = (*Bus)(nil)

type subscription struct {
	ch    chan Event
	types map[Type]struct{} // empty means every type
}

// Bus fans events out to subscribers.
//
// A single internal loop owns the listener registry. Public methods talk to
// that loop over channels, so no mutexes are required.
type Bus struct {
	subscribeCh   chan subscription
	unsubscribeCh chan chan Event
	publishCh     chan Event
	countReqCh    chan chan int

	stopCh  chan struct{}
	stopped chan struct{}
	closed  atomic.Bool
}

// NewBus creates a bus and starts its loop.
func NewBus() *Bus {
	b := &Bus{
		subscribeCh:   make(chan subscription),
		unsubscribeCh: make(chan chan Event),
		publishCh:     make(chan Event, 256),
		countReqCh:    make(chan chan int),
		stopCh:        make(chan struct{}),
		stopped:       make(chan struct{}),
	}
	go b.run()
	return b
}

func (b *Bus) run() {
	defer close(b.stopped)

	listeners := make(map[chan Event]map[Type]struct{})

	for {
		select {
		case <-b.stopCh:
			for ch := range listeners {
				close(ch)
			}
			return

		case sub := <-b.subscribeCh:
			listeners[sub.ch] = sub.types

		case ch := <-b.unsubscribeCh:
			if _, ok := listeners[ch]; ok {
				delete(listeners, ch)
				close(ch)
			}

		case ev := <-b.publishCh:
			for ch, types := range listeners {
				if len(types) > 0 {
					if _, want := types[ev.Type]; !want {
						continue
					}
				}
				select {
				case ch <- ev:
				default:
					// Listener buffer full; drop rather than stall the loop.
				}
			}

		case resp := <-b.countReqCh:
			resp <- len(listeners)
		}
	}
}

// Close stops the loop and closes every listener channel.
func (b *Bus) Close() {
	if b.closed.CompareAndSwap(false, true) {
		close(b.stopCh)
	}
	<-b.stopped
}

// Subscribe registers a listener for the given types (all types when none
// are given) and returns its channel.
func (b *Bus) Subscribe(types ...Type) chan Event {
	ch := make(chan Event, 64)
	if b.closed.Load() {
		close(ch)
		return ch
	}

	set := make(map[Type]struct{}, len(types))
	for _, t := range types {
		set[t] = struct{}{}
	}

	select {
	case b.subscribeCh <- subscription{ch: ch, types: set}:
	case <-b.stopped:
		close(ch)
	}
	return ch
}

// Unsubscribe removes a listener and closes its channel.
func (b *Bus) Unsubscribe(ch chan Event) {
	if b.closed.Load() {
		return
	}
	select {
	case b.unsubscribeCh <- ch:
	case <-b.stopped:
	}
}

// ListenerCount returns the number of registered listeners.
func (b *Bus) ListenerCount() int {
	if b.closed.Load() {
		return 0
	}

	resp := make(chan int, 1)
	select {
	case b.countReqCh <- resp:
	case <-b.stopped:
		return 0
	}

	select {
	case n := <-resp:
		return n
	case <-b.stopped:
		return 0
	}
}

// Publish sends an event to all interested listeners.
func (b *Bus) Publish(ev Event) {
	if b.closed.Load() {
		return
	}
	select {
	case b.publishCh <- ev:
	case <-b.stopped:
	}
}

// Notify publishes a Notice event.
func (b *Bus) Notify(level Level, msg string) {
	b.Publish(Event{Type: Notice, Data: NoticeData{Level: level, Message: msg}})
}
