package thumbnail

import (
	"image"
	"sync"

	"thumbcache/internal/mediatypes"
	"thumbcache/internal/metrics"
)

// EventKind distinguishes completion notifications.
type EventKind int

const (
	// Loaded is raised when a bitmap was generated and cached.
	Loaded EventKind = iota
	// Failed is raised when generation produced nothing.
	Failed
)

func (k EventKind) String() string {
	if k == Failed {
		return "failed"
	}
	return "loaded"
}

// Event reports the completion of one generation task. Bitmap is nil for
// Failed events.
type Event struct {
	Kind         EventKind
	SourcePath   string
	Variant      mediatypes.Variant
	Key          Key
	Size         image.Point
	CornerRadius int
	Bitmap       image.Image
	Expired      bool
	Err          error
}

const defaultSubscriberBuffer = 64

type subscriber struct {
	ch chan Event
}

// bus fans events out to subscribers without ever blocking the publisher.
type bus struct {
	mu     sync.RWMutex
	subs   map[int]*subscriber
	nextID int
	closed bool
}

func newBus() *bus {
	return &bus{subs: make(map[int]*subscriber)}
}

func (b *bus) subscribe(buf int) (<-chan Event, func()) {
	if buf <= 0 {
		buf = defaultSubscriberBuffer
	}
	ch := make(chan Event, buf)

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		close(ch)
		return ch, func() {}
	}
	id := b.nextID
	b.nextID++
	b.subs[id] = &subscriber{ch: ch}
	metrics.Subscribers.Inc()

	var once sync.Once
	return ch, func() {
		once.Do(func() { b.remove(id) })
	}
}

func (b *bus) remove(id int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	sub, ok := b.subs[id]
	if !ok {
		return
	}
	delete(b.subs, id)
	close(sub.ch)
	metrics.Subscribers.Dec()
}

// publish delivers ev to every subscriber with room in its buffer. Full
// subscribers miss the event.
func (b *bus) publish(ev Event) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.closed {
		return
	}
	metrics.EventsPublished.WithLabelValues(ev.Kind.String()).Inc()
	for _, sub := range b.subs {
		select {
		case sub.ch <- ev:
		default:
			metrics.EventsDropped.Inc()
		}
	}
}

func (b *bus) close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	b.closed = true
	for id, sub := range b.subs {
		close(sub.ch)
		delete(b.subs, id)
		metrics.Subscribers.Dec()
	}
}
