package thumbnail

import (
	"image"
	"sync"
	"time"

	"thumbcache/internal/metrics"
)

// Outcome is the result of asking the coordinator for a key.
type Outcome int

const (
	// Hit means the bitmap was already cached.
	Hit Outcome = iota
	// MissNew means this call started a generation task.
	MissNew
	// MissPending means a task for the key was already running.
	MissPending
	// MissRejected means no task could be queued because the pipeline is shut down.
	MissRejected
)

func (o Outcome) String() string {
	switch o {
	case Hit:
		return "hit"
	case MissNew:
		return "miss_new"
	case MissPending:
		return "miss_pending"
	case MissRejected:
		return "rejected"
	default:
		return "unknown"
	}
}

// task is one unit of generation work. token ties the task to the in-flight
// marker it created.
type task struct {
	req   Request
	key   Key
	token uint64
}

// Coordinator owns the store and the in-flight set and guarantees at most
// one outstanding task per key. Both structures share mu; critical sections
// never do IO.
type Coordinator struct {
	mu       sync.Mutex
	store    *Store
	inflight map[Key]uint64
	token    uint64

	submit  func(func()) error
	run     func(Request) Result
	publish func(Event)
}

func newCoordinator(store *Store, submit func(func()) error, run func(Request) Result, publish func(Event)) *Coordinator {
	return &Coordinator{
		store:    store,
		inflight: make(map[Key]uint64),
		submit:   submit,
		run:      run,
		publish:  publish,
	}
}

// getOrStart returns the cached bitmap for key or makes sure a task is
// generating it.
func (c *Coordinator) getOrStart(key Key, req Request) (image.Image, Outcome) {
	c.mu.Lock()
	if img, ok := c.store.Lookup(key); ok {
		c.mu.Unlock()
		return img, Hit
	}
	if _, ok := c.inflight[key]; ok {
		c.mu.Unlock()
		return nil, MissPending
	}
	c.token++
	t := task{req: req, key: key, token: c.token}
	c.inflight[key] = t.token
	metrics.InFlight.Set(float64(len(c.inflight)))
	c.mu.Unlock()

	if err := c.submit(func() { c.complete(t, c.run(t.req)) }); err != nil {
		c.mu.Lock()
		c.clearMarker(t)
		c.mu.Unlock()
		return nil, MissRejected
	}
	return nil, MissNew
}

// clearMarker removes the in-flight marker for t unless a newer task has
// replaced it. Must be called with mu held.
func (c *Coordinator) clearMarker(t task) {
	if token, ok := c.inflight[t.key]; ok && token == t.token {
		delete(c.inflight, t.key)
		metrics.InFlight.Set(float64(len(c.inflight)))
	}
}

// complete records the outcome of t and publishes it. Results are cached
// even when the task was cancelled in the meantime.
func (c *Coordinator) complete(t task, res Result) {
	c.mu.Lock()
	c.clearMarker(t)
	if res.Success {
		c.store.Insert(t.key, res.Bitmap, t.req.Variant)
	}
	c.mu.Unlock()

	ev := Event{
		Kind:         Loaded,
		SourcePath:   t.req.SourcePath,
		Variant:      t.req.Variant,
		Key:          t.key,
		Size:         t.req.Size,
		CornerRadius: t.req.CornerRadius,
		Bitmap:       res.Bitmap,
		Expired:      res.Expired,
	}
	if !res.Success {
		ev.Kind = Failed
		ev.Bitmap = nil
		ev.Err = res.Err
	}
	c.publish(ev)
}

// cancel drops the in-flight marker for key. A running task is left alone.
func (c *Coordinator) cancel(key Key) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.inflight[key]; !ok {
		return false
	}
	delete(c.inflight, key)
	metrics.InFlight.Set(float64(len(c.inflight)))
	metrics.Cancellations.Inc()
	return true
}

func (c *Coordinator) isInFlight(key Key) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.inflight[key]
	return ok
}

func (c *Coordinator) clear() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.store.Clear()
}

func (c *Coordinator) remove(key Key) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.store.Remove(key)
}

func (c *Coordinator) setBudget(budget int64) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.store.SetBudget(budget)
}

func (c *Coordinator) sweep(now time.Time, maxAge time.Duration) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.store.Sweep(now, maxAge)
}

func (c *Coordinator) entry(key Key) (EntryInfo, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.store.Peek(key)
}

type storeStats struct {
	entries  int
	cost     int64
	budget   int64
	inflight int
}

func (c *Coordinator) stats() storeStats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return storeStats{
		entries:  c.store.Len(),
		cost:     c.store.Total(),
		budget:   c.store.Budget(),
		inflight: len(c.inflight),
	}
}
