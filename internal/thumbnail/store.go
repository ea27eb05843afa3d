package thumbnail

import (
	"container/list"
	"image"
	"time"

	"thumbcache/internal/mediatypes"
	"thumbcache/internal/metrics"
	"thumbcache/internal/raster"
)

// EntryInfo is a read-only snapshot of a cache entry's bookkeeping.
type EntryInfo struct {
	Variant     mediatypes.Variant
	Cost        int64
	AccessCount int64
	LastAccess  time.Time
	Inserted    time.Time
}

type entry struct {
	key    Key
	bitmap image.Image
	info   EntryInfo
}

// Store is a cost-bounded LRU of completed bitmaps. The list front holds the
// most recently used entry; entries that were never hit keep insertion order.
//
// Store is not safe for concurrent use. The Coordinator serializes all access
// under the lock that also guards its in-flight set.
type Store struct {
	budget int64
	total  int64
	items  map[Key]*list.Element
	lru    *list.List
	now    func() time.Time
}

// NewStore creates a store that keeps total cost at or below budget.
func NewStore(budget int64, now func() time.Time) *Store {
	if now == nil {
		now = time.Now
	}
	return &Store{
		budget: budget,
		items:  make(map[Key]*list.Element),
		lru:    list.New(),
		now:    now,
	}
}

// Lookup returns the bitmap for key and records the access.
func (s *Store) Lookup(key Key) (image.Image, bool) {
	elem, ok := s.items[key]
	if !ok {
		return nil, false
	}
	e := elem.Value.(*entry)
	e.info.AccessCount++
	e.info.LastAccess = s.now()
	s.lru.MoveToFront(elem)
	return e.bitmap, true
}

// Peek returns the bookkeeping for key without recording an access.
func (s *Store) Peek(key Key) (EntryInfo, bool) {
	elem, ok := s.items[key]
	if !ok {
		return EntryInfo{}, false
	}
	return elem.Value.(*entry).info, true
}

// Insert stores bitmap under key, replacing any previous entry, then evicts
// least recently used entries until the total cost fits the budget. A bitmap
// whose own cost exceeds the budget is evicted as well, so the budget holds
// after every call. Returns the number of entries evicted.
func (s *Store) Insert(key Key, bitmap image.Image, variant mediatypes.Variant) int {
	if elem, ok := s.items[key]; ok {
		s.removeElement(elem)
	}

	now := s.now()
	e := &entry{
		key:    key,
		bitmap: bitmap,
		info: EntryInfo{
			Variant:    variant,
			Cost:       raster.ByteSize(bitmap),
			LastAccess: now,
			Inserted:   now,
		},
	}
	s.items[key] = s.lru.PushFront(e)
	s.total += e.info.Cost

	return s.evictToBudget()
}

func (s *Store) evictToBudget() int {
	evicted := 0
	for s.total > s.budget {
		oldest := s.lru.Back()
		if oldest == nil {
			break
		}
		s.removeElement(oldest)
		evicted++
	}
	if evicted > 0 {
		metrics.Evictions.WithLabelValues("cost").Add(float64(evicted))
	}
	return evicted
}

func (s *Store) removeElement(elem *list.Element) {
	e := s.lru.Remove(elem).(*entry)
	delete(s.items, e.key)
	s.total -= e.info.Cost
}

// Remove deletes key. It reports whether an entry was present.
func (s *Store) Remove(key Key) bool {
	elem, ok := s.items[key]
	if !ok {
		return false
	}
	s.removeElement(elem)
	metrics.Evictions.WithLabelValues("remove").Inc()
	return true
}

// Clear drops every entry and returns how many were removed.
func (s *Store) Clear() int {
	n := len(s.items)
	s.items = make(map[Key]*list.Element)
	s.lru.Init()
	s.total = 0
	if n > 0 {
		metrics.Evictions.WithLabelValues("clear").Add(float64(n))
	}
	return n
}

// SetBudget changes the budget and evicts immediately if it shrank below
// the current total. Returns the number of entries evicted.
func (s *Store) SetBudget(budget int64) int {
	s.budget = budget
	return s.evictToBudget()
}

// Sweep evicts entries not accessed within maxAge of now, regardless of
// cost pressure. Returns the number of entries evicted.
func (s *Store) Sweep(now time.Time, maxAge time.Duration) int {
	evicted := 0
	// Walk from the back: older accesses sit behind newer ones.
	for elem := s.lru.Back(); elem != nil; {
		prev := elem.Prev()
		e := elem.Value.(*entry)
		if now.Sub(e.info.LastAccess) > maxAge {
			s.removeElement(elem)
			evicted++
		}
		elem = prev
	}
	if evicted > 0 {
		metrics.Evictions.WithLabelValues("age").Add(float64(evicted))
	}
	return evicted
}

// Len returns the number of entries.
func (s *Store) Len() int {
	return len(s.items)
}

// Total returns the summed cost of all entries.
func (s *Store) Total() int64 {
	return s.total
}

// Budget returns the configured budget.
func (s *Store) Budget() int64 {
	return s.budget
}

// Keys returns the keys from most to least recently used.
func (s *Store) Keys() []Key {
	keys := make([]Key, 0, len(s.items))
	for elem := s.lru.Front(); elem != nil; elem = elem.Next() {
		keys = append(keys, elem.Value.(*entry).key)
	}
	return keys
}
