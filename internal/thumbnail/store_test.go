package thumbnail

import (
	"image"
	"sync"
	"testing"
	"time"

	"thumbcache/internal/mediatypes"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

// bitmap returns an image whose cost is w*h*4 bytes.
func bitmap(w, h int) image.Image {
	return image.NewNRGBA(image.Rect(0, 0, w, h))
}

func TestStoreLookupRecordsAccess(t *testing.T) {
	clock := newFakeClock()
	s := NewStore(1<<20, clock.Now)
	img := bitmap(4, 4)
	s.Insert("k", img, mediatypes.ImageThumbnail)

	for i := 1; i <= 3; i++ {
		clock.Advance(time.Second)
		got, ok := s.Lookup("k")
		if !ok {
			t.Fatal("Lookup() missed")
		}
		if got != img {
			t.Error("Lookup() returned a different image")
		}
		info, _ := s.Peek("k")
		if info.AccessCount != int64(i) {
			t.Errorf("AccessCount = %d, want %d", info.AccessCount, i)
		}
		if !info.LastAccess.Equal(clock.Now()) {
			t.Errorf("LastAccess = %v, want %v", info.LastAccess, clock.Now())
		}
	}

	if _, ok := s.Lookup("missing"); ok {
		t.Error("Lookup() hit for missing key")
	}
}

func TestStoreCostEviction(t *testing.T) {
	tests := []struct {
		name     string
		budget   int64
		inserts  []Key
		touch    []Key
		wantKeys []Key
	}{
		{
			name:     "fits",
			budget:   3 * 64,
			inserts:  []Key{"a", "b", "c"},
			wantKeys: []Key{"c", "b", "a"},
		},
		{
			name:     "oldest insert evicted",
			budget:   2 * 64,
			inserts:  []Key{"a", "b", "c"},
			wantKeys: []Key{"c", "b"},
		},
		{
			name:     "recently used survives",
			budget:   2 * 64,
			inserts:  []Key{"a", "b"},
			touch:    []Key{"a"},
			wantKeys: []Key{"c", "a"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewStore(tt.budget, nil)
			for _, k := range tt.inserts {
				s.Insert(k, bitmap(4, 4), mediatypes.Avatar)
			}
			for _, k := range tt.touch {
				s.Lookup(k)
			}
			if len(tt.touch) > 0 {
				s.Insert("c", bitmap(4, 4), mediatypes.Avatar)
			}

			got := s.Keys()
			if len(got) != len(tt.wantKeys) {
				t.Fatalf("Keys() = %v, want %v", got, tt.wantKeys)
			}
			for i := range got {
				if got[i] != tt.wantKeys[i] {
					t.Fatalf("Keys() = %v, want %v", got, tt.wantKeys)
				}
			}
			if s.Total() > s.Budget() {
				t.Errorf("Total() = %d exceeds budget %d", s.Total(), s.Budget())
			}
		})
	}
}

func TestStoreBudgetAlwaysHolds(t *testing.T) {
	s := NewStore(1000, nil)
	sizes := [][2]int{{5, 5}, {10, 10}, {1, 1}, {20, 20}, {3, 7}, {0, 0}, {8, 8}}
	for i, sz := range sizes {
		s.Insert(Key(rune('a'+i)), bitmap(sz[0], sz[1]), mediatypes.ImageThumbnail)
		if s.Total() > s.Budget() {
			t.Fatalf("after insert %d: Total() = %d > budget %d", i, s.Total(), s.Budget())
		}
	}
}

func TestStoreOversizedItem(t *testing.T) {
	s := NewStore(100, nil)
	s.Insert("small", bitmap(2, 2), mediatypes.Avatar)

	evicted := s.Insert("huge", bitmap(10, 10), mediatypes.Avatar)
	if evicted != 2 {
		t.Errorf("Insert() evicted %d, want 2", evicted)
	}
	if s.Len() != 0 || s.Total() != 0 {
		t.Errorf("Len() = %d, Total() = %d, want empty store", s.Len(), s.Total())
	}
}

func TestStoreReplace(t *testing.T) {
	s := NewStore(1<<20, nil)
	s.Insert("k", bitmap(4, 4), mediatypes.Avatar)
	second := bitmap(2, 2)
	s.Insert("k", second, mediatypes.Avatar)

	if s.Len() != 1 {
		t.Errorf("Len() = %d, want 1", s.Len())
	}
	if s.Total() != 16 {
		t.Errorf("Total() = %d, want 16", s.Total())
	}
	if got, _ := s.Lookup("k"); got != second {
		t.Error("Lookup() did not return the replacement")
	}
}

func TestStoreSetBudget(t *testing.T) {
	s := NewStore(1<<20, nil)
	for _, k := range []Key{"a", "b", "c", "d"} {
		s.Insert(k, bitmap(4, 4), mediatypes.Avatar)
	}

	if evicted := s.SetBudget(128); evicted != 2 {
		t.Errorf("SetBudget() evicted %d, want 2", evicted)
	}
	if _, ok := s.Peek("a"); ok {
		t.Error("oldest entry survived a budget cut")
	}
	if _, ok := s.Peek("d"); !ok {
		t.Error("newest entry evicted by a budget cut")
	}
	if evicted := s.SetBudget(1 << 20); evicted != 0 {
		t.Errorf("growing the budget evicted %d", evicted)
	}
}

func TestStoreSweep(t *testing.T) {
	clock := newFakeClock()
	s := NewStore(1<<30, clock.Now)

	s.Insert("old", bitmap(1, 1), mediatypes.Avatar)
	clock.Advance(20 * time.Minute)
	s.Insert("fresh", bitmap(1, 1), mediatypes.Avatar)
	clock.Advance(15 * time.Minute)

	if n := s.Sweep(clock.Now(), 30*time.Minute); n != 1 {
		t.Errorf("Sweep() = %d, want 1", n)
	}
	if _, ok := s.Peek("old"); ok {
		t.Error("aged entry survived the sweep")
	}
	if _, ok := s.Peek("fresh"); !ok {
		t.Error("fresh entry removed by the sweep")
	}
}

func TestStoreSweepCountsAccess(t *testing.T) {
	clock := newFakeClock()
	s := NewStore(1<<30, clock.Now)
	s.Insert("k", bitmap(1, 1), mediatypes.Avatar)

	clock.Advance(25 * time.Minute)
	s.Lookup("k")
	clock.Advance(25 * time.Minute)

	if n := s.Sweep(clock.Now(), 30*time.Minute); n != 0 {
		t.Errorf("Sweep() = %d, want 0 for a recently hit entry", n)
	}
}

func TestStoreRemoveAndClear(t *testing.T) {
	s := NewStore(1<<20, nil)
	s.Insert("a", bitmap(1, 1), mediatypes.Avatar)
	s.Insert("b", bitmap(1, 1), mediatypes.Avatar)

	if !s.Remove("a") {
		t.Error("Remove() = false for present key")
	}
	if s.Remove("a") {
		t.Error("Remove() = true for absent key")
	}
	if n := s.Clear(); n != 1 {
		t.Errorf("Clear() = %d, want 1", n)
	}
	if s.Len() != 0 || s.Total() != 0 {
		t.Errorf("store not empty after Clear(): %d entries, %d bytes", s.Len(), s.Total())
	}
}
