package snowflake

import (
	"sync"
	"testing"
	"time"
)

func TestNewNodeRange(t *testing.T) {
	if _, err := NewNode(-1); err == nil {
		t.Error("expected error for negative node")
	}
	if _, err := NewNode(nodeMax + 1); err == nil {
		t.Error("expected error for node above range")
	}
	if _, err := NewNode(nodeMax); err != nil {
		t.Errorf("max node rejected: %v", err)
	}
}

func TestGenerateIsMonotonicWithinTick(t *testing.T) {
	n, _ := NewNode(3)
	fixed := time.Now().UnixMilli()
	n.now = func() int64 { return fixed }

	prev := n.Generate()
	for i := 0; i < 100; i++ {
		id := n.Generate()
		if id <= prev {
			t.Fatalf("id %d not greater than %d", id, prev)
		}
		prev = id
	}
}

func TestGenerateSurvivesClockGoingBackwards(t *testing.T) {
	n, _ := NewNode(1)
	clock := time.Now().UnixMilli()
	n.now = func() int64 { return clock }

	first := n.Generate()
	clock -= 50
	second := n.Generate()
	if second <= first {
		t.Errorf("expected %d > %d after clock regression", second, first)
	}
}

func TestGenerateConcurrentUnique(t *testing.T) {
	n, _ := NewNode(2)
	var mu sync.Mutex
	seen := make(map[int64]struct{})
	var wg sync.WaitGroup
	for g := 0; g < 8; g++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 500; i++ {
				id := n.Generate()
				mu.Lock()
				seen[id] = struct{}{}
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	if len(seen) != 8*500 {
		t.Errorf("expected %d unique ids, got %d", 8*500, len(seen))
	}
}

func TestTimeRoundTrip(t *testing.T) {
	n, _ := NewNode(5)
	before := time.Now().Add(-time.Millisecond)
	id := n.Generate()
	at := Time(id)
	if at.Before(before.Truncate(time.Millisecond)) || at.After(time.Now().Add(time.Millisecond)) {
		t.Errorf("decoded time %v outside expected window", at)
	}
}
