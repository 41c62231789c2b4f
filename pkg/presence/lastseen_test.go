package presence

import (
	"context"
	"testing"
	"time"
)

func TestMemoryLastSeen(t *testing.T) {
	s := NewMemoryLastSeen()
	ctx := context.Background()
	at := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)

	if err := s.Touch(ctx, "u1", at); err != nil {
		t.Fatalf("Touch failed: %v", err)
	}
	got, err := s.Get(ctx, []string{"u1", "u2"})
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if len(got) != 1 || !got["u1"].Equal(at) {
		t.Errorf("unexpected last seen map: %v", got)
	}
}

func TestLastSeenKey(t *testing.T) {
	if got := lastSeenKey("abc"); got != "lastseen:abc" {
		t.Errorf("unexpected key %s", got)
	}
}
