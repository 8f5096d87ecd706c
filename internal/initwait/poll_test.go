package initwait

import (
	"context"
	"testing"
	"time"
)

func TestPollSucceedsOnceConditionTrue(t *testing.T) {
	calls := 0
	err := Poll(context.Background(), time.Second, 10*time.Millisecond, func(ctx context.Context) (bool, error) {
		calls++
		return calls >= 3, nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if calls < 3 {
		t.Fatalf("want at least 3 calls, got %d", calls)
	}
}

func TestPollTimesOut(t *testing.T) {
	err := Poll(context.Background(), 30*time.Millisecond, 10*time.Millisecond, func(ctx context.Context) (bool, error) {
		return false, nil
	})
	if err == nil {
		t.Fatalf("want timeout error")
	}
}
