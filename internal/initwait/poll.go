// Package initwait implements the generic poll helper used by the
// in-container init to await a network interface's appearance.
package initwait

import (
	"context"
	"fmt"
	"time"
)

// Poll calls f repeatedly every interval until it returns true, budget
// elapses, or ctx is cancelled. It returns an error if budget elapses
// without f ever returning true.
func Poll(ctx context.Context, budget, interval time.Duration, f func(context.Context) (bool, error)) error {
	deadline := time.Now().Add(budget)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		ok, err := f(ctx)
		if err != nil {
			return fmt.Errorf("initwait: poll: %w", err)
		}
		if ok {
			return nil
		}
		if time.Now().After(deadline) {
			return fmt.Errorf("initwait: timed out after %s", budget)
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}
