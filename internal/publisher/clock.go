package publisher

import (
	"context"
	"time"
)

type systemClock struct{}

// Now returns current UTC time.
func (c systemClock) Now() time.Time {
	return time.Now().UTC()
}

// Sleep waits for d or until ctx is done.
func (c systemClock) Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
