package waiter

import (
	"context"
	"fmt"
	"io"
	"time"
)

const (
	// DefaultInterval is how often the start time is checked.
	DefaultInterval = 10 * time.Second

	// dotEvery polls print one progress dot.
	dotEvery = 6
)

// Waiter blocks until a start time.
type Waiter struct {
	Interval time.Duration
	Out      io.Writer
	Now      func() time.Time
	// After is the timer used between polls.
	After func(time.Duration) <-chan time.Time
}

// New creates a Waiter printing progress to out.
func New(out io.Writer) *Waiter {
	return &Waiter{
		Interval: DefaultInterval,
		Out:      out,
		Now:      time.Now,
		After:    time.After,
	}
}

// UntilStart sleeps until start, printing a dot every sixth poll. It returns
// ctx.Err() when ctx is cancelled first.
func (w *Waiter) UntilStart(ctx context.Context, start time.Time) error {
	if !w.Now().Before(start) {
		return nil
	}
	fmt.Fprintf(w.Out, "Waiting for game to start at %s", start.Local().Format("15:04"))
	defer fmt.Fprintln(w.Out)

	polls := 0
	for w.Now().Before(start) {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-w.After(w.Interval):
		}
		polls++
		if polls%dotEvery == 0 {
			fmt.Fprint(w.Out, ".")
		}
	}
	return nil
}

// UntilStart waits with the default interval.
func UntilStart(ctx context.Context, start time.Time, out io.Writer) error {
	return New(out).UntilStart(ctx, start)
}
