package waiter

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeClock advances by the requested duration on every After call.
type fakeClock struct {
	now   time.Time
	waits []time.Duration
}

func (c *fakeClock) Now() time.Time { return c.now }

func (c *fakeClock) After(d time.Duration) <-chan time.Time {
	c.waits = append(c.waits, d)
	c.now = c.now.Add(d)
	ch := make(chan time.Time, 1)
	ch <- c.now
	return ch
}

func newTestWaiter(clock *fakeClock, out *bytes.Buffer) *Waiter {
	w := New(out)
	w.Now = clock.Now
	w.After = clock.After
	return w
}

func TestUntilStart_AlreadyStarted(t *testing.T) {
	clock := &fakeClock{now: time.Date(2026, 4, 1, 23, 0, 0, 0, time.UTC)}
	var out bytes.Buffer

	err := newTestWaiter(clock, &out).UntilStart(context.Background(), clock.now.Add(-time.Minute))
	require.NoError(t, err)
	assert.Empty(t, clock.waits)
	assert.Empty(t, out.String())
}

func TestUntilStart_PollsAndPrintsDots(t *testing.T) {
	clock := &fakeClock{now: time.Date(2026, 4, 1, 23, 0, 0, 0, time.UTC)}
	var out bytes.Buffer
	start := clock.now.Add(125 * time.Second)

	err := newTestWaiter(clock, &out).UntilStart(context.Background(), start)
	require.NoError(t, err)

	// 13 polls of 10s reach the start; a dot after the 6th and 12th
	assert.Len(t, clock.waits, 13)
	for _, d := range clock.waits {
		assert.Equal(t, DefaultInterval, d)
	}
	assert.Equal(t, 2, strings.Count(out.String(), "."))
	assert.True(t, strings.HasPrefix(out.String(), "Waiting for game to start"))
}

func TestUntilStart_Cancelled(t *testing.T) {
	var out bytes.Buffer
	w := New(&out)
	w.Interval = time.Hour

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := w.UntilStart(ctx, time.Now().Add(24*time.Hour))
	assert.ErrorIs(t, err, context.Canceled)
}
