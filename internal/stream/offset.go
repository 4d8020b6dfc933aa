package stream

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strconv"
	"strings"
	"time"
)

// MediaStateOn marks a feed that is being broadcast live.
const MediaStateOn = "MEDIA_ON"

// ErrInvalidInning is an inning identifier that is not [t|b]N or [t|b]NN.
var ErrInvalidInning = errors.New("invalid inning identifier")

// Inning identifies a half inning.
type Inning struct {
	Number int
	Top    bool
}

func (i Inning) Half() string {
	if i.Top {
		return "top"
	}
	return "bottom"
}

func (i Inning) String() string {
	return fmt.Sprintf("%s %d", i.Half(), i.Number)
}

// ParseInning reads identifiers like "5", "t5", "b5" or "t12". The half
// defaults to top.
func ParseInning(ident string) (Inning, error) {
	s := strings.ToLower(strings.TrimSpace(ident))
	inning := Inning{Top: true}
	switch {
	case strings.HasPrefix(s, "b"):
		inning.Top = false
		s = s[1:]
	case strings.HasPrefix(s, "t"):
		s = s[1:]
	}

	if len(s) < 1 || len(s) > 2 {
		return Inning{}, fmt.Errorf("%w: %q", ErrInvalidInning, ident)
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return Inning{}, fmt.Errorf("%w: %q", ErrInvalidInning, ident)
		}
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < 1 {
		return Inning{}, fmt.Errorf("%w: %q", ErrInvalidInning, ident)
	}
	inning.Number = n
	return inning, nil
}

// MilestoneLookup finds when a half inning started in a broadcast. found is
// false when the broadcast has no such milestone.
type MilestoneLookup interface {
	InningStart(ctx context.Context, gamePk, mediaID string, inning int, top bool) (broadcastStart, inningStart time.Time, found bool, err error)
}

// OffsetCalculator turns an inning identifier into a streamlink start
// offset.
type OffsetCalculator struct {
	lookup MilestoneLookup
	bias   time.Duration
	now    func() time.Time
	logger *log.Logger
}

// NewOffsetCalculator creates a calculator. bias compensates for encoder
// delay and comes from stream_start_offset_secs.
func NewOffsetCalculator(lookup MilestoneLookup, bias time.Duration, logger *log.Logger) *OffsetCalculator {
	if logger == nil {
		logger = log.New(log.Writer(), "[stream] ", log.LstdFlags)
	}
	return &OffsetCalculator{lookup: lookup, bias: bias, now: time.Now, logger: logger}
}

// Calculate returns the HH:MM:SS offset of the inning in the stream. For a
// live feed the offset counts back from the live edge; for an archive it
// counts from the start of the broadcast. ok is false when the inning could
// not be located, in which case the stream plays from its default start.
func (c *OffsetCalculator) Calculate(ctx context.Context, ident, mediaState, gamePk, mediaID string) (offset string, ok bool, err error) {
	inning, err := ParseInning(ident)
	if err != nil {
		return "", false, err
	}

	broadcastStart, inningStart, found, err := c.lookup.InningStart(ctx, gamePk, mediaID, inning.Number, inning.Top)
	if err != nil {
		return "", false, fmt.Errorf("inning lookup: %w", err)
	}
	if !found || inningStart.IsZero() {
		c.logger.Printf("Inning '%s' not found in airing data", ident)
		return "", false, nil
	}

	var d time.Duration
	if mediaState == MediaStateOn {
		c.logger.Printf("Live game: inning start: %s", inningStart.Format(time.RFC3339))
		d = c.now().UTC().Sub(inningStart)
		if c.bias != 0 {
			c.logger.Printf("Applying stream start offset: %v", c.bias)
			d += c.bias
		}
	} else {
		if broadcastStart.IsZero() {
			c.logger.Printf("No broadcast start for game %s media %s", gamePk, mediaID)
			return "", false, nil
		}
		c.logger.Printf("Archive game: broadcast start: %s, inning start: %s",
			broadcastStart.Format(time.RFC3339), inningStart.Format(time.RFC3339))
		d = inningStart.Sub(broadcastStart)
		if c.bias != 0 {
			c.logger.Printf("Applying stream start offset: %v", c.bias)
			d -= c.bias
		}
	}

	if d < 0 {
		c.logger.Printf("Computed negative inning offset %v, clamping to zero", d)
		d = 0
	}

	offset = FormatOffset(d)
	c.logger.Printf("Calculated %s inning offset: %s", inning, offset)
	return offset, true, nil
}

// FormatOffset renders d as HH:MM:SS, truncated to whole seconds. Negative
// durations render as 00:00:00.
func FormatOffset(d time.Duration) string {
	secs := int64(d / time.Second)
	if secs < 0 {
		secs = 0
	}
	return fmt.Sprintf("%02d:%02d:%02d", secs/3600, (secs%3600)/60, secs%60)
}
