package capture

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// Mode selects how Settle decides the stream is complete.
type Mode string

const (
	// ModeCount waits for a delivered-total watermark, then an idle window.
	ModeCount Mode = "count"

	// ModeIdle waits until nothing has arrived for the idle window.
	ModeIdle Mode = "idle"

	// ModeFixed sleeps for a fixed duration.
	ModeFixed Mode = "fixed"
)

// ParseMode resolves a mode name. The empty string is ModeCount.
func ParseMode(name string) (Mode, error) {
	switch m := Mode(strings.ToLower(name)); m {
	case "":
		return ModeCount, nil
	case ModeCount, ModeIdle, ModeFixed:
		return m, nil
	default:
		return "", fmt.Errorf("unknown settle mode %q", name)
	}
}

// Quiescence parameterizes one Settle call.
type Quiescence struct {
	Mode Mode

	// Fixed is the sleep for ModeFixed.
	Fixed time.Duration

	// Idle is the silence required after the last arrival.
	// Zero skips the idle window in ModeCount.
	Idle time.Duration

	// Watermark is the delivered total to wait for in ModeCount. It counts
	// every record the queue ever accepted, not just the ones still queued.
	Watermark int

	// Timeout bounds ModeCount and ModeIdle. Zero means wait for ctx only.
	Timeout time.Duration
}

// DefaultQuiescence is used when a scenario does not configure settling.
var DefaultQuiescence = Quiescence{
	Mode:    ModeCount,
	Fixed:   500 * time.Millisecond,
	Idle:    100 * time.Millisecond,
	Timeout: 2 * time.Second,
}

// SettleResult describes how a Settle call ended.
type SettleResult struct {
	// Reached is false when the timeout expired first.
	Reached bool

	// Delivered is the queue's delivered total when Settle returned.
	Delivered int

	// Waited is how long Settle blocked.
	Waited time.Duration
}

// Settle blocks until the session's stream looks complete per q.
//
// Only context cancellation and an unknown token are errors. A timeout
// returns Reached=false so the comparator can report what actually arrived.
func (b *Bridge) Settle(ctx context.Context, tok Token, q Quiescence) (SettleResult, error) {
	queue, err := b.Queue(tok)
	if err != nil {
		return SettleResult{}, err
	}

	start := b.now()
	result := func(reached bool) SettleResult {
		return SettleResult{Reached: reached, Delivered: queue.Total(), Waited: b.now().Sub(start)}
	}

	if q.Mode == ModeFixed {
		timer := time.NewTimer(q.Fixed)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return result(false), ctx.Err()
		case <-timer.C:
			return result(true), nil
		}
	}

	done := func() bool {
		now := b.now()
		if q.Mode != ModeIdle && queue.Total() < q.Watermark {
			return false
		}
		if q.Idle <= 0 {
			return true
		}
		quietSince := start
		if last := queue.LastArrival(); last.After(quietSince) {
			quietSince = last
		}
		return now.Sub(quietSince) >= q.Idle
	}

	var deadline <-chan time.Time
	if q.Timeout > 0 {
		timer := time.NewTimer(q.Timeout)
		defer timer.Stop()
		deadline = timer.C
	}

	ticker := time.NewTicker(b.poll)
	defer ticker.Stop()

	for {
		if done() {
			res := result(true)
			b.logger.Debug("settled", "token", string(tok), "mode", string(q.Mode),
				"delivered", res.Delivered, "waited", res.Waited)
			return res, nil
		}

		select {
		case <-ctx.Done():
			return result(false), ctx.Err()
		case <-deadline:
			res := result(false)
			b.logger.Warn("settle timed out", "token", string(tok), "mode", string(q.Mode),
				"delivered", res.Delivered, "watermark", q.Watermark, "waited", res.Waited)
			return res, nil
		case <-ticker.C:
		}
	}
}
