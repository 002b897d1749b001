package capture

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func attached(t *testing.T) (*Bridge, *fakeHook, Token) {
	t.Helper()
	hook := newFakeHook()
	b := New(hook)
	tok, err := b.Attach(1)
	require.NoError(t, err)
	t.Cleanup(func() { _ = b.Detach(tok) })
	return b, hook, tok
}

func TestSettle_CountReachesWatermark(t *testing.T) {
	b, hook, tok := attached(t)
	cb := hook.callbacks(1)

	go func() {
		for i := 0; i < 4; i++ {
			time.Sleep(5 * time.Millisecond)
			cb.CaretVisible(i, 0)
		}
	}()

	res, err := b.Settle(context.Background(), tok, Quiescence{
		Mode:      ModeCount,
		Watermark: 4,
		Idle:      20 * time.Millisecond,
		Timeout:   2 * time.Second,
	})
	require.NoError(t, err)
	assert.True(t, res.Reached)
	assert.Equal(t, 4, res.Delivered)
}

func TestSettle_CountTimeoutIsNotError(t *testing.T) {
	b, hook, tok := attached(t)
	hook.callbacks(1).Layout()

	res, err := b.Settle(context.Background(), tok, Quiescence{
		Mode:      ModeCount,
		Watermark: 5,
		Timeout:   50 * time.Millisecond,
	})
	require.NoError(t, err)
	assert.False(t, res.Reached)
	assert.Equal(t, 1, res.Delivered)
	assert.GreaterOrEqual(t, res.Waited, 50*time.Millisecond)
}

func TestSettle_IdleWithNoTraffic(t *testing.T) {
	b, _, tok := attached(t)

	res, err := b.Settle(context.Background(), tok, Quiescence{
		Mode:    ModeIdle,
		Idle:    30 * time.Millisecond,
		Timeout: time.Second,
	})
	require.NoError(t, err)
	assert.True(t, res.Reached)
	assert.GreaterOrEqual(t, res.Waited, 30*time.Millisecond)
}

func TestSettle_Fixed(t *testing.T) {
	b, _, tok := attached(t)

	res, err := b.Settle(context.Background(), tok, Quiescence{Mode: ModeFixed, Fixed: 20 * time.Millisecond})
	require.NoError(t, err)
	assert.True(t, res.Reached)
	assert.GreaterOrEqual(t, res.Waited, 20*time.Millisecond)
}

func TestSettle_ContextCancelled(t *testing.T) {
	b, _, tok := attached(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := b.Settle(ctx, tok, Quiescence{Mode: ModeCount, Watermark: 1})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestSettle_UnknownToken(t *testing.T) {
	b := New(newFakeHook())
	_, err := b.Settle(context.Background(), "nope", DefaultQuiescence)
	assert.ErrorIs(t, err, ErrNotAttached)
}

func TestParseMode(t *testing.T) {
	m, err := ParseMode("")
	require.NoError(t, err)
	assert.Equal(t, ModeCount, m)

	m, err = ParseMode("IDLE")
	require.NoError(t, err)
	assert.Equal(t, ModeIdle, m)

	_, err = ParseMode("eventually")
	assert.Error(t, err)
}

func TestWithPollInterval_Floor(t *testing.T) {
	b := New(newFakeHook(), WithPollInterval(time.Millisecond))
	assert.Equal(t, DefaultPollInterval, b.poll)
}
