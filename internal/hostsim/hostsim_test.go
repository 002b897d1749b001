package hostsim

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/a11yoracle/internal/capture"
	"github.com/roach88/a11yoracle/internal/console"
	"github.com/roach88/a11yoracle/internal/host"
	"github.com/roach88/a11yoracle/internal/notify"
	"github.com/roach88/a11yoracle/internal/predict"
)

// attach launches a shell, binds a bridge to it, and discards the
// install-time notifications.
func attach(t *testing.T, h *Host) (host.Target, *notify.Queue) {
	t.Helper()
	ctx := context.Background()

	target, err := h.Launch(ctx, "cmd.exe")
	require.NoError(t, err)

	b := capture.New(h)
	tok, err := b.Attach(target.PID)
	require.NoError(t, err)
	t.Cleanup(func() { _ = b.Detach(tok) })

	q, err := b.Queue(tok)
	require.NoError(t, err)
	waitTotal(t, q, 1)
	q.Drain()
	return target, q
}

func waitTotal(t *testing.T, q *notify.Queue, n int) {
	t.Helper()
	require.Eventually(t, func() bool { return q.Total() >= n }, 2*time.Second, 5*time.Millisecond,
		"wanted %d notifications, have %d", n, q.Total())
}

func drainAfter(t *testing.T, q *notify.Queue, n int) []notify.Record {
	t.Helper()
	base := q.Total() - q.Len()
	waitTotal(t, q, base+n)
	return q.Drain()
}

func assertRecords(t *testing.T, want, got []notify.Record) {
	t.Helper()
	require.Len(t, got, len(want), "got %v", got)
	for i := range want {
		assert.True(t, want[i].Equal(got[i]), "record %d: want %v, got %v", i, want[i], got[i])
	}
}

func TestHost_LaunchAndSnapshot(t *testing.T) {
	h := New()
	defer h.Close()

	target, err := h.Launch(context.Background(), "cmd.exe")
	require.NoError(t, err)

	s, err := h.Snapshot(context.Background(), target.Console)
	require.NoError(t, err)
	assert.Equal(t, console.Coord{X: h.PromptColumn(), Y: 3}, s.Cursor)
	assert.Equal(t, 0x07, s.Attributes)
	assert.Equal(t, console.Coord{X: 120, Y: 9001}, s.BufferSize)
}

func TestHost_SnapshotInvalidHandle(t *testing.T) {
	h := New()
	defer h.Close()

	_, err := h.Snapshot(context.Background(), 0xdead)
	assert.ErrorIs(t, err, console.ErrInvalidHandle)

	target, err := h.Launch(context.Background(), "cmd.exe")
	require.NoError(t, err)
	require.NoError(t, h.Terminate(context.Background(), target))
	require.NoError(t, h.Terminate(context.Background(), target), "terminate is idempotent")

	_, err = h.Snapshot(context.Background(), target.Console)
	assert.True(t, console.IsQueryError(err))
}

func TestHost_InstallRefusesUnknownProcess(t *testing.T) {
	h := New()
	defer h.Close()

	b := capture.New(h)
	_, err := b.Attach(424242)
	assert.ErrorIs(t, err, capture.ErrRegistration)
}

func TestHost_TypingMatchesPrediction(t *testing.T) {
	h := New()
	defer h.Close()
	target, q := attach(t, h)
	ctx := context.Background()

	before, err := h.Snapshot(ctx, target.Console)
	require.NoError(t, err)

	require.NoError(t, h.SendText(ctx, target, "dir"))

	want, next := predict.TypeText(before, "dir")
	assertRecords(t, want, drainAfter(t, q, len(want)))

	after, err := h.Snapshot(ctx, target.Console)
	require.NoError(t, err)
	assert.Equal(t, next, after)
}

func TestHost_LaunchAndExitChildMatchPrediction(t *testing.T) {
	h := New()
	defer h.Close()
	target, q := attach(t, h)
	ctx := context.Background()

	s, err := h.Snapshot(ctx, target.Console)
	require.NoError(t, err)
	column := s.Cursor.X

	require.NoError(t, h.SendText(ctx, target, "cmd"))
	drainAfter(t, q, 6)

	s, err = h.Snapshot(ctx, target.Console)
	require.NoError(t, err)
	require.NoError(t, h.SendKey(ctx, target, host.KeyEnter))

	want, next := predict.LaunchChild(s, predict.Launch{Banner: h.Banner(), PromptColumn: column})
	got := drainAfter(t, q, len(want))
	assertRecords(t, want, got)
	assert.NotZero(t, got[0].ProcessID(), "host reports the child pid")

	s, err = h.Snapshot(ctx, target.Console)
	require.NoError(t, err)
	assert.Equal(t, next.Cursor, s.Cursor)

	require.NoError(t, h.SendText(ctx, target, "exit"))
	drainAfter(t, q, 8)

	s, err = h.Snapshot(ctx, target.Console)
	require.NoError(t, err)
	require.NoError(t, h.SendKey(ctx, target, host.KeyEnter))

	want, _ = predict.ExitChild(s, predict.Exit{PromptColumn: column})
	assertRecords(t, want, drainAfter(t, q, len(want)))
}

func TestHost_ExitWithoutChildIsPlainEnter(t *testing.T) {
	h := New()
	defer h.Close()
	target, q := attach(t, h)
	ctx := context.Background()

	require.NoError(t, h.SendText(ctx, target, "exit"))
	drainAfter(t, q, 8)
	require.NoError(t, h.SendKey(ctx, target, host.KeyEnter))

	got := drainAfter(t, q, 2)
	assert.Equal(t, notify.KindUpdateRegion, got[0].Kind())
	assert.Equal(t, notify.KindCaretVisible, got[1].Kind())
}

func TestHost_Scroll(t *testing.T) {
	h := New()
	defer h.Close()
	target, q := attach(t, h)
	ctx := context.Background()

	require.NoError(t, h.Scroll(ctx, target, predict.Vertical, -2))
	require.NoError(t, h.Scroll(ctx, target, predict.Horizontal, 1))
	require.NoError(t, h.Scroll(ctx, target, predict.Vertical, 0))

	assertRecords(t, []notify.Record{
		notify.UpdateScroll(0, -240),
		notify.UpdateScroll(120, 0),
	}, drainAfter(t, q, 2))
}

func TestHost_DropKind(t *testing.T) {
	h := New(WithDrop(notify.KindStartApplication))
	defer h.Close()
	target, q := attach(t, h)
	ctx := context.Background()

	require.NoError(t, h.SendText(ctx, target, "cmd"))
	drainAfter(t, q, 6)
	require.NoError(t, h.SendKey(ctx, target, host.KeyEnter))

	got := drainAfter(t, q, 5)
	for _, r := range got {
		assert.NotEqual(t, notify.KindStartApplication, r.Kind())
	}
}

func TestHost_Corruption(t *testing.T) {
	// Index 0 is the install-time Layout; 1 is the first UpdateSimple.
	h := New(WithCorruption(Corruption{Index: 1, Param: 2, Delta: 1}))
	defer h.Close()
	target, q := attach(t, h)

	require.NoError(t, h.SendText(context.Background(), target, "a"))

	got := drainAfter(t, q, 2)
	assert.Equal(t, int('b'), got[0].Param(2))
}

func TestHost_Extra(t *testing.T) {
	h := New(WithExtra(notify.Layout()))
	defer h.Close()
	target, q := attach(t, h)

	require.NoError(t, h.SendKey(context.Background(), target, host.KeyEnter))

	got := drainAfter(t, q, 3)
	assert.Equal(t, notify.KindLayout, got[2].Kind())
}

func TestHost_CloseIdempotent(t *testing.T) {
	h := New()
	h.Close()
	h.Close()

	_, err := h.Launch(context.Background(), "cmd.exe")
	assert.Error(t, err)
}

func TestHost_DriverRejectsUnknownTarget(t *testing.T) {
	h := New()
	defer h.Close()
	ctx := context.Background()
	ghost := host.Target{PID: 1}

	assert.Error(t, h.SendText(ctx, ghost, "x"))
	assert.Error(t, h.SendKey(ctx, ghost, host.KeyEnter))
	assert.Error(t, h.Scroll(ctx, ghost, predict.Vertical, 1))
}

func TestHost_ImplementsCollaborators(t *testing.T) {
	var (
		_ host.Launcher    = (*Host)(nil)
		_ host.Driver      = (*Host)(nil)
		_ console.Provider = (*Host)(nil)
		_ capture.Hook     = (*Host)(nil)
	)
}
