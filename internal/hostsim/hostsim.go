// Package hostsim is an in-process stand-in for a console host.
//
// A Host launches simulated shells, accepts typed text, Enter and wheel
// input, answers console queries, and emits console WinEvents to installed
// hooks from its own delivery goroutine. Events travel as raw WinEvent
// arguments and are decoded exactly like the live hook's, so the capture
// path under test is the same one used against a real host.
//
// The host models its own screen independently of package predict. A
// mismatch between the two is a real finding, not a tautology.
//
// Faults can be injected to exercise the comparator: dropped kinds, a
// corrupted parameter, extra notifications, and delivery delay.
package hostsim

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
	"time"
	"unicode/utf16"

	"github.com/roach88/a11yoracle/internal/capture"
	"github.com/roach88/a11yoracle/internal/console"
	"github.com/roach88/a11yoracle/internal/host"
	"github.com/roach88/a11yoracle/internal/notify"
	"github.com/roach88/a11yoracle/internal/predict"
)

// DefaultBanner is what the simulated shell prints at startup.
var DefaultBanner = []string{
	"Microsoft Windows [Version 10.0.14974]",
	"(c) 2016 Microsoft Corporation. All rights reserved.",
}

// DefaultPrompt is the simulated shell prompt.
const DefaultPrompt = `C:\Users\oracle>`

// Host is a simulated console host.
//
// Thread-safety: all methods are safe for concurrent use. Notifications are
// delivered in emission order on a single goroutine.
type Host struct {
	logger  *slog.Logger
	banner  []string
	prompt  string
	size    console.Coord
	attr    int
	delay   time.Duration
	drop    map[notify.Kind]bool
	corrupt *Corruption
	extra   []notify.Record

	mu      sync.Mutex
	nextPID int
	procs   map[int]*proc
	emitted int
	closed  bool

	// hookMu guards hooks on its own so delivery never waits on mu.
	hookMu sync.Mutex
	hooks  map[int]notify.Callbacks

	outbox chan batch
	done   chan struct{}
}

// proc is one top-level shell and its console.
type proc struct {
	pid        int
	handle     console.Handle
	command    string
	cursor     console.Coord
	line       []uint16
	children   []int // nested shell pids, innermost last
	terminated bool
}

type batch struct {
	pid  int
	recs []notify.Record
}

// Corruption alters one emitted notification.
type Corruption struct {
	// Index counts emitted notifications from zero, across the host's life.
	Index int
	// Param is the parameter (0-3) to change.
	Param int
	// Delta is added to the parameter.
	Delta int
}

// Option configures a Host.
type Option func(*Host)

// WithLogger sets the logger. The default discards.
func WithLogger(l *slog.Logger) Option {
	return func(h *Host) {
		if l != nil {
			h.logger = l
		}
	}
}

// WithBanner sets the nested shell banner.
func WithBanner(lines ...string) Option {
	return func(h *Host) { h.banner = lines }
}

// WithPrompt sets the shell prompt.
func WithPrompt(p string) Option {
	return func(h *Host) { h.prompt = p }
}

// WithBufferSize sets the screen buffer dimensions.
func WithBufferSize(width, height int) Option {
	return func(h *Host) { h.size = console.Coord{X: width, Y: height} }
}

// WithAttributes sets the attribute bits applied to typed characters.
func WithAttributes(attr int) Option {
	return func(h *Host) { h.attr = attr }
}

// WithDelay delays each delivered notification.
func WithDelay(d time.Duration) Option {
	return func(h *Host) { h.delay = d }
}

// WithDrop suppresses every notification of the given kinds.
func WithDrop(kinds ...notify.Kind) Option {
	return func(h *Host) {
		for _, k := range kinds {
			h.drop[k] = true
		}
	}
}

// WithCorruption alters one emitted notification.
func WithCorruption(c Corruption) Option {
	return func(h *Host) { h.corrupt = &c }
}

// WithExtra appends notifications after every Enter key, modeling a host
// that reports more than it should.
func WithExtra(recs ...notify.Record) Option {
	return func(h *Host) { h.extra = recs }
}

// New creates a host and starts its delivery goroutine. Call Close when done.
func New(opts ...Option) *Host {
	h := &Host{
		logger:  slog.New(slog.NewTextHandler(io.Discard, nil)),
		banner:  DefaultBanner,
		prompt:  DefaultPrompt,
		size:    console.Coord{X: 120, Y: 9001},
		attr:    0x07,
		drop:    make(map[notify.Kind]bool),
		nextPID: 1000,
		procs:   make(map[int]*proc),
		hooks:   make(map[int]notify.Callbacks),
		outbox:  make(chan batch, 256),
		done:    make(chan struct{}),
	}
	for _, opt := range opts {
		opt(h)
	}
	go h.deliverLoop()
	return h
}

// Banner returns the nested shell banner lines.
func (h *Host) Banner() []string {
	out := make([]string, len(h.banner))
	copy(out, h.banner)
	return out
}

// PromptColumn returns the caret column after the prompt.
func (h *Host) PromptColumn() int {
	return len(utf16.Encode([]rune(h.prompt)))
}

// Close stops delivery. Pending notifications are delivered first.
func (h *Host) Close() {
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return
	}
	h.closed = true
	close(h.outbox)
	h.mu.Unlock()
	<-h.done
}

func (h *Host) deliverLoop() {
	defer close(h.done)
	for b := range h.outbox {
		for _, r := range b.recs {
			if h.delay > 0 {
				time.Sleep(h.delay)
			}
			h.hookMu.Lock()
			cb := h.hooks[b.pid]
			h.hookMu.Unlock()
			if cb == nil {
				continue
			}
			event, obj, child, ok := capture.Encode(r)
			if !ok {
				continue
			}
			capture.Decode(event, obj, child, cb)
		}
	}
}

// emit queues notifications for pid's hook. Caller holds h.mu.
func (h *Host) emit(pid int, recs ...notify.Record) {
	if h.closed || len(recs) == 0 {
		return
	}
	out := make([]notify.Record, 0, len(recs))
	for _, r := range recs {
		idx := h.emitted
		h.emitted++
		if h.drop[r.Kind()] {
			h.logger.Debug("dropping notification", "index", idx, "record", r.String())
			continue
		}
		if c := h.corrupt; c != nil && c.Index == idx {
			p := r.Params()
			p[c.Param] += c.Delta
			r = notify.New(r.Kind(), p[:]...).WithIdentifiers(r.ProcessID(), r.ChildID())
			h.logger.Debug("corrupting notification", "index", idx, "record", r.String())
		}
		out = append(out, r)
	}
	h.outbox <- batch{pid: pid, recs: out}
}

func (h *Host) lookup(pid int) (*proc, error) {
	p, ok := h.procs[pid]
	if !ok || p.terminated {
		return nil, fmt.Errorf("no such process %d", pid)
	}
	return p, nil
}

// Launch implements host.Launcher. The new console shows the shell banner,
// a blank line, and the prompt.
func (h *Host) Launch(ctx context.Context, command string) (host.Target, error) {
	if err := ctx.Err(); err != nil {
		return host.Target{}, err
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return host.Target{}, fmt.Errorf("launch %q: host closed", command)
	}

	pid := h.nextPID
	h.nextPID++
	p := &proc{
		pid:     pid,
		handle:  console.Handle(pid << 4),
		command: command,
		cursor:  console.Coord{X: h.PromptColumn(), Y: len(h.banner) + 1},
	}
	h.procs[pid] = p

	h.logger.Info("launched", "pid", pid, "command", command)
	return host.Target{PID: pid, Console: p.handle, Command: command}, nil
}

// Terminate implements host.Launcher.
func (h *Host) Terminate(_ context.Context, t host.Target) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if p, ok := h.procs[t.PID]; ok && !p.terminated {
		p.terminated = true
		h.logger.Info("terminated", "pid", t.PID)
	}
	return nil
}

// Snapshot implements console.Provider.
func (h *Host) Snapshot(ctx context.Context, handle console.Handle) (console.Snapshot, error) {
	if err := ctx.Err(); err != nil {
		return console.Snapshot{}, err
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	for _, p := range h.procs {
		if p.handle == handle && !p.terminated {
			return console.Snapshot{
				Cursor:     p.cursor,
				Attributes: h.attr,
				BufferSize: h.size,
				Viewport:   console.Rect{Left: 0, Top: 0, Right: h.size.X - 1, Bottom: 29},
			}, nil
		}
	}
	return console.Snapshot{}, &console.QueryError{Handle: handle, Err: console.ErrInvalidHandle}
}

// Install implements capture.Hook. A hook for an unknown or terminated
// process is refused. Install emits a Layout notification, as a host does
// when an accessibility client first binds.
func (h *Host) Install(pid int, cb notify.Callbacks) (capture.Uninstall, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, err := h.lookup(pid); err != nil {
		return nil, err
	}

	h.hookMu.Lock()
	if _, ok := h.hooks[pid]; ok {
		h.hookMu.Unlock()
		return nil, fmt.Errorf("hook already installed for process %d", pid)
	}
	h.hooks[pid] = cb
	h.hookMu.Unlock()

	h.emit(pid, notify.Layout())

	return func() error {
		h.hookMu.Lock()
		defer h.hookMu.Unlock()
		delete(h.hooks, pid)
		return nil
	}, nil
}

// SendText implements host.Driver.
func (h *Host) SendText(ctx context.Context, t host.Target, text string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	p, err := h.lookup(t.PID)
	if err != nil {
		return err
	}

	for _, c := range utf16.Encode([]rune(text)) {
		at := p.cursor
		p.cursor.X++
		if p.cursor.X >= h.size.X {
			p.cursor = console.Coord{X: 0, Y: p.cursor.Y + 1}
		}
		p.line = append(p.line, c)
		h.emit(p.pid,
			notify.UpdateSimple(at.X, at.Y, int(c), h.attr),
			notify.CaretVisible(p.cursor.X, p.cursor.Y),
		)
	}
	return nil
}

// SendKey implements host.Driver.
func (h *Host) SendKey(ctx context.Context, t host.Target, k host.Key) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	p, err := h.lookup(t.PID)
	if err != nil {
		return err
	}

	switch k {
	case host.KeyEnter:
		h.enter(p)
	case host.KeyBackspace:
		if len(p.line) > 0 {
			p.line = p.line[:len(p.line)-1]
			p.cursor.X--
			h.emit(p.pid,
				notify.UpdateSimple(p.cursor.X, p.cursor.Y, ' ', h.attr),
				notify.CaretVisible(p.cursor.X, p.cursor.Y),
			)
		}
	case host.KeyEscape:
		p.line = p.line[:0]
	default:
		return fmt.Errorf("unsupported key %s", k)
	}
	return nil
}

// enter runs the typed line. Caller holds h.mu.
func (h *Host) enter(p *proc) {
	cmd := strings.ToLower(strings.TrimSpace(string(utf16.Decode(p.line))))
	p.line = p.line[:0]
	column := h.PromptColumn()

	switch {
	case cmd == "cmd":
		child := h.nextPID
		h.nextPID++
		p.children = append(p.children, child)

		recs := []notify.Record{
			notify.StartApplication(child, 0),
			notify.UpdateRegion(0, 0, h.size.X-1, h.size.Y-1),
		}
		row := p.cursor.Y
		for _, line := range h.banner {
			row++
			recs = append(recs, notify.UpdateRegion(0, row, len(utf16.Encode([]rune(line)))-1, row))
		}
		row += 2
		p.cursor = console.Coord{X: column, Y: row}
		recs = append(recs,
			notify.UpdateRegion(0, row, column-1, row),
			notify.CaretVisible(column, row),
		)
		h.emit(p.pid, append(recs, h.extra...)...)

	case cmd == "exit" && len(p.children) > 0:
		child := p.children[len(p.children)-1]
		p.children = p.children[:len(p.children)-1]

		row := p.cursor.Y + 2
		p.cursor = console.Coord{X: column, Y: row}
		recs := []notify.Record{
			notify.EndApplication(child, 0),
			notify.UpdateRegion(0, row, column-1, row),
			notify.CaretVisible(column, row),
		}
		h.emit(p.pid, append(recs, h.extra...)...)

	default:
		row := p.cursor.Y + 1
		p.cursor = console.Coord{X: column, Y: row}
		recs := []notify.Record{
			notify.UpdateRegion(0, row, column-1, row),
			notify.CaretVisible(column, row),
		}
		h.emit(p.pid, append(recs, h.extra...)...)
	}
}

// Scroll implements host.Driver.
func (h *Host) Scroll(ctx context.Context, t host.Target, axis predict.Axis, ticks int) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	p, err := h.lookup(t.PID)
	if err != nil {
		return err
	}
	if ticks == 0 {
		return nil
	}

	delta := predict.WheelDelta * ticks
	if axis == predict.Horizontal {
		h.emit(p.pid, notify.UpdateScroll(delta, 0))
	} else {
		h.emit(p.pid, notify.UpdateScroll(0, delta))
	}
	return nil
}

// Emitted returns how many notifications the host has produced, including
// dropped ones.
func (h *Host) Emitted() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.emitted
}
