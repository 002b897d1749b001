package capture

import (
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/roach88/a11yoracle/internal/notify"
)

// Uninstall removes an installed hook. It is called at most once.
type Uninstall func() error

// Hook installs a notification hook scoped to one process.
//
// Install must deliver every notification for pid to cb, in delivery order,
// until the returned Uninstall runs. A refused installation returns an error
// and leaves nothing installed.
type Hook interface {
	Install(pid int, cb notify.Callbacks) (Uninstall, error)
}

// HookFunc adapts a function to the Hook interface.
type HookFunc func(pid int, cb notify.Callbacks) (Uninstall, error)

// Install implements Hook.
func (f HookFunc) Install(pid int, cb notify.Callbacks) (Uninstall, error) {
	return f(pid, cb)
}

// DefaultPollInterval is how often Settle samples the queue.
const DefaultPollInterval = 10 * time.Millisecond

// Bridge owns the capture sessions for one test process.
//
// Thread-safety: all methods are safe for concurrent use.
type Bridge struct {
	hook   Hook
	logger *slog.Logger
	tokens TokenGenerator
	poll   time.Duration
	now    func() time.Time

	mu       sync.Mutex
	sessions map[Token]*session
	byPID    map[int]Token
}

// Option configures a Bridge.
type Option func(*Bridge)

// WithLogger sets the logger. The default discards.
func WithLogger(l *slog.Logger) Option {
	return func(b *Bridge) {
		if l != nil {
			b.logger = l
		}
	}
}

// WithTokenGenerator sets the ownership token generator.
// The default is UUIDv7Generator.
func WithTokenGenerator(g TokenGenerator) Option {
	return func(b *Bridge) {
		if g != nil {
			b.tokens = g
		}
	}
}

// WithPollInterval sets how often Settle samples the queue.
// Intervals below DefaultPollInterval are raised to it.
func WithPollInterval(d time.Duration) Option {
	return func(b *Bridge) {
		b.poll = max(d, DefaultPollInterval)
	}
}

// WithClock sets the time source used by Settle.
func WithClock(now func() time.Time) Option {
	return func(b *Bridge) {
		if now != nil {
			b.now = now
		}
	}
}

// New creates a bridge that installs hooks through hook.
func New(hook Hook, opts ...Option) *Bridge {
	b := &Bridge{
		hook:     hook,
		logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
		tokens:   UUIDv7Generator{},
		poll:     DefaultPollInterval,
		now:      time.Now,
		sessions: make(map[Token]*session),
		byPID:    make(map[int]Token),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// session is one attached process.
type session struct {
	pid       int
	queue     *notify.Queue
	uninstall Uninstall

	mu       sync.Mutex
	detached bool
}

// deliver is the delivery path: one record, one enqueue.
func (s *session) deliver(r notify.Record) {
	s.queue.Enqueue(r)
}

// close closes the queue and uninstalls the hook. A failed uninstall leaves
// the session open so the next call retries it.
func (s *session) close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.detached {
		return nil
	}
	s.queue.Close()
	if s.uninstall != nil {
		if err := s.uninstall(); err != nil {
			return err
		}
	}
	s.detached = true
	return nil
}

// Attach installs the hook for pid and returns its ownership token.
//
// A refused installation returns a *RegistrationError; nothing stays
// attached. Attaching a pid that already has a live token returns
// ErrAlreadyAttached.
func (b *Bridge) Attach(pid int) (Token, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if tok, ok := b.byPID[pid]; ok {
		return "", fmt.Errorf("%w: pid %d (token %s)", ErrAlreadyAttached, pid, tok)
	}

	s := &session{pid: pid, queue: notify.NewQueue()}
	uninstall, err := b.hook.Install(pid, notify.SinkFunc(s.deliver))
	if err != nil {
		s.queue.Close()
		b.logger.Error("hook registration refused", "pid", pid, "error", err)
		return "", &RegistrationError{PID: pid, Err: err}
	}
	s.uninstall = uninstall

	tok := Token(b.tokens.Generate())
	b.sessions[tok] = s
	b.byPID[pid] = tok

	b.logger.Info("attached", "pid", pid, "token", string(tok))
	return tok, nil
}

// Detach removes the hook owned by tok and closes its queue.
//
// Detach is idempotent: unknown or already-detached tokens return nil. If
// the hook cannot be uninstalled the error is returned and tok stays
// attached, so Detach can be retried; the queue is closed either way.
func (b *Bridge) Detach(tok Token) error {
	b.mu.Lock()
	s, ok := b.sessions[tok]
	b.mu.Unlock()

	if !ok {
		return nil
	}

	if err := s.close(); err != nil {
		b.logger.Warn("uninstall failed", "pid", s.pid, "token", string(tok), "error", err)
		return fmt.Errorf("detach pid %d: %w", s.pid, err)
	}

	b.mu.Lock()
	if b.sessions[tok] == s {
		delete(b.sessions, tok)
		delete(b.byPID, s.pid)
	}
	b.mu.Unlock()

	b.logger.Info("detached", "pid", s.pid, "token", string(tok), "delivered", s.queue.Total())
	return nil
}

// DetachAll detaches every live session and returns the first error.
func (b *Bridge) DetachAll() error {
	b.mu.Lock()
	toks := make([]Token, 0, len(b.sessions))
	for tok := range b.sessions {
		toks = append(toks, tok)
	}
	b.mu.Unlock()

	var first error
	for _, tok := range toks {
		if err := b.Detach(tok); err != nil && first == nil {
			first = err
		}
	}
	return first
}

// Queue returns the capture queue owned by tok.
func (b *Bridge) Queue(tok Token) (*notify.Queue, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	s, ok := b.sessions[tok]
	if !ok {
		return nil, fmt.Errorf("%w: token %s", ErrNotAttached, tok)
	}
	return s.queue, nil
}

// Attached reports whether tok names a live session.
func (b *Bridge) Attached(tok Token) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	_, ok := b.sessions[tok]
	return ok
}
