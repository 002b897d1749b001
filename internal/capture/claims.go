package capture

import (
	"fmt"
	"sync"
)

// pidClaims is the set of processes with a live hook. WinEvent hooks are
// scoped to the OS process, not to a Bridge, so every SystemHook in this
// process shares systemClaims.
type pidClaims struct {
	mu   sync.Mutex
	pids map[int]struct{}
}

var systemClaims = newPIDClaims()

func newPIDClaims() *pidClaims {
	return &pidClaims{pids: make(map[int]struct{})}
}

// claim reserves pid or fails with ErrAlreadyAttached.
func (c *pidClaims) claim(pid int) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.pids[pid]; ok {
		return fmt.Errorf("%w: pid %d is hooked by another bridge", ErrAlreadyAttached, pid)
	}
	c.pids[pid] = struct{}{}
	return nil
}

// release frees pid. Releasing an unclaimed pid is a no-op.
func (c *pidClaims) release(pid int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.pids, pid)
}

// claimed reports whether pid is reserved.
func (c *pidClaims) claimed(pid int) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.pids[pid]
	return ok
}
