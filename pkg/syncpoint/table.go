// Package syncpoint issues and resolves completion tokens for asynchronous stage calls.
package syncpoint

import (
	"sync"
	"time"

	"github.com/user/vidpipe/pkg/ports"
)

type entry struct {
	done   chan struct{}
	status ports.Status
}

// Table owns the resolution state of every token it issues.
// Ids are never reused, and a token stops being valid once a Wait call has
// observed its completion.
type Table struct {
	mu      sync.Mutex
	next    uint64
	entries map[uint64]*entry
}

// NewTable creates an empty table.
func NewTable() *Table {
	return &Table{entries: make(map[uint64]*entry)}
}

// Issue returns a new unresolved token.
func (t *Table) Issue() ports.SyncPoint {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.next++
	t.entries[t.next] = &entry{done: make(chan struct{})}
	return ports.NewSyncPoint(t.next)
}

// Resolve completes the operation behind sp with the given status.
// Resolving an unknown or already resolved token is a no-op and returns false.
func (t *Table) Resolve(sp ports.SyncPoint, status ports.Status) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	e, ok := t.entries[sp.ID()]
	if !ok {
		return false
	}
	select {
	case <-e.done:
		return false
	default:
	}
	e.status = status
	close(e.done)
	return true
}

// Done returns a channel closed when sp resolves, without consuming the token.
func (t *Table) Done(sp ports.SyncPoint) (<-chan struct{}, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	e, ok := t.entries[sp.ID()]
	if !ok {
		return nil, false
	}
	return e.done, true
}

// Status returns the resolution status of sp without consuming it.
// StatusWarnInExecution is returned while the operation is running.
func (t *Table) Status(sp ports.SyncPoint) ports.Status {
	t.mu.Lock()
	defer t.mu.Unlock()

	e, ok := t.entries[sp.ID()]
	if !ok {
		return ports.StatusInvalidHandle
	}
	select {
	case <-e.done:
		return e.status
	default:
		return ports.StatusWarnInExecution
	}
}

// Wait blocks until sp resolves or the timeout expires.
// A zero timeout polls. Observing the completion consumes the token, so a
// second Wait on the same token reports StatusInvalidHandle.
func (t *Table) Wait(sp ports.SyncPoint, timeout time.Duration) ports.Status {
	if sp.IsZero() {
		return ports.StatusNullPointer
	}
	done, ok := t.Done(sp)
	if !ok {
		return ports.StatusInvalidHandle
	}

	if timeout <= 0 {
		select {
		case <-done:
		default:
			return ports.StatusWarnInExecution
		}
	} else {
		timer := time.NewTimer(timeout)
		defer timer.Stop()
		select {
		case <-done:
		case <-timer.C:
			return ports.StatusTimeout
		}
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	e, ok := t.entries[sp.ID()]
	if !ok {
		// Another waiter consumed it first.
		return ports.StatusInvalidHandle
	}
	delete(t.entries, sp.ID())
	return e.status
}

// Pending returns the number of tokens not yet consumed.
func (t *Table) Pending() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.entries)
}

// ResolveAll completes every unresolved token with the given status.
func (t *Table) ResolveAll(status ports.Status) {
	t.mu.Lock()
	defer t.mu.Unlock()

	for _, e := range t.entries {
		select {
		case <-e.done:
		default:
			e.status = status
			close(e.done)
		}
	}
}
