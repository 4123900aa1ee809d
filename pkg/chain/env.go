package chain

import (
	"sync"
	"time"
)

// Env is the execution environment the engines read their block context from.
// Every state-changing call snapshots the current block number and wall time
// once at entry; nothing in the core schedules or polls.
type Env struct {
	mu    sync.RWMutex
	block uint64
	now   time.Time
}

func NewEnv(block uint64, now time.Time) *Env {
	return &Env{block: block, now: now}
}

// Block returns the current block number.
func (e *Env) Block() uint64 {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.block
}

// Now returns the current chain time.
func (e *Env) Now() time.Time {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.now
}

// AdvanceBlocks moves the block counter forward by n.
func (e *Env) AdvanceBlocks(n uint64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.block += n
}

// AdvanceTime moves chain time forward by d.
func (e *Env) AdvanceTime(d time.Duration) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.now = e.now.Add(d)
}

// SetNow pins chain time to t.
func (e *Env) SetNow(t time.Time) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.now = t
}

// Tick advances one block and sets chain time, in one step.
// marketd's block loop uses this; tests drive AdvanceBlocks/SetNow directly.
func (e *Env) Tick(now time.Time) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.block++
	e.now = now
}
