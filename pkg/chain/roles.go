package chain

import (
	"errors"
	"sync"

	"github.com/ethereum/go-ethereum/common"
)

var (
	ErrNotAdmin = errors.New("caller is not an admin")
	ErrPaused   = errors.New("contract is paused")
)

// Roles is the administrative role layer gating setters and privileged paths.
// It also carries the pause gate consulted at the top of every state-changing
// entry point.
type Roles struct {
	mu     sync.RWMutex
	admins map[common.Address]bool
	paused bool
}

func NewRoles(admins ...common.Address) *Roles {
	r := &Roles{admins: make(map[common.Address]bool)}
	for _, a := range admins {
		r.admins[a] = true
	}
	return r
}

func (r *Roles) IsAdmin(addr common.Address) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.admins[addr]
}

// RequireAdmin returns ErrNotAdmin unless addr holds the admin role.
func (r *Roles) RequireAdmin(addr common.Address) error {
	if !r.IsAdmin(addr) {
		return ErrNotAdmin
	}
	return nil
}

// Grant gives addr the admin role. Caller must already be an admin.
func (r *Roles) Grant(caller, addr common.Address) error {
	if err := r.RequireAdmin(caller); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.admins[addr] = true
	return nil
}

// Revoke removes the admin role from addr. Caller must be an admin.
func (r *Roles) Revoke(caller, addr common.Address) error {
	if err := r.RequireAdmin(caller); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.admins, addr)
	return nil
}

func (r *Roles) Paused() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.paused
}

// RequireNotPaused returns ErrPaused while the pause gate is engaged.
func (r *Roles) RequireNotPaused() error {
	if r.Paused() {
		return ErrPaused
	}
	return nil
}

func (r *Roles) Pause(caller common.Address) error {
	if err := r.RequireAdmin(caller); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.paused = true
	return nil
}

func (r *Roles) Unpause(caller common.Address) error {
	if err := r.RequireAdmin(caller); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.paused = false
	return nil
}
