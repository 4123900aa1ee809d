package market

import (
	"sync"

	"github.com/ethereum/go-ethereum/common"

	"github.com/hyunsoo-dev/tokenmart/pkg/chain"
)

// AssetRegistry maps asset contract addresses to their kind. Only registered
// assets may be listed. Mutation is admin-gated and replaces the whole
// mapping: entries omitted from the new set revert to unregistered.
type AssetRegistry struct {
	mu    sync.RWMutex
	roles *chain.Roles
	kinds map[common.Address]AssetKind
}

func NewAssetRegistry(roles *chain.Roles) *AssetRegistry {
	return &AssetRegistry{
		roles: roles,
		kinds: make(map[common.Address]AssetKind),
	}
}

// SetRegistry replaces the entire registry with the given entries.
func (r *AssetRegistry) SetRegistry(caller common.Address, entries map[common.Address]AssetKind) error {
	if err := r.roles.RequireAdmin(caller); err != nil {
		return err
	}

	next := make(map[common.Address]AssetKind, len(entries))
	for addr, kind := range entries {
		if kind == Unregistered {
			continue
		}
		next[addr] = kind
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.kinds = next
	return nil
}

// Kind returns the registered kind for addr, Unregistered if absent.
func (r *AssetRegistry) Kind(addr common.Address) AssetKind {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.kinds[addr]
}

// Entries returns a snapshot of the registry.
func (r *AssetRegistry) Entries() map[common.Address]AssetKind {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make(map[common.Address]AssetKind, len(r.kinds))
	for addr, kind := range r.kinds {
		out[addr] = kind
	}
	return out
}
