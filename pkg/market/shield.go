package market

import (
	"github.com/ethereum/go-ethereum/common"
)

// The shield is the anti-manipulation layer: an additive extension of the
// order engine. Its state is keyed by order id in side tables rather than
// embedded in the order record, so the base order layout never changes.

// ShieldEntry carries the per-order execution restrictions.
type ShieldEntry struct {
	// AllowedBlock is the earliest block the order may execute in.
	// Defaults to the creation block (immediately executable) when the
	// grace period is zero.
	AllowedBlock uint64 `json:"allowedBlock"`

	// PrivateBuyer restricts execution to one address. Zero means public.
	PrivateBuyer common.Address `json:"privateBuyer"`
}

type shield struct {
	gracePeriod uint64
	entries     map[uint64]*ShieldEntry
}

func newShield(gracePeriod uint64) shield {
	return shield{
		gracePeriod: gracePeriod,
		entries:     make(map[uint64]*ShieldEntry),
	}
}

// arm records the restrictions for a freshly created order.
func (s *shield) arm(orderID, creationBlock uint64, privateBuyer common.Address) *ShieldEntry {
	entry := &ShieldEntry{
		AllowedBlock: creationBlock + s.gracePeriod,
		PrivateBuyer: privateBuyer,
	}
	s.entries[orderID] = entry
	return entry
}

// check enforces the restrictions against the executing buyer.
// The grace-period rejection reuses the generic execution failure on purpose:
// callers cannot distinguish "too early" from other rejections.
func (s *shield) check(orderID, currentBlock uint64, buyer common.Address) error {
	entry, ok := s.entries[orderID]
	if !ok {
		return nil
	}
	if entry.PrivateBuyer != (common.Address{}) && buyer != entry.PrivateBuyer {
		return ErrPrivateOrder
	}
	if currentBlock < entry.AllowedBlock {
		return ErrNotExecutable
	}
	return nil
}

func (s *shield) disarm(orderID uint64) {
	delete(s.entries, orderID)
}

// SetGracePeriod updates the block delay applied to orders created from now
// on. Existing orders keep the allowed block assigned at creation. Admin only.
func (e *Engine) SetGracePeriod(caller common.Address, blocks uint64) error {
	if err := e.roles.RequireAdmin(caller); err != nil {
		return err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.shield.gracePeriod = blocks
	e.log.Infow("grace_period_updated", "blocks", blocks)
	return nil
}

// GracePeriod returns the current grace period in blocks.
func (e *Engine) GracePeriod() uint64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.shield.gracePeriod
}

// ShieldOf returns a copy of the shield entry for a live order.
func (e *Engine) ShieldOf(orderID uint64) (ShieldEntry, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	entry, ok := e.shield.entries[orderID]
	if !ok {
		return ShieldEntry{}, false
	}
	return *entry, true
}
