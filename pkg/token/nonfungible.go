package token

import (
	"errors"
	"fmt"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum/common"
)

var (
	ErrUnknownToken = errors.New("unknown token id")
	ErrNotOwner     = errors.New("not token owner")
	ErrNotApproved  = errors.New("spender not approved")
)

// NonFungible is an in-process ledger with standard non-fungible semantics:
// one owner per token id and a single approved operator per token.
type NonFungible struct {
	mu       sync.RWMutex
	addr     common.Address
	symbol   string
	owners   map[string]common.Address // token id (decimal string) -> owner
	approved map[string]common.Address // token id -> approved spender
}

func NewNonFungible(addr common.Address, symbol string) *NonFungible {
	return &NonFungible{
		addr:     addr,
		symbol:   symbol,
		owners:   make(map[string]common.Address),
		approved: make(map[string]common.Address),
	}
}

func (n *NonFungible) Address() common.Address { return n.addr }
func (n *NonFungible) Symbol() string          { return n.symbol }

// Mint assigns a fresh token id to owner. Genesis and test helper.
func (n *NonFungible) Mint(owner common.Address, id *big.Int) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.owners[id.String()] = owner
}

func (n *NonFungible) OwnerOf(id *big.Int) (common.Address, error) {
	n.mu.RLock()
	defer n.mu.RUnlock()
	owner, ok := n.owners[id.String()]
	if !ok {
		return common.Address{}, fmt.Errorf("%w: %s #%s", ErrUnknownToken, n.symbol, id)
	}
	return owner, nil
}

// GetApproved returns the address approved to move token id,
// or the zero address when none is set.
func (n *NonFungible) GetApproved(id *big.Int) (common.Address, error) {
	n.mu.RLock()
	defer n.mu.RUnlock()
	if _, ok := n.owners[id.String()]; !ok {
		return common.Address{}, fmt.Errorf("%w: %s #%s", ErrUnknownToken, n.symbol, id)
	}
	return n.approved[id.String()], nil
}

// Approve lets spender move token id. Caller must own the token.
func (n *NonFungible) Approve(caller, spender common.Address, id *big.Int) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	owner, ok := n.owners[id.String()]
	if !ok {
		return fmt.Errorf("%w: %s #%s", ErrUnknownToken, n.symbol, id)
	}
	if owner != caller {
		return fmt.Errorf("%w: %s #%s owned by %s", ErrNotOwner, n.symbol, id, owner.Hex())
	}
	n.approved[id.String()] = spender
	return nil
}

// TransferFrom moves token id from -> to on behalf of spender.
// Spender must be the owner or the approved operator. Approval clears on
// transfer.
func (n *NonFungible) TransferFrom(spender, from, to common.Address, id *big.Int) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	key := id.String()
	owner, ok := n.owners[key]
	if !ok {
		return fmt.Errorf("%w: %s #%s", ErrUnknownToken, n.symbol, id)
	}
	if owner != from {
		return fmt.Errorf("%w: %s #%s owned by %s, not %s", ErrNotOwner, n.symbol, id, owner.Hex(), from.Hex())
	}
	if spender != owner && n.approved[key] != spender {
		return fmt.Errorf("%w: %s #%s", ErrNotApproved, n.symbol, id)
	}
	if to == (common.Address{}) {
		return ErrZeroAddress
	}
	n.owners[key] = to
	delete(n.approved, key)
	return nil
}
