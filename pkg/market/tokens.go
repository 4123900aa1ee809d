package market

import (
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum/common"
)

// FungibleToken is the contract the engine requires of a fungible asset or
// payment-currency account. Implemented by token.Fungible; in a deployment
// against real chains this would be an RPC-backed binding instead.
type FungibleToken interface {
	Decimals() uint8
	BalanceOf(holder common.Address) *big.Int
	Allowance(owner, spender common.Address) *big.Int
	Transfer(from, to common.Address, amount *big.Int) error
	TransferFrom(spender, from, to common.Address, amount *big.Int) error
}

// NonFungibleToken is the contract the engine requires of a non-fungible
// asset account.
type NonFungibleToken interface {
	OwnerOf(id *big.Int) (common.Address, error)
	GetApproved(id *big.Int) (common.Address, error)
	TransferFrom(spender, from, to common.Address, id *big.Int) error
}

// TokenResolver maps asset contract addresses to token accounts.
type TokenResolver interface {
	Fungible(addr common.Address) (FungibleToken, bool)
	NonFungible(addr common.Address) (NonFungibleToken, bool)
}

// Tokens is the default TokenResolver: a registry of token accounts keyed by
// contract address.
type Tokens struct {
	mu          sync.RWMutex
	fungible    map[common.Address]FungibleToken
	nonFungible map[common.Address]NonFungibleToken
}

func NewTokens() *Tokens {
	return &Tokens{
		fungible:    make(map[common.Address]FungibleToken),
		nonFungible: make(map[common.Address]NonFungibleToken),
	}
}

func (t *Tokens) AddFungible(addr common.Address, f FungibleToken) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.fungible[addr] = f
}

func (t *Tokens) AddNonFungible(addr common.Address, n NonFungibleToken) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.nonFungible[addr] = n
}

func (t *Tokens) Fungible(addr common.Address) (FungibleToken, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	f, ok := t.fungible[addr]
	return f, ok
}

func (t *Tokens) NonFungible(addr common.Address) (NonFungibleToken, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	n, ok := t.nonFungible[addr]
	return n, ok
}
