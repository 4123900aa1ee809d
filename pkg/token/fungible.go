package token

import (
	"errors"
	"fmt"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum/common"
)

var (
	ErrInsufficientBalance   = errors.New("insufficient balance")
	ErrInsufficientAllowance = errors.New("insufficient allowance")
	ErrZeroAddress           = errors.New("zero address")
)

// Fungible is an in-process ledger with standard fungible-token semantics:
// balances, per-spender allowances, and a fixed decimal precision.
// All amounts are in base units (1 whole token = 10^decimals base units).
type Fungible struct {
	mu         sync.RWMutex
	addr       common.Address
	symbol     string
	decimals   uint8
	balances   map[common.Address]*big.Int
	allowances map[common.Address]map[common.Address]*big.Int
}

func NewFungible(addr common.Address, symbol string, decimals uint8) *Fungible {
	return &Fungible{
		addr:       addr,
		symbol:     symbol,
		decimals:   decimals,
		balances:   make(map[common.Address]*big.Int),
		allowances: make(map[common.Address]map[common.Address]*big.Int),
	}
}

func (f *Fungible) Address() common.Address { return f.addr }
func (f *Fungible) Symbol() string          { return f.symbol }
func (f *Fungible) Decimals() uint8         { return f.decimals }

// BalanceOf returns holder's balance. The returned value is a copy.
func (f *Fungible) BalanceOf(holder common.Address) *big.Int {
	f.mu.RLock()
	defer f.mu.RUnlock()
	if b, ok := f.balances[holder]; ok {
		return new(big.Int).Set(b)
	}
	return new(big.Int)
}

// Allowance returns what spender may move out of owner's balance.
func (f *Fungible) Allowance(owner, spender common.Address) *big.Int {
	f.mu.RLock()
	defer f.mu.RUnlock()
	if m, ok := f.allowances[owner]; ok {
		if a, ok := m[spender]; ok {
			return new(big.Int).Set(a)
		}
	}
	return new(big.Int)
}

// Approve sets spender's allowance over owner's balance (full replace).
func (f *Fungible) Approve(owner, spender common.Address, amount *big.Int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	m, ok := f.allowances[owner]
	if !ok {
		m = make(map[common.Address]*big.Int)
		f.allowances[owner] = m
	}
	m[spender] = new(big.Int).Set(amount)
}

// Mint credits amount to holder. Genesis and test helper.
func (f *Fungible) Mint(holder common.Address, amount *big.Int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.credit(holder, amount)
}

// Transfer moves amount from -> to.
func (f *Fungible) Transfer(from, to common.Address, amount *big.Int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.move(from, to, amount)
}

// TransferFrom moves amount from -> to on behalf of spender,
// consuming spender's allowance.
func (f *Fungible) TransferFrom(spender, from, to common.Address, amount *big.Int) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	allowance := new(big.Int)
	if m, ok := f.allowances[from]; ok {
		if a, ok := m[spender]; ok {
			allowance = a
		}
	}
	if allowance.Cmp(amount) < 0 {
		return fmt.Errorf("%w: %s spender %s has %s, needs %s",
			ErrInsufficientAllowance, f.symbol, spender.Hex(), allowance, amount)
	}
	if err := f.move(from, to, amount); err != nil {
		return err
	}
	allowance.Sub(allowance, amount)
	return nil
}

func (f *Fungible) move(from, to common.Address, amount *big.Int) error {
	if to == (common.Address{}) {
		return ErrZeroAddress
	}
	bal, ok := f.balances[from]
	if !ok || bal.Cmp(amount) < 0 {
		have := new(big.Int)
		if ok {
			have = bal
		}
		return fmt.Errorf("%w: %s holder %s has %s, needs %s",
			ErrInsufficientBalance, f.symbol, from.Hex(), have, amount)
	}
	bal.Sub(bal, amount)
	f.credit(to, amount)
	return nil
}

func (f *Fungible) credit(holder common.Address, amount *big.Int) {
	if b, ok := f.balances[holder]; ok {
		b.Add(b, amount)
		return
	}
	f.balances[holder] = new(big.Int).Set(amount)
}
