package token

import (
	"errors"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
)

var (
	tokenAddr = common.HexToAddress("0x00000000000000000000000000000000000000c1")
	holderA   = common.HexToAddress("0x00000000000000000000000000000000000000b1")
	holderB   = common.HexToAddress("0x00000000000000000000000000000000000000b2")
	operator  = common.HexToAddress("0x00000000000000000000000000000000000000d1")
)

func TestFungibleTransfer(t *testing.T) {
	f := NewFungible(tokenAddr, "MANA", 18)
	f.Mint(holderA, big.NewInt(100))

	if err := f.Transfer(holderA, holderB, big.NewInt(40)); err != nil {
		t.Fatalf("transfer: %v", err)
	}
	if got := f.BalanceOf(holderA); got.Cmp(big.NewInt(60)) != 0 {
		t.Errorf("holder A = %s, want 60", got)
	}
	if got := f.BalanceOf(holderB); got.Cmp(big.NewInt(40)) != 0 {
		t.Errorf("holder B = %s, want 40", got)
	}

	if err := f.Transfer(holderA, holderB, big.NewInt(100)); !errors.Is(err, ErrInsufficientBalance) {
		t.Fatalf("overdraw: want ErrInsufficientBalance, got %v", err)
	}
	if err := f.Transfer(holderA, common.Address{}, big.NewInt(1)); !errors.Is(err, ErrZeroAddress) {
		t.Fatalf("zero recipient: want ErrZeroAddress, got %v", err)
	}
}

func TestFungibleTransferFromConsumesAllowance(t *testing.T) {
	f := NewFungible(tokenAddr, "MANA", 18)
	f.Mint(holderA, big.NewInt(100))
	f.Approve(holderA, operator, big.NewInt(50))

	if err := f.TransferFrom(operator, holderA, holderB, big.NewInt(30)); err != nil {
		t.Fatalf("transfer from: %v", err)
	}
	if got := f.Allowance(holderA, operator); got.Cmp(big.NewInt(20)) != 0 {
		t.Errorf("remaining allowance = %s, want 20", got)
	}

	if err := f.TransferFrom(operator, holderA, holderB, big.NewInt(30)); !errors.Is(err, ErrInsufficientAllowance) {
		t.Fatalf("beyond allowance: want ErrInsufficientAllowance, got %v", err)
	}

	// Approve replaces the allowance outright, it does not add.
	f.Approve(holderA, operator, big.NewInt(5))
	if got := f.Allowance(holderA, operator); got.Cmp(big.NewInt(5)) != 0 {
		t.Errorf("allowance after re-approve = %s, want 5", got)
	}
}

func TestFungibleBalanceCopies(t *testing.T) {
	f := NewFungible(tokenAddr, "MANA", 18)
	f.Mint(holderA, big.NewInt(100))

	// Mutating a returned balance must not touch the ledger.
	f.BalanceOf(holderA).SetInt64(0)
	if got := f.BalanceOf(holderA); got.Cmp(big.NewInt(100)) != 0 {
		t.Errorf("balance = %s, want 100", got)
	}
}
