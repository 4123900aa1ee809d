package token

import (
	"errors"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
)

func TestNonFungibleOwnershipAndApproval(t *testing.T) {
	n := NewNonFungible(common.HexToAddress("0xc3"), "LAND")
	id := big.NewInt(7)
	n.Mint(holderA, id)

	owner, err := n.OwnerOf(id)
	if err != nil || owner != holderA {
		t.Fatalf("owner = %s, err = %v", owner.Hex(), err)
	}
	if _, err := n.OwnerOf(big.NewInt(99)); !errors.Is(err, ErrUnknownToken) {
		t.Fatalf("unknown id: want ErrUnknownToken, got %v", err)
	}

	if err := n.Approve(holderB, operator, id); !errors.Is(err, ErrNotOwner) {
		t.Fatalf("non-owner approve: want ErrNotOwner, got %v", err)
	}
	if err := n.Approve(holderA, operator, id); err != nil {
		t.Fatalf("approve: %v", err)
	}
	approved, err := n.GetApproved(id)
	if err != nil || approved != operator {
		t.Fatalf("approved = %s, err = %v", approved.Hex(), err)
	}
}

func TestNonFungibleTransferFrom(t *testing.T) {
	n := NewNonFungible(common.HexToAddress("0xc3"), "LAND")
	id := big.NewInt(7)
	n.Mint(holderA, id)

	// Neither owner nor approved.
	if err := n.TransferFrom(operator, holderA, holderB, id); !errors.Is(err, ErrNotApproved) {
		t.Fatalf("want ErrNotApproved, got %v", err)
	}
	// Wrong source.
	if err := n.TransferFrom(holderA, holderB, operator, id); !errors.Is(err, ErrNotOwner) {
		t.Fatalf("want ErrNotOwner, got %v", err)
	}

	if err := n.Approve(holderA, operator, id); err != nil {
		t.Fatalf("approve: %v", err)
	}
	if err := n.TransferFrom(operator, holderA, holderB, id); err != nil {
		t.Fatalf("transfer: %v", err)
	}
	owner, _ := n.OwnerOf(id)
	if owner != holderB {
		t.Errorf("owner = %s, want holder B", owner.Hex())
	}

	// Approval clears on transfer: the old operator cannot move it again.
	if err := n.TransferFrom(operator, holderB, holderA, id); !errors.Is(err, ErrNotApproved) {
		t.Fatalf("stale approval: want ErrNotApproved, got %v", err)
	}

	// The owner moves freely without an approval.
	if err := n.TransferFrom(holderB, holderB, holderA, id); err != nil {
		t.Fatalf("owner transfer: %v", err)
	}
}
