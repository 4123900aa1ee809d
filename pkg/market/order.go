package market

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// AssetKind tags how an asset contract behaves.
type AssetKind int8

const (
	Unregistered AssetKind = iota
	FungibleAsset
	NonFungibleAsset
)

func (k AssetKind) String() string {
	switch k {
	case FungibleAsset:
		return "fungible"
	case NonFungibleAsset:
		return "non_fungible"
	default:
		return "unregistered"
	}
}

// Order is a live listing. It exists from creation until executed or
// cancelled, at which point it is removed permanently; ids are never reused.
type Order struct {
	ID           uint64         `json:"id"`
	Seller       common.Address `json:"seller"`
	AssetAddress common.Address `json:"assetAddress"`

	// AssetID identifies the token for non-fungible assets and must be
	// zero for fungible ones.
	AssetID *big.Int `json:"assetId"`

	// Amount is the token count for fungible assets, always 1 for
	// non-fungible ones.
	Amount *big.Int `json:"amount"`

	// Price is the full asking price in payment-currency base units.
	Price *big.Int `json:"price"`

	// CreatedAtBlock is the block the order was published in.
	CreatedAtBlock uint64 `json:"createdAtBlock"`
}

// Event is a marketplace lifecycle notification. Concrete types:
// OrderCreated, OrderExecuted, OrderCancelled.
type Event interface {
	Name() string
}

type OrderCreated struct {
	ID           uint64         `json:"id"`
	AssetID      *big.Int       `json:"assetId"`
	Seller       common.Address `json:"seller"`
	Amount       *big.Int       `json:"amount"`
	AssetAddress common.Address `json:"assetAddress"`
	Price        *big.Int       `json:"price"`
}

func (OrderCreated) Name() string { return "OrderCreated" }

type OrderExecuted struct {
	ID           uint64         `json:"id"`
	AssetID      *big.Int       `json:"assetId"`
	Seller       common.Address `json:"seller"`
	Amount       *big.Int       `json:"amount"`
	AssetAddress common.Address `json:"assetAddress"`
	Price        *big.Int       `json:"price"`
	Buyer        common.Address `json:"buyer"`
}

func (OrderExecuted) Name() string { return "OrderExecuted" }

type OrderCancelled struct {
	ID           uint64         `json:"id"`
	AssetID      *big.Int       `json:"assetId"`
	Seller       common.Address `json:"seller"`
	Amount       *big.Int       `json:"amount"`
	AssetAddress common.Address `json:"assetAddress"`
}

func (OrderCancelled) Name() string { return "OrderCancelled" }
