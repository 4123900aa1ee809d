package market_test

import (
	"errors"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"

	"github.com/hyunsoo-dev/tokenmart/pkg/chain"
	"github.com/hyunsoo-dev/tokenmart/pkg/market"
)

func TestNewFeePolicyValidation(t *testing.T) {
	roles := chain.NewRoles(admin)

	tests := []struct {
		name        string
		payment     common.Address
		beneficiary common.Address
		cut         uint64
		wantErr     error
	}{
		{"zero payment token", common.Address{}, beneficiary, 0, market.ErrZeroPaymentToken},
		{"zero beneficiary", paymentAddr, common.Address{}, 0, market.ErrZeroFeeBeneficiary},
		{"cut at the whole price", paymentAddr, beneficiary, 1_000_000, market.ErrInvalidOwnerCut},
		{"cut above the whole price", paymentAddr, beneficiary, 2_000_000, market.ErrInvalidOwnerCut},
		{"valid", paymentAddr, beneficiary, 999_999, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := market.NewFeePolicy(roles, tt.payment, tt.beneficiary, tt.cut, nil)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("want %v, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestFeePolicySetters(t *testing.T) {
	roles := chain.NewRoles(admin)
	fees, err := market.NewFeePolicy(roles, paymentAddr, beneficiary, 25_000, nil)
	if err != nil {
		t.Fatalf("new: %v", err)
	}

	if err := fees.SetOwnerCutPerMillion(stranger, 0); !errors.Is(err, chain.ErrNotAdmin) {
		t.Errorf("non-admin cut: want ErrNotAdmin, got %v", err)
	}
	if err := fees.SetOwnerCutPerMillion(admin, 1_000_000); !errors.Is(err, market.ErrInvalidOwnerCut) {
		t.Errorf("want ErrInvalidOwnerCut, got %v", err)
	}
	if err := fees.SetOwnerCutPerMillion(admin, 50_000); err != nil {
		t.Fatalf("set cut: %v", err)
	}
	if got := fees.OwnerCutPerMillion(); got != 50_000 {
		t.Errorf("cut = %d, want 50_000", got)
	}

	if err := fees.SetPublicationFee(stranger, big.NewInt(5)); !errors.Is(err, chain.ErrNotAdmin) {
		t.Errorf("non-admin fee: want ErrNotAdmin, got %v", err)
	}
	if err := fees.SetPublicationFee(admin, big.NewInt(5)); err != nil {
		t.Fatalf("set fee: %v", err)
	}
	if got := fees.PublicationFee(); got.Cmp(big.NewInt(5)) != 0 {
		t.Errorf("fee = %s, want 5", got)
	}
}

func TestCutForTruncates(t *testing.T) {
	roles := chain.NewRoles(admin)
	fees, err := market.NewFeePolicy(roles, paymentAddr, beneficiary, 25_000, nil) // 2.5%
	if err != nil {
		t.Fatalf("new: %v", err)
	}

	tests := []struct {
		price int64
		want  int64
	}{
		{0, 0},
		{1, 0},     // 0.000025, truncated
		{40, 1},    // exactly 1
		{79, 1},    // 1.975, truncated
		{1000, 25}, // exactly 25
	}

	for _, tt := range tests {
		if got := fees.CutFor(big.NewInt(tt.price)); got.Cmp(big.NewInt(tt.want)) != 0 {
			t.Errorf("CutFor(%d) = %s, want %d", tt.price, got, tt.want)
		}
	}
}

func TestSetRegistryReplacesWholeMapping(t *testing.T) {
	roles := chain.NewRoles(admin)
	registry := market.NewAssetRegistry(roles)

	if err := registry.SetRegistry(stranger, nil); !errors.Is(err, chain.ErrNotAdmin) {
		t.Fatalf("non-admin: want ErrNotAdmin, got %v", err)
	}

	if err := registry.SetRegistry(admin, map[common.Address]market.AssetKind{
		landAddr: market.NonFungibleAsset,
		goldAddr: market.FungibleAsset,
	}); err != nil {
		t.Fatalf("set: %v", err)
	}
	if got := registry.Kind(landAddr); got != market.NonFungibleAsset {
		t.Errorf("land kind = %v", got)
	}

	// A later call replaces everything: omitted entries revert to
	// unregistered, and explicit Unregistered entries are dropped.
	if err := registry.SetRegistry(admin, map[common.Address]market.AssetKind{
		goldAddr:  market.FungibleAsset,
		shardAddr: market.Unregistered,
	}); err != nil {
		t.Fatalf("replace: %v", err)
	}
	if got := registry.Kind(landAddr); got != market.Unregistered {
		t.Errorf("land kind after replace = %v, want Unregistered", got)
	}
	if got := registry.Kind(shardAddr); got != market.Unregistered {
		t.Errorf("shard kind = %v, want Unregistered", got)
	}
	if got := registry.Kind(goldAddr); got != market.FungibleAsset {
		t.Errorf("gold kind = %v, want FungibleAsset", got)
	}
	if got := len(registry.Entries()); got != 1 {
		t.Errorf("registry size = %d, want 1", got)
	}
}
