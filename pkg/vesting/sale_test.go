package vesting

import (
	"errors"
	"math/big"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"github.com/hyunsoo-dev/tokenmart/pkg/chain"
	"github.com/hyunsoo-dev/tokenmart/pkg/token"
)

var (
	admin    = common.HexToAddress("0x00000000000000000000000000000000000000a1")
	alice    = common.HexToAddress("0x00000000000000000000000000000000000000b1")
	bob      = common.HexToAddress("0x00000000000000000000000000000000000000b2")
	carol    = common.HexToAddress("0x00000000000000000000000000000000000000b3")
	saleAddr = common.HexToAddress("0x00000000000000000000000000000000000000d2")
	proceeds = common.HexToAddress("0x00000000000000000000000000000000000000f2")
	source   = common.HexToAddress("0x00000000000000000000000000000000000000f3")

	paymentAddr   = common.HexToAddress("0x00000000000000000000000000000000000000c1")
	saleTokenAddr = common.HexToAddress("0x00000000000000000000000000000000000000c2")
)

var launch = time.Date(2025, 9, 1, 0, 0, 0, 0, time.UTC)

type saleFixture struct {
	env       *chain.Env
	roles     *chain.Roles
	payment   *token.Fungible
	saleToken *token.Fungible
	sale      *Sale
}

func defaultParams() Params {
	return Params{
		TotalOnSale: big.NewInt(1000),
		Rate:        big.NewInt(2),
		MinPerBuyer: big.NewInt(10),
		MaxPerBuyer: big.NewInt(500),
		Schedule:    Schedule{UnlockAtIGOPercent: 0, CliffMonths: 2, VestingMonths: 3},
	}
}

func newSaleFixture(t *testing.T, params Params) *saleFixture {
	t.Helper()

	env := chain.NewEnv(1, launch.Add(-30*24*time.Hour))
	roles := chain.NewRoles(admin)

	payment := token.NewFungible(paymentAddr, "MANA", 18)
	saleToken := token.NewFungible(saleTokenAddr, "GAME", 18)

	// Source holds the allocation; the sale engine may pull from it.
	saleToken.Mint(source, params.TotalOnSale)
	saleToken.Approve(source, saleAddr, params.TotalOnSale)

	payment.Mint(alice, big.NewInt(10_000))
	payment.Approve(alice, saleAddr, big.NewInt(10_000))
	payment.Mint(bob, big.NewInt(10_000))
	payment.Approve(bob, saleAddr, big.NewInt(10_000))

	store, err := NewStore(t.TempDir())
	if err != nil {
		t.Fatalf("store: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	sale, err := NewSale(SaleConfig{
		Env:      env,
		Roles:    roles,
		Store:    store,
		Params:   params,
		Payment:  payment,
		Token:    saleToken,
		Address:  saleAddr,
		Proceeds: proceeds,
		Source:   source,
	})
	if err != nil {
		t.Fatalf("sale: %v", err)
	}

	if err := sale.SetWhitelisted(admin, alice, true); err != nil {
		t.Fatalf("whitelist: %v", err)
	}

	return &saleFixture{
		env:       env,
		roles:     roles,
		payment:   payment,
		saleToken: saleToken,
		sale:      sale,
	}
}

func TestBuyRequiresWhitelist(t *testing.T) {
	f := newSaleFixture(t, defaultParams())

	if err := f.sale.Buy(bob, big.NewInt(100)); !errors.Is(err, ErrNotWhitelisted) {
		t.Fatalf("want ErrNotWhitelisted, got %v", err)
	}
	if got := f.sale.Sold(); got.Sign() != 0 {
		t.Errorf("sold = %s after rejected purchase, want 0", got)
	}

	if err := f.sale.SetWhitelisted(bob, bob, true); !errors.Is(err, chain.ErrNotAdmin) {
		t.Fatalf("self-whitelist: want ErrNotAdmin, got %v", err)
	}
	if err := f.sale.SetWhitelisted(admin, bob, true); err != nil {
		t.Fatalf("whitelist: %v", err)
	}
	if err := f.sale.Buy(bob, big.NewInt(100)); err != nil {
		t.Fatalf("buy after whitelist: %v", err)
	}

	// Removal closes the door again.
	if err := f.sale.SetWhitelisted(admin, bob, false); err != nil {
		t.Fatalf("unwhitelist: %v", err)
	}
	if err := f.sale.Buy(bob, big.NewInt(100)); !errors.Is(err, ErrNotWhitelisted) {
		t.Fatalf("want ErrNotWhitelisted, got %v", err)
	}
}

func TestBuyBounds(t *testing.T) {
	f := newSaleFixture(t, defaultParams())

	if err := f.sale.Buy(alice, big.NewInt(5)); !errors.Is(err, ErrBelowMinimum) {
		t.Fatalf("below min: want ErrBelowMinimum, got %v", err)
	}
	if err := f.sale.Buy(alice, big.NewInt(501)); !errors.Is(err, ErrAboveMaximum) {
		t.Fatalf("above max: want ErrAboveMaximum, got %v", err)
	}

	if err := f.sale.Buy(alice, big.NewInt(400)); err != nil {
		t.Fatalf("buy: %v", err)
	}
	// Cumulative cap: 400 held, another 200 would exceed MaxPerBuyer.
	if err := f.sale.Buy(alice, big.NewInt(200)); !errors.Is(err, ErrAboveMaximum) {
		t.Fatalf("cumulative above max: want ErrAboveMaximum, got %v", err)
	}
	// Topping up below the minimum is fine once the floor is cleared.
	if err := f.sale.Buy(alice, big.NewInt(5)); err != nil {
		t.Fatalf("top-up: %v", err)
	}

	rec, ok := f.sale.RecordOf(alice)
	if !ok {
		t.Fatal("record missing")
	}
	if rec.Purchased.Cmp(big.NewInt(405)) != 0 {
		t.Errorf("purchased = %s, want 405", rec.Purchased)
	}
}

func TestBuyGlobalCap(t *testing.T) {
	f := newSaleFixture(t, defaultParams())

	if err := f.sale.SetWhitelisted(admin, bob, true); err != nil {
		t.Fatalf("whitelist: %v", err)
	}
	if err := f.sale.Buy(alice, big.NewInt(500)); err != nil {
		t.Fatalf("buy: %v", err)
	}
	if err := f.sale.Buy(bob, big.NewInt(500)); err != nil {
		t.Fatalf("buy: %v", err)
	}

	// 1000 of 1000 sold: no more room for anyone.
	if err := f.sale.SetWhitelisted(admin, carol, true); err != nil {
		t.Fatalf("whitelist: %v", err)
	}
	f.payment.Mint(carol, big.NewInt(100))
	f.payment.Approve(carol, saleAddr, big.NewInt(100))
	if err := f.sale.Buy(carol, big.NewInt(10)); !errors.Is(err, ErrSaleExhausted) {
		t.Fatalf("want ErrSaleExhausted, got %v", err)
	}
	if got := f.sale.Sold(); got.Cmp(big.NewInt(1000)) != 0 {
		t.Errorf("sold = %s, want 1000", got)
	}
}

func TestBuyMovesFunds(t *testing.T) {
	f := newSaleFixture(t, defaultParams())

	if err := f.sale.Buy(alice, big.NewInt(100)); err != nil {
		t.Fatalf("buy: %v", err)
	}

	// Cost 100 * rate 2 = 200 to the proceeds wallet.
	if got := f.payment.BalanceOf(proceeds); got.Cmp(big.NewInt(200)) != 0 {
		t.Errorf("proceeds = %s, want 200", got)
	}
	if got := f.payment.BalanceOf(alice); got.Cmp(big.NewInt(9_800)) != 0 {
		t.Errorf("alice payment = %s, want 9800", got)
	}
	// Purchased tokens sit in sale custody until claimed.
	if got := f.saleToken.BalanceOf(saleAddr); got.Cmp(big.NewInt(100)) != 0 {
		t.Errorf("custody = %s, want 100", got)
	}
	if got := f.saleToken.BalanceOf(alice); got.Sign() != 0 {
		t.Errorf("alice tokens = %s, want 0 before vesting", got)
	}
}

func TestBuyClosesAtLaunch(t *testing.T) {
	f := newSaleFixture(t, defaultParams())

	if err := f.sale.SetIGOTimestamp(admin, launch); err != nil {
		t.Fatalf("set igo: %v", err)
	}
	if err := f.sale.Buy(alice, big.NewInt(100)); err != nil {
		t.Fatalf("buy before launch: %v", err)
	}

	f.env.SetNow(launch)
	if err := f.sale.Buy(alice, big.NewInt(100)); !errors.Is(err, ErrAfterIGO) {
		t.Fatalf("buy at launch: want ErrAfterIGO, got %v", err)
	}
}

func TestSetIGOTimestamp(t *testing.T) {
	f := newSaleFixture(t, defaultParams())

	if err := f.sale.SetIGOTimestamp(alice, launch); !errors.Is(err, chain.ErrNotAdmin) {
		t.Fatalf("non-admin: want ErrNotAdmin, got %v", err)
	}
	if err := f.sale.SetIGOTimestamp(admin, launch); err != nil {
		t.Fatalf("set: %v", err)
	}

	// Adjustable while the launch lies ahead.
	moved := launch.Add(24 * time.Hour)
	if err := f.sale.SetIGOTimestamp(admin, moved); err != nil {
		t.Fatalf("move: %v", err)
	}

	f.env.SetNow(moved)
	if err := f.sale.SetIGOTimestamp(admin, moved.Add(time.Hour)); !errors.Is(err, ErrLaunchPassed) {
		t.Fatalf("after launch: want ErrLaunchPassed, got %v", err)
	}
}

func TestClaimBeforeLaunch(t *testing.T) {
	f := newSaleFixture(t, defaultParams())

	if err := f.sale.Buy(alice, big.NewInt(300)); err != nil {
		t.Fatalf("buy: %v", err)
	}

	if err := f.sale.Claim(alice); !errors.Is(err, ErrBeforeIGO) {
		t.Fatalf("unset launch: want ErrBeforeIGO, got %v", err)
	}
	if err := f.sale.SetIGOTimestamp(admin, launch); err != nil {
		t.Fatalf("set igo: %v", err)
	}
	if err := f.sale.Claim(alice); !errors.Is(err, ErrBeforeIGO) {
		t.Fatalf("future launch: want ErrBeforeIGO, got %v", err)
	}
}

func TestClaimMonthByMonth(t *testing.T) {
	f := newSaleFixture(t, defaultParams()) // unlock 0, cliff 2, vesting 3

	if err := f.sale.Buy(alice, big.NewInt(300)); err != nil {
		t.Fatalf("buy: %v", err)
	}
	if err := f.sale.SetIGOTimestamp(admin, launch); err != nil {
		t.Fatalf("set igo: %v", err)
	}

	// Inside the cliff nothing is claimable.
	f.env.SetNow(launch.Add(2 * monthDuration))
	if err := f.sale.Claim(alice); !errors.Is(err, ErrNotEnoughTokens) {
		t.Fatalf("cliff: want ErrNotEnoughTokens, got %v", err)
	}

	steps := []struct {
		month int64
		want  int64 // cumulative balance after claiming
	}{
		{3, 100},
		{4, 200},
		{5, 300},
	}
	for _, step := range steps {
		month, want := step.month, step.want
		f.env.SetNow(launch.Add(time.Duration(month) * monthDuration))
		if err := f.sale.Claim(alice); err != nil {
			t.Fatalf("claim month %d: %v", month, err)
		}
		if got := f.saleToken.BalanceOf(alice); got.Cmp(big.NewInt(want)) != 0 {
			t.Fatalf("after month %d: balance = %s, want %d", month, got, want)
		}

		// A second claim inside the same month has nothing to release.
		if err := f.sale.Claim(alice); !errors.Is(err, ErrNotEnoughTokens) {
			t.Fatalf("repeat claim month %d: want ErrNotEnoughTokens, got %v", month, err)
		}
	}

	// Past the final tranche the position is exhausted for good.
	f.env.SetNow(launch.Add(12 * monthDuration))
	if err := f.sale.Claim(alice); !errors.Is(err, ErrNotEnoughTokens) {
		t.Fatalf("exhausted: want ErrNotEnoughTokens, got %v", err)
	}
}

func TestClaimAccumulatesSkippedMonths(t *testing.T) {
	f := newSaleFixture(t, defaultParams())

	if err := f.sale.Buy(alice, big.NewInt(100)); err != nil {
		t.Fatalf("buy: %v", err)
	}
	if err := f.sale.SetIGOTimestamp(admin, launch); err != nil {
		t.Fatalf("set igo: %v", err)
	}

	var events []Event
	f.sale.OnEvent = func(ev Event) { events = append(events, ev) }

	// Claiming long after the last tranche collects everything at once.
	f.env.SetNow(launch.Add(9 * monthDuration))
	if err := f.sale.Claim(alice); err != nil {
		t.Fatalf("claim: %v", err)
	}
	if got := f.saleToken.BalanceOf(alice); got.Cmp(big.NewInt(100)) != 0 {
		t.Fatalf("balance = %s, want the full 100", got)
	}

	// One Claimed event per month that released something: 3, 4, 5.
	if len(events) != 3 {
		t.Fatalf("got %d events, want 3", len(events))
	}
	var released int64
	for i, ev := range events {
		claimed, ok := ev.(Claimed)
		if !ok {
			t.Fatalf("event %d is %T", i, ev)
		}
		if want := int64(i + 3); claimed.Month != want {
			t.Errorf("event %d month = %d, want %d", i, claimed.Month, want)
		}
		released += claimed.Amount.Int64()
	}
	if released != 100 {
		t.Errorf("events release %d in total, want 100", released)
	}
}

func TestClaimUnlockAtLaunch(t *testing.T) {
	params := defaultParams()
	params.Schedule.UnlockAtIGOPercent = 10
	f := newSaleFixture(t, params)

	if err := f.sale.Buy(alice, big.NewInt(300)); err != nil {
		t.Fatalf("buy: %v", err)
	}
	if err := f.sale.SetIGOTimestamp(admin, launch); err != nil {
		t.Fatalf("set igo: %v", err)
	}

	// The launch unlock is claimable the moment the launch instant arrives.
	f.env.SetNow(launch)
	if err := f.sale.Claim(alice); err != nil {
		t.Fatalf("claim: %v", err)
	}
	if got := f.saleToken.BalanceOf(alice); got.Cmp(big.NewInt(30)) != 0 {
		t.Fatalf("balance = %s, want the 10%% unlock of 300", got)
	}
}

func TestSalePauseGate(t *testing.T) {
	f := newSaleFixture(t, defaultParams())

	if err := f.roles.Pause(admin); err != nil {
		t.Fatalf("pause: %v", err)
	}
	if err := f.sale.Buy(alice, big.NewInt(100)); !errors.Is(err, chain.ErrPaused) {
		t.Errorf("buy while paused: want ErrPaused, got %v", err)
	}
	if err := f.sale.Claim(alice); !errors.Is(err, chain.ErrPaused) {
		t.Errorf("claim while paused: want ErrPaused, got %v", err)
	}
}

func TestSaleRestartRestoresState(t *testing.T) {
	params := defaultParams()
	env := chain.NewEnv(1, launch.Add(-30*24*time.Hour))
	roles := chain.NewRoles(admin)
	payment := token.NewFungible(paymentAddr, "MANA", 18)
	saleToken := token.NewFungible(saleTokenAddr, "GAME", 18)

	saleToken.Mint(source, params.TotalOnSale)
	saleToken.Approve(source, saleAddr, params.TotalOnSale)
	payment.Mint(alice, big.NewInt(10_000))
	payment.Approve(alice, saleAddr, big.NewInt(10_000))

	dbPath := t.TempDir()
	newSaleOver := func(store *Store) *Sale {
		s, err := NewSale(SaleConfig{
			Env:      env,
			Roles:    roles,
			Store:    store,
			Params:   params,
			Payment:  payment,
			Token:    saleToken,
			Address:  saleAddr,
			Proceeds: proceeds,
			Source:   source,
		})
		if err != nil {
			t.Fatalf("sale: %v", err)
		}
		return s
	}

	store, err := NewStore(dbPath)
	if err != nil {
		t.Fatalf("store: %v", err)
	}
	sale := newSaleOver(store)

	if err := sale.SetWhitelisted(admin, alice, true); err != nil {
		t.Fatalf("whitelist: %v", err)
	}
	if err := sale.Buy(alice, big.NewInt(250)); err != nil {
		t.Fatalf("buy: %v", err)
	}
	if err := sale.SetIGOTimestamp(admin, launch); err != nil {
		t.Fatalf("set igo: %v", err)
	}
	if err := store.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	store, err = NewStore(dbPath)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	sale = newSaleOver(store)

	rec, ok := sale.RecordOf(alice)
	if !ok {
		t.Fatal("record not restored")
	}
	if rec.Purchased.Cmp(big.NewInt(250)) != 0 {
		t.Errorf("purchased = %s, want 250", rec.Purchased)
	}
	if got := sale.Sold(); got.Cmp(big.NewInt(250)) != 0 {
		t.Errorf("sold = %s, want 250", got)
	}
	igo, set := sale.IGO()
	if !set || !igo.Equal(launch) {
		t.Errorf("igo = %v (set=%v), want %v", igo, set, launch)
	}

	// The whitelist survives too: alice may keep buying before launch.
	if err := sale.Buy(alice, big.NewInt(50)); err != nil {
		t.Fatalf("buy after restart: %v", err)
	}
}
