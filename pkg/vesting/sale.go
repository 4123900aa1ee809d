package vesting

import (
	"fmt"
	"math/big"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"github.com/hyunsoo-dev/tokenmart/pkg/chain"
)

// Token is the contract the sale requires of the payment currency and the
// distributed token. Implemented by token.Fungible.
type Token interface {
	BalanceOf(holder common.Address) *big.Int
	Allowance(owner, spender common.Address) *big.Int
	Transfer(from, to common.Address, amount *big.Int) error
	TransferFrom(spender, from, to common.Address, amount *big.Int) error
}

// Event is a sale lifecycle notification. Concrete types: IGO, Claimed.
type Event interface {
	Name() string
}

// IGO announces the launch instant.
type IGO struct {
	Timestamp time.Time `json:"timestamp"`
}

func (IGO) Name() string { return "IGO" }

// Claimed reports one vesting month's release to a buyer. A single Claim
// call emits one Claimed per month boundary it crosses.
type Claimed struct {
	Buyer  common.Address `json:"buyer"`
	Month  int64          `json:"month"`
	Amount *big.Int       `json:"amount"`
}

func (Claimed) Name() string { return "Claimed" }

// Params fixes the sale's economics. Amounts are in the sale token's base
// units; Rate is the payment-currency cost per unit sold.
type Params struct {
	TotalOnSale *big.Int
	Rate        *big.Int
	MinPerBuyer *big.Int
	MaxPerBuyer *big.Int
	Schedule    Schedule
}

func (p Params) validate() error {
	if p.TotalOnSale == nil || p.TotalOnSale.Sign() <= 0 {
		return fmt.Errorf("total on sale must be positive")
	}
	if p.Rate == nil || p.Rate.Sign() <= 0 {
		return fmt.Errorf("rate must be positive")
	}
	if p.MinPerBuyer == nil || p.MaxPerBuyer == nil || p.MinPerBuyer.Cmp(p.MaxPerBuyer) > 0 {
		return fmt.Errorf("per-buyer bounds invalid")
	}
	if p.Schedule.UnlockAtIGOPercent > 100 {
		return fmt.Errorf("unlock percent above 100")
	}
	if p.Schedule.VestingMonths == 0 {
		return fmt.Errorf("vesting period must span at least one month")
	}
	return nil
}

// Record tracks one buyer's position in the sale. Created on first purchase,
// mutated on every purchase and claim, never deleted.
type Record struct {
	Purchased *big.Int `json:"purchased"`
	Claimed   *big.Int `json:"claimed"`

	// LastClaimedMonth is the highest vesting month already settled,
	// -1 before any claim.
	LastClaimedMonth int64 `json:"lastClaimedMonth"`
}

// Sale is the distribution engine: it sells a capped allocation before
// launch and pays it out under a cliff + linear-monthly-vesting schedule
// afterwards. Independent of the order engine.
type Sale struct {
	mu sync.Mutex

	env   *chain.Env
	roles *chain.Roles
	store *Store
	log   *zap.SugaredLogger

	params  Params
	payment Token
	token   Token

	// addr is the sale's own address: token custody and required spender.
	addr common.Address
	// proceeds receives the payment currency from purchases.
	proceeds common.Address
	// source is the wallet sale tokens are pulled from at purchase time.
	source common.Address

	whitelist map[common.Address]bool
	records   map[common.Address]*Record
	sold      *big.Int

	igo    time.Time
	igoSet bool

	// OnEvent receives sale events. Sinks must not call back into the sale.
	OnEvent func(Event)
}

// SaleConfig wires the sale's collaborators.
type SaleConfig struct {
	Env      *chain.Env
	Roles    *chain.Roles
	Store    *Store
	Params   Params
	Payment  Token
	Token    Token
	Address  common.Address
	Proceeds common.Address
	Source   common.Address
	Logger   *zap.SugaredLogger
}

// NewSale builds the distribution engine, reloading purchase records, the
// whitelist, the sold counter, and the launch instant from the store.
func NewSale(cfg SaleConfig) (*Sale, error) {
	if cfg.Env == nil || cfg.Roles == nil || cfg.Store == nil || cfg.Payment == nil || cfg.Token == nil {
		return nil, fmt.Errorf("sale config missing a collaborator")
	}
	if cfg.Address == (common.Address{}) || cfg.Proceeds == (common.Address{}) || cfg.Source == (common.Address{}) {
		return nil, fmt.Errorf("sale addresses must be non-zero")
	}
	if err := cfg.Params.validate(); err != nil {
		return nil, err
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop().Sugar()
	}

	records, err := cfg.Store.LoadRecords()
	if err != nil {
		return nil, fmt.Errorf("failed to load purchase records: %w", err)
	}
	whitelist, err := cfg.Store.LoadWhitelist()
	if err != nil {
		return nil, fmt.Errorf("failed to load whitelist: %w", err)
	}
	sold, err := cfg.Store.LoadSold()
	if err != nil {
		return nil, fmt.Errorf("failed to load sold counter: %w", err)
	}
	igo, igoSet, err := cfg.Store.LoadIGO()
	if err != nil {
		return nil, fmt.Errorf("failed to load launch instant: %w", err)
	}

	s := &Sale{
		env:       cfg.Env,
		roles:     cfg.Roles,
		store:     cfg.Store,
		log:       cfg.Logger,
		params:    cfg.Params,
		payment:   cfg.Payment,
		token:     cfg.Token,
		addr:      cfg.Address,
		proceeds:  cfg.Proceeds,
		source:    cfg.Source,
		whitelist: whitelist,
		records:   records,
		sold:      sold,
		igo:       igo,
		igoSet:    igoSet,
	}
	if len(records) > 0 {
		s.log.Infow("sale_restored", "buyers", len(records), "sold", sold.String())
	}
	return s, nil
}

// Address returns the sale's own address (custody and required spender).
func (s *Sale) Address() common.Address { return s.addr }

// SetWhitelisted approves or removes a buyer. Admin only.
func (s *Sale) SetWhitelisted(caller, buyer common.Address, approved bool) error {
	if err := s.roles.RequireAdmin(caller); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.store.SaveWhitelisted(buyer, approved); err != nil {
		return err
	}
	if approved {
		s.whitelist[buyer] = true
	} else {
		delete(s.whitelist, buyer)
	}
	return nil
}

// SetIGOTimestamp fixes the launch instant. Admin only; adjustable while the
// previously set instant has not passed yet.
func (s *Sale) SetIGOTimestamp(caller common.Address, t time.Time) error {
	if err := s.roles.RequireAdmin(caller); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.igoSet && !s.env.Now().Before(s.igo) {
		return ErrLaunchPassed
	}
	if err := s.store.SaveIGO(t); err != nil {
		return err
	}
	s.igo = t
	s.igoSet = true

	s.log.Infow("igo_set", "timestamp", t)
	s.emit(IGO{Timestamp: t})
	return nil
}

// Buy purchases amount sale tokens at the configured rate. Only whitelisted
// buyers, only before launch, bounded per buyer and by the global cap.
func (s *Sale) Buy(caller common.Address, amount *big.Int) error {
	if err := s.roles.RequireNotPaused(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.whitelist[caller] {
		return ErrNotWhitelisted
	}
	if s.igoSet && !s.env.Now().Before(s.igo) {
		return ErrAfterIGO
	}
	if amount == nil || amount.Sign() <= 0 {
		return ErrBelowMinimum
	}

	rec := s.records[caller]
	purchased := new(big.Int)
	if rec != nil {
		purchased = rec.Purchased
	}
	cumulative := new(big.Int).Add(purchased, amount)
	if cumulative.Cmp(s.params.MinPerBuyer) < 0 {
		return fmt.Errorf("%w: cumulative %s below %s", ErrBelowMinimum, cumulative, s.params.MinPerBuyer)
	}
	if cumulative.Cmp(s.params.MaxPerBuyer) > 0 {
		return fmt.Errorf("%w: cumulative %s above %s", ErrAboveMaximum, cumulative, s.params.MaxPerBuyer)
	}
	if new(big.Int).Add(s.sold, amount).Cmp(s.params.TotalOnSale) > 0 {
		return fmt.Errorf("%w: %s sold of %s", ErrSaleExhausted, s.sold, s.params.TotalOnSale)
	}

	cost := new(big.Int).Mul(amount, s.params.Rate)

	// Validate both pulls before mutating anything.
	if s.payment.BalanceOf(caller).Cmp(cost) < 0 {
		return fmt.Errorf("payment: %s short of %s", s.payment.BalanceOf(caller), cost)
	}
	if s.payment.Allowance(caller, s.addr).Cmp(cost) < 0 {
		return fmt.Errorf("payment allowance below %s", cost)
	}
	if s.token.BalanceOf(s.source).Cmp(amount) < 0 {
		return fmt.Errorf("token source short of %s", amount)
	}
	if s.token.Allowance(s.source, s.addr).Cmp(amount) < 0 {
		return fmt.Errorf("token source allowance below %s", amount)
	}

	if rec == nil {
		rec = &Record{Purchased: new(big.Int), Claimed: new(big.Int), LastClaimedMonth: -1}
	}
	next := &Record{
		Purchased:        cumulative,
		Claimed:          new(big.Int).Set(rec.Claimed),
		LastClaimedMonth: rec.LastClaimedMonth,
	}
	nextSold := new(big.Int).Add(s.sold, amount)
	if err := s.store.SaveRecord(caller, next, nextSold); err != nil {
		return err
	}
	s.records[caller] = next
	s.sold = nextSold

	if err := s.payment.TransferFrom(s.addr, caller, s.proceeds, cost); err != nil {
		return fmt.Errorf("payment pull: %w", err)
	}
	if err := s.token.TransferFrom(s.addr, s.source, s.addr, amount); err != nil {
		return fmt.Errorf("token custody pull: %w", err)
	}

	s.log.Infow("sale_purchase",
		"buyer", caller.Hex(),
		"amount", amount.String(),
		"cost", cost.String(),
		"cumulative", cumulative.String(),
		"sold", s.sold.String())
	return nil
}

// Claim releases every vesting month the caller has reached but not yet
// collected, in one transfer. Skipped months accumulate; claiming again
// before the next month boundary fails.
func (s *Sale) Claim(caller common.Address) error {
	if err := s.roles.RequireNotPaused(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.igoSet || s.env.Now().Before(s.igo) {
		return ErrBeforeIGO
	}

	rec := s.records[caller]
	if rec == nil || rec.Purchased.Sign() == 0 {
		return ErrNotEnoughTokens
	}

	month := elapsedMonths(s.igo, s.env.Now())
	if last := s.params.Schedule.lastMonth(); month > last {
		month = last
	}

	target := s.params.Schedule.vestedThrough(rec.Purchased, month)
	due := new(big.Int).Sub(target, rec.Claimed)
	if due.Sign() <= 0 {
		return ErrNotEnoughTokens
	}

	next := &Record{
		Purchased:        new(big.Int).Set(rec.Purchased),
		Claimed:          target,
		LastClaimedMonth: month,
	}
	if err := s.store.SaveRecord(caller, next, s.sold); err != nil {
		return err
	}
	firstUnclaimed := rec.LastClaimedMonth + 1
	s.records[caller] = next

	if err := s.token.Transfer(s.addr, caller, due); err != nil {
		return fmt.Errorf("claim transfer: %w", err)
	}

	s.log.Infow("sale_claim",
		"buyer", caller.Hex(),
		"through_month", month,
		"released", due.String(),
		"claimed_total", target.String())

	// One event per month boundary crossed, skipping months that release
	// nothing (pre-cliff months, or month 0 with no launch unlock).
	for m := firstUnclaimed; m <= month; m++ {
		release := s.params.Schedule.releaseAt(rec.Purchased, m)
		if release.Sign() == 0 {
			continue
		}
		s.emit(Claimed{Buyer: caller, Month: m, Amount: release})
	}
	return nil
}

// RecordOf returns a copy of a buyer's purchase record.
func (s *Sale) RecordOf(buyer common.Address) (Record, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.records[buyer]
	if !ok {
		return Record{}, false
	}
	return Record{
		Purchased:        new(big.Int).Set(rec.Purchased),
		Claimed:          new(big.Int).Set(rec.Claimed),
		LastClaimedMonth: rec.LastClaimedMonth,
	}, true
}

// Sold returns the global sold counter.
func (s *Sale) Sold() *big.Int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return new(big.Int).Set(s.sold)
}

// IGO returns the launch instant; ok is false while unset.
func (s *Sale) IGO() (time.Time, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.igo, s.igoSet
}

// Params returns the sale's economics.
func (s *Sale) Params() Params { return s.params }

func (s *Sale) emit(ev Event) {
	if s.OnEvent != nil {
		s.OnEvent(ev)
	}
}
