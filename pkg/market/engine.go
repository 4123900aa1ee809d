package market

import (
	"fmt"
	"math/big"
	"sort"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"github.com/hyunsoo-dev/tokenmart/pkg/chain"
)

// Engine is the order book: it owns the order table and runs the order
// lifecycle (Open -> Executed | Cancelled, both terminal). Every entry point
// snapshots the chain environment once, validates fully before mutating, and
// either applies the whole call or none of it.
type Engine struct {
	mu sync.Mutex

	env      *chain.Env
	roles    *chain.Roles
	registry *AssetRegistry
	fees     *FeePolicy
	tokens   TokenResolver
	store    *Store
	log      *zap.SugaredLogger

	// addr identifies the marketplace itself: the spender that asset and
	// payment approvals must name.
	addr common.Address

	orders map[uint64]*Order
	nextID uint64
	shield shield

	// OnEvent receives lifecycle events. Sinks must not call back into
	// the engine.
	OnEvent func(Event)
}

// EngineConfig wires the engine's collaborators.
type EngineConfig struct {
	Env         *chain.Env
	Roles       *chain.Roles
	Registry    *AssetRegistry
	Fees        *FeePolicy
	Tokens      TokenResolver
	Store       *Store
	Address     common.Address
	GracePeriod uint64
	Logger      *zap.SugaredLogger
}

// NewEngine builds the order engine, reloading live orders and the next
// order id from the store so identity stays monotonic across restarts.
func NewEngine(cfg EngineConfig) (*Engine, error) {
	if cfg.Env == nil || cfg.Roles == nil || cfg.Registry == nil || cfg.Fees == nil || cfg.Tokens == nil || cfg.Store == nil {
		return nil, fmt.Errorf("engine config missing a collaborator")
	}
	if cfg.Address == (common.Address{}) {
		return nil, fmt.Errorf("marketplace address must be non-zero")
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop().Sugar()
	}

	e := &Engine{
		env:      cfg.Env,
		roles:    cfg.Roles,
		registry: cfg.Registry,
		fees:     cfg.Fees,
		tokens:   cfg.Tokens,
		store:    cfg.Store,
		log:      cfg.Logger,
		addr:     cfg.Address,
		orders:   make(map[uint64]*Order),
		shield:   newShield(cfg.GracePeriod),
	}

	orders, err := cfg.Store.LoadOrders()
	if err != nil {
		return nil, fmt.Errorf("failed to load orders: %w", err)
	}
	for _, o := range orders {
		e.orders[o.ID] = o
	}

	shields, err := cfg.Store.LoadShields()
	if err != nil {
		return nil, fmt.Errorf("failed to load shield entries: %w", err)
	}
	for id, entry := range shields {
		if _, live := e.orders[id]; live {
			e.shield.entries[id] = entry
		}
	}

	nextID, err := cfg.Store.LoadNextID()
	if err != nil {
		return nil, fmt.Errorf("failed to load order sequence: %w", err)
	}
	e.nextID = nextID

	if len(e.orders) > 0 {
		e.log.Infow("order_book_restored", "orders", len(e.orders), "next_id", e.nextID)
	}
	return e, nil
}

// Address returns the marketplace's own address (the required spender).
func (e *Engine) Address() common.Address { return e.addr }

// CreateOrder publishes a public listing and returns its order id.
func (e *Engine) CreateOrder(caller, assetAddress common.Address, assetID, amount, price *big.Int) (uint64, error) {
	return e.createOrder(caller, assetAddress, assetID, amount, price, common.Address{})
}

// CreatePrivateOrder publishes a listing executable only by buyer.
func (e *Engine) CreatePrivateOrder(caller, assetAddress common.Address, assetID, amount, price *big.Int, buyer common.Address) (uint64, error) {
	return e.createOrder(caller, assetAddress, assetID, amount, price, buyer)
}

func (e *Engine) createOrder(caller, assetAddress common.Address, assetID, amount, price *big.Int, privateBuyer common.Address) (uint64, error) {
	if err := e.roles.RequireNotPaused(); err != nil {
		return 0, err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	kind := e.registry.Kind(assetAddress)
	if kind == Unregistered {
		return 0, fmt.Errorf("%w: %s", ErrUnregisteredAsset, assetAddress.Hex())
	}
	if price == nil || price.Sign() <= 0 {
		return 0, ErrInvalidPrice
	}
	if assetID == nil {
		assetID = new(big.Int)
	}
	if amount == nil || amount.Sign() <= 0 {
		return 0, ErrInvalidAmount
	}

	switch kind {
	case NonFungibleAsset:
		if err := e.validateNonFungibleListing(caller, assetAddress, assetID, amount); err != nil {
			return 0, err
		}
	case FungibleAsset:
		if err := e.validateFungibleListing(caller, assetAddress, assetID, amount); err != nil {
			return 0, err
		}
	}

	if err := e.checkPublicationFee(caller); err != nil {
		return 0, err
	}

	id := e.nextID
	order := &Order{
		ID:             id,
		Seller:         caller,
		AssetAddress:   assetAddress,
		AssetID:        new(big.Int).Set(assetID),
		Amount:         new(big.Int).Set(amount),
		Price:          new(big.Int).Set(price),
		CreatedAtBlock: e.env.Block(),
	}
	entry := e.shield.arm(id, order.CreatedAtBlock, privateBuyer)

	if err := e.store.SaveOrder(order, entry, id+1); err != nil {
		e.shield.disarm(id)
		return 0, err
	}
	e.orders[id] = order
	e.nextID = id + 1

	// Prevalidated above; pulling after the order is durable keeps a store
	// failure from charging a fee for an unpublished listing.
	if err := e.chargePublicationFee(caller); err != nil {
		return 0, err
	}

	e.log.Infow("order_created",
		"id", id,
		"seller", caller.Hex(),
		"asset", assetAddress.Hex(),
		"asset_id", assetID.String(),
		"amount", amount.String(),
		"price", price.String(),
		"allowed_block", entry.AllowedBlock,
		"private", privateBuyer != common.Address{})

	e.emit(OrderCreated{
		ID:           id,
		AssetID:      order.AssetID,
		Seller:       order.Seller,
		Amount:       order.Amount,
		AssetAddress: order.AssetAddress,
		Price:        order.Price,
	})
	return id, nil
}

func (e *Engine) validateNonFungibleListing(caller, assetAddress common.Address, assetID, amount *big.Int) error {
	if amount.Cmp(big.NewInt(1)) != 0 {
		return fmt.Errorf("%w: non-fungible listings carry exactly one token", ErrInvalidAmount)
	}
	nft, ok := e.tokens.NonFungible(assetAddress)
	if !ok {
		return fmt.Errorf("%w: no non-fungible account at %s", ErrUnregisteredAsset, assetAddress.Hex())
	}
	owner, err := nft.OwnerOf(assetID)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrNotOwner, err)
	}
	if owner != caller {
		return fmt.Errorf("%w: token #%s belongs to %s", ErrNotOwner, assetID, owner.Hex())
	}
	approved, err := nft.GetApproved(assetID)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrMarketplaceUnauthorized, err)
	}
	if approved != e.addr {
		return fmt.Errorf("%w: token #%s not approved for the marketplace", ErrMarketplaceUnauthorized, assetID)
	}
	return nil
}

func (e *Engine) validateFungibleListing(caller, assetAddress common.Address, assetID, amount *big.Int) error {
	if assetID.Sign() != 0 {
		return ErrInvalidAssetID
	}
	ft, ok := e.tokens.Fungible(assetAddress)
	if !ok {
		return fmt.Errorf("%w: no fungible account at %s", ErrUnregisteredAsset, assetAddress.Hex())
	}
	if ft.BalanceOf(caller).Cmp(amount) < 0 {
		return fmt.Errorf("%w: listing %s", ErrInsufficientBalance, amount)
	}
	// A whole-unit denomination of 10^decimals keeps fractional-precision
	// assets from being listed in sub-unit slivers; zero-decimal assets
	// accept any positive integer.
	granularity := wholeUnit(ft.Decimals())
	if new(big.Int).Mod(amount, granularity).Sign() != 0 {
		return fmt.Errorf("%w: amount %s, unit %s", ErrInvalidAmountGranularity, amount, granularity)
	}
	if ft.Allowance(caller, e.addr).Cmp(amount) < 0 {
		return fmt.Errorf("%w: allowance below %s", ErrMarketplaceUnauthorized, amount)
	}
	return nil
}

// checkPublicationFee validates the listing-fee pull without performing it.
// Skipped entirely while the fee is zero.
func (e *Engine) checkPublicationFee(seller common.Address) error {
	fee := e.fees.PublicationFee()
	if fee.Sign() == 0 {
		return nil
	}
	payment, ok := e.tokens.Fungible(e.fees.PaymentToken())
	if !ok {
		return fmt.Errorf("payment currency %s has no account", e.fees.PaymentToken().Hex())
	}
	if payment.BalanceOf(seller).Cmp(fee) < 0 {
		return fmt.Errorf("%w: publication fee %s", ErrInsufficientBalance, fee)
	}
	if payment.Allowance(seller, e.addr).Cmp(fee) < 0 {
		return fmt.Errorf("%w: publication fee allowance below %s", ErrMarketplaceUnauthorized, fee)
	}
	return nil
}

// chargePublicationFee pulls the flat listing fee from the seller to the fee
// beneficiary. Callers prevalidate with checkPublicationFee first.
func (e *Engine) chargePublicationFee(seller common.Address) error {
	fee := e.fees.PublicationFee()
	if fee.Sign() == 0 {
		return nil
	}
	payment, ok := e.tokens.Fungible(e.fees.PaymentToken())
	if !ok {
		return fmt.Errorf("payment currency %s has no account", e.fees.PaymentToken().Hex())
	}
	if err := payment.TransferFrom(e.addr, seller, e.fees.Beneficiary(), fee); err != nil {
		return fmt.Errorf("publication fee: %w", err)
	}
	return nil
}

// ExecuteOrder settles a live order: payment moves buyer -> seller (minus the
// owner cut, which goes to the fee beneficiary) and the asset moves
// seller -> buyer. The order record is removed before any transfer runs.
func (e *Engine) ExecuteOrder(caller common.Address, orderID uint64) error {
	if err := e.roles.RequireNotPaused(); err != nil {
		return err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	order, ok := e.orders[orderID]
	if !ok {
		return fmt.Errorf("%w: %d", ErrInvalidOrderIndex, orderID)
	}
	if caller == order.Seller {
		return ErrSelfTrade
	}
	if err := e.shield.check(orderID, e.env.Block(), caller); err != nil {
		return err
	}

	kind := e.registry.Kind(order.AssetAddress)
	if kind == Unregistered {
		return fmt.Errorf("%w: %s", ErrUnregisteredAsset, order.AssetAddress.Hex())
	}

	payment, ok := e.tokens.Fungible(e.fees.PaymentToken())
	if !ok {
		return fmt.Errorf("payment currency %s has no account", e.fees.PaymentToken().Hex())
	}

	cut := e.fees.CutFor(order.Price)
	sellerProceeds := new(big.Int).Sub(order.Price, cut)

	// Validate every transfer before mutating anything, so a failed call
	// leaves no partial state.
	if payment.BalanceOf(caller).Cmp(order.Price) < 0 {
		return fmt.Errorf("%w: payment for order %d", ErrInsufficientBalance, orderID)
	}
	if payment.Allowance(caller, e.addr).Cmp(order.Price) < 0 {
		return fmt.Errorf("%w: payment allowance for order %d", ErrMarketplaceUnauthorized, orderID)
	}

	var nft NonFungibleToken
	var ft FungibleToken
	switch kind {
	case NonFungibleAsset:
		nft, ok = e.tokens.NonFungible(order.AssetAddress)
		if !ok {
			return fmt.Errorf("%w: no non-fungible account at %s", ErrUnregisteredAsset, order.AssetAddress.Hex())
		}
		owner, err := nft.OwnerOf(order.AssetID)
		if err != nil || owner != order.Seller {
			return fmt.Errorf("%w: token #%s", ErrSellerNoLongerOwner, order.AssetID)
		}
		approved, err := nft.GetApproved(order.AssetID)
		if err != nil || approved != e.addr {
			return fmt.Errorf("%w: token #%s approval revoked", ErrMarketplaceUnauthorized, order.AssetID)
		}
	case FungibleAsset:
		ft, ok = e.tokens.Fungible(order.AssetAddress)
		if !ok {
			return fmt.Errorf("%w: no fungible account at %s", ErrUnregisteredAsset, order.AssetAddress.Hex())
		}
		if ft.BalanceOf(order.Seller).Cmp(order.Amount) < 0 {
			return fmt.Errorf("%w: order %d", ErrSellerInsufficientBalance, orderID)
		}
		if ft.Allowance(order.Seller, e.addr).Cmp(order.Amount) < 0 {
			return fmt.Errorf("%w: seller allowance revoked", ErrMarketplaceUnauthorized)
		}
	}

	// Effects before interactions: the order leaves the book first.
	if err := e.removeOrder(orderID); err != nil {
		return err
	}

	if sellerProceeds.Sign() > 0 {
		if err := payment.TransferFrom(e.addr, caller, order.Seller, sellerProceeds); err != nil {
			return fmt.Errorf("payment to seller: %w", err)
		}
	}
	if cut.Sign() > 0 {
		if err := payment.TransferFrom(e.addr, caller, e.fees.Beneficiary(), cut); err != nil {
			return fmt.Errorf("owner cut: %w", err)
		}
	}
	switch kind {
	case NonFungibleAsset:
		if err := nft.TransferFrom(e.addr, order.Seller, caller, order.AssetID); err != nil {
			return fmt.Errorf("asset transfer: %w", err)
		}
	case FungibleAsset:
		if err := ft.TransferFrom(e.addr, order.Seller, caller, order.Amount); err != nil {
			return fmt.Errorf("asset transfer: %w", err)
		}
	}

	e.log.Infow("order_executed",
		"id", orderID,
		"seller", order.Seller.Hex(),
		"buyer", caller.Hex(),
		"price", order.Price.String(),
		"owner_cut", cut.String())

	e.emit(OrderExecuted{
		ID:           orderID,
		AssetID:      order.AssetID,
		Seller:       order.Seller,
		Amount:       order.Amount,
		AssetAddress: order.AssetAddress,
		Price:        order.Price,
		Buyer:        caller,
	})
	return nil
}

// CancelOrder removes a live order. Only the seller or an admin may cancel.
func (e *Engine) CancelOrder(caller common.Address, orderID uint64) error {
	if err := e.roles.RequireNotPaused(); err != nil {
		return err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	order, ok := e.orders[orderID]
	if !ok {
		return fmt.Errorf("%w: %d", ErrInvalidOrderIndex, orderID)
	}
	if caller != order.Seller && !e.roles.IsAdmin(caller) {
		return ErrUnauthorized
	}

	if err := e.removeOrder(orderID); err != nil {
		return err
	}

	e.log.Infow("order_cancelled", "id", orderID, "by", caller.Hex())

	e.emit(OrderCancelled{
		ID:           orderID,
		AssetID:      order.AssetID,
		Seller:       order.Seller,
		Amount:       order.Amount,
		AssetAddress: order.AssetAddress,
	})
	return nil
}

// removeOrder deletes an order and its shield entry from memory and the
// store. Caller holds the lock.
func (e *Engine) removeOrder(orderID uint64) error {
	if err := e.store.DeleteOrder(orderID); err != nil {
		return err
	}
	delete(e.orders, orderID)
	e.shield.disarm(orderID)
	return nil
}

// GetOrder returns a copy of a live order.
func (e *Engine) GetOrder(orderID uint64) (Order, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	order, ok := e.orders[orderID]
	if !ok {
		return Order{}, false
	}
	return *order, true
}

// ListOrders returns copies of all live orders in id order.
func (e *Engine) ListOrders() []Order {
	e.mu.Lock()
	defer e.mu.Unlock()
	orders := make([]Order, 0, len(e.orders))
	for _, o := range e.orders {
		orders = append(orders, *o)
	}
	sort.Slice(orders, func(i, j int) bool { return orders[i].ID < orders[j].ID })
	return orders
}

// Count returns the number of live orders.
func (e *Engine) Count() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.orders)
}

func (e *Engine) emit(ev Event) {
	if e.OnEvent != nil {
		e.OnEvent(ev)
	}
}

// wholeUnit returns 10^decimals.
func wholeUnit(decimals uint8) *big.Int {
	return new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(decimals)), nil)
}
