package main

import (
	"context"
	"log"
	"math/big"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"github.com/hyunsoo-dev/tokenmart/params"
	"github.com/hyunsoo-dev/tokenmart/pkg/api"
	"github.com/hyunsoo-dev/tokenmart/pkg/chain"
	"github.com/hyunsoo-dev/tokenmart/pkg/market"
	"github.com/hyunsoo-dev/tokenmart/pkg/token"
	"github.com/hyunsoo-dev/tokenmart/pkg/util"
	"github.com/hyunsoo-dev/tokenmart/pkg/vesting"
)

// Well-known addresses for the standalone deployment. In a chain-backed
// deployment these come from contract deployment, not constants.
var (
	adminAddr       = common.HexToAddress("0x00000000000000000000000000000000000000a1")
	marketplaceAddr = common.HexToAddress("0x00000000000000000000000000000000000000d1")
	beneficiaryAddr = common.HexToAddress("0x00000000000000000000000000000000000000f1")
	saleAddr        = common.HexToAddress("0x00000000000000000000000000000000000000d2")
	proceedsAddr    = common.HexToAddress("0x00000000000000000000000000000000000000f2")
	sourceAddr      = common.HexToAddress("0x00000000000000000000000000000000000000f3")

	paymentTokenAddr = common.HexToAddress("0x00000000000000000000000000000000000000c1")
	saleTokenAddr    = common.HexToAddress("0x00000000000000000000000000000000000000c2")
	collectibleAddr  = common.HexToAddress("0x00000000000000000000000000000000000000c3")
)

func main() {
	// Load config from .env file and environment variables
	cfg := params.LoadFromEnv("")

	// Setup logging (write to both console and file)
	logFile := os.Getenv("LOG_FILE")
	if logFile == "" {
		logFile = filepath.Join(cfg.Node.DataDir, "marketd.log")
	}

	logger, err := util.NewLoggerWithFile(logFile)
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer logger.Sync()
	sugar := logger.Sugar()
	sugar.Infow("logger_initialized", "log_file", logFile)

	// ---- Execution environment ----
	env := chain.NewEnv(0, time.Now().UTC())
	roles := chain.NewRoles(adminAddr)

	// ---- Token ledgers ----
	payment := token.NewFungible(paymentTokenAddr, "MANA", 18)
	saleToken := token.NewFungible(saleTokenAddr, "GAME", 18)
	collectibles := token.NewNonFungible(collectibleAddr, "LAND")

	tokens := market.NewTokens()
	tokens.AddFungible(paymentTokenAddr, payment)
	tokens.AddFungible(saleTokenAddr, saleToken)
	tokens.AddNonFungible(collectibleAddr, collectibles)

	// Genesis: fund the sale source with the full allocation and approve the
	// sale engine to pull from it.
	saleToken.Mint(sourceAddr, new(big.Int).SetInt64(cfg.Sale.TotalOnSale))
	saleToken.Approve(sourceAddr, saleAddr, new(big.Int).SetInt64(cfg.Sale.TotalOnSale))

	// ---- Marketplace ----
	registry := market.NewAssetRegistry(roles)
	if err := registry.SetRegistry(adminAddr, map[common.Address]market.AssetKind{
		collectibleAddr: market.NonFungibleAsset,
		saleTokenAddr:   market.FungibleAsset,
	}); err != nil {
		sugar.Fatalw("registry_init_failed", "err", err)
	}

	fees, err := market.NewFeePolicy(roles, paymentTokenAddr, beneficiaryAddr,
		cfg.Market.OwnerCutPerMillion, big.NewInt(cfg.Market.PublicationFee))
	if err != nil {
		sugar.Fatalw("fee_policy_init_failed", "err", err)
	}

	marketStore, err := market.NewStore(filepath.Join(cfg.Node.DataDir, "market"))
	if err != nil {
		sugar.Fatalw("market_store_open_failed", "err", err)
	}
	defer marketStore.Close()

	engine, err := market.NewEngine(market.EngineConfig{
		Env:         env,
		Roles:       roles,
		Registry:    registry,
		Fees:        fees,
		Tokens:      tokens,
		Store:       marketStore,
		Address:     marketplaceAddr,
		GracePeriod: cfg.Market.GracePeriodBlocks,
		Logger:      sugar,
	})
	if err != nil {
		sugar.Fatalw("engine_init_failed", "err", err)
	}

	// ---- Distribution sale ----
	saleStore, err := vesting.NewStore(filepath.Join(cfg.Node.DataDir, "sale"))
	if err != nil {
		sugar.Fatalw("sale_store_open_failed", "err", err)
	}
	defer saleStore.Close()

	sale, err := vesting.NewSale(vesting.SaleConfig{
		Env:   env,
		Roles: roles,
		Store: saleStore,
		Params: vesting.Params{
			TotalOnSale: new(big.Int).SetInt64(cfg.Sale.TotalOnSale),
			Rate:        new(big.Int).SetInt64(cfg.Sale.Rate),
			MinPerBuyer: new(big.Int).SetInt64(cfg.Sale.MinPerBuyer),
			MaxPerBuyer: new(big.Int).SetInt64(cfg.Sale.MaxPerBuyer),
			Schedule: vesting.Schedule{
				UnlockAtIGOPercent: cfg.Sale.UnlockAtIGOPercent,
				CliffMonths:        cfg.Sale.CliffMonths,
				VestingMonths:      cfg.Sale.VestingMonths,
			},
		},
		Payment:  payment,
		Token:    saleToken,
		Address:  saleAddr,
		Proceeds: proceedsAddr,
		Source:   sourceAddr,
		Logger:   sugar,
	})
	if err != nil {
		sugar.Fatalw("sale_init_failed", "err", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// ---- API Server ----
	apiServer := api.NewServer(engine, registry, fees, sale, env, roles, sugar)

	// Hook engines to the API server: push lifecycle events to subscribers
	engine.OnEvent = apiServer.BroadcastMarketEvent
	sale.OnEvent = apiServer.BroadcastSaleEvent

	go func() {
		if err := apiServer.Start(cfg.Node.APIAddr); err != nil {
			sugar.Fatalw("api_server_failed", "err", err)
		}
	}()

	sugar.Infow("marketd_starting",
		"data_dir", cfg.Node.DataDir,
		"api_addr", cfg.Node.APIAddr,
		"block_time_ms", cfg.Node.BlockTime.Milliseconds(),
		"owner_cut_ppm", cfg.Market.OwnerCutPerMillion,
		"grace_period_blocks", cfg.Market.GracePeriodBlocks,
		"live_orders", engine.Count())

	// ---- Block loop ----
	// The execution environment advances one block per tick; engines read it,
	// nothing else touches it.
	var clock util.Clock = util.RealClock{}

	logInterval := uint64(100)
	var lastLoggedBlock uint64

	for {
		select {
		case <-ctx.Done():
			sugar.Infow("marketd_stopping", "block", env.Block())
			return
		case now := <-clock.After(cfg.Node.BlockTime):
			env.Tick(now.UTC())
			if block := env.Block(); block-lastLoggedBlock >= logInterval {
				sugar.Infow("block_progress", "block", block, "orders", engine.Count())
				lastLoggedBlock = block
			}
		}
	}
}
