package params

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Market holds marketplace fee and anti-front-running parameters.
type Market struct {
	// OwnerCutPerMillion is the operator's share of every executed trade,
	// in parts per million of the sale price (0..999_999).
	OwnerCutPerMillion uint64
	// PublicationFee is the flat listing fee charged in payment-currency
	// base units at order creation. Zero disables the fee pull.
	PublicationFee int64
	// GracePeriodBlocks is the minimum number of blocks between an order's
	// creation and its eligibility for execution.
	GracePeriodBlocks uint64
}

// Sale holds the token-distribution (vesting sale) parameters.
// All token amounts are in the sale token's base units.
type Sale struct {
	TotalOnSale        int64
	Rate               int64 // payment-currency cost per unit sold
	MinPerBuyer        int64
	MaxPerBuyer        int64
	UnlockAtIGOPercent uint64 // 0..100, released at launch
	CliffMonths        uint64
	VestingMonths      uint64
}

type Node struct {
	DataDir string
	APIAddr string
	// BlockTime paces the simulated block counter when running marketd
	// standalone. Tests drive the block counter directly instead.
	BlockTime time.Duration
}

type Config struct {
	Market Market
	Sale   Sale
	Node   Node
}

func Default() Config {
	return Config{
		Market: Market{
			OwnerCutPerMillion: 25_000, // 2.5%
			PublicationFee:     0,
			GracePeriodBlocks:  0,
		},
		Sale: Sale{
			TotalOnSale:        1_000_000,
			Rate:               10,
			MinPerBuyer:        100,
			MaxPerBuyer:        50_000,
			UnlockAtIGOPercent: 10,
			CliffMonths:        2,
			VestingMonths:      10,
		},
		Node: Node{
			DataDir:   "data",
			APIAddr:   ":8080",
			BlockTime: time.Second,
		},
	}
}

// LoadFromEnv loads configuration from a .env file (if present) and
// environment variables. Priority: ENV > .env file > defaults.
func LoadFromEnv(envPath string) Config {
	cfg := Default()

	if envPath != "" {
		_ = godotenv.Load(envPath)
	} else {
		_ = godotenv.Load()
	}

	if v, ok := envUint("OWNER_CUT_PPM"); ok {
		cfg.Market.OwnerCutPerMillion = v
	}
	if v, ok := envInt("PUBLICATION_FEE"); ok {
		cfg.Market.PublicationFee = v
	}
	if v, ok := envUint("GRACE_PERIOD_BLOCKS"); ok {
		cfg.Market.GracePeriodBlocks = v
	}

	if v, ok := envInt("SALE_TOTAL"); ok {
		cfg.Sale.TotalOnSale = v
	}
	if v, ok := envInt("SALE_RATE"); ok {
		cfg.Sale.Rate = v
	}
	if v, ok := envInt("SALE_MIN_PER_BUYER"); ok {
		cfg.Sale.MinPerBuyer = v
	}
	if v, ok := envInt("SALE_MAX_PER_BUYER"); ok {
		cfg.Sale.MaxPerBuyer = v
	}
	if v, ok := envUint("SALE_UNLOCK_AT_IGO_PCT"); ok {
		cfg.Sale.UnlockAtIGOPercent = v
	}
	if v, ok := envUint("SALE_CLIFF_MONTHS"); ok {
		cfg.Sale.CliffMonths = v
	}
	if v, ok := envUint("SALE_VESTING_MONTHS"); ok {
		cfg.Sale.VestingMonths = v
	}

	if dir := os.Getenv("DATA_DIR"); dir != "" {
		cfg.Node.DataDir = dir
	}
	if addr := os.Getenv("API_ADDR"); addr != "" {
		cfg.Node.APIAddr = addr
	}
	if v, ok := envInt("BLOCK_TIME_MS"); ok {
		cfg.Node.BlockTime = time.Duration(v) * time.Millisecond
	}

	return cfg
}

func envInt(key string) (int64, bool) {
	s := os.Getenv(key)
	if s == "" {
		return 0, false
	}
	v, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

func envUint(key string) (uint64, bool) {
	s := os.Getenv(key)
	if s == "" {
		return 0, false
	}
	v, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}
