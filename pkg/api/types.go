package api

// OrderInfo is the REST/WebSocket representation of a live order.
// Big-integer fields travel as decimal strings.
type OrderInfo struct {
	ID             uint64 `json:"id"`
	Seller         string `json:"seller"`
	AssetAddress   string `json:"assetAddress"`
	AssetID        string `json:"assetId"`
	Amount         string `json:"amount"`
	Price          string `json:"price"`
	CreatedAtBlock uint64 `json:"createdAtBlock"`
	AllowedBlock   uint64 `json:"allowedBlock"`
	PrivateBuyer   string `json:"privateBuyer,omitempty"`
}

// FeeInfo describes the active fee policy.
type FeeInfo struct {
	PaymentToken       string `json:"paymentToken"`
	Beneficiary        string `json:"beneficiary"`
	OwnerCutPerMillion uint64 `json:"ownerCutPerMillion"`
	PublicationFee     string `json:"publicationFee"`
	GracePeriodBlocks  uint64 `json:"gracePeriodBlocks"`
}

// RegistryEntry is one asset registration.
type RegistryEntry struct {
	Address string `json:"address"`
	Kind    string `json:"kind"`
}

// SaleInfo describes the distribution sale's parameters and progress.
type SaleInfo struct {
	TotalOnSale        string `json:"totalOnSale"`
	Sold               string `json:"sold"`
	Rate               string `json:"rate"`
	MinPerBuyer        string `json:"minPerBuyer"`
	MaxPerBuyer        string `json:"maxPerBuyer"`
	UnlockAtIGOPercent uint64 `json:"unlockAtIgoPercent"`
	CliffMonths        uint64 `json:"cliffMonths"`
	VestingMonths      uint64 `json:"vestingMonths"`
	IGO                string `json:"igo,omitempty"`
}

// RecordInfo is a buyer's purchase record.
type RecordInfo struct {
	Buyer            string `json:"buyer"`
	Purchased        string `json:"purchased"`
	Claimed          string `json:"claimed"`
	LastClaimedMonth int64  `json:"lastClaimedMonth"`
}

// ChainStatus reports the execution environment's snapshot.
type ChainStatus struct {
	Block  uint64 `json:"block"`
	Time   string `json:"time"`
	Orders int    `json:"orders"`
	Paused bool   `json:"paused"`
}

// EventMessage wraps a lifecycle event for the WebSocket feed.
type EventMessage struct {
	Type    string      `json:"type"`
	Event   string      `json:"event"`
	Payload interface{} `json:"payload"`
}

// WSSubscribeRequest is the client -> server subscription frame.
type WSSubscribeRequest struct {
	Op       string   `json:"op"` // "subscribe" | "unsubscribe"
	Channels []string `json:"channels"`
}

type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}
