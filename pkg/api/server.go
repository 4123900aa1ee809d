package api

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/gorilla/mux"
	"github.com/rs/cors"
	"go.uber.org/zap"

	"github.com/hyunsoo-dev/tokenmart/pkg/chain"
	"github.com/hyunsoo-dev/tokenmart/pkg/market"
	"github.com/hyunsoo-dev/tokenmart/pkg/vesting"
)

// Server exposes the read-only REST API and the WebSocket event feed.
// All mutation goes through the engines directly; the API is a window.
type Server struct {
	engine   *market.Engine
	registry *market.AssetRegistry
	fees     *market.FeePolicy
	sale     *vesting.Sale
	env      *chain.Env
	roles    *chain.Roles

	router *mux.Router
	hub    *Hub
	log    *zap.SugaredLogger
}

func NewServer(engine *market.Engine, registry *market.AssetRegistry, fees *market.FeePolicy, sale *vesting.Sale, env *chain.Env, roles *chain.Roles, log *zap.SugaredLogger) *Server {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	s := &Server{
		engine:   engine,
		registry: registry,
		fees:     fees,
		sale:     sale,
		env:      env,
		roles:    roles,
		router:   mux.NewRouter(),
		hub:      NewHub(log),
		log:      log,
	}
	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	api := s.router.PathPrefix("/api/v1").Subrouter()

	api.HandleFunc("/orders", s.handleListOrders).Methods("GET")
	api.HandleFunc("/orders/{id}", s.handleGetOrder).Methods("GET")
	api.HandleFunc("/fees", s.handleGetFees).Methods("GET")
	api.HandleFunc("/registry", s.handleGetRegistry).Methods("GET")
	api.HandleFunc("/sale", s.handleGetSale).Methods("GET")
	api.HandleFunc("/sale/records/{address}", s.handleGetRecord).Methods("GET")
	api.HandleFunc("/chain/status", s.handleGetChainStatus).Methods("GET")

	s.router.HandleFunc("/ws", s.handleWebSocket)
	s.router.HandleFunc("/health", s.handleHealth).Methods("GET")
}

// Start runs the hub and serves HTTP on addr. Blocks.
func (s *Server) Start(addr string) error {
	go s.hub.Run()

	c := cors.New(cors.Options{
		AllowedOrigins:   []string{"http://localhost:3000", "http://localhost:3001"},
		AllowedMethods:   []string{"GET", "OPTIONS"},
		AllowedHeaders:   []string{"Content-Type", "Authorization"},
		AllowCredentials: true,
	})

	s.log.Infow("api_server_starting", "addr", addr)
	return http.ListenAndServe(addr, c.Handler(s.router))
}

// BroadcastMarketEvent pushes a marketplace lifecycle event to subscribers
// of the "market" channel. Wire it to Engine.OnEvent.
func (s *Server) BroadcastMarketEvent(ev market.Event) {
	s.hub.BroadcastToChannel("market", EventMessage{Type: "event", Event: ev.Name(), Payload: ev})
}

// BroadcastSaleEvent pushes a sale lifecycle event to subscribers of the
// "sale" channel. Wire it to Sale.OnEvent.
func (s *Server) BroadcastSaleEvent(ev vesting.Event) {
	s.hub.BroadcastToChannel("sale", EventMessage{Type: "event", Event: ev.Name(), Payload: ev})
}

func (s *Server) orderInfo(o market.Order) OrderInfo {
	info := OrderInfo{
		ID:             o.ID,
		Seller:         o.Seller.Hex(),
		AssetAddress:   o.AssetAddress.Hex(),
		AssetID:        o.AssetID.String(),
		Amount:         o.Amount.String(),
		Price:          o.Price.String(),
		CreatedAtBlock: o.CreatedAtBlock,
	}
	if entry, ok := s.engine.ShieldOf(o.ID); ok {
		info.AllowedBlock = entry.AllowedBlock
		if entry.PrivateBuyer != (common.Address{}) {
			info.PrivateBuyer = entry.PrivateBuyer.Hex()
		}
	}
	return info
}

func (s *Server) handleListOrders(w http.ResponseWriter, r *http.Request) {
	orders := s.engine.ListOrders()
	response := make([]OrderInfo, len(orders))
	for i, o := range orders {
		response[i] = s.orderInfo(o)
	}
	respondJSON(w, response)
}

func (s *Server) handleGetOrder(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseUint(mux.Vars(r)["id"], 10, 64)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid order id", err.Error())
		return
	}
	order, ok := s.engine.GetOrder(id)
	if !ok {
		respondError(w, http.StatusNotFound, "order not found", "")
		return
	}
	respondJSON(w, s.orderInfo(order))
}

func (s *Server) handleGetFees(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, FeeInfo{
		PaymentToken:       s.fees.PaymentToken().Hex(),
		Beneficiary:        s.fees.Beneficiary().Hex(),
		OwnerCutPerMillion: s.fees.OwnerCutPerMillion(),
		PublicationFee:     s.fees.PublicationFee().String(),
		GracePeriodBlocks:  s.engine.GracePeriod(),
	})
}

func (s *Server) handleGetRegistry(w http.ResponseWriter, r *http.Request) {
	entries := s.registry.Entries()
	response := make([]RegistryEntry, 0, len(entries))
	for addr, kind := range entries {
		response = append(response, RegistryEntry{Address: addr.Hex(), Kind: kind.String()})
	}
	respondJSON(w, response)
}

func (s *Server) handleGetSale(w http.ResponseWriter, r *http.Request) {
	p := s.sale.Params()
	info := SaleInfo{
		TotalOnSale:        p.TotalOnSale.String(),
		Sold:               s.sale.Sold().String(),
		Rate:               p.Rate.String(),
		MinPerBuyer:        p.MinPerBuyer.String(),
		MaxPerBuyer:        p.MaxPerBuyer.String(),
		UnlockAtIGOPercent: p.Schedule.UnlockAtIGOPercent,
		CliffMonths:        p.Schedule.CliffMonths,
		VestingMonths:      p.Schedule.VestingMonths,
	}
	if igo, ok := s.sale.IGO(); ok {
		info.IGO = igo.UTC().Format(time.RFC3339)
	}
	respondJSON(w, info)
}

func (s *Server) handleGetRecord(w http.ResponseWriter, r *http.Request) {
	addrStr := mux.Vars(r)["address"]
	if !common.IsHexAddress(addrStr) {
		respondError(w, http.StatusBadRequest, "invalid address", "")
		return
	}
	addr := common.HexToAddress(addrStr)
	rec, ok := s.sale.RecordOf(addr)
	if !ok {
		respondError(w, http.StatusNotFound, "no purchase record", "")
		return
	}
	respondJSON(w, RecordInfo{
		Buyer:            addr.Hex(),
		Purchased:        rec.Purchased.String(),
		Claimed:          rec.Claimed.String(),
		LastClaimedMonth: rec.LastClaimedMonth,
	})
}

func (s *Server) handleGetChainStatus(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, ChainStatus{
		Block:  s.env.Block(),
		Time:   s.env.Now().UTC().Format(time.RFC3339),
		Orders: s.engine.Count(),
		Paused: s.roles.Paused(),
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, map[string]string{"status": "ok"})
}

func respondJSON(w http.ResponseWriter, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, error string, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(ErrorResponse{Error: error, Message: message})
}
