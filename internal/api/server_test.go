package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"exchange_go/internal/domain"
	"exchange_go/internal/engine"
	"exchange_go/internal/event"
	"exchange_go/internal/infra"
	"exchange_go/internal/storage"
	"exchange_go/pkg/quant"
)

func newTestServer(t *testing.T, limits domain.RiskLimits) (*Server, *event.Log) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	store, err := storage.Open(":memory:")
	if err != nil {
		t.Fatalf("storage.Open: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	events := event.NewLog(64)
	traders := engine.NewTraderRegistry(1_000, quant.PriceMicros(100*quant.PriceScale))
	market := engine.NewMarketService(quant.NoPrice, 50, traders)
	risk := engine.NewRiskService(limits, traders, market, events)

	book, err := engine.NewOrderBook(store.Orders(), store.Trades(), events, traders, market, risk)
	if err != nil {
		t.Fatalf("NewOrderBook: %v", err)
	}
	return NewServer(book, NewHub(), nil), events
}

func doJSON(t *testing.T, r http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body == "" {
		reader = bytes.NewReader(nil)
	} else {
		reader = bytes.NewReader([]byte(body))
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestPlaceLimitOrder(t *testing.T) {
	s, _ := newTestServer(t, domain.UnlimitedRiskLimits())
	r := s.Router()

	w := doJSON(t, r, http.MethodPost, "/orders",
		`{"type":"LIMIT","side":"BID","trader_id":"alice","quantity":10,"price":"101.25"}`)
	if w.Code != http.StatusCreated {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}

	var resp OrderResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.ID <= 0 || resp.Price != "101.25" || resp.Status != "UNFILLED" {
		t.Fatalf("resp = %+v", resp)
	}
}

func TestPlaceOrderValidation(t *testing.T) {
	s, _ := newTestServer(t, domain.UnlimitedRiskLimits())
	r := s.Router()

	tests := []struct {
		name string
		body string
	}{
		{"bad side", `{"type":"LIMIT","side":"LEFT","trader_id":"a","quantity":10,"price":"100"}`},
		{"market with price", `{"type":"MARKET","side":"BID","trader_id":"a","quantity":10,"price":"100"}`},
		{"limit without price", `{"type":"LIMIT","side":"BID","trader_id":"a","quantity":10}`},
		{"iceberg display too large", `{"type":"ICEBERG","side":"BID","trader_id":"a","quantity":10,"price":"100","display_size":10}`},
		{"stop limit without limit price", `{"type":"STOP_LIMIT","side":"ASK","trader_id":"a","quantity":10,"price":"95"}`},
		{"negative quantity", `{"type":"LIMIT","side":"BID","trader_id":"a","quantity":-5,"price":"100"}`},
		{"not json", `hello`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := doJSON(t, r, http.MethodPost, "/orders", tt.body)
			if w.Code != http.StatusBadRequest {
				t.Fatalf("status = %d, want 400; body = %s", w.Code, w.Body.String())
			}
		})
	}
}

func TestRiskRejectionStatus(t *testing.T) {
	limits := domain.UnlimitedRiskLimits()
	limits.MaxOrderSize = 5
	s, _ := newTestServer(t, limits)
	r := s.Router()

	w := doJSON(t, r, http.MethodPost, "/orders",
		`{"type":"LIMIT","side":"BID","trader_id":"a","quantity":10,"price":"100"}`)
	if w.Code != http.StatusUnprocessableEntity {
		t.Fatalf("status = %d, want 422", w.Code)
	}
}

func TestCancelOrder(t *testing.T) {
	s, _ := newTestServer(t, domain.UnlimitedRiskLimits())
	r := s.Router()

	w := doJSON(t, r, http.MethodPost, "/orders",
		`{"type":"LIMIT","side":"ASK","trader_id":"a","quantity":10,"price":"100"}`)
	var created OrderResponse
	if err := json.Unmarshal(w.Body.Bytes(), &created); err != nil {
		t.Fatalf("decode: %v", err)
	}

	w = doJSON(t, r, http.MethodDelete, "/orders/"+itoa(created.ID), "")
	if w.Code != http.StatusOK {
		t.Fatalf("cancel status = %d, body = %s", w.Code, w.Body.String())
	}
	var cancelled OrderResponse
	if err := json.Unmarshal(w.Body.Bytes(), &cancelled); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if cancelled.Status != "CANCELLED" {
		t.Fatalf("status = %s, want CANCELLED", cancelled.Status)
	}

	w = doJSON(t, r, http.MethodDelete, "/orders/99999", "")
	if w.Code != http.StatusNotFound {
		t.Fatalf("missing order status = %d, want 404", w.Code)
	}
}

func TestMatchThroughAPI(t *testing.T) {
	s, _ := newTestServer(t, domain.UnlimitedRiskLimits())
	r := s.Router()

	doJSON(t, r, http.MethodPost, "/orders",
		`{"type":"LIMIT","side":"ASK","trader_id":"a","quantity":10,"price":"100"}`)
	doJSON(t, r, http.MethodPost, "/orders",
		`{"type":"LIMIT","side":"BID","trader_id":"b","quantity":10,"price":"100"}`)

	w := doJSON(t, r, http.MethodGet, "/trades", "")
	if w.Code != http.StatusOK {
		t.Fatalf("trades status = %d", w.Code)
	}
	var resp struct {
		Trades []TradeResponse `json:"trades"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(resp.Trades) != 1 || resp.Trades[0].Quantity != 10 || resp.Trades[0].Price != "100" {
		t.Fatalf("trades = %+v", resp.Trades)
	}

	w = doJSON(t, r, http.MethodGet, "/market", "")
	var market struct {
		MarketPrice string `json:"market_price"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &market); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if market.MarketPrice != "100" {
		t.Fatalf("market price = %q, want 100", market.MarketPrice)
	}
}

func TestListOrders(t *testing.T) {
	s, _ := newTestServer(t, domain.UnlimitedRiskLimits())
	r := s.Router()

	doJSON(t, r, http.MethodPost, "/orders",
		`{"type":"LIMIT","side":"ASK","trader_id":"a","quantity":10,"price":"101"}`)
	doJSON(t, r, http.MethodPost, "/orders",
		`{"type":"STOP","side":"ASK","trader_id":"a","quantity":5,"price":"95"}`)

	w := doJSON(t, r, http.MethodGet, "/orders?store=active&side=ASK", "")
	var resp struct {
		Orders []OrderResponse `json:"orders"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(resp.Orders) != 1 || resp.Orders[0].Type != "LIMIT" {
		t.Fatalf("active asks = %+v", resp.Orders)
	}

	w = doJSON(t, r, http.MethodGet, "/orders?store=conditional&side=ASK", "")
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(resp.Orders) != 1 || resp.Orders[0].Type != "STOP" {
		t.Fatalf("conditional asks = %+v", resp.Orders)
	}

	w = doJSON(t, r, http.MethodGet, "/orders?store=warehouse", "")
	if w.Code != http.StatusBadRequest {
		t.Fatalf("bad store status = %d, want 400", w.Code)
	}
}

func TestRiskEndpoints(t *testing.T) {
	s, _ := newTestServer(t, domain.UnlimitedRiskLimits())
	r := s.Router()

	w := doJSON(t, r, http.MethodPut, "/risk",
		`{"scope":"GLOBAL","limits":{"max_open_position":-1,"max_order_size":100,"max_orders_per_min":-1,"max_daily_loss":-1,"max_drawdown":-1,"max_risk_per_order":-1}}`)
	if w.Code != http.StatusOK {
		t.Fatalf("put status = %d, body = %s", w.Code, w.Body.String())
	}

	w = doJSON(t, r, http.MethodGet, "/risk", "")
	var resp struct {
		Limits domain.RiskLimits `json:"limits"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Limits.MaxOrderSize != 100 {
		t.Fatalf("limits = %+v", resp.Limits)
	}

	w = doJSON(t, r, http.MethodPut, "/risk", `{"scope":"TRADER"}`)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("trader scope without id status = %d, want 400", w.Code)
	}
}

func TestTraderStatsEndpoint(t *testing.T) {
	s, _ := newTestServer(t, domain.UnlimitedRiskLimits())
	r := s.Router()

	doJSON(t, r, http.MethodPost, "/orders",
		`{"type":"LIMIT","side":"BID","trader_id":"b","quantity":10,"price":"110"}`)
	doJSON(t, r, http.MethodPost, "/orders",
		`{"type":"LIMIT","side":"ASK","trader_id":"a","quantity":10,"price":"110"}`)

	w := doJSON(t, r, http.MethodGet, "/traders/a", "")
	var resp map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp["realized_pnl"] != "100" {
		t.Fatalf("realized_pnl = %v, want 100", resp["realized_pnl"])
	}
}

func TestEventStream(t *testing.T) {
	s, events := newTestServer(t, domain.UnlimitedRiskLimits())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go s.hub.Run(ctx, events.Subscribe())

	srv := httptest.NewServer(s.Router())
	defer srv.Close()

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/events"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	// Wait for registration before publishing.
	deadline := time.Now().Add(time.Second)
	for s.hub.ClientCount() == 0 {
		if time.Now().After(deadline) {
			t.Fatal("client never registered")
		}
		time.Sleep(5 * time.Millisecond)
	}

	r := s.Router()
	doJSON(t, r, http.MethodPost, "/orders",
		`{"type":"LIMIT","side":"BID","trader_id":"alice","quantity":10,"price":"100"}`)

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var env struct {
		Type string `json:"type"`
	}
	if err := conn.ReadJSON(&env); err != nil {
		t.Fatalf("read: %v", err)
	}
	if env.Type != string(event.OrderAdded) {
		t.Fatalf("event type = %s, want ORDER_ADDED", env.Type)
	}
}

func itoa(id int64) string {
	return strconv.FormatInt(id, 10)
}

func TestPlaceOrder_RateLimited(t *testing.T) {
	s, _ := newTestServer(t, domain.UnlimitedRiskLimits())
	s.limiter = infra.NewRateLimiter(2, 0.001)
	r := s.Router()

	body := `{"type":"LIMIT","side":"BID","trader_id":"alice","quantity":1,"price":"100"}`
	for i := 0; i < 2; i++ {
		if w := doJSON(t, r, http.MethodPost, "/orders", body); w.Code != http.StatusCreated {
			t.Fatalf("request %d: status = %d", i, w.Code)
		}
	}

	w := doJSON(t, r, http.MethodPost, "/orders", body)
	if w.Code != http.StatusTooManyRequests {
		t.Fatalf("status = %d, want 429", w.Code)
	}

	// Reads stay open while mutations are throttled.
	if w := doJSON(t, r, http.MethodGet, "/market", ""); w.Code != http.StatusOK {
		t.Fatalf("GET /market status = %d", w.Code)
	}
}
