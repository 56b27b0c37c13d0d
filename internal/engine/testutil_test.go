package engine

import (
	"testing"

	"exchange_go/internal/domain"
	"exchange_go/internal/event"
	"exchange_go/pkg/quant"
)

// In-memory repositories so engine tests run without a database.

type memOrderRepo struct {
	nextID  int64
	orders  map[int64]domain.Order
	updates int
}

func newMemOrderRepo() *memOrderRepo {
	return &memOrderRepo{nextID: 1, orders: make(map[int64]domain.Order)}
}

func (r *memOrderRepo) CreateOrder(o *domain.Order) (int64, error) {
	id := r.nextID
	r.nextID++
	saved := *o
	saved.ID = id
	r.orders[id] = saved
	return id, nil
}

func (r *memOrderRepo) UpdateOrder(o *domain.Order) error {
	r.orders[o.ID] = *o
	r.updates++
	return nil
}

func (r *memOrderRepo) ActiveOrders() ([]*domain.Order, error) {
	var out []*domain.Order
	for id := range r.orders {
		o := r.orders[id]
		if o.IsOpen() && !o.IsConditional() {
			out = append(out, &o)
		}
	}
	return out, nil
}

type memTradeRepo struct {
	nextID int64
	trades []domain.Trade
}

func newMemTradeRepo() *memTradeRepo {
	return &memTradeRepo{nextID: 1}
}

func (r *memTradeRepo) CreateTrade(t *domain.Trade) (int64, error) {
	id := r.nextID
	r.nextID++
	saved := *t
	saved.ID = id
	r.trades = append(r.trades, saved)
	return id, nil
}

func (r *memTradeRepo) Trades() ([]domain.Trade, error) {
	out := make([]domain.Trade, len(r.trades))
	copy(out, r.trades)
	return out, nil
}

const (
	testSeedQty   = 1_000
	testSeedPrice = quant.PriceMicros(100 * quant.PriceScale)
)

type testBook struct {
	book    *OrderBook
	orders  *memOrderRepo
	trades  *memTradeRepo
	events  *event.Log
	traders *TraderRegistry
	market  *MarketService
	risk    *RiskService
}

// newTestBook builds a fully wired book with in-memory persistence, every
// trader seeded with 1000 units at 100, and the given global limits.
func newTestBook(t *testing.T, limits domain.RiskLimits) *testBook {
	t.Helper()

	orders := newMemOrderRepo()
	tradeRepo := newMemTradeRepo()
	events := event.NewLog(64)
	traders := NewTraderRegistry(testSeedQty, testSeedPrice)
	market := NewMarketService(quant.NoPrice, 0, traders)
	risk := NewRiskService(limits, traders, market, events)

	book, err := NewOrderBook(orders, tradeRepo, events, traders, market, risk)
	if err != nil {
		t.Fatalf("NewOrderBook: %v", err)
	}
	return &testBook{
		book:    book,
		orders:  orders,
		trades:  tradeRepo,
		events:  events,
		traders: traders,
		market:  market,
		risk:    risk,
	}
}

func newOpenBook(t *testing.T) *testBook {
	return newTestBook(t, domain.UnlimitedRiskLimits())
}

func price(units int64) quant.PriceMicros {
	return quant.PriceMicros(units * quant.PriceScale)
}

func (tb *testBook) mustAdd(t *testing.T, o *domain.Order) *domain.Order {
	t.Helper()
	if err := tb.book.AddOrder(o); err != nil {
		t.Fatalf("AddOrder(%s %s %d): %v", o.Type, o.Side, o.InitialQty, err)
	}
	return o
}

func (tb *testBook) eventTypes() []event.Type {
	var out []event.Type
	for _, e := range tb.events.History() {
		out = append(out, e.EventType())
	}
	return out
}
