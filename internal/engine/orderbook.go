package engine

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"exchange_go/internal/domain"
	"exchange_go/internal/event"
	"exchange_go/pkg/quant"
	"exchange_go/pkg/safe"
)

// maxTriggerDepth bounds recursive re-submission of triggered conditional
// orders. A chain this deep means the book is oscillating; stop and log
// rather than recurse without bound.
const maxTriggerDepth = 16

// OrderCounts is a per-side tally of one trader's orders.
type OrderCounts struct {
	Bids int `json:"bids"`
	Asks int `json:"asks"`
}

// MarketDepth summarizes one side of the book.
type MarketDepth struct {
	Best   quant.PriceMicros `json:"best"`
	Count  int               `json:"count"`
	Volume int64             `json:"volume"`
}

// TradeStats summarizes the session's trade history.
type TradeStats struct {
	Count    int               `json:"count"`
	Volume   int64             `json:"volume"`
	AvgPrice quant.PriceMicros `json:"avg_price"`
}

// MarketData is the aggregate market snapshot served to clients.
type MarketData struct {
	MarketPrice quant.PriceMicros `json:"market_price"`
	Volatility  quant.PriceMicros `json:"volatility"`
	Bids        MarketDepth       `json:"bids"`
	Asks        MarketDepth       `json:"asks"`
	Trades      TradeStats        `json:"trades"`
}

// TraderStats is one trader's account snapshot.
type TraderStats struct {
	TraderID      string            `json:"trader_id"`
	Inventory     int64             `json:"inventory"`
	Reserved      int64             `json:"reserved"`
	AvgEntryPrice quant.PriceMicros `json:"avg_entry_price"`
	RealizedPnL   int64             `json:"realized_pnl"`
	UnrealizedPnL int64             `json:"unrealized_pnl"`
	Wins          int64             `json:"wins"`
	ClosedTrades  int64             `json:"closed_trades"`
	AvgExitPrice  quant.PriceMicros `json:"avg_exit_price"`
	OpenLots      int               `json:"open_lots"`
	MaxDrawdown   quant.Bps         `json:"max_drawdown"`
}

// OrderBook is the facade over the matching core and its single
// serialization point: admissions, cancellations, modifications, and price
// updates run to completion under one write lock, queries take the read
// lock and return copies.
type OrderBook struct {
	mu sync.RWMutex

	orders  OrderRepository
	events  *event.Log
	market  *MarketService
	risk    *RiskService
	traders *TraderRegistry

	trades      *TradeService
	active      *ActiveOrderService
	conditional *ConditionalOrderService
}

func NewOrderBook(
	orders OrderRepository,
	tradeRepo TradeRepository,
	events *event.Log,
	traders *TraderRegistry,
	market *MarketService,
	risk *RiskService,
) (*OrderBook, error) {
	trades, err := NewTradeService(tradeRepo, events, market, traders)
	if err != nil {
		return nil, err
	}
	active, err := NewActiveOrderService(orders, events, trades)
	if err != nil {
		return nil, err
	}
	return &OrderBook{
		orders:      orders,
		events:      events,
		market:      market,
		risk:        risk,
		traders:     traders,
		trades:      trades,
		active:      active,
		conditional: NewConditionalOrderService(events),
	}, nil
}

// AddOrder admits an order: risk gate, ask-side inventory reservation,
// persistence, then routing to the active book or the conditional store.
// Trades executed during matching move the market price, which may trigger
// parked conditional orders before the call returns.
func (b *OrderBook) AddOrder(o *domain.Order) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.addOrderLocked(o, 0)
}

func (b *OrderBook) addOrderLocked(o *domain.Order, depth int) error {
	if err := b.risk.CheckOrder(o); err != nil {
		b.events.Publish(event.NewOrderEvent(event.OrderRejected, o, event.OrderRejectedMessage(o, err.Error())))
		return err
	}

	trader := b.traders.Get(o.TraderID)
	if o.Side == domain.SideAsk {
		if err := trader.Reserve(safe.Add(o.RemainingQty, o.HiddenQty)); err != nil {
			err = fmt.Errorf("reserve %d units for trader %s: %w", o.InitialQty, o.TraderID, err)
			b.events.Publish(event.NewOrderEvent(event.OrderRejected, o, event.OrderRejectedMessage(o, err.Error())))
			return err
		}
	}
	trader.RecordOrder(time.Now())

	if o.ID < 0 {
		id, err := b.orders.CreateOrder(o)
		if err != nil {
			b.releaseAsk(o)
			return fmt.Errorf("persist order: %w", err)
		}
		o.ID = id
	}

	if o.IsConditional() {
		b.conditional.Add(o)
		// The current price may already satisfy the condition; scan so
		// the order fires now instead of waiting for the next tick.
		b.fireTriggers(depth)
		return nil
	}

	if err := b.active.Admit(o); err != nil {
		return err
	}
	if o.Side == domain.SideAsk && !o.IsOpen() {
		// Fills released their own quantity during settlement; whatever is
		// left belongs to a cancelled IOC remainder or a rejected FOK.
		b.releaseAsk(o)
	}

	b.fireTriggers(depth)
	return nil
}

// releaseAsk hands back the unfilled part of an ask's reservation.
func (b *OrderBook) releaseAsk(o *domain.Order) {
	if o.Side != domain.SideAsk {
		return
	}
	if qty := o.RemainingQty + o.HiddenQty; qty > 0 {
		b.traders.Get(o.TraderID).Release(qty)
	}
}

// fireTriggers scans the conditional store against the latest market price
// and re-submits whatever fired through the normal admission path.
func (b *OrderBook) fireTriggers(depth int) {
	price := b.market.CurrentPrice()
	if !price.IsValid() {
		return
	}
	if depth >= maxTriggerDepth {
		slog.Error("conditional trigger chain too deep, stopping", "depth", depth, "price", price)
		return
	}
	for _, src := range b.conditional.Trigger(price) {
		b.resubmitTriggered(src, depth+1)
	}
}

// resubmitTriggered converts a fired conditional order and runs the result
// through admission. The source order is retired; the converted order is a
// new order with its own id.
func (b *OrderBook) resubmitTriggered(src *domain.Order, depth int) {
	b.releaseAsk(src)
	src.SetStatus(domain.StatusCancelled)
	if err := b.orders.UpdateOrder(src); err != nil {
		slog.Error("persist triggered order", "id", src.ID, "err", err)
	}

	var next *domain.Order
	if src.Type == domain.TypeStopLimit {
		next = domain.NewLimitOrder(src.Side, src.InitialQty, src.TraderID, src.LimitPrice)
	} else {
		next = domain.NewMarketOrder(src.Side, src.InitialQty, src.TraderID)
	}
	if err := b.addOrderLocked(next, depth); err != nil {
		slog.Warn("triggered order rejected on re-submission", "source_id", src.ID, "trader", src.TraderID, "err", err)
	}
}

// CancelOrder cancels a resting or parked order. Misses on the active book
// fall through to the conditional store before reporting NotFound.
func (b *OrderBook) CancelOrder(id int64) (domain.Order, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	o, err := b.active.Cancel(id)
	if err == nil {
		b.releaseAsk(o)
		return *o, nil
	}
	if !errors.Is(err, ErrOrderNotFound) {
		return domain.Order{}, err
	}

	o, cerr := b.conditional.Cancel(id)
	if cerr != nil {
		return domain.Order{}, cerr
	}
	b.releaseAsk(o)
	if perr := b.orders.UpdateOrder(o); perr != nil {
		return *o, fmt.Errorf("persist cancel %d: %w", id, perr)
	}
	return *o, nil
}

// ModifyOrder changes the price and quantity of a resting unfilled order.
// The change is risk-checked as if it were a fresh admission; iceberg
// orders cannot be modified because their hidden reserve is already sized.
func (b *OrderBook) ModifyOrder(id int64, newQty int64, newPrice quant.PriceMicros) (domain.Order, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	o, err := b.active.Get(id)
	if err != nil {
		return domain.Order{}, err
	}
	if o.Status != domain.StatusUnfilled {
		return domain.Order{}, fmt.Errorf("%w: order %d is %s", ErrOrderNotOpen, id, o.Status)
	}
	if o.Type == domain.TypeIceberg {
		return domain.Order{}, fmt.Errorf("%w: iceberg order %d cannot be modified", ErrOrderNotOpen, id)
	}

	probe := *o
	probe.InitialQty = newQty
	probe.RemainingQty = newQty
	probe.Price = newPrice
	if err := b.risk.CheckOrder(&probe); err != nil {
		b.events.Publish(event.NewOrderEvent(event.OrderRejected, &probe, event.OrderRejectedMessage(&probe, err.Error())))
		return domain.Order{}, err
	}

	trader := b.traders.Get(o.TraderID)
	if o.Side == domain.SideAsk {
		if delta := newQty - o.RemainingQty; delta > 0 {
			if rerr := trader.Reserve(delta); rerr != nil {
				return domain.Order{}, fmt.Errorf("reserve %d extra units for trader %s: %w", delta, o.TraderID, rerr)
			}
		} else if delta < 0 {
			trader.Release(-delta)
		}
	}

	o.InitialQty = newQty
	o.RemainingQty = newQty
	o.Price = newPrice
	if err := b.active.Reposition(o); err != nil {
		return domain.Order{}, err
	}
	return *o, nil
}

// UpdateMarketPrice feeds an external price tick into market tracking and
// fires any conditional orders the tick satisfies.
func (b *OrderBook) UpdateMarketPrice(price quant.PriceMicros) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.market.UpdatePrice(price)
	b.fireTriggers(0)
}

// GetOrder looks an order up by id, falling through from the active book to
// the conditional store.
func (b *OrderBook) GetOrder(id int64) (domain.Order, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if o, err := b.active.Get(id); err == nil {
		return *o, nil
	}
	o, err := b.conditional.Get(id)
	if err != nil {
		return domain.Order{}, err
	}
	return *o, nil
}

// BestBid returns a copy of the best-priced resting bid.
func (b *OrderBook) BestBid() (domain.Order, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	o, err := b.active.BestBid()
	if err != nil {
		return domain.Order{}, err
	}
	return *o, nil
}

// BestAsk returns a copy of the best-priced resting ask.
func (b *OrderBook) BestAsk() (domain.Order, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	o, err := b.active.BestAsk()
	if err != nil {
		return domain.Order{}, err
	}
	return *o, nil
}

// ActiveBids returns a priority-ordered page of resting bids as copies.
func (b *OrderBook) ActiveBids(start, limit int) []domain.Order {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return copyOrders(b.active.Bids(start, limit))
}

// ActiveAsks returns a priority-ordered page of resting asks as copies.
func (b *OrderBook) ActiveAsks(start, limit int) []domain.Order {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return copyOrders(b.active.Asks(start, limit))
}

// ConditionalBids returns a page of parked bid-side conditional orders.
func (b *OrderBook) ConditionalBids(start, limit int) []domain.Order {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return copyOrders(b.conditional.Bids(start, limit))
}

// ConditionalAsks returns a page of parked ask-side conditional orders.
func (b *OrderBook) ConditionalAsks(start, limit int) []domain.Order {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return copyOrders(b.conditional.Asks(start, limit))
}

// Trades returns a newest-first page of the trade history.
func (b *OrderBook) Trades(start, limit int) []domain.Trade {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.trades.Trades(start, limit)
}

// MarketPrice is the last traded or externally fed market price.
func (b *OrderBook) MarketPrice() quant.PriceMicros {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.market.CurrentPrice()
}

// GetMarketData aggregates the book, trade history, and price tracking into
// one snapshot.
func (b *OrderBook) GetMarketData() MarketData {
	b.mu.RLock()
	defer b.mu.RUnlock()

	data := MarketData{
		MarketPrice: b.market.CurrentPrice(),
		Volatility:  b.market.Volatility(),
		Bids:        b.depth(domain.SideBid),
		Asks:        b.depth(domain.SideAsk),
		Trades: TradeStats{
			Count:    b.trades.Count(),
			Volume:   b.trades.TotalVolume(),
			AvgPrice: b.trades.AvgPrice(),
		},
	}
	return data
}

func (b *OrderBook) depth(side domain.Side) MarketDepth {
	depth := MarketDepth{Best: quant.NoPrice}
	if best, err := b.active.queues.Best(side); err == nil {
		depth.Best = best.Price
	}
	for _, o := range b.active.queues.Orders(side, 0, -1) {
		depth.Count++
		depth.Volume += o.RemainingQty
	}
	return depth
}

// GetTraderStats snapshots one trader's account. Unknown traders report
// zeroed stats without creating an account.
func (b *OrderBook) GetTraderStats(traderID string) TraderStats {
	b.mu.RLock()
	defer b.mu.RUnlock()

	stats := TraderStats{TraderID: traderID}
	if !b.traders.Known(traderID) {
		return stats
	}
	t := b.traders.Get(traderID)
	stats.Inventory = t.Inventory()
	stats.Reserved = t.Reserved()
	stats.AvgEntryPrice = t.AvgEntryPrice()
	stats.RealizedPnL = t.RealizedPnL()
	stats.Wins = t.Wins()
	stats.ClosedTrades = t.TotalClosedTrades()
	stats.AvgExitPrice = t.AvgExitPrice()
	stats.OpenLots = t.OpenLots()
	stats.MaxDrawdown = t.MaxDrawdown()
	if price := b.market.CurrentPrice(); price.IsValid() {
		stats.UnrealizedPnL = t.UnrealizedPnL(price)
	}
	return stats
}

// CountOrdersForTrader tallies one trader's orders across the active book
// and the conditional store.
func (b *OrderBook) CountOrdersForTrader(traderID string) OrderCounts {
	b.mu.RLock()
	defer b.mu.RUnlock()

	active := b.active.CountForTrader(traderID)
	parked := b.conditional.CountForTrader(traderID)
	return OrderCounts{Bids: active.Bids + parked.Bids, Asks: active.Asks + parked.Asks}
}

// GlobalRiskLimits returns the current global risk limits.
func (b *OrderBook) GlobalRiskLimits() domain.RiskLimits {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.risk.GlobalLimits()
}

// EffectiveRiskLimits resolves the limits applying to one trader.
func (b *OrderBook) EffectiveRiskLimits(traderID string) domain.RiskLimits {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.risk.EffectiveLimits(traderID)
}

// SetGlobalRiskLimits replaces the global limits, optionally clearing all
// per-trader overrides.
func (b *OrderBook) SetGlobalRiskLimits(limits domain.RiskLimits, override bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.risk.SetGlobalLimits(limits, override)
}

// SetTraderRiskLimits merges a per-trader override.
func (b *OrderBook) SetTraderRiskLimits(traderID string, limits domain.RiskLimits) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.risk.SetTraderLimits(traderID, limits)
}

func copyOrders(in []*domain.Order) []domain.Order {
	out := make([]domain.Order, len(in))
	for i, o := range in {
		out[i] = *o
	}
	return out
}
