package domain

import (
	"errors"
	"time"

	"exchange_go/pkg/quant"
	"exchange_go/pkg/safe"
)

// ErrInsufficientInventory is returned when a sell or an ask-side
// reservation asks for more units than the trader can deliver.
var ErrInsufficientInventory = errors.New("insufficient inventory")

// rateWindow is the sliding window used for per-trader order rate limits.
const rateWindow = 60 * time.Second

// Lot is a FIFO inventory entry acquired by a single buy.
type Lot struct {
	Qty   int64             `json:"qty"`
	Price quant.PriceMicros `json:"price"`
}

// Trader holds one trader's inventory and running statistics. Not
// synchronized: all mutation happens under the order book's write lock.
type Trader struct {
	id string

	lots     []Lot
	reserved int64 // units committed to open asks

	realizedPnL       int64 // micros
	totalClosedTrades int64
	wins              int64
	avgExitPrice      quant.PriceMicros

	peakValue   int64 // micros, portfolio value extremes
	troughValue int64
	maxDrawdown quant.Bps

	recentOrders []time.Time
}

func NewTrader(id string) *Trader {
	return &Trader{id: id}
}

func (t *Trader) ID() string { return t.id }

// SeedLot deposits starting inventory. Used by the registry when a trader is
// first created.
func (t *Trader) SeedLot(qty int64, price quant.PriceMicros) {
	if qty > 0 {
		t.lots = append(t.lots, Lot{Qty: qty, Price: price})
	}
}

// Buy appends a new inventory lot.
func (t *Trader) Buy(qty int64, price quant.PriceMicros) {
	t.lots = append(t.lots, Lot{Qty: qty, Price: price})
}

// Sell consumes inventory lots FIFO and accrues realized PnL per consumed
// lot. Fails without mutating state if qty exceeds total inventory.
func (t *Trader) Sell(qty int64, price quant.PriceMicros) error {
	if qty > t.Inventory() {
		return ErrInsufficientInventory
	}

	remaining := qty
	var tradePnL int64
	for remaining > 0 && len(t.lots) > 0 {
		lot := &t.lots[0]
		if lot.Qty > remaining {
			tradePnL = safe.Add(tradePnL, safe.Mul(remaining, int64(price)-int64(lot.Price)))
			lot.Qty -= remaining
			remaining = 0
		} else {
			tradePnL = safe.Add(tradePnL, safe.Mul(lot.Qty, int64(price)-int64(lot.Price)))
			remaining -= lot.Qty
			t.lots = t.lots[1:]
		}
	}
	t.realizedPnL = safe.Add(t.realizedPnL, tradePnL)

	t.totalClosedTrades++
	t.avgExitPrice = quant.PriceMicros(safe.Div(
		safe.Add(safe.Mul(int64(t.avgExitPrice), t.totalClosedTrades-1), int64(price)),
		t.totalClosedTrades))
	if tradePnL > 0 {
		t.wins++
	}
	return nil
}

// Reserve commits ask-side inventory ahead of matching. Fails when the
// unreserved inventory cannot cover qty.
func (t *Trader) Reserve(qty int64) error {
	if t.Inventory()-t.reserved < qty {
		return ErrInsufficientInventory
	}
	t.reserved += qty
	return nil
}

// Release returns previously reserved units, e.g. after a fill or cancel.
func (t *Trader) Release(qty int64) {
	t.reserved -= qty
	if t.reserved < 0 {
		t.reserved = 0
	}
}

// RecordOrder adds now to the rate-limit window and evicts stale entries.
func (t *Trader) RecordOrder(now time.Time) {
	t.evictStale(now)
	t.recentOrders = append(t.recentOrders, now)
}

// RecentOrderCount returns the number of orders placed inside the window.
func (t *Trader) RecentOrderCount(now time.Time) int {
	t.evictStale(now)
	return len(t.recentOrders)
}

func (t *Trader) evictStale(now time.Time) {
	for len(t.recentOrders) > 0 && now.Sub(t.recentOrders[0]) > rateWindow {
		t.recentOrders = t.recentOrders[1:]
	}
}

// Inventory is the total quantity across all lots.
func (t *Trader) Inventory() int64 {
	var total int64
	for _, lot := range t.lots {
		total += lot.Qty
	}
	return total
}

// Reserved reports the quantity committed to open asks.
func (t *Trader) Reserved() int64 { return t.reserved }

// AvgEntryPrice is the volume-weighted average lot price, 0 with no lots.
func (t *Trader) AvgEntryPrice() quant.PriceMicros {
	var total, qty int64
	for _, lot := range t.lots {
		total = safe.Add(total, safe.Mul(lot.Qty, int64(lot.Price)))
		qty += lot.Qty
	}
	if qty == 0 {
		return 0
	}
	return quant.PriceMicros(safe.Div(total, qty))
}

func (t *Trader) RealizedPnL() int64 { return t.realizedPnL }

// UnrealizedPnL marks all lots against currentPrice.
func (t *Trader) UnrealizedPnL(currentPrice quant.PriceMicros) int64 {
	var total int64
	for _, lot := range t.lots {
		total = safe.Add(total, safe.Mul(lot.Qty, int64(currentPrice)-int64(lot.Price)))
	}
	return total
}

func (t *Trader) Wins() int64              { return t.wins }
func (t *Trader) TotalClosedTrades() int64 { return t.totalClosedTrades }

func (t *Trader) AvgExitPrice() quant.PriceMicros { return t.avgExitPrice }

// OpenLots is the number of inventory lots currently held.
func (t *Trader) OpenLots() int { return len(t.lots) }

// MaxDrawdown returns the worst peak-to-trough retracement seen so far.
func (t *Trader) MaxDrawdown() quant.Bps { return t.maxDrawdown }

// UpdateMaxDrawdown tracks portfolio value extremes on a price tick.
// The retained drawdown is a running maximum and never decreases.
func (t *Trader) UpdateMaxDrawdown(currentPrice quant.PriceMicros) {
	currentValue := safe.Mul(t.Inventory(), int64(currentPrice))

	if currentValue > t.peakValue {
		t.peakValue = currentValue
		t.troughValue = currentValue
	}
	if currentValue < t.troughValue {
		t.troughValue = currentValue
		if t.peakValue > 0 {
			drawdown := quant.Bps(safe.Div(safe.Mul(t.peakValue-t.troughValue, 10000), t.peakValue))
			if drawdown > t.maxDrawdown {
				t.maxDrawdown = drawdown
			}
		}
	}
}
