package domain

import (
	"errors"
	"testing"
	"time"

	"exchange_go/pkg/quant"
)

const micros = quant.PriceScale

func TestTraderSellFIFO(t *testing.T) {
	tr := NewTrader("t1")
	tr.Buy(10, 100*micros)
	tr.Buy(10, 110*micros)

	// Sells the 100 lot fully and 5 units of the 110 lot.
	if err := tr.Sell(15, 120*micros); err != nil {
		t.Fatal(err)
	}

	// 10*(120-100) + 5*(120-110) = 250
	if got := tr.RealizedPnL(); got != 250*micros {
		t.Errorf("realized pnl = %d, want %d", got, int64(250*micros))
	}
	if got := tr.Inventory(); got != 5 {
		t.Errorf("inventory = %d, want 5", got)
	}
	if got := tr.AvgEntryPrice(); got != 110*micros {
		t.Errorf("avg entry = %d, want %d", got, int64(110*micros))
	}
}

func TestTraderSellInsufficient(t *testing.T) {
	tr := NewTrader("t1")
	tr.Buy(5, 100*micros)
	err := tr.Sell(6, 100*micros)
	if !errors.Is(err, ErrInsufficientInventory) {
		t.Fatalf("err = %v, want ErrInsufficientInventory", err)
	}
	// State untouched on failure.
	if tr.Inventory() != 5 || tr.RealizedPnL() != 0 {
		t.Error("failed sell must not mutate inventory or pnl")
	}
}

func TestTraderCloseStats(t *testing.T) {
	tr := NewTrader("t1")
	tr.Buy(10, 100*micros)
	tr.Buy(10, 100*micros)

	if err := tr.Sell(5, 110*micros); err != nil { // win
		t.Fatal(err)
	}
	if err := tr.Sell(5, 90*micros); err != nil { // loss
		t.Fatal(err)
	}

	if got := tr.TotalClosedTrades(); got != 2 {
		t.Errorf("closed trades = %d, want 2", got)
	}
	if got := tr.Wins(); got != 1 {
		t.Errorf("wins = %d, want 1", got)
	}
	if got := tr.AvgExitPrice(); got != 100*micros {
		t.Errorf("avg exit = %d, want %d", got, int64(100*micros))
	}
}

func TestTraderReserve(t *testing.T) {
	tr := NewTrader("t1")
	tr.Buy(10, 100*micros)

	if err := tr.Reserve(8); err != nil {
		t.Fatal(err)
	}
	if err := tr.Reserve(3); !errors.Is(err, ErrInsufficientInventory) {
		t.Fatalf("err = %v, want ErrInsufficientInventory", err)
	}
	tr.Release(8)
	if err := tr.Reserve(10); err != nil {
		t.Fatalf("reserve after release: %v", err)
	}
}

func TestTraderRateWindow(t *testing.T) {
	tr := NewTrader("t1")
	now := time.Now()

	tr.RecordOrder(now.Add(-90 * time.Second))
	tr.RecordOrder(now.Add(-30 * time.Second))
	tr.RecordOrder(now)

	if got := tr.RecentOrderCount(now); got != 2 {
		t.Errorf("recent orders = %d, want 2 (90s-old entry evicted)", got)
	}
}

func TestTraderDrawdownMonotonic(t *testing.T) {
	tr := NewTrader("t1")
	tr.Buy(10, 100*micros)

	prices := []quant.PriceMicros{100 * micros, 120 * micros, 90 * micros, 110 * micros, 95 * micros, 130 * micros}
	var last quant.Bps
	for _, p := range prices {
		tr.UpdateMaxDrawdown(p)
		if dd := tr.MaxDrawdown(); dd < last {
			t.Fatalf("drawdown decreased: %d -> %d at price %d", last, dd, p)
		} else {
			last = dd
		}
	}

	// Peak 120, trough 90: (120-90)/120 = 25% = 2500 bps.
	if got := tr.MaxDrawdown(); got != 2500 {
		t.Errorf("max drawdown = %d bps, want 2500", got)
	}
}

func TestTraderUnrealizedPnL(t *testing.T) {
	tr := NewTrader("t1")
	tr.Buy(10, 100*micros)
	tr.Buy(5, 110*micros)

	// 10*(120-100) + 5*(120-110) = 250
	if got := tr.UnrealizedPnL(120 * micros); got != 250*micros {
		t.Errorf("unrealized = %d, want %d", got, int64(250*micros))
	}
}
