// Package sim contains scripted participants for driving the venue in
// simulations. They observe the market price stream and emit order
// signals; the caller decides how to submit them.
package sim

import (
	"exchange_go/pkg/quant"
	"exchange_go/pkg/safe"
)

// Signal is a trading signal emitted by a simulated participant.
type Signal int

const (
	SignalNone Signal = iota
	SignalBuy
	SignalSell
)

func (s Signal) String() string {
	switch s {
	case SignalBuy:
		return "BUY"
	case SignalSell:
		return "SELL"
	default:
		return "NONE"
	}
}

// MomentumTrader signals on moving-average crossovers: buy when the
// short average crosses above the long one, sell on the way back down.
// It is stateful and deterministic. The price history lives in a fixed
// ring buffer so the hot path does not allocate.
type MomentumTrader struct {
	shortPeriod int
	longPeriod  int

	prices []int64
	head   int   // next write position
	count  int   // number of elements filled
	sum    int64 // running sum over the long period

	prevShortSMA int64
	prevLongSMA  int64
}

// NewMomentumTrader creates a trader with the given averaging windows.
func NewMomentumTrader(shortPeriod, longPeriod int) *MomentumTrader {
	if shortPeriod >= longPeriod {
		panic("sim: shortPeriod must be less than longPeriod")
	}
	return &MomentumTrader{
		shortPeriod: shortPeriod,
		longPeriod:  longPeriod,
		prices:      make([]int64, longPeriod),
	}
}

// Observe feeds one market price tick and returns the resulting signal.
// Invalid prices are ignored.
func (m *MomentumTrader) Observe(price quant.PriceMicros) Signal {
	if !price.IsValid() {
		return SignalNone
	}
	current := int64(price)

	// When the buffer is full, head points at the oldest sample; drop it
	// from the running sum before overwriting.
	if m.count == m.longPeriod {
		m.sum = safe.Sub(m.sum, m.prices[m.head])
	}

	m.prices[m.head] = current
	m.sum = safe.Add(m.sum, current)
	m.head = (m.head + 1) % m.longPeriod

	if m.count < m.longPeriod {
		m.count++
	}
	if m.count < m.longPeriod {
		return SignalNone
	}

	currLong := safe.Div(m.sum, int64(m.longPeriod))
	currShort := m.shortSMA()

	signal := SignalNone
	if m.prevShortSMA != 0 && m.prevLongSMA != 0 {
		switch {
		// Golden cross: short average rises above the long one.
		case m.prevShortSMA <= m.prevLongSMA && currShort > currLong:
			signal = SignalBuy
		// Dead cross: short average falls below the long one.
		case m.prevShortSMA >= m.prevLongSMA && currShort < currLong:
			signal = SignalSell
		}
	}

	m.prevShortSMA = currShort
	m.prevLongSMA = currLong

	return signal
}

// shortSMA walks the ring buffer backwards from the latest sample.
func (m *MomentumTrader) shortSMA() int64 {
	var sum int64
	idx := m.head
	for i := 0; i < m.shortPeriod; i++ {
		idx--
		if idx < 0 {
			idx = m.longPeriod - 1
		}
		sum = safe.Add(sum, m.prices[idx])
	}
	return safe.Div(sum, int64(m.shortPeriod))
}
