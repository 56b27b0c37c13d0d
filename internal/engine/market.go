package engine

import (
	"math"

	"exchange_go/pkg/quant"
)

const defaultHistorySize = 50

// MarketService tracks the last traded price, a bounded recent price
// history, and the population standard deviation of that history as a
// volatility measure. Every price update also refreshes trader drawdown
// statistics so risk checks see a current picture.
type MarketService struct {
	price      quant.PriceMicros
	history    []quant.PriceMicros
	historyCap int
	volatility quant.PriceMicros
	traders    *TraderRegistry
}

func NewMarketService(initial quant.PriceMicros, historySize int, traders *TraderRegistry) *MarketService {
	if historySize <= 0 {
		historySize = defaultHistorySize
	}
	m := &MarketService{
		historyCap: historySize,
		traders:    traders,
	}
	if initial.IsValid() {
		m.UpdatePrice(initial)
	}
	return m
}

// CurrentPrice is the last traded price, NoPrice before the first trade.
func (m *MarketService) CurrentPrice() quant.PriceMicros {
	if m.price == 0 {
		return quant.NoPrice
	}
	return m.price
}

// Volatility is the population standard deviation of the recent price
// history, in price micros.
func (m *MarketService) Volatility() quant.PriceMicros { return m.volatility }

// History returns a copy of the recent price history, oldest first.
func (m *MarketService) History() []quant.PriceMicros {
	out := make([]quant.PriceMicros, len(m.history))
	copy(out, m.history)
	return out
}

// UpdatePrice records a new market price, recomputes volatility over the
// bounded history, and pushes the price into trader drawdown tracking.
func (m *MarketService) UpdatePrice(price quant.PriceMicros) {
	if !price.IsValid() {
		return
	}
	m.price = price
	m.history = append(m.history, price)
	if len(m.history) > m.historyCap {
		m.history = m.history[len(m.history)-m.historyCap:]
	}
	m.volatility = m.computeVolatility()
	if m.traders != nil {
		m.traders.UpdateAllDrawdown(price)
	}
}

func (m *MarketService) computeVolatility() quant.PriceMicros {
	n := len(m.history)
	if n < 2 {
		return 0
	}
	var sum float64
	for _, p := range m.history {
		sum += float64(p)
	}
	mean := sum / float64(n)
	var sq float64
	for _, p := range m.history {
		d := float64(p) - mean
		sq += d * d
	}
	return quant.PriceMicros(math.Round(math.Sqrt(sq / float64(n))))
}
