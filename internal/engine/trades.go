package engine

import (
	"fmt"

	"exchange_go/internal/domain"
	"exchange_go/internal/event"
	"exchange_go/pkg/quant"
	"exchange_go/pkg/safe"
)

// TradeService records executed matches: it persists the trade, applies
// trader accounting on both sides, and pushes the price into market
// tracking. It also serves the session's trade history.
type TradeService struct {
	repo    TradeRepository
	events  *event.Log
	market  *MarketService
	traders *TraderRegistry

	trades []domain.Trade
}

func NewTradeService(repo TradeRepository, events *event.Log, market *MarketService, traders *TraderRegistry) (*TradeService, error) {
	trades, err := repo.Trades()
	if err != nil {
		return nil, fmt.Errorf("load trade history: %w", err)
	}
	return &TradeService{
		repo:    repo,
		events:  events,
		market:  market,
		traders: traders,
		trades:  trades,
	}, nil
}

// Record creates and persists a trade of qty units at price between a bid
// and an ask order, then settles both traders and updates the market price.
func (s *TradeService) Record(bid, ask *domain.Order, qty int64, price quant.PriceMicros) (domain.Trade, error) {
	trade := domain.NewTrade(bid, ask, qty, price)
	id, err := s.repo.CreateTrade(&trade)
	if err != nil {
		return domain.Trade{}, fmt.Errorf("persist trade: %w", err)
	}
	trade.ID = id
	s.trades = append(s.trades, trade)

	buyer := s.traders.Get(bid.TraderID)
	seller := s.traders.Get(ask.TraderID)

	buyer.Buy(qty, price)
	if err := seller.Sell(qty, price); err != nil {
		// Risk gating reserves ask inventory before admission, so an
		// oversold fill means the book state is already corrupt.
		panic(fmt.Sprintf("invalid fill: trader %s cannot deliver %d units: %v", ask.TraderID, qty, err))
	}
	seller.Release(qty)

	s.market.UpdatePrice(price)
	s.events.Publish(event.NewTradeEvent(trade, bid.TraderID, ask.TraderID))
	return trade, nil
}

// Trades returns a newest-first page of the trade history. limit <= 0
// means no limit.
func (s *TradeService) Trades(start, limit int) []domain.Trade {
	if limit <= 0 {
		limit = len(s.trades)
	}
	startIndex := len(s.trades) - 1 - start
	if startIndex < 0 {
		return nil
	}

	out := make([]domain.Trade, 0, min(limit, len(s.trades)))
	for i := startIndex; i >= 0 && len(out) < limit; i-- {
		out = append(out, s.trades[i])
	}
	return out
}

// Count is the number of trades recorded this session.
func (s *TradeService) Count() int { return len(s.trades) }

// TotalVolume sums traded quantity across the history.
func (s *TradeService) TotalVolume() int64 {
	var total int64
	for _, t := range s.trades {
		total += t.Quantity
	}
	return total
}

// AvgPrice is the volume-weighted average trade price, NoPrice when no
// volume has traded.
func (s *TradeService) AvgPrice() quant.PriceMicros {
	volume := s.TotalVolume()
	if volume == 0 {
		return quant.NoPrice
	}
	var value int64
	for _, t := range s.trades {
		value = safe.Add(value, safe.Mul(t.Quantity, int64(t.Price)))
	}
	return quant.PriceMicros(safe.Div(value, volume))
}
