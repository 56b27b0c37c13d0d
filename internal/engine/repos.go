package engine

import "exchange_go/internal/domain"

// OrderRepository persists orders. The engine calls CreateOrder once per
// admitted order and UpdateOrder after every state-changing mutation,
// including counterpart orders touched during a match.
type OrderRepository interface {
	CreateOrder(o *domain.Order) (int64, error)
	UpdateOrder(o *domain.Order) error
	// ActiveOrders returns non-conditional orders that can still match,
	// used to rebuild the book on startup.
	ActiveOrders() ([]*domain.Order, error)
}

// TradeRepository persists executed trades.
type TradeRepository interface {
	CreateTrade(t *domain.Trade) (int64, error)
	Trades() ([]domain.Trade, error)
}
