package engine

import (
	"fmt"

	"exchange_go/internal/domain"
	"exchange_go/internal/event"
)

// ActiveOrderService owns the live book: it admits orders to the matcher,
// persists the resulting state changes, and serves book queries.
type ActiveOrderService struct {
	queues *QueueManager
	match  *matcher
	repo   OrderRepository
	events *event.Log
}

// NewActiveOrderService builds the live book and reloads still-open orders
// from the repository so a restart resumes with the same book.
func NewActiveOrderService(repo OrderRepository, events *event.Log, trades *TradeService) (*ActiveOrderService, error) {
	queues := NewQueueManager()
	open, err := repo.ActiveOrders()
	if err != nil {
		return nil, fmt.Errorf("load open orders: %w", err)
	}
	for _, o := range open {
		queues.Add(o)
	}
	return &ActiveOrderService{
		queues: queues,
		match:  &matcher{queues: queues, trades: trades, events: events},
		repo:   repo,
		events: events,
	}, nil
}

// Admit runs an already-persisted order through matching. Counterparty state
// changes are persisted one by one; the incoming order rests in the book if
// it is still open afterwards.
func (s *ActiveOrderService) Admit(o *domain.Order) error {
	s.queues.Store(o)
	s.events.Publish(event.NewOrderEvent(event.OrderAdded, o, event.OrderAddedMessage(o)))

	updated, err := s.match.Match(o)
	for _, u := range updated {
		if uerr := s.repo.UpdateOrder(u); uerr != nil && err == nil {
			err = fmt.Errorf("persist counterparty %d: %w", u.ID, uerr)
		}
	}
	if err != nil {
		return err
	}

	// Settled orders stay in the arena for id lookups; only open orders
	// get a queue position.
	if o.IsOpen() {
		s.queues.Enqueue(o)
	}
	if err := s.repo.UpdateOrder(o); err != nil {
		return fmt.Errorf("persist order %d: %w", o.ID, err)
	}
	return nil
}

// Cancel removes a resting order. Only fully unfilled orders can be
// cancelled; a partially filled order already moved inventory.
func (s *ActiveOrderService) Cancel(id int64) (*domain.Order, error) {
	o, err := s.queues.Get(id)
	if err != nil {
		return nil, err
	}
	if o.Status != domain.StatusUnfilled {
		return nil, fmt.Errorf("%w: order %d is %s", ErrOrderNotOpen, id, o.Status)
	}
	s.queues.Remove(id, o.Side)
	o.SetStatus(domain.StatusCancelled)
	if err := s.repo.UpdateOrder(o); err != nil {
		return nil, fmt.Errorf("persist cancel %d: %w", id, err)
	}
	s.events.Publish(event.NewOrderEvent(event.OrderCancelled, o, event.OrderCancelledMessage(o)))
	return o, nil
}

// Get returns the live order with the given id.
func (s *ActiveOrderService) Get(id int64) (*domain.Order, error) {
	return s.queues.Get(id)
}

// Reposition restores an order's book position after an in-place change and
// persists the new state.
func (s *ActiveOrderService) Reposition(o *domain.Order) error {
	s.queues.UpdateInBook(o)
	if err := s.repo.UpdateOrder(o); err != nil {
		return fmt.Errorf("persist order %d: %w", o.ID, err)
	}
	s.events.Publish(event.NewOrderEvent(event.OrderModified, o, event.OrderModifiedMessage(o)))
	return nil
}

// BestBid returns the best-priced resting bid.
func (s *ActiveOrderService) BestBid() (*domain.Order, error) {
	return s.queues.Best(domain.SideBid)
}

// BestAsk returns the best-priced resting ask.
func (s *ActiveOrderService) BestAsk() (*domain.Order, error) {
	return s.queues.Best(domain.SideAsk)
}

// Bids returns a priority-ordered page of resting bids. limit < 0 means no
// limit.
func (s *ActiveOrderService) Bids(start, limit int) []*domain.Order {
	return s.queues.Orders(domain.SideBid, start, limit)
}

// Asks returns a priority-ordered page of resting asks.
func (s *ActiveOrderService) Asks(start, limit int) []*domain.Order {
	return s.queues.Orders(domain.SideAsk, start, limit)
}

// CountForTrader counts resting unfilled orders per side for one trader.
func (s *ActiveOrderService) CountForTrader(traderID string) OrderCounts {
	return s.queues.CountForTrader(traderID)
}
