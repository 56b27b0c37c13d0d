package engine

import (
	"fmt"

	"exchange_go/internal/domain"
	"exchange_go/internal/event"
	"exchange_go/pkg/quant"
)

// ConditionalOrderService parks stop, stop-limit, and trailing-stop orders
// until a market price tick satisfies their trigger. Orders here never rest
// in the active book and never match directly.
type ConditionalOrderService struct {
	arena map[int64]*domain.Order
	bids  []int64 // admission order
	asks  []int64

	events *event.Log
}

func NewConditionalOrderService(events *event.Log) *ConditionalOrderService {
	return &ConditionalOrderService{
		arena:  make(map[int64]*domain.Order),
		events: events,
	}
}

// Add parks a conditional order and announces it.
func (s *ConditionalOrderService) Add(o *domain.Order) {
	s.arena[o.ID] = o
	if o.Side == domain.SideBid {
		s.bids = append(s.bids, o.ID)
	} else {
		s.asks = append(s.asks, o.ID)
	}
	s.events.Publish(event.NewOrderEvent(event.OrderAdded, o, event.OrderAddedMessage(o)))
}

// Get returns the parked order with the given id.
func (s *ConditionalOrderService) Get(id int64) (*domain.Order, error) {
	o, ok := s.arena[id]
	if !ok {
		return nil, fmt.Errorf("%w: id %d", ErrOrderNotFound, id)
	}
	return o, nil
}

// Cancel removes a parked order and marks it cancelled.
func (s *ConditionalOrderService) Cancel(id int64) (*domain.Order, error) {
	o, ok := s.arena[id]
	if !ok {
		return nil, fmt.Errorf("%w: id %d", ErrOrderNotFound, id)
	}
	s.remove(o)
	o.SetStatus(domain.StatusCancelled)
	s.events.Publish(event.NewOrderEvent(event.OrderCancelled, o, event.OrderCancelledMessage(o)))
	return o, nil
}

func (s *ConditionalOrderService) remove(o *domain.Order) {
	ids := &s.bids
	if o.Side == domain.SideAsk {
		ids = &s.asks
	}
	kept := (*ids)[:0]
	for _, id := range *ids {
		if id != o.ID {
			kept = append(kept, id)
		}
	}
	*ids = kept
	delete(s.arena, o.ID)
}

// Trigger applies a price tick: trailing stops ratchet their tracked
// extreme, then every order whose condition the tick satisfies is removed
// and returned for re-admission to the active book, in admission order.
func (s *ConditionalOrderService) Trigger(price quant.PriceMicros) []*domain.Order {
	var fired []*domain.Order
	for _, ids := range [][]int64{s.bids, s.asks} {
		for _, id := range ids {
			o := s.arena[id]
			if s.shouldFire(o, price) {
				fired = append(fired, o)
			}
		}
	}
	for _, o := range fired {
		s.remove(o)
		s.events.Publish(event.NewOrderEvent(event.OrderTriggered, o, event.OrderTriggeredMessage(o)))
	}
	return fired
}

func (s *ConditionalOrderService) shouldFire(o *domain.Order, price quant.PriceMicros) bool {
	if o.Type == domain.TypeTrailingStop {
		return s.trailingFires(o, price)
	}
	// Ask stops protect against falling prices, bid stops against rising
	// ones.
	if o.Side == domain.SideAsk {
		return price <= o.Price
	}
	return price >= o.Price
}

// trailingFires ratchets the order's tracked extreme toward favorable
// prices, then fires when the tick retraces by at least the offset held in
// Price.
func (s *ConditionalOrderService) trailingFires(o *domain.Order, price quant.PriceMicros) bool {
	if !o.BestPrice.IsValid() {
		o.BestPrice = price
		return false
	}
	if o.Side == domain.SideAsk {
		if price > o.BestPrice {
			o.BestPrice = price
			return false
		}
		return price <= o.BestPrice-o.Price
	}
	if price < o.BestPrice {
		o.BestPrice = price
		return false
	}
	return price >= o.BestPrice+o.Price
}

// Bids returns a page of parked bid-side orders in admission order.
// limit < 0 means no limit.
func (s *ConditionalOrderService) Bids(start, limit int) []*domain.Order {
	return s.page(s.bids, start, limit)
}

// Asks returns a page of parked ask-side orders in admission order.
func (s *ConditionalOrderService) Asks(start, limit int) []*domain.Order {
	return s.page(s.asks, start, limit)
}

func (s *ConditionalOrderService) page(ids []int64, start, limit int) []*domain.Order {
	var out []*domain.Order
	for i, id := range ids {
		if i < start {
			continue
		}
		if limit >= 0 && len(out) >= limit {
			break
		}
		out = append(out, s.arena[id])
	}
	return out
}

// CountForTrader counts parked orders per side for one trader.
func (s *ConditionalOrderService) CountForTrader(traderID string) OrderCounts {
	var counts OrderCounts
	for _, o := range s.arena {
		if o.TraderID != traderID {
			continue
		}
		if o.Side == domain.SideBid {
			counts.Bids++
		} else {
			counts.Asks++
		}
	}
	return counts
}
