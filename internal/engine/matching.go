package engine

import (
	"exchange_go/internal/domain"
	"exchange_go/internal/event"
	"exchange_go/pkg/quant"
)

// matcher runs the matching strategies against the queue manager. Strategy
// selection is a switch over the order-type tag: the set of strategies is
// closed, so there is no need for runtime polymorphism.
type matcher struct {
	queues *QueueManager
	trades *TradeService
	events *event.Log
}

// Match dispatches the incoming order to the strategy for its type and
// returns every resting order whose state changed.
func (m *matcher) Match(incoming *domain.Order) ([]*domain.Order, error) {
	switch incoming.Type {
	case domain.TypeIOC:
		return m.matchIOC(incoming)
	case domain.TypeFOK:
		return m.matchFOK(incoming)
	default:
		return m.matchDefault(incoming)
	}
}

// priceAcceptable reports whether the two orders can cross. Only enforced
// when both sides carry a real price: a market order crosses anything.
func priceAcceptable(incoming, opposing *domain.Order) bool {
	if incoming.HasPrice() && opposing.HasPrice() {
		if incoming.Side == domain.SideBid && incoming.Price < opposing.Price {
			return false
		}
		if incoming.Side == domain.SideAsk && incoming.Price > opposing.Price {
			return false
		}
	}
	return true
}

// tradePrice picks the execution price: the resting order's price when it
// has one, else the incoming order's, else the current market price.
func (m *matcher) tradePrice(incoming, resting *domain.Order) quant.PriceMicros {
	switch {
	case resting.HasPrice():
		return resting.Price
	case incoming.HasPrice():
		return incoming.Price
	default:
		return m.trades.market.CurrentPrice()
	}
}

// matchDefault is the core price-time matching loop used by market, limit,
// iceberg, and triggered conditional orders.
func (m *matcher) matchDefault(incoming *domain.Order) ([]*domain.Order, error) {
	var updated []*domain.Order
	var skipped []*domain.Order

	oppSide := incoming.Side.Opposite()
	unmatched := incoming.RemainingQty

	for unmatched > 0 {
		front, ok := m.queues.front(oppSide)
		if !ok {
			break
		}
		opposing, ok := m.queues.arena[front.id]
		if !ok {
			// Stale entry, discard and move on.
			m.queues.popFront(oppSide)
			continue
		}

		if opposing.TraderID == incoming.TraderID {
			// Self-trade prevention: set the order aside, restore after the
			// loop. (price, id) keys make re-insertion position-stable.
			m.queues.popFront(oppSide)
			skipped = append(skipped, opposing)
			continue
		}

		if !priceAcceptable(incoming, opposing) {
			// Book is price-sorted: nothing further can cross either.
			break
		}

		available := opposing.RemainingQty
		matchQty := min(unmatched, available)
		price := m.tradePrice(incoming, opposing)

		bid, ask := incoming, opposing
		if incoming.Side == domain.SideAsk {
			bid, ask = opposing, incoming
		}
		if _, err := m.trades.Record(bid, ask, matchQty, price); err != nil {
			return updated, err
		}
		unmatched -= matchQty

		if opposing.Type == domain.TypeIceberg {
			m.settleIceberg(opposing, matchQty, available)
		} else {
			m.settleNormal(opposing, matchQty, available)
		}
		updated = append(updated, opposing)
	}

	for _, o := range skipped {
		m.queues.Enqueue(o)
	}

	incoming.RemainingQty = unmatched
	if unmatched == 0 {
		incoming.SetStatus(domain.StatusFilled)
	} else if unmatched < incoming.InitialQty {
		incoming.SetStatus(domain.StatusPartiallyFilled)
	}
	return updated, nil
}

// settleNormal applies a fill to a non-iceberg resting order.
func (m *matcher) settleNormal(o *domain.Order, matchQty, available int64) {
	m.queues.popFront(o.Side)
	if matchQty < available {
		o.RemainingQty = available - matchQty
		o.SetStatus(domain.StatusPartiallyFilled)
		m.queues.Enqueue(o)
	} else {
		o.RemainingQty = 0
		o.SetStatus(domain.StatusFilled)
	}
}

// settleIceberg applies a fill to a resting iceberg: when the displayed
// slice is consumed and hidden reserve remains, the slice replenishes and
// the order goes back in the queue still PARTIALLY_FILLED.
func (m *matcher) settleIceberg(o *domain.Order, matchQty, available int64) {
	m.queues.popFront(o.Side)
	if matchQty == available {
		if o.HiddenQty > 0 {
			replenish := min(o.DisplaySize, o.HiddenQty)
			o.HiddenQty -= replenish
			o.RemainingQty = replenish
			o.SetStatus(domain.StatusPartiallyFilled)
			m.queues.Enqueue(o)
		} else {
			o.RemainingQty = 0
			o.SetStatus(domain.StatusFilled)
		}
		return
	}
	o.RemainingQty = available - matchQty
	o.SetStatus(domain.StatusPartiallyFilled)
	m.queues.Enqueue(o)
}

// matchIOC runs the default loop, then cancels whatever did not fill. The
// residual never rests in the book.
func (m *matcher) matchIOC(incoming *domain.Order) ([]*domain.Order, error) {
	updated, err := m.matchDefault(incoming)
	if err != nil {
		return updated, err
	}
	if incoming.RemainingQty > 0 {
		incoming.SetStatus(domain.StatusCancelled)
		m.events.Publish(event.NewOrderEvent(event.OrderCancelled, incoming, event.IOCCancelledMessage(incoming)))
	}
	return updated, nil
}

// matchFOK checks, without mutating anything, whether the full initial
// quantity can fill; if not, the order is rejected untouched, otherwise the
// default loop must complete the fill.
func (m *matcher) matchFOK(incoming *domain.Order) ([]*domain.Order, error) {
	if !m.fillable(incoming) {
		incoming.SetStatus(domain.StatusCancelled)
		m.events.Publish(event.NewOrderEvent(event.OrderRejected, incoming, event.FOKRejectedMessage(incoming)))
		return nil, nil
	}
	return m.matchDefault(incoming)
}

// fillable simulates the default loop's candidate walk: same self-trade
// exclusion and price-compatibility rules, stopping once enough quantity
// has accumulated or prices stop crossing.
func (m *matcher) fillable(o *domain.Order) bool {
	required := o.InitialQty
	var accumulated int64

	for _, e := range m.queues.entriesSnapshot(o.Side.Opposite()) {
		opposing, ok := m.queues.arena[e.id]
		if !ok {
			continue
		}
		if opposing.TraderID == o.TraderID {
			continue
		}
		if !priceAcceptable(o, opposing) {
			break
		}
		accumulated += opposing.RemainingQty
		if accumulated >= required {
			return true
		}
	}
	return false
}
