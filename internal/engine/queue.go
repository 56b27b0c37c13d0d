package engine

import (
	"fmt"
	"sort"

	"exchange_go/internal/domain"
	"exchange_go/pkg/quant"
)

// bookEntry is one slot in a side's priority structure. Orders themselves
// live in the arena; entries carry only the sort key so the two structures
// cannot drift apart on mutation.
type bookEntry struct {
	id    int64
	side  domain.Side
	price quant.PriceMicros
}

// entryLess is the priority order within one side's queue: asks ascending by
// price, bids descending, ties broken by ascending id (time priority).
// Entries from different sides never share a queue; comparing them is a
// programming error.
func entryLess(a, b bookEntry) bool {
	if a.side != b.side {
		panic(fmt.Sprintf("queue: comparing orders from different sides (%s vs %s)", a.side, b.side))
	}
	if a.price == b.price {
		return a.id < b.id
	}
	if a.side == domain.SideAsk {
		return a.price < b.price
	}
	return a.price > b.price
}

// QueueManager holds the resting orders of both sides: an id-keyed arena as
// the single owner of order state, plus one sorted entry slice per side.
// No matching logic lives here.
type QueueManager struct {
	arena map[int64]*domain.Order
	bids  []bookEntry
	asks  []bookEntry
}

func NewQueueManager() *QueueManager {
	return &QueueManager{arena: make(map[int64]*domain.Order)}
}

func (q *QueueManager) sideEntries(side domain.Side) *[]bookEntry {
	if side == domain.SideBid {
		return &q.bids
	}
	return &q.asks
}

// Add places the order in the arena and its side's queue.
func (q *QueueManager) Add(o *domain.Order) {
	q.Store(o)
	q.Enqueue(o)
}

// Store places the order in the arena only. Used when the order will be
// enqueued explicitly after matching, so the match loop never sees the
// incoming order as its own counterparty candidate.
func (q *QueueManager) Store(o *domain.Order) {
	q.arena[o.ID] = o
}

// Enqueue inserts the order into its side's queue at its priority position.
func (q *QueueManager) Enqueue(o *domain.Order) {
	entries := q.sideEntries(o.Side)
	e := bookEntry{id: o.ID, side: o.Side, price: o.Price}
	i := sort.Search(len(*entries), func(i int) bool {
		return entryLess(e, (*entries)[i])
	})
	*entries = append(*entries, bookEntry{})
	copy((*entries)[i+1:], (*entries)[i:])
	(*entries)[i] = e
}

// Remove drops the order from both the queue and the arena. The queue is
// rebuilt without the target; book sizes are small enough that O(n) is fine.
func (q *QueueManager) Remove(id int64, side domain.Side) {
	entries := q.sideEntries(side)
	kept := (*entries)[:0]
	for _, e := range *entries {
		if e.id != id {
			kept = append(kept, e)
		}
	}
	*entries = kept
	delete(q.arena, id)
}

// Get returns the order with the given id, resting or already settled this
// session.
func (q *QueueManager) Get(id int64) (*domain.Order, error) {
	o, ok := q.arena[id]
	if !ok {
		return nil, fmt.Errorf("%w: id %d", ErrOrderNotFound, id)
	}
	return o, nil
}

// Best returns the highest-priority order on side that is still in the
// arena and carries a real price. Stale and priceless (market) entries are
// skipped. Best never mutates the entry slice: callers hold only a read
// lock on the book.
func (q *QueueManager) Best(side domain.Side) (*domain.Order, error) {
	for _, e := range *q.sideEntries(side) {
		o, ok := q.arena[e.id]
		if !ok {
			continue
		}
		if o.HasPrice() {
			return o, nil
		}
	}
	return nil, fmt.Errorf("%w: no valid %s order", ErrOrderNotFound, side)
}

// Orders returns a priority-ordered page of side's resting orders without
// mutating the live structure. limit < 0 means no limit.
func (q *QueueManager) Orders(side domain.Side, start, limit int) []*domain.Order {
	entries := *q.sideEntries(side)
	var out []*domain.Order
	index := 0
	for _, e := range entries {
		if limit >= 0 && len(out) >= limit {
			break
		}
		o, ok := q.arena[e.id]
		if !ok {
			continue
		}
		if index >= start {
			out = append(out, o)
		}
		index++
	}
	return out
}

// UpdateInBook restores the order's sort position after an in-place
// mutation such as a price change.
func (q *QueueManager) UpdateInBook(o *domain.Order) {
	q.Remove(o.ID, o.Side)
	q.Add(o)
}

// front peeks the head entry of side's queue.
func (q *QueueManager) front(side domain.Side) (bookEntry, bool) {
	entries := *q.sideEntries(side)
	if len(entries) == 0 {
		return bookEntry{}, false
	}
	return entries[0], true
}

// popFront drops the head entry of side's queue, leaving the arena alone.
func (q *QueueManager) popFront(side domain.Side) {
	entries := q.sideEntries(side)
	if len(*entries) > 0 {
		*entries = (*entries)[1:]
	}
}

// entriesSnapshot copies side's queue for non-mutating scans.
func (q *QueueManager) entriesSnapshot(side domain.Side) []bookEntry {
	entries := *q.sideEntries(side)
	out := make([]bookEntry, len(entries))
	copy(out, entries)
	return out
}

// CountForTrader counts resting unfilled orders per side for one trader.
func (q *QueueManager) CountForTrader(traderID string) OrderCounts {
	var counts OrderCounts
	for _, o := range q.arena {
		if o.TraderID == traderID && o.Status == domain.StatusUnfilled {
			if o.Side == domain.SideBid {
				counts.Bids++
			} else {
				counts.Asks++
			}
		}
	}
	return counts
}
