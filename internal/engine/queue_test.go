package engine

import (
	"errors"
	"testing"

	"exchange_go/internal/domain"
)

func limitAt(id int64, side domain.Side, qty, priceUnits int64, trader string) *domain.Order {
	o := domain.NewLimitOrder(side, qty, trader, price(priceUnits))
	o.ID = id
	return o
}

func queueIDs(q *QueueManager, side domain.Side) []int64 {
	var ids []int64
	for _, o := range q.Orders(side, 0, -1) {
		ids = append(ids, o.ID)
	}
	return ids
}

func TestQueuePriorityOrdering(t *testing.T) {
	tests := []struct {
		name string
		side domain.Side
		want []int64
	}{
		{"asks ascending by price, ties by id", domain.SideAsk, []int64{3, 1, 2, 4}},
		{"bids descending by price, ties by id", domain.SideBid, []int64{4, 1, 2, 3}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q := NewQueueManager()
			q.Add(limitAt(1, tt.side, 10, 101, "a"))
			q.Add(limitAt(2, tt.side, 10, 101, "b"))
			q.Add(limitAt(3, tt.side, 10, 100, "c"))
			q.Add(limitAt(4, tt.side, 10, 102, "d"))

			got := queueIDs(q, tt.side)
			if len(got) != len(tt.want) {
				t.Fatalf("got %v, want %v", got, tt.want)
			}
			for i := range tt.want {
				if got[i] != tt.want[i] {
					t.Fatalf("position %d: got %v, want %v", i, got, tt.want)
				}
			}
		})
	}
}

func TestQueueCrossSideComparisonPanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatal("expected panic comparing bid and ask entries")
		}
	}()
	entryLess(
		bookEntry{id: 1, side: domain.SideBid, price: price(100)},
		bookEntry{id: 2, side: domain.SideAsk, price: price(100)},
	)
}

func TestQueueBestSkipsMarketOrders(t *testing.T) {
	q := NewQueueManager()
	mkt := domain.NewMarketOrder(domain.SideAsk, 10, "a")
	mkt.ID = 1
	q.Add(mkt)
	q.Add(limitAt(2, domain.SideAsk, 10, 105, "b"))

	best, err := q.Best(domain.SideAsk)
	if err != nil {
		t.Fatalf("Best: %v", err)
	}
	if best.ID != 2 {
		t.Fatalf("best ask id = %d, want 2", best.ID)
	}
	// The market order keeps its queue slot.
	if got := queueIDs(q, domain.SideAsk); got[0] != 1 {
		t.Fatalf("queue head = %d, want market order 1", got[0])
	}
}

func TestQueueBestSkipsStaleEntries(t *testing.T) {
	q := NewQueueManager()
	q.Add(limitAt(1, domain.SideBid, 10, 100, "a"))
	q.Add(limitAt(2, domain.SideBid, 10, 99, "b"))

	// Simulate a settled head left behind in the entry slice.
	delete(q.arena, 1)

	for i := 0; i < 2; i++ {
		best, err := q.Best(domain.SideBid)
		if err != nil {
			t.Fatalf("Best: %v", err)
		}
		if best.ID != 2 {
			t.Fatalf("best bid id = %d, want 2", best.ID)
		}
	}
	// Best runs under the book's read lock, so it must leave the entry
	// slice alone even when it walks past a stale head.
	if len(q.bids) != 2 {
		t.Fatalf("entry slice mutated by Best, %d entries remain", len(q.bids))
	}
}

func TestQueueBestEmpty(t *testing.T) {
	q := NewQueueManager()
	if _, err := q.Best(domain.SideAsk); !errors.Is(err, ErrOrderNotFound) {
		t.Fatalf("err = %v, want ErrOrderNotFound", err)
	}
}

func TestQueueRemove(t *testing.T) {
	q := NewQueueManager()
	q.Add(limitAt(1, domain.SideAsk, 10, 100, "a"))
	q.Add(limitAt(2, domain.SideAsk, 10, 101, "b"))

	q.Remove(1, domain.SideAsk)
	if _, err := q.Get(1); !errors.Is(err, ErrOrderNotFound) {
		t.Fatalf("Get(1) err = %v, want ErrOrderNotFound", err)
	}
	if got := queueIDs(q, domain.SideAsk); len(got) != 1 || got[0] != 2 {
		t.Fatalf("queue = %v, want [2]", got)
	}
}

func TestQueueOrdersPagination(t *testing.T) {
	q := NewQueueManager()
	for id := int64(1); id <= 5; id++ {
		q.Add(limitAt(id, domain.SideAsk, 10, 100+id, "a"))
	}

	page := q.Orders(domain.SideAsk, 1, 2)
	if len(page) != 2 || page[0].ID != 2 || page[1].ID != 3 {
		t.Fatalf("page = %v, want orders 2 and 3", queuePageIDs(page))
	}
	all := q.Orders(domain.SideAsk, 0, -1)
	if len(all) != 5 {
		t.Fatalf("full listing has %d orders, want 5", len(all))
	}
}

func queuePageIDs(orders []*domain.Order) []int64 {
	var ids []int64
	for _, o := range orders {
		ids = append(ids, o.ID)
	}
	return ids
}

func TestQueueUpdateInBook(t *testing.T) {
	q := NewQueueManager()
	q.Add(limitAt(1, domain.SideAsk, 10, 100, "a"))
	q.Add(limitAt(2, domain.SideAsk, 10, 101, "b"))

	o, _ := q.Get(1)
	o.Price = price(105)
	q.UpdateInBook(o)

	if got := queueIDs(q, domain.SideAsk); got[0] != 2 || got[1] != 1 {
		t.Fatalf("queue = %v, want [2 1] after reprice", got)
	}
}
