package engine

import (
	"sort"

	"exchange_go/internal/domain"
	"exchange_go/pkg/quant"
)

// TraderRegistry lazily creates trader accounts on first reference and
// seeds each with a configured starting inventory lot so ask-side orders
// have something to sell.
type TraderRegistry struct {
	traders map[string]*domain.Trader

	seedQty   int64
	seedPrice quant.PriceMicros
}

func NewTraderRegistry(seedQty int64, seedPrice quant.PriceMicros) *TraderRegistry {
	return &TraderRegistry{
		traders:   make(map[string]*domain.Trader),
		seedQty:   seedQty,
		seedPrice: seedPrice,
	}
}

// Get returns the account for id, creating and seeding it on first use.
func (r *TraderRegistry) Get(id string) *domain.Trader {
	if t, ok := r.traders[id]; ok {
		return t
	}
	t := domain.NewTrader(id)
	t.SeedLot(r.seedQty, r.seedPrice)
	r.traders[id] = t
	return t
}

// Known reports whether an account exists without creating one.
func (r *TraderRegistry) Known(id string) bool {
	_, ok := r.traders[id]
	return ok
}

// IDs returns all known trader ids in sorted order.
func (r *TraderRegistry) IDs() []string {
	ids := make([]string, 0, len(r.traders))
	for id := range r.traders {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// UpdateAllDrawdown pushes a price tick into every account's drawdown
// tracking.
func (r *TraderRegistry) UpdateAllDrawdown(price quant.PriceMicros) {
	for _, t := range r.traders {
		t.UpdateMaxDrawdown(price)
	}
}
