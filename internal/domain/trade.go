package domain

import (
	"time"

	"exchange_go/pkg/quant"
)

// Trade is an executed match. Immutable once recorded; ID is -1 until the
// trade has been persisted.
type Trade struct {
	ID            int64             `json:"id"`
	BuyOrderID    int64             `json:"buy_order_id"`
	SellOrderID   int64             `json:"sell_order_id"`
	BuyOrderType  OrderType         `json:"buy_order_type"`
	SellOrderType OrderType         `json:"sell_order_type"`
	Quantity      int64             `json:"quantity"`
	Price         quant.PriceMicros `json:"price"`
	Timestamp     int64             `json:"ts"` // unix micros
}

// NewTrade builds an unpersisted trade between a bid and an ask order.
func NewTrade(bid, ask *Order, qty int64, price quant.PriceMicros) Trade {
	return Trade{
		ID:            -1,
		BuyOrderID:    bid.ID,
		SellOrderID:   ask.ID,
		BuyOrderType:  bid.Type,
		SellOrderType: ask.Type,
		Quantity:      qty,
		Price:         price,
		Timestamp:     time.Now().UnixMicro(),
	}
}
