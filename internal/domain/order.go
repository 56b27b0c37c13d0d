package domain

import (
	"fmt"
	"time"

	"exchange_go/pkg/quant"
)

// Side is the side of the book an order rests on.
type Side string

const (
	SideBid Side = "BID"
	SideAsk Side = "ASK"
)

// Opposite returns the other side of the book.
func (s Side) Opposite() Side {
	if s == SideBid {
		return SideAsk
	}
	return SideBid
}

// OrderType tags the order variant. One Order struct carries all variants;
// type-specific fields are meaningful only for the matching tag.
type OrderType string

const (
	TypeMarket       OrderType = "MARKET"
	TypeLimit        OrderType = "LIMIT"
	TypeIOC          OrderType = "IOC"
	TypeFOK          OrderType = "FOK"
	TypeIceberg      OrderType = "ICEBERG"
	TypeStop         OrderType = "STOP"
	TypeStopLimit    OrderType = "STOP_LIMIT"
	TypeTrailingStop OrderType = "TRAILING_STOP"
)

// Status is the order lifecycle state. FILLED and CANCELLED are terminal.
type Status string

const (
	StatusUnfilled        Status = "UNFILLED"
	StatusPartiallyFilled Status = "PARTIALLY_FILLED"
	StatusFilled          Status = "FILLED"
	StatusCancelled       Status = "CANCELLED"
)

// Order is a single order of any type. ID is -1 until the order has been
// persisted. Price is quant.NoPrice for market orders; for stop orders it is
// the trigger price and for trailing stops the trailing offset.
type Order struct {
	ID           int64             `json:"id"`
	Type         OrderType         `json:"type"`
	Side         Side              `json:"side"`
	Status       Status            `json:"status"`
	InitialQty   int64             `json:"initial_qty"`
	RemainingQty int64             `json:"remaining_qty"`
	TraderID     string            `json:"trader_id"`
	Timestamp    int64             `json:"ts"` // unix micros, admission order

	Price       quant.PriceMicros `json:"price"`
	LimitPrice  quant.PriceMicros `json:"limit_price,omitempty"`  // stop-limit post-trigger limit
	BestPrice   quant.PriceMicros `json:"best_price,omitempty"`   // trailing stop high/low-water mark
	HiddenQty   int64             `json:"hidden_qty,omitempty"`   // iceberg undisplayed reserve
	DisplaySize int64             `json:"display_size,omitempty"` // iceberg visible slice
}

func newOrder(typ OrderType, side Side, qty int64, traderID string, price quant.PriceMicros) *Order {
	return &Order{
		ID:           -1,
		Type:         typ,
		Side:         side,
		Status:       StatusUnfilled,
		InitialQty:   qty,
		RemainingQty: qty,
		TraderID:     traderID,
		Timestamp:    time.Now().UnixMicro(),
		Price:        price,
		LimitPrice:   quant.NoPrice,
		BestPrice:    quant.NoPrice,
	}
}

func NewMarketOrder(side Side, qty int64, traderID string) *Order {
	return newOrder(TypeMarket, side, qty, traderID, quant.NoPrice)
}

func NewLimitOrder(side Side, qty int64, traderID string, price quant.PriceMicros) *Order {
	return newOrder(TypeLimit, side, qty, traderID, price)
}

func NewIOCOrder(side Side, qty int64, traderID string, price quant.PriceMicros) *Order {
	return newOrder(TypeIOC, side, qty, traderID, price)
}

func NewFOKOrder(side Side, qty int64, traderID string, price quant.PriceMicros) *Order {
	return newOrder(TypeFOK, side, qty, traderID, price)
}

// NewIcebergOrder creates an iceberg order. Only displaySize is matchable at
// a time; the rest of qty stays in hiddenQty until the slice is consumed.
func NewIcebergOrder(side Side, qty int64, traderID string, price quant.PriceMicros, displaySize, hiddenQty int64) *Order {
	o := newOrder(TypeIceberg, side, qty, traderID, price)
	o.DisplaySize = displaySize
	o.HiddenQty = hiddenQty
	o.RemainingQty = displaySize
	return o
}

// NewStopOrder creates a stop order triggering at stopPrice.
func NewStopOrder(side Side, qty int64, traderID string, stopPrice quant.PriceMicros) *Order {
	return newOrder(TypeStop, side, qty, traderID, stopPrice)
}

// NewStopLimitOrder creates a stop order that converts to a limit order at
// limitPrice once stopPrice is reached.
func NewStopLimitOrder(side Side, qty int64, traderID string, stopPrice, limitPrice quant.PriceMicros) *Order {
	o := newOrder(TypeStopLimit, side, qty, traderID, stopPrice)
	o.LimitPrice = limitPrice
	return o
}

// NewTrailingStopOrder creates a trailing stop. offset is the retracement
// from the tracked extreme that fires the trigger; bestPrice seeds the
// tracked extreme.
func NewTrailingStopOrder(side Side, qty int64, traderID string, offset, bestPrice quant.PriceMicros) *Order {
	o := newOrder(TypeTrailingStop, side, qty, traderID, offset)
	o.BestPrice = bestPrice
	return o
}

// IsOpen reports whether the order can still match.
func (o *Order) IsOpen() bool {
	return o.Status == StatusUnfilled || o.Status == StatusPartiallyFilled
}

// IsConditional reports whether the order rests outside the active book
// until a price condition triggers it.
func (o *Order) IsConditional() bool {
	return o.Type == TypeStop || o.Type == TypeStopLimit || o.Type == TypeTrailingStop
}

// HasPrice reports whether the order carries a real limit price.
func (o *Order) HasPrice() bool {
	return o.Price.IsValid()
}

// SetStatus transitions the order status. Transitions out of a terminal
// status are programming errors and panic.
func (o *Order) SetStatus(s Status) {
	if (o.Status == StatusFilled || o.Status == StatusCancelled) && s != o.Status {
		panic(fmt.Sprintf("order %d: illegal status transition %s -> %s", o.ID, o.Status, s))
	}
	o.Status = s
}
