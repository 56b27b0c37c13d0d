package api

import (
	"fmt"

	"exchange_go/internal/domain"
	"exchange_go/pkg/quant"
)

// PlaceOrderRequest is the wire form of an order submission. Money fields
// are decimal strings; they are parsed into fixed-point micros at this
// boundary and nowhere else.
type PlaceOrderRequest struct {
	Type     string `json:"type" binding:"required"`
	Side     string `json:"side" binding:"required"`
	TraderID string `json:"trader_id" binding:"required"`
	Quantity int64  `json:"quantity" binding:"required"`

	Price       string `json:"price,omitempty"`
	LimitPrice  string `json:"limit_price,omitempty"`  // stop-limit only
	TrailOffset string `json:"trail_offset,omitempty"` // trailing stop only
	DisplaySize int64  `json:"display_size,omitempty"` // iceberg only
}

// ModifyOrderRequest changes price and quantity of a resting order.
type ModifyOrderRequest struct {
	Quantity int64  `json:"quantity" binding:"required"`
	Price    string `json:"price" binding:"required"`
}

// UpdateRiskRequest sets global or per-trader risk limits.
type UpdateRiskRequest struct {
	Scope    string            `json:"scope" binding:"required"` // GLOBAL or TRADER
	TraderID string            `json:"trader_id,omitempty"`
	Override bool              `json:"override,omitempty"`
	Limits   domain.RiskLimits `json:"limits"`
}

// OrderResponse is the wire form of an order.
type OrderResponse struct {
	ID           int64  `json:"id"`
	Type         string `json:"type"`
	Side         string `json:"side"`
	Status       string `json:"status"`
	TraderID     string `json:"trader_id"`
	Quantity     int64  `json:"quantity"`
	RemainingQty int64  `json:"remaining_qty"`
	Price        string `json:"price,omitempty"`
	LimitPrice   string `json:"limit_price,omitempty"`
	HiddenQty    int64  `json:"hidden_qty,omitempty"`
	DisplaySize  int64  `json:"display_size,omitempty"`
	Timestamp    int64  `json:"ts"`
}

func toOrderResponse(o domain.Order) OrderResponse {
	resp := OrderResponse{
		ID:           o.ID,
		Type:         string(o.Type),
		Side:         string(o.Side),
		Status:       string(o.Status),
		TraderID:     o.TraderID,
		Quantity:     o.InitialQty,
		RemainingQty: o.RemainingQty,
		HiddenQty:    o.HiddenQty,
		DisplaySize:  o.DisplaySize,
		Timestamp:    o.Timestamp,
	}
	if o.Price.IsValid() {
		resp.Price = quant.FormatPrice(o.Price)
	}
	if o.LimitPrice.IsValid() {
		resp.LimitPrice = quant.FormatPrice(o.LimitPrice)
	}
	return resp
}

// TradeResponse is the wire form of an executed trade.
type TradeResponse struct {
	ID          int64  `json:"id"`
	BuyOrderID  int64  `json:"buy_order_id"`
	SellOrderID int64  `json:"sell_order_id"`
	Quantity    int64  `json:"quantity"`
	Price       string `json:"price"`
	Timestamp   int64  `json:"ts"`
}

func toTradeResponse(t domain.Trade) TradeResponse {
	return TradeResponse{
		ID:          t.ID,
		BuyOrderID:  t.BuyOrderID,
		SellOrderID: t.SellOrderID,
		Quantity:    t.Quantity,
		Price:       quant.FormatPrice(t.Price),
		Timestamp:   t.Timestamp,
	}
}

// buildOrder validates the request and constructs the matching domain
// order.
func buildOrder(req PlaceOrderRequest) (*domain.Order, error) {
	if req.Quantity <= 0 {
		return nil, fmt.Errorf("quantity must be positive")
	}
	var side domain.Side
	switch domain.Side(req.Side) {
	case domain.SideBid, domain.SideAsk:
		side = domain.Side(req.Side)
	default:
		return nil, fmt.Errorf("invalid side %q", req.Side)
	}

	switch domain.OrderType(req.Type) {
	case domain.TypeMarket:
		if req.Price != "" {
			return nil, fmt.Errorf("market order must not carry a price")
		}
		return domain.NewMarketOrder(side, req.Quantity, req.TraderID), nil

	case domain.TypeLimit:
		price, err := requirePrice(req.Price, "price")
		if err != nil {
			return nil, err
		}
		return domain.NewLimitOrder(side, req.Quantity, req.TraderID, price), nil

	case domain.TypeIOC:
		price, err := requirePrice(req.Price, "price")
		if err != nil {
			return nil, err
		}
		return domain.NewIOCOrder(side, req.Quantity, req.TraderID, price), nil

	case domain.TypeFOK:
		price, err := requirePrice(req.Price, "price")
		if err != nil {
			return nil, err
		}
		return domain.NewFOKOrder(side, req.Quantity, req.TraderID, price), nil

	case domain.TypeIceberg:
		price, err := requirePrice(req.Price, "price")
		if err != nil {
			return nil, err
		}
		if req.DisplaySize <= 0 || req.DisplaySize >= req.Quantity {
			return nil, fmt.Errorf("display_size must be positive and below quantity")
		}
		hidden := req.Quantity - req.DisplaySize
		return domain.NewIcebergOrder(side, req.Quantity, req.TraderID, price, req.DisplaySize, hidden), nil

	case domain.TypeStop:
		price, err := requirePrice(req.Price, "price")
		if err != nil {
			return nil, err
		}
		return domain.NewStopOrder(side, req.Quantity, req.TraderID, price), nil

	case domain.TypeStopLimit:
		stop, err := requirePrice(req.Price, "price")
		if err != nil {
			return nil, err
		}
		limit, err := requirePrice(req.LimitPrice, "limit_price")
		if err != nil {
			return nil, err
		}
		return domain.NewStopLimitOrder(side, req.Quantity, req.TraderID, stop, limit), nil

	case domain.TypeTrailingStop:
		offset, err := requirePrice(req.TrailOffset, "trail_offset")
		if err != nil {
			return nil, err
		}
		// The water mark seeds from the first market tick.
		return domain.NewTrailingStopOrder(side, req.Quantity, req.TraderID, offset, quant.NoPrice), nil

	default:
		return nil, fmt.Errorf("invalid order type %q", req.Type)
	}
}

func requirePrice(s, field string) (quant.PriceMicros, error) {
	if s == "" {
		return 0, fmt.Errorf("%s is required", field)
	}
	p, err := quant.ParsePrice(s)
	if err != nil {
		return 0, err
	}
	if !p.IsValid() {
		return 0, fmt.Errorf("%s must be positive", field)
	}
	return p, nil
}
