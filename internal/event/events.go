package event

import (
	"time"

	"exchange_go/internal/domain"
)

// Type tags the event payload.
type Type string

const (
	OrderAdded     Type = "ORDER_ADDED"
	OrderModified  Type = "ORDER_MODIFIED"
	OrderCancelled Type = "ORDER_CANCELLED"
	OrderRejected  Type = "ORDER_REJECTED"
	OrderTriggered Type = "ORDER_TRIGGERED"
	TradeExecuted  Type = "TRADE_EXECUTED"
	RiskUpdated    Type = "RISK_UPDATED"
)

// Scope identifies whose risk limits a RiskEvent updates.
type Scope string

const (
	ScopeGlobal Scope = "GLOBAL"
	ScopeTrader Scope = "TRADER"
)

// Event is the interface for all core events.
type Event interface {
	EventType() Type
	At() int64
}

// Base carries the fields every event shares.
type Base struct {
	Ts int64 `json:"ts"` // unix micros
}

func (b Base) At() int64 { return b.Ts }

func now() Base {
	return Base{Ts: time.Now().UnixMicro()}
}

// OrderEvent reports an order lifecycle change. Order is a snapshot taken at
// emission time, not a live reference.
type OrderEvent struct {
	Base
	Kind    Type         `json:"type"`
	Order   domain.Order `json:"order"`
	Message string       `json:"message"`
}

func (e OrderEvent) EventType() Type { return e.Kind }

// NewOrderEvent snapshots the order and builds the event.
func NewOrderEvent(kind Type, order *domain.Order, message string) OrderEvent {
	return OrderEvent{Base: now(), Kind: kind, Order: *order, Message: message}
}

// TradeEvent reports an executed trade with both counterparties.
type TradeEvent struct {
	Base
	Trade        domain.Trade `json:"trade"`
	BuyTraderID  string       `json:"buy_trader_id"`
	SellTraderID string       `json:"sell_trader_id"`
}

func (e TradeEvent) EventType() Type { return TradeExecuted }

func NewTradeEvent(trade domain.Trade, buyTraderID, sellTraderID string) TradeEvent {
	return TradeEvent{Base: now(), Trade: trade, BuyTraderID: buyTraderID, SellTraderID: sellTraderID}
}

// RiskEvent reports a risk-limit update, either global or for one trader.
type RiskEvent struct {
	Base
	Scope    Scope             `json:"scope"`
	TraderID string            `json:"trader_id,omitempty"`
	Limits   domain.RiskLimits `json:"limits"`
	Override bool              `json:"override"`
}

func (e RiskEvent) EventType() Type { return RiskUpdated }

func NewGlobalRiskEvent(limits domain.RiskLimits, override bool) RiskEvent {
	return RiskEvent{Base: now(), Scope: ScopeGlobal, Limits: limits, Override: override}
}

func NewTraderRiskEvent(traderID string, limits domain.RiskLimits) RiskEvent {
	return RiskEvent{Base: now(), Scope: ScopeTrader, TraderID: traderID, Limits: limits}
}
