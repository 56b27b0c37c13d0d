package engine

import (
	"fmt"
	"time"

	"exchange_go/internal/domain"
	"exchange_go/internal/event"
	"exchange_go/pkg/quant"
	"exchange_go/pkg/safe"
)

// RiskService gates order admission against global limits with optional
// per-trader overrides. Checks run in a fixed order and short-circuit on
// the first violation. A limit set to domain.Unlimited disables its check.
type RiskService struct {
	global    domain.RiskLimits
	overrides map[string]domain.RiskLimits

	traders *TraderRegistry
	market  *MarketService
	events  *event.Log
}

func NewRiskService(global domain.RiskLimits, traders *TraderRegistry, market *MarketService, events *event.Log) *RiskService {
	return &RiskService{
		global:    global,
		overrides: make(map[string]domain.RiskLimits),
		traders:   traders,
		market:    market,
		events:    events,
	}
}

// GlobalLimits returns the current global limit record.
func (s *RiskService) GlobalLimits() domain.RiskLimits { return s.global }

// EffectiveLimits resolves the limits that apply to one trader: the trader's
// override fields where set, the global values elsewhere.
func (s *RiskService) EffectiveLimits(traderID string) domain.RiskLimits {
	if o, ok := s.overrides[traderID]; ok {
		return o.Effective(s.global)
	}
	return s.global
}

// SetGlobalLimits replaces the global limits. With override set, existing
// per-trader overrides are cleared so the new limits bind everyone.
func (s *RiskService) SetGlobalLimits(limits domain.RiskLimits, override bool) {
	s.global = limits
	if override {
		s.overrides = make(map[string]domain.RiskLimits)
	}
	s.events.Publish(event.NewGlobalRiskEvent(limits, override))
}

// SetTraderLimits merges the set fields of limits into the trader's
// override record.
func (s *RiskService) SetTraderLimits(traderID string, limits domain.RiskLimits) {
	current, ok := s.overrides[traderID]
	if !ok {
		current = domain.UnlimitedRiskLimits()
	}
	current.Merge(limits)
	s.overrides[traderID] = current
	s.events.Publish(event.NewTraderRiskEvent(traderID, current))
}

// CheckOrder validates an order against the trader's effective limits. The
// first failed check wins; its reason is wrapped around ErrRiskRejected.
func (s *RiskService) CheckOrder(o *domain.Order) error {
	limits := s.EffectiveLimits(o.TraderID)
	trader := s.traders.Get(o.TraderID)

	if limits.MaxOrderSize != domain.Unlimited && o.InitialQty > limits.MaxOrderSize {
		return fmt.Errorf("%w: order size %d exceeds limit %d", ErrRiskRejected, o.InitialQty, limits.MaxOrderSize)
	}
	if limits.MaxDailyLoss != domain.Unlimited && trader.RealizedPnL() < -limits.MaxDailyLoss {
		return fmt.Errorf("%w: daily loss %s exceeds limit %s",
			ErrRiskRejected, quant.FormatPrice(quant.PriceMicros(-trader.RealizedPnL())), quant.FormatPrice(quant.PriceMicros(limits.MaxDailyLoss)))
	}
	if limits.MaxDrawdown != domain.Unlimited && trader.MaxDrawdown() > limits.MaxDrawdown {
		return fmt.Errorf("%w: drawdown %s exceeds limit %s", ErrRiskRejected, trader.MaxDrawdown(), limits.MaxDrawdown)
	}
	if limits.MaxOrdersPerMin != domain.Unlimited && int64(trader.RecentOrderCount(time.Now())) >= limits.MaxOrdersPerMin {
		return fmt.Errorf("%w: order rate exceeds %d per minute", ErrRiskRejected, limits.MaxOrdersPerMin)
	}
	if o.Side == domain.SideBid {
		if limits.MaxOpenPosition != domain.Unlimited && trader.Inventory()+o.InitialQty > limits.MaxOpenPosition {
			return fmt.Errorf("%w: position %d would exceed limit %d",
				ErrRiskRejected, trader.Inventory()+o.InitialQty, limits.MaxOpenPosition)
		}
		return nil
	}
	if limits.MaxRiskPerOrder != domain.Unlimited {
		if risk, ok := s.orderRiskBps(o, trader); ok && risk > limits.MaxRiskPerOrder {
			return fmt.Errorf("%w: order risk %s exceeds limit %s", ErrRiskRejected, risk, limits.MaxRiskPerOrder)
		}
	}
	return nil
}

// orderRiskBps sizes an ask's notional against the trader's portfolio
// value. Unpriced orders use the current market price; with no portfolio or
// no usable price the check cannot apply.
func (s *RiskService) orderRiskBps(o *domain.Order, trader *domain.Trader) (quant.Bps, bool) {
	price := o.Price
	if !price.IsValid() {
		price = s.market.CurrentPrice()
	}
	if !price.IsValid() {
		return 0, false
	}
	portfolio := safe.Mul(trader.Inventory(), int64(trader.AvgEntryPrice()))
	if portfolio <= 0 {
		return 0, false
	}
	notional := safe.Mul(o.InitialQty, int64(price))
	return quant.Bps(safe.Div(safe.Mul(notional, 10000), portfolio)), true
}
