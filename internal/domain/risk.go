package domain

import "exchange_go/pkg/quant"

// Unlimited marks a RiskLimits field as unset. In a per-trader override it
// means "inherit the global value for this field"; in the global limits it
// disables the check.
const Unlimited = -1

// RiskLimits bounds a trader's activity. Limits combine field-by-field, not
// record-by-record: an override record may pin some fields and inherit the
// rest.
type RiskLimits struct {
	MaxOpenPosition int64     `json:"max_open_position" yaml:"max_open_position"`
	MaxOrderSize    int64     `json:"max_order_size" yaml:"max_order_size"`
	MaxOrdersPerMin int64     `json:"max_orders_per_min" yaml:"max_orders_per_min"`
	MaxDailyLoss    int64     `json:"max_daily_loss" yaml:"max_daily_loss"` // micros
	MaxDrawdown     quant.Bps `json:"max_drawdown" yaml:"max_drawdown"`
	MaxRiskPerOrder quant.Bps `json:"max_risk_per_order" yaml:"max_risk_per_order"`
}

// UnlimitedRiskLimits returns a record with every field unset.
func UnlimitedRiskLimits() RiskLimits {
	return RiskLimits{
		MaxOpenPosition: Unlimited,
		MaxOrderSize:    Unlimited,
		MaxOrdersPerMin: Unlimited,
		MaxDailyLoss:    Unlimited,
		MaxDrawdown:     Unlimited,
		MaxRiskPerOrder: Unlimited,
	}
}

// IsUnlimited reports whether every field is unset.
func (l RiskLimits) IsUnlimited() bool {
	return l == UnlimitedRiskLimits()
}

// Effective resolves unset fields of an override against the global limits.
func (l RiskLimits) Effective(global RiskLimits) RiskLimits {
	out := l
	if out.MaxOpenPosition == Unlimited {
		out.MaxOpenPosition = global.MaxOpenPosition
	}
	if out.MaxOrderSize == Unlimited {
		out.MaxOrderSize = global.MaxOrderSize
	}
	if out.MaxOrdersPerMin == Unlimited {
		out.MaxOrdersPerMin = global.MaxOrdersPerMin
	}
	if out.MaxDailyLoss == Unlimited {
		out.MaxDailyLoss = global.MaxDailyLoss
	}
	if out.MaxDrawdown == Unlimited {
		out.MaxDrawdown = global.MaxDrawdown
	}
	if out.MaxRiskPerOrder == Unlimited {
		out.MaxRiskPerOrder = global.MaxRiskPerOrder
	}
	return out
}

// Merge applies the set fields of update onto l, leaving unset fields alone.
func (l *RiskLimits) Merge(update RiskLimits) {
	if update.MaxOpenPosition != Unlimited {
		l.MaxOpenPosition = update.MaxOpenPosition
	}
	if update.MaxOrderSize != Unlimited {
		l.MaxOrderSize = update.MaxOrderSize
	}
	if update.MaxOrdersPerMin != Unlimited {
		l.MaxOrdersPerMin = update.MaxOrdersPerMin
	}
	if update.MaxDailyLoss != Unlimited {
		l.MaxDailyLoss = update.MaxDailyLoss
	}
	if update.MaxDrawdown != Unlimited {
		l.MaxDrawdown = update.MaxDrawdown
	}
	if update.MaxRiskPerOrder != Unlimited {
		l.MaxRiskPerOrder = update.MaxRiskPerOrder
	}
}
