package quant

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// PriceMicros represents price multiplied by 1,000,000 (10^6).
// E.g., 101.25 = 101,250,000 PriceMicros.
type PriceMicros int64

// Bps represents a percentage in basis points. 1% = 100 Bps.
type Bps int64

const (
	PriceScale = 1000000

	// NoPrice marks an order with no limit price (a market order).
	// Only values > 0 are real prices.
	NoPrice PriceMicros = -1
)

// IsValid reports whether p is a real, positive price.
func (p PriceMicros) IsValid() bool {
	return p > 0
}

func (p PriceMicros) String() string {
	return fmt.Sprintf("%.6f", float64(p)/PriceScale)
}

func (b Bps) String() string {
	return fmt.Sprintf("%.2f%%", float64(b)/100)
}

// ParsePrice converts a decimal string (from the API boundary) to PriceMicros.
// Internal logic never touches float64 on money.
func ParsePrice(s string) (PriceMicros, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, fmt.Errorf("invalid price %q: %w", s, err)
	}
	return PriceMicros(d.Shift(6).Round(0).IntPart()), nil
}

// FormatPrice renders a PriceMicros as a decimal string.
func FormatPrice(p PriceMicros) string {
	return decimal.New(int64(p), -6).String()
}

// ParsePercent converts a decimal percent string ("12.5") to basis points.
func ParsePercent(s string) (Bps, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, fmt.Errorf("invalid percent %q: %w", s, err)
	}
	return Bps(d.Shift(2).Round(0).IntPart()), nil
}

// FormatPercent renders basis points as a decimal percent string.
func FormatPercent(b Bps) string {
	return decimal.New(int64(b), -2).String()
}
