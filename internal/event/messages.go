package event

import (
	"fmt"

	"exchange_go/internal/domain"
	"exchange_go/pkg/quant"
)

// Human-readable event messages. The wire payload carries the full order
// snapshot; these are for log lines and UI tickers.

func priceLabel(p quant.PriceMicros) string {
	if !p.IsValid() {
		return "MKT"
	}
	return quant.FormatPrice(p)
}

func OrderAddedMessage(o *domain.Order) string {
	return fmt.Sprintf("%s %s %d @ %s by %s", o.Type, o.Side, o.InitialQty, priceLabel(o.Price), o.TraderID)
}

func OrderModifiedMessage(o *domain.Order) string {
	return fmt.Sprintf("order %d modified to %d @ %s", o.ID, o.InitialQty, priceLabel(o.Price))
}

func OrderCancelledMessage(o *domain.Order) string {
	return fmt.Sprintf("order %d cancelled", o.ID)
}

func OrderRejectedMessage(o *domain.Order, reason string) string {
	return fmt.Sprintf("order from %s rejected: %s", o.TraderID, reason)
}

func OrderTriggeredMessage(o *domain.Order) string {
	return fmt.Sprintf("%s order %d triggered", o.Type, o.ID)
}

func IOCCancelledMessage(o *domain.Order) string {
	return fmt.Sprintf("IOC order %d cancelled with %d unfilled", o.ID, o.RemainingQty)
}

func FOKRejectedMessage(o *domain.Order) string {
	return fmt.Sprintf("FOK order %d rejected: cannot fill %d", o.ID, o.InitialQty)
}
