package storage

import (
	"database/sql"
	"fmt"

	"exchange_go/internal/domain"
	"exchange_go/pkg/quant"
)

func quantPrice(v int64) quant.PriceMicros {
	return quant.PriceMicros(v)
}

// TradeStore persists trades. It implements engine.TradeRepository.
type TradeStore struct {
	db *sql.DB
}

// CreateTrade inserts the trade and returns the assigned id.
func (s *TradeStore) CreateTrade(t *domain.Trade) (int64, error) {
	res, err := s.db.Exec(`
		INSERT INTO trades
			(buy_order_id, sell_order_id, buy_order_type, sell_order_type,
			 quantity, price, ts)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		t.BuyOrderID, t.SellOrderID,
		string(t.BuyOrderType), string(t.SellOrderType),
		t.Quantity, int64(t.Price), t.Timestamp,
	)
	if err != nil {
		return 0, fmt.Errorf("failed to insert trade: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to read trade id: %w", err)
	}
	return id, nil
}

// Trades loads the full trade history in insertion order.
func (s *TradeStore) Trades() ([]domain.Trade, error) {
	rows, err := s.db.Query(`
		SELECT id, buy_order_id, sell_order_id, buy_order_type,
		       sell_order_type, quantity, price, ts
		FROM trades ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("failed to query trades: %w", err)
	}
	defer rows.Close()

	var out []domain.Trade
	for rows.Next() {
		var t domain.Trade
		var buyType, sellType string
		var price int64
		err := rows.Scan(&t.ID, &t.BuyOrderID, &t.SellOrderID,
			&buyType, &sellType, &t.Quantity, &price, &t.Timestamp)
		if err != nil {
			return nil, fmt.Errorf("failed to scan trade: %w", err)
		}
		t.BuyOrderType = domain.OrderType(buyType)
		t.SellOrderType = domain.OrderType(sellType)
		t.Price = quantPrice(price)
		out = append(out, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read trades: %w", err)
	}
	return out, nil
}
