package storage

import (
	"database/sql"
	"fmt"

	"exchange_go/internal/domain"
)

// OrderStore persists orders. It implements engine.OrderRepository.
type OrderStore struct {
	db *sql.DB
}

// CreateOrder inserts the order and returns the assigned id.
func (s *OrderStore) CreateOrder(o *domain.Order) (int64, error) {
	res, err := s.db.Exec(`
		INSERT INTO orders
			(type, side, status, initial_qty, remaining_qty, trader_id, ts,
			 price, limit_price, best_price, hidden_qty, display_size)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		string(o.Type), string(o.Side), string(o.Status),
		o.InitialQty, o.RemainingQty, o.TraderID, o.Timestamp,
		int64(o.Price), int64(o.LimitPrice), int64(o.BestPrice),
		o.HiddenQty, o.DisplaySize,
	)
	if err != nil {
		return 0, fmt.Errorf("failed to insert order: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to read order id: %w", err)
	}
	return id, nil
}

// UpdateOrder rewrites the mutable state of an existing order.
func (s *OrderStore) UpdateOrder(o *domain.Order) error {
	res, err := s.db.Exec(`
		UPDATE orders SET
			type = ?, status = ?, initial_qty = ?, remaining_qty = ?,
			price = ?, limit_price = ?, best_price = ?,
			hidden_qty = ?, display_size = ?
		WHERE id = ?`,
		string(o.Type), string(o.Status), o.InitialQty, o.RemainingQty,
		int64(o.Price), int64(o.LimitPrice), int64(o.BestPrice),
		o.HiddenQty, o.DisplaySize, o.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update order %d: %w", o.ID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to update order %d: %w", o.ID, err)
	}
	if n == 0 {
		return fmt.Errorf("failed to update order %d: no such row", o.ID)
	}
	return nil
}

// ActiveOrders loads every non-conditional order that can still match, for
// book recovery on startup.
func (s *OrderStore) ActiveOrders() ([]*domain.Order, error) {
	rows, err := s.db.Query(`
		SELECT id, type, side, status, initial_qty, remaining_qty, trader_id,
		       ts, price, limit_price, best_price, hidden_qty, display_size
		FROM orders
		WHERE status IN (?, ?) AND type NOT IN (?, ?, ?)
		ORDER BY id`,
		string(domain.StatusUnfilled), string(domain.StatusPartiallyFilled),
		string(domain.TypeStop), string(domain.TypeStopLimit), string(domain.TypeTrailingStop),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query active orders: %w", err)
	}
	defer rows.Close()

	var out []*domain.Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, o)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read active orders: %w", err)
	}
	return out, nil
}

// GetOrder loads one order by id.
func (s *OrderStore) GetOrder(id int64) (*domain.Order, error) {
	rows, err := s.db.Query(`
		SELECT id, type, side, status, initial_qty, remaining_qty, trader_id,
		       ts, price, limit_price, best_price, hidden_qty, display_size
		FROM orders WHERE id = ?`, id)
	if err != nil {
		return nil, fmt.Errorf("failed to query order %d: %w", id, err)
	}
	defer rows.Close()

	if !rows.Next() {
		return nil, sql.ErrNoRows
	}
	return scanOrder(rows)
}

func scanOrder(rows *sql.Rows) (*domain.Order, error) {
	var o domain.Order
	var typ, side, status string
	var price, limitPrice, bestPrice int64
	err := rows.Scan(
		&o.ID, &typ, &side, &status, &o.InitialQty, &o.RemainingQty,
		&o.TraderID, &o.Timestamp, &price, &limitPrice, &bestPrice,
		&o.HiddenQty, &o.DisplaySize,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to scan order: %w", err)
	}
	o.Type = domain.OrderType(typ)
	o.Side = domain.Side(side)
	o.Status = domain.Status(status)
	o.Price = quantPrice(price)
	o.LimitPrice = quantPrice(limitPrice)
	o.BestPrice = quantPrice(bestPrice)
	return &o, nil
}
