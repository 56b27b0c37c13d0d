package engine

import "errors"

var (
	// ErrRiskRejected means an order failed a risk check and never entered
	// any queue.
	ErrRiskRejected = errors.New("order rejected by risk limits")

	// ErrOrderNotFound means a cancel, modify, or best-order lookup targeted
	// an order the store does not hold.
	ErrOrderNotFound = errors.New("order not found")

	// ErrOrderNotOpen means a cancel or modify targeted an order that has
	// already started filling or reached a terminal state.
	ErrOrderNotOpen = errors.New("order is not open")
)
