package order

import "errors"

var (
	ErrOrderNotFound     = errors.New("order not found")
	ErrInvalidStatus     = errors.New("invalid order status")
	ErrInvalidInput      = errors.New("invalid order input")
	ErrInvalidTransition = errors.New("invalid status transition")
)
