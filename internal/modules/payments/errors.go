package payments

import "errors"

var (
	ErrNoAmount     = errors.New("event has no valid price and no amount provided")
	ErrInvalidPhone = errors.New("invalid phone format (use 2547XXXXXXXX)")
	ErrNotFound     = errors.New("payment not found")
)
