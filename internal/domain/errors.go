package domain

import "errors"

var (
	ErrSignatureInvalid = errors.New("payment event signature is invalid")
	ErrMalformedEvent   = errors.New("payment event is malformed")
	ErrProductNotFound  = errors.New("product not found")
	ErrGateway          = errors.New("external gateway error")
	// ErrDuplicateEvent is returned by the sale store when the checkout session
	// was already recorded. Callers collapse it to success.
	ErrDuplicateEvent  = errors.New("payment event already processed")
	ErrSaleNotFound    = errors.New("sale not found")
	ErrSessionNotFound = errors.New("checkout session not found")
	ErrPriceMismatch   = errors.New("checkout request does not match catalog entry")
	ErrInvalidProduct  = errors.New("invalid product")
)
