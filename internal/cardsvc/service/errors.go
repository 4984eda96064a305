package service

import "errors"

// Business-rule errors surfaced to callers as client errors. Checked
// with errors.Is; handlers map them onto HTTP status codes.
var (
	ErrCardNotFound     = errors.New("card not found")
	ErrCardSNTaken      = errors.New("card serial number already registered")
	ErrVisitorNotFound  = errors.New("visitor not found")
	ErrSupplierNotFound = errors.New("supplier not found")
	ErrCardInactive     = errors.New("card is not active")
	ErrCardAssigned     = errors.New("card already has a visitor")
	ErrCardUnassigned   = errors.New("card has no visitor")
	ErrVisitorHasCard   = errors.New("visitor already holds a card")
	ErrVisitorCompleted = errors.New("visitor is already completed")
	ErrInvalidLocation  = errors.New("invalid location")
)
