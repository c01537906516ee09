package domain

import "errors"

var (
	ErrInvalidAmount       = errors.New("invalid_amount")
	ErrInvalidUser         = errors.New("invalid_user")
	ErrWalletNotFound      = errors.New("wallet_not_found")
	ErrInsufficientBalance = errors.New("insufficient_balance")
	ErrDuplicateReference  = errors.New("duplicate_provider_reference")
)
