package domain

import "errors"

var (
	ErrNotFound               = errors.New("payment_intent_not_found")
	ErrInvalidAmount          = errors.New("invalid_intent_amount")
	ErrInvalidPurpose         = errors.New("invalid_intent_purpose")
	ErrMissingRegistration    = errors.New("ticket_intent_requires_registration")
	ErrUnexpectedRegistration = errors.New("intent_must_not_reference_registration")
	ErrExpired                = errors.New("payment_intent_expired")
	ErrTerminal               = errors.New("payment_intent_already_terminal")
)
