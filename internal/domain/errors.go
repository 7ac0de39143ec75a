package domain

import "errors"

var (
	ErrNotFound         = errors.New("not found")
	ErrAccountNotFound  = errors.New("account not found")
	ErrAccountSuspended = errors.New("account suspended")
	ErrAccountDeleted   = errors.New("account deleted")
	ErrEntryNotFound    = errors.New("transaction not found")
	ErrDuplicateEntry   = errors.New("duplicate external transaction id")
	ErrInvalidAmount    = errors.New("amount must be greater than zero")
	ErrBalanceUnderflow = errors.New("reversal would make balance negative")
)
