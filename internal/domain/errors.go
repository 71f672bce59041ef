package domain

import "errors"

var (
	ErrValidation        = errors.New("invalid input")
	ErrAuthorization     = errors.New("not authorized")
	ErrInvalidCredential = errors.New("invalid credentials")
	ErrInvalidCode       = errors.New("invalid or expired code")
	ErrInsufficientFunds = errors.New("insufficient funds")
	ErrAlreadyResolved   = errors.New("record already resolved")
	ErrNotFound          = errors.New("record not found")
	ErrProvisioning      = errors.New("wallet provisioning failed")
	ErrDuplicateEmail    = errors.New("email already registered")
)
