package wallet

import "errors"

var (
	ErrInvalidKey     = errors.New("invalid private key")
	ErrInvalidAddress = errors.New("invalid address")
	ErrInvalidAmount  = errors.New("invalid eth amount")
	ErrNoSession      = errors.New("no active session")
)
