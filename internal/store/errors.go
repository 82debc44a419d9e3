package store

import "errors"

var (
	ErrTicketNotFound = errors.New("ticket not found")
	ErrInvalidState   = errors.New("invalid ticket state")
	ErrInvalidInput   = errors.New("invalid input")
	ErrUnknownService = errors.New("unknown service")
)
