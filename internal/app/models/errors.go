package models

import "errors"

// Domain specific errors surfaced to views as inline messages.
var (
	ErrNotFound        = errors.New("requested item not found")
	ErrUnauthenticated = errors.New("authentication required or invalid credentials")
	ErrForbidden       = errors.New("action forbidden")
	ErrBadRequest      = errors.New("bad request")
	ErrEmptyCart       = errors.New("no items to purchase")
)
