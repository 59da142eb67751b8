package server

import "errors"

// Sentinel errors for server conditions.
var (
	// ErrServerClosed is returned by Apply after Shutdown.
	ErrServerClosed = errors.New("server: closed")

	// ErrMaxClientsReached is returned when the client limit is reached.
	ErrMaxClientsReached = errors.New("server: max clients reached")

	// ErrClientTooSlow is the reason a client that fell behind is dropped.
	ErrClientTooSlow = errors.New("server: client too slow")
)
