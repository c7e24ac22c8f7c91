package state

import (
	"errors"

	"github.com/couchcryptid/himark-dashboard/internal/domain"
)

var (
	// ErrInvalidArgument is returned for empty or malformed paths and for
	// values of the wrong type for a typed path.
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrSubscriberFault wraps a panic raised by a subscriber or event
	// listener. It is logged, never returned to Set callers.
	ErrSubscriberFault = errors.New("subscriber fault")

	// ErrURLSync wraps failures reading or writing the location. In-memory
	// state stays authoritative when it occurs.
	ErrURLSync = errors.New("url sync fault")

	// ErrMalformedInput marks record data that is not a sequence.
	ErrMalformedInput = domain.ErrMalformedInput
)
