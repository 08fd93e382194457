package biddingerrors

import (
	"errors"
	"fmt"
)

// Repository-level errors
var (
	ErrAuctionNotFound  = errors.New("auction not found")
	ErrShowNotFound     = errors.New("show not found")
	ErrItemNotFound     = errors.New("item not found")
	ErrStoreUnavailable = errors.New("store unavailable")

	// ErrConflict is returned by compare-and-update when the stored record
	// no longer matches the caller's precondition.
	ErrConflict = errors.New("precondition failed")

	// ErrLiveAuctionExists is the conflict raised when creating a live
	// auction for a show that already has one.
	ErrLiveAuctionExists = fmt.Errorf("%w: show already has a live auction", ErrConflict)
)

// business logic errors
var (
	ErrValidation     = errors.New("validation failed")
	ErrInvalidID      = errors.New("invalid id")
	ErrBidTooLow      = errors.New("bid amount too low")
	ErrAuctionNotLive = errors.New("auction not live")
	ErrContention     = errors.New("auction busy, resubmit bid")
)
