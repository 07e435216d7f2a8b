package shared

import "errors"

// Validation rejections. Expected outcomes: reported to the submitting
// observer only, never retried, never logged as errors.
var (
	ErrAuctionNotFound = errors.New("auction not found")
	ErrAuctionClosed   = errors.New("auction is closed or inactive")
	ErrBidTooLow       = errors.New("bid must be higher than the current highest bid")
)

// Auction lifecycle errors
var (
	ErrAuctionAlreadyClosed = errors.New("auction already closed")
	ErrAuctionNotPending    = errors.New("auction is not pending approval")
	ErrInvalidEndTime       = errors.New("end time must be in the future")
	ErrInvalidStartingPrice = errors.New("starting price must be greater than 0")
)

// User errors
var (
	ErrUserNotFound = errors.New("user not found")
)

// Internal failures. Surfaced to the caller as an internal error; bids are
// not retried automatically, closures retry naturally on the next sweep tick.
var (
	ErrLockTimeout     = errors.New("timed out acquiring auction lock")
	ErrNoBidsFound     = errors.New("no bids found")
	ErrInternal        = errors.New("internal server error while processing bid")
	ErrBroadcastFailed = errors.New("broadcast failed")
)

// WebSocket message validation errors
var (
	ErrMessageTypeRequired = errors.New("message type is required")
	ErrAuctionIDRequired   = errors.New("auction_id is required")
	ErrInvalidAmount       = errors.New("valid amount is required")
	ErrUnknownMessageType  = errors.New("unknown message type")
)

// IsValidationRejection reports whether err is an expected bid rejection as
// opposed to an internal failure.
func IsValidationRejection(err error) bool {
	return errors.Is(err, ErrAuctionNotFound) ||
		errors.Is(err, ErrAuctionClosed) ||
		errors.Is(err, ErrBidTooLow)
}
