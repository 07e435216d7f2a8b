package shared

import "github.com/google/uuid"

// ClosureResult is the outcome of closing one expired auction
type ClosureResult struct {
	AuctionID      uuid.UUID
	Title          string
	WinnerID       *uuid.UUID
	WinnerUsername string
	FinalBid       float64
}

// HasWinner reports whether any bid was ever accepted before closure
func (r *ClosureResult) HasWinner() bool {
	return r.WinnerID != nil
}
