package auction

import (
	"time"

	"github.com/google/uuid"
)

// Status represents the current status of an auction
type Status string

const (
	StatusPending  Status = "pending"
	StatusApproved Status = "approved"
	StatusRejected Status = "rejected"
	StatusClosed   Status = "closed"
	StatusSold     Status = "sold"
)

// Payment states for the post-closure settlement fields. Only the payment
// collaborator moves an auction past "pending".
const (
	PaymentUnpaid  = "unpaid"
	PaymentPending = "pending"
)

// Auction represents one item under timed competitive bidding
type Auction struct {
	ID                uuid.UUID  `json:"id"`
	Title             string     `json:"title"`
	Description       string     `json:"description"`
	ImageURL          string     `json:"image_url"`
	SellerID          uuid.UUID  `json:"seller_id"`
	StartingPrice     float64    `json:"starting_price"`
	CurrentHighestBid float64    `json:"current_highest_bid"`
	HighestBidder     *uuid.UUID `json:"highest_bidder,omitempty"`
	EndTime           time.Time  `json:"end_time"`
	IsActive          bool       `json:"is_active"`
	Status            Status     `json:"status"`
	IsPaid            bool       `json:"is_paid"`
	PaymentStatus     string     `json:"payment_status"`
	CreatedAt         time.Time  `json:"created_at"`
	UpdatedAt         time.Time  `json:"updated_at"`
}

// New creates a pending auction with the highest bid initialized to the
// starting price.
func New(title, description string, sellerID uuid.UUID, startingPrice float64, endTime time.Time) *Auction {
	now := time.Now()
	return &Auction{
		ID:                uuid.New(),
		Title:             title,
		Description:       description,
		SellerID:          sellerID,
		StartingPrice:     startingPrice,
		CurrentHighestBid: startingPrice,
		EndTime:           endTime,
		IsActive:          false,
		Status:            StatusPending,
		PaymentStatus:     PaymentUnpaid,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
}

// Approve transitions a pending auction to approved and opens it for bidding
func (a *Auction) Approve() {
	a.Status = StatusApproved
	a.IsActive = true
	a.UpdatedAt = time.Now()
}

// Reject marks a pending auction as rejected
func (a *Auction) Reject() {
	a.Status = StatusRejected
	a.IsActive = false
	a.UpdatedAt = time.Now()
}

// BiddingOpen reports whether the auction accepts bids at the given instant.
// The deadline check is deliberate: an auction whose end time has passed is
// closed even if a sweep has not yet flipped IsActive.
func (a *Auction) BiddingOpen(now time.Time) bool {
	return a.IsActive && a.Status == StatusApproved && now.Before(a.EndTime)
}

// AcceptBid records a new highest bid. The caller is responsible for having
// validated the amount against the current highest bid.
func (a *Auction) AcceptBid(bidderID uuid.UUID, amount float64) {
	a.CurrentHighestBid = amount
	a.HighestBidder = &bidderID
	a.UpdatedAt = time.Now()
}

// Close flips the auction inactive and marks the payment state as pending
// settlement. IsActive never transitions back to true afterwards.
func (a *Auction) Close() {
	a.IsActive = false
	a.Status = StatusClosed
	a.PaymentStatus = PaymentPending
	a.UpdatedAt = time.Now()
}

// IsClosed returns true once the auction has left the bidding phase
func (a *Auction) IsClosed() bool {
	return a.Status == StatusClosed || a.Status == StatusSold
}

// HasBids returns true if at least one bid was accepted
func (a *Auction) HasBids() bool {
	return a.HighestBidder != nil
}
