package outbound

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// EventType tags the variant carried by an Event
type EventType string

const (
	EventTypeBidUpdate     EventType = "bidUpdate"
	EventTypeAuctionClosed EventType = "auctionClosed"
)

// BidUpdate is broadcast to every observer of an auction when a bid is
// accepted.
type BidUpdate struct {
	AuctionID                uuid.UUID `json:"auctionId"`
	NewBid                   float64   `json:"newBid"`
	HighestBidderID          uuid.UUID `json:"highestBidderId"`
	HighestBidderDisplayName string    `json:"highestBidderDisplayName"`
	Timestamp                time.Time `json:"timestamp"`
}

// AuctionClosed is broadcast when the lifecycle sweep closes an auction that
// received at least one bid.
type AuctionClosed struct {
	ItemID         uuid.UUID `json:"itemId"`
	Title          string    `json:"title"`
	WinnerUsername string    `json:"winnerUsername"`
	FinalBid       float64   `json:"finalBid"`
}

// Event is a tagged variant: exactly one payload field is set, matching Type.
type Event struct {
	Type          EventType      `json:"type"`
	AuctionID     uuid.UUID      `json:"auction_id"`
	BidUpdate     *BidUpdate     `json:"bid_update,omitempty"`
	AuctionClosed *AuctionClosed `json:"auction_closed,omitempty"`
	Timestamp     int64          `json:"timestamp"`
}

// NewBidUpdateEvent builds the bidUpdate variant
func NewBidUpdateEvent(update BidUpdate) Event {
	return Event{
		Type:      EventTypeBidUpdate,
		AuctionID: update.AuctionID,
		BidUpdate: &update,
		Timestamp: update.Timestamp.Unix(),
	}
}

// NewAuctionClosedEvent builds the auctionClosed variant
func NewAuctionClosedEvent(closed AuctionClosed) Event {
	return Event{
		Type:          EventTypeAuctionClosed,
		AuctionID:     closed.ItemID,
		AuctionClosed: &closed,
		Timestamp:     time.Now().Unix(),
	}
}

// Broadcaster owns the mapping from auction id to the set of currently
// subscribed observers. Subscribe, Unsubscribe and Publish are its only
// mutation points and must be safe under concurrent invocation. Delivery is
// best-effort: a failure to reach an observer never propagates to the caller
// and never rolls back committed state.
type Broadcaster interface {
	// Subscribe registers an observer's event channel for an auction. Events
	// for the same auction arrive on the channel in publish order.
	Subscribe(ctx context.Context, auctionID uuid.UUID, observerID string, events chan Event) error

	// Unsubscribe removes the observer from the auction's room. Idempotent;
	// unsubscribing an unknown observer is not an error. Events already in
	// flight may still land on the observer's channel, so the channel owner
	// must not close it while the broadcaster could hold a reference.
	Unsubscribe(ctx context.Context, auctionID uuid.UUID, observerID string) error

	// UnsubscribeAll removes the observer from every room it joined. Used on
	// disconnect; idempotent.
	UnsubscribeAll(ctx context.Context, observerID string) error

	// Publish delivers the event to every current subscriber of the auction
	// and to no others. Publishing to an empty room is a no-op.
	Publish(ctx context.Context, auctionID uuid.UUID, event Event) error

	// IsSubscribed checks if an observer is subscribed to an auction
	IsSubscribed(ctx context.Context, auctionID uuid.UUID, observerID string) bool
}
