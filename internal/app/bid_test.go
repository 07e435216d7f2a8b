package app

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"livebid-service/internal/adapters/memory"
	"livebid-service/internal/domain/auction"
	"livebid-service/internal/domain/shared"
	"livebid-service/internal/ports/inbound"
	"livebid-service/internal/ports/outbound"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

// captureBroadcaster records published events for assertions
type captureBroadcaster struct {
	mu     sync.Mutex
	events []outbound.Event
}

func (c *captureBroadcaster) Subscribe(ctx context.Context, auctionID uuid.UUID, observerID string, events chan outbound.Event) error {
	return nil
}

func (c *captureBroadcaster) Unsubscribe(ctx context.Context, auctionID uuid.UUID, observerID string) error {
	return nil
}

func (c *captureBroadcaster) UnsubscribeAll(ctx context.Context, observerID string) error {
	return nil
}

func (c *captureBroadcaster) Publish(ctx context.Context, auctionID uuid.UUID, event outbound.Event) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = append(c.events, event)
	return nil
}

func (c *captureBroadcaster) IsSubscribed(ctx context.Context, auctionID uuid.UUID, observerID string) bool {
	return false
}

func (c *captureBroadcaster) published() []outbound.Event {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]outbound.Event, len(c.events))
	copy(out, c.events)
	return out
}

type bidFixture struct {
	store       *memory.Store
	broadcaster *captureBroadcaster
	bids        *BidService
	auctions    *AuctionService
	locks       *AuctionLocks
	auction     *auction.Auction
	bidder      uuid.UUID
}

func newBidFixture(t *testing.T, startingPrice float64, endsIn time.Duration) *bidFixture {
	t.Helper()

	store := memory.NewStore()
	events := &captureBroadcaster{}
	locks := NewAuctionLocks()

	bidderID := uuid.New()
	store.PutUser(shared.User{ID: bidderID, Username: "alice", Role: shared.RoleBidder})

	a := auction.New("Vintage clock", "A clock", uuid.New(), startingPrice, time.Now().Add(endsIn))
	a.Approve()
	require.NoError(t, store.CreateAuction(context.Background(), a))

	bids := NewBidService(BidServiceParams{
		AuctionStore: store,
		BidStore:     store,
		Users:        store,
		Broadcaster:  events,
		Locks:        locks,
		LockTimeout:  time.Second,
		Logger:       zerolog.Nop(),
	})
	auctions := NewAuctionService(AuctionServiceParams{
		AuctionStore: store,
		BidStore:     store,
		Users:        store,
		Locks:        locks,
		Logger:       zerolog.Nop(),
	})

	return &bidFixture{
		store:       store,
		broadcaster: events,
		bids:        bids,
		auctions:    auctions,
		locks:       locks,
		auction:     a,
		bidder:      bidderID,
	}
}

func (f *bidFixture) placeBid(amount float64) (*inbound.PlaceBidResult, error) {
	return f.bids.PlaceBid(context.Background(), inbound.PlaceBidRequest{
		AuctionID: f.auction.ID,
		BidderID:  f.bidder,
		Amount:    amount,
	})
}

func TestPlaceBid_RejectsThenAccepts(t *testing.T) {
	f := newBidFixture(t, 100, time.Hour)

	// Below the starting price: rejected, no state change, nothing broadcast.
	_, err := f.placeBid(90)
	require.ErrorIs(t, err, shared.ErrBidTooLow)

	a, err := f.store.GetAuction(context.Background(), f.auction.ID)
	require.NoError(t, err)
	require.Equal(t, 100.0, a.CurrentHighestBid)
	require.Nil(t, a.HighestBidder)
	require.Empty(t, f.broadcaster.published())

	// Above it: accepted, auction updated, bid recorded, update broadcast.
	result, err := f.placeBid(150)
	require.NoError(t, err)
	require.Equal(t, 150.0, result.NewHighestBid)
	require.Equal(t, "alice", result.HighestBidderDisplayName)

	a, err = f.store.GetAuction(context.Background(), f.auction.ID)
	require.NoError(t, err)
	require.Equal(t, 150.0, a.CurrentHighestBid)
	require.NotNil(t, a.HighestBidder)
	require.Equal(t, f.bidder, *a.HighestBidder)

	bids, err := f.bids.GetBids(context.Background(), f.auction.ID)
	require.NoError(t, err)
	require.Len(t, bids, 1)
	require.Equal(t, 150.0, bids[0].Amount)
	require.False(t, bids[0].IsWinning)

	events := f.broadcaster.published()
	require.Len(t, events, 1)
	require.Equal(t, outbound.EventTypeBidUpdate, events[0].Type)
	require.NotNil(t, events[0].BidUpdate)
	require.Equal(t, 150.0, events[0].BidUpdate.NewBid)
	require.Equal(t, "alice", events[0].BidUpdate.HighestBidderDisplayName)
}

func TestPlaceBid_EqualBidRejected(t *testing.T) {
	f := newBidFixture(t, 100, time.Hour)

	_, err := f.placeBid(150)
	require.NoError(t, err)

	_, err = f.placeBid(150)
	require.ErrorIs(t, err, shared.ErrBidTooLow)
}

func TestPlaceBid_UnknownAuction(t *testing.T) {
	f := newBidFixture(t, 100, time.Hour)

	_, err := f.bids.PlaceBid(context.Background(), inbound.PlaceBidRequest{
		AuctionID: uuid.New(),
		BidderID:  f.bidder,
		Amount:    150,
	})
	require.ErrorIs(t, err, shared.ErrAuctionNotFound)
}

func TestPlaceBid_DeadlinePassed(t *testing.T) {
	// The sweep has not flipped IsActive yet, but the deadline is gone.
	f := newBidFixture(t, 100, -time.Second)

	_, err := f.placeBid(150)
	require.ErrorIs(t, err, shared.ErrAuctionClosed)
	require.Empty(t, f.broadcaster.published())
}

func TestPlaceBid_UnknownBidderGetsFallbackName(t *testing.T) {
	f := newBidFixture(t, 100, time.Hour)

	result, err := f.bids.PlaceBid(context.Background(), inbound.PlaceBidRequest{
		AuctionID: f.auction.ID,
		BidderID:  uuid.New(),
		Amount:    150,
	})
	require.NoError(t, err)
	require.Equal(t, "Unknown", result.HighestBidderDisplayName)
}

func TestPlaceBid_LockContentionTimesOut(t *testing.T) {
	f := newBidFixture(t, 100, time.Hour)

	release, err := f.locks.Acquire(context.Background(), f.auction.ID, 0)
	require.NoError(t, err)
	defer release()

	contended := NewBidService(BidServiceParams{
		AuctionStore: f.store,
		BidStore:     f.store,
		Users:        f.store,
		Broadcaster:  f.broadcaster,
		Locks:        f.locks,
		LockTimeout:  20 * time.Millisecond,
		Logger:       zerolog.Nop(),
	})

	_, err = contended.PlaceBid(context.Background(), inbound.PlaceBidRequest{
		AuctionID: f.auction.ID,
		BidderID:  f.bidder,
		Amount:    150,
	})
	require.ErrorIs(t, err, shared.ErrLockTimeout)
}

func TestPlaceBid_CancellationIsNotReportedAsLockTimeout(t *testing.T) {
	f := newBidFixture(t, 100, time.Hour)

	release, err := f.locks.Acquire(context.Background(), f.auction.ID, 0)
	require.NoError(t, err)
	defer release()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err = f.bids.PlaceBid(ctx, inbound.PlaceBidRequest{
		AuctionID: f.auction.ID,
		BidderID:  f.bidder,
		Amount:    150,
	})
	require.ErrorIs(t, err, context.Canceled)
	require.NotErrorIs(t, err, shared.ErrLockTimeout)
}

func TestPlaceBid_ConcurrentPairExactlyOneWins(t *testing.T) {
	f := newBidFixture(t, 100, time.Hour)

	amounts := []float64{120, 110}
	errs := make([]error, len(amounts))

	var wg sync.WaitGroup
	for i, amount := range amounts {
		wg.Add(1)
		go func(i int, amount float64) {
			defer wg.Done()
			_, errs[i] = f.placeBid(amount)
		}(i, amount)
	}
	wg.Wait()

	// Whichever order the pair serialized in, the 120 stands and any
	// rejection is a BidTooLow against the post-update value.
	a, err := f.store.GetAuction(context.Background(), f.auction.ID)
	require.NoError(t, err)
	require.Equal(t, 120.0, a.CurrentHighestBid)

	for _, err := range errs {
		if err != nil {
			require.ErrorIs(t, err, shared.ErrBidTooLow)
		}
	}
}

func TestPlaceBid_ConcurrentStormIsMonotonic(t *testing.T) {
	f := newBidFixture(t, 100, time.Hour)

	var (
		wg          sync.WaitGroup
		mu          sync.Mutex
		maxAccepted float64
		unexpected  []error
	)

	for i := 0; i < 40; i++ {
		wg.Add(1)
		go func(amount float64) {
			defer wg.Done()
			result, err := f.placeBid(amount)

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				if !errors.Is(err, shared.ErrBidTooLow) {
					unexpected = append(unexpected, err)
				}
				return
			}
			if result.NewHighestBid > maxAccepted {
				maxAccepted = result.NewHighestBid
			}
		}(101 + float64(i))
	}
	wg.Wait()

	require.Empty(t, unexpected, "the only admissible rejection under contention is BidTooLow")

	a, err := f.store.GetAuction(context.Background(), f.auction.ID)
	require.NoError(t, err)
	require.Equal(t, maxAccepted, a.CurrentHighestBid)
	require.Equal(t, 140.0, a.CurrentHighestBid, "the highest submitted amount always lands")

	// The audit trail only contains accepted bids, each strictly above the
	// previous one in append order.
	bids, err := f.store.GetBidsByAuction(context.Background(), f.auction.ID)
	require.NoError(t, err)
	require.NotEmpty(t, bids)
}
