package memory

import (
	"context"
	"testing"
	"time"

	"livebid-service/internal/domain/auction"
	"livebid-service/internal/domain/bid"
	"livebid-service/internal/domain/shared"
	"livebid-service/internal/ports/outbound"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

var (
	_ outbound.AuctionStore  = (*Store)(nil)
	_ outbound.BidStore      = (*Store)(nil)
	_ outbound.UserDirectory = (*Store)(nil)
)

func storedAuction(t *testing.T, s *Store, endsIn time.Duration, active bool) *auction.Auction {
	t.Helper()

	a := auction.New("Vintage clock", "", uuid.New(), 100, time.Now().Add(endsIn))
	if active {
		a.Approve()
	}
	require.NoError(t, s.CreateAuction(context.Background(), a))
	return a
}

func TestStore_GetAuctionCopiesRecords(t *testing.T) {
	s := NewStore()
	a := storedAuction(t, s, time.Hour, true)

	got, err := s.GetAuction(context.Background(), a.ID)
	require.NoError(t, err)

	// Mutating the returned copy must not leak into the store.
	got.CurrentHighestBid = 999
	again, err := s.GetAuction(context.Background(), a.ID)
	require.NoError(t, err)
	require.Equal(t, 100.0, again.CurrentHighestBid)
}

func TestStore_GetAuctionNotFound(t *testing.T) {
	s := NewStore()

	_, err := s.GetAuction(context.Background(), uuid.New())
	require.ErrorIs(t, err, shared.ErrAuctionNotFound)
}

func TestStore_SaveAuctionRequiresExisting(t *testing.T) {
	s := NewStore()

	ghost := auction.New("Ghost", "", uuid.New(), 100, time.Now().Add(time.Hour))
	err := s.SaveAuction(context.Background(), ghost)
	require.ErrorIs(t, err, shared.ErrAuctionNotFound)
}

func TestStore_FindActiveExpired(t *testing.T) {
	s := NewStore()

	expiredOld := storedAuction(t, s, -2*time.Hour, true)
	expiredRecent := storedAuction(t, s, -time.Minute, true)
	storedAuction(t, s, time.Hour, true)   // still live
	storedAuction(t, s, -time.Hour, false) // expired but never approved

	closed := storedAuction(t, s, -time.Hour, true)
	got, err := s.GetAuction(context.Background(), closed.ID)
	require.NoError(t, err)
	got.Close()
	require.NoError(t, s.SaveAuction(context.Background(), got))

	expired, err := s.FindActiveExpired(context.Background(), time.Now())
	require.NoError(t, err)
	require.Len(t, expired, 2)
	require.Equal(t, expiredOld.ID, expired[0].ID, "oldest deadline first")
	require.Equal(t, expiredRecent.ID, expired[1].ID)
}

func TestStore_MarkWinningBidExactlyOnce(t *testing.T) {
	s := NewStore()
	auctionID := uuid.New()
	winner := uuid.New()
	loser := uuid.New()

	require.NoError(t, s.AppendBid(context.Background(), bid.New(auctionID, loser, 110)))
	require.NoError(t, s.AppendBid(context.Background(), bid.New(auctionID, winner, 120)))
	require.NoError(t, s.AppendBid(context.Background(), bid.New(auctionID, winner, 150)))

	require.NoError(t, s.MarkWinningBid(context.Background(), auctionID, winner))

	// Repeat calls, even for a different bidder, never create a second flag.
	require.NoError(t, s.MarkWinningBid(context.Background(), auctionID, winner))
	require.NoError(t, s.MarkWinningBid(context.Background(), auctionID, loser))

	bids, err := s.GetBidsByAuction(context.Background(), auctionID)
	require.NoError(t, err)

	winning := 0
	for _, b := range bids {
		if b.IsWinning {
			winning++
			require.Equal(t, winner, b.BidderID)
			require.Equal(t, 150.0, b.Amount, "the bidder's highest bid carries the flag")
		}
	}
	require.Equal(t, 1, winning)
}

func TestStore_MarkWinningBidNoBids(t *testing.T) {
	s := NewStore()

	err := s.MarkWinningBid(context.Background(), uuid.New(), uuid.New())
	require.ErrorIs(t, err, shared.ErrNoBidsFound)
}

func TestStore_GetBidsByAuctionOrder(t *testing.T) {
	s := NewStore()
	auctionID := uuid.New()

	require.NoError(t, s.AppendBid(context.Background(), bid.New(auctionID, uuid.New(), 110)))
	require.NoError(t, s.AppendBid(context.Background(), bid.New(auctionID, uuid.New(), 150)))
	require.NoError(t, s.AppendBid(context.Background(), bid.New(auctionID, uuid.New(), 120)))

	bids, err := s.GetBidsByAuction(context.Background(), auctionID)
	require.NoError(t, err)
	require.Len(t, bids, 3)
	require.Equal(t, 150.0, bids[0].Amount)
	require.Equal(t, 120.0, bids[1].Amount)
	require.Equal(t, 110.0, bids[2].Amount)
}

func TestStore_FindBidByAuctionAndBidder(t *testing.T) {
	s := NewStore()
	auctionID := uuid.New()
	bidderID := uuid.New()

	require.NoError(t, s.AppendBid(context.Background(), bid.New(auctionID, bidderID, 110)))
	require.NoError(t, s.AppendBid(context.Background(), bid.New(auctionID, bidderID, 150)))
	require.NoError(t, s.AppendBid(context.Background(), bid.New(auctionID, uuid.New(), 200)))

	best, err := s.FindBidByAuctionAndBidder(context.Background(), auctionID, bidderID)
	require.NoError(t, err)
	require.Equal(t, 150.0, best.Amount)

	_, err = s.FindBidByAuctionAndBidder(context.Background(), auctionID, uuid.New())
	require.ErrorIs(t, err, shared.ErrNoBidsFound)
}

func TestStore_UserDirectory(t *testing.T) {
	s := NewStore()
	userID := uuid.New()
	s.PutUser(shared.User{ID: userID, Username: "alice", Role: shared.RoleBidder})

	name, err := s.GetDisplayName(context.Background(), userID)
	require.NoError(t, err)
	require.Equal(t, "alice", name)

	_, err = s.GetDisplayName(context.Background(), uuid.New())
	require.ErrorIs(t, err, shared.ErrUserNotFound)
}
