package app

import (
	"testing"
	"time"

	"livebid-service/internal/domain/auction"
	"livebid-service/internal/domain/shared"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func activeAuction(startingPrice float64, endsIn time.Duration) *auction.Auction {
	a := auction.New("Vintage clock", "A clock", uuid.New(), startingPrice, time.Now().Add(endsIn))
	a.Approve()
	return a
}

func TestValidateBid(t *testing.T) {
	now := time.Now()

	tests := []struct {
		name        string
		auction     func() *auction.Auction
		amount      float64
		expectedErr error
	}{
		{
			name:        "missing_auction",
			auction:     func() *auction.Auction { return nil },
			amount:      100,
			expectedErr: shared.ErrAuctionNotFound,
		},
		{
			name: "pending_auction",
			auction: func() *auction.Auction {
				return auction.New("clock", "", uuid.New(), 100, now.Add(time.Hour))
			},
			amount:      150,
			expectedErr: shared.ErrAuctionClosed,
		},
		{
			name: "closed_auction",
			auction: func() *auction.Auction {
				a := activeAuction(100, time.Hour)
				a.Close()
				return a
			},
			amount:      150,
			expectedErr: shared.ErrAuctionClosed,
		},
		{
			name: "deadline_passed_but_flag_not_yet_flipped",
			auction: func() *auction.Auction {
				a := activeAuction(100, time.Hour)
				a.EndTime = now.Add(-time.Second)
				return a
			},
			amount:      150,
			expectedErr: shared.ErrAuctionClosed,
		},
		{
			name:        "below_current_highest",
			auction:     func() *auction.Auction { return activeAuction(100, time.Hour) },
			amount:      90,
			expectedErr: shared.ErrBidTooLow,
		},
		{
			name:        "equal_to_current_highest",
			auction:     func() *auction.Auction { return activeAuction(100, time.Hour) },
			amount:      100,
			expectedErr: shared.ErrBidTooLow,
		},
		{
			name: "below_raised_highest",
			auction: func() *auction.Auction {
				a := activeAuction(100, time.Hour)
				a.AcceptBid(uuid.New(), 200)
				return a
			},
			amount:      150,
			expectedErr: shared.ErrBidTooLow,
		},
		{
			name:        "accepted",
			auction:     func() *auction.Auction { return activeAuction(100, time.Hour) },
			amount:      150,
			expectedErr: nil,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := ValidateBid(tc.auction(), tc.amount, now)
			if tc.expectedErr != nil {
				require.ErrorIs(t, err, tc.expectedErr)
			} else {
				require.NoError(t, err)
			}
		})
	}
}

func TestValidateBid_RuleOrder(t *testing.T) {
	// A closed auction with a too-low amount reports the closure, not the
	// amount: rules are evaluated in order and the first match wins.
	a := activeAuction(100, time.Hour)
	a.Close()

	err := ValidateBid(a, 50, time.Now())
	require.ErrorIs(t, err, shared.ErrAuctionClosed)
}
