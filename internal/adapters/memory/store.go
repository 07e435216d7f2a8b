package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"livebid-service/internal/domain/auction"
	"livebid-service/internal/domain/bid"
	"livebid-service/internal/domain/shared"

	"github.com/google/uuid"
)

// Store is an in-memory implementation of the auction store, bid store and
// user directory. It backs the memory store backend and the test suites.
// All maps are guarded by one RWMutex; reads and writes copy records so
// callers never share pointers with the store.
type Store struct {
	mu       sync.RWMutex
	auctions map[uuid.UUID]auction.Auction
	bids     map[uuid.UUID][]bid.Bid // auctionID -> bids in append order
	users    map[uuid.UUID]shared.User
}

// NewStore creates an empty in-memory store
func NewStore() *Store {
	return &Store{
		auctions: make(map[uuid.UUID]auction.Auction),
		bids:     make(map[uuid.UUID][]bid.Bid),
		users:    make(map[uuid.UUID]shared.User),
	}
}

// CreateAuction persists a new auction
func (s *Store) CreateAuction(ctx context.Context, a *auction.Auction) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.auctions[a.ID] = cloneAuction(a)
	return nil
}

// GetAuction retrieves an auction by ID
func (s *Store) GetAuction(ctx context.Context, id uuid.UUID) (*auction.Auction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	a, ok := s.auctions[id]
	if !ok {
		return nil, shared.ErrAuctionNotFound
	}
	out := cloneAuction(&a)
	return &out, nil
}

// SaveAuction persists the mutable auction fields
func (s *Store) SaveAuction(ctx context.Context, a *auction.Auction) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.auctions[a.ID]; !ok {
		return shared.ErrAuctionNotFound
	}
	s.auctions[a.ID] = cloneAuction(a)
	return nil
}

// FindActiveExpired returns active auctions whose end time is at or before now
func (s *Store) FindActiveExpired(ctx context.Context, now time.Time) ([]*auction.Auction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var expired []*auction.Auction
	for _, a := range s.auctions {
		if a.IsActive && !a.EndTime.After(now) {
			out := cloneAuction(&a)
			expired = append(expired, &out)
		}
	}

	sort.Slice(expired, func(i, j int) bool {
		return expired[i].EndTime.Before(expired[j].EndTime)
	})
	return expired, nil
}

// AppendBid records one accepted bid
func (s *Store) AppendBid(ctx context.Context, b *bid.Bid) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.bids[b.AuctionID] = append(s.bids[b.AuctionID], *b)
	return nil
}

// GetBidsByAuction returns all bids for an auction, highest amount first
func (s *Store) GetBidsByAuction(ctx context.Context, auctionID uuid.UUID) ([]*bid.Bid, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	records := s.bids[auctionID]
	out := make([]*bid.Bid, 0, len(records))
	for i := range records {
		b := records[i]
		out = append(out, &b)
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Amount > out[j].Amount
	})
	return out, nil
}

// FindBidByAuctionAndBidder returns the bidder's highest bid on the auction
func (s *Store) FindBidByAuctionAndBidder(ctx context.Context, auctionID, bidderID uuid.UUID) (*bid.Bid, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var best *bid.Bid
	for i := range s.bids[auctionID] {
		b := s.bids[auctionID][i]
		if b.BidderID != bidderID {
			continue
		}
		if best == nil || b.Amount > best.Amount {
			copy := b
			best = &copy
		}
	}

	if best == nil {
		return nil, shared.ErrNoBidsFound
	}
	return best, nil
}

// MarkWinningBid flags the bidder's highest bid on the auction as winning.
// A no-op if some bid on the auction already carries the flag.
func (s *Store) MarkWinningBid(ctx context.Context, auctionID, bidderID uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	records := s.bids[auctionID]
	best := -1
	for i := range records {
		if records[i].IsWinning {
			return nil
		}
		if records[i].BidderID != bidderID {
			continue
		}
		if best == -1 || records[i].Amount > records[best].Amount {
			best = i
		}
	}

	if best == -1 {
		return shared.ErrNoBidsFound
	}
	records[best].IsWinning = true
	return nil
}

// GetDisplayName returns the username for a user id
func (s *Store) GetDisplayName(ctx context.Context, userID uuid.UUID) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	u, ok := s.users[userID]
	if !ok {
		return "", shared.ErrUserNotFound
	}
	return u.Username, nil
}

// PutUser registers a user in the directory
func (s *Store) PutUser(u shared.User) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users[u.ID] = u
}

func cloneAuction(a *auction.Auction) auction.Auction {
	out := *a
	if a.HighestBidder != nil {
		id := *a.HighestBidder
		out.HighestBidder = &id
	}
	return out
}
