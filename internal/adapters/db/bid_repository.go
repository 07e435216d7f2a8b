package db

import (
	"context"
	"database/sql"
	"fmt"

	"livebid-service/internal/domain/bid"
	"livebid-service/internal/domain/shared"

	"github.com/google/uuid"
)

// BidRepository implements the append-only bid store on Postgres
type BidRepository struct {
	conn *Connection
}

// NewBidRepository creates a new bid repository
func NewBidRepository(conn *Connection) *BidRepository {
	return &BidRepository{conn: conn}
}

// AppendBid records one accepted bid
func (r *BidRepository) AppendBid(ctx context.Context, b *bid.Bid) error {
	query := `
		INSERT INTO bids (id, auction_id, bidder_id, amount, is_winning, bid_time)
		VALUES ($1, $2, $3, $4, $5, $6)
	`

	_, err := r.conn.DB().ExecContext(ctx, query,
		b.ID,
		b.AuctionID,
		b.BidderID,
		b.Amount,
		b.IsWinning,
		b.BidTime,
	)

	if err != nil {
		return fmt.Errorf("failed to append bid: %w", err)
	}

	return nil
}

// GetBidsByAuction returns all bids for an auction, highest amount first
func (r *BidRepository) GetBidsByAuction(ctx context.Context, auctionID uuid.UUID) ([]*bid.Bid, error) {
	query := `
		SELECT id, auction_id, bidder_id, amount, is_winning, bid_time
		FROM bids
		WHERE auction_id = $1
		ORDER BY amount DESC, bid_time ASC
	`

	rows, err := r.conn.DB().QueryContext(ctx, query, auctionID)
	if err != nil {
		return nil, fmt.Errorf("failed to get bids: %w", err)
	}
	defer rows.Close()

	var bids []*bid.Bid
	for rows.Next() {
		var b bid.Bid
		err := rows.Scan(&b.ID, &b.AuctionID, &b.BidderID, &b.Amount, &b.IsWinning, &b.BidTime)
		if err != nil {
			return nil, fmt.Errorf("failed to scan bid: %w", err)
		}
		bids = append(bids, &b)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating bids: %w", err)
	}

	return bids, nil
}

// FindBidByAuctionAndBidder returns the bidder's highest bid on the auction
func (r *BidRepository) FindBidByAuctionAndBidder(ctx context.Context, auctionID, bidderID uuid.UUID) (*bid.Bid, error) {
	query := `
		SELECT id, auction_id, bidder_id, amount, is_winning, bid_time
		FROM bids
		WHERE auction_id = $1 AND bidder_id = $2
		ORDER BY amount DESC, bid_time ASC
		LIMIT 1
	`

	var b bid.Bid
	err := r.conn.DB().QueryRowContext(ctx, query, auctionID, bidderID).Scan(
		&b.ID,
		&b.AuctionID,
		&b.BidderID,
		&b.Amount,
		&b.IsWinning,
		&b.BidTime,
	)

	if err != nil {
		if err == sql.ErrNoRows {
			return nil, shared.ErrNoBidsFound
		}
		return nil, fmt.Errorf("failed to find bid: %w", err)
	}

	return &b, nil
}

// MarkWinningBid flags the bidder's highest bid on the auction as winning.
// The guard clause keeps the invariant that at most one bid per auction
// carries the flag, even if a sweep is re-run.
func (r *BidRepository) MarkWinningBid(ctx context.Context, auctionID, bidderID uuid.UUID) error {
	return r.conn.ExecuteTransaction(func(tx *sql.Tx) error {
		query := `
			UPDATE bids
			SET is_winning = TRUE
			WHERE id = (
				SELECT id FROM bids
				WHERE auction_id = $1 AND bidder_id = $2
				ORDER BY amount DESC, bid_time ASC
				LIMIT 1
			)
			AND NOT EXISTS (
				SELECT 1 FROM bids WHERE auction_id = $1 AND is_winning = TRUE
			)
		`

		if _, err := tx.ExecContext(ctx, query, auctionID, bidderID); err != nil {
			return fmt.Errorf("failed to mark winning bid: %w", err)
		}
		return nil
	})
}
