package db

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"livebid-service/internal/domain/auction"
	"livebid-service/internal/domain/shared"

	"github.com/google/uuid"
)

// AuctionRepository implements the auction store on Postgres
type AuctionRepository struct {
	conn *Connection
}

// NewAuctionRepository creates a new auction repository
func NewAuctionRepository(conn *Connection) *AuctionRepository {
	return &AuctionRepository{conn: conn}
}

const auctionColumns = `id, title, description, image_url, seller_id, starting_price,
		current_highest_bid, highest_bidder, end_time, is_active, status,
		is_paid, payment_status, created_at, updated_at`

// CreateAuction persists a new auction
func (r *AuctionRepository) CreateAuction(ctx context.Context, a *auction.Auction) error {
	query := `
		INSERT INTO auctions (` + auctionColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
	`

	_, err := r.conn.DB().ExecContext(ctx, query,
		a.ID,
		a.Title,
		a.Description,
		a.ImageURL,
		a.SellerID,
		a.StartingPrice,
		a.CurrentHighestBid,
		highestBidderValue(a),
		a.EndTime,
		a.IsActive,
		a.Status,
		a.IsPaid,
		a.PaymentStatus,
		a.CreatedAt,
		a.UpdatedAt,
	)

	if err != nil {
		return fmt.Errorf("failed to create auction: %w", err)
	}

	return nil
}

// GetAuction retrieves an auction by ID
func (r *AuctionRepository) GetAuction(ctx context.Context, id uuid.UUID) (*auction.Auction, error) {
	query := `SELECT ` + auctionColumns + ` FROM auctions WHERE id = $1`

	row := r.conn.DB().QueryRowContext(ctx, query, id)
	a, err := scanAuction(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, shared.ErrAuctionNotFound
		}
		return nil, fmt.Errorf("failed to get auction: %w", err)
	}

	return a, nil
}

// SaveAuction persists the mutable auction fields
func (r *AuctionRepository) SaveAuction(ctx context.Context, a *auction.Auction) error {
	query := `
		UPDATE auctions
		SET current_highest_bid = $2, highest_bidder = $3, is_active = $4,
		    status = $5, is_paid = $6, payment_status = $7, updated_at = $8
		WHERE id = $1
	`

	result, err := r.conn.DB().ExecContext(ctx, query,
		a.ID,
		a.CurrentHighestBid,
		highestBidderValue(a),
		a.IsActive,
		a.Status,
		a.IsPaid,
		a.PaymentStatus,
		a.UpdatedAt,
	)

	if err != nil {
		return fmt.Errorf("failed to save auction: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return shared.ErrAuctionNotFound
	}

	return nil
}

// FindActiveExpired returns active auctions whose end time is at or before now
func (r *AuctionRepository) FindActiveExpired(ctx context.Context, now time.Time) ([]*auction.Auction, error) {
	query := `
		SELECT ` + auctionColumns + `
		FROM auctions
		WHERE is_active = TRUE AND end_time <= $1
		ORDER BY end_time ASC
	`

	rows, err := r.conn.DB().QueryContext(ctx, query, now)
	if err != nil {
		return nil, fmt.Errorf("failed to find expired auctions: %w", err)
	}
	defer rows.Close()

	var auctions []*auction.Auction
	for rows.Next() {
		a, err := scanAuction(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan auction: %w", err)
		}
		auctions = append(auctions, a)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating auctions: %w", err)
	}

	return auctions, nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanAuction(row rowScanner) (*auction.Auction, error) {
	var a auction.Auction
	var bidder uuid.NullUUID

	err := row.Scan(
		&a.ID,
		&a.Title,
		&a.Description,
		&a.ImageURL,
		&a.SellerID,
		&a.StartingPrice,
		&a.CurrentHighestBid,
		&bidder,
		&a.EndTime,
		&a.IsActive,
		&a.Status,
		&a.IsPaid,
		&a.PaymentStatus,
		&a.CreatedAt,
		&a.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if bidder.Valid {
		id := bidder.UUID
		a.HighestBidder = &id
	}

	return &a, nil
}

func highestBidderValue(a *auction.Auction) interface{} {
	if a.HighestBidder == nil {
		return nil
	}
	return *a.HighestBidder
}
