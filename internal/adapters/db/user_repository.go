package db

import (
	"context"
	"database/sql"
	"fmt"

	"livebid-service/internal/domain/shared"

	"github.com/google/uuid"
)

// UserRepository resolves display names from the users table
type UserRepository struct {
	conn *Connection
}

// NewUserRepository creates a new user repository
func NewUserRepository(conn *Connection) *UserRepository {
	return &UserRepository{conn: conn}
}

// GetDisplayName returns the username for a user id
func (r *UserRepository) GetDisplayName(ctx context.Context, userID uuid.UUID) (string, error) {
	query := `SELECT username FROM users WHERE id = $1`

	var username string
	err := r.conn.DB().QueryRowContext(ctx, query, userID).Scan(&username)
	if err != nil {
		if err == sql.ErrNoRows {
			return "", shared.ErrUserNotFound
		}
		return "", fmt.Errorf("failed to get user: %w", err)
	}

	return username, nil
}
