package shared

import (
	"time"

	"github.com/google/uuid"
)

// Role differentiates bidders from administrators
type Role string

const (
	RoleBidder Role = "bidder"
	RoleAdmin  Role = "admin"
)

// User is the engine's view of a registered user. Registration and
// authentication belong to an external collaborator; the engine only resolves
// display names.
type User struct {
	ID        uuid.UUID `json:"id"`
	Username  string    `json:"username"`
	Email     string    `json:"email"`
	Role      Role      `json:"role"`
	CreatedAt time.Time `json:"created_at"`
}
