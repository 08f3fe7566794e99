package domain

import "time"

// Role gates what an API key may do (spec.md section 3).
type Role string

const (
	RoleTrace     Role = "trace"
	RoleDeveloper Role = "developer"
	RoleAdmin     Role = "admin"
)

// CanIngest reports whether the role may submit spans (spec.md section 4.5 step 2).
func (r Role) CanIngest() bool {
	switch r {
	case RoleTrace, RoleDeveloper, RoleAdmin:
		return true
	default:
		return false
	}
}

// APIKey never stores the plaintext credential, only its SHA-256 hash and
// the last 4 characters for display (spec.md section 3 invariant).
type APIKey struct {
	ID             string    `json:"id" db:"id"`
	OrganisationID string    `json:"organisation" db:"organisation_id"`
	Hash           string    `json:"-" db:"hash"`
	Last4          string    `json:"last4" db:"last4"`
	Role           Role      `json:"role" db:"role"`
	Name           string    `json:"name,omitempty" db:"name"`
	CreatedAt      time.Time `json:"created" db:"created_at"`
	UpdatedAt      time.Time `json:"updated" db:"updated_at"`
}
