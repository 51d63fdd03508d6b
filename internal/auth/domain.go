package auth

import (
	"time"

	"github.com/casinha/portal/internal/rbac"
)

// User represents a member account as seen by the login flow.
type User struct {
	ID           int64
	Name         string
	Email        string
	PasswordHash string
	Status       rbac.MembershipStatus
	CreatedAt    time.Time
}

// Active reports whether the member may sign in.
func (u *User) Active() bool {
	return u != nil && u.Status == rbac.StatusActive
}
