package roles

import (
	"fmt"
	"time"

	"github.com/casinha/portal/internal/platform/httpx"
	"github.com/casinha/portal/internal/rbac"
)

var (
	// ErrRoleInUse is returned when deleting a role still held by a member.
	ErrRoleInUse = fmt.Errorf("%w: role is assigned to members", httpx.ErrConflict)
	// ErrRoleNameTaken is returned when another role already uses the name.
	ErrRoleNameTaken = fmt.Errorf("%w: role name already exists", httpx.ErrDuplicate)
)

// Role represents a role for management.
type Role struct {
	ID          int64       `json:"id"`
	Name        string      `json:"name"`
	Description string      `json:"description"`
	Areas       []rbac.Area `json:"areas"`
	Members     int         `json:"members"`
	CreatedAt   time.Time   `json:"createdAt"`
	UpdatedAt   time.Time   `json:"updatedAt"`
}

// RoleInput is the payload accepted by create and update.
type RoleInput struct {
	Name        string   `json:"name" validate:"required,min=2,max=80"`
	Description string   `json:"description" validate:"max=500"`
	Areas       []string `json:"areas" validate:"required,min=1,dive,required"`
}
