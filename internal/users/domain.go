package users

import (
	"fmt"
	"time"

	"github.com/casinha/portal/internal/platform/httpx"
	"github.com/casinha/portal/internal/rbac"
)

// ErrSelfStatusChange is returned when a member tries to change their own status.
var ErrSelfStatusChange = fmt.Errorf("%w: members cannot change their own status", httpx.ErrValidation)

// Member is a row of the member directory.
type Member struct {
	ID           int64                 `json:"id"`
	Name         string                `json:"name"`
	Email        string                `json:"email"`
	RoleID       int64                 `json:"roleId"`
	RoleName     string                `json:"roleName"`
	Areas        []rbac.Area           `json:"areas"`
	Status       rbac.MembershipStatus `json:"status"`
	LastActiveAt *time.Time            `json:"lastActiveAt"`
}

// HistoryEntry is one role assignment in a member's append-only history.
type HistoryEntry struct {
	RoleID     *int64    `json:"roleId"`
	RoleName   string    `json:"roleName"`
	AssignedBy *int64    `json:"assignedBy"`
	AssignedAt time.Time `json:"assignedAt"`
}

// ListFilter narrows the member directory.
type ListFilter struct {
	Status  rbac.MembershipStatus
	Page    int
	PerPage int
}

type assignRoleInput struct {
	RoleID int64 `json:"roleId" validate:"required,gt=0"`
}

type statusInput struct {
	Status string `json:"status" validate:"required,oneof=ATIVO EX_MEMBRO ativo ex_membro"`
}
