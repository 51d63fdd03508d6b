package users

import (
	"context"
	"log/slog"
	"strconv"
	"time"

	"github.com/casinha/portal/internal/rbac"
	"github.com/casinha/portal/internal/shared"
)

// RepositoryPort defines data access methods for users.
type RepositoryPort interface {
	ListUsers(ctx context.Context, filter ListFilter, limit, offset int) ([]Member, int, error)
	TouchLastActive(ctx context.Context, userID int64, at time.Time) error
	AssignRole(ctx context.Context, actorID, userID, roleID int64, at time.Time) (bool, error)
	History(ctx context.Context, userID int64) ([]HistoryEntry, error)
	SetStatus(ctx context.Context, userID int64, status rbac.MembershipStatus) error
}

// Service handles user business logic.
type Service struct {
	repo   RepositoryPort
	audit  shared.Auditor
	logger *slog.Logger
	now    func() time.Time
}

// NewService builds Service instance. audit may be nil.
func NewService(repo RepositoryPort, audit shared.Auditor, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{repo: repo, audit: audit, logger: logger, now: time.Now}
}

// ListUsers returns one page of the member directory.
func (s *Service) ListUsers(ctx context.Context, filter ListFilter) ([]Member, shared.Pagination, error) {
	probe := shared.NewPagination(filter.Page, filter.PerPage, 0)
	members, total, err := s.repo.ListUsers(ctx, filter, probe.PerPage, probe.Offset())
	if err != nil {
		return nil, shared.Pagination{}, err
	}
	if members == nil {
		members = []Member{}
	}
	return members, shared.NewPagination(probe.Page, probe.PerPage, total), nil
}

// Heartbeat records that the member is active now.
func (s *Service) Heartbeat(ctx context.Context, userID int64) (time.Time, error) {
	at := s.now().UTC()
	return at, s.repo.TouchLastActive(ctx, userID, at)
}

// AssignRole changes a member's current role, keeping the previous ones in history.
func (s *Service) AssignRole(ctx context.Context, actorID, userID, roleID int64) error {
	changed, err := s.repo.AssignRole(ctx, actorID, userID, roleID, s.now())
	if err != nil {
		return err
	}
	if changed {
		s.record(ctx, actorID, "user.role.assign", userID, map[string]any{"role_id": roleID})
	}
	return nil
}

// History returns a member's role assignments, newest first.
func (s *Service) History(ctx context.Context, userID int64) ([]HistoryEntry, error) {
	entries, err := s.repo.History(ctx, userID)
	if entries == nil && err == nil {
		entries = []HistoryEntry{}
	}
	return entries, err
}

// SetStatus marks a member active or ex-member. Ex-members lose access on their
// next request because identity resolution rejects them.
func (s *Service) SetStatus(ctx context.Context, actorID, userID int64, status rbac.MembershipStatus) error {
	if actorID == userID {
		return ErrSelfStatusChange
	}
	if err := s.repo.SetStatus(ctx, userID, status); err != nil {
		return err
	}
	s.record(ctx, actorID, "user.status", userID, map[string]any{"status": status})
	return nil
}

func (s *Service) record(ctx context.Context, actorID int64, action string, userID int64, meta map[string]any) {
	if s.audit == nil {
		return
	}
	if err := s.audit.Record(ctx, shared.AuditLog{ActorID: actorID, Action: action, Entity: "user", EntityID: strconv.FormatInt(userID, 10), Meta: meta}); err != nil {
		s.logger.Warn("audit user change", slog.String("action", action), slog.Any("error", err))
	}
}
