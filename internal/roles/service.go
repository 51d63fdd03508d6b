package roles

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/casinha/portal/internal/platform/httpx"
	"github.com/casinha/portal/internal/rbac"
	"github.com/casinha/portal/internal/shared"
)

// RepositoryPort defines data access methods for roles.
type RepositoryPort interface {
	ListRoles(ctx context.Context) ([]Role, error)
	GetRole(ctx context.Context, id int64) (Role, error)
	CreateRole(ctx context.Context, name, description string, areas []rbac.Area) (int64, error)
	UpdateRole(ctx context.Context, id int64, name, description string, areas []rbac.Area) error
	DeleteRole(ctx context.Context, id int64) error
}

// Service handles role business logic.
type Service struct {
	repo     RepositoryPort
	audit    shared.Auditor
	validate *validator.Validate
	logger   *slog.Logger
}

// NewService builds Service instance. audit may be nil.
func NewService(repo RepositoryPort, audit shared.Auditor, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{repo: repo, audit: audit, validate: validator.New(), logger: logger}
}

// ListRoles returns all roles.
func (s *Service) ListRoles(ctx context.Context) ([]Role, error) {
	return s.repo.ListRoles(ctx)
}

// GetRole returns one role.
func (s *Service) GetRole(ctx context.Context, id int64) (Role, error) {
	return s.repo.GetRole(ctx, id)
}

// CreateRole validates input and stores a new role.
func (s *Service) CreateRole(ctx context.Context, actorID int64, in RoleInput) (Role, error) {
	name, desc, areas, err := s.normalize(in)
	if err != nil {
		return Role{}, err
	}
	id, err := s.repo.CreateRole(ctx, name, desc, areas)
	if err != nil {
		return Role{}, err
	}
	s.record(ctx, actorID, "role.create", id, map[string]any{"name": name, "areas": areas})
	return s.repo.GetRole(ctx, id)
}

// UpdateRole replaces a role's attributes. Members holding the role see the new
// areas on their next request.
func (s *Service) UpdateRole(ctx context.Context, actorID, id int64, in RoleInput) (Role, error) {
	name, desc, areas, err := s.normalize(in)
	if err != nil {
		return Role{}, err
	}
	if err := s.repo.UpdateRole(ctx, id, name, desc, areas); err != nil {
		return Role{}, err
	}
	s.record(ctx, actorID, "role.update", id, map[string]any{"name": name, "areas": areas})
	return s.repo.GetRole(ctx, id)
}

// DeleteRole removes a role. It fails with ErrRoleInUse while any member holds it.
func (s *Service) DeleteRole(ctx context.Context, actorID, id int64) error {
	if err := s.repo.DeleteRole(ctx, id); err != nil {
		return err
	}
	s.record(ctx, actorID, "role.delete", id, nil)
	return nil
}

func (s *Service) normalize(in RoleInput) (string, string, []rbac.Area, error) {
	in.Name = strings.TrimSpace(in.Name)
	in.Description = strings.TrimSpace(in.Description)
	if err := s.validate.Struct(in); err != nil {
		return "", "", nil, fmt.Errorf("%w: %v", httpx.ErrValidation, err)
	}
	parsed := make([]rbac.Area, 0, len(in.Areas))
	for _, raw := range in.Areas {
		a, err := rbac.ParseArea(raw)
		if err != nil {
			return "", "", nil, fmt.Errorf("%w: %v", httpx.ErrValidation, err)
		}
		parsed = append(parsed, a)
	}
	return in.Name, in.Description, rbac.NewAreaSet(parsed...).Slice(), nil
}

func (s *Service) record(ctx context.Context, actorID int64, action string, id int64, meta map[string]any) {
	if s.audit == nil {
		return
	}
	err := s.audit.Record(ctx, shared.AuditLog{ActorID: actorID, Action: action, Entity: "role", EntityID: strconv.FormatInt(id, 10), Meta: meta})
	if err != nil && !errors.Is(err, context.Canceled) {
		s.logger.Warn("audit role change", slog.String("action", action), slog.Any("error", err))
	}
}
