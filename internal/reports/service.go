package reports

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"path"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/casinha/portal/internal/platform/httpx"
	"github.com/casinha/portal/internal/rbac"
	"github.com/casinha/portal/internal/shared"
)

// RepositoryPort defines data access methods for reports.
type RepositoryPort interface {
	ListReports(ctx context.Context, areas []rbac.Area) ([]Report, error)
	GetReport(ctx context.Context, id int64) (Report, error)
	CreateReport(ctx context.Context, rep Report) (Report, error)
	DeleteReport(ctx context.Context, id int64, authorize func(area rbac.Area) error) ([]string, error)
}

// ObjectStore signs and removes attachment objects.
type ObjectStore interface {
	PresignUpload(ctx context.Context, key string) (*url.URL, error)
	PresignDownload(ctx context.Context, key, filename string) (*url.URL, error)
	Remove(ctx context.Context, key string) error
}

// ObjectCleanup schedules a later removal of objects that could not be deleted
// inline. jobs.Client satisfies it.
type ObjectCleanup interface {
	EnqueueObjectRemoval(ctx context.Context, keys []string) error
}

// Service handles report business logic.
type Service struct {
	repo     RepositoryPort
	objects  ObjectStore
	cleanup  ObjectCleanup
	audit    shared.Auditor
	validate *validator.Validate
	logger   *slog.Logger
}

// NewService builds Service instance. cleanup and audit may be nil.
func NewService(repo RepositoryPort, objects ObjectStore, cleanup ObjectCleanup, audit shared.Auditor, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{repo: repo, objects: objects, cleanup: cleanup, audit: audit, validate: validator.New(), logger: logger}
}

// ListReports returns the reports visible to user: every report for directors,
// otherwise those of the user's areas.
func (s *Service) ListReports(ctx context.Context, user *rbac.User) ([]Report, error) {
	var areas []rbac.Area
	if !user.IsDirector() {
		areas = user.EffectiveAreas().Slice()
	}
	reports, err := s.repo.ListReports(ctx, areas)
	if reports == nil && err == nil {
		reports = []Report{}
	}
	return reports, err
}

// GetReport returns a report with download links for its attachments.
func (s *Service) GetReport(ctx context.Context, user *rbac.User, id int64) (Report, error) {
	rep, err := s.repo.GetReport(ctx, id)
	if err != nil {
		return Report{}, err
	}
	if !canAccess(user, rep.Area) {
		return Report{}, httpx.ErrForbidden
	}
	g, gctx := errgroup.WithContext(ctx)
	for i := range rep.Attachments {
		a := &rep.Attachments[i]
		g.Go(func() error {
			u, err := s.objects.PresignDownload(gctx, a.ObjectKey, a.FileName)
			if err != nil {
				return fmt.Errorf("presign download %s: %w", a.ObjectKey, err)
			}
			a.DownloadURL = u.String()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return Report{}, err
	}
	if rep.Attachments == nil {
		rep.Attachments = []Attachment{}
	}
	return rep, nil
}

// CreateReport stores a report and returns upload links for its attachments.
// Members may only publish for their own areas.
func (s *Service) CreateReport(ctx context.Context, user *rbac.User, in CreateInput) (Report, error) {
	in.Title = strings.TrimSpace(in.Title)
	in.Summary = strings.TrimSpace(in.Summary)
	if err := s.validate.Struct(in); err != nil {
		return Report{}, fmt.Errorf("%w: %v", httpx.ErrValidation, err)
	}
	area, err := rbac.ParseArea(in.Area)
	if err != nil {
		return Report{}, fmt.Errorf("%w: %v", httpx.ErrValidation, err)
	}
	if !canAccess(user, area) {
		return Report{}, httpx.ErrForbidden
	}

	folder := uuid.NewString()
	rep := Report{Title: in.Title, Area: area, Summary: in.Summary, AuthorID: user.ID}
	for _, a := range in.Attachments {
		name := cleanFileName(a.FileName)
		ct := a.ContentType
		if ct == "" {
			ct = "application/octet-stream"
		}
		rep.Attachments = append(rep.Attachments, Attachment{
			FileName:    name,
			ContentType: ct,
			ObjectKey:   path.Join("relatorios", strings.ToLower(string(area)), folder, uuid.NewString()+"-"+name),
		})
	}

	rep, err = s.repo.CreateReport(ctx, rep)
	if err != nil {
		return Report{}, err
	}
	for i := range rep.Attachments {
		u, err := s.objects.PresignUpload(ctx, rep.Attachments[i].ObjectKey)
		if err != nil {
			return Report{}, fmt.Errorf("presign upload: %w", err)
		}
		rep.Attachments[i].UploadURL = u.String()
	}
	if rep.Attachments == nil {
		rep.Attachments = []Attachment{}
	}
	s.record(ctx, user.ID, "report.create", rep.ID, map[string]any{"area": area, "attachments": len(rep.Attachments)})
	return rep, nil
}

// DeleteReport removes a report of one of the user's areas together with its
// attachments. Rows are deleted first; objects that cannot be removed inline are
// handed to the cleanup queue, so no attachment row outlives its object. Once the
// rows are gone the delete succeeds even if objects are left behind.
func (s *Service) DeleteReport(ctx context.Context, user *rbac.User, id int64) error {
	keys, err := s.repo.DeleteReport(ctx, id, func(area rbac.Area) error {
		if !canAccess(user, area) {
			return httpx.ErrForbidden
		}
		return nil
	})
	if err != nil {
		return err
	}
	s.record(ctx, user.ID, "report.delete", id, map[string]any{"attachments": len(keys)})

	pending := s.removeObjects(ctx, keys)
	if len(pending) == 0 {
		return nil
	}
	if s.cleanup == nil {
		s.logger.Error("report objects left in storage", slog.Int64("report_id", id), slog.Any("keys", pending))
		return nil
	}
	if err := s.cleanup.EnqueueObjectRemoval(ctx, pending); err != nil {
		s.logger.Error("queue report object removal", slog.Int64("report_id", id), slog.Any("keys", pending), slog.Any("error", err))
		return nil
	}
	s.logger.Info("report objects queued for removal", slog.Int64("report_id", id), slog.Int("objects", len(pending)))
	return nil
}

// removeObjects deletes keys and returns the ones that failed.
func (s *Service) removeObjects(ctx context.Context, keys []string) []string {
	var pending []string
	for _, key := range keys {
		if err := s.objects.Remove(ctx, key); err != nil {
			s.logger.Warn("remove report object", slog.String("key", key), slog.Any("error", err))
			pending = append(pending, key)
		}
	}
	return pending
}

func (s *Service) record(ctx context.Context, actorID int64, action string, id int64, meta map[string]any) {
	if s.audit == nil {
		return
	}
	if err := s.audit.Record(ctx, shared.AuditLog{ActorID: actorID, Action: action, Entity: "report", EntityID: strconv.FormatInt(id, 10), Meta: meta}); err != nil {
		s.logger.Warn("audit report change", slog.String("action", action), slog.Any("error", err))
	}
}

func canAccess(user *rbac.User, area rbac.Area) bool {
	if user.IsDirector() {
		return true
	}
	return user.EffectiveAreas().Has(area)
}

func cleanFileName(name string) string {
	name = path.Base(strings.ReplaceAll(strings.TrimSpace(name), "\\", "/"))
	name = strings.Map(func(r rune) rune {
		switch {
		case r < 0x20, r == '"', r == '/', r == '?', r == '#', r == '%':
			return '_'
		}
		return r
	}, name)
	if name == "." || name == "" {
		return "arquivo"
	}
	return name
}
