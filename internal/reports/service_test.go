package reports_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/casinha/portal/internal/platform/httpx"
	"github.com/casinha/portal/internal/rbac"
	"github.com/casinha/portal/internal/rbac/rbactest"
	"github.com/casinha/portal/internal/reports"
	"github.com/casinha/portal/internal/shared"
)

// memRepo rolls DeleteReport back when authorize fails.
type memRepo struct {
	mu      sync.Mutex
	nextID  int64
	reports map[int64]reports.Report
}

func newMemRepo() *memRepo {
	return &memRepo{nextID: 1, reports: make(map[int64]reports.Report)}
}

func (m *memRepo) ListReports(ctx context.Context, areas []rbac.Area) ([]reports.Report, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	allowed := rbac.NewAreaSet(areas...)
	var out []reports.Report
	for id := int64(1); id < m.nextID; id++ {
		rep, ok := m.reports[id]
		if !ok {
			continue
		}
		if areas == nil || allowed.Has(rep.Area) {
			out = append(out, rep)
		}
	}
	return out, nil
}

func (m *memRepo) GetReport(ctx context.Context, id int64) (reports.Report, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rep, ok := m.reports[id]
	if !ok {
		return reports.Report{}, shared.ErrNotFound
	}
	rep.Attachments = append([]reports.Attachment(nil), rep.Attachments...)
	return rep, nil
}

func (m *memRepo) CreateReport(ctx context.Context, rep reports.Report) (reports.Report, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rep.ID = m.nextID
	m.nextID++
	rep.CreatedAt = time.Now()
	for i := range rep.Attachments {
		rep.Attachments[i].ID = int64(i + 1)
	}
	stored := rep
	stored.Attachments = append([]reports.Attachment(nil), rep.Attachments...)
	m.reports[rep.ID] = stored
	return rep, nil
}

func (m *memRepo) DeleteReport(ctx context.Context, id int64, authorize func(area rbac.Area) error) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rep, ok := m.reports[id]
	if !ok {
		return nil, shared.ErrNotFound
	}
	if err := authorize(rep.Area); err != nil {
		return nil, err
	}
	keys := make([]string, 0, len(rep.Attachments))
	for _, a := range rep.Attachments {
		keys = append(keys, a.ObjectKey)
	}
	delete(m.reports, id)
	return keys, nil
}

type fakeCleanup struct {
	mu     sync.Mutex
	queued []string
	err    error
}

func (f *fakeCleanup) EnqueueObjectRemoval(ctx context.Context, keys []string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.queued = append(f.queued, keys...)
	return nil
}

type fakeObjects struct {
	mu      sync.Mutex
	removed []string
	failKey string
}

func (f *fakeObjects) PresignUpload(ctx context.Context, key string) (*url.URL, error) {
	return url.Parse("https://s3.local/casinha/" + key + "?X-Amz-Signature=put")
}

func (f *fakeObjects) PresignDownload(ctx context.Context, key, filename string) (*url.URL, error) {
	return url.Parse("https://s3.local/casinha/" + key + "?X-Amz-Signature=get")
}

func (f *fakeObjects) Remove(ctx context.Context, key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failKey != "" && strings.HasSuffix(key, f.failKey) {
		return errors.New("s3 unavailable")
	}
	f.removed = append(f.removed, key)
	return nil
}

var (
	finance  = rbactest.Member(1, "Fabi", "Assessora Financeira", rbac.AreaFinanceiro)
	ops      = rbactest.Member(2, "Otto", "Assessor de Operações", rbac.AreaOperacoes)
	director = rbactest.Member(3, "Bia", "Diretora", rbac.AreaDiretoria)
)

func TestCreateReportPresignsUploads(t *testing.T) {
	svc := reports.NewService(newMemRepo(), &fakeObjects{}, nil, nil, nil)

	rep, err := svc.CreateReport(context.Background(), finance, reports.CreateInput{
		Title: "Balanço Q3",
		Area:  "financeiro",
		Attachments: []reports.AttachmentInput{
			{FileName: "../../etc/balanco.pdf", ContentType: "application/pdf"},
			{FileName: "anexo.xlsx"},
		},
	})
	require.NoError(t, err)
	require.Len(t, rep.Attachments, 2)
	assert.Equal(t, rbac.AreaFinanceiro, rep.Area)
	assert.Equal(t, "balanco.pdf", rep.Attachments[0].FileName)
	assert.True(t, strings.HasPrefix(rep.Attachments[0].ObjectKey, "relatorios/financeiro/"))
	assert.Contains(t, rep.Attachments[0].UploadURL, "X-Amz-Signature=put")
	assert.Equal(t, "application/octet-stream", rep.Attachments[1].ContentType)
}

func TestCreateReportOutsideOwnArea(t *testing.T) {
	svc := reports.NewService(newMemRepo(), &fakeObjects{}, nil, nil, nil)

	_, err := svc.CreateReport(context.Background(), ops, reports.CreateInput{Title: "Balanço", Area: "FINANCEIRO"})
	assert.ErrorIs(t, err, httpx.ErrForbidden)

	_, err = svc.CreateReport(context.Background(), director, reports.CreateInput{Title: "Balanço", Area: "FINANCEIRO"})
	assert.NoError(t, err)

	_, err = svc.CreateReport(context.Background(), ops, reports.CreateInput{Title: "Campanha", Area: "MARKETING"})
	assert.ErrorIs(t, err, httpx.ErrValidation)
}

func TestListReportsScopedByArea(t *testing.T) {
	repo := newMemRepo()
	svc := reports.NewService(repo, &fakeObjects{}, nil, nil, nil)
	ctx := context.Background()

	_, err := svc.CreateReport(ctx, finance, reports.CreateInput{Title: "Balanço", Area: "FINANCEIRO"})
	require.NoError(t, err)
	_, err = svc.CreateReport(ctx, ops, reports.CreateInput{Title: "Eventos", Area: "OPERACOES"})
	require.NoError(t, err)

	own, err := svc.ListReports(ctx, ops)
	require.NoError(t, err)
	require.Len(t, own, 1)
	assert.Equal(t, "Eventos", own[0].Title)

	all, err := svc.ListReports(ctx, director)
	require.NoError(t, err)
	assert.Len(t, all, 2)

	none, err := svc.ListReports(ctx, rbactest.Member(9, "Pedro", "Assessor de Pessoas", rbac.AreaPessoas))
	require.NoError(t, err)
	assert.NotNil(t, none)
	assert.Empty(t, none)
}

func TestGetReportSignsDownloads(t *testing.T) {
	svc := reports.NewService(newMemRepo(), &fakeObjects{}, nil, nil, nil)
	ctx := context.Background()
	created, err := svc.CreateReport(ctx, finance, reports.CreateInput{
		Title:       "Balanço",
		Area:        "FINANCEIRO",
		Attachments: []reports.AttachmentInput{{FileName: "a.pdf"}, {FileName: "b.pdf"}},
	})
	require.NoError(t, err)

	rep, err := svc.GetReport(ctx, finance, created.ID)
	require.NoError(t, err)
	for _, a := range rep.Attachments {
		assert.Contains(t, a.DownloadURL, "X-Amz-Signature=get")
		assert.Empty(t, a.UploadURL)
	}

	_, err = svc.GetReport(ctx, ops, created.ID)
	assert.ErrorIs(t, err, httpx.ErrForbidden)

	_, err = svc.GetReport(ctx, finance, 999)
	assert.ErrorIs(t, err, shared.ErrNotFound)
}

func TestDeleteReportQueuesObjectsThatFailToRemove(t *testing.T) {
	repo := newMemRepo()
	objects := &fakeObjects{failKey: "b.pdf"}
	cleanup := &fakeCleanup{}
	svc := reports.NewService(repo, objects, cleanup, nil, nil)
	ctx := context.Background()
	created, err := svc.CreateReport(ctx, finance, reports.CreateInput{
		Title:       "Balanço",
		Area:        "FINANCEIRO",
		Attachments: []reports.AttachmentInput{{FileName: "a.pdf"}, {FileName: "b.pdf"}},
	})
	require.NoError(t, err)

	require.NoError(t, svc.DeleteReport(ctx, finance, created.ID))

	_, err = repo.GetReport(ctx, created.ID)
	assert.ErrorIs(t, err, shared.ErrNotFound)
	require.Len(t, objects.removed, 1)
	assert.True(t, strings.HasSuffix(objects.removed[0], "a.pdf"))
	require.Len(t, cleanup.queued, 1)
	assert.True(t, strings.HasSuffix(cleanup.queued[0], "b.pdf"))
}

func TestDeleteReportQueueFailureStillDeletes(t *testing.T) {
	repo := newMemRepo()
	svc := reports.NewService(repo, &fakeObjects{failKey: "a.pdf"}, &fakeCleanup{err: errors.New("redis down")}, nil, nil)
	ctx := context.Background()
	created, err := svc.CreateReport(ctx, finance, reports.CreateInput{
		Title:       "Balanço",
		Area:        "FINANCEIRO",
		Attachments: []reports.AttachmentInput{{FileName: "a.pdf"}},
	})
	require.NoError(t, err)

	require.NoError(t, svc.DeleteReport(ctx, finance, created.ID))
	_, err = repo.GetReport(ctx, created.ID)
	assert.ErrorIs(t, err, shared.ErrNotFound)
}

func TestDeleteReportOutsideOwnArea(t *testing.T) {
	repo := newMemRepo()
	objects := &fakeObjects{}
	svc := reports.NewService(repo, objects, nil, nil, nil)
	ctx := context.Background()
	created, err := svc.CreateReport(ctx, ops, reports.CreateInput{
		Title:       "Eventos",
		Area:        "OPERACOES",
		Attachments: []reports.AttachmentInput{{FileName: "x.pdf"}},
	})
	require.NoError(t, err)

	err = svc.DeleteReport(ctx, finance, created.ID)
	assert.ErrorIs(t, err, httpx.ErrForbidden)
	assert.Empty(t, objects.removed)
	rep, err := repo.GetReport(ctx, created.ID)
	require.NoError(t, err)
	assert.Len(t, rep.Attachments, 1)

	require.NoError(t, svc.DeleteReport(ctx, director, created.ID))
	assert.Len(t, objects.removed, 1)

	assert.ErrorIs(t, svc.DeleteReport(ctx, director, created.ID), shared.ErrNotFound)
}

func newRouter(t *testing.T, svc *reports.Service) http.Handler {
	t.Helper()
	resolver := rbactest.NewResolver().
		Add("fin", finance).
		Add("ops", ops).
		Add("dir", director)
	h := reports.NewHandler(nil, svc, rbactest.Middleware(resolver))
	r := chi.NewRouter()
	r.Route("/api/relatorios", h.MountRoutes)
	return r
}

func TestHandlerDeleteRequiresFinance(t *testing.T) {
	repo := newMemRepo()
	svc := reports.NewService(repo, &fakeObjects{}, nil, nil, nil)
	created, err := svc.CreateReport(context.Background(), finance, reports.CreateInput{Title: "Balanço", Area: "FINANCEIRO"})
	require.NoError(t, err)
	router := newRouter(t, svc)
	target := "/api/relatorios/" + strconv.FormatInt(created.ID, 10)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, rbactest.WithSession(httptest.NewRequest(http.MethodDelete, target, nil), "ops"))
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodDelete, target, nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, rbactest.WithSession(httptest.NewRequest(http.MethodDelete, target, nil), "fin"))
	assert.Equal(t, http.StatusNoContent, rec.Code)
}

func TestHandlerDeleteOtherArea(t *testing.T) {
	repo := newMemRepo()
	svc := reports.NewService(repo, &fakeObjects{}, nil, nil, nil)
	created, err := svc.CreateReport(context.Background(), director, reports.CreateInput{Title: "Eventos", Area: "OPERACOES"})
	require.NoError(t, err)
	router := newRouter(t, svc)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodDelete, "/api/relatorios/"+strconv.FormatInt(created.ID, 10), nil)
	router.ServeHTTP(rec, rbactest.WithSession(req, "fin"))
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.JSONEq(t, `{"message":"Acesso negado"}`, rec.Body.String())

	_, err = repo.GetReport(context.Background(), created.ID)
	assert.NoError(t, err)
}

func TestHandlerDeleteObjectFailure(t *testing.T) {
	repo := newMemRepo()
	cleanup := &fakeCleanup{}
	svc := reports.NewService(repo, &fakeObjects{failKey: "a.pdf"}, cleanup, nil, nil)
	created, err := svc.CreateReport(context.Background(), finance, reports.CreateInput{
		Title:       "Balanço",
		Area:        "FINANCEIRO",
		Attachments: []reports.AttachmentInput{{FileName: "a.pdf"}},
	})
	require.NoError(t, err)
	router := newRouter(t, svc)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodDelete, "/api/relatorios/"+strconv.FormatInt(created.ID, 10), nil)
	router.ServeHTTP(rec, rbactest.WithSession(req, "fin"))
	assert.Equal(t, http.StatusNoContent, rec.Code)

	_, err = repo.GetReport(context.Background(), created.ID)
	assert.ErrorIs(t, err, shared.ErrNotFound)
	assert.Len(t, cleanup.queued, 1)
}

func TestHandlerCreate(t *testing.T) {
	svc := reports.NewService(newMemRepo(), &fakeObjects{}, nil, nil, nil)
	router := newRouter(t, svc)

	body := `{"title":"Relatório de eventos","area":"OPERACOES","attachments":[{"fileName":"fotos.zip"}]}`
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/relatorios/", strings.NewReader(body))
	router.ServeHTTP(rec, rbactest.WithSession(req, "ops"))
	require.Equal(t, http.StatusCreated, rec.Code)

	var rep struct {
		ID          int64 `json:"id"`
		Attachments []struct {
			FileName  string `json:"fileName"`
			UploadURL string `json:"uploadUrl"`
			ObjectKey string `json:"objectKey"`
		} `json:"attachments"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &rep))
	require.Len(t, rep.Attachments, 1)
	assert.NotEmpty(t, rep.Attachments[0].UploadURL)
	assert.Empty(t, rep.Attachments[0].ObjectKey)

	rec = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodPost, "/api/relatorios/", strings.NewReader(`{"title":"Balanço","area":"FINANCEIRO"}`))
	router.ServeHTTP(rec, rbactest.WithSession(req, "ops"))
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestHandlerListForDirector(t *testing.T) {
	svc := reports.NewService(newMemRepo(), &fakeObjects{}, nil, nil, nil)
	ctx := context.Background()
	_, err := svc.CreateReport(ctx, finance, reports.CreateInput{Title: "Balanço", Area: "FINANCEIRO"})
	require.NoError(t, err)
	_, err = svc.CreateReport(ctx, ops, reports.CreateInput{Title: "Eventos", Area: "OPERACOES"})
	require.NoError(t, err)
	router := newRouter(t, svc)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, rbactest.WithSession(httptest.NewRequest(http.MethodGet, "/api/relatorios/", nil), "dir"))
	require.Equal(t, http.StatusOK, rec.Code)
	var out struct {
		Reports []reports.Report `json:"reports"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	assert.Len(t, out.Reports, 2)
}
