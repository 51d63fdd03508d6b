package users_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/casinha/portal/internal/rbac"
	"github.com/casinha/portal/internal/rbac/rbactest"
	"github.com/casinha/portal/internal/shared"
	"github.com/casinha/portal/internal/users"
)

type memRepo struct {
	mu       sync.Mutex
	members  map[int64]*users.Member
	roles    map[int64]string
	history  map[int64][]users.HistoryEntry
	touched  map[int64]time.Time
	failList error
}

func newMemRepo() *memRepo {
	return &memRepo{
		members: map[int64]*users.Member{
			1: {ID: 1, Name: "Bia", RoleID: 10, RoleName: "Diretor de Pessoas", Status: rbac.StatusActive},
			2: {ID: 2, Name: "Ana", RoleID: 20, RoleName: "Estagiário", Status: rbac.StatusActive},
			3: {ID: 3, Name: "Caio", RoleID: 20, RoleName: "Estagiário", Status: rbac.StatusExMember},
		},
		roles:   map[int64]string{10: "Diretor de Pessoas", 20: "Estagiário", 30: "Assessor"},
		history: make(map[int64][]users.HistoryEntry),
		touched: make(map[int64]time.Time),
	}
}

func (m *memRepo) ListUsers(ctx context.Context, filter users.ListFilter, limit, offset int) ([]users.Member, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failList != nil {
		return nil, 0, m.failList
	}
	var all []users.Member
	for id := int64(1); id <= int64(len(m.members)); id++ {
		mem := m.members[id]
		if filter.Status == "" || mem.Status == filter.Status {
			all = append(all, *mem)
		}
	}
	total := len(all)
	if offset >= total {
		return nil, total, nil
	}
	end := offset + limit
	if end > total {
		end = total
	}
	return all[offset:end], total, nil
}

func (m *memRepo) TouchLastActive(ctx context.Context, userID int64, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.touched[userID] = at
	return nil
}

func (m *memRepo) AssignRole(ctx context.Context, actorID, userID, roleID int64, at time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	mem, ok := m.members[userID]
	if !ok {
		return false, shared.ErrNotFound
	}
	name, ok := m.roles[roleID]
	if !ok {
		return false, shared.ErrNotFound
	}
	if mem.RoleID == roleID {
		return false, nil
	}
	mem.RoleID, mem.RoleName = roleID, name
	rid, by := roleID, actorID
	m.history[userID] = append([]users.HistoryEntry{{RoleID: &rid, RoleName: name, AssignedBy: &by, AssignedAt: at}}, m.history[userID]...)
	return true, nil
}

func (m *memRepo) History(ctx context.Context, userID int64) ([]users.HistoryEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.members[userID]; !ok {
		return nil, shared.ErrNotFound
	}
	return m.history[userID], nil
}

func (m *memRepo) SetStatus(ctx context.Context, userID int64, status rbac.MembershipStatus) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	mem, ok := m.members[userID]
	if !ok {
		return shared.ErrNotFound
	}
	mem.Status = status
	return nil
}

type fixture struct {
	repo   *memRepo
	router http.Handler
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	repo := newMemRepo()
	resolver := rbactest.NewResolver().
		Add("director", rbactest.Member(1, "Bia", "Diretor de Pessoas", rbac.AreaDiretoria)).
		Add("intern", rbactest.Member(2, "Ana", "Estagiário", rbac.AreaOperacoes)).
		Add("people", rbactest.Member(4, "Duda", "Assessor de Pessoas", rbac.AreaPessoas))
	handler := users.NewHandler(nil, users.NewService(repo, nil, nil), rbactest.Middleware(resolver))
	r := chi.NewRouter()
	r.Route("/api/me", handler.MountMe)
	r.Route("/api/usuarios", handler.MountRoutes)
	return fixture{repo: repo, router: r}
}

func (f fixture) do(method, path, token, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if token != "" {
		rbactest.WithSession(req, token)
	}
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)
	return rec
}

func TestMeReturnsResolvedUser(t *testing.T) {
	f := newFixture(t)

	rec := f.do(http.MethodGet, "/api/me", "intern", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var got rbac.User
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, "Ana", got.Name)
	assert.Equal(t, []rbac.Area{rbac.AreaOperacoes}, got.Role.Areas)
}

func TestMeAnonymous(t *testing.T) {
	f := newFixture(t)

	rec := f.do(http.MethodGet, "/api/me", "", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.JSONEq(t, `{"message":"Não autorizado"}`, rec.Body.String())
}

func TestHeartbeat(t *testing.T) {
	f := newFixture(t)

	rec := f.do(http.MethodPost, "/api/me/heartbeat", "intern", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, f.repo.touched, int64(2))
}

func TestListUsersRequiresPessoas(t *testing.T) {
	f := newFixture(t)

	assert.Equal(t, http.StatusForbidden, f.do(http.MethodGet, "/api/usuarios", "intern", "").Code)

	rec := f.do(http.MethodGet, "/api/usuarios?status=ativo&perPage=1&page=2", "people", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var body struct {
		Users      []users.Member    `json:"users"`
		Pagination shared.Pagination `json:"pagination"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Len(t, body.Users, 1)
	assert.Equal(t, "Ana", body.Users[0].Name)
	assert.Equal(t, 2, body.Pagination.Total)
	assert.Equal(t, 2, body.Pagination.TotalPages)

	assert.Equal(t, http.StatusBadRequest, f.do(http.MethodGet, "/api/usuarios?status=afastado", "people", "").Code)
}

func TestListUsersStoreError(t *testing.T) {
	f := newFixture(t)
	f.repo.failList = errors.New("pg down")

	rec := f.do(http.MethodGet, "/api/usuarios", "director", "")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.JSONEq(t, `{"message":"Erro interno do servidor"}`, rec.Body.String())
}

func TestAssignRoleAppendsHistory(t *testing.T) {
	f := newFixture(t)

	assert.Equal(t, http.StatusForbidden, f.do(http.MethodPut, "/api/usuarios/2/cargo", "people", `{"roleId":30}`).Code)

	rec := f.do(http.MethodPut, "/api/usuarios/2/cargo", "director", `{"roleId":30}`)
	require.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "Assessor", f.repo.members[2].RoleName)

	rec = f.do(http.MethodPut, "/api/usuarios/2/cargo", "director", `{"roleId":30}`)
	require.Equal(t, http.StatusNoContent, rec.Code)

	rec = f.do(http.MethodGet, "/api/usuarios/2/historico", "people", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var body struct {
		History []users.HistoryEntry `json:"history"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Len(t, body.History, 1, "re-assigning the current role must not grow history")
	assert.Equal(t, "Assessor", body.History[0].RoleName)

	assert.Equal(t, http.StatusNotFound, f.do(http.MethodPut, "/api/usuarios/2/cargo", "director", `{"roleId":99}`).Code)
	assert.Equal(t, http.StatusBadRequest, f.do(http.MethodPut, "/api/usuarios/2/cargo", "director", `{"roleId":0}`).Code)
}

func TestHistoryUnknownMember(t *testing.T) {
	f := newFixture(t)
	rec := f.do(http.MethodGet, "/api/usuarios/42/historico", "director", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = f.do(http.MethodGet, "/api/usuarios/1/historico", "director", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"history":[]}`, rec.Body.String())
}

func TestSetStatus(t *testing.T) {
	f := newFixture(t)

	rec := f.do(http.MethodPut, "/api/usuarios/2/status", "people", `{"status":"EX_MEMBRO"}`)
	require.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, rbac.StatusExMember, f.repo.members[2].Status)

	rec = f.do(http.MethodPut, "/api/usuarios/1/status", "director", `{"status":"EX_MEMBRO"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code, "self status change")

	rec = f.do(http.MethodPut, "/api/usuarios/2/status", "people", `{"status":"AFASTADO"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
