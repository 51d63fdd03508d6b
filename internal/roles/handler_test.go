package roles_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sort"
	"strings"
	"sync"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/casinha/portal/internal/rbac"
	"github.com/casinha/portal/internal/rbac/rbactest"
	"github.com/casinha/portal/internal/roles"
	"github.com/casinha/portal/internal/shared"
)

type memRepo struct {
	mu      sync.Mutex
	nextID  int64
	roles   map[int64]roles.Role
	holders map[int64]int
}

func newMemRepo() *memRepo {
	return &memRepo{nextID: 1, roles: make(map[int64]roles.Role), holders: make(map[int64]int)}
}

func (m *memRepo) ListRoles(ctx context.Context) ([]roles.Role, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]roles.Role, 0, len(m.roles))
	for _, r := range m.roles {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (m *memRepo) GetRole(ctx context.Context, id int64) (roles.Role, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.roles[id]
	if !ok {
		return roles.Role{}, shared.ErrNotFound
	}
	r.Members = m.holders[id]
	return r, nil
}

func (m *memRepo) CreateRole(ctx context.Context, name, description string, areas []rbac.Area) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range m.roles {
		if strings.EqualFold(r.Name, name) {
			return 0, roles.ErrRoleNameTaken
		}
	}
	id := m.nextID
	m.nextID++
	m.roles[id] = roles.Role{ID: id, Name: name, Description: description, Areas: areas}
	return id, nil
}

func (m *memRepo) UpdateRole(ctx context.Context, id int64, name, description string, areas []rbac.Area) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.roles[id]; !ok {
		return shared.ErrNotFound
	}
	m.roles[id] = roles.Role{ID: id, Name: name, Description: description, Areas: areas}
	return nil
}

func (m *memRepo) DeleteRole(ctx context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.holders[id] > 0 {
		return roles.ErrRoleInUse
	}
	if _, ok := m.roles[id]; !ok {
		return shared.ErrNotFound
	}
	delete(m.roles, id)
	return nil
}

type auditSpy struct {
	mu      sync.Mutex
	entries []shared.AuditLog
}

func (a *auditSpy) Record(ctx context.Context, log shared.AuditLog) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.entries = append(a.entries, log)
	return nil
}

type fixture struct {
	repo   *memRepo
	audit  *auditSpy
	router http.Handler
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	repo := newMemRepo()
	audit := &auditSpy{}
	resolver := rbactest.NewResolver().
		Add("director", rbactest.Member(1, "Bia", "Diretor de Pessoas", rbac.AreaDiretoria)).
		Add("intern", rbactest.Member(2, "Ana", "Estagiário", rbac.AreaOperacoes))
	handler := roles.NewHandler(nil, roles.NewService(repo, audit, nil), rbactest.Middleware(resolver))
	r := chi.NewRouter()
	r.Route("/api/cargos", handler.MountRoutes)
	return fixture{repo: repo, audit: audit, router: r}
}

func (f fixture) do(t *testing.T, method, path, token, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		rbactest.WithSession(req, token)
	}
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)
	return rec
}

func TestCreateRoleAsDirector(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, http.MethodPost, "/api/cargos", "director", `{"name":"Gerente de Projetos","description":"Toca os projetos","areas":["projetos","Operações","PROJETOS"]}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var got roles.Role
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, "Gerente de Projetos", got.Name)
	assert.Equal(t, []rbac.Area{rbac.AreaOperacoes, rbac.AreaProjetos}, got.Areas)

	require.Len(t, f.audit.entries, 1)
	assert.Equal(t, "role.create", f.audit.entries[0].Action)
	assert.Equal(t, int64(1), f.audit.entries[0].ActorID)
}

func TestCreateRoleRequiresDirector(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, http.MethodPost, "/api/cargos", "intern", `{"name":"Hack","areas":["DIRETORIA"]}`)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.JSONEq(t, `{"message":"Acesso negado"}`, rec.Body.String())

	rec = f.do(t, http.MethodPost, "/api/cargos", "", `{"name":"Hack","areas":["DIRETORIA"]}`)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Empty(t, f.repo.roles)
}

func TestCreateRoleValidation(t *testing.T) {
	f := newFixture(t)

	for _, body := range []string{
		`{"name":"X","areas":["GERAL"]}`,
		`{"name":"Sem área","areas":[]}`,
		`{"name":"Área errada","areas":["MARKETING"]}`,
		`{"name":"Campo extra","areas":["GERAL"],"admin":true}`,
		`not json`,
	} {
		rec := f.do(t, http.MethodPost, "/api/cargos", "director", body)
		assert.Equal(t, http.StatusBadRequest, rec.Code, body)
	}
}

func TestCreateRoleDuplicateName(t *testing.T) {
	f := newFixture(t)
	body := `{"name":"Assessor","areas":["GERAL"]}`
	require.Equal(t, http.StatusCreated, f.do(t, http.MethodPost, "/api/cargos", "director", body).Code)

	rec := f.do(t, http.MethodPost, "/api/cargos", "director", body)
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestListRolesForAnyMember(t *testing.T) {
	f := newFixture(t)
	_, err := f.repo.CreateRole(context.Background(), "Assessor", "", []rbac.Area{rbac.AreaGeral})
	require.NoError(t, err)

	rec := f.do(t, http.MethodGet, "/api/cargos", "intern", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"name":"Assessor"`)

	rec = f.do(t, http.MethodGet, "/api/cargos", "", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestUpdateRole(t *testing.T) {
	f := newFixture(t)
	id, err := f.repo.CreateRole(context.Background(), "Assessor", "", []rbac.Area{rbac.AreaGeral})
	require.NoError(t, err)

	rec := f.do(t, http.MethodPut, "/api/cargos/1", "director", `{"name":"Assessor Financeiro","areas":["FINANCEIRO","GERAL"]}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	role, err := f.repo.GetRole(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, []rbac.Area{rbac.AreaFinanceiro, rbac.AreaGeral}, role.Areas)

	rec = f.do(t, http.MethodPut, "/api/cargos/99", "director", `{"name":"Fantasma","areas":["GERAL"]}`)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestDeleteRoleInUse(t *testing.T) {
	f := newFixture(t)
	id, err := f.repo.CreateRole(context.Background(), "Estagiário", "", []rbac.Area{rbac.AreaOperacoes})
	require.NoError(t, err)
	f.repo.holders[id] = 3

	rec := f.do(t, http.MethodDelete, "/api/cargos/1", "director", "")
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Len(t, f.repo.roles, 1)

	f.repo.holders[id] = 0
	rec = f.do(t, http.MethodDelete, "/api/cargos/1", "director", "")
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Empty(t, f.repo.roles)
}

func TestRoleIDMustBeNumeric(t *testing.T) {
	f := newFixture(t)
	rec := f.do(t, http.MethodGet, "/api/cargos/abc", "director", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
