package rbac

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/casinha/portal/internal/shared"
)

func TestTablePageLongestPrefix(t *testing.T) {
	table := MustTable(
		Page("/", Authenticated()),
		Page("/oraculo", Authenticated()),
		Page("/oraculo/gerenciar", AnyArea(AreaOperacoes)),
	)

	d, ok := table.Page("/oraculo/gerenciar/pastas/12")
	require.True(t, ok)
	assert.Equal(t, "/oraculo/gerenciar", d.Key)

	d, ok = table.Page("/oraculo/documento/3")
	require.True(t, ok)
	assert.Equal(t, "/oraculo", d.Key)

	d, ok = table.Page("/oraculo-antigo")
	require.True(t, ok)
	assert.Equal(t, "/", d.Key, "prefix must match whole segments")

	d, ok = table.Page("//oraculo//")
	require.True(t, ok)
	assert.Equal(t, "/oraculo", d.Key)
}

func TestTablePageWithoutRoot(t *testing.T) {
	table := MustTable(Page("/metas", AnyArea(AreaGeral)))
	_, ok := table.Page("/outra")
	assert.False(t, ok)
}

func TestTableActionExact(t *testing.T) {
	table := MustTable(Action("roles.create", DirectorOnly()))
	_, ok := table.Action("roles.create")
	assert.True(t, ok)
	_, ok = table.Action("roles")
	assert.False(t, ok)
}

func TestNewTableRejectsInvalid(t *testing.T) {
	cases := map[string][]Descriptor{
		"relative page":    {Page("metas", Authenticated())},
		"empty action":     {Action(" ", Authenticated())},
		"empty area set":   {Page("/metas", AnyArea())},
		"unknown level":    {Page("/metas", Requirement{Level: "root"})},
		"duplicate page":   {Page("/metas", Authenticated()), Page("/metas/", DirectorOnly())},
		"duplicate action": {Action("a", Authenticated()), Action("a", DirectorOnly())},
	}
	for name, descs := range cases {
		_, err := NewTable(descs...)
		assert.True(t, errors.Is(err, ErrInvalidDescriptor), name)
	}
}

func TestTableWithOverrides(t *testing.T) {
	base := MustTable(Page("/metas", AnyArea(AreaGeral)), Action("a", Authenticated()))
	merged, err := base.With(Page("/metas", DirectorOnly()), Page("/novo", Authenticated()))
	require.NoError(t, err)

	d, _ := merged.Page("/metas")
	assert.Equal(t, LevelDirector, d.Requirement.Level)
	_, ok := merged.Page("/novo")
	assert.True(t, ok)

	d, _ = base.Page("/metas")
	assert.Equal(t, LevelAreas, d.Requirement.Level, "base table must stay unchanged")
}

func TestDefaultTableCoversPortal(t *testing.T) {
	table := DefaultTable()
	keys := make([]string, 0)
	for _, d := range table.Descriptors() {
		keys = append(keys, string(d.Kind)+":"+d.Key)
	}
	joined := strings.Join(keys, " ")
	for _, want := range []string{"page:/", "page:/gerenciar-cargos", "page:/relatorios", "action:roles.delete", "action:policy.view"} {
		assert.Contains(t, joined, want)
	}

	d, _ := table.Page("/jr-points/gerenciar")
	assert.Equal(t, AnyArea(AreaPessoas), d.Requirement)
}

func TestDefaultTableRegistersEveryKey(t *testing.T) {
	table := DefaultTable()
	for _, p := range shared.PortalPages() {
		d, ok := table.Page(p)
		require.True(t, ok, p)
		assert.Equal(t, p, d.Key, "page %s must have its own entry", p)
	}
	actions := append(shared.CoreActions(), shared.ReportActions()...)
	for _, key := range actions {
		_, ok := table.Action(key)
		assert.True(t, ok, key)
	}
}

func TestDecodeTableOverridesDefault(t *testing.T) {
	doc := `
pages:
  - path: /metas
    require: director
  - path: /eventos
    require: areas
    areas: [mercado, Projetos]
actions:
  - key: reports.delete
    require: director
`
	table, err := DecodeTable(strings.NewReader(doc), DefaultTable())
	require.NoError(t, err)

	d, _ := table.Page("/metas")
	assert.Equal(t, LevelDirector, d.Requirement.Level)

	d, ok := table.Page("/eventos")
	require.True(t, ok)
	assert.Equal(t, []Area{AreaMercado, AreaProjetos}, d.Requirement.Areas.Slice())

	d, _ = table.Action("reports.delete")
	assert.Equal(t, LevelDirector, d.Requirement.Level)

	_, ok = table.Page("/reservas")
	assert.True(t, ok, "untouched defaults are kept")
}

func TestDecodeTableRejectsBadInput(t *testing.T) {
	docs := map[string]string{
		"unknown area":  "pages:\n  - path: /x\n    require: areas\n    areas: [MARKETING]\n",
		"no areas":      "pages:\n  - path: /x\n    require: areas\n",
		"unknown level": "actions:\n  - key: x\n    require: admin\n",
		"unknown field": "pages:\n  - path: /x\n    require: director\n    roles: [Diretor]\n",
	}
	for name, doc := range docs {
		_, err := DecodeTable(strings.NewReader(doc), DefaultTable())
		assert.Error(t, err, name)
	}
}

func TestDecodeTableEmptyDocument(t *testing.T) {
	table, err := DecodeTable(strings.NewReader(""), DefaultTable())
	require.NoError(t, err)
	assert.Len(t, table.Descriptors(), len(DefaultTable().Descriptors()))
}
