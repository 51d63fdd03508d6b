package portal

import (
	"strings"

	"github.com/casinha/portal/internal/rbac"
	"github.com/casinha/portal/internal/shared"
	"github.com/casinha/portal/internal/view"
)

// Section is a page shell served by the portal.
type Section struct {
	Path    string
	Label   string
	Summary string
}

var sections = []Section{
	{Path: shared.PathHome, Label: "Início"},
	{Path: shared.PathPoints, Label: "JR Points", Summary: "Pontuação e ranking dos membros."},
	{Path: shared.PathPointsAdmin, Label: "Gerenciar JR Points", Summary: "Lançamento e ajuste de pontos."},
	{Path: shared.PathChat, Label: "Chat", Summary: "Conversas entre os membros."},
	{Path: shared.PathCommunity, Label: "Comunidade", Summary: "Mural e eventos da Casinha."},
	{Path: shared.PathReservations, Label: "Reservas", Summary: "Reserva de salas e equipamentos."},
	{Path: shared.PathReservationsAdmin, Label: "Gerenciar reservas", Summary: "Aprovação e cadastro de recursos reserváveis."},
	{Path: shared.PathOracle, Label: "Oráculo", Summary: "Base de conhecimento da Casinha."},
	{Path: shared.PathOracleAdmin, Label: "Gerenciar oráculo", Summary: "Curadoria da base de conhecimento."},
	{Path: shared.PathGoals, Label: "Metas", Summary: "Metas estratégicas e acompanhamento."},
	{Path: shared.PathReports, Label: "Relatórios", Summary: "Relatórios financeiros e operacionais."},
	{Path: shared.PathUsers, Label: "Membros", Summary: "Diretório de membros e histórico de cargos."},
	{Path: shared.PathRoleAdmin, Label: "Gerenciar cargos", Summary: "Cargos e áreas de acesso."},
}

// Sections returns the page shells in navigation order.
func Sections() []Section {
	return append([]Section(nil), sections...)
}

func sectionFor(path string) (Section, bool) {
	for _, s := range sections {
		if s.Path == path {
			return s, true
		}
	}
	return Section{}, false
}

// Navigation lists the sections user may open, marking the one containing current.
func Navigation(guard *rbac.Guard, user *rbac.User, current string) []view.NavItem {
	if user == nil {
		return nil
	}
	active := activeSection(current)
	items := make([]view.NavItem, 0, len(sections))
	for _, s := range sections {
		if !guard.Check(user, s.Path) {
			continue
		}
		items = append(items, view.NavItem{Label: s.Label, Path: s.Path, Active: s.Path == active})
	}
	return items
}

// activeSection picks the longest section path that prefixes current.
func activeSection(current string) string {
	best := ""
	for _, s := range sections {
		if current != s.Path && !(s.Path != "/" && strings.HasPrefix(current, s.Path+"/")) {
			continue
		}
		if len(s.Path) > len(best) {
			best = s.Path
		}
	}
	return best
}
