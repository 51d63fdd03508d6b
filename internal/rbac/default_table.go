package rbac

import "github.com/casinha/portal/internal/shared"

// DefaultTable returns the compiled-in resource table for the portal.
func DefaultTable() *Table {
	return MustTable(
		Page(shared.PathHome, Authenticated()),
		Page(shared.PathPoints, Authenticated()),
		Page(shared.PathChat, Authenticated()),
		Page(shared.PathCommunity, Authenticated()),
		Page(shared.PathReservations, Authenticated()),
		Page(shared.PathOracle, Authenticated()),
		Page(shared.PathGoals, AnyArea(AreaDiretoria, AreaGeral)),
		Page(shared.PathReports, AnyArea(AreaFinanceiro, AreaOperacoes)),
		Page(shared.PathUsers, AnyArea(AreaPessoas)),
		Page(shared.PathRoleAdmin, DirectorOnly()),
		Page(shared.PathPointsAdmin, AnyArea(AreaPessoas)),
		Page(shared.PathOracleAdmin, AnyArea(AreaOperacoes)),
		Page(shared.PathReservationsAdmin, AnyArea(AreaOperacoes)),

		Action(shared.ActionMeView, Authenticated()),
		Action(shared.ActionMeHeartbeat, Authenticated()),
		Action(shared.ActionUsersView, AnyArea(AreaPessoas)),
		Action(shared.ActionUsersStatus, AnyArea(AreaPessoas)),
		Action(shared.ActionUsersAssign, DirectorOnly()),
		Action(shared.ActionRolesView, Authenticated()),
		Action(shared.ActionRolesCreate, DirectorOnly()),
		Action(shared.ActionRolesUpdate, DirectorOnly()),
		Action(shared.ActionRolesDelete, DirectorOnly()),
		Action(shared.ActionPolicyView, DirectorOnly()),
		Action(shared.ActionJobsView, DirectorOnly()),
		Action(shared.ActionReportsView, AnyArea(AreaFinanceiro, AreaOperacoes)),
		Action(shared.ActionReportsCreate, AnyArea(AreaFinanceiro, AreaOperacoes)),
		Action(shared.ActionReportsDelete, AnyArea(AreaFinanceiro)),
	)
}
