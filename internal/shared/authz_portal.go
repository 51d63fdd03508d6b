package shared

// Portal section pages.
const (
	PathPoints            = "/jr-points"
	PathPointsAdmin       = "/jr-points/gerenciar"
	PathChat              = "/chat"
	PathCommunity         = "/comunidade"
	PathReservations      = "/reservas"
	PathReservationsAdmin = "/reservas/gerenciar"
	PathOracle            = "/oraculo"
	PathOracleAdmin       = "/oraculo/gerenciar"
	PathGoals             = "/metas"
)

// PortalPages lists every section page served by the portal.
func PortalPages() []string {
	return []string{
		PathHome,
		PathPoints,
		PathPointsAdmin,
		PathChat,
		PathCommunity,
		PathReservations,
		PathReservationsAdmin,
		PathOracle,
		PathOracleAdmin,
		PathGoals,
		PathReports,
		PathUsers,
		PathRoleAdmin,
	}
}
