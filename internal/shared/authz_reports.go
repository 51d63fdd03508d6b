package shared

// Report pages and actions.
const (
	PathReports = "/relatorios"

	ActionReportsView   = "reports.view"
	ActionReportsCreate = "reports.create"
	ActionReportsDelete = "reports.delete"
)

// ReportActions lists all action keys related to reports.
func ReportActions() []string {
	return []string{ActionReportsView, ActionReportsCreate, ActionReportsDelete}
}
