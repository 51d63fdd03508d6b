package shared

// Core portal pages.
const (
	PathHome      = "/"
	PathUsers     = "/usuarios"
	PathRoleAdmin = "/gerenciar-cargos"
)

// Core API actions.
const (
	ActionMeView      = "me.view"
	ActionMeHeartbeat = "me.heartbeat"
	ActionUsersView   = "users.view"
	ActionUsersStatus = "users.status.update"
	ActionUsersAssign = "users.role.assign"
	ActionRolesView   = "roles.view"
	ActionRolesCreate = "roles.create"
	ActionRolesUpdate = "roles.update"
	ActionRolesDelete = "roles.delete"
	ActionPolicyView  = "policy.view"
	ActionJobsView    = "jobs.view"
)

// CoreActions lists all action keys for the core platform.
func CoreActions() []string {
	return []string{
		ActionMeView,
		ActionMeHeartbeat,
		ActionUsersView,
		ActionUsersStatus,
		ActionUsersAssign,
		ActionRolesView,
		ActionRolesCreate,
		ActionRolesUpdate,
		ActionRolesDelete,
		ActionPolicyView,
		ActionJobsView,
	}
}
