package domain

const (
	RoleAdmin = "admin"
	RoleUser  = "user"
)

const (
	PermissionView   = "view"
	PermissionEdit   = "edit"
	PermissionCreate = "create"
	PermissionDelete = "delete"
	PermissionAdmin  = "admin"
)

// BootstrapAdminUsername names the protected account that can never be
// deactivated or deleted.
const BootstrapAdminUsername = "admin"

type RoleInfo struct {
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Permissions []string `json:"permissions"`
}

var roleCatalog = map[string]RoleInfo{
	RoleAdmin: {
		Name:        "Administrator",
		Description: "Full system access including user management",
		Permissions: []string{PermissionView, PermissionEdit, PermissionCreate, PermissionDelete, PermissionAdmin},
	},
	RoleUser: {
		Name:        "User",
		Description: "Standard access to inventory and sales features",
		Permissions: []string{PermissionView, PermissionEdit, PermissionCreate},
	},
}

func RoleCatalog() map[string]RoleInfo {
	out := make(map[string]RoleInfo, len(roleCatalog))
	for role, info := range roleCatalog {
		out[role] = info
	}
	return out
}

func ValidRole(role string) bool {
	_, ok := roleCatalog[role]
	return ok
}

func RoleHasPermission(role string, permission string) bool {
	info, ok := roleCatalog[role]
	if !ok {
		return false
	}
	for _, p := range info.Permissions {
		if p == permission {
			return true
		}
	}
	return false
}

func CanManageUsers(role string) bool {
	return RoleHasPermission(role, PermissionAdmin)
}

func CanDelete(role string) bool {
	return RoleHasPermission(role, PermissionDelete)
}

// CanAccessFinance is true for every authenticated role. Finance reports are
// read-only and every role in the catalog carries the view permission.
func CanAccessFinance(role string) bool {
	return RoleHasPermission(role, PermissionView)
}
