package auth

import "slices"

// Permission represents a specific permission in the system.
type Permission string

const (
	// PermissionViewSystem grants access to view system information.
	PermissionViewSystem Permission = "system:view"
	// PermissionManageSystem grants access to manage system settings.
	PermissionManageSystem Permission = "system:manage"

	// PermissionViewUsers grants access to view users.
	PermissionViewUsers Permission = "users:view"
	// PermissionCreateUsers grants access to create users.
	PermissionCreateUsers Permission = "users:create"
	// PermissionUpdateUsers grants access to update users.
	PermissionUpdateUsers Permission = "users:update"
	// PermissionDeleteUsers grants access to delete users.
	PermissionDeleteUsers Permission = "users:delete"

	// PermissionViewDevices grants access to view devices.
	PermissionViewDevices Permission = "devices:view"
	// PermissionManageDevices grants access to add, edit and delete devices.
	PermissionManageDevices Permission = "devices:manage"
	// PermissionProtectDevices grants access to set and remove device passwords.
	PermissionProtectDevices Permission = "devices:protect"

	// PermissionRunScans grants access to run device scans.
	PermissionRunScans Permission = "scan:run"
	// PermissionViewScans grants access to view scan results.
	PermissionViewScans Permission = "scan:view"

	// PermissionViewConfig grants access to view configuration.
	PermissionViewConfig Permission = "config:view"
	// PermissionManageConfig grants access to manage configuration.
	PermissionManageConfig Permission = "config:manage"

	// PermissionViewUpdates grants access to view updates.
	PermissionViewUpdates Permission = "updates:view"

	// PermissionViewHistory grants access to view activity history.
	PermissionViewHistory Permission = "history:view"
	// PermissionManageHistory grants access to clear activity history.
	PermissionManageHistory Permission = "history:manage"

	// PermissionViewStats grants access to view statistics.
	PermissionViewStats Permission = "stats:view"

	// PermissionViewOverview grants access to view overview.
	PermissionViewOverview Permission = "overview:view"

	// PermissionViewInfo grants access to view system info.
	PermissionViewInfo Permission = "info:view"
)

// Role represents a user role with associated permissions.
type Role struct {
	Name        string       `json:"name"`
	Permissions []Permission `json:"permissions"`
}

// GetRoleAdmin returns the admin role.
func GetRoleAdmin() Role {
	return Role{
		Name: "admin",
		Permissions: []Permission{
			PermissionViewSystem,
			PermissionManageSystem,
			PermissionViewUsers,
			PermissionCreateUsers,
			PermissionUpdateUsers,
			PermissionDeleteUsers,
			PermissionViewDevices,
			PermissionManageDevices,
			PermissionProtectDevices,
			PermissionRunScans,
			PermissionViewScans,
			PermissionViewConfig,
			PermissionManageConfig,
			PermissionViewUpdates,
			PermissionViewHistory,
			PermissionManageHistory,
			PermissionViewStats,
			PermissionViewOverview,
			PermissionViewInfo,
		},
	}
}

// GetRoleUser returns the user role.
func GetRoleUser() Role {
	return Role{
		Name: "user",
		Permissions: []Permission{
			PermissionViewSystem,     // View system overview
			PermissionViewDevices,    // View devices
			PermissionManageDevices,  // Add, edit and delete devices
			PermissionProtectDevices, // Set and remove device passwords
			PermissionRunScans,       // Run device scans
			PermissionViewScans,      // View scan results
			PermissionViewConfig,     // View configuration (safe version)
			PermissionViewUpdates,    // View updates
			PermissionViewHistory,    // View activity history
			PermissionViewStats,      // View statistics
			PermissionViewOverview,   // View overview
			PermissionViewInfo,       // View system info
		},
	}
}

// GetRole returns a role by name.
func GetRole(name string) *Role {
	switch name {
	case "admin":
		role := GetRoleAdmin()

		return &role
	case "user":
		role := GetRoleUser()

		return &role
	default:
		role := GetRoleUser() // Default to user role for unknown roles

		return &role
	}
}

// HasPermission checks if a role has a specific permission.
func (r *Role) HasPermission(permission Permission) bool {
	return slices.Contains(r.Permissions, permission)
}

// HasAnyPermission checks if a role has any of the specified permissions.
func (r *Role) HasAnyPermission(permissions ...Permission) bool {
	return slices.ContainsFunc(permissions, r.HasPermission)
}

// HasAllPermissions checks if a role has all of the specified permissions.
func (r *Role) HasAllPermissions(permissions ...Permission) bool {
	for _, permission := range permissions {
		if !r.HasPermission(permission) {
			return false
		}
	}

	return true
}
