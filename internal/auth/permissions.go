package auth

// Permission represents a named capability in the system.
type Permission string

// Permission constants.
const (
	PermRecordRead   Permission = "record:read"
	PermRecordWrite  Permission = "record:write"
	PermAuditRead    Permission = "audit:read"
	PermUserManage   Permission = "user:manage"
	PermSystemStatus Permission = "system:status"
)

var userPermissions = []Permission{
	PermRecordRead,
	PermRecordWrite,
}

var superuserPermissions = []Permission{
	PermRecordRead,
	PermRecordWrite,
	PermAuditRead,
	PermUserManage,
	PermSystemStatus,
}

// HasPermission reports whether u may use perm. Inactive users have none.
func HasPermission(u *User, perm Permission) bool {
	for _, p := range PermissionsFor(u) {
		if p == perm {
			return true
		}
	}
	return false
}

// PermissionsFor returns a copy of the permissions granted to u.
func PermissionsFor(u *User) []Permission {
	if u == nil || !u.IsActive {
		return nil
	}
	perms := userPermissions
	if u.IsSuperuser {
		perms = superuserPermissions
	}
	result := make([]Permission, len(perms))
	copy(result, perms)
	return result
}
