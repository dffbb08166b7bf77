package utils

import "strings"

// Permission strings checked by route middleware.
const (
	PermCaseCreate   = "case:create"
	PermCaseRead     = "case:read"
	PermCaseAssign   = "case:assign"
	PermCaseSubmit   = "case:submit"
	PermCaseDecide   = "case:decide"
	PermCaseControl  = "case:control"
	PermReportExport = "report:export"
	PermVendorManage = "vendor:manage"
	PermOfficerRead  = "officer:read"
	PermOfficerWrite = "officer:write"
	PermUserManage   = "user:manage"
)

// rolePermissions maps a JWT role onto permission patterns.
var rolePermissions = map[string][]string{
	"admin":         {"*:*"},
	"vendor":        {"case:read", "case:assign", "officer:*"},
	"field_officer": {"case:read", "case:submit"},
}

// PermissionsForRole returns the permission patterns granted to role.
func PermissionsForRole(role string) []string {
	return rolePermissions[role]
}

// RoleHasPermission checks every pattern of the role against required.
func RoleHasPermission(role, required string) bool {
	for _, p := range rolePermissions[role] {
		if MatchesPermission(p, required) {
			return true
		}
	}
	return false
}

// MatchesPermission checks if a user permission matches the required permission.
// Patterns are "resource:action"; either side may be "*", and "*" or "*:*"
// alone grants everything.
func MatchesPermission(userPerm, requiredPerm string) bool {
	if userPerm == requiredPerm {
		return true
	}
	if userPerm == "*" || userPerm == "*:*" {
		return requiredPerm != ""
	}

	userParts := strings.Split(userPerm, ":")
	reqParts := strings.Split(requiredPerm, ":")
	if len(userParts) != 2 || len(reqParts) != 2 {
		return false
	}

	resourceMatch := userParts[0] == "*" || userParts[0] == reqParts[0]
	actionMatch := userParts[1] == "*" || userParts[1] == reqParts[1]
	return resourceMatch && actionMatch
}
