package utils

import "testing"

func TestMatchesPermission(t *testing.T) {
	tests := []struct {
		name         string
		userPerm     string
		requiredPerm string
		expected     bool
	}{
		{"exact match", "case:read", "case:read", true},
		{"different action", "case:read", "case:assign", false},
		{"different resource", "case:read", "officer:read", false},

		{"full wildcard", "*:*", "case:decide", true},
		{"bare wildcard", "*", "report:export", true},
		{"wildcard needs a target", "*:*", "", false},

		{"resource wildcard", "officer:*", "officer:write", true},
		{"resource wildcard other resource", "officer:*", "case:write", false},
		{"action wildcard", "*:read", "case:read", true},
		{"action wildcard other action", "*:read", "case:submit", false},

		{"malformed required", "case:read", "case", false},
		{"three part pattern is not ours", "case:read:all", "case:read", false},
		{"both empty", "", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := MatchesPermission(tt.userPerm, tt.requiredPerm)
			if result != tt.expected {
				t.Errorf("MatchesPermission(%q, %q) = %v, expected %v",
					tt.userPerm, tt.requiredPerm, result, tt.expected)
			}
		})
	}
}

func TestRoleHasPermission(t *testing.T) {
	tests := []struct {
		role     string
		required string
		expected bool
	}{
		{"admin", PermCaseDecide, true},
		{"admin", PermVendorManage, true},
		{"vendor", PermCaseAssign, true},
		{"vendor", PermOfficerWrite, true},
		{"vendor", PermCaseDecide, false},
		{"vendor", PermCaseSubmit, false},
		{"field_officer", PermCaseSubmit, true},
		{"field_officer", PermCaseAssign, false},
		{"candidate", PermCaseRead, false},
		{"", PermCaseRead, false},
	}

	for _, tt := range tests {
		t.Run(tt.role+"/"+tt.required, func(t *testing.T) {
			if got := RoleHasPermission(tt.role, tt.required); got != tt.expected {
				t.Errorf("RoleHasPermission(%q, %q) = %v, expected %v", tt.role, tt.required, got, tt.expected)
			}
		})
	}
}

func BenchmarkMatchesPermission_WildcardMatch(b *testing.B) {
	for i := 0; i < b.N; i++ {
		MatchesPermission("*:*", "case:read")
	}
}

func BenchmarkMatchesPermission_NoMatch(b *testing.B) {
	for i := 0; i < b.N; i++ {
		MatchesPermission("case:read", "vendor:manage")
	}
}
