package domain

import "testing"

func TestRoleCatalogReturnsCopy(t *testing.T) {
	catalog := RoleCatalog()
	if len(catalog) != 2 {
		t.Fatalf("expected 2 roles, got %d", len(catalog))
	}

	delete(catalog, RoleAdmin)
	if !ValidRole(RoleAdmin) {
		t.Fatalf("mutating the returned catalog must not affect the source")
	}
}

func TestRolePermissions(t *testing.T) {
	if !CanManageUsers(RoleAdmin) {
		t.Fatalf("admin should manage users")
	}
	if CanManageUsers(RoleUser) {
		t.Fatalf("user should not manage users")
	}
	if !CanDelete(RoleAdmin) || CanDelete(RoleUser) {
		t.Fatalf("only admin should hold the delete permission")
	}
	if !CanAccessFinance(RoleUser) {
		t.Fatalf("every catalog role should read finance reports")
	}
}

func TestValidRole(t *testing.T) {
	if !ValidRole(RoleAdmin) || !ValidRole(RoleUser) {
		t.Fatalf("catalog roles should validate")
	}
	if ValidRole("superuser") || ValidRole("") {
		t.Fatalf("unknown roles should not validate")
	}
}
