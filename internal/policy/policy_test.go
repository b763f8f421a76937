package policy

import "testing"

// The capability table is not hierarchical, so the test enumerates every
// (role, capability) pair instead of assuming Administrador ⊇ Postventa ⊇ Consulta.
func TestPermissionTableFullEnumeration(t *testing.T) {
	expected := map[Role]map[Capability]bool{
		RoleAdministrador: {
			CapCreateCase: true, CapEditCase: true, CapDeleteCase: true,
			CapCreateTest: true, CapEditTest: true, CapDeleteTest: true,
			CapCreateSolution: true, CapEditSolution: true, CapDeleteSolution: true,
			CapManageResources: true, CapManageConfig: true, CapAccessAdminPanel: true,
			CapViewAudit: true, CapManageUsers: true,
		},
		RolePostventa: {
			CapCreateCase: true, CapEditCase: true, CapDeleteCase: false,
			CapCreateTest: true, CapEditTest: true, CapDeleteTest: false,
			CapCreateSolution: true, CapEditSolution: true, CapDeleteSolution: false,
			CapManageResources: true, CapManageConfig: false, CapAccessAdminPanel: false,
			CapViewAudit: false, CapManageUsers: false,
		},
		RoleConsulta: {
			CapCreateCase: false, CapEditCase: false, CapDeleteCase: false,
			CapCreateTest: false, CapEditTest: false, CapDeleteTest: false,
			CapCreateSolution: false, CapEditSolution: false, CapDeleteSolution: false,
			CapManageResources: false, CapManageConfig: false, CapAccessAdminPanel: false,
			CapViewAudit: false, CapManageUsers: false,
		},
	}

	for _, role := range Roles() {
		want, ok := expected[role]
		if !ok {
			t.Fatalf("role %s missing from expectation table", role)
		}
		if len(want) != len(Capabilities()) {
			t.Fatalf("expectation table for %s covers %d capabilities, want %d", role, len(want), len(Capabilities()))
		}
		for _, capability := range Capabilities() {
			if got := HasPermission(role, capability); got != want[capability] {
				t.Errorf("HasPermission(%s, %s) = %v, want %v", role, capability, got, want[capability])
			}
		}
	}
}

func TestPermissionScenarios(t *testing.T) {
	if HasPermission(RoleConsulta, CapDeleteCase) {
		t.Fatal("Consulta must not delete cases")
	}
	if !HasPermission(RolePostventa, CapCreateCase) {
		t.Fatal("Postventa must create cases")
	}
	if !HasPermission(RoleAdministrador, CapAccessAdminPanel) {
		t.Fatal("Administrador must access the admin panel")
	}
	if !CanAccessAdminPanel(RoleAdministrador) || CanAccessAdminPanel(RolePostventa) || CanAccessAdminPanel(RoleConsulta) {
		t.Fatal("admin panel gate disagrees with the table")
	}
}

func TestUnknownCapabilityFailsClosed(t *testing.T) {
	if _, err := Lookup(RoleAdministrador, Capability("canDoAnything")); err != ErrUnknownCapability {
		t.Fatalf("expected ErrUnknownCapability, got %v", err)
	}
	if HasPermission(RoleAdministrador, Capability("canDoAnything")) {
		t.Fatal("unknown capability must resolve to false")
	}
}

func TestUnknownRoleDeniesEverything(t *testing.T) {
	for _, capability := range Capabilities() {
		if HasPermission(Role("Invitado"), capability) {
			t.Fatalf("unknown role granted %s", capability)
		}
	}
}
