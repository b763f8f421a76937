// Package policy is the single source of truth for role capabilities and
// entity finality. Handlers, middleware, and the database row policies must
// all agree with this table; it is fixed in code so the three cannot drift
// independently of a deploy.
package policy

import "errors"

// Role enumerates the account roles. Stored values keep the localized labels
// used across the installation.
type Role string

const (
	// RoleAdministrador has every capability including the admin panel.
	RoleAdministrador Role = "Administrador"
	// RolePostventa covers day-to-day operation: create and edit, no deletes.
	RolePostventa Role = "Postventa"
	// RoleConsulta is read-only.
	RoleConsulta Role = "Consulta"
)

// Capability names a permission checked before allowing an action.
type Capability string

const (
	CapCreateCase Capability = "canCreateCase"
	CapEditCase   Capability = "canEditCase"
	CapDeleteCase Capability = "canDeleteCase"

	CapCreateTest Capability = "canCreateTest"
	CapEditTest   Capability = "canEditTest"
	CapDeleteTest Capability = "canDeleteTest"

	CapCreateSolution Capability = "canCreateSolution"
	CapEditSolution   Capability = "canEditSolution"
	CapDeleteSolution Capability = "canDeleteSolution"

	CapManageResources  Capability = "canManageResources"
	CapManageConfig     Capability = "canManageConfig"
	CapAccessAdminPanel Capability = "canAccessAdminPanel"
	CapViewAudit        Capability = "canViewAudit"
	CapManageUsers      Capability = "canManageUsers"
)

// ErrUnknownCapability reports a capability name outside the closed set. This
// is a programmer error: callers use the constants above, so hitting it means
// a misspelled literal somewhere.
var ErrUnknownCapability = errors.New("policy: unknown capability")

var capabilities = []Capability{
	CapCreateCase, CapEditCase, CapDeleteCase,
	CapCreateTest, CapEditTest, CapDeleteTest,
	CapCreateSolution, CapEditSolution, CapDeleteSolution,
	CapManageResources, CapManageConfig, CapAccessAdminPanel,
	CapViewAudit, CapManageUsers,
}

// postventaGrants lists the subset of capabilities held by Postventa.
// Administrador holds everything; Consulta holds nothing.
var postventaGrants = map[Capability]struct{}{
	CapCreateCase:      {},
	CapEditCase:        {},
	CapCreateTest:      {},
	CapEditTest:        {},
	CapCreateSolution:  {},
	CapEditSolution:    {},
	CapManageResources: {},
}

var knownCapabilities = func() map[Capability]struct{} {
	m := make(map[Capability]struct{}, len(capabilities))
	for _, c := range capabilities {
		m[c] = struct{}{}
	}
	return m
}()

// Capabilities returns the closed capability set.
func Capabilities() []Capability {
	out := make([]Capability, len(capabilities))
	copy(out, capabilities)
	return out
}

// Roles returns the enumerated roles.
func Roles() []Role {
	return []Role{RoleAdministrador, RolePostventa, RoleConsulta}
}

// Lookup resolves a (role, capability) pair. Every pair in the fixed domain
// yields a definite answer; a capability outside the closed set returns
// ErrUnknownCapability.
func Lookup(role Role, capability Capability) (bool, error) {
	if _, ok := knownCapabilities[capability]; !ok {
		return false, ErrUnknownCapability
	}
	switch role {
	case RoleAdministrador:
		return true, nil
	case RolePostventa:
		_, ok := postventaGrants[capability]
		return ok, nil
	case RoleConsulta:
		return false, nil
	default:
		// Unknown role denies everything.
		return false, nil
	}
}

// HasPermission is the fail-closed form of Lookup: unknown capabilities and
// unknown roles both resolve to false.
func HasPermission(role Role, capability Capability) bool {
	granted, err := Lookup(role, capability)
	if err != nil {
		return false
	}
	return granted
}

// CanAccessAdminPanel reports whether the role may open the admin panel.
func CanAccessAdminPanel(role Role) bool {
	return HasPermission(role, CapAccessAdminPanel)
}
