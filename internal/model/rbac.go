package model

import (
	"database/sql/driver"
	"encoding/json"
)

// Resources guarded by per-lab permissions
const (
	ResourceUsers    = "users"
	ResourceDoctors  = "doctors"
	ResourceTests    = "tests"
	ResourcePatients = "patients"
	ResourceBills    = "bills"
	ResourceResults  = "results"
	ResourceLab      = "lab"
)

// Actions on a resource
const (
	ActionView   = "view"
	ActionCreate = "create"
	ActionEdit   = "edit"
	ActionDelete = "delete"
)

// User roles
const (
	RoleAdmin        = "admin"
	RoleManager      = "manager"
	RoleTechnician   = "technician"
	RoleReceptionist = "receptionist"
)

var (
	allResources = []string{ResourceUsers, ResourceDoctors, ResourceTests, ResourcePatients, ResourceBills, ResourceResults, ResourceLab}
	allActions   = []string{ActionView, ActionCreate, ActionEdit, ActionDelete}
)

// Permissions maps resource -> action -> granted
type Permissions map[string]map[string]bool

// Allows reports whether action on resource is granted.
func (p Permissions) Allows(resource, action string) bool {
	if p == nil {
		return false
	}
	return p[resource][action]
}

// Clone returns a deep copy.
func (p Permissions) Clone() Permissions {
	if p == nil {
		return nil
	}
	out := make(Permissions, len(p))
	for res, actions := range p {
		inner := make(map[string]bool, len(actions))
		for a, ok := range actions {
			inner[a] = ok
		}
		out[res] = inner
	}
	return out
}

func (p Permissions) Value() (driver.Value, error) {
	if p == nil {
		return []byte("{}"), nil
	}
	return json.Marshal(p)
}

func (p *Permissions) Scan(src interface{}) error {
	return scanJSON(src, p)
}

// FullPermissions grants every action on every resource.
func FullPermissions() Permissions {
	p := make(Permissions, len(allResources))
	for _, res := range allResources {
		p[res] = make(map[string]bool, len(allActions))
		for _, a := range allActions {
			p[res][a] = true
		}
	}
	return p
}

// DefaultPermissions returns the starting grants for a role.
func DefaultPermissions(role string) Permissions {
	switch role {
	case RoleAdmin, RoleManager:
		return FullPermissions()
	case RoleTechnician:
		return Permissions{
			ResourceTests:    {ActionView: true},
			ResourcePatients: {ActionView: true},
			ResourceResults:  {ActionView: true, ActionCreate: true, ActionEdit: true, ActionDelete: true},
			ResourceDoctors:  {ActionView: true},
		}
	case RoleReceptionist:
		return Permissions{
			ResourceTests:    {ActionView: true},
			ResourceDoctors:  {ActionView: true},
			ResourcePatients: {ActionView: true, ActionCreate: true, ActionEdit: true},
			ResourceBills:    {ActionView: true, ActionCreate: true, ActionEdit: true},
			ResourceResults:  {ActionView: true},
		}
	default:
		return Permissions{}
	}
}
