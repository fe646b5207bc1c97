package domain

import "strings"

// Role is an organisational role. The set is closed; anything else parses
// to RoleUnknown.
type Role string

const (
	RoleUnknown  Role = ""
	RoleStaff    Role = "Staff"
	RoleManager  Role = "Manager"
	RoleDirector Role = "Director"
)

// ParseRole maps a stored or claimed role name to a Role, ignoring case.
func ParseRole(s string) Role {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "staff":
		return RoleStaff
	case "manager":
		return RoleManager
	case "director":
		return RoleDirector
	default:
		return RoleUnknown
	}
}

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	return r == RoleStaff || r == RoleManager || r == RoleDirector
}

func (r Role) String() string {
	if r == RoleUnknown {
		return "Unknown"
	}
	return string(r)
}

// deptRule says whether a pairing needs both parties in the same department.
type deptRule int

const (
	deny deptRule = iota
	sameDepartment
	anyDepartment
)

// converseMatrix[actor][target]. Missing entries deny.
var converseMatrix = map[Role]map[Role]deptRule{
	RoleStaff: {
		RoleStaff:   sameDepartment,
		RoleManager: sameDepartment,
	},
	RoleManager: {
		RoleStaff:    sameDepartment,
		RoleManager:  anyDepartment,
		RoleDirector: anyDepartment,
	},
	RoleDirector: {
		RoleUnknown:  anyDepartment,
		RoleStaff:    anyDepartment,
		RoleManager:  anyDepartment,
		RoleDirector: anyDepartment,
	},
}

// CanConverseWith reports whether an actor may open a conversation with, or
// address a message to, the target.
func CanConverseWith(actorRole Role, actorDept *int64, targetRole Role, targetDept *int64) bool {
	switch converseMatrix[actorRole][targetRole] {
	case anyDepartment:
		return true
	case sameDepartment:
		return actorDept != nil && targetDept != nil && *actorDept == *targetDept
	default:
		return false
	}
}
