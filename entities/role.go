// Package entities holds the domain types the portal receives from the
// hospital API and the session it keeps for each signed-in user.
package entities

import "strings"

// Role is the closed set of user roles the hospital API hands out.
type Role int

const (
	RoleUnknown Role = iota
	RoleAdmin
	RoleDoctor
	RolePatient
	RolePharmacy
)

// AllRoles lists every known role, RoleUnknown excluded.
func AllRoles() []Role {
	return []Role{RoleAdmin, RoleDoctor, RolePatient, RolePharmacy}
}

// ParseRole maps the wire representation to a Role. Anything unrecognised
// becomes RoleUnknown.
func ParseRole(s string) Role {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "admin":
		return RoleAdmin
	case "doctor":
		return RoleDoctor
	case "patient":
		return RolePatient
	case "pharmacy":
		return RolePharmacy
	default:
		return RoleUnknown
	}
}

func (r Role) String() string {
	switch r {
	case RoleAdmin:
		return "admin"
	case RoleDoctor:
		return "doctor"
	case RolePatient:
		return "patient"
	case RolePharmacy:
		return "pharmacy"
	default:
		return "unknown"
	}
}

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	return r >= RoleAdmin && r <= RolePharmacy
}

func (r Role) MarshalText() ([]byte, error) {
	return []byte(r.String()), nil
}

func (r *Role) UnmarshalText(text []byte) error {
	*r = ParseRole(string(text))
	return nil
}
