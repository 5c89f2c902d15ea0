// Package dashboard routes a session to its role's dashboard and builds the
// view model of each dashboard from the hospital API.
package dashboard

import "github.com/giygas/hospital-portal/entities"

// View is one of the portal's dashboards.
type View int

const (
	ViewLanding View = iota
	ViewAdmin
	ViewDoctor
	ViewPatient
	ViewPharmacy
)

// Route maps a role to its dashboard. Unknown roles land on the landing
// view.
func Route(role entities.Role) View {
	switch role {
	case entities.RoleAdmin:
		return ViewAdmin
	case entities.RoleDoctor:
		return ViewDoctor
	case entities.RolePatient:
		return ViewPatient
	case entities.RolePharmacy:
		return ViewPharmacy
	case entities.RoleUnknown:
		return ViewLanding
	default:
		return ViewLanding
	}
}

// Path is the portal URL of the view.
func (v View) Path() string {
	switch v {
	case ViewAdmin:
		return "/admin"
	case ViewDoctor:
		return "/doctor"
	case ViewPatient:
		return "/patient"
	case ViewPharmacy:
		return "/pharmacy"
	default:
		return "/"
	}
}

func (v View) String() string {
	switch v {
	case ViewAdmin:
		return "admin"
	case ViewDoctor:
		return "doctor"
	case ViewPatient:
		return "patient"
	case ViewPharmacy:
		return "pharmacy"
	default:
		return "landing"
	}
}
