package auth

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
)

type Role string

const (
	RolePatient       Role = "patient"
	RoleDoctorOPD     Role = "doctor_opd"
	RoleDoctorDaycare Role = "doctor_daycare"
	RoleNurse         Role = "nurse"
	RoleAdmin         Role = "admin"
)

// Role sets used by route groups. Admin is listed explicitly wherever it is
// allowed; there is no implicit bypass.
var (
	Doctors      = []Role{RoleDoctorOPD, RoleDoctorDaycare, RoleAdmin}
	Nurses       = []Role{RoleNurse}
	MedicalStaff = []Role{RoleDoctorOPD, RoleDoctorDaycare, RoleNurse, RoleAdmin}
	Patients     = []Role{RolePatient}
	Admins       = []Role{RoleAdmin}
	Everyone     = []Role{RolePatient, RoleDoctorOPD, RoleDoctorDaycare, RoleNurse, RoleAdmin}
)

var ErrForbidden = errors.New("insufficient permissions")

// ValidRole reports whether r is one of the known roles.
func ValidRole(r Role) bool {
	for _, known := range Everyone {
		if r == known {
			return true
		}
	}
	return false
}

// IsDoctor reports whether r is either doctor role.
func IsDoctor(r Role) bool {
	return r == RoleDoctorOPD || r == RoleDoctorDaycare
}

// Authorize returns ErrForbidden unless role is a member of allowed.
func Authorize(role Role, allowed []Role) error {
	for _, a := range allowed {
		if role == a {
			return nil
		}
	}
	return ErrForbidden
}

// RequireRole returns middleware that admits only callers whose role is in allowed.
func RequireRole(allowed ...Role) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if err := Authorize(RoleFromContext(c.Request().Context()), allowed); err != nil {
				return echo.NewHTTPError(http.StatusForbidden, "Insufficient permissions")
			}
			return next(c)
		}
	}
}
