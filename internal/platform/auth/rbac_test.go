package auth

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

func TestAuthorize(t *testing.T) {
	tests := []struct {
		role    Role
		allowed []Role
		ok      bool
	}{
		{RoleDoctorOPD, Doctors, true},
		{RoleDoctorDaycare, Doctors, true},
		{RoleAdmin, Doctors, true},
		{RoleNurse, Doctors, false},
		{RolePatient, Doctors, false},
		{RoleNurse, MedicalStaff, true},
		{RolePatient, MedicalStaff, false},
		{RoleAdmin, Nurses, false},
		{RolePatient, Patients, true},
		{RoleAdmin, Patients, false},
		{"", Everyone, false},
	}

	for _, tt := range tests {
		err := Authorize(tt.role, tt.allowed)
		if tt.ok && err != nil {
			t.Errorf("Authorize(%q) unexpected error %v", tt.role, err)
		}
		if !tt.ok && !errors.Is(err, ErrForbidden) {
			t.Errorf("Authorize(%q) expected ErrForbidden, got %v", tt.role, err)
		}
	}
}

func TestValidRole(t *testing.T) {
	if !ValidRole(RoleNurse) {
		t.Error("expected nurse to be valid")
	}
	if ValidRole("superuser") {
		t.Error("expected unknown role to be invalid")
	}
}

func runRole(role Role, allowed ...Role) error {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req = req.WithContext(WithUser(context.Background(), uuid.New(), role))
	c := e.NewContext(req, httptest.NewRecorder())

	return RequireRole(allowed...)(func(c echo.Context) error {
		return c.NoContent(http.StatusOK)
	})(c)
}

func TestRequireRole_Allowed(t *testing.T) {
	if err := runRole(RoleNurse, MedicalStaff...); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestRequireRole_Denied(t *testing.T) {
	err := runRole(RolePatient, Doctors...)
	httpErr, ok := err.(*echo.HTTPError)
	if !ok || httpErr.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %v", err)
	}
}

func TestRequireRole_NoAdminBypass(t *testing.T) {
	err := runRole(RoleAdmin, Nurses...)
	httpErr, ok := err.(*echo.HTTPError)
	if !ok || httpErr.Code != http.StatusForbidden {
		t.Fatalf("expected admin to be refused on a nurse-only route, got %v", err)
	}
}
