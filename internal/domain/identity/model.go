package identity

import (
	"time"

	"github.com/google/uuid"

	"github.com/moinmakda/ChemoCareAI/internal/platform/auth"
)

// User is an account that can authenticate against the API.
type User struct {
	ID           uuid.UUID  `json:"id"`
	Email        string     `json:"email"`
	Phone        *string    `json:"phone"`
	FullName     string     `json:"full_name"`
	PasswordHash string     `json:"-"`
	Role         auth.Role  `json:"role"`
	IsActive     bool       `json:"is_active"`
	IsVerified   bool       `json:"is_verified"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
	LastLogin    *time.Time `json:"last_login"`
}

type Doctor struct {
	ID                 uuid.UUID `json:"id"`
	UserID             uuid.UUID `json:"user_id"`
	FirstName          string    `json:"first_name"`
	LastName           string    `json:"last_name"`
	Specialization     string    `json:"specialization"`
	Qualification      *string   `json:"qualification"`
	RegistrationNumber string    `json:"registration_number"`
	ExperienceYears    *int      `json:"experience_years"`
	IsOPDDoctor        bool      `json:"is_opd_doctor"`
	IsDaycareDoctor    bool      `json:"is_daycare_doctor"`
	PhotoURL           *string   `json:"photo_url"`
	SignatureURL       *string   `json:"signature_url"`
	CreatedAt          time.Time `json:"created_at"`
	UpdatedAt          time.Time `json:"updated_at"`
}

// FullName returns the doctor's display name.
func (d *Doctor) FullName() string {
	return d.FirstName + " " + d.LastName
}

type Nurse struct {
	ID                 uuid.UUID  `json:"id"`
	UserID             uuid.UUID  `json:"user_id"`
	FirstName          string     `json:"first_name"`
	LastName           string     `json:"last_name"`
	Qualification      *string    `json:"qualification"`
	RegistrationNumber string     `json:"registration_number"`
	ExperienceYears    *int       `json:"experience_years"`
	ChemoCertified     bool       `json:"chemo_certified"`
	CertificationDate  *time.Time `json:"certification_date"`
	PhotoURL           *string    `json:"photo_url"`
	CreatedAt          time.Time  `json:"created_at"`
	UpdatedAt          time.Time  `json:"updated_at"`
}

func (n *Nurse) FullName() string {
	return n.FirstName + " " + n.LastName
}

// -- Requests --

type RegisterRequest struct {
	Email    string    `json:"email" validate:"required,email"`
	Phone    *string   `json:"phone" validate:"omitempty,max=20"`
	FullName string    `json:"full_name" validate:"omitempty,max=255"`
	Role     auth.Role `json:"role" validate:"required"`
	Password string    `json:"password" validate:"required,min=8"`
}

type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type RefreshRequest struct {
	RefreshToken string `json:"refresh_token" validate:"required"`
}

// LogoutRequest optionally names the refresh token to revoke.
type LogoutRequest struct {
	RefreshToken string `json:"refresh_token"`
}

type ForgotPasswordRequest struct {
	Email string `json:"email" validate:"required,email"`
}

type ResetPasswordRequest struct {
	Token       string `json:"token" validate:"required"`
	NewPassword string `json:"new_password" validate:"required,min=8"`
}

type ChangePasswordRequest struct {
	CurrentPassword string `json:"current_password" validate:"required"`
	NewPassword     string `json:"new_password" validate:"required,min=8"`
}

// CreateDoctorRequest attaches a doctor profile to an existing doctor account.
type CreateDoctorRequest struct {
	UserID             uuid.UUID `json:"user_id" validate:"required"`
	FirstName          string    `json:"first_name" validate:"required,max=100"`
	LastName           string    `json:"last_name" validate:"required,max=100"`
	Specialization     string    `json:"specialization" validate:"omitempty,max=100"`
	Qualification      *string   `json:"qualification"`
	RegistrationNumber string    `json:"registration_number" validate:"required,max=50"`
	ExperienceYears    *int      `json:"experience_years" validate:"omitempty,min=0"`
	IsOPDDoctor        *bool     `json:"is_opd_doctor"`
	IsDaycareDoctor    *bool     `json:"is_daycare_doctor"`
	PhotoURL           *string   `json:"photo_url"`
	SignatureURL       *string   `json:"signature_url"`
}

type CreateNurseRequest struct {
	UserID             uuid.UUID  `json:"user_id" validate:"required"`
	FirstName          string     `json:"first_name" validate:"required,max=100"`
	LastName           string     `json:"last_name" validate:"required,max=100"`
	Qualification      *string    `json:"qualification"`
	RegistrationNumber string     `json:"registration_number" validate:"required,max=50"`
	ExperienceYears    *int       `json:"experience_years" validate:"omitempty,min=0"`
	ChemoCertified     bool       `json:"chemo_certified"`
	CertificationDate  *time.Time `json:"certification_date"`
	PhotoURL           *string    `json:"photo_url"`
}

type MessageResponse struct {
	Message string `json:"message"`
}
