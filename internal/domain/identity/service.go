package identity

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/moinmakda/ChemoCareAI/internal/platform/auth"
	"github.com/moinmakda/ChemoCareAI/internal/platform/notification"
	"github.com/moinmakda/ChemoCareAI/pkg/apperr"
)

// Options carries the settings the auth flows need beyond their collaborators.
type Options struct {
	AppName     string
	FrontendURL string
	ResetTTL    time.Duration
}

type Service struct {
	users   UserRepository
	doctors DoctorRepository
	nurses  NurseRepository
	issuer  *auth.Issuer
	revoked auth.RevocationStore
	mailer  *notification.Mailer
	logger  zerolog.Logger
	opts    Options
	now     func() time.Time
}

func NewService(users UserRepository, doctors DoctorRepository, nurses NurseRepository,
	issuer *auth.Issuer, revoked auth.RevocationStore, mailer *notification.Mailer,
	logger zerolog.Logger, opts Options) *Service {
	return &Service{
		users:   users,
		doctors: doctors,
		nurses:  nurses,
		issuer:  issuer,
		revoked: revoked,
		mailer:  mailer,
		logger:  logger.With().Str("component", "identity").Logger(),
		opts:    opts,
		now:     time.Now,
	}
}

var (
	errBadCredentials = apperr.New(apperr.ErrUnauthorized, "Invalid email or password")
	errDisabled       = apperr.New(apperr.ErrForbidden, "User account is disabled")
	errBadRefresh     = apperr.New(apperr.ErrUnauthorized, "Invalid refresh token")
	errBadReset       = apperr.New(apperr.ErrValidation, "Invalid or expired reset token")
)

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// -- Auth --

// Register creates a self-service account. Admin accounts are only created
// through the CLI.
func (s *Service) Register(ctx context.Context, req *RegisterRequest) (*User, error) {
	if !auth.ValidRole(req.Role) {
		return nil, apperr.New(apperr.ErrValidation, "Invalid role %q", req.Role)
	}
	if req.Role == auth.RoleAdmin {
		return nil, apperr.New(apperr.ErrForbidden, "Admin accounts cannot be self-registered")
	}
	return s.createUser(ctx, req, false)
}

// CreateAdmin provisions a verified admin account.
func (s *Service) CreateAdmin(ctx context.Context, email, fullName, password string) (*User, error) {
	return s.createUser(ctx, &RegisterRequest{
		Email:    email,
		FullName: fullName,
		Role:     auth.RoleAdmin,
		Password: password,
	}, true)
}

func (s *Service) createUser(ctx context.Context, req *RegisterRequest, verified bool) (*User, error) {
	email := normalizeEmail(req.Email)
	if email == "" {
		return nil, apperr.New(apperr.ErrValidation, "email is required")
	}

	exists, err := s.users.ExistsByEmail(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("check email: %w", err)
	}
	if exists {
		return nil, apperr.New(apperr.ErrValidation, "Email already registered")
	}

	var phone *string
	if req.Phone != nil && strings.TrimSpace(*req.Phone) != "" {
		p := strings.TrimSpace(*req.Phone)
		exists, err := s.users.ExistsByPhone(ctx, p)
		if err != nil {
			return nil, fmt.Errorf("check phone: %w", err)
		}
		if exists {
			return nil, apperr.New(apperr.ErrValidation, "Phone number already registered")
		}
		phone = &p
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		if errors.Is(err, auth.ErrPasswordTooShort) {
			return nil, apperr.New(apperr.ErrValidation, "password must be at least %d characters", auth.MinPasswordLength)
		}
		return nil, err
	}

	u := &User{
		Email:        email,
		Phone:        phone,
		FullName:     strings.TrimSpace(req.FullName),
		PasswordHash: hash,
		Role:         req.Role,
		IsActive:     true,
		IsVerified:   verified,
	}
	if err := s.users.Create(ctx, u); err != nil {
		return nil, err
	}
	s.logger.Info().Str("user_id", u.ID.String()).Str("role", string(u.Role)).Msg("user registered")
	return u, nil
}

func (s *Service) Login(ctx context.Context, email, password string) (*auth.TokenPair, error) {
	u, err := s.users.GetByEmail(ctx, normalizeEmail(email))
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			return nil, errBadCredentials
		}
		return nil, err
	}
	if !auth.CheckPassword(u.PasswordHash, password) {
		return nil, errBadCredentials
	}
	if !u.IsActive {
		return nil, errDisabled
	}

	if err := s.users.TouchLastLogin(ctx, u.ID, s.now().UTC()); err != nil {
		return nil, fmt.Errorf("update last login: %w", err)
	}
	pair, _, err := s.issuer.IssuePair(u.ID, u.Role)
	if err != nil {
		return nil, err
	}
	return pair, nil
}

// Refresh exchanges a refresh token for a new pair. Revoking the old token is
// the redeem step, so of concurrent calls with one token only the first wins.
func (s *Service) Refresh(ctx context.Context, refreshToken string) (*auth.TokenPair, error) {
	claims, err := s.issuer.Parse(refreshToken, auth.TokenRefresh)
	if err != nil {
		return nil, errBadRefresh
	}
	claimed, err := s.revoked.Revoke(ctx, claims.ID, claims.Subject, claims.ExpiresAtTime())
	if err != nil {
		return nil, fmt.Errorf("revoke refresh token: %w", err)
	}
	if !claimed {
		return nil, errBadRefresh
	}

	u, err := s.users.GetByID(ctx, claims.UserID())
	if err != nil && !errors.Is(err, apperr.ErrNotFound) {
		return nil, err
	}
	if u == nil || !u.IsActive {
		return nil, apperr.New(apperr.ErrUnauthorized, "User not found or inactive")
	}

	pair, _, err := s.issuer.IssuePair(u.ID, u.Role)
	if err != nil {
		return nil, err
	}
	return pair, nil
}

// Logout revokes refreshToken when one is supplied. Access tokens simply
// expire.
func (s *Service) Logout(ctx context.Context, refreshToken string) error {
	if refreshToken == "" {
		return nil
	}
	claims, err := s.issuer.Parse(refreshToken, auth.TokenRefresh)
	if err != nil {
		return errBadRefresh
	}
	_, err = s.revoked.Revoke(ctx, claims.ID, claims.Subject, claims.ExpiresAtTime())
	return err
}

// Me returns the caller's account. Missing accounts are 404, disabled ones 403.
func (s *Service) Me(ctx context.Context, userID uuid.UUID) (*User, error) {
	u, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if !u.IsActive {
		return nil, apperr.New(apperr.ErrForbidden, "Inactive user")
	}
	return u, nil
}

// ForgotPassword mails a reset link when the address belongs to an active
// account. It never reports whether the address exists.
func (s *Service) ForgotPassword(ctx context.Context, email string) error {
	u, err := s.users.GetByEmail(ctx, normalizeEmail(email))
	if err != nil {
		if !errors.Is(err, apperr.ErrNotFound) {
			s.logger.Error().Err(err).Msg("forgot password lookup failed")
		}
		return nil
	}
	if !u.IsActive {
		return nil
	}

	token, _, err := s.issuer.Issue(u.ID, u.Role, auth.TokenPasswordReset)
	if err != nil {
		return err
	}
	link := strings.TrimRight(s.opts.FrontendURL, "/") + "/reset-password?token=" + url.QueryEscape(token)
	data := map[string]string{
		"app_name":   s.opts.AppName,
		"minutes":    strconv.Itoa(int(s.opts.ResetTTL.Minutes())),
		"reset_link": link,
	}
	if err := s.mailer.Send(ctx, notification.TplPasswordReset, u.Email, data); err != nil {
		s.logger.Error().Err(err).Str("user_id", u.ID.String()).Msg("send password reset email")
	}
	return nil
}

// ResetPassword sets a new password using a reset token. The token is
// redeemed before the password changes and cannot be used again.
func (s *Service) ResetPassword(ctx context.Context, token, newPassword string) error {
	claims, err := s.issuer.Parse(token, auth.TokenPasswordReset)
	if err != nil {
		return errBadReset
	}
	hash, err := hashPassword(newPassword)
	if err != nil {
		return err
	}
	claimed, err := s.revoked.Revoke(ctx, claims.ID, claims.Subject, claims.ExpiresAtTime())
	if err != nil {
		return fmt.Errorf("revoke reset token: %w", err)
	}
	if !claimed {
		return errBadReset
	}

	u, err := s.users.GetByID(ctx, claims.UserID())
	if err != nil {
		return err
	}
	return s.users.UpdatePassword(ctx, u.ID, hash)
}

func (s *Service) ChangePassword(ctx context.Context, userID uuid.UUID, current, newPassword string) error {
	u, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return err
	}
	if !auth.CheckPassword(u.PasswordHash, current) {
		return apperr.New(apperr.ErrValidation, "Current password is incorrect")
	}
	return s.setPassword(ctx, u.ID, newPassword)
}

func (s *Service) setPassword(ctx context.Context, userID uuid.UUID, password string) error {
	hash, err := hashPassword(password)
	if err != nil {
		return err
	}
	return s.users.UpdatePassword(ctx, userID, hash)
}

func hashPassword(password string) (string, error) {
	hash, err := auth.HashPassword(password)
	if errors.Is(err, auth.ErrPasswordTooShort) {
		return "", apperr.New(apperr.ErrValidation, "password must be at least %d characters", auth.MinPasswordLength)
	}
	return hash, err
}

// -- Staff --

func (s *Service) CreateDoctor(ctx context.Context, req *CreateDoctorRequest) (*Doctor, error) {
	u, err := s.users.GetByID(ctx, req.UserID)
	if err != nil {
		return nil, err
	}
	if !auth.IsDoctor(u.Role) {
		return nil, apperr.New(apperr.ErrValidation, "User must have a doctor role")
	}

	d := &Doctor{
		UserID:             u.ID,
		FirstName:          req.FirstName,
		LastName:           req.LastName,
		Specialization:     req.Specialization,
		Qualification:      req.Qualification,
		RegistrationNumber: req.RegistrationNumber,
		ExperienceYears:    req.ExperienceYears,
		IsOPDDoctor:        u.Role == auth.RoleDoctorOPD,
		IsDaycareDoctor:    u.Role == auth.RoleDoctorDaycare,
		PhotoURL:           req.PhotoURL,
		SignatureURL:       req.SignatureURL,
	}
	if d.Specialization == "" {
		d.Specialization = "Medical Oncology"
	}
	if req.IsOPDDoctor != nil {
		d.IsOPDDoctor = *req.IsOPDDoctor
	}
	if req.IsDaycareDoctor != nil {
		d.IsDaycareDoctor = *req.IsDaycareDoctor
	}
	if err := s.doctors.Create(ctx, d); err != nil {
		return nil, err
	}
	return d, nil
}

func (s *Service) GetDoctor(ctx context.Context, id uuid.UUID) (*Doctor, error) {
	return s.doctors.GetByID(ctx, id)
}

func (s *Service) ListDoctors(ctx context.Context, limit, offset int) ([]*Doctor, int, error) {
	return s.doctors.List(ctx, limit, offset)
}

func (s *Service) CreateNurse(ctx context.Context, req *CreateNurseRequest) (*Nurse, error) {
	u, err := s.users.GetByID(ctx, req.UserID)
	if err != nil {
		return nil, err
	}
	if u.Role != auth.RoleNurse {
		return nil, apperr.New(apperr.ErrValidation, "User must have the nurse role")
	}

	n := &Nurse{
		UserID:             u.ID,
		FirstName:          req.FirstName,
		LastName:           req.LastName,
		Qualification:      req.Qualification,
		RegistrationNumber: req.RegistrationNumber,
		ExperienceYears:    req.ExperienceYears,
		ChemoCertified:     req.ChemoCertified,
		CertificationDate:  req.CertificationDate,
		PhotoURL:           req.PhotoURL,
	}
	if err := s.nurses.Create(ctx, n); err != nil {
		return nil, err
	}
	return n, nil
}

func (s *Service) GetNurse(ctx context.Context, id uuid.UUID) (*Nurse, error) {
	return s.nurses.GetByID(ctx, id)
}

func (s *Service) ListNurses(ctx context.Context, limit, offset int) ([]*Nurse, int, error) {
	return s.nurses.List(ctx, limit, offset)
}

// DoctorIDForUser returns the doctor profile id linked to userID, or nil when
// the account has no doctor profile (for example an admin).
func (s *Service) DoctorIDForUser(ctx context.Context, userID uuid.UUID) (*uuid.UUID, error) {
	d, err := s.doctors.GetByUserID(ctx, userID)
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &d.ID, nil
}

// DaycareDoctorUserIDs returns the accounts to ask for daycare approval.
func (s *Service) DaycareDoctorUserIDs(ctx context.Context) ([]uuid.UUID, error) {
	return s.doctors.DaycareUserIDs(ctx)
}

// NurseIDForUser is DoctorIDForUser for nurse profiles.
func (s *Service) NurseIDForUser(ctx context.Context, userID uuid.UUID) (*uuid.UUID, error) {
	n, err := s.nurses.GetByUserID(ctx, userID)
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &n.ID, nil
}
