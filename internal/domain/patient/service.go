package patient

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/moinmakda/ChemoCareAI/internal/platform/auth"
	"github.com/moinmakda/ChemoCareAI/pkg/apperr"
	"github.com/moinmakda/ChemoCareAI/pkg/civil"
)

var (
	errAccessDenied   = apperr.New(apperr.ErrForbidden, "Access denied")
	errPatientsOnly   = apperr.New(apperr.ErrForbidden, "Only patients can use this endpoint")
	errNoOwnProfile   = apperr.New(apperr.ErrNotFound, "Patient profile not found")
	errProfileExists  = apperr.New(apperr.ErrValidation, "Patient profile already exists for this user")
	errUnknownGender  = apperr.New(apperr.ErrValidation, "gender must be one of male, female, other")
	errUnknownBlood   = apperr.New(apperr.ErrValidation, "blood_group must be one of A+, A-, B+, B-, AB+, AB-, O+, O-")
	errDOBRequired    = apperr.New(apperr.ErrValidation, "date_of_birth is required")
	errDOBInTheFuture = apperr.New(apperr.ErrValidation, "date_of_birth cannot be in the future")
)

type Service struct {
	repo  Repository
	today func() civil.Date
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo, today: civil.Today}
}

func (s *Service) validate(p *Patient) error {
	if !validGenders[p.Gender] {
		return errUnknownGender
	}
	if p.BloodGroup != nil && *p.BloodGroup != "" && !validBloodGroups[*p.BloodGroup] {
		return errUnknownBlood
	}
	if p.DateOfBirth.IsZero() {
		return errDOBRequired
	}
	if p.DateOfBirth.After(s.today()) {
		return errDOBInTheFuture
	}
	return nil
}

// Create registers a patient. A patient caller is linked to the new record
// and may own at most one; staff may link an existing account via user_id.
func (s *Service) Create(ctx context.Context, req *CreateRequest) (*Patient, error) {
	p := &Patient{
		UserID:                   req.UserID,
		FirstName:                req.FirstName,
		LastName:                 req.LastName,
		DateOfBirth:              req.DateOfBirth,
		Gender:                   req.Gender,
		BloodGroup:               req.BloodGroup,
		Address:                  req.Address,
		City:                     req.City,
		State:                    req.State,
		Pincode:                  req.Pincode,
		EmergencyContactName:     req.EmergencyContactName,
		EmergencyContactPhone:    req.EmergencyContactPhone,
		EmergencyContactRelation: req.EmergencyContactRelation,
		HeightCm:                 req.HeightCm,
		WeightKg:                 req.WeightKg,
		Allergies:                req.Allergies,
		Comorbidities:            req.Comorbidities,
		CurrentMedications:       req.CurrentMedications,
		CancerType:               req.CancerType,
		CancerStage:              req.CancerStage,
		DiagnosisDate:            req.DiagnosisDate,
		HistopathologyDetails:    req.HistopathologyDetails,
		InsuranceProvider:        req.InsuranceProvider,
		InsurancePolicyNumber:    req.InsurancePolicyNumber,
		InsuranceValidity:        req.InsuranceValidity,
	}
	if p.FirstName == "" || p.LastName == "" {
		return nil, apperr.New(apperr.ErrValidation, "first_name and last_name are required")
	}
	if err := s.validate(p); err != nil {
		return nil, err
	}

	if auth.RoleFromContext(ctx) == auth.RolePatient {
		uid := auth.UserIDFromContext(ctx)
		if _, err := s.repo.GetByUserID(ctx, uid); err == nil {
			return nil, errProfileExists
		} else if !errors.Is(err, apperr.ErrNotFound) {
			return nil, err
		}
		p.UserID = &uid
	}

	if err := s.repo.Create(ctx, p); err != nil {
		return nil, err
	}
	p.Derive(s.today())
	return p, nil
}

// Lookup fetches a patient without applying caller ownership rules.
func (s *Service) Lookup(ctx context.Context, id uuid.UUID) (*Patient, error) {
	p, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	p.Derive(s.today())
	return p, nil
}

// Get fetches a patient the caller may see. Patients only see their own record.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Patient, error) {
	p, err := s.Lookup(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := CheckOwner(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}

// CheckOwner returns Access denied when a patient caller is not linked to p.
func CheckOwner(ctx context.Context, p *Patient) error {
	if auth.RoleFromContext(ctx) != auth.RolePatient {
		return nil
	}
	if p.UserID == nil || *p.UserID != auth.UserIDFromContext(ctx) {
		return errAccessDenied
	}
	return nil
}

// Mine returns the caller's own patient record.
func (s *Service) Mine(ctx context.Context) (*Patient, error) {
	if auth.RoleFromContext(ctx) != auth.RolePatient {
		return nil, errPatientsOnly
	}
	p, err := s.repo.GetByUserID(ctx, auth.UserIDFromContext(ctx))
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			return nil, errNoOwnProfile
		}
		return nil, err
	}
	p.Derive(s.today())
	return p, nil
}

func (s *Service) Update(ctx context.Context, id uuid.UUID, req *UpdateRequest) (*Patient, error) {
	p, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	applyUpdate(p, req)
	if err := s.validate(p); err != nil {
		return nil, err
	}
	if err := s.repo.Update(ctx, p); err != nil {
		return nil, fmt.Errorf("update patient: %w", err)
	}
	p.Derive(s.today())
	return p, nil
}

func applyUpdate(p *Patient, req *UpdateRequest) {
	if req.FirstName != nil {
		p.FirstName = *req.FirstName
	}
	if req.LastName != nil {
		p.LastName = *req.LastName
	}
	if req.DateOfBirth != nil {
		p.DateOfBirth = *req.DateOfBirth
	}
	if req.Gender != nil {
		p.Gender = *req.Gender
	}
	if req.BloodGroup != nil {
		p.BloodGroup = req.BloodGroup
	}
	if req.Address != nil {
		p.Address = req.Address
	}
	if req.City != nil {
		p.City = req.City
	}
	if req.State != nil {
		p.State = req.State
	}
	if req.Pincode != nil {
		p.Pincode = req.Pincode
	}
	if req.EmergencyContactName != nil {
		p.EmergencyContactName = req.EmergencyContactName
	}
	if req.EmergencyContactPhone != nil {
		p.EmergencyContactPhone = req.EmergencyContactPhone
	}
	if req.EmergencyContactRelation != nil {
		p.EmergencyContactRelation = req.EmergencyContactRelation
	}
	if req.HeightCm != nil {
		p.HeightCm = req.HeightCm
	}
	if req.WeightKg != nil {
		p.WeightKg = req.WeightKg
	}
	if req.Allergies != nil {
		p.Allergies = *req.Allergies
	}
	if req.Comorbidities != nil {
		p.Comorbidities = *req.Comorbidities
	}
	if req.CurrentMedications != nil {
		p.CurrentMedications = *req.CurrentMedications
	}
	if req.CancerType != nil {
		p.CancerType = req.CancerType
	}
	if req.CancerStage != nil {
		p.CancerStage = req.CancerStage
	}
	if req.DiagnosisDate != nil {
		p.DiagnosisDate = req.DiagnosisDate
	}
	if req.HistopathologyDetails != nil {
		p.HistopathologyDetails = req.HistopathologyDetails
	}
	if req.InsuranceProvider != nil {
		p.InsuranceProvider = req.InsuranceProvider
	}
	if req.InsurancePolicyNumber != nil {
		p.InsurancePolicyNumber = req.InsurancePolicyNumber
	}
	if req.InsuranceValidity != nil {
		p.InsuranceValidity = req.InsuranceValidity
	}
	if req.ProfilePhotoURL != nil {
		p.ProfilePhotoURL = req.ProfilePhotoURL
	}
}

func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	return s.repo.Delete(ctx, id)
}

func (s *Service) Search(ctx context.Context, term string, limit, offset int) ([]*Patient, int, error) {
	items, total, err := s.repo.Search(ctx, term, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	today := s.today()
	for _, p := range items {
		p.Derive(today)
	}
	return items, total, nil
}
