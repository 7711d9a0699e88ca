package patient

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/moinmakda/ChemoCareAI/internal/domain/dosing"
	"github.com/moinmakda/ChemoCareAI/pkg/civil"
)

// Patient is the aggregate root of the clinical record. BSA, Age and FullName
// are derived on read and never stored.
type Patient struct {
	ID                       uuid.UUID       `json:"id"`
	UserID                   *uuid.UUID      `json:"user_id"`
	FirstName                string          `json:"first_name"`
	LastName                 string          `json:"last_name"`
	FullName                 string          `json:"full_name"`
	DateOfBirth              civil.Date      `json:"date_of_birth"`
	Age                      int             `json:"age"`
	Gender                   string          `json:"gender"`
	BloodGroup               *string         `json:"blood_group"`
	Address                  *string         `json:"address"`
	City                     *string         `json:"city"`
	State                    *string         `json:"state"`
	Pincode                  *string         `json:"pincode"`
	EmergencyContactName     *string         `json:"emergency_contact_name"`
	EmergencyContactPhone    *string         `json:"emergency_contact_phone"`
	EmergencyContactRelation *string         `json:"emergency_contact_relation"`
	HeightCm                 *float64        `json:"height_cm"`
	WeightKg                 *float64        `json:"weight_kg"`
	BSA                      float64         `json:"bsa"`
	Allergies                []string        `json:"allergies"`
	Comorbidities            []string        `json:"comorbidities"`
	CurrentMedications       json.RawMessage `json:"current_medications"`
	CancerType               *string         `json:"cancer_type"`
	CancerStage              *string         `json:"cancer_stage"`
	DiagnosisDate            *civil.Date     `json:"diagnosis_date"`
	HistopathologyDetails    *string         `json:"histopathology_details"`
	InsuranceProvider        *string         `json:"insurance_provider"`
	InsurancePolicyNumber    *string         `json:"insurance_policy_number"`
	InsuranceValidity        *civil.Date     `json:"insurance_validity"`
	ProfilePhotoURL          *string         `json:"profile_photo_url"`
	CreatedAt                time.Time       `json:"created_at"`
	UpdatedAt                time.Time       `json:"updated_at"`
}

// Derive fills the computed fields as of today.
func (p *Patient) Derive(today civil.Date) {
	p.FullName = p.FirstName + " " + p.LastName
	p.BSA = dosing.BSA(p.HeightCm, p.WeightKg)
	p.Age = dosing.Age(p.DateOfBirth.Time(), today.Time())
	if p.Allergies == nil {
		p.Allergies = []string{}
	}
	if p.Comorbidities == nil {
		p.Comorbidities = []string{}
	}
	if len(p.CurrentMedications) == 0 {
		p.CurrentMedications = json.RawMessage("[]")
	}
}

// Factors returns the attributes the dosing rules consume.
func (p *Patient) Factors() dosing.PatientFactors {
	f := dosing.PatientFactors{
		Age:           p.Age,
		Gender:        p.Gender,
		HeightCm:      p.HeightCm,
		WeightKg:      p.WeightKg,
		BSA:           p.BSA,
		Comorbidities: p.Comorbidities,
	}
	if p.CancerType != nil {
		f.CancerType = *p.CancerType
	}
	if p.CancerStage != nil {
		f.CancerStage = *p.CancerStage
	}
	return f
}

// MedicationNames extracts drug names from current_medications, which holds
// either plain strings or objects with a name field.
func (p *Patient) MedicationNames() []string {
	var raw []json.RawMessage
	if err := json.Unmarshal(p.CurrentMedications, &raw); err != nil {
		return nil
	}
	var names []string
	for _, item := range raw {
		var s string
		if json.Unmarshal(item, &s) == nil {
			if s != "" {
				names = append(names, s)
			}
			continue
		}
		var obj struct {
			Name     string `json:"name"`
			DrugName string `json:"drug_name"`
		}
		if json.Unmarshal(item, &obj) == nil {
			switch {
			case obj.DrugName != "":
				names = append(names, obj.DrugName)
			case obj.Name != "":
				names = append(names, obj.Name)
			}
		}
	}
	return names
}

var validGenders = map[string]bool{"male": true, "female": true, "other": true}

var validBloodGroups = map[string]bool{
	"A+": true, "A-": true, "B+": true, "B-": true,
	"AB+": true, "AB-": true, "O+": true, "O-": true,
}

type CreateRequest struct {
	UserID                   *uuid.UUID      `json:"user_id"`
	FirstName                string          `json:"first_name" validate:"required,max=100"`
	LastName                 string          `json:"last_name" validate:"required,max=100"`
	DateOfBirth              civil.Date      `json:"date_of_birth"`
	Gender                   string          `json:"gender" validate:"required"`
	BloodGroup               *string         `json:"blood_group"`
	Address                  *string         `json:"address"`
	City                     *string         `json:"city"`
	State                    *string         `json:"state"`
	Pincode                  *string         `json:"pincode" validate:"omitempty,max=10"`
	EmergencyContactName     *string         `json:"emergency_contact_name"`
	EmergencyContactPhone    *string         `json:"emergency_contact_phone" validate:"omitempty,max=20"`
	EmergencyContactRelation *string         `json:"emergency_contact_relation"`
	HeightCm                 *float64        `json:"height_cm" validate:"omitempty,gt=0,lt=300"`
	WeightKg                 *float64        `json:"weight_kg" validate:"omitempty,gt=0,lt=500"`
	Allergies                []string        `json:"allergies"`
	Comorbidities            []string        `json:"comorbidities"`
	CurrentMedications       json.RawMessage `json:"current_medications"`
	CancerType               *string         `json:"cancer_type"`
	CancerStage              *string         `json:"cancer_stage"`
	DiagnosisDate            *civil.Date     `json:"diagnosis_date"`
	HistopathologyDetails    *string         `json:"histopathology_details"`
	InsuranceProvider        *string         `json:"insurance_provider"`
	InsurancePolicyNumber    *string         `json:"insurance_policy_number"`
	InsuranceValidity        *civil.Date     `json:"insurance_validity"`
}

// UpdateRequest is a partial update; nil fields are left unchanged.
type UpdateRequest struct {
	FirstName                *string          `json:"first_name" validate:"omitempty,min=1,max=100"`
	LastName                 *string          `json:"last_name" validate:"omitempty,min=1,max=100"`
	DateOfBirth              *civil.Date      `json:"date_of_birth"`
	Gender                   *string          `json:"gender"`
	BloodGroup               *string          `json:"blood_group"`
	Address                  *string          `json:"address"`
	City                     *string          `json:"city"`
	State                    *string          `json:"state"`
	Pincode                  *string          `json:"pincode" validate:"omitempty,max=10"`
	EmergencyContactName     *string          `json:"emergency_contact_name"`
	EmergencyContactPhone    *string          `json:"emergency_contact_phone" validate:"omitempty,max=20"`
	EmergencyContactRelation *string          `json:"emergency_contact_relation"`
	HeightCm                 *float64         `json:"height_cm" validate:"omitempty,gt=0,lt=300"`
	WeightKg                 *float64         `json:"weight_kg" validate:"omitempty,gt=0,lt=500"`
	Allergies                *[]string        `json:"allergies"`
	Comorbidities            *[]string        `json:"comorbidities"`
	CurrentMedications       *json.RawMessage `json:"current_medications"`
	CancerType               *string          `json:"cancer_type"`
	CancerStage              *string          `json:"cancer_stage"`
	DiagnosisDate            *civil.Date      `json:"diagnosis_date"`
	HistopathologyDetails    *string          `json:"histopathology_details"`
	InsuranceProvider        *string          `json:"insurance_provider"`
	InsurancePolicyNumber    *string          `json:"insurance_policy_number"`
	InsuranceValidity        *civil.Date      `json:"insurance_validity"`
	ProfilePhotoURL          *string          `json:"profile_photo_url"`
}
