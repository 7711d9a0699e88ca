// Package treatment implements the protocol template, treatment plan, cycle
// and drug administration workflow.
package treatment

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/moinmakda/ChemoCareAI/internal/domain/dosing"
	"github.com/moinmakda/ChemoCareAI/pkg/civil"
)

type PlanStatus string

const (
	PlanDraft                  PlanStatus = "draft"
	PlanPendingOPDApproval     PlanStatus = "pending_opd_approval"
	PlanPendingDaycareApproval PlanStatus = "pending_daycare_approval"
	PlanApproved               PlanStatus = "approved"
	PlanActive                 PlanStatus = "active"
	PlanCompleted              PlanStatus = "completed"
	PlanCancelled              PlanStatus = "cancelled"
	PlanOnHold                 PlanStatus = "on_hold"
)

var validPlanStatuses = map[PlanStatus]bool{
	PlanDraft: true, PlanPendingOPDApproval: true, PlanPendingDaycareApproval: true,
	PlanApproved: true, PlanActive: true, PlanCompleted: true, PlanCancelled: true, PlanOnHold: true,
}

type CycleStatus string

const (
	CycleScheduled     CycleStatus = "scheduled"
	CyclePreAssessment CycleStatus = "pre_assessment"
	CycleApproved      CycleStatus = "approved"
	CycleInProgress    CycleStatus = "in_progress"
	CycleCompleted     CycleStatus = "completed"
	CycleDelayed       CycleStatus = "delayed"
	CycleCancelled     CycleStatus = "cancelled"
)

var validCycleStatuses = map[CycleStatus]bool{
	CycleScheduled: true, CyclePreAssessment: true, CycleApproved: true, CycleInProgress: true,
	CycleCompleted: true, CycleDelayed: true, CycleCancelled: true,
}

type AdminStatus string

const (
	AdminPending   AdminStatus = "pending"
	AdminPrepared  AdminStatus = "prepared"
	AdminVerified  AdminStatus = "verified"
	AdminStarted   AdminStatus = "started"
	AdminPaused    AdminStatus = "paused"
	AdminResumed   AdminStatus = "resumed"
	AdminCompleted AdminStatus = "completed"
	AdminStopped   AdminStatus = "stopped"
)

var validAdminStatuses = map[AdminStatus]bool{
	AdminPending: true, AdminPrepared: true, AdminVerified: true, AdminStarted: true,
	AdminPaused: true, AdminResumed: true, AdminCompleted: true, AdminStopped: true,
}

// ProtocolTemplate is a reusable chemotherapy regimen.
type ProtocolTemplate struct {
	ID                    uuid.UUID                 `db:"id" json:"id"`
	Name                  string                    `db:"name" json:"name"`
	FullName              *string                   `db:"full_name" json:"full_name,omitempty"`
	CancerTypes           []string                  `db:"cancer_types" json:"cancer_types"`
	CycleDays             int                       `db:"cycle_days" json:"cycle_days"`
	TotalCycles           *int                      `db:"total_cycles" json:"total_cycles,omitempty"`
	Drugs                 []dosing.DrugSpec         `db:"drugs" json:"drugs"`
	PreMedications        []dosing.Medication       `db:"pre_medications" json:"pre_medications"`
	PostMedications       []dosing.Medication       `db:"post_medications" json:"post_medications"`
	RequiredLabs          []string                  `db:"required_labs" json:"required_labs"`
	MonitoringParameters  []string                  `db:"monitoring_parameters" json:"monitoring_parameters"`
	DoseModificationRules []dosing.ModificationRule `db:"dose_modification_rules" json:"dose_modification_rules"`
	CommonSideEffects     []string                  `db:"common_side_effects" json:"common_side_effects"`
	SeriousSideEffects    []string                  `db:"serious_side_effects" json:"serious_side_effects"`
	ReferenceGuidelines   *string                   `db:"reference_guidelines" json:"reference_guidelines,omitempty"`
	IsActive              bool                      `db:"is_active" json:"is_active"`
	CreatedAt             time.Time                 `db:"created_at" json:"created_at"`
	UpdatedAt             time.Time                 `db:"updated_at" json:"updated_at"`
}

// TreatmentPlan applies one protocol to one patient. CustomProtocol is a
// snapshot so later template edits do not change a plan in flight.
type TreatmentPlan struct {
	ID                 uuid.UUID       `db:"id" json:"id"`
	PatientID          uuid.UUID       `db:"patient_id" json:"patient_id"`
	ProtocolTemplateID *uuid.UUID      `db:"protocol_template_id" json:"protocol_template_id,omitempty"`
	ProtocolName       string          `db:"protocol_name" json:"protocol_name"`
	CustomProtocol     json.RawMessage `db:"custom_protocol" json:"custom_protocol"`
	StartDate          civil.Date      `db:"start_date" json:"start_date"`
	PlannedCycles      int             `db:"planned_cycles" json:"planned_cycles"`
	CompletedCycles    int             `db:"completed_cycles" json:"completed_cycles"`
	Status             PlanStatus      `db:"status" json:"status"`
	AIRecommendations  *string         `db:"ai_recommendations" json:"ai_recommendations,omitempty"`
	AIRiskAssessment   json.RawMessage `db:"ai_risk_assessment" json:"ai_risk_assessment,omitempty"`
	AIConfidenceScore  *float64        `db:"ai_confidence_score" json:"ai_confidence_score,omitempty"`
	CreatedByDoctorID  *uuid.UUID      `db:"created_by_doctor_id" json:"created_by_doctor_id,omitempty"`
	OPDApprovedBy      *uuid.UUID      `db:"opd_approved_by" json:"opd_approved_by,omitempty"`
	OPDApprovedAt      *time.Time      `db:"opd_approved_at" json:"opd_approved_at,omitempty"`
	OPDNotes           *string         `db:"opd_notes" json:"opd_notes,omitempty"`
	DaycareApprovedBy  *uuid.UUID      `db:"daycare_approved_by" json:"daycare_approved_by,omitempty"`
	DaycareApprovedAt  *time.Time      `db:"daycare_approved_at" json:"daycare_approved_at,omitempty"`
	DaycareNotes       *string         `db:"daycare_notes" json:"daycare_notes,omitempty"`
	CreatedAt          time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt          time.Time       `db:"updated_at" json:"updated_at"`

	Cycles []*TreatmentCycle `db:"-" json:"cycles,omitempty"`
}

type TreatmentCycle struct {
	ID                   uuid.UUID       `db:"id" json:"id"`
	TreatmentPlanID      uuid.UUID       `db:"treatment_plan_id" json:"treatment_plan_id"`
	CycleNumber          int             `db:"cycle_number" json:"cycle_number"`
	ScheduledDate        civil.Date      `db:"scheduled_date" json:"scheduled_date"`
	ActualDate           *civil.Date     `db:"actual_date" json:"actual_date,omitempty"`
	Status               CycleStatus     `db:"status" json:"status"`
	PreChemoLabs         json.RawMessage `db:"pre_chemo_labs" json:"pre_chemo_labs,omitempty"`
	PreChemoVitals       json.RawMessage `db:"pre_chemo_vitals" json:"pre_chemo_vitals,omitempty"`
	PatientWeightKg      *float64        `db:"patient_weight_kg" json:"patient_weight_kg,omitempty"`
	CalculatedBSA        *float64        `db:"calculated_bsa" json:"calculated_bsa,omitempty"`
	DoseModifications    json.RawMessage `db:"dose_modifications" json:"dose_modifications,omitempty"`
	ModificationReason   *string         `db:"modification_reason" json:"modification_reason,omitempty"`
	DaycareDoctorID      *uuid.UUID      `db:"daycare_doctor_id" json:"daycare_doctor_id,omitempty"`
	ApprovedAt           *time.Time      `db:"approved_at" json:"approved_at,omitempty"`
	ApprovalNotes        *string         `db:"approval_notes" json:"approval_notes,omitempty"`
	StartedAt            *time.Time      `db:"started_at" json:"started_at,omitempty"`
	CompletedAt          *time.Time      `db:"completed_at" json:"completed_at,omitempty"`
	AdministeredBy       *uuid.UUID      `db:"administered_by" json:"administered_by,omitempty"`
	ImmediateReactions   json.RawMessage `db:"immediate_reactions" json:"immediate_reactions,omitempty"`
	DischargeNotes       *string         `db:"discharge_notes" json:"discharge_notes,omitempty"`
	FollowUpInstructions *string         `db:"follow_up_instructions" json:"follow_up_instructions,omitempty"`
	CreatedAt            time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt            time.Time       `db:"updated_at" json:"updated_at"`

	Administrations []*DrugAdministration `db:"-" json:"drug_administrations,omitempty"`
}

type DrugAdministration struct {
	ID                  uuid.UUID       `db:"id" json:"id"`
	CycleID             uuid.UUID       `db:"cycle_id" json:"cycle_id"`
	DrugName            string          `db:"drug_name" json:"drug_name"`
	PlannedDose         float64         `db:"planned_dose" json:"planned_dose"`
	ActualDose          *float64        `db:"actual_dose" json:"actual_dose,omitempty"`
	Unit                string          `db:"unit" json:"unit"`
	Route               string          `db:"route" json:"route"`
	PlannedDurationMins *int            `db:"planned_duration_mins" json:"planned_duration_mins,omitempty"`
	ActualDurationMins  *int            `db:"actual_duration_mins" json:"actual_duration_mins,omitempty"`
	Status              AdminStatus     `db:"status" json:"status"`
	PreparedBy          *uuid.UUID      `db:"prepared_by" json:"prepared_by,omitempty"`
	PreparedAt          *time.Time      `db:"prepared_at" json:"prepared_at,omitempty"`
	BatchNumber         *string         `db:"batch_number" json:"batch_number,omitempty"`
	ExpiryDate          *civil.Date     `db:"expiry_date" json:"expiry_date,omitempty"`
	VerifiedBy          *uuid.UUID      `db:"verified_by" json:"verified_by,omitempty"`
	VerifiedAt          *time.Time      `db:"verified_at" json:"verified_at,omitempty"`
	StartedAt           *time.Time      `db:"started_at" json:"started_at,omitempty"`
	CompletedAt         *time.Time      `db:"completed_at" json:"completed_at,omitempty"`
	AdministeredBy      *uuid.UUID      `db:"administered_by" json:"administered_by,omitempty"`
	IVSite              *string         `db:"iv_site" json:"iv_site,omitempty"`
	FlowRate            *string         `db:"flow_rate" json:"flow_rate,omitempty"`
	Reactions           json.RawMessage `db:"reactions" json:"reactions"`
	Notes               *string         `db:"notes" json:"notes,omitempty"`
	CreatedAt           time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt           time.Time       `db:"updated_at" json:"updated_at"`
}

// Snapshot is the custom_protocol shape written when a plan is created from
// a template. Plans created with a caller-supplied custom protocol may carry
// any JSON object; only its drugs list is read back.
type Snapshot struct {
	TemplateName    string                `json:"template_name"`
	CycleDays       int                   `json:"cycle_days,omitempty"`
	PatientBSA      float64               `json:"patient_bsa"`
	Drugs           []dosing.ComputedDrug `json:"drugs"`
	PreMedications  []dosing.Medication   `json:"pre_medications"`
	PostMedications []dosing.Medication   `json:"post_medications"`
}

// snapshotDrug is the subset of a custom_protocol drug entry used to fan out
// administrations.
type snapshotDrug struct {
	DrugName             string   `json:"drug_name"`
	CalculatedDose       *float64 `json:"calculated_dose"`
	DosePerM2            *float64 `json:"dose_per_m2"`
	Unit                 string   `json:"unit"`
	Route                string   `json:"route"`
	InfusionDurationMins *int     `json:"infusion_duration_mins"`
}

// -- Requests --

type CreateProtocolRequest struct {
	Name                  string                    `json:"name" validate:"required,max=100"`
	FullName              *string                   `json:"full_name"`
	CancerTypes           []string                  `json:"cancer_types"`
	CycleDays             int                       `json:"cycle_days" validate:"required,gt=0"`
	TotalCycles           *int                      `json:"total_cycles" validate:"omitempty,gt=0"`
	Drugs                 []dosing.DrugSpec         `json:"drugs" validate:"required,min=1,dive"`
	PreMedications        []dosing.Medication       `json:"pre_medications"`
	PostMedications       []dosing.Medication       `json:"post_medications"`
	RequiredLabs          []string                  `json:"required_labs"`
	MonitoringParameters  []string                  `json:"monitoring_parameters"`
	DoseModificationRules []dosing.ModificationRule `json:"dose_modification_rules"`
	CommonSideEffects     []string                  `json:"common_side_effects"`
	SeriousSideEffects    []string                  `json:"serious_side_effects"`
	ReferenceGuidelines   *string                   `json:"reference_guidelines"`
}

type CreatePlanRequest struct {
	PatientID          uuid.UUID       `json:"patient_id" validate:"required"`
	ProtocolTemplateID *uuid.UUID      `json:"protocol_template_id"`
	ProtocolName       string          `json:"protocol_name" validate:"required,max=100"`
	CustomProtocol     json.RawMessage `json:"custom_protocol"`
	StartDate          *civil.Date     `json:"start_date"`
	PlannedCycles      int             `json:"planned_cycles" validate:"required,gt=0"`
	OPDNotes           *string         `json:"opd_notes"`
}

type UpdatePlanRequest struct {
	ProtocolName   *string          `json:"protocol_name" validate:"omitempty,max=100"`
	CustomProtocol *json.RawMessage `json:"custom_protocol"`
	StartDate      *civil.Date      `json:"start_date"`
	PlannedCycles  *int             `json:"planned_cycles" validate:"omitempty,gt=0"`
	Status         *PlanStatus      `json:"status"`
	OPDNotes       *string          `json:"opd_notes"`
	DaycareNotes   *string          `json:"daycare_notes"`
}

type CreateCycleRequest struct {
	CycleNumber   int        `json:"cycle_number" validate:"required,gt=0"`
	ScheduledDate civil.Date `json:"scheduled_date"`
}

type UpdateCycleRequest struct {
	ScheduledDate        *civil.Date      `json:"scheduled_date"`
	ActualDate           *civil.Date      `json:"actual_date"`
	Status               *CycleStatus     `json:"status"`
	PreChemoLabs         *json.RawMessage `json:"pre_chemo_labs"`
	PreChemoVitals       *json.RawMessage `json:"pre_chemo_vitals"`
	PatientWeightKg      *float64         `json:"patient_weight_kg" validate:"omitempty,gt=0"`
	CalculatedBSA        *float64         `json:"calculated_bsa" validate:"omitempty,gt=0"`
	DoseModifications    *json.RawMessage `json:"dose_modifications"`
	ModificationReason   *string          `json:"modification_reason"`
	ApprovalNotes        *string          `json:"approval_notes"`
	ImmediateReactions   *json.RawMessage `json:"immediate_reactions"`
	DischargeNotes       *string          `json:"discharge_notes"`
	FollowUpInstructions *string          `json:"follow_up_instructions"`
}

type UpdateAdministrationRequest struct {
	ActualDose         *float64         `json:"actual_dose" validate:"omitempty,gte=0"`
	ActualDurationMins *int             `json:"actual_duration_mins" validate:"omitempty,gte=0"`
	Status             *AdminStatus     `json:"status"`
	BatchNumber        *string          `json:"batch_number" validate:"omitempty,max=50"`
	ExpiryDate         *civil.Date      `json:"expiry_date"`
	IVSite             *string          `json:"iv_site" validate:"omitempty,max=50"`
	FlowRate           *string          `json:"flow_rate" validate:"omitempty,max=50"`
	Reactions          *json.RawMessage `json:"reactions"`
	Notes              *string          `json:"notes"`
}
