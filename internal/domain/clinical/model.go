package clinical

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/moinmakda/ChemoCareAI/internal/domain/dosing"
	"github.com/moinmakda/ChemoCareAI/pkg/civil"
)

// TimingSelfReported marks vitals a patient entered from home.
const TimingSelfReported = "self_reported"

// -- Vitals --

// VitalReadings are the measured values shared by nurse and patient entries.
type VitalReadings struct {
	TemperatureF           *float64 `json:"temperature_f" validate:"omitempty,gte=90,lte=110"`
	PulseBPM               *int     `json:"pulse_bpm" validate:"omitempty,gte=0,lte=250"`
	BloodPressureSystolic  *int     `json:"blood_pressure_systolic" validate:"omitempty,gte=0,lte=300"`
	BloodPressureDiastolic *int     `json:"blood_pressure_diastolic" validate:"omitempty,gte=0,lte=200"`
	RespiratoryRate        *int     `json:"respiratory_rate" validate:"omitempty,gte=0,lte=80"`
	OxygenSaturation       *float64 `json:"oxygen_saturation" validate:"omitempty,gte=0,lte=100"`
	PainScore              *int     `json:"pain_score" validate:"omitempty,gte=0,lte=10"`
	PainLocation           *string  `json:"pain_location" validate:"omitempty,max=100"`
	BloodSugar             *float64 `json:"blood_sugar" validate:"omitempty,gte=0"`
	WeightKg               *float64 `json:"weight_kg" validate:"omitempty,gt=0,lt=500"`
	Notes                  *string  `json:"notes"`
}

func (r VitalReadings) input() dosing.VitalInput {
	return dosing.VitalInput{
		TemperatureF:     r.TemperatureF,
		PulseBPM:         r.PulseBPM,
		BPSystolic:       r.BloodPressureSystolic,
		BPDiastolic:      r.BloodPressureDiastolic,
		OxygenSaturation: r.OxygenSaturation,
	}
}

// Vital is one set of readings. AIAlerts is computed when the row is written
// and never recomputed.
type Vital struct {
	ID         uuid.UUID  `json:"id"`
	PatientID  uuid.UUID  `json:"patient_id"`
	CycleID    *uuid.UUID `json:"cycle_id"`
	RecordedAt time.Time  `json:"recorded_at"`
	RecordedBy *uuid.UUID `json:"recorded_by"`
	VitalReadings
	Timing   *string             `json:"timing"`
	AIAlerts []dosing.VitalAlert `json:"ai_alerts"`
}

type RecordVitalRequest struct {
	PatientID uuid.UUID  `json:"patient_id" validate:"required"`
	CycleID   *uuid.UUID `json:"cycle_id"`
	Timing    *string    `json:"timing" validate:"omitempty,max=30"`
	VitalReadings
}

type SelfVitalRequest struct {
	CycleID *uuid.UUID `json:"cycle_id"`
	VitalReadings
}

// -- Symptom diary --

type SymptomReport struct {
	NauseaScore     *int    `json:"nausea_score" validate:"omitempty,gte=0,lte=10"`
	VomitingCount   *int    `json:"vomiting_count" validate:"omitempty,gte=0"`
	FatigueScore    *int    `json:"fatigue_score" validate:"omitempty,gte=0,lte=10"`
	AppetiteScore   *int    `json:"appetite_score" validate:"omitempty,gte=0,lte=10"`
	PainScore       *int    `json:"pain_score" validate:"omitempty,gte=0,lte=10"`
	HasFever        bool    `json:"has_fever"`
	HasMouthSores   bool    `json:"has_mouth_sores"`
	HasDiarrhea     bool    `json:"has_diarrhea"`
	HasConstipation bool    `json:"has_constipation"`
	HasNumbness     bool    `json:"has_numbness"`
	HasHairLoss     bool    `json:"has_hair_loss"`
	HasSkinChanges  bool    `json:"has_skin_changes"`
	OtherSymptoms   *string `json:"other_symptoms"`
	MoodNotes       *string `json:"mood_notes"`
}

func intOf(p *int) int {
	if p == nil {
		return 0
	}
	return *p
}

func (r SymptomReport) input() dosing.SymptomInput {
	return dosing.SymptomInput{
		NauseaScore:     intOf(r.NauseaScore),
		FatigueScore:    intOf(r.FatigueScore),
		PainScore:       intOf(r.PainScore),
		AppetiteScore:   intOf(r.AppetiteScore),
		VomitingCount:   intOf(r.VomitingCount),
		HasFever:        r.HasFever,
		HasMouthSores:   r.HasMouthSores,
		HasDiarrhea:     r.HasDiarrhea,
		HasConstipation: r.HasConstipation,
		HasNumbness:     r.HasNumbness,
		HasHairLoss:     r.HasHairLoss,
		HasSkinChanges:  r.HasSkinChanges,
	}
}

type SymptomEntry struct {
	ID         uuid.UUID  `json:"id"`
	PatientID  uuid.UUID  `json:"patient_id"`
	CycleID    *uuid.UUID `json:"cycle_id"`
	RecordedAt time.Time  `json:"recorded_at"`
	SymptomReport
	AISeverityScore   *float64 `json:"ai_severity_score"`
	AIAlertLevel      *string  `json:"ai_alert_level"`
	AIRecommendations *string  `json:"ai_recommendations"`
}

type CreateSymptomRequest struct {
	CycleID *uuid.UUID `json:"cycle_id"`
	SymptomReport
}

// -- Appointments --

type AppointmentType string

const (
	AppointmentOPDConsultation AppointmentType = "opd_consultation"
	AppointmentDaycareChemo    AppointmentType = "daycare_chemo"
	AppointmentFollowUp        AppointmentType = "follow_up"
	AppointmentLabWork         AppointmentType = "lab_work"
	AppointmentImaging         AppointmentType = "imaging"
	AppointmentOther           AppointmentType = "other"
)

type AppointmentStatus string

const (
	AppointmentScheduled   AppointmentStatus = "scheduled"
	AppointmentConfirmed   AppointmentStatus = "confirmed"
	AppointmentCheckedIn   AppointmentStatus = "checked_in"
	AppointmentInProgress  AppointmentStatus = "in_progress"
	AppointmentCompleted   AppointmentStatus = "completed"
	AppointmentCancelled   AppointmentStatus = "cancelled"
	AppointmentNoShow      AppointmentStatus = "no_show"
	AppointmentRescheduled AppointmentStatus = "rescheduled"
)

type Appointment struct {
	ID                 uuid.UUID         `json:"id"`
	PatientID          uuid.UUID         `json:"patient_id"`
	AppointmentType    AppointmentType   `json:"appointment_type"`
	ScheduledDate      civil.Date        `json:"scheduled_date"`
	ScheduledTime      string            `json:"scheduled_time"`
	DurationMins       int               `json:"duration_mins"`
	CycleID            *uuid.UUID        `json:"cycle_id"`
	ChairNumber        *int              `json:"chair_number"`
	DoctorID           *uuid.UUID        `json:"doctor_id"`
	NurseID            *uuid.UUID        `json:"nurse_id"`
	Status             AppointmentStatus `json:"status"`
	CheckedInAt        *time.Time        `json:"checked_in_at"`
	CheckedOutAt       *time.Time        `json:"checked_out_at"`
	Notes              *string           `json:"notes"`
	CancellationReason *string           `json:"cancellation_reason"`
	CreatedAt          time.Time         `json:"created_at"`
	UpdatedAt          time.Time         `json:"updated_at"`
}

type CreateAppointmentRequest struct {
	PatientID       uuid.UUID       `json:"patient_id" validate:"required"`
	AppointmentType AppointmentType `json:"appointment_type" validate:"required,oneof=opd_consultation daycare_chemo follow_up lab_work imaging other"`
	ScheduledDate   civil.Date      `json:"scheduled_date"`
	ScheduledTime   string          `json:"scheduled_time" validate:"required,datetime=15:04"`
	DurationMins    *int            `json:"duration_mins" validate:"omitempty,gt=0,lte=720"`
	CycleID         *uuid.UUID      `json:"cycle_id"`
	ChairNumber     *int            `json:"chair_number" validate:"omitempty,gt=0"`
	DoctorID        *uuid.UUID      `json:"doctor_id"`
	NurseID         *uuid.UUID      `json:"nurse_id"`
	Notes           *string         `json:"notes"`
}

type UpdateAppointmentRequest struct {
	AppointmentType *AppointmentType   `json:"appointment_type" validate:"omitempty,oneof=opd_consultation daycare_chemo follow_up lab_work imaging other"`
	ScheduledDate   *civil.Date        `json:"scheduled_date"`
	ScheduledTime   *string            `json:"scheduled_time" validate:"omitempty,datetime=15:04"`
	DurationMins    *int               `json:"duration_mins" validate:"omitempty,gt=0,lte=720"`
	ChairNumber     *int               `json:"chair_number" validate:"omitempty,gt=0"`
	DoctorID        *uuid.UUID         `json:"doctor_id"`
	NurseID         *uuid.UUID         `json:"nurse_id"`
	Status          *AppointmentStatus `json:"status" validate:"omitempty,oneof=scheduled confirmed checked_in in_progress completed cancelled no_show rescheduled"`
	Notes           *string            `json:"notes"`
}

type AppointmentFilter struct {
	PatientID     *uuid.UUID
	ScheduledDate *civil.Date
	Status        *AppointmentStatus
}

// -- Notifications --

const (
	KindAppointmentReminder = "appointment_reminder"
	KindLabReminder         = "lab_reminder"
	KindApprovalRequest     = "approval_request"
	KindApprovalReceived    = "approval_received"
	KindCycleCompleted      = "cycle_completed"
	KindVitalsAlert         = "vitals_alert"
	KindReactionAlert       = "reaction_alert"
	KindDocumentUploaded    = "document_uploaded"
	KindMessage             = "message"
	KindSystem              = "system"
)

var validKinds = map[string]bool{
	KindAppointmentReminder: true, KindLabReminder: true, KindApprovalRequest: true,
	KindApprovalReceived: true, KindCycleCompleted: true, KindVitalsAlert: true,
	KindReactionAlert: true, KindDocumentUploaded: true, KindMessage: true, KindSystem: true,
}

type Notification struct {
	ID        uuid.UUID       `json:"id"`
	UserID    uuid.UUID       `json:"user_id"`
	Type      string          `json:"type"`
	Title     string          `json:"title"`
	Body      string          `json:"body"`
	Data      json.RawMessage `json:"data,omitempty"`
	IsRead    bool            `json:"is_read"`
	ReadAt    *time.Time      `json:"read_at"`
	CreatedAt time.Time       `json:"created_at"`
}
