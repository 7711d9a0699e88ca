package advisor

import (
	"github.com/google/uuid"

	"github.com/moinmakda/ChemoCareAI/internal/domain/dosing"
)

type GenerateProtocolRequest struct {
	PatientID          uuid.UUID          `json:"patient_id" validate:"required"`
	ProtocolTemplateID uuid.UUID          `json:"protocol_template_id" validate:"required"`
	RecentLabs         map[string]float64 `json:"recent_labs"`
	DoctorNotes        *string            `json:"doctor_notes"`
}

type RiskRequest struct {
	PatientID    uuid.UUID `json:"patient_id" validate:"required"`
	ProtocolName string    `json:"protocol_name" validate:"required"`
	CycleNumber  int       `json:"cycle_number" validate:"gte=1"`
}

type InteractionRequest struct {
	ChemoDrugs         []string   `json:"chemo_drugs" validate:"required,min=1,dive,required"`
	CurrentMedications []string   `json:"current_medications" validate:"dive,required"`
	PatientID          *uuid.UUID `json:"patient_id"`
}

type ChatRequest struct {
	Message          string               `json:"message" validate:"required,max=4000"`
	CurrentTreatment *string              `json:"current_treatment"`
	History          []dosing.ChatMessage `json:"conversation_history" validate:"max=50,dive"`
}

type HealthReport struct {
	Status           string   `json:"status"`
	Recommender      string   `json:"recommender"`
	Provider         string   `json:"provider"`
	Model            string   `json:"model,omitempty"`
	Features         []string `json:"features"`
	StructuredOutput bool     `json:"structured_output"`
	ResponseFormat   string   `json:"response_format"`
}
