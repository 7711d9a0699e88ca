// Package advisor exposes the clinical decision support operations over
// HTTP. It resolves patients and protocol templates from storage and hands
// the assembled inputs to whichever dosing.Recommender is configured.
package advisor

import (
	"context"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/moinmakda/ChemoCareAI/internal/domain/dosing"
	"github.com/moinmakda/ChemoCareAI/internal/domain/patient"
	"github.com/moinmakda/ChemoCareAI/internal/domain/treatment"
)

// DefaultStatus is sent to the recommender when the caller gives none.
const DefaultStatus = "Active treatment"

// Features lists the operations reported by the health endpoint.
var Features = []string{
	"Protocol Generation",
	"Dose Calculation",
	"Drug Interaction Check",
	"Lab Analysis",
	"Symptom Analysis",
	"Risk Assessment",
	"Treatment Recommendations",
	"Patient Chat",
}

type PatientDirectory interface {
	Lookup(ctx context.Context, id uuid.UUID) (*patient.Patient, error)
	Mine(ctx context.Context) (*patient.Patient, error)
}

type ProtocolSource interface {
	GetProtocol(ctx context.Context, id uuid.UUID) (*treatment.ProtocolTemplate, error)
}

// Options describes the configured recommender for the health report.
type Options struct {
	Provider   string
	Model      string
	Configured bool
}

type Service struct {
	recommender dosing.Recommender
	patients    PatientDirectory
	protocols   ProtocolSource
	logger      zerolog.Logger
	opts        Options
}

func NewService(recommender dosing.Recommender, patients PatientDirectory, protocols ProtocolSource,
	logger zerolog.Logger, opts Options) *Service {
	return &Service{
		recommender: recommender,
		patients:    patients,
		protocols:   protocols,
		logger:      logger.With().Str("component", "advisor").Str("recommender", recommender.Name()).Logger(),
		opts:        opts,
	}
}

func (s *Service) GenerateProtocol(ctx context.Context, req *GenerateProtocolRequest) (*dosing.ProtocolResult, error) {
	p, err := s.patients.Lookup(ctx, req.PatientID)
	if err != nil {
		return nil, err
	}
	tpl, err := s.protocols.GetProtocol(ctx, req.ProtocolTemplateID)
	if err != nil {
		return nil, err
	}
	s.logger.Debug().Str("template", tpl.Name).Str("patient_id", p.ID.String()).Msg("generating protocol")
	return s.recommender.GenerateProtocol(ctx, dosing.ProtocolRequest{
		TemplateName:          tpl.Name,
		Drugs:                 tpl.Drugs,
		PreMedications:        tpl.PreMedications,
		PostMedications:       tpl.PostMedications,
		MonitoringParameters:  tpl.MonitoringParameters,
		DoseModificationRules: tpl.DoseModificationRules,
		Patient:               p.Factors(),
		Labs:                  req.RecentLabs,
		DoctorNotes:           req.DoctorNotes,
	})
}

func (s *Service) CalculateDose(ctx context.Context, in *dosing.DoseInput) (*dosing.DoseResult, error) {
	return s.recommender.CalculateDose(ctx, *in)
}

func (s *Service) AssessRisk(ctx context.Context, req *RiskRequest) (*dosing.RiskResult, error) {
	p, err := s.patients.Lookup(ctx, req.PatientID)
	if err != nil {
		return nil, err
	}
	return s.recommender.AssessRisk(ctx, dosing.RiskInput{
		PatientID:    p.ID.String(),
		ProtocolName: req.ProtocolName,
		CycleNumber:  req.CycleNumber,
		Patient:      p.Factors(),
	})
}

func (s *Service) AnalyzeLabs(ctx context.Context, in *dosing.LabInput) (*dosing.LabResult, error) {
	return s.recommender.AnalyzeLabs(ctx, *in)
}

// CheckInteractions fills current_medications from the patient record when
// the request names a patient but no medications.
func (s *Service) CheckInteractions(ctx context.Context, req *InteractionRequest) (*dosing.InteractionResult, error) {
	in := dosing.InteractionInput{
		ChemoDrugs:         req.ChemoDrugs,
		CurrentMedications: req.CurrentMedications,
	}
	if len(in.CurrentMedications) == 0 && req.PatientID != nil {
		p, err := s.patients.Lookup(ctx, *req.PatientID)
		if err != nil {
			return nil, err
		}
		in.CurrentMedications = p.MedicationNames()
	}
	if in.CurrentMedications == nil {
		in.CurrentMedications = []string{}
	}
	return s.recommender.CheckInteractions(ctx, in)
}

func (s *Service) AnalyzeSymptoms(ctx context.Context, req *dosing.SymptomRequest) (*dosing.TriageResult, error) {
	return s.recommender.AnalyzeSymptoms(ctx, *req)
}

func (s *Service) Recommendations(ctx context.Context, patientID uuid.UUID, status string) (*dosing.RecommendationResult, error) {
	p, err := s.patients.Lookup(ctx, patientID)
	if err != nil {
		return nil, err
	}
	if status == "" {
		status = DefaultStatus
	}
	return s.recommender.Recommendations(ctx, dosing.RecommendationRequest{
		PatientID:     p.ID.String(),
		Patient:       p.Factors(),
		CurrentStatus: status,
	})
}

// Chat answers a patient's question with their own record as context.
func (s *Service) Chat(ctx context.Context, req *ChatRequest) (*dosing.ChatResponse, error) {
	p, err := s.patients.Mine(ctx)
	if err != nil {
		return nil, err
	}
	return s.recommender.Chat(ctx, dosing.ChatRequest{
		PatientName:      p.FirstName,
		Diagnosis:        p.CancerType,
		CurrentTreatment: req.CurrentTreatment,
		Message:          req.Message,
		History:          req.History,
	})
}

func (s *Service) Health() *HealthReport {
	status := "healthy"
	if !s.opts.Configured {
		status = "not_configured"
	}
	return &HealthReport{
		Status:           status,
		Recommender:      s.recommender.Name(),
		Provider:         s.opts.Provider,
		Model:            s.opts.Model,
		Features:         Features,
		StructuredOutput: true,
		ResponseFormat:   "application/json",
	}
}
