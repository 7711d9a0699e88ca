package dosing

import (
	"context"
	"fmt"
	"strings"
)

// Recommender produces clinical decision support results. The local rule
// engine and the external model both implement it so callers never depend
// on which one answered.
type Recommender interface {
	Name() string
	GenerateProtocol(ctx context.Context, req ProtocolRequest) (*ProtocolResult, error)
	CalculateDose(ctx context.Context, in DoseInput) (*DoseResult, error)
	AssessRisk(ctx context.Context, in RiskInput) (*RiskResult, error)
	AnalyzeLabs(ctx context.Context, in LabInput) (*LabResult, error)
	CheckInteractions(ctx context.Context, in InteractionInput) (*InteractionResult, error)
	AnalyzeSymptoms(ctx context.Context, req SymptomRequest) (*TriageResult, error)
	Recommendations(ctx context.Context, req RecommendationRequest) (*RecommendationResult, error)
	Chat(ctx context.Context, req ChatRequest) (*ChatResponse, error)
}

// Local answers every request with the deterministic rules in this package.
type Local struct{}

func NewLocal() *Local { return &Local{} }

func (l *Local) Name() string { return "local" }

func (l *Local) GenerateProtocol(_ context.Context, req ProtocolRequest) (*ProtocolResult, error) {
	res := GenerateProtocol(req)
	return &res, nil
}

func (l *Local) CalculateDose(_ context.Context, in DoseInput) (*DoseResult, error) {
	res := CalculateDose(in)
	return &res, nil
}

func (l *Local) AssessRisk(_ context.Context, in RiskInput) (*RiskResult, error) {
	res := AssessRisk(in)
	return &res, nil
}

func (l *Local) AnalyzeLabs(_ context.Context, in LabInput) (*LabResult, error) {
	res := AnalyzeLabs(in)
	return &res, nil
}

func (l *Local) CheckInteractions(_ context.Context, in InteractionInput) (*InteractionResult, error) {
	res := CheckInteractions(in)
	return &res, nil
}

func (l *Local) AnalyzeSymptoms(_ context.Context, req SymptomRequest) (*TriageResult, error) {
	res := TriageSymptoms(req.Symptoms)
	return &res, nil
}

// RedFlags are the warning signs patients are told to report immediately.
var RedFlags = []string{
	"Fever over 100.4°F (38°C)",
	"Severe or uncontrolled pain",
	"Difficulty breathing or shortness of breath",
	"Bleeding that won't stop",
	"Persistent vomiting (can't keep fluids down)",
	"Signs of infection",
	"Confusion or disorientation",
	"Chest pain",
}

func (l *Local) Recommendations(_ context.Context, req RecommendationRequest) (*RecommendationResult, error) {
	p := req.Patient
	diagnosis := p.CancerType
	if diagnosis == "" {
		diagnosis = "Not specified"
	}

	res := &RecommendationResult{
		PatientID: req.PatientID,
		Diagnosis: diagnosis,
		TreatmentOptions: []string{
			"Continue the approved chemotherapy protocol",
			"Reassess treatment response after every two cycles",
		},
		SupportiveCare: []string{
			"Ensure adequate hydration before and during treatment",
			"Pre-medication with antiemetics as per protocol",
		},
		LifestyleModifications: []string{
			"Balanced diet with adequate protein intake",
			"Light physical activity as tolerated",
			"Avoid crowds and sick contacts during nadir",
		},
		Monitoring: []string{
			"Complete blood count before each cycle",
			"Renal and liver function tests before each cycle",
		},
		RedFlags: append([]string(nil), RedFlags...),
		References: []string{
			"NCCN Clinical Practice Guidelines in Oncology",
			"ESMO Clinical Practice Guidelines",
			"ASCO Guidelines",
		},
	}
	if p.CancerType != "" && p.CancerStage != "" {
		res.TreatmentOptions[0] = fmt.Sprintf("Continue the approved protocol for %s, stage %s", p.CancerType, p.CancerStage)
	}
	if req.CurrentStatus != "" {
		res.TreatmentOptions = append(res.TreatmentOptions, "Current status: "+req.CurrentStatus)
	}

	risk := AssessRisk(RiskInput{Patient: p})
	for _, r := range risk.Risks {
		switch r.Category {
		case "Age-related":
			res.Monitoring = append(res.Monitoring, r.Recommendations...)
		case "Comorbidity":
			res.SupportiveCare = append(res.SupportiveCare, r.Recommendations...)
		}
	}
	return res, nil
}

var urgentTerms = []string{
	"fever", "temperature", "breath", "bleed", "chest pain",
	"confus", "vomit", "severe pain", "infection", "faint",
}

func (l *Local) Chat(_ context.Context, req ChatRequest) (*ChatResponse, error) {
	msg := strings.ToLower(req.Message)
	name := req.PatientName
	if name == "" {
		name = "there"
	}

	for _, term := range urgentTerms {
		if strings.Contains(msg, term) {
			severity := "high"
			return &ChatResponse{
				Message: fmt.Sprintf("Thank you for telling me, %s. What you describe can be serious during chemotherapy. "+
					"Please contact your care team right away, or go to the nearest emergency department if you feel unwell.", name),
				IsUrgent:              true,
				SuggestedActions:      []string{"Call your care team now", "Record your temperature and symptoms"},
				ShouldContactCareTeam: true,
				SymptomSeverity:       &severity,
			}, nil
		}
	}

	return &ChatResponse{
		Message: fmt.Sprintf("Thanks for reaching out, %s. Many side effects of chemotherapy can be managed with rest, fluids, "+
			"and the medicines your team prescribed. If anything changes or worries you, your care team is there to help.", name),
		SuggestedActions:      []string{"Log your symptoms in the diary", "Stay hydrated"},
		ShouldContactCareTeam: false,
	}, nil
}
