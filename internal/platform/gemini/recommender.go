package gemini

import (
	"context"
	"errors"
	"strings"

	"github.com/rs/zerolog"

	"github.com/moinmakda/ChemoCareAI/internal/domain/dosing"
	"github.com/moinmakda/ChemoCareAI/pkg/apperr"
)

// generator is the part of Client the recommender needs.
type generator interface {
	Generate(ctx context.Context, op, prompt string, temperature float64, jsonMode bool) (string, error)
	GenerateJSON(ctx context.Context, op, prompt string, temperature float64, out interface{}) error
}

// Recommender implements dosing.Recommender on top of Gemini.
type Recommender struct {
	client generator
	logger zerolog.Logger
}

var _ dosing.Recommender = (*Recommender)(nil)

func NewRecommender(client *Client, logger zerolog.Logger) *Recommender {
	return &Recommender{
		client: client,
		logger: logger.With().Str("component", "gemini").Logger(),
	}
}

func (r *Recommender) Name() string { return "gemini" }

func (r *Recommender) fail(op string, err error) error {
	r.logger.Warn().Err(err).Str("operation", op).Msg("recommendation failed")
	if errors.Is(err, apperr.ErrUnavailable) {
		return err
	}
	return unavailable("%s: %v", op, err)
}

func (r *Recommender) GenerateProtocol(ctx context.Context, req dosing.ProtocolRequest) (*dosing.ProtocolResult, error) {
	var res dosing.ProtocolResult
	if err := r.client.GenerateJSON(ctx, "generate_protocol", buildProtocolPrompt(req), tempProtocol, &res); err != nil {
		return nil, r.fail("generate_protocol", err)
	}
	if res.PatientBSA == 0 {
		res.PatientBSA = req.Patient.BSA
	}
	return &res, nil
}

func (r *Recommender) CalculateDose(ctx context.Context, in dosing.DoseInput) (*dosing.DoseResult, error) {
	var res dosing.DoseResult
	if err := r.client.GenerateJSON(ctx, "calculate_dose", buildDosePrompt(in), tempDose, &res); err != nil {
		return nil, r.fail("calculate_dose", err)
	}
	return &res, nil
}

func (r *Recommender) AssessRisk(ctx context.Context, in dosing.RiskInput) (*dosing.RiskResult, error) {
	var res dosing.RiskResult
	if err := r.client.GenerateJSON(ctx, "assess_risk", buildRiskPrompt(in), tempRecommendations, &res); err != nil {
		return nil, r.fail("assess_risk", err)
	}
	res.PatientID = in.PatientID
	res.Protocol = in.ProtocolName
	res.CycleNumber = in.CycleNumber
	return &res, nil
}

func (r *Recommender) AnalyzeLabs(ctx context.Context, in dosing.LabInput) (*dosing.LabResult, error) {
	var res dosing.LabResult
	if err := r.client.GenerateJSON(ctx, "analyze_labs", buildLabPrompt(in), tempLabs, &res); err != nil {
		return nil, r.fail("analyze_labs", err)
	}
	res.PatientID = in.PatientID
	return &res, nil
}

func (r *Recommender) CheckInteractions(ctx context.Context, in dosing.InteractionInput) (*dosing.InteractionResult, error) {
	var res dosing.InteractionResult
	if err := r.client.GenerateJSON(ctx, "check_interactions", buildInteractionPrompt(in), tempInteractions, &res); err != nil {
		return nil, r.fail("check_interactions", err)
	}
	res.ChemoDrugs = in.ChemoDrugs
	res.CurrentMedications = in.CurrentMedications
	res.InteractionsFound = len(res.Interactions)
	return &res, nil
}

func (r *Recommender) AnalyzeSymptoms(ctx context.Context, req dosing.SymptomRequest) (*dosing.TriageResult, error) {
	var res dosing.TriageResult
	if err := r.client.GenerateJSON(ctx, "analyze_symptoms", buildSymptomPrompt(req), tempSymptoms, &res); err != nil {
		return nil, r.fail("analyze_symptoms", err)
	}
	res.SymptomsAnalyzed = req.Symptoms
	res.ActionRequired = res.ActionRequired || res.AlertLevel == dosing.AlertUrgent
	return &res, nil
}

func (r *Recommender) Recommendations(ctx context.Context, req dosing.RecommendationRequest) (*dosing.RecommendationResult, error) {
	var res dosing.RecommendationResult
	if err := r.client.GenerateJSON(ctx, "recommendations", buildRecommendationPrompt(req), tempRecommendations, &res); err != nil {
		return nil, r.fail("recommendations", err)
	}
	res.PatientID = req.PatientID
	res.Diagnosis = req.Patient.CancerType
	return &res, nil
}

// Chat asks for a structured answer first. If that fails for any reason the
// same prompt is sent once more as plain text and its reply is returned as a
// non-urgent message.
func (r *Recommender) Chat(ctx context.Context, req dosing.ChatRequest) (*dosing.ChatResponse, error) {
	prompt := buildChatPrompt(req)

	var res dosing.ChatResponse
	err := r.client.GenerateJSON(ctx, "chat", prompt+"\n\n"+chatSchema, tempChat, &res)
	if err == nil {
		if res.SuggestedActions == nil {
			res.SuggestedActions = []string{}
		}
		return &res, nil
	}
	r.logger.Info().Err(err).Msg("structured chat failed, falling back to plain text")

	text, err := r.client.Generate(ctx, "chat_fallback", prompt, tempChat, false)
	if err != nil {
		return nil, r.fail("chat", err)
	}
	return &dosing.ChatResponse{
		Message:          strings.TrimSpace(text),
		IsUrgent:         false,
		SuggestedActions: []string{},
	}, nil
}
