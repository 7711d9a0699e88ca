package advisor

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/moinmakda/ChemoCareAI/internal/domain/dosing"
	"github.com/moinmakda/ChemoCareAI/internal/domain/patient"
	"github.com/moinmakda/ChemoCareAI/internal/domain/treatment"
	"github.com/moinmakda/ChemoCareAI/internal/platform/auth"
	"github.com/moinmakda/ChemoCareAI/pkg/apperr"
	"github.com/moinmakda/ChemoCareAI/pkg/validate"
)

type stubPatients struct {
	byID map[uuid.UUID]*patient.Patient
}

func (s *stubPatients) Lookup(_ context.Context, id uuid.UUID) (*patient.Patient, error) {
	if p, ok := s.byID[id]; ok {
		return p, nil
	}
	return nil, apperr.NotFound("Patient")
}

func (s *stubPatients) Mine(ctx context.Context) (*patient.Patient, error) {
	uid := auth.UserIDFromContext(ctx)
	for _, p := range s.byID {
		if p.UserID != nil && *p.UserID == uid {
			return p, nil
		}
	}
	return nil, apperr.New(apperr.ErrNotFound, "Patient profile not found")
}

type stubProtocols struct {
	byID map[uuid.UUID]*treatment.ProtocolTemplate
}

func (s *stubProtocols) GetProtocol(_ context.Context, id uuid.UUID) (*treatment.ProtocolTemplate, error) {
	if t, ok := s.byID[id]; ok {
		return t, nil
	}
	return nil, apperr.NotFound("Protocol template")
}

// downRecommender fails dose calculation the way an unreachable upstream does.
type downRecommender struct {
	*dosing.Local
}

func (downRecommender) Name() string { return "down" }

func (downRecommender) CalculateDose(context.Context, dosing.DoseInput) (*dosing.DoseResult, error) {
	return nil, apperr.New(apperr.ErrUnavailable, "AI service unavailable")
}

type fixture struct {
	svc        *Service
	e          *echo.Echo
	patientID  uuid.UUID
	userID     uuid.UUID
	templateID uuid.UUID
}

func newFixture(rec dosing.Recommender) *fixture {
	f := &fixture{patientID: uuid.New(), userID: uuid.New(), templateID: uuid.New()}
	cancer := "Breast"
	stage := "II"
	patients := &stubPatients{byID: map[uuid.UUID]*patient.Patient{
		f.patientID: {
			ID:                 f.patientID,
			UserID:             &f.userID,
			FirstName:          "Meera",
			Age:                72,
			BSA:                1.8,
			CancerType:         &cancer,
			CancerStage:        &stage,
			Comorbidities:      []string{"Diabetes"},
			CurrentMedications: json.RawMessage(`["Warfarin", {"name": "Metformin"}]`),
		},
	}}
	protocols := &stubProtocols{byID: map[uuid.UUID]*treatment.ProtocolTemplate{
		f.templateID: {
			ID:        f.templateID,
			Name:      "AC",
			CycleDays: 21,
			Drugs: []dosing.DrugSpec{
				{DrugName: "Doxorubicin", DosePerM2: 60, Unit: "mg/m2", Route: "IV", Days: []int{1}},
				{DrugName: "Cyclophosphamide", DosePerM2: 600, Unit: "mg/m2", Route: "IV", Days: []int{1}},
			},
		},
	}}
	f.svc = NewService(rec, patients, protocols, zerolog.Nop(), Options{Provider: "local", Configured: true})
	f.e = echo.New()
	f.e.Validator = validate.New()
	return f
}

func (f *fixture) serve(t *testing.T, method, path, body string, role auth.Role) *httptest.ResponseRecorder {
	t.Helper()
	h := NewHandler(f.svc)
	api := f.e.Group("/api/v1", func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			ctx := auth.WithUser(c.Request().Context(), f.userID, role)
			c.SetRequest(c.Request().WithContext(ctx))
			return next(c)
		}
	})
	h.RegisterRoutes(api)

	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	rec := httptest.NewRecorder()
	f.e.ServeHTTP(rec, req)
	return rec
}

func TestService_GenerateProtocol_UsesTemplateAndPatient(t *testing.T) {
	f := newFixture(dosing.NewLocal())
	res, err := f.svc.GenerateProtocol(context.Background(), &GenerateProtocolRequest{
		PatientID:          f.patientID,
		ProtocolTemplateID: f.templateID,
		RecentLabs:         map[string]float64{"anc": 1200},
	})
	require.NoError(t, err)
	assert.Equal(t, "AC", res.ProtocolName)
	assert.InDelta(t, 1.8, res.PatientBSA, 1e-9)
	require.Len(t, res.Drugs, 2)
	assert.InDelta(t, 108.0, res.Drugs[0].CalculatedDose, 1e-9)
	assert.Contains(t, res.Recommendations, "ANC low - consider delaying treatment")
}

func TestService_GenerateProtocol_NotFound(t *testing.T) {
	f := newFixture(dosing.NewLocal())
	_, err := f.svc.GenerateProtocol(context.Background(), &GenerateProtocolRequest{
		PatientID:          f.patientID,
		ProtocolTemplateID: uuid.New(),
	})
	require.Error(t, err)
	assert.Equal(t, "Protocol template not found", err.Error())

	_, err = f.svc.GenerateProtocol(context.Background(), &GenerateProtocolRequest{
		PatientID:          uuid.New(),
		ProtocolTemplateID: f.templateID,
	})
	require.Error(t, err)
	assert.Equal(t, "Patient not found", err.Error())
}

func TestService_AssessRisk_FromPatientRecord(t *testing.T) {
	f := newFixture(dosing.NewLocal())
	res, err := f.svc.AssessRisk(context.Background(), &RiskRequest{
		PatientID:    f.patientID,
		ProtocolName: "AC",
		CycleNumber:  3,
	})
	require.NoError(t, err)
	assert.Equal(t, f.patientID.String(), res.PatientID)
	assert.Equal(t, 3, res.CycleNumber)

	categories := make([]string, 0, len(res.Risks))
	for _, r := range res.Risks {
		categories = append(categories, r.Category)
	}
	assert.Equal(t, []string{"Age-related", "Comorbidity", "Hematological"}, categories)
}

func TestService_CheckInteractions_FallsBackToPatientMedications(t *testing.T) {
	f := newFixture(dosing.NewLocal())
	res, err := f.svc.CheckInteractions(context.Background(), &InteractionRequest{
		ChemoDrugs: []string{"5-Fluorouracil"},
		PatientID:  &f.patientID,
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"Warfarin", "Metformin"}, res.CurrentMedications)
	require.Equal(t, 1, res.InteractionsFound)
	assert.Equal(t, "high", res.Interactions[0].Severity)
	assert.Equal(t, "Review with pharmacist", res.Recommendation)
}

func TestService_CheckInteractions_ExplicitMedicationsWin(t *testing.T) {
	f := newFixture(dosing.NewLocal())
	res, err := f.svc.CheckInteractions(context.Background(), &InteractionRequest{
		ChemoDrugs:         []string{"5-Fluorouracil"},
		CurrentMedications: []string{"Paracetamol"},
		PatientID:          &f.patientID,
	})
	require.NoError(t, err)
	assert.Zero(t, res.InteractionsFound)
	assert.Equal(t, "No significant interactions found", res.Recommendation)
}

func TestService_Recommendations_DefaultStatus(t *testing.T) {
	f := newFixture(dosing.NewLocal())
	res, err := f.svc.Recommendations(context.Background(), f.patientID, "")
	require.NoError(t, err)
	assert.Equal(t, "Breast", res.Diagnosis)
	assert.Contains(t, res.TreatmentOptions, "Current status: "+DefaultStatus)
	assert.NotEmpty(t, res.RedFlags)
}

func TestService_Chat_UsesOwnRecord(t *testing.T) {
	f := newFixture(dosing.NewLocal())
	ctx := auth.WithUser(context.Background(), f.userID, auth.RolePatient)
	res, err := f.svc.Chat(ctx, &ChatRequest{Message: "I have a fever of 101 since last night"})
	require.NoError(t, err)
	assert.True(t, res.IsUrgent)
	assert.Contains(t, res.Message, "Meera")

	_, err = f.svc.Chat(auth.WithUser(context.Background(), uuid.New(), auth.RolePatient), &ChatRequest{Message: "hi"})
	require.Error(t, err)
	assert.Equal(t, "Patient profile not found", err.Error())
}

func TestService_Health(t *testing.T) {
	f := newFixture(dosing.NewLocal())
	h := f.svc.Health()
	assert.Equal(t, "healthy", h.Status)
	assert.Equal(t, "local", h.Recommender)

	f.svc.opts.Configured = false
	assert.Equal(t, "not_configured", f.svc.Health().Status)
}

func TestHandler_DoseCalculator(t *testing.T) {
	f := newFixture(dosing.NewLocal())
	rec := f.serve(t, http.MethodPost, "/api/v1/ai/dose-calculator",
		`{"drug_name":"Vincristine","dose_per_m2":1.4,"bsa":1.9,"patient_age":50}`, auth.RoleNurse)
	require.Equal(t, http.StatusOK, rec.Code)

	var res dosing.DoseResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
	assert.Equal(t, 2.0, res.Dose)
	assert.Equal(t, []string{"Capped at 2.0mg"}, res.Adjustments)
}

func TestHandler_RecommenderUnavailable(t *testing.T) {
	f := newFixture(downRecommender{dosing.NewLocal()})
	rec := f.serve(t, http.MethodPost, "/api/v1/ai/dose-calculator",
		`{"drug_name":"Cisplatin","dose_per_m2":75,"bsa":1.7,"patient_age":60}`, auth.RoleDoctorOPD)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Contains(t, rec.Body.String(), "AI service unavailable")
}

func TestHandler_RoleGuards(t *testing.T) {
	tests := []struct {
		name         string
		method, path string
		body         string
		role         auth.Role
		want         int
	}{
		{"nurse cannot generate", http.MethodPost, "/api/v1/ai/generate-protocol", `{}`, auth.RoleNurse, http.StatusForbidden},
		{"patient cannot analyze labs", http.MethodPost, "/api/v1/ai/analyze-labs", `{"labs":{"anc":900}}`, auth.RolePatient, http.StatusForbidden},
		{"doctor cannot chat", http.MethodPost, "/api/v1/ai/chat", `{"message":"hello"}`, auth.RoleDoctorOPD, http.StatusForbidden},
		{"health is open", http.MethodGet, "/api/v1/ai/health", "", auth.RolePatient, http.StatusOK},
		{"empty labs rejected", http.MethodPost, "/api/v1/ai/analyze-labs", `{"labs":{}}`, auth.RoleNurse, http.StatusBadRequest},
		{"bad patient id", http.MethodGet, "/api/v1/ai/recommendations/abc", "", auth.RoleNurse, http.StatusBadRequest},
		{"chat needs message", http.MethodPost, "/api/v1/ai/chat", `{}`, auth.RolePatient, http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(dosing.NewLocal())
			rec := f.serve(t, tt.method, tt.path, tt.body, tt.role)
			assert.Equal(t, tt.want, rec.Code, rec.Body.String())
		})
	}
}

func TestHandler_SymptomAnalysis(t *testing.T) {
	f := newFixture(dosing.NewLocal())
	rec := f.serve(t, http.MethodPost, "/api/v1/ai/symptom-analysis",
		`{"symptoms":{"has_fever":true,"has_diarrhea":true,"pain_score":2},"current_treatment":"AC","days_since_last_cycle":9}`,
		auth.RoleDoctorDaycare)
	require.Equal(t, http.StatusOK, rec.Code)

	var res dosing.TriageResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
	assert.InDelta(t, 0.6, res.SeverityScore, 1e-9)
	assert.Equal(t, dosing.AlertMonitor, res.AlertLevel)
	assert.False(t, res.ActionRequired)
}
