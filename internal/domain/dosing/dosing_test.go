package dosing

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ptr[T any](v T) *T { return &v }

func TestBSA(t *testing.T) {
	assert.Equal(t, 1.79, BSA(ptr(170.0), ptr(68.0)))
	assert.Equal(t, 2.0, BSA(ptr(180.0), ptr(80.0)))
	assert.Equal(t, 0.0, BSA(nil, ptr(70.0)))
	assert.Equal(t, 0.0, BSA(ptr(170.0), nil))
	assert.Equal(t, 0.0, BSA(ptr(0.0), ptr(70.0)))
}

func TestAge(t *testing.T) {
	dob := time.Date(2000, 6, 15, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, 23, Age(dob, time.Date(2024, 6, 14, 0, 0, 0, 0, time.UTC)))
	assert.Equal(t, 24, Age(dob, time.Date(2024, 6, 15, 0, 0, 0, 0, time.UTC)))
	assert.Equal(t, 23, Age(dob, time.Date(2024, 5, 30, 0, 0, 0, 0, time.UTC)))
}

func TestCalculateDose_VincristineCap(t *testing.T) {
	res := CalculateDose(DoseInput{DrugName: "Vincristine", DosePerM2: 2, BSA: 2, PatientAge: 40})

	assert.Equal(t, 2.0, res.Dose)
	assert.Equal(t, "mg", res.Unit)
	assert.Equal(t, []string{"Capped at 2.0mg"}, res.Adjustments)
	assert.Empty(t, res.Warnings)
}

func TestCalculateDose_BelowCap(t *testing.T) {
	res := CalculateDose(DoseInput{DrugName: "bleomycin", DosePerM2: 10, BSA: 1.8})
	assert.Equal(t, 18.0, res.Dose)
	assert.Empty(t, res.Adjustments)
}

func TestCalculateDose_AdvisoriesDoNotChangeDose(t *testing.T) {
	res := CalculateDose(DoseInput{
		DrugName:      "cisplatin",
		DosePerM2:     75,
		BSA:           1.7,
		PatientAge:    74,
		RenalFunction: ptr(1.9),
		LiverFunction: ptr(3.0),
	})

	assert.Equal(t, 127.5, res.Dose)
	assert.Equal(t, []string{
		"Consider 20% reduction for elderly patient",
		"Dose reduction recommended for renal impairment",
	}, res.Adjustments)
	assert.Equal(t, []string{
		"Increased toxicity risk in elderly",
		"Monitor renal function closely",
	}, res.Warnings)
}

func TestCalculateDose_Hepatic(t *testing.T) {
	res := CalculateDose(DoseInput{DrugName: "Paclitaxel", DosePerM2: 175, BSA: 1.6, LiverFunction: ptr(2.5)})
	assert.Equal(t, 280.0, res.Dose)
	assert.Equal(t, []string{"Dose reduction recommended for hepatic impairment"}, res.Adjustments)
	assert.Equal(t, []string{"Monitor liver function closely"}, res.Warnings)
}

func TestCalculateDose_UnknownDrugIsNoop(t *testing.T) {
	res := CalculateDose(DoseInput{DrugName: "imaginarumab", DosePerM2: 100, BSA: 1.5, RenalFunction: ptr(5.0)})
	assert.Equal(t, 150.0, res.Dose)
	assert.Empty(t, res.Adjustments)
	assert.Empty(t, res.Warnings)
}

func chopTemplate() ProtocolRequest {
	return ProtocolRequest{
		TemplateName: "R-CHOP",
		Drugs: []DrugSpec{
			{DrugName: "Rituximab", DosePerM2: 375, Route: "IV", Days: []int{1}},
			{DrugName: "Doxorubicin", DosePerM2: 50, Route: "IV", Days: []int{1}},
			{DrugName: "Vincristine", DosePerM2: 1.4, Route: "IV", Days: []int{1}},
			{DrugName: "Prednisone", DosePerM2: 100, Route: "PO", Days: []int{5, 1, 2, 3, 4}},
			{DrugName: "Epirubicin", DosePerM2: 10, Route: "IV"},
		},
		Patient: PatientFactors{Age: 72, BSA: 1.8},
	}
}

func TestGenerateProtocol_DosesAndWarnings(t *testing.T) {
	res := GenerateProtocol(chopTemplate())

	require.Len(t, res.Drugs, 5)
	assert.Equal(t, 675.0, res.Drugs[0].CalculatedDose)
	assert.Equal(t, 2.0, res.Drugs[2].CalculatedDose)
	assert.Equal(t, []string{
		"Capped at 2mg (maximum dose)",
		"Consider 20% dose reduction for age >70",
	}, res.Drugs[2].DoseAdjustments)
	assert.Equal(t, []string{"Elderly patient - monitor closely for toxicity"}, res.Drugs[0].Warnings)
	assert.Equal(t, "Vincristine", res.Drugs[2].DrugName)
	assert.Equal(t, LocalConfidence, res.ConfidenceScore)
	assert.Equal(t, 1.8, res.PatientBSA)
}

func TestGenerateProtocol_ScheduleStableByDay(t *testing.T) {
	res := GenerateProtocol(chopTemplate())

	var day1 []string
	for _, e := range res.Schedule {
		if e.Day == 1 {
			day1 = append(day1, e.Drug)
		}
	}
	assert.Equal(t, []string{"Rituximab", "Doxorubicin", "Vincristine", "Prednisone", "Epirubicin"}, day1)
	assert.Len(t, res.Schedule, 9)
	for i := 1; i < len(res.Schedule); i++ {
		assert.LessOrEqual(t, res.Schedule[i-1].Day, res.Schedule[i].Day)
	}
	assert.Equal(t, 5, res.Schedule[len(res.Schedule)-1].Day)
}

func TestGenerateProtocol_RuleOrder(t *testing.T) {
	req := chopTemplate()
	req.Drugs = append(req.Drugs, DrugSpec{DrugName: "Bleomycin", DosePerM2: 10, Days: []int{1}})
	req.Labs = map[string]float64{"anc": 1200, "platelets": 90000}

	res := GenerateProtocol(req)

	assert.Equal(t, []string{
		"Baseline echocardiogram recommended (cardiotoxic agent)",
		"Baseline PFTs recommended (Bleomycin)",
		"ANC low - consider delaying treatment",
		"Platelets low - consider dose reduction",
		"Ensure adequate hydration before and during treatment",
		"Pre-medication with antiemetics as per protocol",
		"Patient education on side effects and when to seek help",
	}, res.Recommendations)

	risks := make([]string, 0, len(res.RiskAssessment))
	for _, r := range res.RiskAssessment {
		risks = append(risks, r.Risk)
	}
	assert.Equal(t, []string{"Cardiotoxicity", "Pulmonary toxicity", "Neutropenia", "Thrombocytopenia"}, risks)
}

func TestGenerateProtocol_DefaultLabsRaiseNothing(t *testing.T) {
	req := ProtocolRequest{
		TemplateName: "FOLFOX",
		Drugs:        []DrugSpec{{DrugName: "Oxaliplatin", DosePerM2: 85}},
		Patient:      PatientFactors{Age: 50, BSA: 1.7},
	}
	res := GenerateProtocol(req)

	assert.Len(t, res.Recommendations, 3)
	assert.Empty(t, res.RiskAssessment)
	assert.Equal(t, []ScheduleEntry{{Day: 1, Drug: "Oxaliplatin", Dose: 85}}, res.Schedule)
	assert.NotNil(t, res.PreMedications)
}

func TestAssessRisk_NeutropeniaBoundary(t *testing.T) {
	res := AssessRisk(RiskInput{CycleNumber: 6})
	require.Len(t, res.Risks, 1)
	assert.Equal(t, 0.5, res.Risks[0].Probability)
	assert.Equal(t, "high", res.Risks[0].Severity)

	res = AssessRisk(RiskInput{CycleNumber: 2})
	assert.Equal(t, 0.3, res.Risks[0].Probability)
	assert.Equal(t, "moderate", res.Risks[0].Severity)

	res = AssessRisk(RiskInput{CycleNumber: 12})
	assert.Equal(t, 0.5, res.Risks[0].Probability)
}

func TestAssessRisk_AgeAndComorbidities(t *testing.T) {
	res := AssessRisk(RiskInput{
		PatientID:    "p1",
		ProtocolName: "AC-T",
		CycleNumber:  1,
		Patient:      PatientFactors{Age: 68, Comorbidities: []string{"Type 2 Diabetes", "HYPERTENSION"}},
	})

	require.Len(t, res.Risks, 4)
	assert.Equal(t, "Age-related", res.Risks[0].Category)
	assert.Equal(t, "Steroid-induced hyperglycemia", res.Risks[1].Risk)
	assert.Equal(t, "low", res.Risks[2].Severity)
	assert.InDelta(t, (0.35+0.6+0.4+0.25)/4, res.OverallRiskScore, 1e-9)
	assert.Len(t, res.Recommendations, 3)
	assert.Equal(t, "AC-T", res.Protocol)
}

func TestAnalyzeLabs(t *testing.T) {
	res := AnalyzeLabs(LabInput{
		PatientID: "p1",
		Labs: map[string]float64{
			"creatinine": 1.6,
			"anc":        1200,
			"hemoglobin": 11,
			"platelets":  90000,
			"ldh":        300,
		},
	})

	assert.False(t, res.FitForTreatment)
	assert.Equal(t, []string{"Low anc", "Low platelets", "High creatinine"}, res.CriticalFlags)
	assert.Equal(t, []string{
		"Consider delaying treatment until values improve",
		"ANC < 1500: High risk of neutropenic complications",
		"Platelets < 100,000: Risk of bleeding",
		"Renal impairment: Consider dose adjustments for renally cleared drugs",
	}, res.Recommendations)

	require.Len(t, res.AnalysisResults, 4)
	assert.Equal(t, "hemoglobin", res.AnalysisResults[0].Parameter)
	assert.Equal(t, "low", res.AnalysisResults[0].Status)
	assert.Equal(t, "12.0-16.0", res.AnalysisResults[0].NormalRange)
	assert.Equal(t, "creatinine", res.AnalysisResults[3].Parameter)
}

func TestAnalyzeLabs_CaseInsensitive(t *testing.T) {
	res := AnalyzeLabs(LabInput{Labs: map[string]float64{"ANC": 900, "Bilirubin": 0.5}})

	assert.False(t, res.FitForTreatment)
	assert.Equal(t, []string{"Low anc"}, res.CriticalFlags)
	assert.Equal(t, "ANC", res.AnalysisResults[0].Parameter)
	assert.Equal(t, "normal", res.AnalysisResults[1].Status)
}

func TestAnalyzeLabs_AllNormal(t *testing.T) {
	res := AnalyzeLabs(LabInput{Labs: map[string]float64{"wbc": 6000}})
	assert.True(t, res.FitForTreatment)
	assert.Empty(t, res.CriticalFlags)
	assert.Empty(t, res.Recommendations)
}

func TestCheckInteractions_MethotrexateIbuprofen(t *testing.T) {
	res := CheckInteractions(InteractionInput{
		ChemoDrugs:         []string{"Methotrexate"},
		CurrentMedications: []string{"Ibuprofen"},
	})

	require.Equal(t, 1, res.InteractionsFound)
	assert.Equal(t, "high", res.Interactions[0].Severity)
	assert.Equal(t, []string{"methotrexate", "ibuprofen"}, res.Interactions[0].Drugs)
	assert.Equal(t, "Review with pharmacist", res.Recommendation)
}

func TestCheckInteractions_ChemoPairAndReverse(t *testing.T) {
	res := CheckInteractions(InteractionInput{
		ChemoDrugs:         []string{"doxorubicin", "trastuzumab", "warfarin"},
		CurrentMedications: []string{"5-fluorouracil"},
	})
	assert.Equal(t, 2, res.InteractionsFound)
	assert.Equal(t, "5-fluorouracil", res.Interactions[0].Drugs[0])
	assert.Equal(t, "moderate", res.Interactions[1].Severity)
}

func TestCheckInteractions_None(t *testing.T) {
	res := CheckInteractions(InteractionInput{ChemoDrugs: []string{"oxaliplatin"}})
	assert.Zero(t, res.InteractionsFound)
	assert.NotNil(t, res.Interactions)
	assert.NotNil(t, res.CurrentMedications)
	assert.Equal(t, "No significant interactions found", res.Recommendation)
}

func TestTriageSymptoms(t *testing.T) {
	res := TriageSymptoms(SymptomInput{HasFever: true, NauseaScore: 8})
	assert.Equal(t, 0.7, res.SeverityScore)
	assert.Equal(t, AlertUrgent, res.AlertLevel)
	assert.True(t, res.ActionRequired)
	assert.Len(t, res.Alerts, 2)

	res = TriageSymptoms(SymptomInput{HasDiarrhea: true, HasMouthSores: true})
	assert.Equal(t, 0.35, res.SeverityScore)
	assert.Equal(t, AlertMonitor, res.AlertLevel)
	assert.False(t, res.ActionRequired)
	assert.Empty(t, res.Alerts)
	assert.Len(t, res.Recommendations, 2)

	res = TriageSymptoms(SymptomInput{FatigueScore: 8})
	assert.Equal(t, 0.2, res.SeverityScore)
	assert.Equal(t, AlertNormal, res.AlertLevel)

	res = TriageSymptoms(SymptomInput{PainScore: 7})
	assert.Equal(t, AlertNormal, res.AlertLevel)
}

func TestTriageSymptoms_BoundariesUseRoundedScore(t *testing.T) {
	res := TriageSymptoms(SymptomInput{HasFever: true, HasDiarrhea: true})
	assert.Equal(t, 0.6, res.SeverityScore)
	assert.Equal(t, AlertMonitor, res.AlertLevel)
	assert.False(t, res.ActionRequired)

	res = TriageSymptoms(SymptomInput{NauseaScore: 7})
	assert.Equal(t, 0.3, res.SeverityScore)
	assert.Equal(t, AlertNormal, res.AlertLevel)
}

func TestVitalAlerts_Independent(t *testing.T) {
	alerts := VitalAlerts(VitalInput{
		TemperatureF:     ptr(101.0),
		BPSystolic:       ptr(150),
		OxygenSaturation: ptr(92.0),
		PulseBPM:         ptr(110),
	}, false)

	types := make([]string, 0, len(alerts))
	for _, a := range alerts {
		types = append(types, a.Type)
	}
	assert.Equal(t, []string{"fever", "bp_high", "low_spo2", "abnormal_hr"}, types)
	assert.Equal(t, "Fever detected", alerts[0].Message)
	assert.True(t, HasCritical(alerts))
}

func TestVitalAlerts_SelfReportedHighFever(t *testing.T) {
	alerts := VitalAlerts(VitalInput{TemperatureF: ptr(102.0)}, true)

	require.Len(t, alerts, 2)
	assert.Equal(t, "Fever detected - please contact your care team", alerts[0].Message)
	assert.Equal(t, "high_fever", alerts[1].Type)
	assert.Equal(t, SeverityCritical, alerts[1].Severity)
}

func TestVitalAlerts_Normal(t *testing.T) {
	alerts := VitalAlerts(VitalInput{TemperatureF: ptr(98.6), PulseBPM: ptr(72), OxygenSaturation: ptr(98.0)}, false)
	assert.Empty(t, alerts)
	assert.False(t, HasCritical(alerts))
}

func TestLocal_ImplementsRecommender(t *testing.T) {
	var r Recommender = NewLocal()
	assert.Equal(t, "local", r.Name())

	dose, err := r.CalculateDose(context.Background(), DoseInput{DrugName: "vincristine", DosePerM2: 2, BSA: 2})
	require.NoError(t, err)
	assert.Equal(t, 2.0, dose.Dose)

	triage, err := r.AnalyzeSymptoms(context.Background(), SymptomRequest{Symptoms: SymptomInput{HasFever: true, NauseaScore: 8}})
	require.NoError(t, err)
	assert.Equal(t, AlertUrgent, triage.AlertLevel)
}

func TestLocal_Recommendations(t *testing.T) {
	res, err := NewLocal().Recommendations(context.Background(), RecommendationRequest{
		PatientID: "p1",
		Patient:   PatientFactors{Age: 70, CancerType: "Breast", CancerStage: "II", Comorbidities: []string{"diabetes"}},
	})
	require.NoError(t, err)

	assert.Equal(t, "Breast", res.Diagnosis)
	assert.Equal(t, "Continue the approved protocol for Breast, stage II", res.TreatmentOptions[0])
	assert.Contains(t, res.SupportiveCare, "Monitor blood glucose")
	assert.Contains(t, res.Monitoring, "Closer monitoring")
	assert.Len(t, res.RedFlags, len(RedFlags))
}

func TestLocal_Chat(t *testing.T) {
	l := NewLocal()

	res, err := l.Chat(context.Background(), ChatRequest{PatientName: "Asha", Message: "I have a fever since last night"})
	require.NoError(t, err)
	assert.True(t, res.IsUrgent)
	assert.True(t, res.ShouldContactCareTeam)
	require.NotNil(t, res.SymptomSeverity)

	res, err = l.Chat(context.Background(), ChatRequest{PatientName: "Asha", Message: "How can I sleep better?"})
	require.NoError(t, err)
	assert.False(t, res.IsUrgent)
	assert.Contains(t, res.Message, "Asha")
}
