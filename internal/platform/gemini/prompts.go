package gemini

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/moinmakda/ChemoCareAI/internal/domain/dosing"
)

// Sampling temperatures per operation. Calculations run cold, conversation warm.
const (
	tempProtocol        = 0.3
	tempDose            = 0.1
	tempInteractions    = 0.2
	tempLabs            = 0.2
	tempSymptoms        = 0.3
	tempRecommendations = 0.4
	tempChat            = 0.7
)

// chatHistoryWindow is how many prior chat turns are sent with a message.
const chatHistoryWindow = 5

const protocolSchema = `Return ONLY valid JSON with this schema:
{
  "protocol_name": string,
  "patient_bsa": number,
  "drugs": [{"drug_name": string, "dose_per_m2": number, "unit": string, "route": string, "days": number[],
             "calculated_dose": number, "dose_adjustments": string[], "warnings": string[]}],
  "pre_medications": [{"drug_name": string, "dose": string, "route": string, "timing": string}],
  "post_medications": [{"drug_name": string, "dose": string, "route": string, "timing": string}],
  "schedule": [{"day": number (>= 1), "drug": string, "dose": number, "route": string}],
  "ai_recommendations": string[],
  "ai_risk_assessment": [{"risk": string, "severity": "low"|"moderate"|"high"|"critical", "mitigation": string}],
  "ai_confidence_score": number (0.0 to 1.0),
  "required_monitoring": string[],
  "dose_modification_rules": [{"parameter": string, "condition": string, "action": string, "dose_reduction": number}]
}`

const doseSchema = `Return ONLY valid JSON with this schema:
{"dose": number, "unit": string, "adjustments": string[], "warnings": string[]}`

const riskSchema = `Return ONLY valid JSON with this schema:
{
  "overall_risk_score": number (0.0 to 1.0),
  "risks": [{"category": string, "risk": string, "probability": number (0.0 to 1.0),
             "severity": "low"|"moderate"|"high"|"critical", "recommendations": string[]}],
  "recommendations": string[]
}`

const labSchema = `Return ONLY valid JSON with this schema:
{
  "analysis_results": [{"parameter": string, "value": number, "unit": string,
                        "status": "normal"|"low"|"high"|"critical", "normal_range": string}],
  "fit_for_treatment": boolean,
  "critical_flags": string[],
  "recommendations": string[]
}`

const interactionSchema = `Return ONLY valid JSON with this schema:
{
  "interactions_found": number,
  "interactions": [{"drugs": [string, string], "severity": "low"|"moderate"|"high"|"critical",
                    "effect": string, "recommendation": string}],
  "recommendation": string
}`

const symptomSchema = `Return ONLY valid JSON with this schema:
{
  "severity_score": number (>= 0),
  "alert_level": "normal"|"monitor"|"urgent",
  "alerts": [{"type": string, "severity": "low"|"moderate"|"high"|"critical", "message": string}],
  "recommendations": string[],
  "action_required": boolean
}`

const recommendationSchema = `Return ONLY valid JSON with this schema:
{
  "treatment_options": string[],
  "supportive_care": string[],
  "lifestyle_modifications": string[],
  "monitoring": string[],
  "red_flags": string[],
  "references": string[]
}`

const chatSchema = `Return ONLY valid JSON with this schema:
{
  "message": string,
  "is_urgent": boolean,
  "suggested_actions": string[],
  "should_contact_care_team": boolean,
  "symptom_severity": "low"|"moderate"|"high"|"critical" or null
}`

func orUnknown(s string) string {
	if strings.TrimSpace(s) == "" {
		return "Unknown"
	}
	return s
}

func optional(s *string, fallback string) string {
	if s == nil || strings.TrimSpace(*s) == "" {
		return fallback
	}
	return *s
}

func listOrNone(items []string) string {
	if len(items) == 0 {
		return "None reported"
	}
	return strings.Join(items, ", ")
}

func toJSON(v interface{}) string {
	b, err := json.Marshal(v)
	if err != nil {
		return "{}"
	}
	return string(b)
}

func floatOrUnknown(v *float64) string {
	if v == nil {
		return "Unknown"
	}
	return fmt.Sprintf("%g", *v)
}

func buildProtocolPrompt(req dosing.ProtocolRequest) string {
	p := req.Patient
	return fmt.Sprintf(`You are an expert oncology clinical decision support system. Generate a personalized
chemotherapy protocol recommendation based on the following patient information.

PATIENT INFORMATION:
- Age: %d
- Gender: %s
- Weight: %s kg
- Height: %s cm
- BSA: %.2f m²

DIAGNOSIS:
- Cancer Type: %s
- Stage: %s

PROTOCOL TEMPLATE: %s
BASE DRUGS: %s

RECENT LAB VALUES:
%s

COMORBIDITIES: %s

DOCTOR'S NOTES: %s

Calculate doses from BSA, apply adjustments for age, organ function and comorbidities,
identify risks with mitigations, list pre- and post-medications, build the day schedule,
list required monitoring and give your confidence score. Apply NCCN, ESMO and ASCO guidance.
For patients over 70 consider dose reductions. Flag any concerning lab values.

%s`,
		p.Age, orUnknown(p.Gender), floatOrUnknown(p.WeightKg), floatOrUnknown(p.HeightCm), p.BSA,
		orUnknown(p.CancerType), orUnknown(p.CancerStage),
		req.TemplateName, toJSON(req.Drugs), toJSON(req.Labs),
		listOrNone(p.Comorbidities), optional(req.DoctorNotes, "None"),
		protocolSchema)
}

func buildDosePrompt(in dosing.DoseInput) string {
	return fmt.Sprintf(`You are an expert oncology pharmacist. Calculate the appropriate dose for the following
chemotherapy drug considering all patient factors.

DRUG: %s
STANDARD DOSE: %g mg/m²
PATIENT BSA: %g m²

PATIENT FACTORS:
- Age: %d years
- Renal Function (creatinine): %s
- Hepatic Function (bilirubin): %s

Consider the BSA calculation, drug-specific caps (e.g. Vincristine max 2mg), age over 70,
and renal and hepatic adjustments.

%s`,
		in.DrugName, in.DosePerM2, in.BSA, in.PatientAge,
		floatOrUnknown(in.RenalFunction), floatOrUnknown(in.LiverFunction), doseSchema)
}

func buildRiskPrompt(in dosing.RiskInput) string {
	p := in.Patient
	return fmt.Sprintf(`You are an expert oncology clinical decision support system. Assess the treatment risks
for this patient.

PATIENT: age %d, gender %s, diagnosis %s (stage %s)
COMORBIDITIES: %s
PROTOCOL: %s
CURRENT CYCLE: %d

Consider age-related toxicity, comorbidity interactions, cycle-dependent haematological risk
and protocol-specific toxicities. Give each risk a probability between 0 and 1.

%s`,
		p.Age, orUnknown(p.Gender), orUnknown(p.CancerType), orUnknown(p.CancerStage),
		listOrNone(p.Comorbidities), orUnknown(in.ProtocolName), in.CycleNumber, riskSchema)
}

func buildLabPrompt(in dosing.LabInput) string {
	return fmt.Sprintf(`You are an expert oncologist evaluating a patient's fitness for chemotherapy treatment.
Analyze the following lab values in the context of the planned treatment.

PLANNED PROTOCOL: %s
PLANNED DRUGS: %s

LAB VALUES:
%s

Evaluate each value against standard chemotherapy thresholds, drug-specific requirements,
bone marrow reserve, organ function and infection risk. Decide overall treatment fitness.

%s`,
		orUnknown(in.PlannedProtocol), listOrNone(in.PlannedDrugs), toJSON(in.Labs), labSchema)
}

func buildInteractionPrompt(in dosing.InteractionInput) string {
	return fmt.Sprintf(`You are an expert clinical pharmacologist specializing in oncology. Analyze the following
drug combinations for potential interactions.

CHEMOTHERAPY DRUGS:
%s

CONCURRENT MEDICATIONS:
%s

Check chemo-chemo and chemo-medication pairs for pharmacokinetic (CYP450, P-gp) and
pharmacodynamic (additive toxicity) interactions.

%s`,
		listOrNone(in.ChemoDrugs), listOrNone(in.CurrentMedications), interactionSchema)
}

func buildSymptomPrompt(req dosing.SymptomRequest) string {
	return fmt.Sprintf(`You are an expert oncology nurse practitioner evaluating patient-reported symptoms
during chemotherapy treatment.

CURRENT TREATMENT: %s
DAYS SINCE LAST CYCLE: %d

REPORTED SYMPTOMS:
%s

PATIENT HISTORY: %s

Consider expected side effects, timing relative to the nadir, and signs of serious
complications such as febrile neutropenia. Decide whether immediate attention is needed.

%s`,
		orUnknown(req.CurrentTreatment), req.DaysSinceLastCycle, toJSON(req.Symptoms),
		optional(req.PatientHistory, "Not provided"), symptomSchema)
}

func buildRecommendationPrompt(req dosing.RecommendationRequest) string {
	return fmt.Sprintf(`You are an expert oncology clinical decision support system. Provide treatment
recommendations based on the following patient information.

PATIENT INFORMATION:
%s

DIAGNOSIS: %s
CURRENT STATUS: %s

Provide treatment approaches, supportive care, lifestyle modifications, monitoring and red
flags to watch for. Base them on NCCN, ESMO and ASCO guidelines where applicable.

%s`,
		toJSON(req.Patient), orUnknown(req.Patient.CancerType), orUnknown(req.CurrentStatus), recommendationSchema)
}

func buildChatPrompt(req dosing.ChatRequest) string {
	history := req.History
	if len(history) > chatHistoryWindow {
		history = history[len(history)-chatHistoryWindow:]
	}
	var b strings.Builder
	for _, m := range history {
		role := "Assistant"
		if m.Role == "user" {
			role = "Patient"
		}
		fmt.Fprintf(&b, "%s: %s\n", role, m.Content)
	}
	historyText := b.String()
	if historyText == "" {
		historyText = "This is the start of the conversation"
	}

	return fmt.Sprintf(`You are ChemoCare AI, a compassionate assistant for cancer patients undergoing
chemotherapy. Be warm and supportive while watching for symptoms that need medical attention.

PATIENT CONTEXT:
- Name: %s
- Diagnosis: %s
- Current Treatment: %s

CONVERSATION HISTORY:
%s

PATIENT MESSAGE:
%s

Never diagnose or prescribe. Keep the answer to two or three short paragraphs in plain
language. Mark the message urgent and advise contacting the care team if the patient
mentions any of: %s.`,
		orUnknown(req.PatientName), optional(req.Diagnosis, "Not specified"),
		optional(req.CurrentTreatment, "Not specified"), historyText, req.Message,
		strings.Join(dosing.RedFlags, "; "))
}
