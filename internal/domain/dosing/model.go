// Package dosing holds the deterministic dose, risk, and alert rules used by
// the treatment workflow and the recommendation endpoints. Everything here is
// side-effect free.
package dosing

// DrugSpec is one drug line of a protocol template.
type DrugSpec struct {
	DrugName             string   `json:"drug_name" validate:"required"`
	GenericName          *string  `json:"generic_name,omitempty"`
	DosePerM2            float64  `json:"dose_per_m2" validate:"gte=0"`
	Unit                 string   `json:"unit,omitempty"`
	Route                string   `json:"route,omitempty"`
	InfusionDurationMins *int     `json:"infusion_duration_mins,omitempty"`
	Days                 []int    `json:"days,omitempty"`
	Dilution             *string  `json:"dilution,omitempty"`
	SpecialInstructions  *string  `json:"special_instructions,omitempty"`
	MaxLifetimeDose      *float64 `json:"max_lifetime_dose,omitempty"`
	MaxLifetimeDoseM2    *float64 `json:"max_lifetime_dose_m2,omitempty"`
}

// Medication is a pre- or post-medication line.
type Medication struct {
	DrugName string `json:"drug_name"`
	Dose     string `json:"dose"`
	Route    string `json:"route"`
	Timing   string `json:"timing"`
}

type ModificationRule struct {
	Parameter     string   `json:"parameter"`
	Condition     string   `json:"condition"`
	Action        string   `json:"action"`
	DoseReduction *float64 `json:"dose_reduction,omitempty"`
}

// PatientFactors are the patient attributes the rules and prompts consume.
type PatientFactors struct {
	Age           int      `json:"age"`
	Gender        string   `json:"gender,omitempty"`
	HeightCm      *float64 `json:"height_cm,omitempty"`
	WeightKg      *float64 `json:"weight_kg,omitempty"`
	BSA           float64  `json:"bsa"`
	CancerType    string   `json:"cancer_type,omitempty"`
	CancerStage   string   `json:"cancer_stage,omitempty"`
	Comorbidities []string `json:"comorbidities,omitempty"`
}

// -- Protocol generation --

type ProtocolRequest struct {
	TemplateName          string             `json:"template_name"`
	Drugs                 []DrugSpec         `json:"drugs"`
	PreMedications        []Medication       `json:"pre_medications,omitempty"`
	PostMedications       []Medication       `json:"post_medications,omitempty"`
	MonitoringParameters  []string           `json:"monitoring_parameters,omitempty"`
	DoseModificationRules []ModificationRule `json:"dose_modification_rules,omitempty"`
	Patient               PatientFactors     `json:"patient"`
	Labs                  map[string]float64 `json:"recent_labs,omitempty"`
	DoctorNotes           *string            `json:"doctor_notes,omitempty"`
}

// ComputedDrug wraps a template drug with the dose computed for one patient.
type ComputedDrug struct {
	DrugSpec
	CalculatedDose  float64  `json:"calculated_dose" validate:"gte=0"`
	DoseAdjustments []string `json:"dose_adjustments"`
	Warnings        []string `json:"warnings"`
}

type ScheduleEntry struct {
	Day   int     `json:"day" validate:"gte=1"`
	Drug  string  `json:"drug" validate:"required"`
	Dose  float64 `json:"dose"`
	Route string  `json:"route"`
}

type ProtocolRisk struct {
	Risk       string `json:"risk" validate:"required"`
	Severity   string `json:"severity" validate:"oneof=low moderate high critical"`
	Mitigation string `json:"mitigation"`
}

type ProtocolResult struct {
	ProtocolName          string             `json:"protocol_name" validate:"required"`
	PatientBSA            float64            `json:"patient_bsa" validate:"gte=0"`
	Drugs                 []ComputedDrug     `json:"drugs" validate:"required,dive"`
	PreMedications        []Medication       `json:"pre_medications"`
	PostMedications       []Medication       `json:"post_medications"`
	Schedule              []ScheduleEntry    `json:"schedule" validate:"dive"`
	Recommendations       []string           `json:"ai_recommendations"`
	RiskAssessment        []ProtocolRisk     `json:"ai_risk_assessment" validate:"dive"`
	ConfidenceScore       float64            `json:"ai_confidence_score" validate:"gte=0,lte=1"`
	RequiredMonitoring    []string           `json:"required_monitoring"`
	DoseModificationRules []ModificationRule `json:"dose_modification_rules"`
}

// -- Dose calculation --

type DoseInput struct {
	DrugName      string   `json:"drug_name" validate:"required"`
	DosePerM2     float64  `json:"dose_per_m2" validate:"gte=0"`
	BSA           float64  `json:"bsa" validate:"gte=0"`
	PatientAge    int      `json:"patient_age" validate:"gte=0"`
	RenalFunction *float64 `json:"renal_function,omitempty"`
	LiverFunction *float64 `json:"liver_function,omitempty"`
}

type DoseResult struct {
	Dose        float64  `json:"dose" validate:"gte=0"`
	Unit        string   `json:"unit" validate:"required"`
	Adjustments []string `json:"adjustments"`
	Warnings    []string `json:"warnings"`
}

// -- Risk assessment --

type RiskInput struct {
	PatientID    string         `json:"patient_id"`
	ProtocolName string         `json:"protocol_name"`
	CycleNumber  int            `json:"cycle_number"`
	Patient      PatientFactors `json:"patient"`
}

type RiskFactor struct {
	Category        string   `json:"category"`
	Risk            string   `json:"risk" validate:"required"`
	Probability     float64  `json:"probability" validate:"gte=0,lte=1"`
	Severity        string   `json:"severity" validate:"oneof=low moderate high critical"`
	Recommendations []string `json:"recommendations"`
}

type RiskResult struct {
	PatientID        string       `json:"patient_id"`
	Protocol         string       `json:"protocol"`
	CycleNumber      int          `json:"cycle_number"`
	OverallRiskScore float64      `json:"overall_risk_score" validate:"gte=0,lte=1"`
	Risks            []RiskFactor `json:"risks" validate:"dive"`
	Recommendations  []string     `json:"recommendations"`
}

// -- Lab analysis --

type LabInput struct {
	PatientID       string             `json:"patient_id"`
	Labs            map[string]float64 `json:"labs"`
	PlannedProtocol string             `json:"planned_protocol,omitempty"`
	PlannedDrugs    []string           `json:"planned_drugs,omitempty"`
}

type LabFinding struct {
	Parameter   string  `json:"parameter" validate:"required"`
	Value       float64 `json:"value"`
	Unit        string  `json:"unit"`
	Status      string  `json:"status" validate:"oneof=normal low high critical"`
	NormalRange string  `json:"normal_range"`
}

type LabResult struct {
	PatientID       string       `json:"patient_id"`
	AnalysisResults []LabFinding `json:"analysis_results" validate:"dive"`
	FitForTreatment bool         `json:"fit_for_treatment"`
	CriticalFlags   []string     `json:"critical_flags"`
	Recommendations []string     `json:"recommendations"`
}

// -- Drug interactions --

type InteractionInput struct {
	ChemoDrugs         []string `json:"chemo_drugs"`
	CurrentMedications []string `json:"current_medications"`
}

type Interaction struct {
	Drugs          []string `json:"drugs" validate:"len=2"`
	Severity       string   `json:"severity" validate:"oneof=low moderate high critical"`
	Effect         string   `json:"effect"`
	Recommendation string   `json:"recommendation"`
}

type InteractionResult struct {
	ChemoDrugs         []string      `json:"chemo_drugs"`
	CurrentMedications []string      `json:"current_medications"`
	InteractionsFound  int           `json:"interactions_found" validate:"gte=0"`
	Interactions       []Interaction `json:"interactions" validate:"dive"`
	Recommendation     string        `json:"recommendation"`
}

// -- Symptoms and vitals --

// SymptomInput is a symptom diary entry as seen by the triage rules.
type SymptomInput struct {
	NauseaScore     int  `json:"nausea_score,omitempty" validate:"gte=0,lte=10"`
	FatigueScore    int  `json:"fatigue_score,omitempty" validate:"gte=0,lte=10"`
	PainScore       int  `json:"pain_score,omitempty" validate:"gte=0,lte=10"`
	AppetiteScore   int  `json:"appetite_score,omitempty" validate:"gte=0,lte=10"`
	VomitingCount   int  `json:"vomiting_count,omitempty" validate:"gte=0"`
	HasFever        bool `json:"has_fever,omitempty"`
	HasMouthSores   bool `json:"has_mouth_sores,omitempty"`
	HasDiarrhea     bool `json:"has_diarrhea,omitempty"`
	HasConstipation bool `json:"has_constipation,omitempty"`
	HasNumbness     bool `json:"has_numbness,omitempty"`
	HasHairLoss     bool `json:"has_hair_loss,omitempty"`
	HasSkinChanges  bool `json:"has_skin_changes,omitempty"`
}

type SymptomRequest struct {
	Symptoms           SymptomInput `json:"symptoms"`
	CurrentTreatment   string       `json:"current_treatment,omitempty"`
	DaysSinceLastCycle int          `json:"days_since_last_cycle,omitempty"`
	PatientHistory     *string      `json:"patient_history,omitempty"`
}

type SymptomAlert struct {
	Type     string `json:"type" validate:"required"`
	Severity string `json:"severity" validate:"oneof=low moderate high critical"`
	Message  string `json:"message"`
}

// Alert levels produced by TriageSymptoms.
const (
	AlertNormal  = "normal"
	AlertMonitor = "monitor"
	AlertUrgent  = "urgent"
)

type TriageResult struct {
	SymptomsAnalyzed SymptomInput   `json:"symptoms_analyzed"`
	SeverityScore    float64        `json:"severity_score" validate:"gte=0"`
	AlertLevel       string         `json:"alert_level" validate:"oneof=normal monitor urgent"`
	Alerts           []SymptomAlert `json:"alerts" validate:"dive"`
	Recommendations  []string       `json:"recommendations"`
	ActionRequired   bool           `json:"action_required"`
}

type VitalInput struct {
	TemperatureF     *float64 `json:"temperature_f,omitempty"`
	PulseBPM         *int     `json:"pulse_bpm,omitempty"`
	BPSystolic       *int     `json:"bp_systolic,omitempty"`
	BPDiastolic      *int     `json:"bp_diastolic,omitempty"`
	OxygenSaturation *float64 `json:"oxygen_saturation,omitempty"`
}

type VitalAlert struct {
	Type     string `json:"type"`
	Message  string `json:"message"`
	Severity string `json:"severity"`
}

// -- Recommendations and chat --

type RecommendationRequest struct {
	PatientID     string         `json:"patient_id"`
	Patient       PatientFactors `json:"patient"`
	CurrentStatus string         `json:"current_status"`
}

type RecommendationResult struct {
	PatientID              string   `json:"patient_id"`
	Diagnosis              string   `json:"diagnosis"`
	TreatmentOptions       []string `json:"treatment_options"`
	SupportiveCare         []string `json:"supportive_care"`
	LifestyleModifications []string `json:"lifestyle_modifications"`
	Monitoring             []string `json:"monitoring"`
	RedFlags               []string `json:"red_flags"`
	References             []string `json:"references"`
}

type ChatMessage struct {
	Role    string `json:"role" validate:"oneof=user assistant"`
	Content string `json:"content"`
}

type ChatRequest struct {
	PatientName      string        `json:"patient_name"`
	Diagnosis        *string       `json:"diagnosis,omitempty"`
	CurrentTreatment *string       `json:"current_treatment,omitempty"`
	Message          string        `json:"message"`
	History          []ChatMessage `json:"conversation_history,omitempty"`
}

type ChatResponse struct {
	Message               string   `json:"message" validate:"required"`
	IsUrgent              bool     `json:"is_urgent"`
	SuggestedActions      []string `json:"suggested_actions"`
	ShouldContactCareTeam bool     `json:"should_contact_care_team"`
	SymptomSeverity       *string  `json:"symptom_severity,omitempty" validate:"omitempty,oneof=low moderate high critical"`
}
