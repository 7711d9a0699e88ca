package dosing

import (
	"sort"
	"strings"
)

type comorbidityRisk struct {
	term            string
	risk            string
	probability     float64
	severity        string
	recommendations []string
}

var comorbidityRisks = []comorbidityRisk{
	{
		term:            "diabetes",
		risk:            "Steroid-induced hyperglycemia",
		probability:     0.6,
		severity:        "moderate",
		recommendations: []string{"Monitor blood glucose", "Adjust diabetes medications"},
	},
	{
		term:            "hypertension",
		risk:            "Blood pressure fluctuations",
		probability:     0.4,
		severity:        "low",
		recommendations: []string{"Regular BP monitoring", "Continue antihypertensives"},
	},
}

// NeutropeniaRisk is the febrile neutropenia probability for a cycle number.
func NeutropeniaRisk(cycle int) float64 {
	return round2(minFloat(0.2+0.05*float64(cycle), 0.5))
}

func minFloat(a, b float64) float64 {
	if a < b {
		return a
	}
	return b
}

// AssessRisk scores age, comorbidity, and cycle-dependent haematological risk.
func AssessRisk(in RiskInput) RiskResult {
	risks := []RiskFactor{}

	if in.Patient.Age > 65 {
		risks = append(risks, RiskFactor{
			Category:        "Age-related",
			Risk:            "Increased toxicity",
			Probability:     0.35,
			Severity:        "moderate",
			Recommendations: []string{"Closer monitoring", "Consider dose reduction"},
		})
	}

	for _, cr := range comorbidityRisks {
		for _, c := range in.Patient.Comorbidities {
			if strings.Contains(strings.ToLower(c), cr.term) {
				risks = append(risks, RiskFactor{
					Category:        "Comorbidity",
					Risk:            cr.risk,
					Probability:     cr.probability,
					Severity:        cr.severity,
					Recommendations: append([]string(nil), cr.recommendations...),
				})
				break
			}
		}
	}

	neutropenia := NeutropeniaRisk(in.CycleNumber)
	severity := "moderate"
	if neutropenia > 0.3 {
		severity = "high"
	}
	risks = append(risks, RiskFactor{
		Category:    "Hematological",
		Risk:        "Febrile neutropenia",
		Probability: neutropenia,
		Severity:    severity,
		Recommendations: []string{
			"G-CSF prophylaxis if risk > 20%",
			"Patient education on fever management",
		},
	})

	var overall float64
	if len(risks) > 0 {
		var sum float64
		for _, r := range risks {
			sum += r.Probability
		}
		overall = sum / float64(len(risks))
	}

	return RiskResult{
		PatientID:        in.PatientID,
		Protocol:         in.ProtocolName,
		CycleNumber:      in.CycleNumber,
		OverallRiskScore: overall,
		Risks:            risks,
		Recommendations: []string{
			"Pre-treatment labs within 48 hours",
			"Ensure adequate baseline ECOG performance status",
			"Review current medications for interactions",
		},
	}
}

type labRange struct {
	name     string
	min, max float64
	unit     string
	label    string
}

// Reference ranges, in the order results are reported.
var labRanges = []labRange{
	{"hemoglobin", 12.0, 16.0, "g/dL", "12.0-16.0"},
	{"wbc", 4000, 11000, "/μL", "4000-11000"},
	{"anc", 1500, 8000, "/μL", "1500-8000"},
	{"platelets", 150000, 400000, "/μL", "150000-400000"},
	{"creatinine", 0.6, 1.2, "mg/dL", "0.6-1.2"},
	{"bilirubin", 0.1, 1.2, "mg/dL", "0.1-1.2"},
	{"alt", 7, 56, "U/L", "7-56"},
	{"ast", 10, 40, "U/L", "10-40"},
}

var (
	fitnessLabs = map[string]bool{"anc": true, "platelets": true}
	organLabs   = map[string]bool{"creatinine": true, "bilirubin": true}
)

// AnalyzeLabs compares lab values against fixed reference ranges. Unknown
// parameters are ignored.
func AnalyzeLabs(in LabInput) LabResult {
	keys := make([]string, 0, len(in.Labs))
	for k := range in.Labs {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	byName := make(map[string]string, len(keys))
	for _, k := range keys {
		lower := strings.ToLower(k)
		if _, seen := byName[lower]; !seen {
			byName[lower] = k
		}
	}

	res := LabResult{
		PatientID:       in.PatientID,
		AnalysisResults: []LabFinding{},
		FitForTreatment: true,
		CriticalFlags:   []string{},
		Recommendations: []string{},
	}
	flagged := map[string]bool{}

	for _, r := range labRanges {
		key, ok := byName[r.name]
		if !ok {
			continue
		}
		value := in.Labs[key]
		status := "normal"
		switch {
		case value < r.min:
			status = "low"
			if fitnessLabs[r.name] {
				res.FitForTreatment = false
				flag := "Low " + r.name
				res.CriticalFlags = append(res.CriticalFlags, flag)
				flagged[flag] = true
			}
		case value > r.max:
			status = "high"
			if organLabs[r.name] {
				flag := "High " + r.name
				res.CriticalFlags = append(res.CriticalFlags, flag)
				flagged[flag] = true
			}
		}
		res.AnalysisResults = append(res.AnalysisResults, LabFinding{
			Parameter:   key,
			Value:       value,
			Unit:        r.unit,
			Status:      status,
			NormalRange: r.label,
		})
	}

	if !res.FitForTreatment {
		res.Recommendations = append(res.Recommendations, "Consider delaying treatment until values improve")
	}
	if flagged["Low anc"] {
		res.Recommendations = append(res.Recommendations, "ANC < 1500: High risk of neutropenic complications")
	}
	if flagged["Low platelets"] {
		res.Recommendations = append(res.Recommendations, "Platelets < 100,000: Risk of bleeding")
	}
	if flagged["High creatinine"] {
		res.Recommendations = append(res.Recommendations, "Renal impairment: Consider dose adjustments for renally cleared drugs")
	}
	return res
}

type interactionRule struct {
	a, b           string
	severity       string
	effect         string
	recommendation string
}

var interactionRules = []interactionRule{
	{"methotrexate", "nsaids", "high", "Increased methotrexate toxicity due to decreased renal clearance", "Avoid NSAIDs or use with extreme caution"},
	{"methotrexate", "ibuprofen", "high", "Increased methotrexate toxicity", "Avoid concomitant use"},
	{"5-fluorouracil", "warfarin", "high", "Increased anticoagulant effect and bleeding risk", "Monitor INR closely, may need warfarin dose reduction"},
	{"cisplatin", "aminoglycosides", "high", "Additive nephrotoxicity and ototoxicity", "Avoid combination if possible"},
	{"doxorubicin", "trastuzumab", "moderate", "Additive cardiotoxicity", "Monitor cardiac function closely"},
	{"paclitaxel", "ketoconazole", "moderate", "Increased paclitaxel levels", "Consider dose reduction or alternative antifungal"},
}

func lowerSet(items []string) map[string]bool {
	set := make(map[string]bool, len(items))
	for _, s := range items {
		set[strings.ToLower(strings.TrimSpace(s))] = true
	}
	return set
}

// CheckInteractions returns every table entry matched by the chemo and
// medication lists, including chemo-chemo pairs.
func CheckInteractions(in InteractionInput) InteractionResult {
	chemo := lowerSet(in.ChemoDrugs)
	meds := lowerSet(in.CurrentMedications)

	found := []Interaction{}
	for _, r := range interactionRules {
		if (chemo[r.a] && meds[r.b]) || (chemo[r.b] && meds[r.a]) || (chemo[r.a] && chemo[r.b]) {
			found = append(found, Interaction{
				Drugs:          []string{r.a, r.b},
				Severity:       r.severity,
				Effect:         r.effect,
				Recommendation: r.recommendation,
			})
		}
	}

	recommendation := "No significant interactions found"
	if len(found) > 0 {
		recommendation = "Review with pharmacist"
	}
	return InteractionResult{
		ChemoDrugs:         nonNilStrings(in.ChemoDrugs),
		CurrentMedications: nonNilStrings(in.CurrentMedications),
		InteractionsFound:  len(found),
		Interactions:       found,
		Recommendation:     recommendation,
	}
}
