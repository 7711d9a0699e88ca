package dosing

import (
	"sort"
	"strings"
)

var cardiotoxicDrugs = map[string]bool{"doxorubicin": true, "epirubicin": true, "trastuzumab": true}

const (
	defaultANC       = 10000
	defaultPlatelets = 200000
	// LocalConfidence is reported by the rule engine for generated protocols.
	LocalConfidence = 0.92
)

// ComputeDrug derives one patient's dose for a template drug.
func ComputeDrug(d DrugSpec, bsa float64, age int) ComputedDrug {
	cd := ComputedDrug{
		DrugSpec:        d,
		CalculatedDose:  round2(d.DosePerM2 * bsa),
		DoseAdjustments: []string{},
		Warnings:        []string{},
	}
	if strings.EqualFold(d.DrugName, "vincristine") && cd.CalculatedDose > 2 {
		cd.CalculatedDose = 2
		cd.DoseAdjustments = append(cd.DoseAdjustments, "Capped at 2mg (maximum dose)")
	}
	if age > elderlyAge {
		cd.DoseAdjustments = append(cd.DoseAdjustments, "Consider 20% dose reduction for age >70")
		cd.Warnings = append(cd.Warnings, "Elderly patient - monitor closely for toxicity")
	}
	return cd
}

// BuildSchedule flattens every (drug, day) pair, ordered by day. Drugs given
// on the same day keep their template order.
func BuildSchedule(drugs []DrugSpec) []ScheduleEntry {
	schedule := []ScheduleEntry{}
	for _, d := range drugs {
		days := d.Days
		if len(days) == 0 {
			days = []int{1}
		}
		for _, day := range days {
			schedule = append(schedule, ScheduleEntry{Day: day, Drug: d.DrugName, Dose: d.DosePerM2, Route: d.Route})
		}
	}
	sort.SliceStable(schedule, func(i, j int) bool { return schedule[i].Day < schedule[j].Day })
	return schedule
}

func labOr(labs map[string]float64, key string, def float64) float64 {
	if v, ok := labs[key]; ok {
		return v
	}
	return def
}

// GenerateProtocol personalises a template for one patient.
func GenerateProtocol(req ProtocolRequest) ProtocolResult {
	res := ProtocolResult{
		ProtocolName:          req.TemplateName,
		PatientBSA:            req.Patient.BSA,
		Drugs:                 make([]ComputedDrug, 0, len(req.Drugs)),
		PreMedications:        nonNilMeds(req.PreMedications),
		PostMedications:       nonNilMeds(req.PostMedications),
		Schedule:              BuildSchedule(req.Drugs),
		Recommendations:       []string{},
		RiskAssessment:        []ProtocolRisk{},
		ConfidenceScore:       LocalConfidence,
		RequiredMonitoring:    nonNilStrings(req.MonitoringParameters),
		DoseModificationRules: req.DoseModificationRules,
	}
	if res.DoseModificationRules == nil {
		res.DoseModificationRules = []ModificationRule{}
	}
	for _, d := range req.Drugs {
		res.Drugs = append(res.Drugs, ComputeDrug(d, req.Patient.BSA, req.Patient.Age))
	}

	for _, d := range req.Drugs {
		if cardiotoxicDrugs[strings.ToLower(d.DrugName)] {
			res.Recommendations = append(res.Recommendations, "Baseline echocardiogram recommended (cardiotoxic agent)")
			res.RiskAssessment = append(res.RiskAssessment, ProtocolRisk{
				Risk:       "Cardiotoxicity",
				Severity:   "moderate",
				Mitigation: "Monitor LVEF before and during treatment",
			})
			break
		}
	}

	for _, d := range req.Drugs {
		if strings.EqualFold(d.DrugName, "bleomycin") {
			res.Recommendations = append(res.Recommendations, "Baseline PFTs recommended (Bleomycin)")
			res.RiskAssessment = append(res.RiskAssessment, ProtocolRisk{
				Risk:       "Pulmonary toxicity",
				Severity:   "moderate",
				Mitigation: "Monitor for respiratory symptoms, cumulative dose limit 400 units",
			})
			break
		}
	}

	if labOr(req.Labs, "anc", defaultANC) < 1500 {
		res.Recommendations = append(res.Recommendations, "ANC low - consider delaying treatment")
		res.RiskAssessment = append(res.RiskAssessment, ProtocolRisk{
			Risk:       "Neutropenia",
			Severity:   "high",
			Mitigation: "Delay until ANC > 1500, consider G-CSF support",
		})
	}

	if labOr(req.Labs, "platelets", defaultPlatelets) < 100000 {
		res.Recommendations = append(res.Recommendations, "Platelets low - consider dose reduction")
		res.RiskAssessment = append(res.RiskAssessment, ProtocolRisk{
			Risk:       "Thrombocytopenia",
			Severity:   "moderate",
			Mitigation: "Delay until platelets > 100,000",
		})
	}

	res.Recommendations = append(res.Recommendations,
		"Ensure adequate hydration before and during treatment",
		"Pre-medication with antiemetics as per protocol",
		"Patient education on side effects and when to seek help",
	)
	return res
}

func nonNilMeds(m []Medication) []Medication {
	if m == nil {
		return []Medication{}
	}
	return m
}

func nonNilStrings(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
