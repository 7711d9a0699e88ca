package dosing

// TriageSymptoms sums the weighted symptom contributions and maps the total
// to an alert level.
func TriageSymptoms(in SymptomInput) TriageResult {
	var score float64
	alerts := []SymptomAlert{}
	recs := []string{}

	if in.HasFever {
		score += 0.4
		alerts = append(alerts, SymptomAlert{
			Type:     "fever",
			Severity: "high",
			Message:  "Fever during chemotherapy requires immediate evaluation",
		})
		recs = append(recs, "Check CBC immediately to rule out febrile neutropenia")
	}
	if in.NauseaScore >= 7 {
		score += 0.3
		alerts = append(alerts, SymptomAlert{
			Type:     "nausea",
			Severity: "moderate",
			Message:  "Severe nausea may require antiemetic adjustment",
		})
		recs = append(recs, "Consider adding/adjusting antiemetic regimen")
	}
	if in.PainScore >= 7 {
		score += 0.3
		alerts = append(alerts, SymptomAlert{
			Type:     "pain",
			Severity: "moderate",
			Message:  "Severe pain requires attention",
		})
		recs = append(recs, "Assess pain and consider analgesia adjustment")
	}
	if in.FatigueScore >= 8 {
		score += 0.2
		recs = append(recs, "Evaluate for anemia, consider energy conservation strategies")
	}
	if in.HasDiarrhea {
		score += 0.2
		recs = append(recs, "Assess hydration status, consider antidiarrheal medications")
	}
	if in.HasMouthSores {
		score += 0.15
		recs = append(recs, "Oral care protocol, consider magic mouthwash")
	}

	// Thresholds apply to the rounded score: a total of exactly 0.6 is monitor.
	score = round2(score)
	level := AlertNormal
	switch {
	case score > 0.6:
		level = AlertUrgent
	case score > 0.3:
		level = AlertMonitor
	}

	return TriageResult{
		SymptomsAnalyzed: in,
		SeverityScore:    score,
		AlertLevel:       level,
		Alerts:           alerts,
		Recommendations:  recs,
		ActionRequired:   level == AlertUrgent,
	}
}

// Vital alert severities.
const (
	SeverityWarning  = "warning"
	SeverityCritical = "critical"
)

// VitalAlerts evaluates each threshold independently, so one reading may
// raise several alerts. Self-reported readings get patient-facing wording
// instead of the clinical one.
func VitalAlerts(v VitalInput, selfReported bool) []VitalAlert {
	alerts := []VitalAlert{}

	if v.TemperatureF != nil && *v.TemperatureF > 100.4 {
		msg := "Fever detected"
		if selfReported {
			msg = "Fever detected - please contact your care team"
		}
		alerts = append(alerts, VitalAlert{Type: "fever", Message: msg, Severity: SeverityWarning})
	}
	if v.BPSystolic != nil && *v.BPSystolic > 140 {
		alerts = append(alerts, VitalAlert{Type: "bp_high", Message: "Elevated blood pressure", Severity: SeverityWarning})
	}
	if v.OxygenSaturation != nil && *v.OxygenSaturation > 0 && *v.OxygenSaturation < 95 {
		msg := "Low oxygen saturation"
		if selfReported {
			msg = "Low oxygen - seek immediate medical attention"
		}
		alerts = append(alerts, VitalAlert{Type: "low_spo2", Message: msg, Severity: SeverityCritical})
	}
	if v.PulseBPM != nil && *v.PulseBPM > 0 && (*v.PulseBPM > 100 || *v.PulseBPM < 60) {
		alerts = append(alerts, VitalAlert{Type: "abnormal_hr", Message: "Abnormal heart rate", Severity: SeverityWarning})
	}
	if v.TemperatureF != nil && *v.TemperatureF > 101.3 {
		msg := "High fever"
		if selfReported {
			msg = "High fever - seek immediate medical attention"
		}
		alerts = append(alerts, VitalAlert{Type: "high_fever", Message: msg, Severity: SeverityCritical})
	}
	return alerts
}

// HasCritical reports whether any alert is critical.
func HasCritical(alerts []VitalAlert) bool {
	for _, a := range alerts {
		if a.Severity == SeverityCritical {
			return true
		}
	}
	return false
}
