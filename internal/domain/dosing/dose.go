package dosing

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// Absolute per-administration caps in mg, keyed by lower-case drug name.
var doseCaps = map[string]float64{
	"vincristine": 2.0,
	"bleomycin":   30.0,
}

var (
	renalAdjustedDrugs   = map[string]bool{"cisplatin": true, "carboplatin": true, "methotrexate": true}
	hepaticAdjustedDrugs = map[string]bool{"doxorubicin": true, "vincristine": true, "paclitaxel": true}
)

const (
	elderlyAge       = 70
	renalThreshold   = 1.5
	hepaticThreshold = 2.0
)

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// BSA returns the Mosteller body surface area in m² rounded to two decimals,
// or 0 when either measurement is missing.
func BSA(heightCm, weightKg *float64) float64 {
	if heightCm == nil || weightKg == nil || *heightCm <= 0 || *weightKg <= 0 {
		return 0
	}
	return round2(math.Sqrt(*heightCm * *weightKg / 3600))
}

// Age returns the age in whole years on the given day.
func Age(dob, today time.Time) int {
	age := today.Year() - dob.Year()
	if today.Month() < dob.Month() || (today.Month() == dob.Month() && today.Day() < dob.Day()) {
		age--
	}
	return age
}

func formatMg(v float64) string {
	s := strconv.FormatFloat(v, 'f', -1, 64)
	if !strings.Contains(s, ".") {
		s += ".0"
	}
	return s
}

// CalculateDose scales dose_per_m2 by BSA and applies the cap table and the
// advisory age and organ-function notes. Only the cap changes the number.
func CalculateDose(in DoseInput) DoseResult {
	res := DoseResult{
		Dose:        round2(in.DosePerM2 * in.BSA),
		Unit:        "mg",
		Adjustments: []string{},
		Warnings:    []string{},
	}
	drug := strings.ToLower(strings.TrimSpace(in.DrugName))

	if limit, ok := doseCaps[drug]; ok && res.Dose > limit {
		res.Dose = limit
		res.Adjustments = append(res.Adjustments, fmt.Sprintf("Capped at %smg", formatMg(limit)))
	}

	if in.PatientAge > elderlyAge {
		res.Adjustments = append(res.Adjustments, "Consider 20% reduction for elderly patient")
		res.Warnings = append(res.Warnings, "Increased toxicity risk in elderly")
	}

	if in.RenalFunction != nil && *in.RenalFunction > renalThreshold && renalAdjustedDrugs[drug] {
		res.Adjustments = append(res.Adjustments, "Dose reduction recommended for renal impairment")
		res.Warnings = append(res.Warnings, "Monitor renal function closely")
	}

	if in.LiverFunction != nil && *in.LiverFunction > hepaticThreshold && hepaticAdjustedDrugs[drug] {
		res.Adjustments = append(res.Adjustments, "Dose reduction recommended for hepatic impairment")
		res.Warnings = append(res.Warnings, "Monitor liver function closely")
	}

	return res
}
