package treatment

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/moinmakda/ChemoCareAI/internal/domain/dosing"
	"github.com/moinmakda/ChemoCareAI/internal/platform/db"
	"github.com/moinmakda/ChemoCareAI/pkg/apperr"
)

type queryable interface {
	Exec(ctx context.Context, sql string, arguments ...interface{}) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
}

func connFor(ctx context.Context, pool *pgxpool.Pool) queryable {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	if c := db.ConnFromContext(ctx); c != nil {
		return c
	}
	return pool
}

func nullJSON(m json.RawMessage) interface{} {
	if len(m) == 0 {
		return nil
	}
	return m
}

func jsonOr(m json.RawMessage, def string) json.RawMessage {
	if len(m) == 0 {
		return json.RawMessage(def)
	}
	return m
}

func strs(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

// =========== Protocol Templates ===========

type protocolRepoPG struct{ pool *pgxpool.Pool }

func NewProtocolTemplateRepoPG(pool *pgxpool.Pool) ProtocolTemplateRepository {
	return &protocolRepoPG{pool: pool}
}

func (r *protocolRepoPG) conn(ctx context.Context) queryable { return connFor(ctx, r.pool) }

const protocolCols = `id, name, full_name, cancer_types, cycle_days, total_cycles,
	drugs, pre_medications, post_medications, required_labs, monitoring_parameters,
	dose_modification_rules, common_side_effects, serious_side_effects,
	reference_guidelines, is_active, created_at, updated_at`

func scanProtocol(row pgx.Row) (*ProtocolTemplate, error) {
	var p ProtocolTemplate
	err := row.Scan(&p.ID, &p.Name, &p.FullName, &p.CancerTypes, &p.CycleDays, &p.TotalCycles,
		&p.Drugs, &p.PreMedications, &p.PostMedications, &p.RequiredLabs, &p.MonitoringParameters,
		&p.DoseModificationRules, &p.CommonSideEffects, &p.SeriousSideEffects,
		&p.ReferenceGuidelines, &p.IsActive, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.NotFound("Protocol template")
		}
		return nil, err
	}
	return &p, nil
}

func (r *protocolRepoPG) Create(ctx context.Context, p *ProtocolTemplate) error {
	p.ID = uuid.New()
	now := time.Now().UTC()
	p.CreatedAt, p.UpdatedAt = now, now
	p.fillDefaults()
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO protocol_templates (`+protocolCols+`)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18)`,
		p.ID, p.Name, p.FullName, p.CancerTypes, p.CycleDays, p.TotalCycles,
		p.Drugs, p.PreMedications, p.PostMedications, p.RequiredLabs, p.MonitoringParameters,
		p.DoseModificationRules, p.CommonSideEffects, p.SeriousSideEffects,
		p.ReferenceGuidelines, p.IsActive, p.CreatedAt, p.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert protocol template: %w", err)
	}
	return nil
}

func (r *protocolRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*ProtocolTemplate, error) {
	return scanProtocol(r.conn(ctx).QueryRow(ctx, `SELECT `+protocolCols+` FROM protocol_templates WHERE id = $1`, id))
}

func (r *protocolRepoPG) List(ctx context.Context, cancerType string, isActive bool) ([]*ProtocolTemplate, error) {
	query := `SELECT ` + protocolCols + ` FROM protocol_templates WHERE is_active = $1`
	args := []interface{}{isActive}
	if cancerType != "" {
		query += ` AND $2 = ANY(cancer_types)`
		args = append(args, cancerType)
	}
	query += ` ORDER BY name`

	rows, err := r.conn(ctx).Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []*ProtocolTemplate
	for rows.Next() {
		p, err := scanProtocol(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, p)
	}
	return items, rows.Err()
}

// fillDefaults replaces nil lists so the NOT NULL array and JSON columns
// receive empty values.
func (p *ProtocolTemplate) fillDefaults() {
	p.CancerTypes = strs(p.CancerTypes)
	p.RequiredLabs = strs(p.RequiredLabs)
	p.MonitoringParameters = strs(p.MonitoringParameters)
	p.CommonSideEffects = strs(p.CommonSideEffects)
	p.SeriousSideEffects = strs(p.SeriousSideEffects)
	if p.Drugs == nil {
		p.Drugs = []dosing.DrugSpec{}
	}
	if p.PreMedications == nil {
		p.PreMedications = []dosing.Medication{}
	}
	if p.PostMedications == nil {
		p.PostMedications = []dosing.Medication{}
	}
	if p.DoseModificationRules == nil {
		p.DoseModificationRules = []dosing.ModificationRule{}
	}
}

// =========== Treatment Plans ===========

type planRepoPG struct{ pool *pgxpool.Pool }

func NewPlanRepoPG(pool *pgxpool.Pool) PlanRepository {
	return &planRepoPG{pool: pool}
}

func (r *planRepoPG) conn(ctx context.Context) queryable { return connFor(ctx, r.pool) }

const planCols = `id, patient_id, protocol_template_id, protocol_name, custom_protocol,
	start_date, planned_cycles, completed_cycles, status,
	ai_recommendations, ai_risk_assessment, ai_confidence_score, created_by_doctor_id,
	opd_approved_by, opd_approved_at, opd_notes,
	daycare_approved_by, daycare_approved_at, daycare_notes, created_at, updated_at`

func scanPlan(row pgx.Row) (*TreatmentPlan, error) {
	var p TreatmentPlan
	err := row.Scan(&p.ID, &p.PatientID, &p.ProtocolTemplateID, &p.ProtocolName, &p.CustomProtocol,
		&p.StartDate, &p.PlannedCycles, &p.CompletedCycles, &p.Status,
		&p.AIRecommendations, &p.AIRiskAssessment, &p.AIConfidenceScore, &p.CreatedByDoctorID,
		&p.OPDApprovedBy, &p.OPDApprovedAt, &p.OPDNotes,
		&p.DaycareApprovedBy, &p.DaycareApprovedAt, &p.DaycareNotes, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.NotFound("Treatment plan")
		}
		return nil, err
	}
	return &p, nil
}

func (r *planRepoPG) Create(ctx context.Context, p *TreatmentPlan) error {
	p.ID = uuid.New()
	now := time.Now().UTC()
	p.CreatedAt, p.UpdatedAt = now, now
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO treatment_plans (`+planCols+`)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19,$20,$21)`,
		p.ID, p.PatientID, p.ProtocolTemplateID, p.ProtocolName, nullJSON(p.CustomProtocol),
		p.StartDate, p.PlannedCycles, p.CompletedCycles, p.Status,
		p.AIRecommendations, nullJSON(p.AIRiskAssessment), p.AIConfidenceScore, p.CreatedByDoctorID,
		p.OPDApprovedBy, p.OPDApprovedAt, p.OPDNotes,
		p.DaycareApprovedBy, p.DaycareApprovedAt, p.DaycareNotes, p.CreatedAt, p.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert treatment plan: %w", err)
	}
	return nil
}

func (r *planRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*TreatmentPlan, error) {
	return scanPlan(r.conn(ctx).QueryRow(ctx, `SELECT `+planCols+` FROM treatment_plans WHERE id = $1`, id))
}

func (r *planRepoPG) GetForUpdate(ctx context.Context, id uuid.UUID) (*TreatmentPlan, error) {
	return scanPlan(r.conn(ctx).QueryRow(ctx, `SELECT `+planCols+` FROM treatment_plans WHERE id = $1 FOR UPDATE`, id))
}

func (r *planRepoPG) Update(ctx context.Context, p *TreatmentPlan) error {
	p.UpdatedAt = time.Now().UTC()
	tag, err := r.conn(ctx).Exec(ctx, `
		UPDATE treatment_plans SET
			protocol_name=$2, custom_protocol=$3, start_date=$4, planned_cycles=$5,
			completed_cycles=$6, status=$7, ai_recommendations=$8, ai_risk_assessment=$9,
			ai_confidence_score=$10, opd_approved_by=$11, opd_approved_at=$12, opd_notes=$13,
			daycare_approved_by=$14, daycare_approved_at=$15, daycare_notes=$16, updated_at=$17
		WHERE id = $1`,
		p.ID, p.ProtocolName, nullJSON(p.CustomProtocol), p.StartDate, p.PlannedCycles,
		p.CompletedCycles, p.Status, p.AIRecommendations, nullJSON(p.AIRiskAssessment),
		p.AIConfidenceScore, p.OPDApprovedBy, p.OPDApprovedAt, p.OPDNotes,
		p.DaycareApprovedBy, p.DaycareApprovedAt, p.DaycareNotes, p.UpdatedAt)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound("Treatment plan")
	}
	return nil
}

// =========== Treatment Cycles ===========

type cycleRepoPG struct{ pool *pgxpool.Pool }

func NewCycleRepoPG(pool *pgxpool.Pool) CycleRepository {
	return &cycleRepoPG{pool: pool}
}

func (r *cycleRepoPG) conn(ctx context.Context) queryable { return connFor(ctx, r.pool) }

const cycleCols = `id, treatment_plan_id, cycle_number, scheduled_date, actual_date, status,
	pre_chemo_labs, pre_chemo_vitals, patient_weight_kg, calculated_bsa,
	dose_modifications, modification_reason, daycare_doctor_id, approved_at, approval_notes,
	started_at, completed_at, administered_by, immediate_reactions,
	discharge_notes, follow_up_instructions, created_at, updated_at`

func scanCycle(row pgx.Row) (*TreatmentCycle, error) {
	var c TreatmentCycle
	err := row.Scan(&c.ID, &c.TreatmentPlanID, &c.CycleNumber, &c.ScheduledDate, &c.ActualDate, &c.Status,
		&c.PreChemoLabs, &c.PreChemoVitals, &c.PatientWeightKg, &c.CalculatedBSA,
		&c.DoseModifications, &c.ModificationReason, &c.DaycareDoctorID, &c.ApprovedAt, &c.ApprovalNotes,
		&c.StartedAt, &c.CompletedAt, &c.AdministeredBy, &c.ImmediateReactions,
		&c.DischargeNotes, &c.FollowUpInstructions, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.NotFound("Cycle")
		}
		return nil, err
	}
	return &c, nil
}

func (r *cycleRepoPG) Create(ctx context.Context, c *TreatmentCycle) error {
	c.ID = uuid.New()
	now := time.Now().UTC()
	c.CreatedAt, c.UpdatedAt = now, now
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO treatment_cycles (`+cycleCols+`)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19,$20,$21,$22,$23)`,
		c.ID, c.TreatmentPlanID, c.CycleNumber, c.ScheduledDate, c.ActualDate, c.Status,
		nullJSON(c.PreChemoLabs), nullJSON(c.PreChemoVitals), c.PatientWeightKg, c.CalculatedBSA,
		nullJSON(c.DoseModifications), c.ModificationReason, c.DaycareDoctorID, c.ApprovedAt, c.ApprovalNotes,
		c.StartedAt, c.CompletedAt, c.AdministeredBy, nullJSON(c.ImmediateReactions),
		c.DischargeNotes, c.FollowUpInstructions, c.CreatedAt, c.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return apperr.New(apperr.ErrConflict, "Cycle %d already exists for this plan", c.CycleNumber)
		}
		return fmt.Errorf("insert treatment cycle: %w", err)
	}
	return nil
}

func (r *cycleRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*TreatmentCycle, error) {
	return scanCycle(r.conn(ctx).QueryRow(ctx, `SELECT `+cycleCols+` FROM treatment_cycles WHERE id = $1`, id))
}

func (r *cycleRepoPG) GetForUpdate(ctx context.Context, id uuid.UUID) (*TreatmentCycle, error) {
	return scanCycle(r.conn(ctx).QueryRow(ctx, `SELECT `+cycleCols+` FROM treatment_cycles WHERE id = $1 FOR UPDATE`, id))
}

func (r *cycleRepoPG) Update(ctx context.Context, c *TreatmentCycle) error {
	c.UpdatedAt = time.Now().UTC()
	tag, err := r.conn(ctx).Exec(ctx, `
		UPDATE treatment_cycles SET
			scheduled_date=$2, actual_date=$3, status=$4, pre_chemo_labs=$5, pre_chemo_vitals=$6,
			patient_weight_kg=$7, calculated_bsa=$8, dose_modifications=$9, modification_reason=$10,
			daycare_doctor_id=$11, approved_at=$12, approval_notes=$13, started_at=$14,
			completed_at=$15, administered_by=$16, immediate_reactions=$17,
			discharge_notes=$18, follow_up_instructions=$19, updated_at=$20
		WHERE id = $1`,
		c.ID, c.ScheduledDate, c.ActualDate, c.Status, nullJSON(c.PreChemoLabs), nullJSON(c.PreChemoVitals),
		c.PatientWeightKg, c.CalculatedBSA, nullJSON(c.DoseModifications), c.ModificationReason,
		c.DaycareDoctorID, c.ApprovedAt, c.ApprovalNotes, c.StartedAt,
		c.CompletedAt, c.AdministeredBy, nullJSON(c.ImmediateReactions),
		c.DischargeNotes, c.FollowUpInstructions, c.UpdatedAt)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound("Cycle")
	}
	return nil
}

func (r *cycleRepoPG) ListByPlan(ctx context.Context, planID uuid.UUID) ([]*TreatmentCycle, error) {
	rows, err := r.conn(ctx).Query(ctx, `SELECT `+cycleCols+` FROM treatment_cycles
		WHERE treatment_plan_id = $1 ORDER BY cycle_number`, planID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []*TreatmentCycle
	for rows.Next() {
		c, err := scanCycle(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, c)
	}
	return items, rows.Err()
}

// -- Drug Administrations --

const adminCols = `id, cycle_id, drug_name, planned_dose, actual_dose, unit, route,
	planned_duration_mins, actual_duration_mins, status, prepared_by, prepared_at,
	batch_number, expiry_date, verified_by, verified_at, started_at, completed_at,
	administered_by, iv_site, flow_rate, reactions, notes, created_at, updated_at`

func scanAdministration(row pgx.Row) (*DrugAdministration, error) {
	var a DrugAdministration
	err := row.Scan(&a.ID, &a.CycleID, &a.DrugName, &a.PlannedDose, &a.ActualDose, &a.Unit, &a.Route,
		&a.PlannedDurationMins, &a.ActualDurationMins, &a.Status, &a.PreparedBy, &a.PreparedAt,
		&a.BatchNumber, &a.ExpiryDate, &a.VerifiedBy, &a.VerifiedAt, &a.StartedAt, &a.CompletedAt,
		&a.AdministeredBy, &a.IVSite, &a.FlowRate, &a.Reactions, &a.Notes, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.NotFound("Drug administration")
		}
		return nil, err
	}
	return &a, nil
}

func (r *cycleRepoPG) AddAdministration(ctx context.Context, a *DrugAdministration) error {
	a.ID = uuid.New()
	now := time.Now().UTC()
	a.CreatedAt, a.UpdatedAt = now, now
	a.Reactions = jsonOr(a.Reactions, "[]")
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO drug_administrations (`+adminCols+`)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19,$20,$21,$22,$23,$24,$25)`,
		a.ID, a.CycleID, a.DrugName, a.PlannedDose, a.ActualDose, a.Unit, a.Route,
		a.PlannedDurationMins, a.ActualDurationMins, a.Status, a.PreparedBy, a.PreparedAt,
		a.BatchNumber, a.ExpiryDate, a.VerifiedBy, a.VerifiedAt, a.StartedAt, a.CompletedAt,
		a.AdministeredBy, a.IVSite, a.FlowRate, a.Reactions, a.Notes, a.CreatedAt, a.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert drug administration: %w", err)
	}
	return nil
}

func (r *cycleRepoPG) GetAdministration(ctx context.Context, id uuid.UUID) (*DrugAdministration, error) {
	return scanAdministration(r.conn(ctx).QueryRow(ctx, `SELECT `+adminCols+` FROM drug_administrations WHERE id = $1`, id))
}

func (r *cycleRepoPG) UpdateAdministration(ctx context.Context, a *DrugAdministration) error {
	a.UpdatedAt = time.Now().UTC()
	a.Reactions = jsonOr(a.Reactions, "[]")
	tag, err := r.conn(ctx).Exec(ctx, `
		UPDATE drug_administrations SET
			actual_dose=$2, actual_duration_mins=$3, status=$4, prepared_by=$5, prepared_at=$6,
			batch_number=$7, expiry_date=$8, verified_by=$9, verified_at=$10, started_at=$11,
			completed_at=$12, administered_by=$13, iv_site=$14, flow_rate=$15, reactions=$16,
			notes=$17, updated_at=$18
		WHERE id = $1`,
		a.ID, a.ActualDose, a.ActualDurationMins, a.Status, a.PreparedBy, a.PreparedAt,
		a.BatchNumber, a.ExpiryDate, a.VerifiedBy, a.VerifiedAt, a.StartedAt,
		a.CompletedAt, a.AdministeredBy, a.IVSite, a.FlowRate, a.Reactions,
		a.Notes, a.UpdatedAt)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound("Drug administration")
	}
	return nil
}

func (r *cycleRepoPG) GetAdministrations(ctx context.Context, cycleID uuid.UUID) ([]*DrugAdministration, error) {
	rows, err := r.conn(ctx).Query(ctx, `SELECT `+adminCols+` FROM drug_administrations
		WHERE cycle_id = $1 ORDER BY created_at, drug_name`, cycleID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []*DrugAdministration
	for rows.Next() {
		a, err := scanAdministration(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, a)
	}
	return items, rows.Err()
}
