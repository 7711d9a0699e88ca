package clinical

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
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

func collect[T any](rows pgx.Rows, scan func(pgx.Row) (*T, error)) ([]*T, error) {
	defer rows.Close()
	var items []*T
	for rows.Next() {
		item, err := scan(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

// =========== Vitals ===========

type vitalRepoPG struct{ pool *pgxpool.Pool }

func NewVitalRepoPG(pool *pgxpool.Pool) VitalRepository {
	return &vitalRepoPG{pool: pool}
}

func (r *vitalRepoPG) conn(ctx context.Context) queryable { return connFor(ctx, r.pool) }

const vitalCols = `id, patient_id, cycle_id, recorded_at, recorded_by, temperature_f, pulse_bpm,
	blood_pressure_systolic, blood_pressure_diastolic, respiratory_rate, oxygen_saturation,
	pain_score, pain_location, blood_sugar, weight_kg, notes, timing, ai_alerts`

func scanVital(row pgx.Row) (*Vital, error) {
	var v Vital
	err := row.Scan(&v.ID, &v.PatientID, &v.CycleID, &v.RecordedAt, &v.RecordedBy, &v.TemperatureF, &v.PulseBPM,
		&v.BloodPressureSystolic, &v.BloodPressureDiastolic, &v.RespiratoryRate, &v.OxygenSaturation,
		&v.PainScore, &v.PainLocation, &v.BloodSugar, &v.WeightKg, &v.Notes, &v.Timing, &v.AIAlerts)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.NotFound("Vitals")
		}
		return nil, err
	}
	return &v, nil
}

func (r *vitalRepoPG) Create(ctx context.Context, v *Vital) error {
	v.ID = uuid.New()
	if v.RecordedAt.IsZero() {
		v.RecordedAt = time.Now().UTC()
	}
	if v.AIAlerts == nil {
		v.AIAlerts = []dosing.VitalAlert{}
	}
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO vitals (`+vitalCols+`)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18)`,
		v.ID, v.PatientID, v.CycleID, v.RecordedAt, v.RecordedBy, v.TemperatureF, v.PulseBPM,
		v.BloodPressureSystolic, v.BloodPressureDiastolic, v.RespiratoryRate, v.OxygenSaturation,
		v.PainScore, v.PainLocation, v.BloodSugar, v.WeightKg, v.Notes, v.Timing, v.AIAlerts)
	if err != nil {
		return fmt.Errorf("insert vitals: %w", err)
	}
	return nil
}

func (r *vitalRepoPG) ListByPatient(ctx context.Context, patientID uuid.UUID, limit int) ([]*Vital, error) {
	rows, err := r.conn(ctx).Query(ctx, `SELECT `+vitalCols+` FROM vitals
		WHERE patient_id = $1 ORDER BY recorded_at DESC LIMIT $2`, patientID, limit)
	if err != nil {
		return nil, err
	}
	return collect(rows, scanVital)
}

func (r *vitalRepoPG) ListByCycle(ctx context.Context, cycleID uuid.UUID) ([]*Vital, error) {
	rows, err := r.conn(ctx).Query(ctx, `SELECT `+vitalCols+` FROM vitals
		WHERE cycle_id = $1 ORDER BY recorded_at`, cycleID)
	if err != nil {
		return nil, err
	}
	return collect(rows, scanVital)
}

// =========== Symptom Entries ===========

type symptomRepoPG struct{ pool *pgxpool.Pool }

func NewSymptomRepoPG(pool *pgxpool.Pool) SymptomRepository {
	return &symptomRepoPG{pool: pool}
}

func (r *symptomRepoPG) conn(ctx context.Context) queryable { return connFor(ctx, r.pool) }

const symptomCols = `id, patient_id, cycle_id, recorded_at, nausea_score, vomiting_count,
	fatigue_score, appetite_score, pain_score, has_fever, has_mouth_sores, has_diarrhea,
	has_constipation, has_numbness, has_hair_loss, has_skin_changes, other_symptoms,
	mood_notes, ai_severity_score, ai_alert_level, ai_recommendations`

func scanSymptom(row pgx.Row) (*SymptomEntry, error) {
	var e SymptomEntry
	err := row.Scan(&e.ID, &e.PatientID, &e.CycleID, &e.RecordedAt, &e.NauseaScore, &e.VomitingCount,
		&e.FatigueScore, &e.AppetiteScore, &e.PainScore, &e.HasFever, &e.HasMouthSores, &e.HasDiarrhea,
		&e.HasConstipation, &e.HasNumbness, &e.HasHairLoss, &e.HasSkinChanges, &e.OtherSymptoms,
		&e.MoodNotes, &e.AISeverityScore, &e.AIAlertLevel, &e.AIRecommendations)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.NotFound("Symptom entry")
		}
		return nil, err
	}
	return &e, nil
}

func (r *symptomRepoPG) Create(ctx context.Context, e *SymptomEntry) error {
	e.ID = uuid.New()
	if e.RecordedAt.IsZero() {
		e.RecordedAt = time.Now().UTC()
	}
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO symptom_entries (`+symptomCols+`)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19,$20,$21)`,
		e.ID, e.PatientID, e.CycleID, e.RecordedAt, e.NauseaScore, e.VomitingCount,
		e.FatigueScore, e.AppetiteScore, e.PainScore, e.HasFever, e.HasMouthSores, e.HasDiarrhea,
		e.HasConstipation, e.HasNumbness, e.HasHairLoss, e.HasSkinChanges, e.OtherSymptoms,
		e.MoodNotes, e.AISeverityScore, e.AIAlertLevel, e.AIRecommendations)
	if err != nil {
		return fmt.Errorf("insert symptom entry: %w", err)
	}
	return nil
}

func (r *symptomRepoPG) ListByPatient(ctx context.Context, patientID uuid.UUID, limit int) ([]*SymptomEntry, error) {
	rows, err := r.conn(ctx).Query(ctx, `SELECT `+symptomCols+` FROM symptom_entries
		WHERE patient_id = $1 ORDER BY recorded_at DESC LIMIT $2`, patientID, limit)
	if err != nil {
		return nil, err
	}
	return collect(rows, scanSymptom)
}

// =========== Appointments ===========

type appointmentRepoPG struct{ pool *pgxpool.Pool }

func NewAppointmentRepoPG(pool *pgxpool.Pool) AppointmentRepository {
	return &appointmentRepoPG{pool: pool}
}

func (r *appointmentRepoPG) conn(ctx context.Context) queryable { return connFor(ctx, r.pool) }

const appointmentCols = `id, patient_id, appointment_type, scheduled_date, scheduled_time,
	duration_mins, cycle_id, chair_number, doctor_id, nurse_id, status, checked_in_at,
	checked_out_at, notes, cancellation_reason, created_at, updated_at`

func scanAppointment(row pgx.Row) (*Appointment, error) {
	var a Appointment
	err := row.Scan(&a.ID, &a.PatientID, &a.AppointmentType, &a.ScheduledDate, &a.ScheduledTime,
		&a.DurationMins, &a.CycleID, &a.ChairNumber, &a.DoctorID, &a.NurseID, &a.Status, &a.CheckedInAt,
		&a.CheckedOutAt, &a.Notes, &a.CancellationReason, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.NotFound("Appointment")
		}
		return nil, err
	}
	return &a, nil
}

func (r *appointmentRepoPG) Create(ctx context.Context, a *Appointment) error {
	a.ID = uuid.New()
	now := time.Now().UTC()
	a.CreatedAt, a.UpdatedAt = now, now
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO appointments (`+appointmentCols+`)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17)`,
		a.ID, a.PatientID, a.AppointmentType, a.ScheduledDate, a.ScheduledTime,
		a.DurationMins, a.CycleID, a.ChairNumber, a.DoctorID, a.NurseID, a.Status, a.CheckedInAt,
		a.CheckedOutAt, a.Notes, a.CancellationReason, a.CreatedAt, a.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert appointment: %w", err)
	}
	return nil
}

func (r *appointmentRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	return scanAppointment(r.conn(ctx).QueryRow(ctx, `SELECT `+appointmentCols+` FROM appointments WHERE id = $1`, id))
}

func (r *appointmentRepoPG) Update(ctx context.Context, a *Appointment) error {
	a.UpdatedAt = time.Now().UTC()
	tag, err := r.conn(ctx).Exec(ctx, `
		UPDATE appointments SET
			appointment_type=$2, scheduled_date=$3, scheduled_time=$4, duration_mins=$5,
			chair_number=$6, doctor_id=$7, nurse_id=$8, status=$9, checked_in_at=$10,
			checked_out_at=$11, notes=$12, cancellation_reason=$13, updated_at=$14
		WHERE id = $1`,
		a.ID, a.AppointmentType, a.ScheduledDate, a.ScheduledTime, a.DurationMins,
		a.ChairNumber, a.DoctorID, a.NurseID, a.Status, a.CheckedInAt,
		a.CheckedOutAt, a.Notes, a.CancellationReason, a.UpdatedAt)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound("Appointment")
	}
	return nil
}

func (r *appointmentRepoPG) List(ctx context.Context, f AppointmentFilter) ([]*Appointment, error) {
	var where []string
	var args []interface{}
	add := func(clause string, v interface{}) {
		args = append(args, v)
		where = append(where, clause+" = $"+strconv.Itoa(len(args)))
	}
	if f.PatientID != nil {
		add("patient_id", *f.PatientID)
	}
	if f.ScheduledDate != nil {
		add("scheduled_date", *f.ScheduledDate)
	}
	if f.Status != nil {
		add("status", *f.Status)
	}

	query := `SELECT ` + appointmentCols + ` FROM appointments`
	if len(where) > 0 {
		query += ` WHERE ` + strings.Join(where, " AND ")
	}
	query += ` ORDER BY scheduled_date, scheduled_time`

	rows, err := r.conn(ctx).Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	return collect(rows, scanAppointment)
}

// =========== Notifications ===========

type notificationRepoPG struct{ pool *pgxpool.Pool }

func NewNotificationRepoPG(pool *pgxpool.Pool) NotificationRepository {
	return &notificationRepoPG{pool: pool}
}

func (r *notificationRepoPG) conn(ctx context.Context) queryable { return connFor(ctx, r.pool) }

const notificationCols = `id, user_id, notification_type, title, message, data, is_read, read_at, created_at`

func scanNotification(row pgx.Row) (*Notification, error) {
	var n Notification
	err := row.Scan(&n.ID, &n.UserID, &n.Type, &n.Title, &n.Body, &n.Data, &n.IsRead, &n.ReadAt, &n.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.NotFound("Notification")
		}
		return nil, err
	}
	return &n, nil
}

func (r *notificationRepoPG) Create(ctx context.Context, n *Notification) error {
	n.ID = uuid.New()
	n.CreatedAt = time.Now().UTC()
	var data interface{}
	if len(n.Data) > 0 {
		data = n.Data
	}
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO notifications (`+notificationCols+`)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)`,
		n.ID, n.UserID, n.Type, n.Title, n.Body, data, n.IsRead, n.ReadAt, n.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert notification: %w", err)
	}
	return nil
}

func (r *notificationRepoPG) ListByUser(ctx context.Context, userID uuid.UUID, unreadOnly bool, limit int) ([]*Notification, error) {
	query := `SELECT ` + notificationCols + ` FROM notifications WHERE user_id = $1`
	if unreadOnly {
		query += ` AND is_read = FALSE`
	}
	query += ` ORDER BY created_at DESC LIMIT $2`
	rows, err := r.conn(ctx).Query(ctx, query, userID, limit)
	if err != nil {
		return nil, err
	}
	return collect(rows, scanNotification)
}

func (r *notificationRepoPG) MarkRead(ctx context.Context, id, userID uuid.UUID) error {
	tag, err := r.conn(ctx).Exec(ctx, `
		UPDATE notifications SET is_read = TRUE, read_at = COALESCE(read_at, $3)
		WHERE id = $1 AND user_id = $2`, id, userID, time.Now().UTC())
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound("Notification")
	}
	return nil
}

func (r *notificationRepoPG) MarkAllRead(ctx context.Context, userID uuid.UUID) (int64, error) {
	tag, err := r.conn(ctx).Exec(ctx, `
		UPDATE notifications SET is_read = TRUE, read_at = $2
		WHERE user_id = $1 AND is_read = FALSE`, userID, time.Now().UTC())
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}
