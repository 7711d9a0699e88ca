package patient

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

	"github.com/moinmakda/ChemoCareAI/internal/platform/db"
	"github.com/moinmakda/ChemoCareAI/pkg/apperr"
)

type queryable interface {
	Exec(ctx context.Context, sql string, arguments ...interface{}) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
}

type patientRepoPG struct {
	pool *pgxpool.Pool
}

func NewRepoPG(pool *pgxpool.Pool) Repository {
	return &patientRepoPG{pool: pool}
}

func (r *patientRepoPG) conn(ctx context.Context) queryable {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	if c := db.ConnFromContext(ctx); c != nil {
		return c
	}
	return r.pool
}

const patientCols = `id, user_id, first_name, last_name, date_of_birth, gender, blood_group,
	address, city, state, pincode,
	emergency_contact_name, emergency_contact_phone, emergency_contact_relation,
	height_cm, weight_kg, allergies, comorbidities, current_medications,
	cancer_type, cancer_stage, diagnosis_date, histopathology_details,
	insurance_provider, insurance_policy_number, insurance_validity,
	profile_photo_url, created_at, updated_at`

func scanPatient(row pgx.Row) (*Patient, error) {
	var p Patient
	err := row.Scan(&p.ID, &p.UserID, &p.FirstName, &p.LastName, &p.DateOfBirth, &p.Gender, &p.BloodGroup,
		&p.Address, &p.City, &p.State, &p.Pincode,
		&p.EmergencyContactName, &p.EmergencyContactPhone, &p.EmergencyContactRelation,
		&p.HeightCm, &p.WeightKg, &p.Allergies, &p.Comorbidities, &p.CurrentMedications,
		&p.CancerType, &p.CancerStage, &p.DiagnosisDate, &p.HistopathologyDetails,
		&p.InsuranceProvider, &p.InsurancePolicyNumber, &p.InsuranceValidity,
		&p.ProfilePhotoURL, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.NotFound("Patient")
		}
		return nil, err
	}
	return &p, nil
}

func strs(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

func meds(m json.RawMessage) json.RawMessage {
	if len(m) == 0 {
		return json.RawMessage("[]")
	}
	return m
}

func (r *patientRepoPG) Create(ctx context.Context, p *Patient) error {
	p.ID = uuid.New()
	now := time.Now().UTC()
	p.CreatedAt, p.UpdatedAt = now, now
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO patients (`+patientCols+`)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19,$20,$21,$22,$23,$24,$25,$26,$27,$28,$29)`,
		p.ID, p.UserID, p.FirstName, p.LastName, p.DateOfBirth, p.Gender, p.BloodGroup,
		p.Address, p.City, p.State, p.Pincode,
		p.EmergencyContactName, p.EmergencyContactPhone, p.EmergencyContactRelation,
		p.HeightCm, p.WeightKg, strs(p.Allergies), strs(p.Comorbidities), meds(p.CurrentMedications),
		p.CancerType, p.CancerStage, p.DiagnosisDate, p.HistopathologyDetails,
		p.InsuranceProvider, p.InsurancePolicyNumber, p.InsuranceValidity,
		p.ProfilePhotoURL, p.CreatedAt, p.UpdatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return apperr.New(apperr.ErrValidation, "Patient profile already exists for this user")
		}
		return fmt.Errorf("insert patient: %w", err)
	}
	return nil
}

func (r *patientRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*Patient, error) {
	return scanPatient(r.conn(ctx).QueryRow(ctx, `SELECT `+patientCols+` FROM patients WHERE id = $1`, id))
}

func (r *patientRepoPG) GetByUserID(ctx context.Context, userID uuid.UUID) (*Patient, error) {
	return scanPatient(r.conn(ctx).QueryRow(ctx, `SELECT `+patientCols+` FROM patients WHERE user_id = $1`, userID))
}

func (r *patientRepoPG) Update(ctx context.Context, p *Patient) error {
	p.UpdatedAt = time.Now().UTC()
	tag, err := r.conn(ctx).Exec(ctx, `
		UPDATE patients SET
			first_name=$2, last_name=$3, date_of_birth=$4, gender=$5, blood_group=$6,
			address=$7, city=$8, state=$9, pincode=$10,
			emergency_contact_name=$11, emergency_contact_phone=$12, emergency_contact_relation=$13,
			height_cm=$14, weight_kg=$15, allergies=$16, comorbidities=$17, current_medications=$18,
			cancer_type=$19, cancer_stage=$20, diagnosis_date=$21, histopathology_details=$22,
			insurance_provider=$23, insurance_policy_number=$24, insurance_validity=$25,
			profile_photo_url=$26, updated_at=$27
		WHERE id = $1`,
		p.ID, p.FirstName, p.LastName, p.DateOfBirth, p.Gender, p.BloodGroup,
		p.Address, p.City, p.State, p.Pincode,
		p.EmergencyContactName, p.EmergencyContactPhone, p.EmergencyContactRelation,
		p.HeightCm, p.WeightKg, strs(p.Allergies), strs(p.Comorbidities), meds(p.CurrentMedications),
		p.CancerType, p.CancerStage, p.DiagnosisDate, p.HistopathologyDetails,
		p.InsuranceProvider, p.InsurancePolicyNumber, p.InsuranceValidity,
		p.ProfilePhotoURL, p.UpdatedAt)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound("Patient")
	}
	return nil
}

func (r *patientRepoPG) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.conn(ctx).Exec(ctx, `DELETE FROM patients WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound("Patient")
	}
	return nil
}

// Search matches term case-insensitively against first name, last name and
// cancer type. An empty term lists every patient.
func (r *patientRepoPG) Search(ctx context.Context, term string, limit, offset int) ([]*Patient, int, error) {
	where := ""
	args := []interface{}{}
	if term != "" {
		where = ` WHERE first_name ILIKE $1 OR last_name ILIKE $1 OR cancer_type ILIKE $1`
		args = append(args, "%"+term+"%")
	}

	var total int
	if err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM patients`+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	n := len(args)
	query := fmt.Sprintf(`SELECT `+patientCols+` FROM patients`+where+` ORDER BY last_name, first_name LIMIT $%d OFFSET $%d`, n+1, n+2)
	args = append(args, limit, offset)

	rows, err := r.conn(ctx).Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var items []*Patient
	for rows.Next() {
		p, err := scanPatient(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, p)
	}
	return items, total, rows.Err()
}
