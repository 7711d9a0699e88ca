package identity

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/moinmakda/ChemoCareAI/internal/platform/auth"
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

// -- User Repository --

type userRepoPG struct {
	pool *pgxpool.Pool
}

func NewUserRepoPG(pool *pgxpool.Pool) UserRepository {
	return &userRepoPG{pool: pool}
}

func (r *userRepoPG) conn(ctx context.Context) queryable {
	return connFor(ctx, r.pool)
}

const userCols = `id, email, phone, full_name, password_hash, role, is_active, is_verified,
	created_at, updated_at, last_login`

func scanUser(row pgx.Row) (*User, error) {
	var u User
	var role string
	err := row.Scan(&u.ID, &u.Email, &u.Phone, &u.FullName, &u.PasswordHash, &role,
		&u.IsActive, &u.IsVerified, &u.CreatedAt, &u.UpdatedAt, &u.LastLogin)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.NotFound("User")
		}
		return nil, err
	}
	u.Role = auth.Role(role)
	return &u, nil
}

func (r *userRepoPG) Create(ctx context.Context, u *User) error {
	u.ID = uuid.New()
	now := time.Now().UTC()
	u.CreatedAt, u.UpdatedAt = now, now
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO users (id, email, phone, full_name, password_hash, role, is_active, is_verified, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		u.ID, u.Email, u.Phone, u.FullName, u.PasswordHash, string(u.Role), u.IsActive, u.IsVerified, u.CreatedAt, u.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert user: %w", err)
	}
	return nil
}

func (r *userRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*User, error) {
	return scanUser(r.conn(ctx).QueryRow(ctx, `SELECT `+userCols+` FROM users WHERE id = $1`, id))
}

func (r *userRepoPG) GetByEmail(ctx context.Context, email string) (*User, error) {
	return scanUser(r.conn(ctx).QueryRow(ctx, `SELECT `+userCols+` FROM users WHERE email = $1`, email))
}

func (r *userRepoPG) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	var exists bool
	err := r.conn(ctx).QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM users WHERE email = $1)`, email).Scan(&exists)
	return exists, err
}

func (r *userRepoPG) ExistsByPhone(ctx context.Context, phone string) (bool, error) {
	var exists bool
	err := r.conn(ctx).QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM users WHERE phone = $1)`, phone).Scan(&exists)
	return exists, err
}

func (r *userRepoPG) UpdatePassword(ctx context.Context, id uuid.UUID, hash string) error {
	tag, err := r.conn(ctx).Exec(ctx, `UPDATE users SET password_hash = $2, updated_at = NOW() WHERE id = $1`, id, hash)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound("User")
	}
	return nil
}

func (r *userRepoPG) TouchLastLogin(ctx context.Context, id uuid.UUID, at time.Time) error {
	_, err := r.conn(ctx).Exec(ctx, `UPDATE users SET last_login = $2 WHERE id = $1`, id, at)
	return err
}

// -- Doctor Repository --

type doctorRepoPG struct {
	pool *pgxpool.Pool
}

func NewDoctorRepoPG(pool *pgxpool.Pool) DoctorRepository {
	return &doctorRepoPG{pool: pool}
}

func (r *doctorRepoPG) conn(ctx context.Context) queryable {
	return connFor(ctx, r.pool)
}

const doctorCols = `id, user_id, first_name, last_name, specialization, qualification, registration_number,
	experience_years, is_opd_doctor, is_daycare_doctor, photo_url, signature_url, created_at, updated_at`

func scanDoctor(row pgx.Row) (*Doctor, error) {
	var d Doctor
	err := row.Scan(&d.ID, &d.UserID, &d.FirstName, &d.LastName, &d.Specialization, &d.Qualification,
		&d.RegistrationNumber, &d.ExperienceYears, &d.IsOPDDoctor, &d.IsDaycareDoctor,
		&d.PhotoURL, &d.SignatureURL, &d.CreatedAt, &d.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.NotFound("Doctor")
		}
		return nil, err
	}
	return &d, nil
}

func (r *doctorRepoPG) Create(ctx context.Context, d *Doctor) error {
	d.ID = uuid.New()
	now := time.Now().UTC()
	d.CreatedAt, d.UpdatedAt = now, now
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO doctors (id, user_id, first_name, last_name, specialization, qualification,
			registration_number, experience_years, is_opd_doctor, is_daycare_doctor,
			photo_url, signature_url, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14)`,
		d.ID, d.UserID, d.FirstName, d.LastName, d.Specialization, d.Qualification,
		d.RegistrationNumber, d.ExperienceYears, d.IsOPDDoctor, d.IsDaycareDoctor,
		d.PhotoURL, d.SignatureURL, d.CreatedAt, d.UpdatedAt)
	return translateUnique(err, "Doctor")
}

func (r *doctorRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*Doctor, error) {
	return scanDoctor(r.conn(ctx).QueryRow(ctx, `SELECT `+doctorCols+` FROM doctors WHERE id = $1`, id))
}

func (r *doctorRepoPG) GetByUserID(ctx context.Context, userID uuid.UUID) (*Doctor, error) {
	return scanDoctor(r.conn(ctx).QueryRow(ctx, `SELECT `+doctorCols+` FROM doctors WHERE user_id = $1`, userID))
}

func (r *doctorRepoPG) List(ctx context.Context, limit, offset int) ([]*Doctor, int, error) {
	var total int
	if err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM doctors`).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.conn(ctx).Query(ctx, `SELECT `+doctorCols+` FROM doctors ORDER BY last_name, first_name LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var items []*Doctor
	for rows.Next() {
		d, err := scanDoctor(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, d)
	}
	return items, total, rows.Err()
}

func (r *doctorRepoPG) DaycareUserIDs(ctx context.Context) ([]uuid.UUID, error) {
	rows, err := r.conn(ctx).Query(ctx, `
		SELECT d.user_id FROM doctors d JOIN users u ON u.id = d.user_id
		WHERE u.is_active AND (d.is_daycare_doctor OR u.role = 'doctor_daycare')
		ORDER BY d.last_name, d.first_name`)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, pgx.RowTo[uuid.UUID])
}

// -- Nurse Repository --

type nurseRepoPG struct {
	pool *pgxpool.Pool
}

func NewNurseRepoPG(pool *pgxpool.Pool) NurseRepository {
	return &nurseRepoPG{pool: pool}
}

func (r *nurseRepoPG) conn(ctx context.Context) queryable {
	return connFor(ctx, r.pool)
}

const nurseCols = `id, user_id, first_name, last_name, qualification, registration_number,
	experience_years, chemo_certified, certification_date, photo_url, created_at, updated_at`

func scanNurse(row pgx.Row) (*Nurse, error) {
	var n Nurse
	err := row.Scan(&n.ID, &n.UserID, &n.FirstName, &n.LastName, &n.Qualification, &n.RegistrationNumber,
		&n.ExperienceYears, &n.ChemoCertified, &n.CertificationDate, &n.PhotoURL, &n.CreatedAt, &n.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.NotFound("Nurse")
		}
		return nil, err
	}
	return &n, nil
}

func (r *nurseRepoPG) Create(ctx context.Context, n *Nurse) error {
	n.ID = uuid.New()
	now := time.Now().UTC()
	n.CreatedAt, n.UpdatedAt = now, now
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO nurses (id, user_id, first_name, last_name, qualification, registration_number,
			experience_years, chemo_certified, certification_date, photo_url, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)`,
		n.ID, n.UserID, n.FirstName, n.LastName, n.Qualification, n.RegistrationNumber,
		n.ExperienceYears, n.ChemoCertified, n.CertificationDate, n.PhotoURL, n.CreatedAt, n.UpdatedAt)
	return translateUnique(err, "Nurse")
}

func (r *nurseRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*Nurse, error) {
	return scanNurse(r.conn(ctx).QueryRow(ctx, `SELECT `+nurseCols+` FROM nurses WHERE id = $1`, id))
}

func (r *nurseRepoPG) GetByUserID(ctx context.Context, userID uuid.UUID) (*Nurse, error) {
	return scanNurse(r.conn(ctx).QueryRow(ctx, `SELECT `+nurseCols+` FROM nurses WHERE user_id = $1`, userID))
}

func (r *nurseRepoPG) List(ctx context.Context, limit, offset int) ([]*Nurse, int, error) {
	var total int
	if err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM nurses`).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.conn(ctx).Query(ctx, `SELECT `+nurseCols+` FROM nurses ORDER BY last_name, first_name LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var items []*Nurse
	for rows.Next() {
		n, err := scanNurse(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, n)
	}
	return items, total, rows.Err()
}

// translateUnique turns a unique-constraint violation into a conflict.
func translateUnique(err error, what string) error {
	if err == nil {
		return nil
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return apperr.New(apperr.ErrConflict, "%s profile already exists", what)
	}
	return err
}
