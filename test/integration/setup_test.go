//go:build integration

package integration

import (
	"context"
	"fmt"
	"os"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/moinmakda/ChemoCareAI/internal/domain/identity"
	"github.com/moinmakda/ChemoCareAI/internal/domain/patient"
	"github.com/moinmakda/ChemoCareAI/internal/platform/auth"
	"github.com/moinmakda/ChemoCareAI/internal/platform/db"
	"github.com/moinmakda/ChemoCareAI/migrations"
	"github.com/moinmakda/ChemoCareAI/pkg/civil"
)

// globalPool is shared by every test; each test works in its own schema.
var globalPool *pgxpool.Pool

func TestMain(m *testing.M) {
	ctx := context.Background()

	connStr := os.Getenv("TEST_DATABASE_URL")
	cleanup := func() {}
	if connStr == "" {
		var err error
		connStr, cleanup, err = startPostgres(ctx)
		if err != nil {
			fmt.Fprintf(os.Stderr, "failed to start postgres: %v\n", err)
			os.Exit(1)
		}
	}

	pool, err := pgxpool.New(ctx, connStr)
	if err != nil {
		cleanup()
		fmt.Fprintf(os.Stderr, "create pool: %v\n", err)
		os.Exit(1)
	}

	globalPool = pool
	code := m.Run()
	pool.Close()
	cleanup()
	os.Exit(code)
}

// newSchema creates a uniquely named schema with every migration applied and
// drops it when the test ends.
func newSchema(t *testing.T, prefix string) string {
	t.Helper()
	ctx := context.Background()
	schema := fmt.Sprintf("%s_%s", prefix, strings.ReplaceAll(uuid.NewString()[:8], "-", ""))

	if err := db.CreateSchema(ctx, globalPool, schema, db.NewMigrator(globalPool, migrations.FS)); err != nil {
		t.Fatalf("create schema %s: %v", schema, err)
	}
	t.Cleanup(func() {
		if _, err := globalPool.Exec(context.Background(), "DROP SCHEMA IF EXISTS "+schema+" CASCADE"); err != nil {
			t.Logf("warning: drop schema %s: %v", schema, err)
		}
	})
	return schema
}

// withSchemaConn pins one connection with search_path set to schema and hands
// fn a context carrying it, the way db.ConnMiddleware does for requests.
func withSchemaConn(t *testing.T, schema string, fn func(ctx context.Context)) {
	t.Helper()
	ctx, release := schemaConn(t, schema)
	defer release()
	fn(ctx)
}

// schemaConn is withSchemaConn for callers that need several connections at
// once, e.g. one per goroutine.
func schemaConn(t *testing.T, schema string) (context.Context, func()) {
	t.Helper()
	ctx := context.Background()
	conn, err := globalPool.Acquire(ctx)
	if err != nil {
		t.Fatalf("acquire conn: %v", err)
	}
	if _, err := conn.Exec(ctx, "SET search_path TO "+schema); err != nil {
		conn.Release()
		t.Fatalf("set search_path: %v", err)
	}
	release := func() {
		conn.Exec(context.Background(), "RESET search_path")
		conn.Release()
	}
	return context.WithValue(ctx, db.DBConnKey, conn), release
}

func createUser(t *testing.T, ctx context.Context, role auth.Role, email string) *identity.User {
	t.Helper()
	u := &identity.User{
		Email:        email,
		FullName:     "Test " + string(role),
		PasswordHash: "$2a$10$abcdefghijklmnopqrstuv",
		Role:         role,
		IsActive:     true,
	}
	if err := identity.NewUserRepoPG(globalPool).Create(ctx, u); err != nil {
		t.Fatalf("create user %s: %v", email, err)
	}
	return u
}

func createDoctor(t *testing.T, ctx context.Context, role auth.Role, email, regNo string) (*identity.User, *identity.Doctor) {
	t.Helper()
	u := createUser(t, ctx, role, email)
	d := &identity.Doctor{
		UserID:             u.ID,
		FirstName:          "Ravi",
		LastName:           "Menon",
		Specialization:     "Medical Oncology",
		RegistrationNumber: regNo,
		IsOPDDoctor:        role == auth.RoleDoctorOPD,
		IsDaycareDoctor:    role == auth.RoleDoctorDaycare,
	}
	if err := identity.NewDoctorRepoPG(globalPool).Create(ctx, d); err != nil {
		t.Fatalf("create doctor: %v", err)
	}
	return u, d
}

func createNurse(t *testing.T, ctx context.Context, email, regNo string) (*identity.User, *identity.Nurse) {
	t.Helper()
	u := createUser(t, ctx, auth.RoleNurse, email)
	n := &identity.Nurse{
		UserID:             u.ID,
		FirstName:          "Lata",
		LastName:           "Iyer",
		RegistrationNumber: regNo,
		ChemoCertified:     true,
	}
	if err := identity.NewNurseRepoPG(globalPool).Create(ctx, n); err != nil {
		t.Fatalf("create nurse: %v", err)
	}
	return u, n
}

func createPatient(t *testing.T, ctx context.Context, userID *uuid.UUID, first, last string) *patient.Patient {
	t.Helper()
	cancer := "Breast"
	p := &patient.Patient{
		UserID:             userID,
		FirstName:          first,
		LastName:           last,
		DateOfBirth:        civil.MustParse("1968-09-02"),
		Gender:             "female",
		HeightCm:           ptrFloat(160),
		WeightKg:           ptrFloat(64),
		Allergies:          []string{},
		Comorbidities:      []string{"Hypertension"},
		CurrentMedications: []byte(`["Amlodipine"]`),
		CancerType:         &cancer,
	}
	if err := patient.NewRepoPG(globalPool).Create(ctx, p); err != nil {
		t.Fatalf("create patient: %v", err)
	}
	return p
}

func ptrStr(s string) *string { return &s }

func ptrFloat(f float64) *float64 { return &f }

func ptrInt(i int) *int { return &i }

func ptrUUID(u uuid.UUID) *uuid.UUID { return &u }
