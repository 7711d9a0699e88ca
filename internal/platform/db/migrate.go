package db

import (
	"context"
	"fmt"
	"io/fs"
	"path"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Migration is one numbered SQL file, e.g. 003_treatment.sql.
type Migration struct {
	Version   int
	Name      string
	SQL       string
	AppliedAt time.Time
}

type MigrationStatus struct {
	Version   int
	Name      string
	Applied   bool
	AppliedAt *time.Time
}

// Migrator applies forward-only SQL migrations to a schema. Applied versions
// are tracked in <schema>.schema_migrations.
type Migrator struct {
	pool *pgxpool.Pool
	fsys fs.FS
}

// NewMigrator reads *.sql from the root of fsys: the embedded set, or
// os.DirFS when migrate is pointed at a directory.
func NewMigrator(pool *pgxpool.Pool, fsys fs.FS) *Migrator {
	return &Migrator{pool: pool, fsys: fsys}
}

func trackingTable(schema string) string {
	return pgx.Identifier{schema, "schema_migrations"}.Sanitize()
}

func (m *Migrator) ensureTable(ctx context.Context, schema string) error {
	_, err := m.pool.Exec(ctx, `CREATE TABLE IF NOT EXISTS `+trackingTable(schema)+` (
		version    INTEGER PRIMARY KEY,
		name       VARCHAR(255) NOT NULL,
		applied_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`)
	if err != nil {
		return fmt.Errorf("create migration table in %s: %w", schema, err)
	}
	return nil
}

// parseVersion extracts 3 from "003_treatment.sql". ok is false for files
// that are not numbered SQL migrations.
func parseVersion(name string) (int, bool) {
	if path.Ext(name) != ".sql" {
		return 0, false
	}
	prefix, _, found := strings.Cut(name, "_")
	if !found {
		return 0, false
	}
	v, err := strconv.Atoi(prefix)
	if err != nil || v <= 0 {
		return 0, false
	}
	return v, true
}

// LoadMigrations returns every numbered migration in version order. Other
// files are ignored.
func (m *Migrator) LoadMigrations() ([]Migration, error) {
	entries, err := fs.ReadDir(m.fsys, ".")
	if err != nil {
		return nil, fmt.Errorf("read migrations: %w", err)
	}

	var out []Migration
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		v, ok := parseVersion(e.Name())
		if !ok {
			continue
		}
		body, err := fs.ReadFile(m.fsys, e.Name())
		if err != nil {
			return nil, fmt.Errorf("read migration %s: %w", e.Name(), err)
		}
		out = append(out, Migration{Version: v, Name: e.Name(), SQL: string(body)})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Version < out[j].Version })
	return out, nil
}

// Pending filters all down to the versions missing from applied, keeping
// order.
func Pending(all []Migration, applied map[int]bool) []Migration {
	var out []Migration
	for _, mig := range all {
		if !applied[mig.Version] {
			out = append(out, mig)
		}
	}
	return out
}

func (m *Migrator) applied(ctx context.Context, schema string) (map[int]time.Time, error) {
	rows, err := m.pool.Query(ctx, `SELECT version, applied_at FROM `+trackingTable(schema))
	if err != nil {
		return nil, fmt.Errorf("read applied migrations in %s: %w", schema, err)
	}
	versions, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (Migration, error) {
		var mig Migration
		err := row.Scan(&mig.Version, &mig.AppliedAt)
		return mig, err
	})
	if err != nil {
		return nil, fmt.Errorf("read applied migrations in %s: %w", schema, err)
	}
	out := make(map[int]time.Time, len(versions))
	for _, v := range versions {
		out[v.Version] = v.AppliedAt
	}
	return out, nil
}

// Up applies every pending migration, each in its own transaction, and
// returns how many ran. Concurrent callers on the same schema serialize on
// an advisory lock, and a version another caller applied first is skipped.
func (m *Migrator) Up(ctx context.Context, schema string) (int, error) {
	if err := m.ensureTable(ctx, schema); err != nil {
		return 0, err
	}
	all, err := m.LoadMigrations()
	if err != nil {
		return 0, err
	}
	done, err := m.applied(ctx, schema)
	if err != nil {
		return 0, err
	}
	seen := make(map[int]bool, len(done))
	for v := range done {
		seen[v] = true
	}

	count := 0
	for _, mig := range Pending(all, seen) {
		ran, err := m.apply(ctx, schema, mig)
		if err != nil {
			return count, fmt.Errorf("apply migration %s: %w", mig.Name, err)
		}
		if ran {
			count++
		}
	}
	return count, nil
}

func (m *Migrator) apply(ctx context.Context, schema string, mig Migration) (bool, error) {
	tx, err := m.pool.Begin(ctx)
	if err != nil {
		return false, fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `SELECT pg_advisory_xact_lock(hashtext($1))`, "migrate:"+schema); err != nil {
		return false, fmt.Errorf("lock: %w", err)
	}
	var exists bool
	if err := tx.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM `+trackingTable(schema)+` WHERE version = $1)`, mig.Version,
	).Scan(&exists); err != nil {
		return false, err
	}
	if exists {
		return false, nil
	}

	if _, err := tx.Exec(ctx, `SET LOCAL search_path TO `+pgx.Identifier{schema}.Sanitize()); err != nil {
		return false, fmt.Errorf("set search_path: %w", err)
	}
	if _, err := tx.Exec(ctx, mig.SQL); err != nil {
		return false, err
	}
	if _, err := tx.Exec(ctx,
		`INSERT INTO `+trackingTable(schema)+` (version, name) VALUES ($1, $2)`, mig.Version, mig.Name,
	); err != nil {
		return false, fmt.Errorf("record: %w", err)
	}
	return true, tx.Commit(ctx)
}

// Status lists every known migration with when it was applied, if it was.
func (m *Migrator) Status(ctx context.Context, schema string) ([]MigrationStatus, error) {
	if err := m.ensureTable(ctx, schema); err != nil {
		return nil, err
	}
	all, err := m.LoadMigrations()
	if err != nil {
		return nil, err
	}
	done, err := m.applied(ctx, schema)
	if err != nil {
		return nil, err
	}

	out := make([]MigrationStatus, 0, len(all))
	for _, mig := range all {
		st := MigrationStatus{Version: mig.Version, Name: mig.Name}
		if at, ok := done[mig.Version]; ok {
			st.Applied, st.AppliedAt = true, &at
		}
		out = append(out, st)
	}
	return out, nil
}
