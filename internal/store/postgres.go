package store

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/lib/pq"

	"github.com/moham3d/sho-hl7/internal/models"
)

// uniqueOpenVisitConstraint names the partial unique index that closes the
// duplicate-order race across concurrent connections.
const uniqueOpenVisitConstraint = "visits_open_system_reason_idx"

const schema = `
CREATE TABLE IF NOT EXISTS patients (
	national_id   VARCHAR(14) PRIMARY KEY,
	full_name     TEXT NOT NULL,
	date_of_birth TEXT NOT NULL DEFAULT '',
	sex           TEXT NOT NULL DEFAULT 'other',
	address       TEXT NOT NULL DEFAULT '',
	updated_at    TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS visits (
	id                  UUID PRIMARY KEY,
	patient_national_id VARCHAR(14) NOT NULL,
	status              TEXT NOT NULL DEFAULT 'open',
	reason              TEXT NOT NULL DEFAULT '',
	visit_type          TEXT NOT NULL DEFAULT 'outpatient',
	department          TEXT NOT NULL DEFAULT 'radiology',
	provenance          TEXT NOT NULL DEFAULT 'manual',
	created_at          TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE UNIQUE INDEX IF NOT EXISTS visits_open_system_reason_idx
	ON visits (patient_national_id, reason)
	WHERE status IN ('open', 'in_progress') AND provenance = 'system-generated';
`

// PostgresStore implements Store over the host application's relational
// database.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// Open connects to Postgres and verifies the connection.
func Open(ctx context.Context, databaseURL string) (*PostgresStore, error) {
	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}
	return NewPostgresStore(db), nil
}

// EnsureSchema applies the subsystem's tables and the uniqueness guard for
// system-generated visits.
func (s *PostgresStore) EnsureSchema(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("applying schema: %w", err)
	}
	slog.Info("Database schema ensured")
	return nil
}

func (s *PostgresStore) UpsertPatient(ctx context.Context, p models.Patient) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO patients (national_id, full_name, date_of_birth, sex, address, updated_at)
		VALUES ($1, $2, $3, $4, $5, now())
		ON CONFLICT (national_id) DO UPDATE SET
			full_name     = EXCLUDED.full_name,
			date_of_birth = EXCLUDED.date_of_birth,
			sex           = EXCLUDED.sex,
			address       = EXCLUDED.address,
			updated_at    = now()`,
		p.NationalID, p.FullName, p.DateOfBirth, string(p.Sex), p.Address)
	if err != nil {
		return fmt.Errorf("upserting patient %s: %w", p.NationalID, err)
	}
	return nil
}

func (s *PostgresStore) FindOpenOrInProgressVisit(ctx context.Context, nationalID, reason, provenance string) (*models.Visit, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, patient_national_id, status, reason, visit_type, department, provenance, created_at
		FROM visits
		WHERE patient_national_id = $1
		  AND reason = $2
		  AND provenance = $3
		  AND status IN ('open', 'in_progress')
		LIMIT 1`,
		nationalID, reason, provenance)

	var v models.Visit
	err := row.Scan(&v.ID, &v.PatientNationalID, &v.Status, &v.Reason,
		&v.VisitType, &v.Department, &v.Provenance, &v.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("querying open visit for %s: %w", nationalID, err)
	}
	return &v, nil
}

func (s *PostgresStore) CreateVisit(ctx context.Context, v models.Visit) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO visits (id, patient_national_id, status, reason, visit_type, department, provenance, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		v.ID, v.PatientNationalID, v.Status, v.Reason, v.VisitType, v.Department, v.Provenance, v.CreatedAt)
	if err != nil {
		if pqErr, ok := err.(*pq.Error); ok && pqErr.Code.Name() == "unique_violation" && pqErr.Constraint == uniqueOpenVisitConstraint {
			return ErrDuplicateVisit
		}
		return fmt.Errorf("inserting visit for %s: %w", v.PatientNationalID, err)
	}
	return nil
}

func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close releases the underlying connection pool.
func (s *PostgresStore) Close() error {
	return s.db.Close()
}
