package store

import (
	"context"
	"errors"

	"github.com/moham3d/sho-hl7/internal/models"
)

// ErrDuplicateVisit is returned by CreateVisit when the schema-level
// uniqueness guard rejects a second open system-generated visit for the
// same patient and reason. Callers treat it as successful suppression.
var ErrDuplicateVisit = errors.New("store: open visit already exists for patient and reason")

// Store is the Patient/Visit repository consumed by the ingest handlers.
// The backing schema is owned by the host application; this subsystem only
// upserts patients and inserts visits.
type Store interface {
	// UpsertPatient creates or fully replaces the patient record keyed by
	// its national identifier.
	UpsertPatient(ctx context.Context, p models.Patient) error

	// FindOpenOrInProgressVisit returns the first visit matching the
	// patient identifier, exact reason string and provenance whose status
	// is open or in_progress, or nil when none exists.
	FindOpenOrInProgressVisit(ctx context.Context, nationalID, reason, provenance string) (*models.Visit, error)

	// CreateVisit inserts a new visit. Returns ErrDuplicateVisit when an
	// equivalent open system-generated visit raced in first.
	CreateVisit(ctx context.Context, v models.Visit) error

	// Ping reports storage reachability for health checks.
	Ping(ctx context.Context) error
}
