package ingest

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/moham3d/sho-hl7/internal/hl7"
	"github.com/moham3d/sho-hl7/internal/models"
	"github.com/moham3d/sho-hl7/internal/store"
)

// handleOrder maps ORM^O01 onto a new open radiology visit. Resent orders
// are suppressed: if an open or in-progress system-generated visit already
// exists for the same patient and reason, no second visit is created.
func (r *Router) handleOrder(ctx context.Context, msg *hl7.Message) error {
	nationalID := msg.Field("PID", 3)
	if !validNationalID(nationalID) {
		slog.Warn("ORM message with invalid national ID skipped",
			"nationalID", nationalID,
			"controlID", msg.ControlID())
		return nil
	}

	obr, _ := msg.Segment("OBR")
	placerOrder := obr.Field(2)
	reason := orderReason(obr)

	existing, err := r.store.FindOpenOrInProgressVisit(ctx, nationalID, reason, models.ProvenanceSystem)
	if err != nil {
		return fmt.Errorf("order handler: %w", err)
	}
	if existing != nil {
		slog.Info("Duplicate order suppressed",
			"nationalID", nationalID,
			"reason", reason,
			"placerOrder", placerOrder,
			"existingVisit", existing.ID)
		return nil
	}

	visit := models.Visit{
		ID:                uuid.New().String(),
		PatientNationalID: nationalID,
		Status:            models.VisitStatusOpen,
		Reason:            reason,
		VisitType:         models.VisitTypeOutpatient,
		Department:        models.DepartmentRadiology,
		Provenance:        models.ProvenanceSystem,
		CreatedAt:         time.Now(),
	}

	if err := r.store.CreateVisit(ctx, visit); err != nil {
		// A concurrent connection inserted the same visit between our
		// check and insert; the schema guard caught it.
		if errors.Is(err, store.ErrDuplicateVisit) {
			slog.Info("Duplicate order suppressed by schema guard",
				"nationalID", nationalID,
				"reason", reason,
				"placerOrder", placerOrder)
			return nil
		}
		return fmt.Errorf("order handler: %w", err)
	}

	slog.Info("Visit created from ORM message",
		"visitID", visit.ID,
		"nationalID", nationalID,
		"reason", reason,
		"placerOrder", placerOrder,
		"controlID", msg.ControlID())
	return nil
}

// orderReason derives the visit reason: the relevant clinical information
// (OBR-13) when present, otherwise the procedure description from the
// universal service identifier (OBR-4, CODE^DESCRIPTION).
func orderReason(obr hl7.Segment) string {
	if clinical := strings.TrimSpace(obr.Field(13)); clinical != "" {
		return clinical
	}

	service := obr.Field(4)
	if strings.Contains(service, hl7.ComponentSeparator) {
		return hl7.Component(service, 2)
	}
	return service
}
