package ingest

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/moham3d/sho-hl7/internal/hl7"
	"github.com/moham3d/sho-hl7/internal/models"
)

// handleAdmit maps ADT^A01 and ADT^A08 onto a patient upsert. Both triggers
// are treated identically: the record is fully replaced, last writer wins.
//
// An invalid national identifier skips the write without failing the
// message; the sender still receives AA. That matches the behavior the
// upstream systems were integrated against.
func (r *Router) handleAdmit(ctx context.Context, msg *hl7.Message) error {
	pid, ok := msg.Segment("PID")
	if !ok {
		slog.Warn("ADT message without PID segment skipped", "controlID", msg.ControlID())
		return nil
	}

	nationalID := pid.Field(3)
	if !validNationalID(nationalID) {
		slog.Warn("ADT message with invalid national ID skipped",
			"nationalID", nationalID,
			"controlID", msg.ControlID())
		return nil
	}

	patient := models.Patient{
		NationalID:  nationalID,
		FullName:    displayName(pid.Field(5)),
		DateOfBirth: pid.Field(7),
		Sex:         models.SexFromHL7(pid.Field(8)),
		Address:     pid.Field(11),
	}

	if err := r.store.UpsertPatient(ctx, patient); err != nil {
		return fmt.Errorf("admit handler: %w", err)
	}

	slog.Info("Patient upserted from ADT message",
		"nationalID", patient.NationalID,
		"name", patient.FullName,
		"controlID", msg.ControlID())
	return nil
}

// displayName joins the family and given components of PID-5
// (Family^Given[^Middle]) with a single space.
func displayName(nameField string) string {
	family := hl7.Component(nameField, 1)
	given := hl7.Component(nameField, 2)
	return strings.TrimSpace(family + " " + given)
}
