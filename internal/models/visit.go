package models

import "time"

// Visit statuses this subsystem reads or writes. Visits are only ever
// created open here; closure happens in the host application.
const (
	VisitStatusOpen       = "open"
	VisitStatusInProgress = "in_progress"
)

// Fixed attributes of system-generated visits.
const (
	VisitTypeOutpatient = "outpatient"
	DepartmentRadiology = "radiology"
	ProvenanceSystem    = "system-generated"
	ProvenanceManual    = "manual"
)

// Visit is one radiology encounter owned by a patient.
type Visit struct {
	ID                string    `json:"id"`
	PatientNationalID string    `json:"patient_national_id"`
	Status            string    `json:"status"`
	Reason            string    `json:"reason"`
	VisitType         string    `json:"visit_type"`
	Department        string    `json:"department"`
	Provenance        string    `json:"provenance"`
	CreatedAt         time.Time `json:"created_at"`
}
