package ingest

import (
	"context"
	"sync"

	"github.com/moham3d/sho-hl7/internal/models"
)

// fakeStore is an in-memory Store used by the handler tests.
type fakeStore struct {
	mu       sync.Mutex
	patients map[string]models.Patient
	visits   []models.Visit

	upsertErr error
	findErr   error
	createErr error
}

func newFakeStore() *fakeStore {
	return &fakeStore{patients: make(map[string]models.Patient)}
}

func (f *fakeStore) UpsertPatient(_ context.Context, p models.Patient) error {
	if f.upsertErr != nil {
		return f.upsertErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.patients[p.NationalID] = p
	return nil
}

func (f *fakeStore) FindOpenOrInProgressVisit(_ context.Context, nationalID, reason, provenance string) (*models.Visit, error) {
	if f.findErr != nil {
		return nil, f.findErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.visits {
		v := f.visits[i]
		if v.PatientNationalID == nationalID && v.Reason == reason && v.Provenance == provenance &&
			(v.Status == models.VisitStatusOpen || v.Status == models.VisitStatusInProgress) {
			return &v, nil
		}
	}
	return nil, nil
}

func (f *fakeStore) CreateVisit(_ context.Context, v models.Visit) error {
	if f.createErr != nil {
		return f.createErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.visits = append(f.visits, v)
	return nil
}

func (f *fakeStore) Ping(_ context.Context) error {
	return nil
}
