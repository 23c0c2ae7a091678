package ingest

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/moham3d/sho-hl7/internal/models"
)

const admitA01 = "MSH|^~\\&|HIS|FAC|RAD|FAC|20251005120000||ADT^A01|MSG001|P|2.5\r" +
	"PID|1||26409301400274||AHMED^MOHAMED||19900101|M|||12 NILE ST, CAIRO"

func TestAdmitCreatesPatient(t *testing.T) {
	st := newFakeStore()
	router := NewRouter(st)

	err := router.Route(context.Background(), parseMsg(t, admitA01))
	require.NoError(t, err)

	require.Len(t, st.patients, 1)
	p := st.patients["26409301400274"]
	assert.Equal(t, "26409301400274", p.NationalID)
	assert.Equal(t, "AHMED MOHAMED", p.FullName)
	assert.Equal(t, "19900101", p.DateOfBirth)
	assert.Equal(t, models.SexMale, p.Sex)
	assert.Equal(t, "12 NILE ST, CAIRO", p.Address)
}

func TestAdmitUpsertIsIdempotent(t *testing.T) {
	st := newFakeStore()
	router := NewRouter(st)

	require.NoError(t, router.Route(context.Background(), parseMsg(t, admitA01)))
	require.NoError(t, router.Route(context.Background(), parseMsg(t, admitA01)))

	require.Len(t, st.patients, 1)
	assert.Equal(t, "AHMED MOHAMED", st.patients["26409301400274"].FullName)
}

func TestAdmitA08ReplacesRecord(t *testing.T) {
	st := newFakeStore()
	router := NewRouter(st)

	require.NoError(t, router.Route(context.Background(), parseMsg(t, admitA01)))

	update := "MSH|^~\\&|HIS|FAC|RAD|FAC|20251006090000||ADT^A08|MSG002|P|2.5\r" +
		"PID|1||26409301400274||SALEM^MONA||19851130|F"
	require.NoError(t, router.Route(context.Background(), parseMsg(t, update)))

	require.Len(t, st.patients, 1)
	p := st.patients["26409301400274"]
	assert.Equal(t, "SALEM MONA", p.FullName)
	assert.Equal(t, models.SexFemale, p.Sex)
	// Full replace: the address from the first message is gone.
	assert.Equal(t, "", p.Address)
}

func TestAdmitInvalidIdentifierSkipsWrite(t *testing.T) {
	ids := []string{"1234", "2640930140027A", "", "264093014002745"}

	for _, id := range ids {
		st := newFakeStore()
		router := NewRouter(st)

		raw := fmt.Sprintf("MSH|^~\\&|HIS|FAC|RAD|FAC|20250101||ADT^A01|MSG003|P|2.5\r"+
			"PID|1||%s||AHMED^MOHAMED||19900101|M", id)

		// The outer pipeline still ACKs: the skip is internal bookkeeping.
		err := router.Route(context.Background(), parseMsg(t, raw))
		assert.NoError(t, err, "id %q", id)
		assert.Empty(t, st.patients, "id %q", id)
	}
}

func TestAdmitWithoutPIDSegmentSkips(t *testing.T) {
	st := newFakeStore()
	router := NewRouter(st)

	err := router.Route(context.Background(), parseMsg(t,
		"MSH|^~\\&|HIS|FAC|RAD|FAC|20250101||ADT^A01|MSG004|P|2.5"))

	assert.NoError(t, err)
	assert.Empty(t, st.patients)
}

func TestAdmitSexMapping(t *testing.T) {
	cases := []struct {
		code string
		want models.Sex
	}{
		{"M", models.SexMale},
		{"F", models.SexFemale},
		{"O", models.SexOther},
		{"U", models.SexOther},
		{"", models.SexOther},
		{"X", models.SexOther},
	}

	for _, tc := range cases {
		st := newFakeStore()
		router := NewRouter(st)

		raw := fmt.Sprintf("MSH|^~\\&|HIS|FAC|RAD|FAC|20250101||ADT^A01|MSG005|P|2.5\r"+
			"PID|1||26409301400274||AHMED^MOHAMED||19900101|%s", tc.code)
		require.NoError(t, router.Route(context.Background(), parseMsg(t, raw)))

		assert.Equal(t, tc.want, st.patients["26409301400274"].Sex, "code %q", tc.code)
	}
}

func TestAdmitSingleComponentName(t *testing.T) {
	st := newFakeStore()
	router := NewRouter(st)

	raw := "MSH|^~\\&|HIS|FAC|RAD|FAC|20250101||ADT^A01|MSG006|P|2.5\r" +
		"PID|1||26409301400274||AHMED||19900101|M"
	require.NoError(t, router.Route(context.Background(), parseMsg(t, raw)))

	assert.Equal(t, "AHMED", st.patients["26409301400274"].FullName)
}

func TestAdmitStoreFailurePropagates(t *testing.T) {
	st := newFakeStore()
	st.upsertErr = errors.New("connection refused")
	router := NewRouter(st)

	err := router.Route(context.Background(), parseMsg(t, admitA01))
	assert.Error(t, err)
}
