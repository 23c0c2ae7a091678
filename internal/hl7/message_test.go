package hl7

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleADT = "MSH|^~\\&|HIS|FAC|RAD|FAC|20251005120000||ADT^A01|MSG001|P|2.5\r" +
	"PID|1||26409301400274||AHMED^MOHAMED||19900101|M"

func TestParseSegmentsAndFields(t *testing.T) {
	msg, err := Parse([]byte(sampleADT))
	require.NoError(t, err)
	require.Len(t, msg.Segments, 2)

	pid, ok := msg.Segment("PID")
	require.True(t, ok)
	assert.Equal(t, "1", pid.Field(1))
	assert.Equal(t, "26409301400274", pid.Field(3))
	assert.Equal(t, "AHMED^MOHAMED", pid.Field(5))
	assert.Equal(t, "19900101", pid.Field(7))
	assert.Equal(t, "M", pid.Field(8))
}

func TestParseMSHNumbering(t *testing.T) {
	// The field separator counts as MSH-1, so the message type lands on
	// MSH-9 and the control ID on MSH-10.
	msg, err := Parse([]byte(sampleADT))
	require.NoError(t, err)

	assert.Equal(t, "|", msg.Field("MSH", 1))
	assert.Equal(t, "^~\\&", msg.Field("MSH", 2))
	assert.Equal(t, "HIS", msg.SendingApplication())
	assert.Equal(t, "FAC", msg.SendingFacility())
	assert.Equal(t, "ADT^A01", msg.Field("MSH", 9))
	assert.Equal(t, "MSG001", msg.ControlID())
}

func TestParseNormalizesLineEndings(t *testing.T) {
	msg, err := Parse([]byte("MSH|^~\\&|A|B|C|D|20250101||ORM^O01|ID1|P|2.5\nPID|1||12345678901234\r\n"))
	require.NoError(t, err)
	assert.Len(t, msg.Segments, 2)
	assert.Equal(t, "12345678901234", msg.Field("PID", 3))
}

func TestParseMissingMSH(t *testing.T) {
	_, err := Parse([]byte("PID|1||26409301400274||AHMED^MOHAMED"))
	assert.ErrorIs(t, err, ErrMissingMSH)

	_, err = Parse([]byte(""))
	assert.ErrorIs(t, err, ErrMissingMSH)
}

func TestFieldOutOfRangeIsEmpty(t *testing.T) {
	msg, err := Parse([]byte(sampleADT))
	require.NoError(t, err)

	pid, _ := msg.Segment("PID")
	assert.Equal(t, "", pid.Field(11))
	assert.Equal(t, "", pid.Field(0))
	assert.Equal(t, "", msg.Field("OBR", 4)) // absent segment
}

func TestMessageType(t *testing.T) {
	msg, err := Parse([]byte(sampleADT))
	require.NoError(t, err)

	msgType, trigger := msg.Type()
	assert.Equal(t, "ADT", msgType)
	assert.Equal(t, "A01", trigger)
}

func TestMessageTypeWithoutTrigger(t *testing.T) {
	msg, err := Parse([]byte("MSH|^~\\&|A|B|C|D|20250101||ADT|ID2|P|2.5"))
	require.NoError(t, err)

	msgType, trigger := msg.Type()
	assert.Equal(t, "ADT", msgType)
	assert.Equal(t, "", trigger)
}

func TestComponent(t *testing.T) {
	assert.Equal(t, "RAD001", Component("RAD001^CHEST X-RAY", 1))
	assert.Equal(t, "CHEST X-RAY", Component("RAD001^CHEST X-RAY", 2))
	assert.Equal(t, "", Component("RAD001^CHEST X-RAY", 3))
	assert.Equal(t, "PLAIN", Component("PLAIN", 1))
	assert.Equal(t, "", Component("PLAIN", 2))
}
