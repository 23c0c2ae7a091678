package hl7

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// ACK acknowledgment codes written to MSA-1.
const (
	AckAccept = "AA" // application accept
	AckError  = "AE" // application error
)

// Identity of this service in outgoing ACK headers. The sending system only
// inspects the MSA code, so these stay deployment-fixed constants.
const (
	ackApplication = "SHO_HL7"
	ackFacility    = "RADIOLOGY"
)

// BuildACK builds a minimal two-segment acknowledgment for original,
// referencing its control ID in MSA-2. The original may be nil (message
// never parsed); the receiver fields are then left empty, which the sending
// systems in this deployment tolerate.
func BuildACK(original *Message, code string) []byte {
	var receivingApp, receivingFacility, controlID string
	if original != nil {
		receivingApp = original.SendingApplication()
		receivingFacility = original.SendingFacility()
		controlID = original.ControlID()
	}

	ack := fmt.Sprintf("MSH|^~\\&|%s|%s|%s|%s|%s||ACK|%s|P|2.5\rMSA|%s|%s",
		ackApplication,
		ackFacility,
		receivingApp,
		receivingFacility,
		time.Now().Format("20060102150405"),
		uuid.New().String(),
		code,
		controlID)

	return []byte(ack)
}
