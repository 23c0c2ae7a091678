package ingest

import (
	"context"
	"log/slog"
	"regexp"

	"github.com/moham3d/sho-hl7/internal/hl7"
	"github.com/moham3d/sho-hl7/internal/store"
)

// nationalIDPattern is the identifier format this deployment accepts in
// PID-3: exactly 14 numeric characters.
var nationalIDPattern = regexp.MustCompile(`^\d{14}$`)

// Router dispatches parsed HL7 messages to the domain handlers. Messages
// outside the dispatch table are acknowledged but not acted upon, so an
// upstream sender's retry logic is never blocked by message types we do
// not understand.
type Router struct {
	store store.Store
}

func NewRouter(st store.Store) *Router {
	return &Router{store: st}
}

// Route inspects MSH-9 and runs the matching handler. A nil return means
// the message should be positively acknowledged, including the
// unhandled-message case.
func (r *Router) Route(ctx context.Context, msg *hl7.Message) error {
	msgType, trigger := msg.Type()

	switch {
	case msgType == "ADT" && (trigger == "A01" || trigger == "A08"):
		return r.handleAdmit(ctx, msg)
	case msgType == "ORM" && trigger == "O01":
		return r.handleOrder(ctx, msg)
	default:
		slog.Debug("Unhandled message type acknowledged",
			"messageType", msgType,
			"triggerEvent", trigger,
			"controlID", msg.ControlID())
		return nil
	}
}

func validNationalID(id string) bool {
	return nationalIDPattern.MatchString(id)
}
