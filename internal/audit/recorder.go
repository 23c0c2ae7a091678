package audit

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go/jetstream"

	"github.com/moham3d/sho-hl7/internal/hl7"
	natsembed "github.com/moham3d/sho-hl7/internal/nats"
)

// Entry is one audited inbound message. RawMessage keeps the unframed HL7
// payload for operational inspection; entries expire with the bucket TTL.
type Entry struct {
	ID          string    `json:"id"`
	Timestamp   time.Time `json:"timestamp"`
	RemoteAddr  string    `json:"remote_addr"`
	MessageType string    `json:"message_type"`
	ControlID   string    `json:"control_id"`
	PatientID   string    `json:"patient_id"`
	Outcome     string    `json:"outcome"` // "AA" or "AE"
	Error       string    `json:"error,omitempty"`
	RawMessage  []byte    `json:"raw_message"`
}

// Recorder writes audit entries and ingest statistics to the embedded
// JetStream KV buckets. It is an operational side channel: every method
// degrades to a log line on failure and never surfaces errors to the
// message pipeline.
type Recorder struct {
	js jetstream.JetStream

	// Serializes the read-modify-write stat increments. Single process,
	// so a mutex is enough.
	statsMu sync.Mutex
}

func NewRecorder(js jetstream.JetStream) *Recorder {
	return &Recorder{js: js}
}

// Record implements the hl7.AuditFunc contract.
func (r *Recorder) Record(ctx context.Context, remoteAddr string, msg *hl7.Message, raw []byte, accepted bool, procErr error) {
	entry := Entry{
		ID:         uuid.New().String(),
		Timestamp:  time.Now(),
		RemoteAddr: remoteAddr,
		Outcome:    hl7.AckAccept,
		RawMessage: raw,
	}
	if !accepted {
		entry.Outcome = hl7.AckError
	}
	if procErr != nil {
		entry.Error = procErr.Error()
	}
	if msg != nil {
		msgType, trigger := msg.Type()
		if trigger != "" {
			msgType = msgType + "^" + trigger
		}
		entry.MessageType = msgType
		entry.ControlID = msg.ControlID()
		entry.PatientID = msg.Field("PID", 3)
	}

	if err := r.put(ctx, entry); err != nil {
		slog.Error("Audit entry not recorded", "error", err, "controlID", entry.ControlID)
	}
	r.bumpStats(ctx, accepted)
}

func (r *Recorder) put(ctx context.Context, entry Entry) error {
	kv, err := r.js.KeyValue(ctx, natsembed.AuditBucket)
	if err != nil {
		return fmt.Errorf("opening audit bucket: %w", err)
	}
	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("encoding audit entry: %w", err)
	}
	if _, err := kv.Put(ctx, entry.ID, data); err != nil {
		return fmt.Errorf("storing audit entry: %w", err)
	}
	return nil
}

func (r *Recorder) bumpStats(ctx context.Context, accepted bool) {
	r.statsMu.Lock()
	defer r.statsMu.Unlock()

	kv, err := r.js.KeyValue(ctx, natsembed.StatsBucket)
	if err != nil {
		slog.Error("Stats bucket unavailable", "error", err)
		return
	}

	increment := func(key string) {
		var current int64
		if entry, err := kv.Get(ctx, key); err == nil {
			current, _ = strconv.ParseInt(string(entry.Value()), 10, 64)
		}
		kv.Put(ctx, key, []byte(strconv.FormatInt(current+1, 10)))
	}

	increment("total_messages")
	if accepted {
		increment("accepted_messages")
	} else {
		increment("rejected_messages")
	}
	kv.Put(ctx, "last_message_time", []byte(time.Now().Format(time.RFC3339)))
}

// Stats reads the persisted counters for the status API.
func (r *Recorder) Stats(ctx context.Context) (map[string]string, error) {
	kv, err := r.js.KeyValue(ctx, natsembed.StatsBucket)
	if err != nil {
		return nil, fmt.Errorf("opening stats bucket: %w", err)
	}

	stats := make(map[string]string)
	keys, err := kv.Keys(ctx)
	if err != nil {
		return stats, nil // empty bucket
	}
	for _, key := range keys {
		if entry, err := kv.Get(ctx, key); err == nil {
			stats[key] = string(entry.Value())
		}
	}
	return stats, nil
}

// Recent returns up to limit audit entries, newest first.
func (r *Recorder) Recent(ctx context.Context, limit int) ([]Entry, error) {
	kv, err := r.js.KeyValue(ctx, natsembed.AuditBucket)
	if err != nil {
		return nil, fmt.Errorf("opening audit bucket: %w", err)
	}

	entries := []Entry{}
	keys, err := kv.Keys(ctx)
	if err != nil {
		return entries, nil // empty bucket
	}
	for _, key := range keys {
		kvEntry, err := kv.Get(ctx, key)
		if err != nil {
			continue
		}
		var e Entry
		if err := json.Unmarshal(kvEntry.Value(), &e); err == nil {
			entries = append(entries, e)
		}
	}

	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Timestamp.After(entries[j].Timestamp)
	})
	if len(entries) > limit {
		entries = entries[:limit]
	}
	return entries, nil
}
