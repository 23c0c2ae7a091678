package nats

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/nats-io/nats-server/v2/server"
	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
)

// KV bucket names owned by this service.
const (
	AuditBucket = "HL7_AUDIT"
	StatsBucket = "HL7_STATS"
)

// EmbeddedServer runs an in-process NATS server with JetStream enabled.
// It backs the audit trail and ingest statistics; nothing outside this
// process connects to it.
type EmbeddedServer struct {
	server *server.Server
	nc     *nats.Conn
	js     jetstream.JetStream
}

func NewEmbeddedServer(dataDir string) (*EmbeddedServer, error) {
	opts := &server.Options{
		JetStream: true,
		StoreDir:  filepath.Join(dataDir, "nats-store"),
		Port:      -1, // random port, in-process use only
		HTTPPort:  -1, // no HTTP monitoring
	}

	if err := os.MkdirAll(opts.StoreDir, 0755); err != nil {
		return nil, fmt.Errorf("creating store dir: %w", err)
	}

	ns, err := server.NewServer(opts)
	if err != nil {
		return nil, fmt.Errorf("creating NATS server: %w", err)
	}

	ns.Start()

	if !ns.ReadyForConnections(10 * time.Second) {
		return nil, fmt.Errorf("NATS server did not become ready")
	}

	slog.Info("Embedded NATS server started", "clientURL", ns.ClientURL())

	nc, err := nats.Connect(ns.ClientURL())
	if err != nil {
		ns.Shutdown()
		return nil, fmt.Errorf("connecting to NATS: %w", err)
	}

	js, err := jetstream.New(nc)
	if err != nil {
		nc.Close()
		ns.Shutdown()
		return nil, fmt.Errorf("initializing JetStream: %w", err)
	}

	es := &EmbeddedServer{
		server: ns,
		nc:     nc,
		js:     js,
	}

	if err := es.createKVStores(); err != nil {
		es.Shutdown()
		return nil, err
	}

	return es, nil
}

func (es *EmbeddedServer) createKVStores() error {
	ctx := context.Background()

	_, err := es.js.CreateKeyValue(ctx, jetstream.KeyValueConfig{
		Bucket:      AuditBucket,
		Description: "Per-message ingest audit trail",
		History:     1,
		TTL:         24 * time.Hour,
		MaxBytes:    500 * 1024 * 1024, // 500MB
		Storage:     jetstream.FileStorage,
	})
	if err != nil {
		return fmt.Errorf("creating audit KV store: %w", err)
	}
	slog.Info("HL7_AUDIT KV store created")

	statsKV, err := es.js.CreateKeyValue(ctx, jetstream.KeyValueConfig{
		Bucket:      StatsBucket,
		Description: "HL7 ingest statistics",
		History:     10,
		TTL:         0, // no expiry
		MaxBytes:    1024 * 1024, // 1MB
		Storage:     jetstream.FileStorage,
	})
	if err != nil {
		return fmt.Errorf("creating stats KV store: %w", err)
	}

	keys := []string{
		"total_messages", "accepted_messages", "rejected_messages",
		"last_message_time",
	}
	for _, key := range keys {
		if _, err := statsKV.Get(ctx, key); err != nil {
			statsKV.Put(ctx, key, []byte("0"))
		}
	}
	slog.Info("HL7_STATS KV store created")

	return nil
}

func (es *EmbeddedServer) JetStream() jetstream.JetStream {
	return es.js
}

func (es *EmbeddedServer) Connection() *nats.Conn {
	return es.nc
}

func (es *EmbeddedServer) Shutdown() {
	if es.nc != nil {
		es.nc.Close()
	}
	if es.server != nil {
		es.server.Shutdown()
		es.server.WaitForShutdown()
	}
	slog.Info("Embedded NATS server stopped")
}
