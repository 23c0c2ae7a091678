package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/moham3d/sho-hl7/internal/audit"
	"github.com/moham3d/sho-hl7/internal/config"
	"github.com/moham3d/sho-hl7/internal/hl7"
	"github.com/moham3d/sho-hl7/internal/ingest"
	"github.com/moham3d/sho-hl7/internal/nats"
	"github.com/moham3d/sho-hl7/internal/store"
	"github.com/moham3d/sho-hl7/internal/web"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("Configuration load failed", "error", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	// Patient/Visit repository
	pg, err := store.Open(ctx, cfg.DatabaseURL)
	if err != nil {
		slog.Error("Database connection failed", "error", err)
		os.Exit(1)
	}
	defer pg.Close()

	if err := pg.EnsureSchema(ctx); err != nil {
		slog.Error("Schema setup failed", "error", err)
		os.Exit(1)
	}

	// Embedded NATS for the audit trail
	natsServer, err := nats.NewEmbeddedServer(cfg.DataDir)
	if err != nil {
		slog.Error("NATS server start failed", "error", err)
		os.Exit(1)
	}
	defer natsServer.Shutdown()

	recorder := audit.NewRecorder(natsServer.JetStream())
	router := ingest.NewRouter(pg)

	// HL7 MLLP listener
	mllpServer := hl7.NewServer(cfg.HL7ListenPort, router, recorder.Record, cfg.IdleTimeout, cfg.MaxMessageBytes)
	if err := mllpServer.Start(ctx); err != nil {
		slog.Error("MLLP server start failed", "error", err)
		os.Exit(1)
	}
	defer mllpServer.Stop()

	// Status API
	webServer := web.NewServer(cfg.WebPort, pg, natsServer.JetStream(), recorder, mllpServer)
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := webServer.Start(ctx); err != nil {
			slog.Error("Status API stopped", "error", err)
		}
	}()

	slog.Info("HL7 ingestion service started",
		"hl7Port", mllpServer.Port(),
		"webPort", cfg.WebPort,
	)

	<-sigChan
	slog.Info("Shutdown signal received, stopping")

	cancel()
	wg.Wait()

	slog.Info("HL7 ingestion service stopped")
}
