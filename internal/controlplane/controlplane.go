// Package controlplane wires the durable store, replicator, replica,
// and read API into one running process, mirroring the teacher's
// cmd/server main/signal split: construction here, lifecycle
// (Start/Stop) driven by cmd/server.
package controlplane

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/replane-dev/replane-sub002/internal/config"
	"github.com/replane-dev/replane-sub002/internal/domain"
	"github.com/replane-dev/replane-sub002/internal/readapi"
	"github.com/replane-dev/replane-sub002/internal/replica"
	"github.com/replane-dev/replane-sub002/internal/replicator"
	"github.com/replane-dev/replane-sub002/internal/store/postgres"
)

const configsTopic = "configs"

// ControlPlane owns every long-lived component of one server process.
type ControlPlane struct {
	cfg *config.Config
	log *slog.Logger

	db           *postgres.Adapter
	replicaStore *replica.Store
	service      *readapi.Service
	replicator   *replicator.Replicator[domain.ConfigAggregate]
	httpServer   *http.Server
}

// New connects to the durable store and wires up every component, but
// does not yet start the replicator or HTTP server; call Start for
// that.
func New(ctx context.Context, cfg *config.Config, log *slog.Logger) (*ControlPlane, error) {
	db, err := postgres.Open(ctx, cfg.Database, cfg.EventHub, log)
	if err != nil {
		return nil, fmt.Errorf("opening durable store: %w", err)
	}

	replicaStore := replica.New()
	service := readapi.New(replicaStore, log)

	cp := &ControlPlane{
		cfg:          cfg,
		log:          log,
		db:           db,
		replicaStore: replicaStore,
		service:      service,
	}

	cp.replicator = replicator.New[domain.ConfigAggregate](
		db, replicaStore, replicaStore, db, configsTopic,
		cfg.Replicator, cfg.EventHub, log,
		service.HandleChange,
		cp.handleReplicatorFatal,
	)

	router := readapi.NewRouter(service, cfg.Server, log)
	cp.httpServer = &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	return cp, nil
}

// Start brings the replicator to a caught-up state, then begins
// serving HTTP traffic in the background.
func (cp *ControlPlane) Start(ctx context.Context) error {
	if err := cp.replicator.Start(ctx); err != nil {
		return fmt.Errorf("starting replicator: %w", err)
	}

	go func() {
		cp.log.Info("read API listening", "addr", cp.httpServer.Addr)
		if err := cp.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			cp.log.Error("read API server failed", "error", err)
		}
	}()

	return nil
}

// Stop shuts the HTTP server down gracefully and halts the
// replicator, then closes the durable-store connection.
func (cp *ControlPlane) Stop(ctx context.Context) error {
	shutdownCtx, cancel := context.WithTimeout(ctx, cp.cfg.Server.GracefulShutdownTimeout)
	defer cancel()

	if err := cp.httpServer.Shutdown(shutdownCtx); err != nil {
		cp.log.Warn("read API graceful shutdown failed", "error", err)
	}

	cp.replicator.Stop()
	cp.db.Close()
	return nil
}

// handleReplicatorFatal is the replicator's onFatal sink: the
// underlying event-hub consumer was garbage collected, so the only
// way forward is a fresh restart, which Start's resync sequence
// already knows how to do (it detects the dead consumer and falls
// back to a full dump). The context handed to Start also governs the
// restarted steady loop, so it is never cancelled here.
func (cp *ControlPlane) handleReplicatorFatal(err error) {
	cp.log.Error("replicator failed fatally, restarting from a full resync", "error", err)
	go func() {
		if startErr := cp.replicator.Start(context.Background()); startErr != nil {
			cp.log.Error("replicator restart failed", "error", startErr)
		}
	}()
}
