package controllers

import (
	"context"
	"net/http"

	"github.com/nexusquest/backend/api/responses"
	"github.com/nexusquest/backend/pkg/config"
	"github.com/nexusquest/backend/pkg/logger"
)

// Pinger checks that the ledger connection is alive.
type Pinger interface {
	Ping(ctx context.Context) error
}

func HealthLive(cfg *config.Config) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-NexusQuest-Env", cfg.App.Env)
		responses.WriteSuccess(w, map[string]string{"status": "live"})
	}
}

func HealthReady(cfg *config.Config, logg *logger.Logger, ledger Pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-NexusQuest-Env", cfg.App.Env)
		if ledger != nil {
			if err := ledger.Ping(r.Context()); err != nil {
				responses.WriteError(r.Context(), logg, w, err)
				return
			}
		}
		responses.WriteSuccess(w, map[string]string{"status": "ready"})
	}
}
