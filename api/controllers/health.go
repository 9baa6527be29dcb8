package controllers

import (
	"context"
	"net/http"
	"time"

	"github.com/amertacoffee/amerta-backend/api/responses"
	"github.com/amertacoffee/amerta-backend/pkg/config"
	pkgerrors "github.com/amertacoffee/amerta-backend/pkg/errors"
	"github.com/amertacoffee/amerta-backend/pkg/logger"
)

type pinger interface {
	Ping(ctx context.Context) error
}

func HealthLive(cfg *config.Config) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Amerta-Env", cfg.App.Env)
		responses.WriteSuccess(w, map[string]string{"status": "live"})
	}
}

// HealthReady reports ready only when both datastores answer a ping.
func HealthReady(cfg *config.Config, database, cache pinger, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Amerta-Env", cfg.App.Env)

		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		checks := map[string]string{"database": "ok", "cache": "ok"}
		healthy := true

		if database == nil || database.Ping(ctx) != nil {
			checks["database"] = "unreachable"
			healthy = false
		}
		if cache == nil || cache.Ping(ctx) != nil {
			checks["cache"] = "unreachable"
			healthy = false
		}

		if !healthy {
			err := pkgerrors.New(pkgerrors.CodeDependency, "dependency unavailable").WithDetails(checks)
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, map[string]any{"status": "ready", "checks": checks})
	}
}
