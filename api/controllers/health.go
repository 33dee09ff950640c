package controllers

import (
	"context"
	"errors"
	"net/http"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/angelmondragon/billing-bridge/api/responses"
	"github.com/angelmondragon/billing-bridge/pkg/config"
)

const readyTimeout = 3 * time.Second

// Pinger is implemented by every backing client that can report health.
type Pinger interface {
	Ping(ctx context.Context) error
}

func HealthLive(cfg *config.Config) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Billing-Env", cfg.App.Env)
		responses.WriteSuccess(w, map[string]string{"status": "live"})
	}
}

// HealthReady pings every dependency concurrently and answers 503 naming the first one that fails.
func HealthReady(cfg *config.Config, checks map[string]Pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Billing-Env", cfg.App.Env)

		ctx, cancel := context.WithTimeout(r.Context(), readyTimeout)
		defer cancel()

		eg, egCtx := errgroup.WithContext(ctx)
		for name, check := range checks {
			if check == nil {
				continue
			}
			eg.Go(func() error {
				if err := check.Ping(egCtx); err != nil {
					return errors.New(name + " unavailable")
				}
				return nil
			})
		}
		if err := eg.Wait(); err != nil {
			responses.WriteJSON(w, http.StatusServiceUnavailable, responses.ErrorBody{Error: err.Error()})
			return
		}
		responses.WriteSuccess(w, map[string]string{"status": "ready"})
	}
}
