package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/BearBump/PriceBox/config"
	"github.com/BearBump/PriceBox/internal/scheduler"
	"github.com/BearBump/PriceBox/internal/services/refresher"
	"github.com/BearBump/PriceBox/internal/storage/pglistings"
	"github.com/go-chi/chi/v5"
	httpSwagger "github.com/swaggo/http-swagger"
)

type workerHTTPOpts struct {
	httpAddr    string
	swaggerPath string
	onListen    func(httpAddr string)

	refresher *refresher.Refresher
	scheduler *scheduler.Scheduler
	trigger   func() bool
	cfg       *config.Config
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func runWorkerHTTPServer(ctx context.Context, opts workerHTTPOpts) error {
	if opts.httpAddr == "" {
		opts.httpAddr = ":8082"
	}
	if opts.swaggerPath == "" {
		return fmt.Errorf("worker swaggerPath env var is required")
	}
	if _, err := os.Stat(opts.swaggerPath); os.IsNotExist(err) {
		return fmt.Errorf("worker swagger file not found: %s", opts.swaggerPath)
	}

	lis, err := net.Listen("tcp", opts.httpAddr)
	if err != nil {
		return err
	}
	if opts.onListen != nil {
		opts.onListen(lis.Addr().String())
	}

	srv := &http.Server{Handler: newWorkerRouter(opts), ReadHeaderTimeout: 10 * time.Second}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
		_ = lis.Close()
	}()

	return srv.Serve(lis)
}

func newWorkerRouter(opts workerHTTPOpts) http.Handler {
	r := chi.NewRouter()

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Get("/readyz", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
	})

	r.Get("/stats", func(w http.ResponseWriter, r *http.Request) {
		if opts.refresher == nil {
			writeJSON(w, http.StatusOK, map[string]string{"error": "refresher not wired"})
			return
		}
		out := map[string]any{"refresher": opts.refresher.Stats()}
		if opts.scheduler != nil {
			out["scheduler"] = opts.scheduler.Stats()
		}
		writeJSON(w, http.StatusOK, out)
	})

	r.Get("/config", func(w http.ResponseWriter, r *http.Request) {
		if opts.cfg == nil {
			writeJSON(w, http.StatusOK, map[string]string{"error": "config not wired"})
			return
		}
		// Operational settings only, no credentials.
		pc := opts.cfg.PriceBox
		writeJSON(w, http.StatusOK, map[string]any{
			"marketplaceMode":         pc.MarketplaceMode,
			"schedulerMode":           pc.SchedulerMode,
			"refreshIntervalSeconds":  pc.RefreshIntervalSeconds,
			"refreshConcurrency":      pc.RefreshConcurrency,
			"schedulerLockTTLSeconds": pc.SchedulerLockTTLSeconds,
			"fetchDelayMinMillis":     pc.FetchDelayMinMillis,
			"fetchDelayMaxMillis":     pc.FetchDelayMaxMillis,
			"fetchTimeoutSeconds":     pc.FetchTimeoutSeconds,
			"blockRetryMinMillis":     pc.BlockRetryMinMillis,
			"blockRetryMaxMillis":     pc.BlockRetryMaxMillis,
			"hostRateLimitPerMinute":  pc.HostRateLimitPerMinute,
		})
	})

	r.Post("/trigger", func(w http.ResponseWriter, r *http.Request) {
		if opts.trigger == nil {
			writeJSON(w, http.StatusOK, map[string]string{"error": "scheduler not wired"})
			return
		}
		writeJSON(w, http.StatusOK, map[string]bool{"triggered": opts.trigger()})
	})

	r.Post("/refresh/{id}", func(w http.ResponseWriter, r *http.Request) {
		if opts.refresher == nil {
			writeJSON(w, http.StatusOK, map[string]string{"error": "refresher not wired"})
			return
		}
		id, err := strconv.ParseUint(chi.URLParam(r, "id"), 10, 64)
		if err != nil || id == 0 {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid id"})
			return
		}
		out, err := opts.refresher.RefreshListing(r.Context(), id)
		switch {
		case errors.Is(err, pglistings.ErrNotFound):
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "listing not found"})
		case err != nil:
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		case !out.Scraped:
			writeJSON(w, http.StatusInternalServerError, map[string]any{"error": "Could not refresh prices", "outcome": out})
		default:
			writeJSON(w, http.StatusOK, out)
		}
	})

	// no-store plus a mtime cachebuster so /docs always loads the current swagger.json.
	r.Get("/swagger.json", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Cache-Control", "no-store")
		http.ServeFile(w, r, opts.swaggerPath)
	})
	swaggerURL := "/swagger.json"
	if fi, err := os.Stat(opts.swaggerPath); err == nil {
		swaggerURL = fmt.Sprintf("/swagger.json?v=%d", fi.ModTime().Unix())
	}
	r.Get("/docs/*", httpSwagger.Handler(httpSwagger.URL(swaggerURL)))

	return r
}
