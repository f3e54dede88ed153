package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/svala-ai/svala/core/dispatch"
	"github.com/svala-ai/svala/core/routing"
)

const limiterSweepInterval = 5 * time.Minute

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the dispatch service",
	RunE:  runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := buildApp(ctx)
	if err != nil {
		return err
	}
	defer a.close()

	if a.watcher != nil {
		a.watcher.Start(ctx)
	}

	go sweepLimiter(ctx, a)

	server := &http.Server{
		Addr:         a.config.Server.Addr,
		Handler:      newHandler(a),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		a.logger.Info("dispatch service listening", "addr", server.Addr)
		errCh <- server.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		a.logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}

func sweepLimiter(ctx context.Context, a *app) {
	ticker := time.NewTicker(limiterSweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if removed := a.limiter.Sweep(); removed > 0 {
				a.logger.Debug("limiter sweep", "removed", removed)
			}
		}
	}
}

type dispatchRequest struct {
	SessionID      string   `json:"session_id"`
	Query          string   `json:"query"`
	HasAttachments bool     `json:"has_attachments"`
	HasMentions    bool     `json:"has_mentions"`
	RecentAgents   []string `json:"recent_agents"`
}

func newHandler(a *app) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /v1/dispatch", a.handleDispatch)
	mux.HandleFunc("GET /v1/status", a.handleStatus)
	mux.HandleFunc("POST /v1/cache/clear", a.handleCacheClear)
	mux.HandleFunc("POST /v1/cache/toggle", a.handleCacheToggle)
	return mux
}

func (a *app) handleDispatch(w http.ResponseWriter, r *http.Request) {
	var req dispatchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("decode request: %w", err))
		return
	}
	if req.SessionID == "" {
		writeError(w, http.StatusBadRequest, errors.New("session_id is required"))
		return
	}

	result, err := a.supervisor.Dispatch(r.Context(), dispatch.Request{
		SessionID: req.SessionID,
		Query:     req.Query,
		Flags: routing.Flags{
			HasAttachments: req.HasAttachments,
			HasMentions:    req.HasMentions,
		},
		RecentAgents: req.RecentAgents,
	})
	if err != nil {
		a.logger.Error("dispatch failed", "session", req.SessionID, "error", err)
		writeError(w, http.StatusInternalServerError, errors.New("dispatch failed"))
		return
	}

	status := http.StatusOK
	switch {
	case result.Throttled:
		status = http.StatusTooManyRequests
		w.Header().Set("Retry-After", strconv.Itoa(int(result.RetryAfter.Seconds())))
	case result.Unavailable:
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, result)
}

func (a *app) handleStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"workers":     a.workers.Names(),
		"constructed": a.workers.Constructed(),
		"breakers":    a.breakers.Stats(),
		"route_cache": a.routes.Stats(),
		"combo_cache": a.combos.Stats(),
		"limiter_keys": map[string]int{
			"active": a.limiter.KeyCount(),
		},
	})
}

func (a *app) handleCacheClear(w http.ResponseWriter, r *http.Request) {
	report := a.admin.ClearAll(r.Context())
	status := http.StatusOK
	if report.Failed > 0 {
		status = http.StatusInternalServerError
	}
	writeJSON(w, status, report)
}

func (a *app) handleCacheToggle(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Disabled bool `json:"disabled"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("decode request: %w", err))
		return
	}

	a.combos.SetDisabled(req.Disabled)
	writeJSON(w, http.StatusOK, a.combos.Stats())
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]string{"error": err.Error()})
}
