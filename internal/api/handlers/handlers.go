// Package handlers implements the HTTP handlers for the sqlsage query
// service: natural-language ask, catalog inspection, and cache refresh.
package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/sqlsage/sqlsage/internal/catalog"
	"github.com/sqlsage/sqlsage/internal/orchestrator"
	"github.com/sqlsage/sqlsage/internal/store"
	"github.com/sqlsage/sqlsage/pkg/models"
)

// Handlers holds all handler dependencies.
type Handlers struct {
	Orchestrator *orchestrator.Orchestrator
	Catalog      *catalog.Cache
	Adapter      store.Adapter
}

// New creates a Handlers instance with all dependencies.
func New(o *orchestrator.Orchestrator, cache *catalog.Cache, adapter store.Adapter) *Handlers {
	return &Handlers{Orchestrator: o, Catalog: cache, Adapter: adapter}
}

// askResponse is the wire shape for a completed query.
type askResponse struct {
	ID         string                 `json:"id"`
	Query      string                 `json:"query"`
	Iterations int                    `json:"iterations"`
	Result     *models.FinalResult    `json:"result"`
	Trace      []models.IterationInfo `json:"trace,omitempty"`
	Stages     []stageSummary         `json:"stages,omitempty"`
	ElapsedMs  int64                  `json:"elapsed_ms"`
}

// stageSummary is the trimmed-down stage log exposed over the wire. Raw
// outputs stay server-side; callers get timing and pass/fail per stage.
type stageSummary struct {
	Agent   string `json:"agent"`
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
	Ms      int64  `json:"ms"`
}

// Ask runs one natural-language query through the orchestration loop.
// POST /api/v1/ask
func (h *Handlers) Ask(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Query string `json:"query"`
		Debug bool   `json:"debug"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	req.Query = strings.TrimSpace(req.Query)
	if req.Query == "" {
		respondError(w, http.StatusBadRequest, "Request must include a non-empty 'query' field")
		return
	}

	state, err := h.Orchestrator.Ask(r.Context(), req.Query)
	if err != nil {
		if errors.Is(err, store.ErrNotConfigured) {
			respondError(w, http.StatusServiceUnavailable, "No datastore configured; set DATABASE_URL to answer data questions")
			return
		}
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	resp := askResponse{
		ID:         state.ID,
		Query:      state.Query,
		Iterations: state.Iterations,
		Result:     state.Final,
		ElapsedMs:  state.Final.Elapsed.Milliseconds(),
	}
	if req.Debug {
		resp.Trace = state.Log
		for _, rr := range state.Responses {
			resp.Stages = append(resp.Stages, stageSummary{
				Agent:   rr.Agent,
				Success: rr.Success,
				Error:   rr.Error,
				Ms:      rr.Elapsed.Milliseconds(),
			})
		}
	}
	respondJSON(w, http.StatusOK, resp)
}

// GetCatalog returns the cached schema snapshot, fetching it if stale.
// GET /api/v1/catalog
func (h *Handlers) GetCatalog(w http.ResponseWriter, r *http.Request) {
	if h.Adapter == nil {
		respondError(w, http.StatusServiceUnavailable, "No datastore configured")
		return
	}

	snapshot, err := h.Catalog.Snapshot(r.Context(), h.Adapter)
	if err != nil {
		respondError(w, http.StatusBadGateway, "Catalog fetch failed: "+err.Error())
		return
	}
	respondJSON(w, http.StatusOK, snapshot)
}

// RefreshCatalog drops the cached snapshot and fetches a fresh one.
// POST /api/v1/catalog/refresh
func (h *Handlers) RefreshCatalog(w http.ResponseWriter, r *http.Request) {
	if h.Adapter == nil {
		respondError(w, http.StatusServiceUnavailable, "No datastore configured")
		return
	}

	h.Catalog.Invalidate(h.Adapter.Identity())
	snapshot, err := h.Catalog.Snapshot(r.Context(), h.Adapter)
	if err != nil {
		respondError(w, http.StatusBadGateway, "Catalog fetch failed: "+err.Error())
		return
	}

	log.Info().Str("source", h.Adapter.Identity()).Int("tables", len(snapshot.Tables)).Msg("Catalog refreshed")
	respondJSON(w, http.StatusOK, snapshot)
}

// Ping checks datastore connectivity.
// GET /api/v1/ping
func (h *Handlers) Ping(w http.ResponseWriter, r *http.Request) {
	if h.Adapter == nil {
		respondError(w, http.StatusServiceUnavailable, "No datastore configured")
		return
	}

	ctx, cancel := contextWithTimeout(r, 5*time.Second)
	defer cancel()

	start := time.Now()
	if err := h.Adapter.Ping(ctx); err != nil {
		respondError(w, http.StatusBadGateway, "Datastore unreachable: "+err.Error())
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"status":     "ok",
		"source":     h.Adapter.Identity(),
		"latency_ms": time.Since(start).Milliseconds(),
	})
}
