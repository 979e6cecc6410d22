package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/leafsii/crypto-tracker/internal/assets"
	"github.com/leafsii/crypto-tracker/internal/jobs"
	"github.com/leafsii/crypto-tracker/internal/view"
	"go.uber.org/zap"
)

const maxBodyBytes = 1 << 20

// TickerControl is the part of jobs.Ticker the API exposes.
type TickerControl interface {
	Start(ctx context.Context) error
	Stop()
	Tick(ctx context.Context)
	Running() bool
	Ticks() uint64
	Interval() time.Duration
}

// Pinger reports backend readiness.
type Pinger interface {
	Ping(ctx context.Context) error
}

// CacheInspector is implemented by caches that can report where the latest
// table lives and how long it stays valid.
type CacheInspector interface {
	IsInMemoryMode() bool
	TableTTL(ctx context.Context) (time.Duration, error)
}

type Handler struct {
	// appCtx bounds work that outlives a request, such as a started ticker.
	appCtx   context.Context
	store    *assets.Store
	ticker   TickerControl
	cache    Pinger
	wsHub    http.HandlerFunc
	sse      http.HandlerFunc
	tables   *view.Source
	renderer *view.Renderer
	logger   *zap.SugaredLogger
}

func NewHandler(
	appCtx context.Context,
	store *assets.Store,
	ticker TickerControl,
	cache Pinger,
	wsHub http.HandlerFunc,
	sse http.HandlerFunc,
	renderer *view.Renderer,
	logger *zap.SugaredLogger,
) *Handler {
	return &Handler{
		appCtx:   appCtx,
		store:    store,
		ticker:   ticker,
		cache:    cache,
		wsHub:    wsHub,
		sse:      sse,
		tables:   view.NewSource(store),
		renderer: renderer,
		logger:   logger,
	}
}

// Dashboard

func (h *Handler) Dashboard(w http.ResponseWriter, r *http.Request) {
	table := h.tables.Table()

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := h.renderer.Render(w, table, "/v1/stream"); err != nil {
		h.logger.Errorw("Failed to render dashboard", "error", err)
	}
}

// Assets

func (h *Handler) ListAssets(w http.ResponseWriter, r *http.Request) {
	list := h.store.All()
	h.writeJSON(w, http.StatusOK, AssetListDTO{Assets: list, Count: len(list)})
}

func (h *Handler) GetAsset(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	a, ok := h.store.ByID(id)
	if !ok {
		h.writeError(w, http.StatusNotFound, "ASSET_NOT_FOUND", "no asset with id "+id)
		return
	}
	h.writeJSON(w, http.StatusOK, a)
}

func (h *Handler) ReplaceAssets(w http.ResponseWriter, r *http.Request) {
	var req ReplaceAssetsRequest
	if !h.decode(w, r, &req) {
		return
	}
	if req.Assets == nil {
		h.writeError(w, http.StatusBadRequest, "MISSING_FIELD", "assets is required")
		return
	}

	if err := h.store.SetAssets(req.Assets); err != nil {
		code := "INVALID_ASSETS"
		switch {
		case errors.Is(err, assets.ErrDuplicateID):
			code = "DUPLICATE_ASSET_ID"
		case errors.Is(err, assets.ErrEmptyID):
			code = "EMPTY_ASSET_ID"
		case errors.Is(err, assets.ErrNegativePrice):
			code = "NEGATIVE_PRICE"
		}
		h.writeError(w, http.StatusBadRequest, code, err.Error())
		return
	}

	h.logger.Infow("Asset list replaced", "count", len(req.Assets))
	list := h.store.All()
	h.writeJSON(w, http.StatusOK, AssetListDTO{Assets: list, Count: len(list)})
}

func (h *Handler) GetTable(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, h.tables.Table())
}

// Status

func (h *Handler) status() StatusDTO {
	snap := h.store.Snapshot()
	return StatusDTO{
		Loading: snap.Loading,
		Error:   snap.Error,
		Version: snap.Version,
		Ticker: TickerStatusDTO{
			Running:    h.ticker.Running(),
			Ticks:      h.ticker.Ticks(),
			IntervalMs: h.ticker.Interval().Milliseconds(),
		},
	}
}

func (h *Handler) GetStatus(w http.ResponseWriter, r *http.Request) {
	st := h.status()
	if ci, ok := h.cache.(CacheInspector); ok {
		cs := &CacheStatusDTO{Mode: "redis"}
		if ci.IsInMemoryMode() {
			cs.Mode = "memory"
		}
		if ttl, err := ci.TableTTL(r.Context()); err == nil {
			cs.TableTTLMs = ttl.Milliseconds()
		}
		st.Cache = cs
	}
	h.writeJSON(w, http.StatusOK, st)
}

func (h *Handler) SetLoading(w http.ResponseWriter, r *http.Request) {
	var req SetLoadingRequest
	if !h.decode(w, r, &req) {
		return
	}
	if req.Loading == nil {
		h.writeError(w, http.StatusBadRequest, "MISSING_FIELD", "loading is required")
		return
	}
	h.store.SetLoading(*req.Loading)
	h.writeJSON(w, http.StatusOK, h.status())
}

// SetError records an error message; an empty message clears it.
func (h *Handler) SetError(w http.ResponseWriter, r *http.Request) {
	var req SetErrorRequest
	if !h.decode(w, r, &req) {
		return
	}
	if req.Message == "" {
		h.store.ClearError()
	} else {
		h.store.SetError(req.Message)
	}
	h.writeJSON(w, http.StatusOK, h.status())
}

// Ticker

func (h *Handler) StartTicker(w http.ResponseWriter, r *http.Request) {
	if err := h.ticker.Start(h.appCtx); err != nil {
		if errors.Is(err, jobs.ErrAlreadyRunning) {
			h.writeError(w, http.StatusConflict, "TICKER_RUNNING", err.Error())
			return
		}
		h.writeError(w, http.StatusInternalServerError, "TICKER_ERROR", err.Error())
		return
	}
	h.writeJSON(w, http.StatusOK, h.status())
}

func (h *Handler) StopTicker(w http.ResponseWriter, r *http.Request) {
	h.ticker.Stop()
	h.writeJSON(w, http.StatusOK, h.status())
}

// TickOnce applies a single price update and returns the new table.
func (h *Handler) TickOnce(w http.ResponseWriter, r *http.Request) {
	h.ticker.Tick(r.Context())
	h.writeJSON(w, http.StatusOK, h.tables.Table())
}

// Live updates

func (h *Handler) HandleSSE(w http.ResponseWriter, r *http.Request) {
	h.sse(w, r)
}

func (h *Handler) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	h.wsHub(w, r)
}

// Health and ops endpoints

func (h *Handler) Healthz(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, HealthDTO{Status: "ok"})
}

func (h *Handler) Readyz(w http.ResponseWriter, r *http.Request) {
	if h.cache != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := h.cache.Ping(ctx); err != nil {
			h.writeJSON(w, http.StatusServiceUnavailable, HealthDTO{Status: "unavailable", Reasons: []string{"cache: " + err.Error()}})
			return
		}
	}
	h.writeJSON(w, http.StatusOK, HealthDTO{Status: "ready"})
}

// Utility methods

func (h *Handler) decode(w http.ResponseWriter, r *http.Request, dest any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dest); err != nil {
		h.writeError(w, http.StatusBadRequest, "INVALID_JSON", err.Error())
		return false
	}
	return true
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Warnw("Failed to write response", "error", err)
	}
}

func (h *Handler) writeError(w http.ResponseWriter, status int, code, message string) {
	if status >= http.StatusInternalServerError {
		h.logger.Errorw("API error", "code", code, "message", message, "status", status)
	} else {
		h.logger.Debugw("API error", "code", code, "message", message, "status", status)
	}
	h.writeJSON(w, status, ErrorResponse{Code: code, Message: message})
}
