// Package api exposes HTTP handlers for the activity graph and plan endpoints.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/2tpaud/commit-push/internal/activity"
	"github.com/2tpaud/commit-push/internal/auth"
	"github.com/2tpaud/commit-push/internal/domain"
	"github.com/2tpaud/commit-push/internal/heatmap"
)

// ActivityAggregator builds the per-day activity of one user and year.
type ActivityAggregator interface {
	Aggregate(ctx context.Context, userID string, year int) (*activity.YearActivity, error)
}

// PlanService reports and maintains subscription state.
type PlanService interface {
	Usage(ctx context.Context, userID string) (*domain.Usage, error)
	CheckExpiry(ctx context.Context, userID string) (bool, error)
}

// Option configures optional behaviour for the Handler.
type Option func(*Handler)

// WithClock overrides the clock used to resolve a missing year parameter.
func WithClock(now func() time.Time) Option {
	return func(h *Handler) {
		h.now = now
	}
}

// WithLogger overrides the logger used to report server errors.
func WithLogger(logger *log.Logger) Option {
	return func(h *Handler) {
		h.logger = logger
	}
}

// Handler coordinates HTTP requests with the aggregator and plan service.
type Handler struct {
	activity ActivityAggregator
	plans    PlanService
	now      func() time.Time
	logger   *log.Logger
}

// NewHandler builds a Handler.
func NewHandler(agg ActivityAggregator, plans PlanService, opts ...Option) *Handler {
	h := &Handler{
		activity: agg,
		plans:    plans,
		now:      time.Now,
		logger:   log.New(log.Writer(), "[api] ", log.LstdFlags),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// RegisterRoutes wires endpoints to the mux.
func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/v1/activity", h.activityByDate)
	mux.HandleFunc("/v1/activity/grid", h.activityGrid)
	mux.HandleFunc("/v1/plan/usage", h.planUsage)
	mux.HandleFunc("/v1/plan/check-expiry", h.checkExpiry)
	mux.HandleFunc("/healthz", healthz)
}

// healthz reports a simple OK status for container health checks.
func healthz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (h *Handler) activityByDate(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "unsupported method")
		return
	}
	result, ok := h.aggregate(w, r)
	if !ok {
		return
	}

	writeJSON(w, http.StatusOK, ActivityResponse{
		ByDate: result.ByDate,
		Meta: ActivityMeta{
			NotesFetched:   result.NotesFetched,
			CommitsFetched: result.CommitsFetched,
			AvailableYears: result.AvailableYears,
		},
	})
}

func (h *Handler) activityGrid(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "unsupported method")
		return
	}
	result, ok := h.aggregate(w, r)
	if !ok {
		return
	}

	query := r.URL.Query()
	filters := heatmap.Filters{
		IncludeNotes:   parseBool(query.Get("notes"), true),
		IncludeCommits: parseBool(query.Get("commits"), true),
	}
	writeJSON(w, http.StatusOK, toGridView(heatmap.Build(result.ByDate, result.Year, filters)))
}

// aggregate runs the aggregation for the caller and the requested year, writing
// the error response itself when it fails.
func (h *Handler) aggregate(w http.ResponseWriter, r *http.Request) (*activity.YearActivity, bool) {
	claims, ok := auth.FromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized", "missing bearer token")
		return nil, false
	}

	year := activity.ParseYear(r.URL.Query().Get("year"), h.now())
	result, err := h.activity.Aggregate(r.Context(), claims.UserID(), year)
	if err != nil {
		h.logger.Printf("aggregate activity (user=%s, year=%d): %v", claims.UserID(), year, err)
		writeError(w, http.StatusInternalServerError, "server_error", "failed to load activity")
		return nil, false
	}
	return result, true
}

func (h *Handler) planUsage(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "unsupported method")
		return
	}
	claims, ok := auth.FromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized", "missing bearer token")
		return
	}

	usage, err := h.plans.Usage(r.Context(), claims.UserID())
	if err != nil {
		h.planError(w, claims.UserID(), err)
		return
	}

	writeJSON(w, http.StatusOK, PlanUsageResponse{
		Plan:          string(usage.Plan),
		EffectivePlan: string(usage.EffectivePlan),
		PlanExpiresAt: usage.PlanExpiresAt,
		Limits: PlanLimitsView{
			MaxNotes:   usage.Limits.MaxNotes,
			MaxCommits: usage.Limits.MaxCommits,
		},
		Usage: UsageView{Notes: usage.Notes, Commits: usage.Commits},
	})
}

func (h *Handler) checkExpiry(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "unsupported method")
		return
	}
	claims, ok := auth.FromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized", "missing bearer token")
		return
	}

	updated, err := h.plans.CheckExpiry(r.Context(), claims.UserID())
	if err != nil {
		h.planError(w, claims.UserID(), err)
		return
	}
	writeJSON(w, http.StatusOK, CheckExpiryResponse{OK: true, Updated: updated})
}

func (h *Handler) planError(w http.ResponseWriter, userID string, err error) {
	if errors.Is(err, domain.ErrProfileNotFound) {
		writeError(w, http.StatusNotFound, "not_found", "user profile not found")
		return
	}
	h.logger.Printf("plan lookup (user=%s): %v", userID, err)
	writeError(w, http.StatusInternalServerError, "server_error", "failed to load plan")
}

func parseBool(raw string, fallback bool) bool {
	if raw == "" {
		return fallback
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return fallback
	}
	return v
}

func writeError(w http.ResponseWriter, status int, code, detail string) {
	payload := map[string]string{
		"type":   code,
		"detail": detail,
	}
	writeJSON(w, status, payload)
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}
