package handlers

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"floorwatch/models"
	"floorwatch/report"
	"floorwatch/repository"
	"floorwatch/scheduler"
	"floorwatch/services"

	json "github.com/goccy/go-json"
	"github.com/gorilla/mux"
	"github.com/rs/zerolog/log"
)

// Discoverer runs a single discovery
type Discoverer interface {
	Discover(ctx context.Context, t *services.Tracker) (*models.DiscoveryResult, error)
}

type Handlers struct {
	trackers       []*services.Tracker
	byKey          map[string]*services.Tracker
	discovery      Discoverer
	formatter      *report.Formatter
	history        repository.HistoryStore
	locales        []string
	requestTimeout time.Duration
	taskManager    *scheduler.TaskManager
}

func NewHandlers(trackers []*services.Tracker, discovery Discoverer, formatter *report.Formatter, history repository.HistoryStore, locales []string, requestTimeout time.Duration) *Handlers {
	h := &Handlers{
		trackers:       trackers,
		byKey:          make(map[string]*services.Tracker, len(trackers)),
		discovery:      discovery,
		formatter:      formatter,
		history:        history,
		locales:        locales,
		requestTimeout: requestTimeout,
	}
	for _, t := range trackers {
		h.byKey[t.Key] = t
	}

	h.taskManager = scheduler.NewTaskManager(h.discoverKey, 2, requestTimeout, time.Hour)
	return h
}

// Close stops background tasks
func (h *Handlers) Close() {
	if h.taskManager != nil {
		h.taskManager.Stop()
	}
}

// Register mounts the routes on r
func (h *Handlers) Register(r *mux.Router) {
	r.HandleFunc("/health", h.HealthCheck).Methods("GET")

	apiV1 := r.PathPrefix("/api/v1").Subrouter()
	apiV1.HandleFunc("/trackers", h.GetTrackers).Methods("GET")
	apiV1.HandleFunc("/floor/{key}", h.GetFloor).Methods("GET")
	apiV1.HandleFunc("/floor/{key}/last", h.GetLastPrice).Methods("GET")
	apiV1.HandleFunc("/floor/{key}/history", h.GetPriceHistory).Methods("GET")
	apiV1.HandleFunc("/floor/{key}/refresh", h.RefreshAsync).Methods("POST")
	apiV1.HandleFunc("/tasks/{taskId}", h.GetTaskStatus).Methods("GET")
}

// HealthCheck returns a simple health check response
func (h *Handlers) HealthCheck(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":       "healthy",
		"timestamp":    time.Now(),
		"service":      "floorwatch",
		"trackers":     len(h.trackers),
		"active_tasks": h.taskManager.ActiveCount(),
	})
}

type trackerView struct {
	Key              string   `json:"key"`
	Title            string   `json:"title"`
	ListingURL       string   `json:"listing_url"`
	Baseline         string   `json:"baseline"`
	Currency         string   `json:"currency"`
	ReportCurrencies []string `json:"report_currencies,omitempty"`
}

// GetTrackers lists configured trackers
func (h *Handlers) GetTrackers(w http.ResponseWriter, r *http.Request) {
	views := make([]trackerView, 0, len(h.trackers))
	for _, t := range h.trackers {
		v := trackerView{
			Key:        t.Key,
			Title:      t.Title,
			ListingURL: t.ListingURL,
			Baseline:   string(t.Baseline),
			Currency:   t.Extraction.Currency.String(),
		}
		for _, c := range t.ReportCurrencies {
			v.ReportCurrencies = append(v.ReportCurrencies, c.String())
		}
		views = append(views, v)
	}
	writeJSON(w, http.StatusOK, views)
}

type floorResponse struct {
	Result   *models.DiscoveryResult  `json:"result,omitempty"`
	Failure  *models.Failure          `json:"failure,omitempty"`
	Messages []report.RenderedMessage `json:"messages"`
}

// GetFloor runs a discovery now and returns localized messages
func (h *Handlers) GetFloor(w http.ResponseWriter, r *http.Request) {
	tracker, ok := h.tracker(w, r)
	if !ok {
		return
	}
	locales := h.requestLocales(r)

	ctx, cancel := context.WithTimeout(r.Context(), h.requestTimeout)
	defer cancel()

	result, err := h.discovery.Discover(ctx, tracker)
	if err != nil {
		resp := floorResponse{Messages: h.formatter.FormatFailure(err, locales)}
		status := http.StatusInternalServerError
		if f, ok := models.AsFailure(err); ok {
			resp.Failure = f
			status = failureStatus(f.Reason)
		}
		writeJSON(w, status, resp)
		return
	}

	writeJSON(w, http.StatusOK, floorResponse{
		Result:   result,
		Messages: h.formatter.Format(result, locales),
	})
}

func failureStatus(reason models.FailureReason) int {
	switch reason {
	case models.ReasonNoListing:
		return http.StatusNotFound
	case models.ReasonExtractionFailed, models.ReasonNoPriceFound, models.ReasonRateUnavailable:
		return http.StatusBadGateway
	default:
		return http.StatusServiceUnavailable
	}
}

// GetLastPrice returns the stored baseline for a tracker
func (h *Handlers) GetLastPrice(w http.ResponseWriter, r *http.Request) {
	tracker, ok := h.tracker(w, r)
	if !ok {
		return
	}

	rec, err := h.history.GetLast(r.Context(), tracker.Key)
	if err != nil {
		log.Error().Err(err).Str("item", tracker.Key).Msg("failed to get last price")
		writeError(w, http.StatusServiceUnavailable, "Price history unavailable")
		return
	}
	if rec == nil {
		writeError(w, http.StatusNotFound, "No price recorded yet")
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

// GetPriceHistory returns the observation log for a tracker
func (h *Handlers) GetPriceHistory(w http.ResponseWriter, r *http.Request) {
	tracker, ok := h.tracker(w, r)
	if !ok {
		return
	}

	historyLog, ok := h.history.(repository.HistoryLog)
	if !ok {
		writeError(w, http.StatusNotImplemented, "Price history log not supported by this store")
		return
	}

	limit := 50
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		if l, err := strconv.Atoi(limitStr); err == nil && l > 0 {
			limit = l
		}
	}

	entries, err := historyLog.GetHistory(r.Context(), tracker.Key, limit)
	if err != nil {
		log.Error().Err(err).Str("item", tracker.Key).Msg("failed to get price history")
		writeError(w, http.StatusServiceUnavailable, "Failed to get price history")
		return
	}
	if entries == nil {
		entries = []models.HistoryEntry{}
	}
	writeJSON(w, http.StatusOK, entries)
}

// RefreshAsync queues a discovery and returns the task
func (h *Handlers) RefreshAsync(w http.ResponseWriter, r *http.Request) {
	tracker, ok := h.tracker(w, r)
	if !ok {
		return
	}

	task, err := h.taskManager.SubmitTask(tracker.Key)
	if err != nil {
		writeError(w, http.StatusServiceUnavailable, err.Error())
		return
	}
	writeJSON(w, http.StatusAccepted, task)
}

// GetTaskStatus returns a background task
func (h *Handlers) GetTaskStatus(w http.ResponseWriter, r *http.Request) {
	task, ok := h.taskManager.GetTask(mux.Vars(r)["taskId"])
	if !ok {
		writeError(w, http.StatusNotFound, "Task not found")
		return
	}
	writeJSON(w, http.StatusOK, task)
}

func (h *Handlers) discoverKey(ctx context.Context, key string) (*models.DiscoveryResult, error) {
	tracker, ok := h.byKey[key]
	if !ok {
		return nil, errors.New("unknown tracker " + key)
	}
	return h.discovery.Discover(ctx, tracker)
}

func (h *Handlers) tracker(w http.ResponseWriter, r *http.Request) (*services.Tracker, bool) {
	key := mux.Vars(r)["key"]
	tracker, ok := h.byKey[key]
	if !ok {
		writeError(w, http.StatusNotFound, "Unknown tracker "+key)
		return nil, false
	}
	return tracker, true
}

// requestLocales reads ?locale=en,ru, then Accept-Language, then the defaults
func (h *Handlers) requestLocales(r *http.Request) []string {
	if raw := r.URL.Query().Get("locale"); raw != "" {
		return splitList(raw)
	}
	if raw := r.Header.Get("Accept-Language"); raw != "" {
		var out []string
		for _, part := range splitList(raw) {
			out = append(out, strings.TrimSpace(strings.SplitN(part, ";", 2)[0]))
		}
		return out
	}
	return h.locales
}

func splitList(raw string) []string {
	var out []string
	for _, item := range strings.Split(raw, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		log.Error().Err(err).Msg("failed to encode response")
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
