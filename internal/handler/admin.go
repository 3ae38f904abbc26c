package handler

import (
	"context"
	"net/http"
	"strconv"

	"go.uber.org/zap"

	"github.com/docbot/docbot/internal/middleware"
	"github.com/docbot/docbot/internal/model"
	natsclient "github.com/docbot/docbot/internal/nats"
	"github.com/docbot/docbot/internal/stats"
	"github.com/docbot/docbot/pkg/logger"
)

// JobSource replays published job events.
type JobSource interface {
	GetJobs(ctx context.Context, filter string, afterSequence uint64, limit int) ([]model.JobEvent, uint64, bool, error)
}

// AdminHandler serves the admin API.
type AdminHandler struct {
	counters *stats.Counters
	jobs     JobSource
	logger   *logger.Logger
}

// NewAdminHandler creates an admin handler. jobs may be nil when NATS is not
// configured.
func NewAdminHandler(counters *stats.Counters, jobs JobSource, log *logger.Logger) *AdminHandler {
	return &AdminHandler{
		counters: counters,
		jobs:     jobs,
		logger:   log,
	}
}

// Stats handles GET /api/v1/admin/stats
func (h *AdminHandler) Stats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.counters.Snapshot())
}

// JobsResponse is a page of job events.
type JobsResponse struct {
	Jobs         []model.JobEvent `json:"jobs"`
	LastSequence uint64           `json:"last_sequence"`
	HasMore      bool             `json:"has_more"`
}

// Jobs handles GET /api/v1/admin/jobs
func (h *AdminHandler) Jobs(w http.ResponseWriter, r *http.Request) {
	if h.jobs == nil {
		writeError(w, http.StatusServiceUnavailable, "job events are not enabled")
		return
	}

	q := r.URL.Query()
	platform := q.Get("platform")
	chatID := q.Get("chat")

	if platform != "" {
		if err := middleware.ValidatePlatform(platform); err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
	}
	if chatID != "" {
		if platform == "" {
			writeError(w, http.StatusBadRequest, "chat requires platform")
			return
		}
		if err := middleware.ValidateChatID(chatID); err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
	}

	afterSequence := uint64(0)
	limit := 50

	if seq := q.Get("after"); seq != "" {
		if parsed, err := strconv.ParseUint(seq, 10, 64); err == nil {
			afterSequence = parsed
		}
	}

	if l := q.Get("limit"); l != "" {
		if parsed, err := strconv.Atoi(l); err == nil && parsed > 0 && parsed <= 100 {
			limit = parsed
		}
	}

	jobs, last, more, err := h.jobs.GetJobs(r.Context(), natsclient.JobFilter(platform, chatID), afterSequence, limit)
	if err != nil {
		h.logger.Error("Failed to get job events", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to get job events")
		return
	}
	if jobs == nil {
		jobs = []model.JobEvent{}
	}

	writeJSON(w, http.StatusOK, JobsResponse{Jobs: jobs, LastSequence: last, HasMore: more})
}
