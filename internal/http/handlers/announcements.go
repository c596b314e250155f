package handlers

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"service-dispatch/internal/apperr"
	"service-dispatch/internal/domain"
	"service-dispatch/internal/logx"
	"service-dispatch/internal/service/matching"
)

const maxBatchItems = 1000

// AnnouncementHandler serves the manager operations.
type AnnouncementHandler struct {
	dispatcher Dispatcher
	spawner    Spawner
	logger     logx.Logger
	maxWindow  time.Duration
}

// AnnouncementOption configures an AnnouncementHandler.
type AnnouncementOption func(*AnnouncementHandler)

// WithMaxWindow caps wait_seconds. A synchronous publish must answer before
// the server's write timeout, so the cap follows it.
func WithMaxWindow(d time.Duration) AnnouncementOption {
	return func(h *AnnouncementHandler) { h.maxWindow = d }
}

// NewAnnouncementHandler creates a new AnnouncementHandler. Without
// WithMaxWindow any wait is accepted.
func NewAnnouncementHandler(logger logx.Logger, d Dispatcher, s Spawner, opts ...AnnouncementOption) *AnnouncementHandler {
	if logger == nil {
		logger = logx.Nop()
	}
	h := &AnnouncementHandler{dispatcher: d, spawner: s, logger: logger}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Publish handles POST /announcements and runs one full cycle.
// @Summary Publish a delivery job
// @Description Publishes an announcement, waits for bids and assigns the best courier
// @Tags announcements
// @Accept json
// @Produce json
// @Param request body jobRequest true "Job"
// @Success 200 {object} outcomeDTO
// @Failure 400 {object} ErrorResponse "invalid input"
// @Failure 500 {object} ErrorResponse "internal error"
// @Router /announcements [post]
func (h *AnnouncementHandler) Publish(w http.ResponseWriter, r *http.Request) {
	var req jobRequest
	if ok := decodeJSON(h.logger, w, r, &req); !ok {
		return
	}
	job, err := req.toJob(h.maxWindow)
	if err != nil {
		writeServiceError(h.logger, w, r, err)
		return
	}

	out, err := h.dispatcher.RunCycle(r.Context(), job)
	if err != nil {
		writeServiceError(h.logger, w, r, err)
		return
	}
	writeJSON(h.logger, w, r, http.StatusOK, outcomeToDTO(out))
}

// PublishBatch handles POST /announcements/batch. The batch runs in the
// background; the response only confirms acceptance.
// @Summary Publish a batch of jobs
// @Tags announcements
// @Accept json
// @Produce json
// @Param request body batchRequest true "Jobs"
// @Success 202 {object} batchAcceptedResponse
// @Failure 400 {object} ErrorResponse "invalid input"
// @Router /announcements/batch [post]
func (h *AnnouncementHandler) PublishBatch(w http.ResponseWriter, r *http.Request) {
	var req batchRequest
	if ok := decodeJSON(h.logger, w, r, &req); !ok {
		return
	}
	if len(req.Items) == 0 {
		writeError(h.logger, w, r, http.StatusBadRequest, "items are required")
		return
	}
	if len(req.Items) > maxBatchItems {
		writeError(h.logger, w, r, http.StatusBadRequest, fmt.Sprintf("at most %d items", maxBatchItems))
		return
	}

	jobs := make([]matching.Job, 0, len(req.Items))
	for i, item := range req.Items {
		job, err := item.toJob(h.maxWindow)
		if err != nil {
			writeServiceError(h.logger, w, r, fmt.Errorf("item %d: %w", i, err))
			return
		}
		jobs = append(jobs, job)
	}

	interval := time.Duration(-1)
	if req.IntervalSeconds != nil {
		if *req.IntervalSeconds < 0 {
			writeError(h.logger, w, r, http.StatusBadRequest, "interval_seconds must be non-negative")
			return
		}
		interval = seconds(*req.IntervalSeconds)
	}

	requestID := reqID(r.Context())
	h.spawner.Go(func(ctx context.Context) {
		outcomes, err := h.dispatcher.RunBatch(ctx, jobs, interval)
		if err != nil {
			h.logger.Error("batch finished with errors",
				logx.String("request_id", requestID),
				logx.Int("completed", len(outcomes)),
				logx.Err(err),
			)
			return
		}
		h.logger.Info("batch finished", logx.String("request_id", requestID), logx.Int("completed", len(outcomes)))
	})

	writeJSON(h.logger, w, r, http.StatusAccepted, batchAcceptedResponse{Accepted: len(jobs)})
}

// List handles GET /announcements?status=&limit=.
func (h *AnnouncementHandler) List(w http.ResponseWriter, r *http.Request) {
	limit, err := intQuery(r, "limit")
	if err != nil {
		writeError(h.logger, w, r, http.StatusBadRequest, err.Error())
		return
	}
	status := domain.AnnouncementStatus(strings.TrimSpace(r.URL.Query().Get("status")))

	list, err := h.dispatcher.Announcements(r.Context(), status, limit)
	if err != nil {
		writeServiceError(h.logger, w, r, err)
		return
	}
	writeJSON(h.logger, w, r, http.StatusOK, announcementsToDTO(list))
}

// Get handles GET /announcements/{id}.
func (h *AnnouncementHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := idFromURL(r, "id")
	if err != nil {
		writeError(h.logger, w, r, http.StatusBadRequest, err.Error())
		return
	}
	view, err := h.dispatcher.Announcement(r.Context(), id)
	if err != nil {
		writeServiceError(h.logger, w, r, err)
		return
	}
	writeJSON(h.logger, w, r, http.StatusOK, viewToDTO(view))
}

// Assign handles POST /announcements/{id}/assign. A second assignment of the
// same announcement answers 409 with result already_assigned.
// @Summary Assign a courier manually
// @Tags announcements
// @Accept json
// @Produce json
// @Param id path string true "Announcement ID"
// @Param request body assignRequest true "Courier"
// @Success 200 {object} assignResponse
// @Failure 404 {object} ErrorResponse "announcement not found"
// @Failure 409 {object} assignResponse "already assigned"
// @Router /announcements/{id}/assign [post]
func (h *AnnouncementHandler) Assign(w http.ResponseWriter, r *http.Request) {
	id, err := idFromURL(r, "id")
	if err != nil {
		writeError(h.logger, w, r, http.StatusBadRequest, err.Error())
		return
	}
	var req assignRequest
	if ok := decodeJSON(h.logger, w, r, &req); !ok {
		return
	}
	courierID := strings.TrimSpace(req.CourierID)
	if courierID == "" {
		writeServiceError(h.logger, w, r, fmt.Errorf("%w: courier_id is required", apperr.ErrInvalid))
		return
	}

	res, err := h.dispatcher.Assign(r.Context(), id, courierID)
	if err != nil {
		writeServiceError(h.logger, w, r, err)
		return
	}
	status := http.StatusOK
	if res == matching.ResultAlreadyAssigned {
		status = http.StatusConflict
	}
	writeJSON(h.logger, w, r, status, assignResponse{AnnouncementID: id, CourierID: courierID, Result: string(res)})
}
