package handler

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	apimw "github.com/josephbaria24/petros-event-management-system/internal/api/middleware"
	"github.com/josephbaria24/petros-event-management-system/internal/domain"
	"github.com/josephbaria24/petros-event-management-system/internal/service"
)

// QueueHandler handles batch admission and queue control endpoints.
type QueueHandler struct {
	svc    *service.QueueService
	logger *zap.Logger
}

func NewQueueHandler(svc *service.QueueService, logger *zap.Logger) *QueueHandler {
	return &QueueHandler{svc: svc, logger: logger}
}

// EnqueueBatch handles POST /api/v1/emails/{category}/batch
//
// The returned immediate field counts sends triggered by this call; delivery
// claims oldest-first, so older eligible backlog ships before the batch's
// own items.
//
// @Summary     Admit a batch of emails for delivery
// @Tags        emails
// @Accept      json
// @Produce     json
// @Param       category  path      string                      true  "evaluation or certificate"
// @Param       body      body      domain.EnqueueBatchRequest  true  "Batch payload"
// @Success     200       {object}  domain.AdmitResult
// @Failure     422       {object}  map[string]string
// @Router      /api/v1/emails/{category}/batch [post]
func (h *QueueHandler) EnqueueBatch(w http.ResponseWriter, r *http.Request) {
	category := domain.Category(chi.URLParam(r, "category"))
	if !category.IsValid() {
		mapError(w, domain.ErrInvalidCategory)
		return
	}

	var req domain.EnqueueBatchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if len(req.Emails) == 0 {
		mapError(w, domain.ErrBatchEmpty)
		return
	}

	result, err := h.svc.EnqueueBatch(r.Context(), category, req.Emails)
	if err != nil {
		h.logger.Warn("batch admission failed",
			zap.String("correlation_id", apimw.GetCorrelationID(r.Context())),
			zap.String("category", string(category)),
			zap.Int("count", len(req.Emails)),
			zap.Error(err),
		)
		mapError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, result)
}

// Capacity handles GET /api/v1/queue/capacity
//
// @Summary  Check whether N more emails fit in today's budget
// @Tags     queue
// @Produce  json
// @Param    category  query     string  true   "evaluation or certificate"
// @Param    count     query     int     false  "Batch size to check (default 1)"
// @Success  200       {object}  domain.Capacity
// @Failure  422       {object}  map[string]string
// @Router   /api/v1/queue/capacity [get]
func (h *QueueHandler) Capacity(w http.ResponseWriter, r *http.Request) {
	category := domain.Category(r.URL.Query().Get("category"))
	count := 1
	if c, err := strconv.Atoi(r.URL.Query().Get("count")); err == nil && c > 0 {
		count = c
	}

	capacity, err := h.svc.Capacity(r.Context(), category, count)
	if err != nil {
		mapError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, capacity)
}

// Drain handles POST /api/v1/queue/drain
//
// @Summary  Run one drain pass over today's backlog
// @Tags     queue
// @Produce  json
// @Success  200  {object}  domain.DrainSummary
// @Router   /api/v1/queue/drain [post]
func (h *QueueHandler) Drain(w http.ResponseWriter, r *http.Request) {
	summary, err := h.svc.Drain(r.Context())
	if err != nil {
		h.logger.Error("drain failed",
			zap.String("correlation_id", apimw.GetCorrelationID(r.Context())),
			zap.Error(err),
		)
		mapError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, summary)
}

// Step handles POST /api/v1/queue/step
//
// @Summary  Process exactly one queued email
// @Tags     queue
// @Produce  json
// @Success  200  {object}  domain.Outcome
// @Router   /api/v1/queue/step [post]
func (h *QueueHandler) Step(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, h.svc.Step(r.Context()))
}
