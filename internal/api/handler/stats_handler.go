package handler

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/josephbaria24/petros-event-management-system/internal/service"
)

// StatsHandler serves the backlog snapshot endpoint.
type StatsHandler struct {
	svc    *service.QueueService
	logger *zap.Logger
}

func NewStatsHandler(svc *service.QueueService, logger *zap.Logger) *StatsHandler {
	return &StatsHandler{svc: svc, logger: logger}
}

// Stats handles GET /api/v1/queue/stats
//
// @Summary  Queue backlog and today's budget usage
// @Tags     queue
// @Produce  json
// @Success  200  {object}  domain.QueueStats
// @Router   /api/v1/queue/stats [get]
func (h *StatsHandler) Stats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.svc.Stats(r.Context())
	if err != nil {
		h.logger.Error("stats query failed", zap.Error(err))
		mapError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, stats)
}
