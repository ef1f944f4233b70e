package handlers

import (
	"github.com/gin-gonic/gin"

	"ncfledger/internal/domain/monitor"
	"ncfledger/internal/domain/owner"
	"ncfledger/internal/infrastructure/http/v1/dto"
)

// MonitorHandler exposes alert scans and the lifecycle sweep.
type MonitorHandler struct {
	*BaseHandler
	monitor *monitor.Service
	owners  *owner.Service
}

// NewMonitorHandler creates a new monitor handler.
func NewMonitorHandler(base *BaseHandler, mon *monitor.Service, owners *owner.Service) *MonitorHandler {
	return &MonitorHandler{BaseHandler: base, monitor: mon, owners: owners}
}

// Alerts handles GET /owners/:ownerId/alerts
// Thresholds come from owner settings unless alertDays or lowAvailability
// are given in the query.
func (h *MonitorHandler) Alerts(c *gin.Context) {
	ownerID, ok := h.OwnerID(c)
	if !ok {
		return
	}
	ctx := c.Request.Context()

	o, err := h.owners.Get(ctx, ownerID)
	if err != nil {
		h.Error(c, err)
		return
	}
	th := monitor.ThresholdsFor(o)
	th.AlertDays = h.ParseIntQuery(c, "alertDays", th.AlertDays)
	if v := h.ParseIntQuery(c, "lowAvailability", 0); v > 0 && v <= 100 {
		th.LowAvailability = float64(v)
	}

	alerts, err := h.monitor.Scan(ctx, ownerID, th)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, dto.AlertsResponse{Thresholds: th, Alerts: alerts})
}

// Sweep handles POST /admin/sweep
func (h *MonitorHandler) Sweep(c *gin.Context) {
	var req dto.SweepRequest
	if !h.BindOptionalJSON(c, &req) {
		return
	}
	asOf, err := dto.ParseDate("asOf", req.AsOf)
	if err != nil {
		h.Error(c, err)
		return
	}
	res, err := h.monitor.Sweep(c.Request.Context(), asOf)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, res)
}
