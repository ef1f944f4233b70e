package handlers

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"ncfledger/internal/core/apperror"
	"ncfledger/internal/domain/reports"
	"ncfledger/internal/infrastructure/http/v1/dto"
)

// ReportHandler exports DGII reports.
type ReportHandler struct {
	*BaseHandler
	service *reports.Service
}

// NewReportHandler creates a new report handler.
func NewReportHandler(base *BaseHandler, service *reports.Service) *ReportHandler {
	return &ReportHandler{BaseHandler: base, service: service}
}

// Export handles GET /owners/:ownerId/reports/:kind?from=&to=&format=
// for the 606 and 607 reports. Without a format the report is returned as
// JSON.
func (h *ReportHandler) Export(c *gin.Context) {
	ownerID, ok := h.OwnerID(c)
	if !ok {
		return
	}
	kind, ok := reports.ParseKind(c.Param("kind"))
	if !ok {
		h.Error(c, apperror.NewNotFound("report", c.Param("kind")))
		return
	}
	var q dto.WindowQuery
	if !h.BindQuery(c, &q) {
		return
	}
	from, to, types, err := q.Parse()
	if err != nil {
		h.Error(c, err)
		return
	}

	ctx := c.Request.Context()
	report, err := h.service.Build(ctx, reports.Filter{
		Kind:          kind,
		OwnerID:       ownerID,
		From:          from,
		To:            to,
		DocumentTypes: types,
	})
	if err != nil {
		h.Error(c, err)
		return
	}

	formatName := c.Query("format")
	if formatName == "" || formatName == "json" {
		h.OK(c, report)
		return
	}
	format, ok := reports.ParseFormat(formatName)
	if !ok {
		h.Error(c, apperror.NewValidation("unsupported export format").
			WithDetail("field", "format").
			WithDetail("value", formatName))
		return
	}

	file, err := h.service.Export(ctx, report, format)
	if err != nil {
		h.Error(c, err)
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", file.Name))
	c.Data(http.StatusOK, file.ContentType, file.Data)
}
