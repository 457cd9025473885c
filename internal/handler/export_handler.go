package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/velocity-vultures/pms-api/internal/service"
	"github.com/velocity-vultures/pms-api/pkg/response"
)

// ExportHandler handles timetable export endpoints.
type ExportHandler struct {
	service *service.ExportService
}

// NewExportHandler constructs an export handler.
func NewExportHandler(svc *service.ExportService) *ExportHandler {
	return &ExportHandler{service: svc}
}

// Timetable godoc
// @Summary Download the presentation timetable
// @Tags Exports
// @Produce octet-stream
// @Param format query string false "Export format" Enums(csv, pdf) default(csv)
// @Success 200 {file} binary
// @Router /exports/timetable [get]
func (h *ExportHandler) Timetable(c *gin.Context) {
	format := service.ExportFormat(c.DefaultQuery("format", "csv"))
	result, err := h.service.Timetable(c.Request.Context(), format)
	if err != nil {
		response.Error(c, err)
		return
	}
	c.Header("Content-Disposition", `attachment; filename="`+result.Filename+`"`)
	c.Data(200, result.ContentType, result.Payload)
}
