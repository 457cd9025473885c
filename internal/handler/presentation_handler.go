package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/velocity-vultures/pms-api/internal/service"
	appErrors "github.com/velocity-vultures/pms-api/pkg/errors"
	"github.com/velocity-vultures/pms-api/pkg/response"
)

// PresentationHandler handles presentation scheduling endpoints.
type PresentationHandler struct {
	service *service.PresentationService
}

// NewPresentationHandler constructs a presentation handler.
func NewPresentationHandler(svc *service.PresentationService) *PresentationHandler {
	return &PresentationHandler{service: svc}
}

// AvailableSlots godoc
// @Summary List candidate presentation windows for a project in a room
// @Tags Presentations
// @Produce json
// @Param projectId path string true "Project ID"
// @Param roomId query string true "Room ID"
// @Success 200 {object} response.Envelope
// @Router /projects/{projectId}/presentation/slots [get]
func (h *PresentationHandler) AvailableSlots(c *gin.Context) {
	roomID := c.Query("roomId")
	if roomID == "" {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "roomId query parameter is required"))
		return
	}
	options, err := h.service.AvailableSlots(c.Request.Context(), c.Param("projectId"), roomID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, options, nil)
}

// Get godoc
// @Summary Get the committed slot for a project
// @Tags Presentations
// @Produce json
// @Param projectId path string true "Project ID"
// @Success 200 {object} response.Envelope
// @Router /projects/{projectId}/presentation [get]
func (h *PresentationHandler) Get(c *gin.Context) {
	slot, err := h.service.FindByProject(c.Request.Context(), c.Param("projectId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, slot, nil)
}

// Assign godoc
// @Summary Book a presentation window
// @Tags Presentations
// @Accept json
// @Produce json
// @Param projectId path string true "Project ID"
// @Param payload body service.AssignPresentationRequest true "Booking payload"
// @Success 200 {object} response.Envelope
// @Router /projects/{projectId}/presentation [put]
func (h *PresentationHandler) Assign(c *gin.Context) {
	var req service.AssignPresentationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	req.ProjectID = c.Param("projectId")
	slot, err := h.service.AssignPresentation(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, slot, nil)
}

// Unassign godoc
// @Summary Release a project's presentation slot
// @Tags Presentations
// @Produce json
// @Param projectId path string true "Project ID"
// @Success 204
// @Router /projects/{projectId}/presentation [delete]
func (h *PresentationHandler) Unassign(c *gin.Context) {
	if err := h.service.UnassignPresentation(c.Request.Context(), c.Param("projectId")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// Timetable godoc
// @Summary Full presentation timetable
// @Tags Presentations
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /presentations/timetable [get]
func (h *PresentationHandler) Timetable(c *gin.Context) {
	entries, err := h.service.Timetable(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, entries, nil)
}

// RunBestEffort godoc
// @Summary Run the greedy batch scheduler
// @Tags Presentations
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /presentations/best-effort [post]
func (h *PresentationHandler) RunBestEffort(c *gin.Context) {
	report, err := h.service.RunBestEffort(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, report, nil)
}
