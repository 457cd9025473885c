package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/velocity-vultures/pms-api/internal/service"
	appErrors "github.com/velocity-vultures/pms-api/pkg/errors"
	"github.com/velocity-vultures/pms-api/pkg/response"
)

// AllocationHandler handles allocation endpoints.
type AllocationHandler struct {
	service *service.AllocationService
}

// NewAllocationHandler constructs an allocation handler.
func NewAllocationHandler(svc *service.AllocationService) *AllocationHandler {
	return &AllocationHandler{service: svc}
}

// List godoc
// @Summary List allocations
// @Tags Allocations
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /allocations [get]
func (h *AllocationHandler) List(c *gin.Context) {
	allocations, err := h.service.List(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, allocations, nil)
}

// Get godoc
// @Summary Get the allocation for a project
// @Tags Allocations
// @Produce json
// @Param projectId path string true "Project ID"
// @Success 200 {object} response.Envelope
// @Router /projects/{projectId}/allocation [get]
func (h *AllocationHandler) Get(c *gin.Context) {
	allocation, err := h.service.Find(c.Request.Context(), c.Param("projectId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, allocation, nil)
}

// BindSupervisor godoc
// @Summary Bind a supervisor to a project
// @Tags Allocations
// @Accept json
// @Produce json
// @Param projectId path string true "Project ID"
// @Param payload body service.BindSupervisorRequest true "Bind payload"
// @Success 201 {object} response.Envelope
// @Router /projects/{projectId}/allocation [post]
func (h *AllocationHandler) BindSupervisor(c *gin.Context) {
	var req service.BindSupervisorRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	req.ProjectID = c.Param("projectId")
	allocation, err := h.service.BindSupervisor(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, allocation)
}

// UnbindSupervisor godoc
// @Summary Remove a project's allocation
// @Tags Allocations
// @Produce json
// @Param projectId path string true "Project ID"
// @Success 204
// @Router /projects/{projectId}/allocation [delete]
func (h *AllocationHandler) UnbindSupervisor(c *gin.Context) {
	if err := h.service.UnbindSupervisor(c.Request.Context(), c.Param("projectId")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// AssignStudent godoc
// @Summary Assign a student to a project
// @Tags Allocations
// @Accept json
// @Produce json
// @Param projectId path string true "Project ID"
// @Param payload body service.AssignStudentRequest true "Assign payload"
// @Success 200 {object} response.Envelope
// @Router /projects/{projectId}/allocation/students [post]
func (h *AllocationHandler) AssignStudent(c *gin.Context) {
	var req service.AssignStudentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	req.ProjectID = c.Param("projectId")
	allocation, err := h.service.AssignStudent(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, allocation, nil)
}

// UnassignStudent godoc
// @Summary Remove a student from a project
// @Tags Allocations
// @Produce json
// @Param projectId path string true "Project ID"
// @Param studentId path string true "Student ID"
// @Success 200 {object} response.Envelope
// @Router /projects/{projectId}/allocation/students/{studentId} [delete]
func (h *AllocationHandler) UnassignStudent(c *gin.Context) {
	allocation, err := h.service.UnassignStudent(c.Request.Context(), c.Param("projectId"), c.Param("studentId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, allocation, nil)
}

// RunBestEffort godoc
// @Summary Run the greedy batch matcher
// @Tags Allocations
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /allocations/best-effort [post]
func (h *AllocationHandler) RunBestEffort(c *gin.Context) {
	report, err := h.service.RunBestEffort(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, report, nil)
}
