package handler

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/velocity-vultures/pms-api/internal/models"
	"github.com/velocity-vultures/pms-api/internal/service"
	appErrors "github.com/velocity-vultures/pms-api/pkg/errors"
	"github.com/velocity-vultures/pms-api/pkg/response"
)

// SupervisorHandler handles supervisor endpoints.
type SupervisorHandler struct {
	service *service.SupervisorService
}

// NewSupervisorHandler constructs a supervisor handler.
func NewSupervisorHandler(svc *service.SupervisorService) *SupervisorHandler {
	return &SupervisorHandler{service: svc}
}

// List godoc
// @Summary List supervisors
// @Tags Supervisors
// @Produce json
// @Param search query string false "Search keyword"
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /supervisors [get]
func (h *SupervisorHandler) List(c *gin.Context) {
	var filter models.SupervisorFilter
	filter.Search = strings.TrimSpace(c.Query("search"))
	if page, err := strconv.Atoi(c.DefaultQuery("page", "1")); err == nil {
		filter.Page = page
	}
	if limit, err := strconv.Atoi(c.DefaultQuery("limit", "20")); err == nil {
		filter.PageSize = limit
	}
	filter.SortBy = c.Query("sort")
	filter.SortOrder = c.Query("order")

	supervisors, pagination, err := h.service.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, supervisors, pagination)
}

// Get godoc
// @Summary Get supervisor by id
// @Tags Supervisors
// @Produce json
// @Param id path string true "Supervisor ID"
// @Success 200 {object} response.Envelope
// @Router /supervisors/{id} [get]
func (h *SupervisorHandler) Get(c *gin.Context) {
	supervisor, err := h.service.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, supervisor, nil)
}

// Create godoc
// @Summary Create supervisor
// @Tags Supervisors
// @Accept json
// @Produce json
// @Param payload body service.CreateSupervisorRequest true "Supervisor payload"
// @Success 201 {object} response.Envelope
// @Router /supervisors [post]
func (h *SupervisorHandler) Create(c *gin.Context) {
	var req service.CreateSupervisorRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	supervisor, err := h.service.Create(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, supervisor)
}

// Update godoc
// @Summary Update supervisor
// @Tags Supervisors
// @Accept json
// @Produce json
// @Param id path string true "Supervisor ID"
// @Param payload body service.UpdateSupervisorRequest true "Supervisor payload"
// @Success 200 {object} response.Envelope
// @Router /supervisors/{id} [put]
func (h *SupervisorHandler) Update(c *gin.Context) {
	var req service.UpdateSupervisorRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	supervisor, err := h.service.Update(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, supervisor, nil)
}

// Delete godoc
// @Summary Delete supervisor
// @Tags Supervisors
// @Produce json
// @Param id path string true "Supervisor ID"
// @Success 204
// @Router /supervisors/{id} [delete]
func (h *SupervisorHandler) Delete(c *gin.Context) {
	if err := h.service.Delete(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
