package handler

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/velocity-vultures/pms-api/internal/models"
	"github.com/velocity-vultures/pms-api/internal/service"
	appErrors "github.com/velocity-vultures/pms-api/pkg/errors"
	"github.com/velocity-vultures/pms-api/pkg/response"
)

// AvailabilityHandler handles availability grid endpoints.
type AvailabilityHandler struct {
	service *service.AvailabilityService
}

// NewAvailabilityHandler constructs an availability handler.
func NewAvailabilityHandler(svc *service.AvailabilityService) *AvailabilityHandler {
	return &AvailabilityHandler{service: svc}
}

// UpdateAvailabilityRequest replaces an owner's grid.
type UpdateAvailabilityRequest struct {
	Slots models.AvailabilityGrid `json:"slots"`
}

// Get godoc
// @Summary Get an owner's availability grid
// @Tags Availability
// @Produce json
// @Param ownerKind path string true "Owner kind" Enums(room, supervisor, student)
// @Param ownerId path string true "Owner ID"
// @Success 200 {object} response.Envelope
// @Router /availability/{ownerKind}/{ownerId} [get]
func (h *AvailabilityHandler) Get(c *gin.Context) {
	kind := models.OwnerKind(strings.ToUpper(c.Param("ownerKind")))
	availability, err := h.service.Get(c.Request.Context(), c.Param("ownerId"), kind)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, availability, nil)
}

// Update godoc
// @Summary Replace an owner's availability grid
// @Tags Availability
// @Accept json
// @Produce json
// @Param ownerKind path string true "Owner kind" Enums(room, supervisor, student)
// @Param ownerId path string true "Owner ID"
// @Param payload body UpdateAvailabilityRequest true "Grid payload"
// @Success 200 {object} response.Envelope
// @Router /availability/{ownerKind}/{ownerId} [put]
func (h *AvailabilityHandler) Update(c *gin.Context) {
	var req UpdateAvailabilityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	kind := models.OwnerKind(strings.ToUpper(c.Param("ownerKind")))
	availability, err := h.service.Update(c.Request.Context(), c.Param("ownerId"), kind, req.Slots)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, availability, nil)
}
