package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/scolaris-dev/scolaris-api/internal/service"
	"github.com/scolaris-dev/scolaris-api/pkg/response"
)

// DashboardHandler serves headline counts.
type DashboardHandler struct {
	service *service.DashboardService
	years   *service.AcademicYearService
}

// NewDashboardHandler constructs handler.
func NewDashboardHandler(svc *service.DashboardService, years *service.AcademicYearService) *DashboardHandler {
	return &DashboardHandler{service: svc, years: years}
}

// Counts godoc
// @Summary Dashboard counts
// @Tags Dashboard
// @Produce json
// @Param academicYearId query string false "Academic year, defaults to the active one"
// @Success 200 {object} response.Envelope
// @Router /dashboard [get]
func (h *DashboardHandler) Counts(c *gin.Context) {
	yearID := c.Query("academicYearId")
	if yearID == "" {
		year, err := h.years.Active(c.Request.Context())
		if err != nil {
			response.Error(c, err)
			return
		}
		yearID = year.ID
	}

	counts, cached, err := h.service.Counts(c.Request.Context(), yearID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, counts, nil, map[string]interface{}{"cached": cached})
}
