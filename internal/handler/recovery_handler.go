package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/scolaris-dev/scolaris-api/internal/models"
	"github.com/scolaris-dev/scolaris-api/internal/service"
	appErrors "github.com/scolaris-dev/scolaris-api/pkg/errors"
	"github.com/scolaris-dev/scolaris-api/pkg/response"
)

// RecoveryHandler manages fee recovery endpoints.
type RecoveryHandler struct {
	service *service.RecoveryService
	exports *service.ExportService
}

// NewRecoveryHandler constructs handler.
func NewRecoveryHandler(svc *service.RecoveryService, exports *service.ExportService) *RecoveryHandler {
	return &RecoveryHandler{service: svc, exports: exports}
}

// Report godoc
// @Summary Fee recovery report
// @Tags Recovery
// @Produce json
// @Param academicYearId query string true "Academic year"
// @Param classId query string false "Restrict to class"
// @Param debtors query bool false "Only students with a balance"
// @Success 200 {object} response.Envelope
// @Router /recovery [get]
func (h *RecoveryHandler) Report(c *gin.Context) {
	filter := models.RecoveryFilter{
		AcademicYearID: c.Query("academicYearId"),
		ClassID:        c.Query("classId"),
	}
	if raw := c.Query("debtors"); raw != "" {
		if debtors, err := strconv.ParseBool(raw); err == nil {
			filter.OnlyDebtors = debtors
		}
	}

	rows, summary, err := h.service.Report(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, rows, nil, map[string]interface{}{"summary": summary})
}

// RecordPayment godoc
// @Summary Record a fee payment
// @Tags Recovery
// @Accept json
// @Produce json
// @Param payload body service.RecordPaymentRequest true "Payment payload"
// @Success 201 {object} response.Envelope
// @Router /recovery/payments [post]
func (h *RecoveryHandler) RecordPayment(c *gin.Context) {
	var req service.RecordPaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	req.ActorID = actorID(c)
	payment, err := h.service.RecordPayment(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, payment)
}

// Payments godoc
// @Summary List payments of one student
// @Tags Recovery
// @Produce json
// @Param id path string true "Student ID"
// @Param academicYearId query string true "Academic year"
// @Success 200 {object} response.Envelope
// @Router /recovery/students/{id}/payments [get]
func (h *RecoveryHandler) Payments(c *gin.Context) {
	payments, err := h.service.Payments(c.Request.Context(), c.Param("id"), c.Query("academicYearId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, payments, nil)
}

// Export godoc
// @Summary Export the recovery report
// @Tags Recovery
// @Produce text/csv
// @Param academicYearId query string true "Academic year"
// @Param classId query string false "Restrict to class"
// @Param debtors query bool false "Only students with a balance"
// @Param format query string false "csv or pdf"
// @Success 200
// @Router /recovery/export [get]
func (h *RecoveryHandler) Export(c *gin.Context) {
	filter := models.RecoveryFilter{
		AcademicYearID: c.Query("academicYearId"),
		ClassID:        c.Query("classId"),
	}
	if raw := c.Query("debtors"); raw != "" {
		if debtors, err := strconv.ParseBool(raw); err == nil {
			filter.OnlyDebtors = debtors
		}
	}
	file, err := h.exports.RecoveryReport(c.Request.Context(), filter, c.Query("format"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.File(c, file.ContentType, file.Filename, file.Payload)
}
