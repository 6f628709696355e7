package handler

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/scolaris-dev/scolaris-api/internal/models"
	"github.com/scolaris-dev/scolaris-api/internal/service"
	appErrors "github.com/scolaris-dev/scolaris-api/pkg/errors"
	"github.com/scolaris-dev/scolaris-api/pkg/response"
)

// EvaluationHandler manages grading endpoints.
type EvaluationHandler struct {
	service *service.EvaluationService
	exports *service.ExportService
}

// NewEvaluationHandler constructs handler.
func NewEvaluationHandler(svc *service.EvaluationService, exports *service.ExportService) *EvaluationHandler {
	return &EvaluationHandler{service: svc, exports: exports}
}

// List godoc
// @Summary List evaluations
// @Tags Evaluations
// @Produce json
// @Param studentId query string false "Filter by student"
// @Param subjectId query string false "Filter by subject"
// @Param classId query string false "Filter by class"
// @Param academicYearId query string false "Filter by academic year"
// @Param period query string false "Filter by grading period"
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /evaluations [get]
func (h *EvaluationHandler) List(c *gin.Context) {
	var filter models.EvaluationFilter
	filter.StudentID = c.Query("studentId")
	filter.SubjectID = c.Query("subjectId")
	filter.ClassID = c.Query("classId")
	filter.AcademicYearID = c.Query("academicYearId")
	filter.Period = strings.ToUpper(c.Query("period"))
	if page, err := strconv.Atoi(c.DefaultQuery("page", "1")); err == nil {
		filter.Page = page
	}
	if limit, err := strconv.Atoi(c.DefaultQuery("limit", "20")); err == nil {
		filter.PageSize = limit
	}

	evaluations, pagination, err := h.service.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, evaluations, pagination)
}

// Create godoc
// @Summary Record an evaluation
// @Tags Evaluations
// @Accept json
// @Produce json
// @Param payload body service.EvaluationPayload true "Evaluation payload"
// @Success 201 {object} response.Envelope
// @Router /evaluations [post]
func (h *EvaluationHandler) Create(c *gin.Context) {
	var req service.EvaluationPayload
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	evaluation, err := h.service.Create(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, evaluation)
}

// Update godoc
// @Summary Update an evaluation
// @Tags Evaluations
// @Accept json
// @Produce json
// @Param id path string true "Evaluation ID"
// @Param payload body service.EvaluationPayload true "Evaluation payload"
// @Success 200 {object} response.Envelope
// @Router /evaluations/{id} [put]
func (h *EvaluationHandler) Update(c *gin.Context) {
	var req service.EvaluationPayload
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	evaluation, err := h.service.Update(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, evaluation, nil)
}

// Delete godoc
// @Summary Delete an evaluation
// @Tags Evaluations
// @Produce json
// @Param id path string true "Evaluation ID"
// @Success 204
// @Router /evaluations/{id} [delete]
func (h *EvaluationHandler) Delete(c *gin.Context) {
	if err := h.service.Delete(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// ClassAverages godoc
// @Summary Per-student weighted averages for a class
// @Tags Evaluations
// @Produce json
// @Param classId query string true "Class"
// @Param academicYearId query string true "Academic year"
// @Param period query string true "Grading period"
// @Success 200 {object} response.Envelope
// @Router /evaluations/averages [get]
func (h *EvaluationHandler) ClassAverages(c *gin.Context) {
	averages, err := h.service.ClassAverages(c.Request.Context(), c.Query("classId"), c.Query("academicYearId"), c.Query("period"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, averages, nil)
}

// ExportAverages godoc
// @Summary Export class averages
// @Tags Evaluations
// @Produce text/csv
// @Param classId query string true "Class"
// @Param academicYearId query string true "Academic year"
// @Param period query string true "Grading period"
// @Param format query string false "csv or pdf"
// @Success 200
// @Router /evaluations/averages/export [get]
func (h *EvaluationHandler) ExportAverages(c *gin.Context) {
	file, err := h.exports.ClassAverages(c.Request.Context(), c.Query("classId"), c.Query("academicYearId"), c.Query("period"), c.Query("format"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.File(c, file.ContentType, file.Filename, file.Payload)
}
