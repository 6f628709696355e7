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

// ScheduleHandler manages timetable endpoints.
type ScheduleHandler struct {
	service *service.ScheduleService
	exports *service.ExportService
	years   *service.AcademicYearService
}

// NewScheduleHandler constructs handler.
func NewScheduleHandler(svc *service.ScheduleService, exports *service.ExportService, years *service.AcademicYearService) *ScheduleHandler {
	return &ScheduleHandler{service: svc, exports: exports, years: years}
}

// yearOrActive resolves the academicYearId query param, falling back to the
// active academic year when absent.
func (h *ScheduleHandler) yearOrActive(c *gin.Context) (string, error) {
	if yearID := c.Query("academicYearId"); yearID != "" {
		return yearID, nil
	}
	year, err := h.years.Active(c.Request.Context())
	if err != nil {
		return "", err
	}
	return year.ID, nil
}

// List godoc
// @Summary List schedule entries
// @Tags Schedule
// @Produce json
// @Param academicYearId query string false "Filter by academic year"
// @Param classId query string false "Filter by class"
// @Param teacherId query string false "Filter by teacher"
// @Param weekday query string false "Filter by weekday"
// @Param room query string false "Filter by room"
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /schedule [get]
func (h *ScheduleHandler) List(c *gin.Context) {
	var filter models.ScheduleFilter
	filter.AcademicYearID = c.Query("academicYearId")
	filter.ClassID = c.Query("classId")
	filter.TeacherID = c.Query("teacherId")
	filter.Weekday = strings.ToUpper(c.Query("weekday"))
	filter.Room = c.Query("room")
	if page, err := strconv.Atoi(c.DefaultQuery("page", "1")); err == nil {
		filter.Page = page
	}
	if limit, err := strconv.Atoi(c.DefaultQuery("limit", "20")); err == nil {
		filter.PageSize = limit
	}
	filter.SortBy = c.Query("sort")
	filter.SortOrder = c.Query("order")

	entries, pagination, err := h.service.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, entries, pagination)
}

// Get godoc
// @Summary Get one schedule entry
// @Tags Schedule
// @Produce json
// @Param id path string true "Entry ID"
// @Success 200 {object} response.Envelope
// @Router /schedule/{id} [get]
func (h *ScheduleHandler) Get(c *gin.Context) {
	entry, err := h.service.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, entry, nil)
}

// Create godoc
// @Summary Create schedule entry
// @Tags Schedule
// @Accept json
// @Produce json
// @Param payload body service.CreateScheduleEntryRequest true "Entry payload"
// @Success 201 {object} response.Envelope
// @Router /schedule [post]
func (h *ScheduleHandler) Create(c *gin.Context) {
	var req service.CreateScheduleEntryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	req.ActorID = actorID(c)
	entry, err := h.service.Create(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, entry)
}

// Update godoc
// @Summary Update schedule entry
// @Tags Schedule
// @Accept json
// @Produce json
// @Param id path string true "Entry ID"
// @Param payload body service.UpdateScheduleEntryRequest true "Entry payload"
// @Success 200 {object} response.Envelope
// @Router /schedule/{id} [put]
func (h *ScheduleHandler) Update(c *gin.Context) {
	var req service.UpdateScheduleEntryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	req.ActorID = actorID(c)
	entry, err := h.service.Update(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, entry, nil)
}

// Delete godoc
// @Summary Delete schedule entry
// @Tags Schedule
// @Produce json
// @Param id path string true "Entry ID"
// @Success 204
// @Router /schedule/{id} [delete]
func (h *ScheduleHandler) Delete(c *gin.Context) {
	if err := h.service.Delete(c.Request.Context(), c.Param("id"), actorID(c)); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// Conflicts godoc
// @Summary Report schedule conflicts
// @Tags Schedule
// @Produce json
// @Param academicYearId query string false "Academic year, defaults to the active one"
// @Param classId query string false "Restrict to class"
// @Param teacherId query string false "Restrict to teacher"
// @Param room query string false "Restrict to room"
// @Success 200 {object} response.Envelope
// @Router /schedule/conflicts [get]
func (h *ScheduleHandler) Conflicts(c *gin.Context) {
	yearID, err := h.yearOrActive(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	scope := service.ConflictScope{
		AcademicYearID: yearID,
		ClassID:        c.Query("classId"),
		TeacherID:      c.Query("teacherId"),
		Room:           c.Query("room"),
	}
	pairs, err := h.service.Conflicts(c.Request.Context(), scope)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, pairs, nil, map[string]interface{}{"count": len(pairs)})
}

// Resolve godoc
// @Summary Resolve a schedule conflict
// @Tags Schedule
// @Accept json
// @Produce json
// @Param payload body service.ResolveConflictRequest true "Resolution payload"
// @Success 200 {object} response.Envelope
// @Router /schedule/conflicts/resolve [post]
func (h *ScheduleHandler) Resolve(c *gin.Context) {
	var req service.ResolveConflictRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	req.ActorID = actorID(c)
	entry, err := h.service.Resolve(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	if entry == nil {
		response.NoContent(c)
		return
	}
	response.JSON(c, http.StatusOK, entry, nil)
}

// Generate godoc
// @Summary Regenerate a class timetable
// @Tags Schedule
// @Accept json
// @Produce json
// @Param payload body service.GenerateScheduleRequest true "Generation payload"
// @Success 200 {object} response.Envelope
// @Router /schedule/generate [post]
func (h *ScheduleHandler) Generate(c *gin.Context) {
	var req service.GenerateScheduleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	req.ActorID = actorID(c)
	entries, err := h.service.Generate(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, entries, nil, map[string]interface{}{"generated": len(entries)})
}

// Export godoc
// @Summary Export the timetable grid
// @Tags Schedule
// @Produce text/csv
// @Param academicYearId query string false "Academic year, defaults to the active one"
// @Param classId query string false "Restrict to class"
// @Param format query string false "csv or pdf"
// @Success 200
// @Router /schedule/export [get]
func (h *ScheduleHandler) Export(c *gin.Context) {
	yearID, err := h.yearOrActive(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	file, err := h.exports.ScheduleGrid(c.Request.Context(), yearID, c.Query("classId"), c.Query("format"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.File(c, file.ContentType, file.Filename, file.Payload)
}
