package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/scolaris-dev/scolaris-api/internal/models"
	appErrors "github.com/scolaris-dev/scolaris-api/pkg/errors"
)

type scheduleRepository interface {
	BeginTxx(ctx context.Context) (*sqlx.Tx, error)
	List(ctx context.Context, filter models.ScheduleFilter) ([]models.ScheduleEntry, int, error)
	FindByID(ctx context.Context, id string) (*models.ScheduleEntry, error)
	ListByYear(ctx context.Context, yearID string) ([]models.ScheduleEntry, error)
	ListForDayTx(ctx context.Context, tx *sqlx.Tx, yearID string, weekday models.Weekday) ([]models.ScheduleEntry, error)
	CreateTx(ctx context.Context, tx *sqlx.Tx, entry *models.ScheduleEntry) error
	UpdateTx(ctx context.Context, tx *sqlx.Tx, entry *models.ScheduleEntry) error
	BulkCreateTx(ctx context.Context, tx *sqlx.Tx, entries []models.ScheduleEntry) error
	UpdateTimes(ctx context.Context, id string, start, end models.TimeOfDay) error
	UpdateTeacher(ctx context.Context, id string, teacherID *string) error
	UpdateRoom(ctx context.Context, id string, room string) error
	Delete(ctx context.Context, id string) error
	DeleteByClassYearTx(ctx context.Context, tx *sqlx.Tx, classID, yearID string) error
}

type scheduleAuditRecorder interface {
	CreateAuditLog(ctx context.Context, log *models.AuditLog) error
}

// CreateScheduleEntryRequest describes payload for creating a schedule entry.
type CreateScheduleEntryRequest struct {
	AcademicYearID string  `json:"academic_year_id" validate:"required"`
	ClassID        string  `json:"class_id" validate:"required"`
	SubjectID      string  `json:"subject_id" validate:"required"`
	TeacherID      *string `json:"teacher_id,omitempty"`
	Weekday        string  `json:"weekday" validate:"required"`
	StartTime      string  `json:"start_time" validate:"required"`
	EndTime        string  `json:"end_time" validate:"required"`
	Room           string  `json:"room"`
	ActorID        string  `json:"-"`
}

// UpdateScheduleEntryRequest updates an existing schedule entry.
type UpdateScheduleEntryRequest struct {
	AcademicYearID string  `json:"academic_year_id" validate:"required"`
	ClassID        string  `json:"class_id" validate:"required"`
	SubjectID      string  `json:"subject_id" validate:"required"`
	TeacherID      *string `json:"teacher_id,omitempty"`
	Weekday        string  `json:"weekday" validate:"required"`
	StartTime      string  `json:"start_time" validate:"required"`
	EndTime        string  `json:"end_time" validate:"required"`
	Room           string  `json:"room"`
	ActorID        string  `json:"-"`
}

// ResolveConflictRequest applies one single-field mutation to one entry of a
// reported conflict pair.
type ResolveConflictRequest struct {
	Action       string  `json:"action" validate:"required,oneof=RETIME REASSIGN_TEACHER REASSIGN_ROOM DELETE"`
	EntryID      string  `json:"entry_id" validate:"required"`
	NewStart     string  `json:"new_start,omitempty"`
	NewEnd       string  `json:"new_end,omitempty"`
	NewTeacherID *string `json:"new_teacher_id,omitempty"`
	NewRoom      string  `json:"new_room,omitempty"`
	ActorID      string  `json:"-"`
}

// GenerateScheduleRequest regenerates a class timetable for a year. TimeSlots
// and LunchSlot may be omitted, in which case the service falls back to its
// configured generation defaults. A negative or out-of-range lunch slot means
// no slot is reserved for lunch.
type GenerateScheduleRequest struct {
	ClassID        string              `json:"class_id" validate:"required"`
	AcademicYearID string              `json:"academic_year_id" validate:"required"`
	SubjectIDs     []string            `json:"subject_ids" validate:"required,min=1"`
	TimeSlots      []TimeSlotPayload   `json:"time_slots" validate:"omitempty,min=1,dive"`
	Weekdays       []string            `json:"weekdays" validate:"required,min=1"`
	LunchSlot      *int                `json:"lunch_slot,omitempty"`
	TeacherBySubj  map[string]string   `json:"teachers_by_subject,omitempty"`
	ActorID        string              `json:"-"`
}

// GenerationDefaults is the slot grid used when a generation request carries
// no explicit time slots.
type GenerationDefaults struct {
	SlotsPerDay int
	LunchSlot   int
	DayStart    string
	SlotMinutes int
}

func (d GenerationDefaults) slots() []TimeSlotPayload {
	if d.SlotsPerDay <= 0 || d.SlotMinutes <= 0 {
		return nil
	}
	dayStart, err := models.ParseTimeOfDay(d.DayStart)
	if err != nil {
		return nil
	}
	out := make([]TimeSlotPayload, 0, d.SlotsPerDay)
	for i := 0; i < d.SlotsPerDay; i++ {
		start := dayStart + models.TimeOfDay(i*d.SlotMinutes)
		end := start + models.TimeOfDay(d.SlotMinutes)
		out = append(out, TimeSlotPayload{Start: start.String(), End: end.String()})
	}
	return out
}

// TimeSlotPayload is one generation slot boundary.
type TimeSlotPayload struct {
	Start string `json:"start" validate:"required"`
	End   string `json:"end" validate:"required"`
}

// ScheduleService coordinates timetable CRUD, conflict detection and
// resolution.
type ScheduleService struct {
	repo       scheduleRepository
	audit      scheduleAuditRecorder
	validator  *validator.Validate
	logger     *zap.Logger
	metrics    *MetricsService
	generation GenerationDefaults
}

// SetMetrics attaches a metrics sink for conflict scan counters.
func (s *ScheduleService) SetMetrics(m *MetricsService) {
	s.metrics = m
}

// SetGenerationDefaults installs the fallback slot grid for Generate.
func (s *ScheduleService) SetGenerationDefaults(d GenerationDefaults) {
	s.generation = d
}

// NewScheduleService instantiates ScheduleService.
func NewScheduleService(repo scheduleRepository, audit scheduleAuditRecorder, validate *validator.Validate, logger *zap.Logger) *ScheduleService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ScheduleService{repo: repo, audit: audit, validator: validate, logger: logger}
}

// List returns schedule entries with pagination metadata.
func (s *ScheduleService) List(ctx context.Context, filter models.ScheduleFilter) ([]models.ScheduleEntry, *models.Pagination, error) {
	entries, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list schedule entries")
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 {
		size = 20
	}
	pagination := &models.Pagination{Page: page, PageSize: size, TotalCount: total}
	return entries, pagination, nil
}

// Get loads a single entry.
func (s *ScheduleService) Get(ctx context.Context, id string) (*models.ScheduleEntry, error) {
	entry, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "schedule entry not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load schedule entry")
	}
	return entry, nil
}

// Create validates a candidate entry and inserts it. The conflict check and
// the insert run inside one transaction so concurrent submissions for the same
// slot cannot both pass the check.
func (s *ScheduleService) Create(ctx context.Context, req CreateScheduleEntryRequest) (*models.ScheduleEntry, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid schedule payload")
	}
	entry, err := buildEntry(req.AcademicYearID, req.ClassID, req.SubjectID, req.TeacherID, req.Weekday, req.StartTime, req.EndTime, req.Room)
	if err != nil {
		return nil, err
	}

	tx, err := s.repo.BeginTxx(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to begin transaction")
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if err = s.checkCandidateTx(ctx, tx, *entry); err != nil {
		return nil, err
	}
	if err = s.repo.CreateTx(ctx, tx, entry); err != nil {
		err = appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create schedule entry")
		return nil, err
	}
	if err = tx.Commit(); err != nil {
		err = appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to commit schedule entry")
		return nil, err
	}
	s.recordAudit(ctx, req.ActorID, models.AuditActionScheduleCreate, "schedule", entry.ID, map[string]interface{}{
		"class_id": entry.ClassID,
		"weekday":  string(entry.Weekday),
	})
	return entry, nil
}

// Update rewrites an entry, re-running the conflict check against the target
// day inside the same transaction as the write.
func (s *ScheduleService) Update(ctx context.Context, id string, req UpdateScheduleEntryRequest) (*models.ScheduleEntry, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid schedule payload")
	}
	existing, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	entry, err := buildEntry(req.AcademicYearID, req.ClassID, req.SubjectID, req.TeacherID, req.Weekday, req.StartTime, req.EndTime, req.Room)
	if err != nil {
		return nil, err
	}
	entry.ID = existing.ID
	entry.CreatedAt = existing.CreatedAt

	tx, err := s.repo.BeginTxx(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to begin transaction")
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if err = s.checkCandidateTx(ctx, tx, *entry); err != nil {
		return nil, err
	}
	if err = s.repo.UpdateTx(ctx, tx, entry); err != nil {
		err = appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update schedule entry")
		return nil, err
	}
	if err = tx.Commit(); err != nil {
		err = appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to commit schedule entry")
		return nil, err
	}
	s.recordAudit(ctx, req.ActorID, models.AuditActionScheduleUpdate, "schedule", entry.ID, map[string]interface{}{
		"class_id": entry.ClassID,
		"weekday":  string(entry.Weekday),
	})
	return entry, nil
}

// Delete removes a schedule entry.
func (s *ScheduleService) Delete(ctx context.Context, id, actorID string) error {
	entry, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete schedule entry")
	}
	s.recordAudit(ctx, actorID, models.AuditActionScheduleDelete, "schedule", entry.ID, map[string]interface{}{
		"class_id": entry.ClassID,
		"weekday":  string(entry.Weekday),
	})
	return nil
}

// Conflicts scans the whole academic year and returns every conflicting pair.
func (s *ScheduleService) Conflicts(ctx context.Context, scope ConflictScope) ([]models.ConflictPair, error) {
	if scope.AcademicYearID == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "academic year id is required")
	}
	entries, err := s.repo.ListByYear(ctx, scope.AcademicYearID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load schedule entries")
	}
	pairs := DetectConflicts(entries, scope)
	if s.metrics != nil {
		s.metrics.ObserveConflictScan(len(pairs))
	}
	return pairs, nil
}

// Resolve applies a single-field mutation to one member of a conflict pair.
// It deliberately does not re-check the mutated entry against the other pair
// member or the rest of the year: callers are expected to run Conflicts again
// after each resolution.
func (s *ScheduleService) Resolve(ctx context.Context, req ResolveConflictRequest) (*models.ScheduleEntry, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid resolution payload")
	}
	entry, err := s.Get(ctx, req.EntryID)
	if err != nil {
		return nil, err
	}

	switch req.Action {
	case "RETIME":
		start, parseErr := models.ParseTimeOfDay(req.NewStart)
		if parseErr != nil {
			return nil, appErrors.Clone(appErrors.ErrValidation, "invalid new start time")
		}
		end, parseErr := models.ParseTimeOfDay(req.NewEnd)
		if parseErr != nil {
			return nil, appErrors.Clone(appErrors.ErrValidation, "invalid new end time")
		}
		if start >= end {
			return nil, appErrors.Clone(appErrors.ErrValidation, "start time must be before end time")
		}
		if err = s.repo.UpdateTimes(ctx, entry.ID, start, end); err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to retime schedule entry")
		}
		entry.StartTime, entry.EndTime = start, end
	case "REASSIGN_TEACHER":
		if err = s.repo.UpdateTeacher(ctx, entry.ID, req.NewTeacherID); err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to reassign teacher")
		}
		entry.TeacherID = req.NewTeacherID
	case "REASSIGN_ROOM":
		if err = s.repo.UpdateRoom(ctx, entry.ID, req.NewRoom); err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to reassign room")
		}
		entry.Room = req.NewRoom
	case "DELETE":
		if err = s.repo.Delete(ctx, entry.ID); err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete schedule entry")
		}
	default:
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unknown resolution action %q", req.Action))
	}

	s.recordResolution(ctx, req, entry)

	if req.Action == "DELETE" {
		return nil, nil
	}
	return entry, nil
}

// Generate wipes and rebuilds a class timetable in one transaction. Subjects
// are assigned round-robin across weekday x slot cells, skipping the lunch
// slot. The generator only guarantees one subject per cell for this class; it
// does not check teachers or rooms against other classes. Conflicts, if any,
// surface through the Conflicts scan.
func (s *ScheduleService) Generate(ctx context.Context, req GenerateScheduleRequest) ([]models.ScheduleEntry, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid generation payload")
	}

	days := make([]models.Weekday, 0, len(req.Weekdays))
	for _, raw := range req.Weekdays {
		day, err := models.ParseWeekday(raw)
		if err != nil {
			return nil, appErrors.Clone(appErrors.ErrValidation, err.Error())
		}
		days = append(days, day)
	}

	rawSlots := req.TimeSlots
	lunch := -1
	if req.LunchSlot != nil {
		lunch = *req.LunchSlot
	}
	if len(rawSlots) == 0 {
		rawSlots = s.generation.slots()
		if len(rawSlots) == 0 {
			return nil, appErrors.Clone(appErrors.ErrValidation, "time slots are required")
		}
		if req.LunchSlot == nil {
			lunch = s.generation.LunchSlot
		}
	}

	slots := make([]models.TimeWindow, 0, len(rawSlots))
	for _, raw := range rawSlots {
		start, err := models.ParseTimeOfDay(raw.Start)
		if err != nil {
			return nil, appErrors.Clone(appErrors.ErrValidation, "invalid slot start time")
		}
		end, err := models.ParseTimeOfDay(raw.End)
		if err != nil {
			return nil, appErrors.Clone(appErrors.ErrValidation, "invalid slot end time")
		}
		w := models.TimeWindow{Start: start, End: end}
		if !w.Valid() {
			return nil, appErrors.Clone(appErrors.ErrValidation, "slot start must be before slot end")
		}
		slots = append(slots, w)
	}
	if lunch < 0 || lunch >= len(slots) {
		lunch = -1
	}

	entries := make([]models.ScheduleEntry, 0, len(days)*len(slots))
	next := 0
	for _, day := range days {
		for idx, slot := range slots {
			if idx == lunch {
				continue
			}
			subjectID := req.SubjectIDs[next%len(req.SubjectIDs)]
			next++

			var teacherID *string
			if id, ok := req.TeacherBySubj[subjectID]; ok && id != "" {
				assigned := id
				teacherID = &assigned
			}
			entries = append(entries, models.ScheduleEntry{
				AcademicYearID: req.AcademicYearID,
				ClassID:        req.ClassID,
				SubjectID:      subjectID,
				TeacherID:      teacherID,
				Weekday:        day,
				StartTime:      slot.Start,
				EndTime:        slot.End,
			})
		}
	}

	tx, err := s.repo.BeginTxx(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to begin transaction")
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if err = s.repo.DeleteByClassYearTx(ctx, tx, req.ClassID, req.AcademicYearID); err != nil {
		err = appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to clear class timetable")
		return nil, err
	}
	if err = s.repo.BulkCreateTx(ctx, tx, entries); err != nil {
		err = appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to insert generated timetable")
		return nil, err
	}
	if err = tx.Commit(); err != nil {
		err = appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to commit generated timetable")
		return nil, err
	}

	s.recordAudit(ctx, req.ActorID, models.AuditActionScheduleRebuild, "schedule", req.ClassID, map[string]interface{}{
		"class_id": req.ClassID,
		"year_id":  req.AcademicYearID,
		"entries":  len(entries),
	})
	return entries, nil
}

func (s *ScheduleService) checkCandidateTx(ctx context.Context, tx *sqlx.Tx, candidate models.ScheduleEntry) error {
	sameDay, err := s.repo.ListForDayTx(ctx, tx, candidate.AcademicYearID, candidate.Weekday)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check schedule conflicts")
	}
	if hits := WouldConflict(candidate, sameDay); len(hits) > 0 {
		domainErr := &models.ScheduleConflictError{
			Message:  "candidate collides with existing schedule entries",
			Existing: hits,
		}
		return appErrors.Wrap(domainErr, appErrors.ErrConflict.Code, appErrors.ErrConflict.Status, "schedule conflict detected")
	}
	return nil
}

func (s *ScheduleService) recordResolution(ctx context.Context, req ResolveConflictRequest, entry *models.ScheduleEntry) {
	s.recordAudit(ctx, req.ActorID, models.AuditActionScheduleResolve, "schedule", entry.ID, map[string]interface{}{
		"action":   req.Action,
		"entry_id": entry.ID,
	})
}

// recordAudit is fire-and-forget: a failed audit write never blocks the
// mutation it describes.
func (s *ScheduleService) recordAudit(ctx context.Context, actorID, action, resource, resourceID string, detail map[string]interface{}) {
	if s.audit == nil {
		return
	}
	payload, _ := json.Marshal(detail)
	var userID *string
	if actorID != "" {
		userID = &actorID
	}
	log := &models.AuditLog{
		UserID:     userID,
		Action:     action,
		Resource:   resource,
		ResourceID: &resourceID,
		Detail:     payload,
	}
	if err := s.audit.CreateAuditLog(ctx, log); err != nil {
		s.logger.Warn("audit log write failed", zap.String("action", action), zap.Error(err))
	}
}

func buildEntry(yearID, classID, subjectID string, teacherID *string, weekday, startRaw, endRaw, room string) (*models.ScheduleEntry, error) {
	day, err := models.ParseWeekday(weekday)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, err.Error())
	}
	start, err := models.ParseTimeOfDay(startRaw)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "invalid start time, expected HH:MM")
	}
	end, err := models.ParseTimeOfDay(endRaw)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "invalid end time, expected HH:MM")
	}
	if start >= end {
		return nil, appErrors.Clone(appErrors.ErrValidation, "start time must be before end time")
	}
	return &models.ScheduleEntry{
		AcademicYearID: yearID,
		ClassID:        classID,
		SubjectID:      subjectID,
		TeacherID:      teacherID,
		Weekday:        day,
		StartTime:      start,
		EndTime:        end,
		Room:           room,
	}, nil
}
