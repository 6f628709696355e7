package service

import (
	"context"
	"database/sql"
	"testing"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scolaris-dev/scolaris-api/internal/models"
	appErrors "github.com/scolaris-dev/scolaris-api/pkg/errors"
)

type scheduleRepoStub struct {
	db *sqlx.DB

	entries []models.ScheduleEntry

	created   []models.ScheduleEntry
	updated   []models.ScheduleEntry
	deleted   []string
	wiped     [][2]string
	retimed   map[string][2]models.TimeOfDay
	reteached map[string]*string
	reroomed  map[string]string
}

func (s *scheduleRepoStub) BeginTxx(ctx context.Context) (*sqlx.Tx, error) {
	return s.db.BeginTxx(ctx, nil)
}

func (s *scheduleRepoStub) List(ctx context.Context, filter models.ScheduleFilter) ([]models.ScheduleEntry, int, error) {
	return s.entries, len(s.entries), nil
}

func (s *scheduleRepoStub) FindByID(ctx context.Context, id string) (*models.ScheduleEntry, error) {
	for i := range s.entries {
		if s.entries[i].ID == id {
			entry := s.entries[i]
			return &entry, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (s *scheduleRepoStub) ListByYear(ctx context.Context, yearID string) ([]models.ScheduleEntry, error) {
	var out []models.ScheduleEntry
	for _, e := range s.entries {
		if e.AcademicYearID == yearID {
			out = append(out, e)
		}
	}
	return out, nil
}

func (s *scheduleRepoStub) ListForDayTx(ctx context.Context, tx *sqlx.Tx, yearID string, weekday models.Weekday) ([]models.ScheduleEntry, error) {
	var out []models.ScheduleEntry
	for _, e := range s.entries {
		if e.AcademicYearID == yearID && e.Weekday == weekday {
			out = append(out, e)
		}
	}
	return out, nil
}

func (s *scheduleRepoStub) CreateTx(ctx context.Context, tx *sqlx.Tx, entry *models.ScheduleEntry) error {
	entry.ID = "created-1"
	s.created = append(s.created, *entry)
	return nil
}

func (s *scheduleRepoStub) UpdateTx(ctx context.Context, tx *sqlx.Tx, entry *models.ScheduleEntry) error {
	s.updated = append(s.updated, *entry)
	return nil
}

func (s *scheduleRepoStub) BulkCreateTx(ctx context.Context, tx *sqlx.Tx, entries []models.ScheduleEntry) error {
	s.created = append(s.created, entries...)
	return nil
}

func (s *scheduleRepoStub) UpdateTimes(ctx context.Context, id string, start, end models.TimeOfDay) error {
	if s.retimed == nil {
		s.retimed = map[string][2]models.TimeOfDay{}
	}
	s.retimed[id] = [2]models.TimeOfDay{start, end}
	return nil
}

func (s *scheduleRepoStub) UpdateTeacher(ctx context.Context, id string, teacherID *string) error {
	if s.reteached == nil {
		s.reteached = map[string]*string{}
	}
	s.reteached[id] = teacherID
	return nil
}

func (s *scheduleRepoStub) UpdateRoom(ctx context.Context, id string, room string) error {
	if s.reroomed == nil {
		s.reroomed = map[string]string{}
	}
	s.reroomed[id] = room
	return nil
}

func (s *scheduleRepoStub) Delete(ctx context.Context, id string) error {
	s.deleted = append(s.deleted, id)
	remaining := s.entries[:0]
	for _, e := range s.entries {
		if e.ID != id {
			remaining = append(remaining, e)
		}
	}
	s.entries = remaining
	return nil
}

func (s *scheduleRepoStub) DeleteByClassYearTx(ctx context.Context, tx *sqlx.Tx, classID, yearID string) error {
	s.wiped = append(s.wiped, [2]string{classID, yearID})
	remaining := s.entries[:0]
	for _, e := range s.entries {
		if e.ClassID != classID || e.AcademicYearID != yearID {
			remaining = append(remaining, e)
		}
	}
	s.entries = remaining
	return nil
}

type auditStub struct {
	logs []*models.AuditLog
	err  error
}

func (s *auditStub) CreateAuditLog(ctx context.Context, log *models.AuditLog) error {
	s.logs = append(s.logs, log)
	return s.err
}

func slotIndex(i int) *int { return &i }

func newScheduleServiceFixture(t *testing.T, entries []models.ScheduleEntry) (*ScheduleService, *scheduleRepoStub, *auditStub, sqlmock.Sqlmock) {
	t.Helper()
	rawDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { rawDB.Close() })

	repo := &scheduleRepoStub{db: sqlx.NewDb(rawDB, "sqlmock"), entries: entries}
	audit := &auditStub{}
	svc := NewScheduleService(repo, audit, nil, nil)
	return svc, repo, audit, mock
}

func TestScheduleServiceCreateAcceptsBackToBackRoomReuse(t *testing.T) {
	existing := entry(t, "e1", "y1", "c1", teacher("t5"), models.Monday, "08:00", "09:00", "101")
	svc, repo, _, mock := newScheduleServiceFixture(t, []models.ScheduleEntry{existing})

	mock.ExpectBegin()
	mock.ExpectCommit()

	created, err := svc.Create(context.Background(), CreateScheduleEntryRequest{
		AcademicYearID: "y1",
		ClassID:        "c2",
		SubjectID:      "math",
		TeacherID:      teacher("t7"),
		Weekday:        "monday",
		StartTime:      "09:00",
		EndTime:        "10:00",
		Room:           "101",
	})
	require.NoError(t, err)
	require.Len(t, repo.created, 1)
	assert.Equal(t, models.Monday, created.Weekday)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestScheduleServiceCreateRejectsTeacherDoubleBooking(t *testing.T) {
	existing := entry(t, "e1", "y1", "c1", teacher("t5"), models.Tuesday, "10:00", "11:00", "101")
	svc, repo, _, mock := newScheduleServiceFixture(t, []models.ScheduleEntry{existing})

	mock.ExpectBegin()
	mock.ExpectRollback()

	_, err := svc.Create(context.Background(), CreateScheduleEntryRequest{
		AcademicYearID: "y1",
		ClassID:        "c2",
		SubjectID:      "math",
		TeacherID:      teacher("t5"),
		Weekday:        "TUESDAY",
		StartTime:      "10:30",
		EndTime:        "11:30",
		Room:           "202",
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrConflict.Code, appErrors.FromError(err).Code)
	assert.Empty(t, repo.created)

	var domainErr *models.ScheduleConflictError
	require.ErrorAs(t, err, &domainErr)
	require.Len(t, domainErr.Existing, 1)
	assert.Equal(t, "e1", domainErr.Existing[0].ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestScheduleServiceCreateRejectsInvertedTimes(t *testing.T) {
	svc, _, _, _ := newScheduleServiceFixture(t, nil)

	_, err := svc.Create(context.Background(), CreateScheduleEntryRequest{
		AcademicYearID: "y1",
		ClassID:        "c1",
		SubjectID:      "math",
		Weekday:        "MONDAY",
		StartTime:      "10:00",
		EndTime:        "09:00",
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestScheduleServiceCreateNormalisesWeekdayCase(t *testing.T) {
	svc, repo, _, mock := newScheduleServiceFixture(t, nil)

	mock.ExpectBegin()
	mock.ExpectCommit()

	created, err := svc.Create(context.Background(), CreateScheduleEntryRequest{
		AcademicYearID: "y1",
		ClassID:        "c1",
		SubjectID:      "math",
		Weekday:        "Saturday",
		StartTime:      "08:00",
		EndTime:        "09:00",
	})
	require.NoError(t, err)
	assert.Equal(t, models.Saturday, created.Weekday)
	require.Len(t, repo.created, 1)
}

func TestScheduleServiceCreateRecordsAuditTrail(t *testing.T) {
	svc, _, audit, mock := newScheduleServiceFixture(t, nil)

	mock.ExpectBegin()
	mock.ExpectCommit()

	_, err := svc.Create(context.Background(), CreateScheduleEntryRequest{
		AcademicYearID: "y1",
		ClassID:        "c1",
		SubjectID:      "math",
		Weekday:        "MONDAY",
		StartTime:      "08:00",
		EndTime:        "09:00",
		ActorID:        "admin-1",
	})
	require.NoError(t, err)
	require.Len(t, audit.logs, 1)
	assert.Equal(t, models.AuditActionScheduleCreate, audit.logs[0].Action)
	require.NotNil(t, audit.logs[0].UserID)
	assert.Equal(t, "admin-1", *audit.logs[0].UserID)
}

func TestScheduleServiceUpdateRecordsAuditTrail(t *testing.T) {
	existing := entry(t, "e1", "y1", "c1", teacher("t1"), models.Monday, "08:00", "09:00", "101")
	svc, _, audit, mock := newScheduleServiceFixture(t, []models.ScheduleEntry{existing})

	mock.ExpectBegin()
	mock.ExpectCommit()

	_, err := svc.Update(context.Background(), "e1", UpdateScheduleEntryRequest{
		AcademicYearID: "y1",
		ClassID:        "c1",
		SubjectID:      "math",
		Weekday:        "MONDAY",
		StartTime:      "10:00",
		EndTime:        "11:00",
		ActorID:        "admin-1",
	})
	require.NoError(t, err)
	require.Len(t, audit.logs, 1)
	assert.Equal(t, models.AuditActionScheduleUpdate, audit.logs[0].Action)
}

func TestScheduleServiceDeleteRecordsAuditTrail(t *testing.T) {
	existing := entry(t, "e1", "y1", "c1", teacher("t1"), models.Monday, "08:00", "09:00", "101")
	svc, repo, audit, _ := newScheduleServiceFixture(t, []models.ScheduleEntry{existing})

	require.NoError(t, svc.Delete(context.Background(), "e1", "admin-1"))
	assert.Equal(t, []string{"e1"}, repo.deleted)
	require.Len(t, audit.logs, 1)
	assert.Equal(t, models.AuditActionScheduleDelete, audit.logs[0].Action)
	require.NotNil(t, audit.logs[0].ResourceID)
	assert.Equal(t, "e1", *audit.logs[0].ResourceID)
}

func TestScheduleServiceResolveRetime(t *testing.T) {
	existing := entry(t, "e1", "y1", "c1", teacher("t1"), models.Monday, "08:00", "09:00", "101")
	svc, repo, audit, _ := newScheduleServiceFixture(t, []models.ScheduleEntry{existing})

	updated, err := svc.Resolve(context.Background(), ResolveConflictRequest{
		Action:   "RETIME",
		EntryID:  "e1",
		NewStart: "10:00",
		NewEnd:   "11:00",
		ActorID:  "admin-1",
	})
	require.NoError(t, err)
	assert.Equal(t, "10:00", updated.StartTime.String())
	assert.Equal(t, "11:00", updated.EndTime.String())

	require.Contains(t, repo.retimed, "e1")
	require.Len(t, audit.logs, 1)
	assert.Equal(t, models.AuditActionScheduleResolve, audit.logs[0].Action)
}

func TestScheduleServiceResolveRetimeRejectsInvertedWindow(t *testing.T) {
	existing := entry(t, "e1", "y1", "c1", teacher("t1"), models.Monday, "08:00", "09:00", "101")
	svc, _, _, _ := newScheduleServiceFixture(t, []models.ScheduleEntry{existing})

	_, err := svc.Resolve(context.Background(), ResolveConflictRequest{
		Action:   "RETIME",
		EntryID:  "e1",
		NewStart: "11:00",
		NewEnd:   "10:00",
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestScheduleServiceResolveReassignTeacher(t *testing.T) {
	existing := entry(t, "e1", "y1", "c1", teacher("t1"), models.Monday, "08:00", "09:00", "101")
	svc, repo, _, _ := newScheduleServiceFixture(t, []models.ScheduleEntry{existing})

	updated, err := svc.Resolve(context.Background(), ResolveConflictRequest{
		Action:       "REASSIGN_TEACHER",
		EntryID:      "e1",
		NewTeacherID: teacher("t9"),
	})
	require.NoError(t, err)
	require.NotNil(t, updated.TeacherID)
	assert.Equal(t, "t9", *updated.TeacherID)
	require.Contains(t, repo.reteached, "e1")
}

func TestScheduleServiceResolveDeleteRemovesConflictPair(t *testing.T) {
	a := entry(t, "a", "y1", "c1", teacher("t1"), models.Monday, "08:00", "09:00", "101")
	b := entry(t, "b", "y1", "c1", teacher("t2"), models.Monday, "08:30", "09:30", "102")
	svc, repo, _, _ := newScheduleServiceFixture(t, []models.ScheduleEntry{a, b})

	before, err := svc.Conflicts(context.Background(), ConflictScope{AcademicYearID: "y1"})
	require.NoError(t, err)
	require.Len(t, before, 1)

	result, err := svc.Resolve(context.Background(), ResolveConflictRequest{Action: "DELETE", EntryID: "b"})
	require.NoError(t, err)
	assert.Nil(t, result)
	assert.Equal(t, []string{"b"}, repo.deleted)

	after, err := svc.Conflicts(context.Background(), ConflictScope{AcademicYearID: "y1"})
	require.NoError(t, err)
	assert.Empty(t, after)
}

func TestScheduleServiceResolveUnknownEntry(t *testing.T) {
	svc, _, _, _ := newScheduleServiceFixture(t, nil)

	_, err := svc.Resolve(context.Background(), ResolveConflictRequest{Action: "DELETE", EntryID: "ghost"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestScheduleServiceAuditFailureDoesNotBlockResolution(t *testing.T) {
	existing := entry(t, "e1", "y1", "c1", teacher("t1"), models.Monday, "08:00", "09:00", "101")
	svc, _, audit, _ := newScheduleServiceFixture(t, []models.ScheduleEntry{existing})
	audit.err = assert.AnError

	_, err := svc.Resolve(context.Background(), ResolveConflictRequest{
		Action:  "REASSIGN_ROOM",
		EntryID: "e1",
		NewRoom: "303",
	})
	assert.NoError(t, err)
}

func TestScheduleServiceGenerateWipesPriorEntriesForClassYear(t *testing.T) {
	prior := []models.ScheduleEntry{
		entry(t, "p1", "y2024", "c3", teacher("t1"), models.Monday, "08:00", "09:00", "101"),
		entry(t, "p2", "y2024", "c3", teacher("t1"), models.Tuesday, "08:00", "09:00", "101"),
		entry(t, "p3", "y2024", "c3", teacher("t1"), models.Friday, "08:00", "09:00", "101"),
		entry(t, "x1", "y2024", "c4", teacher("t2"), models.Monday, "08:00", "09:00", "202"),
	}
	svc, repo, _, mock := newScheduleServiceFixture(t, prior)

	mock.ExpectBegin()
	mock.ExpectCommit()

	generated, err := svc.Generate(context.Background(), GenerateScheduleRequest{
		ClassID:        "c3",
		AcademicYearID: "y2024",
		SubjectIDs:     []string{"math", "physics"},
		TimeSlots: []TimeSlotPayload{
			{Start: "08:00", End: "09:00"},
			{Start: "09:00", End: "10:00"},
		},
		Weekdays: []string{"MONDAY", "TUESDAY"},
	})
	require.NoError(t, err)
	assert.Len(t, generated, 4)

	require.Len(t, repo.wiped, 1)
	assert.Equal(t, [2]string{"c3", "y2024"}, repo.wiped[0])

	// Entries for other classes are untouched.
	for _, e := range repo.entries {
		assert.Equal(t, "c4", e.ClassID)
	}
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestScheduleServiceGenerateSkipsLunchSlotAndCyclesSubjects(t *testing.T) {
	svc, _, _, mock := newScheduleServiceFixture(t, nil)

	mock.ExpectBegin()
	mock.ExpectCommit()

	generated, err := svc.Generate(context.Background(), GenerateScheduleRequest{
		ClassID:        "c1",
		AcademicYearID: "y1",
		SubjectIDs:     []string{"math"},
		TimeSlots: []TimeSlotPayload{
			{Start: "08:00", End: "09:00"},
			{Start: "09:00", End: "10:00"},
			{Start: "12:00", End: "13:00"},
			{Start: "13:00", End: "14:00"},
		},
		Weekdays:  []string{"MONDAY"},
		LunchSlot: slotIndex(2),
	})
	require.NoError(t, err)
	require.Len(t, generated, 3)
	for _, e := range generated {
		assert.NotEqual(t, "12:00", e.StartTime.String())
		assert.Equal(t, "math", e.SubjectID)
	}
}

func TestScheduleServiceGenerateFallsBackToConfiguredSlotGrid(t *testing.T) {
	svc, _, _, mock := newScheduleServiceFixture(t, nil)
	svc.SetGenerationDefaults(GenerationDefaults{
		SlotsPerDay: 4,
		LunchSlot:   2,
		DayStart:    "08:00",
		SlotMinutes: 60,
	})

	mock.ExpectBegin()
	mock.ExpectCommit()

	generated, err := svc.Generate(context.Background(), GenerateScheduleRequest{
		ClassID:        "c1",
		AcademicYearID: "y1",
		SubjectIDs:     []string{"math"},
		Weekdays:       []string{"MONDAY"},
	})
	require.NoError(t, err)
	require.Len(t, generated, 3)
	assert.Equal(t, "08:00", generated[0].StartTime.String())
	assert.Equal(t, "09:00", generated[1].StartTime.String())
	// Slot 2 (10:00) is lunch.
	assert.Equal(t, "11:00", generated[2].StartTime.String())
}

func TestScheduleServiceGenerateWithoutSlotsOrDefaultsFails(t *testing.T) {
	svc, _, _, _ := newScheduleServiceFixture(t, nil)

	_, err := svc.Generate(context.Background(), GenerateScheduleRequest{
		ClassID:        "c1",
		AcademicYearID: "y1",
		SubjectIDs:     []string{"math"},
		Weekdays:       []string{"MONDAY"},
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestScheduleServiceGenerateAssignsTeachersFromMapping(t *testing.T) {
	svc, _, _, mock := newScheduleServiceFixture(t, nil)

	mock.ExpectBegin()
	mock.ExpectCommit()

	generated, err := svc.Generate(context.Background(), GenerateScheduleRequest{
		ClassID:        "c1",
		AcademicYearID: "y1",
		SubjectIDs:     []string{"math", "history"},
		TimeSlots:      []TimeSlotPayload{{Start: "08:00", End: "09:00"}, {Start: "09:00", End: "10:00"}},
		Weekdays:       []string{"MONDAY"},
		TeacherBySubj:  map[string]string{"math": "t1"},
	})
	require.NoError(t, err)
	require.Len(t, generated, 2)
	require.NotNil(t, generated[0].TeacherID)
	assert.Equal(t, "t1", *generated[0].TeacherID)
	assert.Nil(t, generated[1].TeacherID)
}
