package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scolaris-dev/scolaris-api/internal/models"
)

func window(t *testing.T, start, end string) models.TimeWindow {
	t.Helper()
	s, err := models.ParseTimeOfDay(start)
	require.NoError(t, err)
	e, err := models.ParseTimeOfDay(end)
	require.NoError(t, err)
	return models.TimeWindow{Start: s, End: e}
}

func entry(t *testing.T, id, yearID, classID string, teacherID *string, day models.Weekday, start, end, room string) models.ScheduleEntry {
	t.Helper()
	w := window(t, start, end)
	return models.ScheduleEntry{
		ID:             id,
		AcademicYearID: yearID,
		ClassID:        classID,
		SubjectID:      "subj-" + id,
		TeacherID:      teacherID,
		Weekday:        day,
		StartTime:      w.Start,
		EndTime:        w.End,
		Room:           room,
	}
}

func teacher(id string) *string { return &id }

func TestOverlapsSymmetry(t *testing.T) {
	cases := []struct {
		a, b models.TimeWindow
	}{
		{window(t, "08:00", "09:00"), window(t, "08:30", "09:30")},
		{window(t, "08:00", "09:00"), window(t, "09:00", "10:00")},
		{window(t, "08:00", "12:00"), window(t, "09:00", "10:00")},
		{window(t, "08:00", "09:00"), window(t, "14:00", "15:00")},
	}
	for _, tc := range cases {
		assert.Equal(t, Overlaps(tc.a, tc.b), Overlaps(tc.b, tc.a))
	}
}

func TestOverlapsTouchingEndpointsDoNotOverlap(t *testing.T) {
	assert.False(t, Overlaps(window(t, "09:00", "10:00"), window(t, "10:00", "11:00")))
	assert.False(t, Overlaps(window(t, "10:00", "11:00"), window(t, "09:00", "10:00")))
}

func TestOverlapsStrictOverlap(t *testing.T) {
	assert.True(t, Overlaps(window(t, "09:00", "10:30"), window(t, "10:00", "11:00")))
}

func TestOverlapsContainment(t *testing.T) {
	assert.True(t, Overlaps(window(t, "08:00", "12:00"), window(t, "09:00", "10:00")))
	assert.True(t, Overlaps(window(t, "09:00", "10:00"), window(t, "09:00", "10:00")))
}

func TestDetectConflictsNeverReportsSelfPairs(t *testing.T) {
	entries := []models.ScheduleEntry{
		entry(t, "e1", "y1", "c1", teacher("t1"), models.Monday, "08:00", "09:00", "101"),
	}
	pairs := DetectConflicts(entries, ConflictScope{AcademicYearID: "y1"})
	assert.Empty(t, pairs)
}

func TestDetectConflictsDimensionIndependence(t *testing.T) {
	entries := []models.ScheduleEntry{
		entry(t, "e1", "y1", "c1", teacher("t1"), models.Monday, "08:00", "09:00", "101"),
		entry(t, "e2", "y1", "c2", teacher("t2"), models.Monday, "08:30", "09:30", "101"),
	}
	pairs := DetectConflicts(entries, ConflictScope{AcademicYearID: "y1"})
	require.Len(t, pairs, 1)
	assert.Equal(t, models.RoomConflict, pairs[0].Dimension)
	assert.Equal(t, "e1", pairs[0].EntryA.ID)
	assert.Equal(t, "e2", pairs[0].EntryB.ID)
}

func TestDetectConflictsMultipleDimensionsReportedSeparately(t *testing.T) {
	entries := []models.ScheduleEntry{
		entry(t, "e1", "y1", "c1", teacher("t1"), models.Tuesday, "08:00", "09:00", "101"),
		entry(t, "e2", "y1", "c1", teacher("t1"), models.Tuesday, "08:30", "09:30", "102"),
	}
	pairs := DetectConflicts(entries, ConflictScope{AcademicYearID: "y1"})
	require.Len(t, pairs, 2)
	dims := []models.ConflictDimension{pairs[0].Dimension, pairs[1].Dimension}
	assert.Contains(t, dims, models.ClassConflict)
	assert.Contains(t, dims, models.TeacherConflict)
}

func TestDetectConflictsCrossYearIsolation(t *testing.T) {
	entries := []models.ScheduleEntry{
		entry(t, "e1", "y1", "c1", teacher("t1"), models.Monday, "08:00", "09:00", "101"),
		entry(t, "e2", "y2", "c1", teacher("t1"), models.Monday, "08:00", "09:00", "101"),
	}
	assert.Empty(t, DetectConflicts(entries, ConflictScope{AcademicYearID: "y1"}))
	assert.Empty(t, DetectConflicts(entries, ConflictScope{AcademicYearID: "y2"}))
}

func TestDetectConflictsIgnoresDifferentWeekdays(t *testing.T) {
	entries := []models.ScheduleEntry{
		entry(t, "e1", "y1", "c1", teacher("t1"), models.Monday, "08:00", "09:00", "101"),
		entry(t, "e2", "y1", "c1", teacher("t1"), models.Tuesday, "08:00", "09:00", "101"),
	}
	assert.Empty(t, DetectConflicts(entries, ConflictScope{AcademicYearID: "y1"}))
}

func TestDetectConflictsUnassignedTeachersNeverCollide(t *testing.T) {
	entries := []models.ScheduleEntry{
		entry(t, "e1", "y1", "c1", nil, models.Monday, "08:00", "09:00", ""),
		entry(t, "e2", "y1", "c2", nil, models.Monday, "08:00", "09:00", ""),
	}
	assert.Empty(t, DetectConflicts(entries, ConflictScope{AcademicYearID: "y1"}))
}

func TestDetectConflictsScopeFilterKeepsPairsWithinDimension(t *testing.T) {
	entries := []models.ScheduleEntry{
		entry(t, "e1", "y1", "c1", teacher("t1"), models.Monday, "08:00", "09:00", "101"),
		entry(t, "e2", "y1", "c1", teacher("t2"), models.Monday, "08:30", "09:30", "102"),
		entry(t, "e3", "y1", "c2", teacher("t3"), models.Monday, "08:00", "09:00", "103"),
	}
	pairs := DetectConflicts(entries, ConflictScope{AcademicYearID: "y1", ClassID: "c1"})
	require.Len(t, pairs, 1)
	assert.Equal(t, models.ClassConflict, pairs[0].Dimension)
}

func TestDetectConflictsClassScopeKeepsCrossClassTeacherConflicts(t *testing.T) {
	entries := []models.ScheduleEntry{
		entry(t, "e1", "y1", "c1", teacher("t1"), models.Monday, "08:00", "09:00", "101"),
		entry(t, "e2", "y1", "c2", teacher("t1"), models.Monday, "08:30", "09:30", "102"),
	}
	pairs := DetectConflicts(entries, ConflictScope{AcademicYearID: "y1", ClassID: "c1"})
	require.Len(t, pairs, 1)
	assert.Equal(t, models.TeacherConflict, pairs[0].Dimension)
	assert.Equal(t, "e1", pairs[0].EntryA.ID)
	assert.Equal(t, "e2", pairs[0].EntryB.ID)
}

func TestDetectConflictsClassScopeDropsUnrelatedPairs(t *testing.T) {
	entries := []models.ScheduleEntry{
		entry(t, "e1", "y1", "c1", teacher("t1"), models.Monday, "08:00", "09:00", "101"),
		entry(t, "e2", "y1", "c2", teacher("t2"), models.Monday, "08:30", "09:30", "102"),
		entry(t, "e3", "y1", "c2", teacher("t2"), models.Monday, "08:45", "09:45", "103"),
	}
	unscoped := DetectConflicts(entries, ConflictScope{AcademicYearID: "y1"})
	require.Len(t, unscoped, 1)

	scoped := DetectConflicts(entries, ConflictScope{AcademicYearID: "y1", ClassID: "c1"})
	assert.Empty(t, scoped)
}

func TestDetectConflictsTeacherScopeKeepsRoomConflicts(t *testing.T) {
	entries := []models.ScheduleEntry{
		entry(t, "e1", "y1", "c1", teacher("t1"), models.Monday, "08:00", "09:00", "101"),
		entry(t, "e2", "y1", "c2", nil, models.Monday, "08:30", "09:30", "101"),
	}
	pairs := DetectConflicts(entries, ConflictScope{AcademicYearID: "y1", TeacherID: "t1"})
	require.Len(t, pairs, 1)
	assert.Equal(t, models.RoomConflict, pairs[0].Dimension)
}

func TestDetectConflictsDeterministicOrdering(t *testing.T) {
	entries := []models.ScheduleEntry{
		entry(t, "e3", "y1", "c1", teacher("t1"), models.Monday, "08:00", "09:00", "101"),
		entry(t, "e1", "y1", "c1", teacher("t1"), models.Monday, "08:30", "09:30", "102"),
		entry(t, "e2", "y1", "c1", teacher("t1"), models.Monday, "08:15", "09:15", "103"),
	}
	first := DetectConflicts(entries, ConflictScope{AcademicYearID: "y1"})
	for i := 0; i < 5; i++ {
		again := DetectConflicts(entries, ConflictScope{AcademicYearID: "y1"})
		require.Equal(t, first, again)
	}
	for _, pair := range first {
		assert.Less(t, pair.EntryA.ID, pair.EntryB.ID)
	}
}

func TestWouldConflictBackToBackRoomReuseIsLegal(t *testing.T) {
	existing := []models.ScheduleEntry{
		entry(t, "e1", "y1", "c1", teacher("t5"), models.Monday, "08:00", "09:00", "101"),
	}
	candidate := entry(t, "", "y1", "c2", teacher("t7"), models.Monday, "09:00", "10:00", "101")
	assert.Empty(t, WouldConflict(candidate, existing))
}

func TestWouldConflictRejectsTeacherDoubleBooking(t *testing.T) {
	existing := []models.ScheduleEntry{
		entry(t, "e1", "y1", "c1", teacher("t5"), models.Tuesday, "10:00", "11:00", "101"),
	}
	candidate := entry(t, "", "y1", "c2", teacher("t5"), models.Tuesday, "10:30", "11:30", "202")
	hits := WouldConflict(candidate, existing)
	require.Len(t, hits, 1)
	assert.Equal(t, "e1", hits[0].ID)
}

func TestWouldConflictEmptyRoomNeverCollidesOnRoom(t *testing.T) {
	existing := []models.ScheduleEntry{
		entry(t, "e1", "y1", "c1", teacher("t1"), models.Monday, "08:00", "09:00", ""),
	}
	candidate := entry(t, "", "y1", "c2", teacher("t2"), models.Monday, "08:30", "09:30", "")
	assert.Empty(t, WouldConflict(candidate, existing))
}

func TestWouldConflictSkipsCandidateItself(t *testing.T) {
	existing := []models.ScheduleEntry{
		entry(t, "e1", "y1", "c1", teacher("t1"), models.Monday, "08:00", "09:00", "101"),
	}
	candidate := entry(t, "e1", "y1", "c1", teacher("t1"), models.Monday, "08:00", "09:00", "101")
	assert.Empty(t, WouldConflict(candidate, existing))
}

func TestDeleteResolvesOnlyConflictPair(t *testing.T) {
	a := entry(t, "a", "y1", "c1", teacher("t1"), models.Monday, "08:00", "09:00", "101")
	b := entry(t, "b", "y1", "c1", teacher("t2"), models.Monday, "08:30", "09:30", "102")

	pairs := DetectConflicts([]models.ScheduleEntry{a, b}, ConflictScope{AcademicYearID: "y1"})
	require.Len(t, pairs, 1)

	remaining := DetectConflicts([]models.ScheduleEntry{a}, ConflictScope{AcademicYearID: "y1"})
	assert.Empty(t, remaining)
}
