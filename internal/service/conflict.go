package service

import (
	"sort"

	"github.com/scolaris-dev/scolaris-api/internal/models"
)

// Overlaps reports whether two half-open time windows intersect. Touching
// endpoints (a.End == b.Start) do not overlap, so back-to-back bookings of the
// same room or teacher are legal.
func Overlaps(a, b models.TimeWindow) bool {
	return a.Start < b.End && a.End > b.Start
}

// ConflictScope narrows a detection run. AcademicYearID is mandatory; the
// optional fields select which reported pairs involve the named class,
// teacher or room. They never change which pairs conflict: detection always
// runs over the full year, so scoping to a class still surfaces that class's
// teacher and room collisions against every other class.
type ConflictScope struct {
	AcademicYearID string
	ClassID        string
	TeacherID      string
	Room           string
}

// admitsPair keeps a conflict pair when at least one member matches every
// hint the scope names.
func (s ConflictScope) admitsPair(a, b models.ScheduleEntry) bool {
	if s.ClassID != "" && a.ClassID != s.ClassID && b.ClassID != s.ClassID {
		return false
	}
	if s.TeacherID != "" && !teacherIs(a, s.TeacherID) && !teacherIs(b, s.TeacherID) {
		return false
	}
	if s.Room != "" && a.Room != s.Room && b.Room != s.Room {
		return false
	}
	return true
}

func teacherIs(e models.ScheduleEntry, teacherID string) bool {
	return e.TeacherID != nil && *e.TeacherID == teacherID
}

// DetectConflicts inspects every unordered pair of entries sharing a weekday
// and academic year and classifies overlapping pairs per shared resource. A
// pair sharing several resources is reported once per dimension. Output is
// deterministic: pairs carry the lower id first and are sorted by
// (EntryA.ID, EntryB.ID, Dimension).
func DetectConflicts(entries []models.ScheduleEntry, scope ConflictScope) []models.ConflictPair {
	byDay := make(map[models.Weekday][]models.ScheduleEntry)
	for _, e := range entries {
		if e.AcademicYearID != scope.AcademicYearID {
			continue
		}
		byDay[e.Weekday] = append(byDay[e.Weekday], e)
	}

	var pairs []models.ConflictPair
	for _, group := range byDay {
		sort.Slice(group, func(i, j int) bool { return group[i].ID < group[j].ID })
		for i := 0; i < len(group); i++ {
			for j := i + 1; j < len(group); j++ {
				a, b := group[i], group[j]
				if !Overlaps(a.Window(), b.Window()) {
					continue
				}
				if !scope.admitsPair(a, b) {
					continue
				}
				for _, dim := range sharedDimensions(a, b) {
					pairs = append(pairs, models.ConflictPair{EntryA: a, EntryB: b, Dimension: dim})
				}
			}
		}
	}

	sort.Slice(pairs, func(i, j int) bool {
		if pairs[i].EntryA.ID != pairs[j].EntryA.ID {
			return pairs[i].EntryA.ID < pairs[j].EntryA.ID
		}
		if pairs[i].EntryB.ID != pairs[j].EntryB.ID {
			return pairs[i].EntryB.ID < pairs[j].EntryB.ID
		}
		return pairs[i].Dimension < pairs[j].Dimension
	})
	return pairs
}

// WouldConflict returns the existing entries a candidate collides with. A
// collision requires same academic year, same weekday, overlapping windows and
// at least one shared resource dimension. Rooms only collide when both are
// non-empty; teachers only when both are assigned.
func WouldConflict(candidate models.ScheduleEntry, existing []models.ScheduleEntry) []models.ScheduleEntry {
	var hits []models.ScheduleEntry
	for _, e := range existing {
		if e.ID != "" && e.ID == candidate.ID {
			continue
		}
		if e.AcademicYearID != candidate.AcademicYearID || e.Weekday != candidate.Weekday {
			continue
		}
		if !Overlaps(candidate.Window(), e.Window()) {
			continue
		}
		if len(sharedDimensions(candidate, e)) > 0 {
			hits = append(hits, e)
		}
	}
	sort.Slice(hits, func(i, j int) bool { return hits[i].ID < hits[j].ID })
	return hits
}

func sharedDimensions(a, b models.ScheduleEntry) []models.ConflictDimension {
	var dims []models.ConflictDimension
	if a.ClassID != "" && a.ClassID == b.ClassID {
		dims = append(dims, models.ClassConflict)
	}
	if a.TeacherID != nil && b.TeacherID != nil && *a.TeacherID == *b.TeacherID {
		dims = append(dims, models.TeacherConflict)
	}
	if a.Room != "" && a.Room == b.Room {
		dims = append(dims, models.RoomConflict)
	}
	return dims
}
