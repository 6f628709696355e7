package models

import (
	"database/sql/driver"
	"fmt"
	"strings"
	"time"
)

// TimeOfDay is a local time-of-day expressed as minutes since midnight.
// It is stored as "HH:MM" text in the database.
type TimeOfDay int

// ParseTimeOfDay parses an "HH:MM" string into a TimeOfDay.
func ParseTimeOfDay(raw string) (TimeOfDay, error) {
	parsed, err := time.Parse("15:04", strings.TrimSpace(raw))
	if err != nil {
		return 0, fmt.Errorf("invalid time of day %q: %w", raw, err)
	}
	return TimeOfDay(parsed.Hour()*60 + parsed.Minute()), nil
}

// String renders the time as "HH:MM".
func (t TimeOfDay) String() string {
	return fmt.Sprintf("%02d:%02d", int(t)/60, int(t)%60)
}

// Value implements driver.Valuer so times persist as "HH:MM" text.
func (t TimeOfDay) Value() (driver.Value, error) {
	return t.String(), nil
}

// Scan implements sql.Scanner for "HH:MM" (and Postgres TIME "HH:MM:SS") values.
func (t *TimeOfDay) Scan(src interface{}) error {
	var raw string
	switch v := src.(type) {
	case string:
		raw = v
	case []byte:
		raw = string(v)
	case time.Time:
		*t = TimeOfDay(v.Hour()*60 + v.Minute())
		return nil
	default:
		return fmt.Errorf("cannot scan %T into TimeOfDay", src)
	}
	if len(raw) > 5 {
		raw = raw[:5]
	}
	parsed, err := ParseTimeOfDay(raw)
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

// MarshalJSON renders TimeOfDay as an "HH:MM" JSON string.
func (t TimeOfDay) MarshalJSON() ([]byte, error) {
	return []byte(`"` + t.String() + `"`), nil
}

// UnmarshalJSON accepts "HH:MM" JSON strings.
func (t *TimeOfDay) UnmarshalJSON(data []byte) error {
	raw := strings.Trim(string(data), `"`)
	parsed, err := ParseTimeOfDay(raw)
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

// TimeWindow is a half-open [Start, End) interval within one day.
type TimeWindow struct {
	Start TimeOfDay `json:"start"`
	End   TimeOfDay `json:"end"`
}

// Valid reports whether the window has positive duration.
func (w TimeWindow) Valid() bool {
	return w.Start < w.End
}

// Weekday is a closed enumeration of teaching days. Input is normalised to
// upper case so mixed-case payloads compare equal.
type Weekday string

const (
	Monday    Weekday = "MONDAY"
	Tuesday   Weekday = "TUESDAY"
	Wednesday Weekday = "WEDNESDAY"
	Thursday  Weekday = "THURSDAY"
	Friday    Weekday = "FRIDAY"
	Saturday  Weekday = "SATURDAY"
)

// Weekdays lists teaching days in calendar order.
var Weekdays = []Weekday{Monday, Tuesday, Wednesday, Thursday, Friday, Saturday}

// ParseWeekday normalises a raw weekday string, case-insensitively.
func ParseWeekday(raw string) (Weekday, error) {
	day := Weekday(strings.ToUpper(strings.TrimSpace(raw)))
	for _, known := range Weekdays {
		if day == known {
			return known, nil
		}
	}
	return "", fmt.Errorf("unknown weekday %q", raw)
}

// ScheduleEntry assigns a subject to a class, optionally taught by a teacher
// in a room, within a weekly time window scoped to one academic year.
type ScheduleEntry struct {
	ID             string    `db:"id" json:"id"`
	AcademicYearID string    `db:"academic_year_id" json:"academic_year_id"`
	ClassID        string    `db:"class_id" json:"class_id"`
	SubjectID      string    `db:"subject_id" json:"subject_id"`
	TeacherID      *string   `db:"teacher_id" json:"teacher_id,omitempty"`
	Weekday        Weekday   `db:"weekday" json:"weekday"`
	StartTime      TimeOfDay `db:"start_time" json:"start_time"`
	EndTime        TimeOfDay `db:"end_time" json:"end_time"`
	Room           string    `db:"room" json:"room"`
	CreatedAt      time.Time `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time `db:"updated_at" json:"updated_at"`
}

// Window returns the entry's time window.
func (e ScheduleEntry) Window() TimeWindow {
	return TimeWindow{Start: e.StartTime, End: e.EndTime}
}

// ScheduleFilter describes query params for listing schedule entries.
type ScheduleFilter struct {
	AcademicYearID string
	ClassID        string
	TeacherID      string
	Weekday        string
	Room           string
	Page           int
	PageSize       int
	SortBy         string
	SortOrder      string
}

// ConflictDimension identifies the shared resource two entries collide on.
type ConflictDimension string

const (
	ClassConflict   ConflictDimension = "CLASS"
	TeacherConflict ConflictDimension = "TEACHER"
	RoomConflict    ConflictDimension = "ROOM"
)

// ConflictPair reports two schedule entries whose windows overlap on the same
// weekday and academic year while sharing one resource dimension. The same two
// entries may appear once per dimension they share.
type ConflictPair struct {
	EntryA    ScheduleEntry     `json:"entry_a"`
	EntryB    ScheduleEntry     `json:"entry_b"`
	Dimension ConflictDimension `json:"dimension"`
}

// ScheduleGridRow is a schedule entry joined with display names for exports.
type ScheduleGridRow struct {
	ID          string    `db:"id" json:"id"`
	Weekday     Weekday   `db:"weekday" json:"weekday"`
	StartTime   TimeOfDay `db:"start_time" json:"start_time"`
	EndTime     TimeOfDay `db:"end_time" json:"end_time"`
	Room        string    `db:"room" json:"room"`
	ClassName   string    `db:"class_name" json:"class_name"`
	SubjectName string    `db:"subject_name" json:"subject_name"`
	TeacherName string    `db:"teacher_name" json:"teacher_name"`
}

// ScheduleConflictError is returned when a candidate entry collides with
// existing entries.
type ScheduleConflictError struct {
	Message  string          `json:"message"`
	Existing []ScheduleEntry `json:"existing"`
}

// Error implements the error interface for conflict errors.
func (e *ScheduleConflictError) Error() string {
	if e == nil {
		return "<nil>"
	}
	return e.Message
}
