package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/scolaris-dev/scolaris-api/internal/models"
)

const scheduleColumns = "id, academic_year_id, class_id, subject_id, teacher_id, weekday, start_time, end_time, room, created_at, updated_at"

// ScheduleRepository provides persistence for schedule entries.
type ScheduleRepository struct {
	db *sqlx.DB
}

// NewScheduleRepository creates a new schedule repository.
func NewScheduleRepository(db *sqlx.DB) *ScheduleRepository {
	return &ScheduleRepository{db: db}
}

// BeginTxx starts a transaction for check-then-write sequences.
func (r *ScheduleRepository) BeginTxx(ctx context.Context) (*sqlx.Tx, error) {
	return r.db.BeginTxx(ctx, nil)
}

// List returns schedule entries with optional filtering and pagination.
func (r *ScheduleRepository) List(ctx context.Context, filter models.ScheduleFilter) ([]models.ScheduleEntry, int, error) {
	base := "FROM schedule_entries WHERE 1=1"
	var conditions []string
	var args []interface{}

	if filter.AcademicYearID != "" {
		conditions = append(conditions, fmt.Sprintf("academic_year_id = $%d", len(args)+1))
		args = append(args, filter.AcademicYearID)
	}
	if filter.ClassID != "" {
		conditions = append(conditions, fmt.Sprintf("class_id = $%d", len(args)+1))
		args = append(args, filter.ClassID)
	}
	if filter.TeacherID != "" {
		conditions = append(conditions, fmt.Sprintf("teacher_id = $%d", len(args)+1))
		args = append(args, filter.TeacherID)
	}
	if filter.Weekday != "" {
		conditions = append(conditions, fmt.Sprintf("weekday = $%d", len(args)+1))
		args = append(args, strings.ToUpper(filter.Weekday))
	}
	if filter.Room != "" {
		conditions = append(conditions, fmt.Sprintf("room = $%d", len(args)+1))
		args = append(args, filter.Room)
	}

	if len(conditions) > 0 {
		base += " AND " + strings.Join(conditions, " AND ")
	}

	sortBy := filter.SortBy
	allowedSorts := map[string]bool{
		"weekday":    true,
		"start_time": true,
		"room":       true,
		"created_at": true,
	}
	if !allowedSorts[sortBy] {
		sortBy = "weekday"
	}
	order := strings.ToUpper(filter.SortOrder)
	if order != "ASC" && order != "DESC" {
		order = "ASC"
	}

	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 100 {
		size = 20
	}
	offset := (page - 1) * size

	query := fmt.Sprintf("SELECT %s %s ORDER BY %s %s, start_time ASC LIMIT %d OFFSET %d", scheduleColumns, base, sortBy, order, size, offset)
	var entries []models.ScheduleEntry
	if err := r.db.SelectContext(ctx, &entries, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list schedule entries: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s", base)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count schedule entries: %w", err)
	}

	return entries, total, nil
}

// FindByID loads a schedule entry by id.
func (r *ScheduleRepository) FindByID(ctx context.Context, id string) (*models.ScheduleEntry, error) {
	query := fmt.Sprintf("SELECT %s FROM schedule_entries WHERE id = $1", scheduleColumns)
	var entry models.ScheduleEntry
	if err := r.db.GetContext(ctx, &entry, query, id); err != nil {
		return nil, err
	}
	return &entry, nil
}

// ListByYear returns every entry of an academic year ordered by id so that
// conflict detection output is deterministic.
func (r *ScheduleRepository) ListByYear(ctx context.Context, yearID string) ([]models.ScheduleEntry, error) {
	query := fmt.Sprintf("SELECT %s FROM schedule_entries WHERE academic_year_id = $1 ORDER BY id ASC", scheduleColumns)
	var entries []models.ScheduleEntry
	if err := r.db.SelectContext(ctx, &entries, query, yearID); err != nil {
		return nil, fmt.Errorf("list schedule entries by year: %w", err)
	}
	return entries, nil
}

// ListForDayTx loads the entries sharing a weekday and year inside the given
// transaction. Used by the pre-insert conflict check so check and insert see
// the same snapshot.
func (r *ScheduleRepository) ListForDayTx(ctx context.Context, tx *sqlx.Tx, yearID string, weekday models.Weekday) ([]models.ScheduleEntry, error) {
	query := fmt.Sprintf("SELECT %s FROM schedule_entries WHERE academic_year_id = $1 AND weekday = $2 ORDER BY id ASC", scheduleColumns)
	var entries []models.ScheduleEntry
	if err := tx.SelectContext(ctx, &entries, query, yearID, weekday); err != nil {
		return nil, fmt.Errorf("list schedule entries for day: %w", err)
	}
	return entries, nil
}

// CreateTx stores a new schedule entry using an existing transaction.
func (r *ScheduleRepository) CreateTx(ctx context.Context, tx *sqlx.Tx, entry *models.ScheduleEntry) error {
	return insertScheduleEntry(ctx, tx, entry)
}

// BulkCreateTx inserts many schedule entries within a transaction.
func (r *ScheduleRepository) BulkCreateTx(ctx context.Context, tx *sqlx.Tx, entries []models.ScheduleEntry) error {
	for i := range entries {
		if err := insertScheduleEntry(ctx, tx, &entries[i]); err != nil {
			return err
		}
	}
	return nil
}

func insertScheduleEntry(ctx context.Context, exec sqlx.ExtContext, entry *models.ScheduleEntry) error {
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = now
	}
	entry.UpdatedAt = now

	const query = `INSERT INTO schedule_entries (id, academic_year_id, class_id, subject_id, teacher_id, weekday, start_time, end_time, room, created_at, updated_at) VALUES (:id, :academic_year_id, :class_id, :subject_id, :teacher_id, :weekday, :start_time, :end_time, :room, :created_at, :updated_at)`
	if _, err := sqlx.NamedExecContext(ctx, exec, query, entry); err != nil {
		return fmt.Errorf("insert schedule entry: %w", err)
	}
	return nil
}

// UpdateTx rewrites a full schedule entry using an existing transaction.
func (r *ScheduleRepository) UpdateTx(ctx context.Context, tx *sqlx.Tx, entry *models.ScheduleEntry) error {
	entry.UpdatedAt = time.Now().UTC()
	const query = `UPDATE schedule_entries SET academic_year_id = :academic_year_id, class_id = :class_id, subject_id = :subject_id, teacher_id = :teacher_id, weekday = :weekday, start_time = :start_time, end_time = :end_time, room = :room, updated_at = :updated_at WHERE id = :id`
	if _, err := sqlx.NamedExecContext(ctx, tx, query, entry); err != nil {
		return fmt.Errorf("update schedule entry: %w", err)
	}
	return nil
}

// UpdateTimes rewrites only the time window of an entry.
func (r *ScheduleRepository) UpdateTimes(ctx context.Context, id string, start, end models.TimeOfDay) error {
	const query = `UPDATE schedule_entries SET start_time = $1, end_time = $2, updated_at = $3 WHERE id = $4`
	if _, err := r.db.ExecContext(ctx, query, start, end, time.Now().UTC(), id); err != nil {
		return fmt.Errorf("update schedule entry times: %w", err)
	}
	return nil
}

// UpdateTeacher rewrites only the teacher assignment of an entry.
func (r *ScheduleRepository) UpdateTeacher(ctx context.Context, id string, teacherID *string) error {
	const query = `UPDATE schedule_entries SET teacher_id = $1, updated_at = $2 WHERE id = $3`
	if _, err := r.db.ExecContext(ctx, query, teacherID, time.Now().UTC(), id); err != nil {
		return fmt.Errorf("update schedule entry teacher: %w", err)
	}
	return nil
}

// UpdateRoom rewrites only the room of an entry.
func (r *ScheduleRepository) UpdateRoom(ctx context.Context, id string, room string) error {
	const query = `UPDATE schedule_entries SET room = $1, updated_at = $2 WHERE id = $3`
	if _, err := r.db.ExecContext(ctx, query, room, time.Now().UTC(), id); err != nil {
		return fmt.Errorf("update schedule entry room: %w", err)
	}
	return nil
}

// Delete removes a schedule entry by id.
func (r *ScheduleRepository) Delete(ctx context.Context, id string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM schedule_entries WHERE id = $1`, id); err != nil {
		return fmt.Errorf("delete schedule entry: %w", err)
	}
	return nil
}

// DeleteByClassYearTx wipes a class timetable for one year inside a
// transaction, ahead of bulk regeneration.
func (r *ScheduleRepository) DeleteByClassYearTx(ctx context.Context, tx *sqlx.Tx, classID, yearID string) error {
	if _, err := tx.ExecContext(ctx, `DELETE FROM schedule_entries WHERE class_id = $1 AND academic_year_id = $2`, classID, yearID); err != nil {
		return fmt.Errorf("delete class schedule entries: %w", err)
	}
	return nil
}

// ListGrid returns entries joined with class, subject and teacher names for
// timetable exports.
func (r *ScheduleRepository) ListGrid(ctx context.Context, yearID, classID string) ([]models.ScheduleGridRow, error) {
	query := `SELECT se.id, se.weekday, se.start_time, se.end_time, se.room,
       c.name AS class_name, s.name AS subject_name, COALESCE(t.full_name, '') AS teacher_name
  FROM schedule_entries se
  JOIN classes c ON c.id = se.class_id
  JOIN subjects s ON s.id = se.subject_id
  LEFT JOIN teachers t ON t.id = se.teacher_id
 WHERE se.academic_year_id = $1`
	args := []interface{}{yearID}
	if classID != "" {
		query += " AND se.class_id = $2"
		args = append(args, classID)
	}
	query += " ORDER BY se.weekday ASC, se.start_time ASC"

	var rows []models.ScheduleGridRow
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("list schedule grid: %w", err)
	}
	return rows, nil
}
