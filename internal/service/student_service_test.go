package service

import (
	"context"
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scolaris-dev/scolaris-api/internal/models"
	appErrors "github.com/scolaris-dev/scolaris-api/pkg/errors"
)

type stubStudentRepo struct {
	students map[string]*models.Student
	enrolled int
	created  *models.Student
}

func (s *stubStudentRepo) List(ctx context.Context, filter models.StudentFilter) ([]models.Student, int, error) {
	var out []models.Student
	for _, st := range s.students {
		out = append(out, *st)
	}
	return out, len(out), nil
}

func (s *stubStudentRepo) FindByID(ctx context.Context, id string) (*models.Student, error) {
	st, ok := s.students[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return st, nil
}

func (s *stubStudentRepo) CountByClassYear(ctx context.Context, classID, yearID string) (int, error) {
	return s.enrolled, nil
}

func (s *stubStudentRepo) Create(ctx context.Context, student *models.Student) error {
	student.ID = "st-new"
	s.created = student
	return nil
}

func (s *stubStudentRepo) Update(ctx context.Context, student *models.Student) error {
	return nil
}

func (s *stubStudentRepo) Delete(ctx context.Context, id string) error {
	delete(s.students, id)
	return nil
}

type stubClassResolver struct {
	class *models.Class
}

func (s *stubClassResolver) FindByID(ctx context.Context, id string) (*models.Class, error) {
	if s.class == nil {
		return nil, sql.ErrNoRows
	}
	return s.class, nil
}

func enrolmentPayload() StudentPayload {
	return StudentPayload{
		Matricule:      "M010",
		FullName:       "C. Ndiaye",
		ClassID:        "c1",
		AcademicYearID: "y1",
	}
}

func TestStudentServiceCreate(t *testing.T) {
	repo := &stubStudentRepo{students: map[string]*models.Student{}, enrolled: 10}
	classes := &stubClassResolver{class: &models.Class{ID: "c1", Capacity: 40}}
	svc := NewStudentService(repo, classes, nil, nil)

	student, err := svc.Create(context.Background(), enrolmentPayload())
	require.NoError(t, err)
	assert.Equal(t, "st-new", student.ID)
	assert.Equal(t, "M010", student.Matricule)
}

func TestStudentServiceCreateClassFull(t *testing.T) {
	repo := &stubStudentRepo{students: map[string]*models.Student{}, enrolled: 40}
	classes := &stubClassResolver{class: &models.Class{ID: "c1", Capacity: 40}}
	svc := NewStudentService(repo, classes, nil, nil)

	_, err := svc.Create(context.Background(), enrolmentPayload())
	require.Error(t, err)
	var appErr *appErrors.Error
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, appErrors.ErrConflict.Code, appErr.Code)
	assert.Nil(t, repo.created)
}

func TestStudentServiceCreateUnlimitedCapacity(t *testing.T) {
	repo := &stubStudentRepo{students: map[string]*models.Student{}, enrolled: 500}
	classes := &stubClassResolver{class: &models.Class{ID: "c1", Capacity: 0}}
	svc := NewStudentService(repo, classes, nil, nil)

	_, err := svc.Create(context.Background(), enrolmentPayload())
	require.NoError(t, err)
}

func TestStudentServiceCreateUnknownClass(t *testing.T) {
	svc := NewStudentService(&stubStudentRepo{students: map[string]*models.Student{}}, &stubClassResolver{}, nil, nil)

	_, err := svc.Create(context.Background(), enrolmentPayload())
	require.Error(t, err)
	var appErr *appErrors.Error
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErr.Code)
}

func TestStudentServiceDeleteUnknownStudent(t *testing.T) {
	svc := NewStudentService(&stubStudentRepo{students: map[string]*models.Student{}}, &stubClassResolver{}, nil, nil)

	err := svc.Delete(context.Background(), "missing")
	require.Error(t, err)
}
