package service

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scolaris-dev/scolaris-api/internal/models"
)

type stubGridProvider struct {
	rows []models.ScheduleGridRow
	err  error
}

func (s *stubGridProvider) ListGrid(ctx context.Context, yearID, classID string) ([]models.ScheduleGridRow, error) {
	return s.rows, s.err
}

type stubRecoveryProvider struct {
	rows []models.RecoveryRow
}

func (s *stubRecoveryProvider) Report(ctx context.Context, filter models.RecoveryFilter) ([]models.RecoveryRow, error) {
	return s.rows, nil
}

type stubAveragesProvider struct {
	averages []models.StudentAverage
}

func (s *stubAveragesProvider) ClassAverages(ctx context.Context, classID, yearID, period string) ([]models.StudentAverage, error) {
	return s.averages, nil
}

func newTestExportService() *ExportService {
	grid := &stubGridProvider{rows: []models.ScheduleGridRow{
		{ID: "e1", Weekday: models.Monday, StartTime: 8 * 60, EndTime: 9 * 60, Room: "R1", ClassName: "6A", SubjectName: "Maths", TeacherName: "A. Diallo"},
	}}
	recovery := &stubRecoveryProvider{rows: []models.RecoveryRow{
		{StudentID: "st1", Matricule: "M001", StudentName: "A. Ba", ClassName: "6A", Expected: 150000, Paid: 50000, Balance: 100000},
	}}
	averages := &stubAveragesProvider{averages: []models.StudentAverage{
		{StudentID: "st1", StudentName: "A. Ba", Average: 14.25, Evaluated: 6},
	}}
	return NewExportService(grid, recovery, averages, "Test School", nil)
}

func TestExportServiceScheduleGridCSV(t *testing.T) {
	svc := newTestExportService()

	file, err := svc.ScheduleGrid(context.Background(), "y1", "", "csv")
	require.NoError(t, err)
	assert.Equal(t, "timetable.csv", file.Filename)
	assert.Equal(t, "text/csv", file.ContentType)

	body := string(file.Payload)
	assert.True(t, strings.HasPrefix(body, "Day,Start,End,Class,Subject,Teacher,Room"))
	assert.Contains(t, body, "MONDAY,08:00,09:00,6A,Maths,A. Diallo,R1")
}

func TestExportServiceScheduleGridPDF(t *testing.T) {
	svc := newTestExportService()

	file, err := svc.ScheduleGrid(context.Background(), "y1", "c1", "pdf")
	require.NoError(t, err)
	assert.Equal(t, "timetable.pdf", file.Filename)
	assert.Equal(t, "application/pdf", file.ContentType)
	assert.True(t, strings.HasPrefix(string(file.Payload), "%PDF"))
}

func TestExportServiceDefaultsToCSV(t *testing.T) {
	svc := newTestExportService()

	file, err := svc.RecoveryReport(context.Background(), models.RecoveryFilter{AcademicYearID: "y1"}, "")
	require.NoError(t, err)
	assert.Equal(t, "recovery.csv", file.Filename)
	assert.Contains(t, string(file.Payload), "M001,A. Ba,6A,150000.00,50000.00,100000.00")
}

func TestExportServiceRejectsUnknownFormat(t *testing.T) {
	svc := newTestExportService()

	_, err := svc.ScheduleGrid(context.Background(), "y1", "", "xlsx")
	require.Error(t, err)

	_, err = svc.ScheduleGrid(context.Background(), "", "", "csv")
	require.Error(t, err)
}

func TestExportServiceClassAverages(t *testing.T) {
	svc := newTestExportService()

	file, err := svc.ClassAverages(context.Background(), "c1", "y1", "TRIMESTER_1", "csv")
	require.NoError(t, err)
	body := string(file.Payload)
	assert.Contains(t, body, "Student,Average,Evaluations")
	assert.Contains(t, body, "A. Ba,14.25,6")

	_, err = svc.ClassAverages(context.Background(), "", "y1", "TRIMESTER_1", "csv")
	require.Error(t, err)
}
