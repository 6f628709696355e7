package service

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/scolaris-dev/scolaris-api/internal/models"
	appErrors "github.com/scolaris-dev/scolaris-api/pkg/errors"
	"github.com/scolaris-dev/scolaris-api/pkg/export"
)

type exportScheduleProvider interface {
	ListGrid(ctx context.Context, yearID, classID string) ([]models.ScheduleGridRow, error)
}

type exportRecoveryProvider interface {
	Report(ctx context.Context, filter models.RecoveryFilter) ([]models.RecoveryRow, error)
}

type exportAveragesProvider interface {
	ClassAverages(ctx context.Context, classID, yearID, period string) ([]models.StudentAverage, error)
}

// ExportFile is a rendered export ready to stream to the client.
type ExportFile struct {
	Filename    string
	ContentType string
	Payload     []byte
}

// ExportService renders timetable and finance reports as CSV or PDF.
type ExportService struct {
	schedules  exportScheduleProvider
	recovery   exportRecoveryProvider
	averages   exportAveragesProvider
	csv        *export.CSVExporter
	pdf        *export.PDFExporter
	gridPDF    *export.PDFExporter
	schoolName string
	logger     *zap.Logger
}

// NewExportService instantiates ExportService.
func NewExportService(schedules exportScheduleProvider, recovery exportRecoveryProvider, averages exportAveragesProvider, schoolName string, logger *zap.Logger) *ExportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ExportService{
		schedules:  schedules,
		recovery:   recovery,
		averages:   averages,
		csv:        export.NewCSVExporter(),
		pdf:        export.NewPDFExporter(),
		gridPDF:    export.NewLandscapePDFExporter(),
		schoolName: schoolName,
		logger:     logger,
	}
}

// ScheduleGrid renders the timetable of a year (optionally one class) in the
// requested format.
func (s *ExportService) ScheduleGrid(ctx context.Context, yearID, classID, format string) (*ExportFile, error) {
	if yearID == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "academic year id is required")
	}
	rows, err := s.schedules.ListGrid(ctx, yearID, classID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load schedule grid")
	}

	dataset := export.Dataset{
		Headers: []string{"Day", "Start", "End", "Class", "Subject", "Teacher", "Room"},
	}
	for _, row := range rows {
		dataset.Rows = append(dataset.Rows, map[string]string{
			"Day":     string(row.Weekday),
			"Start":   row.StartTime.String(),
			"End":     row.EndTime.String(),
			"Class":   row.ClassName,
			"Subject": row.SubjectName,
			"Teacher": row.TeacherName,
			"Room":    row.Room,
		})
	}

	switch normalizeFormat(format) {
	case "csv":
		payload, err := s.csv.Render(dataset)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render csv")
		}
		return &ExportFile{Filename: "timetable.csv", ContentType: "text/csv", Payload: payload}, nil
	case "pdf":
		payload, err := s.gridPDF.Render(dataset, fmt.Sprintf("%s - Timetable", s.schoolName))
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render pdf")
		}
		return &ExportFile{Filename: "timetable.pdf", ContentType: "application/pdf", Payload: payload}, nil
	default:
		return nil, appErrors.Clone(appErrors.ErrValidation, "unsupported export format, expected csv or pdf")
	}
}

// RecoveryReport renders the fee recovery report in the requested format.
func (s *ExportService) RecoveryReport(ctx context.Context, filter models.RecoveryFilter, format string) (*ExportFile, error) {
	if filter.AcademicYearID == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "academic year id is required")
	}
	rows, err := s.recovery.Report(ctx, filter)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to build recovery report")
	}

	dataset := export.Dataset{
		Headers: []string{"Matricule", "Student", "Class", "Expected", "Paid", "Balance"},
	}
	for _, row := range rows {
		dataset.Rows = append(dataset.Rows, map[string]string{
			"Matricule": row.Matricule,
			"Student":   row.StudentName,
			"Class":     row.ClassName,
			"Expected":  fmt.Sprintf("%.2f", row.Expected),
			"Paid":      fmt.Sprintf("%.2f", row.Paid),
			"Balance":   fmt.Sprintf("%.2f", row.Balance),
		})
	}

	switch normalizeFormat(format) {
	case "csv":
		payload, err := s.csv.Render(dataset)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render csv")
		}
		return &ExportFile{Filename: "recovery.csv", ContentType: "text/csv", Payload: payload}, nil
	case "pdf":
		payload, err := s.pdf.Render(dataset, fmt.Sprintf("%s - Fee Recovery", s.schoolName))
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render pdf")
		}
		return &ExportFile{Filename: "recovery.pdf", ContentType: "application/pdf", Payload: payload}, nil
	default:
		return nil, appErrors.Clone(appErrors.ErrValidation, "unsupported export format, expected csv or pdf")
	}
}

// ClassAverages renders the per-student averages of a class and period.
func (s *ExportService) ClassAverages(ctx context.Context, classID, yearID, period, format string) (*ExportFile, error) {
	if classID == "" || yearID == "" || period == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "class id, academic year id and period are required")
	}
	averages, err := s.averages.ClassAverages(ctx, classID, yearID, period)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to compute class averages")
	}

	dataset := export.Dataset{
		Headers: []string{"Student", "Average", "Evaluations"},
	}
	for _, avg := range averages {
		dataset.Rows = append(dataset.Rows, map[string]string{
			"Student":     avg.StudentName,
			"Average":     fmt.Sprintf("%.2f", avg.Average),
			"Evaluations": fmt.Sprintf("%d", avg.Evaluated),
		})
	}

	switch normalizeFormat(format) {
	case "csv":
		payload, err := s.csv.Render(dataset)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render csv")
		}
		return &ExportFile{Filename: "averages.csv", ContentType: "text/csv", Payload: payload}, nil
	case "pdf":
		payload, err := s.pdf.Render(dataset, fmt.Sprintf("%s - Class Averages", s.schoolName))
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render pdf")
		}
		return &ExportFile{Filename: "averages.pdf", ContentType: "application/pdf", Payload: payload}, nil
	default:
		return nil, appErrors.Clone(appErrors.ErrValidation, "unsupported export format, expected csv or pdf")
	}
}

func normalizeFormat(format string) string {
	if format == "" {
		return "csv"
	}
	return strings.ToLower(format)
}
