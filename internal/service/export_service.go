package service

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/trailhq/trail-api/internal/models"
	appErrors "github.com/trailhq/trail-api/pkg/errors"
	"github.com/trailhq/trail-api/pkg/export"
)

type csvRenderer interface {
	Render(data export.Dataset) ([]byte, error)
}

type pdfRenderer interface {
	Render(data export.Dataset, title string) ([]byte, error)
}

// ExportService renders the full attendance log for download.
type ExportService struct {
	students rosterLister
	events   eventLister
	csv      csvRenderer
	pdf      pdfRenderer
	logger   *zap.Logger
}

// NewExportService constructs an ExportService.
func NewExportService(students rosterLister, events eventLister, logger *zap.Logger, csv csvRenderer, pdf pdfRenderer) *ExportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if csv == nil {
		csv = export.NewCSVExporter()
	}
	if pdf == nil {
		pdf = export.NewPDFExporter()
	}
	return &ExportService{students: students, events: events, csv: csv, pdf: pdf, logger: logger}
}

// AttendanceCSV renders every recorded scan as CSV in insertion order.
func (s *ExportService) AttendanceCSV(ctx context.Context) ([]byte, error) {
	dataset, err := s.buildAttendanceDataset(ctx)
	if err != nil {
		return nil, err
	}
	payload, err := s.csv.Render(dataset)
	if err != nil {
		return nil, fmt.Errorf("render attendance csv: %w", err)
	}
	return payload, nil
}

// AttendancePDF renders the same log as a tabular PDF.
func (s *ExportService) AttendancePDF(ctx context.Context) ([]byte, error) {
	dataset, err := s.buildAttendanceDataset(ctx)
	if err != nil {
		return nil, err
	}
	payload, err := s.pdf.Render(dataset, "Attendance Log")
	if err != nil {
		return nil, fmt.Errorf("render attendance pdf: %w", err)
	}
	return payload, nil
}

func (s *ExportService) buildAttendanceDataset(ctx context.Context) (export.Dataset, error) {
	events, err := s.events.ListAll(ctx)
	if err != nil {
		return export.Dataset{}, appErrors.Wrap(err, appErrors.ErrUpstreamUnavailable.Code, appErrors.ErrUpstreamUnavailable.Status, "failed to load attendance events")
	}
	students, err := s.students.List(ctx)
	if err != nil {
		return export.Dataset{}, appErrors.Wrap(err, appErrors.ErrUpstreamUnavailable.Code, appErrors.ErrUpstreamUnavailable.Status, "failed to load roster")
	}

	byID := make(map[string]models.Student, len(students))
	for _, student := range students {
		byID[student.ID] = student
	}

	rows := make([]map[string]string, 0, len(events))
	for _, event := range events {
		name := models.UnknownLabel
		rfid := models.UnknownLabel
		if student, ok := byID[event.StudentID]; ok {
			name = student.FullName
			rfid = student.RFID
		}
		rows = append(rows, map[string]string{
			"Student Name": name,
			"RFID":         rfid,
			"Timestamp":    event.Timestamp,
		})
	}

	return export.Dataset{
		Headers: []string{"Student Name", "RFID", "Timestamp"},
		Rows:    rows,
	}, nil
}
