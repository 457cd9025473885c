package service

import (
	"context"
	"fmt"
	"sort"

	"go.uber.org/zap"

	"github.com/velocity-vultures/pms-api/internal/models"
	appErrors "github.com/velocity-vultures/pms-api/pkg/errors"
	"github.com/velocity-vultures/pms-api/pkg/export"
)

type timetableReader interface {
	ListTimetable(ctx context.Context) ([]models.TimetableEntry, error)
}

type csvRenderer interface {
	Render(data export.Dataset) ([]byte, error)
}

type pdfRenderer interface {
	Render(data export.Dataset, title string) ([]byte, error)
}

// ExportFormat selects the rendered output type.
type ExportFormat string

// Supported export formats.
const (
	ExportFormatCSV ExportFormat = "csv"
	ExportFormatPDF ExportFormat = "pdf"
)

// ExportResult is a rendered timetable document.
type ExportResult struct {
	Filename    string
	ContentType string
	Payload     []byte
}

// ExportService renders the presentation timetable for download.
type ExportService struct {
	timetable timetableReader
	csv       csvRenderer
	pdf       pdfRenderer
	logger    *zap.Logger
	enabled   bool
}

// NewExportService constructs an ExportService.
func NewExportService(timetable timetableReader, csv csvRenderer, pdf pdfRenderer, logger *zap.Logger, enabled bool) *ExportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if csv == nil {
		csv = export.NewCSVExporter()
	}
	if pdf == nil {
		pdf = export.NewPDFExporter()
	}
	return &ExportService{timetable: timetable, csv: csv, pdf: pdf, logger: logger, enabled: enabled}
}

// Timetable renders the full presentation timetable in the requested format.
// Entries are ordered by day, start time and room name.
func (s *ExportService) Timetable(ctx context.Context, format ExportFormat) (*ExportResult, error) {
	if !s.enabled {
		return nil, appErrors.Clone(appErrors.ErrValidation, "exports are disabled")
	}
	if format != ExportFormatCSV && format != ExportFormatPDF {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unsupported export format %q", format))
	}

	entries, err := s.timetable.ListTimetable(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load timetable")
	}
	sort.SliceStable(entries, func(i, j int) bool {
		if entries[i].DayIndex != entries[j].DayIndex {
			return entries[i].DayIndex < entries[j].DayIndex
		}
		if entries[i].StartBin != entries[j].StartBin {
			return entries[i].StartBin < entries[j].StartBin
		}
		return entries[i].RoomName < entries[j].RoomName
	})

	dataset := export.Dataset{
		Headers: []string{"Day", "Time", "Project", "Room", "Supervisor"},
		Rows:    make([]map[string]string, 0, len(entries)),
	}
	for _, entry := range entries {
		label := models.SlotLabel(entry.DayIndex, entry.StartBin, entry.DurationBins)
		dataset.Rows = append(dataset.Rows, map[string]string{
			"Day":        models.DayNames[entry.DayIndex],
			"Time":       label[len(models.DayNames[entry.DayIndex])+1:],
			"Project":    entry.ProjectTitle,
			"Room":       entry.RoomName,
			"Supervisor": entry.SupervisorName,
		})
	}

	var payload []byte
	var contentType, filename string
	switch format {
	case ExportFormatCSV:
		payload, err = s.csv.Render(dataset)
		contentType = "text/csv"
		filename = "presentation-timetable.csv"
	case ExportFormatPDF:
		payload, err = s.pdf.Render(dataset, "Presentation Timetable")
		contentType = "application/pdf"
		filename = "presentation-timetable.pdf"
	}
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render timetable")
	}

	s.logger.Info("timetable exported",
		zap.String("format", string(format)),
		zap.Int("entries", len(entries)))
	return &ExportResult{Filename: filename, ContentType: contentType, Payload: payload}, nil
}
