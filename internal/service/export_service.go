package service

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/didar-dev/didar-api/internal/models"
	appErrors "github.com/didar-dev/didar-api/pkg/errors"
	"github.com/didar-dev/didar-api/pkg/export"
)

// ExportFormat selects the rendered file type.
type ExportFormat string

const (
	FormatPDF ExportFormat = "pdf"
	FormatCSV ExportFormat = "csv"
)

// ExportFile is a rendered document ready for download.
type ExportFile struct {
	Content     []byte
	ContentType string
	Filename    string
}

// ExportService renders an instructor's weekly schedule into downloadable
// documents.
type ExportService struct {
	schedules scheduleRepository
	logger    *zap.Logger
}

// NewExportService constructs an ExportService.
func NewExportService(schedules scheduleRepository, logger *zap.Logger) *ExportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ExportService{schedules: schedules, logger: logger}
}

// ExportSchedules renders the caller's slots in the requested format. An
// empty format defaults to PDF.
func (s *ExportService) ExportSchedules(ctx context.Context, instructorID string, format ExportFormat) (*ExportFile, error) {
	if format == "" {
		format = FormatPDF
	}

	slots, err := s.schedules.ListByInstructor(ctx, instructorID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrServer)
	}

	table := scheduleTable(slots)

	switch format {
	case FormatPDF:
		content, err := export.RenderPDF(table)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrServer)
		}
		return &ExportFile{Content: content, ContentType: "application/pdf", Filename: "schedules.pdf"}, nil
	case FormatCSV:
		content, err := export.RenderCSV(table)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrServer)
		}
		return &ExportFile{Content: content, ContentType: "text/csv", Filename: "schedules.csv"}, nil
	default:
		return nil, appErrors.WithParams(appErrors.ErrBadRequest, map[string]interface{}{
			"format": fmt.Sprintf("unsupported format %q", string(format)),
		})
	}
}

func scheduleTable(slots []models.ScheduleSlot) export.Table {
	table := export.Table{
		Title: "Weekly Schedule",
		Columns: []export.Column{
			{Key: "code", Label: "Code"},
			{Key: "title", Label: "Title"},
			{Key: "day", Label: "Day"},
			{Key: "start", Label: "Start"},
			{Key: "end", Label: "End"},
		},
	}
	for _, slot := range slots {
		table.Rows = append(table.Rows, map[string]string{
			"code":  slot.Code,
			"title": slot.Title,
			"day":   slot.DayOfWeek.String(),
			"start": strings.TrimSuffix(slot.StartTime, ":00"),
			"end":   strings.TrimSuffix(slot.EndTime, ":00"),
		})
	}
	return table
}
