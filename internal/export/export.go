package export

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/amishk599/jobfinder/internal/model"
)

// Format is an export file format.
type Format string

const (
	XLSX Format = "xlsx"
	Text Format = "txt"

	sheetName  = "Jobs"
	dateLayout = "2006-01-02"
	separator  = "--------------------------"
)

// ParseFormat maps a file extension or flag value onto a Format.
func ParseFormat(s string) (Format, error) {
	switch Format(s) {
	case XLSX, Text:
		return Format(s), nil
	default:
		return "", fmt.Errorf("unsupported export format %q (want xlsx or txt)", s)
	}
}

// Service writes stored jobs to a report.
type Service struct {
	jobs   model.JobStore
	loc    *time.Location
	logger *slog.Logger
}

func NewService(jobs model.JobStore, loc *time.Location, logger *slog.Logger) *Service {
	if loc == nil {
		loc = time.Local
	}
	return &Service{jobs: jobs, loc: loc, logger: logger}
}

// Export writes jobs created at or after since to w and returns how many
// were written. A zero since exports everything.
func (s *Service) Export(ctx context.Context, w io.Writer, format Format, since time.Time) (int, error) {
	start := time.Now()

	jobs, err := s.jobs.ListJobs(ctx, since)
	if err != nil {
		return 0, fmt.Errorf("query jobs: %w", err)
	}

	switch format {
	case XLSX:
		err = WriteXLSX(w, jobs, s.loc)
	case Text:
		err = WriteText(w, jobs, s.loc)
	default:
		err = fmt.Errorf("unsupported export format %q", format)
	}
	if err != nil {
		return 0, err
	}

	s.logger.Info("export complete",
		"format", format,
		"rows", len(jobs),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return len(jobs), nil
}

var xlsxHeaders = []string{"회사명", "제목", "채용시작일", "채용마감일", "링크", "등록일"}

// WriteXLSX writes jobs as a single-sheet workbook.
func WriteXLSX(w io.Writer, jobs []model.Job, loc *time.Location) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", sheetName); err != nil {
		return fmt.Errorf("xlsx sheet: %w", err)
	}

	for i, h := range xlsxHeaders {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		if err := f.SetCellValue(sheetName, cell, h); err != nil {
			return fmt.Errorf("xlsx header: %w", err)
		}
	}

	for i, j := range jobs {
		row := []any{
			j.Company,
			j.Title,
			formatDate(j.StartAt, loc),
			formatDate(j.EndAt, loc),
			j.Detail,
			j.CreatedAt.In(loc).Format("2006-01-02 15:04:05"),
		}
		cell, _ := excelize.CoordinatesToCellName(1, i+2)
		if err := f.SetSheetRow(sheetName, cell, &row); err != nil {
			return fmt.Errorf("xlsx row %d: %w", i+2, err)
		}
	}

	_ = f.SetColWidth(sheetName, "A", "A", 24) // company
	_ = f.SetColWidth(sheetName, "B", "B", 48) // title
	_ = f.SetColWidth(sheetName, "C", "D", 14) // dates
	_ = f.SetColWidth(sheetName, "E", "E", 60) // link
	_ = f.SetColWidth(sheetName, "F", "F", 20)

	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("xlsx write: %w", err)
	}
	return nil
}

// WriteText writes jobs in the plain-text report format, one block per job.
func WriteText(w io.Writer, jobs []model.Job, loc *time.Location) error {
	bw := bufio.NewWriter(w)
	for _, j := range jobs {
		fmt.Fprintf(bw, "회사명: %s\n제목: %s\n채용시작일: %s\n채용마감일: %s\n링크: %s\n%s\n",
			j.Company, j.Title, formatDate(j.StartAt, loc), formatDate(j.EndAt, loc), j.Detail, separator)
	}
	if err := bw.Flush(); err != nil {
		return fmt.Errorf("txt write: %w", err)
	}
	return nil
}

func formatDate(t *time.Time, loc *time.Location) string {
	if t == nil {
		return model.Placeholder
	}
	return t.In(loc).Format(dateLayout)
}
