package export

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/amishk599/jobfinder/internal/model"
	"github.com/amishk599/jobfinder/internal/store"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func timePtr(t time.Time) *time.Time { return &t }

var (
	kst     = time.FixedZone("KST", 9*60*60)
	created = time.Date(2025, 11, 3, 0, 0, 0, 0, time.UTC)
)

func sampleJobs() []model.Job {
	return []model.Job{
		{
			Company:   "ACME",
			Title:     "Backend Engineer",
			StartAt:   timePtr(time.Date(2025, 11, 1, 0, 0, 0, 0, kst)),
			EndAt:     timePtr(time.Date(2025, 11, 30, 23, 59, 0, 0, kst)),
			Detail:    "https://jasoseol.com/recruit/1",
			CreatedAt: created,
		},
		{
			Company:   "Beta",
			Title:     "보안 관제",
			Detail:    "https://linkareer.com/activity/2",
			CreatedAt: created,
		},
	}
}

func TestWriteText(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteText(&buf, sampleJobs(), kst); err != nil {
		t.Fatalf("WriteText: %v", err)
	}
	want := "회사명: ACME\n" +
		"제목: Backend Engineer\n" +
		"채용시작일: 2025-11-01\n" +
		"채용마감일: 2025-11-30\n" +
		"링크: https://jasoseol.com/recruit/1\n" +
		"--------------------------\n" +
		"회사명: Beta\n" +
		"제목: 보안 관제\n" +
		"채용시작일: 정보없음\n" +
		"채용마감일: 정보없음\n" +
		"링크: https://linkareer.com/activity/2\n" +
		"--------------------------\n"
	if got := buf.String(); got != want {
		t.Errorf("text report mismatch\ngot:\n%s\nwant:\n%s", got, want)
	}
}

func TestWriteXLSX(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteXLSX(&buf, sampleJobs(), kst); err != nil {
		t.Fatalf("WriteXLSX: %v", err)
	}

	f, err := excelize.OpenReader(&buf)
	if err != nil {
		t.Fatalf("open workbook: %v", err)
	}
	defer f.Close()

	rows, err := f.GetRows(sheetName)
	if err != nil {
		t.Fatalf("GetRows: %v", err)
	}
	if len(rows) != 3 {
		t.Fatalf("expected header + 2 rows, got %d", len(rows))
	}
	if rows[0][0] != "회사명" || rows[0][5] != "등록일" {
		t.Errorf("header = %v", rows[0])
	}
	if rows[1][0] != "ACME" || rows[1][3] != "2025-11-30" {
		t.Errorf("row 1 = %v", rows[1])
	}
	if rows[2][2] != model.Placeholder || rows[2][5] != "2025-11-03 09:00:00" {
		t.Errorf("row 2 = %v", rows[2])
	}
}

func TestService_ExportSince(t *testing.T) {
	s := store.NewMemoryStore(nil)
	ctx := context.Background()
	for _, j := range sampleJobs() {
		if _, err := s.Insert(ctx, j); err != nil {
			t.Fatalf("insert: %v", err)
		}
	}
	old := model.Job{Company: "Old", Title: "Expired", Detail: "/old", CreatedAt: created.Add(-72 * time.Hour)}
	if _, err := s.Insert(ctx, old); err != nil {
		t.Fatalf("insert: %v", err)
	}

	svc := NewService(s, kst, discardLogger())

	var buf bytes.Buffer
	n, err := svc.Export(ctx, &buf, Text, created.Add(-time.Hour))
	if err != nil {
		t.Fatalf("Export: %v", err)
	}
	if n != 2 {
		t.Errorf("exported %d jobs, want 2", n)
	}
	if bytes.Contains(buf.Bytes(), []byte("Expired")) {
		t.Error("job outside the window was exported")
	}

	buf.Reset()
	if n, err := svc.Export(ctx, &buf, XLSX, time.Time{}); err != nil || n != 3 {
		t.Fatalf("Export all = %d, %v", n, err)
	}
}

func TestParseFormat(t *testing.T) {
	if f, err := ParseFormat("xlsx"); err != nil || f != XLSX {
		t.Errorf("ParseFormat(xlsx) = %v, %v", f, err)
	}
	if f, err := ParseFormat("txt"); err != nil || f != Text {
		t.Errorf("ParseFormat(txt) = %v, %v", f, err)
	}
	if _, err := ParseFormat("csv"); err == nil {
		t.Error("ParseFormat(csv) should fail")
	}
}
