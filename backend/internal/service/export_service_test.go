package service

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	ics "github.com/arran4/golang-ical"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"sutra/backend/internal/model"
	apperrors "sutra/backend/pkg/errors"
)

// ── 测试辅助 ──

func setupTestExportService(t *testing.T) (ExportService, string) {
	t.Helper()
	repo := newTestRepo()

	stored := &model.StoredTimetable{
		Branch:      "DS",
		Division:    "1",
		Year:        "TY",
		GeneratedAt: model.Timestamp{Time: time.Date(2025, 1, 8, 10, 30, 0, 0, time.UTC)}, // 周三
		Timetable:   GenerateTimetable(model.DataBundle{Branch: "DS", Division: "1"}, 5),
	}
	name, err := repo.Timetable.Save(context.Background(), stored)
	if err != nil {
		t.Fatal(err)
	}
	return NewExportService(repo, time.UTC, zap.NewNop()), name
}

// ── Export 测试 ──

func TestExportService_Export_XLSX(t *testing.T) {
	svc, name := setupTestExportService(t)

	out, err := svc.Export(context.Background(), name, "")
	if err != nil {
		t.Fatalf("导出失败: %v", err)
	}
	if out.Filename != strings.TrimSuffix(name, ".json")+".xlsx" || out.ContentType != contentTypeXLSX {
		t.Errorf("导出文件信息不符: %s %s", out.Filename, out.ContentType)
	}

	f, err := excelize.OpenReader(bytes.NewReader(out.Content.Bytes()))
	if err != nil {
		t.Fatalf("导出的 xlsx 无法打开: %v", err)
	}
	defer f.Close()

	if sheets := f.GetSheetList(); len(sheets) != 2 || sheets[0] != listSheet || sheets[1] != gridSheet {
		t.Errorf("工作表不符: %v", sheets)
	}
	rows, err := f.GetRows(listSheet)
	if err != nil {
		t.Fatal(err)
	}
	if rows[0][0] != "DS Div1 Timetable (TY)" {
		t.Errorf("标题行 = %q", rows[0][0])
	}
	if strings.Join(rows[1], ",") != strings.Join(model.TableHeaders, ",") {
		t.Errorf("表头行 = %v", rows[1])
	}
	if last := rows[len(rows)-1]; last[0] != "Sunday" || last[3] != "HOLIDAY" {
		t.Errorf("最后一行应为周日休息行，实际 %v", last)
	}

	v, _ := f.GetCellValue(gridSheet, "C5") // Tuesday × 2:00-3:00
	if v != "LIBRARY SESSION (Library)" {
		t.Errorf("周视图 Tuesday 2:00-3:00 = %q", v)
	}
}

func TestExportService_Export_ICS(t *testing.T) {
	svc, name := setupTestExportService(t)

	out, err := svc.Export(context.Background(), name, FormatICS)
	if err != nil {
		t.Fatalf("导出失败: %v", err)
	}
	if out.ContentType != contentTypeICS {
		t.Errorf("ContentType = %s", out.ContentType)
	}

	cal, err := ics.ParseCalendar(bytes.NewReader(out.Content.Bytes()))
	if err != nil {
		t.Fatalf("导出的 ics 无法解析: %v", err)
	}
	events := cal.Events()
	// 默认数据 17 行，去掉周日休息行
	if len(events) != 16 {
		t.Fatalf("期望 16 个事件，实际 %d", len(events))
	}

	var library *ics.VEvent
	for _, e := range events {
		if p := e.GetProperty(ics.ComponentPropertyRrule); p == nil || p.Value != "FREQ=WEEKLY" {
			t.Errorf("事件应按周重复: %v", p)
		}
		start, err := e.GetStartAt()
		if err != nil {
			t.Fatal(err)
		}
		if start.Weekday() == time.Tuesday && start.Hour() == 14 {
			library = e
		}
	}
	if library == nil {
		t.Fatal("未找到周二 14:00 的事件")
	}
	if s := library.GetProperty(ics.ComponentPropertySummary); s == nil || s.Value != "LIBRARY SESSION" {
		t.Errorf("周二 14:00 应为 LIBRARY SESSION，实际 %v", s)
	}
	start, _ := library.GetStartAt()
	if start.Format("2006-01-02") != "2025-01-07" {
		t.Errorf("应从生成日所在周开始，实际 %s", start.Format("2006-01-02"))
	}
}

func TestExportService_Export_ICSWithTZID(t *testing.T) {
	loc, err := time.LoadLocation("America/New_York")
	if err != nil {
		t.Skipf("缺少时区数据: %v", err)
	}
	repo := newTestRepo()
	stored := &model.StoredTimetable{
		Branch:      "DS",
		Division:    "1",
		GeneratedAt: model.Timestamp{Time: time.Date(2025, 3, 5, 15, 0, 0, 0, time.UTC)}, // 夏令时切换前的周三
		Timetable:   GenerateTimetable(model.DataBundle{Branch: "DS", Division: "1"}, 5),
	}
	name, err := repo.Timetable.Save(context.Background(), stored)
	if err != nil {
		t.Fatal(err)
	}
	svc := NewExportService(repo, loc, zap.NewNop())

	out, err := svc.Export(context.Background(), name, FormatICS)
	if err != nil {
		t.Fatalf("导出失败: %v", err)
	}
	cal, err := ics.ParseCalendar(bytes.NewReader(out.Content.Bytes()))
	if err != nil {
		t.Fatalf("导出的 ics 无法解析: %v", err)
	}

	found := false
	for _, e := range cal.Events() {
		start := e.GetProperty(ics.ComponentPropertyDtStart)
		end := e.GetProperty(ics.ComponentPropertyDtEnd)
		if start == nil || end == nil {
			t.Fatal("事件缺少 DTSTART/DTEND")
		}
		if tz := start.ICalParameters["TZID"]; len(tz) != 1 || tz[0] != "America/New_York" {
			t.Errorf("期望 TZID=America/New_York，实际 %v", start.ICalParameters)
		}
		if strings.HasSuffix(start.Value, "Z") {
			t.Errorf("带 TZID 的时间不应为 UTC 格式: %s", start.Value)
		}
		if start.Value == "20250304T140000" {
			found = true
			if end.Value != "20250304T150000" {
				t.Errorf("周二 LIBRARY SESSION 结束时间 = %s", end.Value)
			}
		}
	}
	if !found {
		t.Error("期望周二 14:00 以本地时间写出")
	}
}

func TestExportService_Export_Errors(t *testing.T) {
	svc, name := setupTestExportService(t)

	_, err := svc.Export(context.Background(), name, "pdf")
	assertAppError(t, err, apperrors.KindValidation, "Unsupported export format: pdf")

	_, err = svc.Export(context.Background(), "timetable_XX_0_1.json", FormatXLSX)
	assertAppError(t, err, apperrors.KindNotFound, MsgTimetableNotFound)

	_, err = svc.Export(context.Background(), "DS1_Dataset.xlsx", FormatXLSX)
	assertAppError(t, err, apperrors.KindNotFound, MsgTimetableNotFound)
}

func TestExportService_Export_CorruptSnapshot(t *testing.T) {
	repo := newTestRepo()
	_ = repo.File.Write(context.Background(), "timetable_DS_1_1.json", []byte("{not json"))
	svc := NewExportService(repo, time.UTC, zap.NewNop())

	_, err := svc.Export(context.Background(), "timetable_DS_1_1.json", FormatICS)
	assertAppError(t, err, apperrors.KindInternal, MsgExportFailed)
}

func TestParseSlot(t *testing.T) {
	tests := []struct {
		slot       string
		start, end time.Duration
		ok         bool
	}{
		{"9:00-10:00", 9 * time.Hour, 10 * time.Hour, true},
		{"11:00-12:00", 11 * time.Hour, 12 * time.Hour, true},
		{"2:00-3:00", 14 * time.Hour, 15 * time.Hour, true},
		{"4:30-5:15", 16*time.Hour + 30*time.Minute, 17*time.Hour + 15*time.Minute, true},
		{"-", 0, 0, false},
		{"noon", 0, 0, false},
	}
	for _, tt := range tests {
		start, end, ok := parseSlot(tt.slot)
		if ok != tt.ok || start != tt.start || end != tt.end {
			t.Errorf("parseSlot(%q) = (%v, %v, %v)", tt.slot, start, end, ok)
		}
	}
}

func TestWeekStart(t *testing.T) {
	sunday := time.Date(2025, 1, 12, 23, 0, 0, 0, time.UTC)
	if got := weekStart(sunday); !got.Equal(time.Date(2025, 1, 6, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("周日所在周的周一应为 1 月 6 日，实际 %v", got)
	}
}
