package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	ics "github.com/arran4/golang-ical"
	"github.com/google/uuid"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"sutra/backend/internal/model"
	"sutra/backend/internal/repository"
	apperrors "sutra/backend/pkg/errors"
)

// ── 导出模块错误消息 ──

const (
	MsgTimetableNotFound = "Timetable not found."
	MsgExportFailed      = "Failed to export timetable."
)

// 导出格式
const (
	FormatXLSX = "xlsx"
	FormatICS  = "ics"
)

const (
	contentTypeXLSX = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	contentTypeICS  = "text/calendar; charset=utf-8"

	listSheet = "Timetable"
	gridSheet = "Weekly"

	icsUTCLayout   = "20060102T150405Z"
	icsLocalLayout = "20060102T150405"
)

// ExportFile 导出结果，由 Handler 设置下载响应头
type ExportFile struct {
	Filename    string
	ContentType string
	Content     *bytes.Buffer
}

// ExportService 课表快照导出接口
//
//   - xlsx：明细表 + 周视图（时段 × 星期）
//   - ics：每个课时生成一个按周重复的 VEVENT，以快照生成日所在周的周一为起点
type ExportService interface {
	Export(ctx context.Context, filename, format string) (*ExportFile, error)
}

type exportService struct {
	repo   *repository.Repository
	loc    *time.Location
	logger *zap.Logger
}

// NewExportService 创建 ExportService 实例，loc 为日历事件所在时区
func NewExportService(repo *repository.Repository, loc *time.Location, logger *zap.Logger) ExportService {
	if loc == nil {
		loc = time.Local
	}
	return &exportService{repo: repo, loc: loc, logger: logger}
}

func (s *exportService) Export(ctx context.Context, filename, format string) (*ExportFile, error) {
	if format == "" {
		format = FormatXLSX
	}
	if format != FormatXLSX && format != FormatICS {
		return nil, apperrors.Validation(fmt.Sprintf("Unsupported export format: %s", format))
	}

	stored, err := s.repo.Timetable.Get(ctx, filename)
	if err != nil {
		if errors.Is(err, repository.ErrFileNotFound) {
			return nil, apperrors.NotFound(MsgTimetableNotFound)
		}
		s.logger.Error("读取课表快照失败", zap.String("file", filename), zap.Error(err))
		return nil, apperrors.Internal(MsgExportFailed, err)
	}

	base := strings.TrimSuffix(filename, ".json")
	var out *ExportFile
	switch format {
	case FormatICS:
		out = &ExportFile{
			Filename:    base + ".ics",
			ContentType: contentTypeICS,
			Content:     bytes.NewBufferString(s.buildCalendar(filename, stored)),
		}
	default:
		buf, err := buildWorkbook(stored)
		if err != nil {
			s.logger.Error("写入 Excel 失败", zap.String("file", filename), zap.Error(err))
			return nil, apperrors.Internal(MsgExportFailed, err)
		}
		out = &ExportFile{Filename: base + ".xlsx", ContentType: contentTypeXLSX, Content: buf}
	}

	s.logger.Info("课表已导出", zap.String("file", filename), zap.String("format", format))
	return out, nil
}

// ════════════════════════════════════════════════════════════
// xlsx
// ════════════════════════════════════════════════════════════

func buildWorkbook(t *model.StoredTimetable) (*bytes.Buffer, error) {
	f := excelize.NewFile()
	defer f.Close()

	idx, err := f.NewSheet(listSheet)
	if err != nil {
		return nil, err
	}
	f.SetActiveSheet(idx)
	f.DeleteSheet("Sheet1")

	headerStyle, _ := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Size: 11},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"#4472C4"}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
	})

	// 明细表：标题行 + 表头 + 数据
	headers := t.Timetable.Headers
	if len(headers) == 0 {
		headers = model.TableHeaders
	}
	title := fmt.Sprintf("%s Div%s Timetable", t.Branch, t.Division)
	if t.Year != "" {
		title += " (" + t.Year + ")"
	}
	f.SetCellValue(listSheet, "A1", title)
	f.MergeCell(listSheet, "A1", cell(colName(len(headers)-1), 1))
	f.SetCellStyle(listSheet, "A1", "A1", headerStyle)

	for i, h := range headers {
		f.SetCellValue(listSheet, cell(colName(i), 2), h)
	}
	f.SetCellStyle(listSheet, "A2", cell(colName(len(headers)-1), 2), headerStyle)
	for r, entry := range t.Timetable.Rows {
		for c, v := range entry {
			f.SetCellValue(listSheet, cell(colName(c), r+3), v)
		}
	}
	f.SetColWidth(listSheet, "A", "B", 14)
	f.SetColWidth(listSheet, "C", colName(len(headers)-1), 22)

	// 周视图：行为时段，列为星期
	if _, err := f.NewSheet(gridSheet); err != nil {
		return nil, err
	}
	f.SetCellValue(gridSheet, "A1", "Time")
	for i, day := range dayOrder {
		f.SetCellValue(gridSheet, cell(colName(i+1), 1), day)
	}
	f.SetCellStyle(gridSheet, "A1", cell(colName(len(dayOrder)), 1), headerStyle)

	cells := make(map[string]string)
	for _, e := range t.Timetable.Rows {
		text := e.Course()
		if venue := e[5]; venue != "" && venue != "-" {
			text += " (" + venue + ")"
		}
		cells[e.Day()+"|"+e.Time()] = text
	}
	for r, slot := range timeSlots {
		f.SetCellValue(gridSheet, cell("A", r+2), slot)
		for c, day := range dayOrder {
			if text, ok := cells[day+"|"+slot]; ok {
				f.SetCellValue(gridSheet, cell(colName(c+1), r+2), text)
			} else {
				f.SetCellValue(gridSheet, cell(colName(c+1), r+2), "-")
			}
		}
	}
	f.SetColWidth(gridSheet, "A", "A", 14)
	f.SetColWidth(gridSheet, "B", colName(len(dayOrder)), 26)

	buf := new(bytes.Buffer)
	if err := f.Write(buf); err != nil {
		return nil, err
	}
	return buf, nil
}

// ════════════════════════════════════════════════════════════
// ics
// ════════════════════════════════════════════════════════════

func (s *exportService) buildCalendar(filename string, t *model.StoredTimetable) string {
	cal := ics.NewCalendar()
	cal.SetMethod(ics.MethodPublish)
	cal.SetProductId("-//Sutra//Timetable//EN")
	cal.SetXWRCalName(fmt.Sprintf("%s Div%s", t.Branch, t.Division))

	monday := weekStart(t.GeneratedAt.In(s.loc))
	stamp := t.GeneratedAt.UTC()

	for i, e := range t.Timetable.Rows {
		day := orderIndex(gridDays, e.Day())
		start, end, ok := parseSlot(e.Time())
		if day < 0 || !ok {
			// 周日休息行等没有具体时段的行
			continue
		}
		date := monday.AddDate(0, 0, day)

		uid := uuid.NewSHA1(uuid.NameSpaceURL, []byte(fmt.Sprintf("%s#%d", filename, i)))
		event := cal.AddEvent(uid.String() + "@sutra")
		event.SetDtStampTime(stamp)
		s.setEventTime(event, ics.ComponentPropertyDtStart, date.Add(start))
		s.setEventTime(event, ics.ComponentPropertyDtEnd, date.Add(end))
		event.SetSummary(e.Course())
		if venue := e[5]; venue != "" {
			event.SetLocation(venue)
		}
		event.SetDescription(fmt.Sprintf("%s / %s", e[2], e[4]))
		event.AddProperty(ics.ComponentPropertyRrule, "FREQ=WEEKLY")
	}
	return cal.Serialize()
}

// setEventTime 具名时区写成 TZID 本地时间，按周重复时跨夏令时仍落在同一钟点；
// UTC 与 Local 没有可用的 IANA 名称，写成 UTC 绝对时间
func (s *exportService) setEventTime(event *ics.VEvent, prop ics.ComponentProperty, t time.Time) {
	tzid := s.loc.String()
	if tzid == "UTC" || tzid == "Local" {
		event.SetProperty(prop, t.UTC().Format(icsUTCLayout))
		return
	}
	event.SetProperty(prop, t.In(s.loc).Format(icsLocalLayout), ics.WithTZID(tzid))
}

// weekStart 返回 t 所在周的周一零点
func weekStart(t time.Time) time.Time {
	offset := (int(t.Weekday()) + 6) % 7
	y, m, d := t.AddDate(0, 0, -offset).Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// parseSlot 解析 "2:00-3:00" 形式的时段，返回相对当日零点的偏移
// 时段为 12 小时制且不带上下午标记，小于 8 点的视为下午
func parseSlot(slot string) (time.Duration, time.Duration, bool) {
	from, to, found := strings.Cut(slot, "-")
	if !found {
		return 0, 0, false
	}
	start, ok1 := parseClock(from)
	end, ok2 := parseClock(to)
	if !ok1 || !ok2 {
		return 0, 0, false
	}
	return start, end, true
}

func parseClock(v string) (time.Duration, bool) {
	h, m, found := strings.Cut(strings.TrimSpace(v), ":")
	if !found {
		return 0, false
	}
	hour, err := strconv.Atoi(h)
	if err != nil {
		return 0, false
	}
	minute, err := strconv.Atoi(m)
	if err != nil {
		return 0, false
	}
	if hour < 8 {
		hour += 12
	}
	return time.Duration(hour)*time.Hour + time.Duration(minute)*time.Minute, true
}

// ── 辅助函数 ──

func colName(idx int) string {
	name, _ := excelize.ColumnNumberToName(idx + 1)
	return name
}

func cell(col string, row int) string {
	return fmt.Sprintf("%s%d", col, row)
}
