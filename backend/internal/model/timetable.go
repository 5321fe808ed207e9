package model

import (
	"strings"
	"time"
)

// SessionType 课程类型
type SessionType string

const (
	SessionTheory SessionType = "theory"
	SessionLab    SessionType = "lab"
)

// Session 一次待排课时
type Session struct {
	Subject string
	Type    SessionType
}

// TimetableEntry [day, time, classBatch, courseName, faculty, venue]
type TimetableEntry [6]string

func (e TimetableEntry) Day() string    { return e[0] }
func (e TimetableEntry) Time() string   { return e[1] }
func (e TimetableEntry) Course() string { return e[3] }

// Table 课表二维表
type Table struct {
	Headers []string         `json:"headers"`
	Rows    []TimetableEntry `json:"rows"`
}

// TableHeaders 课表固定表头
var TableHeaders = []string{"Day", "Time", "Class/Batch", "Course Name", "Faculty", "Venue"}

// DataBundle 生成课表的输入数据
type DataBundle struct {
	TheoryCourses []Row
	LabCourses    []Row
	Faculty       []Row
	Venues        []Row
	Branch        string
	Division      string
}

// Constraints 生成参数回显（当前生成器不消费）
type Constraints struct {
	TheoryDuration int `json:"theoryDuration"`
	LabDuration    int `json:"labDuration"`
	ShortBreaks    int `json:"shortBreaks"`
	LongBreaks     int `json:"longBreaks"`
}

// StoredTimetable 持久化的课表快照，写入后不再修改
type StoredTimetable struct {
	Branch      string       `json:"branch"`
	Division    string       `json:"division"`
	Year        string       `json:"year"`
	GeneratedAt Timestamp    `json:"generatedAt"`
	Constraints *Constraints `json:"constraints,omitempty"`
	Timetable   Table        `json:"timetable"`
}

// StoredTimetableFile 带文件名的快照，用于列表接口
type StoredTimetableFile struct {
	Filename string `json:"filename"`
	StoredTimetable
}

// isoMillis 与 JavaScript Date.toISOString 一致的格式
const isoMillis = "2006-01-02T15:04:05.000Z07:00"

// Timestamp JSON 中固定输出 UTC 毫秒精度时间，如 2025-01-06T09:00:00.000Z
type Timestamp struct {
	time.Time
}

func (t Timestamp) MarshalJSON() ([]byte, error) {
	return []byte(`"` + t.UTC().Format(isoMillis) + `"`), nil
}

func (t *Timestamp) UnmarshalJSON(data []byte) error {
	s := strings.Trim(string(data), `"`)
	if s == "" || s == "null" {
		t.Time = time.Time{}
		return nil
	}
	parsed, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return err
	}
	t.Time = parsed
	return nil
}
