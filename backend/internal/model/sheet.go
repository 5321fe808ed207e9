package model

import "strings"

// Row 一行表格数据，键为表头
type Row map[string]string

// First 依次尝试多个列名，返回第一个非空值
func (r Row) First(keys ...string) string {
	for _, k := range keys {
		if v := strings.TrimSpace(r[k]); v != "" {
			return v
		}
	}
	return ""
}

// 工作表名称
const (
	SheetTheoryCourses = "Theory Courses"
	SheetLabCourses    = "Lab Courses"
	SheetFaculty       = "Faculty"
	SheetLoadDist      = "Load Dist"
	SheetBatchDetails  = "Batch Details"
	SheetVenue         = "Venue"
)

// RequiredDatasetSheets <Branch><Division>_Dataset.xlsx 必须包含的工作表
var RequiredDatasetSheets = []string{
	SheetTheoryCourses,
	SheetLabCourses,
	SheetFaculty,
	SheetLoadDist,
	SheetBatchDetails,
	SheetVenue,
}

// 解析结果分类
const (
	CategorySubjects = "subjects"
	CategoryFaculty  = "faculty"
	CategoryRooms    = "rooms"
	CategoryStudents = "students"
)

// ParsedData 分类 → 行集合
type ParsedData map[string][]Row
