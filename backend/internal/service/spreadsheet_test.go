package service

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"testing"

	"sutra/backend/internal/model"
	apperrors "sutra/backend/pkg/errors"
)

// ════════════════════════════════════════════════════════════
// CSV
// ════════════════════════════════════════════════════════════

func TestParseCSV_RowCountAndHeaders(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"两行", "Name,Course\nDr. Rao,ML"},
		{"缺列", "Name,Course,Branch\nDr. Rao\nProf. Iyer,OS"},
		{"多余列", "Name\nDr. Rao,extra,more"},
		{"尾随换行", "Teacher,Subject\nA,B\nC,D\n\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rows, err := ParseCSV([]byte(tt.content))
			if err != nil {
				t.Fatalf("ParseCSV 失败: %v", err)
			}
			lines := strings.Split(strings.TrimSpace(tt.content), "\n")
			if len(rows) != len(lines)-1 {
				t.Errorf("期望 %d 行，实际 %d 行", len(lines)-1, len(rows))
			}
			headers := strings.Split(lines[0], ",")
			for i, r := range rows {
				for _, h := range headers {
					if _, ok := r[h]; !ok {
						t.Errorf("第 %d 行缺少列 %q", i, h)
					}
				}
			}
		})
	}
}

func TestParseCSV_MissingValueIsEmpty(t *testing.T) {
	rows, err := ParseCSV([]byte("Name,Course\nDr. Rao"))
	if err != nil {
		t.Fatal(err)
	}
	if got, ok := rows[0]["Course"]; !ok || got != "" {
		t.Errorf("缺失值应为空字符串，实际 %q (present=%v)", got, ok)
	}
}

func TestParseCSV_StripsQuotes(t *testing.T) {
	rows, err := ParseCSV([]byte("\"Name\", \"Course\"\n\"Dr. Rao\" , \"ML\""))
	if err != nil {
		t.Fatal(err)
	}
	want := model.Row{"Name": "Dr. Rao", "Course": "ML"}
	if !reflect.DeepEqual(rows[0], want) {
		t.Errorf("期望 %v，实际 %v", want, rows[0])
	}
}

func TestParseCSV_TooShort(t *testing.T) {
	for _, content := range []string{"", "Name,Course", "Name,Course\n\n  \n"} {
		if _, err := ParseCSV([]byte(content)); !errors.Is(err, ErrCSVTooShort) {
			t.Errorf("%q: 期望 ErrCSVTooShort，实际: %v", content, err)
		}
	}
}

// ════════════════════════════════════════════════════════════
// Workbook
// ════════════════════════════════════════════════════════════

func TestRowsFromMatrix_Headers(t *testing.T) {
	matrix := [][]string{
		{"", "", ""},
		{"", "Name", "Name", ""},
		{"x", "a", "b", "c"},
		{},
		{"", "", "  "},
		{"", "only"},
	}
	rows := rowsFromMatrix(matrix)
	want := []model.Row{
		{"__EMPTY": "x", "Name": "a", "Name_1": "b", "__EMPTY_1": "c"},
		{"Name": "only"},
	}
	if !reflect.DeepEqual(rows, want) {
		t.Errorf("期望 %v，实际 %v", want, rows)
	}
}

func TestRowsFromMatrix_WiderDataRow(t *testing.T) {
	rows := rowsFromMatrix([][]string{{"A"}, {"1", "2", "3"}})
	want := []model.Row{{"A": "1", "__EMPTY": "2", "__EMPTY_1": "3"}}
	if !reflect.DeepEqual(rows, want) {
		t.Errorf("期望 %v，实际 %v", want, rows)
	}
}

func TestOpenWorkbook_XLSX(t *testing.T) {
	content := buildXLSX(t, datasetSheets()...)

	wb, err := OpenWorkbook(".xlsx", content)
	if err != nil {
		t.Fatalf("OpenWorkbook 失败: %v", err)
	}
	if !reflect.DeepEqual(wb.SheetNames(), model.RequiredDatasetSheets) {
		t.Errorf("工作表顺序不符: %v", wb.SheetNames())
	}
	rows, err := wb.Rows(model.SheetTheoryCourses)
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != 3 || rows[0]["Course name"] != "Machine Learning" || rows[2]["Branch"] != "IT" {
		t.Errorf("Theory Courses 行不符: %v", rows)
	}
	if rows, _ := wb.Rows("Nope"); rows != nil {
		t.Errorf("不存在的工作表应返回空，实际 %v", rows)
	}
}

func TestOpenWorkbook_Corrupted(t *testing.T) {
	for _, ext := range []string{".xlsx", ".xls"} {
		if _, err := OpenWorkbook(ext, []byte("definitely not a spreadsheet")); err == nil {
			t.Errorf("%s: 损坏内容应返回错误", ext)
		}
	}
	if _, err := OpenWorkbook(".ods", nil); err == nil {
		t.Error("不支持的扩展名应返回错误")
	}
}

// ════════════════════════════════════════════════════════════
// 分类
// ════════════════════════════════════════════════════════════

func TestDetectDataType(t *testing.T) {
	tests := []struct {
		sample model.Row
		want   string
	}{
		{model.Row{"Teacher Name": "x", "Course": "y"}, model.CategoryFaculty},
		{model.Row{"Instructor": "x"}, model.CategoryFaculty},
		{model.Row{"Subject Code": "x"}, model.CategorySubjects},
		{model.Row{"Course name": "x", "Room": "y"}, model.CategorySubjects},
		{model.Row{"Classroom": "x"}, model.CategoryRooms},
		{model.Row{"Roll No": "x"}, model.CategoryStudents},
	}
	for _, tt := range tests {
		if got := DetectDataType(tt.sample); got != tt.want {
			t.Errorf("DetectDataType(%v) = %s, want %s", tt.sample, got, tt.want)
		}
	}
}

func TestCategorizeWorkbook_KnownSheets(t *testing.T) {
	content := buildXLSX(t, datasetSheets()...)
	wb, err := OpenWorkbook(".xlsx", content)
	if err != nil {
		t.Fatal(err)
	}

	data, err := CategorizeWorkbook(wb)
	if err != nil {
		t.Fatal(err)
	}
	if n := len(data[model.CategorySubjects]); n != 5 {
		t.Errorf("subjects 应合并理论课与实验课共 5 行，实际 %d", n)
	}
	if n := len(data[model.CategoryFaculty]); n != 2 {
		t.Errorf("faculty 期望 2 行，实际 %d", n)
	}
	if n := len(data[model.CategoryRooms]); n != 2 {
		t.Errorf("rooms 期望 2 行，实际 %d", n)
	}
	if n := len(data[model.CategoryStudents]); n != 1 {
		t.Errorf("students 期望 1 行，实际 %d", n)
	}
}

func TestCategorizeWorkbook_SniffFirstSheet(t *testing.T) {
	content := buildXLSX(t,
		sheetFixture{"Staff", [][]string{{"Faculty Name", "Dept"}, {"Dr. Rao", "CS"}}},
		sheetFixture{"Other", [][]string{{"Room"}, {"101"}}},
	)
	wb, err := OpenWorkbook(".xlsx", content)
	if err != nil {
		t.Fatal(err)
	}
	data, err := CategorizeWorkbook(wb)
	if err != nil {
		t.Fatal(err)
	}
	if len(data) != 1 || len(data[model.CategoryFaculty]) != 1 {
		t.Errorf("应仅按首个工作表推断为 faculty，实际 %v", data)
	}
}

func TestParseFile_CSV(t *testing.T) {
	data, err := ParseFile("rooms.csv", []byte("Room Number,Capacity\nRoom-101,60\nLab-1,30"))
	if err != nil {
		t.Fatal(err)
	}
	if len(data[model.CategoryRooms]) != 2 {
		t.Errorf("期望 rooms 2 行，实际 %v", data)
	}
}

// ════════════════════════════════════════════════════════════
// 上传校验
// ════════════════════════════════════════════════════════════

func TestValidateUpload(t *testing.T) {
	full := datasetSheets()
	noVenue := buildXLSX(t, full[:5]...)
	onlyTheory := buildXLSX(t, full[0])

	tests := []struct {
		name    string
		file    string
		content []byte
		wantMsg string
	}{
		{"完整数据集", "DS1_Dataset.xlsx", buildXLSX(t, full...), ""},
		{"缺少 Venue", "DS1_Dataset.xlsx", noVenue, "Missing required sheets: Venue"},
		{"缺少多个工作表", "IT2_Dataset.xlsx", onlyTheory,
			"Missing required sheets: Lab Courses, Faculty, Load Dist, Batch Details, Venue"},
		{"非数据集命名不检查工作表", "notes.xlsx", onlyTheory, ""},
		{"损坏的 Excel", "DS1_Dataset.xlsx", []byte("garbage"), "Invalid Excel file format or corrupted file."},
		{"CSV 只有表头", "a.csv", []byte("Name,Course"),
			"Invalid CSV file: CSV file must have at least a header and one data row"},
		{"合法 CSV", "a.csv", []byte("Name,Course\nDr. Rao,ML"), ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateUpload(tt.file, tt.content)
			if tt.wantMsg == "" {
				if err != nil {
					t.Fatalf("期望通过，实际: %v", err)
				}
				return
			}
			var appErr *apperrors.AppError
			if !errors.As(err, &appErr) || appErr.Kind != apperrors.KindValidation {
				t.Fatalf("期望 Validation 错误，实际: %v", err)
			}
			if appErr.Message != tt.wantMsg {
				t.Errorf("期望 %q，实际 %q", tt.wantMsg, appErr.Message)
			}
		})
	}
}

func ExampleParseCSV() {
	rows, _ := ParseCSV([]byte("Name,Course\nDr. Rao,ML\nProf. Iyer"))
	for _, r := range rows {
		fmt.Printf("%q %q\n", r["Name"], r["Course"])
	}
	// Output:
	// "Dr. Rao" "ML"
	// "Prof. Iyer" ""
}
