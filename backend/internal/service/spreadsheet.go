package service

import (
	"bytes"
	"errors"
	"fmt"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/extrame/xls"
	"github.com/xuri/excelize/v2"

	"sutra/backend/internal/model"
	apperrors "sutra/backend/pkg/errors"
)

// ── 表格解析器 ──────────────────────────────────────────────
//
// 职责：将上传的 CSV / Excel 文件解析为按分类组织的行集合。
//
//   - CSV 按行切分，首行为表头，逐列按位置配对
//   - .xlsx 使用 excelize，.xls 使用 extrame/xls，统一为 Workbook 接口
//   - 识别固定工作表名；无法识别时根据首个工作表表头关键字推断分类
// ─────────────────────────────────────────────────────────────

// ErrCSVTooShort CSV 至少需要表头与一行数据
var ErrCSVTooShort = errors.New("CSV file must have at least a header and one data row")

// datasetNamePattern 严格命名的数据集文件，上传时需校验完整工作表
var datasetNamePattern = regexp.MustCompile(`^[A-Za-z]+\d+_Dataset\.xlsx$`)

// xlsCharset .xls 文本解码字符集
const xlsCharset = "utf-8"

// ole2Magic .xls (BIFF) 所在 OLE2 复合文档的文件头
var ole2Magic = []byte{0xD0, 0xCF, 0x11, 0xE0, 0xA1, 0xB1, 0x1A, 0xE1}

// Workbook 工作簿的只读视图
type Workbook interface {
	SheetNames() []string
	HasSheet(name string) bool
	// Rows 返回工作表数据行；工作表不存在时返回空
	Rows(sheet string) ([]model.Row, error)
}

// ParseCSV 解析 CSV 内容
//
// 不处理引号内的逗号：按逗号切分后去掉所有双引号。
func ParseCSV(content []byte) ([]model.Row, error) {
	lines := strings.Split(strings.TrimSpace(string(content)), "\n")
	if len(lines) < 2 {
		return nil, ErrCSVTooShort
	}

	headers := splitCSVLine(lines[0])
	rows := make([]model.Row, 0, len(lines)-1)
	for _, line := range lines[1:] {
		if strings.TrimSpace(line) == "" {
			continue
		}
		values := splitCSVLine(line)
		row := make(model.Row, len(headers))
		for i, h := range headers {
			if i < len(values) {
				row[h] = values[i]
			} else {
				row[h] = ""
			}
		}
		rows = append(rows, row)
	}
	return rows, nil
}

func splitCSVLine(line string) []string {
	parts := strings.Split(line, ",")
	for i, p := range parts {
		parts[i] = strings.ReplaceAll(strings.TrimSpace(p), `"`, "")
	}
	return parts
}

// OpenWorkbook 根据扩展名打开 Excel 工作簿
func OpenWorkbook(ext string, data []byte) (Workbook, error) {
	switch strings.ToLower(ext) {
	case ".xlsx":
		f, err := excelize.OpenReader(bytes.NewReader(data))
		if err != nil {
			return nil, fmt.Errorf("打开 xlsx 失败: %w", err)
		}
		return newXLSXWorkbook(f)
	case ".xls":
		return openXLS(data)
	default:
		return nil, fmt.Errorf("不支持的工作簿类型 %q", ext)
	}
}

// ── xlsx ──

// xlsxWorkbook 打开时即读出全部单元格并关闭文件
type xlsxWorkbook struct {
	names  []string
	sheets map[string][][]string
}

func newXLSXWorkbook(f *excelize.File) (*xlsxWorkbook, error) {
	defer f.Close()

	wb := &xlsxWorkbook{sheets: make(map[string][][]string)}
	for _, name := range f.GetSheetList() {
		rows, err := f.GetRows(name)
		if err != nil {
			return nil, fmt.Errorf("读取工作表 %s 失败: %w", name, err)
		}
		wb.names = append(wb.names, name)
		wb.sheets[name] = rows
	}
	return wb, nil
}

func (w *xlsxWorkbook) SheetNames() []string { return w.names }

func (w *xlsxWorkbook) HasSheet(name string) bool {
	_, ok := w.sheets[name]
	return ok
}

func (w *xlsxWorkbook) Rows(sheet string) ([]model.Row, error) {
	return rowsFromMatrix(w.sheets[sheet]), nil
}

// ── xls ──

type xlsWorkbook struct {
	names  []string
	sheets map[string][][]string
}

// openXLS extrame/xls 在遇到损坏的 BIFF 数据时可能 panic，此处转为错误
func openXLS(data []byte) (wb Workbook, err error) {
	defer func() {
		if r := recover(); r != nil {
			wb, err = nil, fmt.Errorf("打开 xls 失败: %v", r)
		}
	}()

	if !bytes.HasPrefix(data, ole2Magic) {
		return nil, errors.New("打开 xls 失败: 不是 OLE2 复合文档")
	}
	f, err := xls.OpenReader(bytes.NewReader(data), xlsCharset)
	if err != nil {
		return nil, fmt.Errorf("打开 xls 失败: %w", err)
	}
	return newXLSWorkbook(f), nil
}

func newXLSWorkbook(wb *xls.WorkBook) *xlsWorkbook {
	w := &xlsWorkbook{sheets: make(map[string][][]string)}
	for i := 0; i < wb.NumSheets(); i++ {
		sheet := wb.GetSheet(i)
		if sheet == nil {
			continue
		}
		var matrix [][]string
		for r := 0; r <= int(sheet.MaxRow); r++ {
			row := sheet.Row(r)
			if row == nil {
				matrix = append(matrix, nil)
				continue
			}
			cells := make([]string, 0, row.LastCol())
			for c := 0; c < row.LastCol(); c++ {
				cells = append(cells, row.Col(c))
			}
			matrix = append(matrix, cells)
		}
		w.names = append(w.names, sheet.Name)
		w.sheets[sheet.Name] = matrix
	}
	return w
}

func (w *xlsWorkbook) SheetNames() []string { return w.names }

func (w *xlsWorkbook) HasSheet(name string) bool {
	_, ok := w.sheets[name]
	return ok
}

func (w *xlsWorkbook) Rows(sheet string) ([]model.Row, error) {
	return rowsFromMatrix(w.sheets[sheet]), nil
}

// rowsFromMatrix 首个非空行作为表头，其余行转为 Row
//
//   - 空表头命名为 __EMPTY、__EMPTY_1 …
//   - 重复表头追加 _1、_2 …
//   - 空单元格不写入 Row；整行为空则跳过
func rowsFromMatrix(matrix [][]string) []model.Row {
	start := 0
	for start < len(matrix) && isBlankRow(matrix[start]) {
		start++
	}
	if start >= len(matrix) {
		return nil
	}

	width := 0
	for _, cells := range matrix[start:] {
		width = max(width, len(cells))
	}
	headerCells := make([]string, width)
	copy(headerCells, matrix[start])
	headers := buildHeaders(headerCells)

	var rows []model.Row
	for _, cells := range matrix[start+1:] {
		row := make(model.Row)
		for i, v := range cells {
			if v = strings.TrimSpace(v); v != "" {
				row[headers[i]] = v
			}
		}
		if len(row) > 0 {
			rows = append(rows, row)
		}
	}
	return rows
}

func buildHeaders(cells []string) []string {
	headers := make([]string, len(cells))
	seen := make(map[string]int)
	empty := 0
	for i, c := range cells {
		h := strings.TrimSpace(c)
		if h == "" {
			headers[i] = emptyHeader(empty)
			empty++
			continue
		}
		if n, dup := seen[h]; dup {
			seen[h] = n + 1
			headers[i] = fmt.Sprintf("%s_%d", h, n+1)
			continue
		}
		seen[h] = 0
		headers[i] = h
	}
	return headers
}

func emptyHeader(n int) string {
	if n == 0 {
		return "__EMPTY"
	}
	return fmt.Sprintf("__EMPTY_%d", n)
}

func isBlankRow(cells []string) bool {
	for _, c := range cells {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}

// DetectDataType 根据表头关键字推断数据分类
func DetectDataType(sample model.Row) string {
	keys := make([]string, 0, len(sample))
	for k := range sample {
		keys = append(keys, strings.ToLower(k))
	}
	switch {
	case anyContains(keys, "teacher", "faculty", "instructor"):
		return model.CategoryFaculty
	case anyContains(keys, "subject", "course"):
		return model.CategorySubjects
	case anyContains(keys, "room", "classroom", "venue"):
		return model.CategoryRooms
	default:
		return model.CategoryStudents
	}
}

func anyContains(keys []string, needles ...string) bool {
	for _, k := range keys {
		for _, n := range needles {
			if strings.Contains(k, n) {
				return true
			}
		}
	}
	return false
}

// CategorizeCSV 将 CSV 行按首行推断的分类归档
func CategorizeCSV(rows []model.Row) model.ParsedData {
	data := make(model.ParsedData)
	if len(rows) > 0 {
		data[DetectDataType(rows[0])] = rows
	}
	return data
}

// CategorizeWorkbook 将工作簿按固定工作表名归类
func CategorizeWorkbook(wb Workbook) (model.ParsedData, error) {
	data := make(model.ParsedData)

	read := func(sheet string) ([]model.Row, error) {
		rows, err := wb.Rows(sheet)
		if err != nil {
			return nil, err
		}
		if rows == nil {
			rows = []model.Row{}
		}
		return rows, nil
	}

	mapping := []struct {
		sheet    string
		category string
	}{
		{model.SheetTheoryCourses, model.CategorySubjects},
		{model.SheetLabCourses, model.CategorySubjects},
		{model.SheetFaculty, model.CategoryFaculty},
		{model.SheetVenue, model.CategoryRooms},
		{model.SheetBatchDetails, model.CategoryStudents},
	}
	for _, m := range mapping {
		if !wb.HasSheet(m.sheet) {
			continue
		}
		rows, err := read(m.sheet)
		if err != nil {
			return nil, err
		}
		if existing, ok := data[m.category]; ok {
			data[m.category] = append(existing, rows...)
		} else {
			data[m.category] = rows
		}
	}

	names := wb.SheetNames()
	if len(data) == 0 && len(names) > 0 {
		rows, err := read(names[0])
		if err != nil {
			return nil, err
		}
		if len(rows) > 0 {
			data[DetectDataType(rows[0])] = rows
		}
	}
	return data, nil
}

// ParseFile 按扩展名解析文件内容
func ParseFile(name string, content []byte) (model.ParsedData, error) {
	ext := strings.ToLower(filepath.Ext(name))
	if ext == ".csv" {
		rows, err := ParseCSV(content)
		if err != nil {
			return nil, err
		}
		return CategorizeCSV(rows), nil
	}
	wb, err := OpenWorkbook(ext, content)
	if err != nil {
		return nil, err
	}
	return CategorizeWorkbook(wb)
}

// ValidateUpload 上传后的结构校验，返回 Validation 类错误
func ValidateUpload(name string, content []byte) error {
	ext := strings.ToLower(filepath.Ext(name))

	if ext == ".csv" {
		rows, err := ParseCSV(content)
		if err != nil {
			return apperrors.Validation("Invalid CSV file: " + err.Error())
		}
		if len(rows) == 0 {
			return apperrors.Validation("CSV file contains no data.")
		}
		return nil
	}

	wb, err := OpenWorkbook(ext, content)
	if err != nil {
		return apperrors.Validation("Invalid Excel file format or corrupted file.")
	}
	if len(wb.SheetNames()) == 0 {
		return apperrors.Validation("Excel file contains no sheets.")
	}

	if datasetNamePattern.MatchString(name) {
		var missing []string
		for _, s := range model.RequiredDatasetSheets {
			if !wb.HasSheet(s) {
				missing = append(missing, s)
			}
		}
		if len(missing) > 0 {
			return apperrors.Validation("Missing required sheets: " + strings.Join(missing, ", "))
		}
	}
	return nil
}
