package service

import (
	"testing"

	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"sutra/backend/internal/model"
	"sutra/backend/internal/repository"
)

// ── 测试辅助 ──

type sheetFixture struct {
	name string
	rows [][]string
}

// buildXLSX 按顺序生成包含指定工作表的 xlsx 内容
func buildXLSX(t *testing.T, sheets ...sheetFixture) []byte {
	t.Helper()

	f := excelize.NewFile()
	defer f.Close()

	for i, s := range sheets {
		if i == 0 {
			if err := f.SetSheetName("Sheet1", s.name); err != nil {
				t.Fatalf("重命名工作表失败: %v", err)
			}
		} else if _, err := f.NewSheet(s.name); err != nil {
			t.Fatalf("创建工作表失败: %v", err)
		}
		for r, row := range s.rows {
			values := make([]interface{}, len(row))
			for c, v := range row {
				values[c] = v
			}
			addr, _ := excelize.CoordinatesToCellName(1, r+1)
			if err := f.SetSheetRow(s.name, addr, &values); err != nil {
				t.Fatalf("写入行失败: %v", err)
			}
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		t.Fatalf("生成 xlsx 失败: %v", err)
	}
	return buf.Bytes()
}

// datasetSheets 完整的六个工作表，包含 DS/1 与 IT/2 两组数据
func datasetSheets() []sheetFixture {
	return []sheetFixture{
		{model.SheetTheoryCourses, [][]string{
			{"Course name", "Branch", "Division", "Credits"},
			{"Machine Learning", "DS", "1", "4"},
			{"Statistics", "DS", "1", "3"},
			{"Operating Systems", "IT", "2", "4"},
		}},
		{model.SheetLabCourses, [][]string{
			{"Course name", "Branch", "Division"},
			{"ML Lab", "DS", "1"},
			{"OS Lab", "IT", "2"},
		}},
		{model.SheetFaculty, [][]string{
			{"Name", "Course", "Branch", "Division"},
			{"Dr. Rao", "Machine Learning", "DS", "1"},
			{"Prof. Iyer", "Operating Systems", "IT", "2"},
		}},
		{model.SheetLoadDist, [][]string{
			{"Faculty", "Hours", "Branch", "Division"},
			{"Dr. Rao", "12", "DS", "1"},
		}},
		{model.SheetBatchDetails, [][]string{
			{"Batch", "Students", "Branch", "Division"},
			{"B1", "30", "DS", "1"},
		}},
		{model.SheetVenue, [][]string{
			{"Room Number", "Capacity"},
			{"Room-201", "60"},
			{"Lab-301", "30"},
		}},
	}
}

func newTestRepo() *repository.Repository {
	return repository.NewRepository(repository.NewMemoryFileRepo(), zap.NewNop())
}
