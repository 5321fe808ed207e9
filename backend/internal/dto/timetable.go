package dto

import "sutra/backend/internal/model"

// ── 课表生成 ──

// GenerateRequest 生成课表请求
// 时长与课间参数仅作为元数据回显，生成器不消费
type GenerateRequest struct {
	Branch         string `json:"branch" binding:"required"`
	Division       string `json:"division" binding:"required"`
	Year           string `json:"year"`
	TheoryDuration int    `json:"theoryDuration" binding:"omitempty,min=0"`
	LabDuration    int    `json:"labDuration" binding:"omitempty,min=0"`
	ShortBreaks    int    `json:"shortBreaks" binding:"omitempty,min=0"`
	LongBreaks     int    `json:"longBreaks" binding:"omitempty,min=0"`
}

// Constraints 返回参数回显，零值取默认
func (r *GenerateRequest) Constraints() *model.Constraints {
	return &model.Constraints{
		TheoryDuration: defaultInt(r.TheoryDuration, 60),
		LabDuration:    defaultInt(r.LabDuration, 120),
		ShortBreaks:    defaultInt(r.ShortBreaks, 2),
		LongBreaks:     defaultInt(r.LongBreaks, 1),
	}
}

func defaultInt(v, def int) int {
	if v == 0 {
		return def
	}
	return v
}

// GenerateResult 生成结果
type GenerateResult struct {
	Branch      string          `json:"branch"`
	Division    string          `json:"division"`
	Year        string          `json:"year"`
	Timetable   model.Table     `json:"timetable"`
	GeneratedAt model.Timestamp `json:"generatedAt"`
	Filename    string          `json:"filename,omitempty"`
}

// ── 查询已存课表 ──

// TimetableQuery 课表列表过滤条件
type TimetableQuery struct {
	Branch   string `form:"branch"`
	Division string `form:"division"`
}

// ExportQuery 导出格式
type ExportQuery struct {
	Format string `form:"format" binding:"omitempty,oneof=xlsx ics"`
}

// ── 专业/班级发现 ──

// BranchesDivisions 可选专业与班级
type BranchesDivisions struct {
	Branches       []string        `json:"branches"`
	Divisions      []string        `json:"divisions"`
	AvailableFiles []string        `json:"availableFiles,omitempty"`
	Debug          *DiscoveryDebug `json:"debug,omitempty"`
	Message        string          `json:"message,omitempty"`
}

// DiscoveryDebug 发现过程统计
type DiscoveryDebug struct {
	TotalFiles     int `json:"totalFiles"`
	BranchesFound  int `json:"branchesFound"`
	DivisionsFound int `json:"divisionsFound"`
}
