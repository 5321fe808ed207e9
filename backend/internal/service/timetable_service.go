package service

import (
	"context"
	"fmt"
	"regexp"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"

	"sutra/backend/internal/dto"
	"sutra/backend/internal/model"
	"sutra/backend/internal/repository"
	apperrors "sutra/backend/pkg/errors"
	"sutra/backend/pkg/metrics"
)

// ── 课表模块错误消息 ──

const (
	MsgNoExcelUploaded   = "No Excel files uploaded yet"
	MsgNoExcelForGen     = "No Excel files found in uploads folder. Please upload data first."
	MsgDiscoverFailedPfx = "Failed to fetch available branches and divisions: "
	MsgListFailedPfx     = "Failed to fetch timetables: "
)

// NoDataMessage 过滤后没有任何课程
func NoDataMessage(branch, division string) string {
	return fmt.Sprintf("No data found for branch: %s, division: %s. Please check your data.", branch, division)
}

// datasetFilePattern 从文件名中提取专业与班级，如 DS1_Dataset.xlsx
var datasetFilePattern = regexp.MustCompile(`^([A-Za-z]+)(\d+)_Dataset\.(xlsx|xls)$`)

// discoverySheets 文件名无法识别时读取这些工作表的 Branch/Division 列
var discoverySheets = []string{
	model.SheetTheoryCourses,
	model.SheetLabCourses,
	model.SheetFaculty,
	model.SheetBatchDetails,
}

// ── TimetableService 接口 ──────────────────────────────────
//
//   - 源文件解析顺序：<branch><division>_Dataset 精确匹配 → 文件名同时包含
//     branch 与 division → 第一个 Excel 文件
//   - 各工作表按 Branch/Division 子串过滤，Venue 不过滤
//   - 每次生成写入一个新快照，写入失败只记日志
// ─────────────────────────────────────────────────────────────

// TimetableService 课表生成与查询接口
type TimetableService interface {
	DiscoverBranchesDivisions(ctx context.Context) (*dto.BranchesDivisions, error)
	Generate(ctx context.Context, req *dto.GenerateRequest) (*dto.GenerateResult, error)
	ListStored(ctx context.Context, query *dto.TimetableQuery) ([]model.StoredTimetableFile, error)
}

type timetableService struct {
	repo   *repository.Repository
	seed   int64
	now    func() time.Time
	logger *zap.Logger
}

// NewTimetableService 创建 TimetableService 实例
// seed 为 0 时每次生成使用当前时间作为洗牌种子
func NewTimetableService(repo *repository.Repository, seed int64, logger *zap.Logger) TimetableService {
	return &timetableService{repo: repo, seed: seed, now: time.Now, logger: logger}
}

// ════════════════════════════════════════════════════════════
// DiscoverBranchesDivisions
// ════════════════════════════════════════════════════════════

func (s *timetableService) DiscoverBranchesDivisions(ctx context.Context) (*dto.BranchesDivisions, error) {
	excelFiles, err := s.excelFiles(ctx)
	if err != nil {
		return nil, apperrors.Internal(MsgDiscoverFailedPfx+err.Error(), err)
	}
	if len(excelFiles) == 0 {
		return &dto.BranchesDivisions{
			Branches:  []string{},
			Divisions: []string{},
			Message:   MsgNoExcelUploaded,
		}, nil
	}

	branches := make(map[string]struct{})
	divisions := make(map[string]struct{})
	for _, name := range excelFiles {
		if m := datasetFilePattern.FindStringSubmatch(name); m != nil {
			branches[m[1]] = struct{}{}
			divisions[m[2]] = struct{}{}
		}
	}

	if len(branches) == 0 || len(divisions) == 0 {
		wb, err := s.openWorkbook(ctx, excelFiles[0])
		if err != nil {
			s.logger.Error("读取工作簿失败", zap.String("file", excelFiles[0]), zap.Error(err))
			return nil, apperrors.Internal(MsgDiscoverFailedPfx+err.Error(), err)
		}
		for _, sheet := range discoverySheets {
			if !wb.HasSheet(sheet) {
				continue
			}
			rows, err := wb.Rows(sheet)
			if err != nil {
				return nil, apperrors.Internal(MsgDiscoverFailedPfx+err.Error(), err)
			}
			for _, r := range rows {
				if b := r.First("Branch", "branch", "BRANCH"); b != "" {
					branches[b] = struct{}{}
				}
				if d := r.First("Division", "division", "DIVISION", "Div"); d != "" {
					divisions[d] = struct{}{}
				}
			}
		}
	}

	result := &dto.BranchesDivisions{
		Branches:       sortedKeys(branches),
		Divisions:      sortedKeys(divisions),
		AvailableFiles: excelFiles,
	}
	result.Debug = &dto.DiscoveryDebug{
		TotalFiles:     len(excelFiles),
		BranchesFound:  len(result.Branches),
		DivisionsFound: len(result.Divisions),
	}
	return result, nil
}

// ════════════════════════════════════════════════════════════
// Generate
// ════════════════════════════════════════════════════════════
//
// 流程：定位源文件 → 读取并过滤工作表 → 生成 → 写入快照 → 返回

func (s *timetableService) Generate(ctx context.Context, req *dto.GenerateRequest) (*dto.GenerateResult, error) {
	source, byName, err := s.resolveSource(ctx, req.Branch, req.Division)
	if err != nil {
		metrics.GenerationsTotal.WithLabelValues("failed").Inc()
		return nil, err
	}

	bundle, err := s.loadBundle(ctx, source, req.Branch, req.Division, byName)
	if err != nil {
		metrics.GenerationsTotal.WithLabelValues("failed").Inc()
		return nil, err
	}
	if len(bundle.TheoryCourses) == 0 && len(bundle.LabCourses) == 0 {
		s.logger.Info("过滤后无课程数据",
			zap.String("file", source),
			zap.String("branch", req.Branch),
			zap.String("division", req.Division),
		)
		metrics.GenerationsTotal.WithLabelValues("no_data").Inc()
		return nil, apperrors.Internal(NoDataMessage(req.Branch, req.Division), nil)
	}

	seed := s.seed
	if seed == 0 {
		seed = s.now().UnixNano()
	}
	table := GenerateTimetable(*bundle, seed)

	stored := &model.StoredTimetable{
		Branch:      req.Branch,
		Division:    req.Division,
		Year:        req.Year,
		GeneratedAt: model.Timestamp{Time: s.now().UTC().Truncate(time.Millisecond)},
		Constraints: req.Constraints(),
		Timetable:   table,
	}

	filename, err := s.repo.Timetable.Save(ctx, stored)
	if err != nil {
		s.logger.Warn("保存课表快照失败", zap.Error(err))
		filename = ""
	}

	s.logger.Info("课表生成完成",
		zap.String("source", source),
		zap.String("branch", req.Branch),
		zap.String("division", req.Division),
		zap.Int("rows", len(table.Rows)),
		zap.String("snapshot", filename),
	)
	metrics.GenerationsTotal.WithLabelValues("ok").Inc()
	metrics.GeneratedEntries.Observe(float64(len(table.Rows)))

	return &dto.GenerateResult{
		Branch:      stored.Branch,
		Division:    stored.Division,
		Year:        stored.Year,
		Timetable:   table,
		GeneratedAt: stored.GeneratedAt,
		Filename:    filename,
	}, nil
}

// resolveSource 返回源文件名，以及是否通过文件名匹配到
func (s *timetableService) resolveSource(ctx context.Context, branch, division string) (string, bool, error) {
	excelFiles, err := s.excelFiles(ctx)
	if err != nil {
		return "", false, apperrors.Internal("", err)
	}
	if len(excelFiles) == 0 {
		return "", false, apperrors.Internal(MsgNoExcelForGen, nil)
	}

	prefix := strings.ToLower(branch + division + "_Dataset")
	for _, name := range excelFiles {
		lower := strings.ToLower(name)
		if lower == prefix+".xlsx" || lower == prefix+".xls" {
			return name, true, nil
		}
	}

	b, d := strings.ToLower(branch), strings.ToLower(division)
	for _, name := range excelFiles {
		lower := strings.ToLower(name)
		if strings.Contains(lower, b) && strings.Contains(lower, d) {
			return name, true, nil
		}
	}

	s.logger.Info("未找到匹配的数据文件，使用首个 Excel 文件并按行过滤", zap.String("file", excelFiles[0]))
	return excelFiles[0], false, nil
}

// loadBundle 读取源文件并按 branch/division 过滤
// 按文件名匹配到的源文件若过滤后理论课与实验课都为空，则改用未过滤数据
func (s *timetableService) loadBundle(ctx context.Context, source, branch, division string, byName bool) (*model.DataBundle, error) {
	wb, err := s.openWorkbook(ctx, source)
	if err != nil {
		s.logger.Error("读取源文件失败", zap.String("file", source), zap.Error(err))
		return nil, apperrors.Internal("", err)
	}

	sheets := make(map[string][]model.Row, len(model.RequiredDatasetSheets))
	for _, name := range model.RequiredDatasetSheets {
		rows, err := wb.Rows(name)
		if err != nil {
			return nil, apperrors.Internal("", err)
		}
		sheets[name] = rows
	}

	theory := filterRows(sheets[model.SheetTheoryCourses], branch, division)
	labs := filterRows(sheets[model.SheetLabCourses], branch, division)
	faculty := filterRows(sheets[model.SheetFaculty], branch, division)

	if byName && len(theory) == 0 && len(labs) == 0 {
		s.logger.Info("按专业/班级过滤后无数据，使用整份文件", zap.String("file", source))
		theory = sheets[model.SheetTheoryCourses]
		labs = sheets[model.SheetLabCourses]
		faculty = sheets[model.SheetFaculty]
	}

	s.logger.Debug("过滤后数据量",
		zap.Int("theory", len(theory)),
		zap.Int("lab", len(labs)),
		zap.Int("faculty", len(faculty)),
		zap.Int("load_dist", len(filterRows(sheets[model.SheetLoadDist], branch, division))),
		zap.Int("batches", len(filterRows(sheets[model.SheetBatchDetails], branch, division))),
	)

	return &model.DataBundle{
		TheoryCourses: theory,
		LabCourses:    labs,
		Faculty:       faculty,
		Venues:        sheets[model.SheetVenue],
		Branch:        branch,
		Division:      division,
	}, nil
}

// filterRows Branch 与 Division 均包含查询值（不区分大小写）
func filterRows(rows []model.Row, branch, division string) []model.Row {
	b, d := strings.ToLower(branch), strings.ToLower(division)
	var out []model.Row
	for _, r := range rows {
		rb := strings.ToLower(r.First("Branch", "branch"))
		rd := strings.ToLower(r.First("Division", "division"))
		if strings.Contains(rb, b) && strings.Contains(rd, d) {
			out = append(out, r)
		}
	}
	return out
}

// ════════════════════════════════════════════════════════════
// ListStored
// ════════════════════════════════════════════════════════════

func (s *timetableService) ListStored(ctx context.Context, query *dto.TimetableQuery) ([]model.StoredTimetableFile, error) {
	list, err := s.repo.Timetable.List(ctx, query.Branch, query.Division)
	if err != nil {
		s.logger.Error("查询课表快照失败", zap.Error(err))
		return nil, apperrors.Internal(MsgListFailedPfx+err.Error(), err)
	}
	return list, nil
}

// ── 辅助函数 ──

// excelFiles 上传目录中的 Excel 文件（排除课表快照）
func (s *timetableService) excelFiles(ctx context.Context) ([]string, error) {
	all, err := s.repo.File.List(ctx)
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(all))
	for _, f := range all {
		if model.IsExcelExt(f.Ext()) && !strings.HasPrefix(f.Name, "timetable_") {
			names = append(names, f.Name)
		}
	}
	return names, nil
}

func (s *timetableService) openWorkbook(ctx context.Context, name string) (Workbook, error) {
	content, err := s.repo.File.Read(ctx, name)
	if err != nil {
		return nil, err
	}
	return OpenWorkbook(model.UploadedFile{Name: name}.Ext(), content)
}

func sortedKeys(set map[string]struct{}) []string {
	keys := make([]string, 0, len(set))
	for k := range set {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
