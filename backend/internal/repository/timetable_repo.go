package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"go.uber.org/zap"

	"sutra/backend/internal/model"
)

const (
	timetablePrefix = "timetable_"
	timetableSuffix = ".json"
)

// IsTimetableFile 判断文件名是否为课表快照
func IsTimetableFile(name string) bool {
	return strings.HasPrefix(name, timetablePrefix) && strings.HasSuffix(name, timetableSuffix)
}

// nameTokenReplacer 文件名中的 branch/division 不能含路径成分
var nameTokenReplacer = strings.NewReplacer("/", "-", "\\", "-", "..", "-")

// TimetableFileName 快照文件名 timetable_<branch>_<division>_<epochMillis>.json
// 快照内容保留原始 branch/division，文件名只用清洗后的值
func TimetableFileName(t *model.StoredTimetable) string {
	return fmt.Sprintf("%s%s_%s_%d%s",
		timetablePrefix,
		nameTokenReplacer.Replace(t.Branch),
		nameTokenReplacer.Replace(t.Division),
		t.GeneratedAt.UnixMilli(),
		timetableSuffix,
	)
}

// TimetableRepository 课表快照数据访问接口
type TimetableRepository interface {
	// Save 写入新快照并返回文件名
	Save(ctx context.Context, t *model.StoredTimetable) (string, error)
	Get(ctx context.Context, name string) (*model.StoredTimetable, error)
	// List 按 branch/division 过滤，按生成时间倒序
	List(ctx context.Context, branch, division string) ([]model.StoredTimetableFile, error)
}

type timetableRepo struct {
	files  FileRepository
	logger *zap.Logger
}

// NewTimetableRepo 创建基于 FileRepository 的快照仓储
func NewTimetableRepo(files FileRepository, logger *zap.Logger) TimetableRepository {
	return &timetableRepo{files: files, logger: logger}
}

func (r *timetableRepo) Save(ctx context.Context, t *model.StoredTimetable) (string, error) {
	name := TimetableFileName(t)
	data, err := json.MarshalIndent(t, "", "  ")
	if err != nil {
		return "", err
	}
	if err := r.files.Write(ctx, name, data); err != nil {
		return "", err
	}
	return name, nil
}

func (r *timetableRepo) Get(ctx context.Context, name string) (*model.StoredTimetable, error) {
	if !IsTimetableFile(name) {
		return nil, ErrFileNotFound
	}
	data, err := r.files.Read(ctx, name)
	if err != nil {
		return nil, err
	}
	var t model.StoredTimetable
	if err := json.Unmarshal(data, &t); err != nil {
		return nil, fmt.Errorf("解析课表快照 %s 失败: %w", name, err)
	}
	return &t, nil
}

func (r *timetableRepo) List(ctx context.Context, branch, division string) ([]model.StoredTimetableFile, error) {
	all, err := r.files.List(ctx)
	if err != nil {
		return nil, err
	}

	result := make([]model.StoredTimetableFile, 0)
	for _, f := range all {
		if !IsTimetableFile(f.Name) {
			continue
		}
		t, err := r.Get(ctx, f.Name)
		if err != nil {
			r.logger.Warn("跳过无法读取的课表快照", zap.String("file", f.Name), zap.Error(err))
			continue
		}
		if !matchesFilter(f.Name, t, branch, division) {
			continue
		}
		result = append(result, model.StoredTimetableFile{Filename: f.Name, StoredTimetable: *t})
	}

	sort.SliceStable(result, func(i, j int) bool {
		return result[i].GeneratedAt.After(result[j].GeneratedAt.Time)
	})
	return result, nil
}

// matchesFilter 文件名或快照内容包含过滤词即视为匹配（不区分大小写）
func matchesFilter(name string, t *model.StoredTimetable, branch, division string) bool {
	lowerName := strings.ToLower(name)
	if branch != "" {
		b := strings.ToLower(branch)
		if !strings.Contains(lowerName, b) && !strings.Contains(strings.ToLower(t.Branch), b) {
			return false
		}
	}
	if division != "" {
		d := strings.ToLower(division)
		if !strings.Contains(lowerName, d) && !strings.Contains(strings.ToLower(t.Division), d) {
			return false
		}
	}
	return true
}
