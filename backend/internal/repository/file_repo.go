package repository

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"sutra/backend/internal/model"
)

// ErrFileNotFound 目标文件不存在
var ErrFileNotFound = errors.New("file not found")

// FileRepository 以文件名为键的目录存储
//
// 文件名不做清洗，同名上传直接覆盖；Read/Delete 先探测存在性再操作。
type FileRepository interface {
	List(ctx context.Context) ([]model.UploadedFile, error)
	Stat(ctx context.Context, name string) (model.UploadedFile, error)
	Exists(ctx context.Context, name string) (bool, error)
	Read(ctx context.Context, name string) ([]byte, error)
	Write(ctx context.Context, name string, data []byte) error
	Delete(ctx context.Context, name string) error
	// Location 返回文件的对外展示路径
	Location(name string) string
}

// ── 本地磁盘实现 ──

type localFileRepo struct {
	dir string
}

// NewLocalFileRepo 创建磁盘存储，目录不存在时自动创建
func NewLocalFileRepo(dir string) (FileRepository, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("创建上传目录失败 %s: %w", dir, err)
	}
	return &localFileRepo{dir: dir}, nil
}

// path 仅保留 base name，防止越出上传目录
func (r *localFileRepo) path(name string) string {
	return filepath.Join(r.dir, filepath.Base(name))
}

func (r *localFileRepo) List(_ context.Context) ([]model.UploadedFile, error) {
	entries, err := os.ReadDir(r.dir)
	if err != nil {
		return nil, err
	}
	files := make([]model.UploadedFile, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		info, err := e.Info()
		if err != nil {
			// 列举与 stat 之间被删除
			continue
		}
		files = append(files, model.UploadedFile{
			Name:    e.Name(),
			Size:    info.Size(),
			ModTime: info.ModTime(),
		})
	}
	return files, nil
}

func (r *localFileRepo) Stat(_ context.Context, name string) (model.UploadedFile, error) {
	info, err := os.Stat(r.path(name))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return model.UploadedFile{}, ErrFileNotFound
		}
		return model.UploadedFile{}, err
	}
	return model.UploadedFile{Name: info.Name(), Size: info.Size(), ModTime: info.ModTime()}, nil
}

func (r *localFileRepo) Exists(ctx context.Context, name string) (bool, error) {
	_, err := r.Stat(ctx, name)
	if errors.Is(err, ErrFileNotFound) {
		return false, nil
	}
	return err == nil, err
}

func (r *localFileRepo) Read(ctx context.Context, name string) ([]byte, error) {
	ok, err := r.Exists(ctx, name)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrFileNotFound
	}
	return os.ReadFile(r.path(name))
}

func (r *localFileRepo) Write(_ context.Context, name string, data []byte) error {
	return os.WriteFile(r.path(name), data, 0o644)
}

func (r *localFileRepo) Delete(ctx context.Context, name string) error {
	ok, err := r.Exists(ctx, name)
	if err != nil {
		return err
	}
	if !ok {
		return ErrFileNotFound
	}
	return os.Remove(r.path(name))
}

func (r *localFileRepo) Location(name string) string {
	return r.path(name)
}

// ── 内存实现 ──

type memoryFile struct {
	data    []byte
	modTime time.Time
}

type memoryFileRepo struct {
	mu    sync.RWMutex
	files map[string]memoryFile
	now   func() time.Time
}

// NewMemoryFileRepo 创建内存存储（测试与 storage.driver=memory 使用）
func NewMemoryFileRepo() FileRepository {
	return &memoryFileRepo{files: make(map[string]memoryFile), now: time.Now}
}

func (r *memoryFileRepo) List(_ context.Context) ([]model.UploadedFile, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	files := make([]model.UploadedFile, 0, len(r.files))
	for name, f := range r.files {
		files = append(files, model.UploadedFile{Name: name, Size: int64(len(f.data)), ModTime: f.modTime})
	}
	// 与 os.ReadDir 一致按文件名排序
	sort.Slice(files, func(i, j int) bool { return files[i].Name < files[j].Name })
	return files, nil
}

func (r *memoryFileRepo) Stat(_ context.Context, name string) (model.UploadedFile, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	f, ok := r.files[name]
	if !ok {
		return model.UploadedFile{}, ErrFileNotFound
	}
	return model.UploadedFile{Name: name, Size: int64(len(f.data)), ModTime: f.modTime}, nil
}

func (r *memoryFileRepo) Exists(ctx context.Context, name string) (bool, error) {
	_, err := r.Stat(ctx, name)
	if errors.Is(err, ErrFileNotFound) {
		return false, nil
	}
	return err == nil, err
}

func (r *memoryFileRepo) Read(_ context.Context, name string) ([]byte, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	f, ok := r.files[name]
	if !ok {
		return nil, ErrFileNotFound
	}
	return bytes.Clone(f.data), nil
}

func (r *memoryFileRepo) Write(_ context.Context, name string, data []byte) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.files[name] = memoryFile{data: bytes.Clone(data), modTime: r.now()}
	return nil
}

func (r *memoryFileRepo) Delete(_ context.Context, name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.files[name]; !ok {
		return ErrFileNotFound
	}
	delete(r.files, name)
	return nil
}

func (r *memoryFileRepo) Location(name string) string {
	return "memory://" + name
}
