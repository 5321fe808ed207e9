package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"sutra/backend/internal/dto"
	"sutra/backend/internal/model"
	"sutra/backend/internal/repository"
	apperrors "sutra/backend/pkg/errors"
	"sutra/backend/pkg/metrics"
)

// ── 文件模块错误消息 ──

const (
	MsgNoFileSelected     = "Please select a file to upload."
	MsgInvalidExtension   = "Only Excel files (.xlsx, .xls) and CSV files are allowed!"
	MsgFileNotFound       = "File not found."
	MsgFileListFailed     = "Failed to retrieve file list."
	MsgParseFailed        = "Failed to parse file."
	MsgDeleteFailed       = "Failed to delete file."
	MsgUploadFailedPrefix = "An error occurred during file upload: "
)

// FileTooLargeMessage 超出上传上限的提示
func FileTooLargeMessage(maxBytes int64) string {
	return fmt.Sprintf("File size too large. Maximum size is %dMB.", maxBytes/(1024*1024))
}

// FileService 上传文件管理接口
type FileService interface {
	// Upload 保存并校验上传文件，校验失败时删除已写入的文件
	Upload(ctx context.Context, name string, size int64, content io.Reader) (*dto.UploadResponse, error)
	List(ctx context.Context) (*dto.FileListResponse, error)
	Parse(ctx context.Context, name string) (model.ParsedData, error)
	Delete(ctx context.Context, name string) error
}

type fileService struct {
	repo     *repository.Repository
	maxBytes int64
	logger   *zap.Logger
}

// NewFileService 创建 FileService 实例
func NewFileService(repo *repository.Repository, maxBytes int64, logger *zap.Logger) FileService {
	return &fileService{repo: repo, maxBytes: maxBytes, logger: logger}
}

// ════════════════════════════════════════════════════════════
// Upload
// ════════════════════════════════════════════════════════════
//
// 流程：扩展名校验 → 大小校验 → 写入存储 → 结构校验（失败则删除）

func (s *fileService) Upload(ctx context.Context, name string, size int64, content io.Reader) (*dto.UploadResponse, error) {
	name = filepath.Base(name)
	ext := strings.ToLower(filepath.Ext(name))
	if !model.IsAllowedExt(ext) {
		metrics.UploadsTotal.WithLabelValues("rejected").Inc()
		return nil, apperrors.Validation(MsgInvalidExtension)
	}
	if size > s.maxBytes {
		metrics.UploadsTotal.WithLabelValues("rejected").Inc()
		return nil, apperrors.Validation(FileTooLargeMessage(s.maxBytes))
	}

	// 客户端声明的 size 不可信，多读一个字节判断是否超限
	data, err := io.ReadAll(io.LimitReader(content, s.maxBytes+1))
	if err != nil {
		metrics.UploadsTotal.WithLabelValues("failed").Inc()
		return nil, apperrors.Internal(MsgUploadFailedPrefix+err.Error(), err)
	}
	if int64(len(data)) > s.maxBytes {
		metrics.UploadsTotal.WithLabelValues("rejected").Inc()
		return nil, apperrors.Validation(FileTooLargeMessage(s.maxBytes))
	}

	if err := s.repo.File.Write(ctx, name, data); err != nil {
		s.logger.Error("写入上传文件失败", zap.String("file", name), zap.Error(err))
		metrics.UploadsTotal.WithLabelValues("failed").Inc()
		return nil, apperrors.Internal(MsgUploadFailedPrefix+err.Error(), err)
	}

	if err := ValidateUpload(name, data); err != nil {
		if delErr := s.repo.File.Delete(ctx, name); delErr != nil {
			s.logger.Warn("清理未通过校验的文件失败", zap.String("file", name), zap.Error(delErr))
		}
		s.logger.Info("上传文件未通过校验", zap.String("file", name), zap.Error(err))
		metrics.UploadsTotal.WithLabelValues("rejected").Inc()
		return nil, err
	}

	s.logger.Info("文件上传成功", zap.String("file", name), zap.Int("bytes", len(data)))
	metrics.UploadsTotal.WithLabelValues("accepted").Inc()

	return &dto.UploadResponse{
		Success:  true,
		Message:  fmt.Sprintf("File '%s' uploaded successfully to backend!", name),
		FileName: name,
		FilePath: s.repo.File.Location(name),
		FileType: strings.ToUpper(strings.TrimPrefix(ext, ".")),
	}, nil
}

// ════════════════════════════════════════════════════════════
// List / Parse / Delete
// ════════════════════════════════════════════════════════════

func (s *fileService) List(ctx context.Context) (*dto.FileListResponse, error) {
	all, err := s.repo.File.List(ctx)
	if err != nil {
		s.logger.Error("列举上传目录失败", zap.Error(err))
		return nil, apperrors.Internal(MsgFileListFailed, err)
	}

	resp := &dto.FileListResponse{
		Success:     true,
		Files:       make([]string, 0, len(all)),
		FileDetails: make([]dto.FileDetail, 0, len(all)),
	}
	for _, f := range all {
		if !model.IsAllowedExt(f.Ext()) {
			continue
		}
		resp.Files = append(resp.Files, f.Name)
		resp.FileDetails = append(resp.FileDetails, dto.FileDetail{
			Name:       f.Name,
			Size:       f.Size,
			UploadDate: f.ModTime,
			Type:       f.Type(),
		})
	}
	return resp, nil
}

func (s *fileService) Parse(ctx context.Context, name string) (model.ParsedData, error) {
	ok, err := s.repo.File.Exists(ctx, name)
	if err != nil {
		return nil, apperrors.Internal(MsgParseFailed, err)
	}
	if !ok {
		return nil, apperrors.NotFound(MsgFileNotFound)
	}

	content, err := s.repo.File.Read(ctx, name)
	if err != nil {
		if errors.Is(err, repository.ErrFileNotFound) {
			return nil, apperrors.NotFound(MsgFileNotFound)
		}
		return nil, apperrors.Internal(MsgParseFailed, err)
	}

	data, err := ParseFile(name, content)
	if err != nil {
		s.logger.Error("解析文件失败", zap.String("file", name), zap.Error(err))
		return nil, apperrors.Internal(MsgParseFailed, err)
	}
	return data, nil
}

func (s *fileService) Delete(ctx context.Context, name string) error {
	ok, err := s.repo.File.Exists(ctx, name)
	if err != nil {
		return apperrors.Internal(MsgDeleteFailed, err)
	}
	if !ok {
		return apperrors.NotFound(MsgFileNotFound)
	}

	if err := s.repo.File.Delete(ctx, name); err != nil {
		if errors.Is(err, repository.ErrFileNotFound) {
			return apperrors.NotFound(MsgFileNotFound)
		}
		s.logger.Error("删除文件失败", zap.String("file", name), zap.Error(err))
		return apperrors.Internal(MsgDeleteFailed, err)
	}
	s.logger.Info("文件已删除", zap.String("file", name))
	return nil
}
