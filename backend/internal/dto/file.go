package dto

import (
	"time"

	"sutra/backend/internal/model"
)

// ── 文件上传 ──

// UploadResponse 上传成功响应
type UploadResponse struct {
	Success  bool   `json:"success"`
	Message  string `json:"message"`
	FileName string `json:"fileName"`
	FilePath string `json:"filePath"`
	FileType string `json:"fileType"`
}

// ── 文件列表 ──

// FileDetail 单个文件信息
type FileDetail struct {
	Name       string    `json:"name"`
	Size       int64     `json:"size"`
	UploadDate time.Time `json:"uploadDate"`
	Type       string    `json:"type"`
}

// FileListResponse 文件列表响应
type FileListResponse struct {
	Success     bool         `json:"success"`
	Files       []string     `json:"files"`
	FileDetails []FileDetail `json:"fileDetails"`
}

// ── 文件解析 ──

// ParseResponse 解析结果响应
type ParseResponse struct {
	Success  bool             `json:"success"`
	Data     model.ParsedData `json:"data"`
	Filename string           `json:"filename"`
}
