package model

import (
	"path/filepath"
	"strings"
	"time"
)

// UploadedFile 上传目录中的一个文件
type UploadedFile struct {
	Name    string
	Size    int64
	ModTime time.Time
}

// Ext 小写扩展名（含点），如 ".xlsx"
func (f UploadedFile) Ext() string {
	return strings.ToLower(filepath.Ext(f.Name))
}

// Type 大写类型标识，如 "XLSX"
func (f UploadedFile) Type() string {
	return strings.ToUpper(strings.TrimPrefix(f.Ext(), "."))
}

// 允许上传的数据文件扩展名
var AllowedExtensions = []string{".xlsx", ".xls", ".csv"}

// IsAllowedExt 判断扩展名是否为可接受的数据文件
func IsAllowedExt(ext string) bool {
	ext = strings.ToLower(ext)
	for _, e := range AllowedExtensions {
		if e == ext {
			return true
		}
	}
	return false
}

// IsExcelExt 是否为 Excel 工作簿
func IsExcelExt(ext string) bool {
	ext = strings.ToLower(ext)
	return ext == ".xlsx" || ext == ".xls"
}
