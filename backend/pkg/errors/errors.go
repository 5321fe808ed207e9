// Package errors 定义业务错误分类，Handler 据此映射 HTTP 状态码。
package errors

import (
	"errors"
	"net/http"
)

// Kind 错误类别
type Kind int

const (
	KindInternal Kind = iota
	KindValidation
	KindNotFound
)

// AppError 带分类的业务错误，Message 原样返回给客户端
type AppError struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *AppError) Error() string {
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// Validation 400 类错误
func Validation(msg string) *AppError {
	return &AppError{Kind: KindValidation, Message: msg}
}

// NotFound 404 类错误
func NotFound(msg string) *AppError {
	return &AppError{Kind: KindNotFound, Message: msg}
}

// Internal 500 类错误；msg 为空时使用 err 的文本
func Internal(msg string, err error) *AppError {
	if msg == "" && err != nil {
		msg = err.Error()
	}
	return &AppError{Kind: KindInternal, Message: msg, Err: err}
}

// StatusOf 返回 err 对应的 HTTP 状态码与对外消息
func StatusOf(err error) (int, string) {
	var appErr *AppError
	if errors.As(err, &appErr) {
		switch appErr.Kind {
		case KindValidation:
			return http.StatusBadRequest, appErr.Message
		case KindNotFound:
			return http.StatusNotFound, appErr.Message
		default:
			return http.StatusInternalServerError, appErr.Message
		}
	}
	return http.StatusInternalServerError, err.Error()
}
