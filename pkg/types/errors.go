package types

import (
	"errors"
	"fmt"
)

// ErrorKind 错误分类，透传到 HTTP 响应
type ErrorKind string

const (
	KindValidation  ErrorKind = "validation"
	KindUpstream    ErrorKind = "upstream"
	KindParse       ErrorKind = "parse"
	KindInvalidPath ErrorKind = "invalid_path"
	KindSuperseded  ErrorKind = "superseded"
	KindTransport   ErrorKind = "transport"
	KindInternal    ErrorKind = "internal"
)

// ErrSuperseded 同一会话的新搜索取代了当前搜索
var ErrSuperseded = errors.New("搜索已被同一会话的新请求取代")

// ValidationError 入站请求字段不合法
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return "无效的请求参数: " + e.Reason
	}
	return fmt.Sprintf("无效的请求参数 %s: %s", e.Field, e.Reason)
}

// UpstreamError 搜索 API 返回非 2xx 状态
type UpstreamError struct {
	StatusCode int
	Body       string
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("HTTP Error: %d", e.StatusCode)
}

// ParseError 搜索 API 成功响应但内容不合法
type ParseError struct {
	Err error
}

func (e *ParseError) Error() string {
	return "解析搜索响应失败: " + e.Err.Error()
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// InvalidPathError 命中记录的 filepath 无法拆分为路径段
type InvalidPathError struct {
	Path  string
	Index int
}

func (e *InvalidPathError) Error() string {
	return fmt.Sprintf("第 %d 条记录的路径无效: %q", e.Index, e.Path)
}

// KindOf 返回错误所属分类
func KindOf(err error) ErrorKind {
	var (
		validationErr *ValidationError
		upstreamErr   *UpstreamError
		parseErr      *ParseError
		pathErr       *InvalidPathError
	)

	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrSuperseded):
		return KindSuperseded
	case errors.As(err, &validationErr):
		return KindValidation
	case errors.As(err, &upstreamErr):
		return KindUpstream
	case errors.As(err, &parseErr):
		return KindParse
	case errors.As(err, &pathErr):
		return KindInvalidPath
	case errors.As(err, new(*TransportError)):
		return KindTransport
	default:
		return KindInternal
	}
}

// TransportError 请求未能到达搜索 API 或中途失败
type TransportError struct {
	Err error
}

func (e *TransportError) Error() string {
	return "请求搜索 API 失败: " + e.Err.Error()
}

func (e *TransportError) Unwrap() error {
	return e.Err
}
