package domain

import (
	"errors"
	"fmt"
)

// Kind 是错误分类（稳定字符串，可用于日志字段与测试断言）。
type Kind string

const (
	KindHTTPTransport       Kind = "http_transport"
	KindHTTPStatus          Kind = "http_status"
	KindURLParse            Kind = "url_parse"
	KindIO                  Kind = "io"
	KindSelector            Kind = "selector_invalid"
	KindExternalIPMissing   Kind = "external_ip_missing"
	KindAudioClipSrcMissing Kind = "audio_clip_src_missing"
	KindAudioDevice         Kind = "audio_device"
	KindAudioDecode         Kind = "audio_decode"
)

var (
	// ErrExternalIPMissing 表示页面中没有 IP 展示结构（站点改版或返回了非预期页面）。
	ErrExternalIPMissing = &Error{Kind: KindExternalIPMissing}

	// ErrAudioClipSrcMissing 表示页面中没有带 src 的 audio 元素。
	ErrAudioClipSrcMissing = &Error{Kind: KindAudioClipSrcMissing}
)

// Error 是流水线各阶段统一的错误类型。
//
// 约束：
// - Kind 必填；Op 可选（例如 "GET https://..."），只用于排障
// - Err 是底层原因，通过 Unwrap 暴露给 errors.Is/As
type Error struct {
	Kind Kind
	Op   string
	Err  error
}

func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}
	msg := e.title()
	if e.Op != "" {
		msg += " (" + e.Op + ")"
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

func (e *Error) title() string {
	switch e.Kind {
	case KindHTTPTransport:
		return "HTTP error"
	case KindHTTPStatus:
		return "HTTP status error"
	case KindURLParse:
		return "URL parse error"
	case KindIO:
		return "I/O error"
	case KindSelector:
		return "invalid selector"
	case KindExternalIPMissing:
		return "external IP address could not be extracted"
	case KindAudioClipSrcMissing:
		return "audio clip could not be extracted"
	case KindAudioDevice:
		return "audio device error"
	case KindAudioDecode:
		return "audio decode error"
	default:
		return string(e.Kind)
	}
}

func (e *Error) Unwrap() error { return e.Err }

// Is 让 errors.Is 按 Kind 比较：ErrExternalIPMissing 等哨兵错误与带 Op/Err 的同类错误视为相等。
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok || t == nil {
		return false
	}
	return e.Kind == t.Kind
}

// Wrap 构造带原因的错误；err 为 nil 时返回 nil，方便在 return 语句里直接使用。
func Wrap(kind Kind, op string, err error) error {
	if err == nil {
		return nil
	}
	return &Error{Kind: kind, Op: op, Err: err}
}

// KindOf 从 err 链中提取第一个 *Error 的 Kind；不是 *Error 时返回空串。
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

// StatusError 是 HTTP 非 2xx 的原因（仅在 strict 模式下产生）。
type StatusError struct {
	URL        string
	StatusCode int
}

func (e *StatusError) Error() string {
	if e == nil {
		return "HTTP status error"
	}
	return fmt.Sprintf("HTTP %d: %s", e.StatusCode, e.URL)
}
