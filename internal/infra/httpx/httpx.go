package httpx

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/rs/zerolog"

	"github.com/John-Robertt/moanip/internal/domain"
)

// Transport 在底层 RoundTripper 之上记录每次请求（debug 级别）。
//
// 约束：不改写请求（不加 header、不重试）；只观察。
type Transport struct {
	Base http.RoundTripper
	Log  zerolog.Logger
}

func (t *Transport) RoundTrip(req *http.Request) (*http.Response, error) {
	if req == nil {
		return nil, errors.New("nil request")
	}
	base := t.Base
	if base == nil {
		base = http.DefaultTransport
	}

	started := time.Now()
	resp, err := base.RoundTrip(req)
	dur := time.Since(started)
	if err != nil {
		t.Log.Debug().Str("method", req.Method).Str("url", req.URL.String()).Dur("dur", dur).Err(err).Msg("http request failed")
		return nil, err
	}
	t.Log.Debug().Str("method", req.Method).Str("url", req.URL.String()).Int("status", resp.StatusCode).Int64("content_length", resp.ContentLength).Dur("dur", dur).Msg("http response")
	return resp, nil
}

// Options 控制 NewClient 的构造。
type Options struct {
	// Timeout 为 0 表示不设超时（整个请求含 body 读取）。
	Timeout time.Duration
	Logger  zerolog.Logger

	// Base 为空时使用 http.DefaultTransport（测试可注入）。
	Base http.RoundTripper
}

// NewClient 构造整个进程共享的 HTTP client：启动时构造一次，按参数传给各阶段。
func NewClient(opts Options) *http.Client {
	return &http.Client{
		Transport: &Transport{Base: opts.Base, Log: opts.Logger},
		Timeout:   opts.Timeout,
	}
}

// GetText 以“完整 body 文本”模式 GET u，返回 body 与状态码（状态码不做解释）。
func GetText(ctx context.Context, c *http.Client, u string) (string, int, error) {
	body, status, err := Open(ctx, c, u)
	if err != nil {
		return "", 0, err
	}
	defer body.Close()

	b, err := io.ReadAll(body)
	if err != nil {
		return "", status, domain.Wrap(domain.KindHTTPTransport, "GET "+u, err)
	}
	return string(b), status, nil
}

// Open 以“流式 body”模式 GET u；调用方负责关闭返回的 body。
func Open(ctx context.Context, c *http.Client, u string) (io.ReadCloser, int, error) {
	if c == nil {
		return nil, 0, errors.New("http client 不能为空")
	}
	pu, err := url.Parse(u)
	if err != nil {
		return nil, 0, domain.Wrap(domain.KindURLParse, u, err)
	}
	if !pu.IsAbs() {
		return nil, 0, domain.Wrap(domain.KindURLParse, u, errors.New("URL 必须是绝对地址"))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pu.String(), nil)
	if err != nil {
		return nil, 0, domain.Wrap(domain.KindHTTPTransport, "GET "+u, err)
	}
	resp, err := c.Do(req)
	if err != nil {
		return nil, 0, domain.Wrap(domain.KindHTTPTransport, "GET "+u, err)
	}
	return resp.Body, resp.StatusCode, nil
}

// CheckStatus 在 strict 模式下把非 2xx 转为 KindHTTPStatus；非 strict 模式总是返回 nil。
func CheckStatus(strict bool, u string, status int) error {
	if !strict || (status >= 200 && status < 300) {
		return nil
	}
	return &domain.Error{Kind: domain.KindHTTPStatus, Err: &domain.StatusError{URL: u, StatusCode: status}}
}
