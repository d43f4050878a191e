// Package clip 把音频资源以流式方式下载到调用方提供的 Writer。
package clip

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/url"

	"github.com/John-Robertt/moanip/internal/domain"
	"github.com/John-Robertt/moanip/internal/infra/httpx"
)

// ChunkSize 是单次读取的缓冲大小。
const ChunkSize = 32 << 10

// Download 流式 GET u，把每个到达的数据块原样按顺序写入 dst，返回写入的总字节数。
//
// 约束：
// - 不重试：任一读取失败即中止（KindHTTPTransport）
// - 不限大小、不做校验：流正常结束即视为完整
// - 写入失败归为 KindIO
func Download(ctx context.Context, c *http.Client, u *url.URL, dst io.Writer, strict bool) (int64, error) {
	if u == nil {
		return 0, domain.Wrap(domain.KindURLParse, "", errors.New("clip URL 为空"))
	}
	if dst == nil {
		return 0, domain.Wrap(domain.KindIO, "", errors.New("dst 为空"))
	}

	raw := u.String()
	body, status, err := httpx.Open(ctx, c, raw)
	if err != nil {
		return 0, err
	}
	defer body.Close()

	if err := httpx.CheckStatus(strict, raw, status); err != nil {
		return 0, err
	}
	return copyChunks(dst, body, raw)
}

func copyChunks(dst io.Writer, src io.Reader, op string) (int64, error) {
	buf := make([]byte, ChunkSize)
	var size int64
	for {
		n, rerr := src.Read(buf)
		if n > 0 {
			if err := writeAll(dst, buf[:n]); err != nil {
				return size, domain.Wrap(domain.KindIO, "write clip", err)
			}
			size += int64(n)
		}
		if rerr == io.EOF {
			return size, nil
		}
		if rerr != nil {
			return size, domain.Wrap(domain.KindHTTPTransport, "GET "+op, rerr)
		}
	}
}

func writeAll(w io.Writer, b []byte) error {
	for len(b) > 0 {
		n, err := w.Write(b)
		if err != nil {
			return err
		}
		if n == 0 {
			return io.ErrShortWrite
		}
		b = b[n:]
	}
	return nil
}
