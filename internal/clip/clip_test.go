package clip

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/John-Robertt/moanip/internal/domain"
	"github.com/John-Robertt/moanip/internal/infra/fsx"
)

func chunkedServer(t *testing.T, status int, chunks [][]byte) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "audio/mpeg")
		w.WriteHeader(status)
		fl, _ := w.(http.Flusher)
		for _, c := range chunks {
			_, _ = w.Write(c)
			if fl != nil {
				fl.Flush()
			}
		}
	}))
}

func mustURL(t *testing.T, s string) *url.URL {
	t.Helper()
	u, err := url.Parse(s)
	require.NoError(t, err)
	return u
}

func TestDownload_WritesChunksInOrderToScopedFile(t *testing.T) {
	chunks := [][]byte{
		[]byte("ID3"),
		bytes.Repeat([]byte{0xAA}, ChunkSize+7),
		[]byte("tail"),
	}
	var want []byte
	for _, c := range chunks {
		want = append(want, c...)
	}

	srv := chunkedServer(t, http.StatusOK, chunks)
	defer srv.Close()

	f, err := fsx.CreateScoped(t.TempDir(), "")
	require.NoError(t, err)
	defer f.Close()

	n, err := Download(context.Background(), srv.Client(), mustURL(t, srv.URL+"/clip.mp3"), f, false)
	require.NoError(t, err)
	assert.EqualValues(t, len(want), n)

	size, err := f.Size()
	require.NoError(t, err)
	assert.Equal(t, n, size, "返回的字节数应等于文件最终大小")

	require.NoError(t, fsx.Rewind(f))
	got, err := io.ReadAll(f)
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestDownload_StatusPolicy(t *testing.T) {
	srv := chunkedServer(t, http.StatusNotFound, [][]byte{[]byte("not found page")})
	defer srv.Close()
	u := mustURL(t, srv.URL+"/clip.mp3")

	var buf bytes.Buffer
	n, err := Download(context.Background(), srv.Client(), u, &buf, false)
	require.NoError(t, err)
	assert.EqualValues(t, len("not found page"), n)

	buf.Reset()
	_, err = Download(context.Background(), srv.Client(), u, &buf, true)
	require.Error(t, err)
	assert.Equal(t, domain.KindHTTPStatus, domain.KindOf(err))
	assert.Zero(t, buf.Len())
}

func TestDownload_ReadErrorAborts(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// 声明 100 字节但只写 10 字节后断开：客户端读取得到 unexpected EOF。
		w.Header().Set("Content-Length", "100")
		_, _ = w.Write([]byte("0123456789"))
		if hj, ok := w.(http.Hijacker); ok {
			conn, _, err := hj.Hijack()
			if err == nil {
				_ = conn.Close()
			}
		}
	}))
	defer srv.Close()

	var buf bytes.Buffer
	_, err := Download(context.Background(), srv.Client(), mustURL(t, srv.URL), &buf, false)
	require.Error(t, err)
	assert.Equal(t, domain.KindHTTPTransport, domain.KindOf(err))
}

func TestDownload_WriteErrorIsIO(t *testing.T) {
	srv := chunkedServer(t, http.StatusOK, [][]byte{[]byte("data")})
	defer srv.Close()

	_, err := Download(context.Background(), srv.Client(), mustURL(t, srv.URL), failWriter{}, false)
	require.Error(t, err)
	assert.Equal(t, domain.KindIO, domain.KindOf(err))
	assert.ErrorIs(t, err, os.ErrPermission)
}

func TestDownload_NilArgs(t *testing.T) {
	_, err := Download(context.Background(), http.DefaultClient, nil, &bytes.Buffer{}, false)
	assert.Equal(t, domain.KindURLParse, domain.KindOf(err))

	_, err = Download(context.Background(), http.DefaultClient, mustURL(t, "http://x.test/"), nil, false)
	assert.Equal(t, domain.KindIO, domain.KindOf(err))
}

func TestCopyChunks_ZeroWriteIsShortWrite(t *testing.T) {
	_, err := copyChunks(zeroWriter{}, bytes.NewReader([]byte("abc")), "test")
	require.Error(t, err)
	assert.True(t, errors.Is(err, io.ErrShortWrite))
}

type failWriter struct{}

func (failWriter) Write([]byte) (int, error) { return 0, os.ErrPermission }

type zeroWriter struct{}

func (zeroWriter) Write([]byte) (int, error) { return 0, nil }
