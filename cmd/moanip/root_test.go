package main

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/John-Robertt/moanip/internal/audio"
	"github.com/John-Robertt/moanip/internal/config"
)

type fakeStream struct {
	*bytes.Reader
}

func (fakeStream) SampleRate() int { return 22050 }
func (fakeStream) Length() int64   { return -1 }

type fakeDecoder struct{}

func (fakeDecoder) Decode(r io.ReadSeeker) (audio.Stream, error) {
	if _, err := r.Seek(0, io.SeekStart); err != nil {
		return nil, err
	}
	b, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	return fakeStream{bytes.NewReader(b)}, nil
}

type fakeSink struct{ played int }

func (s *fakeSink) Play(_ context.Context, st audio.Stream) error {
	n, err := io.Copy(io.Discard, st)
	s.played = int(n)
	return err
}

type harness struct {
	env    cliEnv
	stdout *bytes.Buffer
	stderr *bytes.Buffer
	sink   *fakeSink
}

func newHarness(t *testing.T, vars map[string]string) *harness {
	t.Helper()
	h := &harness{stdout: &bytes.Buffer{}, stderr: &bytes.Buffer{}, sink: &fakeSink{}}
	if vars == nil {
		vars = map[string]string{}
	}
	if _, ok := vars[config.EnvTmpDir]; !ok {
		vars[config.EnvTmpDir] = t.TempDir()
	}
	h.env = cliEnv{
		stdout:     h.stdout,
		stderr:     h.stderr,
		getenv:     config.MapEnv(vars),
		dotEnvPath: filepath.Join(t.TempDir(), "absent.env"),
		decoder:    fakeDecoder{},
		newSink:    func() audio.Sink { return h.sink },
	}
	return h
}

func site(t *testing.T, body string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/":
			_, _ = io.WriteString(w, body)
		case "/clip123.mp3":
			_, _ = w.Write(bytes.Repeat([]byte{0x7f}, 1024))
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

const okPage = `<html><body>
<div class="content"><div class="ip">8.8.8.8</div></div>
<div id="audio-container"><audio src="/clip123.mp3"></audio></div>
</body></html>`

func TestExecute_EndToEnd_PrintsIPAndExitsZero(t *testing.T) {
	srv := site(t, okPage)
	h := newHarness(t, nil)

	code := execute(context.Background(), []string{"--base-url", srv.URL}, h.env)

	require.Equal(t, exitOK, code, "stderr=%s", h.stderr.String())
	assert.Equal(t, "8.8.8.8\n", h.stdout.String())
	assert.Equal(t, 1024, h.sink.played)
	assert.True(t, strings.HasPrefix(h.stderr.String(), attribution), "stderr 应以署名两行开头：%q", h.stderr.String())
	assert.NotContains(t, h.stderr.String(), "audio clip downloaded", "默认 info 级别不输出字节数")
}

func TestExecute_EndToEnd_MissingIP(t *testing.T) {
	srv := site(t, `<html><body><div id="audio-container"><audio src="/clip123.mp3"></audio></div></body></html>`)
	h := newHarness(t, map[string]string{config.EnvBaseURL: srv.URL})

	code := execute(context.Background(), nil, h.env)

	assert.Equal(t, exitFailed, code)
	assert.Empty(t, h.stdout.String())
	assert.Contains(t, h.stderr.String(), "Error: external IP address could not be extracted")
	assert.Zero(t, h.sink.played)
}

func TestExecute_VerboseLogsByteCount(t *testing.T) {
	srv := site(t, okPage)
	h := newHarness(t, map[string]string{config.EnvBaseURL: srv.URL})

	code := execute(context.Background(), []string{"-v"}, h.env)

	require.Equal(t, exitOK, code, "stderr=%s", h.stderr.String())
	assert.Contains(t, h.stderr.String(), "audio clip downloaded")
	assert.Contains(t, h.stderr.String(), "bytes=1024")
}

func TestExecute_MOANIPLogDebugLogsByteCount(t *testing.T) {
	srv := site(t, okPage)
	h := newHarness(t, map[string]string{config.EnvBaseURL: srv.URL, config.EnvLog: "debug"})

	require.Equal(t, exitOK, execute(context.Background(), nil, h.env))
	assert.Contains(t, h.stderr.String(), "bytes=1024")
}

func TestExecute_UsageErrors(t *testing.T) {
	cases := []struct {
		name string
		args []string
		vars map[string]string
	}{
		{"unknown flag", []string{"--nope"}, nil},
		{"positional arg", []string{"extra"}, nil},
		{"bad base url flag", []string{"--base-url", "not a url"}, nil},
		{"bad env level", nil, map[string]string{config.EnvLog: "shout"}},
		{"bad env timeout", nil, map[string]string{config.EnvTimeout: "forever"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			h := newHarness(t, tc.vars)
			code := execute(context.Background(), tc.args, h.env)
			assert.Equal(t, exitUsage, code, "stderr=%s", h.stderr.String())
			assert.Empty(t, h.stdout.String())
			assert.Contains(t, h.stderr.String(), "Error: ")
		})
	}
}

func TestExecute_StrictStatusFlag(t *testing.T) {
	srv := site(t, `<html><body>
<div class="content"><div class="ip">8.8.8.8</div></div>
<div id="audio-container"><audio src="/gone.mp3"></audio></div>
</body></html>`)
	h := newHarness(t, map[string]string{config.EnvBaseURL: srv.URL})

	code := execute(context.Background(), []string{"--strict-status"}, h.env)

	assert.Equal(t, exitFailed, code)
	assert.Equal(t, "8.8.8.8\n", h.stdout.String())
	assert.Contains(t, h.stderr.String(), "HTTP 404")
}

func TestNewRootCmd_Metadata(t *testing.T) {
	cmd := newRootCmd(context.Background(), newHarness(t, nil).env)
	assert.Equal(t, "moanip", cmd.Use)
	assert.NotEmpty(t, cmd.Short)
	assert.NotEmpty(t, cmd.Version)
	for _, name := range []string{"base-url", "verbose", "strict-status", "timeout"} {
		assert.NotNil(t, cmd.Flags().Lookup(name), name)
	}
}
