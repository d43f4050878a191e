package run

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/John-Robertt/moanip/internal/audio"
	"github.com/John-Robertt/moanip/internal/clip"
	"github.com/John-Robertt/moanip/internal/config"
	"github.com/John-Robertt/moanip/internal/domain"
	"github.com/John-Robertt/moanip/internal/infra/fsx"
	"github.com/John-Robertt/moanip/internal/page"
)

// Deps 是一次运行需要的外部依赖；在 main 里构造一次后按值传入。
type Deps struct {
	Client  *http.Client
	Decoder audio.Decoder
	Sink    audio.Sink

	// Stdout 只接收 IP 一行。
	Stdout io.Writer
	Log    zerolog.Logger
}

func (d Deps) validate() error {
	switch {
	case d.Client == nil:
		return errors.New("http client 不能为空")
	case d.Decoder == nil:
		return errors.New("decoder 不能为空")
	case d.Sink == nil:
		return errors.New("sink 不能为空")
	case d.Stdout == nil:
		return errors.New("stdout 不能为空")
	}
	return nil
}

// Execute 按固定顺序执行一次完整流水线：
//
//	init → fetched_page → extracted_ip（打印） → downloaded → decoded → playing → done
//
// 任一步失败立即返回（不重试、不降级）；失败前已经打印的 IP 不会撤回。
// 临时文件在返回前删除（成功/失败都一样）。
func Execute(ctx context.Context, eff config.EffectiveConfig, deps Deps, obs Observer) error {
	if err := deps.validate(); err != nil {
		return err
	}
	if obs == nil {
		obs = nopObserver{}
	}

	m := &machine{obs: obs, at: domain.StageInit, since: time.Now()}
	obs.OnStage(domain.StageInit, 0)

	doc, err := page.FetchFrontPage(ctx, deps.Client, eff.BaseURL, eff.StrictStatus)
	if err != nil {
		return m.fail(err)
	}
	m.advance(domain.StageFetchedPage)

	ip, err := page.ExtractIP(doc)
	if err != nil {
		return m.fail(err)
	}
	if _, err := fmt.Fprintln(deps.Stdout, ip); err != nil {
		return m.fail(domain.Wrap(domain.KindIO, "write stdout", err))
	}
	m.advance(domain.StageExtractedIP)

	clipURL, err := page.ExtractAudioURL(doc, eff.BaseURL)
	if err != nil {
		return m.fail(err)
	}

	f, err := fsx.CreateScoped(eff.TempDir, fsx.DefaultPattern)
	if err != nil {
		return m.fail(domain.Wrap(domain.KindIO, "create temp file", err))
	}
	defer func() {
		if cerr := f.Close(); cerr != nil {
			deps.Log.Warn().Err(cerr).Msg("temp file cleanup failed")
		}
	}()

	size, err := clip.Download(ctx, deps.Client, clipURL, f, eff.StrictStatus)
	if err != nil {
		return m.fail(err)
	}
	deps.Log.Debug().Int64("bytes", size).Str("url", clipURL.String()).Msg("audio clip downloaded")
	if err := fsx.Rewind(f); err != nil {
		return m.fail(domain.Wrap(domain.KindIO, "rewind temp file", err))
	}
	m.advance(domain.StageDownloaded)

	stream, err := deps.Decoder.Decode(f)
	if err != nil {
		return m.fail(err)
	}
	deps.Log.Debug().Int("sample_rate", stream.SampleRate()).Float64("seconds", audio.Duration(stream)).Msg("audio clip decoded")
	m.advance(domain.StageDecoded)

	m.advance(domain.StagePlaying)
	if err := deps.Sink.Play(ctx, stream); err != nil {
		return m.fail(err)
	}
	m.advance(domain.StageDone)
	return nil
}

// machine 记录当前阶段，保证事件按顺序发出。
type machine struct {
	obs   Observer
	at    domain.Stage
	since time.Time
}

func (m *machine) advance(to domain.Stage) {
	next, ok := m.at.Next()
	if !ok || next != to {
		// 编程错误：阶段只能沿成功路径逐个推进。
		panic(fmt.Sprintf("run: 非法阶段转移 %s -> %s", m.at, to))
	}
	now := time.Now()
	m.obs.OnStage(to, now.Sub(m.since))
	m.at = to
	m.since = now
}

func (m *machine) fail(err error) error {
	m.obs.OnFailed(m.at, err)
	m.at = domain.StageFailed
	return err
}

type nopObserver struct{}

func (nopObserver) OnStage(domain.Stage, time.Duration) {}
func (nopObserver) OnFailed(domain.Stage, error)        {}
