package audio

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/ebitengine/oto/v3"

	"github.com/John-Robertt/moanip/internal/domain"
)

// pollInterval 是检查播放是否结束的间隔。
const pollInterval = 50 * time.Millisecond

// OtoSink 在系统默认输出设备上播放。
//
// 约束：oto 每个进程只允许一个 Context；首次 Play 时按流的采样率打开设备，
// 之后的流必须使用相同采样率（否则返回 KindAudioDevice）。
type OtoSink struct {
	// BufferSize 为 0 时使用 oto 的默认缓冲。
	BufferSize time.Duration

	mu   sync.Mutex
	ctx  *oto.Context
	rate int
}

func (s *OtoSink) context(rate int) (*oto.Context, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.ctx != nil {
		if s.rate != rate {
			return nil, fmt.Errorf("输出设备已按 %d Hz 打开，无法播放 %d Hz 的流", s.rate, rate)
		}
		return s.ctx, nil
	}

	c, ready, err := oto.NewContext(&oto.NewContextOptions{
		SampleRate:   rate,
		ChannelCount: ChannelCount,
		Format:       oto.FormatSignedInt16LE,
		BufferSize:   s.BufferSize,
	})
	if err != nil {
		return nil, err
	}
	<-ready
	s.ctx = c
	s.rate = rate
	return c, nil
}

// Play 把 st 排入默认设备并阻塞到播放结束。
func (s *OtoSink) Play(ctx context.Context, st Stream) error {
	if st == nil {
		return domain.Wrap(domain.KindAudioDecode, "", errors.New("stream 为空"))
	}
	c, err := s.context(st.SampleRate())
	if err != nil {
		return domain.Wrap(domain.KindAudioDevice, "open default output", err)
	}
	if err := c.Err(); err != nil {
		return domain.Wrap(domain.KindAudioDevice, "default output", err)
	}

	p := c.NewPlayer(st)
	p.Play()

	t := time.NewTicker(pollInterval)
	defer t.Stop()
	for p.IsPlaying() {
		select {
		case <-ctx.Done():
			p.Pause()
			return ctx.Err()
		case <-t.C:
		}
	}

	if err := p.Err(); err != nil {
		return domain.Wrap(domain.KindAudioDecode, "playback", err)
	}
	if err := c.Err(); err != nil {
		return domain.Wrap(domain.KindAudioDevice, "default output", err)
	}
	return nil
}
