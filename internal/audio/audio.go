// Package audio 解码 MP3 并在默认输出设备上播放。
package audio

import (
	"context"
	"errors"
	"io"

	"github.com/hajimehoshi/go-mp3"

	"github.com/John-Robertt/moanip/internal/domain"
)

const (
	// ChannelCount 与 BytesPerSample 描述 Stream 的 PCM 布局：有符号 16 位小端、双声道交错。
	ChannelCount   = 2
	BytesPerSample = 2
)

// Stream 是已解码的 PCM 流。
type Stream interface {
	io.Reader
	// SampleRate 返回采样率（Hz）。
	SampleRate() int
	// Length 返回 PCM 总字节数；未知时为 -1。
	Length() int64
}

// Decoder 把本地文件解码为 Stream。
type Decoder interface {
	Decode(r io.ReadSeeker) (Stream, error)
}

// Sink 播放 Stream，并阻塞直到播放完成（或 ctx 取消）。
type Sink interface {
	Play(ctx context.Context, s Stream) error
}

// MP3Decoder 基于 go-mp3：输出固定为 16 位双声道，采样率与源文件一致。
type MP3Decoder struct{}

// Decode 先把 r 倒回开头（写入方把游标留在末尾），再解码。
func (MP3Decoder) Decode(r io.ReadSeeker) (Stream, error) {
	if r == nil {
		return nil, domain.Wrap(domain.KindAudioDecode, "", errors.New("输入为空"))
	}
	if _, err := r.Seek(0, io.SeekStart); err != nil {
		return nil, domain.Wrap(domain.KindIO, "rewind clip", err)
	}
	d, err := mp3.NewDecoder(r)
	if err != nil {
		return nil, domain.Wrap(domain.KindAudioDecode, "mp3", err)
	}
	if d.SampleRate() <= 0 {
		return nil, domain.Wrap(domain.KindAudioDecode, "mp3", errors.New("采样率无效"))
	}
	return d, nil
}

// Duration 估算 Stream 的播放时长（秒）；长度未知时返回 0。
func Duration(s Stream) float64 {
	if s == nil || s.Length() < 0 || s.SampleRate() <= 0 {
		return 0
	}
	frames := s.Length() / (ChannelCount * BytesPerSample)
	return float64(frames) / float64(s.SampleRate())
}
