package run

import (
	"time"

	"github.com/rs/zerolog"

	"github.com/John-Robertt/moanip/internal/domain"
)

// Observer 把“阶段推进/失败”事件从流水线中解耦出来。
//
// 约束：run 包只负责发事件，不直接输出进度（stdout 只允许出现 IP 一行）。
type Observer interface {
	// OnStage 在进入某阶段时调用；dur 是上一阶段的耗时（StageInit 为 0）。
	OnStage(stage domain.Stage, dur time.Duration)
	// OnFailed 在 stage 之后的转移失败时调用（stage 是最后一个成功到达的阶段）。
	OnFailed(stage domain.Stage, err error)
}

// LogObserver 把事件写成 debug 日志。
type LogObserver struct {
	Log zerolog.Logger
}

func (o LogObserver) OnStage(stage domain.Stage, dur time.Duration) {
	o.Log.Debug().Str("stage", string(stage)).Dur("prev_dur", dur).Msg("stage reached")
}

func (o LogObserver) OnFailed(stage domain.Stage, err error) {
	o.Log.Debug().Str("stage", string(stage)).Str("kind", string(domain.KindOf(err))).Err(err).Msg("stage failed")
}
