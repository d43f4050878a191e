package domain

// Stage 是一次运行的状态机节点，严格按声明顺序推进；任何一步失败都进入 StageFailed。
type Stage string

const (
	StageInit        Stage = "init"
	StageFetchedPage Stage = "fetched_page"
	StageExtractedIP Stage = "extracted_ip"
	StageDownloaded  Stage = "downloaded"
	StageDecoded     Stage = "decoded"
	StagePlaying     Stage = "playing"
	StageDone        Stage = "done"
	StageFailed      Stage = "failed"
)

// Stages 返回成功路径上的全部阶段（按顺序）。
func Stages() []Stage {
	return []Stage{
		StageInit,
		StageFetchedPage,
		StageExtractedIP,
		StageDownloaded,
		StageDecoded,
		StagePlaying,
		StageDone,
	}
}

// Next 返回成功路径上的下一阶段；Done/Failed 没有后继。
func (s Stage) Next() (Stage, bool) {
	all := Stages()
	for i := 0; i < len(all)-1; i++ {
		if all[i] == s {
			return all[i+1], true
		}
	}
	return "", false
}
