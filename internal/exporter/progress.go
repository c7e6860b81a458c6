package exporter

// ProgressEvent 回写进度
type ProgressEvent struct {
	Percent int    `json:"percent"`
	Step    string `json:"step"`
	Sheet   string `json:"sheet,omitempty"`
}

func reportProgress(progress func(ProgressEvent), percent int, step, sheet string) {
	if progress == nil {
		return
	}
	percent = min(max(percent, 0), 100)
	progress(ProgressEvent{Percent: percent, Step: step, Sheet: sheet})
}
