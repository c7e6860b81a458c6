package pipeline

import (
	"time"

	"materialbridge/internal/model"
	"materialbridge/internal/planner"
)

// StageReport 单个阶段的统计
type StageReport struct {
	Stage    model.Stage   `json:"stage"`
	Sheet    string        `json:"sheet,omitempty"`
	Count    int           `json:"count"`
	Duration time.Duration `json:"duration"`
}

// Report 运行报告
type Report struct {
	RunID    string     `json:"runId"`
	Filename string     `json:"filename"`
	Source   NeedSource `json:"needSource"`

	BOMEntries       int      `json:"bomEntries"`
	BOMSkipped       int      `json:"bomSkipped"`
	PlanRows         int      `json:"planRows"`
	PlanSkipped      int      `json:"planSkipped"`
	DateColumns      int      `json:"dateColumns"`
	MalformedHeaders []string `json:"malformedHeaders,omitempty"`
	Needs            int      `json:"needs"`
	LedgerRows       int      `json:"ledgerRows"`
	LedgerUpdated    int      `json:"ledgerUpdated"`
	CoverageRows     int      `json:"coverageRows"`
	Shortages        int      `json:"shortages"`
	Highlighted      int      `json:"highlighted"`

	Alignment map[string]planner.Alignment `json:"alignment"`
	Warnings  []string                     `json:"warnings,omitempty"`
	Stages    []StageReport                `json:"stages"`
	Duration  time.Duration                `json:"duration"`
}

// SkippedRows 被丢弃的行数合计
func (r *Report) SkippedRows() int {
	return r.BOMSkipped + r.PlanSkipped
}

// Result 运行结果
type Result struct {
	RunID        string              `json:"runId"`
	OutputPath   string              `json:"outputPath,omitempty"`
	Shortages    []model.Shortage    `json:"-"`
	ShortageRows []model.ShortageRow `json:"shortages"`
	Report       *Report             `json:"report"`
}
