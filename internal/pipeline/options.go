package pipeline

import (
	"path/filepath"
	"strings"

	"materialbridge/internal/config"
	"materialbridge/internal/exporter"
	"materialbridge/internal/importer"
	"materialbridge/internal/planner"
)

// NeedSource 缺料推演使用的需求来源
type NeedSource string

const (
	NeedFromExplosion NeedSource = "explosion" // BOM 展开结果
	NeedFromLedger    NeedSource = "ledger"    // 合并后的需求台账
)

// Sheets 输入输出工作表名称
type Sheets struct {
	BOM         string `json:"bom"`
	Plan        string `json:"plan"`
	Requirement string `json:"requirement"`
	Coverage    string `json:"coverage"`
	Explosion   string `json:"explosion"`
	Shortage    string `json:"shortage"`
}

// DefaultSheets 默认工作表名称
func DefaultSheets() Sheets {
	return Sheets{
		BOM:         "BOM",
		Plan:        "plan",
		Requirement: "RM TOTAL REQUIREMENT",
		Coverage:    "coverage",
		Explosion:   exporter.DefaultExplosionSheet,
		Shortage:    exporter.DefaultShortageSheet,
	}
}

// Merge 用非空字段覆盖
func (s Sheets) Merge(o Sheets) Sheets {
	pick := func(a, b string) string {
		if strings.TrimSpace(b) != "" {
			return strings.TrimSpace(b)
		}
		return a
	}
	return Sheets{
		BOM:         pick(s.BOM, o.BOM),
		Plan:        pick(s.Plan, o.Plan),
		Requirement: pick(s.Requirement, o.Requirement),
		Coverage:    pick(s.Coverage, o.Coverage),
		Explosion:   pick(s.Explosion, o.Explosion),
		Shortage:    pick(s.Shortage, o.Shortage),
	}
}

// Options 运行选项
type Options struct {
	InputPath  string
	OutputPath string // 为空时覆盖输入文件

	Sheets Sheets
	Layout importer.Layout

	NeedSource      NeedSource
	StrictAlignment bool
	Placeholder     string
	HighlightColor  string
}

// OptionsFromConfig 由应用配置生成运行选项（不含路径）
func OptionsFromConfig(cfg *config.AppConfig) Options {
	return Options{
		Sheets: DefaultSheets().Merge(Sheets{
			BOM:         cfg.Sheets.BOM,
			Plan:        cfg.Sheets.Plan,
			Requirement: cfg.Sheets.Requirement,
			Coverage:    cfg.Sheets.Coverage,
			Explosion:   cfg.Sheets.ExplosionOutput,
			Shortage:    cfg.Sheets.ShortageOutput,
		}),
		Layout: importer.Layout{
			HeaderKeywords: cfg.Detect.HeaderKeywords,
			FGLabels:       cfg.Detect.FGLabels,
			PreviewRows:    cfg.Detect.PreviewRows,
			LedgerHeader:   cfg.Detect.LedgerHeader,
			CoverageAnchor: cfg.Detect.CoverageAnchor,
		},
		NeedSource:      NeedSource(cfg.Planning.NeedSource),
		StrictAlignment: cfg.Planning.StrictAlignment,
		Placeholder:     cfg.Planning.Placeholder,
		HighlightColor:  cfg.Planning.HighlightColor,
	}
}

func (o Options) withDefaults() Options {
	o.Sheets = DefaultSheets().Merge(o.Sheets)
	if o.NeedSource == "" {
		o.NeedSource = NeedFromExplosion
	}
	if o.Placeholder == "" {
		o.Placeholder = planner.DefaultPlaceholder
	}
	if o.HighlightColor == "" {
		o.HighlightColor = exporter.DefaultHighlightColor
	}
	if o.OutputPath == "" {
		o.OutputPath = o.InputPath
	}
	return o
}

// ProcessedName 下载/输出文件名：processed_<原文件名>
func ProcessedName(name string) string {
	base := filepath.Base(strings.TrimSpace(name))
	if base == "" || base == "." || base == string(filepath.Separator) {
		base = "workbook.xlsx"
	}
	return "processed_" + base
}
