package exporter

import (
	"fmt"
	"strings"

	"github.com/xuri/excelize/v2"

	"materialbridge/internal/model"
	"materialbridge/internal/planner"
	"materialbridge/internal/workbook"
)

// 输出表默认名称与表头
const (
	DefaultExplosionSheet = "BOM EXPLOSION"
	DefaultShortageSheet  = "shortage"
	DefaultHighlightColor = "#FFC7CE"
)

var (
	explosionHeader = []string{"Component", "Date", "TotalNeed"}
	shortageHeader  = []string{"Date", "Component", "FG Code"}
)

// Excel 内置日期格式编号
const dateNumFmt = 14

// Options 回写选项
type Options struct {
	Placeholder    string
	HighlightColor string
	Progress       func(ProgressEvent)
}

// Annotation 一次回写所需的全部结果
type Annotation struct {
	ExplosionSheet string
	ShortageSheet  string
	PlanSheet      string

	Needs     []model.ComponentNeed
	Ledger    model.Ledger
	Updates   []model.LedgerUpdate
	Shortages []model.Shortage
	PlanRows  []model.PlanRow
}

// Summary 回写统计
type Summary struct {
	ExplosionRows int `json:"explosionRows"`
	LedgerCells   int `json:"ledgerCells"`
	ShortageRows  int `json:"shortageRows"`
	Highlighted   int `json:"highlighted"`
}

// Annotator 在内存工作簿上写入结果表、台账与计划高亮
//
// 只修改内存中的 excelize.File，落盘由调用方统一提交。
type Annotator struct {
	f      *excelize.File
	opts   Options
	styles map[int]int // 原样式 → 高亮样式
}

// NewAnnotator 创建回写器
func NewAnnotator(f *excelize.File, opts Options) *Annotator {
	if opts.Placeholder == "" {
		opts.Placeholder = planner.DefaultPlaceholder
	}
	if strings.TrimSpace(opts.HighlightColor) == "" {
		opts.HighlightColor = DefaultHighlightColor
	}
	return &Annotator{
		f:      f,
		opts:   opts,
		styles: make(map[int]int),
	}
}

// Annotate 依次写入展开表、台账、缺料表并高亮计划表
func (a *Annotator) Annotate(in Annotation) (*Summary, error) {
	explosionSheet := defaultString(in.ExplosionSheet, DefaultExplosionSheet)
	shortageSheet := defaultString(in.ShortageSheet, DefaultShortageSheet)
	summary := &Summary{}

	reportProgress(a.opts.Progress, 0, "explosion", explosionSheet)
	if err := a.WriteExplosion(explosionSheet, in.Needs); err != nil {
		return nil, err
	}
	summary.ExplosionRows = len(in.Needs)

	reportProgress(a.opts.Progress, 25, "ledger", in.Ledger.Sheet)
	if err := a.ApplyLedger(in.Ledger.Sheet, in.Updates); err != nil {
		return nil, err
	}
	summary.LedgerCells = len(in.Updates)

	reportProgress(a.opts.Progress, 50, "shortage", shortageSheet)
	if err := a.WriteShortages(shortageSheet, in.Shortages); err != nil {
		return nil, err
	}
	summary.ShortageRows = len(in.Shortages)

	reportProgress(a.opts.Progress, 75, "highlight", in.PlanSheet)
	n, err := a.HighlightPlan(in.PlanSheet, in.PlanRows, planner.Implicated(in.Shortages))
	if err != nil {
		return nil, err
	}
	summary.Highlighted = n

	reportProgress(a.opts.Progress, 100, "done", "")
	return summary, nil
}

// WriteExplosion 重建展开表：Component / Date / TotalNeed
func (a *Annotator) WriteExplosion(sheet string, needs []model.ComponentNeed) error {
	rows := make([][]any, 0, len(needs))
	for _, n := range needs {
		rows = append(rows, []any{n.Component, n.Date, n.TotalNeed.InexactFloat64()})
	}
	if err := workbook.ReplaceSheet(a.f, sheet, explosionHeader, rows); err != nil {
		return err
	}
	return workbook.SetColumnStyle(a.f, sheet, 2, 2, len(rows)+1, dateNumFmt)
}

// ApplyLedger 将合并后变大的台账单元格写回原位，保留单元格样式
func (a *Annotator) ApplyLedger(sheet string, updates []model.LedgerUpdate) error {
	for _, u := range updates {
		cell, err := excelize.CoordinatesToCellName(u.Col, u.RowNo)
		if err != nil {
			return err
		}
		if err := a.f.SetCellValue(sheet, cell, u.New.InexactFloat64()); err != nil {
			return fmt.Errorf("failed to update %s!%s: %w", sheet, cell, err)
		}
	}
	return nil
}

// WriteShortages 重建缺料表：Date / Component / FG Code
func (a *Annotator) WriteShortages(sheet string, shortages []model.Shortage) error {
	rows := make([][]any, 0, len(shortages))
	for _, s := range shortages {
		rows = append(rows, []any{s.Date, s.Component, planner.Label(s.CausingFinishedGoods, a.opts.Placeholder)})
	}
	if err := workbook.ReplaceSheet(a.f, sheet, shortageHeader, rows); err != nil {
		return err
	}
	return workbook.SetColumnStyle(a.f, sheet, 1, 2, len(rows)+1, dateNumFmt)
}

// HighlightPlan 为涉及缺料且计划量大于 0 的计划单元格加底色，返回标记数量
// implicated 的键为（成品, 日期）
func (a *Annotator) HighlightPlan(sheet string, rows []model.PlanRow, implicated map[model.NeedKey]struct{}) (int, error) {
	if len(implicated) == 0 {
		return 0, nil
	}
	count := 0
	for _, r := range rows {
		if !r.PlannedQty.IsPositive() {
			continue
		}
		if _, ok := implicated[model.NeedKey{Component: r.FinishedGood, Date: model.DayOf(r.Date)}]; !ok {
			continue
		}
		cell, err := excelize.CoordinatesToCellName(r.Col, r.RowNo)
		if err != nil {
			return count, err
		}
		if err := a.highlight(sheet, cell); err != nil {
			return count, fmt.Errorf("failed to highlight %s!%s: %w", sheet, cell, err)
		}
		count++
	}
	return count, nil
}

// highlight 在原样式基础上替换填充色，相同原样式只创建一次
func (a *Annotator) highlight(sheet, cell string) error {
	orig, err := a.f.GetCellStyle(sheet, cell)
	if err != nil {
		return err
	}
	styleID, ok := a.styles[orig]
	if !ok {
		style, err := a.f.GetStyle(orig)
		if err != nil || style == nil {
			style = &excelize.Style{}
		}
		style.Fill = excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{a.opts.HighlightColor}}
		styleID, err = a.f.NewStyle(style)
		if err != nil {
			return err
		}
		a.styles[orig] = styleID
	}
	return a.f.SetCellStyle(sheet, cell, cell, styleID)
}

func defaultString(v, def string) string {
	if strings.TrimSpace(v) == "" {
		return def
	}
	return v
}
