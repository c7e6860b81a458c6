package planner

import (
	"fmt"
	"time"

	"materialbridge/internal/model"
	"materialbridge/internal/parser"
)

// HeaderCell 参与对齐校验的表头单元格
type HeaderCell struct {
	Col   int              `json:"col"` // Excel 列号
	Text  string           `json:"text"`
	Date  time.Time        `json:"date"`
	Class parser.DateClass `json:"class"`
}

// Alignment 对齐校验结果
type Alignment struct {
	Verified   bool // 表头带日期，已逐列核对
	DateCells  int  // 从起始位置起连续的日期单元格数
	Expected   int
	Mismatches []string
}

// CheckAlignment 核对按位置对应的日期列与计划日期是否一致（数量与顺序）
// 表头完全不含日期时无法核对，返回 Verified=false 且不报错
func CheckAlignment(plan []time.Time, header []HeaderCell) (Alignment, error) {
	a := Alignment{Expected: len(plan)}
	anyDate := false
	for _, h := range header {
		if h.Class == parser.DateValue {
			anyDate = true
			break
		}
	}
	if !anyDate {
		return a, nil
	}
	a.Verified = true

	for _, h := range header {
		if h.Class != parser.DateValue {
			break
		}
		a.DateCells++
	}
	for i, want := range plan {
		if i >= len(header) {
			a.Mismatches = append(a.Mismatches, fmt.Sprintf("position %d: missing, plan has %s", i+1, want.Format(model.DateLayout)))
			continue
		}
		h := header[i]
		if h.Class != parser.DateValue {
			a.Mismatches = append(a.Mismatches, fmt.Sprintf("column %d: %q is not a date, plan has %s", h.Col, h.Text, want.Format(model.DateLayout)))
			continue
		}
		if !model.DayOf(h.Date).Equal(model.DayOf(want)) {
			a.Mismatches = append(a.Mismatches, fmt.Sprintf("column %d: %s, plan has %s", h.Col, h.Date.Format(model.DateLayout), want.Format(model.DateLayout)))
		}
	}
	if a.DateCells > len(plan) {
		a.Mismatches = append(a.Mismatches, fmt.Sprintf("%d date columns, plan has %d", a.DateCells, len(plan)))
	}

	if len(a.Mismatches) > 0 {
		return a, fmt.Errorf("%w: %s", model.ErrDateMisaligned, a.Mismatches[0])
	}
	return a, nil
}
