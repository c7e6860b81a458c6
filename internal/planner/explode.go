package planner

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"materialbridge/internal/model"
	"materialbridge/internal/parser"
)

// JoinLine BOM 与计划按成品内连接后的一行
type JoinLine struct {
	FinishedGood string          `json:"finishedGood"`
	Component    string          `json:"component"`
	Date         time.Time       `json:"date"`
	QtyPerUnit   decimal.Decimal `json:"qtyPerUnit"`
	PlannedQty   decimal.Decimal `json:"plannedQty"`
	LineNeed     decimal.Decimal `json:"lineNeed"`
}

// Explosion 单层 BOM 展开结果
type Explosion struct {
	Lines  []JoinLine            `json:"lines"`
	Needs  []model.ComponentNeed `json:"needs"`
	Causes CauseMap              `json:"-"`
}

// Explode 按成品内连接 BOM 与计划，计算每行需求并按（物料, 日期）汇总
// 未出现在 BOM 中的成品、未排产的成品均不产生需求
func Explode(bom []model.BOMEntry, plan []model.PlanRow) *Explosion {
	byFG := make(map[string][]model.BOMEntry)
	for _, b := range bom {
		byFG[b.FinishedGood] = append(byFG[b.FinishedGood], b)
	}

	result := &Explosion{Causes: make(CauseMap)}
	totals := make(map[model.NeedKey]decimal.Decimal)
	for _, p := range plan {
		entries, ok := byFG[p.FinishedGood]
		if !ok {
			continue
		}
		day := model.DayOf(p.Date)
		for _, b := range entries {
			comp := parser.NormalizeComponentLabel(b.Component)
			line := JoinLine{
				FinishedGood: p.FinishedGood,
				Component:    comp,
				Date:         day,
				QtyPerUnit:   b.QtyPerUnit,
				PlannedQty:   p.PlannedQty,
				LineNeed:     b.QtyPerUnit.Mul(p.PlannedQty),
			}
			result.Lines = append(result.Lines, line)

			key := model.NeedKey{Component: comp, Date: day}
			totals[key] = totals[key].Add(line.LineNeed)
			if !p.PlannedQty.IsZero() {
				result.Causes.add(key, p.FinishedGood)
			}
		}
	}

	result.Needs = make([]model.ComponentNeed, 0, len(totals))
	for k, v := range totals {
		result.Needs = append(result.Needs, model.ComponentNeed{Component: k.Component, Date: k.Date, TotalNeed: v})
	}
	sort.Slice(result.Needs, func(i, j int) bool {
		a, b := result.Needs[i], result.Needs[j]
		if a.Component != b.Component {
			return a.Component < b.Component
		}
		return a.Date.Before(b.Date)
	})
	return result
}

// Lookup 展开需求的（物料, 日期）查找表
func (e *Explosion) Lookup() NeedLookup {
	lookup := make(NeedLookup, len(e.Needs))
	for _, n := range e.Needs {
		lookup[model.NeedKey{Component: n.Component, Date: n.Date}] = n.TotalNeed
	}
	return lookup
}

// NeedLookup（物料, 日期）→ 需求量
type NeedLookup map[model.NeedKey]decimal.Decimal

// Get 查找需求，物料与日期会先规范化
func (l NeedLookup) Get(component string, date time.Time) (decimal.Decimal, bool) {
	v, ok := l[model.NeedKey{Component: parser.NormalizeComponentLabel(component), Date: model.DayOf(date)}]
	return v, ok
}

// GetOrZero 查找需求，缺失时为 0
func (l NeedLookup) GetOrZero(component string, date time.Time) decimal.Decimal {
	v, _ := l.Get(component, date)
	return v
}
