package planner

import (
	"time"

	"materialbridge/internal/model"
)

// Reconcile 台账与展开需求合并：逐格取较大值，从不减小
// 返回合并后的新台账与需要写回的单元格，入参台账不被修改
func Reconcile(ledger model.Ledger, need NeedLookup, dates []time.Time) (model.Ledger, []model.LedgerUpdate) {
	out := ledger.Clone()
	var updates []model.LedgerUpdate
	for ri := range out.Rows {
		row := &out.Rows[ri]
		if row.Component == "" {
			continue
		}
		for i, day := range dates {
			if i >= len(row.Values) {
				break
			}
			v, ok := need.Get(row.Component, day)
			if !ok {
				continue
			}
			old := row.Values[i]
			if !v.GreaterThan(old) {
				continue
			}
			row.Values[i] = v
			updates = append(updates, model.LedgerUpdate{
				Component: row.Component,
				Date:      model.DayOf(day),
				RowNo:     row.RowNo,
				Col:       ledger.FirstDateCol + i,
				Old:       old,
				New:       v,
			})
		}
	}
	return out, updates
}

// LedgerLookup 以台账数值作为需求来源；同一物料出现多行时取最大值
func LedgerLookup(ledger model.Ledger, dates []time.Time) NeedLookup {
	lookup := make(NeedLookup)
	for _, row := range ledger.Rows {
		if row.Component == "" {
			continue
		}
		for i, day := range dates {
			if i >= len(row.Values) {
				break
			}
			key := model.NeedKey{Component: row.Component, Date: model.DayOf(day)}
			if cur, ok := lookup[key]; ok && cur.GreaterThanOrEqual(row.Values[i]) {
				continue
			}
			lookup[key] = row.Values[i]
		}
	}
	return lookup
}
