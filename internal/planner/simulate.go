package planner

import (
	"sort"
	"time"

	"materialbridge/internal/model"
)

// Simulate 逐物料、逐日推演结存
//
//	balance = stock + wip
//	第 i 天（i>0）先加上 intransit[i-1]，再减去当天需求
//	结存为负即记一条缺料，并继续以负值结转
//
// 结果按（日期, 物料）升序
func Simulate(coverage []model.CoverageRow, need NeedLookup, dates []time.Time, causes CauseMap) []model.Shortage {
	var shortages []model.Shortage
	for _, row := range coverage {
		if row.Component == "" {
			continue
		}
		balance := row.Stock.Add(row.WIP)
		for i, day := range dates {
			if i > 0 && i-1 < len(row.Intransit) {
				balance = balance.Add(row.Intransit[i-1])
			}
			balance = balance.Sub(need.GetOrZero(row.Component, day))
			if balance.IsNegative() {
				shortages = append(shortages, model.Shortage{
					Date:                 model.DayOf(day),
					Component:            row.Component,
					CausingFinishedGoods: causes.Lookup(row.Component, day),
					Balance:              balance,
				})
			}
		}
	}

	sort.SliceStable(shortages, func(i, j int) bool {
		a, b := shortages[i], shortages[j]
		if !a.Date.Equal(b.Date) {
			return a.Date.Before(b.Date)
		}
		return a.Component < b.Component
	})
	return shortages
}

// Rows 缺料表输出行
func Rows(shortages []model.Shortage, placeholder string) []model.ShortageRow {
	out := make([]model.ShortageRow, 0, len(shortages))
	for _, s := range shortages {
		out = append(out, model.ShortageRow{
			Date:      s.Date.Format(model.DateLayout),
			Component: s.Component,
			FGCode:    Label(s.CausingFinishedGoods, placeholder),
			Balance:   s.Balance.InexactFloat64(),
		})
	}
	return out
}

// Implicated 缺料涉及的（成品, 日期）集合，用于回标计划表
func Implicated(shortages []model.Shortage) map[model.NeedKey]struct{} {
	out := make(map[model.NeedKey]struct{})
	for _, s := range shortages {
		for _, fg := range s.CausingFinishedGoods {
			out[model.NeedKey{Component: fg, Date: s.Date}] = struct{}{}
		}
	}
	return out
}
