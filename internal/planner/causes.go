package planner

import (
	"sort"
	"strings"
	"time"

	"materialbridge/internal/model"
	"materialbridge/internal/parser"
)

// DefaultPlaceholder 找不到成品时的占位符
const DefaultPlaceholder = "–"

// CauseMap（物料, 日期）→ 成品集合，由展开阶段顺带生成
type CauseMap map[model.NeedKey]map[string]struct{}

func (m CauseMap) add(key model.NeedKey, fg string) {
	set, ok := m[key]
	if !ok {
		set = make(map[string]struct{})
		m[key] = set
	}
	set[fg] = struct{}{}
}

// Lookup 返回排序后的成品编码，缺失时为空切片
func (m CauseMap) Lookup(component string, date time.Time) []string {
	set := m[model.NeedKey{Component: parser.NormalizeComponentLabel(component), Date: model.DayOf(date)}]
	out := make([]string, 0, len(set))
	for fg := range set {
		out = append(out, fg)
	}
	sort.Strings(out)
	return out
}

// Label 逗号拼接的成品编码，为空时返回占位符
func Label(fgs []string, placeholder string) string {
	if len(fgs) == 0 {
		if placeholder == "" {
			return DefaultPlaceholder
		}
		return placeholder
	}
	return strings.Join(fgs, ", ")
}
