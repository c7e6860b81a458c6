package parser

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

// SafeFloat 宽松数值解析
// 数字直接返回；字符串先把小数逗号替换为小数点再解析；其余情况（空值、非数字、NaN/Inf、未知类型）一律返回 0
func SafeFloat(v any) float64 {
	var f float64
	switch x := v.(type) {
	case nil:
		return 0
	case float64:
		f = x
	case float32:
		f = float64(x)
	case int:
		f = float64(x)
	case int32:
		f = float64(x)
	case int64:
		f = float64(x)
	case uint:
		f = float64(x)
	case uint32:
		f = float64(x)
	case uint64:
		f = float64(x)
	case bool:
		if x {
			return 1
		}
		return 0
	case decimal.Decimal:
		f = x.InexactFloat64()
	case string:
		parsed, ok := ParseNumber(x)
		if !ok {
			return 0
		}
		f = parsed
	default:
		return 0
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0
	}
	return f
}

// SafeDecimal SafeFloat 的 decimal 版本
func SafeDecimal(v any) decimal.Decimal {
	return decimal.NewFromFloat(SafeFloat(v))
}

// ParseNumber 严格解析数值字符串，失败时 ok=false
func ParseNumber(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false
	}
	s = strings.ReplaceAll(s, ",", ".")
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

// NormalizeComponentLabel 物料编码规范化：转字符串、去首尾空格、转大写
// 所有物料查找键都必须经过此函数
func NormalizeComponentLabel(v any) string {
	var s string
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		s = x
	default:
		s = fmt.Sprint(x)
	}
	return strings.ToUpper(strings.TrimSpace(s))
}

// NormalizeCell 单元格文本规范化
func NormalizeCell(s string) string {
	s = strings.ReplaceAll(s, "\n", " ")
	s = strings.ReplaceAll(s, "\r", "")
	s = strings.ReplaceAll(s, "\t", " ")
	return strings.TrimSpace(s)
}

// EqualFold 规范化后忽略大小写比较
func EqualFold(a, b string) bool {
	return strings.EqualFold(NormalizeCell(a), NormalizeCell(b))
}

// ContainsAny 检查文本是否与任意关键词完全相同
func ContainsAny(text string, keywords []string) bool {
	text = NormalizeCell(text)
	for _, kw := range keywords {
		if text == NormalizeCell(kw) {
			return true
		}
	}
	return false
}
