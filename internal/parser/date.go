package parser

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"
)

// DateClass 日期识别结果
type DateClass int

const (
	NotDate   DateClass = iota // 普通文本/数字/空
	DateValue                  // 可确定为日期
	Malformed                  // 看起来像日期但无法解析
)

func (c DateClass) String() string {
	switch c {
	case DateValue:
		return "date"
	case Malformed:
		return "malformed"
	default:
		return "not_date"
	}
}

// Excel 序列号合法范围（1900 日期系统）：1900-01-01 .. 9999-12-31
const (
	minExcelSerial = 1
	maxExcelSerial = 2958465
)

var dateLayouts = []string{
	"2006-01-02",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05Z07:00",
	"2006-01-02T15:04:05",
	"2006/01/02",
	"2006/1/2",
	"2006.01.02",
	"01-02-06",
	"1-2-06",
	"01/02/2006",
	"1/2/2006",
	"1/2/06",
	"02/01/2006",
	"02.01.2006",
	"2.1.2006",
	"2-Jan-2006",
	"02-Jan-06",
	"2-Jan-06",
	"2 Jan 2006",
	"Jan 2, 2006",
	"Jan 2 2006",
	"January 2, 2006",
	"2006年1月2日",
}

var looksLikeDate = regexp.MustCompile(`\d+\s*[-/.年]\s*(\d+|[A-Za-z]{3,})|[A-Za-z]{3,}\s+\d+`)

// ClassifyDate 识别表头是否为日期（1900 日期系统）
// raw 为原始单元格值（日期列通常为 Excel 序列号），text 为格式化后的显示值
func ClassifyDate(raw, text string) (time.Time, DateClass) {
	return ClassifyDateIn(raw, text, false)
}

// ClassifyDateIn 同 ClassifyDate，date1904 为工作簿的日期系统
func ClassifyDateIn(raw, text string, date1904 bool) (time.Time, DateClass) {
	raw = strings.TrimSpace(raw)
	text = strings.TrimSpace(text)
	if raw == "" && text == "" {
		return time.Time{}, NotDate
	}
	if text == "" {
		text = raw
	}

	// 带日期格式的序列号：显示值与原始值不同且显示值像日期
	if serial, err := strconv.ParseFloat(raw, 64); err == nil && text != raw && looksLikeDate.MatchString(text) {
		if serial < minExcelSerial || serial > maxExcelSerial {
			return time.Time{}, Malformed
		}
		t, err := excelize.ExcelDateToTime(serial, date1904)
		if err != nil {
			return time.Time{}, Malformed
		}
		return truncateDay(t), DateValue
	}

	if _, err := strconv.ParseFloat(text, 64); err == nil {
		return time.Time{}, NotDate
	}

	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, text); err == nil {
			return truncateDay(t), DateValue
		}
	}

	if looksLikeDate.MatchString(text) {
		return time.Time{}, Malformed
	}
	return time.Time{}, NotDate
}

// IsDateValued 表头是否为日期；解析失败一律视为非日期
func IsDateValued(raw, text string) bool {
	_, class := ClassifyDate(raw, text)
	return class == DateValue
}

func truncateDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
