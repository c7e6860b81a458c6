package parser

// DefaultHeaderKeywords 计划表表头关键字
var DefaultHeaderKeywords = []string{"Delphi PN", "Material"}

// LocateHeaderRow 自上而下扫描预览行，返回第一个含关键字单元格的行（0 起）
func LocateHeaderRow(rows [][]string, keywords []string) (int, bool) {
	if len(keywords) == 0 {
		keywords = DefaultHeaderKeywords
	}
	for i, row := range rows {
		for _, cell := range row {
			if ContainsAny(cell, keywords) {
				return i, true
			}
		}
	}
	return -1, false
}

// LocateLabelRow 返回第 col 列（0 起）文本与 label 相同（忽略大小写）的第一行
func LocateLabelRow(rows [][]string, col int, label string) (int, bool) {
	for i, row := range rows {
		if col < len(row) && EqualFold(row[col], label) {
			return i, true
		}
	}
	return -1, false
}

// FindColumn 返回表头中与任一标签匹配（忽略大小写）的第一列
func FindColumn(header []string, labels ...string) int {
	for i, h := range header {
		for _, l := range labels {
			if EqualFold(h, l) {
				return i
			}
		}
	}
	return -1
}
