package contract

import "strings"

// IsBlank 报告行是否为空白行（仅含空白字符）。
func IsBlank(text string) bool { return strings.TrimSpace(text) == "" }

// LineUnits 每个非空行为一个单元；空行跳过。
func LineUnits(lines []Line) []Unit {
	out := make([]Unit, 0, len(lines))
	for i := range lines {
		if IsBlank(lines[i].Text) {
			continue
		}
		out = append(out, Unit{Lines: lines[i : i+1 : i+1]})
	}
	return out
}

// BlockUnits 以空行（或文件边界）分隔连续非空行为一个单元。
func BlockUnits(lines []Line) []Unit {
	var out []Unit
	start := -1
	flush := func(end int) {
		if start >= 0 {
			out = append(out, Unit{Lines: lines[start:end:end]})
			start = -1
		}
	}
	for i := range lines {
		if IsBlank(lines[i].Text) {
			flush(i)
			continue
		}
		if start >= 0 && lines[i].FileID != lines[start].FileID {
			flush(i)
		}
		if start < 0 {
			start = i
		}
	}
	flush(len(lines))
	return out
}
