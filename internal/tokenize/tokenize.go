// Package tokenize 提供基于分隔符/字符的切分与停用词过滤。
// 切分只做字面匹配（非正则），不做任何归一化。
package tokenize

import (
	"strings"
	"unicode/utf8"
)

// Mode: 词级切分方式。
type Mode string

const (
	// ModeChar 按 Unicode 字符切分（中文等无空格语言的默认方式）。
	ModeChar Mode = "char"
	// ModeSpace 按单个空格切分（英文）。
	ModeSpace Mode = "space"
)

// Split 按字面分隔符切分，保留空字段：
//
//	Split("a  b", " ") => ["a", "", "b"]
//	Split("", "\t")    => [""]
//
// sep 为空时返回整行（由配置校验保证不会发生）。
func Split(line, sep string) []string {
	if sep == "" {
		return []string{line}
	}
	return strings.Split(line, sep)
}

// SplitN 与 Split 相同，但要求恰好 n 个字段；不满足时 ok=false。
func SplitN(line, sep string, n int) (fields []string, ok bool) {
	fields = Split(line, sep)
	return fields, len(fields) == n
}

// Chars 将 s 切分为单个字符；空串返回空切片。
// 非法 UTF-8 字节各自成为原样的单字节 token，不合并为 U+FFFD。
func Chars(s string) []string {
	if s == "" {
		return nil
	}
	out := make([]string, 0, len(s))
	for i := 0; i < len(s); {
		_, size := utf8.DecodeRuneInString(s[i:])
		out = append(out, s[i:i+size])
		i += size
	}
	return out
}

// Words 按模式将句子切分为 token 序列。
func Words(s string, m Mode) []string {
	if m == ModeSpace {
		return Split(s, " ")
	}
	return Chars(s)
}

// ParseMode 解析模式名；未知名称返回 false。
func ParseMode(s string) (Mode, bool) {
	switch Mode(strings.ToLower(strings.TrimSpace(s))) {
	case ModeChar:
		return ModeChar, true
	case ModeSpace:
		return ModeSpace, true
	default:
		return "", false
	}
}
