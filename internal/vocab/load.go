package vocab

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"fastrecord/pkg/contract"
)

// Load 以加载模式读取用户词表（每行一个 token，行序即 id 序）。
// 忽略 MaxSize 与停用词。文件中缺失的 padding/unknown 追加在末尾（先 padding 后 unknown），
// 以保证用户已分配的 id 不发生位移。
// 每个 id 必须可寻址：文件中间的空行或重复 token 返回 ErrConfiguration；末尾空行忽略。
func Load(path string, opts Options) (*Vocabulary, error) {
	if err := checkSpecials(opts); err != nil {
		return nil, err
	}
	lines, err := readLines(path)
	if err != nil {
		return nil, err
	}
	lines = trimTrailingBlank(lines)
	if len(lines) == 0 {
		return nil, fmt.Errorf("%w: vocabulary has no tokens: %s", contract.ErrMissingResource, path)
	}
	seen := make(map[string]int, len(lines))
	for i, t := range lines {
		if t == "" {
			return nil, fmt.Errorf("%w: %s:%d: blank vocabulary line", contract.ErrConfiguration, path, i+1)
		}
		if prev, dup := seen[t]; dup {
			return nil, fmt.Errorf("%w: %s:%d: duplicate token %q (first at line %d)", contract.ErrConfiguration, path, i+1, t, prev+1)
		}
		seen[t] = i
	}
	v := newVocabulary(lines)
	if _, ok := v.ids[opts.Padding]; !ok {
		lines = append(lines, opts.Padding)
	}
	if _, ok := v.ids[opts.Unknown]; !ok {
		lines = append(lines, opts.Unknown)
	}
	if len(lines) != v.Len() {
		v = newVocabulary(lines)
	}
	v.padID, v.hasPad = v.ids[opts.Padding], true
	v.unkID, v.hasUnk = v.ids[opts.Unknown], true
	return v, nil
}

// LoadLabels 读取闭集标签文件（如 class.txt），行序即 id 序，无保留符号。
// 空行保留 id 占位（不可寻址），使后续标签的 id 与行号一致；末尾空行忽略。
func LoadLabels(path string) (*Vocabulary, error) {
	lines, err := readLines(path)
	if err != nil {
		return nil, err
	}
	for i, t := range lines {
		if strings.TrimSpace(t) == "" {
			lines[i] = ""
		}
	}
	lines = trimTrailingBlank(lines)
	if len(lines) == 0 {
		return nil, fmt.Errorf("%w: label file has no labels: %s", contract.ErrMissingResource, path)
	}
	return newVocabulary(lines), nil
}

// FromTokens 由内存中的有序 token 构造闭集标签表。
func FromTokens(tokens ...string) *Vocabulary {
	cp := make([]string, len(tokens))
	copy(cp, tokens)
	return newVocabulary(cp)
}

func trimTrailingBlank(lines []string) []string {
	for len(lines) > 0 && lines[len(lines)-1] == "" {
		lines = lines[:len(lines)-1]
	}
	return lines
}

func readLines(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", contract.ErrMissingResource, err)
	}
	defer f.Close()
	var out []string
	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 64*1024), 1024*1024)
	for sc.Scan() {
		t := strings.TrimRight(sc.Text(), "\r")
		out = append(out, t)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("%w: read %s: %v", contract.ErrMissingResource, path, err)
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("%w: file is empty: %s", contract.ErrMissingResource, path)
	}
	return out, nil
}
