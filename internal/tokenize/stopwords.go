package tokenize

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"fastrecord/pkg/contract"
)

// Stopwords: 只读停用词集合；nil 表示不过滤。
type Stopwords map[string]struct{}

// LoadStopwords 读取停用词文件（每行一个；忽略空行，去除行尾 \r）。
func LoadStopwords(path string) (Stopwords, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: stopwords file: %v", contract.ErrMissingResource, err)
	}
	defer f.Close()
	set := make(Stopwords)
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		w := strings.TrimRight(sc.Text(), "\r")
		if w == "" {
			continue
		}
		set[w] = struct{}{}
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("%w: stopwords file: %v", contract.ErrMissingResource, err)
	}
	return set, nil
}

// NewStopwords 由内存列表构造集合。
func NewStopwords(words ...string) Stopwords {
	set := make(Stopwords, len(words))
	for _, w := range words {
		set[w] = struct{}{}
	}
	return set
}

// Contains 报告 tok 是否为停用词。
func (s Stopwords) Contains(tok string) bool {
	_, ok := s[tok]
	return ok
}

// Filter 返回去除停用词后的子序列（保持原顺序，不修改入参）。
func (s Stopwords) Filter(tokens []string) []string {
	if len(s) == 0 {
		return tokens
	}
	out := make([]string, 0, len(tokens))
	for _, t := range tokens {
		if _, stop := s[t]; !stop {
			out = append(out, t)
		}
	}
	return out
}
