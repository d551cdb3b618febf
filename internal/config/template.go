package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"fastrecord/pkg/contract"
)

// TemplateFile: --init-config 写出的文件名。
const TemplateFile = ConfigName + ".yaml"

// Template 为默认配置模板；键与命令行参数同名，值与 Defaults 一致。
const Template = `# fastrecord 配置；优先级：命令行 > 环境变量 FASTRECORD_* > 本文件 > 默认值
path: ""
output-path: ""

# 字段分隔符（classifier/tagging）
separator: "\t"
# similarity：两句之间、句子与标签之间
sent-sep: "\t"
label-sep: "\t"

max-vocab-size: 10000
padding: "<PAD>"
unknown: "<UNK>"
sequence-length: 32
stopwords-file: ""

# 加载已有词表；vocab-file 为空时取 <path>/vocab.txt
with-vocab: false
vocab-file: ""

# 标签
class-file: ""
with-label-id: false
with-bool: false
with-lang-en: false
padding-tag: ""

concurrency: 0
batch-rows: 1024
exclude: []
log-level: info
`

// WriteTemplate 在 dir 下写出默认模板；目标已存在时返回错误且不覆盖。
func WriteTemplate(dir string) (string, error) {
	if dir == "" {
		dir = "."
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("%w: %v", contract.ErrIO, err)
	}
	p := filepath.Join(dir, TemplateFile)
	f, err := os.OpenFile(p, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		if errors.Is(err, os.ErrExist) {
			return p, fmt.Errorf("%w: %s already exists", contract.ErrConfiguration, p)
		}
		return p, fmt.Errorf("%w: %v", contract.ErrIO, err)
	}
	if _, err := f.WriteString(Template); err != nil {
		f.Close()
		return p, fmt.Errorf("%w: %v", contract.ErrIO, err)
	}
	if err := f.Close(); err != nil {
		return p, fmt.Errorf("%w: %v", contract.ErrIO, err)
	}
	return p, nil
}
