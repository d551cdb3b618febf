package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"fastrecord/internal/diag"
	"fastrecord/internal/pipeline"
	"fastrecord/internal/tokenize"
	"fastrecord/internal/vocab"
	"fastrecord/pkg/contract"
	"fastrecord/pkg/registry"
)

// 默认资源文件名（相对语料目录）
const (
	DefaultVocabFile = "vocab.txt"
	DefaultClassFile = "class.txt"
)

// Validate 对配置做静态校验；不访问文件系统。
func Validate(cfg Config) error {
	bad := func(format string, a ...any) error {
		return fmt.Errorf("%w: %s", contract.ErrConfiguration, fmt.Sprintf(format, a...))
	}
	if registry.Builder[cfg.Task] == nil {
		return bad("unknown task %q", cfg.Task)
	}
	if strings.TrimSpace(cfg.Path) == "" {
		return bad("path not set")
	}
	if cfg.Task == contract.TaskSimilarity {
		if cfg.SentSep == "" || cfg.LabelSep == "" {
			return bad("sent-sep and label-sep must be non-empty")
		}
	} else if cfg.Separator == "" {
		return bad("separator must be non-empty")
	}
	// 加载模式忽略 max-vocab-size 与停用词
	if !cfg.WithVocab && cfg.MaxVocabSize <= 0 {
		return bad("max-vocab-size must be > 0, got %d", cfg.MaxVocabSize)
	}
	if cfg.SequenceLength <= 0 {
		return bad("sequence-length must be > 0, got %d", cfg.SequenceLength)
	}
	if cfg.Padding == "" || cfg.Unknown == "" {
		return bad("padding and unknown must be non-empty")
	}
	if cfg.Padding == cfg.Unknown {
		return bad("padding and unknown must differ, both %q", cfg.Padding)
	}
	if cfg.Concurrency < 0 {
		return bad("concurrency must be >= 0")
	}
	if cfg.BatchRows <= 0 {
		return bad("batch-rows must be > 0")
	}
	if !diag.ValidLevel(cfg.LogLevel) {
		return bad("log-level %q", cfg.LogLevel)
	}
	return nil
}

// Assemble 由配置构造组件与运行期设置；默认资源路径在此解析。
func Assemble(cfg Config) (pipeline.Components, pipeline.Settings, error) {
	var comp pipeline.Components
	var set pipeline.Settings
	if err := Validate(cfg); err != nil {
		return comp, set, err
	}
	base, err := baseDir(cfg.Path)
	if err != nil {
		return comp, set, err
	}

	rd, err := registry.Reader["fs"](mustJSON(map[string]any{"exclude": cfg.Exclude}))
	if err != nil {
		return comp, set, fmt.Errorf("assemble reader: %w", err)
	}
	bd, err := registry.Builder[cfg.Task](mustJSON(builderOptions(cfg, base)))
	if err != nil {
		return comp, set, fmt.Errorf("assemble builder: %w", err)
	}
	out := cfg.OutputPath
	if out == "" {
		out = base
	}
	wr, err := registry.Writer["fs"](mustJSON(map[string]any{"output_dir": out}))
	if err != nil {
		return comp, set, fmt.Errorf("assemble writer: %w", err)
	}
	comp = pipeline.Components{Reader: rd, Builder: bd, Writer: wr}

	set = pipeline.Settings{
		Input:          cfg.Path,
		Vocab:          vocab.Options{Padding: cfg.Padding, Unknown: cfg.Unknown, MaxSize: cfg.MaxVocabSize},
		SequenceLength: cfg.SequenceLength,
		Concurrency:    cfg.Concurrency,
		BatchRows:      cfg.BatchRows,
	}
	if cfg.WithVocab {
		set.VocabFile = cfg.VocabFile
		if set.VocabFile == "" {
			set.VocabFile = filepath.Join(base, DefaultVocabFile)
		}
	}
	if cfg.StopwordsFile != "" && !cfg.WithVocab {
		sw, err := tokenize.LoadStopwords(cfg.StopwordsFile)
		if err != nil {
			return comp, set, err
		}
		set.Stopwords = sw
	}
	return comp, set, nil
}

// baseDir: 语料为文件时取其所在目录。
func baseDir(path string) (string, error) {
	fi, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", fmt.Errorf("%w: path %s", contract.ErrMissingResource, path)
		}
		return "", fmt.Errorf("%w: path %s: %v", contract.ErrIO, path, err)
	}
	if fi.IsDir() {
		return path, nil
	}
	return filepath.Dir(path), nil
}

func builderOptions(cfg Config, base string) map[string]any {
	mode := string(tokenize.ModeChar)
	if cfg.WithLangEn {
		mode = string(tokenize.ModeSpace)
	}
	switch cfg.Task {
	case contract.TaskClassifier:
		o := map[string]any{"separator": cfg.Separator, "word_mode": mode, "with_label_id": cfg.WithLabelID}
		if !cfg.WithLabelID {
			o["class_file"] = classFile(cfg, base)
		}
		return o
	case contract.TaskSimilarity:
		o := map[string]any{"sent_sep": cfg.SentSep, "label_sep": cfg.LabelSep, "word_mode": mode, "with_bool": cfg.WithBool}
		if !cfg.WithBool {
			o["class_file"] = classFile(cfg, base)
		}
		return o
	default:
		return map[string]any{"separator": cfg.Separator, "padding_tag": cfg.PaddingTag, "padding": cfg.Padding}
	}
}

// classFile: 显式配置优先；否则语料目录下存在 class.txt 时使用。
func classFile(cfg Config, base string) string {
	if cfg.ClassFile != "" {
		return cfg.ClassFile
	}
	p := filepath.Join(base, DefaultClassFile)
	if fi, err := os.Stat(p); err == nil && fi.Mode().IsRegular() {
		return p
	}
	return ""
}

func mustJSON(v any) json.RawMessage {
	b, err := json.Marshal(v)
	if err != nil {
		panic(err)
	}
	return b
}
