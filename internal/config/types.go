// Package config 负责配置分层（默认值 → 配置文件 → 环境变量 → 命令行）、校验与组件装配。
package config

import "fastrecord/pkg/contract"

// Config 为一次运行的完整配置；键名与命令行参数、配置文件键一致。
type Config struct {
	// Task 由子命令决定，不参与配置文件/环境变量解析。
	Task contract.Task `mapstructure:"-"`

	Path       string `mapstructure:"path"`
	OutputPath string `mapstructure:"output-path"`

	// 字段分隔符
	Separator string `mapstructure:"separator"`
	SentSep   string `mapstructure:"sent-sep"`
	LabelSep  string `mapstructure:"label-sep"`

	// 词表
	MaxVocabSize   int    `mapstructure:"max-vocab-size"`
	Padding        string `mapstructure:"padding"`
	Unknown        string `mapstructure:"unknown"`
	PaddingTag     string `mapstructure:"padding-tag"`
	SequenceLength int    `mapstructure:"sequence-length"`
	StopwordsFile  string `mapstructure:"stopwords-file"`
	WithVocab      bool   `mapstructure:"with-vocab"`
	VocabFile      string `mapstructure:"vocab-file"`

	// 标签
	ClassFile   string `mapstructure:"class-file"`
	WithLabelID bool   `mapstructure:"with-label-id"`
	WithBool    bool   `mapstructure:"with-bool"`
	WithLangEn  bool   `mapstructure:"with-lang-en"`

	// 运行期
	Concurrency int      `mapstructure:"concurrency"`
	BatchRows   int      `mapstructure:"batch-rows"`
	Exclude     []string `mapstructure:"exclude"`
	LogLevel    string   `mapstructure:"log-level"`
}

// 配置键名
const (
	KeyPath           = "path"
	KeyOutputPath     = "output-path"
	KeySeparator      = "separator"
	KeySentSep        = "sent-sep"
	KeyLabelSep       = "label-sep"
	KeyMaxVocabSize   = "max-vocab-size"
	KeyPadding        = "padding"
	KeyUnknown        = "unknown"
	KeyPaddingTag     = "padding-tag"
	KeySequenceLength = "sequence-length"
	KeyStopwordsFile  = "stopwords-file"
	KeyWithVocab      = "with-vocab"
	KeyVocabFile      = "vocab-file"
	KeyClassFile      = "class-file"
	KeyWithLabelID    = "with-label-id"
	KeyWithBool       = "with-bool"
	KeyWithLangEn     = "with-lang-en"
	KeyConcurrency    = "concurrency"
	KeyBatchRows      = "batch-rows"
	KeyExclude        = "exclude"
	KeyLogLevel       = "log-level"
	KeyConfig         = "config"
)

// EnvPrefix: 环境变量前缀，键中的 "-" 映射为 "_"（如 FASTRECORD_MAX_VOCAB_SIZE）。
const EnvPrefix = "FASTRECORD"

// ConfigName: 工作目录下自动发现的配置文件名（不含扩展名）。
const ConfigName = "fastrecord"

// aliases: 兼容参数名 → 规范键。
var aliases = map[string]string{
	"input":     KeyPath,
	"output":    KeyOutputPath,
	"delimiter": KeySeparator,
	"unk-token": KeyUnknown,
	"pad-token": KeyPadding,
	"stopwords": KeyStopwordsFile,
}

// Defaults 返回默认配置。
func Defaults() Config {
	return Config{
		Separator:      "\t",
		SentSep:        "\t",
		LabelSep:       "\t",
		MaxVocabSize:   10000,
		Padding:        "<PAD>",
		Unknown:        "<UNK>",
		SequenceLength: 32,
		BatchRows:      1024,
		LogLevel:       "info",
	}
}

// defaultMap: 以键名展开默认值，供 viper.SetDefault 使用（所有键都需登记，环境变量才会生效）。
func defaultMap() map[string]any {
	d := Defaults()
	return map[string]any{
		KeyPath:           d.Path,
		KeyOutputPath:     d.OutputPath,
		KeySeparator:      d.Separator,
		KeySentSep:        d.SentSep,
		KeyLabelSep:       d.LabelSep,
		KeyMaxVocabSize:   d.MaxVocabSize,
		KeyPadding:        d.Padding,
		KeyUnknown:        d.Unknown,
		KeyPaddingTag:     d.PaddingTag,
		KeySequenceLength: d.SequenceLength,
		KeyStopwordsFile:  d.StopwordsFile,
		KeyWithVocab:      d.WithVocab,
		KeyVocabFile:      d.VocabFile,
		KeyClassFile:      d.ClassFile,
		KeyWithLabelID:    d.WithLabelID,
		KeyWithBool:       d.WithBool,
		KeyWithLangEn:     d.WithLangEn,
		KeyConcurrency:    d.Concurrency,
		KeyBatchRows:      d.BatchRows,
		KeyExclude:        []string{},
		KeyLogLevel:       d.LogLevel,
	}
}
