package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"fastrecord/pkg/contract"
)

// NewFlagSet 为子命令构造参数集合；兼容别名（--input 等）在解析时归一到规范键。
func NewFlagSet(task contract.Task) *pflag.FlagSet {
	d := Defaults()
	f := pflag.NewFlagSet(string(task), pflag.ContinueOnError)
	f.SortFlags = false
	f.SetNormalizeFunc(normalize)

	f.String(KeyPath, d.Path, "语料路径：文件，或含 train/dev/test.txt 的目录 (别名 --input)")
	f.String(KeyOutputPath, d.OutputPath, "输出目录，默认同 path (别名 --output)")
	switch task {
	case contract.TaskSimilarity:
		f.String(KeySentSep, d.SentSep, "两句之间的分隔符")
		f.String(KeyLabelSep, d.LabelSep, "句子与标签之间的分隔符")
	default:
		f.String(KeySeparator, d.Separator, "字段分隔符 (别名 --delimiter)")
	}
	f.Int(KeyMaxVocabSize, d.MaxVocabSize, "词表保留的最高频词数（不含保留符号）")
	f.String(KeyPadding, d.Padding, "填充符号 (别名 --pad-token)")
	f.String(KeyUnknown, d.Unknown, "未登录词符号 (别名 --unk-token)")
	f.Int(KeySequenceLength, d.SequenceLength, "输出序列定长")
	f.String(KeyStopwordsFile, d.StopwordsFile, "停用词文件，每行一个 (别名 --stopwords)")
	f.Bool(KeyWithVocab, d.WithVocab, "加载已有词表而非构建")
	f.String(KeyVocabFile, d.VocabFile, "词表文件，默认 <path>/vocab.txt")
	switch task {
	case contract.TaskClassifier:
		f.String(KeyClassFile, d.ClassFile, "类别文件，默认 <path>/class.txt（存在时）")
		f.Bool(KeyWithLabelID, d.WithLabelID, "标签列本身即为数值 id")
		f.Bool(KeyWithLangEn, d.WithLangEn, "按空格切词（英文）；默认按字符")
	case contract.TaskSimilarity:
		f.String(KeyClassFile, d.ClassFile, "类别文件，默认 <path>/class.txt（存在时）")
		f.Bool(KeyWithBool, d.WithBool, "标签按布尔解析")
		f.Bool(KeyWithLangEn, d.WithLangEn, "按空格切词（英文）；默认按字符")
	case contract.TaskTagging:
		f.String(KeyPaddingTag, d.PaddingTag, "填充标签；未知标签回退到该标签")
	}
	f.Int(KeyConcurrency, d.Concurrency, "worker 数，0 表示 CPU 数")
	f.Int(KeyBatchRows, d.BatchRows, "每个 Arrow RecordBatch 的行数")
	f.StringSlice(KeyExclude, nil, "额外排除的 gitignore 模式（可重复）")
	f.String(KeyLogLevel, d.LogLevel, "日志级别 debug|info|warn|error")
	f.String(KeyConfig, "", "配置文件 (yaml/json/toml)，默认查找 ./fastrecord.*")
	return f
}

func normalize(_ *pflag.FlagSet, name string) pflag.NormalizedName {
	if canon, ok := aliases[name]; ok {
		return pflag.NormalizedName(canon)
	}
	return pflag.NormalizedName(name)
}

// Load 按优先级合并配置：命令行（已解析的 f）> 环境变量 > 配置文件 > 默认值。
// f 可为 nil（仅使用文件/环境变量/默认值）。
func Load(task contract.Task, f *pflag.FlagSet) (Config, error) {
	v := viper.New()
	for k, val := range defaultMap() {
		v.SetDefault(k, val)
	}
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()
	if f != nil {
		if err := v.BindPFlags(f); err != nil {
			return Config{}, fmt.Errorf("%w: bind flags: %v", contract.ErrConfiguration, err)
		}
	}
	if err := readConfigFile(v); err != nil {
		return Config{}, err
	}
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("%w: decode: %v", contract.ErrConfiguration, err)
	}
	cfg.Task = task
	return cfg, nil
}

// readConfigFile: 显式 --config 必须存在；否则在工作目录查找 fastrecord.*，未找到不算错误。
func readConfigFile(v *viper.Viper) error {
	if p := v.GetString(KeyConfig); p != "" {
		v.SetConfigFile(p)
		if err := v.ReadInConfig(); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return fmt.Errorf("%w: config file %s", contract.ErrMissingResource, p)
			}
			return fmt.Errorf("%w: config file %s: %v", contract.ErrConfiguration, p, err)
		}
		return nil
	}
	v.SetConfigName(ConfigName)
	v.AddConfigPath(".")
	if err := v.ReadInConfig(); err != nil {
		var nf viper.ConfigFileNotFoundError
		if errors.As(err, &nf) {
			return nil
		}
		return fmt.Errorf("%w: config file: %v", contract.ErrConfiguration, err)
	}
	return nil
}
