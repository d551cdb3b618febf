package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"fastrecord/pkg/contract"
	bcls "fastrecord/plugins/builder/classifier"
)

type ConfigTestSuite struct {
	suite.Suite
	tempDir string
	origDir string
}

func (s *ConfigTestSuite) SetupTest() {
	var err error
	s.origDir, err = os.Getwd()
	s.Require().NoError(err)
	s.tempDir = s.T().TempDir()
	s.Require().NoError(os.Chdir(s.tempDir))
}

func (s *ConfigTestSuite) TearDownTest() {
	s.Require().NoError(os.Chdir(s.origDir))
}

func (s *ConfigTestSuite) write(name, content string) string {
	p := filepath.Join(s.tempDir, name)
	s.Require().NoError(os.MkdirAll(filepath.Dir(p), 0o755))
	s.Require().NoError(os.WriteFile(p, []byte(content), 0o644))
	return p
}

func (s *ConfigTestSuite) parse(task contract.Task, args ...string) Config {
	f := NewFlagSet(task)
	s.Require().NoError(f.Parse(args))
	cfg, err := Load(task, f)
	s.Require().NoError(err)
	return cfg
}

func (s *ConfigTestSuite) TestDefaults() {
	cfg, err := Load(contract.TaskClassifier, nil)
	s.Require().NoError(err)
	s.Equal(contract.TaskClassifier, cfg.Task)
	s.Equal("\t", cfg.Separator)
	s.Equal(10000, cfg.MaxVocabSize)
	s.Equal("<PAD>", cfg.Padding)
	s.Equal("<UNK>", cfg.Unknown)
	s.Equal(32, cfg.SequenceLength)
	s.Equal(1024, cfg.BatchRows)
	s.Equal("info", cfg.LogLevel)
	s.False(cfg.WithVocab)
}

func (s *ConfigTestSuite) TestConfigFileDiscovered() {
	s.write("fastrecord.yaml", "path: corpus\nmax-vocab-size: 50\nseparator: \",\"\n")
	cfg := s.parse(contract.TaskClassifier)
	s.Equal("corpus", cfg.Path)
	s.Equal(50, cfg.MaxVocabSize)
	s.Equal(",", cfg.Separator)
}

func (s *ConfigTestSuite) TestPrecedence() {
	s.write("fastrecord.yaml", "max-vocab-size: 50\nsequence-length: 8\nlog-level: warn\n")
	s.T().Setenv("FASTRECORD_MAX_VOCAB_SIZE", "70")
	s.T().Setenv("FASTRECORD_SEQUENCE_LENGTH", "16")

	cfg := s.parse(contract.TaskClassifier, "--sequence-length=64")
	s.Equal(70, cfg.MaxVocabSize, "env 覆盖文件")
	s.Equal(64, cfg.SequenceLength, "命令行覆盖 env")
	s.Equal("warn", cfg.LogLevel, "文件覆盖默认值")
}

func (s *ConfigTestSuite) TestExplicitConfigFile() {
	p := s.write("conf/run.json", `{"path": "data", "with-lang-en": true, "exclude": ["*.bak"]}`)
	cfg := s.parse(contract.TaskClassifier, "--config", p)
	s.Equal("data", cfg.Path)
	s.True(cfg.WithLangEn)
	s.Equal([]string{"*.bak"}, cfg.Exclude)

	f := NewFlagSet(contract.TaskClassifier)
	s.Require().NoError(f.Parse([]string{"--config", filepath.Join(s.tempDir, "missing.yaml")}))
	_, err := Load(contract.TaskClassifier, f)
	s.ErrorIs(err, contract.ErrMissingResource)

	bad := s.write("bad.yaml", "path: [unclosed\n")
	f = NewFlagSet(contract.TaskClassifier)
	s.Require().NoError(f.Parse([]string{"--config", bad}))
	_, err = Load(contract.TaskClassifier, f)
	s.ErrorIs(err, contract.ErrConfiguration)
}

func (s *ConfigTestSuite) TestAliases() {
	cfg := s.parse(contract.TaskClassifier,
		"--input", "in", "--output", "out", "--delimiter", "|",
		"--unk-token", "[UNK]", "--pad-token", "[PAD]", "--stopwords", "sw.txt")
	s.Equal("in", cfg.Path)
	s.Equal("out", cfg.OutputPath)
	s.Equal("|", cfg.Separator)
	s.Equal("[UNK]", cfg.Unknown)
	s.Equal("[PAD]", cfg.Padding)
	s.Equal("sw.txt", cfg.StopwordsFile)
}

func (s *ConfigTestSuite) TestTaskFlags() {
	cfg := s.parse(contract.TaskSimilarity, "--sent-sep", "|", "--label-sep", "#", "--with-bool")
	s.Equal("|", cfg.SentSep)
	s.Equal("#", cfg.LabelSep)
	s.True(cfg.WithBool)

	cfg = s.parse(contract.TaskTagging, "--padding-tag", "O", "--exclude", "a/", "--exclude", "*.tmp")
	s.Equal("O", cfg.PaddingTag)
	s.Equal([]string{"a/", "*.tmp"}, cfg.Exclude)

	f := NewFlagSet(contract.TaskTagging)
	s.Error(f.Parse([]string{"--with-bool"}), "tagging 不接受 similarity 参数")
}

func (s *ConfigTestSuite) TestTemplateRoundTrip() {
	p, err := WriteTemplate(s.tempDir)
	s.Require().NoError(err)
	s.Equal(filepath.Join(s.tempDir, TemplateFile), p)

	_, err = WriteTemplate(s.tempDir)
	s.ErrorIs(err, contract.ErrConfiguration, "已存在时不覆盖")

	cfg, err := Load(contract.TaskClassifier, nil)
	s.Require().NoError(err)
	d := Defaults()
	s.Equal(d.Separator, cfg.Separator)
	s.Equal(d.SentSep, cfg.SentSep)
	s.Equal(d.MaxVocabSize, cfg.MaxVocabSize)
	s.Equal(d.Padding, cfg.Padding)
	s.Equal(d.SequenceLength, cfg.SequenceLength)
	s.Equal(d.BatchRows, cfg.BatchRows)
	s.Empty(cfg.Exclude)
}

func (s *ConfigTestSuite) TestAssembleDefaults() {
	s.write("corpus/train.txt", "ab\tpos\n")
	s.write("corpus/class.txt", "neg\npos\n")
	cfg := Defaults()
	cfg.Task = contract.TaskClassifier
	cfg.Path = filepath.Join(s.tempDir, "corpus")
	cfg.WithVocab = true

	comp, set, err := Assemble(cfg)
	s.Require().NoError(err)
	s.Equal(filepath.Join(cfg.Path, DefaultVocabFile), set.VocabFile)
	s.Equal(cfg.SequenceLength, set.SequenceLength)
	s.Equal("<UNK>", set.Vocab.Unknown)

	b, ok := comp.Builder.(*bcls.Builder)
	s.Require().True(ok)
	s.Require().NotNil(b.Labels(), "class.txt 被自动发现")
	s.Equal(2, b.Labels().Len())
}

func (s *ConfigTestSuite) TestAssembleErrors() {
	cfg := Defaults()
	cfg.Task = contract.TaskClassifier
	cfg.Path = filepath.Join(s.tempDir, "nope")
	_, _, err := Assemble(cfg)
	s.ErrorIs(err, contract.ErrMissingResource)

	s.write("c/train.txt", "a\tb\n")
	cfg.Path = filepath.Join(s.tempDir, "c")
	cfg.StopwordsFile = filepath.Join(s.tempDir, "missing-stopwords.txt")
	_, _, err = Assemble(cfg)
	s.ErrorIs(err, contract.ErrMissingResource)

	cfg.StopwordsFile = ""
	cfg.ClassFile = filepath.Join(s.tempDir, "missing-class.txt")
	_, _, err = Assemble(cfg)
	s.ErrorIs(err, contract.ErrMissingResource)
}

func (s *ConfigTestSuite) TestAssembleLoadModeIgnoresStopwords() {
	s.write("c/train.txt", "a\tb\n")
	cfg := Defaults()
	cfg.Task = contract.TaskClassifier
	cfg.Path = filepath.Join(s.tempDir, "c")
	cfg.WithVocab = true
	cfg.MaxVocabSize = 0
	cfg.StopwordsFile = filepath.Join(s.tempDir, "missing-stopwords.txt")

	_, set, err := Assemble(cfg)
	s.Require().NoError(err)
	s.Nil(set.Stopwords)
	s.Equal(filepath.Join(cfg.Path, DefaultVocabFile), set.VocabFile)
}

func TestConfigTestSuite(t *testing.T) {
	suite.Run(t, new(ConfigTestSuite))
}

func TestValidate(t *testing.T) {
	ok := Defaults()
	ok.Task = contract.TaskTagging
	ok.Path = "corpus"
	require.NoError(t, Validate(ok))

	load := ok
	load.WithVocab = true
	load.MaxVocabSize = 0
	require.NoError(t, Validate(load), "加载模式忽略 max-vocab-size")

	cases := []struct {
		name string
		mut  func(c *Config)
	}{
		{"未知任务", func(c *Config) { c.Task = "ner" }},
		{"缺少 path", func(c *Config) { c.Path = " " }},
		{"空分隔符", func(c *Config) { c.Separator = "" }},
		{"similarity 空句分隔符", func(c *Config) { c.Task = contract.TaskSimilarity; c.SentSep = "" }},
		{"词表规模", func(c *Config) { c.MaxVocabSize = 0 }},
		{"序列长度", func(c *Config) { c.SequenceLength = -1 }},
		{"保留符号相同", func(c *Config) { c.Unknown = c.Padding }},
		{"空保留符号", func(c *Config) { c.Padding = "" }},
		{"并发度", func(c *Config) { c.Concurrency = -2 }},
		{"批行数", func(c *Config) { c.BatchRows = 0 }},
		{"日志级别", func(c *Config) { c.LogLevel = "loud" }},
	}
	for _, tt := range cases {
		t.Run(tt.name, func(t *testing.T) {
			c := ok
			tt.mut(&c)
			assert.ErrorIs(t, Validate(c), contract.ErrConfiguration)
		})
	}
}
