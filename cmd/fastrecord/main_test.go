package main

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	cfgpkg "fastrecord/internal/config"
	"fastrecord/internal/diag"
	"fastrecord/internal/pipeline"
	"fastrecord/pkg/contract"
)

// workdir: 切换到临时目录（日志写入 ./logs）。
func workdir(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Chdir(dir)
	return dir
}

func corpus(t *testing.T, dir string, files map[string]string) string {
	t.Helper()
	root := filepath.Join(dir, "corpus")
	require.NoError(t, os.MkdirAll(root, 0o755))
	for name, content := range files {
		require.NoError(t, os.WriteFile(filepath.Join(root, name), []byte(content), 0o644))
	}
	return root
}

func stubPipeline(t *testing.T, fn func(pipeline.Settings) (*pipeline.Report, error)) {
	t.Helper()
	orig := pipelineRun
	pipelineRun = func(_ context.Context, _ pipeline.Components, set pipeline.Settings, _ *diag.Logger) (*pipeline.Report, error) {
		return fn(set)
	}
	t.Cleanup(func() { pipelineRun = orig })
}

func runArgs(args ...string) (int, string, string) {
	var out, errb bytes.Buffer
	code := run(args, &out, &errb)
	return code, out.String(), errb.String()
}

func TestRunUsage(t *testing.T) {
	workdir(t)
	code, _, stderr := runArgs()
	assert.Equal(t, diag.ExitUsage, code)
	assert.Contains(t, stderr, "用法")

	code, _, stderr = runArgs("ner")
	assert.Equal(t, diag.ExitUsage, code)
	assert.Contains(t, stderr, "未知子命令")

	code, stdout, _ := runArgs("help")
	assert.Equal(t, diag.ExitOK, code)
	assert.Contains(t, stdout, "--init-config")

	code, _, _ = runArgs("classifier", "--no-such-flag")
	assert.Equal(t, diag.ExitUsage, code)

	code, _, _ = runArgs("classifier", "a", "b")
	assert.Equal(t, diag.ExitUsage, code)

	code, _, _ = runArgs("classifier", "--path", "a", "b")
	assert.Equal(t, diag.ExitUsage, code)
}

func TestRunInitConfig(t *testing.T) {
	dir := workdir(t)
	out := filepath.Join(dir, "conf")
	code, stdout, _ := runArgs("--init-config", out)
	require.Equal(t, diag.ExitOK, code)
	assert.Contains(t, stdout, cfgpkg.TemplateFile)
	assert.FileExists(t, filepath.Join(out, cfgpkg.TemplateFile))

	code, _, stderr := runArgs("--init-config=" + out)
	assert.Equal(t, diag.ExitConfig, code, "不覆盖已有文件")
	assert.Contains(t, stderr, "already exists")

	code, _, _ = runArgs("--init-config")
	assert.Equal(t, diag.ExitOK, code)
	assert.FileExists(t, filepath.Join(dir, cfgpkg.TemplateFile))
}

func TestRunPassesSettings(t *testing.T) {
	dir := workdir(t)
	root := corpus(t, dir, map[string]string{"train.txt": "ab\tx\n"})
	var got pipeline.Settings
	stubPipeline(t, func(set pipeline.Settings) (*pipeline.Report, error) {
		got = set
		return &pipeline.Report{Task: contract.TaskClassifier, VocabSplit: "train",
			Artifacts: []contract.ArtifactID{"train.records.ipc"}}, nil
	})
	t.Setenv("FASTRECORD_MAX_VOCAB_SIZE", "77")

	code, stdout, _ := runArgs("classifier", "--status=false", "--sequence-length", "8", "--with-vocab", root)
	require.Equal(t, diag.ExitOK, code)
	assert.Equal(t, root, got.Input)
	assert.Equal(t, 8, got.SequenceLength)
	assert.Equal(t, 77, got.Vocab.MaxSize)
	assert.Equal(t, filepath.Join(root, "vocab.txt"), got.VocabFile)
	assert.Contains(t, stdout, "task=classifier")
	assert.Contains(t, stdout, "train.records.ipc")
}

func TestRunExitCodes(t *testing.T) {
	dir := workdir(t)
	root := corpus(t, dir, map[string]string{"train.txt": "ab\tx\n"})

	code, _, _ := runArgs("classifier", "--status=false", "--max-vocab-size", "0", root)
	assert.Equal(t, diag.ExitConfig, code)

	code, _, _ = runArgs("classifier", "--status=false")
	assert.Equal(t, diag.ExitConfig, code, "缺少 path")

	code, _, _ = runArgs("classifier", "--status=false", filepath.Join(dir, "missing"))
	assert.Equal(t, diag.ExitConfig, code)

	stubPipeline(t, func(pipeline.Settings) (*pipeline.Report, error) {
		return nil, fmt.Errorf("dev: %w", contract.ErrMalformedRecord)
	})
	code, _, stderr := runArgs("classifier", "--status=false", root)
	assert.Equal(t, diag.ExitFailure, code)
	assert.Contains(t, stderr, "运行失败")

	stubPipeline(t, func(pipeline.Settings) (*pipeline.Report, error) {
		return nil, fmt.Errorf("vocab: %w", contract.ErrMissingResource)
	})
	code, _, _ = runArgs("classifier", "--status=false", root)
	assert.Equal(t, diag.ExitConfig, code)
}

func TestRunEndToEnd(t *testing.T) {
	dir := workdir(t)
	root := corpus(t, dir, map[string]string{
		"train.txt": "我爱北京\t地点\n今天天气\t天气\n",
		"dev.txt":   "北京天气\t天气\nbroken\n",
	})
	out := filepath.Join(dir, "out")

	code, stdout, stderr := runArgs("classifier", "--status=false", "--sequence-length", "4", "--output", out, root)
	require.Equal(t, diag.ExitOK, code, stderr)
	for _, name := range []string{"train.records.ipc", "dev.records.ipc", "vocab.txt", "classes.txt"} {
		assert.FileExists(t, filepath.Join(out, name))
	}
	assert.Contains(t, stdout, "dev: rows=1 skipped=1")
	assert.Contains(t, stdout, "metrics:\n")
	assert.Contains(t, stdout, "op_total{comp=encode,stage=finish,result=success} 3\n")
	assert.Contains(t, stdout, "op_total{comp=encode,stage=finish,result=skipped} 1\n")
	assert.Contains(t, stdout, "op_total{comp=pipeline,stage=finish,result=success} 1\n")
	assert.Contains(t, stdout, "op_duration_ms{comp=pipeline,stage=finish}")

	// 计数按运行重置
	code, stdout, stderr = runArgs("classifier", "--status=false", "--sequence-length", "4", "--output", out, root)
	require.Equal(t, diag.ExitOK, code, stderr)
	assert.Contains(t, stdout, "op_total{comp=pipeline,stage=finish,result=success} 1\n")
	classes, err := os.ReadFile(filepath.Join(out, "classes.txt"))
	require.NoError(t, err)
	assert.Equal(t, "地点\n天气\n", string(classes))
}
