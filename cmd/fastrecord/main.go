package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/pflag"

	cfgpkg "fastrecord/internal/config"
	"fastrecord/internal/diag"
	"fastrecord/internal/pipeline"
	"fastrecord/pkg/contract"
	"fastrecord/pkg/registry"
)

var pipelineRun = pipeline.Run

// 子命令即任务名：classifier | similarity | tagging。
// 另有 help 与 --init-config [dir]。位置参数（至多一个）等价于 --path。
func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	start := time.Now()
	if len(args) == 0 {
		usage(stderr)
		return diag.ExitUsage
	}
	switch cmd := args[0]; {
	case cmd == "help" || cmd == "-h" || cmd == "--help":
		usage(stdout)
		return diag.ExitOK
	case cmd == "--init-config" || strings.HasPrefix(cmd, "--init-config="):
		return initConfig(args, stdout, stderr)
	}

	task := contract.Task(args[0])
	if registry.Builder[task] == nil {
		fprintf(stderr, "未知子命令: %s\n\n", args[0])
		usage(stderr)
		return diag.ExitUsage
	}
	fs := cfgpkg.NewFlagSet(task)
	status := fs.Bool("status", true, "终端状态提示（stderr）。TTY 动态刷新；非 TTY 打点输出")
	fs.SetOutput(stderr)
	if err := fs.Parse(args[1:]); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return diag.ExitOK
		}
		return diag.ExitUsage
	}
	switch fs.NArg() {
	case 0:
	case 1:
		if fs.Changed(cfgpkg.KeyPath) {
			fprintf(stderr, "位置参数与 --path 不能同时给出\n")
			return diag.ExitUsage
		}
		_ = fs.Set(cfgpkg.KeyPath, fs.Arg(0))
	default:
		fprintf(stderr, "多余的位置参数: %v\n", fs.Args()[1:])
		return diag.ExitUsage
	}

	corrID := uuid.NewString()
	diag.ResetMetrics()
	cfg, err := cfgpkg.Load(task, fs)
	if err == nil {
		err = cfgpkg.Validate(cfg)
	}
	if err != nil {
		fprintf(stderr, "配置错误: %v\n", err)
		return diag.ExitCode(err)
	}
	logger := diag.NewLogger(corrID, cfg.LogLevel)
	defer logger.Close()

	comp, set, err := cfgpkg.Assemble(cfg)
	if err != nil {
		fprintf(stderr, "装配失败: %v\n", err)
		logger.Error("config", string(diag.Classify(err)), "assemble", &start)
		return diag.ExitCode(err)
	}

	term := diag.NewTerminal(stderr, *status)
	diag.SetTerminal(term)
	defer diag.SetTerminal(nil)
	term.RunStart(string(task), set.Concurrency)

	logger.DebugStart("config", "effective", "", map[string]string{
		"task":            string(task),
		"path":            cfg.Path,
		"output_path":     cfg.OutputPath,
		"sequence_length": strconv.Itoa(cfg.SequenceLength),
		"max_vocab_size":  strconv.Itoa(cfg.MaxVocabSize),
		"vocab_file":      set.VocabFile,
		"concurrency":     strconv.Itoa(cfg.Concurrency),
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	t := logger.Start("pipeline", "run")
	rep, err := pipelineRun(ctx, comp, set, logger)
	if err != nil {
		code := diag.Classify(err)
		logger.Error("pipeline", string(code), "first error", &start)
		diag.IncOp("pipeline", "error", "error")
		if code != diag.CodeUnknown {
			diag.IncError("pipeline", string(code))
		}
		if !errors.Is(err, context.Canceled) {
			fprintf(stderr, "运行失败: %v\n", err)
		}
		term.RunFinish(false, time.Since(start))
		return diag.ExitCode(err)
	}
	t.Finish("run", int64(len(rep.Splits)))
	diag.IncOp("pipeline", "finish", "success")
	diag.ObserveDuration("pipeline", "finish", time.Since(start).Milliseconds())
	printReport(stdout, rep)
	term.RunFinish(true, time.Since(start))
	return diag.ExitOK
}

// initConfig: --init-config 不带值时写到当前目录。
func initConfig(args []string, stdout, stderr io.Writer) int {
	dir := "."
	if v, ok := strings.CutPrefix(args[0], "--init-config="); ok {
		dir = v
	} else if len(args) > 1 && !strings.HasPrefix(args[1], "-") {
		dir = args[1]
	}
	p, err := cfgpkg.WriteTemplate(dir)
	if err != nil {
		fprintf(stderr, "生成默认配置失败: %v\n", err)
		return diag.ExitCode(err)
	}
	fprintf(stdout, "已生成 %s\n", p)
	return diag.ExitOK
}

func printReport(w io.Writer, rep *pipeline.Report) {
	src := "built"
	if rep.Loaded {
		src = "loaded"
	}
	fprintf(w, "task=%s vocab=%d (%s from %s)\n", rep.Task, rep.VocabSize, src, rep.VocabSplit)
	for _, sp := range rep.Splits {
		fprintf(w, "  %s\n", sp.Summary())
		for _, m := range sp.Malformed {
			fprintf(w, "    skipped: %s\n", m)
		}
	}
	names := make([]string, 0, len(rep.Artifacts))
	for _, a := range rep.Artifacts {
		names = append(names, string(a))
	}
	fprintf(w, "artifacts: %s\n", strings.Join(names, ", "))
	if snap := diag.Snapshot(); len(snap) > 0 {
		fprintf(w, "metrics:\n")
		for _, m := range snap {
			fprintf(w, "  %s %d\n", m.Name, m.Value)
		}
	}
}

func usage(w io.Writer) {
	fprintf(w, `用法:
  fastrecord <classifier|similarity|tagging> [flags] [path]
  fastrecord --init-config [dir]
  fastrecord help

子命令参数见 fastrecord <task> --help。
配置优先级：命令行 > 环境变量 %s_* > 配置文件 (./%s.{yaml,json,toml} 或 --config) > 默认值。
`, cfgpkg.EnvPrefix, cfgpkg.ConfigName)
}

func fprintf(w io.Writer, format string, a ...any) { _, _ = fmt.Fprintf(w, format, a...) }
