package diag

import (
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"gopkg.in/natefinch/lumberjack.v2"
)

// LogDir: 默认日志目录（相对工作目录）。
const LogDir = "logs"

// LogFile: 日志文件名；超过 LogMaxSizeMB 时由 lumberjack 轮转。
const (
	LogFile      = "fastrecord.log"
	LogMaxSizeMB = 10
)

// Logger: 组件/阶段事件日志器。单行 JSON，字段：
// level, time, corr_id, comp, stage(start|finish|error|warn), code, dur_ms, count, file_id, kv, message。
type Logger struct {
	zl   zerolog.Logger
	sink io.Closer
}

// NewLogger 以 level 初始化，写入 logs/fastrecord.log（10MB 轮转）；debug 级别同时输出到 stderr。
func NewLogger(corrID, level string) *Logger {
	sink := newFileSink(filepath.Join(LogDir, LogFile))
	lvl := parseLevel(level)
	var w io.Writer = sink
	if lvl == zerolog.DebugLevel {
		w = zerolog.MultiLevelWriter(sink, os.Stderr)
	}
	l := NewLoggerTo(w, corrID, level)
	l.sink = sink
	return l
}

func newFileSink(path string) *lumberjack.Logger {
	return &lumberjack.Logger{Filename: path, MaxSize: LogMaxSizeMB}
}

// NewLoggerTo 将日志写入任意 w（测试或嵌入使用）。
func NewLoggerTo(w io.Writer, corrID, level string) *Logger {
	if w == nil {
		w = os.Stderr
	}
	zl := zerolog.New(w).Level(parseLevel(level)).With().Timestamp().Str("corr_id", corrID).Logger()
	return &Logger{zl: zl}
}

// Nop 返回丢弃一切的日志器。
func Nop() *Logger { return &Logger{zl: zerolog.Nop()} }

// Close 关闭文件 sink（若有）。
func (l *Logger) Close() error {
	if l == nil || l.sink == nil {
		return nil
	}
	return l.sink.Close()
}

func parseLevel(s string) zerolog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return zerolog.DebugLevel
	case "warn":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}

// ValidLevel 报告 s 是否为可识别的级别名（空串视为 info）。
func ValidLevel(s string) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "debug", "info", "warn", "error":
		return true
	}
	return false
}

func event(e *zerolog.Event, comp, stage, fileID string, kv map[string]string) *zerolog.Event {
	e = e.Str("comp", comp).Str("stage", stage)
	if fileID != "" {
		e = e.Str("file_id", fileID)
	}
	if len(kv) > 0 {
		d := zerolog.Dict()
		for k, v := range kv {
			d = d.Str(k, v)
		}
		e = e.Dict("kv", d)
	}
	return e
}

// Start 记录 start 事件；返回计时器用于 Finish。
func (l *Logger) Start(comp, msg string) *Timer {
	return l.StartWithKV(comp, msg, "", nil)
}

// StartWith 记录带 file_id 的 start。
func (l *Logger) StartWith(comp, msg, fileID string) *Timer {
	return l.StartWithKV(comp, msg, fileID, nil)
}

// StartWithKV 记录带 file_id 与键值的 start。
func (l *Logger) StartWithKV(comp, msg, fileID string, kv map[string]string) *Timer {
	event(l.zl.Info(), comp, "start", fileID, kv).Msg(msg)
	return &Timer{l: l, comp: comp, fileID: fileID, t0: time.Now()}
}

// DebugStart 输出调试级别的 start 事件。
func (l *Logger) DebugStart(comp, msg, fileID string, kv map[string]string) {
	event(l.zl.Debug(), comp, "start", fileID, kv).Msg(msg)
}

// Warn 记录可恢复的问题（如跳过的不合规记录）。
func (l *Logger) Warn(comp, code, msg, fileID string, kv map[string]string) {
	event(l.zl.Warn(), comp, "warn", fileID, kv).Str("code", code).Msg(msg)
}

// Error 记录 error 事件。
func (l *Logger) Error(comp, code, msg string, durSince *time.Time) {
	l.ErrorWithKV(comp, code, msg, durSince, "", nil)
}

// ErrorWith 支持 file_id。
func (l *Logger) ErrorWith(comp, code, msg string, durSince *time.Time, fileID string) {
	l.ErrorWithKV(comp, code, msg, durSince, fileID, nil)
}

// ErrorWithKV 支持附带键值对。
func (l *Logger) ErrorWithKV(comp, code, msg string, durSince *time.Time, fileID string, kv map[string]string) {
	e := event(l.zl.Error(), comp, "error", fileID, kv).Str("code", code)
	if durSince != nil {
		e = e.Int64("dur_ms", time.Since(*durSince).Milliseconds())
	}
	e.Msg(msg)
}

// Metrics 以一条 finish 事件输出当前运行计数快照（kv 为 指标名→值）。
func (l *Logger) Metrics(comp, msg string) {
	snap := Snapshot()
	d := zerolog.Dict()
	for _, m := range snap {
		d = d.Int64(m.Name, m.Value)
	}
	event(l.zl.Info(), comp, "finish", "", nil).
		Int("count", len(snap)).
		Dict("metrics", d).
		Msg(msg)
}

// Timer 用于 start→finish 计时。
type Timer struct {
	l      *Logger
	comp   string
	fileID string
	t0     time.Time
}

// Finish 记录 finish；可选 count。
func (t *Timer) Finish(msg string, count int64) { t.FinishKV(msg, count, nil) }

// FinishKV 记录带键值的 finish，并计入阶段耗时。
func (t *Timer) FinishKV(msg string, count int64, kv map[string]string) {
	if t == nil || t.l == nil {
		return
	}
	dur := time.Since(t.t0).Milliseconds()
	event(t.l.zl.Info(), t.comp, "finish", t.fileID, kv).
		Int64("dur_ms", dur).
		Int64("count", count).
		Msg(msg)
	ObserveDuration(t.comp, "finish", dur)
}

// Elapsed 返回自 start 起的耗时。
func (t *Timer) Elapsed() time.Duration {
	if t == nil {
		return 0
	}
	return time.Since(t.t0)
}
