package diag

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/mattn/go-isatty"
	"github.com/schollz/progressbar/v3"
)

// Terminal: 终端进度提示（非日志）。
// - TTY: 每个划分一条 progressbar 进度条（100ms 节流，完成后清除）；非 TTY: 仅关键节点分行打印。
// - 并发安全；写失败后进入禁用态为 no-op。
type Terminal struct {
	w       *trackWriter
	enabled bool
	isTTY   bool

	task        string
	concurrency int
	splitsDone  int

	curSplit string
	skipped  int
	bar      *progressbar.ProgressBar

	mu sync.Mutex
}

// trackWriter 记录首个写错误，供进度条写失败时禁用终端。
type trackWriter struct {
	w   io.Writer
	err error
}

func (tw *trackWriter) Write(p []byte) (int, error) {
	if tw.err != nil {
		return 0, tw.err
	}
	n, err := tw.w.Write(p)
	if err != nil {
		tw.err = err
	}
	return n, err
}

// 进程级终端（可选，全局设置后供 pipeline 旁路调用）。
var (
	termMu sync.RWMutex
	term   *Terminal
)

// SetTerminal 设置全局终端指针（nil 可清除）。
func SetTerminal(t *Terminal) { termMu.Lock(); term = t; termMu.Unlock() }

// GetTerminal 返回全局终端（可能为 nil）。
func GetTerminal() *Terminal { termMu.RLock(); defer termMu.RUnlock(); return term }

// NewTerminal 构造终端提示器；enabled=false 时总是 no-op。
func NewTerminal(w io.Writer, enabled bool) *Terminal {
	if w == nil {
		w = os.Stderr
	}
	t := &Terminal{w: &trackWriter{w: w}, enabled: enabled}
	// CI 环境视为非 TTY
	if os.Getenv("CI") == "" {
		if f, ok := w.(*os.File); ok {
			t.isTTY = isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
		}
	}
	return t
}

// RunStart 记录运行上下文（任务、并发）。
func (t *Terminal) RunStart(task string, concurrency int) {
	if t == nil {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.enabled {
		return
	}
	t.task = task
	t.concurrency = concurrency
	t.splitsDone = 0
	t.println(fmt.Sprintf("[run] 任务=%s | 并发=%d", safe(task), concurrency))
}

// SplitStart 标记当前划分与单元总数；TTY 下立即绘制空进度条。
func (t *Terminal) SplitStart(name string, units int) {
	if t == nil {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.enabled {
		return
	}
	t.curSplit = safe(name)
	t.skipped = 0
	t.bar = nil
	if !t.isTTY {
		t.println(fmt.Sprintf("[split] %s | 单元=%d", t.curSplit, units))
		return
	}
	if units <= 0 {
		return
	}
	t.bar = progressbar.NewOptions(units,
		progressbar.OptionSetWriter(t.w),
		progressbar.OptionSetDescription(t.describe()),
		progressbar.OptionSetWidth(30),
		progressbar.OptionShowCount(),
		progressbar.OptionThrottle(100*time.Millisecond),
		progressbar.OptionClearOnFinish(),
		progressbar.OptionSetRenderBlankState(true),
	)
	t.checkWrite()
}

// SplitProgress 周期性进度（仅 TTY；节流由进度条负责）。
func (t *Terminal) SplitProgress(done, skipped int) {
	if t == nil {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.enabled || !t.isTTY || t.bar == nil {
		return
	}
	if skipped != t.skipped {
		t.skipped = skipped
		t.bar.Describe(t.describe())
	}
	if m := int(t.bar.GetMax()); done > m {
		done = m
	}
	_ = t.bar.Set(done)
	t.checkWrite()
}

// SplitFinish 完成当前划分（清除进度条后打印结果行）。
func (t *Terminal) SplitFinish(ok bool, rows int, dur time.Duration) {
	if t == nil {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.enabled {
		return
	}
	t.splitsDone++
	status := "done"
	if !ok {
		status = "fail"
	}
	if t.bar != nil {
		_ = t.bar.Clear()
		t.bar = nil
		t.checkWrite()
	}
	t.println(fmt.Sprintf("[%s] %s | 行 %d | 用时 %s", status, t.curSplit, rows, formatDur(dur)))
}

func (t *Terminal) describe() string {
	return fmt.Sprintf("[split] %s | 跳过 %d | 并发 %d", t.curSplit, t.skipped, t.concurrency)
}

func (t *Terminal) checkWrite() {
	if t.w.err != nil {
		t.enabled = false
		t.bar = nil
	}
}

// Note 打印一行摘要信息。
func (t *Terminal) Note(s string) {
	if t == nil {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.println(safe(s))
}

// RunFinish 结束总览。
func (t *Terminal) RunFinish(ok bool, dur time.Duration) {
	if t == nil {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.enabled {
		return
	}
	tag := "ok"
	if !ok {
		tag = "fail"
	}
	t.println(fmt.Sprintf("[%s] 全部完成 | 划分 %d | 总用时 %s", tag, t.splitsDone, formatDur(dur)))
}

func (t *Terminal) println(s string) {
	if !t.enabled {
		return
	}
	if _, err := io.WriteString(t.w, s+"\n"); err != nil {
		t.enabled = false
	}
}

func safe(s string) string {
	return strings.NewReplacer("\n", " ", "\r", " ").Replace(s)
}

func formatDur(d time.Duration) string {
	if d < time.Second {
		return fmt.Sprintf("%dms", max(d.Milliseconds(), 0))
	}
	return fmt.Sprintf("%.1fs", float64(d.Milliseconds())/1000.0)
}
