package diag

import (
	"fmt"
	"sort"
	"sync"
)

// 进程内计数器，运行结束时汇总到终端与日志：
// - op_total{comp,stage,result}
// - error_total{comp,code}
// - op_duration_ms{comp,stage}（累计毫秒）
var (
	metricsMu sync.Mutex
	counters  = map[string]int64{}
)

func add(key string, v int64) {
	metricsMu.Lock()
	counters[key] += v
	metricsMu.Unlock()
}

// IncOp 累加操作计数（result=success|error|skipped）。
func IncOp(comp, stage, result string) {
	add(fmt.Sprintf("op_total{comp=%s,stage=%s,result=%s}", comp, stage, result), 1)
}

// AddOp 按 n 累加操作计数。
func AddOp(comp, stage, result string, n int64) {
	if n == 0 {
		return
	}
	add(fmt.Sprintf("op_total{comp=%s,stage=%s,result=%s}", comp, stage, result), n)
}

// IncError 按分类累加错误计数。
func IncError(comp, code string) {
	add(fmt.Sprintf("error_total{comp=%s,code=%s}", comp, code), 1)
}

// ObserveDuration 累计阶段耗时（毫秒）。
func ObserveDuration(comp, stage string, durMS int64) {
	add(fmt.Sprintf("op_duration_ms{comp=%s,stage=%s}", comp, stage), durMS)
}

// Metric: 快照中的一项。
type Metric struct {
	Name  string
	Value int64
}

// Snapshot 返回按名称排序的计数快照。
func Snapshot() []Metric {
	metricsMu.Lock()
	defer metricsMu.Unlock()
	out := make([]Metric, 0, len(counters))
	for k, v := range counters {
		out = append(out, Metric{Name: k, Value: v})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// ResetMetrics 清空全部计数。
func ResetMetrics() {
	metricsMu.Lock()
	counters = map[string]int64{}
	metricsMu.Unlock()
}
