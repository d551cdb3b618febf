package diag

import (
	"context"
	"errors"
	"os"

	"fastrecord/pkg/contract"
)

// Code 是最小错误分类代码，用于日志、计数与退出码。
type Code string

const (
	CodeUnknown   Code = "unknown"
	CodeConfig    Code = "config"
	CodeMissing   Code = "missing"
	CodeMalformed Code = "malformed"
	CodeInvariant Code = "invariant"
	CodeCancel    Code = "cancel"
	CodeIO        Code = "io"
)

// Classify 将错误归为最小分类；仅依赖哨兵错误与标准库错误类型，不做字符串匹配。
func Classify(err error) Code {
	switch {
	case err == nil:
		return CodeUnknown
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return CodeCancel
	case errors.Is(err, contract.ErrConfiguration):
		return CodeConfig
	case errors.Is(err, contract.ErrMissingResource):
		return CodeMissing
	case errors.Is(err, contract.ErrMalformedRecord):
		return CodeMalformed
	case errors.Is(err, contract.ErrInvariantViolation), errors.Is(err, contract.ErrPathInvalid):
		return CodeInvariant
	case errors.Is(err, contract.ErrIO):
		return CodeIO
	}
	var perr *os.PathError
	if errors.As(err, &perr) {
		return CodeIO
	}
	return CodeUnknown
}

// 退出码。
const (
	ExitOK      = 0
	ExitFailure = 1
	ExitUsage   = 2
	ExitConfig  = 3
)

// ExitCode 将错误映射为进程退出码：配置/缺失资源为 3，其余失败为 1。
func ExitCode(err error) int {
	if err == nil {
		return ExitOK
	}
	switch Classify(err) {
	case CodeConfig, CodeMissing:
		return ExitConfig
	default:
		return ExitFailure
	}
}
