package contract

import (
	"errors"
	"fmt"
)

// 最小错误分类（哨兵），各层以 %w 包装后上抛。
var (
	// ErrConfiguration: 选项取值非法（如非正的词表大小或序列长度）。
	ErrConfiguration = errors.New("configuration error")
	// ErrMissingResource: 输入路径、词表文件或停用词文件不存在/不可读/为空。
	ErrMissingResource = errors.New("missing resource")
	// ErrMalformedRecord: 行或句子块不符合任务要求的字段数。
	ErrMalformedRecord = errors.New("malformed record")
	// ErrIO: 输出写入失败。
	ErrIO = errors.New("io error")
	// ErrPathInvalid: 工件标识映射为无效/越界路径（例如绝对路径或 '..' 逃逸）。
	ErrPathInvalid = errors.New("path invalid")
	// ErrInvariantViolation: 领域不变量违例（定宽、对齐等）。
	ErrInvariantViolation = errors.New("invariant violation")
)

// MalformedError 携带出错单元的位置；errors.Is(err, ErrMalformedRecord) 为真。
type MalformedError struct {
	FileID FileID
	Index  Index
	Reason string
}

func (e *MalformedError) Error() string {
	return fmt.Sprintf("malformed record at %s:%d: %s", e.FileID, e.Index+1, e.Reason)
}

func (e *MalformedError) Is(target error) bool { return target == ErrMalformedRecord }

// Malformed 基于单元首行位置构造 MalformedError。
func Malformed(u Unit, format string, a ...any) error {
	fid, idx := u.Pos()
	return &MalformedError{FileID: fid, Index: idx, Reason: fmt.Sprintf(format, a...)}
}
