package contract

import "context"

// Reader: 语料源抽象。
// 约束：
// 1) 按划分返回原始行，不做字段解析；
// 2) 划分顺序稳定（train、dev、test，或单一 all）；
// 3) 路径不存在返回 ErrMissingResource；
// 4) 不在内部起并发。
type Reader interface {
	Read(ctx context.Context, root string) ([]Split, error)
}
