package contract

import (
	"context"
	"io"
)

// ArtifactID: 输出工件标识（相对输出根的路径，如 "train.records.ipc"、"vocab.txt"）。
type ArtifactID = FileID

// Writer: 将工件以流式方式持久化到目标介质。
// 约束：
//  1. 同一 ArtifactID 单写者；
//  2. 全有或全无：r 返回错误时不得留下部分工件；
//  3. ctx 取消需尽快返回；
//  4. 错误直接上抛（不做重试/回退）。
type Writer interface {
	Write(ctx context.Context, id ArtifactID, r io.Reader) error
}

// Saver: 可序列化为文本工件的对象（词表、标签集）。
type Saver interface {
	Save(w io.Writer) error
}

// Artifact: 构建器在 Fit 后产出的附属工件。
type Artifact struct {
	ID   ArtifactID
	Body Saver
}
