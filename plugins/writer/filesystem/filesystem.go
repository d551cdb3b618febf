// Package filesystem 将输出工件原子地写入本地目录。
package filesystem

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"fastrecord/pkg/contract"
)

// Options: 最小必要选项。
type Options struct {
	// OutputDir: 输出根目录（必需，不存在时创建）。
	OutputDir string `json:"output_dir"`
	// PermFile/PermDir: 可选权限；为 0 表示默认 0644/0755。
	PermFile os.FileMode `json:"perm_file,omitempty"`
	PermDir  os.FileMode `json:"perm_dir,omitempty"`
	// BufSize: 写缓冲区大小；<=0 使用 64KiB。
	BufSize int `json:"buf_size,omitempty"`
}

// FS 以"同目录临时文件 + fsync + rename"实现全有或全无的写入。
type FS struct {
	root    string
	permF   os.FileMode
	permD   os.FileMode
	bufSize int
}

// New 创建文件系统 Writer。
func New(opts *Options) (*FS, error) {
	if opts == nil || strings.TrimSpace(opts.OutputDir) == "" {
		return nil, fmt.Errorf("%w: output dir is required", contract.ErrConfiguration)
	}
	w := &FS{root: opts.OutputDir, permF: opts.PermFile, permD: opts.PermDir, bufSize: opts.BufSize}
	if w.permF == 0 {
		w.permF = 0o644
	}
	if w.permD == 0 {
		w.permD = 0o755
	}
	if w.bufSize <= 0 {
		w.bufSize = 64 * 1024
	}
	return w, nil
}

var _ contract.Writer = (*FS)(nil)

// Write 将 r 的全部字节写入 id 对应的路径。
// r 返回的错误原样上抛（不包装）；文件系统错误包装为 ErrIO。任一失败均不留下工件。
func (w *FS) Write(ctx context.Context, id contract.ArtifactID, r io.Reader) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	dest, err := w.mapPath(id)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(dest), w.permD); err != nil {
		return fmt.Errorf("%w: %v", contract.ErrIO, err)
	}
	return w.writeAtomic(ctx, dest, r)
}

// mapPath: Clean + Join + 越界校验。
func (w *FS) mapPath(id contract.ArtifactID) (string, error) {
	rel := filepath.Clean(filepath.FromSlash(string(id)))
	switch {
	case rel == "." || rel == "":
		return "", contract.ErrPathInvalid
	case filepath.IsAbs(rel), filepath.VolumeName(rel) != "":
		return "", contract.ErrPathInvalid
	case rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)):
		return "", contract.ErrPathInvalid
	}
	return filepath.Join(w.root, rel), nil
}

func (w *FS) writeAtomic(ctx context.Context, dest string, r io.Reader) (err error) {
	dir := filepath.Dir(dest)
	tmp, err := os.CreateTemp(dir, ".tmp-*")
	if err != nil {
		return fmt.Errorf("%w: %v", contract.ErrIO, err)
	}
	tmpPath := tmp.Name()
	closed := false
	defer func() {
		if err == nil {
			return
		}
		if !closed {
			_ = tmp.Close()
		}
		_ = os.Remove(tmpPath)
	}()
	_ = os.Chmod(tmpPath, w.permF)

	src := &srcReader{r: readerWithCtx(ctx, r)}
	bw := bufio.NewWriterSize(tmp, w.bufSize)
	if _, err = io.Copy(bw, src); err != nil {
		if src.err != nil {
			return src.err
		}
		return fmt.Errorf("%w: %v", contract.ErrIO, err)
	}
	if err = bw.Flush(); err != nil {
		return fmt.Errorf("%w: %v", contract.ErrIO, err)
	}
	if err = tmp.Sync(); err != nil {
		return fmt.Errorf("%w: %v", contract.ErrIO, err)
	}
	closed = true
	if err = tmp.Close(); err != nil {
		return fmt.Errorf("%w: %v", contract.ErrIO, err)
	}
	if err = osReplace(tmpPath, dest); err != nil {
		return fmt.Errorf("%w: %v", contract.ErrIO, err)
	}
	// 最佳努力：同步父目录
	_ = syncDir(dir)
	return nil
}

// srcReader 记录来源侧的读错误，用于与写侧错误区分。
type srcReader struct {
	r   io.Reader
	err error
}

func (s *srcReader) Read(p []byte) (int, error) {
	n, err := s.r.Read(p)
	if err != nil && !errors.Is(err, io.EOF) {
		s.err = err
	}
	return n, err
}

// readerWithCtx: 在每次 Read 前检查 ctx 是否已取消。
func readerWithCtx(ctx context.Context, r io.Reader) io.Reader {
	return &ctxReader{ctx: ctx, r: r}
}

type ctxReader struct {
	ctx context.Context
	r   io.Reader
}

func (cr *ctxReader) Read(p []byte) (int, error) {
	if err := cr.ctx.Err(); err != nil {
		return 0, err
	}
	return cr.r.Read(p)
}
