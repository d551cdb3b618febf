// Package filesystem 从本地目录读取语料并识别数据集划分。
package filesystem

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	ignore "github.com/sabhiram/go-gitignore"

	"fastrecord/pkg/contract"
)

// DefaultIgnore: 目录扫描时总是跳过的条目（工具自身的输出与辅助文件）。
var DefaultIgnore = []string{
	".*",
	"*.records.ipc",
	"/vocab.txt",
	"/class.txt",
	"/classes.txt",
	"/tags.txt",
	"fastrecord.yaml",
	"logs/",
}

// Options 为 FileSystem Reader 的可选配置。
type Options struct {
	// BufSize 为读缓冲区大小（字节）。默认 64KiB。
	BufSize int `json:"buf_size"`
	// Exclude: gitignore 语法的排除模式（相对语料根目录），仅作用于未预先划分的目录扫描。
	Exclude []string `json:"exclude"`
}

// FileSystem 实现 contract.Reader。
type FileSystem struct {
	bufSize int
	ignore  *ignore.GitIgnore
}

// New 创建 FileSystem Reader。
func New(opts *Options) *FileSystem {
	b := 64 * 1024
	patterns := append([]string(nil), DefaultIgnore...)
	if opts != nil {
		if opts.BufSize > 0 {
			b = opts.BufSize
		}
		for _, p := range opts.Exclude {
			if p = strings.TrimSpace(p); p != "" {
				patterns = append(patterns, p)
			}
		}
	}
	return &FileSystem{bufSize: b, ignore: ignore.CompileIgnoreLines(patterns...)}
}

var _ contract.Reader = (*FileSystem)(nil)

// Read 读取 root 下的语料：
//   - root 为文件：整体构成划分 all；
//   - root 为目录且含 train.txt：预先划分，train 必需，dev/test 可选；
//   - 否则：目录下全部常规文件（递归、字典序、跳过排除项）构成划分 all。
func (r *FileSystem) Read(ctx context.Context, root string) ([]contract.Split, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	info, err := os.Stat(root)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", contract.ErrMissingResource, err)
	}
	if !info.IsDir() {
		lines, err := r.readFile(ctx, root, contract.NormalizeFileID(root))
		if err != nil {
			return nil, err
		}
		return []contract.Split{{Name: contract.SplitAll, Lines: lines}}, nil
	}

	if isRegular(filepath.Join(root, "train.txt")) {
		return r.readPreSplit(ctx, root)
	}
	files, err := r.scan(ctx, root)
	if err != nil {
		return nil, err
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("%w: no input files under %s", contract.ErrMissingResource, root)
	}
	all := contract.Split{Name: contract.SplitAll}
	for _, rel := range files {
		lines, err := r.readFile(ctx, filepath.Join(root, rel), contract.NormalizeFileID(rel))
		if err != nil {
			return nil, err
		}
		all.Lines = append(all.Lines, lines...)
	}
	return []contract.Split{all}, nil
}

func (r *FileSystem) readPreSplit(ctx context.Context, root string) ([]contract.Split, error) {
	var out []contract.Split
	for _, name := range []string{contract.SplitTrain, contract.SplitDev, contract.SplitTest} {
		file := name + ".txt"
		p := filepath.Join(root, file)
		if name != contract.SplitTrain && !isRegular(p) {
			continue
		}
		lines, err := r.readFile(ctx, p, contract.FileID(file))
		if err != nil {
			return nil, err
		}
		out = append(out, contract.Split{Name: name, Lines: lines})
	}
	return out, nil
}

// scan 返回 root 下未被排除的常规文件相对路径（斜杠分隔、字典序）。
// 目录符号链接不跟随。
func (r *FileSystem) scan(ctx context.Context, root string) ([]string, error) {
	var files []string
	err := filepath.WalkDir(root, func(p string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if p == root {
			return nil
		}
		rel, err := filepath.Rel(root, p)
		if err != nil {
			return err
		}
		rel = filepath.ToSlash(rel)
		if d.IsDir() {
			if r.ignore.MatchesPath(rel + "/") {
				return filepath.SkipDir
			}
			return nil
		}
		if r.ignore.MatchesPath(rel) || !isRegular(p) {
			return nil
		}
		files = append(files, rel)
		return nil
	})
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: scan %s: %v", contract.ErrMissingResource, root, err)
	}
	sort.Strings(files)
	return files, nil
}

// readFile 逐行读取；CRLF 归一为 LF，不限制行长。
func (r *FileSystem) readFile(ctx context.Context, p string, id contract.FileID) ([]contract.Line, error) {
	f, err := os.Open(p)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", contract.ErrMissingResource, err)
	}
	defer f.Close()

	br := bufio.NewReaderSize(f, r.bufSize)
	var lines []contract.Line
	for idx := contract.Index(0); ; idx++ {
		if idx%4096 == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}
		s, err := br.ReadString('\n')
		if len(s) > 0 {
			s = strings.TrimSuffix(s, "\n")
			s = strings.TrimSuffix(s, "\r")
			lines = append(lines, contract.Line{Index: idx, FileID: id, Text: s})
		}
		if errors.Is(err, io.EOF) {
			return lines, nil
		}
		if err != nil {
			return nil, fmt.Errorf("%w: read %s: %v", contract.ErrIO, p, err)
		}
	}
}

// isRegular: 常规文件或指向常规文件的符号链接。
func isRegular(p string) bool {
	info, err := os.Stat(p)
	return err == nil && info.Mode().IsRegular()
}
