package fsx

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
)

// 通过可替换的函数指针，让测试能稳定模拟删除失败。
var removeFunc = os.Remove

// DefaultPattern 是临时文件名模式（前缀带 '.'，避免在临时目录里显眼）。
const DefaultPattern = ".moanip-clip-*"

// ScopedFile 是“作用域内有效”的临时文件：创建即打开，Close 时关闭并删除。
//
// 约束：
// - 调用方必须在创建后立刻 defer Close（成功/失败路径都会清理）
// - Close 幂等；第二次调用返回 nil
// - 写完后读取前需要 Rewind（写入把游标留在末尾）
type ScopedFile struct {
	f      *os.File
	path   string
	closed bool
}

// CreateScoped 在 dir 下创建临时文件；dir 为空时使用 os.TempDir()。
func CreateScoped(dir, pattern string) (*ScopedFile, error) {
	if strings.TrimSpace(pattern) == "" {
		pattern = DefaultPattern
	}
	f, err := os.CreateTemp(dir, pattern)
	if err != nil {
		return nil, err
	}
	return &ScopedFile{f: f, path: f.Name()}, nil
}

// Path 返回临时文件的绝对路径（仅用于日志与测试；不要在 Close 之后使用）。
func (s *ScopedFile) Path() string { return s.path }

func (s *ScopedFile) Read(p []byte) (int, error) {
	if s.closed {
		return 0, os.ErrClosed
	}
	return s.f.Read(p)
}

func (s *ScopedFile) Write(p []byte) (int, error) {
	if s.closed {
		return 0, os.ErrClosed
	}
	return s.f.Write(p)
}

func (s *ScopedFile) Seek(offset int64, whence int) (int64, error) {
	if s.closed {
		return 0, os.ErrClosed
	}
	return s.f.Seek(offset, whence)
}

// Size 返回当前文件大小。
func (s *ScopedFile) Size() (int64, error) {
	if s.closed {
		return 0, os.ErrClosed
	}
	fi, err := s.f.Stat()
	if err != nil {
		return 0, err
	}
	return fi.Size(), nil
}

// Close 关闭并删除文件。删除失败会返回错误，但文件句柄仍然被关闭。
func (s *ScopedFile) Close() error {
	if s == nil || s.closed {
		return nil
	}
	s.closed = true

	cerr := s.f.Close()
	rerr := removeFunc(s.path)
	if rerr != nil && errors.Is(rerr, os.ErrNotExist) {
		// 已被外部删除：目标状态已达成。
		rerr = nil
	}
	switch {
	case rerr != nil:
		return fmt.Errorf("删除临时文件失败：%q：%w", s.path, rerr)
	case cerr != nil:
		return cerr
	default:
		return nil
	}
}

// Rewind 把游标移回开头。
func Rewind(s io.Seeker) error {
	_, err := s.Seek(0, io.SeekStart)
	return err
}
