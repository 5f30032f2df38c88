package persister

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/gofrs/flock"
)

// ErrHandleClosed 文件句柄已关闭，之后的写入全部失败
var ErrHandleClosed = errors.New("output file handle is closed")

// Writer 是持久化目标的抽象，FileHandle 是它的文件实现
type Writer interface {
	Write(data []byte) error
	Path() string
}

// FileHandle 代表对用户选定输出文件的写入能力。
// 会话期间独占持有 <file>.lock 上的咨询锁。
type FileHandle struct {
	path string
	lock *flock.Flock

	mu     sync.Mutex
	closed bool
}

// OpenFileHandle 获取输出文件的写入能力，文件已被其他会话占用时返回错误
func OpenFileHandle(path string) (*FileHandle, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolve output path %s: %w", path, err)
	}
	if err := os.MkdirAll(filepath.Dir(abs), 0755); err != nil {
		return nil, fmt.Errorf("failed to create output directory for %s: %w", abs, err)
	}

	lock := flock.New(abs + ".lock")
	ok, err := lock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("acquire lock for %s: %w", abs, err)
	}
	if !ok {
		return nil, fmt.Errorf("output file %s is already in use by another session", abs)
	}
	return &FileHandle{path: abs, lock: lock}, nil
}

// Path 返回输出文件的绝对路径
func (h *FileHandle) Path() string {
	return h.path
}

// Write 用 data 整体替换文件内容。
// 先写入同目录下的临时文件再 rename，读者不会看到写了一半的内容。
func (h *FileHandle) Write(data []byte) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return ErrHandleClosed
	}

	dir := filepath.Dir(h.path)
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(h.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file in %s: %w", dir, err)
	}
	tmpPath := tmp.Name()
	cleanup := func() { _ = os.Remove(tmpPath) }

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		cleanup()
		return fmt.Errorf("write %s: %w", tmpPath, err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		cleanup()
		return fmt.Errorf("sync %s: %w", tmpPath, err)
	}
	if err := tmp.Close(); err != nil {
		cleanup()
		return fmt.Errorf("close %s: %w", tmpPath, err)
	}
	if err := os.Chmod(tmpPath, 0644); err != nil {
		cleanup()
		return fmt.Errorf("chmod %s: %w", tmpPath, err)
	}
	if err := os.Rename(tmpPath, h.path); err != nil {
		cleanup()
		return fmt.Errorf("replace %s: %w", h.path, err)
	}
	return nil
}

// Close 释放文件锁，可重复调用
func (h *FileHandle) Close() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return nil
	}
	h.closed = true
	if err := h.lock.Unlock(); err != nil {
		return fmt.Errorf("release lock for %s: %w", h.path, err)
	}
	if err := os.Remove(h.lock.Path()); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove lock file %s: %w", h.lock.Path(), err)
	}
	return nil
}
