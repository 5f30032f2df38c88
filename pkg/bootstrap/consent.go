package bootstrap

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"sync/atomic"

	"github.com/mattn/go-isatty"
)

var (
	// ErrConsentDenied 用户取消了输出文件的选择
	ErrConsentDenied = errors.New("output file selection cancelled")
	// ErrConsentUsed 确认入口只能使用一次
	ErrConsentUsed = errors.New("output file selection already used this session")
)

// ConsentProvider 在用户明确操作后给出输出文件路径，每个会话只应答一次
type ConsentProvider interface {
	Acquire(ctx context.Context) (string, error)
}

// StaticConsent 使用预先配置好的路径（命令行参数或环境变量）
type StaticConsent struct {
	path string
	used atomic.Bool
}

// NewStaticConsent 创建一个新的 StaticConsent 实例
func NewStaticConsent(path string) *StaticConsent {
	return &StaticConsent{path: path}
}

func (c *StaticConsent) Acquire(ctx context.Context) (string, error) {
	if c.used.Swap(true) {
		return "", ErrConsentUsed
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if strings.TrimSpace(c.path) == "" {
		return "", ErrConsentDenied
	}
	return c.path, nil
}

// PromptConsent 在终端上询问输出文件路径
type PromptConsent struct {
	in          io.Reader
	out         io.Writer
	defaultPath string
	used        atomic.Bool
}

// NewPromptConsent 创建一个新的 PromptConsent 实例
func NewPromptConsent(in io.Reader, out io.Writer, defaultPath string) *PromptConsent {
	return &PromptConsent{in: in, out: out, defaultPath: defaultPath}
}

// Acquire 打印提示并读取一行。空行使用默认路径，"n"/"no" 或 EOF 视为取消。
func (c *PromptConsent) Acquire(ctx context.Context) (string, error) {
	if c.used.Swap(true) {
		return "", ErrConsentUsed
	}
	if c.defaultPath != "" {
		fmt.Fprintf(c.out, "Choose Now Playing path [%s]: ", c.defaultPath)
	} else {
		fmt.Fprint(c.out, "Choose Now Playing path: ")
	}

	type answer struct {
		line string
		err  error
	}
	// ctx 取消后这个 goroutine 会一直阻塞在 stdin 上直到进程退出。
	// 每个会话最多询问一次，泄漏的只有这一个 goroutine。
	answers := make(chan answer, 1)
	go func() {
		line, err := bufio.NewReader(c.in).ReadString('\n')
		answers <- answer{line: line, err: err}
	}()

	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case a := <-answers:
		line := strings.TrimSpace(a.line)
		if a.err != nil && !errors.Is(a.err, io.EOF) {
			return "", fmt.Errorf("read answer: %w", a.err)
		}
		if a.err != nil && line == "" {
			return "", ErrConsentDenied
		}
		switch strings.ToLower(line) {
		case "n", "no":
			return "", ErrConsentDenied
		case "":
			if c.defaultPath == "" {
				return "", ErrConsentDenied
			}
			return c.defaultPath, nil
		default:
			return line, nil
		}
	}
}

// IsInteractive 判断文件是否连接到终端
func IsInteractive(f *os.File) bool {
	fd := f.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

// NewConsent 根据运行环境选择确认方式：
// 显式给出路径时直接使用，否则在终端上询问，非交互环境下使用默认路径。
func NewConsent(explicitPath, defaultPath string, in *os.File, out io.Writer) ConsentProvider {
	if explicitPath != "" {
		return NewStaticConsent(explicitPath)
	}
	if IsInteractive(in) {
		return NewPromptConsent(in, out, defaultPath)
	}
	return NewStaticConsent(defaultPath)
}
