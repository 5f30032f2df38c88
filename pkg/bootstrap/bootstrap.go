package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/yleoer/nowplaying/pkg/extractor"
)

// ErrRootNotFound 多次尝试后仍未找到正在播放区域
var ErrRootNotFound = errors.New("now playing element not found")

// Loader 读取宿主页面当前的文档
type Loader interface {
	Load() (*goquery.Document, error)
}

// Options 控制启动时查找根节点的节奏
type Options struct {
	InitialDelay  time.Duration // 首次查找前的等待
	RetryInterval time.Duration // 两次查找之间的间隔
	MaxRetries    int           // 首次之外最多再尝试几次
}

// DefaultOptions 返回默认的启动节奏：等待 1 秒，之后每秒重试，最多 3 次
func DefaultOptions() Options {
	return Options{
		InitialDelay:  time.Second,
		RetryInterval: time.Second,
		MaxRetries:    3,
	}
}

// LocateRoot 等待 InitialDelay 后查找根节点，找不到时按固定间隔重试。
// 用尽重试次数后记录警告并返回 ErrRootNotFound，不再继续尝试。
// 返回值 checks 为实际检查的次数。
func LocateRoot(ctx context.Context, src Loader, ex *extractor.Extractor, opts Options, logger *log.Logger) (checks int, err error) {
	if err := sleep(ctx, opts.InitialDelay); err != nil {
		return 0, err
	}
	for attempt := 0; ; attempt++ {
		checks++
		if found(src, ex, logger) {
			logger.Printf("Found now playing element after %d check(s).", checks)
			return checks, nil
		}
		if attempt >= opts.MaxRetries {
			logger.Printf("Warning: Now Playing: current song element not found on page. Exiting after %d attempts.", checks)
			return checks, ErrRootNotFound
		}
		if err := sleep(ctx, opts.RetryInterval); err != nil {
			return checks, err
		}
	}
}

func found(src Loader, ex *extractor.Extractor, logger *log.Logger) bool {
	doc, err := src.Load()
	if err != nil {
		logger.Printf("Warning: Could not load page snapshot: %v", err)
		return false
	}
	_, ok := ex.FindRoot(doc)
	return ok
}

// Flow 描述从页面就绪到开始观察的完整启动流程
type Flow struct {
	Source    Loader
	Extractor *extractor.Extractor
	Options   Options
	Consent   ConsentProvider
	// Start 在取得输出文件后开始观察
	Start  func(ctx context.Context, outputPath string) error
	Logger *log.Logger
}

// Run 依次执行：查找根节点 → 请求用户确认输出文件 → 开始观察。
// 用户取消确认时不会开始观察。
func (f Flow) Run(ctx context.Context) error {
	if _, err := LocateRoot(ctx, f.Source, f.Extractor, f.Options, f.Logger); err != nil {
		return err
	}
	path, err := f.Consent.Acquire(ctx)
	if err != nil {
		if errors.Is(err, ErrConsentDenied) {
			f.Logger.Println("Now Playing: output file was not chosen, not observing.")
		}
		return fmt.Errorf("acquire output file: %w", err)
	}
	return f.Start(ctx, path)
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
