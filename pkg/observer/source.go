package observer

import (
	"context"
	"fmt"
	"log"
	"path/filepath"

	"github.com/PuerkitoBio/goquery"
	"github.com/fsnotify/fsnotify"

	"github.com/yleoer/nowplaying/pkg/extractor"
	"github.com/yleoer/nowplaying/pkg/util"
)

// Source 提供宿主页面的最新文档，以及“文档可能已变化”的通知
type Source interface {
	Load() (*goquery.Document, error)
	Watch(ctx context.Context) (<-chan struct{}, error)
}

// FileSource 从磁盘上的页面快照读取文档，并用 fsnotify 监听它的改写
type FileSource struct {
	path   string
	logger *log.Logger
}

// NewFileSource 创建一个新的 FileSource 实例
func NewFileSource(path string, logger *log.Logger) (*FileSource, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolve snapshot path %s: %w", path, err)
	}
	if util.IsDirectory(abs) {
		return nil, fmt.Errorf("snapshot path %s is a directory", abs)
	}
	if !util.IsHTMLFile(abs) {
		logger.Printf("Warning: Snapshot %s does not have an HTML extension, parsing it as HTML anyway.", abs)
	}
	return &FileSource{path: abs, logger: logger}, nil
}

// Path 返回快照文件的绝对路径
func (s *FileSource) Path() string {
	return s.path
}

// Load 读取并解析当前快照
func (s *FileSource) Load() (*goquery.Document, error) {
	content, err := util.ReadTextFileContent(s.path)
	if err != nil {
		return nil, fmt.Errorf("read snapshot %s: %w", s.path, err)
	}
	return extractor.ParseDocumentString(content)
}

// Watch 监听快照所在目录，快照被写入或替换时发出通知。
// 连续的多个事件会合并为一次未读通知；ctx 结束后通道关闭。
func (s *FileSource) Watch(ctx context.Context) (<-chan struct{}, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("error creating file watcher: %w", err)
	}
	// 监听目录而不是文件本身，这样 rename 方式的原子替换也能被捕获
	dir := filepath.Dir(s.path)
	if err := watcher.Add(dir); err != nil {
		watcher.Close()
		return nil, fmt.Errorf("error adding snapshot directory %s to watcher: %w", dir, err)
	}
	s.logger.Printf("Watching snapshot %s for changes...", s.path)

	out := make(chan struct{}, 1)
	go func() {
		defer close(out)
		defer watcher.Close()
		for {
			select {
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if !util.SamePath(event.Name, s.path) {
					continue
				}
				if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
					continue
				}
				select {
				case out <- struct{}{}:
				default:
				}
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				s.logger.Printf("ERROR: Watcher error: %v", err)
			case <-ctx.Done():
				return
			}
		}
	}()
	return out, nil
}
