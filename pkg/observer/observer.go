package observer

import (
	"context"
	"fmt"
	"log"
	"sync"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
)

// Disposer 永久停止观察，可以安全地重复调用
type Disposer func()

// Observer 观察页面中某个根节点子树的结构和属性变化
type Observer struct {
	src      Source
	selector string
	logger   *log.Logger
}

// NewObserver 创建一个新的 Observer 实例，selector 指定观察根节点
func NewObserver(src Source, selector string, logger *log.Logger) *Observer {
	return &Observer{src: src, selector: selector, logger: logger}
}

// Observe 开始观察。每当一份新快照相对上一份包含至少一处
// 子节点或属性变化时，cb 被调用一次（每批一次，而不是每处变化一次）。
// 返回的 Disposer 会等待正在执行的回调结束，返回之后不会再有回调。
// 不要在 cb 内部调用 Disposer。
func (o *Observer) Observe(ctx context.Context, cb func(Batch)) (Disposer, error) {
	doc, err := o.src.Load()
	if err != nil {
		return nil, fmt.Errorf("load initial snapshot: %w", err)
	}
	prev := o.root(doc)
	if prev == nil {
		o.logger.Printf("Warning: Observed element %s not present in initial snapshot.", o.selector)
	}

	ctx, cancel := context.WithCancel(ctx)
	changes, err := o.src.Watch(ctx)
	if err != nil {
		cancel()
		return nil, err
	}

	var (
		mu       sync.Mutex // 回调期间持有
		disposed bool
	)
	isDisposed := func() bool {
		mu.Lock()
		defer mu.Unlock()
		return disposed
	}
	go func() {
		for range changes {
			if isDisposed() {
				continue
			}
			doc, err := o.src.Load()
			if err != nil {
				// 快照可能正在被改写，等待下一次通知
				o.logger.Printf("Warning: Could not load snapshot: %v", err)
				continue
			}
			next := o.root(doc)
			if next == nil {
				o.logger.Printf("Warning: Observed element %s disappeared from snapshot, keeping last known state.", o.selector)
				continue
			}
			batch := Diff(prev, next)
			prev = next
			relevant := batch.Relevant()
			if len(relevant) == 0 {
				continue
			}
			mu.Lock()
			if !disposed {
				cb(relevant)
			}
			mu.Unlock()
		}
	}()

	var once sync.Once
	return func() {
		once.Do(func() {
			mu.Lock()
			disposed = true
			mu.Unlock()
			cancel()
		})
	}, nil
}

func (o *Observer) root(doc *goquery.Document) *html.Node {
	sel := doc.Find(o.selector).First()
	if sel.Length() == 0 {
		return nil
	}
	return sel.Nodes[0]
}
