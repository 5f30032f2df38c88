package observer

import (
	"context"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/PuerkitoBio/goquery"
)

func stringsReader(s string) io.Reader {
	return strings.NewReader(s)
}

func testLogger() *log.Logger {
	return log.New(io.Discard, "", 0)
}

type fakeSource struct {
	mu      sync.Mutex
	page    string
	loads   int
	trigger chan struct{}
}

func newFakeSource(page string) *fakeSource {
	return &fakeSource{page: page, trigger: make(chan struct{}, 16)}
}

func (f *fakeSource) Load() (*goquery.Document, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.loads++
	return goquery.NewDocumentFromReader(strings.NewReader(f.page))
}

func (f *fakeSource) Watch(ctx context.Context) (<-chan struct{}, error) {
	out := make(chan struct{})
	go func() {
		defer close(out)
		for {
			select {
			case <-ctx.Done():
				return
			case <-f.trigger:
				select {
				case out <- struct{}{}:
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return out, nil
}

func (f *fakeSource) push(page string) {
	f.mu.Lock()
	f.page = page
	f.mu.Unlock()
	f.trigger <- struct{}{}
}

func (f *fakeSource) loadCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.loads
}

func waitFor(t *testing.T, timeout time.Duration, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not met before deadline")
}

func TestObserveInvokesCallbackOncePerRelevantBatch(t *testing.T) {
	src := newFakeSource(`<div data-testid="now-playing-widget"><img src="a.jpg"><a>Song A</a></div>`)
	obs := NewObserver(src, widgetSel, testLogger())

	batches := make(chan Batch, 8)
	dispose, err := obs.Observe(context.Background(), func(b Batch) { batches <- b })
	if err != nil {
		t.Fatalf("Observe() error = %v", err)
	}
	defer dispose()

	// 纯文本变化不触发回调
	src.push(`<div data-testid="now-playing-widget"><img src="a.jpg"><a>Song B</a></div>`)
	waitFor(t, time.Second, func() bool { return src.loadCount() == 2 })

	// 属性和子节点同时变化，只触发一次
	src.push(`<div data-testid="now-playing-widget" class="x"><img src="b.jpg"><a>Song B</a><span></span></div>`)

	select {
	case b := <-batches:
		if len(b) < 2 {
			t.Errorf("expected several mutations in one batch, got %v", b)
		}
		for _, m := range b {
			if m.Kind == CharacterData {
				t.Errorf("batch contains characterData mutation: %v", m)
			}
		}
	case <-time.After(time.Second):
		t.Fatal("callback was not invoked")
	}

	select {
	case b := <-batches:
		t.Fatalf("unexpected extra callback: %v", b)
	case <-time.After(100 * time.Millisecond):
	}
}

func TestDisposeStopsObservation(t *testing.T) {
	src := newFakeSource(`<div data-testid="now-playing-widget"><img src="a.jpg"></div>`)
	obs := NewObserver(src, widgetSel, testLogger())

	var mu sync.Mutex
	calls := 0
	dispose, err := obs.Observe(context.Background(), func(Batch) {
		mu.Lock()
		calls++
		mu.Unlock()
	})
	if err != nil {
		t.Fatalf("Observe() error = %v", err)
	}

	dispose()
	dispose()

	src.push(`<div data-testid="now-playing-widget"><img src="b.jpg"></div>`)
	time.Sleep(100 * time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	if calls != 0 {
		t.Errorf("callback invoked %d times after dispose", calls)
	}
}

func TestDisposeWaitsForRunningCallback(t *testing.T) {
	src := newFakeSource(`<div data-testid="now-playing-widget"><img src="a.jpg"></div>`)
	obs := NewObserver(src, widgetSel, testLogger())

	entered := make(chan struct{})
	release := make(chan struct{})
	var mu sync.Mutex
	calls := 0
	dispose, err := obs.Observe(context.Background(), func(Batch) {
		mu.Lock()
		calls++
		first := calls == 1
		mu.Unlock()
		if first {
			close(entered)
			<-release
		}
	})
	if err != nil {
		t.Fatalf("Observe() error = %v", err)
	}

	src.push(`<div data-testid="now-playing-widget"><img src="b.jpg"></div>`)
	select {
	case <-entered:
	case <-time.After(time.Second):
		t.Fatal("callback was not invoked")
	}

	disposed := make(chan struct{})
	go func() {
		dispose()
		close(disposed)
	}()

	select {
	case <-disposed:
		t.Fatal("dispose returned while a callback was still running")
	case <-time.After(50 * time.Millisecond):
	}

	close(release)
	select {
	case <-disposed:
	case <-time.After(time.Second):
		t.Fatal("dispose did not return after the callback finished")
	}

	src.push(`<div data-testid="now-playing-widget"><img src="c.jpg"></div>`)
	time.Sleep(100 * time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	if calls != 1 {
		t.Errorf("callback invoked %d times, want 1", calls)
	}
}

func TestNewFileSourceRejectsDirectory(t *testing.T) {
	if _, err := NewFileSource(t.TempDir(), testLogger()); err == nil {
		t.Fatal("NewFileSource() on a directory should fail")
	}
}

func TestFileSourceNotifiesOnRewrite(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "page.html")
	if err := os.WriteFile(path, []byte(`<div data-testid="now-playing-widget"><img src="a.jpg"></div>`), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	src, err := NewFileSource(path, testLogger())
	if err != nil {
		t.Fatalf("NewFileSource() error = %v", err)
	}
	obs := NewObserver(src, widgetSel, testLogger())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	batches := make(chan Batch, 8)
	dispose, err := obs.Observe(ctx, func(b Batch) { batches <- b })
	if err != nil {
		t.Fatalf("Observe() error = %v", err)
	}
	defer dispose()

	// 其他文件的变化被忽略
	if err := os.WriteFile(filepath.Join(dir, "other.html"), []byte("<p>x</p>"), 0o644); err != nil {
		t.Fatalf("write other: %v", err)
	}
	if err := os.WriteFile(path, []byte(`<div data-testid="now-playing-widget"><img src="b.jpg"></div>`), 0o644); err != nil {
		t.Fatalf("rewrite: %v", err)
	}

	select {
	case b := <-batches:
		if len(b) != 1 || b[0].Kind != Attributes {
			t.Errorf("batch = %v, want one attributes mutation", b)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("no batch after rewriting the snapshot")
	}
}
