package session

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/google/uuid"

	"github.com/yleoer/nowplaying/pkg/database"
	"github.com/yleoer/nowplaying/pkg/extractor"
	"github.com/yleoer/nowplaying/pkg/observer"
	"github.com/yleoer/nowplaying/pkg/persister"
	"github.com/yleoer/nowplaying/pkg/track"
)

// Output 是会话独占的输出文件
type Output interface {
	persister.Writer
	Close() error
}

// Options 会话的可选参数
type Options struct {
	DebounceInterval time.Duration
	History          database.HistoryStore // 为 nil 时不记录播放历史
}

// Session 持有一次观察会话的全部状态：曲目信息、输出文件、防抖定时器和观察者
type Session struct {
	ID string

	src       observer.Source
	extractor *extractor.Extractor
	out       Output
	debouncer *persister.Debouncer
	history   database.HistoryStore
	logger    *log.Logger

	mu           sync.Mutex
	state        track.State
	lastRecorded track.State
	dispose      observer.Disposer
	started      bool
	stopped      bool
}

// New 创建一个新的 Session 实例
func New(src observer.Source, ex *extractor.Extractor, out Output, opts Options, logger *log.Logger) *Session {
	id := uuid.NewString()
	sessionLogger := log.New(logger.Writer(), fmt.Sprintf("%s[%s] ", logger.Prefix(), id[:8]), logger.Flags())

	s := &Session{
		ID:        id,
		src:       src,
		extractor: ex,
		out:       out,
		history:   opts.History,
		logger:    sessionLogger,
	}
	s.debouncer = persister.NewDebouncer(out, s.Snapshot, opts.DebounceInterval, sessionLogger)
	s.debouncer.OnWritten = s.recordHistory
	return s
}

// Snapshot 返回当前曲目状态的副本
func (s *Session) Snapshot() track.State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Start 开始观察，并立即抓取一次以记录已经在播放的曲目
func (s *Session) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.started {
		s.mu.Unlock()
		return errors.New("session already started")
	}
	s.started = true
	s.mu.Unlock()

	s.loadLastRecorded()

	obs := observer.NewObserver(s.src, s.extractor.Selectors().Root, s.logger)
	dispose, err := obs.Observe(ctx, func(observer.Batch) {
		s.Refresh()
	})
	if err != nil {
		return fmt.Errorf("start observing: %w", err)
	}

	s.mu.Lock()
	s.dispose = dispose
	s.mu.Unlock()

	s.logger.Println("Now Playing is now observing current song.")
	s.Refresh()
	return nil
}

// Refresh 重新读取页面并更新状态
func (s *Session) Refresh() bool {
	doc, err := s.src.Load()
	if err != nil {
		s.logger.Printf("Warning: Could not load page snapshot: %v", err)
		return false
	}
	return s.Update(doc)
}

// Update 抽取 → 合并 → 需要时安排一次写入。
// 返回 false 表示这次抽取没有任何可用字段，不会安排写入。
func (s *Session) Update(doc *goquery.Document) bool {
	candidate := s.extractor.Extract(doc)
	if candidate.IsEmpty() {
		s.logger.Printf("Skipping extraction without usable fields: %v", candidate)
		return false
	}

	// 持锁安排写入，Stop 之后不会再有新的定时器
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopped {
		return false
	}
	s.state.Merge(candidate)
	s.debouncer.ScheduleWrite()
	return true
}

// Capture 抽取一次并立即写入，不经过防抖，用于一次性模式
func (s *Session) Capture() (bool, error) {
	doc, err := s.src.Load()
	if err != nil {
		return false, err
	}
	candidate := s.extractor.Extract(doc)
	if candidate.IsEmpty() {
		s.logger.Printf("Skipping extraction without usable fields: %v", candidate)
		return false, nil
	}

	s.mu.Lock()
	s.state.Merge(candidate)
	s.mu.Unlock()

	s.loadLastRecorded()
	return true, s.debouncer.Flush()
}

// Pending 是否有尚未执行的写入
func (s *Session) Pending() bool {
	return s.debouncer.Pending()
}

// Stop 停止观察，写出尚未执行的写入并释放输出文件。可重复调用。
func (s *Session) Stop() error {
	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return nil
	}
	s.stopped = true
	dispose := s.dispose
	s.mu.Unlock()

	if dispose != nil {
		dispose()
	}

	var errs []error
	if s.debouncer.Pending() {
		if err := s.debouncer.Flush(); err != nil {
			errs = append(errs, fmt.Errorf("flush pending write: %w", err))
		}
	} else {
		s.debouncer.Stop()
	}
	if err := s.out.Close(); err != nil {
		errs = append(errs, err)
	}
	if st := s.Snapshot(); !st.IsEmpty() {
		s.logger.Printf("Now Playing session stopped. Last known track: %s - %s", st.Artist, st.Song)
	} else {
		s.logger.Println("Now Playing session stopped before any track was observed.")
	}
	return errors.Join(errs...)
}

func (s *Session) loadLastRecorded() {
	if s.history == nil {
		return
	}
	last, err := s.history.LastPlayed()
	if err != nil {
		s.logger.Printf("Warning: Could not read play history: %v", err)
		return
	}
	if last == nil {
		return
	}
	s.mu.Lock()
	s.lastRecorded = track.State{Song: last.Song, Artist: last.Artist, Cover: last.Cover}
	s.mu.Unlock()
}

// recordHistory 在写入成功后调用，同一首歌只记录一次
func (s *Session) recordHistory(st track.State) {
	if s.history == nil || st.Song == "" {
		return
	}
	s.mu.Lock()
	same := st.SameTrack(s.lastRecorded)
	s.mu.Unlock()
	if same {
		return
	}
	if err := s.history.AddPlayed(st); err != nil {
		return
	}
	s.mu.Lock()
	s.lastRecorded = st
	s.mu.Unlock()
}
