package persister

import (
	"log"
	"sync"
	"time"

	"github.com/yleoer/nowplaying/pkg/track"
)

// DefaultInterval 两次变化之间需要保持安静的时间
const DefaultInterval = 200 * time.Millisecond

// StateFunc 在真正写入时返回最新的曲目状态
type StateFunc func() track.State

// Debouncer 把短时间内的多次变化合并为一次文件写入
type Debouncer struct {
	out      Writer
	state    StateFunc
	interval time.Duration
	logger   *log.Logger

	// OnWritten 在每次写入成功后调用
	OnWritten func(track.State)
	// OnError 在写入失败后调用，失败的写入不会重试
	OnError func(error)

	timerMu sync.Mutex // 保护 timer 和 gen
	timer   *time.Timer
	gen     uint64

	writeMu sync.Mutex // 同一时刻最多一次写入
}

// NewDebouncer 创建一个新的 Debouncer 实例，interval <= 0 时使用 DefaultInterval
func NewDebouncer(out Writer, state StateFunc, interval time.Duration, logger *log.Logger) *Debouncer {
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &Debouncer{
		out:      out,
		state:    state,
		interval: interval,
		logger:   logger,
	}
}

// ScheduleWrite 取消尚未触发的写入，并在 interval 之后重新安排一次。
// 正在进行中的写入不受影响，新的写入会在它结束之后执行。
func (d *Debouncer) ScheduleWrite() {
	d.timerMu.Lock()
	defer d.timerMu.Unlock()
	if d.timer != nil {
		d.timer.Stop()
	}
	d.gen++
	gen := d.gen
	d.timer = time.AfterFunc(d.interval, func() {
		d.fire(gen)
	})
}

// Pending 是否有尚未触发的写入
func (d *Debouncer) Pending() bool {
	d.timerMu.Lock()
	defer d.timerMu.Unlock()
	return d.timer != nil
}

// Stop 取消尚未触发的写入，并等待正在进行中的写入结束。
// 返回之后不会再有定时器触发的写入。
func (d *Debouncer) Stop() {
	d.timerMu.Lock()
	d.cancelLocked()
	d.timerMu.Unlock()

	d.writeMu.Lock()
	d.writeMu.Unlock()
}

// Flush 取消等待中的定时器并立即写入
func (d *Debouncer) Flush() error {
	d.Stop()
	return d.Write()
}

// Write 把完整的当前状态写入输出文件
func (d *Debouncer) Write() error {
	d.writeMu.Lock()
	defer d.writeMu.Unlock()
	return d.writeLocked()
}

func (d *Debouncer) writeLocked() error {
	st := d.state()
	data, err := st.MarshalIndent()
	if err != nil {
		return err
	}
	if err := d.out.Write(data); err != nil {
		return err
	}
	d.logger.Printf("Now Playing: wrote file %s", d.out.Path())
	if d.OnWritten != nil {
		d.OnWritten(st)
	}
	return nil
}

func (d *Debouncer) fire(gen uint64) {
	// 先拿写锁再检查代数，Stop 之后排队等锁的定时器会发现自己已被取代
	d.writeMu.Lock()
	defer d.writeMu.Unlock()

	d.timerMu.Lock()
	if gen != d.gen {
		// 已被更新的调度取代
		d.timerMu.Unlock()
		return
	}
	d.timer = nil
	d.timerMu.Unlock()

	if err := d.writeLocked(); err != nil {
		d.logger.Printf("ERROR: Failed to write now playing file %s: %v", d.out.Path(), err)
		if d.OnError != nil {
			d.OnError(err)
		}
	}
}

func (d *Debouncer) cancelLocked() {
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
	d.gen++
}
