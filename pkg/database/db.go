package database

import (
	"time"

	"github.com/yleoer/nowplaying/pkg/track"
)

// PlayedTrack 是播放历史中的一条记录
type PlayedTrack struct {
	ID       int64
	Song     string
	Artist   string
	Cover    string
	PlayedAt time.Time
}

// HistoryStore 定义播放历史存储接口
type HistoryStore interface {
	AddPlayed(st track.State) error                // 记录一首已写入的曲目
	LastPlayed() (*PlayedTrack, error)             // 最近一条记录，没有时返回 nil
	RecentPlayed(limit int) ([]PlayedTrack, error) // 按时间倒序返回最近的记录
	Close() error                                  // 关闭数据库连接
}
