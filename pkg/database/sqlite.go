package database

import (
	"database/sql"
	"errors"
	"fmt"
	"log"
	"time"

	_ "github.com/mattn/go-sqlite3" // SQLite driver

	"github.com/yleoer/nowplaying/pkg/track"
)

// sqliteStore 是 HistoryStore 接口的 SQLite 实现
type sqliteStore struct {
	db     *sql.DB
	logger *log.Logger
}

const createTableSQL = `
	CREATE TABLE IF NOT EXISTS played_tracks (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		song TEXT NOT NULL,
		artist TEXT NOT NULL,
		cover TEXT NOT NULL DEFAULT '',
		played_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);
	CREATE INDEX IF NOT EXISTS idx_played_tracks_played_at ON played_tracks (played_at);
	`

// NewSQLiteStore 初始化 SQLite 数据库并返回 HistoryStore 接口实例
func NewSQLiteStore(dataSourceName string, logger *log.Logger) (HistoryStore, error) {
	db, err := sql.Open("sqlite3", dataSourceName)
	if err != nil {
		return nil, fmt.Errorf("failed to open SQLite database: %w", err)
	}
	// 尝试创建表，如果不存在
	if _, err := db.Exec(createTableSQL); err != nil {
		db.Close() // 创建表失败也要关闭连接
		return nil, fmt.Errorf("failed to create played_tracks table: %w", err)
	}
	logger.Printf("SQLite database initialized at: %s", dataSourceName)
	return &sqliteStore{db: db, logger: logger}, nil
}

// Close 关闭数据库连接
func (s *sqliteStore) Close() error {
	if s.db != nil {
		err := s.db.Close()
		s.logger.Println("SQLite database connection closed.")
		return err
	}
	return nil
}

// AddPlayed 记录一首曲目
func (s *sqliteStore) AddPlayed(st track.State) error {
	_, err := s.db.Exec("INSERT INTO played_tracks (song, artist, cover, played_at) VALUES (?, ?, ?, ?)",
		st.Song, st.Artist, st.Cover, time.Now().UTC())
	if err != nil {
		s.logger.Printf("ERROR: Failed to record played track %s - %s: %v", st.Artist, st.Song, err)
		return fmt.Errorf("failed to add played track %s: %w", st.Song, err)
	}
	s.logger.Printf("Recorded played track: %s - %s", st.Artist, st.Song)
	return nil
}

// LastPlayed 返回最近一条记录
func (s *sqliteStore) LastPlayed() (*PlayedTrack, error) {
	rows, err := s.RecentPlayed(1)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return &rows[0], nil
}

// RecentPlayed 按时间倒序返回最多 limit 条记录
func (s *sqliteStore) RecentPlayed(limit int) ([]PlayedTrack, error) {
	if limit <= 0 {
		return nil, errors.New("limit must be positive")
	}
	rows, err := s.db.Query("SELECT id, song, artist, cover, played_at FROM played_tracks ORDER BY id DESC LIMIT ?", limit)
	if err != nil {
		s.logger.Printf("ERROR: Failed to query played tracks: %v", err)
		return nil, fmt.Errorf("failed to query played tracks: %w", err)
	}
	defer rows.Close()

	var out []PlayedTrack
	for rows.Next() {
		var p PlayedTrack
		if err := rows.Scan(&p.ID, &p.Song, &p.Artist, &p.Cover, &p.PlayedAt); err != nil {
			return nil, fmt.Errorf("failed to scan played track: %w", err)
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate played tracks: %w", err)
	}
	return out, nil
}
