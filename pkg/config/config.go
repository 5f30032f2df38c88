package config

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	SourceFile       string        `json:"source_file"`       // 页面快照文件
	OutputFile       string        `json:"output_file"`       // 正在播放 JSON 输出文件（默认值，最终以用户确认为准）
	DataDir          string        `json:"data_dir"`          // SQLite数据库文件存放目录
	DBFileName       string        `json:"db_file_name"`      // SQLite数据库文件名
	DBPath           string        `json:"-"`                 // 完整的数据库文件路径
	SelectorsFile    string        `json:"selectors_file"`    // 选择器覆盖文件 (TOML)
	DebounceInterval time.Duration `json:"debounce_interval"` // 写入前需要保持安静的时间
	InitialDelay     time.Duration `json:"initial_delay"`     // 首次查找根节点前的等待
	RetryInterval    time.Duration `json:"retry_interval"`    // 查找根节点的重试间隔
	MaxRetries       int           `json:"max_retries"`       // 首次之外的最大重试次数
	ConvertT2S       bool          `json:"convert_t2s"`       // 是否将繁体中文转换为简体
	HistoryEnabled   bool          `json:"history_enabled"`   // 是否记录播放历史
}

const (
	sourceFile = "nowplaying.html"
	outputFile = "nowplaying.json"
	dataDir    = "data"
	dbFileName = "history.db"

	debounceInterval = 200 * time.Millisecond
	initialDelay     = 1 * time.Second
	retryInterval    = 1 * time.Second
	maxRetries       = 3
)

// LoadConfig 从环境变量或默认值加载配置
func LoadConfig() (*Config, error) {
	// 尝试加载 .env 文件
	_ = godotenv.Load()

	cfg := &Config{
		SourceFile:       os.Getenv("SOURCE_FILE"),
		OutputFile:       os.Getenv("OUTPUT_FILE"),
		DataDir:          os.Getenv("DATA_DIR"),
		DBFileName:       os.Getenv("DB_FILE_NAME"),
		SelectorsFile:    os.Getenv("SELECTORS_FILE"),
		DebounceInterval: parseDurationOrDefault(os.Getenv("DEBOUNCE_INTERVAL"), debounceInterval),
		InitialDelay:     parseDurationOrDefault(os.Getenv("INITIAL_DELAY"), initialDelay),
		RetryInterval:    parseDurationOrDefault(os.Getenv("RETRY_INTERVAL"), retryInterval),
		MaxRetries:       parseIntOrDefault(os.Getenv("MAX_RETRIES"), maxRetries),
		ConvertT2S:       parseBoolOrDefault(os.Getenv("CONVERT_T2S"), false),
		HistoryEnabled:   parseBoolOrDefault(os.Getenv("HISTORY_ENABLED"), true),
	}

	// 设置默认值
	if cfg.SourceFile == "" {
		cfg.SourceFile = sourceFile
	}
	if cfg.OutputFile == "" {
		cfg.OutputFile = outputFile
	}
	if cfg.DataDir == "" {
		cfg.DataDir = dataDir
	}
	if cfg.DBFileName == "" {
		cfg.DBFileName = dbFileName
	}
	if cfg.MaxRetries < 0 {
		log.Printf("Warning: MAX_RETRIES must not be negative, using default '%d'.", maxRetries)
		cfg.MaxRetries = maxRetries
	}
	cfg.DBPath = filepath.Join(cfg.DataDir, cfg.DBFileName)
	return cfg, nil
}

// EnsureDataDir 确认数据库目录存在
func (c *Config) EnsureDataDir() error {
	if err := os.MkdirAll(c.DataDir, 0755); err != nil {
		return fmt.Errorf("failed to create database directory %s: %w", c.DataDir, err)
	}
	return nil
}

func parseDurationOrDefault(s string, defaultValue time.Duration) time.Duration {
	if s == "" {
		return defaultValue
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		log.Printf("Warning: Could not parse duration '%s', using default '%v'. Error: %v", s, defaultValue, err)
		return defaultValue
	}
	return d
}

func parseIntOrDefault(s string, defaultValue int) int {
	if s == "" {
		return defaultValue
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		log.Printf("Warning: Could not parse integer '%s', using default '%d'. Error: %v", s, defaultValue, err)
		return defaultValue
	}
	return n
}

func parseBoolOrDefault(s string, defaultValue bool) bool {
	if s == "" {
		return defaultValue
	}
	b, err := strconv.ParseBool(s)
	if err != nil {
		log.Printf("Warning: Could not parse boolean '%s', using default '%v'. Error: %v", s, defaultValue, err)
		return defaultValue
	}
	return b
}
