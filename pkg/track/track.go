package track

import (
	"encoding/json"
	"fmt"
)

// State 代表当前正在播放的曲目信息
// 字段顺序即 JSON 输出顺序: cover, song, artist
type State struct {
	Cover  string `json:"cover,omitempty"`  // 封面图片 URL
	Song   string `json:"song,omitempty"`   // 歌曲名
	Artist string `json:"artist,omitempty"` // 艺术家，多个以 ", " 连接
}

// Candidate 是一次抓取得到的候选数据，nil 表示页面上没有找到对应元素
type Candidate struct {
	Cover  *string
	Song   *string
	Artist *string
}

// Some 返回 s 的指针，方便构造 Candidate
func Some(s string) *string {
	return &s
}

// IsEmpty 候选数据中是否没有任何可用字段
func (c Candidate) IsEmpty() bool {
	return !usable(c.Cover) && !usable(c.Song) && !usable(c.Artist)
}

func (c Candidate) String() string {
	return fmt.Sprintf("{cover:%s song:%s artist:%s}", show(c.Cover), show(c.Song), show(c.Artist))
}

// Merge 将候选数据合并进 State，只有非空字符串才会覆盖原值。
// 返回 true 表示候选数据中至少有一个可用字段（需要安排写入）。
func (s *State) Merge(c Candidate) bool {
	eligible := false
	if usable(c.Cover) {
		s.Cover = *c.Cover
		eligible = true
	}
	if usable(c.Song) {
		s.Song = *c.Song
		eligible = true
	}
	if usable(c.Artist) {
		s.Artist = *c.Artist
		eligible = true
	}
	return eligible
}

// IsEmpty 是否还没有观察到任何字段
func (s State) IsEmpty() bool {
	return s.Cover == "" && s.Song == "" && s.Artist == ""
}

// SameTrack 判断两个状态是否指向同一首歌（忽略封面）
func (s State) SameTrack(other State) bool {
	return s.Song == other.Song && s.Artist == other.Artist
}

// MarshalIndent 序列化为两个空格缩进的 JSON，只包含已观察到的字段
func (s State) MarshalIndent() ([]byte, error) {
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal track state: %w", err)
	}
	return data, nil
}

func usable(v *string) bool {
	return v != nil && *v != ""
}

func show(v *string) string {
	if v == nil {
		return "<absent>"
	}
	return fmt.Sprintf("%q", *v)
}
