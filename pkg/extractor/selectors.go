package extractor

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

// Selectors 是与宿主页面标记之间的兼容契约，页面改版时可能失效
type Selectors struct {
	Root            string `toml:"root"`             // 正在播放区域，作为观察根节点
	Cover           string `toml:"cover"`            // 封面图片
	Song            string `toml:"song"`             // 歌曲名
	ArtistContainer string `toml:"artist_container"` // 艺术家列表容器
	ArtistLink      string `toml:"artist_link"`      // 容器内的单个艺术家链接
}

// DefaultSelectors 返回默认的页面选择器
func DefaultSelectors() Selectors {
	return Selectors{
		Root:            `[data-testid="now-playing-widget"]`,
		Cover:           `[data-testid=cover-art-image]`,
		Song:            `[data-testid="context-item-link"]`,
		ArtistContainer: `[data-testid="context-item-info-subtitles"]`,
		ArtistLink:      `a[data-testid="context-item-info-artist"]`,
	}
}

// LoadSelectors 从 TOML 文件读取选择器覆盖默认值，未填写的键保留默认值。
// path 为空时直接返回默认值。
func LoadSelectors(path string) (Selectors, error) {
	sel := DefaultSelectors()
	if path == "" {
		return sel, nil
	}

	file, err := os.Open(path)
	if err != nil {
		return sel, fmt.Errorf("open selectors file: %w", err)
	}
	defer file.Close()

	if err := toml.NewDecoder(file).Decode(&sel); err != nil {
		return sel, fmt.Errorf("parse selectors file %s: %w", path, err)
	}
	if err := sel.Validate(); err != nil {
		return sel, fmt.Errorf("selectors file %s: %w", path, err)
	}
	return sel, nil
}

// Validate 确认每个选择器都不为空
func (s Selectors) Validate() error {
	var missing []string
	if strings.TrimSpace(s.Root) == "" {
		missing = append(missing, "root")
	}
	if strings.TrimSpace(s.Cover) == "" {
		missing = append(missing, "cover")
	}
	if strings.TrimSpace(s.Song) == "" {
		missing = append(missing, "song")
	}
	if strings.TrimSpace(s.ArtistContainer) == "" {
		missing = append(missing, "artist_container")
	}
	if strings.TrimSpace(s.ArtistLink) == "" {
		missing = append(missing, "artist_link")
	}
	if len(missing) > 0 {
		return errors.New("empty selector(s): " + strings.Join(missing, ", "))
	}
	return nil
}
