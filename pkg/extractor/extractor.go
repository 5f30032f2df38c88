package extractor

import (
	"fmt"
	"io"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/yleoer/nowplaying/pkg/converter"
	"github.com/yleoer/nowplaying/pkg/track"
)

// artistSeparator 多个艺术家之间的分隔符
const artistSeparator = ", "

// Extractor 负责从页面文档中读取当前曲目字段
type Extractor struct {
	sel       Selectors
	converter converter.TextConverter
}

// NewExtractor 创建一个新的 Extractor 实例，tc 为 nil 时只做空白规范化
func NewExtractor(sel Selectors, tc converter.TextConverter) *Extractor {
	if tc == nil {
		tc = converter.NewWhitespaceConverter()
	}
	return &Extractor{sel: sel, converter: tc}
}

// Selectors 返回当前使用的选择器
func (e *Extractor) Selectors() Selectors {
	return e.sel
}

// ParseDocument 将页面快照解析为文档
func ParseDocument(r io.Reader) (*goquery.Document, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, fmt.Errorf("failed to parse page snapshot: %w", err)
	}
	return doc, nil
}

// ParseDocumentString 是 ParseDocument 的字符串版本
func ParseDocumentString(html string) (*goquery.Document, error) {
	return ParseDocument(strings.NewReader(html))
}

// FindRoot 查找正在播放区域
func (e *Extractor) FindRoot(doc *goquery.Document) (*goquery.Selection, bool) {
	root := doc.Find(e.sel.Root).First()
	return root, root.Length() > 0
}

// Extract 逐字段读取封面、歌曲名和艺术家。
// 找不到的元素只会让对应字段缺失，不会返回错误。
func (e *Extractor) Extract(doc *goquery.Document) track.Candidate {
	return track.Candidate{
		Cover:  e.cover(doc),
		Song:   e.song(doc),
		Artist: e.artist(doc),
	}
}

func (e *Extractor) cover(doc *goquery.Document) *string {
	img := doc.Find(e.sel.Cover).First()
	if img.Length() == 0 {
		return nil
	}
	src, ok := img.Attr("src")
	if !ok {
		return nil
	}
	src = strings.TrimSpace(src)
	return &src
}

func (e *Extractor) song(doc *goquery.Document) *string {
	el := doc.Find(e.sel.Song).First()
	if el.Length() == 0 {
		return nil
	}
	text := e.converter.Convert(el.Text())
	return &text
}

func (e *Extractor) artist(doc *goquery.Document) *string {
	container := doc.Find(e.sel.ArtistContainer).First()
	if container.Length() == 0 {
		return nil
	}
	var names []string
	container.Find(e.sel.ArtistLink).Each(func(_ int, link *goquery.Selection) {
		if name := e.converter.Convert(link.Text()); name != "" {
			names = append(names, name)
		}
	})
	joined := strings.Join(names, artistSeparator)
	return &joined
}
