package converter

import "strings"

// TextConverter 定义文本转换器接口
type TextConverter interface {
	Convert(text string) string // 规范化抓取到的文本
}

// whitespaceConverter 只折叠空白字符，不做繁简转换
type whitespaceConverter struct{}

// NewWhitespaceConverter 返回只做空白规范化的转换器
func NewWhitespaceConverter() TextConverter {
	return whitespaceConverter{}
}

func (whitespaceConverter) Convert(text string) string {
	return CollapseSpaces(text)
}

// CollapseSpaces 去除首尾空白，并将连续空白替换为一个空格
func CollapseSpaces(text string) string {
	return strings.Join(strings.Fields(text), " ")
}
