package observer

import (
	"fmt"
	"sort"
	"strings"

	"golang.org/x/net/html"
)

// MutationKind 变化类型
type MutationKind int

const (
	ChildList     MutationKind = iota // 子节点增删或替换
	Attributes                        // 元素属性变化
	CharacterData                     // 纯文本节点内容变化
)

func (k MutationKind) String() string {
	switch k {
	case ChildList:
		return "childList"
	case Attributes:
		return "attributes"
	case CharacterData:
		return "characterData"
	default:
		return fmt.Sprintf("MutationKind(%d)", int(k))
	}
}

// Mutation 描述根节点子树中的一处变化
type Mutation struct {
	Kind MutationKind
	Path string // 相对观察根节点的位置，如 "div>a:1"
}

// Batch 是两次快照之间的全部变化
type Batch []Mutation

// Relevant 只保留子节点和属性变化，纯文本变化会被过滤掉
func (b Batch) Relevant() Batch {
	var out Batch
	for _, m := range b {
		if m.Kind == ChildList || m.Kind == Attributes {
			out = append(out, m)
		}
	}
	return out
}

// Diff 比较同一个观察根节点的两份快照。
// 子节点结构不同时只报告一次 ChildList，不再深入比较。
func Diff(prev, next *html.Node) Batch {
	if prev == nil || next == nil {
		if prev == next {
			return nil
		}
		return Batch{{Kind: ChildList, Path: ""}}
	}
	var batch Batch
	diffNode(prev, next, nodeLabel(next, 0), &batch)
	return batch
}

func diffNode(a, b *html.Node, path string, batch *Batch) {
	if a.Type == html.TextNode || a.Type == html.CommentNode {
		if a.Data != b.Data {
			*batch = append(*batch, Mutation{Kind: CharacterData, Path: path})
		}
		return
	}
	if !sameAttrs(a.Attr, b.Attr) {
		*batch = append(*batch, Mutation{Kind: Attributes, Path: path})
	}

	ac, bc := children(a), children(b)
	if !sameShape(ac, bc) {
		*batch = append(*batch, Mutation{Kind: ChildList, Path: path})
		return
	}
	for i := range ac {
		diffNode(ac[i], bc[i], path+">"+nodeLabel(bc[i], i), batch)
	}
}

func children(n *html.Node) []*html.Node {
	var out []*html.Node
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		out = append(out, c)
	}
	return out
}

// sameShape 两组子节点的类型和标签是否一一对应
func sameShape(a, b []*html.Node) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i].Type != b[i].Type {
			return false
		}
		if a[i].Type == html.ElementNode && a[i].Data != b[i].Data {
			return false
		}
	}
	return true
}

func sameAttrs(a, b []html.Attribute) bool {
	if len(a) != len(b) {
		return false
	}
	return attrKey(a) == attrKey(b)
}

func attrKey(attrs []html.Attribute) string {
	parts := make([]string, 0, len(attrs))
	for _, at := range attrs {
		parts = append(parts, at.Namespace+":"+at.Key+"="+at.Val)
	}
	sort.Strings(parts)
	return strings.Join(parts, "\x00")
}

func nodeLabel(n *html.Node, index int) string {
	switch n.Type {
	case html.ElementNode:
		return fmt.Sprintf("%s:%d", n.Data, index)
	case html.TextNode:
		return fmt.Sprintf("#text:%d", index)
	case html.CommentNode:
		return fmt.Sprintf("#comment:%d", index)
	default:
		return fmt.Sprintf("#node:%d", index)
	}
}
