package dom

import (
	"fmt"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// NodeType distinguishes element nodes from text nodes.
type NodeType int

const (
	ElementNode NodeType = iota
	TextNode
)

// Attr is a single element attribute. Order is preserved from the source.
type Attr struct {
	Key string
	Val string
}

// Node is one node of a composite document tree. An element node may host an
// encapsulated subtree (Hosted != nil); hosted trees are not part of normal
// child traversal and must be entered explicitly.
type Node struct {
	Type   NodeType
	Tag    string // element tag name, lower-case; empty for text nodes
	Data   string // text content for text nodes
	Attrs  []Attr
	Kids   []*Node
	Hosted *Node // root of the encapsulated subtree, nil for plain elements
	Parent *Node
}

// ID returns the element's id attribute, or "".
func (n *Node) ID() string {
	return n.Attr("id")
}

// Attr returns the value of the named attribute, or "".
func (n *Node) Attr(key string) string {
	for _, a := range n.Attrs {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

// SetAttr sets or replaces the named attribute.
func (n *Node) SetAttr(key, val string) {
	for i, a := range n.Attrs {
		if a.Key == key {
			n.Attrs[i].Val = val
			return
		}
	}
	n.Attrs = append(n.Attrs, Attr{Key: key, Val: val})
}

// AppendChild attaches c as the last child of n.
func (n *Node) AppendChild(c *Node) {
	c.Parent = n
	n.Kids = append(n.Kids, c)
}

// Detach removes n from its parent's child list. Detaching the root or an
// already detached node is a no-op.
func (n *Node) Detach() {
	p := n.Parent
	if p == nil {
		return
	}
	for i, k := range p.Kids {
		if k == n {
			p.Kids = append(p.Kids[:i], p.Kids[i+1:]...)
			break
		}
	}
	n.Parent = nil
}

// Host attaches root as n's encapsulated subtree, replacing any previous one.
func (n *Node) Host(root *Node) {
	n.Hosted = root
}

// Text returns the trimmed concatenation of the node's direct and nested
// light-tree text, whitespace collapsed. Hosted subtrees are not entered;
// use Extract for rendered text.
func (n *Node) Text() string {
	var b strings.Builder
	var walk func(*Node)
	walk = func(m *Node) {
		if m.Type == TextNode {
			b.WriteString(m.Data)
			return
		}
		for _, k := range m.Kids {
			walk(k)
		}
	}
	walk(n)
	return strings.Join(strings.Fields(b.String()), " ")
}

// ParseFragment parses an HTML fragment into composite nodes. A <template>
// child carrying a shadowrootmode attribute becomes its parent's hosted
// subtree instead of a regular child (declarative shadow tree).
func ParseFragment(fragment string) ([]*Node, error) {
	body := &html.Node{Type: html.ElementNode, Data: "body", DataAtom: atom.Body}
	nodes, err := html.ParseFragment(strings.NewReader(fragment), body)
	if err != nil {
		return nil, fmt.Errorf("failed to parse fragment: %w", err)
	}
	out := make([]*Node, 0, len(nodes))
	for _, hn := range nodes {
		if n := convert(hn); n != nil {
			out = append(out, n)
		}
	}
	return out, nil
}

// Parse parses a full HTML document and returns the root element (<html>).
func Parse(src string) (*Node, error) {
	doc, err := html.Parse(strings.NewReader(src))
	if err != nil {
		return nil, fmt.Errorf("failed to parse document: %w", err)
	}
	for hn := doc.FirstChild; hn != nil; hn = hn.NextSibling {
		if hn.Type == html.ElementNode {
			return convert(hn), nil
		}
	}
	return nil, fmt.Errorf("document has no root element")
}

// convert maps an x/net/html node into the composite representation,
// folding declarative shadow templates into hosted subtrees.
func convert(hn *html.Node) *Node {
	switch hn.Type {
	case html.TextNode:
		return &Node{Type: TextNode, Data: hn.Data}
	case html.ElementNode:
		n := &Node{Type: ElementNode, Tag: strings.ToLower(hn.Data)}
		for _, a := range hn.Attr {
			n.Attrs = append(n.Attrs, Attr{Key: a.Key, Val: a.Val})
		}
		for c := hn.FirstChild; c != nil; c = c.NextSibling {
			k := convert(c)
			if k == nil {
				continue
			}
			if k.Type == ElementNode && k.Tag == "template" && k.Attr("shadowrootmode") != "" {
				// Template contents become the encapsulated tree of the
				// enclosing element. Wrap in a synthetic root so the hosted
				// tree has a single entry point.
				root := &Node{Type: ElementNode, Tag: "shadow-root"}
				for _, tk := range k.Kids {
					root.AppendChild(tk)
				}
				n.Host(root)
				continue
			}
			n.AppendChild(k)
		}
		return n
	default:
		return nil
	}
}

// voidTags are rendered without a closing tag.
var voidTags = map[string]bool{
	"area": true, "base": true, "br": true, "col": true, "embed": true,
	"hr": true, "img": true, "input": true, "link": true, "meta": true,
	"source": true, "track": true, "wbr": true,
}

// Render serializes the node back to HTML. Hosted subtrees are emitted as
// declarative shadow templates so a render/parse round trip preserves them.
func (n *Node) Render() string {
	var b strings.Builder
	n.render(&b)
	return b.String()
}

func (n *Node) render(b *strings.Builder) {
	if n.Type == TextNode {
		b.WriteString(html.EscapeString(n.Data))
		return
	}
	b.WriteByte('<')
	b.WriteString(n.Tag)
	for _, a := range n.Attrs {
		b.WriteByte(' ')
		b.WriteString(a.Key)
		b.WriteString(`="`)
		b.WriteString(html.EscapeString(a.Val))
		b.WriteByte('"')
	}
	b.WriteByte('>')
	if voidTags[n.Tag] {
		return
	}
	if n.Hosted != nil {
		b.WriteString(`<template shadowrootmode="open">`)
		for _, k := range n.Hosted.Kids {
			k.render(b)
		}
		b.WriteString("</template>")
	}
	for _, k := range n.Kids {
		k.render(b)
	}
	b.WriteString("</")
	b.WriteString(n.Tag)
	b.WriteByte('>')
}
