package dom

import "strings"

// Result is the outcome of one content extraction: the rendered text of a
// single subtree plus the image sources found beneath it. A Result is never
// mutated after Extract returns; each run produces a fresh value.
type Result struct {
	Text   string   `json:"text"`
	Images []string `json:"images"`
}

// ZeroResult is the defined empty extraction, returned when the target
// subtree is absent and used to initialize the snapshot slot.
func ZeroResult() Result {
	return Result{Text: "", Images: []string{}}
}

// skippedTags never contribute rendered text.
var skippedTags = map[string]bool{
	"script": true, "style": true, "template": true, "noscript": true,
	"head": true,
}

// blockTags break the text flow with a newline, approximating how the
// subtree reads on screen.
var blockTags = map[string]bool{
	"address": true, "article": true, "aside": true, "blockquote": true,
	"br": true, "div": true, "dl": true, "dt": true, "dd": true,
	"fieldset": true, "figure": true, "footer": true, "form": true,
	"h1": true, "h2": true, "h3": true, "h4": true, "h5": true, "h6": true,
	"header": true, "hr": true, "li": true, "main": true, "nav": true,
	"ol": true, "p": true, "pre": true, "section": true, "table": true,
	"tr": true, "ul": true,
}

// Extract returns the normalized text and image references of the subtree at
// root. A nil root yields the zero result. Text is the trimmed rendered text:
// for a shadow host the encapsulated tree is what renders, so it replaces the
// host's light children. Images are collected from the light tree and from
// every hosted tree beneath root, in discovery order, with empty and repeated
// sources dropped. Pure function of the tree at call time.
func Extract(root *Node) Result {
	if root == nil {
		return ZeroResult()
	}
	return Result{
		Text:   renderedText(root),
		Images: collectImages(root),
	}
}

func renderedText(root *Node) string {
	var lines []string
	var cur strings.Builder

	flush := func() {
		if s := strings.TrimSpace(cur.String()); s != "" {
			lines = append(lines, s)
		}
		cur.Reset()
	}

	var walk func(*Node)
	walk = func(n *Node) {
		if n.Type == TextNode {
			fields := strings.Fields(n.Data)
			if len(fields) == 0 {
				return
			}
			if cur.Len() > 0 {
				cur.WriteByte(' ')
			}
			cur.WriteString(strings.Join(fields, " "))
			return
		}
		if skippedTags[n.Tag] {
			return
		}
		block := blockTags[n.Tag]
		if block {
			flush()
		}
		if n.Hosted != nil {
			walk(n.Hosted)
		} else {
			for _, k := range n.Kids {
				walk(k)
			}
		}
		if block {
			flush()
		}
	}
	walk(root)
	flush()
	return strings.Join(lines, "\n")
}

func collectImages(root *Node) []string {
	seen := make(map[string]bool)
	out := []string{}

	add := func(src string) {
		if src == "" || seen[src] {
			return
		}
		seen[src] = true
		out = append(out, src)
	}

	// Light-tree images first, then each hosted tree, mirroring how the
	// sources are discovered during traversal.
	var walk func(*Node)
	walk = func(n *Node) {
		if n.Type != ElementNode {
			return
		}
		var light func(*Node)
		light = func(m *Node) {
			if m.Type != ElementNode {
				return
			}
			if m.Tag == "img" {
				add(m.Attr("src"))
			}
			for _, k := range m.Kids {
				light(k)
			}
		}
		light(n)
		for _, host := range shadowHosts(n) {
			walk(host.Hosted)
		}
	}
	walk(root)
	return out
}
