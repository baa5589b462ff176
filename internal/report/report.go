// Package report renders one scan's outcome for the end user.
package report

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	md "github.com/JohannesKaufmann/html-to-markdown"
	"golang.org/x/net/html"

	"introscan/internal/dom"
	"introscan/internal/page"
)

// Report holds the pre-extracted outcome of a pipeline run plus the snapshot
// served to the query host. It needs no live page to format itself.
type Report struct {
	Source      string
	Identity    page.Identity
	Snapshot    dom.Result
	Description string
	Duration    time.Duration
}

// New assembles a report.
func New(source string, id page.Identity, snap dom.Result, description string, dur time.Duration) *Report {
	return &Report{
		Source:      source,
		Identity:    id,
		Snapshot:    snap,
		Description: description,
		Duration:    dur,
	}
}

// ToText renders a plain-text report.
func (r *Report) ToText() (string, error) {
	var b strings.Builder
	fmt.Fprintf(&b, "%s | %s\n", r.Identity.Name, r.Identity.Price)
	fmt.Fprintf(&b, "source: %s\n", r.Source)
	if r.Description != "" {
		b.WriteString("\n" + r.Description + "\n")
	}
	if r.Snapshot.Text != "" {
		b.WriteString("\n" + r.Snapshot.Text + "\n")
	}
	if len(r.Snapshot.Images) > 0 {
		b.WriteString("\nimages:\n")
		for _, src := range r.Snapshot.Images {
			b.WriteString("  " + src + "\n")
		}
	}
	return b.String(), nil
}

// ToHTML renders the report as a small HTML document.
func (r *Report) ToHTML() (string, error) {
	esc := html.EscapeString
	var b strings.Builder
	b.WriteString("<article>")
	if r.Identity.Thumbnail != "" {
		fmt.Fprintf(&b, `<img src="%s" alt="%s">`, esc(r.Identity.Thumbnail), esc(r.Identity.Name))
	}
	fmt.Fprintf(&b, "<h1>%s</h1><h2>%s</h2>", esc(r.Identity.Name), esc(r.Identity.Price))
	fmt.Fprintf(&b, "<p>%s</p>", esc(r.Description))
	for _, line := range strings.Split(r.Snapshot.Text, "\n") {
		if line != "" {
			fmt.Fprintf(&b, "<p>%s</p>", esc(line))
		}
	}
	if len(r.Snapshot.Images) > 0 {
		b.WriteString("<ul>")
		for _, src := range r.Snapshot.Images {
			fmt.Fprintf(&b, `<li><a href="%s">%s</a></li>`, esc(src), esc(src))
		}
		b.WriteString("</ul>")
	}
	b.WriteString("</article>")
	return b.String(), nil
}

// ToMarkdown converts the HTML rendering to Markdown.
func (r *Report) ToMarkdown() (string, error) {
	src, err := r.ToHTML()
	if err != nil {
		return "", err
	}
	converter := md.NewConverter("", true, nil)
	markdown, err := converter.ConvertString(src)
	if err != nil {
		return "", fmt.Errorf("failed to convert HTML to Markdown: %w", err)
	}
	return markdown, nil
}

// ToJSON renders the full report as JSON.
func (r *Report) ToJSON() ([]byte, error) {
	out := struct {
		Source      string   `json:"source"`
		Name        string   `json:"name"`
		Price       string   `json:"price"`
		Thumbnail   string   `json:"thumbnail,omitempty"`
		Description string   `json:"description"`
		Text        string   `json:"text"`
		Images      []string `json:"images"`
		DurationMS  int64    `json:"duration_ms"`
	}{
		Source:      r.Source,
		Name:        r.Identity.Name,
		Price:       r.Identity.Price,
		Thumbnail:   r.Identity.Thumbnail,
		Description: r.Description,
		Text:        r.Snapshot.Text,
		Images:      r.Snapshot.Images,
		DurationMS:  r.Duration.Milliseconds(),
	}
	return json.MarshalIndent(out, "", "  ")
}

// ToCSV lists the snapshot's image sources, one row per image.
func (r *Report) ToCSV() (string, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write([]string{"index", "image"}); err != nil {
		return "", err
	}
	for i, src := range r.Snapshot.Images {
		if err := w.Write([]string{fmt.Sprintf("%d", i+1), src}); err != nil {
			return "", err
		}
	}
	w.Flush()
	return buf.String(), w.Error()
}
