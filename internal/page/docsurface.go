package page

import (
	"log"
	"strings"
	"sync"
	"time"

	"introscan/internal/dom"

	"github.com/PuerkitoBio/goquery"
)

// Banner element ids injected into the page.
const (
	BannerID      = "introscan-banner"
	BannerDescID  = "introscan-banner-desc"
	bannerCloseID = "introscan-banner-close"
)

// DocSurface implements Surface over an in-memory composite document.
type DocSurface struct {
	doc       *dom.Document
	location  string
	selectors Selectors

	mu     sync.Mutex
	banner *dom.Node // nil until shown or after dismissal
}

// NewDocSurface wraps a document as a pipeline surface. location is reported
// as the page address.
func NewDocSurface(doc *dom.Document, location string, sel Selectors) *DocSurface {
	return &DocSurface{doc: doc, location: location, selectors: sel}
}

// Document exposes the underlying document, mainly so embedding programs can
// simulate page behavior (lazy rendering, mutations) around the pipeline.
func (s *DocSurface) Document() *dom.Document {
	return s.doc
}

func (s *DocSurface) Location() string {
	return s.location
}

// TriggerExpand polls the clickable candidates at a fixed interval for an
// exact trimmed-text match and activates the first match exactly once.
func (s *DocSurface) TriggerExpand(matchText string, interval time.Duration, maxAttempts int) bool {
	if maxAttempts <= 0 || interval <= 0 {
		return false
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		<-ticker.C
		if n := s.doc.FindClickable(matchText); n != nil {
			s.doc.Click(n)
			return true
		}
	}
	return false
}

// AwaitPresence resolves as soon as the target exists, re-checking after each
// mutation batch, or when the timeout elapses. A timeout is a warning, not a
// failure: the pipeline continues with empty data.
func (s *DocSurface) AwaitPresence(targetID string, timeout time.Duration) bool {
	if s.doc.Locate(targetID) != nil {
		return true
	}
	changes, disconnect := s.doc.Observe()
	defer disconnect()
	timer := time.NewTimer(timeout)
	defer timer.Stop()
	for {
		select {
		case <-changes:
			if s.doc.Locate(targetID) != nil {
				return true
			}
		case <-timer.C:
			log.Printf("[page] %q did not appear within %v", targetID, timeout)
			return false
		}
	}
}

func (s *DocSurface) Snapshot(targetID string) dom.Result {
	return s.doc.ExtractByID(targetID)
}

// Identity reads the identity selectors off the current document. Fields that
// cannot be found keep their placeholders so the banner never renders an
// empty label.
func (s *DocSurface) Identity() Identity {
	id := Identity{Name: FallbackName, Price: FallbackPrice}
	gq, err := goquery.NewDocumentFromReader(strings.NewReader(s.doc.HTML()))
	if err != nil {
		log.Printf("[page] identity parse failed: %v", err)
		return id
	}
	if v := strings.TrimSpace(gq.Find(s.selectors.Name).First().Text()); v != "" {
		id.Name = v
	}
	if v := strings.TrimSpace(gq.Find(s.selectors.Price).First().Text()); v != "" {
		id.Price = v + "원"
	}
	if v, ok := gq.Find(s.selectors.Thumbnail).First().Attr("src"); ok {
		id.Thumbnail = v
	}
	return id
}

// ShowBanner injects the overlay banner at the top of the page. Any previous
// banner is removed first, so at most one instance exists. The body keeps a
// top-offset reservation until the banner is dismissed.
func (s *DocSurface) ShowBanner(thumbnailURL, name, price, description string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.banner != nil {
		s.doc.Remove(s.banner)
		s.banner = nil
	}
	if name == "" {
		name = FallbackName
	}
	if price == "" {
		price = FallbackPrice
	}
	if description == "" {
		description = FallbackDescription
	}

	var b strings.Builder
	b.WriteString(`<div id="` + BannerID + `" class="introscan-banner">`)
	b.WriteString(`<div class="introscan-banner-line">`)
	b.WriteString(`<img class="introscan-banner-thumb" alt="제품 썸네일" src="` + escape(thumbnailURL) + `">`)
	b.WriteString(`<span class="introscan-banner-name">` + escape(name) + `</span>`)
	b.WriteString(`<span class="introscan-banner-price">` + escape(price) + `</span>`)
	b.WriteString(`</div>`)
	b.WriteString(`<div id="` + BannerDescID + `">` + escape(description) + `</div>`)
	b.WriteString(`<button id="` + bannerCloseID + `">X</button>`)
	b.WriteString(`</div>`)

	banner, err := s.doc.AppendFragment("", b.String())
	if err != nil {
		log.Printf("[page] banner injection failed: %v", err)
		return
	}
	s.banner = banner
	s.doc.SetAttr(s.doc.Body(), "style", "padding-top:96px")

	if closeBtn := s.doc.Locate(bannerCloseID); closeBtn != nil {
		s.doc.OnClick(closeBtn, s.dismiss)
	}
}

// dismiss removes the banner and reclaims the body's top-offset reservation.
func (s *DocSurface) dismiss() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.banner == nil {
		return
	}
	s.doc.Remove(s.banner)
	s.banner = nil
	s.doc.SetAttr(s.doc.Body(), "style", "padding-top:0")
}

// UpdateDescription replaces the description line of the live banner. After
// dismissal, or before any banner exists, nothing happens.
func (s *DocSurface) UpdateDescription(text string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.banner == nil {
		return
	}
	desc := s.doc.Locate(BannerDescID)
	if desc == nil {
		log.Printf("[page] banner description node missing")
		return
	}
	if text == "" {
		text = FallbackExtra
	}
	s.doc.SetText(desc, text)
}

func escape(s string) string {
	r := strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;", `"`, "&quot;")
	return r.Replace(s)
}
