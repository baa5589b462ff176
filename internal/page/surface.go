package page

import (
	"time"

	"introscan/internal/dom"
)

// Placeholder strings rendered when an identity field or description cannot
// be found. They match the production shopping page's locale.
const (
	FallbackName        = "제품명 없음"
	FallbackPrice       = "가격 정보 없음"
	FallbackDescription = "제품 설명 없음"
	FallbackExtra       = "추가 설명 없음"
)

// Identity is the best-effort product identity shown in the banner. Each
// field is filled independently, with placeholders substituted for misses.
// Computed once per run and never cached.
type Identity struct {
	Name      string
	Price     string
	Thumbnail string
}

// Selectors are the page-specific CSS selectors used to pick identity fields
// out of the document.
type Selectors struct {
	Name      string
	Price     string
	Thumbnail string
}

// DefaultSelectors returns the selectors of the production shopping page.
func DefaultSelectors() Selectors {
	return Selectors{
		Name:      "h3._22kNQuEXmb",
		Price:     "strong.aICRqgP9zw._2oBq11Xp7s span._1LY7DqCnwR",
		Thumbnail: "._2tT_gkmAOr > img._2RYeHZAP_4",
	}
}

// Surface is the pipeline's view of a page. It hides how a given platform
// represents the document and its encapsulation boundaries: DocSurface runs
// over an in-memory composite document, live.Driver over a browser page.
type Surface interface {
	// Location returns the page address, forwarded to the remote service
	// as the product link.
	Location() string

	// TriggerExpand polls the clickable candidates for an element whose
	// trimmed text equals matchText exactly, activates the first match once,
	// and reports whether an activation happened within maxAttempts polls.
	TriggerExpand(matchText string, interval time.Duration, maxAttempts int) bool

	// AwaitPresence blocks until the target subtree exists or timeout
	// elapses. It always returns; false means the target never appeared.
	AwaitPresence(targetID string, timeout time.Duration) bool

	// Snapshot extracts the target subtree's content. An absent target
	// yields the zero result.
	Snapshot(targetID string) dom.Result

	// Identity picks the best-effort product identity off the page.
	Identity() Identity

	// ShowBanner overlays the page with the extracted identity. At most one
	// banner exists at a time.
	ShowBanner(thumbnailURL, name, price, description string)

	// UpdateDescription replaces the banner's description text in place.
	// A dismissed or never-created banner makes this a silent no-op.
	UpdateDescription(text string)
}
