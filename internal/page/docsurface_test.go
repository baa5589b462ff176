package page

import (
	"strings"
	"testing"
	"time"

	"introscan/internal/dom"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const expandText = "상세정보 펼쳐보기"

func newSurface(t *testing.T, body string) *DocSurface {
	t.Helper()
	doc, err := dom.NewDocument("<html><head></head><body>" + body + "</body></html>")
	require.NoError(t, err)
	return NewDocSurface(doc, "http://shop/p/1", DefaultSelectors())
}

func TestTriggerExpandClicksExactMatchOnce(t *testing.T) {
	s := newSurface(t, `<button id="b">`+expandText+`</button>`)
	doc := s.Document()

	clicks := 0
	doc.OnClick(doc.Locate("b"), func() { clicks++ })

	ok := s.TriggerExpand(expandText, 5*time.Millisecond, 10)
	assert.True(t, ok)
	assert.Equal(t, 1, clicks)
}

func TestTriggerExpandNoPartialMatch(t *testing.T) {
	s := newSurface(t, `<button>`+expandText+` 지금</button><div>다른 버튼</div>`)

	ok := s.TriggerExpand(expandText, 2*time.Millisecond, 3)
	assert.False(t, ok)
}

func TestTriggerExpandFindsLateControl(t *testing.T) {
	s := newSurface(t, `<div id="slot"></div>`)
	doc := s.Document()

	go func() {
		time.Sleep(15 * time.Millisecond)
		_, err := doc.AppendFragment("slot", `<button>`+expandText+`</button>`)
		if err != nil {
			panic(err)
		}
	}()

	ok := s.TriggerExpand(expandText, 5*time.Millisecond, 20)
	assert.True(t, ok)
}

func TestAwaitPresenceImmediate(t *testing.T) {
	s := newSurface(t, `<div id="INTRODUCE">here</div>`)
	assert.True(t, s.AwaitPresence("INTRODUCE", 10*time.Millisecond))
}

func TestAwaitPresenceReactsToMutation(t *testing.T) {
	s := newSurface(t, `<div id="slot"></div>`)
	doc := s.Document()

	go func() {
		time.Sleep(10 * time.Millisecond)
		_, err := doc.AppendFragment("slot", `<div id="INTRODUCE">rendered</div>`)
		if err != nil {
			panic(err)
		}
	}()

	assert.True(t, s.AwaitPresence("INTRODUCE", time.Second))
}

func TestAwaitPresenceResolvesOnTimeout(t *testing.T) {
	s := newSurface(t, `<div>nothing</div>`)

	start := time.Now()
	found := s.AwaitPresence("INTRODUCE", 30*time.Millisecond)
	elapsed := time.Since(start)

	assert.False(t, found)
	assert.Less(t, elapsed, 500*time.Millisecond, "waiter must resolve near its budget")
}

func TestSnapshotAbsentTargetIsZero(t *testing.T) {
	s := newSurface(t, `<div>nothing</div>`)
	r := s.Snapshot("INTRODUCE")
	assert.Equal(t, dom.ZeroResult(), r)
}

func TestIdentityFallbacks(t *testing.T) {
	s := newSurface(t, `<div>no product markup</div>`)
	id := s.Identity()
	assert.Equal(t, FallbackName, id.Name)
	assert.Equal(t, FallbackPrice, id.Price)
	assert.Equal(t, "", id.Thumbnail)
}

func TestIdentityFromProductMarkup(t *testing.T) {
	s := newSurface(t, `
		<h3 class="_22kNQuEXmb"> 유기농 사과 </h3>
		<strong class="aICRqgP9zw _2oBq11Xp7s"><span class="_1LY7DqCnwR">12,900</span></strong>
		<div class="_2tT_gkmAOr"><img class="_2RYeHZAP_4" src="http://i/thumb.png"></div>`)

	id := s.Identity()
	assert.Equal(t, "유기농 사과", id.Name)
	assert.Equal(t, "12,900원", id.Price)
	assert.Equal(t, "http://i/thumb.png", id.Thumbnail)
}

func TestBannerLifecycle(t *testing.T) {
	s := newSurface(t, `<div>page</div>`)
	doc := s.Document()

	s.ShowBanner("http://i/t.png", "사과", "1,000원", "설명")
	require.NotNil(t, doc.Locate(BannerID))

	// Idempotent: a second show leaves exactly one banner.
	s.ShowBanner("http://i/t.png", "사과", "1,000원", "설명")
	html := doc.HTML()
	assert.Equal(t, 1, strings.Count(html, `id="`+BannerID+`"`))

	s.UpdateDescription("a\nb")
	desc := doc.Locate(BannerDescID)
	require.NotNil(t, desc)
	require.Len(t, desc.Kids, 1)
	assert.Equal(t, "a\nb", desc.Kids[0].Data)

	// Dismiss removes the banner and reclaims the top offset.
	doc.Click(doc.Locate(bannerCloseID))
	assert.Nil(t, doc.Locate(BannerID))
	assert.Equal(t, "padding-top:0", doc.Body().Attr("style"))

	// Updating a dismissed banner is a silent no-op.
	s.UpdateDescription("ignored")
	assert.Nil(t, doc.Locate(BannerDescID))
}

func TestBannerSubstitutesPlaceholders(t *testing.T) {
	s := newSurface(t, `<div>page</div>`)
	doc := s.Document()

	s.ShowBanner("", "", "", "")
	html := doc.HTML()
	assert.Contains(t, html, FallbackName)
	assert.Contains(t, html, FallbackPrice)
	assert.Contains(t, html, FallbackDescription)
}
