package page

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"introscan/internal/dom"
	"introscan/internal/relay"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const productPage = `<html><head></head><body>
	<h3 class="_22kNQuEXmb">유기농 사과</h3>
	<strong class="aICRqgP9zw _2oBq11Xp7s"><span class="_1LY7DqCnwR">12,900</span></strong>
	<div class="_2tT_gkmAOr"><img class="_2RYeHZAP_4" src="http://i/thumb.png"></div>
	<button id="expand">` + expandText + `</button>
	<div id="INTRODUCE"><p>기본 소개</p></div>
</body></html>`

func testConfig() Config {
	return Config{
		TargetID:     "INTRODUCE",
		ExpandText:   expandText,
		PollInterval: 5 * time.Millisecond,
		PollAttempts: 10,
		WaitTimeout:  200 * time.Millisecond,
	}
}

func newPipeline(t *testing.T, body string, remote http.HandlerFunc) (*Pipeline, *DocSurface, *relay.Bus) {
	t.Helper()

	srv := httptest.NewServer(remote)
	t.Cleanup(srv.Close)

	bus := relay.NewBus(time.Second)
	t.Cleanup(bus.Close)
	bg := relay.NewBackground(srv.URL, time.Second)
	require.NoError(t, bus.Register(relay.EndpointBackground, bg.Handle))

	doc, err := dom.NewDocument(body)
	require.NoError(t, err)
	surface := NewDocSurface(doc, "http://shop/p/1", DefaultSelectors())

	p, err := NewPipeline(surface, bus, testConfig())
	require.NoError(t, err)
	return p, surface, bus
}

func querySnapshot(t *testing.T, bus *relay.Bus) dom.Result {
	t.Helper()
	raw, err := bus.Request(relay.EndpointPage, relay.Envelope{Type: relay.TypeQuerySnapshot})
	require.NoError(t, err)
	var r dom.Result
	require.NoError(t, json.Unmarshal(raw, &r))
	return r
}

func TestPipelineFullRun(t *testing.T) {
	remote := func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"texts":["a","b"]}`))
	}
	p, surface, bus := newPipeline(t, productPage, remote)
	doc := surface.Document()

	// Clicking the expand control lazily renders the rest of the region.
	doc.OnClick(doc.Locate("expand"), func() {
		_, err := doc.AppendFragment("INTRODUCE",
			`<p>상세 내용</p><img src="http://i/detail.png">`)
		require.NoError(t, err)
	})

	// Before any run the query channel serves the defined zero value.
	early := querySnapshot(t, bus)
	assert.Equal(t, "", early.Text)
	assert.Empty(t, early.Images)

	require.NoError(t, p.Start())
	assert.Equal(t, StateDone, p.State())

	snap := querySnapshot(t, bus)
	assert.Equal(t, "기본 소개\n상세 내용", snap.Text)
	assert.Equal(t, []string{"http://i/detail.png"}, snap.Images)

	// Banner shows identity and the remote description joined by newlines.
	desc := doc.Locate(BannerDescID)
	require.NotNil(t, desc)
	require.Len(t, desc.Kids, 1)
	assert.Equal(t, "a\nb", desc.Kids[0].Data)
	assert.Contains(t, doc.HTML(), "유기농 사과")
	assert.Contains(t, doc.HTML(), "12,900원")
}

func TestPipelineRemoteFailureFallsBackToPlaceholder(t *testing.T) {
	remote := func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}
	p, surface, _ := newPipeline(t, productPage, remote)

	require.NoError(t, p.Start())

	desc := surface.Document().Locate(BannerDescID)
	require.NotNil(t, desc)
	require.Len(t, desc.Kids, 1)
	assert.Equal(t, FallbackExtra, desc.Kids[0].Data)
}

func TestPipelineReplyWithoutTextsFallsBack(t *testing.T) {
	remote := func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"something":"else"}`))
	}
	p, surface, _ := newPipeline(t, productPage, remote)

	require.NoError(t, p.Start())

	desc := surface.Document().Locate(BannerDescID)
	require.NotNil(t, desc)
	assert.Equal(t, FallbackExtra, desc.Kids[0].Data)
}

func TestPipelineWithoutTargetFinishesWithoutRunning(t *testing.T) {
	remote := func(w http.ResponseWriter, r *http.Request) {
		t.Error("remote service must not be called when the region never appears")
	}
	p, surface, bus := newPipeline(t,
		`<html><head></head><body><div>빈 페이지</div></body></html>`, remote)

	require.NoError(t, p.Start())
	assert.Equal(t, StateDone, p.State())

	// No banner, and the snapshot stays at the zero value.
	assert.Nil(t, surface.Document().Locate(BannerID))
	snap := querySnapshot(t, bus)
	assert.Equal(t, dom.ZeroResult(), snap)
}

func TestPipelineSecondStartIsSuppressed(t *testing.T) {
	remote := func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"texts":["한 번"]}`))
	}
	p, _, _ := newPipeline(t, productPage, remote)

	require.NoError(t, p.Start())
	err := p.Start()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "done")
}

func TestPipelineNotifyReachesBackground(t *testing.T) {
	// A bare bus endpoint stands in for the background to observe NOTIFY.
	bus := relay.NewBus(time.Second)
	t.Cleanup(bus.Close)

	notified := make(chan relay.NotifyPayload, 1)
	require.NoError(t, bus.Register(relay.EndpointBackground, func(env relay.Envelope) (json.RawMessage, bool) {
		switch env.Type {
		case relay.TypeNotify:
			var p relay.NotifyPayload
			require.NoError(t, json.Unmarshal(env.Payload, &p))
			notified <- p
			return nil, false
		case relay.TypeDescribe:
			raw, _ := json.Marshal(relay.DescribeReply{Success: false, Error: "offline"})
			return raw, true
		}
		return nil, false
	}))

	doc, err := dom.NewDocument(productPage)
	require.NoError(t, err)
	surface := NewDocSurface(doc, "http://shop/p/1", DefaultSelectors())
	p, err := NewPipeline(surface, bus, testConfig())
	require.NoError(t, err)

	require.NoError(t, p.Start())

	select {
	case got := <-notified:
		assert.Equal(t, "기본 소개", got.Text)
	case <-time.After(time.Second):
		t.Fatal("background never received the notify payload")
	}
}
