package dom

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractNilRootIsZeroResult(t *testing.T) {
	r := Extract(nil)
	assert.Equal(t, "", r.Text)
	assert.Equal(t, []string{}, r.Images)
}

func TestExtractTextAndImages(t *testing.T) {
	root := mustFragment(t, `<div id="INTRODUCE">
		<h3>  제품 소개  </h3>
		<p>first   line</p>
		<img src="http://i/1.png"><img src="http://i/2.png">
	</div>`)

	r := Extract(root)
	assert.Equal(t, "제품 소개\nfirst line", r.Text)
	assert.Equal(t, []string{"http://i/1.png", "http://i/2.png"}, r.Images)
}

func TestExtractDropsEmptyAndRepeatedSources(t *testing.T) {
	root := mustFragment(t,
		`<div><img src=""><img><img src="http://i/1.png"><img src="http://i/1.png"></div>`)

	r := Extract(root)
	assert.Equal(t, []string{"http://i/1.png"}, r.Images)
	assert.NotContains(t, r.Images, "")
}

func TestExtractReachesHostedTrees(t *testing.T) {
	// A shadow host beneath the target: the hosted tree supplies both the
	// rendered text and the image sources.
	root := mustFragment(t, `<div id="X"><div id="shadow-host"><template shadowrootmode="open">hello<img src="http://i/1.png"></template></div></div>`)

	inner := Locate(root, "shadow-host")
	require.NotNil(t, inner)

	r := Extract(inner)
	assert.Equal(t, "hello", r.Text)
	assert.Equal(t, []string{"http://i/1.png"}, r.Images)

	// Extracting from the outer element sees the same rendered content.
	outer := Extract(root)
	assert.Equal(t, "hello", outer.Text)
	assert.Equal(t, []string{"http://i/1.png"}, outer.Images)
}

func TestExtractSkipsScriptAndStyleText(t *testing.T) {
	root := mustFragment(t,
		`<div><script>var x=1;</script><style>.a{}</style><p>visible</p></div>`)

	assert.Equal(t, "visible", Extract(root).Text)
}

func TestExtractImagesAcrossNestedHosts(t *testing.T) {
	root := mustFragment(t, `<div>
		<img src="http://i/light.png">
		<span><template shadowrootmode="open">
			<img src="http://i/inner.png">
			<b><template shadowrootmode="open"><img src="http://i/deep.png"></template></b>
		</template></span>
	</div>`)

	r := Extract(root)
	assert.Equal(t,
		[]string{"http://i/light.png", "http://i/inner.png", "http://i/deep.png"},
		r.Images)
}
