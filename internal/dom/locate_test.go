package dom

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustFragment(t *testing.T, src string) *Node {
	t.Helper()
	nodes, err := ParseFragment(src)
	require.NoError(t, err)
	for _, n := range nodes {
		if n.Type == ElementNode {
			return n
		}
	}
	t.Fatalf("fragment %q has no element", src)
	return nil
}

func TestLocateLightTree(t *testing.T) {
	root := mustFragment(t, `<div><section><p id="INTRODUCE">hi</p></section></div>`)

	found := Locate(root, "INTRODUCE")
	require.NotNil(t, found)
	assert.Equal(t, "p", found.Tag)

	assert.Nil(t, Locate(root, "MISSING"))
	assert.Nil(t, Locate(nil, "INTRODUCE"))
	assert.Nil(t, Locate(root, ""))
}

func TestLocateInsideNestedShadowTrees(t *testing.T) {
	// Target buried N levels deep in encapsulated subtrees for several N.
	for depth := 0; depth <= 5; depth++ {
		inner := `<p id="INTRODUCE">deep</p>`
		for i := 0; i < depth; i++ {
			inner = fmt.Sprintf(
				`<span><template shadowrootmode="open">%s</template></span>`, inner)
		}
		root := mustFragment(t, "<div>"+inner+"</div>")

		found := Locate(root, "INTRODUCE")
		require.NotNil(t, found, "depth %d", depth)
		assert.Equal(t, "deep", found.Text(), "depth %d", depth)
	}
}

func TestLocatePrefersLightTreeOverHostedTrees(t *testing.T) {
	root := mustFragment(t, `<div>
		<span><template shadowrootmode="open"><p id="X">shadow</p></template></span>
		<p id="X">light</p>
	</div>`)

	found := Locate(root, "X")
	require.NotNil(t, found)
	assert.Equal(t, "light", found.Text())
}

func TestLocateFirstHostInDiscoveryOrderWins(t *testing.T) {
	root := mustFragment(t, `<div>
		<span><template shadowrootmode="open"><p id="X">first</p></template></span>
		<span><template shadowrootmode="open"><p id="X">second</p></template></span>
	</div>`)

	found := Locate(root, "X")
	require.NotNil(t, found)
	assert.Equal(t, "first", found.Text())
}

func TestLocateAbsentEverywhereInLargeDocument(t *testing.T) {
	var b strings.Builder
	b.WriteString("<div>")
	for i := 0; i < 500; i++ {
		fmt.Fprintf(&b, `<p id="p%d">row</p>`, i)
	}
	b.WriteString(`<span><template shadowrootmode="open"><i>nope</i></template></span></div>`)
	root := mustFragment(t, b.String())

	assert.Nil(t, Locate(root, "INTRODUCE"))
}

func TestDeclarativeShadowTemplateBecomesHostedTree(t *testing.T) {
	root := mustFragment(t,
		`<div id="shadow-host"><template shadowrootmode="open"><b>inside</b></template></div>`)

	require.NotNil(t, root.Hosted)
	assert.Empty(t, root.Kids)
	assert.Equal(t, "inside", root.Hosted.Text())
}

func TestRenderRoundTripsHostedTrees(t *testing.T) {
	root := mustFragment(t,
		`<div id="h"><template shadowrootmode="open"><img src="http://i/1.png"><b>x</b></template></div>`)

	again := mustFragment(t, root.Render())
	require.NotNil(t, again.Hosted)
	assert.Equal(t, []string{"http://i/1.png"}, Extract(again).Images)
}
