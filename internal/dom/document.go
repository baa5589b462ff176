package dom

import (
	"fmt"
	"sync"
)

// Document owns a mutable composite tree and notifies registered observers
// after every batch of mutations. All reads and writes go through the
// Document so that observers running on other goroutines see a consistent
// tree; a mutation is visible as a single atomic substitution.
type Document struct {
	mu        sync.Mutex
	root      *Node
	observers map[int]chan struct{}
	nextObs   int
	clicks    map[*Node]func()
}

// NewDocument parses a full HTML document into a Document.
func NewDocument(src string) (*Document, error) {
	root, err := Parse(src)
	if err != nil {
		return nil, err
	}
	return &Document{
		root:      root,
		observers: make(map[int]chan struct{}),
		clicks:    make(map[*Node]func()),
	}, nil
}

// Observe registers a mutation observer. The returned channel receives a
// (coalesced) signal after every mutation batch; the cancel function
// disconnects the observer. Signals are dropped, not queued, while the
// observer is busy.
func (d *Document) Observe() (<-chan struct{}, func()) {
	d.mu.Lock()
	defer d.mu.Unlock()
	id := d.nextObs
	d.nextObs++
	ch := make(chan struct{}, 1)
	d.observers[id] = ch
	return ch, func() {
		d.mu.Lock()
		defer d.mu.Unlock()
		delete(d.observers, id)
	}
}

// notify signals all observers. Callers must hold d.mu.
func (d *Document) notify() {
	for _, ch := range d.observers {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
}

// Locate finds the element with the given id across every encapsulated
// subtree of the document.
func (d *Document) Locate(targetID string) *Node {
	d.mu.Lock()
	defer d.mu.Unlock()
	return Locate(d.root, targetID)
}

// ExtractByID runs Extract on the subtree with the given id. An absent
// subtree yields the zero result.
func (d *Document) ExtractByID(targetID string) Result {
	d.mu.Lock()
	defer d.mu.Unlock()
	return Extract(Locate(d.root, targetID))
}

// FindClickable returns the first element among the clickable candidate tags
// (button, a, div) whose trimmed text content equals matchText exactly.
func (d *Document) FindClickable(matchText string) *Node {
	d.mu.Lock()
	defer d.mu.Unlock()
	var found *Node
	var walk func(*Node)
	walk = func(n *Node) {
		if found != nil || n.Type != ElementNode {
			return
		}
		switch n.Tag {
		case "button", "a", "div":
			if n.Text() == matchText {
				found = n
				return
			}
		}
		for _, k := range n.Kids {
			walk(k)
		}
	}
	walk(d.root)
	return found
}

// Body returns the document's <body> element, or the root when absent.
func (d *Document) Body() *Node {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.body()
}

func (d *Document) body() *Node {
	for _, k := range d.root.Kids {
		if k.Type == ElementNode && k.Tag == "body" {
			return k
		}
	}
	return d.root
}

// HTML renders the current document, hosted subtrees included.
func (d *Document) HTML() string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.root.Render()
}

// AppendFragment parses fragment and appends its nodes to the element with
// the given parent id ("" targets <body>), then notifies observers.
func (d *Document) AppendFragment(parentID, fragment string) (*Node, error) {
	nodes, err := ParseFragment(fragment)
	if err != nil {
		return nil, err
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	parent := d.body()
	if parentID != "" {
		parent = Locate(d.root, parentID)
		if parent == nil {
			return nil, fmt.Errorf("no element with id %q", parentID)
		}
	}
	var first *Node
	for _, n := range nodes {
		if first == nil && n.Type == ElementNode {
			first = n
		}
		parent.AppendChild(n)
	}
	d.notify()
	return first, nil
}

// HostFragment attaches fragment as the encapsulated subtree of the element
// with the given id.
func (d *Document) HostFragment(hostID, fragment string) error {
	nodes, err := ParseFragment(fragment)
	if err != nil {
		return err
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	host := Locate(d.root, hostID)
	if host == nil {
		return fmt.Errorf("no element with id %q", hostID)
	}
	root := &Node{Type: ElementNode, Tag: "shadow-root"}
	for _, n := range nodes {
		root.AppendChild(n)
	}
	host.Host(root)
	d.notify()
	return nil
}

// SetText replaces the node's children with a single text node.
func (d *Document) SetText(n *Node, text string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	n.Kids = nil
	n.AppendChild(&Node{Type: TextNode, Data: text})
	d.notify()
}

// SetAttr sets an attribute on the node and notifies observers.
func (d *Document) SetAttr(n *Node, key, val string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	n.SetAttr(key, val)
	d.notify()
}

// Remove detaches the node from the tree and drops any click binding under it.
func (d *Document) Remove(n *Node) {
	d.mu.Lock()
	defer d.mu.Unlock()
	n.Detach()
	for bound := range d.clicks {
		if hasAncestor(bound, n) || bound == n {
			delete(d.clicks, bound)
		}
	}
	d.notify()
}

func hasAncestor(n, anc *Node) bool {
	for p := n.Parent; p != nil; p = p.Parent {
		if p == anc {
			return true
		}
	}
	return false
}

// OnClick binds an activation handler to the node, replacing any previous one.
func (d *Document) OnClick(n *Node, fn func()) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.clicks[n] = fn
}

// Click synthesizes an activation on the node. The bound handler, if any,
// runs outside the document lock so it can mutate the tree.
func (d *Document) Click(n *Node) {
	d.mu.Lock()
	fn := d.clicks[n]
	d.mu.Unlock()
	if fn != nil {
		fn()
	}
}
