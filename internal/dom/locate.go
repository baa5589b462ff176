package dom

// Locate searches root's element tree depth-first for a node whose id equals
// targetID. When the light tree has no match, every shadow host discovered
// under root is entered in discovery order and searched the same way, so the
// target is found across any nesting depth of encapsulated subtrees. Returns
// nil when the id exists nowhere in the reachable forest.
func Locate(root *Node, targetID string) *Node {
	if root == nil || targetID == "" {
		return nil
	}
	if n := locateLight(root, targetID); n != nil {
		return n
	}
	for _, host := range shadowHosts(root) {
		if n := Locate(host.Hosted, targetID); n != nil {
			return n
		}
	}
	return nil
}

func locateLight(n *Node, targetID string) *Node {
	if n.Type != ElementNode {
		return nil
	}
	if n.ID() == targetID {
		return n
	}
	for _, k := range n.Kids {
		if m := locateLight(k, targetID); m != nil {
			return m
		}
	}
	return nil
}

// shadowHosts enumerates every element under root (root included) that hosts
// an encapsulated subtree, in document order of the light tree.
func shadowHosts(root *Node) []*Node {
	var hosts []*Node
	var walk func(*Node)
	walk = func(n *Node) {
		if n.Type != ElementNode {
			return
		}
		if n.Hosted != nil {
			hosts = append(hosts, n)
		}
		for _, k := range n.Kids {
			walk(k)
		}
	}
	walk(root)
	return hosts
}
