package page

import (
	"sync"

	"introscan/internal/dom"
)

// Cell is the single-slot snapshot cache: the latest extraction result for
// the lifetime of the page. It starts as the defined zero value, is
// overwritten whole once per run by the pipeline (single writer), and is read
// by the query channel at any time. No history, never persisted.
type Cell struct {
	mu  sync.RWMutex
	val dom.Result
}

// NewCell returns a cell holding the zero result, so queries issued before
// any run completes deterministically see empty data.
func NewCell() *Cell {
	return &Cell{val: dom.ZeroResult()}
}

// Store replaces the cached value in one atomic substitution.
func (c *Cell) Store(r dom.Result) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.val = r
}

// Load returns a copy of the cached value; the caller cannot alias the slot.
func (c *Cell) Load() dom.Result {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := dom.Result{Text: c.val.Text, Images: make([]string, len(c.val.Images))}
	copy(out.Images, c.val.Images)
	return out
}
