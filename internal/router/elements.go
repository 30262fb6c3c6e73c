package router

import (
	"fmt"
	"sync"

	"github.com/go-rod/rod"

	"github.com/surfbridge/surf/internal/bridgeerr"
)

// elementTable holds the short stable labels (e1, e2, ...) a page.read
// stamps on interactive nodes, per §4.D. Labels reset on every new read;
// the router treats them as opaque tokens resolved back to a live rod
// element only at interaction time.
type elementTable struct {
	mu      sync.Mutex
	next    int
	byLabel map[string]*rod.Element
}

func newElementTable() *elementTable {
	return &elementTable{byLabel: make(map[string]*rod.Element)}
}

// Reset clears all labels, called at the start of every page.read.
func (t *elementTable) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.next = 0
	t.byLabel = make(map[string]*rod.Element)
}

// Label assigns the next label to el and returns it.
func (t *elementTable) Label(el *rod.Element) string {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.next++
	label := fmt.Sprintf("e%d", t.next)
	t.byLabel[label] = el
	return label
}

// Resolve returns the element backing label, or a Target error if the
// label is unknown or stale (reset by a later read).
func (t *elementTable) Resolve(label string) (*rod.Element, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	el, ok := t.byLabel[label]
	if !ok {
		return nil, bridgeerr.New(bridgeerr.Target, fmt.Sprintf("element reference %q not found", label))
	}
	return el, nil
}
