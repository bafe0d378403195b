// Package widget keeps parent/child bookkeeping for widgets in an ID-indexed arena.
//
// Widgets never point at each other directly. The Graph owns every node; parent
// and child links are IDs resolved through the graph, so a destroyed widget simply
// stops resolving instead of keeping its relatives alive.
package widget

import (
	"errors"
	"fmt"
	"sort"
	"sync"
)

// ID uniquely identifies a widget within a Graph. IDs start at 1 and are never
// reused.
type ID uint64

var (
	// ErrAlreadyHasIncompatibleParent is returned when reparenting the root widget.
	ErrAlreadyHasIncompatibleParent = errors.New("widget: root widget cannot have a parent")
	// ErrWouldCycle is returned when the new parent is the child itself or one of
	// its descendants.
	ErrWouldCycle = errors.New("widget: parent would become its own ancestor")
	// ErrNotFound is returned for IDs that were never issued or were removed.
	ErrNotFound = errors.New("widget: not found")
)

type node struct {
	id       ID
	root     bool
	parent   ID // 0 means no parent
	children []ID
}

// Graph is a forest of widgets. A single RWMutex guards the whole table; the
// two-node reparent mutation happens under one write lock so readers never see
// a child listed under two parents.
type Graph struct {
	mu     sync.RWMutex
	nextID ID
	nodes  map[ID]*node
}

// NewGraph creates an empty graph.
func NewGraph() *Graph {
	return &Graph{nodes: make(map[ID]*node)}
}

// Add registers a new widget and returns its ID. Root widgets can never acquire
// a parent.
func (g *Graph) Add(root bool) ID {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.nextID++
	id := g.nextID
	g.nodes[id] = &node{id: id, root: root}
	return id
}

// Contains reports whether id names a live widget.
func (g *Graph) Contains(id ID) bool {
	g.mu.RLock()
	defer g.mu.RUnlock()
	_, ok := g.nodes[id]
	return ok
}

// IsRoot reports whether id is a root widget.
func (g *Graph) IsRoot(id ID) bool {
	g.mu.RLock()
	defer g.mu.RUnlock()
	n, ok := g.nodes[id]
	return ok && n.root
}

// CheckParent returns the error SetParent would return for moving child under
// parent without changing anything. same is true when child is already there.
func (g *Graph) CheckParent(child, parent ID) (same bool, err error) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	c, _, err := g.checkLocked(child, parent)
	if err != nil {
		return false, err
	}
	return c.parent == parent, nil
}

// SetParent moves child under parent. The child is unlinked from its previous
// parent's child list, its parent link is updated, and it is appended to the new
// parent's child list, all under one write lock.
func (g *Graph) SetParent(child, parent ID) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	c, p, err := g.checkLocked(child, parent)
	if err != nil {
		return err
	}
	if c.parent == parent {
		return nil
	}
	if old, ok := g.nodes[c.parent]; ok {
		old.children = removeID(old.children, child)
	}
	c.parent = parent
	p.children = append(p.children, child)
	return nil
}

func (g *Graph) checkLocked(child, parent ID) (*node, *node, error) {
	c, ok := g.nodes[child]
	if !ok {
		return nil, nil, fmt.Errorf("child %d: %w", child, ErrNotFound)
	}
	if c.root {
		return nil, nil, ErrAlreadyHasIncompatibleParent
	}
	p, ok := g.nodes[parent]
	if !ok {
		return nil, nil, fmt.Errorf("parent %d: %w", parent, ErrNotFound)
	}
	if c.parent == parent {
		return c, p, nil
	}
	for cur := p; cur != nil; {
		if cur.id == child {
			return nil, nil, ErrWouldCycle
		}
		if cur.parent == 0 {
			break
		}
		cur = g.nodes[cur.parent]
	}
	return c, p, nil
}

// Parent returns the parent of id. A missing or removed parent resolves to
// absent.
func (g *Graph) Parent(id ID) (ID, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	n, ok := g.nodes[id]
	if !ok || n.parent == 0 {
		return 0, false
	}
	if _, ok := g.nodes[n.parent]; !ok {
		return 0, false
	}
	return n.parent, true
}

// Children returns the live children of id in insertion order.
func (g *Graph) Children(id ID) []ID {
	g.mu.RLock()
	defer g.mu.RUnlock()
	n, ok := g.nodes[id]
	if !ok {
		return nil
	}
	out := make([]ID, 0, len(n.children))
	for _, c := range n.children {
		if _, ok := g.nodes[c]; ok {
			out = append(out, c)
		}
	}
	return out
}

// Descendants returns every live descendant of id, deepest first, so callers can
// tear down a subtree leaves-first.
func (g *Graph) Descendants(id ID) []ID {
	g.mu.RLock()
	defer g.mu.RUnlock()
	var out []ID
	var walk func(ID)
	walk = func(cur ID) {
		n, ok := g.nodes[cur]
		if !ok {
			return
		}
		for _, c := range n.children {
			walk(c)
			if _, ok := g.nodes[c]; ok {
				out = append(out, c)
			}
		}
	}
	walk(id)
	return out
}

// Remove deletes id from the graph and unlinks it from its parent. Its children
// keep their parent ID, which now resolves to absent. Removing an unknown ID is a
// no-op and reports false.
func (g *Graph) Remove(id ID) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	n, ok := g.nodes[id]
	if !ok {
		return false
	}
	if p, ok := g.nodes[n.parent]; ok {
		p.children = removeID(p.children, id)
	}
	delete(g.nodes, id)
	return true
}

// Len returns the number of live widgets.
func (g *Graph) Len() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return len(g.nodes)
}

// IDs returns all live widget IDs in ascending order.
func (g *Graph) IDs() []ID {
	g.mu.RLock()
	out := make([]ID, 0, len(g.nodes))
	for id := range g.nodes {
		out = append(out, id)
	}
	g.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

func removeID(ids []ID, id ID) []ID {
	for i, v := range ids {
		if v == id {
			return append(ids[:i], ids[i+1:]...)
		}
	}
	return ids
}
