package mesh

import (
	"errors"
	"fmt"
	"math"
	"sort"
)

var (
	ErrUnknownNode  = errors.New("unknown node")
	ErrDuplicate    = errors.New("node already in tree")
	ErrRootOccupied = errors.New("tree already has a root")
	ErrBadMetrics   = errors.New("invalid metrics sample")
)

// Directive tells Parent to open a relay link to Child.
type Directive struct {
	Parent string
	Child  string
}

type node struct {
	id         string
	parent     string
	children   []string
	attached   bool
	seq        uint64
	metrics    Metrics
	hasMetrics bool
}

// Tree is the relay topology of one session. It is not safe for concurrent
// use; the coordinator loop owns it.
type Tree struct {
	root        string
	nodes       map[string]*node
	pending     []string
	seq         uint64
	maxChildren int
	strategy    Strategy
}

// NewTree creates an empty tree. A nil strategy selects Greedy.
func NewTree(maxChildren int, strategy Strategy) *Tree {
	if maxChildren < 1 {
		maxChildren = 1
	}
	if strategy == nil {
		strategy = Greedy{}
	}
	return &Tree{
		nodes:       make(map[string]*node),
		maxChildren: maxChildren,
		strategy:    strategy,
	}
}

// Root returns the root id, empty until a host joins.
func (t *Tree) Root() string { return t.root }

// Len returns the number of nodes, pending ones included.
func (t *Tree) Len() int { return len(t.nodes) }

// Pending returns the ids waiting for a root, in join order.
func (t *Tree) Pending() []string {
	out := make([]string, len(t.pending))
	copy(out, t.pending)
	return out
}

// Parent returns the parent of id. ok is false for unknown or detached ids.
func (t *Tree) Parent(id string) (string, bool) {
	n, ok := t.nodes[id]
	if !ok || !n.attached {
		return "", false
	}
	return n.parent, true
}

// Children returns the ordered children of id.
func (t *Tree) Children(id string) []string {
	n, ok := t.nodes[id]
	if !ok {
		return nil
	}
	out := make([]string, len(n.children))
	copy(out, n.children)
	return out
}

// SetRoot installs id as the root and attaches every pending node in join
// order.
func (t *Tree) SetRoot(id string) ([]Directive, error) {
	if t.root != "" {
		return nil, ErrRootOccupied
	}
	if _, ok := t.nodes[id]; ok {
		return nil, ErrDuplicate
	}
	t.root = id
	t.nodes[id] = &node{id: id, attached: true, seq: t.nextSeq()}

	waiting := t.pending
	t.pending = nil
	directives := make([]Directive, 0, len(waiting))
	for _, pid := range waiting {
		directives = append(directives, t.attach(pid, nil))
	}
	return directives, nil
}

// Add inserts a non-root node. Without a root the node is held pending and
// no directive is produced.
func (t *Tree) Add(id string) ([]Directive, error) {
	if _, ok := t.nodes[id]; ok {
		return nil, ErrDuplicate
	}
	t.nodes[id] = &node{id: id, seq: t.nextSeq()}
	if t.root == "" {
		t.pending = append(t.pending, id)
		return nil, nil
	}
	return []Directive{t.attach(id, nil)}, nil
}

// Reroot makes id, a node not yet in the tree, the new root with the old
// root as its only child.
func (t *Tree) Reroot(id string) ([]Directive, error) {
	if t.root == "" {
		return t.SetRoot(id)
	}
	if _, ok := t.nodes[id]; ok {
		return nil, ErrDuplicate
	}
	old := t.nodes[t.root]
	t.nodes[id] = &node{id: id, attached: true, seq: t.nextSeq(), children: []string{old.id}}
	old.parent = id
	t.root = id
	return []Directive{{Parent: id, Child: old.id}}, nil
}

// Remove detaches id. Each former child is re-parented with the strategy,
// never into the departed node's own subtree. Removing the root clears the
// whole tree and returns no directives; the session ends with it.
func (t *Tree) Remove(id string) ([]Directive, error) {
	n, ok := t.nodes[id]
	if !ok {
		return nil, ErrUnknownNode
	}

	if !n.attached {
		delete(t.nodes, id)
		t.pending = removeID(t.pending, id)
		return nil, nil
	}

	if id == t.root {
		t.root = ""
		t.nodes = make(map[string]*node)
		t.pending = nil
		return nil, nil
	}

	excluded := t.subtree(id)
	if p, ok := t.nodes[n.parent]; ok {
		p.children = removeID(p.children, id)
	}
	orphans := n.children
	delete(t.nodes, id)

	directives := make([]Directive, 0, len(orphans))
	for _, child := range orphans {
		c := t.nodes[child]
		c.parent = ""
		c.attached = false
		directives = append(directives, t.attach(child, excluded))
	}
	return directives, nil
}

// ReportMetrics records a sample for id. It never moves nodes.
func (t *Tree) ReportMetrics(id string, m Metrics) error {
	n, ok := t.nodes[id]
	if !ok {
		return ErrUnknownNode
	}
	if !validSample(m.LatencyMs) || !validSample(m.UploadMbps) {
		return ErrBadMetrics
	}
	n.metrics = m
	n.hasMetrics = true
	return nil
}

// Metrics returns the last sample of id.
func (t *Tree) Metrics(id string) (Metrics, bool) {
	n, ok := t.nodes[id]
	if !ok || !n.hasMetrics {
		return Metrics{}, false
	}
	return n.metrics, true
}

// Validate checks that every attached node hangs off the root exactly once.
func (t *Tree) Validate() error {
	attached := 0
	for _, n := range t.nodes {
		if n.attached {
			attached++
		}
	}
	if t.root == "" {
		if attached > 0 {
			return fmt.Errorf("%d attached nodes without root", attached)
		}
		return nil
	}

	seen := make(map[string]bool, attached)
	stack := []string{t.root}
	for len(stack) > 0 {
		id := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if seen[id] {
			return fmt.Errorf("node %s reachable twice", id)
		}
		seen[id] = true
		n, ok := t.nodes[id]
		if !ok {
			return fmt.Errorf("child %s missing", id)
		}
		if len(n.children) > t.maxChildren && id != t.root {
			return fmt.Errorf("node %s over capacity", id)
		}
		for _, c := range n.children {
			if t.nodes[c] == nil || t.nodes[c].parent != id {
				return fmt.Errorf("node %s has wrong parent link", c)
			}
			stack = append(stack, c)
		}
	}
	if len(seen) != attached {
		return fmt.Errorf("%d of %d attached nodes reachable", len(seen), attached)
	}
	return nil
}

func (t *Tree) attach(id string, excluded map[string]bool) Directive {
	snap := t.snapshot()
	metrics := make(map[string]Metrics)
	var candidates []string
	for _, cid := range t.orderedAttached() {
		if cid == id || excluded[cid] {
			continue
		}
		c := t.nodes[cid]
		if len(c.children) >= t.maxChildren {
			continue
		}
		candidates = append(candidates, cid)
		if c.hasMetrics {
			metrics[cid] = c.metrics
		}
	}

	parent, ok := t.strategy.SelectParent(snap, metrics, candidates)
	if !ok || !contains(candidates, parent) {
		parent = t.root
	}

	n := t.nodes[id]
	n.parent = parent
	n.attached = true
	p := t.nodes[parent]
	p.children = append(p.children, id)
	return Directive{Parent: parent, Child: id}
}

func (t *Tree) snapshot() Snapshot {
	nodes := make(map[string]NodeInfo, len(t.nodes))
	for id, n := range t.nodes {
		if !n.attached {
			continue
		}
		nodes[id] = NodeInfo{Parent: n.parent, Children: len(n.children), Seq: n.seq}
	}
	return Snapshot{Root: t.root, MaxChildren: t.maxChildren, Nodes: nodes}
}

func (t *Tree) orderedAttached() []string {
	ids := make([]string, 0, len(t.nodes))
	for id, n := range t.nodes {
		if n.attached {
			ids = append(ids, id)
		}
	}
	sort.Slice(ids, func(i, j int) bool {
		return t.nodes[ids[i]].seq < t.nodes[ids[j]].seq
	})
	return ids
}

func (t *Tree) subtree(id string) map[string]bool {
	out := map[string]bool{}
	stack := []string{id}
	for len(stack) > 0 {
		cur := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if out[cur] {
			continue
		}
		out[cur] = true
		if n, ok := t.nodes[cur]; ok {
			stack = append(stack, n.children...)
		}
	}
	return out
}

func (t *Tree) nextSeq() uint64 {
	t.seq++
	return t.seq
}

func validSample(v float64) bool {
	return v >= 0 && !math.IsNaN(v) && !math.IsInf(v, 0)
}

func contains(ids []string, id string) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}

func removeID(ids []string, id string) []string {
	for i, v := range ids {
		if v == id {
			return append(ids[:i], ids[i+1:]...)
		}
	}
	return ids
}
