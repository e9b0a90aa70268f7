package layout

import (
	"sort"

	"github.com/mooncrowned/storyed/pkg/domain"
)

// Measure reports the rendered height of a node. Height is a presentation
// concern (it depends on message and answer content), so the engine takes
// it as a callback instead of computing it.
type Measure func(id int) float64

// Options are the fixed layout metrics.
type Options struct {
	NodeWidth  float64 // rendered node width, all nodes equal
	ColumnGap  float64 // horizontal space between columns
	RowGap     float64 // vertical space between nodes in a column
	AnchorBase float64 // first answer anchor offset from the node top
	AnchorStep float64 // vertical distance between consecutive answer anchors
}

// DefaultOptions returns the design constants.
func DefaultOptions() Options {
	return Options{
		NodeWidth:  360,
		ColumnGap:  120,
		RowGap:     60,
		AnchorBase: 40,
		AnchorStep: 28,
	}
}

// Position is a node's computed placement.
type Position struct {
	Column int
	X      float64
	Y      float64
	Height float64
}

// Edge is one resolved answer link with its drawing geometry: from the
// source's right edge, offset down per answer index, to the target's
// left-edge vertical center.
type Edge struct {
	From   int
	To     int
	Answer int // answer index on the source node
	X1, Y1 float64
	X2, Y2 float64
}

type edgeRef struct {
	from, to, answer int
}

// Result holds a computed layout. Positions may be shifted by Realign;
// Edges() always reflects the current positions.
type Result struct {
	Root      int // BFS root (smallest id), -1 when the graph is empty
	Positions map[int]*Position
	Columns   [][]int       // node ids per column, ascending id
	Parents   map[int][]int // parent-set per child, over all resolved edges

	opts  Options
	edges []edgeRef
}

// Compute runs the full layout over the given nodes. Running it twice on
// unchanged data produces identical positions.
func Compute(nodes []*domain.Node, measure Measure, opts Options) *Result {
	byID := make(map[int]*domain.Node, len(nodes))
	ids := make([]int, 0, len(nodes))
	for _, n := range nodes {
		if _, dup := byID[n.ID]; !dup {
			ids = append(ids, n.ID)
		}
		byID[n.ID] = n
	}
	sort.Ints(ids)

	res := &Result{
		Root:      -1,
		Positions: make(map[int]*Position, len(ids)),
		Parents:   parentSets(ids, byID),
		opts:      opts,
	}
	if len(ids) == 0 {
		return res
	}
	res.Root = ids[0]

	// Column assignment: BFS from the root, first visit wins. A node
	// reached again over another path keeps its original column.
	columns := map[int]int{res.Root: 0}
	queue := []int{res.Root}
	for len(queue) > 0 {
		u := queue[0]
		queue = queue[1:]
		for _, v := range byID[u].Edges() {
			if _, exists := byID[v]; !exists {
				continue
			}
			if _, visited := columns[v]; visited {
				continue
			}
			columns[v] = columns[u] + 1
			queue = append(queue, v)
		}
	}

	// Nodes unreachable from the root land in column 0.
	maxCol := 0
	for _, id := range ids {
		col, ok := columns[id]
		if !ok {
			col = 0
			columns[id] = 0
		}
		if col > maxCol {
			maxCol = col
		}
	}

	res.Columns = make([][]int, maxCol+1)
	for _, id := range ids { // ascending id keeps within-column order stable
		col := columns[id]
		res.Columns[col] = append(res.Columns[col], id)
		res.Positions[id] = &Position{
			Column: col,
			X:      float64(col) * (opts.NodeWidth + opts.ColumnGap),
		}
	}

	// Pass 1: measure every node. Pass 2: stack columns top to bottom
	// using actual heights so tall nodes never overlap.
	res.Reflow(measure)

	// Edge refs: one per resolved answer into an existing node.
	for _, id := range ids {
		for i, a := range byID[id].Answers {
			if a.NextNode == nil {
				continue
			}
			if _, exists := byID[*a.NextNode]; !exists {
				continue
			}
			res.edges = append(res.edges, edgeRef{from: id, to: *a.NextNode, answer: i})
		}
	}
	return res
}

// parentSets records every resolved edge's source as a parent of its
// target, independent of which parent won the column assignment.
func parentSets(ids []int, byID map[int]*domain.Node) map[int][]int {
	parents := make(map[int][]int)
	seen := make(map[int]map[int]bool)
	for _, id := range ids {
		for _, v := range byID[id].Edges() {
			if _, exists := byID[v]; !exists {
				continue
			}
			if seen[v] == nil {
				seen[v] = make(map[int]bool)
			}
			if seen[v][id] {
				continue
			}
			seen[v][id] = true
			parents[v] = append(parents[v], id)
		}
	}
	for _, ps := range parents {
		sort.Ints(ps)
	}
	return parents
}

// Reflow re-runs only the vertical stacking with fresh measurements,
// keeping column assignment and order. This is the light path for edits
// that change content but not graph shape.
func (r *Result) Reflow(measure Measure) {
	for _, col := range r.Columns {
		y := 0.0
		for _, id := range col {
			h := measure(id)
			if h < 0 {
				h = 0
			}
			p := r.Positions[id]
			p.Y = y
			p.Height = h
			y += h + r.opts.RowGap
		}
	}
}

// Clone returns an independent copy of the result. Callers that hand a
// result across goroutine boundaries clone it first; mutating either copy
// afterwards leaves the other untouched.
func (r *Result) Clone() *Result {
	out := &Result{
		Root:      r.Root,
		Positions: make(map[int]*Position, len(r.Positions)),
		Columns:   make([][]int, len(r.Columns)),
		Parents:   make(map[int][]int, len(r.Parents)),
		opts:      r.opts,
		edges:     append([]edgeRef(nil), r.edges...),
	}
	for id, p := range r.Positions {
		cp := *p
		out.Positions[id] = &cp
	}
	for i, col := range r.Columns {
		out.Columns[i] = append([]int(nil), col...)
	}
	for id, ps := range r.Parents {
		out.Parents[id] = append([]int(nil), ps...)
	}
	return out
}

// Edges materializes edge geometry from the current positions.
func (r *Result) Edges() []Edge {
	out := make([]Edge, 0, len(r.edges))
	for _, e := range r.edges {
		src := r.Positions[e.from]
		dst := r.Positions[e.to]
		out = append(out, Edge{
			From:   e.from,
			To:     e.to,
			Answer: e.answer,
			X1:     src.X + r.opts.NodeWidth,
			Y1:     src.Y + r.opts.AnchorBase + float64(e.answer)*r.opts.AnchorStep,
			X2:     dst.X,
			Y2:     dst.Y + dst.Height/2,
		})
	}
	return out
}

// Roots returns the nodes no resolved edge points into, ascending. When
// every node is referenced (fully cyclic graph) it falls back to the
// smallest id.
func (r *Result) Roots() []int {
	var roots []int
	for _, col := range r.Columns {
		for _, id := range col {
			if len(r.Parents[id]) == 0 {
				roots = append(roots, id)
			}
		}
	}
	sort.Ints(roots)
	if len(roots) == 0 && r.Root >= 0 {
		roots = []int{r.Root}
	}
	return roots
}
