package layout

// Highlight is the computed selection state.
//
// Ancestors is the full closure walking the parent-sets backward from the
// selection. Descendants is deliberately shallow: only direct children, a
// "path after" hint rather than a subtree.
type Highlight struct {
	Selected    *int
	Ancestors   map[int]bool
	Descendants map[int]bool
}

// Empty reports whether nothing is highlighted.
func (h Highlight) Empty() bool { return h.Selected == nil }

// Select computes the highlight for a node id. A nil id, or an id without a
// position in this layout, yields an empty highlight.
func (r *Result) Select(id *int) Highlight {
	h := Highlight{
		Ancestors:   make(map[int]bool),
		Descendants: make(map[int]bool),
	}
	if id == nil {
		return h
	}
	if _, ok := r.Positions[*id]; !ok {
		return h
	}
	sel := *id
	h.Selected = &sel

	// Ancestors: BFS over parent-sets, cycle-safe, excluding the
	// selection itself.
	visited := map[int]bool{sel: true}
	queue := append([]int(nil), r.Parents[sel]...)
	for len(queue) > 0 {
		u := queue[0]
		queue = queue[1:]
		if visited[u] {
			continue
		}
		visited[u] = true
		h.Ancestors[u] = true
		queue = append(queue, r.Parents[u]...)
	}

	// Descendants: one hop only.
	for child, parents := range r.Parents {
		for _, p := range parents {
			if p == sel {
				h.Descendants[child] = true
				break
			}
		}
	}
	return h
}

// Realign shifts whole columns so the highlighted ancestor chain lines up
// vertically with the selection: each column containing ancestors (or the
// selection) moves by selected.y minus the mean y of that subset. Relative
// order within a column and node heights are untouched. An empty highlight
// is a no-op.
func (r *Result) Realign(h Highlight) {
	if h.Selected == nil {
		return
	}
	sel, ok := r.Positions[*h.Selected]
	if !ok {
		return
	}
	// The reference y is captured once: shifting the selection's own
	// column must not skew the remaining columns.
	selY := sel.Y

	for _, col := range r.Columns {
		sum := 0.0
		count := 0
		for _, id := range col {
			if id == *h.Selected || h.Ancestors[id] {
				sum += r.Positions[id].Y
				count++
			}
		}
		if count == 0 {
			continue
		}
		delta := selY - sum/float64(count)
		for _, id := range col {
			r.Positions[id].Y += delta
		}
	}
}
