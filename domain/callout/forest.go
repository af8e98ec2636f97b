package callout

import (
	"sort"
)

// Forest owns a set of blocks in one arena and links them into trees.
type Forest struct {
	Blocks []Block
	Roots  []int
}

// BuildForest links blocks into a forest. Input order does not matter; the
// returned arena is sorted by Span.Start and existing links are discarded.
//
// The parent of B is the block P with P.Start < B.Start, B.End <= P.End and
// P.Depth < B.Depth that starts last, i.e. the innermost enclosing candidate.
// Parent starts strictly decrease along any chain, so the result is acyclic.
func BuildForest(blocks []Block) Forest {
	arena := make([]Block, len(blocks))
	copy(arena, blocks)
	sort.SliceStable(arena, func(i, j int) bool {
		return arena[i].Span.Start < arena[j].Span.Start
	})
	for i := range arena {
		arena[i].Parent = -1
		arena[i].Children = nil
	}

	f := Forest{Blocks: arena, Roots: []int{}}
	for i := range arena {
		b := &arena[i]
		// Scanning backwards visits candidates by descending start, so the
		// first qualifying block is the innermost one.
		for p := i - 1; p >= 0; p-- {
			cand := &arena[p]
			if cand.Span.Contains(b.Span) && cand.Depth < b.Depth {
				b.Parent = p
				break
			}
		}
		if b.Parent < 0 {
			f.Roots = append(f.Roots, i)
			continue
		}
		arena[b.Parent].Children = append(arena[b.Parent].Children, i)
	}
	return f
}

// Len returns the number of blocks.
func (f Forest) Len() int {
	return len(f.Blocks)
}

// IsDescendant reports whether block i sits below ancestor, walking the
// parent chain.
func (f Forest) IsDescendant(i, ancestor int) bool {
	if i < 0 || i >= len(f.Blocks) || ancestor < 0 {
		return false
	}
	for p := f.Blocks[i].Parent; p >= 0; p = f.Blocks[p].Parent {
		if p == ancestor {
			return true
		}
	}
	return false
}

// OfType returns the indexes of blocks with the given type, in source order.
func (f Forest) OfType(typ string) []int {
	var out []int
	for i := range f.Blocks {
		if f.Blocks[i].Type == typ {
			out = append(out, i)
		}
	}
	return out
}

// Has reports whether any block has the given type.
func (f Forest) Has(typ string) bool {
	for i := range f.Blocks {
		if f.Blocks[i].Type == typ {
			return true
		}
	}
	return false
}

// Walk visits every block depth-first in source order. Returning false from
// fn skips the block's children.
func (f Forest) Walk(fn func(i int, b Block) bool) {
	var visit func(i int)
	visit = func(i int) {
		if !fn(i, f.Blocks[i]) {
			return
		}
		for _, c := range f.Blocks[i].Children {
			visit(c)
		}
	}
	for _, r := range f.Roots {
		visit(r)
	}
}
