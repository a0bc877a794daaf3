package topology

import (
	"fmt"

	"github.com/newtron-network/newtboot/pkg/util"
)

// AssignLinks appends a mirrored Link to both endpoint routers of every
// edge, in edge order. The link id of the i-th edge (1-based) is
// max(left.ID, right.ID) + i, so ids strictly increase with edge order.
// Every edge is resolved before any router is modified.
func AssignLinks(routers []*Router, edges []Edge) error {
	byName := make(map[string]*Router, len(routers))
	for _, r := range routers {
		byName[r.Name] = r
	}

	type pair struct{ left, right *Router }
	resolved := make([]pair, len(edges))
	for n, e := range edges {
		left, ok := byName[e.Left.Router]
		if !ok {
			return fmt.Errorf("link %d: %w %q", n, util.ErrUnknownRouter, e.Left.Router)
		}
		right, ok := byName[e.Right.Router]
		if !ok {
			return fmt.Errorf("link %d: %w %q", n, util.ErrUnknownRouter, e.Right.Router)
		}
		resolved[n] = pair{left, right}
	}

	for n, e := range edges {
		left, right := resolved[n].left, resolved[n].right
		linkID := max(left.ID, right.ID) + n + 1

		left.Links = append(left.Links, Link{
			Interface: e.Left.Interface,
			Numeric:   e.Left.Numeric,
			LinkID:    linkID,
			Side:      1,
			Remote:    Remote{Router: e.Right.Router, Interface: e.Right.Interface, Numeric: e.Right.Numeric},
		})
		right.Links = append(right.Links, Link{
			Interface: e.Right.Interface,
			Numeric:   e.Right.Numeric,
			LinkID:    linkID,
			Side:      2,
			Remote:    Remote{Router: e.Left.Router, Interface: e.Left.Interface, Numeric: e.Left.Numeric},
		})
	}
	return nil
}
