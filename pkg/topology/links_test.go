package topology

import (
	"errors"
	"fmt"
	"testing"

	"github.com/newtron-network/newtboot/pkg/util"
)

func routersWithIDs(ids ...int) []*Router {
	routers := make([]*Router, len(ids))
	for i, id := range ids {
		routers[i] = &Router{ID: id, Name: fmt.Sprintf("r%d", i+1), Type: TypeVMX}
	}
	return routers
}

func edge(left, lIf string, lNum int, right, rIf string, rNum int) Edge {
	return Edge{
		Left:  Endpoint{Router: left, Interface: lIf, Numeric: lNum},
		Right: Endpoint{Router: right, Interface: rIf, Numeric: rNum},
	}
}

func TestAssignLinks_Mirrored(t *testing.T) {
	routers := routersWithIDs(1, 2)
	edges := []Edge{edge("r1", "Gi0/0", 100, "r2", "ge-0/0/0", 200)}

	if err := AssignLinks(routers, edges); err != nil {
		t.Fatalf("AssignLinks() error: %v", err)
	}

	want1 := Link{Interface: "Gi0/0", Numeric: 100, LinkID: 3, Side: 1,
		Remote: Remote{Router: "r2", Interface: "ge-0/0/0", Numeric: 200}}
	want2 := Link{Interface: "ge-0/0/0", Numeric: 200, LinkID: 3, Side: 2,
		Remote: Remote{Router: "r1", Interface: "Gi0/0", Numeric: 100}}

	if len(routers[0].Links) != 1 || routers[0].Links[0] != want1 {
		t.Errorf("r1.Links = %+v, want [%+v]", routers[0].Links, want1)
	}
	if len(routers[1].Links) != 1 || routers[1].Links[0] != want2 {
		t.Errorf("r2.Links = %+v, want [%+v]", routers[1].Links, want2)
	}
}

func TestAssignLinks_IDsIncreaseWithEdgeOrder(t *testing.T) {
	routers := routersWithIDs(1, 2, 3, 10)
	edges := []Edge{
		edge("r1", "a", 0, "r2", "a", 0),
		edge("r3", "b", 1, "r4", "b", 1),
		edge("r1", "c", 2, "r3", "c", 2),
		edge("r2", "d", 3, "r1", "d", 3),
	}
	if err := AssignLinks(routers, edges); err != nil {
		t.Fatalf("AssignLinks() error: %v", err)
	}

	// max(ids) + i for i = 1..4
	wantIDs := []int{2 + 1, 10 + 2, 3 + 3, 2 + 4}

	byName := map[string]*Router{}
	for _, r := range routers {
		byName[r.Name] = r
	}
	cursor := map[string]int{}
	seen := map[int]bool{}
	for i, e := range edges {
		left := byName[e.Left.Router].Links[cursor[e.Left.Router]]
		cursor[e.Left.Router]++
		right := byName[e.Right.Router].Links[cursor[e.Right.Router]]
		cursor[e.Right.Router]++

		if left.LinkID != wantIDs[i] || right.LinkID != wantIDs[i] {
			t.Errorf("edge %d: link ids (%d, %d), want %d", i, left.LinkID, right.LinkID, wantIDs[i])
		}
		if left.Side != 1 || right.Side != 2 {
			t.Errorf("edge %d: sides (%d, %d), want (1, 2)", i, left.Side, right.Side)
		}
		minID := max(byName[e.Left.Router].ID, byName[e.Right.Router].ID) + 1
		if left.LinkID < minID {
			t.Errorf("edge %d: link id %d below %d", i, left.LinkID, minID)
		}
		seen[left.LinkID] = true
	}
	if len(seen) != len(edges) {
		t.Errorf("expected %d distinct link ids, got %v", len(edges), seen)
	}
}

func TestAssignLinks_PreservesInsertionOrder(t *testing.T) {
	routers := routersWithIDs(1, 2)
	edges := []Edge{
		edge("r1", "eth2", 2, "r2", "eth2", 2),
		edge("r1", "eth1", 1, "r2", "eth1", 1),
	}
	if err := AssignLinks(routers, edges); err != nil {
		t.Fatalf("AssignLinks() error: %v", err)
	}
	if got := routers[0].Links[0].Interface; got != "eth2" {
		t.Errorf("r1.Links[0].Interface = %q, want eth2 (document order)", got)
	}
	if got := routers[0].Links[1].LinkID; got != 4 {
		t.Errorf("r1.Links[1].LinkID = %d, want 4", got)
	}
}

func TestAssignLinks_UnknownRouter(t *testing.T) {
	routers := routersWithIDs(1, 2)
	edges := []Edge{
		edge("r1", "a", 0, "r2", "a", 0),
		edge("r1", "b", 0, "ghost", "b", 0),
	}

	err := AssignLinks(routers, edges)
	if !errors.Is(err, util.ErrUnknownRouter) {
		t.Fatalf("AssignLinks() error = %v, want ErrUnknownRouter", err)
	}
	for _, r := range routers {
		if len(r.Links) != 0 {
			t.Errorf("%s has %d links after failed assignment, want 0", r.Name, len(r.Links))
		}
	}
}

func TestAssignLinks_NoEdges(t *testing.T) {
	routers := routersWithIDs(1)
	if err := AssignLinks(routers, nil); err != nil {
		t.Fatalf("AssignLinks(nil) error: %v", err)
	}
	if len(routers[0].Links) != 0 {
		t.Errorf("expected no links, got %v", routers[0].Links)
	}
}
