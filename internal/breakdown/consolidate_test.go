package breakdown

import (
	"testing"

	"github.com/yungbote/breakdown-backend/internal/types"
)

func TestConsolidateAssignsParentFromLevel(t *testing.T) {
	nodes := []types.Node{
		node("p1", "Phase Two", "2.2", ""),
		node("c1", "Subtask", "2.2.1", ""),
	}

	out := Consolidate(nodes)

	child := out[1]
	if child.ParentID == nil {
		t.Fatalf("ParentID = nil, want p1")
	}
	if *child.ParentID != "p1" {
		t.Fatalf("ParentID = %q, want p1", *child.ParentID)
	}
	if len(child.Warnings) != 1 || child.Warnings[0] != "parent_assigned_from_level" {
		t.Fatalf("Warnings = %v, want [parent_assigned_from_level]", child.Warnings)
	}
}

func TestConsolidateKeepsExistingParent(t *testing.T) {
	existing := "other"
	nodes := []types.Node{
		node("p1", "Phase", "1", ""),
		node("c1", "Task", "1.1", ""),
	}
	nodes[1].ParentID = &existing

	out := Consolidate(nodes)

	if *out[1].ParentID != "other" {
		t.Fatalf("ParentID = %q, want other", *out[1].ParentID)
	}
	if len(out[1].Warnings) != 0 {
		t.Fatalf("Warnings = %v, want none", out[1].Warnings)
	}
}

func TestConsolidateSkipsWhenNoMatch(t *testing.T) {
	tests := []struct {
		name  string
		nodes []types.Node
	}{
		{
			name: "no parent level present",
			nodes: []types.Node{
				node("c1", "Orphan", "3.1", ""),
			},
		},
		{
			name: "undotted level",
			nodes: []types.Node{
				node("p1", "Top", "1", ""),
				node("c1", "Also top", "2", ""),
			},
		},
		{
			name: "empty level",
			nodes: []types.Node{
				node("p1", "Top", "1", ""),
				node("c1", "Unlabeled", "", ""),
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := Consolidate(tt.nodes)
			for _, n := range out {
				if n.ParentID != nil {
					t.Fatalf("node %s got parent %q, want none", n.ID, *n.ParentID)
				}
			}
		})
	}
}

func TestConsolidateDoesNotMutateInput(t *testing.T) {
	nodes := []types.Node{
		node("p1", "Phase", "2", ""),
		node("c1", "Task", "2.1", ""),
	}

	out := Consolidate(nodes)

	if nodes[1].ParentID != nil {
		t.Fatalf("input slice mutated: ParentID = %q", *nodes[1].ParentID)
	}
	if len(nodes[1].Warnings) != 0 {
		t.Fatalf("input slice mutated: Warnings = %v", nodes[1].Warnings)
	}
	if out[1].ParentID == nil || *out[1].ParentID != "p1" {
		t.Fatalf("output not consolidated: %+v", out[1])
	}
}

func TestConsolidateDeepLevels(t *testing.T) {
	nodes := []types.Node{
		node("a", "One", "1", ""),
		node("b", "One one", "1.1", ""),
		node("c", "One one one", "1.1.1", ""),
	}

	out := Consolidate(nodes)

	if out[1].ParentID == nil || *out[1].ParentID != "a" {
		t.Fatalf("1.1 parent = %v, want a", out[1].ParentID)
	}
	if out[2].ParentID == nil || *out[2].ParentID != "b" {
		t.Fatalf("1.1.1 parent = %v, want b", out[2].ParentID)
	}
}
