package breakdown

import (
	"testing"

	"github.com/yungbote/breakdown-backend/internal/prompts"
	"github.com/yungbote/breakdown-backend/internal/types"
)

func regionNode(id, regionID string) types.Node {
	return types.Node{
		ID:    id,
		Title: "node " + id,
		Provenance: types.Provenance{
			RegionID:   regionID,
			SourceType: types.SourceTypeParagraph,
			Quote:      "quote",
		},
	}
}

func TestValidateJudgeSelection(t *testing.T) {
	candidates := []prompts.JudgeCandidate{
		{Name: "candidate_a", Provider: "openai", Model: "gpt-test"},
		{Name: "candidate_b", Provider: "anthropic", Model: "claude-test"},
	}
	winner := func(name string) *string { return &name }

	tests := []struct {
		name     string
		strategy string
		winning  *string
		wantErr  bool
	}{
		{name: "merge needs no winner", strategy: "merge"},
		{name: "empty strategy tolerated", strategy: ""},
		{name: "pick_one with known winner", strategy: "pick_one", winning: winner("candidate_b")},
		{name: "pick_one without winner", strategy: "pick_one", wantErr: true},
		{name: "pick_one with unknown winner", strategy: "pick_one", winning: winner("candidate_z"), wantErr: true},
		{name: "unknown strategy", strategy: "coin_flip", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var out judgeOutput
			out.Selected.Strategy = tt.strategy
			out.Selected.WinningCandidate = tt.winning

			err := validateJudgeSelection(out, candidates)
			if (err != nil) != tt.wantErr {
				t.Fatalf("err = %v, wantErr = %v", err, tt.wantErr)
			}
		})
	}
}

func TestMergeEscalationsReplacesEscalatedRegions(t *testing.T) {
	corrected := []types.Node{
		regionNode("a", "r1"),
		regionNode("b", "r2"),
		regionNode("c", "r1"),
	}
	patches := map[string][]types.Node{
		"r1": {regionNode("x", "r1"), regionNode("y", "r1")},
	}

	out := MergeEscalations(corrected, patches)

	gotIDs := make([]string, 0, len(out))
	for _, n := range out {
		gotIDs = append(gotIDs, n.ID)
	}
	want := []string{"b", "x", "y"}
	if len(gotIDs) != len(want) {
		t.Fatalf("ids = %v, want %v", gotIDs, want)
	}
	for i := range want {
		if gotIDs[i] != want[i] {
			t.Fatalf("ids = %v, want %v", gotIDs, want)
		}
	}
}

func TestMergeEscalationsJudgedNodeWinsOnDuplicateID(t *testing.T) {
	kept := regionNode("shared", "r2")
	judged := regionNode("shared", "r1")
	judged.Title = "judged version"

	out := MergeEscalations([]types.Node{kept}, map[string][]types.Node{
		"r1": {judged},
	})

	if len(out) != 1 {
		t.Fatalf("len(out) = %d, want 1", len(out))
	}
	if out[0].Title != "judged version" {
		t.Fatalf("Title = %q, want judged version", out[0].Title)
	}
}

func TestMergeEscalationsDeterministicPatchOrder(t *testing.T) {
	patches := map[string][]types.Node{
		"r3": {regionNode("c", "r3")},
		"r1": {regionNode("a", "r1")},
		"r2": {regionNode("b", "r2")},
	}

	out := MergeEscalations(nil, patches)

	want := []string{"a", "b", "c"}
	for i := range want {
		if out[i].ID != want[i] {
			t.Fatalf("ids out of order: got %v", out)
		}
	}
}

func TestMergeEscalationsNoPatches(t *testing.T) {
	corrected := []types.Node{regionNode("a", "r1")}

	out := MergeEscalations(corrected, map[string][]types.Node{})

	if len(out) != 1 || out[0].ID != "a" {
		t.Fatalf("out = %v, want original set", out)
	}
}
