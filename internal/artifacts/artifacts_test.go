package artifacts

import "testing"

func TestUploadKey(t *testing.T) {
	tests := []struct {
		name     string
		jobID    string
		filename string
		want     string
	}{
		{name: "plain", jobID: "j1", filename: "scope.pdf", want: "uploads/j1/scope.pdf"},
		{name: "path separators flattened", jobID: "j1", filename: "a/b\\c.pdf", want: "uploads/j1/a_b_c.pdf"},
		{name: "dotdot neutralized", jobID: "j1", filename: "notes..pdf", want: "uploads/j1/notes_pdf"},
		{name: "empty name", jobID: "j1", filename: "  ", want: "uploads/j1/unnamed"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := UploadKey(tt.jobID, tt.filename); got != tt.want {
				t.Fatalf("UploadKey = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestArtifactKeys(t *testing.T) {
	if got := Prefix("j1"); got != "artifacts/j1/" {
		t.Fatalf("Prefix = %q", got)
	}
	if got := Key("j1", ObjectFinalTree); got != "artifacts/j1/final_tree.json" {
		t.Fatalf("Key = %q", got)
	}
	if got := Key("j1", RegionExtractionObject("r-42")); got != "artifacts/j1/regions/r-42.json" {
		t.Fatalf("region key = %q", got)
	}
	if got := Key("j1", EscalationPatchObject("p3_r1")); got != "artifacts/j1/escalations/p3_r1/selected_patch.json" {
		t.Fatalf("escalation patch key = %q", got)
	}
	if got := Key("j1", ObjectGlobalAnalysisSystemPrompt); got != "artifacts/j1/global_analysis_system_prompt.txt" {
		t.Fatalf("analysis prompt key = %q", got)
	}
	if got := Key("j1", ObjectVerifyUserPrompt); got != "artifacts/j1/verify_user_prompt.txt" {
		t.Fatalf("verify prompt key = %q", got)
	}
}

func TestRegionExtractionObjectSanitized(t *testing.T) {
	if got := RegionExtractionObject("a/b"); got != "regions/a_b.json" {
		t.Fatalf("RegionExtractionObject = %q", got)
	}
	if got := EscalationPatchObject("a/b"); got != "escalations/a_b/selected_patch.json" {
		t.Fatalf("EscalationPatchObject = %q", got)
	}
}
