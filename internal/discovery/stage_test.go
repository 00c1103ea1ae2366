package discovery

import "testing"

func TestClassifyStage_Boundaries(t *testing.T) {
	cases := []struct {
		count int
		want  Stage
	}{
		{0, StageInitial},
		{1, StageInitial},
		{2, StageExploration},
		{3, StageExploration},
		{4, StageExploration},
		{5, StageInterests},
		{7, StageInterests},
		{8, StageChallenges},
		{10, StageChallenges},
		{11, StageSynthesis},
		{50, StageSynthesis},
	}
	for _, tc := range cases {
		if got := ClassifyStage(tc.count); got != tc.want {
			t.Fatalf("ClassifyStage(%d) = %q, want %q", tc.count, got, tc.want)
		}
	}
}

func TestClassifyStage_NegativeCountFallsBackToExploration(t *testing.T) {
	if got := ClassifyStage(-1); got != StageExploration {
		t.Fatalf("ClassifyStage(-1) = %q, want %q", got, StageExploration)
	}
}

func TestSystemPrompt_UnknownStageUsesExploration(t *testing.T) {
	prompts := DefaultPrompts()
	if got := prompts.SystemPrompt(Stage("bogus")); got != prompts.SystemPrompt(StageExploration) {
		t.Fatalf("unknown stage did not fall back to exploration prompt")
	}
}
