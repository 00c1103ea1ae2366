package discovery

// Stage is the coarse phase of a discovery conversation. It is derived purely
// from message count and selects which system prompt drives the model.
type Stage string

const (
	StageInitial     Stage = "initial"
	StageExploration Stage = "exploration"
	StageInterests   Stage = "interests"
	StageChallenges  Stage = "challenges"
	StageSynthesis   Stage = "synthesis"
)

// ClassifyStage maps the conversation's message count (history length at
// prompt-construction time, after the user's new message is appended) to a
// stage. Total over all integers; out-of-range counts fall back to
// exploration.
func ClassifyStage(messageCount int) Stage {
	switch {
	case messageCount >= 0 && messageCount <= 1:
		return StageInitial
	case messageCount >= 2 && messageCount <= 4:
		return StageExploration
	case messageCount >= 5 && messageCount <= 7:
		return StageInterests
	case messageCount >= 8 && messageCount <= 10:
		return StageChallenges
	case messageCount >= 11:
		return StageSynthesis
	default:
		return StageExploration
	}
}
