package discovery

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// One fixed system prompt per stage. User data never enters the templates;
// it reaches the model only through the appended chat history.
var defaultPrompts = map[Stage]string{
	StageInitial: "You are a warm, curious companion helping someone discover their persona. " +
		"This is the very beginning of the conversation. Welcome them, make them feel at ease, " +
		"and invite them to share a little about who they are. Keep your reply short and friendly.",
	StageExploration: "You are a warm, curious companion helping someone discover their persona. " +
		"Deepen the conversation around what the person values and what they want to achieve. " +
		"Ask open questions about what matters to them and the goals they are working toward. " +
		"One question at a time, conversational tone.",
	StageInterests: "You are a warm, curious companion helping someone discover their persona. " +
		"Explore what the person enjoys: interests, hobbies, and the activities that energize them. " +
		"Connect their interests back to things they have already shared.",
	StageChallenges: "You are a warm, curious companion helping someone discover their persona. " +
		"Gently explore the challenges and obstacles the person faces. Be supportive and " +
		"non-judgmental; acknowledge difficulty before asking further.",
	StageSynthesis: "You are a warm, curious companion helping someone discover their persona. " +
		"Begin synthesizing what you have learned. Reflect back the person's values, goals, " +
		"interests and challenges in your own words, and check whether your picture of them feels right.",
}

// PromptSet resolves a stage to its system prompt. Prompts are static per
// stage; unknown stages use the exploration prompt.
type PromptSet struct {
	prompts map[Stage]string
}

func DefaultPrompts() *PromptSet {
	return &PromptSet{prompts: defaultPrompts}
}

// LoadPrompts reads stage-prompt overrides from a YAML file mapping stage
// names to prompt text. Stages absent from the file keep their defaults.
func LoadPrompts(path string) (*PromptSet, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read prompts file: %w", err)
	}
	var overrides map[string]string
	if err := yaml.Unmarshal(raw, &overrides); err != nil {
		return nil, fmt.Errorf("parse prompts file: %w", err)
	}

	merged := make(map[Stage]string, len(defaultPrompts))
	for stage, prompt := range defaultPrompts {
		merged[stage] = prompt
	}
	for name, prompt := range overrides {
		stage := Stage(name)
		if _, known := defaultPrompts[stage]; !known {
			return nil, fmt.Errorf("unknown stage %q in prompts file", name)
		}
		if prompt != "" {
			merged[stage] = prompt
		}
	}
	return &PromptSet{prompts: merged}, nil
}

func (p *PromptSet) SystemPrompt(stage Stage) string {
	if prompt, ok := p.prompts[stage]; ok {
		return prompt
	}
	return p.prompts[StageExploration]
}
