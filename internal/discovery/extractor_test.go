package discovery

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/spinnernet/backend/internal/domain/persona"
)

func discoveryConversation(t *testing.T) *persona.Conversation {
	t.Helper()
	conv := persona.NewConversation(uuid.New())
	conv.Append(persona.SenderUser, "i value honesty and my goal is mastery", time.Now().UTC())
	conv.Append(persona.SenderAssistant, "tell me more", time.Now().UTC())
	return conv
}

func TestExtract_StrictParse(t *testing.T) {
	ai := &fakeClient{reply: `{"traits": ["bold"], "values": ["trust"], "goals": ["build things"]}`}
	profiles := &fakeProfiles{}
	ex := NewExtractor(testLogger(t), ai, profiles, ExtractorConfig{})
	conv := discoveryConversation(t)

	out, err := ex.Extract(context.Background(), conv)
	if err != nil {
		t.Fatalf("Extract failed: %v", err)
	}
	if out.Parse != ParseStrict {
		t.Fatalf("expected strict parse, got %q", out.Parse)
	}
	if out.Result.Confidence != 0.85 {
		t.Fatalf("expected confidence 0.85, got %v", out.Result.Confidence)
	}
	if out.Profile.DisplayName != "The bold trust-Seeker" {
		t.Fatalf("unexpected display name %q", out.Profile.DisplayName)
	}
	if out.Profile.IsDefault {
		t.Fatalf("parsed profile must not be flagged default")
	}
	if len(profiles.created) != 1 {
		t.Fatalf("profile not persisted")
	}
	if profiles.created[0].UserID != conv.UserID || profiles.created[0].SourceConversationID != conv.ID {
		t.Fatalf("profile not linked to conversation")
	}
	if ai.lastOpts.Temperature != 0.3 || ai.lastOpts.MaxTokens != 1000 {
		t.Fatalf("unexpected completion options: %+v", ai.lastOpts)
	}
}

func TestExtract_UnparseableOutputYieldsDefaultProfile(t *testing.T) {
	ai := &fakeClient{reply: "I am unable to produce JSON today."}
	profiles := &fakeProfiles{}
	ex := NewExtractor(testLogger(t), ai, profiles, ExtractorConfig{})

	out, err := ex.Extract(context.Background(), discoveryConversation(t))
	if err != nil {
		t.Fatalf("Extract failed: %v", err)
	}
	if out.Parse != ParseDefault {
		t.Fatalf("expected default outcome, got %q", out.Parse)
	}
	if !out.Profile.IsDefault {
		t.Fatalf("default profile must be flagged")
	}
	if out.Result.Confidence != 0.5 {
		t.Fatalf("expected default confidence 0.5, got %v", out.Result.Confidence)
	}
	if out.Profile.DisplayName != "The curious growth-Seeker" {
		t.Fatalf("unexpected default display name %q", out.Profile.DisplayName)
	}
}

func TestExtract_ModelFailureDegradesToDefault(t *testing.T) {
	ai := &fakeClient{err: fmt.Errorf("timeout")}
	profiles := &fakeProfiles{}
	ex := NewExtractor(testLogger(t), ai, profiles, ExtractorConfig{})

	out, err := ex.Extract(context.Background(), discoveryConversation(t))
	if err != nil {
		t.Fatalf("model failure must not fail extraction: %v", err)
	}
	if out.Parse != ParseDefault || !out.Profile.IsDefault {
		t.Fatalf("expected default profile after model failure")
	}
	if len(profiles.created) != 1 {
		t.Fatalf("default profile must still be persisted")
	}
}

func TestExtract_PersistFailurePropagates(t *testing.T) {
	ai := &fakeClient{reply: `{"traits": ["bold"]}`}
	profiles := &fakeProfiles{err: fmt.Errorf("db down")}
	ex := NewExtractor(testLogger(t), ai, profiles, ExtractorConfig{})

	if _, err := ex.Extract(context.Background(), discoveryConversation(t)); err == nil {
		t.Fatalf("expected error when persistence fails")
	}
}

func TestExtract_NilConversation(t *testing.T) {
	ex := NewExtractor(testLogger(t), &fakeClient{}, &fakeProfiles{}, ExtractorConfig{})
	if _, err := ex.Extract(context.Background(), nil); err == nil {
		t.Fatalf("expected error for nil conversation")
	}
}

func TestDisplayName_Fallbacks(t *testing.T) {
	cases := []struct {
		traits []string
		values []string
		want   string
	}{
		{[]string{"bold"}, []string{"trust"}, "The bold trust-Seeker"},
		{nil, nil, "The Balanced Growth-Seeker"},
		{[]string{"  "}, []string{"trust"}, "The Balanced trust-Seeker"},
		{[]string{"calm"}, []string{""}, "The calm Growth-Seeker"},
	}
	for _, tc := range cases {
		if got := DisplayName(tc.traits, tc.values); got != tc.want {
			t.Fatalf("DisplayName(%v, %v) = %q, want %q", tc.traits, tc.values, got, tc.want)
		}
	}
}
