package discovery

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/spinnernet/backend/internal/domain"
	"github.com/spinnernet/backend/internal/domain/persona"
	"github.com/spinnernet/backend/internal/platform/logger"
	"github.com/spinnernet/backend/internal/platform/openai"
	"github.com/spinnernet/backend/internal/store"
)

func testLogger(t *testing.T) *logger.Logger {
	t.Helper()
	log, err := logger.New("development")
	if err != nil {
		t.Fatalf("logger init failed: %v", err)
	}
	return log
}

type fakeClient struct {
	reply    string
	err      error
	calls    int
	lastMsgs []openai.ChatMessage
	lastOpts openai.CompletionOptions
}

func (f *fakeClient) Complete(ctx context.Context, messages []openai.ChatMessage, opts openai.CompletionOptions) (string, error) {
	f.calls++
	f.lastMsgs = messages
	f.lastOpts = opts
	if f.err != nil {
		return "", f.err
	}
	return f.reply, nil
}

type fakeProfiles struct {
	created []*types.PersonaProfile
	err     error
}

func (f *fakeProfiles) Create(ctx context.Context, tx *gorm.DB, profile *types.PersonaProfile) (*types.PersonaProfile, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.created = append(f.created, profile)
	return profile, nil
}

func (f *fakeProfiles) GetByUserID(ctx context.Context, tx *gorm.DB, userID uuid.UUID) ([]*types.PersonaProfile, error) {
	return f.created, nil
}

func (f *fakeProfiles) GetBySourceConversation(ctx context.Context, tx *gorm.DB, conversationID uuid.UUID) (*types.PersonaProfile, error) {
	for _, p := range f.created {
		if p.SourceConversationID == conversationID {
			return p, nil
		}
	}
	return nil, nil
}

type fakeExtractor struct {
	calls int
	err   error
}

func (f *fakeExtractor) Extract(ctx context.Context, conv *persona.Conversation) (*ExtractionOutcome, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return &ExtractionOutcome{
		Result: &persona.ExtractionResult{
			Traits:      []string{"curious"},
			Confidence:  0.85,
			ExtractedAt: time.Now().UTC(),
		},
		Parse: ParseStrict,
	}, nil
}

func newTestService(t *testing.T, ai *fakeClient, ex *fakeExtractor) (Service, store.ConversationStore) {
	t.Helper()
	conversations := store.NewMemoryConversationStore()
	svc := NewService(testLogger(t), conversations, ai, ex, nil, Config{})
	return svc, conversations
}

func TestProcessMessage_FirstTurn(t *testing.T) {
	ai := &fakeClient{reply: "Welcome! Tell me a little about yourself."}
	svc, conversations := newTestService(t, ai, &fakeExtractor{})
	userID := uuid.New()

	res, err := svc.ProcessMessage(context.Background(), userID, "hello there")
	if err != nil {
		t.Fatalf("ProcessMessage failed: %v", err)
	}
	if res.Reply != ai.reply {
		t.Fatalf("unexpected reply: %q", res.Reply)
	}
	if res.Progress != 10 {
		t.Fatalf("expected progress 10 for two keyword-free messages, got %v", res.Progress)
	}

	conv, err := conversations.Get(context.Background(), res.ConversationID, userID)
	if err != nil || conv == nil {
		t.Fatalf("stored conversation missing: %v", err)
	}
	if conv.MessageCount != 2 {
		t.Fatalf("expected 2 stored messages, got %d", conv.MessageCount)
	}
	if conv.Messages[0].Sender != persona.SenderUser || conv.Messages[1].Sender != persona.SenderAssistant {
		t.Fatalf("unexpected sender order: %v %v", conv.Messages[0].Sender, conv.Messages[1].Sender)
	}
	if !conv.Active || conv.Purpose != persona.PurposePersonaDiscovery {
		t.Fatalf("unexpected conversation flags: active=%v purpose=%q", conv.Active, conv.Purpose)
	}
}

func TestProcessMessage_SystemPromptLeadsHistory(t *testing.T) {
	ai := &fakeClient{reply: "ok"}
	svc, _ := newTestService(t, ai, &fakeExtractor{})

	if _, err := svc.ProcessMessage(context.Background(), uuid.New(), "hi"); err != nil {
		t.Fatalf("ProcessMessage failed: %v", err)
	}
	if len(ai.lastMsgs) != 2 {
		t.Fatalf("expected system prompt + user message, got %d messages", len(ai.lastMsgs))
	}
	if ai.lastMsgs[0].Role != "system" {
		t.Fatalf("first history entry must be the system prompt, got role %q", ai.lastMsgs[0].Role)
	}
	// One message in history: the initial stage prompt drives the model.
	if ai.lastMsgs[0].Content != DefaultPrompts().SystemPrompt(StageInitial) {
		t.Fatalf("unexpected system prompt for first turn")
	}
	if ai.lastOpts.Temperature != 0.7 || ai.lastOpts.MaxTokens != 500 {
		t.Fatalf("unexpected completion options: %+v", ai.lastOpts)
	}
}

func TestProcessMessage_ValidatesInput(t *testing.T) {
	svc, _ := newTestService(t, &fakeClient{reply: "ok"}, &fakeExtractor{})

	if _, err := svc.ProcessMessage(context.Background(), uuid.Nil, "hi"); err == nil {
		t.Fatalf("expected error for nil user id")
	}
	if _, err := svc.ProcessMessage(context.Background(), uuid.New(), "   "); err == nil {
		t.Fatalf("expected error for blank text")
	}
}

func TestProcessMessage_UserMessageSurvivesLLMFailure(t *testing.T) {
	ai := &fakeClient{err: fmt.Errorf("upstream unavailable")}
	svc, conversations := newTestService(t, ai, &fakeExtractor{})
	userID := uuid.New()

	if _, err := svc.ProcessMessage(context.Background(), userID, "hello"); err == nil {
		t.Fatalf("expected error when completion fails")
	}

	conv, err := store.FindActive(context.Background(), conversations, userID, persona.PurposePersonaDiscovery)
	if err != nil || conv == nil {
		t.Fatalf("conversation should exist after failed turn: %v", err)
	}
	if conv.MessageCount != 1 || conv.Messages[0].Sender != persona.SenderUser {
		t.Fatalf("expected exactly the user message persisted, got %d messages", conv.MessageCount)
	}
}

func TestProcessMessage_ReusesActiveConversation(t *testing.T) {
	ai := &fakeClient{reply: "tell me more"}
	svc, _ := newTestService(t, ai, &fakeExtractor{})
	userID := uuid.New()

	first, err := svc.ProcessMessage(context.Background(), userID, "hello")
	if err != nil {
		t.Fatalf("first turn failed: %v", err)
	}
	second, err := svc.ProcessMessage(context.Background(), userID, "more text here")
	if err != nil {
		t.Fatalf("second turn failed: %v", err)
	}
	if first.ConversationID != second.ConversationID {
		t.Fatalf("turns did not share a conversation: %s vs %s", first.ConversationID, second.ConversationID)
	}
}

func seedConversation(t *testing.T, conversations store.ConversationStore, userID uuid.UUID, contents []string) *persona.Conversation {
	t.Helper()
	conv := persona.NewConversation(userID)
	sender := persona.SenderUser
	for _, c := range contents {
		conv.Append(sender, c, time.Now().UTC())
		if sender == persona.SenderUser {
			sender = persona.SenderAssistant
		} else {
			sender = persona.SenderUser
		}
	}
	if _, err := conversations.Upsert(context.Background(), conv); err != nil {
		t.Fatalf("seed upsert failed: %v", err)
	}
	return conv
}

func richContents(n int) []string {
	contents := []string{
		"what i value most is honesty",
		"my goal is to learn woodworking",
		"i really enjoy hiking",
	}
	for len(contents) < n {
		contents = append(contents, "plain and neutral text")
	}
	return contents
}

func TestProcessMessage_TriggersExtractionPastThreshold(t *testing.T) {
	ai := &fakeClient{reply: "thanks for sharing"}
	ex := &fakeExtractor{}
	svc, conversations := newTestService(t, ai, ex)
	userID := uuid.New()

	seedConversation(t, conversations, userID, richContents(9))

	res, err := svc.ProcessMessage(context.Background(), userID, "one more thing")
	if err != nil {
		t.Fatalf("ProcessMessage failed: %v", err)
	}
	if res.Progress != 100 {
		t.Fatalf("expected progress 100, got %v", res.Progress)
	}
	if ex.calls != 1 {
		t.Fatalf("expected one extraction, got %d", ex.calls)
	}

	conv, err := conversations.Get(context.Background(), res.ConversationID, userID)
	if err != nil || conv == nil {
		t.Fatalf("stored conversation missing: %v", err)
	}
	if conv.Extraction == nil {
		t.Fatalf("extraction result not embedded in conversation")
	}

	// Further turns must not re-run the extraction.
	if _, err := svc.ProcessMessage(context.Background(), userID, "and another"); err != nil {
		t.Fatalf("follow-up turn failed: %v", err)
	}
	if ex.calls != 1 {
		t.Fatalf("extraction ran again: %d calls", ex.calls)
	}
}

func TestProcessMessage_BelowThresholdSkipsExtraction(t *testing.T) {
	ai := &fakeClient{reply: "go on"}
	ex := &fakeExtractor{}
	svc, conversations := newTestService(t, ai, ex)
	userID := uuid.New()

	// Enough messages but no keyword signal: progress stays at 50.
	seedConversation(t, conversations, userID, []string{
		"plain", "plain", "plain", "plain", "plain",
		"plain", "plain", "plain", "plain",
	})

	if _, err := svc.ProcessMessage(context.Background(), userID, "still plain"); err != nil {
		t.Fatalf("ProcessMessage failed: %v", err)
	}
	if ex.calls != 0 {
		t.Fatalf("extraction must not run below the progress threshold, got %d calls", ex.calls)
	}
}

func TestProcessMessage_ExtractionFailureDoesNotFailTurn(t *testing.T) {
	ai := &fakeClient{reply: "thanks for sharing"}
	ex := &fakeExtractor{err: fmt.Errorf("model exploded")}
	svc, conversations := newTestService(t, ai, ex)
	userID := uuid.New()

	seedConversation(t, conversations, userID, richContents(9))

	res, err := svc.ProcessMessage(context.Background(), userID, "one more thing")
	if err != nil {
		t.Fatalf("turn must survive extraction failure: %v", err)
	}
	conv, _ := conversations.Get(context.Background(), res.ConversationID, userID)
	if conv.Extraction != nil {
		t.Fatalf("failed extraction must not embed a result")
	}
}

func TestActiveConversation(t *testing.T) {
	svc, conversations := newTestService(t, &fakeClient{reply: "ok"}, &fakeExtractor{})
	userID := uuid.New()

	conv, err := svc.ActiveConversation(context.Background(), userID)
	if err != nil {
		t.Fatalf("ActiveConversation failed: %v", err)
	}
	if conv != nil {
		t.Fatalf("expected nil before any turn")
	}

	seeded := seedConversation(t, conversations, userID, []string{"hi"})
	conv, err = svc.ActiveConversation(context.Background(), userID)
	if err != nil || conv == nil {
		t.Fatalf("expected active conversation: %v", err)
	}
	if conv.ID != seeded.ID {
		t.Fatalf("wrong conversation returned")
	}
}

func TestTranscript_RendersSenderPrefixes(t *testing.T) {
	out := Transcript([]persona.Message{
		{Sender: persona.SenderUser, Content: "hi"},
		{Sender: persona.SenderAssistant, Content: "hello"},
	})
	want := "User: hi\nAssistant: hello\n"
	if out != want {
		t.Fatalf("unexpected transcript:\n%s", out)
	}
	if strings.Contains(Transcript(nil), "User") {
		t.Fatalf("empty transcript must be empty")
	}
}

type countingStore struct {
	store.ConversationStore
	upserts int
}

func (c *countingStore) Upsert(ctx context.Context, conv *persona.Conversation) (*persona.Conversation, error) {
	c.upserts++
	return c.ConversationStore.Upsert(ctx, conv)
}

func TestProcessMessage_SuccessfulTurnPersistsOnce(t *testing.T) {
	ai := &fakeClient{reply: "noted"}
	conversations := &countingStore{ConversationStore: store.NewMemoryConversationStore()}
	svc := NewService(testLogger(t), conversations, ai, &fakeExtractor{}, nil, Config{})
	userID := uuid.New()

	// Seed on the inner store so the count covers only the turn itself.
	seedConversation(t, conversations.ConversationStore, userID, []string{"hi"})

	if _, err := svc.ProcessMessage(context.Background(), userID, "more"); err != nil {
		t.Fatalf("ProcessMessage failed: %v", err)
	}
	if conversations.upserts != 1 {
		t.Fatalf("expected a single upsert for a successful turn, got %d", conversations.upserts)
	}
}
