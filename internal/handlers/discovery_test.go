package handlers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/spinnernet/backend/internal/domain"
	"github.com/spinnernet/backend/internal/platform/logger"
	"github.com/spinnernet/backend/internal/requestdata"
)

func testLogger(t *testing.T) *logger.Logger {
	t.Helper()
	log, err := logger.New("development")
	if err != nil {
		t.Fatalf("logger init failed: %v", err)
	}
	return log
}

type stubProfiles struct {
	profile *types.PersonaProfile
	err     error
}

func (s *stubProfiles) Create(ctx context.Context, tx *gorm.DB, profile *types.PersonaProfile) (*types.PersonaProfile, error) {
	return profile, nil
}

func (s *stubProfiles) GetByUserID(ctx context.Context, tx *gorm.DB, userID uuid.UUID) ([]*types.PersonaProfile, error) {
	if s.profile == nil {
		return nil, s.err
	}
	return []*types.PersonaProfile{s.profile}, s.err
}

func (s *stubProfiles) GetBySourceConversation(ctx context.Context, tx *gorm.DB, conversationID uuid.UUID) (*types.PersonaProfile, error) {
	if s.err != nil {
		return nil, s.err
	}
	if s.profile != nil && s.profile.SourceConversationID == conversationID {
		return s.profile, nil
	}
	return nil, nil
}

func profileByConversation(t *testing.T, repo *stubProfiles, userID uuid.UUID, query string) *httptest.ResponseRecorder {
	t.Helper()
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req := httptest.NewRequest(http.MethodGet, "/discovery/profile"+query, nil)
	if userID != uuid.Nil {
		req = req.WithContext(requestdata.WithRequestData(req.Context(), &requestdata.RequestData{UserID: userID}))
	}
	c.Request = req
	NewDiscoveryHandler(testLogger(t), nil, repo).GetProfileByConversation(c)
	return w
}

func TestGetProfileByConversation(t *testing.T) {
	userID := uuid.New()
	conversationID := uuid.New()
	repo := &stubProfiles{profile: &types.PersonaProfile{
		ID:                   uuid.New(),
		UserID:               userID,
		DisplayName:          "The curious growth-Seeker",
		SourceConversationID: conversationID,
	}}

	w := profileByConversation(t, repo, userID, "?conversation_id="+conversationID.String())
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}

	// Another user's lookup for the same conversation must not leak it.
	w = profileByConversation(t, repo, uuid.New(), "?conversation_id="+conversationID.String())
	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for a foreign profile, got %d", w.Code)
	}
}

func TestGetProfileByConversation_Validation(t *testing.T) {
	userID := uuid.New()
	repo := &stubProfiles{}

	w := profileByConversation(t, repo, userID, "?conversation_id=not-a-uuid")
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for a bad id, got %d", w.Code)
	}

	w = profileByConversation(t, repo, userID, "?conversation_id="+uuid.New().String())
	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404 when no profile exists, got %d", w.Code)
	}

	w = profileByConversation(t, repo, uuid.Nil, "?conversation_id="+uuid.New().String())
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without identity, got %d", w.Code)
	}
}
