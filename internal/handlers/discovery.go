package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/spinnernet/backend/internal/discovery"
	"github.com/spinnernet/backend/internal/platform/logger"
	"github.com/spinnernet/backend/internal/repos"
	"github.com/spinnernet/backend/internal/requestdata"
)

// DiscoveryHandler exposes the conversation engine over plain HTTP for
// clients that do not hold a realtime connection.
type DiscoveryHandler struct {
	log      *logger.Logger
	svc      discovery.Service
	profiles repos.PersonaProfileRepo
}

func NewDiscoveryHandler(log *logger.Logger, svc discovery.Service, profiles repos.PersonaProfileRepo) *DiscoveryHandler {
	return &DiscoveryHandler{
		log:      log.With("handler", "DiscoveryHandler"),
		svc:      svc,
		profiles: profiles,
	}
}

type sendMessageRequest struct {
	Text string `json:"text" binding:"required"`
}

func (dh *DiscoveryHandler) SendMessage(c *gin.Context) {
	userID := requestdata.UserID(c.Request.Context())
	if userID == uuid.Nil {
		RespondError(c, http.StatusUnauthorized, "not_authenticated", nil)
		return
	}

	var req sendMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}

	result, err := dh.svc.ProcessMessage(c.Request.Context(), userID, req.Text)
	if err != nil {
		dh.log.Error("Discovery turn failed", "error", err)
		RespondError(c, http.StatusBadGateway, "turn_failed", nil)
		return
	}
	RespondOK(c, result)
}

func (dh *DiscoveryHandler) GetConversation(c *gin.Context) {
	userID := requestdata.UserID(c.Request.Context())
	if userID == uuid.Nil {
		RespondError(c, http.StatusUnauthorized, "not_authenticated", nil)
		return
	}

	conv, err := dh.svc.ActiveConversation(c.Request.Context(), userID)
	if err != nil {
		RespondError(c, http.StatusInternalServerError, "conversation_lookup_failed", err)
		return
	}
	if conv == nil {
		RespondError(c, http.StatusNotFound, "no_active_conversation", nil)
		return
	}
	RespondOK(c, gin.H{"conversation": conv})
}

// GetProfileByConversation resolves the persona profile extracted from one
// conversation, identified by the conversation_id query parameter.
func (dh *DiscoveryHandler) GetProfileByConversation(c *gin.Context) {
	userID := requestdata.UserID(c.Request.Context())
	if userID == uuid.Nil {
		RespondError(c, http.StatusUnauthorized, "not_authenticated", nil)
		return
	}

	conversationID, err := uuid.Parse(c.Query("conversation_id"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_conversation_id", nil)
		return
	}

	profile, err := dh.profiles.GetBySourceConversation(c.Request.Context(), nil, conversationID)
	if err != nil {
		RespondError(c, http.StatusInternalServerError, "profile_lookup_failed", err)
		return
	}
	// A profile belonging to another user is indistinguishable from absent.
	if profile == nil || profile.UserID != userID {
		RespondError(c, http.StatusNotFound, "profile_not_found", nil)
		return
	}
	RespondOK(c, gin.H{"profile": profile})
}

func (dh *DiscoveryHandler) GetProfiles(c *gin.Context) {
	userID := requestdata.UserID(c.Request.Context())
	if userID == uuid.Nil {
		RespondError(c, http.StatusUnauthorized, "not_authenticated", nil)
		return
	}

	profiles, err := dh.profiles.GetByUserID(c.Request.Context(), nil, userID)
	if err != nil {
		RespondError(c, http.StatusInternalServerError, "profile_lookup_failed", err)
		return
	}
	RespondOK(c, gin.H{"profiles": profiles})
}
