package repos

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/spinnernet/backend/internal/domain"
	"github.com/spinnernet/backend/internal/platform/logger"
)

type PersonaProfileRepo interface {
	Create(ctx context.Context, tx *gorm.DB, profile *types.PersonaProfile) (*types.PersonaProfile, error)
	GetByUserID(ctx context.Context, tx *gorm.DB, userID uuid.UUID) ([]*types.PersonaProfile, error)
	GetBySourceConversation(ctx context.Context, tx *gorm.DB, conversationID uuid.UUID) (*types.PersonaProfile, error)
}

type personaProfileRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewPersonaProfileRepo(db *gorm.DB, baseLog *logger.Logger) PersonaProfileRepo {
	return &personaProfileRepo{db: db, log: baseLog.With("repo", "PersonaProfileRepo")}
}

func (pr *personaProfileRepo) Create(ctx context.Context, tx *gorm.DB, profile *types.PersonaProfile) (*types.PersonaProfile, error) {
	transaction := tx
	if transaction == nil {
		transaction = pr.db
	}
	if err := transaction.WithContext(ctx).Create(profile).Error; err != nil {
		return nil, err
	}
	return profile, nil
}

func (pr *personaProfileRepo) GetByUserID(ctx context.Context, tx *gorm.DB, userID uuid.UUID) ([]*types.PersonaProfile, error) {
	transaction := tx
	if transaction == nil {
		transaction = pr.db
	}
	var results []*types.PersonaProfile
	if err := transaction.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (pr *personaProfileRepo) GetBySourceConversation(ctx context.Context, tx *gorm.DB, conversationID uuid.UUID) (*types.PersonaProfile, error) {
	transaction := tx
	if transaction == nil {
		transaction = pr.db
	}
	var result types.PersonaProfile
	err := transaction.WithContext(ctx).
		Where("source_conversation_id = ?", conversationID).
		First(&result).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &result, nil
}
