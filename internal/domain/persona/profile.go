package persona

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// PersonaProfile is the persisted persona built from an extraction result.
// List fields are stored as jsonb.
type PersonaProfile struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	UserID    uuid.UUID `gorm:"type:uuid;not null;index" json:"user_id"`
	PersonaID uuid.UUID `gorm:"type:uuid;not null" json:"persona_id"`

	DisplayName string `gorm:"type:text;not null" json:"display_name"`

	Traits     datatypes.JSON `gorm:"type:jsonb;not null;default:'[]'" json:"traits"`
	Values     datatypes.JSON `gorm:"type:jsonb;not null;default:'[]'" json:"values"`
	Goals      datatypes.JSON `gorm:"type:jsonb;not null;default:'[]'" json:"goals"`
	Challenges datatypes.JSON `gorm:"type:jsonb;not null;default:'[]'" json:"challenges"`
	Interests  datatypes.JSON `gorm:"type:jsonb;not null;default:'[]'" json:"interests"`

	CommunicationStyle string `gorm:"type:text;not null;default:''" json:"communication_style"`
	DecisionMaking     string `gorm:"type:text;not null;default:''" json:"decision_making"`
	PrimaryMotivation  string `gorm:"type:text;not null;default:''" json:"primary_motivation"`
	LearningStyle      string `gorm:"type:text;not null;default:''" json:"learning_style"`

	Confidence float64 `gorm:"not null;default:0" json:"confidence"`
	IsDefault  bool    `gorm:"not null;default:false" json:"is_default"`

	SourceConversationID uuid.UUID `gorm:"type:uuid;not null;index" json:"source_conversation_id"`

	CreatedAt time.Time `gorm:"not null" json:"created_at"`
}

func (PersonaProfile) TableName() string { return "persona_profile" }

// JSONList marshals a string slice for a jsonb column. A nil slice becomes an
// empty array, never null.
func JSONList(items []string) datatypes.JSON {
	if items == nil {
		items = []string{}
	}
	raw, err := json.Marshal(items)
	if err != nil {
		return datatypes.JSON([]byte("[]"))
	}
	return datatypes.JSON(raw)
}
