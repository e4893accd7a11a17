package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Newsletter is a composed newsletter saved for future reference. Composition
// itself (the AI generation step) happens outside this service.
type Newsletter struct {
	ID                    string     `gorm:"primaryKey;size:36" json:"id"`
	UserID                string     `gorm:"index;not null" json:"userId"`
	SuggestedTitles       StringList `gorm:"type:text" json:"suggestedTitles"`
	SuggestedSubjectLines StringList `gorm:"type:text" json:"suggestedSubjectLines"`
	Body                  string     `json:"body"`
	TopAnnouncements      StringList `gorm:"type:text" json:"topAnnouncements"`
	AdditionalInfo        string     `json:"additionalInfo,omitempty"`
	StartDate             time.Time  `json:"startDate"`
	EndDate               time.Time  `json:"endDate"`
	UserInput             string     `json:"userInput,omitempty"`
	FeedsUsed             StringList `gorm:"type:text" json:"feedsUsed"`
	CreatedAt             time.Time  `json:"createdAt"`
	UpdatedAt             time.Time  `json:"updatedAt"`
}

func (n *Newsletter) BeforeCreate(tx *gorm.DB) error {
	if n.ID == "" {
		n.ID = uuid.NewString()
	}
	return nil
}
