package models

import (
	"time"
)

// ChatMessage model. MessageType separates chat turns from generated reports.
type ChatMessage struct {
	ID          uint      `gorm:"primaryKey"`
	SessionID   string    `gorm:"size:255;not null;index"`
	Role        string    `gorm:"size:50;not null"` // user, assistant, system
	Content     string    `gorm:"type:text;not null"`
	MessageType string    `gorm:"size:50;default:chat"` // chat, report, system
	Timestamp   time.Time `gorm:"autoCreateTime"`
	TokensUsed  *int
}
