package models

import (
	"time"
)

// ChatSession model. SessionID is the public identifier handed to clients;
// VectorStoreID links the session to its document context.
type ChatSession struct {
	ID            uint   `gorm:"primaryKey"`
	SessionID     string `gorm:"size:255;not null;unique"`
	UserID        *uint  `gorm:"index"`
	Title         string `gorm:"size:500"`
	VectorStoreID string `gorm:"size:255"`
	IsActive      bool   `gorm:"default:true"`
	CreatedAt     time.Time
	UpdatedAt     time.Time
	Messages      []ChatMessage `gorm:"foreignKey:SessionID;references:SessionID;constraint:OnDelete:CASCADE"`
}
