// Package memory persists chat sessions and their messages so conversations
// survive restarts and recent turns can be replayed as model context.
package memory

import (
	"errors"
	"fmt"
	"time"

	"coachbe/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

var ErrSessionNotFound = errors.New("memory: session not found")

// Store wraps the gorm handle with session-level operations.
type Store struct {
	db *gorm.DB
}

func NewStore(db *gorm.DB) *Store {
	return &Store{db: db}
}

// CreateSession mints a new session ID. An empty title gets a timestamped
// default.
func (s *Store) CreateSession(userID *uint, vectorStoreID, title string) (string, error) {
	sessionID := uuid.NewString()
	if title == "" {
		title = "Chat Session " + time.Now().Format("2006-01-02 15:04")
	}
	session := models.ChatSession{
		SessionID:     sessionID,
		UserID:        userID,
		Title:         title,
		VectorStoreID: vectorStoreID,
		IsActive:      true,
	}
	if err := s.db.Create(&session).Error; err != nil {
		return "", fmt.Errorf("memory: create session: %w", err)
	}
	return sessionID, nil
}

func (s *Store) GetSession(sessionID string) (*models.ChatSession, error) {
	var session models.ChatSession
	if err := s.db.Where("session_id = ?", sessionID).First(&session).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrSessionNotFound
		}
		return nil, err
	}
	return &session, nil
}

// ListSessions returns a user's active sessions, most recently touched first.
func (s *Store) ListSessions(userID uint, limit int) ([]models.ChatSession, error) {
	var sessions []models.ChatSession
	err := s.db.Where("user_id = ? AND is_active = ?", userID, true).
		Order("updated_at desc").Limit(limit).Find(&sessions).Error
	return sessions, err
}

// IdleSessions returns active sessions not touched since cutoff.
func (s *Store) IdleSessions(cutoff time.Time) ([]models.ChatSession, error) {
	var sessions []models.ChatSession
	err := s.db.Where("is_active = ? AND updated_at < ?", true, cutoff).Find(&sessions).Error
	return sessions, err
}

// AddMessage appends one turn and touches the session's updated_at so idle
// detection sees activity.
func (s *Store) AddMessage(sessionID, role, content, messageType string, tokensUsed *int) (*models.ChatMessage, error) {
	if messageType == "" {
		messageType = "chat"
	}
	msg := models.ChatMessage{
		SessionID:   sessionID,
		Role:        role,
		Content:     content,
		MessageType: messageType,
		TokensUsed:  tokensUsed,
	}
	if err := s.db.Create(&msg).Error; err != nil {
		return nil, fmt.Errorf("memory: add message: %w", err)
	}
	s.db.Model(&models.ChatSession{}).Where("session_id = ?", sessionID).
		Update("updated_at", time.Now())
	return &msg, nil
}

// History returns messages of one type in chronological order. Empty
// messageType returns everything.
func (s *Store) History(sessionID, messageType string, limit int) ([]models.ChatMessage, error) {
	var msgs []models.ChatMessage
	q := s.db.Where("session_id = ?", sessionID)
	if messageType != "" {
		q = q.Where("message_type = ?", messageType)
	}
	err := q.Order("timestamp asc, id asc").Limit(limit).Find(&msgs).Error
	return msgs, err
}

// Recent returns the last limit messages in chronological order, for model
// context.
func (s *Store) Recent(sessionID string, limit int) ([]models.ChatMessage, error) {
	var msgs []models.ChatMessage
	err := s.db.Where("session_id = ?", sessionID).
		Order("timestamp desc, id desc").Limit(limit).Find(&msgs).Error
	if err != nil {
		return nil, err
	}
	for i, j := 0, len(msgs)-1; i < j; i, j = i+1, j-1 {
		msgs[i], msgs[j] = msgs[j], msgs[i]
	}
	return msgs, nil
}

func (s *Store) UpdateTitle(sessionID, title string) error {
	res := s.db.Model(&models.ChatSession{}).Where("session_id = ?", sessionID).
		Updates(map[string]any{"title": title, "updated_at": time.Now()})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrSessionNotFound
	}
	return nil
}

// Deactivate soft-deletes a session; its rows stay for auditing.
func (s *Store) Deactivate(sessionID string) error {
	res := s.db.Model(&models.ChatSession{}).Where("session_id = ?", sessionID).
		Updates(map[string]any{"is_active": false, "updated_at": time.Now()})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrSessionNotFound
	}
	return nil
}

// Delete removes the session and all its messages.
func (s *Store) Delete(sessionID string) error {
	session, err := s.GetSession(sessionID)
	if err != nil {
		return err
	}
	if err := s.db.Where("session_id = ?", sessionID).Delete(&models.ChatMessage{}).Error; err != nil {
		return fmt.Errorf("memory: delete messages: %w", err)
	}
	if err := s.db.Delete(session).Error; err != nil {
		return fmt.Errorf("memory: delete session: %w", err)
	}
	return nil
}

// SessionStats summarizes one session for listings.
type SessionStats struct {
	SessionID       string    `json:"session_id"`
	Title           string    `json:"title"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
	MessageCount    int64     `json:"message_count"`
	TotalTokensUsed int64     `json:"total_tokens_used"`
	VectorStoreID   string    `json:"vector_store_id,omitempty"`
}

func (s *Store) Stats(sessionID string) (SessionStats, error) {
	session, err := s.GetSession(sessionID)
	if err != nil {
		return SessionStats{}, err
	}
	var count int64
	s.db.Model(&models.ChatMessage{}).Where("session_id = ?", sessionID).Count(&count)
	var tokens int64
	s.db.Model(&models.ChatMessage{}).Where("session_id = ? AND tokens_used IS NOT NULL", sessionID).
		Select("COALESCE(SUM(tokens_used), 0)").Scan(&tokens)
	return SessionStats{
		SessionID:       session.SessionID,
		Title:           session.Title,
		CreatedAt:       session.CreatedAt,
		UpdatedAt:       session.UpdatedAt,
		MessageCount:    count,
		TotalTokensUsed: tokens,
		VectorStoreID:   session.VectorStoreID,
	}, nil
}
