package memory

import (
	"errors"
	"os"
	"testing"
	"time"

	"coachbe/models"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// DB-backed tests are opt-in, same switch as the server integration tests.
func testStore(t *testing.T) *Store {
	if os.Getenv("DB_DSN_TEST") != "1" {
		t.Skip("database tests are disabled; set DB_DSN_TEST=1 to enable")
	}
	dsn := os.Getenv("DB_DSN")
	if dsn == "" {
		t.Skip("DB_DSN not set")
	}
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if err := db.AutoMigrate(&models.ChatSession{}, &models.ChatMessage{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return NewStore(db)
}

func TestSessionLifecycle(t *testing.T) {
	s := testStore(t)

	id, err := s.CreateSession(nil, "vs_test123", "")
	if err != nil {
		t.Fatalf("create session: %v", err)
	}
	defer s.Delete(id)

	session, err := s.GetSession(id)
	if err != nil {
		t.Fatalf("get session: %v", err)
	}
	if session.VectorStoreID != "vs_test123" {
		t.Fatalf("vector store id = %q", session.VectorStoreID)
	}
	if session.Title == "" {
		t.Fatal("expected a default title")
	}

	if err := s.UpdateTitle(id, "Budget review"); err != nil {
		t.Fatalf("update title: %v", err)
	}
	session, _ = s.GetSession(id)
	if session.Title != "Budget review" {
		t.Fatalf("title = %q", session.Title)
	}

	if err := s.Deactivate(id); err != nil {
		t.Fatalf("deactivate: %v", err)
	}
	session, _ = s.GetSession(id)
	if session.IsActive {
		t.Fatal("session still active after deactivate")
	}

	if err := s.Delete(id); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := s.GetSession(id); !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("expected ErrSessionNotFound after delete, got %v", err)
	}
}

func TestMessagesAndHistory(t *testing.T) {
	s := testStore(t)

	id, err := s.CreateSession(nil, "", "history test")
	if err != nil {
		t.Fatalf("create session: %v", err)
	}
	defer s.Delete(id)

	tokens := 42
	pairs := []struct{ role, content, msgType string }{
		{"user", "what is my spending trend?", "chat"},
		{"assistant", "spending rose 10% month over month", "chat"},
		{"user", "generate report", "report"},
		{"assistant", "## Report\nspending details", "report"},
	}
	for _, p := range pairs {
		if _, err := s.AddMessage(id, p.role, p.content, p.msgType, &tokens); err != nil {
			t.Fatalf("add message: %v", err)
		}
	}

	chat, err := s.History(id, "chat", 50)
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if len(chat) != 2 {
		t.Fatalf("chat history len = %d, want 2", len(chat))
	}
	if chat[0].Role != "user" || chat[1].Role != "assistant" {
		t.Fatalf("history out of order: %s, %s", chat[0].Role, chat[1].Role)
	}

	reports, err := s.History(id, "report", 50)
	if err != nil {
		t.Fatalf("report history: %v", err)
	}
	if len(reports) != 2 {
		t.Fatalf("report history len = %d, want 2", len(reports))
	}

	all, err := s.History(id, "", 50)
	if err != nil {
		t.Fatalf("all history: %v", err)
	}
	if len(all) != 4 {
		t.Fatalf("all history len = %d, want 4", len(all))
	}

	recent, err := s.Recent(id, 2)
	if err != nil {
		t.Fatalf("recent: %v", err)
	}
	if len(recent) != 2 {
		t.Fatalf("recent len = %d, want 2", len(recent))
	}
	// chronological order even though fetched newest-first
	if recent[0].Content != "generate report" {
		t.Fatalf("recent[0] = %q", recent[0].Content)
	}

	stats, err := s.Stats(id)
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if stats.MessageCount != 4 {
		t.Fatalf("message count = %d, want 4", stats.MessageCount)
	}
	if stats.TotalTokensUsed != int64(4*tokens) {
		t.Fatalf("total tokens = %d, want %d", stats.TotalTokensUsed, 4*tokens)
	}
}

func TestIdleSessions(t *testing.T) {
	s := testStore(t)

	id, err := s.CreateSession(nil, "", "idle test")
	if err != nil {
		t.Fatalf("create session: %v", err)
	}
	defer s.Delete(id)

	// a future cutoff makes the fresh session idle
	idle, err := s.IdleSessions(time.Now().Add(time.Hour))
	if err != nil {
		t.Fatalf("idle sessions: %v", err)
	}
	found := false
	for _, sess := range idle {
		if sess.SessionID == id {
			found = true
		}
	}
	if !found {
		t.Fatal("expected session to be idle against a future cutoff")
	}

	// a past cutoff must exclude it
	idle, err = s.IdleSessions(time.Now().Add(-time.Hour))
	if err != nil {
		t.Fatalf("idle sessions: %v", err)
	}
	for _, sess := range idle {
		if sess.SessionID == id {
			t.Fatal("fresh session reported idle against a past cutoff")
		}
	}
}
