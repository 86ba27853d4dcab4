package main

import (
	"bytes"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
)

// helper to perform requests with auth token
func performRequest(r http.Handler, method, path string, body io.Reader, token string, contentType string) *httptest.ResponseRecorder {
	// allow callers to pass nil for body safely
	req, _ := http.NewRequest(method, path, body)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func setupTestServer(t *testing.T) *gin.Engine {
	// integration tests are opt-in. Set DB_DSN_TEST=1 and DB_DSN to run them.
	if os.Getenv("DB_DSN_TEST") != "1" {
		t.Skip("integration tests are disabled; set DB_DSN_TEST=1 to enable")
	}
	gin.SetMode(gin.TestMode)
	jwtSecret = []byte("test-secret")
	initDB()
	tmp := t.TempDir()
	_ = os.Setenv("UPLOAD_BASE", tmp)
	seedDB()
	if err := setupDeps(); err != nil {
		t.Fatalf("setupDeps failed: %v", err)
	}
	r := gin.Default()
	setupRoutes(r)
	return r
}

func TestFullFlow(t *testing.T) {
	r := setupTestServer(t)

	// 1. Register user
	regBody, _ := json.Marshal(map[string]string{"username": "user1", "password": "pass123"})
	resp := performRequest(r, http.MethodPost, "/register", bytes.NewBuffer(regBody), "", "application/json")
	if resp.Code != 200 && resp.Code != 409 {
		b := resp.Body.String()
		t.Fatalf("register failed status=%d body=%s", resp.Code, b)
	}

	// 2. Login
	loginBody, _ := json.Marshal(map[string]string{"username": "user1", "password": "pass123"})
	resp = performRequest(r, http.MethodPost, "/login", bytes.NewBuffer(loginBody), "", "application/json")
	if resp.Code != 200 {
		b := resp.Body.String()
		t.Fatalf("login failed status=%d body=%s", resp.Code, b)
	}
	var loginResp map[string]any
	_ = json.Unmarshal(resp.Body.Bytes(), &loginResp)
	token, _ := loginResp["token"].(string)
	if token == "" {
		t.Fatalf("empty token in login response: %+v", loginResp)
	}

	// 3. Create folder
	folderBody, _ := json.Marshal(map[string]string{"folder_name": "documents"})
	resp = performRequest(r, http.MethodPost, "/folders", bytes.NewBuffer(folderBody), token, "application/json")
	if resp.Code != 200 {
		b := resp.Body.String()
		t.Fatalf("create folder failed status=%d body=%s", resp.Code, b)
	}

	// 4. Upload file (multipart)
	buf := &bytes.Buffer{}
	mw := multipart.NewWriter(buf)
	_ = mw.WriteField("path", "documents")
	w, _ := mw.CreateFormFile("file", "notes.txt")
	_, _ = w.Write([]byte("quarterly revenue is trending up"))
	_ = mw.Close()
	resp = performRequest(r, http.MethodPost, "/files/upload", buf, token, mw.FormDataContentType())
	if resp.Code != 200 {
		b := resp.Body.String()
		t.Fatalf("upload failed status=%d body=%s", resp.Code, b)
	}

	// 5. List files in the folder
	resp = performRequest(r, http.MethodGet, "/files?path=documents", nil, token, "")
	if resp.Code != 200 {
		b := resp.Body.String()
		t.Fatalf("list files failed status=%d body=%s", resp.Code, b)
	}
	if !strings.Contains(resp.Body.String(), "notes.txt") {
		t.Fatalf("listing does not contain uploaded file: %s", resp.Body.String())
	}

	// 6. Search by name
	resp = performRequest(r, http.MethodGet, "/files/search?query=notes", nil, token, "")
	if resp.Code != 200 {
		b := resp.Body.String()
		t.Fatalf("search failed status=%d body=%s", resp.Code, b)
	}

	// 7. Preview of the text file returns its content
	resp = performRequest(r, http.MethodGet, "/files/preview/documents/notes.txt", nil, token, "")
	if resp.Code != 200 {
		b := resp.Body.String()
		t.Fatalf("preview failed status=%d body=%s", resp.Code, b)
	}
	if !strings.Contains(resp.Body.String(), "quarterly revenue") {
		t.Fatalf("preview missing file content: %s", resp.Body.String())
	}

	// 8. File info
	resp = performRequest(r, http.MethodGet, "/files/info/documents/notes.txt", nil, token, "")
	if resp.Code != 200 {
		b := resp.Body.String()
		t.Fatalf("file info failed status=%d body=%s", resp.Code, b)
	}

	// 9. Copy then move
	copyBody, _ := json.Marshal(map[string]string{"source_path": "documents/notes.txt", "destination_path": "documents/notes_copy.txt"})
	resp = performRequest(r, http.MethodPost, "/files/copy", bytes.NewBuffer(copyBody), token, "application/json")
	if resp.Code != 200 {
		b := resp.Body.String()
		t.Fatalf("copy failed status=%d body=%s", resp.Code, b)
	}
	moveBody, _ := json.Marshal(map[string]string{"source_path": "documents/notes_copy.txt", "destination_path": "notes_moved.txt"})
	resp = performRequest(r, http.MethodPost, "/files/move", bytes.NewBuffer(moveBody), token, "application/json")
	if resp.Code != 200 {
		b := resp.Body.String()
		t.Fatalf("move failed status=%d body=%s", resp.Code, b)
	}

	// 10. Delete the moved file
	delBody, _ := json.Marshal(map[string]any{"path": "notes_moved.txt"})
	req, _ := http.NewRequest(http.MethodDelete, "/files", bytes.NewBuffer(delBody))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	if rec.Code != 200 {
		t.Fatalf("delete failed status=%d body=%s", rec.Code, rec.Body.String())
	}

	// 11. Storage stats
	resp = performRequest(r, http.MethodGet, "/storage/stats", nil, token, "")
	if resp.Code != 200 {
		b := resp.Body.String()
		t.Fatalf("storage stats failed status=%d body=%s", resp.Code, b)
	}

	// 12. AI endpoints answer 503 when no API key is configured
	if os.Getenv("OPENAI_API_KEY") == "" {
		chatBody, _ := json.Marshal(map[string]string{"message": "hi", "session_id": "none"})
		resp = performRequest(r, http.MethodPost, "/chat", bytes.NewBuffer(chatBody), token, "application/json")
		if resp.Code != http.StatusServiceUnavailable {
			t.Fatalf("expected 503 for chat without API key got %d", resp.Code)
		}
	}

	// 13. Unauthorized access to protected endpoint should be 401
	unauth := performRequest(r, http.MethodGet, "/files", nil, "", "")
	if unauth.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 for unauthorized list files got %d", unauth.Code)
	}
}

func TestMigrateCommand(t *testing.T) {
	if os.Getenv("DB_DSN_TEST") != "1" {
		t.Skip("integration tests are disabled; set DB_DSN_TEST=1 to enable")
	}
	initDB()
}
