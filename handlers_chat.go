package main

import (
	"errors"
	"fmt"
	"log"
	"math"
	"net/http"
	"strconv"
	"strings"

	"coachbe/pkg/index"
	"coachbe/pkg/memory"
	"coachbe/pkg/ocr"
	"coachbe/pkg/sheet"
	"coachbe/pkg/storage"

	"github.com/gin-gonic/gin"
)

// completeExtractionThreshold: spreadsheets under this size are converted in
// full; larger ones use sampled extraction.
const completeExtractionThreshold = 1024 * 1024

func setupChatRoutes(g *gin.RouterGroup) {
	g.POST("/chat", chatHandler)
	g.POST("/report", reportHandler)
	g.POST("/vector-stores", createVectorStoreHandler)
	g.DELETE("/vector-stores/:id", deleteVectorStoreHandler)
	g.GET("/sessions", listSessionsHandler)
	g.GET("/sessions/:id/history", sessionHistoryHandler)
	g.GET("/sessions/:id/reports", sessionReportsHandler)
	g.PUT("/sessions/:id/title", updateSessionTitleHandler)
	g.DELETE("/sessions/:id", deleteSessionHandler)
	g.POST("/sessions/start", startSessionHandler)
	g.POST("/sessions/end", endSessionHandler)
}

// requireIndex guards the AI endpoints: without an API key the server runs in
// file-management-only mode.
func requireIndex(c *gin.Context) bool {
	if docIndex == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "AI features are not configured (missing OPENAI_API_KEY)"})
		return false
	}
	return true
}

// analyzeImageHandler describes an image with the vision model. Useful for
// charts and photos where OCR yields nothing.
func analyzeImageHandler(c *gin.Context) {
	if vision == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "AI features are not configured (missing OPENAI_API_KEY)"})
		return
	}
	var req struct {
		FilePath string `json:"file_path" binding:"required"`
		Prompt   string `json:"prompt"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	data, _, filename, err := store.Get(req.FilePath)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "file not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "read failed"})
		return
	}
	if !ocr.IsImageFile(filename) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "file is not an image"})
		return
	}
	prompt := req.Prompt
	if prompt == "" {
		prompt = "Describe the content of this image in detail."
	}
	answer, err := vision.AnalyzeImage(c.Request.Context(), data, prompt)
	if err != nil {
		log.Printf("analyze: vision request failed for %s: %v", req.FilePath, err)
		c.JSON(http.StatusBadGateway, gin.H{"error": "image analysis failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"file_path": req.FilePath, "analysis": answer})
}

func chatHandler(c *gin.Context) {
	if !requireIndex(c) {
		return
	}
	user, ok := getUserFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "user not found"})
		return
	}
	var req struct {
		Message   string `json:"message" binding:"required"`
		SessionID string `json:"session_id"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	sessionID := req.SessionID
	if sessionID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "session_id required; start a session via /sessions/start"})
		return
	}
	session, err := sessions.GetSession(sessionID)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "session not found"})
		return
	}
	if session.UserID != nil && *session.UserID != user.ID {
		c.JSON(http.StatusForbidden, gin.H{"error": "forbidden"})
		return
	}
	if session.VectorStoreID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "session has no document context"})
		return
	}

	recent, err := sessions.Recent(sessionID, 10)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load history"})
		return
	}
	history := make([]index.Message, 0, len(recent))
	for _, m := range recent {
		history = append(history, index.Message{Role: m.Role, Content: m.Content})
	}

	if _, err := sessions.AddMessage(sessionID, "user", req.Message, "chat", nil); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to record message"})
		return
	}
	answer, err := docIndex.Query(c.Request.Context(), session.VectorStoreID, index.ChatSystemPrompt, history, req.Message)
	if err != nil {
		log.Printf("chat: query failed for session %s: %v", sessionID, err)
		c.JSON(http.StatusBadGateway, gin.H{"error": "chat generation failed"})
		return
	}
	if _, err := sessions.AddMessage(sessionID, "assistant", answer, "chat", nil); err != nil {
		log.Printf("chat: failed to record assistant message: %v", err)
	}
	c.JSON(http.StatusOK, gin.H{
		"response":      answer,
		"session_id":    sessionID,
		"message_count": len(recent) + 2,
	})
}

func reportHandler(c *gin.Context) {
	if !requireIndex(c) {
		return
	}
	user, ok := getUserFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "user not found"})
		return
	}
	var req struct {
		SessionID string `json:"session_id" binding:"required"`
		Language  string `json:"language"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	session, err := sessions.GetSession(req.SessionID)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "session not found"})
		return
	}
	if session.UserID != nil && *session.UserID != user.ID {
		c.JSON(http.StatusForbidden, gin.H{"error": "forbidden"})
		return
	}
	if session.VectorStoreID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "session has no document context"})
		return
	}

	system, query := index.ReportPrompt(req.Language)
	if _, err := sessions.AddMessage(req.SessionID, "user", query, "report", nil); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to record message"})
		return
	}
	report, err := docIndex.Query(c.Request.Context(), session.VectorStoreID, system, nil, query)
	if err != nil {
		log.Printf("report: query failed for session %s: %v", req.SessionID, err)
		c.JSON(http.StatusBadGateway, gin.H{"error": "report generation failed"})
		return
	}
	if _, err := sessions.AddMessage(req.SessionID, "assistant", report, "report", nil); err != nil {
		log.Printf("report: failed to record report message: %v", err)
	}
	c.JSON(http.StatusOK, gin.H{
		"report":     report,
		"session_id": req.SessionID,
		"type":       "report",
	})
}

// buildIndexFiles converts storage entries into uploadable index files.
// Spreadsheets and images become text renderings (with a _processed.txt name
// so the upload is accepted); other indexable types go through unchanged.
func buildIndexFiles(paths []string) []index.File {
	var files []index.File
	for _, p := range paths {
		entry, err := store.Stat(p)
		if err != nil {
			log.Printf("vector-store: skipping %s: %v", p, err)
			continue
		}
		if entry.IsFolder {
			continue
		}
		if !index.IndexableExtensions[entry.Extension] {
			log.Printf("vector-store: skipping %s: file type not suitable", p)
			continue
		}
		data, _, filename, err := store.Get(p)
		if err != nil {
			log.Printf("vector-store: read %s failed: %v", p, err)
			continue
		}
		switch {
		case sheet.IsSheetFile(filename):
			maxRows := 0 // smart row limits for big files
			if entry.Size < completeExtractionThreshold {
				maxRows = math.MaxInt32 // small files ship complete
			}
			text := sheet.VectorStoreText(data, filename, maxRows)
			files = append(files, index.File{Name: processedName(filename), Data: []byte(text)})
		case ocr.IsImageFile(filename):
			text := pipeline.VectorStoreText(data, filename)
			files = append(files, index.File{Name: processedName(filename), Data: []byte(text)})
		default:
			files = append(files, index.File{Name: filename, Data: data})
		}
	}
	return files
}

func processedName(filename string) string {
	if i := strings.LastIndex(filename, "."); i > 0 {
		filename = filename[:i]
	}
	return filename + "_processed.txt"
}

func folderFilePaths(folder string) ([]string, error) {
	listing, err := store.List(folder, false, "name", "asc")
	if err != nil {
		return nil, err
	}
	var paths []string
	for _, e := range listing.Entries {
		if !e.IsFolder {
			paths = append(paths, e.Path)
		}
	}
	return paths, nil
}

func createVectorStoreHandler(c *gin.Context) {
	if !requireIndex(c) {
		return
	}
	var req struct {
		FolderPath string   `json:"folder_path"`
		FilePaths  []string `json:"file_paths"`
		StoreName  string   `json:"store_name"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	paths := req.FilePaths
	name := req.StoreName
	cacheKey := ""
	if req.FolderPath != "" {
		// recently built stores for the same folder are reused
		cacheKey = storage.VectorStoreKey(req.FolderPath)
		if v, ok := listCache.Get(cacheKey); ok {
			if id, ok := v.(string); ok {
				c.JSON(http.StatusOK, gin.H{"vector_store_id": id, "name": name, "message": "Vector store reused from cache"})
				return
			}
		}
		var err error
		paths, err = folderFilePaths(req.FolderPath)
		if err != nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "folder not found"})
			return
		}
		if name == "" {
			name = "Vector Store - " + req.FolderPath
		}
	}
	if len(paths) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "either folder_path or file_paths must be provided"})
		return
	}
	if name == "" {
		name = fmt.Sprintf("Vector Store - %d files", len(paths))
	}
	storeID, err := docIndex.Index(c.Request.Context(), name, buildIndexFiles(paths))
	if err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": "vector store creation failed"})
		return
	}
	if cacheKey != "" {
		listCache.Set(cacheKey, storeID)
	}
	c.JSON(http.StatusOK, gin.H{"vector_store_id": storeID, "name": name, "message": "Vector store created successfully"})
}

func deleteVectorStoreHandler(c *gin.Context) {
	if !requireIndex(c) {
		return
	}
	id := c.Param("id")
	if err := docIndex.Drop(c.Request.Context(), id); err != nil {
		if errors.Is(err, index.ErrStoreNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "vector store not found"})
			return
		}
		c.JSON(http.StatusBadGateway, gin.H{"error": "vector store deletion failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Vector store deleted successfully", "vector_store_id": id})
}

func listSessionsHandler(c *gin.Context) {
	user, ok := getUserFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "user not found"})
		return
	}
	limit := 50
	if v := c.Query("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			limit = n
		}
	}
	list, err := sessions.ListSessions(user.ID, limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "query failed"})
		return
	}
	stats := make([]memory.SessionStats, 0, len(list))
	for _, s := range list {
		st, err := sessions.Stats(s.SessionID)
		if err != nil {
			continue
		}
		stats = append(stats, st)
	}
	c.JSON(http.StatusOK, gin.H{"sessions": stats, "total_count": len(stats)})
}

func sessionHistoryHandler(c *gin.Context) {
	sessionID := c.Param("id")
	if _, err := sessions.GetSession(sessionID); err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "session not found"})
		return
	}
	msgs, err := sessions.History(sessionID, "chat", 50)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "query failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"session_id": sessionID, "messages": msgs, "total_count": len(msgs)})
}

func sessionReportsHandler(c *gin.Context) {
	sessionID := c.Param("id")
	if _, err := sessions.GetSession(sessionID); err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "session not found"})
		return
	}
	msgs, err := sessions.History(sessionID, "report", 50)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "query failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"session_id": sessionID, "reports": msgs, "total_count": len(msgs)})
}

func updateSessionTitleHandler(c *gin.Context) {
	var req struct {
		Title string `json:"title" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := sessions.UpdateTitle(c.Param("id"), req.Title); err != nil {
		if errors.Is(err, memory.ErrSessionNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "session not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "update failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "session title updated"})
}

func deleteSessionHandler(c *gin.Context) {
	sessionID := c.Param("id")
	session, err := sessions.GetSession(sessionID)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "session not found"})
		return
	}
	if err := sessions.Delete(sessionID); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "delete failed"})
		return
	}
	if session.VectorStoreID != "" && docIndex != nil {
		if err := docIndex.Drop(c.Request.Context(), session.VectorStoreID); err != nil {
			log.Printf("sessions: drop vector store %s failed: %v", session.VectorStoreID, err)
		}
	}
	c.JSON(http.StatusOK, gin.H{"message": "session deleted", "session_id": sessionID})
}

func startSessionHandler(c *gin.Context) {
	if !requireIndex(c) {
		return
	}
	user, ok := getUserFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "user not found"})
		return
	}
	var req struct {
		FolderPath   string   `json:"folder_path"`
		FilePaths    []string `json:"file_paths"`
		SessionTitle string   `json:"session_title"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	paths := req.FilePaths
	storeName := req.SessionTitle
	if req.FolderPath != "" {
		var err error
		paths, err = folderFilePaths(req.FolderPath)
		if err != nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "folder not found"})
			return
		}
		if storeName == "" {
			storeName = "Session Documents - " + req.FolderPath
		}
	}
	if len(paths) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "either folder_path or file_paths must be provided"})
		return
	}
	if storeName == "" {
		storeName = fmt.Sprintf("Session Documents - %d files", len(paths))
	}

	storeID, err := docIndex.Index(c.Request.Context(), storeName, buildIndexFiles(paths))
	if err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": "vector store creation failed"})
		return
	}
	uid := user.ID
	sessionID, err := sessions.CreateSession(&uid, storeID, req.SessionTitle)
	if err != nil {
		// session creation failed: do not leave the store orphaned
		if derr := docIndex.Drop(c.Request.Context(), storeID); derr != nil {
			log.Printf("sessions: cleanup of store %s failed: %v", storeID, derr)
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to start session"})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"session_id":      sessionID,
		"vector_store_id": storeID,
		"message":         "Chat session started successfully with vector store created",
	})
}

func endSessionHandler(c *gin.Context) {
	var req struct {
		SessionID string `json:"session_id" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	session, err := sessions.GetSession(req.SessionID)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "session not found"})
		return
	}
	msgs, _ := sessions.History(req.SessionID, "chat", 1000)
	if err := sessions.Delete(req.SessionID); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "delete failed"})
		return
	}
	storeDeleted := false
	if session.VectorStoreID != "" && docIndex != nil {
		if err := docIndex.Drop(c.Request.Context(), session.VectorStoreID); err != nil {
			log.Printf("sessions: drop vector store %s failed: %v", session.VectorStoreID, err)
		} else {
			storeDeleted = true
		}
	}
	c.JSON(http.StatusOK, gin.H{
		"message":         "Chat session ended successfully",
		"session_id":      req.SessionID,
		"vector_store_id": session.VectorStoreID,
		"cleanup_status": gin.H{
			"session_deleted":      true,
			"vector_store_deleted": storeDeleted,
			"messages_deleted":     len(msgs),
		},
	})
}
