package main

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"coachbe/models"
	"coachbe/pkg/ocr"
	"coachbe/pkg/sheet"
	"coachbe/pkg/storage"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

func setupRoutes(r *gin.Engine) {
	r.GET("/", rootHandler)
	r.POST("/register", registerHandler)
	r.POST("/login", loginHandler)
	r.POST("/refresh", refreshHandler)
	r.POST("/revoke_refresh", revokeRefreshHandler)
	authGroup := r.Group("")
	authGroup.Use(jwtAuthMiddleware())
	authGroup.GET("/me", meHandler)
	authGroup.POST("/folders", createFolderHandler)
	authGroup.GET("/files", listFilesHandler)
	authGroup.GET("/files/search", searchFilesHandler)
	authGroup.POST("/files/upload", uploadFileHandler)
	authGroup.DELETE("/files", deleteItemHandler)
	authGroup.GET("/files/download/*file_path", downloadFileHandler)
	authGroup.GET("/files/info/*file_path", fileInfoHandler)
	authGroup.GET("/files/preview/*file_path", previewFileHandler)
	authGroup.POST("/files/analyze", analyzeImageHandler)
	authGroup.POST("/files/copy", copyFileHandler)
	authGroup.POST("/files/move", moveFileHandler)
	authGroup.GET("/storage/stats", storageStatsHandler)
	setupChatRoutes(authGroup)
}

func rootHandler(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"name":    "AI Coaching File Backend",
		"status":  "running",
		"version": "1.0.0",
	})
}

func jwtAuthMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" || len(authHeader) < 8 || authHeader[:7] != "Bearer " {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "missing or invalid Authorization header"})
			c.Abort()
			return
		}
		tokenString := authHeader[7:]
		token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, jwt.ErrInvalidKeyType
			}
			return jwtSecret, nil
		})
		if err != nil || !token.Valid {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			c.Abort()
			return
		}
		claims, ok := token.Claims.(jwt.MapClaims)
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid claims"})
			c.Abort()
			return
		}
		username, _ := claims["username"].(string)
		role, _ := claims["role"].(string)
		c.Set("username", username)
		if role != "" {
			c.Set("role", role)
		}
		c.Next()
	}
}

func meHandler(c *gin.Context) {
	usernameVal, _ := c.Get("username")
	if usernameVal == nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "context missing username"})
		return
	}
	username := usernameVal.(string)
	c.JSON(http.StatusOK, gin.H{"username": username})
}

// getUserFromContext fetches the currently authenticated user using the username set by jwtAuthMiddleware
func getUserFromContext(c *gin.Context) (*models.User, bool) {
	unameVal, _ := c.Get("username")
	if unameVal == nil {
		return nil, false
	}
	uname := unameVal.(string)
	var user models.User
	if err := db.Where("username = ?", uname).First(&user).Error; err != nil {
		return nil, false
	}
	return &user, true
}

func registerHandler(c *gin.Context) {
	var req struct {
		Username string `json:"username" binding:"required"`
		Password string `json:"password" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := RegisterUser(req.Username, req.Password); err != nil {
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "user registered successfully"})
}

func loginHandler(c *gin.Context) {
	var req struct {
		Username string `json:"username" binding:"required"`
		Password string `json:"password" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	user, err := Authenticate(req.Username, req.Password)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
		return
	}
	tokenString, err := signAccessToken(user, 24*time.Hour)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to generate token"})
		return
	}
	refreshToken, err := createAndStoreRefreshToken(user.ID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create refresh token"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "login successful", "token": tokenString, "refresh_token": refreshToken})
}

// signAccessToken issues an HS256 token. Role name is resolved from RoleID
// (we only store role_id).
func signAccessToken(user models.User, ttl time.Duration) (string, error) {
	roleName := ""
	if user.RoleID != nil {
		var r models.Role
		if err := db.First(&r, *user.RoleID).Error; err == nil {
			roleName = r.Name
		}
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"username": user.Username,
		"role":     roleName,
		"exp":      time.Now().Add(ttl).Unix(),
	})
	return token.SignedString(jwtSecret)
}

// createAndStoreRefreshToken generates a random refresh token, stores its hash with expiry and returns the raw token string
func createAndStoreRefreshToken(userID uint) (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	token := hex.EncodeToString(b)
	h := sha256.Sum256([]byte(token))
	th := hex.EncodeToString(h[:])
	rt := models.RefreshToken{UserID: userID, TokenHash: th, ExpiresAt: time.Now().Add(30 * 24 * time.Hour)}
	if err := db.Create(&rt).Error; err != nil {
		return "", err
	}
	return token, nil
}

func findRefreshTokenByRaw(token string) (*models.RefreshToken, error) {
	h := sha256.Sum256([]byte(token))
	th := hex.EncodeToString(h[:])
	var rt models.RefreshToken
	if err := db.Where("token_hash = ?", th).First(&rt).Error; err != nil {
		return nil, err
	}
	return &rt, nil
}

// refreshHandler exchanges a refresh token for a new access token and rotates the refresh token
func refreshHandler(c *gin.Context) {
	var req struct {
		RefreshToken string `json:"refresh_token" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	rt, err := findRefreshTokenByRaw(req.RefreshToken)
	if err != nil || rt.Revoked || time.Now().After(rt.ExpiresAt) {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid or expired refresh token"})
		return
	}
	var user models.User
	if err := db.First(&user, rt.UserID).Error; err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "user not found"})
		return
	}
	tokenString, err := signAccessToken(user, 15*time.Minute)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to generate token"})
		return
	}
	// rotate refresh token: revoke existing and create new one
	db.Model(&models.RefreshToken{}).Where("id = ?", rt.ID).Update("revoked", true)
	newRT, err := createAndStoreRefreshToken(user.ID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to rotate refresh token"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"token": tokenString, "refresh_token": newRT})
}

// revokeRefreshHandler revokes a given refresh token (useful on logout)
func revokeRefreshHandler(c *gin.Context) {
	var req struct {
		RefreshToken string `json:"refresh_token" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	rt, err := findRefreshTokenByRaw(req.RefreshToken)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "refresh token not found"})
		return
	}
	rt.Revoked = true
	if err := db.Save(rt).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to revoke token"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "refresh token revoked"})
}

func createFolderHandler(c *gin.Context) {
	var req struct {
		FolderName string `json:"folder_name" binding:"required"`
		ParentPath string `json:"parent_path"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	path, err := store.CreateFolder(req.FolderName, req.ParentPath)
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, storage.ErrEmptyName) {
			status = http.StatusBadRequest
		}
		c.JSON(status, gin.H{"error": err.Error()})
		return
	}
	listCache.Clear()
	c.JSON(http.StatusOK, gin.H{"message": "folder created successfully", "path": path})
}

func listFilesHandler(c *gin.Context) {
	path := c.Query("path")
	includeHidden := c.Query("include_hidden") == "true"
	sortBy := c.DefaultQuery("sort_by", "name")
	sortOrder := c.DefaultQuery("sort_order", "asc")

	// only plain listings are cached; hidden-file views bypass the cache
	cacheKey := ""
	if !includeHidden {
		cacheKey = storage.ListKey(path, sortBy, sortOrder)
		if v, ok := listCache.Get(cacheKey); ok {
			c.JSON(http.StatusOK, v)
			return
		}
	}
	listing, err := store.List(path, includeHidden, sortBy, sortOrder)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "folder not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "listing failed"})
		return
	}
	if cacheKey != "" {
		listCache.Set(cacheKey, listing)
	}
	c.JSON(http.StatusOK, listing)
}

func searchFilesHandler(c *gin.Context) {
	query := c.Query("query")
	if query == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "query parameter required"})
		return
	}
	results, err := store.Search(query, c.Query("path"), c.Query("file_type"))
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "folder not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "search failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"query": query, "results": results, "total_count": len(results)})
}

func uploadFileHandler(c *gin.Context) {
	file, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "file missing"})
		return
	}
	if file.Size > 50*1024*1024 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "file too large (max 50MB)"})
		return
	}
	src, err := file.Open()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "open upload failed"})
		return
	}
	defer src.Close()
	data, err := io.ReadAll(src)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "read upload failed"})
		return
	}
	entry, err := store.Put(c.PostForm("path"), file.Filename, data)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "save failed"})
		return
	}
	listCache.Clear()
	c.JSON(http.StatusOK, gin.H{"message": "File uploaded successfully", "file_info": entry})
}

func deleteItemHandler(c *gin.Context) {
	var req struct {
		Path      string `json:"path" binding:"required"`
		Recursive bool   `json:"recursive"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	res, err := store.Delete(req.Path, req.Recursive)
	if err != nil {
		switch {
		case errors.Is(err, storage.ErrNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
		case errors.Is(err, storage.ErrNotEmpty):
			c.JSON(http.StatusBadRequest, gin.H{"error": "cannot delete non-empty folder without recursive flag"})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": "delete failed"})
		}
		return
	}
	listCache.Clear()
	c.JSON(http.StatusOK, res)
}

func downloadFileHandler(c *gin.Context) {
	path := strings.TrimPrefix(c.Param("file_path"), "/")
	data, contentType, filename, err := store.Get(path)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "file not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "download failed"})
		return
	}
	c.Header("Content-Disposition", "attachment; filename="+strconv.Quote(filename))
	c.Data(http.StatusOK, contentType, data)
}

func fileInfoHandler(c *gin.Context) {
	path := strings.TrimPrefix(c.Param("file_path"), "/")
	entry, err := store.Stat(path)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "file not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "stat failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"name":         entry.Name,
		"path":         entry.Path,
		"size":         entry.Size,
		"extension":    entry.Extension,
		"content_type": entry.ContentType,
		"is_folder":    entry.IsFolder,
		"is_text":      storage.IsTextFile(entry.Name),
		"is_image":     ocr.IsImageFile(entry.Name),
		"is_sheet":     sheet.IsSheetFile(entry.Name),
		"modified":     entry.Modified,
	})
}

// previewFileHandler dispatches by file type: OCR for images, tabular
// rendering for spreadsheets, truncated raw content for text files.
func previewFileHandler(c *gin.Context) {
	path := strings.TrimPrefix(c.Param("file_path"), "/")
	data, contentType, filename, err := store.Get(path)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "file not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "preview failed"})
		return
	}
	switch {
	case ocr.IsImageFile(filename):
		c.JSON(http.StatusOK, gin.H{"content": pipeline.Preview(data, filename), "content_type": contentType})
	case sheet.IsSheetFile(filename):
		c.JSON(http.StatusOK, gin.H{"content": sheet.Preview(data, filename, 10), "content_type": contentType})
	case storage.IsTextFile(filename):
		maxSize := 1024 * 1024
		if v := c.Query("max_size"); v != "" {
			if n, err := strconv.Atoi(v); err == nil && n > 0 {
				maxSize = n
			}
		}
		truncated := false
		content := data
		if len(content) > maxSize {
			content = content[:maxSize]
			truncated = true
		}
		c.JSON(http.StatusOK, gin.H{
			"content":      string(content),
			"truncated":    truncated,
			"size":         len(data),
			"content_type": contentType,
		})
	default:
		c.JSON(http.StatusOK, gin.H{"error": "Preview not available for this file type", "content_type": contentType})
	}
}

func copyFileHandler(c *gin.Context) {
	var req struct {
		SourcePath      string `json:"source_path" binding:"required"`
		DestinationPath string `json:"destination_path" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := store.Copy(req.SourcePath, req.DestinationPath); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "source file not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "copy failed"})
		return
	}
	listCache.Clear()
	c.JSON(http.StatusOK, gin.H{"message": "File copied successfully", "source": req.SourcePath, "destination": req.DestinationPath})
}

func moveFileHandler(c *gin.Context) {
	var req struct {
		SourcePath      string `json:"source_path" binding:"required"`
		DestinationPath string `json:"destination_path" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := store.Move(req.SourcePath, req.DestinationPath); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "source file not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "move failed"})
		return
	}
	listCache.Clear()
	c.JSON(http.StatusOK, gin.H{"message": "File moved successfully", "source": req.SourcePath, "destination": req.DestinationPath})
}

func storageStatsHandler(c *gin.Context) {
	stats, err := store.Stats()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "stats failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"storage": stats, "cache": listCache.Stats()})
}
