package main

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"time"

	"coachbe/pkg/index"
	"coachbe/pkg/memory"
	"coachbe/pkg/ocr"
	"coachbe/pkg/storage"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
)

var jwtSecret []byte // loaded from env JWT_SECRET (fallback to dev default)

// shared dependencies wired in main / setupDeps
var (
	store     storage.Backend
	listCache *storage.Cache
	pipeline  *ocr.Pipeline
	docIndex  index.DocumentIndex
	vision    index.VisionAnalyzer
	sessions  *memory.Store
)

func main() {
	// Load ./.env if present before reading vars; existing env wins.
	_ = godotenv.Load()

	secret := os.Getenv("JWT_SECRET")
	if secret == "" {
		secret = "dev-insecure-secret-change" // development fallback
	}
	jwtSecret = []byte(secret)

	// Support a lightweight migrate command: `./coachbe migrate`
	// It runs AutoMigrate and seeding then exits. Useful for CI or manual DB setup.
	if len(os.Args) > 1 && os.Args[1] == "migrate" {
		initDB()
		fmt.Println("migration and seeding completed")
		return
	}

	initDB()
	if err := setupDeps(); err != nil {
		log.Fatal(err)
	}

	stop := make(chan struct{})
	defer close(stop)
	go runCleanupScheduler(cleanupInterval(), sessionMaxAge(), stop)

	r := gin.Default()

	setupRoutes(r)

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}
	r.Run(":" + port)
}

// setupDeps builds the storage backend, OCR pipeline, session store and the
// optional document index. The index is capability-detected: without an
// OPENAI_API_KEY the server still runs and the AI endpoints answer 503.
func setupDeps() error {
	var err error
	store, err = storage.NewLocal(uploadBaseDir())
	if err != nil {
		return err
	}
	listCache = storage.NewCache(5 * time.Minute)

	lang := os.Getenv("OCR_LANG")
	if lang == "" {
		lang = "eng"
	}
	engine := ocr.NewTesseractEngine(lang)
	if err := engine.Available(); err != nil {
		log.Printf("warning: OCR engine unavailable, image text extraction will fail: %v", err)
	}
	pipeline = ocr.NewPipeline(engine)

	sessions = memory.NewStore(db)

	if key := os.Getenv("OPENAI_API_KEY"); key != "" {
		oi := index.NewOpenAI(key, os.Getenv("OPENAI_MODEL"))
		docIndex = oi
		vision = oi
	} else {
		log.Println("OPENAI_API_KEY not set; chat, report and vector store endpoints disabled")
	}
	return nil
}

func sessionMaxAge() time.Duration {
	hours := 24
	if v := os.Getenv("SESSION_TTL_HOURS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			hours = n
		}
	}
	return time.Duration(hours) * time.Hour
}

func cleanupInterval() time.Duration {
	minutes := 60
	if v := os.Getenv("CLEANUP_INTERVAL_MINUTES"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			minutes = n
		}
	}
	return time.Duration(minutes) * time.Minute
}
