package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"coachbe/pkg/index"
	"coachbe/pkg/memory"

	"github.com/joho/godotenv"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// One-shot cleanup of idle chat sessions. The server runs the same sweep on a
// schedule; this command exists for manual runs and cron-style setups.
func main() {
	maxAgeHours := flag.Int("max-age-hours", 24, "delete sessions idle longer than this")
	dryRun := flag.Bool("dry-run", false, "list idle sessions without deleting")
	flag.Parse()

	_ = godotenv.Load()
	dsn := os.Getenv("DB_DSN")
	if dsn == "" {
		log.Fatal("DB_DSN not set in env")
	}
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		log.Fatalf("open db: %v", err)
	}
	sessions := memory.NewStore(db)

	var docIndex index.DocumentIndex
	if key := os.Getenv("OPENAI_API_KEY"); key != "" {
		docIndex = index.NewOpenAI(key, os.Getenv("OPENAI_MODEL"))
	} else {
		log.Println("OPENAI_API_KEY not set; vector stores will not be dropped")
	}

	cutoff := time.Now().Add(-time.Duration(*maxAgeHours) * time.Hour)
	idle, err := sessions.IdleSessions(cutoff)
	if err != nil {
		log.Fatalf("list idle sessions: %v", err)
	}
	if len(idle) == 0 {
		fmt.Println("no idle sessions")
		return
	}

	ctx := context.Background()
	deleted, dropped := 0, 0
	for _, s := range idle {
		if *dryRun {
			fmt.Printf("would delete session %s (updated %s, store %s)\n", s.SessionID, s.UpdatedAt.Format(time.RFC3339), s.VectorStoreID)
			continue
		}
		if s.VectorStoreID != "" && docIndex != nil {
			if err := docIndex.Drop(ctx, s.VectorStoreID); err != nil {
				log.Printf("drop vector store %s: %v", s.VectorStoreID, err)
			} else {
				dropped++
			}
		}
		if err := sessions.Delete(s.SessionID); err != nil {
			log.Printf("delete session %s: %v", s.SessionID, err)
			continue
		}
		deleted++
	}
	if !*dryRun {
		fmt.Printf("cleanup done: sessions deleted=%d, vector stores dropped=%d\n", deleted, dropped)
	}
}
