package main

import (
	"context"
	"log"
	"time"
)

// runCleanupScheduler periodically deletes chat sessions that have been idle
// longer than maxAge, dropping their vector stores along the way. It stops
// when the stop channel is closed.
func runCleanupScheduler(interval, maxAge time.Duration, stop chan struct{}) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	log.Printf("cleanup scheduler started (interval=%s, max session age=%s)", interval, maxAge)
	for {
		select {
		case <-stop:
			log.Println("cleanup scheduler stopped")
			return
		case <-ticker.C:
			cleanupIdleSessions(maxAge)
		}
	}
}

func cleanupIdleSessions(maxAge time.Duration) {
	cutoff := time.Now().Add(-maxAge)
	idle, err := sessions.IdleSessions(cutoff)
	if err != nil {
		log.Printf("cleanup: failed to list idle sessions: %v", err)
		return
	}
	if len(idle) == 0 {
		return
	}
	deleted, dropped := 0, 0
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()
	for _, s := range idle {
		if s.VectorStoreID != "" && docIndex != nil {
			if err := docIndex.Drop(ctx, s.VectorStoreID); err != nil {
				log.Printf("cleanup: drop vector store %s failed: %v", s.VectorStoreID, err)
			} else {
				dropped++
			}
		}
		if err := sessions.Delete(s.SessionID); err != nil {
			log.Printf("cleanup: delete session %s failed: %v", s.SessionID, err)
			continue
		}
		deleted++
	}
	log.Printf("cleanup: removed %d idle sessions, dropped %d vector stores", deleted, dropped)
}
