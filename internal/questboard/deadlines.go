package questboard

import (
	"context"
	"log"
	"os"
	"time"

	"github.com/sudo-init-do/questhub/internal/alerts"
	"github.com/sudo-init-do/questhub/internal/db"
)

// StartDeadlineScanner watches for in-progress quests whose deadline has
// passed and nudges the NPC, who can then raise a DEADLINE_MISSED conflict.
// The scanner only observes and notifies; it never moves gold on its own.
func StartDeadlineScanner(ctx context.Context) {
	interval := time.Minute
	if v := os.Getenv("DEADLINE_SCAN_INTERVAL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil && d > 0 {
			interval = d
		}
	}

	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				scanDeadlines(ctx)
			}
		}
	}()
}

func scanDeadlines(ctx context.Context) {
	rows, err := db.Conn.Query(ctx, `
		SELECT id, title, npc_id
		FROM quests
		WHERE status = 'in_progress'
		  AND deadline IS NOT NULL
		  AND deadline < NOW()
		  AND has_conflict = FALSE`)
	if err != nil {
		log.Printf("deadline scan failed: %v", err)
		return
	}
	defer rows.Close()

	type overdue struct{ id, title, npcID string }
	var found []overdue
	for rows.Next() {
		var o overdue
		if err := rows.Scan(&o.id, &o.title, &o.npcID); err != nil {
			log.Printf("deadline scan read failed: %v", err)
			return
		}
		found = append(found, o)
	}

	for _, o := range found {
		if err := alerts.EnqueueDeadlineMissed(o.npcID, o.id, o.title); err != nil {
			log.Printf("deadline alert enqueue failed for quest %s: %v", o.id, err)
		}
	}
}
