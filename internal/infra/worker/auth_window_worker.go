package worker

import (
	"context"
	"log"
	"time"

	"github.com/relistco/relist-server/internal/entity"
)

// AuthWindowWorker resets the rolling verification-attempt counters once
// their hour has elapsed, so a throttled number can try again without
// waiting for its next inbound message.
type AuthWindowWorker struct {
	convos       entity.ConversationRepositoryInterface
	window       time.Duration
	tickInterval time.Duration
}

func NewAuthWindowWorker(convos entity.ConversationRepositoryInterface) *AuthWindowWorker {
	return &AuthWindowWorker{
		convos:       convos,
		window:       1 * time.Hour,
		tickInterval: 1 * time.Minute,
	}
}

func (w *AuthWindowWorker) Start(ctx context.Context) {
	log.Println("🕒 Auth Window Worker started (1h window)")

	ticker := time.NewTicker(w.tickInterval)
	defer ticker.Stop()

	w.pruneWindows(ctx)

	for {
		select {
		case <-ctx.Done():
			log.Println("⚠️ Auth Window Worker stopped")
			return
		case <-ticker.C:
			w.pruneWindows(ctx)
		}
	}
}

func (w *AuthWindowWorker) pruneWindows(ctx context.Context) {
	cutoff := time.Now().Add(-w.window)

	pruned, err := w.convos.PruneElapsedWindows(ctx, cutoff)
	if err != nil {
		log.Printf("❌ Failed to prune auth windows: %v", err)
		return
	}

	if pruned > 0 {
		log.Printf("✅ %d auth window(s) reset", pruned)
	}
}
