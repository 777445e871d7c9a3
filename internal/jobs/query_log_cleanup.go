package jobs

import (
	"context"
	"fmt"
	"log"
	"time"
)

// DefaultRetentionDays is how long query log rows are kept.
const DefaultRetentionDays = 30

// QueryLogStore defines the query log persistence the cleanup needs.
type QueryLogStore interface {
	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}

// QueryLogCleanup prunes expired query log rows.
type QueryLogCleanup struct {
	store         QueryLogStore
	retentionDays int
}

// NewQueryLogCleanup creates a new QueryLogCleanup instance
func NewQueryLogCleanup(store QueryLogStore, retentionDays int) *QueryLogCleanup {
	if retentionDays <= 0 {
		retentionDays = DefaultRetentionDays
	}
	return &QueryLogCleanup{
		store:         store,
		retentionDays: retentionDays,
	}
}

// ProcessJobs implements the JobProcessor interface
func (c *QueryLogCleanup) ProcessJobs(ctx context.Context) error {
	cutoff := time.Now().UTC().AddDate(0, 0, -c.retentionDays)

	deleted, err := c.store.DeleteOlderThan(ctx, cutoff)
	if err != nil {
		return fmt.Errorf("failed to prune query log: %w", err)
	}

	if deleted > 0 {
		log.Printf("Pruned %d query log rows older than %s", deleted, cutoff.Format(time.RFC3339))
	}

	return nil
}
