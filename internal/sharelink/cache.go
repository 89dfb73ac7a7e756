package sharelink

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/scoreunlock/scoreunlock/internal/crowdmark"
)

// Source supplies the results documents the cache is built from.
type Source interface {
	Assignments(ctx context.Context) ([]crowdmark.Document, error)
}

// Cache maps exam-master identifiers (as seen in page URLs) to the public
// share identifier of the student's assignment.
type Cache struct {
	src Source

	mu      sync.RWMutex
	entries map[string]string
}

// NewCache creates an empty cache; call Rebuild to populate it.
func NewCache(src Source) *Cache {
	return &Cache{src: src, entries: map[string]string{}}
}

// Rebuild refetches every assignment and replaces the whole mapping.
// On error the previous mapping is kept.
func (c *Cache) Rebuild(ctx context.Context) error {
	docs, err := c.src.Assignments(ctx)
	if err != nil {
		return fmt.Errorf("rebuild share link cache: %w", err)
	}
	entries := make(map[string]string, len(docs))
	for _, doc := range docs {
		em := doc.ExamMasterID()
		if em == "" || doc.Data.ID == "" {
			slog.Debug("skipping assignment without exam master", "uuid", doc.Data.ID)
			continue
		}
		entries[em] = doc.Data.ID
	}

	c.mu.Lock()
	c.entries = entries
	c.mu.Unlock()
	slog.Info("share link cache rebuilt", "entries", len(entries))
	return nil
}

// Lookup returns the share identifier for an exam-master id.
func (c *Cache) Lookup(examMasterID string) (string, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	uuid, ok := c.entries[examMasterID]
	return uuid, ok
}

// Len returns the number of mapped exams.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// ExamMasterIDFromPath returns the last non-empty segment of a URL path.
func ExamMasterIDFromPath(path string) string {
	if i := strings.IndexAny(path, "?#"); i >= 0 {
		path = path[:i]
	}
	path = strings.TrimRight(path, "/")
	return path[strings.LastIndex(path, "/")+1:]
}
