// Package sweeper removes profile photos that no user points at any more,
// e.g. the previous photo after a user uploads a new one.
package sweeper

import (
	"context"
	"fmt"
	"log/slog"
	"path"
	"sync"
	"time"

	"github.com/crucial707/hci-account/internal/metrics"
	"github.com/crucial707/hci-account/internal/storage"
	"github.com/google/uuid"
	"github.com/robfig/cron/v3"
)

// PhotoRefs lists the profilePhotoUrl of every user that has one. Implemented by *repo.UserRepo.
type PhotoRefs interface {
	ListProfilePhotoURLs(ctx context.Context) ([]string, error)
}

// Sweeper deletes uploaded photos that are unreferenced and older than MinAge.
// MinAge protects uploads whose user row has not been updated yet.
type Sweeper struct {
	Refs   PhotoRefs
	Store  storage.Store
	MinAge time.Duration
	Logger *slog.Logger

	now func() time.Time
	mu  sync.Mutex
}

// Sweep runs one pass and returns how many photos were removed. Concurrent calls are serialized.
func (s *Sweeper) Sweep(ctx context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	// List objects before references so a photo saved and referenced mid-sweep
	// is either too new or already in refs.
	objs, err := s.Store.List(ctx)
	if err != nil {
		return 0, fmt.Errorf("list photos: %w", err)
	}
	urls, err := s.Refs.ListProfilePhotoURLs(ctx)
	if err != nil {
		return 0, fmt.Errorf("list photo refs: %w", err)
	}

	// Match on the filename alone so references survive a change of URL prefix.
	referenced := make(map[string]bool, len(urls))
	for _, u := range urls {
		referenced[path.Base(u)] = true
	}

	cutoff := s.clock().Add(-s.MinAge)
	removed := 0
	for _, o := range objs {
		if !GeneratedName(o.Name) || referenced[o.Name] || o.ModTime.After(cutoff) {
			continue
		}
		if err := s.Store.Delete(ctx, o.Name); err != nil {
			s.logger().WarnContext(ctx, "sweeper: delete photo", "file", o.Name, "error", err)
			continue
		}
		removed++
	}
	metrics.AddPhotosSwept(removed)
	return removed, nil
}

// GeneratedName reports whether name has the shape of an uploaded photo filename:
// a UUID, optionally followed by "_" and the original base name. Anything else in
// the store was not written by the upload path and is left alone.
func GeneratedName(name string) bool {
	if len(name) < 36 {
		return false
	}
	if _, err := uuid.Parse(name[:36]); err != nil {
		return false
	}
	return len(name) == 36 || name[36] == '_'
}

// Start schedules Sweep on the cron expression expr (standard 5-field or descriptors like @hourly).
// The returned cron is already running; call Stop on shutdown.
func Start(expr string, s *Sweeper) (*cron.Cron, error) {
	c := cron.New()
	_, err := c.AddFunc(expr, func() {
		n, err := s.Sweep(context.Background())
		if err != nil {
			s.logger().Error("sweeper: sweep failed", "error", err)
			return
		}
		if n > 0 {
			s.logger().Info("sweeper: removed orphaned photos", "count", n)
		}
	})
	if err != nil {
		return nil, fmt.Errorf("sweeper: invalid cron expression %q: %w", expr, err)
	}
	c.Start()
	s.logger().Info("sweeper: scheduled", "cron", expr, "min_age", s.MinAge)
	return c, nil
}

func (s *Sweeper) clock() time.Time {
	if s.now == nil {
		return time.Now()
	}
	return s.now()
}

func (s *Sweeper) logger() *slog.Logger {
	if s.Logger == nil {
		return slog.Default()
	}
	return s.Logger
}
