package convlog

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
)

// Sweeper deletes conversation logs older than the retention window on a
// cron schedule.
type Sweeper struct {
	dir    string
	maxAge time.Duration
	now    func() time.Time
}

func NewSweeper(dir string, retentionDays int) *Sweeper {
	return &Sweeper{
		dir:    dir,
		maxAge: time.Duration(retentionDays) * 24 * time.Hour,
		now:    time.Now,
	}
}

// Start runs the sweep on the given cron spec until ctx is cancelled.
// Blocks; intended to run in its own goroutine.
func (s *Sweeper) Start(ctx context.Context, spec string) error {
	c := cron.New()
	_, err := c.AddFunc(spec, func() {
		if n, err := s.sweep(); err != nil {
			slog.Error("conversation log sweep failed", "error", err)
		} else if n > 0 {
			slog.Info("swept conversation logs", "removed", n)
		}
	})
	if err != nil {
		return fmt.Errorf("invalid sweep schedule %q: %w", spec, err)
	}

	c.Start()
	<-ctx.Done()

	stop := c.Stop()
	<-stop.Done()
	return nil
}

// sweep removes conversation files whose mtime is past the retention window
// and returns how many were removed.
func (s *Sweeper) sweep() (int, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return 0, fmt.Errorf("read log directory: %w", err)
	}

	cutoff := s.now().Add(-s.maxAge)
	removed := 0
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasPrefix(name, filePrefix) || !strings.HasSuffix(name, ".json") {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		if info.ModTime().After(cutoff) {
			continue
		}
		if err := os.Remove(filepath.Join(s.dir, name)); err != nil {
			slog.Warn("failed to remove old conversation log", "file", name, "error", err)
			continue
		}
		removed++
	}
	return removed, nil
}
