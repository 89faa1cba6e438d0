package media

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// Sweeper periodically removes files left behind in the upload temp dir, for example when the
// process died while probing.
type Sweeper struct {
	dir    string
	maxAge time.Duration
	cron   *cron.Cron
	logger *zap.Logger
}

// NewSweeper schedules a sweep of dir on schedule (cron spec or "@every" descriptor).
// Files older than maxAge are removed.
func NewSweeper(dir, schedule string, maxAge time.Duration, logger *zap.Logger) (*Sweeper, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Sweeper{dir: dir, maxAge: maxAge, cron: cron.New(), logger: logger}
	if _, err := s.cron.AddFunc(schedule, s.run); err != nil {
		return nil, fmt.Errorf("invalid sweep schedule %q: %w", schedule, err)
	}
	return s, nil
}

// Start runs the schedule in the background.
func (s *Sweeper) Start() {
	s.cron.Start()
}

// Stop stops scheduling and waits for a running sweep to finish.
func (s *Sweeper) Stop() {
	<-s.cron.Stop().Done()
}

func (s *Sweeper) run() {
	n, err := Sweep(s.dir, s.maxAge, time.Now())
	if err != nil {
		s.logger.Warn("Temp sweep failed", zap.String("dir", s.dir), zap.Error(err))
		return
	}
	if n > 0 {
		s.logger.Info("Swept temp uploads", zap.String("dir", s.dir), zap.Int("removed", n))
	}
}

// Sweep removes regular files in dir last modified before now minus maxAge and returns how
// many were removed. A missing dir is not an error.
func Sweep(dir string, maxAge time.Duration, now time.Time) (int, error) {
	entries, err := os.ReadDir(dir)
	if os.IsNotExist(err) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	cutoff := now.Add(-maxAge)
	removed := 0
	for _, e := range entries {
		if !e.Type().IsRegular() {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		if info.ModTime().Before(cutoff) {
			if err := os.Remove(filepath.Join(dir, e.Name())); err != nil && !os.IsNotExist(err) {
				return removed, err
			}
			removed++
		}
	}
	return removed, nil
}
