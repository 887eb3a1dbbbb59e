// Package maintenance runs the daemon's background housekeeping: polling the
// keyboard's enabled/active status and keeping daily backups of the
// preference file.
package maintenance

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/glyphkey/kbcompanion/internal/models"
	"github.com/glyphkey/kbcompanion/internal/prefs"
)

const backupPrefix = "prefs-"

// ErrBackupsDisabled is returned by RunBackupNow when no backup directory is
// configured.
var ErrBackupsDisabled = errors.New("maintenance: backups disabled")

// StatusChecker asks the keyboard for its status.
type StatusChecker interface {
	Check(ctx context.Context) (models.KeyboardStatus, error)
}

// Options configures a Service.
type Options struct {
	// StatusInterval is the keyboard status poll period; zero means 30s.
	StatusInterval time.Duration
	// BackupDir receives the daily preference backups; empty disables them.
	BackupDir string
	// BackupKeep is the number of backups kept; zero means 14.
	BackupKeep int
	// OnStatus is called on the first successful check and whenever the
	// status changes.
	OnStatus func(models.KeyboardStatus)
}

// Service manages background maintenance goroutines.
type Service struct {
	status StatusChecker
	store  prefs.Store
	opts   Options

	now func() time.Time
}

// New creates a new maintenance Service.
func New(status StatusChecker, store prefs.Store, opts Options) *Service {
	if opts.StatusInterval <= 0 {
		opts.StatusInterval = 30 * time.Second
	}
	if opts.BackupKeep <= 0 {
		opts.BackupKeep = 14
	}
	return &Service{status: status, store: store, opts: opts, now: time.Now}
}

// Start launches the background loops and blocks until ctx is cancelled.
func (s *Service) Start(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		s.runCheckStatus(ctx)
		return nil
	})
	if s.opts.BackupDir != "" {
		g.Go(func() error {
			s.runBackup(ctx)
			return nil
		})
	}
	return g.Wait()
}

// runCheckStatus polls the keyboard status every StatusInterval.
func (s *Service) runCheckStatus(ctx context.Context) {
	var last *models.KeyboardStatus

	check := func() {
		st, err := s.status.Check(ctx)
		if err != nil {
			slog.Debug("maintenance: keyboard status unavailable", "err", err)
			return
		}
		if last != nil && last.Enabled == st.Enabled && last.Active == st.Active {
			return
		}
		last = &st
		slog.Info("maintenance: keyboard status", "enabled", st.Enabled, "active", st.Active)
		if s.opts.OnStatus != nil {
			s.opts.OnStatus(st)
		}
	}

	check() // immediate first check

	ticker := time.NewTicker(s.opts.StatusInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			check()
		}
	}
}

// runBackup performs daily backups at 2am.
func (s *Service) runBackup(ctx context.Context) {
	for {
		now := s.now()
		next2am := time.Date(now.Year(), now.Month(), now.Day(), 2, 0, 0, 0, now.Location())
		if !next2am.After(now) {
			next2am = next2am.Add(24 * time.Hour)
		}
		timer := time.NewTimer(next2am.Sub(now))

		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
			path, err := s.RunBackupNow()
			if err != nil {
				slog.Error("maintenance: backup failed", "err", err)
			} else {
				slog.Info("maintenance: backup created", "file", path)
			}
		}
	}
}

// RunBackupNow flushes the preference store, copies its file into the backup
// directory and prunes old backups. It returns the backup file path.
func (s *Service) RunBackupNow() (string, error) {
	if s.opts.BackupDir == "" {
		return "", ErrBackupsDisabled
	}
	if err := s.store.Flush(); err != nil {
		return "", fmt.Errorf("flush preferences: %w", err)
	}
	if err := os.MkdirAll(s.opts.BackupDir, 0o755); err != nil {
		return "", fmt.Errorf("create backup dir: %w", err)
	}

	dest := filepath.Join(s.opts.BackupDir, backupPrefix+s.now().Format("2006-01-02")+".json")
	if err := copyFile(s.store.Path(), dest); err != nil {
		return "", err
	}

	s.prune()
	return dest, nil
}

// ListBackups returns the backup files sorted by name (newest last).
func (s *Service) ListBackups() ([]string, error) {
	entries, err := os.ReadDir(s.opts.BackupDir)
	if os.IsNotExist(err) {
		return []string{}, nil
	}
	if err != nil {
		return nil, err
	}

	files := []string{}
	for _, e := range entries {
		if !e.IsDir() && strings.HasPrefix(e.Name(), backupPrefix) && strings.HasSuffix(e.Name(), ".json") {
			files = append(files, filepath.Join(s.opts.BackupDir, e.Name()))
		}
	}
	sort.Strings(files)
	return files, nil
}

// prune deletes all but the newest BackupKeep backups.
func (s *Service) prune() {
	files, err := s.ListBackups()
	if err != nil || len(files) <= s.opts.BackupKeep {
		return
	}
	for _, path := range files[:len(files)-s.opts.BackupKeep] {
		if err := os.Remove(path); err != nil {
			slog.Warn("maintenance: failed to prune old backup", "file", path, "err", err)
		} else {
			slog.Info("maintenance: pruned old backup", "file", path)
		}
	}
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("open %s: %w", src, err)
	}
	defer in.Close()

	tmp := dst + ".tmp"
	out, err := os.Create(tmp)
	if err != nil {
		return fmt.Errorf("create backup: %w", err)
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		os.Remove(tmp)
		return fmt.Errorf("copy backup: %w", err)
	}
	if err := out.Close(); err != nil {
		os.Remove(tmp)
		return err
	}
	return os.Rename(tmp, dst)
}
