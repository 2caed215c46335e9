// Package backup produces consistent snapshots of the SQLite ledger file
// into a user-configured directory (typically inside OneDrive, which then
// syncs them off the machine) and rotates old snapshots away.
package backup

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"github.com/yass-hmr/HA-Autos-Facturation/internal/apperror"
	"github.com/yass-hmr/HA-Autos-Facturation/internal/repository"
)

const (
	defaultKeepLast = 10
	filePrefix      = "backup"
	stampLayout     = "2006-01-02_15-04-05"
)

// Result describes a completed snapshot.
type Result struct {
	Path      string
	CreatedAt time.Time
}

// Manager creates and rotates database snapshots. Snapshots go through
// VACUUM INTO, which copies a transactionally consistent image regardless of
// WAL state, then an atomic rename into the final name.
type Manager struct {
	db           *gorm.DB
	settingsRepo repository.SettingsRepository
	keepLast     int
}

func NewManager(db *gorm.DB, settingsRepo repository.SettingsRepository, keepLast int) *Manager {
	if keepLast <= 0 {
		keepLast = defaultKeepLast
	}
	return &Manager{db: db, settingsRepo: settingsRepo, keepLast: keepLast}
}

// Create writes one snapshot into the configured backup directory and stamps
// settings.last_backup_at. It refuses to overwrite an existing file.
func (m *Manager) Create(ctx context.Context) (*Result, error) {
	settings, err := m.settingsRepo.Get(ctx)
	if err != nil {
		return nil, apperror.Storage(err)
	}
	dir := settings.OnedriveBackupDir
	if dir == "" {
		return nil, fmt.Errorf("%w: backup directory not configured", apperror.ErrBackup)
	}
	info, err := os.Stat(dir)
	if err != nil || !info.IsDir() {
		return nil, fmt.Errorf("%w: backup directory %q missing or not a directory", apperror.ErrBackup, dir)
	}

	createdAt := time.Now()
	name := fmt.Sprintf("%s_%s.db", filePrefix, createdAt.Format(stampLayout))
	target := filepath.Join(dir, name)
	if _, err := os.Stat(target); err == nil {
		return nil, fmt.Errorf("%w: %s already exists", apperror.ErrBackup, name)
	}

	// Snapshot into a staging file first; the final name appears only once
	// the copy is complete, so a sync client never picks up a half-written DB.
	staging := filepath.Join(dir, fmt.Sprintf(".%s.tmp-%s", name, uuid.NewString()))
	if err := m.db.WithContext(ctx).Exec("VACUUM INTO ?", staging).Error; err != nil {
		_ = os.Remove(staging)
		return nil, fmt.Errorf("%w: vacuum into: %v", apperror.ErrBackup, err)
	}
	if err := os.Rename(staging, target); err != nil {
		_ = os.Remove(staging)
		return nil, fmt.Errorf("%w: rename: %v", apperror.ErrBackup, err)
	}

	m.rotate(dir)

	if err := m.settingsRepo.UpdateLastBackup(ctx, createdAt); err != nil {
		return nil, apperror.Storage(err)
	}
	log.Info().Str("path", target).Msg("backup created")
	return &Result{Path: target, CreatedAt: createdAt}, nil
}

// rotate keeps the keepLast most recent snapshots. Deletion failures are
// logged and skipped: a locked file (sync client, AV scan) must not fail the
// backup that just succeeded.
func (m *Manager) rotate(dir string) {
	matches, err := filepath.Glob(filepath.Join(dir, filePrefix+"_*.db"))
	if err != nil {
		return
	}
	type entry struct {
		path string
		mod  time.Time
	}
	var entries []entry
	for _, p := range matches {
		if info, err := os.Stat(p); err == nil {
			entries = append(entries, entry{path: p, mod: info.ModTime()})
		}
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].mod.After(entries[j].mod) })
	for _, old := range entries[min(m.keepLast, len(entries)):] {
		if err := os.Remove(old.path); err != nil {
			log.Warn().Err(err).Str("path", old.path).Msg("could not rotate old backup")
		}
	}
}
