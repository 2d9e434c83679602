package backup

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"termomaz/config"
	"termomaz/database"
	"termomaz/metrics"
	"termomaz/model"

	"github.com/jmoiron/sqlx"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

const (
	filePrefix = "termomaz_"
	fileExt    = ".db"
)

// Manager writes database snapshots into a folder and keeps only the newest ones.
type Manager struct {
	db       *sqlx.DB
	settings func() config.BackupConfig
	mu       sync.Mutex
}

// NewManager uses a fixed folder and retention.
func NewManager(db *sqlx.DB, cfg config.BackupConfig) *Manager {
	return &Manager{db: db, settings: func() config.BackupConfig { return cfg }}
}

// NewConfiguredManager reads the folder and retention from config.Get() on every run,
// so changes saved through /api/config apply to the next backup.
func NewConfiguredManager(db *sqlx.DB) *Manager {
	return &Manager{db: db, settings: func() config.BackupConfig { return config.Get().Backup }}
}

// Run takes one snapshot and prunes old ones. trigger labels the metric ("cron" or "manual").
func (m *Manager) Run(trigger string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	c := m.settings()
	path, err := m.snapshot(c.Dir)
	metrics.RecordBackup(trigger, err == nil)
	if err != nil {
		return "", err
	}
	if err := m.prune(c.Dir, c.Keep); err != nil {
		zap.L().Warn("failed to prune old backups", zap.String("dir", c.Dir), zap.Error(err))
	}
	zap.L().Info("database backup written", zap.String("trigger", trigger), zap.String("file", path))
	return path, nil
}

func (m *Manager) snapshot(dir string) (string, error) {
	if dir == "" {
		return "", errors.New("no backup folder configured")
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create backup folder %s: %w", dir, err)
	}
	// The clock has second precision; a second snapshot within the same second gets a suffix.
	stamp := filePrefix + model.Now().UTC().Format("20060102_150405.000")
	path := filepath.Join(dir, stamp+fileExt)
	for n := 2; fileExists(path); n++ {
		path = filepath.Join(dir, fmt.Sprintf("%s_%02d%s", stamp, n, fileExt))
	}
	if err := database.SnapshotTo(m.db, path); err != nil {
		return "", err
	}
	return path, nil
}

// prune deletes all but the newest keep snapshots. Names sort chronologically.
func (m *Manager) prune(dir string, keep int) error {
	if keep <= 0 {
		return nil
	}
	files, err := listSnapshots(dir)
	if err != nil {
		return err
	}
	if len(files) <= keep {
		return nil
	}
	for _, name := range files[keep:] {
		if err := os.Remove(filepath.Join(dir, name)); err != nil {
			return err
		}
	}
	return nil
}

// List returns snapshot file names, newest first.
func (m *Manager) List() ([]string, error) {
	return listSnapshots(m.settings().Dir)
}

func listSnapshots(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return []string{}, nil
		}
		return nil, err
	}
	files := []string{}
	for _, e := range entries {
		if e.IsDir() || !strings.HasPrefix(e.Name(), filePrefix) || !strings.HasSuffix(e.Name(), fileExt) {
			continue
		}
		files = append(files, e.Name())
	}
	sort.Sort(sort.Reverse(sort.StringSlice(files)))
	return files, nil
}

// ValidateSchedule checks a standard five-field cron expression. Empty disables scheduling.
func ValidateSchedule(expr string) error {
	if expr == "" {
		return nil
	}
	if _, err := cron.ParseStandard(expr); err != nil {
		return fmt.Errorf("programación de respaldo no válida %q: %w", expr, err)
	}
	return nil
}

// Start schedules Run on expr. It returns nil when scheduling is disabled or the driver
// has no snapshot support. The caller stops the returned scheduler on shutdown.
func (m *Manager) Start(expr string) (*cron.Cron, error) {
	if expr == "" {
		zap.L().Info("scheduled backups disabled")
		return nil, nil
	}
	if m.db.DriverName() != "sqlite3" {
		zap.L().Warn("scheduled backups are only available for sqlite3", zap.String("driver", m.db.DriverName()))
		return nil, nil
	}

	c := cron.New()
	_, err := c.AddFunc(expr, func() {
		if _, err := m.Run("cron"); err != nil {
			zap.L().Error("scheduled backup failed", zap.Error(err))
		}
	})
	if err != nil {
		return nil, fmt.Errorf("failed to schedule backups with %q: %w", expr, err)
	}
	c.Start()
	zap.L().Info("scheduled backups enabled", zap.String("schedule", expr), zap.String("dir", m.settings().Dir), zap.Int("keep", m.settings().Keep))
	return c, nil
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
