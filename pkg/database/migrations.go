package database

import (
	"cmp"
	"crypto/sha256"
	"database/sql"
	"embed"
	"encoding/hex"
	"errors"
	"fmt"
	"io/fs"
	"path"
	"slices"
	"strconv"
	"strings"

	"go.uber.org/zap"
)

//go:embed migrations/sqlite/*.sql migrations/postgres/*.sql
var embeddedMigrations embed.FS

// ErrMigrationChanged is returned when an applied migration file was edited
var ErrMigrationChanged = errors.New("applied migration has changed")

// Migration is one versioned schema change
type Migration struct {
	Version  int
	Name     string
	SQL      string
	Checksum string // sha256 of SQL
}

// Migrator applies schema changes and records them in schema_migrations
type Migrator struct {
	db     *DB
	logger *zap.Logger
}

// NewMigrator creates a new migrator
func NewMigrator(db *DB, logger *zap.Logger) *Migrator {
	return &Migrator{
		db:     db,
		logger: logger,
	}
}

// Run applies the bundled schema of the connection's driver
func (m *Migrator) Run() error {
	dir := "migrations/sqlite"
	if m.db.IsPostgres() {
		dir = "migrations/postgres"
	}
	sub, err := fs.Sub(embeddedMigrations, dir)
	if err != nil {
		return fmt.Errorf("failed to open bundled migrations: %w", err)
	}
	return m.RunMigrations(sub)
}

// RunMigrations applies every migration of fsys not yet recorded. Recorded
// migrations whose checksum differs fail with ErrMigrationChanged before
// anything is applied.
func (m *Migrator) RunMigrations(fsys fs.FS) error {
	migrations, err := LoadMigrations(fsys)
	if err != nil {
		return fmt.Errorf("failed to load migrations: %w", err)
	}

	if _, err := m.db.Exec(`CREATE TABLE IF NOT EXISTS schema_migrations (
		version INTEGER PRIMARY KEY,
		name TEXT NOT NULL,
		checksum TEXT NOT NULL DEFAULT '',
		applied_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	)`); err != nil {
		return fmt.Errorf("failed to create schema_migrations: %w", err)
	}

	applied, err := m.applied()
	if err != nil {
		return fmt.Errorf("failed to read schema_migrations: %w", err)
	}

	var pending []Migration
	for _, mig := range migrations {
		sum, ok := applied[mig.Version]
		switch {
		case !ok:
			pending = append(pending, mig)
		case sum != "" && sum != mig.Checksum:
			return fmt.Errorf("%w: %03d_%s", ErrMigrationChanged, mig.Version, mig.Name)
		}
	}

	if len(pending) == 0 {
		m.logger.Debug("Schema up to date", zap.String("driver", m.db.Driver()), zap.Int("applied", len(applied)))
		return nil
	}

	for _, mig := range pending {
		if err := m.apply(mig); err != nil {
			return fmt.Errorf("failed to apply migration %03d_%s: %w", mig.Version, mig.Name, err)
		}
		m.logger.Info("Applied migration",
			zap.String("driver", m.db.Driver()),
			zap.Int("version", mig.Version),
			zap.String("name", mig.Name))
	}
	return nil
}

func (m *Migrator) applied() (map[int]string, error) {
	rows, err := m.db.Query("SELECT version, checksum FROM schema_migrations")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(map[int]string)
	for rows.Next() {
		var version int
		var checksum string
		if err := rows.Scan(&version, &checksum); err != nil {
			return nil, err
		}
		out[version] = checksum
	}
	return out, rows.Err()
}

func (m *Migrator) apply(mig Migration) error {
	return m.db.WithTransaction(func(tx *sql.Tx) error {
		if _, err := tx.Exec(mig.SQL); err != nil {
			return err
		}
		_, err := tx.Exec(
			m.db.Rebind("INSERT INTO schema_migrations (version, name, checksum) VALUES (?, ?, ?)"),
			mig.Version, mig.Name, mig.Checksum)
		return err
	})
}

// LoadMigrations reads the NNN_name.sql files at the root of fsys, ordered by
// version
func LoadMigrations(fsys fs.FS) ([]Migration, error) {
	files, err := fs.Glob(fsys, "*.sql")
	if err != nil {
		return nil, err
	}

	migrations := make([]Migration, 0, len(files))
	seen := make(map[int]string, len(files))
	for _, file := range files {
		base := strings.TrimSuffix(path.Base(file), ".sql")
		prefix, name, _ := strings.Cut(base, "_")
		version, err := strconv.Atoi(prefix)
		if err != nil || version <= 0 {
			return nil, fmt.Errorf("migration %s: file name must start with a positive version", file)
		}
		if other, dup := seen[version]; dup {
			return nil, fmt.Errorf("duplicate migration version %d: %s and %s", version, other, file)
		}
		seen[version] = file

		content, err := fs.ReadFile(fsys, file)
		if err != nil {
			return nil, fmt.Errorf("failed to read migration %s: %w", file, err)
		}
		sum := sha256.Sum256(content)

		migrations = append(migrations, Migration{
			Version:  version,
			Name:     name,
			SQL:      string(content),
			Checksum: hex.EncodeToString(sum[:]),
		})
	}

	slices.SortFunc(migrations, func(a, b Migration) int { return cmp.Compare(a.Version, b.Version) })
	return migrations, nil
}
