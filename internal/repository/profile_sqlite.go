package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"go.uber.org/zap"

	"brickvault-api/internal/model"
	"brickvault-api/pkg/logger"

	_ "modernc.org/sqlite" // Pure Go SQLite driver - no CGO required
)

// SQLiteProfileRepository implements ProfileRepository using SQLite.
// Thread-safe with WAL mode for concurrent reads.
type SQLiteProfileRepository struct {
	db  *sql.DB
	mu  sync.RWMutex
	now func() time.Time
}

// NewSQLiteProfileRepository creates a new SQLite profile repository.
// dbPath is the path to the SQLite database file (e.g., "./data/profiles.db").
func NewSQLiteProfileRepository(dbPath string, l *zap.SugaredLogger) (*SQLiteProfileRepository, error) {
	if dir := filepath.Dir(dbPath); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	dsn := fmt.Sprintf("%s?_pragma=journal_mode(WAL)&_pragma=synchronous(NORMAL)&_pragma=busy_timeout(5000)", dbPath)

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open SQLite: %w", err)
	}

	// SQLite connection pool settings
	db.SetMaxOpenConns(1) // SQLite only supports 1 writer
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := createSQLiteTables(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}

	logger.OrNop(l).Named("repository").Infow("sqlite profile store ready", "path", dbPath)
	return &SQLiteProfileRepository{db: db, now: time.Now}, nil
}

func createSQLiteTables(db *sql.DB) error {
	query := `
	CREATE TABLE IF NOT EXISTS profiles (
		id TEXT PRIMARY KEY,
		email TEXT NOT NULL DEFAULT '',
		name TEXT NOT NULL DEFAULT '',
		screen_name TEXT NOT NULL DEFAULT '',
		rebrickable_api_key TEXT NOT NULL DEFAULT '',
		rebrickable_user_token TEXT NOT NULL DEFAULT '',
		created_at DATETIME NOT NULL,
		updated_at DATETIME NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_profiles_email ON profiles(email);
	CREATE INDEX IF NOT EXISTS idx_profiles_created_at ON profiles(created_at);
	`
	_, err := db.Exec(query)
	return err
}

const sqliteProfileColumns = `id, email, name, screen_name, rebrickable_api_key, rebrickable_user_token, created_at, updated_at`

func scanProfile(row interface{ Scan(...any) error }) (*model.Profile, error) {
	var p model.Profile
	if err := row.Scan(&p.ID, &p.Email, &p.Name, &p.ScreenName, &p.APIKey, &p.UserToken, &p.CreatedAt, &p.UpdatedAt); err != nil {
		return nil, err
	}
	return &p, nil
}

// Upsert inserts the profile or refreshes email and name.
func (r *SQLiteProfileRepository) Upsert(ctx context.Context, p *model.Profile) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now().UTC()
	query := `
		INSERT INTO profiles (id, email, name, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			email = excluded.email,
			name = excluded.name,
			updated_at = excluded.updated_at`

	if _, err := r.db.ExecContext(ctx, query, p.ID, p.Email, p.Name, now, now); err != nil {
		return fmt.Errorf("failed to upsert profile: %w", err)
	}
	return nil
}

// Get retrieves a profile by id.
func (r *SQLiteProfileRepository) Get(ctx context.Context, id string) (*model.Profile, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.get(ctx, id)
}

func (r *SQLiteProfileRepository) get(ctx context.Context, id string) (*model.Profile, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+sqliteProfileColumns+` FROM profiles WHERE id = ?`, id)
	p, err := scanProfile(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrProfileNotFound
		}
		return nil, fmt.Errorf("failed to get profile: %w", err)
	}
	return p, nil
}

// List returns every profile, newest first.
func (r *SQLiteProfileRepository) List(ctx context.Context) ([]model.Profile, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	rows, err := r.db.QueryContext(ctx, `SELECT `+sqliteProfileColumns+` FROM profiles ORDER BY created_at DESC, id`)
	if err != nil {
		return nil, fmt.Errorf("failed to list profiles: %w", err)
	}
	defer rows.Close()

	profiles := []model.Profile{}
	for rows.Next() {
		p, err := scanProfile(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan profile: %w", err)
		}
		profiles = append(profiles, *p)
	}
	return profiles, rows.Err()
}

// UpdateSettings applies the non-nil settings fields.
func (r *SQLiteProfileRepository) UpdateSettings(ctx context.Context, id string, settings model.ProfileSettings) (*model.Profile, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	query := `
		UPDATE profiles SET
			screen_name = COALESCE(?, screen_name),
			rebrickable_api_key = COALESCE(?, rebrickable_api_key),
			rebrickable_user_token = COALESCE(?, rebrickable_user_token),
			updated_at = ?
		WHERE id = ?`

	res, err := r.db.ExecContext(ctx, query, settings.ScreenName, settings.APIKey, settings.UserToken, r.now().UTC(), id)
	if err != nil {
		return nil, fmt.Errorf("failed to update profile: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return nil, ErrProfileNotFound
	}
	return r.get(ctx, id)
}

// Stats returns statistics about the profile database.
func (r *SQLiteProfileRepository) Stats(ctx context.Context) (map[string]interface{}, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	stats := make(map[string]interface{})

	var total, onboarded int64
	if err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM profiles").Scan(&total); err != nil {
		return nil, err
	}
	stats["total_profiles"] = total

	if err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM profiles WHERE screen_name <> '' AND rebrickable_api_key <> ''").Scan(&onboarded); err != nil {
		return nil, err
	}
	stats["onboarded_profiles"] = onboarded

	// Database file size (approximate from page count)
	var pageCount, pageSize int64
	if err := r.db.QueryRowContext(ctx, "PRAGMA page_count").Scan(&pageCount); err == nil {
		if err := r.db.QueryRowContext(ctx, "PRAGMA page_size").Scan(&pageSize); err == nil {
			stats["db_size_bytes"] = pageCount * pageSize
		}
	}

	return stats, nil
}

// Ping checks the connection.
func (r *SQLiteProfileRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

// Close closes the database connection.
func (r *SQLiteProfileRepository) Close() error {
	return r.db.Close()
}

// Ensure SQLiteProfileRepository implements ProfileRepository
var _ ProfileRepository = (*SQLiteProfileRepository)(nil)
