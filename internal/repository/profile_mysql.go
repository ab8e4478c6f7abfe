package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"brickvault-api/internal/model"
	"brickvault-api/pkg/logger"

	_ "github.com/go-sql-driver/mysql" // MySQL driver
)

// MySQLProfileRepository implements ProfileRepository using MySQL.
type MySQLProfileRepository struct {
	db *sql.DB
}

// OpenMySQLProfileRepository opens a pool for dsn, pings it and prepares the table.
// The DSN must carry parseTime=true.
func OpenMySQLProfileRepository(dsn string, l *zap.SugaredLogger) (*MySQLProfileRepository, error) {
	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open MySQL: %w", err)
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping MySQL: %w", err)
	}

	repo := NewMySQLProfileRepository(db)
	if err := repo.EnsureTable(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}

	logger.OrNop(l).Named("repository").Infow("mysql profile store ready")
	return repo, nil
}

// NewMySQLProfileRepository creates a new MySQL profile repository.
func NewMySQLProfileRepository(db *sql.DB) *MySQLProfileRepository {
	return &MySQLProfileRepository{db: db}
}

// EnsureTable creates the profiles table if not exists.
func (r *MySQLProfileRepository) EnsureTable(ctx context.Context) error {
	const ddl = `
		CREATE TABLE IF NOT EXISTS profiles (
			id CHAR(36) NOT NULL PRIMARY KEY,
			email VARCHAR(320) NOT NULL DEFAULT '',
			name VARCHAR(255) NOT NULL DEFAULT '',
			screen_name VARCHAR(255) NOT NULL DEFAULT '',
			rebrickable_api_key VARCHAR(255) NOT NULL DEFAULT '',
			rebrickable_user_token VARCHAR(255) NOT NULL DEFAULT '',
			created_at DATETIME(6) NOT NULL,
			updated_at DATETIME(6) NOT NULL,
			INDEX idx_profiles_email (email),
			INDEX idx_profiles_created_at (created_at)
		)`
	_, err := r.db.ExecContext(ctx, ddl)
	return err
}

const mysqlProfileColumns = `id, email, name, screen_name, rebrickable_api_key, rebrickable_user_token, created_at, updated_at`

// Upsert inserts the profile or refreshes email and name.
func (r *MySQLProfileRepository) Upsert(ctx context.Context, p *model.Profile) error {
	now := time.Now().UTC()
	query := `
		INSERT INTO profiles (id, email, name, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON DUPLICATE KEY UPDATE
			email = VALUES(email),
			name = VALUES(name),
			updated_at = VALUES(updated_at)`

	if _, err := r.db.ExecContext(ctx, query, p.ID, p.Email, p.Name, now, now); err != nil {
		return fmt.Errorf("failed to upsert profile: %w", err)
	}
	return nil
}

// Get retrieves a profile by id.
func (r *MySQLProfileRepository) Get(ctx context.Context, id string) (*model.Profile, error) {
	p, err := scanProfile(r.db.QueryRowContext(ctx, `SELECT `+mysqlProfileColumns+` FROM profiles WHERE id = ?`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrProfileNotFound
		}
		return nil, fmt.Errorf("failed to get profile: %w", err)
	}
	return p, nil
}

// List returns every profile, newest first.
func (r *MySQLProfileRepository) List(ctx context.Context) ([]model.Profile, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+mysqlProfileColumns+` FROM profiles ORDER BY created_at DESC, id`)
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

// UpdateSettings applies the non-nil settings fields. MySQL reports zero
// affected rows for no-op updates, so existence is checked by re-reading.
func (r *MySQLProfileRepository) UpdateSettings(ctx context.Context, id string, settings model.ProfileSettings) (*model.Profile, error) {
	query := `
		UPDATE profiles SET
			screen_name = COALESCE(?, screen_name),
			rebrickable_api_key = COALESCE(?, rebrickable_api_key),
			rebrickable_user_token = COALESCE(?, rebrickable_user_token),
			updated_at = ?
		WHERE id = ?`

	if _, err := r.db.ExecContext(ctx, query, settings.ScreenName, settings.APIKey, settings.UserToken, time.Now().UTC(), id); err != nil {
		return nil, fmt.Errorf("failed to update profile: %w", err)
	}
	return r.Get(ctx, id)
}

// Stats returns statistics about the profile database.
func (r *MySQLProfileRepository) Stats(ctx context.Context) (map[string]interface{}, error) {
	stats := make(map[string]interface{})

	var total, onboarded int64
	const q = `SELECT COUNT(*), COALESCE(SUM(screen_name <> '' AND rebrickable_api_key <> ''), 0) FROM profiles`
	if err := r.db.QueryRowContext(ctx, q).Scan(&total, &onboarded); err != nil {
		return nil, err
	}
	stats["total_profiles"] = total
	stats["onboarded_profiles"] = onboarded

	dbStats := r.db.Stats()
	stats["connections"] = map[string]interface{}{
		"open":     dbStats.OpenConnections,
		"in_use":   dbStats.InUse,
		"idle":     dbStats.Idle,
		"max_open": dbStats.MaxOpenConnections,
	}
	return stats, nil
}

// Ping checks the connection.
func (r *MySQLProfileRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

// Close closes the database connection.
func (r *MySQLProfileRepository) Close() error {
	return r.db.Close()
}

// Ensure MySQLProfileRepository implements ProfileRepository
var _ ProfileRepository = (*MySQLProfileRepository)(nil)
