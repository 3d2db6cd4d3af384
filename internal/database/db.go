package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/tanisingh134/carbon/internal/carbon"
	"github.com/tanisingh134/carbon/internal/logger"
)

// uniqueViolation is the PostgreSQL SQLSTATE for a unique constraint failure
const uniqueViolation = "23505"

// DB wraps the database connection
type DB struct {
	*sql.DB
}

// Connect establishes a connection to the database
func Connect(ctx context.Context, connectionString string) (*DB, error) {
	db, err := sql.Open("postgres", connectionString)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxIdleTime(5 * time.Minute)

	return &DB{db}, nil
}

// RunMigrations executes all SQL migration files in order
func (db *DB) RunMigrations(ctx context.Context, migrationsDir string, log *logger.Logger) error {
	files, err := os.ReadDir(migrationsDir)
	if err != nil {
		return fmt.Errorf("failed to read migrations directory: %w", err)
	}

	var sqlFiles []string
	for _, file := range files {
		if !file.IsDir() && strings.HasSuffix(file.Name(), ".sql") {
			sqlFiles = append(sqlFiles, file.Name())
		}
	}
	sort.Strings(sqlFiles)

	for _, filename := range sqlFiles {
		log.Info("Running migration", "file", filename)

		content, err := os.ReadFile(filepath.Join(migrationsDir, filename))
		if err != nil {
			return fmt.Errorf("failed to read migration %s: %w", filename, err)
		}

		if _, err := db.ExecContext(ctx, string(content)); err != nil {
			return fmt.Errorf("failed to execute migration %s: %w", filename, err)
		}
	}

	log.Info("All migrations completed", "count", len(sqlFiles))
	return nil
}

// CreateUser inserts a user, assigning an ID when none is set
func (db *DB) CreateUser(ctx context.Context, user *User) error {
	if user.ID == "" {
		user.ID = uuid.NewString()
	}

	query := `
		INSERT INTO users (id, email, password_hash)
		VALUES ($1, $2, $3)
		RETURNING created_at
	`

	err := db.QueryRowContext(ctx, query, user.ID, user.Email, user.PasswordHash).Scan(&user.CreatedAt)
	if isUniqueViolation(err) {
		return ErrEmailTaken
	}
	return err
}

// GetUserByEmail retrieves a user by email
func (db *DB) GetUserByEmail(ctx context.Context, email string) (*User, error) {
	return db.getUser(ctx, `
		SELECT id, email, password_hash, created_at
		FROM users
		WHERE email = $1
	`, email)
}

// GetUser retrieves a user by ID
func (db *DB) GetUser(ctx context.Context, id string) (*User, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, ErrNotFound
	}
	return db.getUser(ctx, `
		SELECT id, email, password_hash, created_at
		FROM users
		WHERE id = $1
	`, id)
}

func (db *DB) getUser(ctx context.Context, query string, arg string) (*User, error) {
	var u User
	err := db.QueryRowContext(ctx, query, arg).Scan(&u.ID, &u.Email, &u.PasswordHash, &u.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// CreateActivity inserts an activity, assigning an ID and timestamp when unset
func (db *DB) CreateActivity(ctx context.Context, a *carbon.Activity) error {
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	if a.RecordedAt.IsZero() {
		a.RecordedAt = time.Now().UTC()
	}

	query := `
		INSERT INTO activities (id, user_id, type, value, unit, carbon, recorded_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`

	_, err := db.ExecContext(ctx, query,
		a.ID,
		a.UserID,
		string(a.Type),
		a.Value,
		a.Unit,
		a.Carbon,
		a.RecordedAt,
	)
	return err
}

// FindByUser returns every activity of a user, oldest first
func (db *DB) FindByUser(ctx context.Context, userID string) ([]carbon.Activity, error) {
	if _, err := uuid.Parse(userID); err != nil {
		return []carbon.Activity{}, nil
	}

	query := `
		SELECT id, user_id, type, value, unit, carbon, recorded_at
		FROM activities
		WHERE user_id = $1
		ORDER BY recorded_at, id
	`

	rows, err := db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	activities := []carbon.Activity{}
	for rows.Next() {
		var a carbon.Activity
		var activityType string
		if err := rows.Scan(
			&a.ID,
			&a.UserID,
			&activityType,
			&a.Value,
			&a.Unit,
			&a.Carbon,
			&a.RecordedAt,
		); err != nil {
			return nil, err
		}
		a.Type = carbon.ActivityType(activityType)
		activities = append(activities, a)
	}

	return activities, rows.Err()
}

// CarbonTotals returns every user's summed footprint, lowest first.
// Users without activities score zero.
func (db *DB) CarbonTotals(ctx context.Context) ([]UserTotal, error) {
	query := `
		SELECT u.id, u.email, COALESCE(SUM(a.carbon), 0) AS score
		FROM users u
		LEFT JOIN activities a ON a.user_id = u.id
		GROUP BY u.id, u.email
		ORDER BY score, u.email
	`

	rows, err := db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	totals := []UserTotal{}
	for rows.Next() {
		var t UserTotal
		if err := rows.Scan(&t.UserID, &t.Email, &t.Score); err != nil {
			return nil, err
		}
		totals = append(totals, t)
	}

	return totals, rows.Err()
}

// EmailsByID resolves user IDs to emails; unknown IDs are omitted
func (db *DB) EmailsByID(ctx context.Context, ids []string) (map[string]string, error) {
	emails := make(map[string]string, len(ids))
	valid := make([]string, 0, len(ids))
	for _, id := range ids {
		if _, err := uuid.Parse(id); err == nil {
			valid = append(valid, id)
		}
	}
	if len(valid) == 0 {
		return emails, nil
	}

	rows, err := db.QueryContext(ctx, `SELECT id, email FROM users WHERE id = ANY($1)`, pq.Array(valid))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var id, email string
		if err := rows.Scan(&id, &email); err != nil {
			return nil, err
		}
		emails[id] = email
	}

	return emails, rows.Err()
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == uniqueViolation
}
