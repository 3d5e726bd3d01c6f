package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/mr1hm/go-trip-alerts/internal/models"
)

const (
	keySettings           = "settings"
	keyLastDeliveredAlert = "lastDeliveredAlertId"

	defaultListLimit = 50
)

type SQLiteDB struct {
	db *sql.DB
}

func NewSQLiteDB(path string) (*SQLiteDB, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("error opening database: %w", err)
	}

	// :memory: databases are per connection
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("error while pinging database: %w", err)
	}

	s := &SQLiteDB{
		db: db,
	}
	if err := s.migrate(); err != nil {
		return nil, fmt.Errorf("error while migrating to database: %w", err)
	}

	return s, nil
}

func (s *SQLiteDB) migrate() error {
	schema := `
		CREATE TABLE IF NOT EXISTS kv (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL,
			updated_at DATETIME NOT NULL
		);

		CREATE TABLE IF NOT EXISTS notifications (
			id TEXT PRIMARY KEY,
			title TEXT NOT NULL,
			body TEXT NOT NULL,
			alert BLOB NOT NULL,
			test INTEGER NOT NULL DEFAULT 0,
			created_at DATETIME NOT NULL
		);

		CREATE INDEX IF NOT EXISTS idx_notifications_created_at ON notifications(created_at);
	`

	_, err := s.db.Exec(schema)
	return err
}

func (s *SQLiteDB) Close() error {
	return s.db.Close()
}

func (s *SQLiteDB) get(ctx context.Context, key string) (string, error) {
	var value string
	err := s.db.QueryRowContext(ctx, `SELECT value FROM kv WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("error reading %s: %w", key, err)
	}
	return value, nil
}

// put is an upsert; concurrent writers resolve last-writer-wins.
func (s *SQLiteDB) put(ctx context.Context, key, value string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO kv (key, value, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		key, value, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("error writing %s: %w", key, err)
	}
	return nil
}

// GetSettings returns the stored settings, or the defaults when none were saved.
func (s *SQLiteDB) GetSettings(ctx context.Context) (models.Settings, error) {
	raw, err := s.get(ctx, keySettings)
	if errors.Is(err, ErrNotFound) {
		return models.DefaultSettings(), nil
	}
	if err != nil {
		return models.Settings{}, err
	}

	var settings models.Settings
	if err := json.Unmarshal([]byte(raw), &settings); err != nil {
		return models.Settings{}, fmt.Errorf("error decoding settings: %w", err)
	}
	return settings, nil
}

func (s *SQLiteDB) SaveSettings(ctx context.Context, settings models.Settings) error {
	raw, err := json.Marshal(settings)
	if err != nil {
		return fmt.Errorf("error encoding settings: %w", err)
	}
	return s.put(ctx, keySettings, string(raw))
}

// LastDeliveredAlertID returns "" when nothing was delivered yet.
func (s *SQLiteDB) LastDeliveredAlertID(ctx context.Context) (string, error) {
	id, err := s.get(ctx, keyLastDeliveredAlert)
	if errors.Is(err, ErrNotFound) {
		return "", nil
	}
	return id, err
}

func (s *SQLiteDB) SetLastDeliveredAlertID(ctx context.Context, id string) error {
	return s.put(ctx, keyLastDeliveredAlert, id)
}

func (s *SQLiteDB) RecordNotification(ctx context.Context, n *models.Notification) error {
	alert, err := json.Marshal(n.Alert)
	if err != nil {
		return fmt.Errorf("error encoding alert: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO notifications (id, title, body, alert, test, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		n.ID, n.Title, n.Body, alert, n.Test, n.CreatedAt.UTC())
	if err != nil {
		return fmt.Errorf("error inserting notification %s: %w", n.ID, err)
	}
	return nil
}

// ListNotifications returns the log newest first.
func (s *SQLiteDB) ListNotifications(ctx context.Context, opts Filter) ([]models.Notification, error) {
	limit := opts.Limit
	if limit <= 0 {
		limit = defaultListLimit
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, title, body, alert, test, created_at
		FROM notifications
		ORDER BY created_at DESC
		LIMIT ? OFFSET ?`, limit, opts.Offset)
	if err != nil {
		return nil, fmt.Errorf("error listing notifications: %w", err)
	}
	defer rows.Close()

	notifications := []models.Notification{}
	for rows.Next() {
		var n models.Notification
		var alert []byte
		if err := rows.Scan(&n.ID, &n.Title, &n.Body, &alert, &n.Test, &n.CreatedAt); err != nil {
			return nil, fmt.Errorf("error scanning notification: %w", err)
		}
		if err := json.Unmarshal(alert, &n.Alert); err != nil {
			return nil, fmt.Errorf("error decoding alert of notification %s: %w", n.ID, err)
		}
		notifications = append(notifications, n)
	}
	return notifications, rows.Err()
}
