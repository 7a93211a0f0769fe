package storage

import (
	"database/sql"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// Storage keeps provider responses in a SQLite database
type Storage struct {
	db  *sql.DB
	now func() time.Time
}

// NewStorage creates a new Storage instance, opening/creating the DB and initializing schema
func NewStorage(dbPath string) (*Storage, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_synchronous=NORMAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Test connection
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	storage := &Storage{db: db, now: time.Now}

	if err := storage.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return storage, nil
}

// initSchema creates tables and indices if they don't exist
func (s *Storage) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS responses (
		key TEXT PRIMARY KEY,
		payload BLOB NOT NULL,
		expires_at INTEGER NOT NULL,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_responses_expires ON responses(expires_at);
	`

	_, err := s.db.Exec(schema)
	return err
}

// Get returns the payload stored under key, ignoring expired rows
func (s *Storage) Get(key string) ([]byte, bool, error) {
	var resp Response
	var expires int64
	err := s.db.QueryRow(`
		SELECT key, payload, expires_at
		FROM responses
		WHERE key = ?
	`, key).Scan(&resp.Key, &resp.Payload, &expires)

	if err == sql.ErrNoRows {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to get response: %w", err)
	}

	resp.ExpiresAt = time.UnixMilli(expires)
	if !s.now().Before(resp.ExpiresAt) {
		if _, err := s.db.Exec("DELETE FROM responses WHERE key = ?", key); err != nil {
			return nil, false, fmt.Errorf("failed to drop expired response: %w", err)
		}
		return nil, false, nil
	}

	return resp.Payload, true, nil
}

// Put inserts a payload or replaces it if the key exists
func (s *Storage) Put(key string, payload []byte, ttl time.Duration) error {
	expires := s.now().Add(ttl).UnixMilli()
	_, err := s.db.Exec(`
		INSERT INTO responses (key, payload, expires_at)
		VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET
			payload = EXCLUDED.payload,
			expires_at = EXCLUDED.expires_at
	`, key, payload, expires)

	if err != nil {
		return fmt.Errorf("failed to put response: %w", err)
	}
	return nil
}

// PurgeExpired deletes every expired row and returns how many were removed
func (s *Storage) PurgeExpired() (int64, error) {
	res, err := s.db.Exec("DELETE FROM responses WHERE expires_at <= ?", s.now().UnixMilli())
	if err != nil {
		return 0, fmt.Errorf("failed to purge expired responses: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to count purged responses: %w", err)
	}
	return n, nil
}

// Count returns the number of stored rows, expired ones included
func (s *Storage) Count() (int, error) {
	var n int
	if err := s.db.QueryRow("SELECT COUNT(*) FROM responses").Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count responses: %w", err)
	}
	return n, nil
}

// Close closes the database connection
func (s *Storage) Close() error {
	return s.db.Close()
}
