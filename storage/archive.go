package storage

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	"blac/model"
)

// ArchivedMessage is a transcript row.
type ArchivedMessage struct {
	ID          string    `json:"id"`
	SessionID   string    `json:"session_id"`
	Role        string    `json:"role"`
	Content     string    `json:"content"`
	IsCode      bool      `json:"is_code,omitempty"`
	Language    string    `json:"language,omitempty"`
	Attachments []string  `json:"attachments,omitempty"` // attachment sources
	Timestamp   time.Time `json:"timestamp"`
}

// SessionSummary is a lightweight listing entry
type SessionSummary struct {
	ID           string    `json:"id"`
	Title        string    `json:"title"`
	StartedAt    time.Time `json:"started_at"`
	UpdatedAt    time.Time `json:"updated_at"`
	MessageCount int       `json:"message_count"`
}

// Archive keeps chat transcripts in a local SQLite database.
type Archive struct {
	mu sync.Mutex
	db *sql.DB
}

// OpenArchive opens (creating if needed) history.db in dataDir.
func OpenArchive(dataDir string) (*Archive, error) {
	dbPath := filepath.Join(dataDir, "history.db")

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	a := &Archive{db: db}

	if err := a.initialize(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	return a, nil
}

func (a *Archive) initialize() error {
	schema := `
	CREATE TABLE IF NOT EXISTS sessions (
		id TEXT PRIMARY KEY,
		title TEXT NOT NULL,
		started_at DATETIME NOT NULL,
		updated_at DATETIME NOT NULL
	);
	CREATE TABLE IF NOT EXISTS messages (
		seq INTEGER PRIMARY KEY AUTOINCREMENT,
		id TEXT NOT NULL UNIQUE,
		session_id TEXT NOT NULL REFERENCES sessions(id) ON DELETE CASCADE,
		role TEXT NOT NULL,
		content TEXT NOT NULL,
		is_code INTEGER NOT NULL DEFAULT 0,
		language TEXT NOT NULL DEFAULT '',
		attachments TEXT NOT NULL DEFAULT '[]',
		created_at DATETIME NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_messages_session ON messages(session_id, seq);
	`

	_, err := a.db.Exec(schema)
	return err
}

// Record appends msg to the transcript of sessionID, creating the session
// row on its first message.
func (a *Archive) Record(sessionID string, msg model.ChatMessage) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	sources := make([]string, 0, len(msg.Attachments))
	for _, att := range msg.Attachments {
		sources = append(sources, att.SourceRef())
	}
	attJSON, err := json.Marshal(sources)
	if err != nil {
		return fmt.Errorf("failed to marshal attachments: %w", err)
	}

	tx, err := a.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	title := ""
	if msg.IsUser {
		title = GenerateSessionName(msg.Content)
	}
	_, err = tx.Exec(`
		INSERT INTO sessions (id, title, started_at, updated_at) VALUES (?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			updated_at = excluded.updated_at,
			title = CASE WHEN sessions.title = '' THEN excluded.title ELSE sessions.title END
	`, sessionID, title, msg.Timestamp, msg.Timestamp)
	if err != nil {
		return fmt.Errorf("failed to upsert session: %w", err)
	}

	_, err = tx.Exec(`
		INSERT INTO messages (id, session_id, role, content, is_code, language, attachments, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, msg.ID, sessionID, msg.Role(), msg.Content, msg.IsCode, msg.Language, string(attJSON), msg.Timestamp)
	if err != nil {
		return fmt.Errorf("failed to insert message: %w", err)
	}

	return tx.Commit()
}

// ListSessions returns sessions sorted by last activity, newest first.
func (a *Archive) ListSessions() ([]SessionSummary, error) {
	rows, err := a.db.Query(`
		SELECT s.id, s.title, s.started_at, s.updated_at, COUNT(m.seq)
		FROM sessions s LEFT JOIN messages m ON m.session_id = s.id
		GROUP BY s.id
		ORDER BY s.updated_at DESC, s.id
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to list sessions: %w", err)
	}
	defer rows.Close()

	var sessions []SessionSummary
	for rows.Next() {
		var s SessionSummary
		if err := rows.Scan(&s.ID, &s.Title, &s.StartedAt, &s.UpdatedAt, &s.MessageCount); err != nil {
			return nil, fmt.Errorf("failed to scan session: %w", err)
		}
		if s.Title == "" {
			s.Title = GenerateSessionName("")
		}
		sessions = append(sessions, s)
	}
	return sessions, rows.Err()
}

// Messages returns one session's transcript in append order. sessionID may
// be a unique prefix of the full ID.
func (a *Archive) Messages(sessionID string) ([]ArchivedMessage, error) {
	id, err := a.resolveID(sessionID)
	if err != nil {
		return nil, err
	}
	return a.query(`WHERE session_id = ? ORDER BY seq`, id)
}

// AllMessages returns every archived message, oldest first.
func (a *Archive) AllMessages() ([]ArchivedMessage, error) {
	return a.query(`ORDER BY seq`)
}

func (a *Archive) query(clause string, args ...any) ([]ArchivedMessage, error) {
	rows, err := a.db.Query(`
		SELECT id, session_id, role, content, is_code, language, attachments, created_at
		FROM messages `+clause, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query messages: %w", err)
	}
	defer rows.Close()

	var out []ArchivedMessage
	for rows.Next() {
		var m ArchivedMessage
		var attJSON string
		if err := rows.Scan(&m.ID, &m.SessionID, &m.Role, &m.Content, &m.IsCode, &m.Language, &attJSON, &m.Timestamp); err != nil {
			return nil, fmt.Errorf("failed to scan message: %w", err)
		}
		if err := json.Unmarshal([]byte(attJSON), &m.Attachments); err != nil {
			m.Attachments = nil
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

func (a *Archive) resolveID(prefix string) (string, error) {
	prefix = strings.TrimSpace(prefix)
	if prefix == "" {
		return "", fmt.Errorf("session id is required")
	}
	rows, err := a.db.Query(`SELECT id FROM sessions WHERE id LIKE ? || '%' LIMIT 2`, prefix)
	if err != nil {
		return "", fmt.Errorf("failed to look up session: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return "", err
		}
		ids = append(ids, id)
	}
	switch len(ids) {
	case 0:
		return "", fmt.Errorf("session not found: %s", prefix)
	case 1:
		return ids[0], nil
	default:
		return "", fmt.Errorf("session id %q is ambiguous", prefix)
	}
}

// DeleteAll removes every archived session and message.
func (a *Archive) DeleteAll() error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if _, err := a.db.Exec(`DELETE FROM messages; DELETE FROM sessions;`); err != nil {
		return fmt.Errorf("failed to clear history: %w", err)
	}
	return nil
}

func (a *Archive) Close() error {
	return a.db.Close()
}

// GenerateSessionName generates a session title from the first user message
func GenerateSessionName(firstMessage string) string {
	name := strings.ReplaceAll(firstMessage, "\n", " ")
	name = strings.ReplaceAll(name, "\r", " ")
	name = strings.TrimSpace(name)

	if name == "" {
		return "Untitled session"
	}

	// Take first 30 runes
	if r := []rune(name); len(r) > 30 {
		name = string(r[:30]) + "..."
	}

	return name
}
