package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/zap"

	"github.com/maxicoach/backend/internal/storage/models"
	"github.com/maxicoach/backend/pkg/logger"
)

var ErrNotFound = errors.New("not found")

type Client struct {
	db *sql.DB
}

func NewClient(dbPath string) (*Client, error) {
	if dir := filepath.Dir(dbPath); dir != "" && !strings.HasPrefix(dbPath, ":memory:") {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode = WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}

	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to set busy timeout: %w", err)
	}

	logger.Info("SQLite client initialized", zap.String("path", dbPath))

	return &Client{db: db}, nil
}

func (c *Client) Close() error {
	return c.db.Close()
}

func (c *Client) Ping(ctx context.Context) error {
	return c.db.PingContext(ctx)
}

func (c *Client) InitSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS password_overrides (
		username TEXT PRIMARY KEY,
		password_hash TEXT NOT NULL,
		updated_at INTEGER NOT NULL
	);

	CREATE TABLE IF NOT EXISTS conversation_turns (
		id TEXT PRIMARY KEY,
		username TEXT NOT NULL,
		session_id TEXT NOT NULL,
		persona TEXT NOT NULL,
		dictamen TEXT,
		gestion_type TEXT,
		mora_bucket TEXT,
		input TEXT NOT NULL,
		matched_question TEXT,
		outcome TEXT NOT NULL,
		score REAL,
		response TEXT,
		latency_ms INTEGER,
		created_at INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_turns_user ON conversation_turns(username);
	CREATE INDEX IF NOT EXISTS idx_turns_created ON conversation_turns(created_at);
	CREATE INDEX IF NOT EXISTS idx_turns_outcome ON conversation_turns(outcome);
	`

	if _, err := c.db.Exec(schema); err != nil {
		return fmt.Errorf("failed to initialize schema: %w", err)
	}

	logger.Info("SQLite schema initialized")
	return nil
}

// GetPasswordHash returns ErrNotFound when the user never changed the
// directory password.
func (c *Client) GetPasswordHash(ctx context.Context, username string) (string, error) {
	query := `SELECT password_hash FROM password_overrides WHERE username = ?`

	var hash string
	err := c.db.QueryRowContext(ctx, query, strings.ToLower(username)).Scan(&hash)
	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("failed to get password override: %w", err)
	}
	return hash, nil
}

func (c *Client) SetPasswordHash(ctx context.Context, o *models.PasswordOverride) error {
	query := `
		INSERT INTO password_overrides (username, password_hash, updated_at)
		VALUES (?, ?, ?)
		ON CONFLICT(username) DO UPDATE SET
			password_hash = excluded.password_hash,
			updated_at = excluded.updated_at
	`

	updatedAt := o.UpdatedAt
	if updatedAt.IsZero() {
		updatedAt = time.Now()
	}

	_, err := c.db.ExecContext(ctx, query, strings.ToLower(o.Username), o.PasswordHash, updatedAt.Unix())
	if err != nil {
		return fmt.Errorf("failed to store password override: %w", err)
	}

	logger.Info("Password override stored", zap.String("username", o.Username))
	return nil
}

func (c *Client) InsertTurn(ctx context.Context, t *models.ConversationTurn) error {
	query := `
		INSERT INTO conversation_turns (id, username, session_id, persona, dictamen, gestion_type, mora_bucket,
			input, matched_question, outcome, score, response, latency_ms, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := c.db.ExecContext(ctx, query,
		t.ID,
		strings.ToLower(t.Username),
		t.SessionID,
		t.Persona,
		t.Dictamen,
		t.GestionType,
		t.MoraBucket,
		t.Input,
		t.MatchedQuestion,
		t.Outcome,
		t.Score,
		t.Response,
		t.LatencyMS,
		t.CreatedAt.UnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("failed to insert conversation turn: %w", err)
	}

	logger.Debug("Conversation turn recorded",
		zap.String("turn_id", t.ID),
		zap.String("session_id", t.SessionID),
		zap.String("outcome", t.Outcome),
	)
	return nil
}

// GetTurnHistory returns the newest turns of a user first.
func (c *Client) GetTurnHistory(ctx context.Context, username string, limit int) ([]models.ConversationTurn, error) {
	query := `
		SELECT id, username, session_id, persona, dictamen, gestion_type, mora_bucket,
			input, matched_question, outcome, score, response, latency_ms, created_at
		FROM conversation_turns
		WHERE username = ?
		ORDER BY created_at DESC, id DESC
		LIMIT ?
	`

	rows, err := c.db.QueryContext(ctx, query, strings.ToLower(username), limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get turn history: %w", err)
	}
	defer rows.Close()

	turns := []models.ConversationTurn{}
	for rows.Next() {
		var t models.ConversationTurn
		var createdAt int64

		err := rows.Scan(
			&t.ID,
			&t.Username,
			&t.SessionID,
			&t.Persona,
			&t.Dictamen,
			&t.GestionType,
			&t.MoraBucket,
			&t.Input,
			&t.MatchedQuestion,
			&t.Outcome,
			&t.Score,
			&t.Response,
			&t.LatencyMS,
			&createdAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}

		t.CreatedAt = time.UnixMilli(createdAt)
		turns = append(turns, t)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate turn history: %w", err)
	}
	return turns, nil
}

// OutcomeCounts aggregates the turns of the last window by selector outcome.
func (c *Client) OutcomeCounts(ctx context.Context, since time.Time) (map[string]int, error) {
	query := `SELECT outcome, COUNT(*) FROM conversation_turns WHERE created_at >= ? GROUP BY outcome`

	rows, err := c.db.QueryContext(ctx, query, since.UnixMilli())
	if err != nil {
		return nil, fmt.Errorf("failed to count outcomes: %w", err)
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var outcome string
		var n int
		if err := rows.Scan(&outcome, &n); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		counts[outcome] = n
	}
	return counts, rows.Err()
}
