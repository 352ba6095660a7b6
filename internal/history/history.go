// ABOUTME: SQLite persistence for local chat history using modernc.org/sqlite
// ABOUTME: Records exchanges per conversation with automatic schema creation

package history

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

// ErrNoHistory is returned when a lookup matches no recorded exchanges.
var ErrNoHistory = errors.New("no history recorded")

// Exchange is one side of a chat turn, as stored locally.
type Exchange struct {
	ID             string
	Workspace      string
	Agent          string
	ConversationID string
	Role           string
	Content        string
	CreatedAt      time.Time
}

// Store persists chat exchanges in a local SQLite database.
type Store struct {
	db     *sql.DB
	logger *slog.Logger
}

// New opens (or creates) the history database at the given path.
// Parent directories are created if needed.
func New(path string) (*Store, error) {
	logger := slog.Default().With("component", "history")

	// Ensure parent directory exists
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("creating history directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening history database: %w", err)
	}

	// Enable WAL mode for better concurrent performance
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling WAL mode: %w", err)
	}

	s := &Store{
		db:     db,
		logger: logger,
	}

	if err := s.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}

	logger.Debug("history store initialized", "path", path)
	return s, nil
}

// createSchema creates the database tables if they don't exist
func (s *Store) createSchema() error {
	schema := `
		CREATE TABLE IF NOT EXISTS exchanges (
			id TEXT PRIMARY KEY,
			workspace TEXT NOT NULL,
			agent TEXT NOT NULL,
			conversation_id TEXT NOT NULL,
			role TEXT NOT NULL,
			content TEXT NOT NULL,
			created_at DATETIME NOT NULL
		);

		CREATE INDEX IF NOT EXISTS idx_exchanges_conversation
			ON exchanges(conversation_id, created_at);

		CREATE INDEX IF NOT EXISTS idx_exchanges_workspace_agent
			ON exchanges(workspace, agent, created_at);
	`

	if _, err := s.db.Exec(schema); err != nil {
		return fmt.Errorf("executing schema: %w", err)
	}
	return nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// SaveExchange records one exchange. A missing ID or CreatedAt is filled
// in here.
func (s *Store) SaveExchange(ctx context.Context, ex *Exchange) error {
	if ex.ID == "" {
		ex.ID = uuid.NewString()
	}
	if ex.CreatedAt.IsZero() {
		ex.CreatedAt = time.Now()
	}

	query := `
		INSERT INTO exchanges (id, workspace, agent, conversation_id, role, content, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`

	_, err := s.db.ExecContext(ctx, query,
		ex.ID,
		ex.Workspace,
		ex.Agent,
		ex.ConversationID,
		ex.Role,
		ex.Content,
		ex.CreatedAt.UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("inserting exchange: %w", err)
	}

	s.logger.Debug("saved exchange", "conversation", ex.ConversationID, "role", ex.Role)
	return nil
}

// LastConversation returns the most recently used conversation id for the
// workspace, optionally narrowed to one agent. Returns ErrNoHistory when
// nothing matches.
func (s *Store) LastConversation(ctx context.Context, workspace, agent string) (string, error) {
	query := `
		SELECT conversation_id
		FROM exchanges
		WHERE workspace = ? AND (? = '' OR agent = ?)
		ORDER BY created_at DESC, rowid DESC
		LIMIT 1
	`

	var conversationID string
	err := s.db.QueryRowContext(ctx, query, workspace, agent, agent).Scan(&conversationID)
	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrNoHistory
	}
	if err != nil {
		return "", fmt.Errorf("querying last conversation: %w", err)
	}
	return conversationID, nil
}

// RecentExchanges returns up to limit exchanges for a conversation, oldest
// first.
func (s *Store) RecentExchanges(ctx context.Context, conversationID string, limit int) ([]*Exchange, error) {
	query := `
		SELECT id, workspace, agent, conversation_id, role, content, created_at
		FROM exchanges
		WHERE conversation_id = ?
		ORDER BY created_at DESC, rowid DESC
		LIMIT ?
	`

	rows, err := s.db.QueryContext(ctx, query, conversationID, limit)
	if err != nil {
		return nil, fmt.Errorf("querying exchanges: %w", err)
	}
	defer rows.Close()

	var exchanges []*Exchange
	for rows.Next() {
		var ex Exchange
		var createdAtStr string

		if err := rows.Scan(
			&ex.ID,
			&ex.Workspace,
			&ex.Agent,
			&ex.ConversationID,
			&ex.Role,
			&ex.Content,
			&createdAtStr,
		); err != nil {
			return nil, fmt.Errorf("scanning exchange: %w", err)
		}

		ex.CreatedAt, err = time.Parse(time.RFC3339, createdAtStr)
		if err != nil {
			return nil, fmt.Errorf("parsing created_at: %w", err)
		}

		exchanges = append(exchanges, &ex)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating exchanges: %w", err)
	}

	// Reverse into chronological order
	for i, j := 0, len(exchanges)-1; i < j; i, j = i+1, j-1 {
		exchanges[i], exchanges[j] = exchanges[j], exchanges[i]
	}

	return exchanges, nil
}
