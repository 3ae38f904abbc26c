package memory

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/docbot/docbot/internal/chat"
	"github.com/docbot/docbot/internal/model"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS conversation_turns (
	id         INTEGER PRIMARY KEY AUTOINCREMENT,
	platform   TEXT    NOT NULL,
	user_id    TEXT    NOT NULL,
	chat_id    TEXT    NOT NULL,
	role       TEXT    NOT NULL,
	text       TEXT    NOT NULL,
	created_at INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_turns_conversation
	ON conversation_turns (platform, user_id, chat_id, created_at);
`

// SQLStore persists turns in a SQLite database.
type SQLStore struct {
	db *sql.DB
}

// OpenSQLite opens (or creates) the database at path and applies the schema.
func OpenSQLite(ctx context.Context, path string) (*SQLStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite: %w", err)
	}

	// A single connection keeps :memory: databases shared and serializes writers.
	db.SetMaxOpenConns(1)

	if _, err := db.ExecContext(ctx, sqliteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply sqlite schema: %w", err)
	}

	return &SQLStore{db: db}, nil
}

func (s *SQLStore) Append(ctx context.Context, turn model.Turn) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO conversation_turns (platform, user_id, chat_id, role, text, created_at) VALUES (?, ?, ?, ?, ?, ?)`,
		turn.Platform, turn.UserID, turn.ChatID, string(turn.Role), turn.Text, turn.CreatedAt.UnixNano(),
	)
	return err
}

func (s *SQLStore) Recent(ctx context.Context, key chat.ConversationKey, limit int) ([]model.Turn, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, role, text, created_at FROM conversation_turns
		 WHERE platform = ? AND user_id = ? AND chat_id = ?
		 ORDER BY created_at DESC, id DESC
		 LIMIT ?`,
		key.Platform, key.UserID, key.ChatID, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var turns []model.Turn
	for rows.Next() {
		var (
			t    model.Turn
			role string
			ts   int64
		)
		if err := rows.Scan(&t.ID, &role, &t.Text, &ts); err != nil {
			return nil, err
		}
		t.Platform, t.UserID, t.ChatID = key.Platform, key.UserID, key.ChatID
		t.Role = model.Role(role)
		t.CreatedAt = time.Unix(0, ts).UTC()
		turns = append(turns, t)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	reverse(turns)
	return turns, nil
}

func (s *SQLStore) Clear(ctx context.Context, key chat.ConversationKey) error {
	_, err := s.db.ExecContext(ctx,
		`DELETE FROM conversation_turns WHERE platform = ? AND user_id = ? AND chat_id = ?`,
		key.Platform, key.UserID, key.ChatID,
	)
	return err
}

func (s *SQLStore) Close() error {
	return s.db.Close()
}

func sqlitePath(databaseURL string) string {
	if strings.HasPrefix(databaseURL, "sqlite://") {
		return strings.TrimPrefix(databaseURL, "sqlite://")
	}
	if strings.HasPrefix(databaseURL, "sqlite:") {
		return strings.TrimPrefix(databaseURL, "sqlite:")
	}
	return databaseURL
}
