// Package history tracks which papers have already been delivered, so a
// digest run never repeats a paper to the chat.
package history

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS sent_papers (
	arxiv_id TEXT PRIMARY KEY,
	sent_at  TIMESTAMP NOT NULL
);
`

// Store is a SQLite-backed ledger of delivered papers.
type Store struct {
	db     *sql.DB
	logger zerolog.Logger
}

// Open opens (creating if needed) the ledger at path.
func Open(path string, logger zerolog.Logger) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening history database: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating history schema: %w", err)
	}
	return &Store{
		db:     db,
		logger: logger.With().Str("component", "history").Logger(),
	}, nil
}

// Seen reports whether the paper was delivered before.
func (s *Store) Seen(ctx context.Context, arxivID string) (bool, error) {
	var exists int
	err := s.db.QueryRowContext(ctx,
		"SELECT 1 FROM sent_papers WHERE arxiv_id = ?", arxivID).Scan(&exists)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("querying history: %w", err)
	}
	return true, nil
}

// MarkSent records the paper as delivered. Marking an already-sent paper
// again is a no-op.
func (s *Store) MarkSent(ctx context.Context, arxivID string) error {
	_, err := s.db.ExecContext(ctx,
		"INSERT OR IGNORE INTO sent_papers (arxiv_id, sent_at) VALUES (?, ?)",
		arxivID, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("recording sent paper: %w", err)
	}
	s.logger.Debug().Str("arxiv_id", arxivID).Msg("paper marked as sent")
	return nil
}

// FilterUnseen returns the subset of arxivIDs not yet delivered, in input
// order.
func (s *Store) FilterUnseen(ctx context.Context, arxivIDs []string) ([]string, error) {
	var out []string
	for _, id := range arxivIDs {
		seen, err := s.Seen(ctx, id)
		if err != nil {
			return nil, err
		}
		if !seen {
			out = append(out, id)
		}
	}
	return out, nil
}

// Close releases the underlying database handle.
func (s *Store) Close() error {
	return s.db.Close()
}
