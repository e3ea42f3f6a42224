package db

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strings"

	_ "modernc.org/sqlite"

	"github.com/spacesedan/danmakuflow/internal/models"
)

// SQLiteStore keeps every output table of a run in one SQLite file. Rows are
// tagged with the run id so several runs can share a database.
type SQLiteStore struct {
	db *sql.DB
}

// OpenSQLite opens a SQLite database with WAL mode enabled and creates the
// schema when missing.
func OpenSQLite(ctx context.Context, path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}

	if _, err := db.ExecContext(ctx, "PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, err
	}

	if err := initSchema(ctx, db); err != nil {
		db.Close()
		return nil, err
	}

	slog.Info("[SQLite] Opened result store", slog.String("path", path))
	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) Name() string { return "sqlite" }

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func initSchema(ctx context.Context, db *sql.DB) error {
	schema := `
CREATE TABLE IF NOT EXISTS tokenized (
	run_id TEXT NOT NULL,
	comment_id TEXT NOT NULL,
	tokens TEXT NOT NULL,
	PRIMARY KEY(run_id, comment_id)
);

CREATE TABLE IF NOT EXISTS keywords (
	run_id TEXT NOT NULL,
	rank INTEGER NOT NULL,
	word TEXT NOT NULL,
	score REAL NOT NULL,
	PRIMARY KEY(run_id, rank)
);

CREATE TABLE IF NOT EXISTS word_counts (
	run_id TEXT NOT NULL,
	rank INTEGER NOT NULL,
	word TEXT NOT NULL,
	count INTEGER NOT NULL,
	PRIMARY KEY(run_id, rank)
);

CREATE TABLE IF NOT EXISTS sentiment (
	run_id TEXT NOT NULL,
	comment_id TEXT NOT NULL,
	text TEXT NOT NULL,
	label TEXT NOT NULL,
	confidence REAL,
	PRIMARY KEY(run_id, comment_id)
);
`
	if _, err := db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("init schema: %w", err)
	}
	return nil
}

// insertAll runs one prepared statement per row inside a single transaction.
func (s *SQLiteStore) insertAll(ctx context.Context, query string, n int, args func(i int) []any) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, query)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for i := 0; i < n; i++ {
		if _, err := stmt.ExecContext(ctx, args(i)...); err != nil {
			return err
		}
	}
	return tx.Commit()
}

func (s *SQLiteStore) WriteTokens(ctx context.Context, runID string, seqs []models.TokenSequence) error {
	err := s.insertAll(ctx,
		`INSERT OR REPLACE INTO tokenized(run_id, comment_id, tokens) VALUES(?, ?, ?)`,
		len(seqs), func(i int) []any {
			return []any{runID, seqs[i].CommentID, seqs[i].Joined()}
		})
	if err != nil {
		return fmt.Errorf("[SQLite] write tokens: %w", err)
	}
	return nil
}

func (s *SQLiteStore) WriteKeywords(ctx context.Context, runID string, keywords []models.KeywordEntry) error {
	err := s.insertAll(ctx,
		`INSERT OR REPLACE INTO keywords(run_id, rank, word, score) VALUES(?, ?, ?, ?)`,
		len(keywords), func(i int) []any {
			return []any{runID, i + 1, keywords[i].Word, keywords[i].Score}
		})
	if err != nil {
		return fmt.Errorf("[SQLite] write keywords: %w", err)
	}
	return nil
}

func (s *SQLiteStore) WriteFrequencies(ctx context.Context, runID string, all, _ []models.WordCount) error {
	err := s.insertAll(ctx,
		`INSERT OR REPLACE INTO word_counts(run_id, rank, word, count) VALUES(?, ?, ?, ?)`,
		len(all), func(i int) []any {
			return []any{runID, i + 1, all[i].Word, all[i].Count}
		})
	if err != nil {
		return fmt.Errorf("[SQLite] write word counts: %w", err)
	}
	return nil
}

func (s *SQLiteStore) WriteSentiment(ctx context.Context, runID string, comments []models.Comment, results []models.SentimentResult) error {
	if len(comments) != len(results) {
		return fmt.Errorf("[SQLite] %d comments but %d sentiment results", len(comments), len(results))
	}
	err := s.insertAll(ctx,
		`INSERT OR REPLACE INTO sentiment(run_id, comment_id, text, label, confidence) VALUES(?, ?, ?, ?, ?)`,
		len(results), func(i int) []any {
			var conf sql.NullFloat64
			if results[i].Confidence != nil {
				conf = sql.NullFloat64{Float64: *results[i].Confidence, Valid: true}
			}
			return []any{runID, results[i].CommentID, comments[i].Text, string(results[i].Label), conf}
		})
	if err != nil {
		return fmt.Errorf("[SQLite] write sentiment: %w", err)
	}
	return nil
}

// LabelCounts returns the number of sentiment rows per label for a run.
func (s *SQLiteStore) LabelCounts(ctx context.Context, runID string) (map[models.SentimentLabel]int, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT label, COUNT(*) FROM sentiment WHERE run_id = ? GROUP BY label`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := map[models.SentimentLabel]int{}
	for rows.Next() {
		var label string
		var n int
		if err := rows.Scan(&label, &n); err != nil {
			return nil, err
		}
		counts[models.SentimentLabel(strings.TrimSpace(label))] = n
	}
	return counts, rows.Err()
}

// TopWords returns the first n ranked word counts stored for a run.
func (s *SQLiteStore) TopWords(ctx context.Context, runID string, n int) ([]models.WordCount, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT word, count FROM word_counts WHERE run_id = ? ORDER BY rank LIMIT ?`, runID, n)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.WordCount
	for rows.Next() {
		var wc models.WordCount
		if err := rows.Scan(&wc.Word, &wc.Count); err != nil {
			return nil, err
		}
		out = append(out, wc)
	}
	return out, rows.Err()
}
