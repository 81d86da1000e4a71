// Package scan persists audit runs and coordinates their execution. Scan
// history is append-only; each run inserts a new row and the newest row per
// shop is the active one.
package scan

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"

	"github.com/shopaudit/backend/audit"
)

const schema = `
CREATE TABLE IF NOT EXISTS scans (
	id                  TEXT PRIMARY KEY,
	shop                TEXT NOT NULL,
	created_at          TIMESTAMP NOT NULL,
	overall_score       INTEGER NOT NULL,
	content_score       INTEGER NOT NULL,
	performance_score   INTEGER NOT NULL,
	accessibility_score INTEGER NOT NULL,
	critical_issues     INTEGER NOT NULL,
	improvements        INTEGER NOT NULL,
	good_results        INTEGER NOT NULL,
	crawled_pages       INTEGER NOT NULL,
	issues              TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_scans_shop_created ON scans(shop, created_at DESC);

CREATE TABLE IF NOT EXISTS shops (
	shop             TEXT PRIMARY KEY,
	current_score    INTEGER NOT NULL,
	last_analyzed_at TIMESTAMP NOT NULL
);`

// Scan is one persisted audit run.
type Scan struct {
	ID        string       `json:"id"`
	Shop      string       `json:"shop"`
	CreatedAt time.Time    `json:"createdAt"`
	Result    audit.Result `json:"result"`
}

// ShopStatus is the per-shop "current score" pointer.
type ShopStatus struct {
	Shop           string    `json:"shop"`
	CurrentScore   int       `json:"currentScore"`
	LastAnalyzedAt time.Time `json:"lastAnalyzedAt"`
}

// Store wraps the SQLite scan history.
type Store struct {
	db *sql.DB
}

// Open opens (creating if necessary) the scan database at path.
func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("ensure data dir: %w", err)
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	if _, err := db.Exec(`PRAGMA foreign_keys = ON;`); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("pragma foreign_keys: %w", err)
	}
	if _, err := db.Exec(`PRAGMA journal_mode = WAL;`); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("pragma journal_mode: %w", err)
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}

	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}

	return &Store{db: db}, nil
}

// Save appends a scan and moves the shop's current-score pointer in one
// transaction. A failed run never reaches this method, so the prior scan
// stays current until a full run succeeds.
func (s *Store) Save(ctx context.Context, shop string, result audit.Result) (*Scan, error) {
	issuesJSON, err := json.Marshal(result.Issues)
	if err != nil {
		return nil, fmt.Errorf("marshal issues: %w", err)
	}

	scan := &Scan{
		ID:        uuid.NewString(),
		Shop:      shop,
		CreatedAt: time.Now().UTC(),
		Result:    result,
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO scans (
			id, shop, created_at,
			overall_score, content_score, performance_score, accessibility_score,
			critical_issues, improvements, good_results, crawled_pages, issues
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		scan.ID, scan.Shop, scan.CreatedAt,
		result.OverallScore, result.ContentScore, result.PerformanceScore, result.AccessibilityScore,
		result.CriticalIssues, result.Improvements, result.GoodResults, result.CrawledPages,
		string(issuesJSON),
	)
	if err != nil {
		return nil, fmt.Errorf("insert scan: %w", err)
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO shops (shop, current_score, last_analyzed_at)
		VALUES (?, ?, ?)
		ON CONFLICT(shop) DO UPDATE SET
			current_score = excluded.current_score,
			last_analyzed_at = excluded.last_analyzed_at
	`, scan.Shop, result.OverallScore, scan.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("upsert shop: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit scan: %w", err)
	}
	return scan, nil
}

const scanColumns = `
	id, shop, created_at,
	overall_score, content_score, performance_score, accessibility_score,
	critical_issues, improvements, good_results, crawled_pages, issues`

func scanRow(scanner interface{ Scan(...any) error }) (*Scan, error) {
	var (
		s          Scan
		issuesJSON string
	)
	err := scanner.Scan(
		&s.ID, &s.Shop, &s.CreatedAt,
		&s.Result.OverallScore, &s.Result.ContentScore,
		&s.Result.PerformanceScore, &s.Result.AccessibilityScore,
		&s.Result.CriticalIssues, &s.Result.Improvements,
		&s.Result.GoodResults, &s.Result.CrawledPages, &issuesJSON,
	)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(issuesJSON), &s.Result.Issues); err != nil {
		return nil, fmt.Errorf("unmarshal issues: %w", err)
	}
	return &s, nil
}

// Latest returns the newest scan for a shop, or (nil, nil) when the shop has
// never been scanned.
func (s *Store) Latest(ctx context.Context, shop string) (*Scan, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+scanColumns+`
		FROM scans
		WHERE shop = ?
		ORDER BY created_at DESC, id DESC
		LIMIT 1
	`, shop)

	scan, err := scanRow(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("scan latest: %w", err)
	}
	return scan, nil
}

// History returns scans for a shop, newest first.
func (s *Store) History(ctx context.Context, shop string, limit, offset int) ([]Scan, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+scanColumns+`
		FROM scans
		WHERE shop = ?
		ORDER BY created_at DESC, id DESC
		LIMIT ? OFFSET ?
	`, shop, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("history query: %w", err)
	}
	defer rows.Close()

	out := make([]Scan, 0, limit)
	for rows.Next() {
		scan, err := scanRow(rows)
		if err != nil {
			return nil, fmt.Errorf("history scan: %w", err)
		}
		out = append(out, *scan)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("history rows: %w", err)
	}
	return out, nil
}

// Status returns the current-score pointer for a shop, or (nil, nil) when
// the shop has never been scanned.
func (s *Store) Status(ctx context.Context, shop string) (*ShopStatus, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT shop, current_score, last_analyzed_at
		FROM shops
		WHERE shop = ?
	`, shop)

	var status ShopStatus
	if err := row.Scan(&status.Shop, &status.CurrentScore, &status.LastAnalyzedAt); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("status scan: %w", err)
	}
	return &status, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}
