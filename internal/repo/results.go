package repo

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/chative/market-research/internal/agent/model"
	errx "github.com/chative/market-research/internal/core/error"
)

func validateID(researchID string) error {
	if strings.TrimSpace(researchID) == "" || strings.ContainsAny(researchID, `/\`) || strings.Contains(researchID, "..") {
		return errx.Validation(fmt.Sprintf("invalid research id %q", researchID))
	}
	return nil
}

func summaryOf(id string, r model.ResearchResult) model.ResultSummary {
	status := r.Metadata.Status
	if status == "" {
		status = "success"
	}
	return model.ResultSummary{ResearchID: id, Query: r.Query, Status: status, CreatedAt: r.Metadata.Timestamp}
}

// ===================================
// JSON file result store
// ===================================

// FileResultStore writes each result to <dir>/research_results_<id>.json.
type FileResultStore struct {
	dir string
}

func NewFileResultStore(dir string) (*FileResultStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, errx.Storage(fmt.Errorf("creating results directory: %w", err))
	}
	return &FileResultStore{dir: dir}, nil
}

const resultFilePrefix = "research_results_"

func (s *FileResultStore) path(id string) string {
	return filepath.Join(s.dir, resultFilePrefix+id+".json")
}

func (s *FileResultStore) Save(_ context.Context, researchID string, result model.ResearchResult) error {
	if err := validateID(researchID); err != nil {
		return err
	}
	b, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return errx.Storage(fmt.Errorf("marshal result: %w", err))
	}
	f, err := os.OpenFile(s.path(researchID), os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		if errors.Is(err, os.ErrExist) {
			return errx.Storage(fmt.Errorf("result %s: %w", researchID, errx.ErrAlreadyExists))
		}
		return errx.Storage(err)
	}
	if _, err := f.Write(b); err != nil {
		f.Close()
		return errx.Storage(err)
	}
	return errx.Storage(f.Close())
}

func (s *FileResultStore) Load(_ context.Context, researchID string) (model.ResearchResult, error) {
	var r model.ResearchResult
	if err := validateID(researchID); err != nil {
		return r, err
	}
	b, err := os.ReadFile(s.path(researchID))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return r, fmt.Errorf("result %s: %w", researchID, errx.ErrNotFound)
		}
		return r, errx.Storage(err)
	}
	if err := json.Unmarshal(b, &r); err != nil {
		return r, errx.Storage(fmt.Errorf("decode result %s: %w", researchID, err))
	}
	return r, nil
}

func (s *FileResultStore) List(ctx context.Context, limit int) ([]model.ResultSummary, error) {
	matches, err := filepath.Glob(filepath.Join(s.dir, resultFilePrefix+"*.json"))
	if err != nil {
		return nil, errx.Storage(err)
	}
	out := make([]model.ResultSummary, 0, len(matches))
	for _, m := range matches {
		id := strings.TrimSuffix(strings.TrimPrefix(filepath.Base(m), resultFilePrefix), ".json")
		r, err := s.Load(ctx, id)
		if err != nil {
			continue
		}
		out = append(out, summaryOf(id, r))
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// ===================================
// SQLite result store
// ===================================

// SQLiteResultStore keeps results in a single SQLite table.
type SQLiteResultStore struct {
	db *sql.DB
}

// NewSQLiteResultStore opens or creates the database at path. ":memory:" is
// accepted for tests.
func NewSQLiteResultStore(ctx context.Context, path string) (*SQLiteResultStore, error) {
	dsn := path
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, errx.Storage(fmt.Errorf("creating database directory: %w", err))
		}
		dsn = path + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)"
	}
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, errx.Storage(fmt.Errorf("opening database: %w", err))
	}
	// a single connection keeps ":memory:" databases shared
	db.SetMaxOpenConns(1)

	s := &SQLiteResultStore{db: db}
	if err := s.createSchema(ctx); err != nil {
		db.Close()
		return nil, errx.Storage(fmt.Errorf("creating schema: %w", err))
	}
	return s, nil
}

func (s *SQLiteResultStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteResultStore) createSchema(ctx context.Context) error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS research_results (
			id TEXT PRIMARY KEY,
			query TEXT NOT NULL,
			status TEXT NOT NULL,
			created_at INTEGER NOT NULL,
			payload TEXT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_research_results_created_at ON research_results(created_at)`,
	}
	for _, stmt := range statements {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("executing schema statement: %w", err)
		}
	}
	return nil
}

func (s *SQLiteResultStore) Save(ctx context.Context, researchID string, result model.ResearchResult) error {
	if err := validateID(researchID); err != nil {
		return err
	}
	payload, err := json.Marshal(result)
	if err != nil {
		return errx.Storage(fmt.Errorf("marshal result: %w", err))
	}
	sum := summaryOf(researchID, result)
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO research_results (id, query, status, created_at, payload)
		 VALUES (?, ?, ?, ?, ?) ON CONFLICT(id) DO NOTHING`,
		researchID, sum.Query, sum.Status, sum.CreatedAt.UnixNano(), string(payload))
	if err != nil {
		return errx.Storage(fmt.Errorf("insert result: %w", err))
	}
	n, err := res.RowsAffected()
	if err != nil {
		return errx.Storage(err)
	}
	if n == 0 {
		return errx.Storage(fmt.Errorf("result %s: %w", researchID, errx.ErrAlreadyExists))
	}
	return nil
}

func (s *SQLiteResultStore) Load(ctx context.Context, researchID string) (model.ResearchResult, error) {
	var r model.ResearchResult
	var payload string
	err := s.db.QueryRowContext(ctx, `SELECT payload FROM research_results WHERE id = ?`, researchID).Scan(&payload)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return r, fmt.Errorf("result %s: %w", researchID, errx.ErrNotFound)
		}
		return r, errx.Storage(err)
	}
	if err := json.Unmarshal([]byte(payload), &r); err != nil {
		return r, errx.Storage(fmt.Errorf("decode result %s: %w", researchID, err))
	}
	return r, nil
}

func (s *SQLiteResultStore) List(ctx context.Context, limit int) ([]model.ResultSummary, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, query, status, created_at FROM research_results ORDER BY created_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, errx.Storage(err)
	}
	defer rows.Close()

	var out []model.ResultSummary
	for rows.Next() {
		var sum model.ResultSummary
		var created int64
		if err := rows.Scan(&sum.ResearchID, &sum.Query, &sum.Status, &created); err != nil {
			return nil, errx.Storage(err)
		}
		sum.CreatedAt = time.Unix(0, created).UTC()
		out = append(out, sum)
	}
	if err := rows.Err(); err != nil {
		return nil, errx.Storage(err)
	}
	return out, nil
}

var (
	_ model.ResultStore = (*FileResultStore)(nil)
	_ model.ResultStore = (*SQLiteResultStore)(nil)
)
