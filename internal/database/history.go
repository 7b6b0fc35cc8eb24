package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/nao1215/packagebot/internal/model"
)

// FileName is the database file created inside the history directory.
const FileName = "packagebot.db"

// ErrRunNotFound is returned when a run ID does not exist.
var ErrRunNotFound = errors.New("run not found")

// HistoryDB stores run reports and page outcomes.
type HistoryDB struct {
	db     *sql.DB
	dbPath string
}

// Options configures Open.
type Options struct {
	// CreateIfNotExists creates the directory and the database file.
	CreateIfNotExists bool

	// EnableWAL switches the journal to write-ahead logging.
	EnableWAL bool
}

// DefaultOptions returns the options used by the CLI.
func DefaultOptions() Options {
	return Options{
		CreateIfNotExists: true,
		EnableWAL:         true,
	}
}

// Open opens the history database inside dir.
func Open(dir string, opts Options) (*HistoryDB, error) {
	dbPath := filepath.Join(dir, FileName)

	mode := "rw"
	if opts.CreateIfNotExists {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return nil, fmt.Errorf("failed to create history directory: %w", err)
		}
		mode = "rwc"
	} else if _, err := os.Stat(dbPath); err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("history database not found at %s", dbPath)
		}
		return nil, fmt.Errorf("failed to check history database: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath+"?mode="+mode)
	if err != nil {
		return nil, fmt.Errorf("failed to open history database: %w", err)
	}
	// One writer; the CLI never reads and writes concurrently.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(time.Hour)

	h := &HistoryDB{db: db, dbPath: dbPath}

	ctx := context.Background()
	if opts.EnableWAL {
		if _, err := db.ExecContext(ctx, "PRAGMA journal_mode=WAL"); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
		}
	}
	if err := h.createTables(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}
	return h, nil
}

// Path returns the database file path.
func (h *HistoryDB) Path() string {
	return h.dbPath
}

// Close closes the database.
func (h *HistoryDB) Close() error {
	return h.db.Close()
}

func (h *HistoryDB) createTables(ctx context.Context) error {
	const schema = `
	CREATE TABLE IF NOT EXISTS runs (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		started_at TEXT NOT NULL,
		finished_at TEXT NOT NULL,
		tree TEXT NOT NULL,
		endpoint TEXT NOT NULL,
		wiki_user TEXT NOT NULL,
		discovered INTEGER NOT NULL,
		created INTEGER NOT NULL,
		existing INTEGER NOT NULL,
		failed INTEGER NOT NULL,
		succeeded INTEGER NOT NULL,
		report_json TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_runs_started ON runs(started_at);

	CREATE TABLE IF NOT EXISTS page_results (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		run_id INTEGER NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
		title TEXT NOT NULL,
		kind TEXT NOT NULL,
		outcome TEXT NOT NULL,
		error TEXT NOT NULL DEFAULT ''
	);

	CREATE INDEX IF NOT EXISTS idx_pages_run ON page_results(run_id);
	CREATE INDEX IF NOT EXISTS idx_pages_title ON page_results(title);
	`
	_, err := h.db.ExecContext(ctx, schema)
	return err
}

// RunSummary is one row of the run list.
type RunSummary struct {
	ID         int64
	StartedAt  time.Time
	FinishedAt time.Time
	Tree       string
	Endpoint   string
	User       string
	Discovered int
	Created    int
	Existing   int
	Failed     int
	Succeeded  bool
}

// SaveRun stores report and its page outcomes in one transaction and
// returns the new run ID.
func (h *HistoryDB) SaveRun(ctx context.Context, report *model.RunReport) (id int64, err error) {
	reportJSON, err := json.Marshal(report)
	if err != nil {
		return 0, fmt.Errorf("failed to serialize run report: %w", err)
	}

	tx, err := h.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	res, err := tx.ExecContext(ctx, `
	INSERT INTO runs (started_at, finished_at, tree, endpoint, wiki_user,
		discovered, created, existing, failed, succeeded, report_json)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		formatTime(report.StartedAt),
		formatTime(report.FinishedAt),
		report.Tree,
		report.Endpoint,
		report.User,
		report.Discovered,
		report.CountOutcome(model.OutcomeCreated),
		report.CountOutcome(model.OutcomeExisting),
		report.CountOutcome(model.OutcomeFailed),
		report.Succeeded(),
		string(reportJSON),
	)
	if err != nil {
		return 0, fmt.Errorf("failed to insert run: %w", err)
	}
	id, err = res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to read run id: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO page_results (run_id, title, kind, outcome, error) VALUES (?, ?, ?, ?, ?)`)
	if err != nil {
		return 0, fmt.Errorf("failed to prepare page insert: %w", err)
	}
	defer stmt.Close()

	for _, p := range report.Pages {
		if _, err = stmt.ExecContext(ctx, id, p.Title, p.Kind.String(), p.Outcome.String(), p.Error); err != nil {
			return 0, fmt.Errorf("failed to insert page result %q: %w", p.Title, err)
		}
	}

	if err = tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit run: %w", err)
	}
	return id, nil
}

// ListRuns returns the most recent runs first. A limit below 1 returns
// every run.
func (h *HistoryDB) ListRuns(ctx context.Context, limit int) ([]RunSummary, error) {
	query := `
	SELECT id, started_at, finished_at, tree, endpoint, wiki_user,
		discovered, created, existing, failed, succeeded
	FROM runs
	ORDER BY id DESC`
	var args []any
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := h.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	defer rows.Close()

	var runs []RunSummary
	for rows.Next() {
		var (
			r                 RunSummary
			started, finished  string
		)
		if err := rows.Scan(&r.ID, &started, &finished, &r.Tree, &r.Endpoint, &r.User,
			&r.Discovered, &r.Created, &r.Existing, &r.Failed, &r.Succeeded); err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		r.StartedAt = parseTime(started)
		r.FinishedAt = parseTime(finished)
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

// GetRun returns the stored report of run id.
func (h *HistoryDB) GetRun(ctx context.Context, id int64) (*model.RunReport, error) {
	var reportJSON string
	err := h.db.QueryRowContext(ctx, `SELECT report_json FROM runs WHERE id = ?`, id).Scan(&reportJSON)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %d", ErrRunNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get run: %w", err)
	}

	var report model.RunReport
	if err := json.Unmarshal([]byte(reportJSON), &report); err != nil {
		return nil, fmt.Errorf("failed to parse run report: %w", err)
	}
	return &report, nil
}

// PageResults returns the page outcomes of run id in insertion order.
// When outcome is non-zero only pages with that outcome are returned.
func (h *HistoryDB) PageResults(ctx context.Context, id int64, outcome model.Outcome) ([]model.PageResult, error) {
	query := `SELECT title, kind, outcome, error FROM page_results WHERE run_id = ?`
	args := []any{id}
	if outcome != 0 {
		query += " AND outcome = ?"
		args = append(args, outcome.String())
	}
	query += " ORDER BY id"

	rows, err := h.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query page results: %w", err)
	}
	defer rows.Close()

	var results []model.PageResult
	for rows.Next() {
		var (
			p                     model.PageResult
			kindText, outcomeText string
		)
		if err := rows.Scan(&p.Title, &kindText, &outcomeText, &p.Error); err != nil {
			return nil, fmt.Errorf("failed to scan page result: %w", err)
		}
		if err := p.Kind.UnmarshalText([]byte(kindText)); err != nil {
			return nil, err
		}
		if err := p.Outcome.UnmarshalText([]byte(outcomeText)); err != nil {
			return nil, err
		}
		results = append(results, p)
	}
	return results, rows.Err()
}

// LastCreated returns when title was last created by packagebot. The
// boolean is false when no run created it.
func (h *HistoryDB) LastCreated(ctx context.Context, title string) (time.Time, bool, error) {
	var started string
	err := h.db.QueryRowContext(ctx, `
	SELECT r.started_at
	FROM page_results p JOIN runs r ON r.id = p.run_id
	WHERE p.title = ? AND p.outcome = ?
	ORDER BY r.id DESC
	LIMIT 1`, title, model.OutcomeCreated.String()).Scan(&started)
	if errors.Is(err, sql.ErrNoRows) {
		return time.Time{}, false, nil
	}
	if err != nil {
		return time.Time{}, false, fmt.Errorf("failed to look up %q: %w", title, err)
	}
	return parseTime(started), true, nil
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

// parseTime returns the zero time for values that do not parse.
func parseTime(s string) time.Time {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}
	}
	return t
}
