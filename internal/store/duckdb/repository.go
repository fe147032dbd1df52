package duckdb

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	_ "github.com/duckdb/duckdb-go/v2"
	"github.com/google/uuid"

	"hermitbench/internal/bench"
	"hermitbench/internal/store"
)

// Repository is a store.BatchRepository backed by DuckDB.
type Repository struct {
	db *sql.DB
	// DuckDB rejects conflicting concurrent updates of the same row.
	mu    sync.Mutex
	owned bool
}

var _ store.BatchRepository = (*Repository)(nil)

// Open opens the database at path (":memory:" or "" for in-memory) and applies the schema.
func Open(ctx context.Context, path string) (*Repository, error) {
	if path == ":memory:" {
		path = ""
	}
	db, err := sql.Open("duckdb", path)
	if err != nil {
		return nil, fmt.Errorf("open duckdb: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping duckdb: %w", err)
	}
	repo, err := New(ctx, db)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	repo.owned = true
	return repo, nil
}

// New wraps an existing connection. The caller keeps ownership of db.
func New(ctx context.Context, db *sql.DB) (*Repository, error) {
	if err := EnsureSchema(ctx, db); err != nil {
		return nil, fmt.Errorf("apply schema: %w", err)
	}
	return &Repository{db: db}, nil
}

// DB exposes the underlying connection for reporting queries.
func (r *Repository) DB() *sql.DB {
	return r.db
}

func (r *Repository) Create(ctx context.Context, batch bench.Batch) error {
	if batch.ID == "" {
		return errors.New("duckdb: batch id is required")
	}
	config, err := marshalText(batch.Config)
	if err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, err := r.db.ExecContext(ctx,
		`INSERT INTO batches (batch_id, status, total_tasks, completed_tasks, config, error, created_at, completed_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		batch.ID,
		string(batch.Status),
		batch.TotalTasks,
		batch.CompletedTasks,
		config,
		nullableText(batch.Error),
		batch.CreatedAt.UTC(),
		nullableTime(batch.CompletedAt),
	); err != nil {
		return fmt.Errorf("insert batch %s: %w", batch.ID, err)
	}
	for model, results := range batch.Results {
		for i, result := range results {
			if err := r.insertRun(ctx, batch.ID, model, i+1, result); err != nil {
				return err
			}
		}
	}
	if len(batch.Summaries) > 0 {
		if err := r.setJSON(ctx, batch.ID, "summaries", batch.Summaries); err != nil {
			return err
		}
	}
	if len(batch.PersonaCards) > 0 {
		if err := r.setJSON(ctx, batch.ID, "persona_cards", batch.PersonaCards); err != nil {
			return err
		}
	}
	return nil
}

func (r *Repository) Get(ctx context.Context, id string) (bench.Batch, error) {
	row := r.db.QueryRowContext(ctx, selectBatch+` WHERE batch_id = ?`, id)
	batch, err := scanBatch(row)
	if errors.Is(err, sql.ErrNoRows) {
		return bench.Batch{}, fmt.Errorf("%s: %w", id, store.ErrNotFound)
	}
	if err != nil {
		return bench.Batch{}, fmt.Errorf("load batch %s: %w", id, err)
	}
	if err := r.loadRuns(ctx, &batch); err != nil {
		return bench.Batch{}, err
	}
	return batch, nil
}

func (r *Repository) List(ctx context.Context) ([]bench.Batch, error) {
	rows, err := r.db.QueryContext(ctx, selectBatch+` ORDER BY created_at DESC, batch_id DESC`)
	if err != nil {
		return nil, fmt.Errorf("list batches: %w", err)
	}
	var batches []bench.Batch
	for rows.Next() {
		batch, err := scanBatch(rows)
		if err != nil {
			_ = rows.Close()
			return nil, fmt.Errorf("scan batch: %w", err)
		}
		batches = append(batches, batch)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	for i := range batches {
		if err := r.loadRuns(ctx, &batches[i]); err != nil {
			return nil, err
		}
	}
	return batches, nil
}

func (r *Repository) UpdateProgress(ctx context.Context, id string, completed int) error {
	return r.exec(ctx, id,
		`UPDATE batches SET completed_tasks = GREATEST(completed_tasks, ?) WHERE batch_id = ?`,
		completed, id)
}

func (r *Repository) AppendResult(ctx context.Context, id string, result bench.RunResult) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.exists(ctx, id); err != nil {
		return err
	}
	var seq int
	if err := r.db.QueryRowContext(ctx,
		`SELECT COALESCE(MAX(seq), 0) + 1 FROM runs WHERE batch_id = ? AND model_name = ?`,
		id, result.Model,
	).Scan(&seq); err != nil {
		return fmt.Errorf("next run sequence: %w", err)
	}
	return r.insertRun(ctx, id, result.Model, seq, result)
}

func (r *Repository) SetSummaries(ctx context.Context, id string, summaries map[string]bench.ModelSummary) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.exists(ctx, id); err != nil {
		return err
	}
	return r.setJSON(ctx, id, "summaries", summaries)
}

func (r *Repository) SetPersonaCards(ctx context.Context, id string, cards map[string]bench.PersonaCard) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.exists(ctx, id); err != nil {
		return err
	}
	return r.setJSON(ctx, id, "persona_cards", cards)
}

func (r *Repository) Complete(ctx context.Context, id string, at time.Time) error {
	return r.exec(ctx, id,
		`UPDATE batches SET status = ?, completed_at = ? WHERE batch_id = ?`,
		string(bench.BatchCompleted), at.UTC(), id)
}

func (r *Repository) Fail(ctx context.Context, id string, message string, at time.Time) error {
	return r.exec(ctx, id,
		`UPDATE batches SET status = ?, error = ?, completed_at = ? WHERE batch_id = ?`,
		string(bench.BatchError), message, at.UTC(), id)
}

// Close closes the database when the repository opened it.
func (r *Repository) Close() error {
	if !r.owned {
		return nil
	}
	return r.db.Close()
}

func (r *Repository) exec(ctx context.Context, id, query string, args ...any) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("update batch %s: %w", id, err)
	}
	affected, err := res.RowsAffected()
	if err == nil && affected == 0 {
		return fmt.Errorf("%s: %w", id, store.ErrNotFound)
	}
	return nil
}

func (r *Repository) exists(ctx context.Context, id string) error {
	var count int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM batches WHERE batch_id = ?`, id).Scan(&count); err != nil {
		return fmt.Errorf("lookup batch %s: %w", id, err)
	}
	if count == 0 {
		return fmt.Errorf("%s: %w", id, store.ErrNotFound)
	}
	return nil
}

func (r *Repository) setJSON(ctx context.Context, id, column string, value any) error {
	text, err := marshalText(value)
	if err != nil {
		return err
	}
	query := fmt.Sprintf(`UPDATE batches SET %s = ? WHERE batch_id = ?`, column)
	if _, err := r.db.ExecContext(ctx, query, text, id); err != nil {
		return fmt.Errorf("store %s for %s: %w", column, id, err)
	}
	return nil
}

func (r *Repository) insertRun(ctx context.Context, batchID, model string, seq int, result bench.RunResult) error {
	payload, err := marshalText(result)
	if err != nil {
		return err
	}
	runID := result.RunID
	if runID == "" {
		runID = uuid.NewString()
	}
	createdAt := result.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}
	var (
		compliance, autonomy sql.NullFloat64
		failures, malformed  sql.NullInt64
		mirror               sql.NullBool
		style                sql.NullString
	)
	if m := result.Evaluation; m != nil {
		compliance = sql.NullFloat64{Float64: m.ComplianceRate, Valid: true}
		autonomy = sql.NullFloat64{Float64: m.AutonomyScore, Valid: true}
		failures = sql.NullInt64{Int64: int64(m.FailureCount), Valid: true}
		malformed = sql.NullInt64{Int64: int64(m.MalformedBracesCount), Valid: true}
		mirror = sql.NullBool{Bool: m.MirrorTestPassed, Valid: true}
		style = sql.NullString{String: m.ExplorationStyle, Valid: true}
	}
	if _, err := r.db.ExecContext(ctx,
		`INSERT INTO runs (
		  run_id, batch_id, model_name, seq, turns_count, evaluated,
		  compliance_rate, failure_count, malformed_braces_count, mirror_test_passed,
		  autonomy_score, exploration_style, result, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		runID, batchID, model, seq, result.TurnCount, result.Evaluated(),
		compliance, failures, malformed, mirror,
		autonomy, style, payload, createdAt.UTC(),
	); err != nil {
		return fmt.Errorf("insert run %s: %w", runID, err)
	}
	return nil
}

func (r *Repository) loadRuns(ctx context.Context, batch *bench.Batch) error {
	rows, err := r.db.QueryContext(ctx,
		`SELECT model_name, result FROM runs WHERE batch_id = ? ORDER BY model_name, seq`, batch.ID)
	if err != nil {
		return fmt.Errorf("load runs for %s: %w", batch.ID, err)
	}
	defer rows.Close()
	for rows.Next() {
		var model, payload string
		if err := rows.Scan(&model, &payload); err != nil {
			return fmt.Errorf("scan run: %w", err)
		}
		var result bench.RunResult
		if err := json.Unmarshal([]byte(payload), &result); err != nil {
			return fmt.Errorf("decode run: %w", err)
		}
		batch.Results[model] = append(batch.Results[model], result)
	}
	return rows.Err()
}

const selectBatch = `SELECT batch_id, status, total_tasks, completed_tasks, config, summaries, persona_cards, error, created_at, completed_at FROM batches`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanBatch(row rowScanner) (bench.Batch, error) {
	var (
		batch                     bench.Batch
		status, config            string
		summaries, cards, failure sql.NullString
		completedAt               sql.NullTime
	)
	if err := row.Scan(&batch.ID, &status, &batch.TotalTasks, &batch.CompletedTasks, &config,
		&summaries, &cards, &failure, &batch.CreatedAt, &completedAt); err != nil {
		return bench.Batch{}, err
	}
	batch.Status = bench.BatchStatus(status)
	batch.Error = failure.String
	batch.CreatedAt = batch.CreatedAt.UTC()
	if completedAt.Valid {
		at := completedAt.Time.UTC()
		batch.CompletedAt = &at
	}
	if err := json.Unmarshal([]byte(config), &batch.Config); err != nil {
		return bench.Batch{}, fmt.Errorf("decode config: %w", err)
	}
	batch.Results = make(map[string][]bench.RunResult, len(batch.Config.Models))
	for _, model := range batch.Config.Models {
		batch.Results[model] = []bench.RunResult{}
	}
	batch.Summaries = map[string]bench.ModelSummary{}
	if summaries.Valid && summaries.String != "" {
		if err := json.Unmarshal([]byte(summaries.String), &batch.Summaries); err != nil {
			return bench.Batch{}, fmt.Errorf("decode summaries: %w", err)
		}
	}
	batch.PersonaCards = map[string]bench.PersonaCard{}
	if cards.Valid && cards.String != "" {
		if err := json.Unmarshal([]byte(cards.String), &batch.PersonaCards); err != nil {
			return bench.Batch{}, fmt.Errorf("decode persona cards: %w", err)
		}
	}
	return batch, nil
}

func marshalText(value any) (string, error) {
	data, err := json.Marshal(value)
	if err != nil {
		return "", fmt.Errorf("encode json: %w", err)
	}
	return string(data), nil
}

func nullableText(value string) any {
	if value == "" {
		return nil
	}
	return value
}

func nullableTime(value *time.Time) any {
	if value == nil {
		return nil
	}
	return value.UTC()
}
