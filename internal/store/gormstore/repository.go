// Package gormstore keeps batches in MySQL through GORM.
package gormstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"

	"hermitbench/internal/bench"
	"hermitbench/internal/store"
)

// Repository is a store.BatchRepository on top of a GORM connection.
type Repository struct {
	db *gorm.DB
}

var _ store.BatchRepository = (*Repository)(nil)

// Open connects to MySQL using dsn and migrates the schema.
// The DSN must enable parseTime so timestamps scan into time.Time.
func Open(dsn string) (*Repository, error) {
	db, err := gorm.Open(mysql.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("connect mysql: %w", err)
	}
	return New(db)
}

// New migrates db and wraps it.
func New(db *gorm.DB) (*Repository, error) {
	if db == nil {
		return nil, errors.New("gormstore: db is nil")
	}
	if err := db.AutoMigrate(&batchRecord{}, &runRecord{}, &summaryRecord{}, &modelRecord{}); err != nil {
		return nil, fmt.Errorf("migrate schema: %w", err)
	}
	return &Repository{db: db}, nil
}

func (r *Repository) Create(ctx context.Context, batch bench.Batch) error {
	record, err := toBatchRecord(batch)
	if err != nil {
		return err
	}
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&record).Error; err != nil {
			return fmt.Errorf("insert batch %s: %w", batch.ID, err)
		}
		if err := touchModels(tx, batch.Config.Models, batch.CreatedAt); err != nil {
			return err
		}
		for model, results := range batch.Results {
			for i, result := range results {
				result.Model = model
				if err := insertRun(tx, batch.ID, i+1, result); err != nil {
					return err
				}
			}
		}
		return replaceSummaries(tx, batch.ID, batch.Summaries)
	})
}

func (r *Repository) Get(ctx context.Context, id string) (bench.Batch, error) {
	db := r.db.WithContext(ctx)
	var record batchRecord
	if err := db.First(&record, "id = ?", id).Error; err != nil {
		return bench.Batch{}, notFound(id, err)
	}
	batch, err := fromBatchRecord(record)
	if err != nil {
		return bench.Batch{}, err
	}
	if err := loadChildren(db, &batch); err != nil {
		return bench.Batch{}, err
	}
	return batch, nil
}

func (r *Repository) List(ctx context.Context) ([]bench.Batch, error) {
	db := r.db.WithContext(ctx)
	var records []batchRecord
	if err := db.Order("created_at DESC").Order("id DESC").Find(&records).Error; err != nil {
		return nil, fmt.Errorf("list batches: %w", err)
	}
	batches := make([]bench.Batch, 0, len(records))
	for _, record := range records {
		batch, err := fromBatchRecord(record)
		if err != nil {
			return nil, err
		}
		if err := loadChildren(db, &batch); err != nil {
			return nil, err
		}
		batches = append(batches, batch)
	}
	return batches, nil
}

func (r *Repository) UpdateProgress(ctx context.Context, id string, completed int) error {
	return r.update(ctx, id, map[string]any{
		"completed_tasks": gorm.Expr("GREATEST(completed_tasks, ?)", completed),
	})
}

func (r *Repository) AppendResult(ctx context.Context, id string, result bench.RunResult) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := exists(tx, id); err != nil {
			return err
		}
		var seq int
		if err := tx.Model(&runRecord{}).
			Where("batch_id = ? AND model_name = ?", id, result.Model).
			Select("COALESCE(MAX(seq), 0) + 1").
			Scan(&seq).Error; err != nil {
			return fmt.Errorf("next run sequence: %w", err)
		}
		if err := insertRun(tx, id, seq, result); err != nil {
			return err
		}
		seen := result.CreatedAt
		if seen.IsZero() {
			seen = time.Now()
		}
		return touchModels(tx, []string{result.Model}, seen)
	})
}

func (r *Repository) SetSummaries(ctx context.Context, id string, summaries map[string]bench.ModelSummary) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := exists(tx, id); err != nil {
			return err
		}
		return replaceSummaries(tx, id, summaries)
	})
}

func (r *Repository) SetPersonaCards(ctx context.Context, id string, cards map[string]bench.PersonaCard) error {
	record, err := toBatchRecord(bench.Batch{PersonaCards: cards})
	if err != nil {
		return err
	}
	return r.update(ctx, id, map[string]any{"persona_cards_json": record.PersonaCardsJSON})
}

func (r *Repository) Complete(ctx context.Context, id string, at time.Time) error {
	at = at.UTC()
	return r.update(ctx, id, map[string]any{
		"status":       string(bench.BatchCompleted),
		"completed_at": &at,
	})
}

func (r *Repository) Fail(ctx context.Context, id string, message string, at time.Time) error {
	at = at.UTC()
	return r.update(ctx, id, map[string]any{
		"status":       string(bench.BatchError),
		"error":        message,
		"completed_at": &at,
	})
}

// Close releases the underlying connection pool.
func (r *Repository) Close() error {
	sqlDB, err := r.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// update applies values to one batch. MySQL reports zero affected rows for
// no-op updates, so existence is checked first.
func (r *Repository) update(ctx context.Context, id string, values map[string]any) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := exists(tx, id); err != nil {
			return err
		}
		if err := tx.Model(&batchRecord{}).Where("id = ?", id).Updates(values).Error; err != nil {
			return fmt.Errorf("update batch %s: %w", id, err)
		}
		return nil
	})
}

func exists(tx *gorm.DB, id string) error {
	var count int64
	if err := tx.Model(&batchRecord{}).Where("id = ?", id).Count(&count).Error; err != nil {
		return fmt.Errorf("lookup batch %s: %w", id, err)
	}
	if count == 0 {
		return fmt.Errorf("%s: %w", id, store.ErrNotFound)
	}
	return nil
}

func insertRun(tx *gorm.DB, batchID string, seq int, result bench.RunResult) error {
	record, err := toRunRecord(batchID, seq, result)
	if err != nil {
		return err
	}
	if record.RunID == "" {
		record.RunID = uuid.NewString()
	}
	if err := tx.Create(&record).Error; err != nil {
		return fmt.Errorf("insert run %s: %w", record.RunID, err)
	}
	return nil
}

func replaceSummaries(tx *gorm.DB, batchID string, summaries map[string]bench.ModelSummary) error {
	if err := tx.Where("batch_id = ?", batchID).Delete(&summaryRecord{}).Error; err != nil {
		return fmt.Errorf("clear summaries: %w", err)
	}
	if len(summaries) == 0 {
		return nil
	}
	records := make([]summaryRecord, 0, len(summaries))
	for model, summary := range summaries {
		summary.Model = model
		records = append(records, toSummaryRecord(batchID, summary))
	}
	if err := tx.Create(&records).Error; err != nil {
		return fmt.Errorf("insert summaries: %w", err)
	}
	return nil
}

func touchModels(tx *gorm.DB, models []string, at time.Time) error {
	if len(models) == 0 {
		return nil
	}
	at = at.UTC()
	records := make([]modelRecord, 0, len(models))
	seen := make(map[string]bool, len(models))
	for _, name := range models {
		if seen[name] {
			continue
		}
		seen[name] = true
		records = append(records, modelRecord{Name: name, FirstSeenAt: at, LastSeenAt: at})
	}
	err := tx.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "name"}},
		DoUpdates: clause.AssignmentColumns([]string{"last_seen_at"}),
	}).Create(&records).Error
	if err != nil {
		return fmt.Errorf("record models: %w", err)
	}
	return nil
}

func loadChildren(db *gorm.DB, batch *bench.Batch) error {
	var runs []runRecord
	if err := db.Where("batch_id = ?", batch.ID).Order("model_name").Order("seq").Find(&runs).Error; err != nil {
		return fmt.Errorf("load runs for %s: %w", batch.ID, err)
	}
	for _, record := range runs {
		result, err := fromRunRecord(record)
		if err != nil {
			return err
		}
		batch.Results[record.ModelName] = append(batch.Results[record.ModelName], result)
	}
	var summaries []summaryRecord
	if err := db.Where("batch_id = ?", batch.ID).Find(&summaries).Error; err != nil {
		return fmt.Errorf("load summaries for %s: %w", batch.ID, err)
	}
	for _, record := range summaries {
		batch.Summaries[record.ModelName] = fromSummaryRecord(record)
	}
	return nil
}

func notFound(id string, err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("%s: %w", id, store.ErrNotFound)
	}
	return fmt.Errorf("load batch %s: %w", id, err)
}
