package gormstore

import (
	"encoding/json"
	"fmt"
	"time"

	"hermitbench/internal/bench"
)

type batchRecord struct {
	ID               string `gorm:"primaryKey;type:varchar(64)"`
	Status           string `gorm:"type:varchar(16);index;not null"`
	TotalTasks       int
	CompletedTasks   int
	ConfigJSON       string    `gorm:"type:text;not null"`
	PersonaCardsJSON string    `gorm:"type:longtext"`
	Error            string    `gorm:"type:text"`
	CreatedAt        time.Time `gorm:"index"`
	CompletedAt      *time.Time
}

func (batchRecord) TableName() string { return "batches" }

type runRecord struct {
	ID               uint   `gorm:"primaryKey"`
	RunID            string `gorm:"type:varchar(64);uniqueIndex"`
	BatchID          string `gorm:"type:varchar(64);not null;uniqueIndex:idx_runs_batch_model_seq,priority:1"`
	ModelName        string `gorm:"type:varchar(255);not null;uniqueIndex:idx_runs_batch_model_seq,priority:2"`
	Seq              int    `gorm:"not null;uniqueIndex:idx_runs_batch_model_seq,priority:3"`
	TurnsCount       int
	ComplianceRate   *float64
	AutonomyScore    *float64
	MirrorTestPassed *bool
	ExplorationStyle string `gorm:"type:varchar(255)"`
	ResultJSON       string `gorm:"type:longtext;not null"`
	CreatedAt        time.Time
}

func (runRecord) TableName() string { return "runs" }

type summaryRecord struct {
	ID                 uint   `gorm:"primaryKey"`
	BatchID            string `gorm:"type:varchar(64);not null;uniqueIndex:idx_summaries_batch_model,priority:1"`
	ModelName          string `gorm:"type:varchar(255);not null;uniqueIndex:idx_summaries_batch_model,priority:2"`
	TotalRuns          int
	AvgComplianceRate  float64
	AvgFailures        float64
	AvgMalformedBraces float64
	MirrorTestPassRate float64
	AvgAutonomyScore   float64
	ThematicSynthesis  string `gorm:"type:longtext"`
}

func (summaryRecord) TableName() string { return "model_summaries" }

// modelRecord tracks every model that appeared in a batch.
type modelRecord struct {
	Name        string `gorm:"primaryKey;type:varchar(255)"`
	FirstSeenAt time.Time
	LastSeenAt  time.Time
}

func (modelRecord) TableName() string { return "models" }

func toBatchRecord(batch bench.Batch) (batchRecord, error) {
	config, err := json.Marshal(batch.Config)
	if err != nil {
		return batchRecord{}, fmt.Errorf("encode config: %w", err)
	}
	record := batchRecord{
		ID:             batch.ID,
		Status:         string(batch.Status),
		TotalTasks:     batch.TotalTasks,
		CompletedTasks: batch.CompletedTasks,
		ConfigJSON:     string(config),
		Error:          batch.Error,
		CreatedAt:      batch.CreatedAt.UTC(),
		CompletedAt:    batch.CompletedAt,
	}
	if len(batch.PersonaCards) > 0 {
		cards, err := json.Marshal(batch.PersonaCards)
		if err != nil {
			return batchRecord{}, fmt.Errorf("encode persona cards: %w", err)
		}
		record.PersonaCardsJSON = string(cards)
	}
	return record, nil
}

func fromBatchRecord(record batchRecord) (bench.Batch, error) {
	batch := bench.Batch{
		ID:             record.ID,
		Status:         bench.BatchStatus(record.Status),
		TotalTasks:     record.TotalTasks,
		CompletedTasks: record.CompletedTasks,
		Error:          record.Error,
		CreatedAt:      record.CreatedAt.UTC(),
		Summaries:      map[string]bench.ModelSummary{},
		PersonaCards:   map[string]bench.PersonaCard{},
	}
	if record.CompletedAt != nil {
		at := record.CompletedAt.UTC()
		batch.CompletedAt = &at
	}
	if err := json.Unmarshal([]byte(record.ConfigJSON), &batch.Config); err != nil {
		return bench.Batch{}, fmt.Errorf("decode config: %w", err)
	}
	batch.Results = make(map[string][]bench.RunResult, len(batch.Config.Models))
	for _, model := range batch.Config.Models {
		batch.Results[model] = []bench.RunResult{}
	}
	if record.PersonaCardsJSON != "" {
		if err := json.Unmarshal([]byte(record.PersonaCardsJSON), &batch.PersonaCards); err != nil {
			return bench.Batch{}, fmt.Errorf("decode persona cards: %w", err)
		}
	}
	return batch, nil
}

func toRunRecord(batchID string, seq int, result bench.RunResult) (runRecord, error) {
	payload, err := json.Marshal(result)
	if err != nil {
		return runRecord{}, fmt.Errorf("encode run: %w", err)
	}
	record := runRecord{
		RunID:      result.RunID,
		BatchID:    batchID,
		ModelName:  result.Model,
		Seq:        seq,
		TurnsCount: result.TurnCount,
		ResultJSON: string(payload),
		CreatedAt:  result.CreatedAt.UTC(),
	}
	if m := result.Evaluation; m != nil {
		compliance, autonomy, mirror := m.ComplianceRate, m.AutonomyScore, m.MirrorTestPassed
		record.ComplianceRate = &compliance
		record.AutonomyScore = &autonomy
		record.MirrorTestPassed = &mirror
		record.ExplorationStyle = m.ExplorationStyle
	}
	return record, nil
}

func fromRunRecord(record runRecord) (bench.RunResult, error) {
	var result bench.RunResult
	if err := json.Unmarshal([]byte(record.ResultJSON), &result); err != nil {
		return bench.RunResult{}, fmt.Errorf("decode run %s: %w", record.RunID, err)
	}
	return result, nil
}

func toSummaryRecord(batchID string, summary bench.ModelSummary) summaryRecord {
	return summaryRecord{
		BatchID:            batchID,
		ModelName:          summary.Model,
		TotalRuns:          summary.TotalRuns,
		AvgComplianceRate:  summary.AvgComplianceRate,
		AvgFailures:        summary.AvgFailures,
		AvgMalformedBraces: summary.AvgMalformedBraces,
		MirrorTestPassRate: summary.MirrorTestPassRate,
		AvgAutonomyScore:   summary.AvgAutonomyScore,
		ThematicSynthesis:  summary.ThematicSynthesis,
	}
}

func fromSummaryRecord(record summaryRecord) bench.ModelSummary {
	return bench.ModelSummary{
		Model:              record.ModelName,
		TotalRuns:          record.TotalRuns,
		AvgComplianceRate:  record.AvgComplianceRate,
		AvgFailures:        record.AvgFailures,
		AvgMalformedBraces: record.AvgMalformedBraces,
		MirrorTestPassRate: record.MirrorTestPassRate,
		AvgAutonomyScore:   record.AvgAutonomyScore,
		ThematicSynthesis:  record.ThematicSynthesis,
	}
}
