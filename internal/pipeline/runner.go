package pipeline

import (
	"context"

	log "github.com/sirupsen/logrus"

	"github.com/fabricesemti80/azure-sql-datamover-sub000/model"
)

// ResultStore persists per-record results for later inspection.
type ResultStore interface {
	RecordOperationResult(result *model.OperationResult) error
}

// Runner processes a batch of records sequentially, one record start to
// terminal state before the next begins, and aggregates the results.
type Runner struct {
	pipeline *Pipeline
	store    ResultStore
	logger   log.FieldLogger
}

// NewRunner creates a Runner. The store may be nil, in which case results
// are only aggregated in memory.
func NewRunner(p *Pipeline, store ResultStore, logger log.FieldLogger) *Runner {
	return &Runner{
		pipeline: p,
		store:    store,
		logger:   logger,
	}
}

// Run processes every record and returns one result per record, in input
// order. A failing record never prevents the records after it from being
// attempted.
func (r *Runner) Run(ctx context.Context, records []*model.OperationRecord) []*model.OperationResult {
	results := make([]*model.OperationResult, 0, len(records))

	for _, record := range records {
		result := r.pipeline.Process(ctx, record)
		results = append(results, result)

		if r.store != nil {
			if err := r.store.RecordOperationResult(result); err != nil {
				r.logger.WithError(err).Warnf("Failed to persist result for operation %s", result.OperationID)
			}
		}
	}

	failed := 0
	for _, result := range results {
		if !result.Success {
			failed++
		}
	}
	r.logger.Infof("Batch finished: %d records, %d failed", len(results), failed)

	return results
}
