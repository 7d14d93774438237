package pipeline

import (
	log "github.com/sirupsen/logrus"

	"github.com/fabricesemti80/azure-sql-datamover-sub000/model"
)

// Outcome values reported for each stage transition.
const (
	OutcomeOK      = "ok"
	OutcomeFailed  = "failed"
	OutcomeSkipped = "skipped"
	OutcomeWarning = "warning"
)

// Reporter receives one event per stage transition. Formatting and
// persistence are the sink's concern, which keeps the pipeline free of
// console state and unit-testable without I/O.
type Reporter interface {
	Emit(stage model.Stage, operationID, outcome, message string)
}

// LogReporter emits stage events as structured log entries.
type LogReporter struct {
	logger log.FieldLogger
}

func NewLogReporter(logger log.FieldLogger) *LogReporter {
	return &LogReporter{logger: logger}
}

func (r *LogReporter) Emit(stage model.Stage, operationID, outcome, message string) {
	entry := r.logger.WithFields(log.Fields{
		"stage":     stage,
		"operation": operationID,
		"outcome":   outcome,
	})

	switch outcome {
	case OutcomeFailed:
		entry.Error(message)
	case OutcomeWarning:
		entry.Warn(message)
	default:
		entry.Info(message)
	}
}
