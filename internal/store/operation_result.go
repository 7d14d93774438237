package store

import (
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/fabricesemti80/azure-sql-datamover-sub000/model"
)

const operationResultTable = "OperationResult"

var operationResultColumns = []string{
	"OperationID", "DatabaseName", "State", "Success", "FailureStage", "DurationMillis", "Message", "CreateAt",
}

// RecordOperationResult appends one result row to the history.
func (sqlStore *SQLStore) RecordOperationResult(result *model.OperationResult) error {
	_, err := sq.
		Insert(operationResultTable).
		SetMap(map[string]interface{}{
			"ID":             uuid.NewString(),
			"OperationID":    result.OperationID,
			"DatabaseName":   result.DatabaseName,
			"State":          string(result.State),
			"Success":        result.Success,
			"FailureStage":   string(result.FailureStage),
			"DurationMillis": result.Duration.Milliseconds(),
			"Message":        result.Message,
			"CreateAt":       time.Now().UnixMilli(),
		}).
		RunWith(sqlStore.db).
		Exec()
	if err != nil {
		return errors.Wrap(err, "failed to record operation result")
	}

	return nil
}

// GetOperationResults returns the recorded results, newest first.
func (sqlStore *SQLStore) GetOperationResults() ([]*model.OperationResult, error) {
	rows, err := sq.
		Select(operationResultColumns...).
		From(operationResultTable).
		OrderBy("CreateAt DESC").
		RunWith(sqlStore.db).
		Query()
	if err != nil {
		return nil, errors.Wrap(err, "failed to query operation results")
	}
	defer rows.Close()

	var results []*model.OperationResult
	for rows.Next() {
		var result model.OperationResult
		var state, failureStage string
		var durationMillis, createAt int64
		err := rows.Scan(
			&result.OperationID, &result.DatabaseName, &state, &result.Success,
			&failureStage, &durationMillis, &result.Message, &createAt,
		)
		if err != nil {
			return nil, errors.Wrap(err, "failed to scan operation result")
		}
		result.State = model.OperationState(state)
		result.FailureStage = model.Stage(failureStage)
		result.Duration = time.Duration(durationMillis) * time.Millisecond
		results = append(results, &result)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "failed to iterate operation results")
	}

	return results, nil
}
