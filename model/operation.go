package model

import (
	"encoding/json"
	"io"
	"time"

	"github.com/pkg/errors"
)

// DeploymentType identifies the target database platform variant, which
// determines the export/import procedure used for an operation.
type DeploymentType string

const (
	DeploymentTypeAzurePaaS DeploymentType = "AzurePaaS"
	DeploymentTypeAzureMI   DeploymentType = "AzureMI"
	DeploymentTypeAzureIaaS DeploymentType = "AzureIaaS"
)

// ParseDeploymentType maps a raw value to a known deployment type,
// defaulting to AzurePaaS when the value is empty or unrecognized.
func ParseDeploymentType(raw string) DeploymentType {
	switch DeploymentType(raw) {
	case DeploymentTypeAzureMI:
		return DeploymentTypeAzureMI
	case DeploymentTypeAzureIaaS:
		return DeploymentTypeAzureIaaS
	default:
		return DeploymentTypeAzurePaaS
	}
}

// Normalized returns the deployment type itself when known, or the
// AzurePaaS default for anything unrecognized.
func (t DeploymentType) Normalized() DeploymentType {
	switch t {
	case DeploymentTypeAzureMI, DeploymentTypeAzureIaaS:
		return t
	default:
		return DeploymentTypeAzurePaaS
	}
}

// AcceptableFormats lists the backup formats a deployment type can consume.
func (t DeploymentType) AcceptableFormats() []BackupFormat {
	switch t.Normalized() {
	case DeploymentTypeAzureMI, DeploymentTypeAzureIaaS:
		return []BackupFormat{BackupFormatBacpac, BackupFormatBak}
	default:
		return []BackupFormat{BackupFormatBacpac}
	}
}

// BackupKind selects the native backup variant issued for BAK exports.
type BackupKind string

const (
	BackupKindFull         BackupKind = "Full"
	BackupKindDifferential BackupKind = "Differential"
	BackupKindLog          BackupKind = "Log"
)

// ParseBackupKind defaults to a full backup for empty or unknown values.
func ParseBackupKind(raw string) BackupKind {
	switch BackupKind(raw) {
	case BackupKindDifferential:
		return BackupKindDifferential
	case BackupKindLog:
		return BackupKindLog
	default:
		return BackupKindFull
	}
}

// Credentials is a SQL login for a source or destination server.
type Credentials struct {
	Username string
	Password string
}

// StorageTarget identifies the blob container used as the staging area.
type StorageTarget struct {
	Account   string
	Container string
	AccessKey string
}

// OperationRecord is one declarative unit of migration work: one database,
// export, import, or both. Records are constructed once per input row and
// never mutated while being processed.
type OperationRecord struct {
	OperationID    string
	DatabaseName   string
	DeploymentType DeploymentType

	ExportEnabled  bool
	ImportEnabled  bool
	RemoveTempFile bool

	SourceServer           string
	SourceCredentials      Credentials
	DestinationServer      string
	DestinationCredentials Credentials

	Storage StorageTarget

	LocalArtifactPath  string
	IntermediateServer string
	DataFileLocation   string
	LogFileLocation    string

	BackupKind  BackupKind
	Compression bool
}

// IsNoOp reports whether the record requests no work at all. Such records
// are skipped without error.
func (r *OperationRecord) IsNoOp() bool {
	return !r.ExportEnabled && !r.ImportEnabled
}

// NewOperationRecordsFromReader will create a slice of OperationRecords from an
// io.Reader with JSON data.
func NewOperationRecordsFromReader(reader io.Reader) ([]*OperationRecord, error) {
	records := []*OperationRecord{}
	err := json.NewDecoder(reader).Decode(&records)
	if err != nil && err != io.EOF {
		return nil, errors.Wrap(err, "failed to decode operation records")
	}

	return records, nil
}

// Stage names a step of the operation pipeline, used for reporting.
type Stage string

const (
	StageFieldValidation Stage = "field-validation"
	StagePreflight       Stage = "preflight"
	StageExport          Stage = "export"
	StageUpload          Stage = "upload"
	StageLocate          Stage = "locate"
	StageDownload        Stage = "download"
	StageImport          Stage = "import"
	StageCleanup         Stage = "cleanup"
)

// OperationState is the terminal state a record reaches.
type OperationState string

const (
	OperationStateDone             OperationState = "done"
	OperationStateSkippedNoAction  OperationState = "skipped-no-action"
	OperationStateFailedValidation OperationState = "failed-validation"
	OperationStateFailedPreflight  OperationState = "failed-preflight"
	OperationStateFailedExport     OperationState = "failed-export"
	OperationStateFailedUpload     OperationState = "failed-upload"
	OperationStateFailedLocate     OperationState = "failed-locate"
	OperationStateFailedDownload   OperationState = "failed-download"
	OperationStateFailedImport     OperationState = "failed-import"
)

// OperationResult is produced exactly once per record and aggregated for
// the batch summary.
type OperationResult struct {
	OperationID  string
	DatabaseName string
	State        OperationState
	Success      bool

	// FailureStage is empty when the record succeeded or was skipped.
	FailureStage Stage
	Duration     time.Duration
	Message      string
}
