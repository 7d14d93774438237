// Package preflight validates operation records before any destructive or
// costly work starts: first pure field-presence checks, then live
// reachability checks against the endpoints the record will touch.
package preflight

import (
	"context"
	"path/filepath"

	"github.com/hashicorp/go-multierror"
	log "github.com/sirupsen/logrus"

	"github.com/fabricesemti80/azure-sql-datamover-sub000/internal/naming"
	"github.com/fabricesemti80/azure-sql-datamover-sub000/model"
)

// minFreeDiskBytes is the staging space required before an export is
// allowed to start writing local files.
const minFreeDiskBytes uint64 = 10 << 30

// DatabaseProber runs a connectivity probe against a SQL endpoint.
type DatabaseProber interface {
	RunConnectivityProbe(ctx context.Context, server string, credentials model.Credentials, database string) error
}

// StorageChecker verifies that the staging container is accessible.
type StorageChecker interface {
	CheckContainer(ctx context.Context, target model.StorageTarget) error
}

// ValidateFields checks that the record carries every field required by
// the actions it requests. It performs no I/O and returns a
// ValidationError naming all missing fields at once.
func ValidateFields(record *model.OperationRecord) error {
	var missing []string

	require := func(name, value string) {
		if value == "" {
			missing = append(missing, name)
		}
	}

	require("OperationID", record.OperationID)
	require("DatabaseName", record.DatabaseName)
	require("StorageAccount", record.Storage.Account)
	require("StorageContainer", record.Storage.Container)
	require("StorageAccessKey", record.Storage.AccessKey)

	if record.ExportEnabled {
		require("SourceServer", record.SourceServer)
		require("SourceUser", record.SourceCredentials.Username)
		require("SourcePassword", record.SourceCredentials.Password)
		require("LocalArtifactPath", record.LocalArtifactPath)
	}

	if record.ImportEnabled {
		require("DestinationServer", record.DestinationServer)
		require("DestinationUser", record.DestinationCredentials.Username)
		require("DestinationPassword", record.DestinationCredentials.Password)
	}

	if len(missing) > 0 {
		return &model.ValidationError{MissingFields: missing}
	}

	return nil
}

// Validator runs the live reachability checks that follow field validation.
type Validator struct {
	prober   DatabaseProber
	storage  StorageChecker
	minFree  uint64
	diskFree func(path string) (uint64, error)
	logger   log.FieldLogger
}

func NewValidator(prober DatabaseProber, storage StorageChecker, logger log.FieldLogger) *Validator {
	return &Validator{
		prober:   prober,
		storage:  storage,
		minFree:  minFreeDiskBytes,
		diskFree: diskFreeBytes,
		logger:   logger,
	}
}

// Check runs every reachability probe the record's actions require. The
// checks are independent and all of them run; failures are aggregated
// rather than short-circuited so the operator sees the full picture in one
// pass.
func (v *Validator) Check(ctx context.Context, record *model.OperationRecord) error {
	var result *multierror.Error

	if record.ExportEnabled {
		server := naming.DeriveServerAddress(record.SourceServer)
		if err := v.prober.RunConnectivityProbe(ctx, server, record.SourceCredentials, record.DatabaseName); err != nil {
			v.logger.WithError(err).Warnf("Source server %s is not reachable", server)
			result = multierror.Append(result, err)
		}
	}

	if record.ImportEnabled {
		server := naming.DeriveServerAddress(record.DestinationServer)
		if err := v.prober.RunConnectivityProbe(ctx, server, record.DestinationCredentials, record.DatabaseName); err != nil {
			v.logger.WithError(err).Warnf("Destination server %s is not reachable", server)
			result = multierror.Append(result, err)
		}
	}

	if record.ExportEnabled || record.ImportEnabled {
		if err := v.storage.CheckContainer(ctx, record.Storage); err != nil {
			v.logger.WithError(err).Warn("Staging container is not accessible")
			result = multierror.Append(result, err)
		}
	}

	if record.ExportEnabled {
		if err := v.checkDiskSpace(record.LocalArtifactPath); err != nil {
			v.logger.WithError(err).Warn("Staging disk space check failed")
			result = multierror.Append(result, err)
		}
	}

	return result.ErrorOrNil()
}

// checkDiskSpace verifies the staging directory has room for the export.
// Only export writes large local files before anything is uploaded.
func (v *Validator) checkDiskSpace(artifactPath string) error {
	dir := filepath.Dir(artifactPath)

	free, err := v.diskFree(dir)
	if err != nil {
		return &model.ResourceError{Path: dir, RequiredBytes: v.minFree}
	}

	if free < v.minFree {
		return &model.ResourceError{
			Path:           dir,
			RequiredBytes:  v.minFree,
			AvailableBytes: free,
		}
	}

	return nil
}
