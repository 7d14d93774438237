package strategy

import (
	"context"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/fabricesemti80/azure-sql-datamover-sub000/internal/naming"
	"github.com/fabricesemti80/azure-sql-datamover-sub000/model"
)

// Uploader stages a local artifact so a Managed Instance can restore it
// from a URL.
type Uploader interface {
	Upload(ctx context.Context, target model.StorageTarget, blobName, localPath string) (string, error)
}

type importProcedure func(ctx context.Context, record *model.OperationRecord, localPath string) error

// Importer dispatches a record and a local artifact to the import
// procedure for the record's deployment type, with the format inferred
// from the artifact's file extension.
type Importer struct {
	procedures map[dispatchKey]importProcedure
	logger     log.FieldLogger
}

func NewImporter(packageEngine PackageEngine, sqlEngine SQLEngine, uploader Uploader, logger log.FieldLogger) *Importer {
	i := &Importer{logger: logger}

	bacpacImport := func(ctx context.Context, record *model.OperationRecord, localPath string) error {
		server := naming.DeriveServerAddress(record.DestinationServer)
		return packageEngine.Import(ctx, localPath, server, record.DestinationCredentials, record.DatabaseName)
	}

	// Managed Instance restores only from a URL, never a local path, so a
	// BAK import stages the artifact first.
	bakRestoreImport := func(ctx context.Context, record *model.OperationRecord, localPath string) error {
		if record.Storage.Account == "" || record.Storage.Container == "" || record.Storage.AccessKey == "" {
			return &model.UnsupportedError{
				Reason: "a BAK import to a Managed Instance requires storage account fields to stage the artifact",
			}
		}

		blobName := naming.DeriveBlobName(record.OperationID, record.DatabaseName, time.Now(), model.BackupFormatBak)
		blobURL, err := uploader.Upload(ctx, record.Storage, blobName, localPath)
		if err != nil {
			return err
		}

		server := naming.DeriveServerAddress(record.DestinationServer)
		return sqlEngine.RunRestoreFromURL(ctx, server, record.DestinationCredentials, record.DatabaseName, blobURL)
	}

	unimplemented := func(ctx context.Context, record *model.OperationRecord, localPath string) error {
		return &model.UnsupportedError{
			Reason: "import is not implemented for deployment type " + string(record.DeploymentType),
		}
	}

	i.procedures = map[dispatchKey]importProcedure{
		{model.DeploymentTypeAzurePaaS, model.BackupFormatBacpac}: bacpacImport,
		{model.DeploymentTypeAzureMI, model.BackupFormatBacpac}:   bacpacImport,
		{model.DeploymentTypeAzureMI, model.BackupFormatBak}:      bakRestoreImport,
		{model.DeploymentTypeAzureIaaS, model.BackupFormatBacpac}: unimplemented,
		{model.DeploymentTypeAzureIaaS, model.BackupFormatBak}:    unimplemented,
	}

	return i
}

// Import consumes the local artifact at localPath. An artifact extension
// the deployment type cannot consume is an UnsupportedError, never a
// silent default; unrecognized deployment types fall back to the AzurePaaS
// bacpac procedure.
func (i *Importer) Import(ctx context.Context, record *model.OperationRecord, localPath string) error {
	if record.IntermediateServer != "" {
		// Cleaning memory-optimized objects through an intermediate server
		// before restoring to a General Purpose tier was never implemented.
		return &model.UnsupportedError{
			Reason: "intermediate server cleanup is not supported",
		}
	}

	format, ok := model.FormatFromPath(localPath)
	if !ok {
		return &model.UnsupportedError{
			Reason: "artifact " + localPath + " has an unrecognized extension",
		}
	}

	deployment := record.DeploymentType.Normalized()

	procedure, ok := i.procedures[dispatchKey{deployment, format}]
	if !ok {
		if format != model.BackupFormatBacpac {
			return &model.UnsupportedError{
				Reason: "deployment type " + string(deployment) + " cannot import " + string(format) + " artifacts",
			}
		}
		procedure = i.procedures[dispatchKey{model.DeploymentTypeAzurePaaS, model.BackupFormatBacpac}]
	}

	i.logger.WithFields(log.Fields{
		"database":   record.DatabaseName,
		"deployment": deployment,
		"format":     format,
	}).Info("Importing database")

	return procedure(ctx, record, localPath)
}
