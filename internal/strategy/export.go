// Package strategy selects and runs the export or import procedure for a
// (deployment type, artifact format) pair. Dispatch is a lookup table with
// an explicit default entry, so supporting a new deployment type is a table
// edit rather than a control-flow edit.
package strategy

import (
	"context"
	"os"
	"time"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"github.com/fabricesemti80/azure-sql-datamover-sub000/internal/naming"
	"github.com/fabricesemti80/azure-sql-datamover-sub000/model"
)

// PackageEngine is the external bacpac export/import executable.
type PackageEngine interface {
	Export(ctx context.Context, server string, credentials model.Credentials, database, targetPath string) error
	Import(ctx context.Context, sourcePath, server string, credentials model.Credentials, database string) error
}

// SQLEngine issues native backup and restore commands.
type SQLEngine interface {
	RunBackup(ctx context.Context, server string, credentials model.Credentials, database, targetPath string, kind model.BackupKind, compression bool) error
	RunRestoreFromURL(ctx context.Context, server string, credentials model.Credentials, database, blobURL string) error
}

type dispatchKey struct {
	deployment model.DeploymentType
	format     model.BackupFormat
}

type exportProcedure func(ctx context.Context, record *model.OperationRecord, targetPath string) error

// Exporter dispatches a record to the export procedure for its deployment
// type and format, producing a local artifact file.
type Exporter struct {
	procedures map[dispatchKey]exportProcedure
	logger     log.FieldLogger
}

func NewExporter(packageEngine PackageEngine, sqlEngine SQLEngine, logger log.FieldLogger) *Exporter {
	e := &Exporter{logger: logger}

	bacpacExport := func(ctx context.Context, record *model.OperationRecord, targetPath string) error {
		server := naming.DeriveServerAddress(record.SourceServer)
		return packageEngine.Export(ctx, server, record.SourceCredentials, record.DatabaseName, targetPath)
	}
	bakExport := func(ctx context.Context, record *model.OperationRecord, targetPath string) error {
		server := naming.DeriveServerAddress(record.SourceServer)
		return sqlEngine.RunBackup(ctx, server, record.SourceCredentials,
			record.DatabaseName, targetPath, record.BackupKind, record.Compression)
	}
	unimplemented := func(ctx context.Context, record *model.OperationRecord, targetPath string) error {
		return &model.UnsupportedError{
			Reason: "export is not implemented for deployment type " + string(record.DeploymentType),
		}
	}

	e.procedures = map[dispatchKey]exportProcedure{
		{model.DeploymentTypeAzurePaaS, model.BackupFormatBacpac}: bacpacExport,
		{model.DeploymentTypeAzureMI, model.BackupFormatBacpac}:   bacpacExport,
		{model.DeploymentTypeAzureMI, model.BackupFormatBak}:      bakExport,
		{model.DeploymentTypeAzureIaaS, model.BackupFormatBacpac}: unimplemented,
		{model.DeploymentTypeAzureIaaS, model.BackupFormatBak}:    unimplemented,
	}

	return e
}

// Export runs the selected procedure and returns the produced artifact.
// Unrecognized deployment types fall back to the AzurePaaS bacpac
// procedure; AzurePaaS itself always exports bacpac regardless of the
// configured extension.
func (e *Exporter) Export(ctx context.Context, record *model.OperationRecord, targetPath string) (*model.Artifact, error) {
	deployment := record.DeploymentType.Normalized()

	format := model.BackupFormatBacpac
	if deployment != model.DeploymentTypeAzurePaaS {
		if inferred, ok := model.FormatFromPath(targetPath); ok {
			format = inferred
		}
	}
	if format == model.BackupFormatBacpac {
		targetPath = naming.ReplaceExtension(targetPath, model.BackupFormatBacpac)
	}

	procedure, ok := e.procedures[dispatchKey{deployment, format}]
	if !ok {
		procedure = e.procedures[dispatchKey{model.DeploymentTypeAzurePaaS, model.BackupFormatBacpac}]
	}

	e.logger.WithFields(log.Fields{
		"database":   record.DatabaseName,
		"deployment": deployment,
		"format":     format,
	}).Info("Exporting database")

	if err := procedure(ctx, record, targetPath); err != nil {
		return nil, err
	}

	info, err := os.Stat(targetPath)
	if err != nil {
		return nil, &model.ExternalEngineError{
			Engine: "export",
			Err:    errors.Wrapf(err, "export completed but artifact %s does not exist", targetPath),
		}
	}

	return &model.Artifact{
		Format:       format,
		Location:     targetPath,
		SizeBytes:    info.Size(),
		LastModified: time.Now(),
		LogicalName:  record.DatabaseName,
	}, nil
}
