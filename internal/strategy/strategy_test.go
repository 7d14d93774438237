package strategy

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fabricesemti80/azure-sql-datamover-sub000/internal/testlib"
	"github.com/fabricesemti80/azure-sql-datamover-sub000/model"
)

type mockPackageEngine struct {
	exportCalls  int
	importCalls  int
	exportServer string
	importSource string
	err          error
}

func (m *mockPackageEngine) Export(ctx context.Context, server string, credentials model.Credentials, database, targetPath string) error {
	m.exportCalls++
	m.exportServer = server
	if m.err != nil {
		return m.err
	}
	return os.WriteFile(targetPath, []byte("artifact"), 0600)
}

func (m *mockPackageEngine) Import(ctx context.Context, sourcePath, server string, credentials model.Credentials, database string) error {
	m.importCalls++
	m.importSource = sourcePath
	return m.err
}

type mockSQLEngine struct {
	backupCalls  int
	restoreCalls int
	backupKind   model.BackupKind
	compression  bool
	restoreURL   string
	err          error
}

func (m *mockSQLEngine) RunBackup(ctx context.Context, server string, credentials model.Credentials, database, targetPath string, kind model.BackupKind, compression bool) error {
	m.backupCalls++
	m.backupKind = kind
	m.compression = compression
	if m.err != nil {
		return m.err
	}
	return os.WriteFile(targetPath, []byte("backup"), 0600)
}

func (m *mockSQLEngine) RunRestoreFromURL(ctx context.Context, server string, credentials model.Credentials, database, blobURL string) error {
	m.restoreCalls++
	m.restoreURL = blobURL
	return m.err
}

type mockUploader struct {
	uploadCalls int
	blobName    string
	err         error
}

func (m *mockUploader) Upload(ctx context.Context, target model.StorageTarget, blobName, localPath string) (string, error) {
	m.uploadCalls++
	m.blobName = blobName
	if m.err != nil {
		return "", m.err
	}
	return "https://acct.blob.core.windows.net/backups/" + blobName, nil
}

func exportRecord(deployment model.DeploymentType) *model.OperationRecord {
	return &model.OperationRecord{
		OperationID:       "001",
		DatabaseName:      "Sales",
		DeploymentType:    deployment,
		ExportEnabled:     true,
		SourceServer:      "src",
		SourceCredentials: model.Credentials{Username: "sa", Password: "secret"},
		Storage:           model.StorageTarget{Account: "acct", Container: "backups", AccessKey: "key"},
	}
}

func importRecord(deployment model.DeploymentType) *model.OperationRecord {
	return &model.OperationRecord{
		OperationID:            "001",
		DatabaseName:           "Sales",
		DeploymentType:         deployment,
		ImportEnabled:          true,
		DestinationServer:      "dst",
		DestinationCredentials: model.Credentials{Username: "sa", Password: "secret"},
		Storage:                model.StorageTarget{Account: "acct", Container: "backups", AccessKey: "key"},
	}
}

func TestExporterDispatch(t *testing.T) {
	t.Run("paas exports bacpac", func(t *testing.T) {
		packageEngine := &mockPackageEngine{}
		sqlEngine := &mockSQLEngine{}
		exporter := NewExporter(packageEngine, sqlEngine, testlib.MakeLogger(t))

		targetPath := filepath.Join(t.TempDir(), "001_Sales.bacpac")
		artifact, err := exporter.Export(context.Background(), exportRecord(model.DeploymentTypeAzurePaaS), targetPath)
		require.NoError(t, err)
		require.NotNil(t, artifact)

		assert.Equal(t, 1, packageEngine.exportCalls)
		assert.Equal(t, 0, sqlEngine.backupCalls)
		assert.Equal(t, "src.database.windows.net", packageEngine.exportServer)
		assert.Equal(t, model.BackupFormatBacpac, artifact.Format)
		assert.Equal(t, targetPath, artifact.Location)
		assert.Equal(t, "Sales", artifact.LogicalName)
		assert.Positive(t, artifact.SizeBytes)
	})

	t.Run("paas ignores bak extension and exports bacpac", func(t *testing.T) {
		packageEngine := &mockPackageEngine{}
		sqlEngine := &mockSQLEngine{}
		exporter := NewExporter(packageEngine, sqlEngine, testlib.MakeLogger(t))

		targetPath := filepath.Join(t.TempDir(), "001_Sales.bak")
		artifact, err := exporter.Export(context.Background(), exportRecord(model.DeploymentTypeAzurePaaS), targetPath)
		require.NoError(t, err)

		assert.Equal(t, 1, packageEngine.exportCalls)
		assert.Equal(t, 0, sqlEngine.backupCalls)
		assert.Equal(t, model.BackupFormatBacpac, artifact.Format)
		assert.Equal(t, ".bacpac", filepath.Ext(artifact.Location))
	})

	t.Run("managed instance bak uses native backup", func(t *testing.T) {
		packageEngine := &mockPackageEngine{}
		sqlEngine := &mockSQLEngine{}
		exporter := NewExporter(packageEngine, sqlEngine, testlib.MakeLogger(t))

		record := exportRecord(model.DeploymentTypeAzureMI)
		record.BackupKind = model.BackupKindDifferential
		record.Compression = true

		targetPath := filepath.Join(t.TempDir(), "001_Sales.bak")
		artifact, err := exporter.Export(context.Background(), record, targetPath)
		require.NoError(t, err)

		assert.Equal(t, 0, packageEngine.exportCalls)
		assert.Equal(t, 1, sqlEngine.backupCalls)
		assert.Equal(t, model.BackupKindDifferential, sqlEngine.backupKind)
		assert.True(t, sqlEngine.compression)
		assert.Equal(t, model.BackupFormatBak, artifact.Format)
	})

	t.Run("managed instance bacpac uses package engine", func(t *testing.T) {
		packageEngine := &mockPackageEngine{}
		sqlEngine := &mockSQLEngine{}
		exporter := NewExporter(packageEngine, sqlEngine, testlib.MakeLogger(t))

		targetPath := filepath.Join(t.TempDir(), "001_Sales.bacpac")
		_, err := exporter.Export(context.Background(), exportRecord(model.DeploymentTypeAzureMI), targetPath)
		require.NoError(t, err)

		assert.Equal(t, 1, packageEngine.exportCalls)
		assert.Equal(t, 0, sqlEngine.backupCalls)
	})

	t.Run("iaas is unsupported", func(t *testing.T) {
		packageEngine := &mockPackageEngine{}
		sqlEngine := &mockSQLEngine{}
		exporter := NewExporter(packageEngine, sqlEngine, testlib.MakeLogger(t))

		targetPath := filepath.Join(t.TempDir(), "001_Sales.bak")
		_, err := exporter.Export(context.Background(), exportRecord(model.DeploymentTypeAzureIaaS), targetPath)
		require.Error(t, err)
		assert.True(t, model.IsUnsupported(err))
		assert.Equal(t, 0, packageEngine.exportCalls)
		assert.Equal(t, 0, sqlEngine.backupCalls)
	})

	t.Run("unrecognized deployment type falls back to paas", func(t *testing.T) {
		packageEngine := &mockPackageEngine{}
		sqlEngine := &mockSQLEngine{}
		exporter := NewExporter(packageEngine, sqlEngine, testlib.MakeLogger(t))

		targetPath := filepath.Join(t.TempDir(), "001_Sales.bacpac")
		artifact, err := exporter.Export(context.Background(), exportRecord(model.DeploymentType("OnPrem")), targetPath)
		require.NoError(t, err)

		assert.Equal(t, 1, packageEngine.exportCalls)
		assert.Equal(t, model.BackupFormatBacpac, artifact.Format)
	})

	t.Run("engine failure is returned verbatim", func(t *testing.T) {
		engineErr := &model.ExternalEngineError{Engine: "sqlpackage", Output: "*** Error exporting database"}
		packageEngine := &mockPackageEngine{err: engineErr}
		sqlEngine := &mockSQLEngine{}
		exporter := NewExporter(packageEngine, sqlEngine, testlib.MakeLogger(t))

		targetPath := filepath.Join(t.TempDir(), "001_Sales.bacpac")
		_, err := exporter.Export(context.Background(), exportRecord(model.DeploymentTypeAzurePaaS), targetPath)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "*** Error exporting database")
	})
}

func TestImporterDispatch(t *testing.T) {
	makeArtifact := func(t *testing.T, name string) string {
		path := filepath.Join(t.TempDir(), name)
		require.NoError(t, os.WriteFile(path, []byte("artifact"), 0600))
		return path
	}

	t.Run("paas imports bacpac", func(t *testing.T) {
		packageEngine := &mockPackageEngine{}
		sqlEngine := &mockSQLEngine{}
		uploader := &mockUploader{}
		importer := NewImporter(packageEngine, sqlEngine, uploader, testlib.MakeLogger(t))

		localPath := makeArtifact(t, "001_Sales.bacpac")
		err := importer.Import(context.Background(), importRecord(model.DeploymentTypeAzurePaaS), localPath)
		require.NoError(t, err)

		assert.Equal(t, 1, packageEngine.importCalls)
		assert.Equal(t, localPath, packageEngine.importSource)
		assert.Equal(t, 0, uploader.uploadCalls)
	})

	t.Run("managed instance bak stages the artifact then restores from url", func(t *testing.T) {
		packageEngine := &mockPackageEngine{}
		sqlEngine := &mockSQLEngine{}
		uploader := &mockUploader{}
		importer := NewImporter(packageEngine, sqlEngine, uploader, testlib.MakeLogger(t))

		localPath := makeArtifact(t, "001_Sales.bak")
		err := importer.Import(context.Background(), importRecord(model.DeploymentTypeAzureMI), localPath)
		require.NoError(t, err)

		assert.Equal(t, 1, uploader.uploadCalls)
		assert.Equal(t, 1, sqlEngine.restoreCalls)
		assert.Equal(t, 0, packageEngine.importCalls)
		assert.Contains(t, sqlEngine.restoreURL, uploader.blobName)
	})

	t.Run("managed instance bak without storage fields is unsupported", func(t *testing.T) {
		packageEngine := &mockPackageEngine{}
		sqlEngine := &mockSQLEngine{}
		uploader := &mockUploader{}
		importer := NewImporter(packageEngine, sqlEngine, uploader, testlib.MakeLogger(t))

		record := importRecord(model.DeploymentTypeAzureMI)
		record.Storage = model.StorageTarget{}

		localPath := makeArtifact(t, "001_Sales.bak")
		err := importer.Import(context.Background(), record, localPath)
		require.Error(t, err)
		assert.True(t, model.IsUnsupported(err))

		// The record must fail before any staging or restore work starts.
		assert.Equal(t, 0, uploader.uploadCalls)
		assert.Equal(t, 0, sqlEngine.restoreCalls)
	})

	t.Run("paas cannot import bak", func(t *testing.T) {
		packageEngine := &mockPackageEngine{}
		sqlEngine := &mockSQLEngine{}
		uploader := &mockUploader{}
		importer := NewImporter(packageEngine, sqlEngine, uploader, testlib.MakeLogger(t))

		localPath := makeArtifact(t, "001_Sales.bak")
		err := importer.Import(context.Background(), importRecord(model.DeploymentTypeAzurePaaS), localPath)
		require.Error(t, err)
		assert.True(t, model.IsUnsupported(err))
	})

	t.Run("iaas is unsupported", func(t *testing.T) {
		packageEngine := &mockPackageEngine{}
		sqlEngine := &mockSQLEngine{}
		uploader := &mockUploader{}
		importer := NewImporter(packageEngine, sqlEngine, uploader, testlib.MakeLogger(t))

		localPath := makeArtifact(t, "001_Sales.bacpac")
		err := importer.Import(context.Background(), importRecord(model.DeploymentTypeAzureIaaS), localPath)
		require.Error(t, err)
		assert.True(t, model.IsUnsupported(err))
		assert.Equal(t, 0, packageEngine.importCalls)
	})

	t.Run("unrecognized extension is unsupported", func(t *testing.T) {
		packageEngine := &mockPackageEngine{}
		sqlEngine := &mockSQLEngine{}
		uploader := &mockUploader{}
		importer := NewImporter(packageEngine, sqlEngine, uploader, testlib.MakeLogger(t))

		localPath := makeArtifact(t, "001_Sales.zip")
		err := importer.Import(context.Background(), importRecord(model.DeploymentTypeAzurePaaS), localPath)
		require.Error(t, err)
		assert.True(t, model.IsUnsupported(err))
		assert.Equal(t, 0, packageEngine.importCalls)
	})

	t.Run("intermediate server is unsupported", func(t *testing.T) {
		packageEngine := &mockPackageEngine{}
		sqlEngine := &mockSQLEngine{}
		uploader := &mockUploader{}
		importer := NewImporter(packageEngine, sqlEngine, uploader, testlib.MakeLogger(t))

		record := importRecord(model.DeploymentTypeAzurePaaS)
		record.IntermediateServer = "scrub-host"

		localPath := makeArtifact(t, "001_Sales.bacpac")
		err := importer.Import(context.Background(), record, localPath)
		require.Error(t, err)
		assert.True(t, model.IsUnsupported(err))
		assert.Equal(t, 0, packageEngine.importCalls)
	})

	t.Run("unrecognized deployment type falls back to paas for bacpac", func(t *testing.T) {
		packageEngine := &mockPackageEngine{}
		sqlEngine := &mockSQLEngine{}
		uploader := &mockUploader{}
		importer := NewImporter(packageEngine, sqlEngine, uploader, testlib.MakeLogger(t))

		localPath := makeArtifact(t, "001_Sales.bacpac")
		err := importer.Import(context.Background(), importRecord(model.DeploymentType("OnPrem")), localPath)
		require.NoError(t, err)
		assert.Equal(t, 1, packageEngine.importCalls)
	})
}
