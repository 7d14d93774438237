// Package pipeline sequences one operation record through validation,
// preflight, export, storage transfer, import, and cleanup. Failures are
// isolated to the record: the pipeline converts every error into a
// terminal state and result, and the batch always continues.
package pipeline

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/fabricesemti80/azure-sql-datamover-sub000/internal/locator"
	"github.com/fabricesemti80/azure-sql-datamover-sub000/internal/naming"
	"github.com/fabricesemti80/azure-sql-datamover-sub000/internal/preflight"
	"github.com/fabricesemti80/azure-sql-datamover-sub000/model"
)

// BlobStore moves artifacts between local disk and the staging container.
type BlobStore interface {
	Upload(ctx context.Context, target model.StorageTarget, blobName, localPath string) (string, error)
	Download(ctx context.Context, target model.StorageTarget, blobName, localPath string) error
}

// Exporter produces a local artifact for the record.
type Exporter interface {
	Export(ctx context.Context, record *model.OperationRecord, targetPath string) (*model.Artifact, error)
}

// Importer consumes a local artifact for the record.
type Importer interface {
	Import(ctx context.Context, record *model.OperationRecord, localPath string) error
}

// ArtifactLocator finds an existing backup artifact in the staging
// container; a nil artifact with a nil error means nothing matched.
type ArtifactLocator interface {
	Locate(ctx context.Context, query locator.Query) (*model.Artifact, error)
}

// PreflightChecker runs the live reachability checks for the record.
type PreflightChecker interface {
	Check(ctx context.Context, record *model.OperationRecord) error
}

// Pipeline drives a single record from start to a terminal state.
type Pipeline struct {
	blobs     BlobStore
	exporter  Exporter
	importer  Importer
	locator   ArtifactLocator
	preflight PreflightChecker
	reporter  Reporter
	logger    log.FieldLogger
}

func New(
	blobs BlobStore,
	exporter Exporter,
	importer Importer,
	artifactLocator ArtifactLocator,
	preflightChecker PreflightChecker,
	reporter Reporter,
	logger log.FieldLogger) *Pipeline {
	return &Pipeline{
		blobs:     blobs,
		exporter:  exporter,
		importer:  importer,
		locator:   artifactLocator,
		preflight: preflightChecker,
		reporter:  reporter,
		logger:    logger,
	}
}

// Process runs the record to its terminal state and returns the result.
// It never returns an error; one record's failure must not abort the batch.
func (p *Pipeline) Process(ctx context.Context, record *model.OperationRecord) *model.OperationResult {
	start := time.Now()

	logger := p.logger.WithFields(log.Fields{
		"operation": record.OperationID,
		"database":  record.DatabaseName,
	})

	fail := func(stage model.Stage, state model.OperationState, err error) *model.OperationResult {
		logger.WithError(err).Errorf("Operation failed at %s", stage)
		p.reporter.Emit(stage, record.OperationID, OutcomeFailed, err.Error())
		return &model.OperationResult{
			OperationID:  record.OperationID,
			DatabaseName: record.DatabaseName,
			State:        state,
			Success:      false,
			FailureStage: stage,
			Duration:     time.Since(start),
			Message:      err.Error(),
		}
	}
	ok := func(stage model.Stage, message string) {
		p.reporter.Emit(stage, record.OperationID, OutcomeOK, message)
	}

	if record.IsNoOp() {
		logger.Info("Record requests no work; skipping")
		p.reporter.Emit(model.StageFieldValidation, record.OperationID, OutcomeSkipped, "export and import both disabled")
		return &model.OperationResult{
			OperationID:  record.OperationID,
			DatabaseName: record.DatabaseName,
			State:        model.OperationStateSkippedNoAction,
			Success:      true,
			Duration:     time.Since(start),
		}
	}

	if err := preflight.ValidateFields(record); err != nil {
		return fail(model.StageFieldValidation, model.OperationStateFailedValidation, err)
	}

	// The prefixed path is derived once and used for every step that
	// touches the local artifact.
	var localPath string
	if record.LocalArtifactPath != "" {
		derived, err := naming.DeriveLocalArtifactName(record.LocalArtifactPath, record.OperationID)
		if err != nil {
			return fail(model.StageFieldValidation, model.OperationStateFailedValidation, err)
		}
		localPath = derived
	}
	ok(model.StageFieldValidation, "all required fields present")

	if err := p.preflight.Check(ctx, record); err != nil {
		return fail(model.StagePreflight, model.OperationStateFailedPreflight, err)
	}
	ok(model.StagePreflight, "all endpoints reachable")

	if record.ExportEnabled {
		artifact, err := p.exporter.Export(ctx, record, localPath)
		if err != nil {
			// A failed export leaves nothing to import; the record ends
			// here even when import is also enabled.
			return fail(model.StageExport, model.OperationStateFailedExport, err)
		}
		localPath = artifact.Location
		ok(model.StageExport, fmt.Sprintf("exported %s", artifact.Location))

		blobName := naming.DeriveBlobName(record.OperationID, record.DatabaseName, time.Now(), artifact.Format)
		if _, err := p.blobs.Upload(ctx, record.Storage, blobName, localPath); err != nil {
			return fail(model.StageUpload, model.OperationStateFailedUpload, err)
		}
		ok(model.StageUpload, fmt.Sprintf("uploaded %s", blobName))
	}

	importPath := localPath
	if record.ImportEnabled {
		if importPath == "" || !fileExists(importPath) {
			located, err := p.locator.Locate(ctx, locator.Query{
				Storage:      record.Storage,
				DatabaseName: record.DatabaseName,
				OperationID:  record.OperationID,
				Formats:      record.DeploymentType.AcceptableFormats(),
			})
			if err != nil {
				return fail(model.StageLocate, model.OperationStateFailedLocate, err)
			}
			if located == nil {
				notFound := &model.NotFoundError{
					DatabaseName: record.DatabaseName,
					Container:    record.Storage.Container,
				}
				return fail(model.StageLocate, model.OperationStateFailedLocate, notFound)
			}
			ok(model.StageLocate, fmt.Sprintf("located %s", located.Location))

			// The download target's extension follows the located
			// artifact's actual format, not the configured one.
			if importPath != "" {
				importPath = naming.ReplaceExtension(importPath, located.Format)
			} else {
				importPath = filepath.Join(os.TempDir(), filepath.Base(located.Location))
			}

			if err := p.blobs.Download(ctx, record.Storage, located.Location, importPath); err != nil {
				return fail(model.StageDownload, model.OperationStateFailedDownload, err)
			}
			ok(model.StageDownload, fmt.Sprintf("downloaded %s", importPath))
		} else {
			logger.Debugf("Local artifact %s already present; skipping locate and download", importPath)
		}

		if err := p.importer.Import(ctx, record, importPath); err != nil {
			return fail(model.StageImport, model.OperationStateFailedImport, err)
		}
		ok(model.StageImport, "import completed")
	}

	p.cleanup(record, logger, localPath, importPath)

	logger.Infof("Operation completed in %s", time.Since(start).Round(time.Millisecond))

	return &model.OperationResult{
		OperationID:  record.OperationID,
		DatabaseName: record.DatabaseName,
		State:        model.OperationStateDone,
		Success:      true,
		Duration:     time.Since(start),
	}
}

// cleanup removes the record's temporary artifacts when requested. A
// cleanup failure, such as a file lock, is a warning and never changes the
// record's already-determined outcome.
func (p *Pipeline) cleanup(record *model.OperationRecord, logger log.FieldLogger, paths ...string) {
	if !record.RemoveTempFile {
		p.reporter.Emit(model.StageCleanup, record.OperationID, OutcomeSkipped, "temp file retention requested")
		return
	}

	removed := map[string]struct{}{}
	for _, path := range paths {
		if path == "" {
			continue
		}
		if _, ok := removed[path]; ok {
			continue
		}
		removed[path] = struct{}{}

		if !fileExists(path) {
			continue
		}
		if err := os.Remove(path); err != nil {
			logger.WithError(err).Warnf("Failed to remove temporary artifact %s", path)
			p.reporter.Emit(model.StageCleanup, record.OperationID, OutcomeWarning, err.Error())
			continue
		}
		logger.Debugf("Removed temporary artifact %s", path)
	}

	p.reporter.Emit(model.StageCleanup, record.OperationID, OutcomeOK, "temporary artifacts removed")
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
