package engine

import (
	"bytes"
	"context"
	"os"
	"os/exec"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"github.com/fabricesemti80/azure-sql-datamover-sub000/model"
)

const defaultSqlpackagePath = "sqlpackage"

// PackageEngine invokes the external sqlpackage executable for bacpac
// export and import. Stdout and stderr are captured together and carried
// verbatim on failure; the raw output is the operator's debugging signal.
type PackageEngine struct {
	executable string
	logger     log.FieldLogger
}

func NewPackageEngine(executable string, logger log.FieldLogger) *PackageEngine {
	if executable == "" {
		executable = defaultSqlpackagePath
	}
	return &PackageEngine{
		executable: executable,
		logger:     logger,
	}
}

// Export produces a bacpac of the source database at targetPath. Success
// requires both a zero exit status and the target file existing afterward.
func (e *PackageEngine) Export(ctx context.Context, server string, credentials model.Credentials,
	database, targetPath string) error {

	args := []string{
		"/Action:Export",
		"/SourceServerName:" + server,
		"/SourceDatabaseName:" + database,
		"/SourceUser:" + credentials.Username,
		"/SourcePassword:" + credentials.Password,
		"/TargetFile:" + targetPath,
	}

	if err := e.run(ctx, args); err != nil {
		return err
	}

	if _, err := os.Stat(targetPath); err != nil {
		return &model.ExternalEngineError{
			Engine: "sqlpackage",
			Err:    errors.Wrapf(err, "sqlpackage reported success but %s does not exist", targetPath),
		}
	}

	return nil
}

// Import applies a bacpac at sourcePath to the destination database.
func (e *PackageEngine) Import(ctx context.Context, sourcePath, server string, credentials model.Credentials,
	database string) error {

	args := []string{
		"/Action:Import",
		"/SourceFile:" + sourcePath,
		"/TargetServerName:" + server,
		"/TargetDatabaseName:" + database,
		"/TargetUser:" + credentials.Username,
		"/TargetPassword:" + credentials.Password,
	}

	return e.run(ctx, args)
}

func (e *PackageEngine) run(ctx context.Context, args []string) error {
	cmd := exec.CommandContext(ctx, e.executable, args...)

	var output bytes.Buffer
	cmd.Stdout = &output
	cmd.Stderr = &output

	e.logger.WithField("action", args[0]).Debug("Invoking sqlpackage")

	if err := cmd.Run(); err != nil {
		return &model.ExternalEngineError{
			Engine: "sqlpackage",
			Output: output.String(),
			Err:    err,
		}
	}

	return nil
}
