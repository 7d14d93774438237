// Package naming computes the canonical artifact file names, blob names,
// and server addresses shared by every pipeline step. All functions are
// pure; prior runs depend on these conventions staying stable.
package naming

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/fabricesemti80/azure-sql-datamover-sub000/model"
)

// serverDomainSuffix is the canonical Azure SQL service domain.
const serverDomainSuffix = ".database.windows.net"

const blobTimestampLayout = "20060102_150405"

// ErrInvalidPath indicates a local artifact path with no usable file name.
var ErrInvalidPath = errors.New("invalid artifact path")

// DeriveServerAddress appends the Azure SQL domain suffix unless the name
// already carries it. The check is case-insensitive and the function is
// idempotent.
func DeriveServerAddress(name string) string {
	if strings.HasSuffix(strings.ToLower(name), serverDomainSuffix) {
		return name
	}
	return name + serverDomainSuffix
}

// DeriveLocalArtifactName prefixes the file name component of originalPath
// with "{operationID}_". Prefixing is idempotent: a name that already
// carries the exact prefix is returned unchanged, so re-deriving never
// double-prefixes.
func DeriveLocalArtifactName(originalPath, operationID string) (string, error) {
	if originalPath == "" {
		return "", errors.Wrap(ErrInvalidPath, "empty path")
	}

	dir := filepath.Dir(originalPath)
	base := filepath.Base(originalPath)
	if base == "." || base == string(filepath.Separator) {
		return "", errors.Wrapf(ErrInvalidPath, "path %q has no file name", originalPath)
	}

	prefix := operationID + "_"
	ext := filepath.Ext(base)
	stem := strings.TrimSuffix(base, ext)
	if strings.HasPrefix(stem, prefix) {
		return originalPath, nil
	}

	return filepath.Join(dir, prefix+stem+ext), nil
}

// DeriveBlobName builds the staging blob name for an exported artifact:
// "{operationID}_{databaseName}_{yyyyMMdd_HHmmss}.{format}".
func DeriveBlobName(operationID, databaseName string, timestamp time.Time, format model.BackupFormat) string {
	return fmt.Sprintf("%s_%s_%s%s",
		operationID, databaseName, timestamp.Format(blobTimestampLayout), format.Extension())
}

// ReplaceExtension swaps the extension of path for the one matching format.
// Used when a located artifact's actual format differs from the extension
// the record was configured with.
func ReplaceExtension(path string, format model.BackupFormat) string {
	ext := filepath.Ext(path)
	return strings.TrimSuffix(path, ext) + format.Extension()
}
