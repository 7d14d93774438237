package model

import (
	"strings"
	"time"
)

// BackupFormat is the payload format of a backup artifact.
type BackupFormat string

const (
	BackupFormatBacpac BackupFormat = "bacpac"
	BackupFormatBak    BackupFormat = "bak"
)

// Extension returns the file extension for the format, including the dot.
func (f BackupFormat) Extension() string {
	return "." + string(f)
}

// FormatFromPath infers the backup format from a file or blob name
// extension. The second return value is false for unrecognized extensions.
func FormatFromPath(path string) (BackupFormat, bool) {
	lower := strings.ToLower(path)
	switch {
	case strings.HasSuffix(lower, ".bacpac"):
		return BackupFormatBacpac, true
	case strings.HasSuffix(lower, ".bak"):
		return BackupFormatBak, true
	default:
		return "", false
	}
}

// Artifact is a backup payload, either a local file or a blob in the
// staging container.
type Artifact struct {
	Format BackupFormat

	// Location is a local path or a blob name, depending on where the
	// artifact lives.
	Location  string
	SizeBytes int64

	// LastModified is only meaningful for storage-resident artifacts.
	LastModified time.Time

	// LogicalName is the database name embedded in the naming convention.
	LogicalName string
}
