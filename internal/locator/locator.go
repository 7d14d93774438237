// Package locator finds the best-matching backup artifact already present
// in the staging container, used when an import record has no local
// artifact to consume.
package locator

import (
	"context"
	"regexp"
	"sort"
	"strings"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"github.com/fabricesemti80/azure-sql-datamover-sub000/internal/blobstore"
	"github.com/fabricesemti80/azure-sql-datamover-sub000/model"
)

// BlobLister abstracts the single container listing the locator performs.
type BlobLister interface {
	ListBlobs(ctx context.Context, target model.StorageTarget) ([]blobstore.BlobInfo, error)
}

// Query scopes a search for an existing backup artifact.
type Query struct {
	Storage      model.StorageTarget
	DatabaseName string

	// OperationID, when set, lets an exact operation-scoped prefix take
	// priority over the bare database-name conventions.
	OperationID string

	Formats []model.BackupFormat
}

type Locator struct {
	lister BlobLister
	logger log.FieldLogger
}

func New(lister BlobLister, logger log.FieldLogger) *Locator {
	return &Locator{
		lister: lister,
		logger: logger,
	}
}

// Locate returns the most recent artifact matching the query, or nil when
// nothing matches. A miss is not an error; callers decide whether it is
// fatal.
//
// The layered pattern priority lets an operation-scoped search coexist with
// the legacy bare database-name convention in a shared container. Recency
// is the only tie-break: the container keeps no explicit "current" pointer,
// so the latest blob is always taken as the source of truth, even across
// unrelated operations on the same day.
func (l *Locator) Locate(ctx context.Context, query Query) (*model.Artifact, error) {
	blobs, err := l.lister.ListBlobs(ctx, query.Storage)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list staging container")
	}

	patterns := buildPatterns(query)

	var candidates []blobstore.BlobInfo
	for _, pattern := range patterns {
		matcher, err := compilePattern(pattern)
		if err != nil {
			return nil, errors.Wrapf(err, "failed to compile pattern %q", pattern)
		}
		for _, blob := range blobs {
			if matcher.MatchString(blob.Name) {
				candidates = append(candidates, blob)
			}
		}
	}

	// The same blob matches multiple patterns; keep the first occurrence.
	seen := make(map[string]struct{}, len(candidates))
	unique := candidates[:0]
	for _, candidate := range candidates {
		if _, ok := seen[candidate.Name]; ok {
			continue
		}
		seen[candidate.Name] = struct{}{}
		unique = append(unique, candidate)
	}

	if len(unique) == 0 {
		l.logger.WithField("database", query.DatabaseName).Debug("No matching backup artifact in staging container")
		return nil, nil
	}

	sort.SliceStable(unique, func(i, j int) bool {
		return unique[i].LastModified.After(unique[j].LastModified)
	})

	best := unique[0]
	format, ok := model.FormatFromPath(best.Name)
	if !ok {
		// Patterns are format-suffixed, so this should not happen.
		return nil, errors.Errorf("located blob %s has unrecognized format", best.Name)
	}

	l.logger.WithFields(log.Fields{
		"database": query.DatabaseName,
		"blob":     best.Name,
	}).Debug("Located backup artifact")

	return &model.Artifact{
		Format:       format,
		Location:     best.Name,
		SizeBytes:    best.SizeBytes,
		LastModified: best.LastModified,
		LogicalName:  query.DatabaseName,
	}, nil
}

// buildPatterns produces the candidate glob list per requested format, in
// priority order: operation-scoped prefix first, then the legacy
// database-name conventions.
func buildPatterns(query Query) []string {
	var patterns []string
	for _, format := range query.Formats {
		ext := string(format)
		if query.OperationID != "" {
			patterns = append(patterns, query.OperationID+"_"+query.DatabaseName+"*."+ext)
		}
		patterns = append(patterns,
			"*"+query.DatabaseName+"*."+ext,
			query.DatabaseName+"*."+ext,
		)
	}
	return patterns
}

// compilePattern turns a simple glob ("*" matches any run of characters)
// into an anchored, case-insensitive regular expression.
func compilePattern(pattern string) (*regexp.Regexp, error) {
	parts := strings.Split(pattern, "*")
	quoted := make([]string, len(parts))
	for i, part := range parts {
		quoted[i] = regexp.QuoteMeta(part)
	}
	return regexp.Compile("(?i)^" + strings.Join(quoted, ".*") + "$")
}
