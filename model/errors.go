package model

import (
	"fmt"
	"strings"

	"github.com/pkg/errors"
)

// ValidationError reports required fields that are missing from a record.
type ValidationError struct {
	MissingFields []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("missing required fields: %s", strings.Join(e.MissingFields, ", "))
}

// ConnectivityError indicates that a source, destination, or storage
// endpoint could not be reached. Timeout distinguishes connection timeouts,
// which most commonly mean a firewall or allow-list misconfiguration.
type ConnectivityError struct {
	Endpoint string
	Timeout  bool
	Err      error
}

func (e *ConnectivityError) Error() string {
	if e.Timeout {
		return fmt.Sprintf("connection to %s timed out (check firewall rules and IP allow-list): %v", e.Endpoint, e.Err)
	}
	return fmt.Sprintf("failed to reach %s: %v", e.Endpoint, e.Err)
}

func (e *ConnectivityError) Unwrap() error {
	return e.Err
}

// ResourceError indicates insufficient local resources, currently only
// staging disk space.
type ResourceError struct {
	Path           string
	RequiredBytes  uint64
	AvailableBytes uint64
}

func (e *ResourceError) Error() string {
	return fmt.Sprintf("insufficient free space at %s: %d bytes available, %d required",
		e.Path, e.AvailableBytes, e.RequiredBytes)
}

// ExternalEngineError carries the verbatim diagnostic output of a failed
// export, import, backup, or restore engine invocation. The output is the
// primary operator debugging signal and is never summarized away.
type ExternalEngineError struct {
	Engine string
	Output string
	Err    error
}

func (e *ExternalEngineError) Error() string {
	if e.Output == "" {
		return fmt.Sprintf("%s failed: %v", e.Engine, e.Err)
	}
	return fmt.Sprintf("%s failed: %v\n%s", e.Engine, e.Err, e.Output)
}

func (e *ExternalEngineError) Unwrap() error {
	return e.Err
}

// NotFoundError indicates that no matching backup artifact exists in the
// staging container.
type NotFoundError struct {
	DatabaseName string
	Container    string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("no backup artifact found for database %s in container %s", e.DatabaseName, e.Container)
}

// UnsupportedError indicates an operation the dispatcher deliberately does
// not implement, such as the AzureIaaS deployment type or an artifact with
// an unrecognized extension.
type UnsupportedError struct {
	Reason string
}

func (e *UnsupportedError) Error() string {
	return e.Reason
}

// IsTimeout reports whether err carries a connection timeout.
func IsTimeout(err error) bool {
	connErr := &ConnectivityError{}
	return errors.As(err, &connErr) && connErr.Timeout
}

// IsNotFound reports whether err indicates a missing artifact.
func IsNotFound(err error) bool {
	notFound := &NotFoundError{}
	return errors.As(err, &notFound)
}

// IsUnsupported reports whether err indicates an unimplemented procedure.
func IsUnsupported(err error) bool {
	unsupported := &UnsupportedError{}
	return errors.As(err, &unsupported)
}
