package model

import (
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
)

func TestIsTimeout(t *testing.T) {
	timeout := &ConnectivityError{Endpoint: "src", Timeout: true, Err: errors.New("i/o timeout")}
	refused := &ConnectivityError{Endpoint: "src", Err: errors.New("refused")}

	assert.True(t, IsTimeout(timeout))
	assert.True(t, IsTimeout(errors.Wrap(timeout, "preflight failed")))
	assert.False(t, IsTimeout(refused))
	assert.False(t, IsTimeout(errors.New("something else")))
	assert.False(t, IsTimeout(nil))
}

func TestIsNotFound(t *testing.T) {
	notFound := &NotFoundError{DatabaseName: "Sales", Container: "backups"}

	assert.True(t, IsNotFound(notFound))
	assert.True(t, IsNotFound(errors.Wrap(notFound, "locate failed")))
	assert.False(t, IsNotFound(errors.New("something else")))
}

func TestIsUnsupported(t *testing.T) {
	unsupported := &UnsupportedError{Reason: "not implemented"}

	assert.True(t, IsUnsupported(unsupported))
	assert.True(t, IsUnsupported(errors.Wrap(unsupported, "import failed")))
	assert.False(t, IsUnsupported(errors.New("something else")))
}

func TestErrorMessages(t *testing.T) {
	t.Run("validation error lists every missing field", func(t *testing.T) {
		err := &ValidationError{MissingFields: []string{"SourceServer", "SourcePassword"}}
		assert.Equal(t, "missing required fields: SourceServer, SourcePassword", err.Error())
	})

	t.Run("timeout message points at the firewall", func(t *testing.T) {
		err := &ConnectivityError{Endpoint: "src.database.windows.net", Timeout: true, Err: errors.New("i/o timeout")}
		assert.Contains(t, err.Error(), "firewall")
		assert.Contains(t, err.Error(), "src.database.windows.net")
	})

	t.Run("engine error preserves verbatim output", func(t *testing.T) {
		err := &ExternalEngineError{
			Engine: "sqlpackage",
			Output: "*** Error exporting database: the database is unavailable",
			Err:    errors.New("exit status 1"),
		}
		assert.Contains(t, err.Error(), "*** Error exporting database: the database is unavailable")
	})
}
