package naming

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fabricesemti80/azure-sql-datamover-sub000/model"
)

func TestDeriveServerAddress(t *testing.T) {
	for _, testCase := range []struct {
		description string
		name        string
		expected    string
	}{
		{"bare name", "myserver", "myserver.database.windows.net"},
		{"already suffixed", "myserver.database.windows.net", "myserver.database.windows.net"},
		{"suffix differs in case", "myserver.DATABASE.windows.NET", "myserver.DATABASE.windows.NET"},
		{"managed instance style name", "mi-prod-01", "mi-prod-01.database.windows.net"},
	} {
		t.Run(testCase.description, func(t *testing.T) {
			assert.Equal(t, testCase.expected, DeriveServerAddress(testCase.name))
		})
	}

	t.Run("idempotent", func(t *testing.T) {
		derived := DeriveServerAddress("myserver")
		assert.Equal(t, derived, DeriveServerAddress(derived))
	})
}

func TestDeriveLocalArtifactName(t *testing.T) {
	for _, testCase := range []struct {
		description string
		path        string
		operationID string
		expected    string
	}{
		{"plain file name", filepath.Join("tmp", "Sales.bacpac"), "001", filepath.Join("tmp", "001_Sales.bacpac")},
		{"already prefixed", filepath.Join("tmp", "001_Sales.bacpac"), "001", filepath.Join("tmp", "001_Sales.bacpac")},
		{"different operation prefix", filepath.Join("tmp", "002_Sales.bacpac"), "001", filepath.Join("tmp", "001_002_Sales.bacpac")},
		{"no directory", "Sales.bak", "007", "007_Sales.bak"},
		{"no extension", filepath.Join("tmp", "Sales"), "001", filepath.Join("tmp", "001_Sales")},
	} {
		t.Run(testCase.description, func(t *testing.T) {
			derived, err := DeriveLocalArtifactName(testCase.path, testCase.operationID)
			require.NoError(t, err)
			assert.Equal(t, testCase.expected, derived)
		})
	}

	t.Run("idempotent", func(t *testing.T) {
		first, err := DeriveLocalArtifactName(filepath.Join("data", "Sales.bacpac"), "001")
		require.NoError(t, err)
		second, err := DeriveLocalArtifactName(first, "001")
		require.NoError(t, err)
		assert.Equal(t, first, second)
	})

	t.Run("empty path", func(t *testing.T) {
		_, err := DeriveLocalArtifactName("", "001")
		require.Error(t, err)
		assert.True(t, errors.Is(err, ErrInvalidPath))
	})
}

func TestDeriveBlobName(t *testing.T) {
	timestamp := time.Date(2024, 6, 1, 13, 45, 30, 0, time.UTC)

	name := DeriveBlobName("001", "Sales", timestamp, model.BackupFormatBacpac)
	assert.Equal(t, "001_Sales_20240601_134530.bacpac", name)

	name = DeriveBlobName("42", "Inventory", timestamp, model.BackupFormatBak)
	assert.Equal(t, "42_Inventory_20240601_134530.bak", name)
}

func TestReplaceExtension(t *testing.T) {
	assert.Equal(t, filepath.Join("tmp", "Sales.bak"), ReplaceExtension(filepath.Join("tmp", "Sales.bacpac"), model.BackupFormatBak))
	assert.Equal(t, "Sales.bacpac", ReplaceExtension("Sales.bacpac", model.BackupFormatBacpac))
	assert.Equal(t, "Sales.bacpac", ReplaceExtension("Sales", model.BackupFormatBacpac))
}
