package main

import (
	"encoding/csv"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/pkg/errors"

	"github.com/fabricesemti80/azure-sql-datamover-sub000/model"
)

// loadRecords reads operation records from a CSV or JSON file, keyed on
// the file extension.
func loadRecords(path string) ([]*model.OperationRecord, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open %s", path)
	}
	defer file.Close()

	if strings.EqualFold(filepath.Ext(path), ".json") {
		return model.NewOperationRecordsFromReader(file)
	}

	return parseCSVRecords(file)
}

func parseCSVRecords(file *os.File) ([]*model.OperationRecord, error) {
	reader := csv.NewReader(file)
	reader.TrimLeadingSpace = true

	rows, err := reader.ReadAll()
	if err != nil {
		return nil, errors.Wrap(err, "failed to parse CSV")
	}
	if len(rows) < 1 {
		return nil, errors.New("CSV file has no header row")
	}

	header := map[string]int{}
	for i, name := range rows[0] {
		header[strings.TrimSpace(name)] = i
	}

	field := func(row []string, name string) string {
		idx, ok := header[name]
		if !ok || idx >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[idx])
	}
	boolField := func(row []string, name string, fallback bool) bool {
		raw := field(row, name)
		if raw == "" {
			return fallback
		}
		value, err := strconv.ParseBool(strings.ToLower(raw))
		if err != nil {
			return fallback
		}
		return value
	}

	var records []*model.OperationRecord
	for _, row := range rows[1:] {
		record := &model.OperationRecord{
			OperationID:    field(row, "Operation_Id"),
			DatabaseName:   field(row, "Database_Name"),
			DeploymentType: model.ParseDeploymentType(field(row, "Deployment_Type")),
			ExportEnabled:  boolField(row, "Export", false),
			ImportEnabled:  boolField(row, "Import", false),
			RemoveTempFile: boolField(row, "Remove_Temp_File", true),
			SourceServer:   field(row, "Source_Server"),
			SourceCredentials: model.Credentials{
				Username: field(row, "Source_User"),
				Password: field(row, "Source_Password"),
			},
			DestinationServer: field(row, "Destination_Server"),
			DestinationCredentials: model.Credentials{
				Username: field(row, "Destination_User"),
				Password: field(row, "Destination_Password"),
			},
			Storage: model.StorageTarget{
				Account:   field(row, "Storage_Account"),
				Container: field(row, "Storage_Container"),
				AccessKey: field(row, "Storage_Access_Key"),
			},
			LocalArtifactPath:  field(row, "Local_Artifact_Path"),
			IntermediateServer: field(row, "Intermediate_Server"),
			DataFileLocation:   field(row, "Data_File_Location"),
			LogFileLocation:    field(row, "Log_File_Location"),
			BackupKind:         model.ParseBackupKind(field(row, "Backup_Kind")),
			Compression:        boolField(row, "Compression", false),
		}
		records = append(records, record)
	}

	return records, nil
}
