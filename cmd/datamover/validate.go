package main

import (
	"os"

	tablewriter "github.com/olekukonko/tablewriter"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/fabricesemti80/azure-sql-datamover-sub000/internal/preflight"
)

func init() {
	validateCmd.Flags().String("file", "", "The CSV or JSON file with operation records.")
	validateCmd.MarkFlagRequired("file")
}

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Check operation records for missing required fields without touching any backend.",
	RunE: func(command *cobra.Command, args []string) error {
		command.SilenceUsage = true

		file, _ := command.Flags().GetString("file")

		records, err := loadRecords(file)
		if err != nil {
			return errors.Wrap(err, "failed to load operation records")
		}

		table := tablewriter.NewWriter(os.Stdout)
		table.SetHeader([]string{"OPERATION", "DATABASE", "RESULT"})

		invalid := 0
		for _, record := range records {
			outcome := "ok"
			if record.IsNoOp() {
				outcome = "no-op"
			} else if err := preflight.ValidateFields(record); err != nil {
				invalid++
				outcome = err.Error()
			}
			table.Append([]string{record.OperationID, record.DatabaseName, outcome})
		}

		table.Render()

		if invalid > 0 {
			return errors.Errorf("%d of %d records failed validation", invalid, len(records))
		}

		return nil
	},
}
