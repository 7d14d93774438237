package main

import (
	"os"
	"time"

	tablewriter "github.com/olekukonko/tablewriter"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/fabricesemti80/azure-sql-datamover-sub000/internal/store"
)

func init() {
	resultsCmd.Flags().String("history", "", "Path to the SQLite file recorded by a previous run.")
	resultsCmd.MarkFlagRequired("history")
}

var resultsCmd = &cobra.Command{
	Use:   "results",
	Short: "List the recorded results of past runs.",
	RunE: func(command *cobra.Command, args []string) error {
		command.SilenceUsage = true

		historyPath, _ := command.Flags().GetString("history")

		sqlStore, err := store.New(historyPath, log.StandardLogger())
		if err != nil {
			return errors.Wrap(err, "failed to open history store")
		}
		defer sqlStore.Close()

		results, err := sqlStore.GetOperationResults()
		if err != nil {
			return errors.Wrap(err, "failed to read operation results")
		}

		table := tablewriter.NewWriter(os.Stdout)
		table.SetHeader([]string{"OPERATION", "DATABASE", "STATE", "FAILED STAGE", "DURATION", "MESSAGE"})
		for _, result := range results {
			table.Append([]string{
				result.OperationID,
				result.DatabaseName,
				string(result.State),
				string(result.FailureStage),
				result.Duration.Round(time.Millisecond).String(),
				result.Message,
			})
		}
		table.Render()

		return nil
	},
}
