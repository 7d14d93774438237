package main

import (
	"context"
	"os"
	"time"

	"github.com/google/uuid"
	tablewriter "github.com/olekukonko/tablewriter"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/fabricesemti80/azure-sql-datamover-sub000/internal/blobstore"
	"github.com/fabricesemti80/azure-sql-datamover-sub000/internal/engine"
	"github.com/fabricesemti80/azure-sql-datamover-sub000/internal/locator"
	"github.com/fabricesemti80/azure-sql-datamover-sub000/internal/pipeline"
	"github.com/fabricesemti80/azure-sql-datamover-sub000/internal/preflight"
	"github.com/fabricesemti80/azure-sql-datamover-sub000/internal/store"
	"github.com/fabricesemti80/azure-sql-datamover-sub000/internal/strategy"
	"github.com/fabricesemti80/azure-sql-datamover-sub000/model"
)

func init() {
	runCmd.Flags().String("file", "", "The CSV or JSON file with operation records.")
	runCmd.MarkFlagRequired("file")

	runCmd.Flags().String("sqlpackage", "", "Path to the sqlpackage executable; defaults to looking it up on PATH.")
	runCmd.Flags().String("history", "", "Optional path to a SQLite file recording per-record results.")
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Process a batch of migration operation records.",
	RunE: func(command *cobra.Command, args []string) error {
		command.SilenceUsage = true

		file, _ := command.Flags().GetString("file")
		sqlpackagePath, _ := command.Flags().GetString("sqlpackage")
		historyPath, _ := command.Flags().GetString("history")

		records, err := loadRecords(file)
		if err != nil {
			return errors.Wrap(err, "failed to load operation records")
		}
		if len(records) == 0 {
			return errors.New("no operation records to process")
		}

		logger := log.WithField("instance", uuid.NewString()[:8])

		var resultStore pipeline.ResultStore
		if historyPath != "" {
			sqlStore, err := store.New(historyPath, logger)
			if err != nil {
				return errors.Wrap(err, "failed to open history store")
			}
			defer sqlStore.Close()
			resultStore = sqlStore
		}

		runner := buildRunner(sqlpackagePath, resultStore, logger)

		results := runner.Run(context.Background(), records)
		printSummary(results)

		return nil
	},
}

func buildRunner(sqlpackagePath string, resultStore pipeline.ResultStore, logger log.FieldLogger) *pipeline.Runner {
	blobs := blobstore.NewClient(logger)
	sqlEngine := engine.NewSQLEngine(logger)
	packageEngine := engine.NewPackageEngine(sqlpackagePath, logger)

	exporter := strategy.NewExporter(packageEngine, sqlEngine, logger)
	importer := strategy.NewImporter(packageEngine, sqlEngine, blobs, logger)
	artifactLocator := locator.New(blobs, logger)
	validator := preflight.NewValidator(sqlEngine, blobs, logger)
	reporter := pipeline.NewLogReporter(logger)

	p := pipeline.New(blobs, exporter, importer, artifactLocator, validator, reporter, logger)

	return pipeline.NewRunner(p, resultStore, logger)
}

func printSummary(results []*model.OperationResult) {
	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{"OPERATION", "DATABASE", "STATE", "FAILED STAGE", "DURATION"})

	for _, result := range results {
		table.Append([]string{
			result.OperationID,
			result.DatabaseName,
			string(result.State),
			string(result.FailureStage),
			result.Duration.Round(time.Millisecond).String(),
		})
	}

	table.Render()
}
