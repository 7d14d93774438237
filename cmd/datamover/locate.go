package main

import (
	"context"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/fabricesemti80/azure-sql-datamover-sub000/internal/blobstore"
	"github.com/fabricesemti80/azure-sql-datamover-sub000/internal/locator"
	"github.com/fabricesemti80/azure-sql-datamover-sub000/model"
)

func init() {
	locateCmd.Flags().String("account", "", "The storage account name.")
	locateCmd.Flags().String("container", "", "The storage container holding backup artifacts.")
	locateCmd.Flags().String("access-key", "", "The storage account access key.")
	locateCmd.Flags().String("database", "", "The database name to search for.")
	locateCmd.Flags().String("operation-id", "", "Optional operation id to scope the search.")
	locateCmd.Flags().StringSlice("formats", []string{"bacpac", "bak"}, "Acceptable artifact formats.")
	locateCmd.MarkFlagRequired("account")
	locateCmd.MarkFlagRequired("container")
	locateCmd.MarkFlagRequired("access-key")
	locateCmd.MarkFlagRequired("database")
}

var locateCmd = &cobra.Command{
	Use:   "locate",
	Short: "Find the most recent matching backup artifact in the staging container.",
	RunE: func(command *cobra.Command, args []string) error {
		command.SilenceUsage = true

		account, _ := command.Flags().GetString("account")
		container, _ := command.Flags().GetString("container")
		accessKey, _ := command.Flags().GetString("access-key")
		database, _ := command.Flags().GetString("database")
		operationID, _ := command.Flags().GetString("operation-id")
		rawFormats, _ := command.Flags().GetStringSlice("formats")

		var formats []model.BackupFormat
		for _, raw := range rawFormats {
			format, ok := model.FormatFromPath("." + raw)
			if !ok {
				return errors.Errorf("unrecognized format %q", raw)
			}
			formats = append(formats, format)
		}

		logger := log.StandardLogger()
		artifactLocator := locator.New(blobstore.NewClient(logger), logger)

		artifact, err := artifactLocator.Locate(context.Background(), locator.Query{
			Storage: model.StorageTarget{
				Account:   account,
				Container: container,
				AccessKey: accessKey,
			},
			DatabaseName: database,
			OperationID:  operationID,
			Formats:      formats,
		})
		if err != nil {
			return errors.Wrap(err, "failed to locate backup artifact")
		}
		if artifact == nil {
			return errors.Errorf("no backup artifact found for database %s", database)
		}

		return printJSON(artifact)
	},
}
