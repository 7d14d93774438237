package main

import (
	"encoding/json"
	"os"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "datamover",
	Short: "Moves SQL databases between servers through a blob storage staging area.",
	PersistentPreRun: func(command *cobra.Command, args []string) {
		level, _ := command.Flags().GetString("log-level")
		parsed, err := log.ParseLevel(level)
		if err != nil {
			parsed = log.InfoLevel
		}
		log.SetLevel(parsed)
	},
}

func init() {
	rootCmd.PersistentFlags().String("log-level", "info", "The logging level (trace, debug, info, warn, error).")

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(locateCmd)
	rootCmd.AddCommand(validateCmd)
	rootCmd.AddCommand(resultsCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		log.WithError(err).Error("command failed")
		os.Exit(1)
	}
}

func printJSON(data interface{}) error {
	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "    ")
	return encoder.Encode(data)
}
