package cli

import (
	"github.com/spf13/cobra"
)

// RootCmd returns the docqa command tree.
func RootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "docqa",
		Short:         "PDF ingestion and question-answering gateway",
		Long:          "docqa accepts PDF uploads and chatbot questions over HTTP and relays them to downstream services through Kafka",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringP("config", "c", "", "Path to a YAML config file (defaults plus DQ_* environment variables when empty)")

	root.AddCommand(ServeCmd())
	root.AddCommand(MigrateCmd())
	root.AddCommand(ReconcileCmd())
	return root
}
