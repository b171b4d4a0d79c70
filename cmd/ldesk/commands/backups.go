package commands

import (
	"fmt"
	"time"

	"github.com/fivetwenty-io/ledgerdesk/internal/constants"
	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// NewBackupsCommand creates the backups command group.
func NewBackupsCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "backups",
		Aliases: []string{"backup"},
		Short:   "Inspect database backups",
		Long:    "List the database backups kept by the server",
	}

	cmd.AddCommand(newBackupsListCommand())

	return cmd
}

func newBackupsListCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List backups",
		Long:  "List every database backup with its size and creation time",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			client, release, err := newClient(cmd.Context())
			if err != nil {
				return err
			}
			defer release()

			backups, err := client.Backups().List(cmd.Context()).Unwrap()
			if err != nil {
				return err
			}

			if len(backups) == 0 && isTableOutput() {
				writeLine(cmd.OutOrStdout(), "No backups found")
				return nil
			}

			return render(cmd.OutOrStdout(), backups, func(table *tablewriter.Table) {
				table.Header("ID", "Filename", "Size", "Created")

				for _, backup := range backups {
					created := constants.NotAvailable
					if !backup.CreatedAt.IsZero() {
						created = backup.CreatedAt.Format(time.RFC3339)
					}

					_ = table.Append([]string{
						string(backup.ID),
						backup.Filename,
						formatBytes(backup.SizeBytes),
						created,
					})
				}
			})
		},
	}
}

func isTableOutput() bool {
	output := viper.GetString("output")

	return output != constants.FormatJSON && output != constants.FormatYAML
}

func formatBytes(size int64) string {
	const unit = 1024
	if size < unit {
		return fmt.Sprintf("%d B", size)
	}

	div, exp := int64(unit), 0
	for n := size / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}

	return fmt.Sprintf("%.1f %ciB", float64(size)/float64(div), "KMGTPE"[exp])
}
