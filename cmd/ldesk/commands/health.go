package commands

import (
	"sort"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
)

// NewHealthCommand creates the health command.
func NewHealthCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "Check API health",
		Long:  "Query the diagnostics endpoint and report the server status",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			client, release, err := newClient(cmd.Context())
			if err != nil {
				return err
			}
			defer release()

			report, err := client.Diagnostics().Health(cmd.Context()).Unwrap()
			if err != nil {
				return err
			}

			return render(cmd.OutOrStdout(), report, func(table *tablewriter.Table) {
				table.Header("Check", "Status")
				_ = table.Append([]string{"status", report.Status})
				_ = table.Append([]string{"version", formatConfigValue(report.Version)})
				_ = table.Append([]string{"uptime", formatConfigValue(report.Uptime)})
				_ = table.Append([]string{"database", formatConfigValue(report.Database)})

				names := make([]string, 0, len(report.Checks))
				for name := range report.Checks {
					names = append(names, name)
				}

				sort.Strings(names)

				for _, name := range names {
					_ = table.Append([]string{name, report.Checks[name]})
				}
			})
		},
	}
}
