package commands

import (
	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
)

// cliVersion is reported in the User-Agent header.
var cliVersion = "dev"

// VersionInfo describes the build.
type VersionInfo struct {
	Version string `json:"version" yaml:"version"`
	Commit  string `json:"commit"  yaml:"commit"`
	Built   string `json:"built"   yaml:"built"`
}

// NewVersionCommand creates the version command and records the version
// used in the User-Agent header.
func NewVersionCommand(version, commit, date string) *cobra.Command {
	cliVersion = version

	return &cobra.Command{
		Use:   "version",
		Short: "Display version information",
		Long:  "Display detailed version information about the ldesk CLI",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			info := VersionInfo{
				Version: version,
				Commit:  commit,
				Built:   date,
			}

			return render(cmd.OutOrStdout(), info, func(table *tablewriter.Table) {
				table.Header("Property", "Value")
				_ = table.Append([]string{"Version", info.Version})
				_ = table.Append([]string{"Commit", info.Commit})
				_ = table.Append([]string{"Built", info.Built})
			})
		},
	}
}
