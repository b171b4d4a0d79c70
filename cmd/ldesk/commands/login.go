package commands

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/fivetwenty-io/ledgerdesk/internal/constants"
	"github.com/fivetwenty-io/ledgerdesk/pkg/ledger"
	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/term"
)

// NewLoginCommand creates the login command.
func NewLoginCommand() *cobra.Command {
	var (
		username string
		password string
	)

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Log in to the ERP API",
		Long:  "Authenticate with username and password and store the session in the credential store",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			creds, err := promptCredentials(cmd.InOrStdin(), cmd.ErrOrStderr(), username, password)
			if err != nil {
				return err
			}

			client, release, err := newClient(cmd.Context())
			if err != nil {
				return err
			}
			defer release()

			user, err := client.Login(cmd.Context(), creds).Unwrap()
			if err != nil {
				return fmt.Errorf("login failed: %w", err)
			}

			output := viper.GetString("output")
			if output == constants.FormatJSON || output == constants.FormatYAML {
				return render(cmd.OutOrStdout(), user, nil)
			}

			name := user.Username
			if name == "" {
				name = creds.Username
			}

			writeLine(cmd.OutOrStdout(), "Logged in to %s as %s", viper.GetString("api"), name)

			return nil
		},
	}

	cmd.Flags().StringVarP(&username, "username", "u", "", "username for authentication")
	cmd.Flags().StringVarP(&password, "password", "p", "", "password for authentication")

	return cmd
}

// promptCredentials fills in whatever the flags left out. The password is
// only read from an interactive terminal.
func promptCredentials(in io.Reader, prompt io.Writer, username, password string) (ledger.Credentials, error) {
	if username == "" {
		username = viper.GetString("username")
	}

	if username == "" {
		_, _ = fmt.Fprint(prompt, "Username: ")

		line, err := bufio.NewReader(in).ReadString('\n')
		if err != nil && line == "" {
			return ledger.Credentials{}, constants.ErrUsernameRequired
		}

		username = strings.TrimSpace(line)
	}

	if username == "" {
		return ledger.Credentials{}, constants.ErrUsernameRequired
	}

	if password == "" {
		if !term.IsTerminal(int(os.Stdin.Fd())) {
			return ledger.Credentials{}, constants.ErrPasswordRequired
		}

		_, _ = fmt.Fprint(prompt, "Password: ")

		bytePassword, err := term.ReadPassword(int(os.Stdin.Fd()))
		if err != nil {
			return ledger.Credentials{}, fmt.Errorf("failed to read password: %w", err)
		}

		_, _ = fmt.Fprintln(prompt)
		password = string(bytePassword)
	}

	if password == "" {
		return ledger.Credentials{}, constants.ErrPasswordRequired
	}

	return ledger.Credentials{Username: username, Password: password}, nil
}

// NewLogoutCommand creates the logout command.
func NewLogoutCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Log out of the ERP API",
		Long:  "End the session on the server and clear the credential store",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			client, release, err := newClient(cmd.Context())
			if err != nil {
				return err
			}
			defer release()

			if !client.IsAuthenticated() {
				writeLine(cmd.OutOrStdout(), "Not logged in")
				return nil
			}

			// The local session is cleared even when the server call fails.
			if _, err := client.Logout(cmd.Context()).Unwrap(); err != nil {
				writeLine(cmd.ErrOrStderr(), "Warning: server logout failed: %v", err)
			}

			writeLine(cmd.OutOrStdout(), "Logged out")

			return nil
		},
	}
}

// StatusInfo is the output of the status command.
type StatusInfo struct {
	API           string `json:"api"                yaml:"api"`
	Store         string `json:"store"              yaml:"store"`
	Authenticated bool   `json:"authenticated"      yaml:"authenticated"`
	Username      string `json:"username,omitempty" yaml:"username,omitempty"`
	Token         string `json:"token,omitempty"    yaml:"token,omitempty"`
	CanRefresh    bool   `json:"can_refresh"        yaml:"can_refresh"`
}

// NewStatusCommand creates the status command.
func NewStatusCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show the session status",
		Long:  "Show whether a session is stored for the configured API, without contacting the server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			client, release, err := newClient(cmd.Context())
			if err != nil {
				return err
			}
			defer release()

			session := client.Session()

			status := StatusInfo{
				API:           viper.GetString("api"),
				Store:         viper.GetString("store"),
				Authenticated: client.IsAuthenticated(),
				CanRefresh:    session.RefreshToken != "",
			}

			if status.Store == "" {
				status.Store = constants.StoreFile
			}

			if status.Authenticated {
				status.Token = tokenPreview(client.GetToken())
			}

			if session.User != nil {
				status.Username = session.User.Username
			}

			return render(cmd.OutOrStdout(), status, func(table *tablewriter.Table) {
				table.Header("Property", "Value")
				_ = table.Append([]string{"API", status.API})
				_ = table.Append([]string{"Store", status.Store})
				_ = table.Append([]string{"Authenticated", fmt.Sprint(status.Authenticated)})
				_ = table.Append([]string{"Username", formatConfigValue(status.Username)})
				_ = table.Append([]string{"Token", formatConfigValue(status.Token)})
				_ = table.Append([]string{"Refreshable", fmt.Sprint(status.CanRefresh)})
			})
		},
	}
}
