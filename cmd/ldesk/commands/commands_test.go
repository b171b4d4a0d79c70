package commands_test

import (
	"testing"

	"github.com/fivetwenty-io/ledgerdesk/cmd/ldesk/commands"
	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewLoginCommand(t *testing.T) {
	t.Parallel()

	cmd := commands.NewLoginCommand()
	assert.Equal(t, "login", cmd.Use)
	assert.NotNil(t, cmd.RunE)

	username := cmd.Flags().Lookup("username")
	require.NotNil(t, username)
	assert.Equal(t, "u", username.Shorthand)

	password := cmd.Flags().Lookup("password")
	require.NotNil(t, password)
	assert.Equal(t, "p", password.Shorthand)
}

func TestNewRequestCommands(t *testing.T) {
	t.Parallel()

	cmds := commands.NewRequestCommands()
	require.Len(t, cmds, 5)

	withBody := map[string]bool{"get": false, "post": true, "put": true, "patch": true, "delete": false}

	for _, cmd := range cmds {
		hasBody, ok := withBody[cmd.Name()]
		require.True(t, ok, "unexpected command %s", cmd.Name())

		assert.Equal(t, cmd.Name()+" PATH", cmd.Use)
		assert.Equal(t, hasBody, cmd.Flags().Lookup("data") != nil, "data flag on %s", cmd.Name())
		assert.NotNil(t, cmd.Flags().Lookup("query"))
		assert.NotNil(t, cmd.Flags().Lookup("header"))
		assert.Equal(t, "raw", cmd.Flags().Lookup("shape").DefValue)
	}
}

func TestNewProductsCommand(t *testing.T) {
	t.Parallel()

	cmd := commands.NewProductsCommand()
	assert.Equal(t, "products", cmd.Use)
	assert.Equal(t, []string{"product"}, cmd.Aliases)

	list := findSubcommand(cmd, "list")
	require.NotNil(t, list)
	assert.NotNil(t, list.Flags().Lookup("query"))

	get := findSubcommand(cmd, "get")
	require.NotNil(t, get)
	assert.Equal(t, "get PRODUCT_ID", get.Use)
}

func TestNewConfigCommand(t *testing.T) {
	t.Parallel()

	cmd := commands.NewConfigCommand()
	assert.Equal(t, "config", cmd.Use)

	for _, name := range []string{"show", "set", "unset"} {
		assert.NotNil(t, findSubcommand(cmd, name), "missing subcommand %s", name)
	}
}

func TestSessionCommands(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "logout", commands.NewLogoutCommand().Use)
	assert.Equal(t, "status", commands.NewStatusCommand().Use)
	assert.Equal(t, "health", commands.NewHealthCommand().Use)
	assert.NotNil(t, findSubcommand(commands.NewBackupsCommand(), "list"))
}

func findSubcommand(parent *cobra.Command, name string) *cobra.Command {
	for _, sub := range parent.Commands() {
		if sub.Name() == name {
			return sub
		}
	}

	return nil
}
