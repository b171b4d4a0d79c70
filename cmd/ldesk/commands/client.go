package commands

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/fivetwenty-io/ledgerdesk/internal/constants"
	"github.com/fivetwenty-io/ledgerdesk/internal/telemetry"
	"github.com/fivetwenty-io/ledgerdesk/pkg/ldclient"
	"github.com/fivetwenty-io/ledgerdesk/pkg/ledger"
	"github.com/fivetwenty-io/ledgerdesk/pkg/persistence"
	"github.com/spf13/viper"
)

// closer releases a credential store connection.
type closer func()

// newClient builds a client from the merged CLI configuration. The returned
// closer must be called once the command is done.
func newClient(ctx context.Context) (ledger.Client, closer, error) {
	api := viper.GetString("api")
	if api == "" {
		return nil, nil, constants.ErrAPIEndpointRequired
	}

	store, release, err := openStore(ctx, viper.GetString("store"), viper.GetString("store_url"))
	if err != nil {
		return nil, nil, err
	}

	client, err := ldclient.New(ctx, buildClientConfig(api, store))
	if err != nil {
		release()
		return nil, nil, err
	}

	return client, release, nil
}

func buildClientConfig(api string, store ledger.CredentialPersistence) *ledger.Config {
	verbose := viper.GetBool("verbose")

	level := "warn"
	if verbose {
		level = "debug"
	}

	config := &ledger.Config{
		BaseURL:           api,
		Timeout:           viper.GetDuration("timeout"),
		RetryServerErrors: viper.GetBool("retry_server_errors"),
		AutoRefresh:       viper.GetBool("auto_refresh"),
		Persistence:       store,
		UserAgent:         "ldesk/" + cliVersion,
		Debug:             verbose,
		Logger: telemetry.NewLogger(telemetry.LoggerConfig{
			Level:  level,
			Format: "text",
			Output: os.Stderr,
		}),
	}

	if viper.IsSet("retries") {
		config.RetryMax = viper.GetInt("retries")
		config.DisableRetries = config.RetryMax == 0
	}

	return config
}

// openStore opens the credential store named by kind. For the file and
// sqlite stores location overrides the default path under ~/.ldesk.
func openStore(ctx context.Context, kind, location string) (ledger.CredentialPersistence, closer, error) {
	noop := func() {}

	switch kind {
	case "", constants.StoreFile:
		path, err := storePath(location, constants.CredentialsFileName)
		if err != nil {
			return nil, nil, err
		}

		return persistence.NewFile(path), noop, nil
	case constants.StoreSQLite:
		path, err := storePath(location, constants.CredentialsDBName)
		if err != nil {
			return nil, nil, err
		}

		store, err := persistence.OpenSQLite(ctx, path)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to open SQLite credential store: %w", err)
		}

		return store, func() { _ = store.Close() }, nil
	case constants.StoreNATS:
		store, err := persistence.ConnectNATS(ctx, location, "")
		if err != nil {
			return nil, nil, err
		}

		return store, func() { _ = store.Close() }, nil
	case constants.StoreRedis:
		store, err := persistence.ConnectRedis(ctx, location, "")
		if err != nil {
			return nil, nil, err
		}

		return store, func() { _ = store.Close() }, nil
	case constants.StoreMemory:
		return persistence.NewMemory(), noop, nil
	default:
		return nil, nil, fmt.Errorf("%w: %q", constants.ErrUnknownStore, kind)
	}
}

func storePath(location, fileName string) (string, error) {
	if location != "" {
		return location, nil
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get user home directory: %w", err)
	}

	return filepath.Join(home, constants.ConfigDirName, fileName), nil
}

func isKnownStore(kind string) bool {
	switch kind {
	case constants.StoreFile, constants.StoreSQLite, constants.StoreNATS, constants.StoreRedis, constants.StoreMemory:
		return true
	default:
		return false
	}
}
