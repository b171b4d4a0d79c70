package commands

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"time"

	"github.com/fivetwenty-io/ledgerdesk/internal/constants"
	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// Config represents the CLI configuration file.
type Config struct {
	API               string `json:"api,omitempty"                 yaml:"api,omitempty"`
	Output            string `json:"output,omitempty"              yaml:"output,omitempty"`
	Timeout           string `json:"timeout,omitempty"             yaml:"timeout,omitempty"`
	Retries           *int   `json:"retries,omitempty"             yaml:"retries,omitempty"`
	RetryServerErrors bool   `json:"retry_server_errors,omitempty" yaml:"retry_server_errors,omitempty"`
	AutoRefresh       bool   `json:"auto_refresh,omitempty"        yaml:"auto_refresh,omitempty"`
	Store             string `json:"store,omitempty"               yaml:"store,omitempty"`
	StoreURL          string `json:"store_url,omitempty"           yaml:"store_url,omitempty"`
	Username          string `json:"username,omitempty"            yaml:"username,omitempty"`
}

// configKey describes one settable configuration key.
type configKey struct {
	set   func(config *Config, value string) error
	unset func(config *Config)
}

var configKeys = map[string]configKey{
	"api": {
		set:   func(c *Config, v string) error { c.API = v; return nil },
		unset: func(c *Config) { c.API = "" },
	},
	"output": {
		set: func(c *Config, v string) error {
			if err := validateOutputFormat(v); err != nil {
				return err
			}
			c.Output = v

			return nil
		},
		unset: func(c *Config) { c.Output = "" },
	},
	"timeout": {
		set: func(c *Config, v string) error {
			d, err := time.ParseDuration(v)
			if err != nil || d <= 0 {
				return fmt.Errorf("invalid timeout %q: must be a positive duration such as 10s", v)
			}
			c.Timeout = d.String()

			return nil
		},
		unset: func(c *Config) { c.Timeout = "" },
	},
	"retries": {
		set: func(c *Config, v string) error {
			n, err := strconv.Atoi(v)
			if err != nil || n < 0 {
				return fmt.Errorf("invalid retries %q: must be a non-negative integer", v)
			}
			c.Retries = &n

			return nil
		},
		unset: func(c *Config) { c.Retries = nil },
	},
	"retry_server_errors": {
		set:   func(c *Config, v string) error { return setBool(&c.RetryServerErrors, v) },
		unset: func(c *Config) { c.RetryServerErrors = false },
	},
	"auto_refresh": {
		set:   func(c *Config, v string) error { return setBool(&c.AutoRefresh, v) },
		unset: func(c *Config) { c.AutoRefresh = false },
	},
	"store": {
		set: func(c *Config, v string) error {
			if !isKnownStore(v) {
				return fmt.Errorf("%w: %q", constants.ErrUnknownStore, v)
			}
			c.Store = v

			return nil
		},
		unset: func(c *Config) { c.Store = "" },
	},
	"store_url": {
		set:   func(c *Config, v string) error { c.StoreURL = v; return nil },
		unset: func(c *Config) { c.StoreURL = "" },
	},
	"username": {
		set:   func(c *Config, v string) error { c.Username = v; return nil },
		unset: func(c *Config) { c.Username = "" },
	},
}

func setBool(target *bool, value string) error {
	parsed, err := strconv.ParseBool(value)
	if err != nil {
		return fmt.Errorf("invalid boolean %q: %w", value, err)
	}

	*target = parsed

	return nil
}

// NewConfigCommand creates the config command group.
func NewConfigCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage CLI configuration",
		Long:  "Show and change the settings stored in the ldesk configuration file",
	}

	cmd.AddCommand(newConfigShowCommand())
	cmd.AddCommand(newConfigSetCommand())
	cmd.AddCommand(newConfigUnsetCommand())

	return cmd
}

func newConfigShowCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Show current configuration",
		Long:  "Display the effective configuration after flags, environment and config file are merged",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			settings := effectiveSettings()

			return render(cmd.OutOrStdout(), settings, func(table *tablewriter.Table) {
				table.Header("Property", "Value")

				keys := make([]string, 0, len(settings))
				for key := range settings {
					keys = append(keys, key)
				}

				sort.Strings(keys)

				for _, key := range keys {
					_ = table.Append([]string{key, formatConfigValue(settings[key])})
				}
			})
		},
	}
}

func newConfigSetCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "set KEY VALUE",
		Short: "Set a configuration value",
		Long:  "Store a configuration value in the config file",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			key, value := args[0], args[1]

			handler, ok := configKeys[key]
			if !ok {
				return fmt.Errorf("%w: %s", constants.ErrUnknownConfigKey, key)
			}

			config, err := readConfigFile()
			if err != nil {
				return err
			}

			if err := handler.set(config, value); err != nil {
				return err
			}

			if err := writeConfigFile(config); err != nil {
				return err
			}

			writeLine(cmd.OutOrStdout(), "Set %s", key)

			return nil
		},
	}
}

func newConfigUnsetCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "unset KEY",
		Short: "Unset a configuration value",
		Long:  "Remove a configuration value from the config file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			key := args[0]

			handler, ok := configKeys[key]
			if !ok {
				return fmt.Errorf("%w: %s", constants.ErrUnknownConfigKey, key)
			}

			config, err := readConfigFile()
			if err != nil {
				return err
			}

			handler.unset(config)

			if err := writeConfigFile(config); err != nil {
				return err
			}

			writeLine(cmd.OutOrStdout(), "Unset %s", key)

			return nil
		},
	}
}

// effectiveSettings reports the merged viper view of every known key.
func effectiveSettings() map[string]string {
	settings := make(map[string]string, len(configKeys))

	for key := range configKeys {
		value := viper.GetString(key)
		if key == "store_url" {
			value = maskURL(value)
		}

		settings[key] = value
	}

	return settings
}

func configFilePath() (string, error) {
	if configFile := viper.ConfigFileUsed(); configFile != "" {
		return configFile, nil
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get user home directory: %w", err)
	}

	return filepath.Join(home, constants.ConfigDirName, "config.yml"), nil
}

// readConfigFile loads the config file on its own, without flag or
// environment overrides. A missing file yields an empty Config.
func readConfigFile() (*Config, error) {
	path, err := configFilePath()
	if err != nil {
		return nil, err
	}

	// #nosec G304 -- path is the user's own config file
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return &Config{}, nil
	}

	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}

	return &config, nil
}

func writeConfigFile(config *Config) error {
	path, err := configFilePath()
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(path), constants.ConfigDirPerm); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(config)
	if err != nil {
		return fmt.Errorf("failed to marshal config to YAML: %w", err)
	}

	if err := os.WriteFile(path, data, constants.ConfigFilePerm); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

func formatConfigValue(value string) string {
	if value == "" {
		return "-"
	}

	return value
}

func validateOutputFormat(format string) error {
	switch format {
	case constants.FormatTable, constants.FormatJSON, constants.FormatYAML:
		return nil
	default:
		return fmt.Errorf("unsupported output format %q (table, json, yaml)", format)
	}
}
