package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/pocketrelay/client/config"
)

func init() {
	rootCmd.AddCommand(generateConfigCmd)
}

var generateConfigCmd = &cobra.Command{
	Use:   "generate-config [connection string]",
	Short: "print a default config, optionally preset with a connection string",
	Args:  cobra.MaximumNArgs(1),
	RunE:  generateConfig,
}

func generateConfig(cmd *cobra.Command, args []string) error {
	c := makeDefaultConfig()
	if len(args) > 0 {
		c.ConnectionURL = args[0]
	}

	// Check that the generated config parses.
	if _, err := c.Parse(); err != nil {
		return fmt.Errorf("generated config is invalid: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	fmt.Println(string(data)) // CLI output.
	return nil
}

func makeDefaultConfig() config.Store {
	// Find state path.
	homeDir, err := os.UserHomeDir()
	if err != nil {
		homeDir = os.TempDir()
	}
	_ = os.Mkdir(filepath.Join(homeDir, ".pocket-relay"), 0o0750)
	statePath := filepath.Join(homeDir, ".pocket-relay", "state.json")

	return config.Store{
		System: config.System{
			StatePath: statePath,
			APIListen: config.DefaultAPIListen,
		},
		Servers: config.Servers{
			RedirectorPort: config.DefaultRedirectorPort,
			BlazeProxyPort: config.DefaultBlazeProxyPort,
			HTTPProxyPort:  config.DefaultHTTPProxyPort,
			TelemetryPort:  config.DefaultTelemetryPort,
			QOSPort:        config.DefaultQOSPort,
		},
	}
}
