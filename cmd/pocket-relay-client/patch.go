package main

import (
	"fmt"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"github.com/pocketrelay/client/config"
	"github.com/pocketrelay/client/patch"
)

func init() {
	rootCmd.AddCommand(patchCmd)
	rootCmd.AddCommand(unpatchCmd)
}

var patchCmd = &cobra.Command{
	Use:   "patch [game executable]",
	Short: "install the certificate check patch next to the game executable",
	Args:  cobra.ExactArgs(1),
	RunE:  patchGame,
}

var unpatchCmd = &cobra.Command{
	Use:   "unpatch [game executable]",
	Short: "remove the certificate check patch and restore the original files",
	Args:  cobra.ExactArgs(1),
	RunE:  unpatchGame,
}

func patchSource() (*patch.Source, error) {
	c, err := config.LoadConfig(*configFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return patch.NewSource(
		&http.Client{Timeout: time.Minute},
		c.UpdateEndpoint(),
	), nil
}

func patchGame(cmd *cobra.Command, args []string) error {
	source, err := patchSource()
	if err != nil {
		return err
	}

	if err := patch.Apply(cmd.Context(), source, args[0]); err != nil {
		return err
	}
	fmt.Println("game patched") // CLI output.
	return nil
}

func unpatchGame(cmd *cobra.Command, args []string) error {
	source, err := patchSource()
	if err != nil {
		return err
	}

	if err := patch.Remove(cmd.Context(), source, args[0]); err != nil {
		return err
	}
	fmt.Println("game unpatched") // CLI output.
	return nil
}
