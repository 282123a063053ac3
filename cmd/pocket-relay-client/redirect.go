package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/pocketrelay/client/config"
	"github.com/pocketrelay/client/hosts"
	"github.com/pocketrelay/client/lookup"
)

func init() {
	rootCmd.AddCommand(redirectCmd)
	rootCmd.AddCommand(disconnectCmd)
}

var redirectCmd = &cobra.Command{
	Use:   "redirect [connection string]",
	Short: "point the official server hostname at the given server without running the client",
	Long: `Redirect resolves the given server and writes its address to the hosts
file directly. The game then connects straight to that server, which must run
its own redirector on the official port. The entry stays until it is removed
with disconnect or overwritten by another redirect.`,
	Args: cobra.ExactArgs(1),
	RunE: redirect,
}

var disconnectCmd = &cobra.Command{
	Use:   "disconnect",
	Short: "remove the redirect entry from the hosts file",
	RunE:  disconnect,
}

func redirect(cmd *cobra.Command, args []string) error {
	c, err := config.LoadConfig(*configFile)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	// Parse before anything else, a bad target must never touch the
	// hosts file.
	address, err := lookup.ParseAddress(args[0])
	if err != nil {
		return fmt.Errorf("invalid connection string %q: %w", args[0], err)
	}

	addr, err := lookup.NewResolver().Resolve(cmd.Context(), address)
	if err != nil {
		return fmt.Errorf("failed to resolve %q: %w", address.Host, err)
	}

	entry := hosts.Entry{IP: addr, Host: config.HostKey}
	if err := hosts.Apply(c.HostsFilePath(), entry); err != nil {
		return fmt.Errorf("failed to apply hosts entry: %w", err)
	}

	fmt.Printf("redirected %s -> %s (%s)\n", config.HostKey, address.Host, addr) // CLI output.
	return nil
}

func disconnect(cmd *cobra.Command, args []string) error {
	c, err := config.LoadConfig(*configFile)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	if err := hosts.Remove(c.HostsFilePath(), config.HostKey); err != nil {
		return fmt.Errorf("failed to remove hosts entry: %w", err)
	}

	fmt.Printf("removed redirect for %s\n", config.HostKey) // CLI output.
	return nil
}
