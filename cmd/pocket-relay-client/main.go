package main

import (
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

var (
	rootCmd = &cobra.Command{
		Use: "pocket-relay-client",
	}

	configFile = pflag.String("config", "", "set config file")
	logLevel   = pflag.String("log", "", "set log level")
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
