// Package main is the entry point for the configuration service.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var configPath string

func main() {
	root := &cobra.Command{
		Use:   "replane-server",
		Short: "Dynamic configuration service",
	}
	root.PersistentFlags().StringVar(&configPath, "config", "", "path to a YAML/TOML/JSON config file (optional, REPLANE_ env vars always apply)")

	root.AddCommand(serveCmd())
	root.AddCommand(migrateCmd())

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
