package cmd

import (
	"fmt"
	"log"
	"os"

	"github.com/spf13/cobra"
	"github.com/westernheights/website/internal/config"
)

// Cfg is the global variable holding the loaded configuration.
// It is accessible to all Cobra commands throughout the application.
var Cfg *config.Config

// RootCmd is the base command for the CLI application.
// The other commands (run-server, migrate, report, publish) register
// themselves as subcommands via their own init() functions.
var RootCmd = &cobra.Command{
	Use:   "website",
	Short: "Western Heights Inc. website backend",
	Long: `Backend for the Western Heights Inc. website: serves the public API,
tracks traffic analytics, handles contact form submissions and renders
the content tree to static HTML.`,
}

// Execute is the main entry point for the Cobra application.
// It is called from main.go and handles command execution and errors.
func Execute() {
	if err := RootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error executing command: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	// Load configuration before any command runs
	cobra.OnInitialize(initConfig)
}

// initConfig loads the application configuration. It runs at the beginning of
// every command execution thanks to cobra.OnInitialize above.
func initConfig() {
	var err error
	Cfg, err = config.LoadConfig()
	if err != nil {
		log.Printf("Warning: Problem loading configuration: %v. Using default values.", err)
	}
}
