// Package cli provides the command-line interface for Sousbot
package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/sousbot/sousbot/pkg/config"
)

var (
	cfgFile   string
	workDir   string
	verbosity string
	version   string
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "sousbot",
	Short: "The kitchen robot order fulfillment engine",
	Long: `🍜 Sousbot - Automated food preparation order fulfillment

Sousbot polls the restaurant backend for queued orders, drives the
preparation actuator through each recipe's ingredient steps, and reports
order outcomes and operation logs back to the backend.`,

	Run: func(cmd *cobra.Command, args []string) {
		if v, _ := cmd.Flags().GetBool("version"); v {
			fmt.Printf("🍜 Sousbot v%s\n", version)
			return
		}
		cmd.Help()
	},
}

// Execute runs the CLI
func Execute(v string) error {
	version = v

	initializeRootCommand()

	return rootCmd.Execute()
}

// initializeRootCommand sets up the root command and its flags.
func initializeRootCommand() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: sousbot.config.json)")
	rootCmd.PersistentFlags().StringVar(&workDir, "root", ".", "station working directory")
	rootCmd.PersistentFlags().StringVarP(&verbosity, "verbosity", "v", "info", "log level (debug, info, warn, error)")

	rootCmd.Flags().Bool("version", false, "Print version information and quit")

	rootCmd.AddCommand(newStartCmd())
	rootCmd.AddCommand(newStopCmd())
	rootCmd.AddCommand(newStatusCmd())
	rootCmd.AddCommand(newRecipesCmd())
	rootCmd.AddCommand(newInitCmd())
	rootCmd.AddCommand(newValidateCmd())
	rootCmd.AddCommand(newVersionCmd())
}

func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.AddConfigPath(workDir)
		viper.SetConfigName("sousbot.config")
		viper.SetConfigType("json")
	}

	viper.SetEnvPrefix("SOUSBOT")
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil {
		if verbosity == "debug" {
			fmt.Println("Using config file:", viper.ConfigFileUsed())
		}
	}
}

func getConfigPath() string {
	if cfgFile != "" {
		return cfgFile
	}
	if used := viper.ConfigFileUsed(); used != "" {
		return used
	}
	return filepath.Join(workDir, config.DefaultFileName)
}

// Helper functions

func printSuccess(message string) {
	fmt.Printf("🍜 %s %s\n", color.GreenString("[Sousbot]"), message)
}

func printError(message string) {
	fmt.Fprintf(os.Stderr, "🍜 %s %s\n", color.RedString("[Sousbot]"), message)
}

func printInfo(message string) {
	fmt.Printf("🍜 %s %s\n", color.CyanString("[Sousbot]"), message)
}
