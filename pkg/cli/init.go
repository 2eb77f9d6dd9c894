package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/sousbot/sousbot/pkg/config"
)

func newInitCmd() *cobra.Command {
	var baseURL string
	var robotID int64
	var force bool

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Initialize a new Sousbot configuration",
		Long: `Create a sousbot.config.json in the station working directory,
pointed at the fulfillment backend.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInit(baseURL, robotID, force)
		},
	}

	cmd.Flags().StringVar(&baseURL, "backend", "http://localhost:5000", "fulfillment backend base URL")
	cmd.Flags().Int64Var(&robotID, "robot-id", 1, "robot identifier reported to the backend")
	cmd.Flags().BoolVarP(&force, "force", "f", false, "overwrite existing configuration")

	return cmd
}

func runInit(baseURL string, robotID int64, force bool) error {
	configPath := getConfigPath()

	if _, err := os.Stat(configPath); err == nil && !force {
		return fmt.Errorf("configuration already exists. Use --force to overwrite")
	}

	manager := config.NewManager()
	cfg := manager.GetDefaultConfig(baseURL, robotID)

	if err := manager.SaveConfig(configPath, cfg); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}

	printSuccess(fmt.Sprintf("Created configuration at %s", configPath))
	printInfo("Edit the configuration to tune polling, catalog and actuator settings")

	return nil
}
