package cli

import (
	"context"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/sousbot/sousbot/pkg/backend"
	"github.com/sousbot/sousbot/pkg/catalog"
	"github.com/sousbot/sousbot/pkg/config"
	"github.com/sousbot/sousbot/pkg/daemon"
	"github.com/sousbot/sousbot/pkg/logger"
	"github.com/sousbot/sousbot/pkg/process"
	"github.com/sousbot/sousbot/pkg/state"
)

func newStartCmd() *cobra.Command {
	var logFile string

	cmd := &cobra.Command{
		Use:   "start",
		Short: "Start the fulfillment engine",
		Long:  `Start the engine: bootstrap the recipe catalog, then poll the backend for queued orders until interrupted.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStart(logFile)
		},
	}

	cmd.Flags().StringVar(&logFile, "log-file", "", "also write logs to this file")
	return cmd
}

func newStopCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stop",
		Short: "Stop a running engine",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStop()
		},
	}
}

func newStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show engine status",
		Long:  `Display the running engine's operational state, current order and outcome counters.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStatus()
		},
	}
}

func newRecipesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "recipes",
		Short: "List recipes known to the backend",
		Long:  `Fetch and join the recipe catalog once, then list each recipe with its ingredients.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRecipes()
		},
	}
}

func newValidateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Validate the configuration file",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate()
		},
	}
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version number of Sousbot",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("🍜 Sousbot v%s\n", version)
		},
	}
}

// Implementation functions

func runStart(logFile string) error {
	manager := daemon.NewManager(daemon.Config{
		WorkDir:    workDir,
		ConfigPath: getConfigPath(),
		LogFile:    logFile,
		LogLevel:   verbosity,
	})

	printInfo("Starting fulfillment engine...")
	if err := manager.StartWithContext(context.Background()); err != nil {
		printError(fmt.Sprintf("Engine failed: %v", err))
		return err
	}
	return nil
}

func runStop() error {
	manager := daemon.NewManager(daemon.Config{
		WorkDir:    workDir,
		ConfigPath: getConfigPath(),
		LogLevel:   "error",
	})

	status, err := manager.Status()
	if err != nil {
		return err
	}
	if !status.Running || status.PID == 0 {
		printInfo("Engine is not running")
		return nil
	}

	printInfo(fmt.Sprintf("Stopping engine (pid %d)...", status.PID))
	if err := process.KillProcess(status.PID); err != nil {
		printError(fmt.Sprintf("Failed to stop engine: %v", err))
		return err
	}
	printSuccess("Engine stopped")
	return nil
}

func runStatus() error {
	manager := daemon.NewManager(daemon.Config{
		WorkDir:    workDir,
		ConfigPath: getConfigPath(),
		LogLevel:   "error",
	})

	status, err := manager.Status()
	if err != nil {
		return err
	}
	if !status.Running {
		printInfo("Engine is not running")
		return nil
	}

	printSuccess(fmt.Sprintf("Engine running (pid %d)", status.PID))

	engineState := status.Engine
	if engineState == nil {
		if loaded, err := state.Read(manager.StatusFilePath()); err == nil {
			engineState = loaded
		}
	}
	if engineState == nil {
		printInfo("No status file yet")
		return nil
	}

	operational := color.RedString("no")
	if engineState.Operational {
		operational = color.GreenString("yes")
	}
	currentOrder := "-"
	if engineState.CurrentOrder != 0 {
		currentOrder = fmt.Sprintf("#%d", engineState.CurrentOrder)
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "Operational:\t%s\n", operational)
	fmt.Fprintf(w, "Current order:\t%s\n", currentOrder)
	fmt.Fprintf(w, "Started:\t%s\n", engineState.StartedAt.Format(time.RFC3339))
	fmt.Fprintf(w, "Heartbeat:\t%s\n", engineState.Heartbeat.Format(time.RFC3339))
	fmt.Fprintf(w, "Completed:\t%d\n", engineState.Completed)
	fmt.Fprintf(w, "Failed:\t%d\n", engineState.Failed)
	fmt.Fprintf(w, "Cancelled:\t%d\n", engineState.Cancelled)
	fmt.Fprintf(w, "Timed out:\t%d\n", engineState.TimedOut)
	if engineState.LastMessage != "" {
		fmt.Fprintf(w, "Last message:\t%s\n", engineState.LastMessage)
	}
	return w.Flush()
}

func runRecipes() error {
	cfg, err := config.NewManager().LoadConfig(getConfigPath())
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	log := logger.CreateLogger("", verbosity)
	client := backend.New(cfg.Backend)
	cat := catalog.New(client, catalog.NewKeywordMatcher(), log, cfg.Catalog)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	printInfo("Loading recipe catalog...")
	if err := cat.Load(ctx); err != nil {
		printError(fmt.Sprintf("Catalog load failed: %v", err))
		return err
	}

	recipes := cat.Recipes()
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tRECIPE\tINGREDIENTS\tRESOLVED")
	fmt.Fprintln(w, "--\t------\t-----------\t--------")
	for _, recipe := range recipes {
		resolved := 0
		for _, ingredient := range recipe.Ingredients {
			if _, ok := cat.OperationsFor(ingredient); ok {
				resolved++
			}
		}
		fmt.Fprintf(w, "%d\t%s\t%s\t%d/%d\n",
			recipe.ID,
			recipe.Name,
			strings.Join(recipe.Ingredients, ", "),
			resolved,
			len(recipe.Ingredients),
		)
	}
	if err := w.Flush(); err != nil {
		return err
	}

	printSuccess(fmt.Sprintf("%d recipes loaded", len(recipes)))
	return nil
}

func runValidate() error {
	path := getConfigPath()
	if _, err := config.NewManager().LoadConfig(path); err != nil {
		printError(fmt.Sprintf("Configuration invalid: %v", err))
		return err
	}
	printSuccess(fmt.Sprintf("Configuration valid: %s", path))
	return nil
}
