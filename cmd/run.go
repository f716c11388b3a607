// File: cmd/run.go
package cmd

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/stepwright/stepwright/api/schemas"
	"github.com/stepwright/stepwright/internal/artifacts"
	"github.com/stepwright/stepwright/internal/browser"
	"github.com/stepwright/stepwright/internal/config"
	"github.com/stepwright/stepwright/internal/flow"
	"github.com/stepwright/stepwright/internal/observability"
	"github.com/stepwright/stepwright/internal/runner"
)

// errRunFailed signals a completed run with failed steps. It carries no extra
// detail because the summary was already printed.
var errRunFailed = errors.New("run failed")

// customRegistry is populated by embedders before Execute; the stock CLI runs
// file-defined flows only, so it starts empty.
var customRegistry = runner.NewRegistry()

// RegisterCustomFunc exposes the custom step registry to programs that embed
// the CLI and ship their own step handlers.
func RegisterCustomFunc(name string, fn schemas.CustomFunc) error {
	return customRegistry.Register(name, fn)
}

// newRunCmd creates and configures the `run` command.
func newRunCmd() *cobra.Command {
	runCmd := &cobra.Command{
		Use:   "run <flow-file>",
		Short: "Executes a flow file against its target and writes a run summary",
		Args:  cobra.ExactArgs(1),
		PreRunE: func(cmd *cobra.Command, args []string) error {
			// Bind flags to their viper keys so CLI overrides take precedence
			// over the config file and environment.
			if err := viper.BindPFlag("browser.headless", cmd.Flags().Lookup("headless")); err != nil {
				return err
			}
			if err := viper.BindPFlag("artifacts.dir", cmd.Flags().Lookup("artifacts-dir")); err != nil {
				return err
			}
			return viper.BindPFlag("runner.default_step_timeout", cmd.Flags().Lookup("timeout"))
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			logger := observability.GetLogger()

			// Re-unmarshal so the flag bindings from PreRunE apply.
			runCfg, err := config.NewConfigFromViper(viper.GetViper())
			if err != nil {
				return err
			}

			projectOverride, _ := cmd.Flags().GetString("project")

			loader := flow.NewLoader(runCfg.Runner.DefaultStepTimeout)
			fl, err := loader.Load(args[0], projectOverride)
			if err != nil {
				return fmt.Errorf("failed to load flow: %w", err)
			}

			// Loading succeeded; from here on a failure is a run outcome, not
			// a usage error.
			cmd.SilenceUsage = true

			result, err := executeFlow(ctx, runCfg, fl, logger)
			if err != nil {
				return err
			}

			printRunSummary(cmd, result)
			if result.Status == schemas.RunFailed {
				return errRunFailed
			}
			return nil
		},
	}

	runCmd.Flags().StringP("project", "p", "", "Project name override; also selects the credential env prefix.")
	runCmd.Flags().Bool("headless", true, "Run the browser headless. (Overrides config/env)")
	runCmd.Flags().String("artifacts-dir", "", "Directory for run artifacts. (Overrides config/env)")
	runCmd.Flags().DurationP("timeout", "t", 0, "Default per-step timeout. (Overrides config/env)")

	return runCmd
}

// executeFlow wires the browser, engine, and artifact sink together and runs
// the flow. The summary file is written for failed runs too.
func executeFlow(ctx context.Context, runCfg *config.Config, fl *flow.Flow, logger *zap.Logger) (*schemas.RunResult, error) {
	sink, err := artifacts.NewFSSink(runCfg.Artifacts, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize artifact sink: %w", err)
	}
	collector := artifacts.NewCollector(logger)

	interpreter := runner.NewInterpreter(logger, customRegistry)
	engine, err := runner.New(runCfg.Runner, logger, interpreter, collector, sink)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize run engine: %w", err)
	}

	manager := browser.NewManager(runCfg, logger)
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		manager.Shutdown(shutdownCtx)
	}()

	session, err := manager.NewSession(ctx, fl.Project)
	if err != nil {
		return nil, fmt.Errorf("failed to start browser session: %w", err)
	}

	result, runErr := engine.Run(ctx, session, fl.Project, fl.Steps)

	if path, err := sink.WriteSummary(&result); err != nil {
		logger.Warn("Failed to write run summary.", zap.Error(err))
	} else {
		logger.Info("Run summary written.", zap.String("path", path))
	}

	if runErr != nil {
		return &result, fmt.Errorf("flow validation failed: %w", runErr)
	}
	return &result, nil
}

// printRunSummary writes the human-facing outcome to the command's stdout.
func printRunSummary(cmd *cobra.Command, result *schemas.RunResult) {
	cmd.Printf("\nRun %s: %s\n", result.RunID, result.Status)
	cmd.Printf("Project: %s\n", result.Project)
	cmd.Printf("Steps: %d total, %d passed, %d failed\n",
		result.TotalSteps(), result.PassedSteps(), result.FailedSteps())
	if result.AbortedAtStep != nil {
		cmd.Printf("Aborted at step %d\n", *result.AbortedAtStep)
	}
	if result.Error != "" {
		cmd.Printf("Error: %s\n", result.Error)
	}
}
