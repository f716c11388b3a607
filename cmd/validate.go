// File: cmd/validate.go
package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/stepwright/stepwright/internal/config"
	"github.com/stepwright/stepwright/internal/flow"
)

// newValidateCmd creates the `validate` command: parse and validate a flow
// file without touching a browser.
func newValidateCmd() *cobra.Command {
	validateCmd := &cobra.Command{
		Use:   "validate <flow-file>",
		Short: "Parses and validates a flow file without executing it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			runCfg, err := config.NewConfigFromViper(viper.GetViper())
			if err != nil {
				return err
			}

			projectOverride, _ := cmd.Flags().GetString("project")

			loader := flow.NewLoader(runCfg.Runner.DefaultStepTimeout)
			fl, err := loader.Load(args[0], projectOverride)
			if err != nil {
				return fmt.Errorf("flow is invalid: %w", err)
			}

			cmd.Printf("Flow is valid: project '%s', %d steps\n", fl.Project.Name, len(fl.Steps))
			return nil
		},
	}

	validateCmd.Flags().StringP("project", "p", "", "Project name override; also selects the credential env prefix.")
	return validateCmd
}
