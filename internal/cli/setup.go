package cli

import (
	"fmt"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/Riboost-Studio/perfect-menu-print-labels/internal/model"
	"github.com/Riboost-Studio/perfect-menu-print-labels/internal/transport"
	"github.com/Riboost-Studio/perfect-menu-print-labels/internal/utils"
)

func newSetupCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "setup",
		Short: "Create or update the config interactively",
		Example: `  # First run
  labels setup

  # Write a second config for the pass printer
  labels setup --config ./pass.yaml`,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			_ = godotenv.Load()
			return a.load(cmd, true)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := utils.Setup(cmd.InOrStdin(), cmd.OutOrStdout(), a.configPath, a.cfg)
			if err != nil {
				return err
			}
			a.cfg = cfg
			fmt.Fprintln(cmd.OutOrStdout())
			platform := utils.DetectPlatform(cfg)
			kind, err := transport.Choose(platform, cfg)
			if err != nil {
				return err
			}
			utils.PrintSystemInfo(cmd.OutOrStdout(), platform, kind)
			return nil
		},
	}
}

func newInfoCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "info",
		Short: "Show the detected platform and the transport that would be used",
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			ctx := cmd.Context()
			if name, ok := ctx.Value(model.ContextAppName).(string); ok {
				fmt.Fprintf(out, "%s %v by %v\n\n", name, ctx.Value(model.ContextAppVersion), ctx.Value(model.ContextAppAuthor))
			}
			fmt.Fprintf(out, "Config: %s\n", a.configPath)
			fmt.Fprintf(out, "Print log: %s\n\n", a.cfg.LogFile)

			platform := utils.DetectPlatform(a.cfg)
			kind, err := transport.Choose(platform, a.cfg)
			if err != nil {
				return err
			}
			utils.PrintSystemInfo(out, platform, kind)
			return nil
		},
	}
}
