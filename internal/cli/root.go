// Package cli wires the label printer commands.
package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/Riboost-Studio/perfect-menu-print-labels/internal/model"
	"github.com/Riboost-Studio/perfect-menu-print-labels/internal/transport"
	"github.com/Riboost-Studio/perfect-menu-print-labels/internal/utils"
)

const defaultWait = 10 * time.Second

// app is the state shared by every subcommand once the config is loaded.
type app struct {
	configPath   string
	printersPath string
	cfg          model.Config
	log          *slog.Logger
}

func NewRootCmd() *cobra.Command {
	a := &app{}
	cmd := &cobra.Command{
		Use:   "labels",
		Short: "Food labels for kitchen thermal printers",
		Long: `Labels renders food preparation, allergen and PPDS labels and prints them
through a local print bridge, a USB printer or a Bluetooth LE printer.

The transport is picked once at startup: the configured one, else the bridge
when it answers, else a granted USB device, else Bluetooth.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			// Load .env file if present (ignore errors)
			_ = godotenv.Load()
			return a.load(cmd, false)
		},
	}
	cmd.PersistentFlags().StringVar(&a.configPath, "config", "", "Path to the config file (default: $XDG_CONFIG_HOME/perfect-menu-labels/config.yaml)")

	cmd.AddCommand(newSetupCmd(a))
	cmd.AddCommand(newInfoCmd(a))
	cmd.AddCommand(newRenderCmd(a))
	cmd.AddCommand(newPrintCmd(a))
	cmd.AddCommand(newPrintersCmd(a))
	cmd.AddCommand(newSessionsCmd(a))
	cmd.AddCommand(newReprintCmd(a))

	return cmd
}

// load resolves paths and reads the config. With lenient set a broken config
// falls back to the defaults.
func (a *app) load(cmd *cobra.Command, lenient bool) error {
	if a.configPath == "" {
		a.configPath = os.Getenv("LABELS_CONFIG")
	}
	if a.configPath == "" {
		if path, ok := cmd.Context().Value(model.ContextConfigFile).(string); ok && path != "" {
			a.configPath = path
		} else {
			path, err := utils.DefaultConfigPath()
			if err != nil {
				return fmt.Errorf("failed to resolve config path: %w", err)
			}
			a.configPath = path
		}
	}
	a.printersPath = utils.PrintersPath(a.configPath)

	cfg, err := utils.LoadConfig(a.configPath)
	if err != nil {
		if !lenient {
			return err
		}
		cfg = utils.DefaultConfig()
	}
	a.cfg = cfg
	a.log = utils.NewLogger(cfg.Log, cmd.ErrOrStderr())
	slog.SetDefault(a.log)
	if err != nil {
		a.log.Warn("Ignoring invalid config", "path", a.configPath, "error", err)
	}
	return nil
}

// selector builds and starts the transport without waiting for it.
func (a *app) selector() (*transport.Selector, error) {
	platform := utils.DetectPlatform(a.cfg)
	sel, err := transport.NewSelector(platform, a.cfg, transport.WithLogger(a.log))
	if err != nil {
		return nil, err
	}
	sel.Start()
	return sel, nil
}

// connect starts the transport and waits until it can print.
func (a *app) connect(ctx context.Context, wait time.Duration) (*transport.Selector, error) {
	sel, err := a.selector()
	if err != nil {
		return nil, err
	}
	waitCtx, cancel := context.WithTimeout(ctx, wait)
	defer cancel()
	if err := sel.WaitReady(waitCtx); err != nil {
		sel.Close()
		return nil, fmt.Errorf("%s transport not ready: %w", sel.Kind(), err)
	}
	return sel, nil
}

// rememberPrinters stores the last enumerated list next to the config.
func (a *app) rememberPrinters(printers []model.PrinterDescriptor) {
	state, err := utils.LoadPrinters(a.printersPath)
	if err != nil {
		a.log.Warn("Failed to read printer state", "path", a.printersPath, "error", err)
		return
	}
	state.Known = printers
	if err := utils.SavePrinters(a.printersPath, state); err != nil {
		a.log.Warn("Failed to save printer state", "path", a.printersPath, "error", err)
	}
}
