package cli

import (
	"context"
	"fmt"
	"slices"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/Riboost-Studio/perfect-menu-print-labels/internal/model"
	"github.com/Riboost-Studio/perfect-menu-print-labels/internal/transport"
	"github.com/Riboost-Studio/perfect-menu-print-labels/internal/utils"
)

func newPrintersCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "printers",
		Short: "List, select and pair printers",
	}

	cmd.AddCommand(newPrintersListCmd(a))
	cmd.AddCommand(newPrintersSelectCmd(a))
	cmd.AddCommand(newPrintersScanCmd(a))
	cmd.AddCommand(newPrintersPairCmd(a))

	return cmd
}

func newPrintersListCmd(a *app) *cobra.Command {
	var wait time.Duration

	cmd := &cobra.Command{
		Use:   "list",
		Short: "Connect and list the printers the transport reports",
		RunE: func(cmd *cobra.Command, args []string) error {
			sel, err := a.connect(cmd.Context(), wait)
			if err != nil {
				return err
			}
			defer sel.Close()

			printers := sel.Printers()
			a.rememberPrinters(printers)
			state, _ := utils.LoadPrinters(a.printersPath)

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "NAME\tSTATE\tLOCATION\t")
			for _, p := range printers {
				var marks string
				if p.IsDefault {
					marks += " (default)"
				}
				if p.Name == state.Selected {
					marks += " (selected)"
				}
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", p.Name, p.State, p.Location, marks)
			}
			if err := w.Flush(); err != nil {
				return err
			}

			target, err := sel.Resolve(state.Selected)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "\nLabels print on %s via %s\n", target, sel.Kind())
			return nil
		},
	}
	cmd.Flags().DurationVar(&wait, "wait", defaultWait, "How long to wait for the printer connection")

	return cmd
}

func newPrintersSelectCmd(a *app) *cobra.Command {
	var reset bool

	cmd := &cobra.Command{
		Use:   "select [NAME]",
		Short: "Remember the printer labels go to",
		Example: `  labels printers select "Kitchen Prep"
  labels printers select --clear`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			state, err := utils.LoadPrinters(a.printersPath)
			if err != nil {
				return err
			}
			switch {
			case reset:
				state.Selected = ""
			case len(args) == 1:
				state.Selected = args[0]
				if !slices.ContainsFunc(state.Known, func(p model.PrinterDescriptor) bool { return p.Name == args[0] }) {
					a.log.Warn("Printer not seen yet, run 'labels printers list' to check", "printer", args[0])
				}
			default:
				return fmt.Errorf("a printer name or --clear is required")
			}
			if err := utils.SavePrinters(a.printersPath, state); err != nil {
				return err
			}
			if state.Selected == "" {
				fmt.Fprintln(cmd.OutOrStdout(), "Printer selection cleared")
			} else {
				fmt.Fprintf(cmd.OutOrStdout(), "Selected %s\n", state.Selected)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&reset, "clear", false, "Forget the selection and use the transport default")

	return cmd
}

func newPrintersScanCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "scan",
		Short: "Scan for Bluetooth LE printers",
		RunE: func(cmd *cobra.Command, args []string) error {
			sel, err := a.selector()
			if err != nil {
				return err
			}
			defer sel.Close()

			found, err := sel.Scan(cmd.Context())
			if err != nil {
				return err
			}
			if len(found) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No printers found")
				return nil
			}
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "ADDRESS\tNAME\tRSSI")
			for _, p := range found {
				fmt.Fprintf(w, "%s\t%s\t%d\n", p.Address, p.Name, p.RSSI)
			}
			if err := w.Flush(); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "\nPair with: labels printers pair ADDRESS")
			return nil
		},
	}
}

func newPrintersPairCmd(a *app) *cobra.Command {
	var name string
	var wait time.Duration

	cmd := &cobra.Command{
		Use:     "pair ADDRESS",
		Short:   "Pair a Bluetooth LE printer and remember it",
		Example: `  labels printers pair 60:6E:41:12:34:56 --name "Prep printer"`,
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sel, err := a.selector()
			if err != nil {
				return err
			}
			defer sel.Close()

			ctx, cancel := context.WithTimeout(cmd.Context(), wait)
			defer cancel()
			if err := sel.Pair(ctx, transport.Peripheral{Address: args[0], Name: name}); err != nil {
				return err
			}

			a.cfg.Wireless.Address = args[0]
			if name != "" {
				a.cfg.Wireless.Name = name
			}
			if err := utils.SaveConfig(a.configPath, a.cfg); err != nil {
				return err
			}
			a.rememberPrinters(sel.Printers())
			fmt.Fprintf(cmd.OutOrStdout(), "Paired %s\n", args[0])
			return nil
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "Display name for the printer")
	cmd.Flags().DurationVar(&wait, "wait", 30*time.Second, "How long to wait for the connection")

	return cmd
}
