package cli

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/Riboost-Studio/perfect-menu-print-labels/internal/history"
	"github.com/Riboost-Studio/perfect-menu-print-labels/internal/model"
	"github.com/Riboost-Studio/perfect-menu-print-labels/internal/services"
	"github.com/Riboost-Studio/perfect-menu-print-labels/internal/utils"
)

type printOptions struct {
	printer string
	initial string
	height  int
	wait    time.Duration
}

func (o *printOptions) bind(cmd *cobra.Command) {
	cmd.Flags().StringVar(&o.printer, "printer", "", "Printer name (default: the selected printer, then the transport default)")
	cmd.Flags().StringVar(&o.initial, "initial", "", "Initials printed on the labels (default from config)")
	cmd.Flags().IntVar(&o.height, "height", 0, "Label height in mm (default from config)")
	cmd.Flags().DurationVar(&o.wait, "wait", defaultWait, "How long to wait for the printer connection")
}

func newPrintCmd(a *app) *cobra.Command {
	var queuePath string
	var opts printOptions

	cmd := &cobra.Command{
		Use:   "print",
		Short: "Print a queue of labels",
		Long: `Print sends every queue item to one printer, quantity copies each. A failing
item is reported and the rest of the queue still prints. Successful labels are
appended to the print log for the sessions and reprint commands.`,
		Example: `  # Print on the selected or default printer
  labels print --queue queue.yaml

  # Print on a named bridge printer with someone else's initials
  labels print --queue queue.yaml --printer "Pass" --initial MR`,
		RunE: func(cmd *cobra.Command, args []string) error {
			items, err := utils.LoadQueue(queuePath)
			if err != nil {
				return fmt.Errorf("failed to load queue: %w", err)
			}
			catalog, err := utils.LoadCatalog(a.cfg.Catalog)
			if err != nil {
				return fmt.Errorf("failed to load catalog: %w", err)
			}
			return a.printQueue(cmd.Context(), cmd.OutOrStdout(), items, catalog, opts)
		},
	}

	cmd.Flags().StringVar(&queuePath, "queue", "", "Queue file (.yaml or .json)")
	_ = cmd.MarkFlagRequired("queue")
	opts.bind(cmd)

	return cmd
}

// printQueue connects, runs the queue and records every printed item.
func (a *app) printQueue(ctx context.Context, out io.Writer, items []model.PrintableItem, catalog *model.Catalog, opts printOptions) error {
	if opts.height == 0 {
		opts.height = a.cfg.LabelHeight
	}
	if opts.initial == "" {
		opts.initial = a.cfg.Initial
	}
	if opts.wait == 0 {
		opts.wait = defaultWait
	}

	sel, err := a.connect(ctx, opts.wait)
	if err != nil {
		return err
	}
	defer sel.Close()

	selected := opts.printer
	if selected == "" {
		state, err := utils.LoadPrinters(a.printersPath)
		if err != nil {
			a.log.Warn("Failed to read printer state", "path", a.printersPath, "error", err)
		}
		selected = state.Selected
	}

	recorder := history.NewRecorder(a.cfg.LogFile)
	orch := services.NewOrchestrator(sel, catalog,
		services.WithLogger(a.log),
		services.OnResult(func(r services.ItemResult) {
			if !r.OK() {
				return
			}
			entry := history.NewEntry(r.Item, r.Printer, r.PrintedAt, r.Initial, r.HeightMM)
			if err := recorder.Append(entry); err != nil {
				a.log.Warn("Failed to record print", "item", r.Item.Name, "error", err)
			}
		}),
	)

	report, err := orch.Run(ctx, services.Job{
		Items:           items,
		SelectedPrinter: selected,
		HeightMM:        opts.height,
		Initial:         opts.initial,
	})
	a.rememberPrinters(sel.Printers())
	if err != nil {
		return err
	}

	fmt.Fprintf(out, "%s on %s\n", report.Summary(), report.Printer)
	for _, name := range report.FailedItemNames {
		fmt.Fprintf(out, "  failed: %s\n", name)
	}
	for _, name := range report.Skipped {
		fmt.Fprintf(out, "  skipped: %s\n", name)
	}
	if report.FailCount > 0 {
		return fmt.Errorf("%d of %d items failed", report.FailCount, report.Total)
	}
	return nil
}
