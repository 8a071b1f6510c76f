package cli

import (
	"fmt"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/Riboost-Studio/perfect-menu-print-labels/internal/history"
	"github.com/Riboost-Studio/perfect-menu-print-labels/internal/model"
	"github.com/Riboost-Studio/perfect-menu-print-labels/internal/utils"
)

const sessionTimeLayout = "02/01/2006 15:04"

func newSessionsCmd(a *app) *cobra.Command {
	var (
		export string
		limit  int
		log    string
	)

	cmd := &cobra.Command{
		Use:   "sessions",
		Short: "Show past print batches, newest first",
		Example: `  labels sessions
  labels sessions --limit 0 --export sessions.parquet
  labels sessions --log archive/2026-09.parquet`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if log == "" {
				log = a.cfg.LogFile
			}
			entries, err := history.Load(log)
			if err != nil {
				return fmt.Errorf("failed to load print log: %w", err)
			}
			sessions := history.Group(entries)

			if export != "" {
				if err := history.ExportSessions(export, sessions); err != nil {
					return fmt.Errorf("failed to export sessions: %w", err)
				}
				a.log.Info("Sessions exported", "path", export, "sessions", len(sessions))
			}

			out := cmd.OutOrStdout()
			if len(sessions) == 0 {
				fmt.Fprintln(out, "No print sessions yet")
				return nil
			}
			shown := sessions
			if limit > 0 && len(shown) > limit {
				shown = shown[:limit]
			}
			w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tPRINTED\tPRINTER\tBY\tITEMS\tLABELS\tKINDS")
			for _, s := range shown {
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%d\t%s\n",
					s.ID[:8], s.Timestamp.Local().Format(sessionTimeLayout), s.Printer, s.Initial,
					summarize(s.ItemNames, 3), s.Quantity, strings.Join(s.LabelKinds, ","))
			}
			if err := w.Flush(); err != nil {
				return err
			}
			if len(shown) < len(sessions) {
				fmt.Fprintf(out, "... %d older sessions\n", len(sessions)-len(shown))
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&export, "export", "", "Also write the sessions to a .parquet file")
	cmd.Flags().IntVar(&limit, "limit", 20, "Sessions to show (0 for all)")
	cmd.Flags().StringVar(&log, "log", "", "Print log to read (.jsonl, .json or .parquet; default from config)")

	return cmd
}

func newReprintCmd(a *app) *cobra.Command {
	var opts printOptions

	cmd := &cobra.Command{
		Use:   "reprint SESSION_ID",
		Short: "Print a past session again with fresh dates",
		Long: `Reprint rebuilds a session's queue from the current catalog, so printed and
expiry dates start now. Items no longer in the catalog are skipped. The session's
printer, initials and label height are reused unless overridden.`,
		Example: `  labels sessions
  labels reprint 3f2a9c1e`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			entries, err := history.Load(a.cfg.LogFile)
			if err != nil {
				return fmt.Errorf("failed to load print log: %w", err)
			}
			session, err := history.Find(history.Group(entries), args[0])
			if err != nil {
				return err
			}
			catalog, err := utils.LoadCatalog(a.cfg.Catalog)
			if err != nil {
				return fmt.Errorf("failed to load catalog: %w", err)
			}

			now := time.Now()
			items, missing := history.ReprintQueue(session, func(e history.Entry) (model.PrintableItem, bool) {
				return catalog.QueueItem(e.Details.ItemName, e.Details.Quantity, now)
			})
			for _, name := range missing {
				a.log.Warn("Not in catalog, skipping", "item", name)
			}
			if len(items) == 0 {
				return fmt.Errorf("nothing to reprint from session %s", session.ID)
			}

			if opts.printer == "" {
				opts.printer = session.Printer
			}
			if opts.initial == "" {
				opts.initial = session.Initial
			}
			if opts.height == 0 {
				opts.height = session.LabelHeight
			}
			return a.printQueue(cmd.Context(), cmd.OutOrStdout(), items, catalog, opts)
		},
	}
	opts.bind(cmd)

	return cmd
}

func summarize(names []string, max int) string {
	if len(names) <= max {
		return strings.Join(names, ", ")
	}
	return fmt.Sprintf("%s +%d", strings.Join(names[:max], ", "), len(names)-max)
}
