package cli

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"
	"unicode"

	"github.com/spf13/cobra"

	"github.com/Riboost-Studio/perfect-menu-print-labels/internal/label"
	"github.com/Riboost-Studio/perfect-menu-print-labels/internal/label/raster"
	"github.com/Riboost-Studio/perfect-menu-print-labels/internal/label/stream"
	"github.com/Riboost-Studio/perfect-menu-print-labels/internal/model"
	"github.com/Riboost-Studio/perfect-menu-print-labels/internal/transport"
	"github.com/Riboost-Studio/perfect-menu-print-labels/internal/utils"
)

func newRenderCmd(a *app) *cobra.Command {
	var (
		itemName  string
		queuePath string
		outDir    string
		initial   string
		height    int
	)

	cmd := &cobra.Command{
		Use:   "render",
		Short: "Render labels to files without printing",
		Long: `Render writes every label twice: as a PNG image (what the bridge and
Bluetooth printers receive) and as an .escpos control stream framed for a USB
printer. A text preview decoded from the stream is printed to stdout.`,
		Example: `  # Render one catalog entry
  labels render --item "Chicken Curry" --out ./preview

  # Render a whole queue on 80mm labels
  labels render --queue queue.yaml --height 80 --out ./preview`,
		RunE: func(cmd *cobra.Command, args []string) error {
			catalog, err := utils.LoadCatalog(a.cfg.Catalog)
			if err != nil {
				return fmt.Errorf("failed to load catalog: %w", err)
			}

			var items []model.PrintableItem
			switch {
			case queuePath != "":
				if items, err = utils.LoadQueue(queuePath); err != nil {
					return fmt.Errorf("failed to load queue: %w", err)
				}
			case itemName != "":
				item, ok := catalog.QueueItem(itemName, 1, time.Now())
				if !ok {
					return fmt.Errorf("%q is not in the catalog", itemName)
				}
				items = append(items, item)
			default:
				return errors.New("one of --item or --queue is required")
			}

			if height == 0 {
				height = a.cfg.LabelHeight
			}
			if initial == "" {
				initial = a.cfg.Initial
			}
			cfg, err := label.ConfigFor(height)
			if err != nil {
				return err
			}
			if err := os.MkdirAll(outDir, 0755); err != nil {
				return fmt.Errorf("failed to create output directory: %w", err)
			}

			for i, item := range items {
				base := filepath.Join(outDir, fmt.Sprintf("%02d-%s", i+1, slug(item.Name)))
				if err := renderItem(cmd.OutOrStdout(), item, catalog, cfg, initial, base); err != nil {
					return err
				}
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&itemName, "item", "", "Catalog entry to render")
	cmd.Flags().StringVar(&queuePath, "queue", "", "Queue file (.yaml or .json) to render")
	cmd.Flags().StringVar(&outDir, "out", ".", "Output directory")
	cmd.Flags().StringVar(&initial, "initial", "", "Initials printed on the label (default from config)")
	cmd.Flags().IntVar(&height, "height", 0, "Label height in mm (default from config)")
	cmd.MarkFlagsMutuallyExclusive("item", "queue")

	return cmd
}

func renderItem(out io.Writer, item model.PrintableItem, catalog *model.Catalog, cfg label.LayoutConfig, initial, base string) error {
	content := label.Compose(item, catalog, cfg, label.Options{Initial: initial})

	png, err := raster.Render(content, cfg)
	if err != nil {
		return fmt.Errorf("render %s: %w", item.Name, err)
	}
	if err := os.WriteFile(base+".png", png, 0644); err != nil {
		return err
	}

	s := stream.Render(content, cfg)
	if err := os.WriteFile(base+".escpos", transport.FrameStream([]byte(s)), 0644); err != nil {
		return err
	}

	lines, err := stream.Decode(s)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "== %s (%s, %dmm) -> %s.png\n", item.Name, content.Variant, cfg.HeightMM, base)
	for _, ln := range lines {
		fmt.Fprintln(out, previewLine(ln, cfg.StreamColumns))
	}
	fmt.Fprintln(out)
	return nil
}

// previewLine approximates the printed line: centered text is centered in the
// column width and inverted text is bracketed.
func previewLine(ln stream.Line, width int) string {
	text := ln.Text
	if ln.Inverted {
		text = "[" + text + "]"
	}
	if ln.Centered {
		if pad := (width - stream.VisibleLen(text)) / 2; pad > 0 {
			text = strings.Repeat(" ", pad) + text
		}
	}
	return "| " + text
}

func slug(name string) string {
	var b strings.Builder
	dash := false
	for _, r := range strings.ToLower(strings.TrimSpace(name)) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
			dash = false
			continue
		}
		if !dash && b.Len() > 0 {
			b.WriteByte('-')
			dash = true
		}
	}
	s := strings.TrimSuffix(b.String(), "-")
	if s == "" {
		return "label"
	}
	return s
}
