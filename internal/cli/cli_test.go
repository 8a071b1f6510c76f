package cli

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Riboost-Studio/perfect-menu-print-labels/internal/history"
	"github.com/Riboost-Studio/perfect-menu-print-labels/internal/label/stream"
	"github.com/Riboost-Studio/perfect-menu-print-labels/internal/model"
	"github.com/Riboost-Studio/perfect-menu-print-labels/internal/utils"
)

const testCatalog = `
ingredients:
  - name: Butter
    allergens: [Milk]
    shelfLife: 5d
  - name: Flour
    allergens: [Gluten]
menu:
  - name: Toast
    labelKind: cooked
    ingredients: [Flour, Butter, Salt]
    shelfLife: 1d
`

const testQueue = `
items:
  - name: Toast
    variant: menu
    labelKind: cooked
    quantity: 2
    ingredientNames: [Flour, Butter, Salt]
  - name: Butter
    variant: ingredient
    quantity: 1
    allergenNames: [Milk]
`

type workspace struct {
	dir    string
	config string
	log    string
}

func newWorkspace(t *testing.T, extra string) workspace {
	t.Helper()
	dir := t.TempDir()
	w := workspace{
		dir:    dir,
		config: filepath.Join(dir, "config.yaml"),
		log:    filepath.Join(dir, "printed.jsonl"),
	}
	catalog := filepath.Join(dir, "catalog.yaml")
	require.NoError(t, os.WriteFile(catalog, []byte(testCatalog), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "queue.yaml"), []byte(testQueue), 0644))
	cfg := "catalog: " + catalog + "\nlogFile: " + w.log + "\nlog:\n  level: error\n" + extra
	require.NoError(t, os.WriteFile(w.config, []byte(cfg), 0644))
	return w
}

func (w workspace) run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	root := NewRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(io.Discard)
	root.SetIn(strings.NewReader(""))
	root.SetArgs(append([]string{"--config", w.config}, args...))
	ctx := context.WithValue(context.Background(), model.ContextAppName, "labels-test")
	err := root.ExecuteContext(ctx)
	return out.String(), err
}

type fakeBridge struct {
	frames atomic.Int32
}

func newFakeBridge(t *testing.T) (*fakeBridge, string) {
	t.Helper()
	f := &fakeBridge{}
	var upgrader websocket.Upgrader
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		c, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer c.Close()
		c.WriteJSON(model.BridgeMessage{
			Type:           model.MessageTypeConnection,
			Printers:       []string{model.FallbackPrinterName, "Prep", "Pass"},
			DefaultPrinter: "Pass",
		})
		for {
			if _, _, err := c.ReadMessage(); err != nil {
				return
			}
			f.frames.Add(1)
			ok := true
			c.WriteJSON(model.BridgeMessage{Success: &ok, PrinterName: "Pass"})
		}
	}))
	t.Cleanup(srv.Close)
	return f, "ws" + strings.TrimPrefix(srv.URL, "http")
}

func bridgeConfig(url string) string {
	return "transport: bridge\nbridge:\n  url: " + url + "\n"
}

func TestRenderWritesImageAndStream(t *testing.T) {
	w := newWorkspace(t, "initial: jd\n")
	outDir := filepath.Join(w.dir, "out")

	out, err := w.run(t, "render", "--item", "toast", "--out", outDir)
	require.NoError(t, err)

	png, err := os.ReadFile(filepath.Join(outDir, "01-toast.png"))
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(png, []byte("\x89PNG")))

	escpos, err := os.ReadFile(filepath.Join(outDir, "01-toast.escpos"))
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(escpos, []byte{0x1b, 0x40}))
	assert.True(t, bytes.HasSuffix(escpos, []byte{0x1d, 0x56, 0x41, 0x00}))

	assert.Contains(t, out, "== Toast (menu, 31mm)")
	assert.Contains(t, out, "| Contains: Gluten, Milk")
	assert.Contains(t, out, "@JD")
}

func TestRenderQueueAtExtendedHeight(t *testing.T) {
	w := newWorkspace(t, "")
	outDir := filepath.Join(w.dir, "out")

	out, err := w.run(t, "render", "--queue", filepath.Join(w.dir, "queue.yaml"), "--height", "80", "--out", outDir)
	require.NoError(t, err)
	assert.FileExists(t, filepath.Join(outDir, "01-toast.png"))
	assert.FileExists(t, filepath.Join(outDir, "02-butter.escpos"))
	assert.Contains(t, out, "(ingredient, 80mm)")
	assert.Contains(t, out, "[ CONTAINS ALLERGENS ]")
}

func TestRenderRejects(t *testing.T) {
	w := newWorkspace(t, "")

	_, err := w.run(t, "render", "--item", "Cake")
	assert.ErrorContains(t, err, "not in the catalog")

	_, err = w.run(t, "render")
	assert.Error(t, err)

	_, err = w.run(t, "render", "--item", "Toast", "--height", "50")
	assert.ErrorIs(t, err, model.ErrUnsupportedHeight)
}

func TestPrintSessionsAndReprint(t *testing.T) {
	bridge, url := newFakeBridge(t)
	w := newWorkspace(t, bridgeConfig(url)+"initial: ab\n")

	out, err := w.run(t, "print", "--queue", filepath.Join(w.dir, "queue.yaml"), "--wait", "2s")
	require.NoError(t, err)
	assert.Contains(t, out, "2 of 2 printed on Pass")
	assert.Equal(t, int32(3), bridge.frames.Load())

	entries, err := history.Load(w.log)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "Pass", entries[0].Details.PrinterUsed.Name)
	assert.Equal(t, "AB", entries[0].Details.Initial)

	sessions := history.Group(entries)
	require.Len(t, sessions, 1)
	assert.Equal(t, 3, sessions[0].Quantity)

	out, err = w.run(t, "sessions")
	require.NoError(t, err)
	assert.Contains(t, out, sessions[0].ID[:8])
	assert.Contains(t, out, "Toast, Butter")

	out, err = w.run(t, "reprint", sessions[0].ID[:8], "--wait", "2s")
	require.NoError(t, err)
	assert.Contains(t, out, "2 of 2 printed on Pass")
	assert.Equal(t, int32(6), bridge.frames.Load())

	entries, err = history.Load(w.log)
	require.NoError(t, err)
	assert.Len(t, entries, 4)
	assert.Len(t, history.Group(entries), 2)

	state, err := utils.LoadPrinters(utils.PrintersPath(w.config))
	require.NoError(t, err)
	assert.Len(t, state.Known, 3)
}

func TestPrintersSelectAndList(t *testing.T) {
	_, url := newFakeBridge(t)
	w := newWorkspace(t, bridgeConfig(url))

	out, err := w.run(t, "printers", "select", "Prep")
	require.NoError(t, err)
	assert.Contains(t, out, "Selected Prep")

	out, err = w.run(t, "printers", "list", "--wait", "2s")
	require.NoError(t, err)
	assert.Contains(t, out, "(default)")
	assert.Contains(t, out, "(selected)")
	assert.Contains(t, out, "Labels print on Prep via bridge")

	out, err = w.run(t, "printers", "select", "--clear")
	require.NoError(t, err)
	assert.Contains(t, out, "cleared")
}

func TestScanNeedsWireless(t *testing.T) {
	_, url := newFakeBridge(t)
	w := newWorkspace(t, bridgeConfig(url))

	_, err := w.run(t, "printers", "scan")
	assert.ErrorIs(t, err, model.ErrPairingUnsupported)
}

func TestSessionsEmptyAndExport(t *testing.T) {
	w := newWorkspace(t, "")

	out, err := w.run(t, "sessions")
	require.NoError(t, err)
	assert.Contains(t, out, "No print sessions yet")

	export := filepath.Join(w.dir, "sessions.parquet")
	_, err = w.run(t, "sessions", "--export", export)
	require.NoError(t, err)
	assert.FileExists(t, export)
}

func TestSetupWritesConfig(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	// an invalid existing config does not block setup
	require.NoError(t, os.WriteFile(path, []byte("labelHeight: 50\n"), 0644))

	root := NewRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(io.Discard)
	root.SetIn(strings.NewReader("wireless\n80\nmr\n\n"))
	root.SetArgs([]string{"--config", path, "setup"})
	require.NoError(t, root.ExecuteContext(context.Background()))
	assert.Contains(t, out.String(), "Configuration saved")

	cfg, err := utils.LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "wireless", cfg.Transport)
	assert.Equal(t, 80, cfg.LabelHeight)
	assert.Equal(t, "MR", cfg.Initial)
}

func TestInfo(t *testing.T) {
	w := newWorkspace(t, "transport: usb\n")
	out, err := w.run(t, "info")
	require.NoError(t, err)
	assert.Contains(t, out, "labels-test")
	assert.Contains(t, out, "Transport: usb")
}

func TestSlug(t *testing.T) {
	assert.Equal(t, "chicken-curry", slug(" Chicken  Curry! "))
	assert.Equal(t, "crème-brûlée", slug("Crème Brûlée"))
	assert.Equal(t, "label", slug("***"))
}

func TestPreviewLine(t *testing.T) {
	assert.Equal(t, "|     [X]", previewLine(stream.Line{Text: "X", Inverted: true, Centered: true}, 11))
	assert.Equal(t, "| Salt", previewLine(stream.Line{Text: "Salt"}, 42))
}
