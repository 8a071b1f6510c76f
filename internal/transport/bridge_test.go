package transport

import (
	"context"
	"encoding/base64"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Riboost-Studio/perfect-menu-print-labels/internal/model"
)

type fakeBridge struct {
	printers   []string
	def        string
	fail       atomic.Bool
	dropFirst  bool
	conns      atomic.Int32
	frames     chan string
	upgrader   websocket.Upgrader
	reportedAs string
	// hold delays every reply until it is closed
	hold chan struct{}
}

func newFakeBridge(t *testing.T) (*fakeBridge, string) {
	t.Helper()
	f := &fakeBridge{
		printers: []string{"Zebra", "Brother"},
		def:      "Brother",
		frames:   make(chan string, 16),
	}
	srv := httptest.NewServer(http.HandlerFunc(f.serve))
	t.Cleanup(srv.Close)
	return f, "ws" + strings.TrimPrefix(srv.URL, "http")
}

func (f *fakeBridge) serve(w http.ResponseWriter, r *http.Request) {
	c, err := f.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer c.Close()
	n := f.conns.Add(1)

	c.WriteJSON(model.BridgeMessage{Type: model.MessageTypeConnection, Printers: f.printers, DefaultPrinter: f.def})
	if f.dropFirst && n == 1 {
		return
	}

	for {
		_, data, err := c.ReadMessage()
		if err != nil {
			return
		}
		f.frames <- string(data)
		if f.hold != nil {
			<-f.hold
		}

		ok := !f.fail.Load()
		reply := model.BridgeMessage{Success: &ok, PrinterName: f.def}
		if f.reportedAs != "" {
			reply.PrinterName = f.reportedAs
		}
		if !ok {
			reply.ErrorMessage = "paper out"
		}
		c.WriteJSON(reply)
	}
}

func startBridge(t *testing.T, url string) *BridgeClient {
	t.Helper()
	b := NewBridgeClient(model.BridgeConfig{
		URL:              url,
		HandshakeTimeout: time.Second,
		JobTimeout:       time.Second,
	}, testPolicy(), quietLogger())
	t.Cleanup(func() { b.Close() })

	b.Start()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, b.WaitReady(ctx))
	return b
}

func TestBridgeEnumeratesPrinters(t *testing.T) {
	_, url := newFakeBridge(t)
	b := startBridge(t, url)

	st := b.Status()
	assert.Equal(t, StateConnected, st.State)
	assert.Equal(t, "Brother", st.DefaultPrinter)
	require.Len(t, st.Printers, 2)
	assert.Equal(t, "Zebra", st.Printers[0].Name)
	assert.False(t, st.Printers[0].IsDefault)
	assert.True(t, st.Printers[1].IsDefault)
}

func TestBridgeSendsBase64Image(t *testing.T) {
	f, url := newFakeBridge(t)
	b := startBridge(t, url)

	png := []byte("\x89PNG\r\n\x1a\nlabel")
	require.NoError(t, b.Send(context.Background(), Payload{Kind: PayloadRaster, Data: png}, "Brother"))

	frame := <-f.frames
	assert.Equal(t, base64.StdEncoding.EncodeToString(png), frame)
}

func TestBridgeRejectedJobDegradesAndRecovers(t *testing.T) {
	f, url := newFakeBridge(t)
	b := startBridge(t, url)
	payload := Payload{Kind: PayloadRaster, Data: []byte("image")}

	f.fail.Store(true)
	err := b.Send(context.Background(), payload, "Brother")
	var jobErr *model.JobError
	require.ErrorAs(t, err, &jobErr)
	assert.Equal(t, "paper out", jobErr.Message)

	st := b.Status()
	assert.Equal(t, StateDegraded, st.State)
	assert.Len(t, st.Printers, 2)
	assert.Error(t, st.LastError)

	f.fail.Store(false)
	require.NoError(t, b.Send(context.Background(), payload, "Brother"))
	assert.Equal(t, StateConnected, b.Status().State)
}

func TestBridgeRejectsStreamPayload(t *testing.T) {
	_, url := newFakeBridge(t)
	b := startBridge(t, url)

	err := b.Send(context.Background(), Payload{Kind: PayloadStream, Data: []byte("text")}, "")
	assert.Error(t, err)
}

func TestBridgeReconnectsAfterDrop(t *testing.T) {
	f, url := newFakeBridge(t)
	f.dropFirst = true

	b := NewBridgeClient(model.BridgeConfig{URL: url, HandshakeTimeout: time.Second}, testPolicy(), quietLogger())
	defer b.Close()
	b.Start()

	require.Eventually(t, func() bool {
		return f.conns.Load() >= 2 && b.Status().State == StateConnected
	}, 2*time.Second, 5*time.Millisecond)
}

func TestBridgeSendWhileDisconnected(t *testing.T) {
	b := NewBridgeClient(model.BridgeConfig{URL: "ws://127.0.0.1:1/print"}, testPolicy(), quietLogger())
	defer b.Close()

	err := b.Send(context.Background(), Payload{Kind: PayloadRaster, Data: []byte("x")}, "")
	assert.ErrorIs(t, err, model.ErrNotConnected)
}

func TestEncodeImage(t *testing.T) {
	assert.Equal(t, "QUJD", EncodeImage([]byte("data:image/png;base64,QUJD")))
	assert.Equal(t, "QUJD", EncodeImage([]byte("ABC")))
	assert.Equal(t, "QUJD", StripDataURL("QUJD"))
}

func TestBridgeSubmittedJobOutlivesContext(t *testing.T) {
	f, url := newFakeBridge(t)
	f.hold = make(chan struct{})
	b := startBridge(t, url)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		<-f.frames
		cancel()
		close(f.hold)
	}()

	require.NoError(t, b.Send(ctx, Payload{Kind: PayloadRaster, Data: []byte("image")}, "Brother"))
	assert.Equal(t, StateConnected, b.Status().State)
}

func TestBridgeCancelledBeforeSubmitSendsNothing(t *testing.T) {
	f, url := newFakeBridge(t)
	b := startBridge(t, url)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, b.Send(ctx, Payload{Kind: PayloadRaster, Data: []byte("image")}, ""), context.Canceled)
	assert.Empty(t, f.frames)
}
