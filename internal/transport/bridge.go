package transport

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/Riboost-Studio/perfect-menu-print-labels/internal/model"
)

const (
	DefaultBridgeURL        = "ws://127.0.0.1:8765/print"
	defaultHandshakeTimeout = 5 * time.Second
	defaultJobTimeout       = 30 * time.Second
)

// BridgeClient talks to the local print bridge over a websocket. The bridge
// pushes its printer list on connect and answers every submitted image with a
// completion envelope.
type BridgeClient struct {
	cfg    model.BridgeConfig
	dialer *websocket.Dialer
	log    *slog.Logger
	m      *machine[*bridgeConn]
}

type bridgeConn struct {
	ws      *websocket.Conn
	writeMu sync.Mutex
	jobMu   sync.Mutex
	results chan model.BridgeMessage
	done    chan struct{}
	once    sync.Once
}

func (c *bridgeConn) Close() error {
	c.once.Do(func() { close(c.done) })
	return c.ws.Close()
}

func NewBridgeClient(cfg model.BridgeConfig, retry model.RetryConfig, log *slog.Logger) *BridgeClient {
	if cfg.URL == "" {
		cfg.URL = DefaultBridgeURL
	}
	if cfg.HandshakeTimeout <= 0 {
		cfg.HandshakeTimeout = defaultHandshakeTimeout
	}
	if cfg.JobTimeout <= 0 {
		cfg.JobTimeout = defaultJobTimeout
	}
	if log == nil {
		log = slog.Default()
	}

	b := &BridgeClient{
		cfg: cfg,
		dialer: &websocket.Dialer{
			HandshakeTimeout: cfg.HandshakeTimeout,
		},
		log: log.With("transport", string(KindBridge)),
	}
	b.m = newMachine[*bridgeConn](KindBridge, retry, log, b.open)
	b.m.onConnected = func(gen uint64, c *bridgeConn) {
		go b.readLoop(gen, c)
	}
	return b
}

func (b *BridgeClient) Kind() Kind               { return KindBridge }
func (b *BridgeClient) PayloadKind() PayloadKind { return PayloadRaster }
func (b *BridgeClient) Start()                   { b.m.start() }
func (b *BridgeClient) Reconnect()               { b.m.reconnect() }
func (b *BridgeClient) Close() error             { return b.m.close() }
func (b *BridgeClient) Status() Status           { return b.m.status() }

func (b *BridgeClient) WaitReady(ctx context.Context) error {
	return b.m.waitReady(ctx)
}

// open dials the bridge and blocks until the first printer enumeration.
func (b *BridgeClient) open(ctx context.Context) (*bridgeConn, enumeration, error) {
	ws, _, err := b.dialer.DialContext(ctx, b.cfg.URL, nil)
	if err != nil {
		return nil, enumeration{}, fmt.Errorf("dial bridge %s: %w", b.cfg.URL, err)
	}

	// a retired generation interrupts the handshake read
	stop := context.AfterFunc(ctx, func() { ws.Close() })
	defer stop()

	ws.SetReadDeadline(time.Now().Add(b.cfg.HandshakeTimeout))
	for {
		msg, err := readBridgeMessage(ws)
		if err != nil {
			ws.Close()
			return nil, enumeration{}, fmt.Errorf("waiting for bridge printer list: %w", err)
		}
		switch msg.Type {
		case model.MessageTypeConnection:
			ws.SetReadDeadline(time.Time{})
			conn := &bridgeConn{
				ws:      ws,
				results: make(chan model.BridgeMessage, 1),
				done:    make(chan struct{}),
			}
			return conn, bridgeEnumeration(msg), nil
		case model.MessageTypeError:
			ws.Close()
			return nil, enumeration{}, fmt.Errorf("bridge refused connection: %s", msg.Message)
		default:
			b.log.Debug("Ignoring message before printer list", "type", msg.Type)
		}
	}
}

func (b *BridgeClient) readLoop(gen uint64, c *bridgeConn) {
	for {
		_, data, err := c.ws.ReadMessage()
		if err != nil {
			b.m.drop(gen, fmt.Errorf("bridge connection lost: %w", err))
			return
		}
		var msg model.BridgeMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			b.log.Debug("Skipping malformed bridge message", "error", err)
			continue
		}

		switch {
		case msg.Type == model.MessageTypeConnection:
			enum := bridgeEnumeration(msg)
			b.log.Info("Printer list updated", "printers", len(enum.printers), "default", enum.defaultPrinter)
			b.m.setEnumeration(gen, enum)
			b.m.restore(gen)
		case msg.Type == model.MessageTypeError:
			b.log.Warn("Bridge reported an error", "message", msg.Message)
			b.m.degrade(gen, fmt.Errorf("bridge error: %s", msg.Message))
			c.deliver(msg)
		case msg.IsJobResult():
			c.deliver(msg)
		default:
			b.log.Debug("Unknown bridge message", "type", msg.Type)
		}
	}
}

// deliver hands a result to a waiting Send. Results nobody waits for are dropped.
func (c *bridgeConn) deliver(msg model.BridgeMessage) {
	select {
	case c.results <- msg:
	default:
	}
}

// Send submits one image and waits for the bridge to report the job outcome.
// The bridge prints on the printer it has selected; printerName is only used
// to flag a mismatch.
func (b *BridgeClient) Send(ctx context.Context, p Payload, printerName string) error {
	if err := checkPayload(b, p); err != nil {
		return err
	}
	c, gen, err := b.m.current()
	if err != nil {
		return err
	}

	c.jobMu.Lock()
	defer c.jobMu.Unlock()

	select {
	case <-c.results:
	default:
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	frame := EncodeImage(p.Data)
	c.writeMu.Lock()
	err = c.ws.WriteMessage(websocket.TextMessage, []byte(frame))
	c.writeMu.Unlock()
	if err != nil {
		err = fmt.Errorf("send to bridge: %w", err)
		b.m.degrade(gen, err)
		return err
	}
	b.log.Debug("Job submitted", "printer", printerName, "bytes", len(frame))

	// A submitted job is awaited even if ctx ends.
	timer := time.NewTimer(b.cfg.JobTimeout)
	defer timer.Stop()

	select {
	case <-c.done:
		return fmt.Errorf("%w: connection closed while printing", model.ErrNotConnected)
	case <-timer.C:
		err := fmt.Errorf("bridge did not confirm job within %s", b.cfg.JobTimeout)
		b.m.degrade(gen, err)
		return err
	case msg := <-c.results:
		return b.complete(gen, msg, printerName)
	}
}

func (b *BridgeClient) complete(gen uint64, msg model.BridgeMessage, printerName string) error {
	if msg.Type == model.MessageTypeError {
		return &model.JobError{PrinterName: printerName, Message: msg.Message}
	}
	if !*msg.Success {
		err := &model.JobError{PrinterName: msg.PrinterName, Message: msg.ErrorMessage}
		b.m.degrade(gen, err)
		return err
	}
	if printerName != "" && msg.PrinterName != "" && msg.PrinterName != printerName {
		b.log.Warn("Bridge printed on a different printer", "requested", printerName, "used", msg.PrinterName)
	}
	b.m.restore(gen)
	b.log.Info("Job printed", "printer", msg.PrinterName)
	return nil
}

func readBridgeMessage(ws *websocket.Conn) (model.BridgeMessage, error) {
	var msg model.BridgeMessage
	_, data, err := ws.ReadMessage()
	if err != nil {
		return msg, err
	}
	err = json.Unmarshal(data, &msg)
	return msg, err
}

func bridgeEnumeration(msg model.BridgeMessage) enumeration {
	enum := enumeration{defaultPrinter: msg.DefaultPrinter}
	for _, name := range msg.Printers {
		enum.printers = append(enum.printers, model.PrinterDescriptor{
			Name:      name,
			State:     model.PrinterStateReady,
			IsDefault: name == msg.DefaultPrinter,
		})
	}
	return enum
}

// EncodeImage produces the bridge frame for an image: bare base64 without a
// data URL prefix. Data that is already a data URL has its prefix removed.
func EncodeImage(data []byte) string {
	if bytes.HasPrefix(data, []byte("data:")) {
		return StripDataURL(strings.TrimSpace(string(data)))
	}
	return base64.StdEncoding.EncodeToString(data)
}

// StripDataURL removes a "data:<mime>;base64," prefix.
func StripDataURL(s string) string {
	if !strings.HasPrefix(s, "data:") {
		return s
	}
	if i := strings.Index(s, ","); i >= 0 {
		return s[i+1:]
	}
	return s
}
