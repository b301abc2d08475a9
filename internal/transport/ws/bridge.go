// Package ws connects one WebSocket client to one advisory run.
package ws

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"golang.org/x/sync/errgroup"

	"github.com/xiaot623/fingenie/internal/domain"
	"github.com/xiaot623/fingenie/internal/logger"
	"github.com/xiaot623/fingenie/internal/metrics"
	"github.com/xiaot623/fingenie/internal/protocol"
)

const (
	outCapacity = 32
	inCapacity  = 8
)

// ErrDisconnected is returned by Run when the client went away before the
// flow finished.
var ErrDisconnected = errors.New("websocket disconnected")

// Options holds connection timings.
type Options struct {
	PollInterval   time.Duration
	PingInterval   time.Duration
	WriteTimeout   time.Duration
	ReadTimeout    time.Duration
	MaxMessageSize int64
}

func (o Options) withDefaults() Options {
	if o.PollInterval <= 0 {
		o.PollInterval = 100 * time.Millisecond
	}
	if o.PingInterval <= 0 {
		o.PingInterval = 30 * time.Second
	}
	if o.WriteTimeout <= 0 {
		o.WriteTimeout = 10 * time.Second
	}
	if o.ReadTimeout <= 0 {
		o.ReadTimeout = 10 * time.Minute
	}
	if o.MaxMessageSize <= 0 {
		o.MaxMessageSize = 65536
	}
	return o
}

// Bridge carries frames between a socket and the flow goroutine. out holds
// frames for the client and in holds the client's text replies.
type Bridge struct {
	conn    *websocket.Conn
	opts    Options
	metrics *metrics.Service

	out chan protocol.Frame
	in  chan string

	closeOnce sync.Once
	closed    chan struct{}
	finished  chan struct{}
}

// NewBridge wraps an upgraded connection. A nil metrics service records
// nothing.
func NewBridge(conn *websocket.Conn, opts Options, m *metrics.Service) *Bridge {
	if m == nil {
		m = metrics.NewNoop()
	}
	return &Bridge{
		conn:     conn,
		opts:     opts.withDefaults(),
		metrics:  m,
		out:      make(chan protocol.Frame, outCapacity),
		in:       make(chan string, inCapacity),
		closed:   make(chan struct{}),
		finished: make(chan struct{}),
	}
}

// Run starts the socket pumps and calls fn on its own goroutine. It returns
// once fn has returned and its frames are flushed, or once the client
// disconnects, whichever happens first; in the latter case the context given
// to fn is cancelled and Run returns ErrDisconnected after fn returns.
func (b *Bridge) Run(ctx context.Context, fn func(ctx context.Context, b *Bridge) error) error {
	b.metrics.ConnectionOpened(ctx)
	defer b.metrics.ConnectionClosed(context.WithoutCancel(ctx))

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return b.readPump() })
	g.Go(func() error { return b.writePump(gctx) })
	g.Go(func() error {
		defer close(b.finished)
		return fn(gctx, b)
	})
	return g.Wait()
}

// Closed reports whether the client connection has gone away.
func (b *Bridge) Closed() bool {
	select {
	case <-b.closed:
		return true
	default:
		return false
	}
}

func (b *Bridge) markClosed() {
	b.closeOnce.Do(func() { close(b.closed) })
}

// Send queues a frame for the client. It fails once the client is gone.
func (b *Bridge) Send(ctx context.Context, f protocol.Frame) error {
	if b.Closed() {
		return fmt.Errorf("%w: %w", domain.ErrCancelled, ErrDisconnected)
	}
	select {
	case b.out <- f:
		return nil
	case <-b.closed:
		return fmt.Errorf("%w: %w", domain.ErrCancelled, ErrDisconnected)
	case <-ctx.Done():
		return fmt.Errorf("%w: %w", domain.ErrCancelled, ctx.Err())
	}
}

// Ask shows the message addressed to the human, asks for input and waits
// for the reply. The connection state is checked every poll interval so a
// disconnect ends the wait promptly.
func (b *Bridge) Ask(ctx context.Context, speaker, prompt string) (string, error) {
	if prompt != "" {
		if err := b.Send(ctx, protocol.Bot(speaker, prompt)); err != nil {
			return "", err
		}
	}
	if err := b.Send(ctx, protocol.InputPrompt()); err != nil {
		return "", err
	}

	start := time.Now()
	ticker := time.NewTicker(b.opts.PollInterval)
	defer ticker.Stop()
	for {
		select {
		case reply := <-b.in:
			b.metrics.HumanReplied(ctx, time.Since(start))
			return reply, nil
		case <-ctx.Done():
			return "", fmt.Errorf("%w: %w", domain.ErrCancelled, ctx.Err())
		case <-ticker.C:
			if b.Closed() {
				return "", fmt.Errorf("%w: %w", domain.ErrCancelled, ErrDisconnected)
			}
		}
	}
}

// readPump reads client replies until the socket fails.
func (b *Bridge) readPump() error {
	log := logger.Default()
	defer b.markClosed()

	b.conn.SetReadLimit(b.opts.MaxMessageSize)
	_ = b.conn.SetReadDeadline(time.Now().Add(b.opts.ReadTimeout))
	b.conn.SetPongHandler(func(string) error {
		return b.conn.SetReadDeadline(time.Now().Add(b.opts.ReadTimeout))
	})

	for {
		_, message, err := b.conn.ReadMessage()
		if err != nil {
			select {
			case <-b.finished:
				return nil
			default:
			}
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseAbnormalClosure) {
				log.Warn("websocket read failed", "error", err)
			}
			return ErrDisconnected
		}
		_ = b.conn.SetReadDeadline(time.Now().Add(b.opts.ReadTimeout))

		text := strings.TrimSpace(string(message))
		select {
		case b.in <- text:
		case <-b.finished:
			return nil
		}
	}
}

// writePump writes queued frames and pings. Once the flow has finished it
// drains what is left, sends a close frame and closes the socket.
func (b *Bridge) writePump(ctx context.Context) error {
	ticker := time.NewTicker(b.opts.PingInterval)
	defer func() {
		ticker.Stop()
		b.conn.Close()
	}()

	for {
		select {
		case f := <-b.out:
			if err := b.write(f); err != nil {
				return nil
			}
		case <-b.finished:
			for {
				select {
				case f := <-b.out:
					if err := b.write(f); err != nil {
						return nil
					}
				default:
					_ = b.conn.SetWriteDeadline(time.Now().Add(b.opts.WriteTimeout))
					_ = b.conn.WriteMessage(websocket.CloseMessage,
						websocket.FormatCloseMessage(websocket.CloseNormalClosure, "done"))
					return nil
				}
			}
		case <-b.closed:
			return nil
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			_ = b.conn.SetWriteDeadline(time.Now().Add(b.opts.WriteTimeout))
			if err := b.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return nil
			}
		}
	}
}

func (b *Bridge) write(f protocol.Frame) error {
	data, err := json.Marshal(f)
	if err != nil {
		return err
	}
	_ = b.conn.SetWriteDeadline(time.Now().Add(b.opts.WriteTimeout))
	if err := b.conn.WriteMessage(websocket.TextMessage, data); err != nil {
		b.markClosed()
		return err
	}
	return nil
}
