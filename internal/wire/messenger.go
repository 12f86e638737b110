package wire

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const defaultReadSize = 8 << 10

// Option configures a Messenger.
type Option func(*options)

type options struct {
	codec     Codec
	maxQueued int
	readSize  int
	log       zerolog.Logger
}

// WithCodec replaces the CBOR payload codec.
func WithCodec(c Codec) Option { return func(o *options) { o.codec = c } }

// WithMaxQueued bounds the outbound queue. Overflowing it closes the
// connection. Zero means unbounded.
func WithMaxQueued(n int) Option { return func(o *options) { o.maxQueued = n } }

// WithReadSize sets the size of a single transport read.
func WithReadSize(n int) Option { return func(o *options) { o.readSize = n } }

// WithLogger sets the logger used for transport diagnostics.
func WithLogger(l zerolog.Logger) Option { return func(o *options) { o.log = l } }

// Messenger is a duplex, framed message channel over a byte stream.
//
// Inbound frames are decoded on the goroutine calling Run and handed to the
// handler in arrival order. Outbound messages go through an ordered queue that
// a single writer drains, so at most one write is in flight and frames
// reach the transport in the order they were sent.
type Messenger[In, Out any] struct {
	conn io.ReadWriteCloser
	opts options

	mu      sync.Mutex // guards decoder, queue, sending, closed
	decoder *Decoder[In]
	queue   []Out
	sending bool
	closed  bool

	wake chan struct{}
	done chan struct{}
}

// New wraps conn. Nothing is read or written until Run is called.
func New[In, Out any](conn io.ReadWriteCloser, opts ...Option) *Messenger[In, Out] {
	o := options{codec: CBOR, readSize: defaultReadSize, log: log.Logger}
	for _, opt := range opts {
		opt(&o)
	}
	if o.readSize <= 0 {
		o.readSize = defaultReadSize
	}
	return &Messenger[In, Out]{
		conn:    conn,
		opts:    o,
		decoder: NewDecoder[In](o.codec),
		wake:    make(chan struct{}, 1),
		done:    make(chan struct{}),
	}
}

// Send queues msg for delivery and returns immediately.
func (m *Messenger[In, Out]) Send(msg Out) error {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return ErrClosed
	}
	if m.opts.maxQueued > 0 && len(m.queue) >= m.opts.maxQueued {
		m.shutdownLocked()
		m.mu.Unlock()
		m.opts.log.Warn().Int("queued", m.opts.maxQueued).Msg("outbound queue overflow, disconnecting")
		// A transport close can block on a WebSocket handshake.
		go m.conn.Close()
		return ErrQueueFull
	}
	m.queue = append(m.queue, msg)
	m.mu.Unlock()

	select {
	case m.wake <- struct{}{}:
	default:
	}
	return nil
}

// Pending returns the number of queued messages, including one in flight.
func (m *Messenger[In, Out]) Pending() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := len(m.queue)
	if m.sending {
		n++
	}
	return n
}

// Done is closed once the messenger has been closed.
func (m *Messenger[In, Out]) Done() <-chan struct{} { return m.done }

// Close shuts the transport down. Queued messages are discarded.
func (m *Messenger[In, Out]) Close() error {
	m.mu.Lock()
	first := m.shutdownLocked()
	m.mu.Unlock()
	if !first {
		return nil
	}
	return m.conn.Close()
}

// shutdownLocked marks the messenger closed and reports whether this call did
// so. Caller holds mu.
func (m *Messenger[In, Out]) shutdownLocked() bool {
	if m.closed {
		return false
	}
	m.closed = true
	m.queue = nil
	close(m.done)
	return true
}

func (m *Messenger[In, Out]) isClosed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closed
}

// Run pumps the connection until the peer disconnects, a framing or transport
// error occurs, the handler fails, or ctx is cancelled. The connection is
// always closed when Run returns. A clean disconnect or a local Close yields nil.
func (m *Messenger[In, Out]) Run(ctx context.Context, handle func(In) error) error {
	stop := context.AfterFunc(ctx, func() { _ = m.Close() })
	defer stop()

	writeErr := make(chan error, 1)
	go func() { writeErr <- m.writeLoop() }()

	err := m.readLoop(handle)
	_ = m.Close()
	if werr := <-writeErr; err == nil {
		err = werr
	}
	return err
}

func (m *Messenger[In, Out]) readLoop(handle func(In) error) error {
	buf := make([]byte, m.opts.readSize)
	for {
		n, rerr := m.conn.Read(buf)
		if n > 0 {
			m.mu.Lock()
			msgs, ferr := m.decoder.Feed(buf[:n])
			m.mu.Unlock()
			for _, msg := range msgs {
				if err := handle(msg); err != nil {
					return err
				}
			}
			if ferr != nil {
				return ferr
			}
		}
		if rerr != nil {
			if errors.Is(rerr, io.EOF) || m.isClosed() {
				return nil
			}
			return fmt.Errorf("wire: read: %w", rerr)
		}
	}
}

func (m *Messenger[In, Out]) writeLoop() error {
	for {
		m.mu.Lock()
		if m.closed {
			m.sending = false
			m.mu.Unlock()
			return nil
		}
		if len(m.queue) == 0 {
			m.sending = false
			m.mu.Unlock()
			select {
			case <-m.wake:
				continue
			case <-m.done:
				return nil
			}
		}
		var zero Out
		msg := m.queue[0]
		m.queue[0] = zero
		m.queue = m.queue[1:]
		m.sending = true
		m.mu.Unlock()

		frame, err := Encode(m.opts.codec, msg)
		if err != nil {
			_ = m.Close()
			return err
		}
		if _, err := m.conn.Write(frame); err != nil {
			if m.isClosed() {
				return nil
			}
			_ = m.Close()
			return fmt.Errorf("wire: write: %w", err)
		}
	}
}
