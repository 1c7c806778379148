// Package transport owns a connection. It splits it into a send loop fed by
// an unbounded outbound queue and a receive loop that decodes frames into an
// ordered mailbox. Consumers only ever touch the two queues, so none of the
// consumer facing methods block.
package transport

import (
	"context"
	"fmt"
	"io"
	"sync"
	"sync/atomic"

	"github.com/blukai/gangnet/internal/protocol"
	"github.com/go-faster/errors"
	"github.com/hashicorp/go-multierror"
	"github.com/phuslu/log"
)

// Delivery is a mailbox entry: either a decoded message, or the final entry
// with Closed set. Err is nil when the connection was closed locally.
type Delivery struct {
	Message protocol.Message
	Closed  bool
	Err     error
}

type outboundFrame struct {
	kind    protocol.Kind
	payload []byte
}

type Transport struct {
	conn FrameConn
	// side of the remote peer, used to decode inbound frames
	remote protocol.Side

	logger  *log.Logger
	metrics *Metrics

	outbound *queue[outboundFrame]
	inbound  *queue[Delivery]

	stop     chan struct{}
	stopOnce sync.Once
	closing  atomic.Bool
	closed   atomic.Bool
}

// New wraps conn. remote is the side the peer speaks as: a client passes
// protocol.FromServer. logger and metrics may be nil.
func New(conn FrameConn, remote protocol.Side, logger *log.Logger, metrics *Metrics) *Transport {
	// if logger is nil (which might be true in tests) => use default, but
	// silenced logger
	if logger == nil {
		tmp := log.DefaultLogger
		logger = &tmp
		logger.Writer = &log.IOWriter{Writer: io.Discard}
	}

	return &Transport{
		conn:   conn,
		remote: remote,

		logger:  logger,
		metrics: metrics,

		outbound: newQueue[outboundFrame](),
		inbound:  newQueue[Delivery](),

		stop: make(chan struct{}),
	}
}

func (t *Transport) RemoteAddr() string {
	return t.conn.RemoteAddr()
}

// Enqueue schedules a frame for sending. It never blocks. Frames are written
// in the order they were enqueued. Frames that can never be written are
// rejected here, the connection stays up.
func (t *Transport) Enqueue(kind protocol.Kind, payload []byte) error {
	if t.closing.Load() {
		return ErrClosed
	}
	if n := 1 + len(payload); n > protocol.MaxFrameSize {
		return errors.Wrapf(protocol.ErrFrameTooLarge, "%s of %d bytes", kind, n)
	}
	t.outbound.push(outboundFrame{kind: kind, payload: payload})
	return nil
}

// Recv pops the next mailbox entry without blocking.
func (t *Transport) Recv() (Delivery, bool) {
	return t.inbound.pop()
}

// Notify receives a value after new entries were added to the mailbox.
func (t *Transport) Notify() <-chan struct{} {
	return t.inbound.notify
}

// Close asks Run to flush the outbound queue and shut the connection down.
// It does not wait. Enqueue fails from now on, and errors seen while shutting
// down are not reported.
func (t *Transport) Close() {
	t.stopOnce.Do(func() {
		t.closing.Store(true)
		close(t.stop)
	})
}

// Closed reports whether Run has finished.
func (t *Transport) Closed() bool {
	return t.closed.Load()
}

func (t *Transport) runSend(ctx context.Context) error {
	flush := func() error {
		for {
			frame, ok := t.outbound.pop()
			if !ok {
				return nil
			}

			t.logger.Debug().
				Str("kind", frame.kind.String()).
				Int("size", len(frame.payload)).
				Str("remote", t.conn.RemoteAddr()).
				Msg("send")

			if err := t.conn.WriteFrame(frame.kind, frame.payload); err != nil {
				if errors.Is(err, protocol.ErrFrameTooLarge) {
					return err
				}
				return &TransportError{Op: "write", Err: err}
			}
			t.metrics.frameSent(frame.kind, len(frame.payload))
		}
	}

	for {
		if err := flush(); err != nil {
			return err
		}

		select {
		case <-ctx.Done():
			return nil
		case <-t.stop:
			return flush()
		case <-t.outbound.notify:
		}
	}
}

func (t *Transport) runRecv(ctx context.Context) error {
	for {
		kind, payload, err := t.conn.ReadFrame()
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			var framingErr *protocol.FramingError
			if errors.As(err, &framingErr) {
				return err
			}
			return &TransportError{Op: "read", Err: err}
		}
		t.metrics.frameReceived(kind, len(payload))

		msg, err := protocol.Decode(t.remote, kind, payload)
		if err != nil {
			t.metrics.decodeError()
			t.logger.Error().
				Str("bytes", fmt.Sprintf("%v", payload)).
				Str("remote", t.conn.RemoteAddr()).
				Msgf("%v", err)
			return err
		}

		t.logger.Debug().
			Str("kind", kind.String()).
			Int("size", len(payload)).
			Str("remote", t.conn.RemoteAddr()).
			Msg("recv")

		t.inbound.push(Delivery{Message: msg})
	}
}

// Run drives the connection until the peer goes away, an error occurs, ctx
// is cancelled or Close is called. Whichever loop fails first stops the
// other. Exactly one Delivery with Closed set is pushed to the mailbox before
// Run returns; its Err is also returned.
func (t *Transport) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var (
		mu   sync.Mutex
		errs *multierror.Error
	)
	fail := func(err error) {
		if err == nil || t.closing.Load() {
			return
		}
		mu.Lock()
		errs = multierror.Append(errs, err)
		mu.Unlock()
	}

	wg := &sync.WaitGroup{}

	wg.Add(1)
	go func() {
		defer wg.Done()
		defer cancel()
		fail(t.runSend(ctx))
	}()
	wg.Add(1)
	go func() {
		defer wg.Done()
		defer cancel()
		fail(t.runRecv(ctx))
	}()

	<-ctx.Done()
	t.closing.Store(true)
	// unblocks the reader
	closeErr := t.conn.Close()
	wg.Wait()

	var err error
	mu.Lock()
	if errs != nil {
		if len(errs.Errors) == 1 {
			err = errs.Errors[0]
		} else {
			err = errs.ErrorOrNil()
		}
	}
	mu.Unlock()

	if err != nil {
		t.logger.Error().
			Str("remote", t.conn.RemoteAddr()).
			Msgf("connection failed: %v", err)
	} else if closeErr != nil {
		t.logger.Debug().Msgf("could not close conn: %v", closeErr)
	}

	t.closed.Store(true)
	t.inbound.push(Delivery{Closed: true, Err: err})
	return err
}
