// Package gameclient is what a game loop talks to. It owns the transport and
// the session machine and is driven entirely by the caller: every method
// returns immediately, apart from Connect, which waits for the dial.
package gameclient

import (
	"context"
	"io"
	"time"

	"github.com/blukai/gangnet/internal/protocol"
	"github.com/blukai/gangnet/internal/session"
	"github.com/blukai/gangnet/internal/transport"
	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"github.com/phuslu/log"
)

var ErrNotInGame = errors.New("not in game")

type Options struct {
	// Network is "tcp" or "ws".
	Network     string
	Address     string
	DialTimeout time.Duration
	Identity    session.Identity
}

// Inbound is the result of one poll. Message is nil for polls that only
// carry locally produced events, such as a failed connect.
type Inbound struct {
	Message protocol.Message
	Events  []session.Event
}

// Client is meant to be used from a single goroutine.
type Client struct {
	opts Options

	logger     *log.Logger
	baseLogger *log.Logger
	metrics    *transport.Metrics

	machine   *session.Machine
	transport *transport.Transport
	sessionID uuid.UUID

	// events produced outside of a poll, handed out first by the next one
	pending []session.Event
}

// New creates a disconnected client. logger and metrics may be nil.
func New(opts Options, logger *log.Logger, metrics *transport.Metrics) *Client {
	// if logger is nil (which might be true in tests) => use default, but
	// silenced logger
	if logger == nil {
		tmp := log.DefaultLogger
		logger = &tmp
		logger.Writer = &log.IOWriter{Writer: io.Discard}
	}
	if opts.Network == "" {
		opts.Network = "tcp"
	}

	return &Client{
		opts: opts,

		logger:     logger,
		baseLogger: logger,
		metrics:    metrics,

		machine: session.New(opts.Identity),
	}
}

func (c *Client) State() session.State {
	return c.machine.State()
}

// LocalID returns the id the server assigned to the local player.
func (c *Client) LocalID() (protocol.PlayerID, bool) {
	return c.machine.LocalID()
}

// SessionID identifies the current or last connection attempt in logs.
func (c *Client) SessionID() uuid.UUID {
	return c.sessionID
}

// Connect dials the server and starts the handshake. When the dial fails the
// error is returned and the matching Disconnected event is delivered by the
// next poll.
func (c *Client) Connect(ctx context.Context) error {
	if err := c.machine.Connect(); err != nil {
		return err
	}

	c.sessionID = uuid.New()
	logger := *c.baseLogger
	logger.Context = log.NewContext(nil).Str("session", c.sessionID.String()).Value()
	c.logger = &logger

	c.logger.Info().
		Str("network", c.opts.Network).
		Str("address", c.opts.Address).
		Msg("connecting")

	dialCtx := ctx
	if c.opts.DialTimeout > 0 {
		var cancel context.CancelFunc
		dialCtx, cancel = context.WithTimeout(ctx, c.opts.DialTimeout)
		defer cancel()
	}

	conn, err := transport.Dial(dialCtx, c.opts.Network, c.opts.Address)
	if err != nil {
		res := c.machine.ConnectFailed(err)
		c.observe(res.Events)
		c.pending = append(c.pending, res.Events...)
		return err
	}

	c.transport = transport.New(conn, protocol.FromServer, c.logger, c.metrics)
	go c.transport.Run(ctx)

	res := c.machine.Connected()
	c.apply(&res)
	c.pending = append(c.pending, res.Events...)
	return res.Err
}

// Send encodes msg and queues it. It fails unless the client is in game.
// An encode failure ends the connection.
func (c *Client) Send(msg protocol.ClientMessage) error {
	if c.transport == nil || c.machine.State() != session.StateInGame {
		return errors.Wrapf(ErrNotInGame, "state %s", c.machine.State())
	}

	res := session.Result{Outbound: []protocol.ClientMessage{msg}}
	c.apply(&res)
	c.pending = append(c.pending, res.Events...)
	return res.Err
}

// PollNextInbound takes at most one message off the mailbox and runs it
// through the session machine. ok is false when there was nothing to do.
func (c *Client) PollNextInbound() (in Inbound, ok bool) {
	if len(c.pending) > 0 {
		in.Events = c.pending
		c.pending = nil
		return in, true
	}
	if c.transport == nil {
		return in, false
	}

	d, ok := c.transport.Recv()
	if !ok {
		return in, false
	}

	var res session.Result
	if d.Closed {
		// the transport is gone, nothing left to close
		c.transport = nil
		res = c.machine.Closed(d.Err)
	} else {
		in.Message = d.Message
		res = c.machine.Handle(d.Message)
	}
	c.apply(&res)

	in.Events = res.Events
	return in, true
}

// Notify receives a value after new mailbox entries arrived. It is nil while
// there is no connection.
func (c *Client) Notify() <-chan struct{} {
	if c.transport == nil {
		return nil
	}
	return c.transport.Notify()
}

// Disconnect leaves the server. The Disconnected event is delivered by the
// next poll.
func (c *Client) Disconnect() {
	res := c.machine.Disconnect()
	c.apply(&res)
	c.pending = append(c.pending, res.Events...)
}

// apply sends the outbound messages of res and tears the transport down when
// the machine disconnected. Events produced on the way are appended to res.
func (c *Client) apply(res *session.Result) {
	for _, msg := range res.Outbound {
		if c.transport == nil {
			break
		}
		kind, payload, err := protocol.Encode(msg)
		if err == nil {
			err = c.transport.Enqueue(kind, payload)
		}
		if errors.Is(err, transport.ErrClosed) {
			// the Closed delivery will report why
			break
		}
		if err != nil {
			failed := c.machine.EncodeFailed(err)
			res.Events = append(res.Events, failed.Events...)
			res.Err = failed.Err
			break
		}
	}

	c.observe(res.Events)

	if c.machine.State() == session.StateDisconnected && c.transport != nil {
		// NOTE(blukai): the machine already emitted its Disconnected event.
		// the transport's own closed delivery is dropped with it.
		c.transport.Close()
		c.transport = nil
	}
}

func (c *Client) observe(events []session.Event) {
	for _, ev := range events {
		switch ev := ev.(type) {
		case session.Joined:
			c.logger.Info().
				Int("id", int(ev.LocalID)).
				Int("map_area", int(ev.MapArea)).
				Msg("joined")
		case session.Disconnected:
			c.metrics.Disconnected(ev.Reason.String())
			if ev.Err != nil {
				c.logger.Error().
					Str("reason", ev.Reason.String()).
					Msgf("disconnected: %v", ev.Err)
			} else {
				c.logger.Info().
					Str("reason", ev.Reason.String()).
					Msg("disconnected")
			}
		}
	}
}
