package gametest_test

import (
	"context"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/blukai/gangnet/internal/gameclient"
	"github.com/blukai/gangnet/internal/gameserver"
	"github.com/blukai/gangnet/internal/protocol"
	"github.com/blukai/gangnet/internal/session"
	"github.com/blukai/gangnet/internal/transport"
	"github.com/go-faster/errors"
	"github.com/matryer/is"
	"github.com/phuslu/log"
	"github.com/prometheus/client_golang/prometheus"
)

func testLogger() *log.Logger {
	logger := log.DefaultLogger
	// https://github.com/phuslu/log?tab=readme-ov-file#pretty-console-writer
	logger.Caller = 1
	logger.TimeFormat = "15:04:05"
	logger.Level = log.WarnLevel
	logger.Writer = &log.ConsoleWriter{
		ColorOutput:    true,
		QuoteString:    true,
		EndWithMessage: true,
	}
	return &logger
}

// waitFor polls c, one message at a time, until an event matching match
// shows up. It fails the test on a disconnect unless that is what is being
// waited for.
func waitFor[E session.Event](t *testing.T, c *gameclient.Client, match func(E) bool) E {
	t.Helper()
	timeout := time.After(2 * time.Second)
	for {
		in, ok := c.PollNextInbound()
		if !ok {
			select {
			case <-c.Notify():
			case <-time.After(10 * time.Millisecond):
			case <-timeout:
				var zero E
				t.Fatalf("timed out waiting for %T", zero)
			}
			continue
		}
		for _, ev := range in.Events {
			if e, ok := ev.(E); ok && (match == nil || match(e)) {
				return e
			}
			if d, ok := ev.(session.Disconnected); ok {
				t.Fatalf("unexpected disconnect: %s: %v", d.Reason, d.Err)
			}
		}
	}
}

func startServer(t *testing.T, cfg gameserver.Config) (*gameserver.GameServer, string) {
	t.Helper()

	gs := gameserver.NewGameServer(cfg, testLogger(), nil)
	addr, err := gs.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go gs.Run(ctx)
	return gs, addr.String()
}

func connect(t *testing.T, opts gameclient.Options, metrics *transport.Metrics) *gameclient.Client {
	t.Helper()

	c := gameclient.New(opts, testLogger(), metrics)
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	if err := c.Connect(ctx); err != nil {
		t.Fatal(err)
	}
	return c
}

func TestTwoPlayers(t *testing.T) {
	is := is.New(t)

	gs, addr := startServer(t, gameserver.Config{
		ServerName:     "gangnet",
		MapName:        "ctf_truefort",
		Password:       "letmein",
		UpdateInterval: 20 * time.Millisecond,
	})

	metrics := transport.NewMetrics(prometheus.NewRegistry())

	one := connect(t, gameclient.Options{
		Address:  addr,
		Identity: session.Identity{PlayerName: "one", Password: "letmein"},
	}, metrics)
	info := waitFor[session.ServerInfo](t, one, nil)
	is.Equal(info.MapName, "ctf_truefort")
	joined := waitFor[session.Joined](t, one, nil)
	is.Equal(joined.LocalID, protocol.PlayerID(0))

	two := connect(t, gameclient.Options{
		Address:  addr,
		Identity: session.Identity{PlayerName: "two", Password: "letmein"},
	}, metrics)
	joined = waitFor[session.Joined](t, two, nil)
	is.Equal(joined.LocalID, protocol.PlayerID(1))
	is.Equal(gs.PlayerCount(), 2)

	// one hears about two
	pj := waitFor[session.PlayerJoined](t, one, nil)
	is.Equal(pj, session.PlayerJoined{Player: 1, Name: "two"})

	is.NoErr(two.Send(&protocol.ClientPlayerChangeClass{Class: protocol.ClassSniper}))
	cc := waitFor[session.ClassChanged](t, one, nil)
	is.Equal(cc, session.ClassChanged{Player: 1, Class: protocol.ClassSniper})

	is.NoErr(one.Send(&protocol.ClientChat{Text: "gl hf"}))
	text := waitFor[session.Text](t, two, nil)
	is.Equal(text, session.Text{Player: 0, Text: "gl hf"})

	is.NoErr(gs.Announce("round starts"))
	text = waitFor[session.Text](t, two, func(e session.Text) bool { return e.Player == protocol.NoPlayer })
	is.Equal(text.Text, "round starts")

	is.NoErr(gs.ChangeMap("koth_harvest", [16]byte{1}))
	mc := waitFor[session.MapChanged](t, one, nil)
	is.Equal(mc.MapName, "koth_harvest")

	// quick updates agree with the roster
	snap := waitFor[session.QuickSnapshot](t, two, nil)
	is.Equal(len(snap.Players), 2)

	// one leaves, two moves down to id 0
	one.Disconnect()
	d := waitFor[session.Disconnected](t, one, nil)
	is.Equal(d.Reason, session.ReasonLocal)
	_, ok := one.PollNextInbound()
	is.True(!ok)

	changed := waitFor[session.LocalIDChanged](t, two, nil)
	is.Equal(changed, session.LocalIDChanged{Old: 1, New: 0})
	id, ok := two.LocalID()
	is.True(ok)
	is.Equal(id, protocol.PlayerID(0))
}

func TestWrongPassword(t *testing.T) {
	is := is.New(t)

	_, addr := startServer(t, gameserver.Config{ServerName: "s", MapName: "m", Password: "right"})

	c := connect(t, gameclient.Options{
		Address:  addr,
		Identity: session.Identity{PlayerName: "p", Password: "wrong"},
	}, nil)
	d := waitFor[session.Disconnected](t, c, nil)
	is.Equal(d.Reason, session.ReasonPasswordWrong)
	is.Equal(c.State(), session.StateDisconnected)

	// exactly one disconnect
	time.Sleep(50 * time.Millisecond)
	_, ok := c.PollNextInbound()
	is.True(!ok)

	is.True(c.Send(&protocol.ClientChat{Text: "let me in"}) != nil)
}

func TestKicked(t *testing.T) {
	is := is.New(t)

	gs, addr := startServer(t, gameserver.Config{ServerName: "s", MapName: "m"})

	c := connect(t, gameclient.Options{Address: addr, Identity: session.Identity{PlayerName: "p"}}, nil)
	waitFor[session.Joined](t, c, nil)

	is.NoErr(gs.Kick(0, protocol.KickMultiClient))
	d := waitFor[session.Disconnected](t, c, nil)
	is.Equal(d.Reason, session.ReasonKicked)
}

func TestLongAnnouncement(t *testing.T) {
	is := is.New(t)

	gs, addr := startServer(t, gameserver.Config{ServerName: "s", MapName: "m"})

	c := connect(t, gameclient.Options{Address: addr, Identity: session.Identity{PlayerName: "p"}}, nil)
	waitFor[session.Joined](t, c, nil)

	text := strings.Repeat("x", 65535)
	is.NoErr(gs.Announce(text))
	got := waitFor[session.Text](t, c, func(e session.Text) bool { return e.Player == protocol.NoPlayer })
	is.Equal(len(got.Text), len(text))
	is.Equal(c.State(), session.StateInGame)
}

func TestSendInvalidTeam(t *testing.T) {
	is := is.New(t)

	_, addr := startServer(t, gameserver.Config{ServerName: "s", MapName: "m"})

	c := connect(t, gameclient.Options{Address: addr, Identity: session.Identity{PlayerName: "p"}}, nil)
	waitFor[session.Joined](t, c, nil)

	err := c.Send(&protocol.ClientPlayerChangeTeam{Team: 7})
	is.True(errors.Is(err, protocol.ErrInvalidEnumValue))

	d := waitFor[session.Disconnected](t, c, nil)
	is.Equal(d.Reason, session.ReasonEncode)
	is.Equal(c.State(), session.StateDisconnected)
}

func TestConnectFailed(t *testing.T) {
	is := is.New(t)

	c := gameclient.New(gameclient.Options{
		Address:     "127.0.0.1:1",
		DialTimeout: time.Second,
		Identity:    session.Identity{PlayerName: "p"},
	}, nil, nil)
	is.True(c.Connect(context.Background()) != nil)

	in, ok := c.PollNextInbound()
	is.True(ok)
	is.Equal(len(in.Events), 1)
	d, ok := in.Events[0].(session.Disconnected)
	is.True(ok)
	is.Equal(d.Reason, session.ReasonConnectFailed)

	_, ok = c.PollNextInbound()
	is.True(!ok)
}

func TestWebSocket(t *testing.T) {
	is := is.New(t)

	gs := gameserver.NewGameServer(gameserver.Config{ServerName: "ws", MapName: "ctf_eiger"}, testLogger(), nil)
	srv := httptest.NewServer(gs.Handler())
	defer srv.Close()

	c := connect(t, gameclient.Options{
		Network:  "ws",
		Address:  strings.TrimPrefix(srv.URL, "http://"),
		Identity: session.Identity{PlayerName: "web"},
	}, nil)
	joined := waitFor[session.Joined](t, c, nil)
	is.Equal(joined.LocalID, protocol.PlayerID(0))

	is.NoErr(c.Send(&protocol.ClientToggleZoom{}))
	z := waitFor[session.ZoomToggled](t, c, nil)
	is.Equal(z.Player, protocol.PlayerID(0))
}
