// Package gameserver is a small reference server speaking the same protocol
// as the client. It runs the handshake, keeps a roster and relays roster
// changes and chat. It does not simulate anything.
package gameserver

import (
	"context"
	"io"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/blukai/gangnet/internal/debug"
	"github.com/blukai/gangnet/internal/protocol"
	"github.com/blukai/gangnet/internal/transport"
	"github.com/blukai/gangnet/internal/wire"
	"github.com/cespare/xxhash/v2"
	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/hashicorp/go-multierror"
	"github.com/phuslu/log"
)

type Config struct {
	ServerName string
	MapName    string
	MapDigest  wire.Digest
	// Password is requested from every client when not empty.
	Password   string
	MaxPlayers int
	Plugins    []string
	// UpdateInterval is the period of quick updates.
	UpdateInterval time.Duration
	// ProtocolID defaults to protocol.ProtocolID.
	ProtocolID uuid.UUID
}

type peerKey uint64

func makePeerKey(addr string) peerKey {
	return peerKey(xxhash.Sum64String(addr))
}

type stage uint8

const (
	stageHello stage = iota
	stagePassword
	stageHelloSent
	stageReserved
	stageJoined
	stageGone
)

type peer struct {
	key   peerKey
	addr  string
	tr    *transport.Transport
	stage stage

	name  string
	team  protocol.Team
	class protocol.Class
	input protocol.Input
}

type GameServer struct {
	cfg Config

	logger  *log.Logger
	metrics *transport.Metrics

	upgrader websocket.Upgrader

	mu        sync.Mutex
	peers     map[peerKey]*peer
	players   []*peer // index is the player id
	listeners []net.Listener
}

func NewGameServer(cfg Config, logger *log.Logger, metrics *transport.Metrics) *GameServer {
	// if logger is nil (which might be true in tests) => use default, but
	// silenced logger
	if logger == nil {
		tmp := log.DefaultLogger
		logger = &tmp
		logger.Writer = &log.IOWriter{Writer: io.Discard}
	}
	if cfg.ProtocolID == uuid.Nil {
		cfg.ProtocolID = protocol.ProtocolID
	}
	if cfg.MaxPlayers <= 0 {
		cfg.MaxPlayers = 10
	}
	if cfg.UpdateInterval <= 0 {
		cfg.UpdateInterval = 100 * time.Millisecond
	}

	return &GameServer{
		cfg: cfg,

		logger:  logger,
		metrics: metrics,

		peers: make(map[peerKey]*peer),
	}
}

// Listen opens a tcp listener served by Run. It returns the bound address,
// which is useful when address is ":0".
func (gs *GameServer) Listen(network, address string) (net.Addr, error) {
	l, err := net.Listen(network, address)
	if err != nil {
		return nil, errors.Wrap(err, "could not listen")
	}
	gs.mu.Lock()
	gs.listeners = append(gs.listeners, l)
	gs.mu.Unlock()
	return l.Addr(), nil
}

// Handler accepts websocket connections on transport.WebSocketPath.
func (gs *GameServer) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc(transport.WebSocketPath, func(w http.ResponseWriter, r *http.Request) {
		conn, err := gs.upgrader.Upgrade(w, r, nil)
		if err != nil {
			gs.logger.Error().Msgf("could not upgrade: %v", err)
			return
		}
		gs.serve(r.Context(), transport.NewWebSocketConn(conn))
	})
	return mux
}

// PlayerCount returns the number of joined players.
func (gs *GameServer) PlayerCount() int {
	gs.mu.Lock()
	defer gs.mu.Unlock()
	return len(gs.players)
}

func (gs *GameServer) runAccept(ctx context.Context, l net.Listener, wg *sync.WaitGroup) {
	for {
		conn, err := l.Accept()
		if err != nil {
			if ctx.Err() == nil {
				gs.logger.Error().Msgf("could not accept: %v", err)
			}
			return
		}

		wg.Add(1)
		go func() {
			defer wg.Done()
			gs.serve(ctx, transport.NewStreamConn(conn))
		}()
	}
}

func (gs *GameServer) runUpdates(ctx context.Context) {
	ticker := time.NewTicker(gs.cfg.UpdateInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			gs.mu.Lock()
			if len(gs.players) > 0 {
				update := &protocol.ServerQuickUpdate{Players: make([]protocol.QuickPlayer, len(gs.players))}
				for i, p := range gs.players {
					update.Players[i].Input = p.input
				}
				if err := gs.broadcast(update, nil); err != nil {
					gs.logger.Error().Msgf("could not broadcast quick update: %v", err)
				}
			}
			gs.mu.Unlock()
		}
	}
}

// Run serves the listeners opened with Listen until ctx is done.
func (gs *GameServer) Run(ctx context.Context) error {
	wg := &sync.WaitGroup{}

	gs.mu.Lock()
	listeners := gs.listeners
	gs.mu.Unlock()

	for _, l := range listeners {
		l := l
		wg.Add(1)
		go func() {
			defer wg.Done()
			gs.runAccept(ctx, l, wg)
		}()
	}
	wg.Add(1)
	go func() {
		defer wg.Done()
		gs.runUpdates(ctx)
	}()

	<-ctx.Done()

	var errs error
	for _, l := range listeners {
		if err := l.Close(); err != nil {
			errs = multierror.Append(errs, err)
		}
	}
	wg.Wait()
	return errs
}

// serve runs one connection until it closes.
func (gs *GameServer) serve(ctx context.Context, conn transport.FrameConn) {
	p := &peer{
		key:   makePeerKey(conn.RemoteAddr()),
		addr:  conn.RemoteAddr(),
		tr:    transport.New(conn, protocol.FromClient, gs.logger, gs.metrics),
		stage: stageHello,
		team:  protocol.TeamSpectator,
	}

	gs.mu.Lock()
	if _, ok := gs.peers[p.key]; ok {
		gs.mu.Unlock()
		gs.logger.Error().Str("addr", p.addr).Msg("duplicate peer")
		conn.Close()
		return
	}
	gs.peers[p.key] = p
	gs.mu.Unlock()

	gs.logger.Debug().Str("addr", p.addr).Msg("peer connected")

	go p.tr.Run(ctx)

	for {
		d, ok := p.tr.Recv()
		if !ok {
			<-p.tr.Notify()
			continue
		}
		if d.Closed {
			gs.remove(p, d.Err)
			return
		}

		gs.mu.Lock()
		err := gs.handle(p, d.Message)
		gs.mu.Unlock()
		if err != nil {
			gs.logger.Error().
				Str("addr", p.addr).
				Str("kind", d.Message.Kind().String()).
				Msgf("could not handle message: %v", err)
			p.tr.Close()
		}
	}
}

func (gs *GameServer) remove(p *peer, err error) {
	gs.mu.Lock()
	defer gs.mu.Unlock()

	delete(gs.peers, p.key)
	if p.stage == stageJoined {
		id := gs.playerID(p)
		gs.players = append(gs.players[:id], gs.players[id+1:]...)
		if err := gs.broadcast(&protocol.ServerPlayerLeave{Player: id}, nil); err != nil {
			gs.logger.Error().Msgf("could not broadcast leave: %v", err)
		}
	}
	p.stage = stageGone

	gs.logger.Info().
		Str("addr", p.addr).
		Str("name", p.name).
		Err(err).
		Msg("peer left")
}

// playerID must be called with mu held.
func (gs *GameServer) playerID(p *peer) protocol.PlayerID {
	for i, other := range gs.players {
		if other == p {
			return protocol.PlayerID(i)
		}
	}
	debug.Assert(false, "joined peer missing from roster")
	return protocol.NoPlayer
}

func (gs *GameServer) send(p *peer, msg protocol.ServerMessage) error {
	kind, payload, err := protocol.EncodeServer(msg)
	if err != nil {
		return err
	}
	return p.tr.Enqueue(kind, payload)
}

// broadcast sends msg to every joined player but skip. mu must be held.
func (gs *GameServer) broadcast(msg protocol.ServerMessage, skip *peer) error {
	kind, payload, err := protocol.EncodeServer(msg)
	if err != nil {
		return err
	}

	var errs error
	for _, p := range gs.players {
		if p == skip {
			continue
		}
		err := p.tr.Enqueue(kind, payload)
		// closing peers are removed from the roster once their transport
		// finished
		if err != nil && !errors.Is(err, transport.ErrClosed) {
			errs = multierror.Append(errs, errors.Wrap(err, p.addr))
		}
	}
	return errs
}

// reject sends msg and closes the connection once it is flushed.
func (gs *GameServer) reject(p *peer, msg protocol.ServerMessage) error {
	err := gs.send(p, msg)
	p.tr.Close()
	return err
}

func (gs *GameServer) hello() *protocol.ServerHello {
	return &protocol.ServerHello{
		ServerName: gs.cfg.ServerName,
		MapName:    gs.cfg.MapName,
		MapDigest:  gs.cfg.MapDigest,
		Plugins:    gs.cfg.Plugins,
	}
}

// fullUpdate must be called with mu held.
func (gs *GameServer) fullUpdate() *protocol.ServerFullUpdate {
	n := len(gs.players)
	update := &protocol.ServerFullUpdate{
		Players:   make([]protocol.FullPlayer, n),
		CapLimit:  3,
		TimeLimit: 15,
		TimeLeft:  15 * 60,
		RedIntel:  protocol.Intel{State: protocol.IntelAtBase, Carrier: protocol.NoPlayer},
		BlueIntel: protocol.Intel{State: protocol.IntelAtBase, Carrier: protocol.NoPlayer},
	}
	for i, p := range gs.players {
		update.Players[i] = protocol.FullPlayer{
			Team:        p.team,
			Class:       p.class,
			Dominations: make([]uint8, n-1),
			Nemesis:     make([]bool, n-1),
		}
	}
	for i := range update.ClassLimits {
		update.ClassLimits[i] = protocol.UnlimitedClass
	}
	return update
}

// handle must be called with mu held.
func (gs *GameServer) handle(p *peer, msg protocol.Message) error {
	switch p.stage {
	case stageHello:
		hello, ok := msg.(*protocol.ClientHello)
		if !ok {
			return errors.Errorf("expected hello, got %s", msg.Kind())
		}
		if hello.ProtocolID != gs.cfg.ProtocolID {
			return gs.reject(p, &protocol.ServerIncompatibleProtocol{})
		}
		if gs.cfg.Password != "" {
			p.stage = stagePassword
			return gs.send(p, &protocol.ServerPasswordRequest{})
		}
		p.stage = stageHelloSent
		return gs.send(p, gs.hello())

	case stagePassword:
		password, ok := msg.(*protocol.ClientPasswordSend)
		if !ok {
			return errors.Errorf("expected password, got %s", msg.Kind())
		}
		if password.Password != gs.cfg.Password {
			return gs.reject(p, &protocol.ServerPasswordWrong{})
		}
		p.stage = stageHelloSent
		return gs.send(p, gs.hello())

	case stageHelloSent:
		reserve, ok := msg.(*protocol.ClientReserveSlot)
		if !ok {
			return errors.Errorf("expected slot reservation, got %s", msg.Kind())
		}
		if len(gs.players) >= gs.cfg.MaxPlayers {
			return gs.reject(p, &protocol.ServerFull{})
		}
		p.name = reserve.PlayerName
		p.stage = stageReserved
		return gs.send(p, &protocol.ServerReserveSlotAck{})

	case stageReserved:
		if _, ok := msg.(*protocol.ClientPlayerJoin); !ok {
			return errors.Errorf("expected join, got %s", msg.Kind())
		}
		if len(gs.players) >= gs.cfg.MaxPlayers {
			return gs.reject(p, &protocol.ServerFull{})
		}
		return gs.join(p)

	case stageJoined:
		return gs.handleInGame(p, msg)

	default:
		return errors.Errorf("message in stage %d", p.stage)
	}
}

func (gs *GameServer) join(p *peer) error {
	id := protocol.PlayerID(len(gs.players))
	gs.players = append(gs.players, p)
	p.stage = stageJoined

	gs.logger.Info().
		Str("addr", p.addr).
		Str("name", p.name).
		Int("id", int(id)).
		Msg("player joined")

	var errs error
	if err := gs.send(p, &protocol.ServerJoinUpdate{PlayerID: id}); err != nil {
		errs = multierror.Append(errs, err)
	}
	if err := gs.send(p, gs.fullUpdate()); err != nil {
		errs = multierror.Append(errs, err)
	}
	for i, other := range gs.players {
		msg := &protocol.ServerPlayerChangeName{Player: protocol.PlayerID(i), Name: other.name}
		if err := gs.send(p, msg); err != nil {
			errs = multierror.Append(errs, err)
		}
	}
	if err := gs.broadcast(&protocol.ServerPlayerJoin{Name: p.name}, p); err != nil {
		errs = multierror.Append(errs, err)
	}
	return errs
}

func (gs *GameServer) handleInGame(p *peer, msg protocol.Message) error {
	id := gs.playerID(p)

	switch msg := msg.(type) {
	case *protocol.ClientInputState:
		p.input = protocol.Input{Keys: msg.Keys, AimDirection: msg.AimDirection, AimDistance: msg.AimDistance}
		return nil
	case *protocol.ClientPlayerChangeTeam:
		p.team = msg.Team
		return gs.broadcast(&protocol.ServerPlayerChangeTeam{Player: id, Team: msg.Team}, nil)
	case *protocol.ClientPlayerChangeClass:
		p.class = msg.Class
		return gs.broadcast(&protocol.ServerPlayerChangeClass{Player: id, Class: msg.Class}, nil)
	case *protocol.ClientPlayerChangeName:
		p.name = msg.Name
		return gs.broadcast(&protocol.ServerPlayerChangeName{Player: id, Name: msg.Name}, nil)
	case *protocol.ClientChat:
		return gs.broadcast(&protocol.ServerChat{Player: id, Text: msg.Text}, nil)
	case *protocol.ClientToggleZoom:
		return gs.broadcast(&protocol.ServerToggleZoom{Player: id}, nil)
	default:
		return errors.Errorf("unexpected %s in game", msg.Kind())
	}
}

// ChangeMap switches every player to a new map.
func (gs *GameServer) ChangeMap(name string, digest wire.Digest) error {
	if err := protocol.ValidateMapName(name); err != nil {
		return err
	}
	gs.mu.Lock()
	defer gs.mu.Unlock()
	gs.cfg.MapName = name
	gs.cfg.MapDigest = digest
	return gs.broadcast(&protocol.ServerChangeMap{MapName: name, MapDigest: digest}, nil)
}

// Announce sends a system message to every player.
func (gs *GameServer) Announce(text string) error {
	gs.mu.Lock()
	defer gs.mu.Unlock()
	return gs.broadcast(&protocol.ServerMessageString{Text: text}, nil)
}

// Kick disconnects a player.
func (gs *GameServer) Kick(id protocol.PlayerID, reason protocol.KickReason) error {
	gs.mu.Lock()
	defer gs.mu.Unlock()
	if int(id) >= len(gs.players) {
		return errors.Errorf("no player %d", id)
	}
	return gs.reject(gs.players[id], &protocol.ServerKick{Reason: reason})
}
