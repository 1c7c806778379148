// Package session implements the client side of the connection handshake and
// routes in-game messages to events. It does no I/O: the owner feeds it
// connection lifecycle changes and decoded messages, and sends whatever
// outbound messages it returns.
package session

import (
	"github.com/blukai/gangnet/internal/debug"
	"github.com/blukai/gangnet/internal/protocol"
	"github.com/go-faster/errors"
	"github.com/google/uuid"
)

// Identity is what the client presents to a server.
type Identity struct {
	PlayerName string
	Password   string
	// ProtocolID defaults to protocol.ProtocolID.
	ProtocolID uuid.UUID
}

// Result is the outcome of feeding one input to the machine. Outbound
// messages must be sent in order. Err is set when the input ended the
// connection, and is the same error carried by the Disconnected event.
type Result struct {
	Outbound []protocol.ClientMessage
	Events   []Event
	Err      error
}

func (r *Result) send(msg protocol.ClientMessage) {
	r.Outbound = append(r.Outbound, msg)
}

func (r *Result) emit(ev Event) {
	r.Events = append(r.Events, ev)
}

// Machine is not safe for concurrent use.
type Machine struct {
	identity Identity
	state    State

	localID protocol.PlayerID
	// number of players the server has told us about, the local one included
	players int
	mapName string
}

func New(identity Identity) *Machine {
	if identity.ProtocolID == uuid.Nil {
		identity.ProtocolID = protocol.ProtocolID
	}
	return &Machine{
		identity: identity,
		state:    StateDisconnected,
		localID:  protocol.NoPlayer,
	}
}

func (m *Machine) State() State {
	return m.state
}

// LocalID returns the id the server assigned to us. ok is false until the
// join completed.
func (m *Machine) LocalID() (id protocol.PlayerID, ok bool) {
	return m.localID, m.state == StateInGame
}

// PlayerCount returns the number of players in the game, the local one
// included.
func (m *Machine) PlayerCount() int {
	return m.players
}

// MapName returns the last validated map name announced by the server.
func (m *Machine) MapName() string {
	return m.mapName
}

// Connect is the command to start connecting. The owner opens the transport
// and reports back with Connected or ConnectFailed.
func (m *Machine) Connect() error {
	if m.state != StateDisconnected {
		return errors.Wrapf(ErrAlreadyRunning, "state %s", m.state)
	}
	m.state = StateConnecting
	m.localID = protocol.NoPlayer
	m.players = 0
	m.mapName = ""
	return nil
}

// Connected reports an open transport. The hello goes out first.
func (m *Machine) Connected() (res Result) {
	if m.state != StateConnecting {
		res.Err = errors.Wrapf(ErrNotConnecting, "state %s", m.state)
		return res
	}
	m.state = StateAwaitingHello
	res.send(&protocol.ClientHello{ProtocolID: m.identity.ProtocolID})
	return res
}

// ConnectFailed reports that the transport could not be opened.
func (m *Machine) ConnectFailed(err error) (res Result) {
	if m.state != StateConnecting {
		return res
	}
	m.disconnect(&res, ReasonConnectFailed, err)
	return res
}

// Disconnect is a local request to leave.
func (m *Machine) Disconnect() (res Result) {
	if m.state == StateDisconnected {
		return res
	}
	m.disconnect(&res, ReasonLocal, nil)
	return res
}

// Closed reports that the transport ended, err says why. A nil err means it
// was closed locally.
func (m *Machine) Closed(err error) (res Result) {
	if m.state == StateDisconnected {
		return res
	}

	var (
		framingErr *protocol.FramingError
		decodeErr  *protocol.DecodeError
	)
	switch {
	case err == nil:
		m.disconnect(&res, ReasonLocal, nil)
	case errors.As(err, &framingErr):
		m.disconnect(&res, ReasonFraming, err)
	case errors.As(err, &decodeErr):
		m.disconnect(&res, ReasonDecode, err)
	default:
		m.disconnect(&res, ReasonTransport, err)
	}
	return res
}

// EncodeFailed reports that an outbound message could not be encoded.
func (m *Machine) EncodeFailed(err error) (res Result) {
	if m.state == StateDisconnected {
		return res
	}
	m.disconnect(&res, ReasonEncode, err)
	return res
}

func (m *Machine) disconnect(res *Result, reason DisconnectReason, err error) {
	debug.Assert(m.state != StateDisconnected)

	m.state = StateDisconnected
	m.localID = protocol.NoPlayer
	res.Err = err
	res.emit(Disconnected{Reason: reason, Err: err})
}

func (m *Machine) reject(res *Result, reason DisconnectReason) {
	m.disconnect(res, reason, &Rejection{Reason: reason})
}

func (m *Machine) fail(res *Result, kind protocol.Kind, err error) {
	m.disconnect(res, ReasonProtocolState, &ProtocolStateError{State: m.state, Kind: kind, Err: err})
}

// Handle feeds one decoded inbound message.
func (m *Machine) Handle(msg protocol.Message) (res Result) {
	if m.state == StateDisconnected {
		return res
	}

	smsg, ok := msg.(protocol.ServerMessage)
	if !ok {
		m.fail(&res, msg.Kind(), errors.Wrapf(ErrUnexpectedKind, "%T", msg))
		return res
	}

	switch m.state {
	case StateConnecting:
		m.fail(&res, msg.Kind(), errors.Wrap(ErrUnexpectedKind, "before the transport was connected"))
	case StateAwaitingHello:
		m.handleAwaitingHello(&res, smsg)
	case StateReservingSlot:
		m.handleReservingSlot(&res, smsg)
	case StateJoining:
		m.handleJoining(&res, smsg)
	case StateInGame:
		m.handleInGame(&res, smsg)
	default:
		debug.Assertf(false, "unhandled state %s", m.state)
	}
	return res
}

func (m *Machine) handleAwaitingHello(res *Result, msg protocol.ServerMessage) {
	switch msg := msg.(type) {
	case *protocol.ServerHello:
		if err := protocol.ValidateMapName(msg.MapName); err != nil {
			m.fail(res, msg.Kind(), err)
			return
		}
		m.mapName = msg.MapName
		res.emit(ServerInfo{
			ServerName: msg.ServerName,
			MapName:    msg.MapName,
			MapDigest:  msg.MapDigest,
			Plugins:    msg.Plugins,
		})
		res.send(&protocol.ClientReserveSlot{PlayerName: m.identity.PlayerName})
		m.state = StateReservingSlot
	case *protocol.ServerPasswordRequest:
		res.send(&protocol.ClientPasswordSend{Password: m.identity.Password})
	case *protocol.ServerPasswordWrong:
		m.reject(res, ReasonPasswordWrong)
	case *protocol.ServerIncompatibleProtocol:
		m.reject(res, ReasonIncompatibleProtocol)
	default:
		m.fail(res, msg.Kind(), ErrUnexpectedKind)
	}
}

func (m *Machine) handleReservingSlot(res *Result, msg protocol.ServerMessage) {
	switch msg.(type) {
	case *protocol.ServerReserveSlotAck:
		res.send(&protocol.ClientPlayerJoin{})
		m.state = StateJoining
	case *protocol.ServerFull:
		m.reject(res, ReasonServerFull)
	default:
		m.fail(res, msg.Kind(), ErrUnexpectedKind)
	}
}

func (m *Machine) handleJoining(res *Result, msg protocol.ServerMessage) {
	join, ok := msg.(*protocol.ServerJoinUpdate)
	if !ok {
		m.fail(res, msg.Kind(), ErrUnexpectedKind)
		return
	}
	m.localID = join.PlayerID
	m.players = int(join.PlayerID) + 1
	m.state = StateInGame
	res.emit(Joined{LocalID: join.PlayerID, MapArea: join.MapArea})
}

// known reports whether id names a player currently in the game.
func (m *Machine) known(id protocol.PlayerID) bool {
	return id.Valid() && int(id) < m.players
}

// knownOrNone also accepts protocol.NoPlayer.
func (m *Machine) knownOrNone(id protocol.PlayerID) bool {
	return id == protocol.NoPlayer || m.known(id)
}

func (m *Machine) checkPlayers(res *Result, kind protocol.Kind, ids ...protocol.PlayerID) bool {
	for _, id := range ids {
		if !m.known(id) {
			m.fail(res, kind, errors.Wrapf(ErrUnknownPlayer, "player %d of %d", id, m.players))
			return false
		}
	}
	return true
}

func (m *Machine) handleInGame(res *Result, msg protocol.ServerMessage) {
	kind := msg.Kind()

	switch msg := msg.(type) {
	case *protocol.ServerChangeMap:
		if err := protocol.ValidateMapName(msg.MapName); err != nil {
			m.fail(res, kind, err)
			return
		}
		m.mapName = msg.MapName
		res.emit(MapChanged{MapName: msg.MapName, MapDigest: msg.MapDigest})

	case *protocol.ServerPlayerJoin:
		if m.players >= int(protocol.NoPlayer) {
			m.fail(res, kind, errors.Wrapf(ErrUnknownPlayer, "player %d", m.players))
			return
		}
		id := protocol.PlayerID(m.players)
		m.players++
		res.emit(PlayerJoined{Player: id, Name: msg.Name})

	case *protocol.ServerPlayerLeave:
		if !m.checkPlayers(res, kind, msg.Player) {
			return
		}
		if msg.Player == m.localID {
			m.fail(res, kind, errors.Wrap(ErrUnknownPlayer, "server removed the local player"))
			return
		}
		m.players--
		res.emit(PlayerLeft{Player: msg.Player})
		if msg.Player < m.localID {
			old := m.localID
			m.localID--
			res.emit(LocalIDChanged{Old: old, New: m.localID})
		}

	case *protocol.ServerPlayerChangeTeam:
		if m.checkPlayers(res, kind, msg.Player) {
			res.emit(TeamChanged{Player: msg.Player, Team: msg.Team})
		}
	case *protocol.ServerPlayerChangeClass:
		if m.checkPlayers(res, kind, msg.Player) {
			res.emit(ClassChanged{Player: msg.Player, Class: msg.Class})
		}
	case *protocol.ServerPlayerChangeName:
		if m.checkPlayers(res, kind, msg.Player) {
			res.emit(NameChanged{Player: msg.Player, Name: msg.Name})
		}
	case *protocol.ServerPlayerSpawn:
		if m.checkPlayers(res, kind, msg.Player) {
			res.emit(PlayerSpawned{Player: msg.Player, SpawnIndex: msg.SpawnIndex, SpawnGroup: msg.SpawnGroup})
		}

	case *protocol.ServerPlayerDeath:
		if !m.checkPlayers(res, kind, msg.Victim) {
			return
		}
		if !m.knownOrNone(msg.Killer) || !m.knownOrNone(msg.Assistant) {
			m.fail(res, kind, errors.Wrapf(ErrUnknownPlayer, "killer %d, assistant %d of %d", msg.Killer, msg.Assistant, m.players))
			return
		}
		res.emit(PlayerDied{Victim: msg.Victim, Killer: msg.Killer, Assistant: msg.Assistant, Cause: msg.Cause})

	case *protocol.ServerQuickUpdate:
		if len(msg.Players) != m.players {
			m.fail(res, kind, errors.Wrapf(protocol.ErrShape, "%d players in update, %d known", len(msg.Players), m.players))
			return
		}
		res.emit(QuickSnapshot{Players: msg.Players})

	case *protocol.ServerFullUpdate:
		if int(m.localID) >= len(msg.Players) {
			m.fail(res, kind, errors.Wrapf(ErrUnknownPlayer, "local player %d missing from %d players", m.localID, len(msg.Players)))
			return
		}
		m.players = len(msg.Players)
		for _, intel := range []protocol.Intel{msg.RedIntel, msg.BlueIntel} {
			if intel.State == protocol.IntelCarried && !m.checkPlayers(res, kind, intel.Carrier) {
				return
			}
		}
		res.emit(FullSnapshot{Update: msg})

	case *protocol.ServerGrabIntel:
		if m.checkPlayers(res, kind, msg.Player) {
			res.emit(IntelEvent{Action: IntelGrabbed, Player: msg.Player})
		}
	case *protocol.ServerScoreIntel:
		if m.checkPlayers(res, kind, msg.Player) {
			res.emit(IntelEvent{Action: IntelScored, Player: msg.Player})
		}
	case *protocol.ServerDropIntel:
		if m.checkPlayers(res, kind, msg.Player) {
			res.emit(IntelEvent{Action: IntelDropped, Player: msg.Player})
		}
	case *protocol.ServerReturnIntel:
		res.emit(IntelEvent{Action: IntelReturned, Player: protocol.NoPlayer, Team: msg.Team})

	case *protocol.ServerCapsUpdate:
		res.emit(CapsChanged{RedCaps: msg.RedCaps, BlueCaps: msg.BlueCaps, CapLimit: msg.CapLimit})

	case *protocol.ServerChat:
		if m.checkPlayers(res, kind, msg.Player) {
			res.emit(Text{Player: msg.Player, Text: msg.Text})
		}
	case *protocol.ServerMessageString:
		res.emit(Text{Player: protocol.NoPlayer, Text: msg.Text})

	case *protocol.ServerWeaponFire:
		if m.checkPlayers(res, kind, msg.Player) {
			res.emit(WeaponFired{
				Player:    msg.Player,
				X:         msg.X,
				Y:         msg.Y,
				Direction: msg.Direction,
				Speed:     msg.Speed,
				Seed:      msg.Seed,
			})
		}

	case *protocol.ServerUberCharged:
		if m.checkPlayers(res, kind, msg.Player) {
			res.emit(UberEvent{Player: msg.Player, Charged: true})
		}
	case *protocol.ServerUber:
		if m.checkPlayers(res, kind, msg.Player) {
			res.emit(UberEvent{Player: msg.Player})
		}
	case *protocol.ServerOmnomnomnom:
		if m.checkPlayers(res, kind, msg.Player) {
			res.emit(Omnom{Player: msg.Player})
		}
	case *protocol.ServerToggleZoom:
		if m.checkPlayers(res, kind, msg.Player) {
			res.emit(ZoomToggled{Player: msg.Player})
		}

	case *protocol.ServerKick:
		m.disconnect(res, ReasonKicked, &Rejection{Reason: ReasonKicked, Kick: msg.Reason})

	default:
		// handshake kinds: Hello, ReserveSlotAck, ServerFull, password and
		// protocol negotiation, JoinUpdate
		m.fail(res, kind, ErrUnexpectedKind)
	}
}
