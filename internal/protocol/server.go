package protocol

import (
	"strings"

	"github.com/blukai/gangnet/internal/wire"
	"github.com/go-faster/errors"
)

var (
	_ ServerMessage = (*ServerHello)(nil)
	_ ServerMessage = (*ServerReserveSlotAck)(nil)
	_ ServerMessage = (*ServerFull)(nil)
	_ ServerMessage = (*ServerPasswordRequest)(nil)
	_ ServerMessage = (*ServerPasswordWrong)(nil)
	_ ServerMessage = (*ServerIncompatibleProtocol)(nil)
	_ ServerMessage = (*ServerJoinUpdate)(nil)
	_ ServerMessage = (*ServerChangeMap)(nil)
	_ ServerMessage = (*ServerPlayerJoin)(nil)
	_ ServerMessage = (*ServerPlayerLeave)(nil)
	_ ServerMessage = (*ServerPlayerChangeTeam)(nil)
	_ ServerMessage = (*ServerPlayerChangeClass)(nil)
	_ ServerMessage = (*ServerPlayerChangeName)(nil)
	_ ServerMessage = (*ServerPlayerSpawn)(nil)
	_ ServerMessage = (*ServerPlayerDeath)(nil)
	_ ServerMessage = (*ServerQuickUpdate)(nil)
	_ ServerMessage = (*ServerFullUpdate)(nil)
	_ ServerMessage = (*ServerReturnIntel)(nil)
	_ ServerMessage = (*ServerGrabIntel)(nil)
	_ ServerMessage = (*ServerScoreIntel)(nil)
	_ ServerMessage = (*ServerDropIntel)(nil)
	_ ServerMessage = (*ServerUberCharged)(nil)
	_ ServerMessage = (*ServerUber)(nil)
	_ ServerMessage = (*ServerOmnomnomnom)(nil)
	_ ServerMessage = (*ServerCapsUpdate)(nil)
	_ ServerMessage = (*ServerKick)(nil)
	_ ServerMessage = (*ServerToggleZoom)(nil)
	_ ServerMessage = (*ServerMessageString)(nil)
	_ ServerMessage = (*ServerWeaponFire)(nil)
	_ ServerMessage = (*ServerChat)(nil)
)

// ServerHello answers ClientHello when the protocol ids match.
type ServerHello struct {
	server
	ServerName string
	MapName    string
	MapDigest  wire.Digest
	Plugins    []string
}

func (*ServerHello) Kind() Kind { return KindHello }

func (m *ServerHello) encode(w *wire.Writer) error {
	if len(m.Plugins) > 255 {
		return errors.Wrapf(ErrPluginCount, "%d plugins", len(m.Plugins))
	}
	// the list is comma separated, a name that splits differently would not
	// survive the trip
	for _, name := range m.Plugins {
		if name == "" || strings.ContainsRune(name, ',') {
			return errors.Wrapf(ErrPluginName, "%q", name)
		}
	}
	if err := w.WriteShortString(m.ServerName); err != nil {
		return errors.Wrap(err, "server name")
	}
	if err := w.WriteShortString(m.MapName); err != nil {
		return errors.Wrap(err, "map name")
	}
	w.WriteDigest(m.MapDigest)
	w.WriteU8(uint8(len(m.Plugins)))
	if err := w.WriteLongString(strings.Join(m.Plugins, ",")); err != nil {
		return errors.Wrap(err, "plugins")
	}
	return nil
}

func (m *ServerHello) decode(r *wire.Reader) (err error) {
	if m.ServerName, err = r.ReadShortString(); err != nil {
		return errors.Wrap(err, "server name")
	}
	if m.MapName, err = r.ReadShortString(); err != nil {
		return errors.Wrap(err, "map name")
	}
	if m.MapDigest, err = r.ReadDigest(); err != nil {
		return err
	}
	count, err := r.ReadU8()
	if err != nil {
		return err
	}
	list, err := r.ReadLongString()
	if err != nil {
		return errors.Wrap(err, "plugins")
	}
	if list != "" {
		m.Plugins = strings.Split(list, ",")
	}
	if len(m.Plugins) != int(count) {
		return errors.Wrapf(ErrPluginCount, "announced %d, listed %d", count, len(m.Plugins))
	}
	return nil
}

// ServerReserveSlotAck confirms a reserved slot. It travels under the
// ReserveSlot kind.
type ServerReserveSlotAck struct {
	server
	empty
}

func (*ServerReserveSlotAck) Kind() Kind { return KindReserveSlot }

type ServerFull struct {
	server
	empty
}

func (*ServerFull) Kind() Kind { return KindServerFull }

type ServerPasswordRequest struct {
	server
	empty
}

func (*ServerPasswordRequest) Kind() Kind { return KindPasswordRequest }

type ServerPasswordWrong struct {
	server
	empty
}

func (*ServerPasswordWrong) Kind() Kind { return KindPasswordWrong }

type ServerIncompatibleProtocol struct {
	server
	empty
}

func (*ServerIncompatibleProtocol) Kind() Kind { return KindIncompatibleProtocol }

// ServerJoinUpdate assigns the local player id. Every player with a lower id
// is already in the game.
type ServerJoinUpdate struct {
	server
	PlayerID PlayerID
	MapArea  uint8
}

func (*ServerJoinUpdate) Kind() Kind { return KindJoinUpdate }

func (m *ServerJoinUpdate) encode(w *wire.Writer) error {
	writePlayer(w, m.PlayerID)
	w.WriteU8(m.MapArea)
	return nil
}

func (m *ServerJoinUpdate) decode(r *wire.Reader) (err error) {
	if m.PlayerID, err = readPlayer(r); err != nil {
		return err
	}
	m.MapArea, err = r.ReadU8()
	return err
}

type ServerChangeMap struct {
	server
	MapName   string
	MapDigest wire.Digest
}

func (*ServerChangeMap) Kind() Kind { return KindChangeMap }

func (m *ServerChangeMap) encode(w *wire.Writer) error {
	if err := w.WriteShortString(m.MapName); err != nil {
		return err
	}
	w.WriteDigest(m.MapDigest)
	return nil
}

func (m *ServerChangeMap) decode(r *wire.Reader) (err error) {
	if m.MapName, err = r.ReadShortString(); err != nil {
		return err
	}
	m.MapDigest, err = r.ReadDigest()
	return err
}

// ServerPlayerJoin announces a new player. It takes the next free id.
type ServerPlayerJoin struct {
	server
	Name string
}

func (*ServerPlayerJoin) Kind() Kind { return KindPlayerJoin }

func (m *ServerPlayerJoin) encode(w *wire.Writer) error {
	return w.WriteShortString(m.Name)
}

func (m *ServerPlayerJoin) decode(r *wire.Reader) (err error) {
	m.Name, err = r.ReadShortString()
	return err
}

// ServerPlayerLeave removes a player. Every player with a higher id moves
// down by one.
type ServerPlayerLeave struct {
	server
	Player PlayerID
}

func (*ServerPlayerLeave) Kind() Kind { return KindPlayerLeave }

func (m *ServerPlayerLeave) encode(w *wire.Writer) error {
	writePlayer(w, m.Player)
	return nil
}

func (m *ServerPlayerLeave) decode(r *wire.Reader) (err error) {
	m.Player, err = readPlayer(r)
	return err
}

type ServerPlayerChangeTeam struct {
	server
	Player PlayerID
	Team   Team
}

func (*ServerPlayerChangeTeam) Kind() Kind { return KindPlayerChangeTeam }

func (m *ServerPlayerChangeTeam) encode(w *wire.Writer) error {
	writePlayer(w, m.Player)
	return writeEnum(w, m.Team, "team")
}

func (m *ServerPlayerChangeTeam) decode(r *wire.Reader) (err error) {
	if m.Player, err = readPlayer(r); err != nil {
		return err
	}
	m.Team, err = readEnum[Team](r, "team")
	return err
}

type ServerPlayerChangeClass struct {
	server
	Player PlayerID
	Class  Class
}

func (*ServerPlayerChangeClass) Kind() Kind { return KindPlayerChangeClass }

func (m *ServerPlayerChangeClass) encode(w *wire.Writer) error {
	writePlayer(w, m.Player)
	return writeEnum(w, m.Class, "class")
}

func (m *ServerPlayerChangeClass) decode(r *wire.Reader) (err error) {
	if m.Player, err = readPlayer(r); err != nil {
		return err
	}
	m.Class, err = readEnum[Class](r, "class")
	return err
}

type ServerPlayerChangeName struct {
	server
	Player PlayerID
	Name   string
}

func (*ServerPlayerChangeName) Kind() Kind { return KindPlayerChangeName }

func (m *ServerPlayerChangeName) encode(w *wire.Writer) error {
	writePlayer(w, m.Player)
	return w.WriteShortString(m.Name)
}

func (m *ServerPlayerChangeName) decode(r *wire.Reader) (err error) {
	if m.Player, err = readPlayer(r); err != nil {
		return err
	}
	m.Name, err = r.ReadShortString()
	return err
}

type ServerPlayerSpawn struct {
	server
	Player     PlayerID
	SpawnIndex uint8
	SpawnGroup uint8
}

func (*ServerPlayerSpawn) Kind() Kind { return KindPlayerSpawn }

func (m *ServerPlayerSpawn) encode(w *wire.Writer) error {
	writePlayer(w, m.Player)
	w.WriteU8(m.SpawnIndex)
	w.WriteU8(m.SpawnGroup)
	return nil
}

func (m *ServerPlayerSpawn) decode(r *wire.Reader) (err error) {
	if m.Player, err = readPlayer(r); err != nil {
		return err
	}
	if m.SpawnIndex, err = r.ReadU8(); err != nil {
		return err
	}
	m.SpawnGroup, err = r.ReadU8()
	return err
}

// ServerPlayerDeath reports a kill. Killer and Assistant are NoPlayer when
// absent.
type ServerPlayerDeath struct {
	server
	Victim    PlayerID
	Killer    PlayerID
	Assistant PlayerID
	Cause     DamageSource
}

func (*ServerPlayerDeath) Kind() Kind { return KindPlayerDeath }

func (m *ServerPlayerDeath) encode(w *wire.Writer) error {
	writePlayer(w, m.Victim)
	writePlayer(w, m.Killer)
	writePlayer(w, m.Assistant)
	w.WriteU8(uint8(m.Cause))
	return nil
}

func (m *ServerPlayerDeath) decode(r *wire.Reader) (err error) {
	if m.Victim, err = readPlayer(r); err != nil {
		return err
	}
	if m.Killer, err = readOptionalPlayer(r); err != nil {
		return err
	}
	if m.Assistant, err = readOptionalPlayer(r); err != nil {
		return err
	}
	m.Cause, err = readEnum[DamageSource](r, "damage source")
	return err
}

type ServerReturnIntel struct {
	server
	Team Team
}

func (*ServerReturnIntel) Kind() Kind { return KindReturnIntel }

func (m *ServerReturnIntel) encode(w *wire.Writer) error {
	w.WriteU8(uint8(m.Team))
	return nil
}

func (m *ServerReturnIntel) decode(r *wire.Reader) (err error) {
	m.Team, err = readEnum[Team](r, "team")
	return err
}

// The intel, uber, omnom and zoom kinds all carry a single player.

type ServerGrabIntel struct {
	server
	Player PlayerID
}

type ServerScoreIntel struct {
	server
	Player PlayerID
}

type ServerDropIntel struct {
	server
	Player PlayerID
}

type ServerUberCharged struct {
	server
	Player PlayerID
}

type ServerUber struct {
	server
	Player PlayerID
}

type ServerOmnomnomnom struct {
	server
	Player PlayerID
}

type ServerToggleZoom struct {
	server
	Player PlayerID
}

func (*ServerGrabIntel) Kind() Kind   { return KindGrabIntel }
func (*ServerScoreIntel) Kind() Kind  { return KindScoreIntel }
func (*ServerDropIntel) Kind() Kind   { return KindDropIntel }
func (*ServerUberCharged) Kind() Kind { return KindUberCharged }
func (*ServerUber) Kind() Kind        { return KindUber }
func (*ServerOmnomnomnom) Kind() Kind { return KindOmnomnomnom }
func (*ServerToggleZoom) Kind() Kind  { return KindToggleZoom }

func (m *ServerGrabIntel) encode(w *wire.Writer) error {
	writePlayer(w, m.Player)
	return nil
}

func (m *ServerGrabIntel) decode(r *wire.Reader) (err error) {
	m.Player, err = readPlayer(r)
	return err
}

func (m *ServerScoreIntel) encode(w *wire.Writer) error {
	writePlayer(w, m.Player)
	return nil
}

func (m *ServerScoreIntel) decode(r *wire.Reader) (err error) {
	m.Player, err = readPlayer(r)
	return err
}

func (m *ServerDropIntel) encode(w *wire.Writer) error {
	writePlayer(w, m.Player)
	return nil
}

func (m *ServerDropIntel) decode(r *wire.Reader) (err error) {
	m.Player, err = readPlayer(r)
	return err
}

func (m *ServerUberCharged) encode(w *wire.Writer) error {
	writePlayer(w, m.Player)
	return nil
}

func (m *ServerUberCharged) decode(r *wire.Reader) (err error) {
	m.Player, err = readPlayer(r)
	return err
}

func (m *ServerUber) encode(w *wire.Writer) error {
	writePlayer(w, m.Player)
	return nil
}

func (m *ServerUber) decode(r *wire.Reader) (err error) {
	m.Player, err = readPlayer(r)
	return err
}

func (m *ServerOmnomnomnom) encode(w *wire.Writer) error {
	writePlayer(w, m.Player)
	return nil
}

func (m *ServerOmnomnomnom) decode(r *wire.Reader) (err error) {
	m.Player, err = readPlayer(r)
	return err
}

func (m *ServerToggleZoom) encode(w *wire.Writer) error {
	writePlayer(w, m.Player)
	return nil
}

func (m *ServerToggleZoom) decode(r *wire.Reader) (err error) {
	m.Player, err = readPlayer(r)
	return err
}

type ServerCapsUpdate struct {
	server
	RedCaps  uint8
	BlueCaps uint8
	CapLimit uint8
}

func (*ServerCapsUpdate) Kind() Kind { return KindCapsUpdate }

func (m *ServerCapsUpdate) encode(w *wire.Writer) error {
	w.WriteU8(m.RedCaps)
	w.WriteU8(m.BlueCaps)
	w.WriteU8(m.CapLimit)
	return nil
}

func (m *ServerCapsUpdate) decode(r *wire.Reader) (err error) {
	if m.RedCaps, err = r.ReadU8(); err != nil {
		return err
	}
	if m.BlueCaps, err = r.ReadU8(); err != nil {
		return err
	}
	m.CapLimit, err = r.ReadU8()
	return err
}

type ServerKick struct {
	server
	Reason KickReason
}

func (*ServerKick) Kind() Kind { return KindKick }

func (m *ServerKick) encode(w *wire.Writer) error {
	w.WriteU8(uint8(m.Reason))
	return nil
}

func (m *ServerKick) decode(r *wire.Reader) (err error) {
	m.Reason, err = readEnum[KickReason](r, "kick reason")
	return err
}

// ServerMessageString is a system message with no sending player.
type ServerMessageString struct {
	server
	Text string
}

func (*ServerMessageString) Kind() Kind { return KindMessageString }

func (m *ServerMessageString) encode(w *wire.Writer) error {
	return w.WriteLongString(m.Text)
}

func (m *ServerMessageString) decode(r *wire.Reader) (err error) {
	m.Text, err = r.ReadLongString()
	return err
}

type ServerWeaponFire struct {
	server
	Player    PlayerID
	X, Y      float64
	Direction float64
	Speed     float64
	Seed      uint16
}

func (*ServerWeaponFire) Kind() Kind { return KindWeaponFire }

func (m *ServerWeaponFire) encode(w *wire.Writer) error {
	writePlayer(w, m.Player)
	w.WriteFixedPoint(wire.Width16, positionScale, m.X)
	w.WriteFixedPoint(wire.Width16, positionScale, m.Y)
	w.WriteFixedPoint(wire.Width16, aimDirScale, m.Direction)
	w.WriteFixedPoint(wire.Width8, projectileScale, m.Speed)
	w.WriteU16(m.Seed)
	return nil
}

func (m *ServerWeaponFire) decode(r *wire.Reader) (err error) {
	if m.Player, err = readPlayer(r); err != nil {
		return err
	}
	if m.X, err = r.ReadFixedPoint(wire.Width16, positionScale); err != nil {
		return err
	}
	if m.Y, err = r.ReadFixedPoint(wire.Width16, positionScale); err != nil {
		return err
	}
	if m.Direction, err = r.ReadFixedPoint(wire.Width16, aimDirScale); err != nil {
		return err
	}
	if m.Speed, err = r.ReadFixedPoint(wire.Width8, projectileScale); err != nil {
		return err
	}
	m.Seed, err = r.ReadU16()
	return err
}

type ServerChat struct {
	server
	Player PlayerID
	Text   string
}

func (*ServerChat) Kind() Kind { return KindChat }

func (m *ServerChat) encode(w *wire.Writer) error {
	writePlayer(w, m.Player)
	return w.WriteShortString(m.Text)
}

func (m *ServerChat) decode(r *wire.Reader) (err error) {
	if m.Player, err = readPlayer(r); err != nil {
		return err
	}
	m.Text, err = r.ReadShortString()
	return err
}
