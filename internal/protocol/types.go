package protocol

import (
	"strconv"

	"github.com/blukai/gangnet/internal/wire"
)

// PlayerID is a dense slot index assigned in join order.
type PlayerID uint8

// NoPlayer marks an absent player (no killer, system chat, ...). It is never a
// valid id.
const NoPlayer PlayerID = 255

func (id PlayerID) Valid() bool {
	return id != NoPlayer
}

func readPlayer(r *wire.Reader) (PlayerID, error) {
	b, err := r.ReadU8()
	if err != nil {
		return 0, err
	}
	if PlayerID(b) == NoPlayer {
		return 0, &EnumError{Enum: "player id", Value: b}
	}
	return PlayerID(b), nil
}

// readOptionalPlayer accepts NoPlayer.
func readOptionalPlayer(r *wire.Reader) (PlayerID, error) {
	b, err := r.ReadU8()
	return PlayerID(b), err
}

// KeyState holds the button states packed into one byte. Bit 0 is unused.
type KeyState struct {
	Up        bool
	Down      bool
	Left      bool
	Right     bool
	Primary   bool
	Secondary bool
	Taunt     bool
}

const (
	keyUp        = 0x80
	keyLeft      = 0x40
	keyRight     = 0x20
	keyPrimary   = 0x10
	keySecondary = 0x08
	keyTaunt     = 0x04
	keyDown      = 0x02
)

func (k KeyState) Byte() uint8 {
	var b uint8
	set := func(on bool, bit uint8) {
		if on {
			b |= bit
		}
	}
	set(k.Up, keyUp)
	set(k.Left, keyLeft)
	set(k.Right, keyRight)
	set(k.Primary, keyPrimary)
	set(k.Secondary, keySecondary)
	set(k.Taunt, keyTaunt)
	set(k.Down, keyDown)
	return b
}

func KeyStateFromByte(b uint8) KeyState {
	return KeyState{
		Up:        b&keyUp != 0,
		Down:      b&keyDown != 0,
		Left:      b&keyLeft != 0,
		Right:     b&keyRight != 0,
		Primary:   b&keyPrimary != 0,
		Secondary: b&keySecondary != 0,
		Taunt:     b&keyTaunt != 0,
	}
}

type Team uint8

const (
	TeamRed Team = iota
	TeamBlue
	TeamSpectator

	numTeams
)

func (t Team) Valid() bool { return t < numTeams }

func (t Team) String() string {
	switch t {
	case TeamRed:
		return "red"
	case TeamBlue:
		return "blue"
	case TeamSpectator:
		return "spectator"
	default:
		return "team(" + strconv.Itoa(int(t)) + ")"
	}
}

type Class uint8

const (
	ClassScout Class = iota
	ClassPyro
	ClassSoldier
	ClassHeavy
	ClassDemoman
	ClassMedic
	ClassEngineer
	ClassSpy
	ClassSniper
	ClassQuote

	NumClasses
)

var classNames = [NumClasses]string{
	"scout", "pyro", "soldier", "heavy", "demoman",
	"medic", "engineer", "spy", "sniper", "quote",
}

func (c Class) Valid() bool { return c < NumClasses }

func (c Class) String() string {
	if c.Valid() {
		return classNames[c]
	}
	return "class(" + strconv.Itoa(int(c)) + ")"
}

// DamageSource is the cause of a player death.
type DamageSource uint8

const (
	DamageFinishedOff DamageSource = iota
	DamageScattergun
	DamageFlamethrower
	DamageRocket
	DamageMinigun
	DamageMine
	DamageNeedle
	DamageShotgun
	DamageRevolver
	DamageRifle
	DamageBlade
	DamageKnife
	DamageSentry
	DamageFlare
	DamageFall
	DamageKillBox

	numDamageSources
)

func (d DamageSource) Valid() bool { return d < numDamageSources }

type KickReason uint8

const (
	KickByAdmin KickReason = iota
	KickBadName
	KickBadPluginPacket
	KickMultiClient

	numKickReasons
)

func (k KickReason) Valid() bool { return k < numKickReasons }

func (k KickReason) String() string {
	switch k {
	case KickByAdmin:
		return "kicked by admin"
	case KickBadName:
		return "bad name"
	case KickBadPluginPacket:
		return "bad plugin packet"
	case KickMultiClient:
		return "too many clients from one address"
	default:
		return "kick(" + strconv.Itoa(int(k)) + ")"
	}
}

// IntelState is where a team's intelligence briefcase currently is.
type IntelState uint8

const (
	IntelAtBase IntelState = iota
	IntelCarried
	IntelDropped

	numIntelStates
)

func (s IntelState) Valid() bool { return s < numIntelStates }

type validator interface {
	~uint8
	Valid() bool
}

// writeEnum refuses values the receiving side would reject.
func writeEnum[T validator](w *wire.Writer, v T, name string) error {
	if !v.Valid() {
		return &EnumError{Enum: name, Value: uint8(v)}
	}
	w.WriteU8(uint8(v))
	return nil
}

func readEnum[T validator](r *wire.Reader, name string) (T, error) {
	b, err := r.ReadU8()
	if err != nil {
		return 0, err
	}
	v := T(b)
	if !v.Valid() {
		return 0, &EnumError{Enum: name, Value: b}
	}
	return v, nil
}
