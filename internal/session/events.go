package session

import (
	"github.com/blukai/gangnet/internal/protocol"
	"github.com/blukai/gangnet/internal/wire"
)

// Event is a notification for the game state owner. The machine never mutates
// game state itself.
type Event interface {
	event()
}

type Joined struct {
	LocalID protocol.PlayerID
	MapArea uint8
}

// Disconnected is emitted exactly once per connection attempt.
type Disconnected struct {
	Reason DisconnectReason
	Err    error
}

type ServerInfo struct {
	ServerName string
	MapName    string
	MapDigest  wire.Digest
	Plugins    []string
}

// MapChanged asks for the map to be (re)loaded. MapName has been validated.
type MapChanged struct {
	MapName   string
	MapDigest wire.Digest
}

type PlayerJoined struct {
	Player protocol.PlayerID
	Name   string
}

// PlayerLeft is emitted before any LocalIDChanged it causes. Players above
// Player move down by one.
type PlayerLeft struct {
	Player protocol.PlayerID
}

type LocalIDChanged struct {
	Old, New protocol.PlayerID
}

type TeamChanged struct {
	Player protocol.PlayerID
	Team   protocol.Team
}

type ClassChanged struct {
	Player protocol.PlayerID
	Class  protocol.Class
}

type NameChanged struct {
	Player protocol.PlayerID
	Name   string
}

type PlayerSpawned struct {
	Player     protocol.PlayerID
	SpawnIndex uint8
	SpawnGroup uint8
}

// PlayerDied carries protocol.NoPlayer for an absent killer or assistant.
type PlayerDied struct {
	Victim    protocol.PlayerID
	Killer    protocol.PlayerID
	Assistant protocol.PlayerID
	Cause     protocol.DamageSource
}

type QuickSnapshot struct {
	Players []protocol.QuickPlayer
}

type FullSnapshot struct {
	Update *protocol.ServerFullUpdate
}

type IntelAction uint8

const (
	IntelGrabbed IntelAction = iota
	IntelScored
	IntelDropped
	IntelReturned
)

// IntelEvent has Player set for grabs, scores and drops, and Team set for
// returns.
type IntelEvent struct {
	Action IntelAction
	Player protocol.PlayerID
	Team   protocol.Team
}

type CapsChanged struct {
	RedCaps  uint8
	BlueCaps uint8
	CapLimit uint8
}

// Text is a chat line. Player is protocol.NoPlayer for system messages.
type Text struct {
	Player protocol.PlayerID
	Text   string
}

type WeaponFired struct {
	Player    protocol.PlayerID
	X, Y      float64
	Direction float64
	Speed     float64
	Seed      uint16
}

// UberEvent is emitted when a medic's uber is ready (Charged) and when it is
// activated.
type UberEvent struct {
	Player  protocol.PlayerID
	Charged bool
}

type Omnom struct {
	Player protocol.PlayerID
}

type ZoomToggled struct {
	Player protocol.PlayerID
}

func (Joined) event()         {}
func (Disconnected) event()   {}
func (ServerInfo) event()     {}
func (MapChanged) event()     {}
func (PlayerJoined) event()   {}
func (PlayerLeft) event()     {}
func (LocalIDChanged) event() {}
func (TeamChanged) event()    {}
func (ClassChanged) event()   {}
func (NameChanged) event()    {}
func (PlayerSpawned) event()  {}
func (PlayerDied) event()     {}
func (QuickSnapshot) event()  {}
func (FullSnapshot) event()   {}
func (IntelEvent) event()     {}
func (CapsChanged) event()    {}
func (Text) event()           {}
func (WeaponFired) event()    {}
func (UberEvent) event()      {}
func (Omnom) event()          {}
func (ZoomToggled) event()    {}
