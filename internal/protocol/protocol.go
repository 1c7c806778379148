package protocol

import (
	"strconv"

	"github.com/google/uuid"
)

const DefaultPort = 8190

// ProtocolID is sent in ClientHello. The server answers IncompatibleProtocol
// when it does not match its own.
var ProtocolID = uuid.MustParse("5f2a9c6e-1b47-4e83-a0d2-7c3e91b6f408")

// Kind is the single byte discriminator selecting a message's shape. The same
// byte may select different shapes depending on which side sent the message.
type Kind uint8

const (
	_ Kind = iota
	KindPlayerJoin
	KindPlayerLeave
	KindPlayerChangeTeam
	KindPlayerChangeClass
	KindPlayerSpawn
	KindInputState
	KindChangeMap
	KindFullUpdate
	KindQuickUpdate
	KindPlayerDeath
	KindServerFull
	KindReturnIntel
	KindGrabIntel
	KindScoreIntel
	KindDropIntel
	KindUberCharged
	KindUber
	KindOmnomnomnom
	KindPasswordRequest
	KindPasswordSend
	KindPasswordWrong
	KindPlayerChangeName
	KindIncompatibleProtocol
	KindCapsUpdate
	KindKick
	// NOTE(blukai): 26 and 27 were arena round kinds. never implemented.
	_
	_
	KindToggleZoom
	KindMessageString
	KindWeaponFire
	KindChat
	// 32 was the legacy sentry position kind.
	_
	KindReserveSlot
	// 34 was the legacy map download kind.
	_
	KindJoinUpdate
	KindHello
)

func (k Kind) String() string {
	switch k {
	case KindPlayerJoin:
		return "PlayerJoin"
	case KindPlayerLeave:
		return "PlayerLeave"
	case KindPlayerChangeTeam:
		return "PlayerChangeTeam"
	case KindPlayerChangeClass:
		return "PlayerChangeClass"
	case KindPlayerSpawn:
		return "PlayerSpawn"
	case KindInputState:
		return "InputState"
	case KindChangeMap:
		return "ChangeMap"
	case KindFullUpdate:
		return "FullUpdate"
	case KindQuickUpdate:
		return "QuickUpdate"
	case KindPlayerDeath:
		return "PlayerDeath"
	case KindServerFull:
		return "ServerFull"
	case KindReturnIntel:
		return "ReturnIntel"
	case KindGrabIntel:
		return "GrabIntel"
	case KindScoreIntel:
		return "ScoreIntel"
	case KindDropIntel:
		return "DropIntel"
	case KindUberCharged:
		return "UberCharged"
	case KindUber:
		return "Uber"
	case KindOmnomnomnom:
		return "Omnomnomnom"
	case KindPasswordRequest:
		return "PasswordRequest"
	case KindPasswordSend:
		return "PasswordSend"
	case KindPasswordWrong:
		return "PasswordWrong"
	case KindPlayerChangeName:
		return "PlayerChangeName"
	case KindIncompatibleProtocol:
		return "IncompatibleProtocol"
	case KindCapsUpdate:
		return "CapsUpdate"
	case KindKick:
		return "Kick"
	case KindToggleZoom:
		return "ToggleZoom"
	case KindMessageString:
		return "MessageString"
	case KindWeaponFire:
		return "WeaponFire"
	case KindChat:
		return "Chat"
	case KindReserveSlot:
		return "ReserveSlot"
	case KindJoinUpdate:
		return "JoinUpdate"
	case KindHello:
		return "Hello"
	default:
		return "Kind(" + strconv.Itoa(int(k)) + ")"
	}
}

// Side names the originator of a message.
type Side uint8

const (
	FromClient Side = iota
	FromServer
)

func (s Side) String() string {
	if s == FromClient {
		return "client"
	}
	return "server"
}
