package session

import "strconv"

type State uint8

const (
	StateDisconnected State = iota
	StateConnecting
	StateAwaitingHello
	StateReservingSlot
	StateJoining
	StateInGame
)

func (s State) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateConnecting:
		return "connecting"
	case StateAwaitingHello:
		return "awaiting hello"
	case StateReservingSlot:
		return "reserving slot"
	case StateJoining:
		return "joining"
	case StateInGame:
		return "in game"
	default:
		return "state(" + strconv.Itoa(int(s)) + ")"
	}
}

// DisconnectReason classifies why a connection ended.
type DisconnectReason uint8

const (
	ReasonLocal DisconnectReason = iota
	ReasonTransport
	ReasonFraming
	ReasonDecode
	ReasonEncode
	ReasonProtocolState
	ReasonServerFull
	ReasonPasswordWrong
	ReasonIncompatibleProtocol
	ReasonKicked
	ReasonConnectFailed
)

func (r DisconnectReason) String() string {
	switch r {
	case ReasonLocal:
		return "local"
	case ReasonTransport:
		return "transport"
	case ReasonFraming:
		return "framing"
	case ReasonDecode:
		return "decode"
	case ReasonEncode:
		return "encode"
	case ReasonProtocolState:
		return "protocol state"
	case ReasonServerFull:
		return "server full"
	case ReasonPasswordWrong:
		return "password wrong"
	case ReasonIncompatibleProtocol:
		return "incompatible protocol"
	case ReasonKicked:
		return "kicked"
	case ReasonConnectFailed:
		return "connect failed"
	default:
		return "reason(" + strconv.Itoa(int(r)) + ")"
	}
}
