package protocol

import (
	"github.com/blukai/gangnet/internal/wire"
	"github.com/go-faster/errors"
)

// newClientMessage returns an empty message for a kind the client sends, or
// nil if no such shape exists.
func newClientMessage(kind Kind) Message {
	switch kind {
	case KindHello:
		return &ClientHello{}
	case KindReserveSlot:
		return &ClientReserveSlot{}
	case KindPlayerJoin:
		return &ClientPlayerJoin{}
	case KindPasswordSend:
		return &ClientPasswordSend{}
	case KindPlayerChangeTeam:
		return &ClientPlayerChangeTeam{}
	case KindPlayerChangeClass:
		return &ClientPlayerChangeClass{}
	case KindPlayerChangeName:
		return &ClientPlayerChangeName{}
	case KindInputState:
		return &ClientInputState{}
	case KindToggleZoom:
		return &ClientToggleZoom{}
	case KindChat:
		return &ClientChat{}
	default:
		return nil
	}
}

func newServerMessage(kind Kind) Message {
	switch kind {
	case KindHello:
		return &ServerHello{}
	case KindReserveSlot:
		return &ServerReserveSlotAck{}
	case KindServerFull:
		return &ServerFull{}
	case KindPasswordRequest:
		return &ServerPasswordRequest{}
	case KindPasswordWrong:
		return &ServerPasswordWrong{}
	case KindIncompatibleProtocol:
		return &ServerIncompatibleProtocol{}
	case KindJoinUpdate:
		return &ServerJoinUpdate{}
	case KindChangeMap:
		return &ServerChangeMap{}
	case KindPlayerJoin:
		return &ServerPlayerJoin{}
	case KindPlayerLeave:
		return &ServerPlayerLeave{}
	case KindPlayerChangeTeam:
		return &ServerPlayerChangeTeam{}
	case KindPlayerChangeClass:
		return &ServerPlayerChangeClass{}
	case KindPlayerChangeName:
		return &ServerPlayerChangeName{}
	case KindPlayerSpawn:
		return &ServerPlayerSpawn{}
	case KindPlayerDeath:
		return &ServerPlayerDeath{}
	case KindQuickUpdate:
		return &ServerQuickUpdate{}
	case KindFullUpdate:
		return &ServerFullUpdate{}
	case KindReturnIntel:
		return &ServerReturnIntel{}
	case KindGrabIntel:
		return &ServerGrabIntel{}
	case KindScoreIntel:
		return &ServerScoreIntel{}
	case KindDropIntel:
		return &ServerDropIntel{}
	case KindUberCharged:
		return &ServerUberCharged{}
	case KindUber:
		return &ServerUber{}
	case KindOmnomnomnom:
		return &ServerOmnomnomnom{}
	case KindCapsUpdate:
		return &ServerCapsUpdate{}
	case KindKick:
		return &ServerKick{}
	case KindToggleZoom:
		return &ServerToggleZoom{}
	case KindMessageString:
		return &ServerMessageString{}
	case KindWeaponFire:
		return &ServerWeaponFire{}
	case KindChat:
		return &ServerChat{}
	default:
		return nil
	}
}

// Decode turns the payload of one frame into a typed message. from is the
// side that sent the frame. The whole payload must be consumed. Any failure is
// returned as *DecodeError.
func Decode(from Side, kind Kind, payload []byte) (Message, error) {
	var msg Message
	if from == FromClient {
		msg = newClientMessage(kind)
	} else {
		msg = newServerMessage(kind)
	}
	if msg == nil {
		return nil, &DecodeError{Side: from, Kind: kind, Err: ErrUnsupportedKind}
	}

	r := wire.NewReader(payload)
	if err := msg.decode(r); err != nil {
		return nil, &DecodeError{Side: from, Kind: kind, Err: err}
	}
	if n := r.Remaining(); n > 0 {
		return nil, &DecodeError{Side: from, Kind: kind, Err: errors.Wrapf(ErrTrailingBytes, "%d bytes", n)}
	}
	return msg, nil
}

// Encode encodes a message a client sends.
func Encode(msg ClientMessage) (Kind, []byte, error) {
	return encode(msg)
}

// EncodeServer encodes a message a server sends.
func EncodeServer(msg ServerMessage) (Kind, []byte, error) {
	return encode(msg)
}

func encode(msg Message) (Kind, []byte, error) {
	w := wire.NewWriter()
	if err := msg.encode(w); err != nil {
		return msg.Kind(), nil, errors.Wrapf(err, "could not encode %s", msg.Kind())
	}
	return msg.Kind(), w.Bytes(), nil
}
