package protocol

import (
	"github.com/blukai/gangnet/internal/wire"
	"github.com/google/uuid"
)

var (
	_ ClientMessage = (*ClientHello)(nil)
	_ ClientMessage = (*ClientReserveSlot)(nil)
	_ ClientMessage = (*ClientPlayerJoin)(nil)
	_ ClientMessage = (*ClientPasswordSend)(nil)
	_ ClientMessage = (*ClientPlayerChangeTeam)(nil)
	_ ClientMessage = (*ClientPlayerChangeClass)(nil)
	_ ClientMessage = (*ClientPlayerChangeName)(nil)
	_ ClientMessage = (*ClientInputState)(nil)
	_ ClientMessage = (*ClientToggleZoom)(nil)
	_ ClientMessage = (*ClientChat)(nil)
)

type ClientHello struct {
	client
	ProtocolID uuid.UUID
}

func (*ClientHello) Kind() Kind { return KindHello }

func (m *ClientHello) encode(w *wire.Writer) error {
	w.WriteDigest(wire.Digest(m.ProtocolID))
	return nil
}

func (m *ClientHello) decode(r *wire.Reader) error {
	d, err := r.ReadDigest()
	if err != nil {
		return err
	}
	m.ProtocolID = uuid.UUID(d)
	return nil
}

type ClientReserveSlot struct {
	client
	PlayerName string
}

func (*ClientReserveSlot) Kind() Kind { return KindReserveSlot }

func (m *ClientReserveSlot) encode(w *wire.Writer) error {
	return w.WriteShortString(m.PlayerName)
}

func (m *ClientReserveSlot) decode(r *wire.Reader) (err error) {
	m.PlayerName, err = r.ReadShortString()
	return err
}

type ClientPlayerJoin struct {
	client
	empty
}

func (*ClientPlayerJoin) Kind() Kind { return KindPlayerJoin }

// ClientPasswordSend answers ServerPasswordRequest.
type ClientPasswordSend struct {
	client
	Password string
}

func (*ClientPasswordSend) Kind() Kind { return KindPasswordSend }

func (m *ClientPasswordSend) encode(w *wire.Writer) error {
	return w.WriteShortString(m.Password)
}

func (m *ClientPasswordSend) decode(r *wire.Reader) (err error) {
	m.Password, err = r.ReadShortString()
	return err
}

type ClientPlayerChangeTeam struct {
	client
	Team Team
}

func (*ClientPlayerChangeTeam) Kind() Kind { return KindPlayerChangeTeam }

func (m *ClientPlayerChangeTeam) encode(w *wire.Writer) error {
	return writeEnum(w, m.Team, "team")
}

func (m *ClientPlayerChangeTeam) decode(r *wire.Reader) (err error) {
	m.Team, err = readEnum[Team](r, "team")
	return err
}

type ClientPlayerChangeClass struct {
	client
	Class Class
}

func (*ClientPlayerChangeClass) Kind() Kind { return KindPlayerChangeClass }

func (m *ClientPlayerChangeClass) encode(w *wire.Writer) error {
	return writeEnum(w, m.Class, "class")
}

func (m *ClientPlayerChangeClass) decode(r *wire.Reader) (err error) {
	m.Class, err = readEnum[Class](r, "class")
	return err
}

type ClientPlayerChangeName struct {
	client
	Name string
}

func (*ClientPlayerChangeName) Kind() Kind { return KindPlayerChangeName }

func (m *ClientPlayerChangeName) encode(w *wire.Writer) error {
	return w.WriteShortString(m.Name)
}

func (m *ClientPlayerChangeName) decode(r *wire.Reader) (err error) {
	m.Name, err = r.ReadShortString()
	return err
}

// ClientInputState carries the local player's buttons and aim. It has the
// same layout as the input part of a character snapshot.
type ClientInputState struct {
	client
	Keys         KeyState
	AimDirection float64
	AimDistance  float64
}

func (*ClientInputState) Kind() Kind { return KindInputState }

func (m *ClientInputState) encode(w *wire.Writer) error {
	writeInput(w, Input{Keys: m.Keys, AimDirection: m.AimDirection, AimDistance: m.AimDistance})
	return nil
}

func (m *ClientInputState) decode(r *wire.Reader) error {
	in, err := readInput(r)
	if err != nil {
		return err
	}
	m.Keys, m.AimDirection, m.AimDistance = in.Keys, in.AimDirection, in.AimDistance
	return nil
}

type ClientToggleZoom struct {
	client
	empty
}

func (*ClientToggleZoom) Kind() Kind { return KindToggleZoom }

type ClientChat struct {
	client
	Text string
}

func (*ClientChat) Kind() Kind { return KindChat }

func (m *ClientChat) encode(w *wire.Writer) error {
	return w.WriteShortString(m.Text)
}

func (m *ClientChat) decode(r *wire.Reader) (err error) {
	m.Text, err = r.ReadShortString()
	return err
}
