package protocol

import (
	"github.com/blukai/gangnet/internal/wire"
)

// Message is any decoded protocol message. The concrete type identifies the
// shape; Kind is the byte it travels under.
type Message interface {
	Kind() Kind

	encode(w *wire.Writer) error
	decode(r *wire.Reader) error
}

// ClientMessage is a message a client may send.
type ClientMessage interface {
	Message
	clientMessage()
}

// ServerMessage is a message a server may send.
type ServerMessage interface {
	Message
	serverMessage()
}

// client embeds into client message types, server into server ones.
type (
	client struct{}
	server struct{}
)

func (client) clientMessage() {}
func (server) serverMessage() {}

// empty is embedded into messages without a payload.
type empty struct{}

func (empty) encode(*wire.Writer) error { return nil }
func (empty) decode(*wire.Reader) error { return nil }

func writePlayer(w *wire.Writer, id PlayerID) {
	w.WriteU8(uint8(id))
}
