package protocol

import (
	"github.com/blukai/gangnet/internal/ptr"
	"github.com/blukai/gangnet/internal/wire"
	"github.com/go-faster/errors"
)

const (
	positionScale   = 3
	velocityScale   = 3
	aimDirScale     = 6
	aimDistScale    = 0
	projectileScale = 3
)

// Input is the controllable part of a character.
type Input struct {
	Keys         KeyState
	AimDirection float64
	AimDistance  float64
}

func writeInput(w *wire.Writer, in Input) {
	w.WriteU8(in.Keys.Byte())
	w.WriteFixedPoint(wire.Width16, aimDirScale, in.AimDirection)
	w.WriteFixedPoint(wire.Width8, aimDistScale, in.AimDistance)
}

func readInput(r *wire.Reader) (in Input, err error) {
	keys, err := r.ReadU8()
	if err != nil {
		return in, err
	}
	in.Keys = KeyStateFromByte(keys)
	if in.AimDirection, err = r.ReadFixedPoint(wire.Width16, aimDirScale); err != nil {
		return in, err
	}
	in.AimDistance, err = r.ReadFixedPoint(wire.Width8, aimDistScale)
	return in, err
}

// Body is the physical part of a character, present only while it is alive.
type Body struct {
	X, Y       float64
	VX, VY     float64
	Health     uint8
	Ammo       uint8
	MoveStatus uint8
}

func writeBody(w *wire.Writer, b *Body) {
	w.WriteFixedPoint(wire.Width16, positionScale, b.X)
	w.WriteFixedPoint(wire.Width16, positionScale, b.Y)
	w.WriteSignedFixedPoint(wire.Width8, velocityScale, b.VX)
	w.WriteSignedFixedPoint(wire.Width8, velocityScale, b.VY)
	w.WriteU8(b.Health)
	w.WriteU8(b.Ammo)
	w.WriteU8(b.MoveStatus)
}

func readBody(r *wire.Reader) (*Body, error) {
	var (
		b   Body
		err error
	)
	if b.X, err = r.ReadFixedPoint(wire.Width16, positionScale); err != nil {
		return nil, err
	}
	if b.Y, err = r.ReadFixedPoint(wire.Width16, positionScale); err != nil {
		return nil, err
	}
	if b.VX, err = r.ReadSignedFixedPoint(wire.Width8, velocityScale); err != nil {
		return nil, err
	}
	if b.VY, err = r.ReadSignedFixedPoint(wire.Width8, velocityScale); err != nil {
		return nil, err
	}
	if b.Health, err = r.ReadU8(); err != nil {
		return nil, err
	}
	if b.Ammo, err = r.ReadU8(); err != nil {
		return nil, err
	}
	if b.MoveStatus, err = r.ReadU8(); err != nil {
		return nil, err
	}
	return &b, nil
}

// QuickPlayer is one entry of a quick update. Body is nil for dead players.
type QuickPlayer struct {
	Input
	Body *Body
}

// CharacterSnapshot is the character part of a full update entry.
type CharacterSnapshot struct {
	Input
	Body Body
}

type PlayerStats struct {
	Kills       uint8
	Deaths      uint8
	Caps        uint8
	Assists     uint8
	Destruction uint8
	Stabs       uint8
	Healing     uint16
	Defenses    uint8
	Invulns     uint8
	Bonus       uint8
	Points      uint16
}

func writeStats(w *wire.Writer, s *PlayerStats) {
	w.WriteU8(s.Kills)
	w.WriteU8(s.Deaths)
	w.WriteU8(s.Caps)
	w.WriteU8(s.Assists)
	w.WriteU8(s.Destruction)
	w.WriteU8(s.Stabs)
	w.WriteU16(s.Healing)
	w.WriteU8(s.Defenses)
	w.WriteU8(s.Invulns)
	w.WriteU8(s.Bonus)
	w.WriteU16(s.Points)
}

func readStats(r *wire.Reader) (s PlayerStats, err error) {
	u8s := []*uint8{&s.Kills, &s.Deaths, &s.Caps, &s.Assists, &s.Destruction, &s.Stabs}
	for _, p := range u8s {
		if *p, err = r.ReadU8(); err != nil {
			return s, err
		}
	}
	if s.Healing, err = r.ReadU16(); err != nil {
		return s, err
	}
	for _, p := range []*uint8{&s.Defenses, &s.Invulns, &s.Bonus} {
		if *p, err = r.ReadU8(); err != nil {
			return s, err
		}
	}
	s.Points, err = r.ReadU16()
	return s, err
}

// FullPlayer is one entry of a full update. Dominations and Nemesis hold one
// entry per other player; Character is nil when the player has no character.
type FullPlayer struct {
	Team        Team
	Class       Class
	Stats       PlayerStats
	QueueJump   bool
	Dominations []uint8
	Nemesis     []bool
	Character   *CharacterSnapshot
}

// Intel is the state of a team's intelligence. Carrier is NoPlayer unless the
// intel is carried; position and timer are only meaningful when dropped.
type Intel struct {
	State       IntelState
	Carrier     PlayerID
	X, Y        float64
	ReturnTimer uint16
}

func writeIntel(w *wire.Writer, in *Intel) {
	w.WriteU8(uint8(in.State))
	switch in.State {
	case IntelCarried:
		writePlayer(w, in.Carrier)
	case IntelDropped:
		w.WriteFixedPoint(wire.Width16, positionScale, in.X)
		w.WriteFixedPoint(wire.Width16, positionScale, in.Y)
		w.WriteU16(in.ReturnTimer)
	}
}

func readIntel(r *wire.Reader) (in Intel, err error) {
	in.Carrier = NoPlayer
	if in.State, err = readEnum[IntelState](r, "intel state"); err != nil {
		return in, err
	}
	switch in.State {
	case IntelCarried:
		in.Carrier, err = readPlayer(r)
	case IntelDropped:
		if in.X, err = r.ReadFixedPoint(wire.Width16, positionScale); err != nil {
			return in, err
		}
		if in.Y, err = r.ReadFixedPoint(wire.Width16, positionScale); err != nil {
			return in, err
		}
		in.ReturnTimer, err = r.ReadU16()
	}
	return in, err
}

func writePlayerCount(w *wire.Writer, n int) error {
	if n > int(NoPlayer) {
		return errors.Wrapf(ErrShape, "%d players", n)
	}
	w.WriteU8(uint8(n))
	return nil
}

// ServerQuickUpdate carries the inputs and bodies of every player.
type ServerQuickUpdate struct {
	server
	Players []QuickPlayer
}

func (*ServerQuickUpdate) Kind() Kind { return KindQuickUpdate }

func (m *ServerQuickUpdate) encode(w *wire.Writer) error {
	if err := writePlayerCount(w, len(m.Players)); err != nil {
		return err
	}
	for i := range m.Players {
		p := &m.Players[i]
		writeInput(w, p.Input)
		w.WriteBool(p.Body != nil)
		if p.Body != nil {
			writeBody(w, p.Body)
		}
	}
	return nil
}

func (m *ServerQuickUpdate) decode(r *wire.Reader) error {
	n, err := r.ReadU8()
	if err != nil {
		return err
	}
	if n == 0 {
		return nil
	}
	m.Players = make([]QuickPlayer, n)
	for i := range m.Players {
		p := &m.Players[i]
		if p.Input, err = readInput(r); err != nil {
			return err
		}
		alive, err := r.ReadBool()
		if err != nil {
			return err
		}
		if alive {
			if p.Body, err = readBody(r); err != nil {
				return err
			}
		}
	}
	return nil
}

// ServerFullUpdate is the complete game state. It is sent to a client right
// after it joins and whenever the server decides to resynchronize.
type ServerFullUpdate struct {
	server
	Players       []FullPlayer
	RedCaps       uint8
	BlueCaps      uint8
	CapLimit      uint8
	TimeLimit     uint16
	TimeLeft      uint16
	RedIntel      Intel
	BlueIntel     Intel
	ClassLimits   [NumClasses]uint8
	TeamSizeLimit uint8
	Autobalance   bool
}

// UnlimitedClass is the class limit meaning no limit.
const UnlimitedClass = 255

func (*ServerFullUpdate) Kind() Kind { return KindFullUpdate }

func (m *ServerFullUpdate) encode(w *wire.Writer) error {
	n := len(m.Players)
	if err := writePlayerCount(w, n); err != nil {
		return err
	}
	for i := range m.Players {
		p := &m.Players[i]
		if len(p.Dominations) != n-1 || len(p.Nemesis) != n-1 {
			return errors.Wrapf(ErrShape, "player %d: %d dominations, %d nemesis flags for %d players",
				i, len(p.Dominations), len(p.Nemesis), n)
		}
		w.WriteU8(uint8(p.Team))
		w.WriteU8(uint8(p.Class))
		writeStats(w, &p.Stats)
		w.WriteBool(p.QueueJump)
		w.WriteN(p.Dominations)
		for _, nem := range p.Nemesis {
			w.WriteBool(nem)
		}
		w.WriteBool(p.Character != nil)
		if p.Character != nil {
			writeInput(w, p.Character.Input)
			writeBody(w, &p.Character.Body)
		}
	}
	w.WriteU8(m.RedCaps)
	w.WriteU8(m.BlueCaps)
	w.WriteU8(m.CapLimit)
	w.WriteU16(m.TimeLimit)
	w.WriteU16(m.TimeLeft)
	writeIntel(w, &m.RedIntel)
	writeIntel(w, &m.BlueIntel)
	w.WriteN(m.ClassLimits[:])
	w.WriteU8(m.TeamSizeLimit)
	w.WriteBool(m.Autobalance)
	return nil
}

func (m *ServerFullUpdate) decode(r *wire.Reader) error {
	n, err := r.ReadU8()
	if err != nil {
		return err
	}
	if n > 0 {
		m.Players = make([]FullPlayer, n)
	}
	for i := range m.Players {
		if err := readFullPlayer(r, &m.Players[i], int(n)-1); err != nil {
			return errors.Wrapf(err, "player %d", i)
		}
	}

	for _, p := range []*uint8{&m.RedCaps, &m.BlueCaps, &m.CapLimit} {
		if *p, err = r.ReadU8(); err != nil {
			return err
		}
	}
	if m.TimeLimit, err = r.ReadU16(); err != nil {
		return err
	}
	if m.TimeLeft, err = r.ReadU16(); err != nil {
		return err
	}
	if m.RedIntel, err = readIntel(r); err != nil {
		return errors.Wrap(err, "red intel")
	}
	if m.BlueIntel, err = readIntel(r); err != nil {
		return errors.Wrap(err, "blue intel")
	}
	limits, err := r.ReadN(int(NumClasses))
	if err != nil {
		return err
	}
	copy(m.ClassLimits[:], limits)
	if m.TeamSizeLimit, err = r.ReadU8(); err != nil {
		return err
	}
	m.Autobalance, err = r.ReadBool()
	return err
}

func readFullPlayer(r *wire.Reader, p *FullPlayer, others int) (err error) {
	if p.Team, err = readEnum[Team](r, "team"); err != nil {
		return err
	}
	if p.Class, err = readEnum[Class](r, "class"); err != nil {
		return err
	}
	if p.Stats, err = readStats(r); err != nil {
		return err
	}
	if p.QueueJump, err = r.ReadBool(); err != nil {
		return err
	}
	if others > 0 {
		doms, err := r.ReadN(others)
		if err != nil {
			return err
		}
		p.Dominations = append([]uint8(nil), doms...)
		p.Nemesis = make([]bool, others)
		for j := range p.Nemesis {
			if p.Nemesis[j], err = r.ReadBool(); err != nil {
				return err
			}
		}
	}
	hasCharacter, err := r.ReadBool()
	if err != nil {
		return err
	}
	if !hasCharacter {
		return nil
	}
	in, err := readInput(r)
	if err != nil {
		return err
	}
	body, err := readBody(r)
	if err != nil {
		return err
	}
	p.Character = ptr.To(CharacterSnapshot{Input: in, Body: *body})
	return nil
}
