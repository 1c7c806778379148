package session_test

import (
	"testing"

	"github.com/blukai/gangnet/internal/protocol"
	"github.com/blukai/gangnet/internal/session"
	"github.com/go-faster/errors"
	"github.com/matryer/is"
)

// connected returns a machine that has sent its hello.
func connected(t *testing.T, identity session.Identity) (*session.Machine, []protocol.ClientMessage) {
	t.Helper()
	m := session.New(identity)
	if err := m.Connect(); err != nil {
		t.Fatal(err)
	}
	res := m.Connected()
	if res.Err != nil {
		t.Fatal(res.Err)
	}
	return m, res.Outbound
}

// inGame runs the handshake and joins with the given id.
func inGame(t *testing.T, id protocol.PlayerID) *session.Machine {
	t.Helper()
	m, _ := connected(t, session.Identity{PlayerName: "me"})
	for _, msg := range []protocol.ServerMessage{
		&protocol.ServerHello{ServerName: "s", MapName: "ctf_truefort"},
		&protocol.ServerReserveSlotAck{},
		&protocol.ServerJoinUpdate{PlayerID: id},
	} {
		if res := m.Handle(msg); res.Err != nil {
			t.Fatal(res.Err)
		}
	}
	return m
}

func disconnectEvents(events []session.Event) []session.Disconnected {
	var out []session.Disconnected
	for _, ev := range events {
		if d, ok := ev.(session.Disconnected); ok {
			out = append(out, d)
		}
	}
	return out
}

func TestHandshakeHappyPath(t *testing.T) {
	is := is.New(t)

	m, outbound := connected(t, session.Identity{PlayerName: "heavy"})
	is.Equal(m.State(), session.StateAwaitingHello)

	var events []session.Event
	for _, msg := range []protocol.ServerMessage{
		&protocol.ServerHello{ServerName: "gg2", MapName: "ctf_truefort", Plugins: []string{"p"}},
		&protocol.ServerReserveSlotAck{},
		&protocol.ServerJoinUpdate{PlayerID: 3, MapArea: 1},
	} {
		res := m.Handle(msg)
		is.NoErr(res.Err)
		outbound = append(outbound, res.Outbound...)
		events = append(events, res.Events...)
	}

	is.Equal(m.State(), session.StateInGame)
	is.Equal(outbound, []protocol.ClientMessage{
		&protocol.ClientHello{ProtocolID: protocol.ProtocolID},
		&protocol.ClientReserveSlot{PlayerName: "heavy"},
		&protocol.ClientPlayerJoin{},
	})
	is.Equal(events[len(events)-1], session.Joined{LocalID: 3, MapArea: 1})

	id, ok := m.LocalID()
	is.True(ok)
	is.Equal(id, protocol.PlayerID(3))
	is.Equal(m.PlayerCount(), 4)
	is.Equal(m.MapName(), "ctf_truefort")
}

func TestPasswordFlow(t *testing.T) {
	is := is.New(t)

	m, _ := connected(t, session.Identity{PlayerName: "p", Password: "hunter2"})

	res := m.Handle(&protocol.ServerPasswordRequest{})
	is.NoErr(res.Err)
	is.Equal(m.State(), session.StateAwaitingHello)
	is.Equal(res.Outbound, []protocol.ClientMessage{&protocol.ClientPasswordSend{Password: "hunter2"}})

	res = m.Handle(&protocol.ServerHello{MapName: "koth_harvest"})
	is.NoErr(res.Err)
	is.Equal(m.State(), session.StateReservingSlot)
}

func TestRejections(t *testing.T) {
	tests := []struct {
		name   string
		setup  func(m *session.Machine)
		msg    protocol.ServerMessage
		reason session.DisconnectReason
	}{
		{
			name:   "password wrong",
			msg:    &protocol.ServerPasswordWrong{},
			reason: session.ReasonPasswordWrong,
		},
		{
			name:   "incompatible protocol",
			msg:    &protocol.ServerIncompatibleProtocol{},
			reason: session.ReasonIncompatibleProtocol,
		},
		{
			name: "server full",
			setup: func(m *session.Machine) {
				m.Handle(&protocol.ServerHello{MapName: "m"})
			},
			msg:    &protocol.ServerFull{},
			reason: session.ReasonServerFull,
		},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			is := is.New(t)

			m, _ := connected(t, session.Identity{PlayerName: "p"})
			if tc.setup != nil {
				tc.setup(m)
			}

			res := m.Handle(tc.msg)
			is.Equal(m.State(), session.StateDisconnected)
			is.Equal(len(res.Outbound), 0)
			is.Equal(len(res.Events), 1)

			ds := disconnectEvents(res.Events)
			is.Equal(len(ds), 1)
			is.Equal(ds[0].Reason, tc.reason)
			is.Equal(ds[0].Reason.String(), tc.name)

			var rejection *session.Rejection
			is.True(errors.As(res.Err, &rejection))

			// nothing after the disconnect
			res = m.Closed(errors.New("eof"))
			is.Equal(len(res.Events), 0)
		})
	}
}

func TestOutOfStateMessage(t *testing.T) {
	is := is.New(t)

	m := inGame(t, 0)

	res := m.Handle(&protocol.ServerFull{})
	is.Equal(m.State(), session.StateDisconnected)

	var stateErr *session.ProtocolStateError
	is.True(errors.As(res.Err, &stateErr))
	is.Equal(stateErr.Kind, protocol.KindServerFull)
	is.Equal(stateErr.State, session.StateInGame)

	ds := disconnectEvents(res.Events)
	is.Equal(len(ds), 1)
	is.Equal(ds[0].Reason, session.ReasonProtocolState)
}

func TestHandshakeOutOfOrder(t *testing.T) {
	is := is.New(t)

	m, _ := connected(t, session.Identity{})
	res := m.Handle(&protocol.ServerJoinUpdate{PlayerID: 0})
	is.True(errors.Is(res.Err, session.ErrUnexpectedKind))
	is.Equal(m.State(), session.StateDisconnected)
}

func TestPlayerLeaveRederivesLocalID(t *testing.T) {
	is := is.New(t)

	m := inGame(t, 2)
	res := m.Handle(&protocol.ServerPlayerJoin{Name: "late"})
	is.Equal(res.Events, []session.Event{session.PlayerJoined{Player: 3, Name: "late"}})
	is.Equal(m.PlayerCount(), 4)

	res = m.Handle(&protocol.ServerPlayerLeave{Player: 0})
	is.NoErr(res.Err)
	is.Equal(res.Events, []session.Event{
		session.PlayerLeft{Player: 0},
		session.LocalIDChanged{Old: 2, New: 1},
	})
	id, _ := m.LocalID()
	is.Equal(id, protocol.PlayerID(1))

	// a leave above us does not move us
	res = m.Handle(&protocol.ServerPlayerLeave{Player: 2})
	is.Equal(res.Events, []session.Event{session.PlayerLeft{Player: 2}})
	is.Equal(m.PlayerCount(), 2)

	// the local player cannot be removed by a leave
	res = m.Handle(&protocol.ServerPlayerLeave{Player: 1})
	is.True(errors.Is(res.Err, session.ErrUnknownPlayer))
}

func TestUnknownPlayer(t *testing.T) {
	is := is.New(t)

	m := inGame(t, 1)
	res := m.Handle(&protocol.ServerChat{Player: 5, Text: "who"})
	is.True(errors.Is(res.Err, session.ErrUnknownPlayer))
	is.Equal(disconnectEvents(res.Events)[0].Reason, session.ReasonProtocolState)
}

func TestInGameRouting(t *testing.T) {
	tests := []struct {
		name string
		msg  protocol.ServerMessage
		want session.Event
	}{
		{"team", &protocol.ServerPlayerChangeTeam{Player: 0, Team: protocol.TeamBlue}, session.TeamChanged{Player: 0, Team: protocol.TeamBlue}},
		{"class", &protocol.ServerPlayerChangeClass{Player: 1, Class: protocol.ClassSniper}, session.ClassChanged{Player: 1, Class: protocol.ClassSniper}},
		{"name", &protocol.ServerPlayerChangeName{Player: 0, Name: "bob"}, session.NameChanged{Player: 0, Name: "bob"}},
		{"spawn", &protocol.ServerPlayerSpawn{Player: 1, SpawnIndex: 3, SpawnGroup: 1}, session.PlayerSpawned{Player: 1, SpawnIndex: 3, SpawnGroup: 1}},
		{"grab intel", &protocol.ServerGrabIntel{Player: 0}, session.IntelEvent{Action: session.IntelGrabbed, Player: 0}},
		{"score intel", &protocol.ServerScoreIntel{Player: 1}, session.IntelEvent{Action: session.IntelScored, Player: 1}},
		{"drop intel", &protocol.ServerDropIntel{Player: 0}, session.IntelEvent{Action: session.IntelDropped, Player: 0}},
		{"return intel", &protocol.ServerReturnIntel{Team: protocol.TeamRed}, session.IntelEvent{Action: session.IntelReturned, Player: protocol.NoPlayer, Team: protocol.TeamRed}},
		{"caps", &protocol.ServerCapsUpdate{RedCaps: 2, BlueCaps: 1, CapLimit: 3}, session.CapsChanged{RedCaps: 2, BlueCaps: 1, CapLimit: 3}},
		{"chat", &protocol.ServerChat{Player: 1, Text: "gg"}, session.Text{Player: 1, Text: "gg"}},
		{"system message", &protocol.ServerMessageString{Text: "hi"}, session.Text{Player: protocol.NoPlayer, Text: "hi"}},
		{
			"weapon fire",
			&protocol.ServerWeaponFire{Player: 0, X: 10, Y: 20, Direction: 90, Speed: 12.5, Seed: 7},
			session.WeaponFired{Player: 0, X: 10, Y: 20, Direction: 90, Speed: 12.5, Seed: 7},
		},
		{"uber charged", &protocol.ServerUberCharged{Player: 1}, session.UberEvent{Player: 1, Charged: true}},
		{"uber", &protocol.ServerUber{Player: 1}, session.UberEvent{Player: 1}},
		{"omnom", &protocol.ServerOmnomnomnom{Player: 0}, session.Omnom{Player: 0}},
		{"zoom", &protocol.ServerToggleZoom{Player: 1}, session.ZoomToggled{Player: 1}},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			is := is.New(t)

			m := inGame(t, 1)
			res := m.Handle(tt.msg)
			is.NoErr(res.Err)
			is.Equal(res.Outbound, nil)
			is.Equal(res.Events, []session.Event{tt.want})
			is.Equal(m.State(), session.StateInGame)
		})
	}
}

func TestInGameUnknownPlayers(t *testing.T) {
	// two players are known, 2 is one past the roster
	tests := []protocol.ServerMessage{
		&protocol.ServerPlayerLeave{Player: 2},
		&protocol.ServerPlayerChangeTeam{Player: 2, Team: protocol.TeamRed},
		&protocol.ServerPlayerChangeClass{Player: 2, Class: protocol.ClassScout},
		&protocol.ServerPlayerChangeName{Player: 2, Name: "ghost"},
		&protocol.ServerPlayerSpawn{Player: 2},
		&protocol.ServerPlayerDeath{Victim: 2, Killer: protocol.NoPlayer, Assistant: protocol.NoPlayer},
		&protocol.ServerPlayerDeath{Victim: 0, Killer: 2, Assistant: protocol.NoPlayer},
		&protocol.ServerPlayerDeath{Victim: 0, Killer: 1, Assistant: 2},
		&protocol.ServerGrabIntel{Player: 2},
		&protocol.ServerScoreIntel{Player: 2},
		&protocol.ServerDropIntel{Player: 2},
		&protocol.ServerChat{Player: 2},
		&protocol.ServerWeaponFire{Player: 2},
		&protocol.ServerUberCharged{Player: 2},
		&protocol.ServerUber{Player: 2},
		&protocol.ServerOmnomnomnom{Player: 2},
		&protocol.ServerToggleZoom{Player: 2},
		&protocol.ServerFullUpdate{
			Players:   make([]protocol.FullPlayer, 2),
			RedIntel:  protocol.Intel{State: protocol.IntelCarried, Carrier: 2},
			BlueIntel: protocol.Intel{Carrier: protocol.NoPlayer},
		},
	}

	for _, msg := range tests {
		msg := msg
		t.Run(msg.Kind().String(), func(t *testing.T) {
			is := is.New(t)

			m := inGame(t, 1)
			res := m.Handle(msg)
			is.True(errors.Is(res.Err, session.ErrUnknownPlayer))

			var stateErr *session.ProtocolStateError
			is.True(errors.As(res.Err, &stateErr))
			is.Equal(stateErr.Kind, msg.Kind())

			ds := disconnectEvents(res.Events)
			is.Equal(len(ds), 1)
			is.Equal(ds[0].Reason, session.ReasonProtocolState)
			is.Equal(m.State(), session.StateDisconnected)
		})
	}
}

func TestPlayerDeathOptionalPlayers(t *testing.T) {
	is := is.New(t)

	m := inGame(t, 1)
	death := &protocol.ServerPlayerDeath{Victim: 0, Killer: protocol.NoPlayer, Assistant: protocol.NoPlayer, Cause: protocol.DamageFall}
	res := m.Handle(death)
	is.NoErr(res.Err)
	is.Equal(res.Events, []session.Event{session.PlayerDied{
		Victim:    0,
		Killer:    protocol.NoPlayer,
		Assistant: protocol.NoPlayer,
		Cause:     protocol.DamageFall,
	}})
}

func TestMapNames(t *testing.T) {
	t.Run("unsafe hello", func(t *testing.T) {
		is := is.New(t)
		m, _ := connected(t, session.Identity{})
		res := m.Handle(&protocol.ServerHello{MapName: "../../etc/passwd"})
		is.True(errors.Is(res.Err, protocol.ErrUnsafeMapName))
		is.Equal(len(res.Outbound), 0)
	})

	t.Run("unsafe change", func(t *testing.T) {
		is := is.New(t)
		m := inGame(t, 0)
		res := m.Handle(&protocol.ServerChangeMap{MapName: ".."})
		is.True(errors.Is(res.Err, protocol.ErrUnsafeMapName))
		is.Equal(m.State(), session.StateDisconnected)
	})

	t.Run("change", func(t *testing.T) {
		is := is.New(t)
		m := inGame(t, 0)
		res := m.Handle(&protocol.ServerChangeMap{MapName: "cp_dirtbowl", MapDigest: [16]byte{7}})
		is.NoErr(res.Err)
		is.Equal(res.Events, []session.Event{session.MapChanged{MapName: "cp_dirtbowl", MapDigest: [16]byte{7}}})
		is.Equal(m.MapName(), "cp_dirtbowl")
	})
}

func TestRosterUpdates(t *testing.T) {
	is := is.New(t)

	m := inGame(t, 1)

	res := m.Handle(&protocol.ServerQuickUpdate{Players: make([]protocol.QuickPlayer, 2)})
	is.NoErr(res.Err)

	full := &protocol.ServerFullUpdate{
		Players: []protocol.FullPlayer{
			{Dominations: []uint8{0, 0}, Nemesis: []bool{false, false}},
			{Dominations: []uint8{0, 0}, Nemesis: []bool{false, false}},
			{Dominations: []uint8{0, 0}, Nemesis: []bool{false, false}},
		},
		RedIntel:  protocol.Intel{State: protocol.IntelCarried, Carrier: 2},
		BlueIntel: protocol.Intel{Carrier: protocol.NoPlayer},
	}
	res = m.Handle(full)
	is.NoErr(res.Err)
	is.Equal(res.Events, []session.Event{session.FullSnapshot{Update: full}})
	is.Equal(m.PlayerCount(), 3)

	// quick updates must agree with the roster
	res = m.Handle(&protocol.ServerQuickUpdate{Players: make([]protocol.QuickPlayer, 2)})
	is.True(errors.Is(res.Err, protocol.ErrShape))
}

func TestKick(t *testing.T) {
	is := is.New(t)

	m := inGame(t, 0)
	res := m.Handle(&protocol.ServerKick{Reason: protocol.KickBadName})

	ds := disconnectEvents(res.Events)
	is.Equal(len(ds), 1)
	is.Equal(ds[0].Reason, session.ReasonKicked)

	var rejection *session.Rejection
	is.True(errors.As(res.Err, &rejection))
	is.Equal(rejection.Kick, protocol.KickBadName)
}

func TestClosedClassification(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		reason session.DisconnectReason
	}{
		{"local", nil, session.ReasonLocal},
		{"framing", &protocol.FramingError{Err: errors.New("short")}, session.ReasonFraming},
		{"decode", errors.Wrap(&protocol.DecodeError{Kind: protocol.KindChat, Err: protocol.ErrTrailingBytes}, "recv"), session.ReasonDecode},
		{"transport", errors.New("connection reset"), session.ReasonTransport},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			is := is.New(t)

			m := inGame(t, 0)
			res := m.Closed(tc.err)
			is.Equal(res.Events, []session.Event{session.Disconnected{Reason: tc.reason, Err: tc.err}})

			// only once
			is.Equal(len(m.Closed(tc.err).Events), 0)
			is.Equal(len(m.Disconnect().Events), 0)
		})
	}
}

func TestConnectLifecycle(t *testing.T) {
	is := is.New(t)

	m := session.New(session.Identity{})
	is.NoErr(m.Connect())
	is.True(errors.Is(m.Connect(), session.ErrAlreadyRunning))

	res := m.ConnectFailed(errors.New("refused"))
	is.Equal(m.State(), session.StateDisconnected)
	ds := disconnectEvents(res.Events)
	is.Equal(len(ds), 1)
	is.Equal(ds[0].Reason, session.ReasonConnectFailed)

	// a second attempt starts from scratch
	is.NoErr(m.Connect())
	res = m.Connected()
	is.Equal(len(res.Outbound), 1)

	res = m.Disconnect()
	is.Equal(res.Events, []session.Event{session.Disconnected{Reason: session.ReasonLocal}})
	is.NoErr(res.Err)
}
