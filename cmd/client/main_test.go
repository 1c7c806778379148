package main

import (
	"bytes"
	"strings"
	"testing"

	"github.com/blukai/gangnet/internal/gameclient"
	"github.com/blukai/gangnet/internal/protocol"
	"github.com/matryer/is"
	"github.com/phuslu/log"
)

func TestSendIdleInputLogsFailure(t *testing.T) {
	is := is.New(t)

	var buf bytes.Buffer
	logger := log.Logger{
		Level:  log.DebugLevel,
		Writer: &log.IOWriter{Writer: &buf},
	}

	c := gameclient.New(gameclient.Options{Address: "127.0.0.1:1"}, nil, nil)
	sendIdleInput(c, &logger)

	is.True(strings.Contains(buf.String(), "could not send input"))
	is.True(strings.Contains(buf.String(), gameclient.ErrNotInGame.Error()))
}

func TestParseTeamAndClass(t *testing.T) {
	is := is.New(t)

	team, err := parseTeam("blue")
	is.NoErr(err)
	is.Equal(team, protocol.TeamBlue)
	_, err = parseTeam("green")
	is.True(err != nil)

	class, err := parseClass("quote")
	is.NoErr(err)
	is.Equal(class, protocol.ClassQuote)
	_, err = parseClass("bard")
	is.True(err != nil)
}
