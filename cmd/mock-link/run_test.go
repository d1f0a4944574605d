package main

import (
	"bytes"
	"context"
	"net"
	"strings"
	"testing"
	"time"

	"mock-link/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRun(t *testing.T) {
	peer, err := net.ListenUDP("udp4", &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1)})
	require.NoError(t, err)
	defer peer.Close()

	cfg := config.Default()
	cfg.Log.Level = "error"
	cfg.Peers = []config.PeerConfig{{Name: "b", Address: peer.LocalAddr().String()}}
	require.NoError(t, cfg.Validate())

	input := strings.Join([]string{
		"b Hey Josh!",
		"",
		"!peers",
		"!disable b",
		"b dropped",
		"nobody hello",
		"!enable b",
		"!peers",
	}, "\n")

	var out, errOut bytes.Buffer
	require.NoError(t, run(context.Background(), cfg, strings.NewReader(input), &out, &errOut))

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	require.Len(t, lines, 5, out.String())
	assert.Contains(t, lines[0], "listening on 127.0.0.1:")
	assert.Equal(t, "b enabled=true", lines[1])
	assert.Equal(t, "error: sending to b: link-layer interface has been disabled", lines[2])
	assert.Equal(t, `error: "nobody": unknown peer`, lines[3])
	assert.Equal(t, "b enabled=true", lines[4])
	assert.Empty(t, errOut.String())

	require.NoError(t, peer.SetReadDeadline(time.Now().Add(time.Second)))
	buf := make([]byte, 64)
	n, _, err := peer.ReadFromUDP(buf)
	require.NoError(t, err)
	assert.Equal(t, "Hey Josh!", string(buf[:n]))
}

func TestRunInvalidLogConfig(t *testing.T) {
	cfg := config.Default()
	cfg.Log.Format = "xml"

	err := run(context.Background(), cfg, strings.NewReader(""), &bytes.Buffer{}, &bytes.Buffer{})
	assert.Error(t, err)
}
