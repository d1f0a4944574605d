package main

import (
	"strings"

	"github.com/pkg/errors"
)

type commandKind uint8

const (
	commandSend commandKind = iota
	commandEnable
	commandDisable
	commandPeers
)

// command is one stdin line:
//
//	<peer> <message>
//	!enable <peer>
//	!disable <peer>
//	!peers
type command struct {
	kind    commandKind
	peer    string
	message string
}

var errEmptyLine = errors.New("empty line")

func parseCommand(line string) (command, error) {
	line = strings.TrimSpace(line)
	if line == "" {
		return command{}, errEmptyLine
	}

	head, rest, _ := strings.Cut(line, " ")
	rest = strings.TrimSpace(rest)

	switch head {
	case "!peers":
		return command{kind: commandPeers}, nil
	case "!enable", "!disable":
		if rest == "" || strings.Contains(rest, " ") {
			return command{}, errors.Errorf("usage: %s <peer>", head)
		}
		kind := commandEnable
		if head == "!disable" {
			kind = commandDisable
		}
		return command{kind: kind, peer: rest}, nil
	}

	if strings.HasPrefix(head, "!") {
		return command{}, errors.Errorf("unknown command %q", head)
	}
	if rest == "" {
		return command{}, errors.New("usage: <peer> <message>")
	}

	return command{kind: commandSend, peer: head, message: rest}, nil
}
