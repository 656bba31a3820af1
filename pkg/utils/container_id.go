package utils

import (
	"strings"

	"github.com/google/uuid"
)

// GenerateContainerID builds a container id of the form
// {operation}-{ship}-{hex8}, e.g. "scout-tour-PROBE-3-a3f8e2b1". The agent
// prefix is stripped from the ship symbol so ids stay short; the uuid suffix
// keeps them unique across relaunches of the same operation.
func GenerateContainerID(operation, shipSymbol string) string {
	return operation + "-" + stripAgentPrefix(shipSymbol) + "-" + shortUUID()
}

// stripAgentPrefix keeps the last two hyphen-separated segments of a ship
// symbol: "MY-AGENT-MINER-2" -> "MINER-2". Symbols with two or fewer
// segments pass through unchanged.
func stripAgentPrefix(shipSymbol string) string {
	parts := strings.Split(shipSymbol, "-")
	if len(parts) <= 2 {
		return shipSymbol
	}
	return strings.Join(parts[len(parts)-2:], "-")
}

func shortUUID() string {
	return strings.ReplaceAll(uuid.New().String(), "-", "")[:8]
}
