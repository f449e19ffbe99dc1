// Package tailscale holds what tsmon knows about the tailscale CLI:
// the fixed command lines it runs and the status payload it parses.
package tailscale

import (
	"errors"
	"fmt"

	"github.com/eliteGoblin/focusd/tsmon/internal/domain"
)

// Binary is resolved through PATH. It is not configurable.
const Binary = "tailscale"

// ErrUnknownAction is returned for an action with no command line.
var ErrUnknownAction = errors.New("unknown action")

// StatusCommand returns the local-only structured status query.
func StatusCommand() []string {
	return []string{Binary, "status", "--json", "--self"}
}

// actionCommands maps each action to its two-token command line.
var actionCommands = map[domain.Action][]string{
	domain.ActionConnect:    {Binary, "up"},
	domain.ActionDisconnect: {Binary, "down"},
}

// CommandFor returns a fresh copy of the command line for action.
func CommandFor(action domain.Action) ([]string, error) {
	argv, ok := actionCommands[action]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownAction, action)
	}
	return append([]string(nil), argv...), nil
}

// Actions returns every action that has a command line, in a stable order.
func Actions() []domain.Action {
	return []domain.Action{domain.ActionConnect, domain.ActionDisconnect}
}
