package tailscale

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eliteGoblin/focusd/tsmon/internal/domain"
)

const runningPayload = `{
  "BackendState": "Running",
  "Self": {"ID": "self1", "HostName": "laptop"},
  "CurrentTailnet": {"Name": "example.ts.net", "MagicDNSSuffix": "example.ts.net"},
  "ExitNodeStatus": {"ID": "abc", "Online": true},
  "Peer": {
    "nodekey:1": {"ID": "xyz", "HostName": "printer"},
    "nodekey:2": {"ID": "abc", "HostName": "node1"}
  }
}`

// TestParseStatus_CoreFields verifies the consumed fields are read.
func TestParseStatus_CoreFields(t *testing.T) {
	st, err := ParseStatus([]byte(runningPayload))
	require.NoError(t, err)

	assert.True(t, st.Connected())
	assert.Equal(t, "laptop", st.Hostname())
	assert.Equal(t, "example.ts.net", st.TailnetName())
	assert.Equal(t, "abc", st.ExitNodeID())
	assert.Len(t, st.Peers, 2)
}

// TestParseStatus_MissingObjects verifies absent entries read as empty.
func TestParseStatus_MissingObjects(t *testing.T) {
	st, err := ParseStatus([]byte(`{"BackendState":"NeedsLogin"}`))
	require.NoError(t, err)

	assert.False(t, st.Connected())
	assert.Empty(t, st.Hostname())
	assert.Empty(t, st.TailnetName())
	assert.Empty(t, st.ExitNodeID())
	assert.Nil(t, st.Peers)

	_, ok := st.ResolveExitNode()
	assert.False(t, ok)
}

// TestParseStatus_BackendStateIsCaseSensitive verifies only "Running" connects.
func TestParseStatus_BackendStateIsCaseSensitive(t *testing.T) {
	for _, state := range []string{"running", "Stopped", "NeedsLogin", "Starting", ""} {
		st, err := ParseStatus([]byte(`{"BackendState":"` + state + `"}`))
		require.NoError(t, err)
		assert.False(t, st.Connected(), "state=%q", state)
	}
}

// TestParseStatus_Malformed verifies payloads that are not status objects fail.
func TestParseStatus_Malformed(t *testing.T) {
	inputs := map[string]string{
		"truncated":        `{"BackendState": "Run`,
		"text":             `tailscaled is not running`,
		"array":            `[1, 2, 3]`,
		"string":           `"Running"`,
		"null":             `null`,
		"wrong state type": `{"BackendState": 7}`,
		"wrong self type":  `{"BackendState": "Running", "Self": "laptop"}`,
	}

	for name, in := range inputs {
		t.Run(name, func(t *testing.T) {
			_, err := ParseStatus([]byte(in))
			assert.Error(t, err)
		})
	}
}

// TestParseStatus_NullIsNotObject verifies the sentinel for a JSON null payload.
func TestParseStatus_NullIsNotObject(t *testing.T) {
	_, err := ParseStatus([]byte(`null`))
	assert.True(t, errors.Is(err, ErrNotObject))
}

// TestResolveExitNode_Matched verifies lookup under both peer keys.
func TestResolveExitNode_Matched(t *testing.T) {
	for _, key := range PeerKeys {
		t.Run(key, func(t *testing.T) {
			payload := `{"BackendState":"Running","ExitNodeStatus":{"ID":"abc"},"` +
				key + `":{"k":{"ID":"abc","HostName":"node1"}}}`
			st, err := ParseStatus([]byte(payload))
			require.NoError(t, err)

			host, ok := st.ResolveExitNode()
			assert.True(t, ok)
			assert.Equal(t, "node1", host)
		})
	}
}

// TestResolveExitNode_Unmatched verifies the raw ID is kept when no peer matches.
func TestResolveExitNode_Unmatched(t *testing.T) {
	payload := `{"BackendState":"Running","ExitNodeStatus":{"ID":"abc"},"Peer":{"k":{"ID":"other","HostName":"node2"}}}`
	st, err := ParseStatus([]byte(payload))
	require.NoError(t, err)

	host, ok := st.ResolveExitNode()
	assert.True(t, ok)
	assert.Equal(t, "abc", host)
}

// TestResolveExitNode_MatchedWithoutHostName falls back to the peer ID.
func TestResolveExitNode_MatchedWithoutHostName(t *testing.T) {
	payload := `{"BackendState":"Running","ExitNodeStatus":{"ID":"abc"},"Peer":{"k":{"ID":"abc"}}}`
	st, err := ParseStatus([]byte(payload))
	require.NoError(t, err)

	host, _ := st.ResolveExitNode()
	assert.Equal(t, "abc", host)
}

// TestParseStatus_PeerKeyFallback verifies an empty first key defers to the second.
func TestParseStatus_PeerKeyFallback(t *testing.T) {
	payload := `{"BackendState":"Running","ExitNodeStatus":{"ID":"abc"},"Peer":{},"Peers":{"k":{"ID":"abc","HostName":"legacy"}}}`
	st, err := ParseStatus([]byte(payload))
	require.NoError(t, err)

	host, _ := st.ResolveExitNode()
	assert.Equal(t, "legacy", host)
}

// TestParseStatus_LenientPeers verifies odd peer shapes are skipped, not fatal.
func TestParseStatus_LenientPeers(t *testing.T) {
	payload := `{"BackendState":"Running","ExitNodeStatus":{"ID":"abc"},
		"Peer":"not-a-map",
		"Peers":{"bad":42,"good":{"ID":"abc","HostName":"node1"}}}`
	st, err := ParseStatus([]byte(payload))
	require.NoError(t, err)

	assert.Len(t, st.Peers, 1)
	host, _ := st.ResolveExitNode()
	assert.Equal(t, "node1", host)
}

// TestCommands verifies the fixed command lines.
func TestCommands(t *testing.T) {
	assert.Equal(t, []string{"tailscale", "status", "--json", "--self"}, StatusCommand())

	up, err := CommandFor(domain.ActionConnect)
	require.NoError(t, err)
	assert.Equal(t, []string{"tailscale", "up"}, up)

	down, err := CommandFor(domain.ActionDisconnect)
	require.NoError(t, err)
	assert.Equal(t, []string{"tailscale", "down"}, down)

	_, err = CommandFor(domain.Action("reboot"))
	assert.ErrorIs(t, err, ErrUnknownAction)
}

// TestCommandFor_ReturnsCopy verifies callers cannot mutate the table.
func TestCommandFor_ReturnsCopy(t *testing.T) {
	argv, err := CommandFor(domain.ActionConnect)
	require.NoError(t, err)
	argv[1] = "logout"

	again, err := CommandFor(domain.ActionConnect)
	require.NoError(t, err)
	assert.Equal(t, "up", again[1])
}
