// Package fixtures provides test helpers for integration tests.
package fixtures

import (
	"fmt"
	"os"
	"path/filepath"
)

// RunningPayload is what the fake prints for `status` while up.
const RunningPayload = `{
  "Version": "1.62.0",
  "BackendState": "Running",
  "Self": {"ID": "n1", "HostName": "integration-host", "Online": true},
  "CurrentTailnet": {"Name": "integration.ts.net", "MagicDNSSuffix": "integration.ts.net"},
  "ExitNodeStatus": {"ID": "n2", "Online": true},
  "Peer": {
    "nodekey:aa": {"ID": "n2", "HostName": "exit-fra", "ExitNode": true},
    "nodekey:bb": {"ID": "n3", "HostName": "nas"}
  }
}`

// StoppedPayload is what the fake prints for `status` while down.
const StoppedPayload = `{
  "Version": "1.62.0",
  "BackendState": "Stopped",
  "Self": {"ID": "n1", "HostName": "integration-host"},
  "CurrentTailnet": {"Name": "integration.ts.net"}
}`

const script = `#!/bin/sh
dir=$(dirname "$0")
case "$1" in
status)
	[ -f "$dir/hang" ] && sleep 60
	if [ -f "$dir/fail" ]; then
		echo "failed to connect to local tailscaled; it doesn't appear to be running" >&2
		exit 1
	fi
	cat "$dir/$(cat "$dir/state").json"
	;;
up)
	[ -f "$dir/hang" ] && sleep 60
	echo running > "$dir/state"
	;;
down)
	echo stopped > "$dir/state"
	;;
*)
	echo "unknown subcommand: $1" >&2
	exit 2
	;;
esac
`

// FakeTailscale is a shell-script stand-in for the tailscale CLI.
// `up` and `down` flip a state file that `status` reads back.
type FakeTailscale struct {
	Dir string
}

// NewFakeTailscale writes the script and payloads into dir, initially stopped.
func NewFakeTailscale(dir string) (*FakeTailscale, error) {
	f := &FakeTailscale{Dir: dir}

	files := map[string]string{
		"running.json": RunningPayload,
		"stopped.json": StoppedPayload,
		"state":        "stopped\n",
	}
	for name, body := range files {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(body), 0644); err != nil {
			return nil, err
		}
	}
	if err := os.WriteFile(f.Bin(), []byte(script), 0755); err != nil {
		return nil, err
	}
	return f, nil
}

// Bin returns the path of the fake executable.
func (f *FakeTailscale) Bin() string {
	return filepath.Join(f.Dir, "tailscale")
}

// PathEnv returns a PATH value that resolves tailscale to the fake first.
func (f *FakeTailscale) PathEnv() string {
	return fmt.Sprintf("%s%c%s", f.Dir, os.PathListSeparator, os.Getenv("PATH"))
}

// SetRunning sets the backend state the next status query reports.
func (f *FakeTailscale) SetRunning(running bool) error {
	state := "stopped\n"
	if running {
		state = "running\n"
	}
	return os.WriteFile(filepath.Join(f.Dir, "state"), []byte(state), 0644)
}

// IsRunning reports the state last written by up, down or SetRunning.
func (f *FakeTailscale) IsRunning() bool {
	raw, err := os.ReadFile(filepath.Join(f.Dir, "state"))
	return err == nil && string(raw) == "running\n"
}

// SetHanging makes status and up sleep far past any timeout.
func (f *FakeTailscale) SetHanging(hang bool) error {
	return f.toggleMarker("hang", hang)
}

// SetFailing makes status exit non-zero with a daemon error.
func (f *FakeTailscale) SetFailing(fail bool) error {
	return f.toggleMarker("fail", fail)
}

func (f *FakeTailscale) toggleMarker(name string, on bool) error {
	path := filepath.Join(f.Dir, name)
	if on {
		return os.WriteFile(path, nil, 0644)
	}
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}
