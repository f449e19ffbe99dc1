package tailscale

import (
	"encoding/json"
	"errors"
	"fmt"
)

// BackendRunning is the only BackendState that counts as connected.
const BackendRunning = "Running"

// PeerKeys lists the field names the peer collection has been published under,
// in lookup order. The first key holding a non-empty object wins.
var PeerKeys = []string{"Peer", "Peers"}

// ErrNotObject is returned when the payload is not a JSON object.
var ErrNotObject = errors.New("status payload is not a JSON object")

// Self is the local node entry.
type Self struct {
	HostName string `json:"HostName"`
}

// Tailnet is the current tailnet entry.
type Tailnet struct {
	Name string `json:"Name"`
}

// ExitNodeStatus names the active exit node, if any.
type ExitNodeStatus struct {
	ID string `json:"ID"`
}

// Peer is one entry of the peer collection.
type Peer struct {
	ID       string `json:"ID"`
	HostName string `json:"HostName"`
}

// Status is the subset of `tailscale status --json` that tsmon consumes.
type Status struct {
	BackendState   string
	Self           *Self
	CurrentTailnet *Tailnet
	ExitNodeStatus *ExitNodeStatus

	// Peers is keyed by the opaque node key used in the payload.
	Peers map[string]Peer
}

// core holds the strictly typed fields. A wrong type here is a malformed payload.
type core struct {
	BackendState   string          `json:"BackendState"`
	Self           *Self           `json:"Self"`
	CurrentTailnet *Tailnet        `json:"CurrentTailnet"`
	ExitNodeStatus *ExitNodeStatus `json:"ExitNodeStatus"`
}

// ParseStatus decodes a status payload.
// Core fields must have the expected types; the peer collection is read leniently
// and entries that are not objects are skipped.
func ParseStatus(data []byte) (*Status, error) {
	var top map[string]json.RawMessage
	if err := json.Unmarshal(data, &top); err != nil {
		return nil, fmt.Errorf("decode status: %w", err)
	}
	if top == nil {
		return nil, ErrNotObject
	}

	var c core
	if err := json.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("decode status fields: %w", err)
	}

	return &Status{
		BackendState:   c.BackendState,
		Self:           c.Self,
		CurrentTailnet: c.CurrentTailnet,
		ExitNodeStatus: c.ExitNodeStatus,
		Peers:          peersFrom(top),
	}, nil
}

func peersFrom(top map[string]json.RawMessage) map[string]Peer {
	for _, key := range PeerKeys {
		raw, ok := top[key]
		if !ok {
			continue
		}

		var entries map[string]json.RawMessage
		if err := json.Unmarshal(raw, &entries); err != nil || len(entries) == 0 {
			continue
		}

		peers := make(map[string]Peer, len(entries))
		for name, entry := range entries {
			var p Peer
			if err := json.Unmarshal(entry, &p); err != nil {
				continue
			}
			peers[name] = p
		}
		return peers
	}
	return nil
}

// Connected reports whether the backend is running.
func (s *Status) Connected() bool {
	return s.BackendState == BackendRunning
}

// Hostname returns the self host name, or empty.
func (s *Status) Hostname() string {
	if s.Self == nil {
		return ""
	}
	return s.Self.HostName
}

// TailnetName returns the current tailnet name, or empty.
func (s *Status) TailnetName() string {
	if s.CurrentTailnet == nil {
		return ""
	}
	return s.CurrentTailnet.Name
}

// ExitNodeID returns the active exit node identifier, or empty when none is set.
func (s *Status) ExitNodeID() string {
	if s.ExitNodeStatus == nil {
		return ""
	}
	return s.ExitNodeStatus.ID
}

// ResolveExitNode returns the host name of the peer whose ID matches the active
// exit node. The bool is false when no exit node is set.
// A matched peer without a host name, or no match at all, yields the raw ID.
func (s *Status) ResolveExitNode() (string, bool) {
	id := s.ExitNodeID()
	if id == "" {
		return "", false
	}
	for _, p := range s.Peers {
		if p.ID != id {
			continue
		}
		if p.HostName != "" {
			return p.HostName, true
		}
		return id, true
	}
	return id, true
}
