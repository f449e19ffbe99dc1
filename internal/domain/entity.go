// Package domain contains core business entities and interfaces.
// This is the innermost layer in Clean Architecture - no external dependencies.
package domain

import "time"

// NoExitNode is the ExitNodeHost sentinel meaning no exit node is configured.
const NoExitNode = "NO"

// NoOutput is the detail marker used when a command printed nothing at all.
const NoOutput = "(no output)"

// Action identifies a state-changing command issued on demand.
type Action string

const (
	ActionConnect    Action = "connect"
	ActionDisconnect Action = "disconnect"
)

// StatusSnapshot is one fully-populated status observation produced per poll tick.
// Unknown string fields are empty, never absent.
type StatusSnapshot struct {
	Connected    bool      `json:"connected" yaml:"connected"`
	Hostname     string    `json:"hostname" yaml:"hostname"`
	TailnetName  string    `json:"tailnet_name" yaml:"tailnet_name"`
	ExitNodeHost string    `json:"exit_node_host" yaml:"exit_node_host"`
	RawDetail    string    `json:"raw_detail" yaml:"raw_detail"` // Diagnostic text only, never parsed again
	ObservedAt   time.Time `json:"observed_at" yaml:"observed_at"`
}

// DisconnectedSnapshot returns the degraded snapshot used for every failure mode.
func DisconnectedSnapshot(detail string) StatusSnapshot {
	if detail == "" {
		detail = NoOutput
	}
	return StatusSnapshot{
		Connected:    false,
		ExitNodeHost: NoExitNode,
		RawDetail:    detail,
	}
}

// ActionResult is the outcome of one connect/disconnect invocation.
// It is reported once to the requester.
type ActionResult struct {
	Action     Action    `json:"action" yaml:"action"`
	Success    bool      `json:"success" yaml:"success"`
	Detail     string    `json:"detail" yaml:"detail"`
	FinishedAt time.Time `json:"finished_at" yaml:"finished_at"`
}

// ProcessResult captures a completed external command run.
// A non-zero ExitCode is still a completed run; callers decide what success means.
type ProcessResult struct {
	Argv     []string
	PID      int
	ExitCode int
	Stdout   string // Trimmed of surrounding whitespace
	Stderr   string // Trimmed of surrounding whitespace
	Duration time.Duration
}
