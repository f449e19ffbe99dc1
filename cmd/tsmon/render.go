package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
	"golang.org/x/term"
	"gopkg.in/yaml.v3"

	"github.com/eliteGoblin/focusd/tsmon/internal/config"
	"github.com/eliteGoblin/focusd/tsmon/internal/domain"
)

const unknown = "(unknown)"

// renderer formats snapshots and action results for a terminal.
type renderer struct {
	label lipgloss.Style
	value lipgloss.Style
	good  lipgloss.Style
	bad   lipgloss.Style
	hint  lipgloss.Style
}

func newRenderer(w io.Writer, colorMode string) *renderer {
	r := lipgloss.NewRenderer(w)
	r.SetColorProfile(colorProfile(w, colorMode))

	return &renderer{
		label: r.NewStyle().Foreground(lipgloss.AdaptiveColor{Light: "242", Dark: "240"}).Width(11),
		value: r.NewStyle().Foreground(lipgloss.AdaptiveColor{Light: "0", Dark: "15"}),
		good:  r.NewStyle().Bold(true).Foreground(lipgloss.Color("42")),
		bad:   r.NewStyle().Bold(true).Foreground(lipgloss.Color("196")),
		hint:  r.NewStyle().Foreground(lipgloss.AdaptiveColor{Light: "242", Dark: "240"}),
	}
}

func colorProfile(w io.Writer, mode string) termenv.Profile {
	switch mode {
	case config.ColorAlways:
		return termenv.ANSI256
	case config.ColorNever:
		return termenv.Ascii
	}
	if f, ok := w.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		return termenv.ANSI256
	}
	return termenv.Ascii
}

func orUnknown(s string) string {
	if s == "" {
		return unknown
	}
	return s
}

func (r *renderer) row(label, value string) string {
	return r.label.Render(label) + value
}

// Snapshot renders the status block. Empty fields show as (unknown).
func (r *renderer) Snapshot(s domain.StatusSnapshot) string {
	state := r.bad.Render("Disconnected")
	if s.Connected {
		state = r.good.Render("Connected")
	}

	lines := []string{
		r.row("Status", state),
		r.row("Hostname", r.value.Render(orUnknown(s.Hostname))),
		r.row("Tailnet", r.value.Render(orUnknown(s.TailnetName))),
		r.row("Exit node", r.value.Render(orUnknown(s.ExitNodeHost))),
	}
	if !s.ObservedAt.IsZero() {
		lines = append(lines, r.row("Updated", r.hint.Render(s.ObservedAt.Format("15:04:05"))))
	}
	return strings.Join(lines, "\n")
}

// Detail renders the raw diagnostic text in a dim block.
func (r *renderer) Detail(s domain.StatusSnapshot) string {
	return r.hint.Render(s.RawDetail)
}

// ActionResult renders one connect/disconnect outcome.
func (r *renderer) ActionResult(res domain.ActionResult) string {
	verb := "connect"
	if res.Action == domain.ActionDisconnect {
		verb = "disconnect"
	}
	if res.Success {
		return fmt.Sprintf("%s %s", r.good.Render(verb+" ok:"), res.Detail)
	}
	return fmt.Sprintf("%s %s", r.bad.Render(verb+" failed:"), res.Detail)
}

func (r *renderer) Hint(text string) string {
	return r.hint.Render(text)
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func writeYAML(w io.Writer, v any) error {
	enc := yaml.NewEncoder(w)
	defer enc.Close()
	enc.SetIndent(2)
	return enc.Encode(v)
}
