// tui.go - full-screen debugger front-end for interactive terminals.
//
// Grounded on hejops-gone/cpu/debugger.go's bubbletea model: a single
// model struct, Update dispatching on tea.KeyMsg, View composing panes
// with lipgloss.JoinHorizontal/JoinVertical. Generalized from that
// model's single-key stepping to a text command line, since this
// debugger's surface (bp/wp/sc/...) needs arguments a bare keypress
// can't carry.

package main

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/ie286emu/core/internal/debugger"
)

var (
	paneStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			Padding(0, 1)
	promptStyle = lipgloss.NewStyle().Bold(true)
)

type tuiModel struct {
	m       *Machine
	input   string
	quitted bool
}

func newTUIModel(m *Machine) tuiModel {
	return tuiModel{m: m}
}

func (t tuiModel) Init() tea.Cmd {
	t.m.Debug.StartBreakpointListener()
	t.m.Debug.Go(t.m.Runner.Run)
	return nil
}

// Update dispatches on msg.String(), the same key-name-as-string
// matching hejops-gone/cpu/debugger.go's Update uses for "q"/" "/"j",
// generalized here to build up a command line rather than act on a
// single key.
func (t tuiModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch s := msg.String(); s {
		case "ctrl+c":
			t.quitted = true
			t.m.Debug.StopBreakpointListener()
			return t, tea.Quit
		case "enter":
			line := t.input
			t.input = ""
			if line == "q" || line == "quit" || line == "exit" {
				t.quitted = true
				t.m.Debug.StopBreakpointListener()
				return t, tea.Quit
			}
			t.m.CP.Execute(debugger.ParseCommand(line))
		case "backspace":
			if len(t.input) > 0 {
				t.input = t.input[:len(t.input)-1]
			}
		case "space":
			t.input += " "
		default:
			if len(s) == 1 {
				t.input += s
			}
		}
	}
	return t, nil
}

func (t tuiModel) registerPane() string {
	var b strings.Builder
	for _, r := range t.m.CPU.Registers() {
		fmt.Fprintf(&b, "%-5s $%0*X\n", r.Name, r.BitWidth/4, r.Value)
	}
	return paneStyle.Render(strings.TrimRight(b.String(), "\n"))
}

func (t tuiModel) disasmPane() string {
	lines := t.m.CPU.Disassemble(t.m.CPU.PC(), 10)
	var b strings.Builder
	for _, l := range lines {
		marker := "  "
		if l.IsPC {
			marker = "->"
		}
		fmt.Fprintf(&b, "%s $%04X  %-10s %s\n", marker, l.Address, l.HexBytes, l.Mnemonic)
	}
	return paneStyle.Render(strings.TrimRight(b.String(), "\n"))
}

func (t tuiModel) outputPane() string {
	lines := t.m.Debug.Output()
	start := 0
	if len(lines) > 16 {
		start = len(lines) - 16
	}
	var sb strings.Builder
	for _, l := range lines[start:] {
		sb.WriteString(l.Text)
		sb.WriteByte('\n')
	}
	return paneStyle.Width(60).Render(strings.TrimRight(sb.String(), "\n"))
}

func (t tuiModel) View() string {
	if t.quitted {
		return ""
	}
	top := lipgloss.JoinHorizontal(lipgloss.Top, t.registerPane(), t.disasmPane())
	prompt := promptStyle.Render("(286) ") + t.input
	return lipgloss.JoinVertical(lipgloss.Left, top, t.outputPane(), prompt)
}
