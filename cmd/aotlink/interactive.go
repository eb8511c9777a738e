package main

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/wasmkit/aotlink/loader"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#7D56F4")).
			Padding(0, 1)

	moduleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#98FB98"))

	selectedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#7D56F4"))

	resultStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#90EE90"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF6B6B"))

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#666666"))
)

type modelState int

const (
	stateSelectModule modelState = iota
	stateInputExport
	stateShowResult
)

type probeModel struct {
	ld        *loader.Loader
	modules   []string
	selected  int
	input     textinput.Model
	result    string
	resultErr bool
	state     modelState
}

func newProbeModel(ld *loader.Loader, modules []string) *probeModel {
	ti := textinput.New()
	ti.Placeholder = "export name"
	ti.Prompt = "export: "
	ti.Width = 40
	return &probeModel{
		ld:      ld,
		modules: modules,
		input:   ti,
		state:   stateSelectModule,
	}
}

func (m *probeModel) Init() tea.Cmd {
	return nil
}

func (m *probeModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c":
			return m, tea.Quit

		case "q":
			if m.state != stateInputExport {
				return m, tea.Quit
			}

		case "up", "k":
			if m.state == stateSelectModule && m.selected > 0 {
				m.selected--
			}

		case "down", "j":
			if m.state == stateSelectModule && m.selected < len(m.modules)-1 {
				m.selected++
			}

		case "enter":
			switch m.state {
			case stateSelectModule:
				if len(m.modules) > 0 {
					m.input.SetValue("")
					m.input.Focus()
					m.state = stateInputExport
				}

			case stateInputExport:
				m.probe()
				m.state = stateShowResult

			case stateShowResult:
				m.state = stateSelectModule
				m.result = ""
			}

		case "esc":
			if m.state != stateSelectModule {
				m.state = stateSelectModule
				m.result = ""
			}
		}
	}

	if m.state == stateInputExport {
		var cmd tea.Cmd
		m.input, cmd = m.input.Update(msg)
		return m, cmd
	}

	return m, nil
}

func (m *probeModel) probe() {
	module := m.modules[m.selected]
	export := m.input.Value()

	handle := m.ld.Link().ProbeSatelliteExport(module, export)
	if handle == 0 {
		m.result = fmt.Sprintf("%s#%s not found", module, export)
		m.resultErr = true
		return
	}
	m.result = fmt.Sprintf("%s#%s -> handle %d", module, export, handle)
	m.resultErr = false
}

func (m *probeModel) View() string {
	var b strings.Builder

	b.WriteString(titleStyle.Render("AOT Link Probe"))
	b.WriteString("\n\n")

	switch m.state {
	case stateSelectModule:
		if len(m.modules) == 0 {
			b.WriteString("No satellites linked.\n\n")
			b.WriteString(helpStyle.Render("q quit"))
			break
		}
		b.WriteString("Select a satellite to probe:\n\n")
		for i, name := range m.modules {
			cursor := "  "
			if i == m.selected {
				cursor = "> "
				b.WriteString(selectedStyle.Render(cursor + name))
			} else {
				b.WriteString(cursor + moduleStyle.Render(name))
			}
			b.WriteString("\n")
		}
		b.WriteString("\n")
		b.WriteString(helpStyle.Render("↑/↓ select • enter probe • q quit"))

	case stateInputExport:
		b.WriteString(fmt.Sprintf("Probing %s\n\n", moduleStyle.Render(m.modules[m.selected])))
		b.WriteString(m.input.View())
		b.WriteString("\n\n")
		b.WriteString(helpStyle.Render("enter probe • esc back"))

	case stateShowResult:
		if m.resultErr {
			b.WriteString(errorStyle.Render(m.result))
		} else {
			b.WriteString(resultStyle.Render(m.result))
		}
		b.WriteString("\n\n")
		b.WriteString(helpStyle.Render("enter continue • q quit"))
	}

	return b.String()
}

func runInteractive(ld *loader.Loader, modules []string) error {
	p := tea.NewProgram(newProbeModel(ld, modules), tea.WithAltScreen())
	_, err := p.Run()
	return err
}
