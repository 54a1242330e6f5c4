package main

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/wippyai/girepository/gi"
	"github.com/wippyai/girepository/typelib"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#7D56F4")).
			Padding(0, 1)

	funcStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#98FB98"))

	typeStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#87CEEB"))

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

// pageSize is the number of entries shown around the cursor.
const pageSize = 20

func newBrowseCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "browse NAMESPACE[-VERSION]",
		Short: "Browse a namespace interactively and call its functions",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if !term.IsTerminal(int(os.Stdin.Fd())) || !isTerminal(cmd.OutOrStdout()) {
				return fmt.Errorf("browse needs a terminal; use list or inspect instead")
			}
			ctx := cmd.Context()
			s, err := newSession(cmd)
			if err != nil {
				return err
			}
			defer s.close()
			// describe output is embedded in lipgloss views
			color.NoColor = true

			tl, err := s.require(ctx, args[0], gi.LoadFlagLazy)
			if err != nil {
				return err
			}
			var c *caller
			if s.cfg.Wasm != "" {
				if c, err = openCaller(ctx, s); err != nil {
					return err
				}
				defer c.close(ctx)
			}
			m := newBrowseModel(ctx, tl.Namespace()+"-"+tl.Version(), s.repo.Infos(tl.Namespace()), c)
			_, err = tea.NewProgram(m, tea.WithAltScreen()).Run()
			return err
		},
	}
}

type browseState int

const (
	stateSelectInfo browseState = iota
	stateInputArgs
	stateShowResult
)

type browseModel struct {
	ctx      context.Context
	err      error
	caller   *caller
	title    string
	result   string
	infos    []gi.Info
	params   []*gi.ArgInfo
	inputs   []textinput.Model
	selected int
	focusIdx int
	state    browseState
}

type callResultMsg struct {
	err    error
	result string
}

func newBrowseModel(ctx context.Context, title string, infos []gi.Info, c *caller) *browseModel {
	return &browseModel{
		ctx:    ctx,
		title:  title,
		infos:  infos,
		caller: c,
		state:  stateSelectInfo,
	}
}

func (m *browseModel) Init() tea.Cmd {
	return nil
}

func (m *browseModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c":
			return m, tea.Quit

		case "q":
			if m.state != stateInputArgs {
				return m, tea.Quit
			}

		case "up", "k":
			if m.state == stateSelectInfo && m.selected > 0 {
				m.selected--
			}

		case "down", "j":
			if m.state == stateSelectInfo && m.selected < len(m.infos)-1 {
				m.selected++
			}

		case "enter":
			switch m.state {
			case stateSelectInfo:
				return m, m.open()

			case stateInputArgs:
				return m, m.callFunction

			case stateShowResult:
				m.reset()
			}

		case "tab":
			if m.state == stateInputArgs && len(m.inputs) > 1 {
				m.inputs[m.focusIdx].Blur()
				m.focusIdx = (m.focusIdx + 1) % len(m.inputs)
				m.inputs[m.focusIdx].Focus()
			}

		case "esc":
			if m.state != stateSelectInfo {
				m.reset()
			}
		}

	case callResultMsg:
		m.result = msg.result
		m.err = msg.err
		m.state = stateShowResult
	}

	if m.state == stateInputArgs {
		var cmds []tea.Cmd
		for i := range m.inputs {
			var cmd tea.Cmd
			m.inputs[i], cmd = m.inputs[i].Update(msg)
			cmds = append(cmds, cmd)
		}
		return m, tea.Batch(cmds...)
	}

	return m, nil
}

func (m *browseModel) reset() {
	m.state = stateSelectInfo
	m.inputs = nil
	m.params = nil
	m.result = ""
	m.err = nil
}

// open shows the selected info, or prompts for arguments when it is a
// function and a library is loaded.
func (m *browseModel) open() tea.Cmd {
	if len(m.infos) == 0 {
		return nil
	}
	info := m.infos[m.selected]
	fn, ok := info.(*gi.FunctionInfo)
	if !ok || m.caller == nil {
		var b bytes.Buffer
		describe(&b, info)
		m.result = b.String()
		m.state = stateShowResult
		return nil
	}
	m.prepareInputs(fn)
	if len(m.inputs) == 0 {
		return m.callFunction
	}
	m.state = stateInputArgs
	return nil
}

func (m *browseModel) prepareInputs(fn *gi.FunctionInfo) {
	m.params = nil
	for _, arg := range fn.Args().All() {
		if arg.Direction() != typelib.DirectionOut {
			m.params = append(m.params, arg)
		}
	}
	m.inputs = make([]textinput.Model, len(m.params))
	for i, p := range m.params {
		ti := textinput.New()
		ti.Placeholder = typeString(p.Type())
		ti.Prompt = p.Name() + ": "
		ti.Width = 40
		if i == 0 {
			ti.Focus()
		}
		m.inputs[i] = ti
	}
	m.focusIdx = 0
}

func (m *browseModel) callFunction() tea.Msg {
	fn, ok := m.infos[m.selected].(*gi.FunctionInfo)
	if !ok || m.caller == nil {
		return callResultMsg{err: fmt.Errorf("nothing to call")}
	}
	args := make([]string, len(m.inputs))
	for i, input := range m.inputs {
		args[i] = input.Value()
	}
	res, err := m.caller.call(m.ctx, fn, args)
	if err != nil {
		return callResultMsg{err: err}
	}
	return callResultMsg{result: res.String()}
}

func (m *browseModel) View() string {
	var b strings.Builder

	b.WriteString(titleStyle.Render("gir"))
	b.WriteString(" ")
	b.WriteString(m.title)
	b.WriteString("\n\n")

	switch m.state {
	case stateSelectInfo:
		if len(m.infos) == 0 {
			b.WriteString("Namespace is empty.\n\n")
			b.WriteString(helpStyle.Render("q quit"))
			return b.String()
		}
		start := max(0, min(m.selected-pageSize/2, len(m.infos)-pageSize))
		end := min(len(m.infos), start+pageSize)
		for i := start; i < end; i++ {
			line := m.formatInfo(m.infos[i])
			if i == m.selected {
				b.WriteString(selectedStyle.Render("> " + line))
			} else {
				b.WriteString("  " + line)
			}
			b.WriteString("\n")
		}
		b.WriteString("\n")
		help := "↑/↓ select • enter inspect • q quit"
		if m.caller != nil {
			help = "↑/↓ select • enter inspect or call • q quit"
		}
		b.WriteString(helpStyle.Render(help))

	case stateInputArgs:
		fn := m.infos[m.selected]
		b.WriteString(fmt.Sprintf("Calling %s\n\n", funcStyle.Render(fn.Name())))
		for i, input := range m.inputs {
			b.WriteString(input.View())
			b.WriteString(" ")
			b.WriteString(typeStyle.Render(typeString(m.params[i].Type())))
			b.WriteString("\n")
		}
		b.WriteString("\n")
		b.WriteString(helpStyle.Render("tab next field • enter call • esc back"))

	case stateShowResult:
		info := m.infos[m.selected]
		b.WriteString(funcStyle.Render(info.String()))
		b.WriteString("\n\n")
		if m.err != nil {
			b.WriteString(errorStyle.Render(fmt.Sprintf("Error: %v", m.err)))
		} else {
			b.WriteString(resultStyle.Render(m.result))
		}
		b.WriteString("\n\n")
		b.WriteString(helpStyle.Render("enter continue • q quit"))
	}

	return b.String()
}

func (m *browseModel) formatInfo(info gi.Info) string {
	kind := typeStyle.Render(fmt.Sprintf("%-10s", info.Kind()))
	if _, ok := info.(*gi.FunctionInfo); ok {
		return kind + " " + funcStyle.Render(summary(info))
	}
	return kind + " " + summary(info)
}
