package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/wippyai/opcall/introspect"
)

// NewInteractiveCommand creates the interactive command.
func NewInteractiveCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:     "interactive",
		Aliases: []string{"i"},
		Short:   "Pick and call operations in a terminal UI",
		Long: `Browse the operations, fill in their required inputs and see the
results. Inputs take the same syntax as the call command: @path for
images, comma separated arrays.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInteractive(rootOpts, cmd)
		},
	}
}

func runInteractive(opts *RootOptions, cmd *cobra.Command) error {
	if !isTerminal(cmd.OutOrStdout()) {
		return fmt.Errorf("interactive mode needs a terminal; use list and call instead")
	}

	ctx := cmd.Context()
	s, err := opts.open(ctx)
	if err != nil {
		return err
	}
	defer s.Close(ctx)

	p := tea.NewProgram(newInteractiveModel(ctx, s), tea.WithAltScreen(), tea.WithOutput(cmd.OutOrStdout()))
	_, err = p.Run()
	return err
}

type interactiveModel struct {
	err      error
	ctx      context.Context
	s        *session
	result   string
	ops      []*introspect.Descriptor
	inputs   []textinput.Model
	selected int
	focusIdx int
	state    modelState
	loaded   bool
}

type modelState int

const (
	stateSelectOp modelState = iota
	stateInputArgs
	stateShowResult
)

func newInteractiveModel(ctx context.Context, s *session) *interactiveModel {
	return &interactiveModel{
		ctx:   ctx,
		s:     s,
		state: stateSelectOp,
	}
}

type loadedMsg struct {
	err error
	ops []*introspect.Descriptor
}

type callResultMsg struct {
	err    error
	result string
}

func (m *interactiveModel) Init() tea.Cmd {
	return m.loadOperations
}

func (m *interactiveModel) loadOperations() tea.Msg {
	names, err := m.s.rt.Operations()
	if err != nil {
		return loadedMsg{err: err}
	}
	ops := make([]*introspect.Descriptor, 0, len(names))
	for _, name := range names {
		d, err := m.s.rt.Describe(name)
		if err != nil {
			return loadedMsg{err: err}
		}
		ops = append(ops, d)
	}
	return loadedMsg{ops: ops}
}

func (m *interactiveModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
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
			if m.state == stateSelectOp && m.selected > 0 {
				m.selected--
				return m, nil
			}

		case "down", "j":
			if m.state == stateSelectOp && m.selected < len(m.ops)-1 {
				m.selected++
				return m, nil
			}

		case "enter":
			switch m.state {
			case stateSelectOp:
				if len(m.ops) == 0 {
					return m, nil
				}
				m.prepareInputs()
				if len(m.inputs) == 0 {
					return m, m.callOperation
				}
				m.state = stateInputArgs
				return m, textinput.Blink

			case stateInputArgs:
				return m, m.callOperation

			case stateShowResult:
				m.state = stateSelectOp
				m.result = ""
				m.err = nil
				return m, nil
			}

		case "tab":
			if m.state == stateInputArgs && len(m.inputs) > 1 {
				m.inputs[m.focusIdx].Blur()
				m.focusIdx = (m.focusIdx + 1) % len(m.inputs)
				m.inputs[m.focusIdx].Focus()
				return m, nil
			}

		case "esc":
			switch m.state {
			case stateInputArgs:
				m.state = stateSelectOp
				m.inputs = nil
				return m, nil
			case stateShowResult:
				m.state = stateSelectOp
				m.result = ""
				m.err = nil
				return m, nil
			}
		}

	case loadedMsg:
		m.loaded = true
		if msg.err != nil {
			m.err = msg.err
			return m, nil
		}
		m.ops = msg.ops

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

func (m *interactiveModel) prepareInputs() {
	d := m.ops[m.selected]
	m.inputs = make([]textinput.Model, len(d.RequiredInput))
	for i, name := range d.RequiredInput {
		ti := textinput.New()
		ti.Placeholder = d.Details[name].TypeName()
		ti.Prompt = name + ": "
		ti.Width = 40
		if i == 0 {
			ti.Focus()
		}
		m.inputs[i] = ti
	}
	m.focusIdx = 0
}

// callOperation runs the selected operation with the typed inputs and
// renders every output as text.
func (m *interactiveModel) callOperation() tea.Msg {
	d := m.ops[m.selected]

	parser := newArgParser(m.ctx, m.s.rt)
	defer parser.Close()

	raw := make([]string, len(m.inputs))
	for i, input := range m.inputs {
		raw[i] = strings.TrimSpace(input.Value())
	}
	args, named, err := callArgs(parser, d, raw, nil, nil)
	if err != nil {
		return callResultMsg{err: err}
	}

	res, err := m.s.rt.CallOpts(m.ctx, d.Name, args, named, "")
	if err != nil {
		return callResultMsg{err: err}
	}
	defer res.Close()

	var b strings.Builder
	for i, v := range res.Outputs {
		fmt.Fprintf(&b, "%s: %s\n", d.RequiredOutput[i], v.String())
	}
	for _, a := range res.Advisories {
		fmt.Fprintf(&b, "warning: %s\n", a.Error())
	}
	return callResultMsg{result: strings.TrimSuffix(b.String(), "\n")}
}

func (m *interactiveModel) View() string {
	if m.err != nil && m.state != stateShowResult {
		return errorStyle.Render(fmt.Sprintf("Error: %v\n\nPress q to quit.", m.err))
	}

	if !m.loaded {
		return "Loading operations..."
	}

	var b strings.Builder

	b.WriteString(titleStyle.Render("opcall"))
	b.WriteString(fmt.Sprintf(" %d operations\n\n", len(m.ops)))

	p := painter{on: true}
	switch m.state {
	case stateSelectOp:
		b.WriteString("Select an operation to call:\n\n")
		for i, d := range m.ops {
			if i == m.selected {
				b.WriteString(selectedStyle.Render("> " + signature(d, painter{})))
			} else {
				b.WriteString("  " + signature(d, p))
			}
			b.WriteString("\n")
		}
		b.WriteString("\n")
		b.WriteString(helpStyle.Render("↑/↓ select • enter call • q quit"))

	case stateInputArgs:
		d := m.ops[m.selected]
		b.WriteString(fmt.Sprintf("Calling %s\n", funcStyle.Render(d.Name)))
		b.WriteString(helpStyle.Render(d.Description))
		b.WriteString("\n\n")
		for _, input := range m.inputs {
			b.WriteString(input.View())
			b.WriteString("\n")
		}
		b.WriteString("\n")
		b.WriteString(helpStyle.Render("tab next field • enter call • esc back"))

	case stateShowResult:
		d := m.ops[m.selected]
		b.WriteString(fmt.Sprintf("Result of %s:\n\n", funcStyle.Render(d.Name)))
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
