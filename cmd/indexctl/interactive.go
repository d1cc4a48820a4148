package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"go.bytecodealliance.org/wit"

	"github.com/wippyai/indexbind/binding"
	"github.com/wippyai/indexbind/configuration"
	"github.com/wippyai/indexbind/index"
	"github.com/wippyai/indexbind/resource"
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

var (
	handleType = wit.S64{}
	valueType  = &wit.TypeDef{Kind: &wit.Option{Type: wit.String{}}}
)

type paramInfo struct {
	name    string
	witType wit.Type
}

// entryPoint is one binding operation the TUI can call.
type entryPoint struct {
	name   string
	params []paramInfo
	result wit.Type
	call   func(b *binding.Binding, args []any) (any, error)
}

func h(v any) resource.Handle { return resource.Handle(v.(int64)) }

func entryPoints() []entryPoint {
	handle := func(name string) paramInfo { return paramInfo{name, handleType} }
	pos := func(name string) paramInfo { return paramInfo{name, wit.S64{}} }
	str := func(name string) paramInfo { return paramInfo{name, wit.String{}} }

	return []entryPoint{
		{"view-snapshot", []paramInfo{handle("db")}, handleType, func(b *binding.Binding, a []any) (any, error) {
			return b.ViewSnapshot(h(a[0]))
		}},
		{"view-fork", []paramInfo{handle("db")}, handleType, func(b *binding.Binding, a []any) (any, error) {
			return b.ViewFork(h(a[0]))
		}},
		{"merge", []paramInfo{handle("db"), handle("view")}, nil, func(b *binding.Binding, a []any) (any, error) {
			return nil, b.DatabaseMerge(h(a[0]), h(a[1]))
		}},
		{"list-create", []paramInfo{str("name"), handle("view")}, handleType, func(b *binding.Binding, a []any) (any, error) {
			return b.ListCreate(a[0].(string), h(a[1]))
		}},
		{"list-create-in-group", []paramInfo{str("group"), str("key"), handle("view")}, handleType, func(b *binding.Binding, a []any) (any, error) {
			return b.ListCreateInGroup(a[0].(string), []byte(a[1].(string)), h(a[2]))
		}},
		{"list-get", []paramInfo{handle("list"), pos("pos")}, valueType, func(b *binding.Binding, a []any) (any, error) {
			return optional(b.ListGet(h(a[0]), a[1].(int64)))
		}},
		{"list-get-last", []paramInfo{handle("list")}, valueType, func(b *binding.Binding, a []any) (any, error) {
			return optional(b.ListGetLast(h(a[0])))
		}},
		{"list-is-empty", []paramInfo{handle("list")}, wit.Bool{}, func(b *binding.Binding, a []any) (any, error) {
			return b.ListIsEmpty(h(a[0]))
		}},
		{"list-size", []paramInfo{handle("list")}, wit.S64{}, func(b *binding.Binding, a []any) (any, error) {
			return b.ListSize(h(a[0]))
		}},
		{"list-add", []paramInfo{handle("list"), str("value")}, nil, func(b *binding.Binding, a []any) (any, error) {
			return nil, b.ListAdd(h(a[0]), []byte(a[1].(string)))
		}},
		{"list-remove-last", []paramInfo{handle("list")}, valueType, func(b *binding.Binding, a []any) (any, error) {
			return optional(b.ListRemoveLast(h(a[0])))
		}},
		{"list-truncate", []paramInfo{handle("list"), pos("len")}, nil, func(b *binding.Binding, a []any) (any, error) {
			return nil, b.ListTruncate(h(a[0]), a[1].(int64))
		}},
		{"list-set", []paramInfo{handle("list"), pos("pos"), str("value")}, nil, func(b *binding.Binding, a []any) (any, error) {
			return nil, b.ListSet(h(a[0]), a[1].(int64), []byte(a[2].(string)))
		}},
		{"list-clear", []paramInfo{handle("list")}, nil, func(b *binding.Binding, a []any) (any, error) {
			return nil, b.ListClear(h(a[0]))
		}},
		{"list-iter-from", []paramInfo{handle("list"), pos("from")}, handleType, func(b *binding.Binding, a []any) (any, error) {
			return b.ListIterFrom(h(a[0]), a[1].(int64))
		}},
		{"list-iter-next", []paramInfo{handle("iter")}, valueType, func(b *binding.Binding, a []any) (any, error) {
			return optional(b.ListIterNext(h(a[0])))
		}},
		{"free", []paramInfo{handle("handle")}, nil, func(b *binding.Binding, a []any) (any, error) {
			return nil, free(b, h(a[0]))
		}},
	}
}

func optional(v []byte, err error) (any, error) {
	if err != nil || v == nil {
		return "none", err
	}
	return strconv.Quote(string(v)), nil
}

// free drops a handle of any type through the matching entry point.
func free(b *binding.Binding, handle resource.Handle) error {
	var typeID uint32
	b.Table().Each(func(hd resource.Handle, id uint32, _ any) bool {
		if hd == handle {
			typeID = id
			return false
		}
		return true
	})
	switch typeID {
	case binding.TypeView:
		return b.ViewFree(handle)
	case binding.TypeList:
		return b.ListFree(handle)
	case binding.TypeListIterator:
		return b.ListIterFree(handle)
	default:
		return b.DatabaseFree(handle)
	}
}

type interactiveModel struct {
	err       error
	binding   *binding.Binding
	lists     *resource.Typed[*binding.ListVariant]
	iterators *resource.Typed[*index.ListIterator]
	db        resource.Handle
	title     string
	result    string
	funcs     []entryPoint
	inputs    []textinput.Model
	selected  int
	focusIdx  int
	state     modelState
}

type modelState int

const (
	stateSelectFunc modelState = iota
	stateInputArgs
	stateShowResult
)

type callResultMsg struct {
	err    error
	result string
}

func newInteractiveModel(c *configuration.Configuration, b *binding.Binding) (*interactiveModel, error) {
	db, err := b.DatabaseOpen(c)
	if err != nil {
		return nil, err
	}
	title := c.StoragePath
	if title == "" {
		title = "memory"
	}
	return &interactiveModel{
		binding:   b,
		db:        db,
		lists:     resource.NewTyped[*binding.ListVariant](b.Table(), binding.TypeList),
		iterators: resource.NewTyped[*index.ListIterator](b.Table(), binding.TypeListIterator),
		title:     fmt.Sprintf("%s  db=%d", title, int64(db)),
		funcs:     entryPoints(),
		state:     stateSelectFunc,
	}, nil
}

func (m *interactiveModel) Init() tea.Cmd {
	return nil
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
			if m.state == stateSelectFunc && m.selected > 0 {
				m.selected--
			}

		case "down", "j":
			if m.state == stateSelectFunc && m.selected < len(m.funcs)-1 {
				m.selected++
			}

		case "enter":
			switch m.state {
			case stateSelectFunc:
				m.prepareInputs()
				if len(m.inputs) == 0 {
					return m, m.callFunction
				}
				m.state = stateInputArgs
				return m, nil

			case stateInputArgs:
				return m, m.callFunction

			case stateShowResult:
				m.state = stateSelectFunc
				m.result = ""
				m.err = nil
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
				m.state = stateSelectFunc
				m.inputs = nil
			case stateShowResult:
				m.state = stateSelectFunc
				m.result = ""
				m.err = nil
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

func (m *interactiveModel) prepareInputs() {
	f := m.funcs[m.selected]
	m.inputs = make([]textinput.Model, len(f.params))
	for i, p := range f.params {
		ti := textinput.New()
		ti.Placeholder = witTypeStr(p.witType)
		ti.Prompt = p.name + ": "
		ti.Width = 40
		if p.name == "db" {
			ti.SetValue(strconv.FormatInt(int64(m.db), 10))
		}
		if i == 0 {
			ti.Focus()
		}
		m.inputs[i] = ti
	}
	m.focusIdx = 0
}

func (m *interactiveModel) callFunction() tea.Msg {
	f := m.funcs[m.selected]
	args := make([]any, len(m.inputs))
	for i, input := range m.inputs {
		v, err := convertArg(input.Value(), f.params[i].witType)
		if err != nil {
			return callResultMsg{err: fmt.Errorf("%s: %w", f.params[i].name, err)}
		}
		args[i] = v
	}

	result, err := f.call(m.binding, args)
	if err != nil {
		return callResultMsg{err: err}
	}
	if result == nil {
		return callResultMsg{result: "ok"}
	}
	if hd, ok := result.(resource.Handle); ok {
		return callResultMsg{result: fmt.Sprintf("%d (%s)", int64(hd), hd)}
	}
	return callResultMsg{result: fmt.Sprintf("%v", result)}
}

func convertArg(value string, t wit.Type) (any, error) {
	switch t.(type) {
	case wit.String:
		return value, nil
	case wit.S64:
		return strconv.ParseInt(strings.TrimSpace(value), 10, 64)
	case wit.Bool:
		return value == "true" || value == "1", nil
	default:
		return value, nil
	}
}

func (m *interactiveModel) View() string {
	var b strings.Builder

	b.WriteString(titleStyle.Render("List Index"))
	b.WriteString(" ")
	b.WriteString(m.title)
	b.WriteString(helpStyle.Render(fmt.Sprintf("  lists=%d iterators=%d", m.lists.Len(), m.iterators.Len())))
	b.WriteString("\n\n")

	switch m.state {
	case stateSelectFunc:
		b.WriteString("Select an operation:\n\n")
		for i, f := range m.funcs {
			if i == m.selected {
				b.WriteString(selectedStyle.Render("> " + formatFunc(f)))
			} else {
				b.WriteString("  " + formatFunc(f))
			}
			b.WriteString("\n")
		}
		b.WriteString("\n")
		b.WriteString(helpStyle.Render("↑/↓ select • enter call • q quit"))

	case stateInputArgs:
		f := m.funcs[m.selected]
		b.WriteString(fmt.Sprintf("Calling %s\n\n", funcStyle.Render(f.name)))
		for i, input := range m.inputs {
			b.WriteString(input.View())
			b.WriteString(" ")
			b.WriteString(typeStyle.Render(witTypeStr(f.params[i].witType)))
			b.WriteString("\n")
		}
		b.WriteString("\n")
		b.WriteString(helpStyle.Render("tab next field • enter call • esc back"))

	case stateShowResult:
		f := m.funcs[m.selected]
		b.WriteString(fmt.Sprintf("Result of %s:\n\n", funcStyle.Render(f.name)))
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

func formatFunc(f entryPoint) string {
	var params []string
	for _, p := range f.params {
		params = append(params, p.name+": "+typeStyle.Render(witTypeStr(p.witType)))
	}
	result := ""
	if f.result != nil {
		result = " -> " + typeStyle.Render(witTypeStr(f.result))
	}
	return funcStyle.Render(f.name) + "(" + strings.Join(params, ", ") + ")" + result
}

func witTypeStr(t wit.Type) string {
	switch v := t.(type) {
	case wit.Bool:
		return "bool"
	case wit.S64:
		return "s64"
	case wit.String:
		return "string"
	case *wit.TypeDef:
		if v.Name != nil {
			return *v.Name
		}
		if o, ok := v.Kind.(*wit.Option); ok {
			return "option<" + witTypeStr(o.Type) + ">"
		}
		return "typedef"
	default:
		return fmt.Sprintf("%T", t)
	}
}

func runInteractive(c *configuration.Configuration, b *binding.Binding) error {
	m, err := newInteractiveModel(c, b)
	if err != nil {
		return err
	}
	defer b.DatabaseFree(m.db)

	p := tea.NewProgram(m, tea.WithAltScreen())
	_, err = p.Run()
	return err
}
