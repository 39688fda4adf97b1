package tui

import (
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/idilsaglam/shoplist/internal/model"
	"github.com/idilsaglam/shoplist/internal/ui"
)

// form is a small stack of text inputs with one focused at a time.
type form struct {
	title  string
	labels []string
	inputs []textinput.Model
	focus  int
	err    string
}

func newInput(value, placeholder string, limit int) textinput.Model {
	ti := textinput.New()
	ti.Prompt = "> "
	ti.Placeholder = placeholder
	ti.CharLimit = limit
	ti.SetValue(value)
	ti.CursorEnd()
	return ti
}

// Add form defaults follow the add dialog: quantity 1, price 0.00.
func newAddForm() form {
	f := form{
		title:  "Add new item",
		labels: []string{"Name", "Quantity", "Unit price"},
		inputs: []textinput.Model{
			newInput("", "Item name...", 200),
			newInput("1", "1", 6),
			newInput("0.00", "0.00", 12),
		},
	}
	f.inputs[0].Focus()
	return f
}

func newEditForm(it model.Item) form {
	f := form{
		title:  "Edit: " + it.Name,
		labels: []string{"Quantity", "Unit price"},
		inputs: []textinput.Model{
			newInput(itoa(it.Quantity), "1", 6),
			newInput(ftoa(it.UnitPrice), "0.00", 12),
		},
	}
	f.inputs[0].Focus()
	return f
}

func (f *form) move(delta int) {
	f.inputs[f.focus].Blur()
	f.focus = (f.focus + delta + len(f.inputs)) % len(f.inputs)
	f.inputs[f.focus].Focus()
}

func (f *form) update(msg tea.Msg) tea.Cmd {
	var cmd tea.Cmd
	f.inputs[f.focus], cmd = f.inputs[f.focus].Update(msg)
	return cmd
}

func (f form) values() []string {
	out := make([]string, len(f.inputs))
	for i, in := range f.inputs {
		out[i] = in.Value()
	}
	return out
}

func (f form) view() string {
	t := ui.Current()
	title := f.title
	if f.err != "" {
		title += " · " + t.Error.Render(f.err)
	}
	lines := []string{title}
	for i, in := range f.inputs {
		label := t.Muted.Render(f.labels[i])
		if i == f.focus {
			label = t.Accent.Render(f.labels[i])
		}
		lines = append(lines, label, in.View())
	}
	lines = append(lines, t.Help.Render("tab next · enter save · esc cancel"))
	return ui.Frame(strings.Join(lines, "\n"))
}

func itoa(n int) string { return strconv.Itoa(n) }

// ftoa keeps every digit so an untouched price parses back unchanged.
func ftoa(f float64) string { return strconv.FormatFloat(f, 'f', -1, 64) }
