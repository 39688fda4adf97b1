// Package tui is the interactive shopping-list screen. It renders
// synchronizer snapshots and turns key presses into synchronizer calls.
package tui

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/idilsaglam/shoplist/internal/listsync"
	"github.com/idilsaglam/shoplist/internal/model"
	"github.com/idilsaglam/shoplist/internal/ui"
)

// listItem adapts model.Item to bubbles/list.Item
type listItem struct{ model.Item }

func (i listItem) Title() string       { return i.Name }
func (i listItem) Description() string { return "" }
func (i listItem) FilterValue() string { return i.Name }

// Custom delegate to control how items render (single line)
type itemDelegate struct{}

func (d itemDelegate) Height() int                               { return 1 }
func (d itemDelegate) Spacing() int                              { return 0 }
func (d itemDelegate) Update(msg tea.Msg, m *list.Model) tea.Cmd { return nil }
func (d itemDelegate) Render(w io.Writer, m list.Model, index int, item list.Item) {
	it, ok := item.(listItem)
	if !ok {
		return
	}
	prefix := "  "
	if index == m.Index() {
		prefix = ui.Current().Selected.Render("> ")
	}
	fmt.Fprint(w, prefix+ui.Row(it.Item))
}

// changedMsg tells the model to re-read the synchronizer.
type changedMsg struct{}

type mode int

const (
	browsing mode = iota
	adding
	editing
)

var (
	addBind     = key.NewBinding(key.WithKeys("a"), key.WithHelp("a", "add"))
	editBind    = key.NewBinding(key.WithKeys("e"), key.WithHelp("e", "edit"))
	toggleBind  = key.NewBinding(key.WithKeys(" "), key.WithHelp("space", "check"))
	deleteBind  = key.NewBinding(key.WithKeys("d"), key.WithHelp("d", "delete"))
	refreshBind = key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "refresh"))
)

type Model struct {
	sync        *listsync.Synchronizer
	changed     chan struct{}
	done        chan struct{}
	closeOnce   sync.Once
	unsubscribe func()

	list    list.Model
	spinner spinner.Model
	state   listsync.State

	mode   mode
	form   form
	target model.Item // item being edited

	width, height int
}

// New binds a model to s. Call Close when the program has exited.
func New(s *listsync.Synchronizer) *Model {
	l := list.New(nil, itemDelegate{}, 0, 0)
	l.Title = "Shopping list"
	l.SetShowHelp(true)
	l.SetShowPagination(true)
	l.SetShowStatusBar(true)
	l.SetFilteringEnabled(true)
	l.Styles.Title = ui.Current().Title
	l.Styles.HelpStyle = ui.Current().Help
	l.Styles.PaginationStyle = ui.Current().Help
	l.FilterInput.Prompt = "/ "
	l.SetStatusBarItemName("item", "items")
	l.AdditionalShortHelpKeys = func() []key.Binding {
		return []key.Binding{toggleBind, addBind, editBind, deleteBind}
	}
	l.AdditionalFullHelpKeys = func() []key.Binding {
		return []key.Binding{toggleBind, addBind, editBind, deleteBind, refreshBind}
	}

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = ui.Current().Accent

	m := &Model{
		sync:    s,
		changed: make(chan struct{}, 1),
		done:    make(chan struct{}),
		list:    l,
		spinner: sp,
		width:   80,
		height:  24,
	}
	// Coalesce notifications: one pending signal is enough, the model
	// always reads the latest snapshot.
	m.unsubscribe = s.Subscribe(func(listsync.Event) {
		select {
		case m.changed <- struct{}{}:
		default:
		}
	})
	m.resize()
	return m
}

// Close detaches the model from its synchronizer and releases a pending
// wait for changes.
func (m *Model) Close() {
	m.closeOnce.Do(func() {
		m.unsubscribe()
		close(m.done)
	})
}

func (m *Model) waitForChange() tea.Cmd {
	ch, done := m.changed, m.done
	return func() tea.Msg {
		select {
		case <-ch:
			return changedMsg{}
		case <-done:
			return nil
		}
	}
}

// Init starts the first refresh, like opening the list screen does.
func (m *Model) Init() tea.Cmd {
	s := m.sync
	return tea.Batch(
		m.waitForChange(),
		m.spinner.Tick,
		func() tea.Msg { s.Refresh(); return nil },
	)
}

func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case changedMsg:
		cmd := m.reload()
		return m, tea.Batch(cmd, m.waitForChange())
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.resize()
		return m, nil
	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}

	if m.mode != browsing {
		return m, m.updateForm(msg)
	}

	// while the filter is being typed every key belongs to the list
	if m.list.FilterState() == list.Filtering {
		var cmd tea.Cmd
		m.list, cmd = m.list.Update(msg)
		return m, cmd
	}

	if km, ok := msg.(tea.KeyMsg); ok {
		switch km.String() {
		case "ctrl+c", "q":
			return m, tea.Quit
		case "esc":
			if m.list.FilterState() == list.Unfiltered {
				return m, tea.Quit
			}
		case " ":
			if it, ok := m.selected(); ok {
				m.sync.Toggle(it)
			}
			return m, nil
		case "d":
			if it, ok := m.selected(); ok {
				m.sync.Remove(it)
			}
			return m, nil
		case "r":
			m.sync.Refresh()
			return m, nil
		case "a":
			m.mode = adding
			m.form = newAddForm()
			m.resize()
			return m, nil
		case "e":
			if it, ok := m.selected(); ok {
				m.mode = editing
				m.target = it
				m.form = newEditForm(it)
				m.resize()
			}
			return m, nil
		}
	}

	var cmd tea.Cmd
	m.list, cmd = m.list.Update(msg)
	return m, cmd
}

func (m *Model) updateForm(msg tea.Msg) tea.Cmd {
	km, ok := msg.(tea.KeyMsg)
	if !ok {
		return m.form.update(msg)
	}
	switch km.String() {
	case "esc":
		m.closeForm()
		return nil
	case "tab", "down":
		m.form.move(1)
		return nil
	case "shift+tab", "up":
		m.form.move(-1)
		return nil
	case "enter":
		v := m.form.values()
		if m.mode == adding {
			d, err := model.ParseDraft(v[0], v[1], v[2])
			if errors.Is(err, model.ErrEmptyName) {
				m.form.err = "Name cannot be empty"
				return nil
			}
			m.sync.Create(d.Name, d.Quantity, d.UnitPrice)
		} else {
			q, p := model.ParseDetails(m.target, v[0], v[1])
			m.sync.UpdateDetails(m.target, q, p)
		}
		m.closeForm()
		return nil
	}
	return m.form.update(msg)
}

func (m *Model) closeForm() {
	m.mode = browsing
	m.form = form{}
	m.target = model.Item{}
	m.resize()
}

// reload rebuilds the list from a fresh snapshot, keeping the cursor in
// range.
func (m *Model) reload() tea.Cmd {
	m.state = m.sync.Snapshot()
	items := make([]list.Item, 0, len(m.state.Items))
	for _, it := range m.state.Items {
		items = append(items, listItem{it})
	}
	idx := m.list.Index()
	cmd := m.list.SetItems(items)
	if n := len(items); n > 0 && idx >= n {
		m.list.Select(n - 1)
	}
	m.list.Title = ui.Header("Shopping list", m.state.Items)
	return cmd
}

func (m *Model) selected() (model.Item, bool) {
	li, ok := m.list.SelectedItem().(listItem)
	if !ok {
		return model.Item{}, false
	}
	return li.Item, true
}

func (m *Model) resize() {
	h := m.height - 5 // frame + total bar
	if m.mode != browsing {
		h -= 2 + 2*len(m.form.inputs) + 2
	}
	if h < 3 {
		h = 3
	}
	m.list.SetSize(m.width-4, h)
}

func (m *Model) View() string {
	var b strings.Builder
	b.WriteString(m.list.View())
	b.WriteString("\n")
	if m.state.Loading {
		b.WriteString(m.spinner.View() + " " + ui.Current().Muted.Render("Loading..."))
	} else if len(m.state.Items) == 0 {
		b.WriteString(ui.Current().Muted.Render("Your list is empty. Press a to add an item."))
	}
	b.WriteString("\n")
	b.WriteString(ui.TotalLine(m.state.TotalCost()))
	if m.mode != browsing {
		b.WriteString("\n" + m.form.view())
	}
	return ui.Frame(b.String())
}

// Run starts the program on the alternate screen and blocks until the
// user quits.
func Run(s *listsync.Synchronizer, opts ...tea.ProgramOption) error {
	m := New(s)
	defer m.Close()
	p := tea.NewProgram(m, append([]tea.ProgramOption{tea.WithAltScreen()}, opts...)...)
	_, err := p.Run()
	return err
}
