package cli

import (
	"bufio"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"sync"
	"time"

	"github.com/idilsaglam/shoplist/internal/api"
	"github.com/idilsaglam/shoplist/internal/auth"
	"github.com/idilsaglam/shoplist/internal/config"
	"github.com/idilsaglam/shoplist/internal/listsync"
	"github.com/idilsaglam/shoplist/internal/model"
	"github.com/idilsaglam/shoplist/internal/store/jsonstore"
	"github.com/idilsaglam/shoplist/internal/tui"
	"github.com/idilsaglam/shoplist/internal/ui"
)

// Options tune behavior from root flags and config.
type Options struct {
	Group  bool // print grouped by pending/checked
	Config config.Config
	Dir    string // holds credentials.json
	Logger *slog.Logger
	In     io.Reader
	Out    io.Writer
}

type runner struct {
	Options
}

// Run dispatches subcommands and returns an exit code (0 ok, 1 error, 2 usage).
func Run(args []string, opt Options) int {
	if opt.Logger == nil {
		opt.Logger = slog.Default()
	}
	if opt.In == nil {
		opt.In = os.Stdin
	}
	if opt.Out == nil {
		opt.Out = os.Stdout
	}
	r := runner{opt}

	if len(args) == 0 {
		PrintHelp(r.Out)
		return 2
	}
	cmd, a := args[0], args[1:]

	switch cmd {
	case "help", "-h", "--help":
		PrintHelp(r.Out)
		return 0

	case "ls":
		return r.doInteractive()

	case "print":
		if len(a) > 1 {
			ui.Fail("usage: shoplist print [export.json]")
			return 2
		}
		return r.doPrint(a)

	case "total":
		return r.doTotal()

	case "add":
		if len(a) == 0 || len(a) > 3 {
			ui.Fail("usage: shoplist add <name> [quantity] [price]")
			return 2
		}
		quantity, price := "1", "0"
		if len(a) > 1 {
			quantity = a[1]
		}
		if len(a) > 2 {
			price = a[2]
		}
		return r.doAdd(a[0], quantity, price)

	case "check":
		id, code := parseID("check", a, 1)
		if code != 0 {
			return code
		}
		return r.doToggle(id)

	case "edit":
		id, code := parseID("edit", a, 3)
		if code != 0 {
			return code
		}
		return r.doEdit(id, a[1], a[2])

	case "rm":
		id, code := parseID("rm", a, 1)
		if code != 0 {
			return code
		}
		return r.doRemove(id)

	case "export":
		if len(a) != 1 {
			ui.Fail("usage: shoplist export <file>")
			return 2
		}
		return r.doExport(a[0])

	case "auth":
		if len(a) == 0 {
			ui.Fail("usage: shoplist auth <login|logout|status|whoami>")
			return 2
		}
		switch a[0] {
		case "login":
			return r.doAuthLogin()
		case "logout":
			return r.doAuthLogout()
		case "status":
			return r.doAuthStatus()
		case "whoami":
			return r.doAuthWhoAmI()
		default:
			ui.Fail("usage: shoplist auth <login|logout|status|whoami>")
			return 2
		}
	}

	ui.Fail("unknown subcommand: " + cmd)
	fmt.Fprintln(os.Stderr)
	PrintHelp(os.Stderr)
	return 2
}

func PrintHelp(w io.Writer) {
	fmt.Fprint(w, `shoplist - a shopping list in your terminal

Usage:
  shoplist [flags] <subcommand> [args]

Subcommands:
  ls                              Interactive list
  print [export.json]             Print the list (or a saved export)
  total                           Print the estimated total
  add <name> [quantity] [price]   Add an item (quantity defaults to 1, price to 0)
  check <id>                      Toggle the checked flag of an item
  edit <id> <quantity> <price>    Change quantity and unit price
  rm <id>                         Remove an item
  export <file>                   Save the list as JSON
  auth <login|logout|status|whoami>   Token authentication

Flags:
  --api-url, --config, --theme, --log-level, --log-file, --group

Examples:
  shoplist add Milk 2 3.50
  shoplist print --group
  shoplist check 4
  shoplist edit 4 3 2.99
`)
}

func parseID(cmd string, a []string, want int) (int, int) {
	if len(a) != want {
		switch cmd {
		case "edit":
			ui.Fail("usage: shoplist edit <id> <quantity> <price>")
		default:
			ui.Fail("usage: shoplist " + cmd + " <id>")
		}
		return 0, 2
	}
	n, err := strconv.Atoi(a[0])
	if err != nil {
		ui.Fail(cmd + ": not a number: " + a[0])
		return 0, 2
	}
	return n, 0
}

// -------------- session helpers ----------------

func (r runner) open() (*listsync.Synchronizer, error) {
	token, err := auth.Token(r.Dir)
	if err != nil {
		return nil, err
	}
	c, err := api.New(r.Config.APIURL, api.WithToken(token), api.WithLogger(r.Logger))
	if err != nil {
		return nil, err
	}
	return listsync.New(c, r.Logger), nil
}

// await runs start, waits for the synchronizer to settle, and returns
// the last event together with the first failure seen.
func await(s *listsync.Synchronizer, start func()) (listsync.Event, error) {
	var (
		mu       sync.Mutex
		last     listsync.Event
		firstErr error
	)
	unsubscribe := s.Subscribe(func(ev listsync.Event) {
		mu.Lock()
		defer mu.Unlock()
		last = ev
		if ev.Err != nil && firstErr == nil {
			firstErr = ev.Err
		}
	})
	defer unsubscribe()
	start()
	s.Wait()
	mu.Lock()
	defer mu.Unlock()
	return last, firstErr
}

// load opens a session and fetches the list.
func (r runner) load() (*listsync.Synchronizer, int) {
	s, err := r.open()
	if err != nil {
		ui.Fail("setup: " + err.Error())
		return nil, 1
	}
	if _, err := await(s, s.Refresh); err != nil {
		s.Close()
		ui.Fail("load: " + err.Error())
		return nil, 1
	}
	return s, 0
}

func (r runner) find(s *listsync.Synchronizer, id int) (model.Item, bool) {
	items := s.Items()
	i := model.IndexOf(items, id)
	if i < 0 {
		ui.Fail(fmt.Sprintf("no item with id %d", id))
		ui.Hint("Hint: run `shoplist print` to see item ids")
		return model.Item{}, false
	}
	return items[i], true
}

// -------------- subcommand impls ----------------

func (r runner) doInteractive() int {
	s, err := r.open()
	if err != nil {
		ui.Fail("setup: " + err.Error())
		return 1
	}
	defer s.Close()
	// The interactive TUI loads the list itself and syncs every change.
	if err := tui.Run(s); err != nil {
		ui.Fail("tui: " + err.Error())
		return 1
	}
	return 0
}

func (r runner) doPrint(a []string) int {
	var items []model.Item
	if len(a) == 1 {
		var err error
		if items, err = jsonstore.Load(a[0]); err != nil {
			ui.Fail("load: " + err.Error())
			return 1
		}
	} else {
		s, code := r.load()
		if code != 0 {
			return code
		}
		items = s.Items()
		s.Close()
	}

	t := ui.Current()
	c, _ := model.Stats(items)
	var lines []string
	lines = append(lines, ui.Header("Shopping list", items))
	lines = append(lines, t.Muted.Render(ui.ProgressBar(c, len(items), 28)))
	lines = append(lines, "")
	if r.Group {
		lines = append(lines, groupLines(items)...)
	} else {
		lines = append(lines, flatLines(items)...)
	}
	lines = append(lines, "")
	lines = append(lines, ui.TotalLine(model.TotalCost(items)))
	lines = append(lines, t.Muted.Render("Tip: add with `shoplist add Milk 2 3.50`"))
	ui.Panel(r.Out, lines)
	return 0
}

func (r runner) doTotal() int {
	s, code := r.load()
	if code != 0 {
		return code
	}
	defer s.Close()
	fmt.Fprintln(r.Out, ui.Money(s.TotalCost()))
	return 0
}

func (r runner) doAdd(name, quantity, price string) int {
	d, err := model.ParseDraft(name, quantity, price)
	if err != nil {
		ui.Fail("add: " + err.Error())
		return 2
	}
	s, err := r.open()
	if err != nil {
		ui.Fail("setup: " + err.Error())
		return 1
	}
	defer s.Close()
	ev, err := await(s, func() { s.Create(d.Name, d.Quantity, d.UnitPrice) })
	if err != nil {
		ui.Fail("add: " + err.Error())
		return 1
	}
	ui.OK(r.Out, fmt.Sprintf("added #%d %s", ev.ItemID, d.Name))
	return 0
}

func (r runner) doToggle(id int) int {
	s, code := r.load()
	if code != 0 {
		return code
	}
	defer s.Close()
	it, ok := r.find(s, id)
	if !ok {
		return 2
	}
	if _, err := await(s, func() { s.Toggle(it) }); err != nil {
		ui.Fail("check: " + err.Error())
		return 1
	}
	if it.Checked {
		ui.OK(r.Out, "unchecked "+it.Name)
	} else {
		ui.OK(r.Out, "checked "+it.Name)
	}
	return 0
}

func (r runner) doEdit(id int, quantity, price string) int {
	s, code := r.load()
	if code != 0 {
		return code
	}
	defer s.Close()
	it, ok := r.find(s, id)
	if !ok {
		return 2
	}
	q, p := model.ParseDetails(it, quantity, price)
	if model.Diff(it, q, p).Empty() {
		ui.OK(r.Out, "nothing to change")
		return 0
	}
	if _, err := await(s, func() { s.UpdateDetails(it, q, p) }); err != nil {
		ui.Fail("edit: " + err.Error())
		return 1
	}
	ui.OK(r.Out, fmt.Sprintf("updated %s: %d × %s", it.Name, q, ui.Money(p)))
	return 0
}

func (r runner) doRemove(id int) int {
	s, code := r.load()
	if code != 0 {
		return code
	}
	defer s.Close()
	it, ok := r.find(s, id)
	if !ok {
		return 2
	}
	if _, err := await(s, func() { s.Remove(it) }); err != nil {
		ui.Fail("rm: " + err.Error())
		return 1
	}
	ui.OK(r.Out, "removed "+it.Name)
	return 0
}

func (r runner) doExport(path string) int {
	s, code := r.load()
	if code != 0 {
		return code
	}
	defer s.Close()
	items := s.Items()
	if err := jsonstore.Save(path, items); err != nil {
		ui.Fail("export: " + err.Error())
		return 1
	}
	ui.OK(r.Out, fmt.Sprintf("exported %d items to %s", len(items), path))
	return 0
}

// -------------- auth subcommands ----------------

func (r runner) doAuthLogin() int {
	fmt.Fprint(r.Out, "Paste your token: ")
	sc := bufio.NewScanner(r.In)
	if !sc.Scan() {
		msg := "no input"
		if err := sc.Err(); err != nil {
			msg = err.Error()
		}
		ui.Fail("read token: " + msg)
		return 1
	}
	if err := auth.SetToken(r.Dir, sc.Text(), nil); err != nil {
		ui.Fail("save token: " + err.Error())
		return 1
	}
	ui.OK(r.Out, "logged in")
	return 0
}

func (r runner) doAuthLogout() int {
	ti, _ := auth.GetToken(r.Dir)
	if ti != nil && ti.Source == "env" {
		ui.OK(r.Out, "token is provided by "+auth.EnvToken+" env var (nothing to delete)")
		return 0
	}
	if err := auth.DeleteToken(r.Dir); err != nil {
		ui.Fail("logout: " + err.Error())
		return 1
	}
	ui.OK(r.Out, "logged out")
	return 0
}

func (r runner) doAuthStatus() int {
	ti, err := auth.GetToken(r.Dir)
	if err != nil {
		ui.Fail("status: " + err.Error())
		return 1
	}
	if ti == nil {
		fmt.Fprintln(r.Out, ui.Current().Muted.Render("not logged in"))
		fmt.Fprintln(r.Out, "Run: shoplist auth login")
		return 0
	}
	fmt.Fprintf(r.Out, "source: %s\n", ti.Source)
	if ti.ExpiresAt != nil {
		fmt.Fprintf(r.Out, "expires: %s\n", ti.ExpiresAt.UTC().Format(time.RFC3339))
	} else {
		fmt.Fprintln(r.Out, "expires: (unknown)")
	}
	fmt.Fprintln(r.Out, "env override: "+auth.EnvToken)
	return 0
}

// whoami decodes a JWT locally (unsigned); opaque tokens print basic info.
func (r runner) doAuthWhoAmI() int {
	ti, _ := auth.GetToken(r.Dir)
	if ti == nil {
		ui.Fail("not logged in. Run: shoplist auth login")
		return 2
	}
	if p, ok := auth.Claims(ti.Token); ok {
		fmt.Fprintln(r.Out, "JWT payload:")
		fmt.Fprintln(r.Out, p)
		return 0
	}
	fmt.Fprintln(r.Out, "Opaque token (cannot introspect locally).")
	fmt.Fprintln(r.Out, "source:", ti.Source)
	return 0
}

// -------------- rendering helpers --------------

func flatLines(items []model.Item) []string {
	if len(items) == 0 {
		return []string{ui.Current().Muted.Render("no items")}
	}
	out := make([]string, 0, len(items))
	for _, it := range items {
		id := ui.Current().Muted.Render(fmt.Sprintf("#%-3d", it.ID))
		out = append(out, id+" "+ui.Row(it))
	}
	return out
}

func groupLines(items []model.Item) []string {
	var pend, done []model.Item
	for _, it := range items {
		if it.Checked {
			done = append(done, it)
		} else {
			pend = append(pend, it)
		}
	}
	t := ui.Current()
	var lines []string
	lines = append(lines, t.Accent.Render("Pending")+"  "+t.Muted.Render(ui.Money(model.TotalCost(pend))))
	if len(pend) == 0 {
		lines = append(lines, t.Muted.Render("(none)"))
	} else {
		lines = append(lines, flatLines(pend)...)
	}
	lines = append(lines, "")
	lines = append(lines, t.Accent.Render("In cart")+"  "+t.Muted.Render(ui.Money(model.TotalCost(done))))
	if len(done) == 0 {
		lines = append(lines, t.Muted.Render("(none)"))
	} else {
		lines = append(lines, flatLines(done)...)
	}
	return lines
}
