package listsync

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/idilsaglam/shoplist/internal/api"
	"github.com/idilsaglam/shoplist/internal/model"
)

var (
	errDown     = &api.TransportError{Op: "test", Err: errors.New("connection refused")}
	errRejected = &api.StatusError{Op: "test", Code: http.StatusInternalServerError}
)

// scriptedAPI answers from fixed values and counts calls.
type scriptedAPI struct {
	mu sync.Mutex

	list    []model.Item
	created model.Item

	listErr, createErr, checkErr, updateErr, deleteErr error

	calls   []string
	updates []model.DetailsUpdate
}

func (f *scriptedAPI) record(name string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, name)
}

func (f *scriptedAPI) Calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

func (f *scriptedAPI) ListItems(context.Context) ([]model.Item, error) {
	f.record("list")
	if f.listErr != nil {
		return nil, f.listErr
	}
	return append([]model.Item(nil), f.list...), nil
}

func (f *scriptedAPI) CreateItem(_ context.Context, draft model.Item) (model.Item, error) {
	f.record("create")
	if f.createErr != nil {
		return model.Item{}, f.createErr
	}
	out := f.created
	out.Name, out.Quantity, out.UnitPrice = draft.Name, draft.Quantity, draft.UnitPrice
	return out, nil
}

func (f *scriptedAPI) SetChecked(context.Context, int, bool) error {
	f.record("check")
	return f.checkErr
}

func (f *scriptedAPI) UpdateDetails(_ context.Context, _ int, u model.DetailsUpdate) error {
	f.record("update")
	f.mu.Lock()
	f.updates = append(f.updates, u)
	f.mu.Unlock()
	return f.updateErr
}

func (f *scriptedAPI) DeleteItem(context.Context, int) error {
	f.record("delete")
	return f.deleteErr
}

// call is one request seen by chanAPI. The test answers it by sending on
// reply (and items/item for the calls that return data).
type call struct {
	name    string
	id      int
	checked bool
	update  model.DetailsUpdate
	reply   chan reply
}

type reply struct {
	items []model.Item
	item  model.Item
	err   error
}

// chanAPI hands every call to the test over Calls and blocks until the
// test replies, so the test decides when and in which order each network
// call completes.
type chanAPI struct {
	t     *testing.T
	Calls chan *call
}

func newChanAPI(t *testing.T) *chanAPI {
	return &chanAPI{t: t, Calls: make(chan *call)}
}

func (c *chanAPI) roundTrip(ctx context.Context, cl *call) reply {
	cl.reply = make(chan reply, 1)
	select {
	case c.Calls <- cl:
	case <-ctx.Done():
		return reply{err: &api.TransportError{Op: cl.name, Err: ctx.Err()}}
	}
	select {
	case r := <-cl.reply:
		return r
	case <-ctx.Done():
		return reply{err: &api.TransportError{Op: cl.name, Err: ctx.Err()}}
	}
}

func (c *chanAPI) ListItems(ctx context.Context) ([]model.Item, error) {
	r := c.roundTrip(ctx, &call{name: "list"})
	return r.items, r.err
}

func (c *chanAPI) CreateItem(ctx context.Context, draft model.Item) (model.Item, error) {
	r := c.roundTrip(ctx, &call{name: "create"})
	return r.item, r.err
}

func (c *chanAPI) SetChecked(ctx context.Context, id int, checked bool) error {
	return c.roundTrip(ctx, &call{name: "check", id: id, checked: checked}).err
}

func (c *chanAPI) UpdateDetails(ctx context.Context, id int, u model.DetailsUpdate) error {
	return c.roundTrip(ctx, &call{name: "update", id: id, update: u}).err
}

func (c *chanAPI) DeleteItem(ctx context.Context, id int) error {
	return c.roundTrip(ctx, &call{name: "delete", id: id}).err
}

// Expect receives the next call and fails the test if it is not name.
func (c *chanAPI) Expect(name string) *call {
	c.t.Helper()
	select {
	case cl := <-c.Calls:
		if cl.name != name {
			c.t.Fatalf("expected %s call, got %s", name, cl.name)
		}
		return cl
	case <-time.After(2 * time.Second):
		c.t.Fatalf("timed out waiting for %s call", name)
		return nil
	}
}

// AssertNoCall fails if a call arrives within a short window.
func (c *chanAPI) AssertNoCall() {
	c.t.Helper()
	select {
	case cl := <-c.Calls:
		c.t.Fatalf("did not expect a call, got %s", cl.name)
	case <-time.After(20 * time.Millisecond):
	}
}
