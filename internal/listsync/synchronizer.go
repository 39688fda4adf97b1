// Package listsync owns the local shopping list and keeps it in step with
// the REST service.
//
// Every operation is fire-and-forget: it starts a goroutine, waits for the
// network call, then applies the outcome to the local list under a mutex
// and notifies observers. Nothing orders two operations on the same item;
// the last response to arrive wins.
package listsync

import (
	"context"
	"errors"
	"log/slog"
	"slices"
	"sync"

	"github.com/idilsaglam/shoplist/internal/api"
	"github.com/idilsaglam/shoplist/internal/model"
)

// API is the remote side of the list. *api.Client implements it.
type API interface {
	ListItems(ctx context.Context) ([]model.Item, error)
	CreateItem(ctx context.Context, draft model.Item) (model.Item, error)
	SetChecked(ctx context.Context, id int, checked bool) error
	UpdateDetails(ctx context.Context, id int, u model.DetailsUpdate) error
	DeleteItem(ctx context.Context, id int) error
}

// State is an immutable copy of the synchronizer's state.
type State struct {
	Items   []model.Item
	Loading bool
}

// TotalCost is recomputed from Items on every call.
func (s State) TotalCost() float64 { return model.TotalCost(s.Items) }

type Synchronizer struct {
	api    API
	logger *slog.Logger

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu        sync.Mutex
	closed    bool
	items     []model.Item
	loading   bool
	observers map[int]func(Event)
	nextObs   int
}

// New returns a synchronizer with an empty list. A nil logger means
// slog.Default().
func New(a API, logger *slog.Logger) *Synchronizer {
	if logger == nil {
		logger = slog.Default()
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Synchronizer{
		api:       a,
		logger:    logger,
		ctx:       ctx,
		cancel:    cancel,
		items:     []model.Item{},
		observers: map[int]func(Event){},
	}
}

// Snapshot copies the current state.
func (s *Synchronizer) Snapshot() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return State{Items: slices.Clone(s.items), Loading: s.loading}
}

func (s *Synchronizer) Items() []model.Item { return s.Snapshot().Items }

func (s *Synchronizer) Loading() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loading
}

// TotalCost sums the line totals of the current items.
func (s *Synchronizer) TotalCost() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return model.TotalCost(s.items)
}

// Subscribe registers fn for every Event. fn runs on the operation's
// goroutine, outside the lock; it must not block for long.
func (s *Synchronizer) Subscribe(fn func(Event)) (unsubscribe func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.nextObs
	s.nextObs++
	s.observers[id] = fn
	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.observers, id)
	}
}

// Wait blocks until every operation started so far has finished.
func (s *Synchronizer) Wait() { s.wg.Wait() }

// Close cancels every in-flight call and waits for the goroutines to
// return. Operations started after Close are ignored.
func (s *Synchronizer) Close() {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
	s.cancel()
	s.wg.Wait()
}

// Refresh replaces the whole list with the server's. Loading is set for
// the duration of the call and cleared whatever the outcome.
func (s *Synchronizer) Refresh() {
	s.launch(func(ctx context.Context) {
		s.setLoading(true)
		s.emit(Event{Op: OpRefresh, Started: true})

		var err error
		defer func() {
			s.setLoading(false)
			s.emit(Event{Op: OpRefresh, Err: err})
		}()

		var items []model.Item
		items, err = s.api.ListItems(ctx)
		if err != nil {
			s.logFailure(OpRefresh, 0, err)
			return
		}
		s.mu.Lock()
		s.items = dedupe(items)
		s.mu.Unlock()
	})
}

// Create posts a new item and prepends the server's copy once confirmed.
// Nothing is inserted locally before that.
func (s *Synchronizer) Create(name string, quantity int, unitPrice float64) {
	draft := model.Item{Name: name, Quantity: quantity, UnitPrice: unitPrice}
	s.launch(func(ctx context.Context) {
		created, err := s.api.CreateItem(ctx, draft)
		if err != nil {
			s.logFailure(OpCreate, 0, err)
			s.emit(Event{Op: OpCreate, Err: err})
			return
		}
		s.mu.Lock()
		s.items = slices.Insert(slices.DeleteFunc(s.items, func(it model.Item) bool {
			return it.ID == created.ID
		}), 0, created)
		s.mu.Unlock()
		s.emit(Event{Op: OpCreate, ItemID: created.ID})
	})
}

// Toggle flips the checked flag of item. The local item changes only once
// the server has confirmed.
func (s *Synchronizer) Toggle(item model.Item) {
	checked := !item.Checked
	s.launch(func(ctx context.Context) {
		if err := s.api.SetChecked(ctx, item.ID, checked); err != nil {
			s.logFailure(OpToggle, item.ID, err)
			s.emit(Event{Op: OpToggle, ItemID: item.ID, Err: err})
			return
		}
		s.apply(item.ID, func(it *model.Item) { it.Checked = checked })
		s.emit(Event{Op: OpToggle, ItemID: item.ID})
	})
}

// UpdateDetails sends the fields of quantity and unitPrice that differ
// from item, then applies both values locally.
//
// Unlike Toggle, the local change does not wait for a successful status:
// a rejected update (*api.StatusError) is logged and applied anyway. Only
// a call that never completed, a transport failure, leaves the item as it
// was. When nothing differs no request is sent.
func (s *Synchronizer) UpdateDetails(item model.Item, quantity int, unitPrice float64) {
	update := model.Diff(item, quantity, unitPrice)
	s.launch(func(ctx context.Context) {
		if update.Empty() {
			s.emit(Event{Op: OpUpdateDetails, ItemID: item.ID})
			return
		}
		err := s.api.UpdateDetails(ctx, item.ID, update)
		if err != nil {
			s.logFailure(OpUpdateDetails, item.ID, err)
			if aborted(err) {
				s.emit(Event{Op: OpUpdateDetails, ItemID: item.ID, Err: err})
				return
			}
		}
		s.apply(item.ID, func(it *model.Item) {
			it.Quantity = quantity
			it.UnitPrice = unitPrice
		})
		s.emit(Event{Op: OpUpdateDetails, ItemID: item.ID, Err: err})
	})
}

// Remove deletes item and drops it locally once the server confirms.
func (s *Synchronizer) Remove(item model.Item) {
	s.launch(func(ctx context.Context) {
		if err := s.api.DeleteItem(ctx, item.ID); err != nil {
			s.logFailure(OpRemove, item.ID, err)
			s.emit(Event{Op: OpRemove, ItemID: item.ID, Err: err})
			return
		}
		s.mu.Lock()
		s.items = slices.DeleteFunc(s.items, func(it model.Item) bool { return it.ID == item.ID })
		s.mu.Unlock()
		s.emit(Event{Op: OpRemove, ItemID: item.ID})
	})
}

func (s *Synchronizer) launch(fn func(ctx context.Context)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		fn(s.ctx)
	}()
}

func (s *Synchronizer) setLoading(v bool) {
	s.mu.Lock()
	s.loading = v
	s.mu.Unlock()
}

// apply mutates the item with id in place. A missing id is a no-op.
func (s *Synchronizer) apply(id int, fn func(*model.Item)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if i := model.IndexOf(s.items, id); i >= 0 {
		fn(&s.items[i])
	}
}

func (s *Synchronizer) emit(ev Event) {
	s.mu.Lock()
	fns := make([]func(Event), 0, len(s.observers))
	for _, fn := range s.observers {
		fns = append(fns, fn)
	}
	s.mu.Unlock()
	for _, fn := range fns {
		fn(ev)
	}
}

func (s *Synchronizer) logFailure(op Op, id int, err error) {
	s.logger.Error("operation failed", "op", op.String(), "id", id, "error", err)
}

// aborted reports whether err means the exchange never completed.
func aborted(err error) bool {
	var te *api.TransportError
	return errors.As(err, &te) || errors.Is(err, context.Canceled)
}

// dedupe keeps the first item for each id. Server-assigned ids are
// unique, but the local list must stay id-unique regardless.
func dedupe(items []model.Item) []model.Item {
	seen := make(map[int]bool, len(items))
	out := make([]model.Item, 0, len(items))
	for _, it := range items {
		if seen[it.ID] {
			continue
		}
		seen[it.ID] = true
		out = append(out, it)
	}
	return out
}
