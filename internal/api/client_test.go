package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/idilsaglam/shoplist/internal/model"
)

type recorded struct {
	Method string
	Path   string
	Body   string
	Auth   string
	ReqID  string
}

type recorder struct {
	mu   sync.Mutex
	reqs []recorded
}

func (r *recorder) add(rec recorded) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.reqs = append(r.reqs, rec)
}

func (r *recorder) all() []recorded {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]recorded(nil), r.reqs...)
}

func (r *recorder) first(t *testing.T) recorded {
	t.Helper()
	reqs := r.all()
	if len(reqs) == 0 {
		t.Fatal("server saw no request")
	}
	return reqs[0]
}

// newTestServer answers every request with status and body and records
// what it received.
func newTestServer(t *testing.T, status int, body string) (*Client, *recorder) {
	t.Helper()
	got := &recorder{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b, _ := io.ReadAll(r.Body)
		got.add(recorded{
			Method: r.Method,
			Path:   r.URL.Path,
			Body:   string(b),
			Auth:   r.Header.Get("Authorization"),
			ReqID:  r.Header.Get("X-Request-Id"),
		})
		w.WriteHeader(status)
		io.WriteString(w, body)
	}))
	t.Cleanup(srv.Close)

	c, err := New(srv.URL+"/", WithToken("secret"))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return c, got
}

func TestNewRejectsBadURL(t *testing.T) {
	for _, in := range []string{"", "ftp://example.com", "://nope"} {
		if _, err := New(in); err == nil {
			t.Errorf("New(%q) error = nil, want error", in)
		}
	}
}

func TestListItems(t *testing.T) {
	c, got := newTestServer(t, http.StatusOK,
		`[{"id":1,"name":"Milk","quantity":2,"price":3.5,"is_checked":false,"created_at":"2024-01-01 10:00:00"}]`)

	items, err := c.ListItems(context.Background())
	if err != nil {
		t.Fatalf("ListItems() error = %v", err)
	}
	want := []model.Item{{ID: 1, Name: "Milk", Quantity: 2, UnitPrice: 3.5, CreatedAt: "2024-01-01 10:00:00"}}
	if diff := cmp.Diff(want, items); diff != "" {
		t.Errorf("ListItems() mismatch (-want +got):\n%s", diff)
	}

	r := got.first(t)
	if r.Method != http.MethodGet || r.Path != "/items" {
		t.Errorf("request = %s %s, want GET /items", r.Method, r.Path)
	}
	if r.Auth != "Bearer secret" {
		t.Errorf("Authorization = %q", r.Auth)
	}
	if r.ReqID == "" {
		t.Error("X-Request-Id not set")
	}
}

func TestListItemsEmptyArrayAndNull(t *testing.T) {
	for _, body := range []string{"[]", "null"} {
		c, _ := newTestServer(t, http.StatusOK, body)
		items, err := c.ListItems(context.Background())
		if err != nil {
			t.Fatalf("ListItems(%s) error = %v", body, err)
		}
		if items == nil || len(items) != 0 {
			t.Errorf("ListItems(%s) = %#v, want empty non-nil", body, items)
		}
	}
}

func TestCreateItemOmitsID(t *testing.T) {
	c, got := newTestServer(t, http.StatusCreated,
		`{"id":2,"name":"Bread","quantity":1,"price":2,"is_checked":false,"created_at":"2024-01-02 09:00:00"}`)

	created, err := c.CreateItem(context.Background(), model.Item{ID: 99, Name: "Bread", Quantity: 1, UnitPrice: 2})
	if err != nil {
		t.Fatalf("CreateItem() error = %v", err)
	}
	if created.ID != 2 || created.CreatedAt == "" {
		t.Errorf("CreateItem() = %+v, want server id and timestamp", created)
	}

	r := got.first(t)
	if r.Method != http.MethodPost || r.Path != "/items" {
		t.Errorf("request = %s %s, want POST /items", r.Method, r.Path)
	}
	var sent map[string]any
	if err := json.Unmarshal([]byte(r.Body), &sent); err != nil {
		t.Fatalf("body %q: %v", r.Body, err)
	}
	want := map[string]any{"name": "Bread", "quantity": 1.0, "price": 2.0, "is_checked": false}
	if diff := cmp.Diff(want, sent); diff != "" {
		t.Errorf("create body mismatch (-want +got):\n%s", diff)
	}
}

func TestSetChecked(t *testing.T) {
	c, got := newTestServer(t, http.StatusNoContent, "")
	if err := c.SetChecked(context.Background(), 7, true); err != nil {
		t.Fatalf("SetChecked() error = %v", err)
	}
	want := recorded{Method: http.MethodPut, Path: "/items/7/check", Body: `{"is_checked":true}`, Auth: "Bearer secret"}
	if diff := cmp.Diff(want, got.first(t), cmp.FilterPath(func(p cmp.Path) bool {
		return p.String() == "ReqID"
	}, cmp.Ignore())); diff != "" {
		t.Errorf("request mismatch (-want +got):\n%s", diff)
	}
}

func TestUpdateDetailsSendsOnlyChangedFields(t *testing.T) {
	cur := model.Item{ID: 3, Quantity: 2, UnitPrice: 3.5}
	tests := []struct {
		name     string
		qty      int
		price    float64
		wantBody string
	}{
		{"quantity", 5, 3.5, `{"quantity":5}`},
		{"price", 2, 1.25, `{"price":1.25}`},
		{"both", 4, 1.25, `{"quantity":4,"price":1.25}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, got := newTestServer(t, http.StatusNoContent, "")
			if err := c.UpdateDetails(context.Background(), cur.ID, model.Diff(cur, tt.qty, tt.price)); err != nil {
				t.Fatalf("UpdateDetails() error = %v", err)
			}
			r := got.first(t)
			if r.Method != http.MethodPut || r.Path != "/items/3" {
				t.Errorf("request = %s %s, want PUT /items/3", r.Method, r.Path)
			}
			if r.Body != tt.wantBody {
				t.Errorf("body = %s, want %s", r.Body, tt.wantBody)
			}
		})
	}
}

func TestDeleteItem(t *testing.T) {
	c, got := newTestServer(t, http.StatusOK, "")
	if err := c.DeleteItem(context.Background(), 4); err != nil {
		t.Fatalf("DeleteItem() error = %v", err)
	}
	r := got.first(t)
	if r.Method != http.MethodDelete || r.Path != "/items/4" || r.Body != "" {
		t.Errorf("request = %+v, want DELETE /items/4 without body", r)
	}
}

func TestBasePathIsKept(t *testing.T) {
	paths := make(chan string, 1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		paths <- r.URL.Path
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	c, err := New(srv.URL + "/api/v1/")
	if err != nil {
		t.Fatal(err)
	}
	if err := c.DeleteItem(context.Background(), 1); err != nil {
		t.Fatal(err)
	}
	if path := <-paths; path != "/api/v1/items/1" {
		t.Errorf("path = %s, want /api/v1/items/1", path)
	}
}

func TestStatusError(t *testing.T) {
	c, _ := newTestServer(t, http.StatusNotFound, "item not found\n")
	err := c.DeleteItem(context.Background(), 1)

	var se *StatusError
	if !errors.As(err, &se) {
		t.Fatalf("error = %T %v, want *StatusError", err, err)
	}
	if se.Code != http.StatusNotFound || se.Body != "item not found" {
		t.Errorf("StatusError = %+v", se)
	}
	if !errors.Is(err, ErrNetwork) {
		t.Error("StatusError does not match ErrNetwork")
	}
}

func TestDecodeError(t *testing.T) {
	c, _ := newTestServer(t, http.StatusOK, "{not json")
	_, err := c.ListItems(context.Background())

	var de *DecodeError
	if !errors.As(err, &de) {
		t.Fatalf("error = %T %v, want *DecodeError", err, err)
	}
	if !errors.Is(err, ErrNetwork) {
		t.Error("DecodeError does not match ErrNetwork")
	}
}

func TestTransportError(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	c, err := New(url)
	if err != nil {
		t.Fatal(err)
	}
	err = c.SetChecked(context.Background(), 1, true)

	var te *TransportError
	if !errors.As(err, &te) {
		t.Fatalf("error = %T %v, want *TransportError", err, err)
	}
	if !errors.Is(err, ErrNetwork) {
		t.Error("TransportError does not match ErrNetwork")
	}
}

func TestCancelledContextIsTransportError(t *testing.T) {
	c, got := newTestServer(t, http.StatusOK, "[]")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := c.ListItems(ctx)
	var te *TransportError
	if !errors.As(err, &te) || !errors.Is(err, context.Canceled) {
		t.Fatalf("error = %v, want transport error wrapping context.Canceled", err)
	}
	if len(got.all()) != 0 {
		t.Errorf("server saw %d requests, want 0", len(got.all()))
	}
}
