// Package server is a development stand-in for the shopping-list REST
// service, backed by sqlstore.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/idilsaglam/shoplist/internal/model"
	"github.com/idilsaglam/shoplist/internal/store/sqlstore"
)

// Store is what the handlers need from persistence.
type Store interface {
	Ping(ctx context.Context) error
	List(ctx context.Context) ([]model.Item, error)
	Create(ctx context.Context, draft model.Item) (model.Item, error)
	SetChecked(ctx context.Context, id int, checked bool) error
	UpdateDetails(ctx context.Context, id int, u model.DetailsUpdate) error
	Delete(ctx context.Context, id int) error
}

type App struct {
	Store Store
	Log   *slog.Logger
	Token string // required bearer token; empty disables auth
}

// Routes builds the HTTP handler.
func (app *App) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(app.logRequests)

	r.Get("/healthz", healthz)
	r.Get("/readyz", app.readyz)

	r.Group(func(r chi.Router) {
		r.Use(app.requireToken)
		r.Get("/items", app.listItems)
		r.Post("/items", app.createItem)
		r.Put("/items/{id}/check", app.setChecked)
		r.Put("/items/{id}", app.updateDetails)
		r.Delete("/items/{id}", app.deleteItem)
	})
	return r
}

func healthz(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("ok"))
}

func (app *App) readyz(w http.ResponseWriter, r *http.Request) {
	if err := app.Store.Ping(r.Context()); err != nil {
		http.Error(w, "DB Not Ready", http.StatusServiceUnavailable)
		return
	}
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("ready"))
}

func (app *App) listItems(w http.ResponseWriter, r *http.Request) {
	items, err := app.Store.List(r.Context())
	if err != nil {
		app.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, items)
}

func (app *App) createItem(w http.ResponseWriter, r *http.Request) {
	var draft model.Item
	if !decode(w, r, &draft) {
		return
	}
	draft.Name = strings.TrimSpace(draft.Name)
	switch {
	case draft.Name == "":
		http.Error(w, "name is required", http.StatusBadRequest)
		return
	case draft.Quantity < 1:
		http.Error(w, "quantity must be at least 1", http.StatusBadRequest)
		return
	case draft.UnitPrice < 0:
		http.Error(w, "price must not be negative", http.StatusBadRequest)
		return
	}
	created, err := app.Store.Create(r.Context(), draft)
	if err != nil {
		app.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

func (app *App) setChecked(w http.ResponseWriter, r *http.Request) {
	id, ok := itemID(w, r)
	if !ok {
		return
	}
	var body struct {
		Checked *bool `json:"is_checked"`
	}
	if !decode(w, r, &body) {
		return
	}
	if body.Checked == nil {
		http.Error(w, "is_checked is required", http.StatusBadRequest)
		return
	}
	if err := app.Store.SetChecked(r.Context(), id, *body.Checked); err != nil {
		app.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (app *App) updateDetails(w http.ResponseWriter, r *http.Request) {
	id, ok := itemID(w, r)
	if !ok {
		return
	}
	var u model.DetailsUpdate
	if !decode(w, r, &u) {
		return
	}
	if u.Quantity != nil && *u.Quantity < 1 {
		http.Error(w, "quantity must be at least 1", http.StatusBadRequest)
		return
	}
	if u.UnitPrice != nil && *u.UnitPrice < 0 {
		http.Error(w, "price must not be negative", http.StatusBadRequest)
		return
	}
	if err := app.Store.UpdateDetails(r.Context(), id, u); err != nil {
		app.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (app *App) deleteItem(w http.ResponseWriter, r *http.Request) {
	id, ok := itemID(w, r)
	if !ok {
		return
	}
	if err := app.Store.Delete(r.Context(), id); err != nil {
		app.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (app *App) fail(w http.ResponseWriter, r *http.Request, err error) {
	if errors.Is(err, sqlstore.ErrNotFound) {
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	}
	app.Log.Error("request failed", "path", r.URL.Path, "request_id", middleware.GetReqID(r.Context()), "error", err)
	http.Error(w, "internal error", http.StatusInternalServerError)
}

func itemID(w http.ResponseWriter, r *http.Request) (int, bool) {
	id, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil || id < 1 {
		http.Error(w, "invalid item id", http.StatusBadRequest)
		return 0, false
	}
	return id, true
}

func decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		http.Error(w, "invalid JSON body: "+err.Error(), http.StatusBadRequest)
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func (app *App) requireToken(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if app.Token != "" && r.Header.Get("Authorization") != "Bearer "+app.Token {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (app *App) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		app.Log.Info("request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"duration", time.Since(start),
			"request_id", middleware.GetReqID(r.Context()),
		)
	})
}
