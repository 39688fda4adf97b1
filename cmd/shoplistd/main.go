// Command shoplistd serves the shopping-list REST API on SQLite for local
// development.
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/pflag"
	"golang.org/x/sync/errgroup"

	"github.com/idilsaglam/shoplist/internal/config"
	"github.com/idilsaglam/shoplist/internal/model"
	"github.com/idilsaglam/shoplist/internal/server"
	"github.com/idilsaglam/shoplist/internal/store/sqlstore"
)

var sample = []model.Item{
	{Name: "Eggs", Quantity: 12, UnitPrice: 0.25},
	{Name: "Bread", Quantity: 1, UnitPrice: 2.1},
	{Name: "Milk", Quantity: 2, UnitPrice: 3.5},
}

func main() {
	addr := pflag.String("addr", ":3000", "listen address")
	dbPath := pflag.String("db", "tmp/shoplist.db", "SQLite database file (:memory: for a throwaway list)")
	token := pflag.String("token", os.Getenv("SHOPLIST_TOKEN"), "required bearer token (empty disables auth)")
	seed := pflag.Bool("seed", false, "insert sample items into an empty database")
	logLevel := pflag.String("log-level", "info", "debug, info, warn or error")
	pflag.Parse()

	level, err := config.ParseLevel(*logLevel)
	if err != nil {
		slog.Error("bad flag", "error", err)
		os.Exit(2)
	}
	log := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level}))

	if err := run(*addr, *dbPath, *token, *seed, log); err != nil {
		log.Error("exit", "error", err)
		os.Exit(1)
	}
}

func run(addr, dbPath, token string, seed bool, log *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	st, err := sqlstore.Open(dbPath)
	if err != nil {
		return err
	}
	defer st.Close()
	if seed {
		if err := st.Seed(ctx, sample); err != nil {
			return err
		}
	}

	app := &server.App{Store: st, Log: log, Token: token}
	srv := &http.Server{
		Addr:              addr,
		Handler:           app.Routes(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("listening", "addr", addr, "db", dbPath, "auth", token != "")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		log.Info("shutting down")
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}
