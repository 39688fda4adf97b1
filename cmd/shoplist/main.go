package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/pflag"

	"github.com/idilsaglam/shoplist/internal/cli"
	"github.com/idilsaglam/shoplist/internal/config"
	"github.com/idilsaglam/shoplist/internal/ui"
)

func main() {
	// Root flags (apply to every subcommand)
	fs := pflag.NewFlagSet("shoplist", pflag.ContinueOnError)
	fs.SetInterspersed(false)
	apiURL := fs.String("api-url", "", "base URL of the shopping-list service")
	cfgPath := fs.String("config", "", "config file (default <config dir>/config.toml)")
	theme := fs.String("theme", "", "classic, neon or mono")
	logLevel := fs.String("log-level", "", "debug, info, warn or error")
	logFile := fs.String("log-file", "", "append logs to this file")
	group := fs.Bool("group", false, "group output by pending/checked")
	fs.Usage = func() { cli.PrintHelp(os.Stderr) }
	if err := fs.Parse(os.Args[1:]); err != nil {
		if err == pflag.ErrHelp {
			os.Exit(0)
		}
		os.Exit(2)
	}

	dir, err := config.Dir()
	if err != nil {
		ui.Fail(err.Error())
		os.Exit(1)
	}
	cfg, err := config.Load(*cfgPath)
	if err != nil {
		ui.Fail(err.Error())
		os.Exit(1)
	}
	if fs.Changed("api-url") {
		cfg.APIURL = *apiURL
	}
	if fs.Changed("theme") {
		cfg.Theme = *theme
	}
	if fs.Changed("log-level") {
		cfg.LogLevel = *logLevel
	}
	if fs.Changed("log-file") {
		cfg.LogFile = *logFile
	}
	ui.SetTheme(cfg.Theme)

	args := fs.Args()
	if len(args) == 0 {
		cli.PrintHelp(os.Stderr)
		os.Exit(2)
	}

	// The interactive screen owns the terminal, so its logs go to a file.
	if cfg.LogFile == "" && args[0] == "ls" {
		cfg.LogFile = filepath.Join(dir, "shoplist.log")
	}
	logger, closeLog, err := newLogger(cfg)
	if err != nil {
		ui.Fail(err.Error())
		os.Exit(1)
	}
	slog.SetDefault(logger)

	code := cli.Run(args, cli.Options{
		Group:  *group,
		Config: cfg,
		Dir:    dir,
		Logger: logger,
	})
	closeLog()
	if code != 0 {
		fmt.Fprintln(os.Stderr)
	}
	os.Exit(code)
}

func newLogger(cfg config.Config) (*slog.Logger, func(), error) {
	level, err := config.ParseLevel(cfg.LogLevel)
	if err != nil {
		return nil, nil, err
	}
	var w io.Writer = os.Stderr
	closeFn := func() {}
	if cfg.LogFile != "" {
		if err := os.MkdirAll(filepath.Dir(cfg.LogFile), 0o700); err != nil {
			return nil, nil, fmt.Errorf("log dir: %w", err)
		}
		f, err := os.OpenFile(cfg.LogFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
		if err != nil {
			return nil, nil, fmt.Errorf("open log file: %w", err)
		}
		w = f
		closeFn = func() { f.Close() }
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level})), closeFn, nil
}
