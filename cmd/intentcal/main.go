package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/alecthomas/kong"

	"intentcal/internal/config"
	appLog "intentcal/internal/log"
)

const version = "0.1.0"

var cli struct {
	Version kong.VersionFlag
	Config  string `help:"Config file path." type:"path" default:"/etc/intentcal/config.yaml"`
	Debug   bool   `help:"Enable debug logging."`
	LogFile string `help:"Also write logs to this rotated file." type:"path" name:"log-file"`

	Serve  serveCmd  `cmd:"" help:"Run the HTTP API and background feed refresh." default:"1"`
	Ask    askCmd    `cmd:"" help:"Dispatch one intent and print the answer."`
	Events eventsCmd `cmd:"" help:"List upcoming events of a calendar."`
	Secret struct {
		Set    secretSetCmd    `cmd:"" help:"Store a secret in the OS keyring."`
		Delete secretDeleteCmd `cmd:"" help:"Remove a secret from the OS keyring."`
	} `cmd:"" help:"Manage keyring secrets referenced as keyring:<key>."`
}

func main() {
	kctx := kong.Parse(&cli,
		kong.Name("intentcal"),
		kong.Description("Intent handlers for calendar questions, conversation relay, random numbers and the time."),
		kong.UsageOnError(),
		kong.Vars{"version": version},
	)

	// Root context with cancellation on SIGINT/SIGTERM.
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		appLog.Info("signal received, shutting down", "signal", sig.String())
		cancel()
	}()

	rc, err := setup(ctx, cli.Config, cli.Debug, cli.LogFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	if err := kctx.Run(rc); err != nil {
		appLog.Error("command failed", err, "command", kctx.Command())
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// setup loads config and configures logging shared by every command.
func setup(ctx context.Context, path string, debug bool, logFile string) (*runContext, error) {
	conf, err := config.Load(path)
	if err != nil {
		if conf == nil {
			return nil, fmt.Errorf("load config %s: %w", path, err)
		}
		// First run without write access: continue on defaults.
		appLog.Warn("could not write default config", "config_path", path, "err", err)
	}

	level := appLog.ParseLevel(conf.Log.Level)
	if debug {
		level = appLog.LevelDebug
	}
	if logFile == "" {
		logFile = conf.Log.File
	}
	if err := appLog.Init(appLog.Options{Level: level, File: logFile, Caller: debug}); err != nil {
		return nil, fmt.Errorf("init logging: %w", err)
	}

	appLog.Debug("effective config",
		"config_path", path,
		"listen", conf.Listen,
		"timezone", conf.Timezone,
		"language", conf.Language,
		"refresh", conf.RefreshCron,
		"calendars", len(conf.Calendars),
		"agents", len(conf.Agents),
	)

	return &runContext{ctx: ctx, cfg: conf, out: os.Stdout, in: os.Stdin}, nil
}
