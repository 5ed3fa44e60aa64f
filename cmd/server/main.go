package main

import (
	"fmt"
	"log/slog"
	"os"

	flag "github.com/spf13/pflag"

	"github.com/linechat/linechat/pkg/logging"
	"github.com/linechat/linechat/pkg/server"
	"github.com/linechat/linechat/pkg/version"
)

func main() {
	cfg := server.DefaultConfig()

	fs := flag.NewFlagSet("linechatd", flag.ExitOnError)
	configPath := fs.StringP("config", "c", "", "YAML config file")
	addr := fs.StringP("addr", "a", cfg.Addr, "TCP bind address")
	wsAddr := fs.String("ws", cfg.WSAddr, "WebSocket gateway bind address (empty to disable)")
	metricsAddr := fs.String("metrics", cfg.MetricsAddr, "HTTP bind address for /metrics (empty to disable)")
	greeting := fs.String("greeting", cfg.Greeting, "Greeting line sent on accept")
	idleTimeout := fs.Duration("idle-timeout", cfg.IdleTimeout, "Inactivity deadline for logged-in sessions")
	reapInterval := fs.Duration("reap-interval", cfg.ReapInterval, "Idle sweep period")
	logLevel := fs.String("log-level", "info", "Log level: "+logging.LevelNames())
	logFormat := fs.String("log-format", "text", "Log format: text or json")
	showVersion := fs.BoolP("version", "V", false, "Print version and exit")
	_ = fs.Parse(os.Args[1:])

	if *showVersion {
		fmt.Println("linechatd", version.String())
		return
	}

	if err := logging.Setup(logging.Options{Level: *logLevel, Format: *logFormat}); err != nil {
		fmt.Fprintf(os.Stderr, "invalid logging config: %v\n", err)
		os.Exit(1)
	}

	// Precedence: defaults < config file < environment < flags.
	if *configPath != "" {
		if err := server.LoadFile(*configPath, &cfg); err != nil {
			slog.Error("load config", "path", *configPath, "err", err)
			os.Exit(1)
		}
	}
	server.LoadFromEnv(&cfg)
	if fs.Changed("addr") {
		cfg.Addr = *addr
	}
	if fs.Changed("ws") {
		cfg.WSAddr = *wsAddr
	}
	if fs.Changed("metrics") {
		cfg.MetricsAddr = *metricsAddr
	}
	if fs.Changed("greeting") {
		cfg.Greeting = *greeting
	}
	if fs.Changed("idle-timeout") {
		cfg.IdleTimeout = *idleTimeout
	}
	if fs.Changed("reap-interval") {
		cfg.ReapInterval = *reapInterval
	}

	srv := server.New(cfg)
	if err := srv.Run(); err != nil {
		slog.Error("server error", "err", err)
		os.Exit(1)
	}
}
