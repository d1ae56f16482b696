package main

import (
	"flag"
	"log/slog"
	"os"

	"freightcli/internal/app"
	"freightcli/internal/config"
)

func main() {
	configFile := flag.String("config", "", "config file (defaults to FREIGHT_CONFIG or config.yaml)")
	port := flag.Int("port", 0, "listen port (overrides the configured port)")
	open := flag.Bool("open", false, "open the browser once the server is ready")
	flag.Parse()

	cfg, err := loadConfig(*configFile)
	if err != nil {
		slog.Error("Failed to load configuration", slog.String("error", err.Error()))
		os.Exit(1)
	}
	if *port > 0 {
		cfg.Server.Port = *port
	}
	if *open {
		cfg.Report.OpenBrowser = true
	}

	application, err := app.NewApplication(cfg)
	if err != nil {
		slog.Error("Failed to initialize application", slog.String("error", err.Error()))
		os.Exit(1)
	}

	if err := application.Run(); err != nil {
		slog.Error("Application error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

func loadConfig(path string) (*config.Config, error) {
	if path == "" {
		return config.Load()
	}
	return config.LoadFile(path)
}
