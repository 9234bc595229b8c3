package main

import (
	"fmt"
	"log"
	"log/slog"
	"os"
	"runtime/debug"

	"github.com/urfave/cli/v2"

	"github.com/tomek7667/sysmon/internal/config"
	"github.com/tomek7667/sysmon/internal/http"
	"github.com/tomek7667/sysmon/internal/mqtt"
	"github.com/tomek7667/sysmon/internal/stats"
)

func main() {
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, nil)))

	app := &cli.App{
		Name:        "sysmon",
		Description: "live host resource monitor with a json api and a browser dashboard",
		Usage:       "serve the monitoring dashboard (use subcommands to manage the binary)",
		Version:     appVersion(),
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "host",
				EnvVars: []string{"HOST"},
				Value:   "127.0.0.1",
				Usage:   "address to listen on",
			},
			&cli.IntFlag{
				Name:    "port",
				Aliases: []string{"p"},
				EnvVars: []string{"PORT"},
				Value:   5000,
				Usage:   "port to listen on",
			},
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "path to a yaml config file",
			},
		},
		Commands: []*cli.Command{
			cmdService(),
			cmdUpdate(),
			cmdCompleteUpdate(),
		},
		CommandNotFound: func(c *cli.Context, command string) {
			fmt.Fprintf(os.Stderr, "unknown command %q\n\n", command)
			cli.ShowAppHelpAndExit(c, 1)
		},
		Action: func(c *cli.Context) error {
			cfg, err := resolveConfig(c)
			if err != nil {
				return err
			}
			server, publisher := buildServer(cfg)
			if publisher != nil {
				defer publisher.Close()
			}
			return server.Serve()
		},
		BashComplete: cli.ShowCompletions,
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

// resolveConfig layers explicit --host/--port flags (or HOST/PORT
// environment variables) over the optional config file.
func resolveConfig(c *cli.Context) (*config.Config, error) {
	cfg, err := config.Load(c.String("config"))
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if c.IsSet("host") {
		cfg.Host = c.String("host")
	}
	if c.IsSet("port") {
		cfg.Port = c.Int("port")
	}
	return cfg, nil
}

// buildServer wires the collector, the routes and the optional MQTT
// telemetry publisher.
func buildServer(cfg *config.Config) (*http.Server, *mqtt.Publisher) {
	collector := stats.NewCollector()
	server := http.New(cfg.Host, cfg.Port, collector)
	server.AddAPIRoutes()
	server.AddDashboardRoute()

	var publisher *mqtt.Publisher
	if cfg.MQTT.Enabled {
		hostname, err := os.Hostname()
		if err != nil {
			hostname = "sysmon"
		}
		publisher = mqtt.New(cfg.MQTT, hostname)
		server.AttachPublisher(publisher)
	}
	return server, publisher
}

func appVersion() string {
	bi, ok := debug.ReadBuildInfo()
	if !ok {
		return "unknown"
	}
	return printableVersion(metaFromBuildInfo(bi))
}
