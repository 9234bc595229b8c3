package main

import (
	"context"
	"fmt"
	"time"

	"github.com/kardianos/service"
	"github.com/urfave/cli/v2"

	"github.com/tomek7667/sysmon/internal/config"
	"github.com/tomek7667/sysmon/internal/http"
	"github.com/tomek7667/sysmon/internal/mqtt"
)

const serviceStopTimeout = 5 * time.Second

// program adapts the server lifecycle to the service manager contract:
// Start must not block, Stop must bring the listener down cleanly.
type program struct {
	cfg *config.Config

	server    *http.Server
	publisher *mqtt.Publisher
}

func (p *program) Start(service.Service) error {
	p.server, p.publisher = buildServer(p.cfg)
	return p.server.Start()
}

func (p *program) Stop(service.Service) error {
	if p.publisher != nil {
		p.publisher.Close()
	}
	if p.server == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), serviceStopTimeout)
	defer cancel()
	return p.server.Stop(ctx)
}

func cmdService() *cli.Command {
	control := func(action string) cli.ActionFunc {
		return func(c *cli.Context) error {
			svc, err := newService(c)
			if err != nil {
				return err
			}
			if err := service.Control(svc, action); err != nil {
				return fmt.Errorf("failed to %s service: %w", action, err)
			}
			fmt.Printf("service %s: done\n", action)
			return nil
		}
	}

	return &cli.Command{
		Name:  "service",
		Usage: "Manage sysmon under the system service manager",
		Subcommands: []*cli.Command{
			{Name: "install", Usage: "Install sysmon as a system service", Action: control("install")},
			{Name: "uninstall", Usage: "Remove the sysmon service", Action: control("uninstall")},
			{Name: "start", Usage: "Start the installed service", Action: control("start")},
			{Name: "stop", Usage: "Stop the running service", Action: control("stop")},
			{
				Name:  "run",
				Usage: "Run in service mode (invoked by the service manager)",
				Action: func(c *cli.Context) error {
					svc, err := newService(c)
					if err != nil {
						return err
					}
					return svc.Run()
				},
			},
		},
	}
}

// newService resolves the effective config and records any explicitly
// set flags in the service arguments, so the managed process starts
// with the settings the installer saw.
func newService(c *cli.Context) (service.Service, error) {
	cfg, err := resolveConfig(c)
	if err != nil {
		return nil, err
	}

	args := []string{"service", "run"}
	if c.IsSet("config") {
		args = append(args, "--config", c.String("config"))
	}
	if c.IsSet("host") {
		args = append(args, "--host", cfg.Host)
	}
	if c.IsSet("port") {
		args = append(args, "--port", fmt.Sprintf("%d", cfg.Port))
	}

	return service.New(&program{cfg: cfg}, &service.Config{
		Name:        "sysmon",
		DisplayName: "sysmon resource monitor",
		Description: "Serves live host resource metrics over a local web dashboard.",
		Arguments:   args,
	})
}
