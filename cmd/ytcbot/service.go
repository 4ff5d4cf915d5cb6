package main

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/kardianos/service"
	"github.com/spf13/cobra"
	"github.com/ytclab/ytcbot/internal/config"
	"github.com/ytclab/ytcbot/pkg/app"
)

const serviceStopTimeout = 30 * time.Second

// program adapts app.RunContext to the service manager's Start/Stop.
type program struct {
	params app.RunParams
	cancel context.CancelFunc
	done   chan error
}

func (p *program) Start(_ service.Service) error {
	ctx, cancel := context.WithCancel(context.Background())
	p.cancel = cancel
	p.done = make(chan error, 1)
	go func() { p.done <- app.RunContext(ctx, p.params) }()
	return nil
}

func (p *program) Stop(_ service.Service) error {
	if p.cancel == nil {
		return nil
	}
	p.cancel()
	select {
	case err := <-p.done:
		return err
	case <-time.After(serviceStopTimeout):
		return fmt.Errorf("service: shutdown timed out after %s", serviceStopTimeout)
	}
}

func serviceCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "service",
		Short: "Manage ytcbot as an OS service",
	}
	for _, action := range service.ControlAction {
		cmd.AddCommand(&cobra.Command{
			Use:   action,
			Short: fmt.Sprintf("%s the ytcbot service", action),
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				svc, err := newService(cmd)
				if err != nil {
					return err
				}
				if err := service.Control(svc, action); err != nil {
					return fmt.Errorf("service %s: %w", action, err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "service %s: ok\n", action)
				return nil
			},
		})
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "run",
		Short: "Run under the service manager",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			svc, err := newService(cmd)
			if err != nil {
				return err
			}
			return svc.Run()
		},
	})
	return cmd
}

// newService describes the installed service. The config path is made
// absolute so the service manager can start ytcbot from any directory.
func newService(cmd *cobra.Command) (service.Service, error) {
	params := runParams(cmd)
	cfgPath, err := config.ResolvePath(params.ConfigPath)
	if err != nil {
		return nil, err
	}
	if cfgPath, err = filepath.Abs(cfgPath); err != nil {
		return nil, err
	}
	params.ConfigPath = cfgPath

	args := []string{"service", "run", "--config", cfgPath}
	if params.DataDir != "" {
		args = append(args, "--data-dir", params.DataDir)
	}
	svcConfig := &service.Config{
		Name:        "ytcbot",
		DisplayName: "ytcbot chat assistant",
		Description: "Persona-aware chat assistant with conversation memory.",
		Arguments:   args,
	}
	return service.New(&program{params: params}, svcConfig)
}
