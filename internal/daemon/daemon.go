// Package daemon runs fauxmo under the platform service manager (systemd,
// launchd, Windows services) through kardianos/service.
package daemon

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"sync"
	"time"

	"github.com/kardianos/service"
	"github.com/neuhausf/fauxmo/internal/logging"
	"go.uber.org/zap"
)

const (
	// Name is the service name registered with the service manager.
	Name = "fauxmo"

	// stopTimeout bounds how long Stop waits for the run function.
	stopTimeout = 15 * time.Second
)

// RunFunc is the blocking body of the service. It must return when ctx is
// canceled.
type RunFunc func(ctx context.Context) error

// Program adapts a RunFunc to service.Interface.
type Program struct {
	run RunFunc

	// exit ends the process when run fails on its own, so the service
	// manager sees the failure and can restart it.
	exit func(code int)

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan error
}

// NewProgram wraps run.
func NewProgram(run RunFunc) *Program {
	return &Program{run: run, exit: os.Exit}
}

// Start must not block; run is started in the background.
func (p *Program) Start(s service.Service) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.cancel != nil {
		return errors.New("already running")
	}

	ctx, cancel := context.WithCancel(context.Background())
	p.cancel = cancel
	p.done = make(chan error, 1)

	go func(done chan<- error) {
		err := p.run(ctx)
		done <- err
		if err != nil && ctx.Err() == nil {
			logging.Error("Service stopped with error", zap.Error(err))
			logging.Sync()
			p.exit(1)
		}
	}(p.done)
	return nil
}

// Stop cancels the run function and waits for it.
func (p *Program) Stop(s service.Service) error {
	p.mu.Lock()
	cancel, done := p.cancel, p.done
	p.cancel = nil
	p.mu.Unlock()

	if cancel == nil {
		return nil
	}
	cancel()

	select {
	case err := <-done:
		return err
	case <-time.After(stopTimeout):
		return fmt.Errorf("service did not stop within %v", stopTimeout)
	}
}

// Config describes the service. The installed service runs
// "fauxmo run -c <configPath>".
func Config(configPath string) (*service.Config, error) {
	args := []string{"run"}
	if configPath != "" {
		abs, err := filepath.Abs(configPath)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve config path: %w", err)
		}
		args = append(args, "--config", abs)
	}

	return &service.Config{
		Name:        Name,
		DisplayName: "Fauxmo",
		Description: "Emulates Belkin WeMo devices for local voice control",
		Arguments:   args,
		Option: service.KeyValue{
			"Restart": "on-failure",
		},
	}, nil
}

// New creates the service for run.
func New(run RunFunc, cfg *service.Config) (service.Service, error) {
	s, err := service.New(NewProgram(run), cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create %s service: %w", service.Platform(), err)
	}
	return s, nil
}

// Actions are the verbs accepted by Control.
func Actions() []string {
	return service.ControlAction[:]
}

// Control runs install, uninstall, start, stop or restart.
func Control(s service.Service, action string) error {
	if !slices.Contains(Actions(), action) {
		return fmt.Errorf("unknown service action %q (valid: %v)", action, Actions())
	}
	if err := service.Control(s, action); err != nil {
		return fmt.Errorf("service %s failed: %w", action, err)
	}
	logging.Info("Service action completed",
		zap.String("action", action),
		zap.String("platform", service.Platform()),
	)
	return nil
}

// Interactive reports whether fauxmo was started from a terminal rather
// than by the service manager.
func Interactive() bool {
	return service.Interactive()
}
