package services

import (
	"context"
	stderrors "errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"

	"git.home.luguber.info/inful/webhookcatcher/internal/foundation/errors"
	"git.home.luguber.info/inful/webhookcatcher/internal/logfields"
)

// ServiceOrchestrator manages the lifecycle of multiple services with dependency resolution.
type ServiceOrchestrator struct {
	mu         sync.Mutex
	services   map[string]ManagedService
	status     map[string]ServiceStatus
	startedAt  map[string]time.Time
	lastErrors map[string]error
	started    []string

	startTimeout time.Duration
	stopTimeout  time.Duration
}

// NewServiceOrchestrator creates a new service orchestrator.
func NewServiceOrchestrator() *ServiceOrchestrator {
	return &ServiceOrchestrator{
		services:     make(map[string]ManagedService),
		status:       make(map[string]ServiceStatus),
		startedAt:    make(map[string]time.Time),
		lastErrors:   make(map[string]error),
		startTimeout: 30 * time.Second,
		stopTimeout:  30 * time.Second,
	}
}

// WithTimeouts configures per-service start and stop timeouts.
func (so *ServiceOrchestrator) WithTimeouts(start, stop time.Duration) *ServiceOrchestrator {
	so.startTimeout = start
	so.stopTimeout = stop
	return so
}

// RegisterService adds a service to the orchestrator.
func (so *ServiceOrchestrator) RegisterService(service ManagedService) error {
	so.mu.Lock()
	defer so.mu.Unlock()

	name := service.Name()
	if name == "" {
		return errors.ValidationError("service name cannot be empty").Build()
	}
	if _, exists := so.services[name]; exists {
		return errors.ValidationError("service already registered").WithContext("service", name).Build()
	}

	so.services[name] = service
	so.status[name] = StatusNotStarted
	slog.Debug("Service registered", slog.String("service", name), slog.Any("dependencies", service.Dependencies()))
	return nil
}

// StartAll starts all services in dependency order. If one fails, the
// services already started are stopped again.
func (so *ServiceOrchestrator) StartAll(ctx context.Context) error {
	so.mu.Lock()
	defer so.mu.Unlock()

	order, err := so.startOrder()
	if err != nil {
		return errors.InternalError("failed to calculate service start order").WithCause(err).Build()
	}

	slog.Info("Starting services", slog.Any("order", order))
	for _, name := range order {
		if err := so.startService(ctx, name); err != nil {
			so.stopStarted(context.WithoutCancel(ctx))
			return err
		}
	}
	return nil
}

// StopAll stops the started services in reverse start order. Every service
// is asked to stop even when an earlier one fails.
func (so *ServiceOrchestrator) StopAll(ctx context.Context) error {
	so.mu.Lock()
	defer so.mu.Unlock()
	if errs := so.stopStarted(ctx); len(errs) > 0 {
		return fmt.Errorf("some services failed to stop gracefully: %w", stderrors.Join(errs...))
	}
	slog.Info("All services stopped")
	return nil
}

// GetServiceInfo returns information about a specific service.
func (so *ServiceOrchestrator) GetServiceInfo(name string) (ServiceInfo, bool) {
	so.mu.Lock()
	defer so.mu.Unlock()

	service, exists := so.services[name]
	if !exists {
		return ServiceInfo{}, false
	}
	info := ServiceInfo{
		Name:         name,
		Status:       so.status[name],
		Dependencies: service.Dependencies(),
	}
	if t, ok := so.startedAt[name]; ok {
		info.StartedAt = &t
	}
	if err := so.lastErrors[name]; err != nil {
		info.LastError = err.Error()
	}
	return info, true
}

// startOrder is a topological sort over Dependencies. Names are visited in
// sorted order so the result is deterministic.
func (so *ServiceOrchestrator) startOrder() ([]string, error) {
	visited := make(map[string]bool)
	visiting := make(map[string]bool)
	var order []string

	var visit func(string) error
	visit = func(name string) error {
		if visiting[name] {
			return fmt.Errorf("circular dependency detected involving service: %s", name)
		}
		if visited[name] {
			return nil
		}
		service, exists := so.services[name]
		if !exists {
			return fmt.Errorf("service not found: %s", name)
		}

		visiting[name] = true
		for _, dep := range service.Dependencies() {
			if err := visit(dep); err != nil {
				return err
			}
		}
		visiting[name] = false
		visited[name] = true
		order = append(order, name)
		return nil
	}

	names := make([]string, 0, len(so.services))
	for name := range so.services {
		names = append(names, name)
	}
	slices.Sort(names)
	for _, name := range names {
		if err := visit(name); err != nil {
			return nil, err
		}
	}
	return order, nil
}

func (so *ServiceOrchestrator) startService(ctx context.Context, name string) error {
	timeoutCtx, cancel := context.WithTimeout(ctx, so.startTimeout)
	defer cancel()

	start := time.Now()
	if err := so.services[name].Start(timeoutCtx); err != nil {
		so.status[name] = StatusFailed
		so.lastErrors[name] = err
		return fmt.Errorf("failed to start service %s: %w", name, err)
	}

	so.status[name] = StatusRunning
	so.startedAt[name] = start
	so.lastErrors[name] = nil
	so.started = append(so.started, name)
	slog.Debug("Service started", slog.String("service", name), logfields.DurationMS(time.Since(start).Milliseconds()))
	return nil
}

// stopStarted stops running services, newest first.
func (so *ServiceOrchestrator) stopStarted(ctx context.Context) []error {
	var errs []error
	for i := len(so.started) - 1; i >= 0; i-- {
		name := so.started[i]
		if so.status[name] != StatusRunning {
			continue
		}

		timeoutCtx, cancel := context.WithTimeout(ctx, so.stopTimeout)
		err := so.services[name].Stop(timeoutCtx)
		cancel()
		if err != nil {
			so.status[name] = StatusFailed
			so.lastErrors[name] = err
			errs = append(errs, fmt.Errorf("%s: %w", name, err))
			slog.Error("Error stopping service", slog.String("service", name), logfields.Error(err))
			continue
		}
		so.status[name] = StatusStopped
		slog.Debug("Service stopped", slog.String("service", name))
	}
	so.started = nil
	return errs
}
