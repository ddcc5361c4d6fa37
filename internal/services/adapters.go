package services

import (
	"context"
	"io"
)

// Server is a component with context-aware Start and Stop, such as the HTTP server.
type Server interface {
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
}

// ServerService adapts a Server to the ManagedService interface.
type ServerService struct {
	name   string
	server Server
	deps   []string
}

// NewServerService creates a ManagedService for server.
func NewServerService(name string, server Server, deps ...string) *ServerService {
	return &ServerService{name: name, server: server, deps: deps}
}

func (s *ServerService) Name() string                    { return s.name }
func (s *ServerService) Start(ctx context.Context) error { return s.server.Start(ctx) }
func (s *ServerService) Stop(ctx context.Context) error  { return s.server.Stop(ctx) }
func (s *ServerService) Dependencies() []string          { return s.deps }

// Scheduler is a background job runner started without a context.
type Scheduler interface {
	Start()
	Stop() error
}

// SchedulerService adapts a Scheduler to the ManagedService interface.
type SchedulerService struct {
	name      string
	scheduler Scheduler
	deps      []string
}

// NewSchedulerService creates a ManagedService for scheduler.
func NewSchedulerService(name string, scheduler Scheduler, deps ...string) *SchedulerService {
	return &SchedulerService{name: name, scheduler: scheduler, deps: deps}
}

func (s *SchedulerService) Name() string { return s.name }

func (s *SchedulerService) Start(context.Context) error {
	s.scheduler.Start()
	return nil
}

func (s *SchedulerService) Stop(context.Context) error { return s.scheduler.Stop() }
func (s *SchedulerService) Dependencies() []string    { return s.deps }

// ResourceService owns an already-open resource and closes it on Stop.
type ResourceService struct {
	name     string
	resource io.Closer
	deps     []string
}

// NewResourceService creates a ManagedService that closes resource on Stop.
func NewResourceService(name string, resource io.Closer, deps ...string) *ResourceService {
	return &ResourceService{name: name, resource: resource, deps: deps}
}

func (r *ResourceService) Name() string                { return r.name }
func (r *ResourceService) Start(context.Context) error { return nil }
func (r *ResourceService) Stop(context.Context) error  { return r.resource.Close() }
func (r *ResourceService) Dependencies() []string      { return r.deps }
