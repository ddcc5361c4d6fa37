package services

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	ferrors "git.home.luguber.info/inful/webhookcatcher/internal/foundation/errors"
)

// journal records lifecycle calls across services.
type journal struct {
	mu     sync.Mutex
	events []string
}

func (j *journal) add(e string) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.events = append(j.events, e)
}

func (j *journal) all() []string {
	j.mu.Lock()
	defer j.mu.Unlock()
	return append([]string(nil), j.events...)
}

// MockService is a test implementation of ManagedService.
type MockService struct {
	name         string
	dependencies []string
	journal      *journal
	failStart    bool
	failStop     bool
}

func NewMockService(j *journal, name string, deps ...string) *MockService {
	return &MockService{name: name, dependencies: deps, journal: j}
}

func (m *MockService) Name() string           { return m.name }
func (m *MockService) Dependencies() []string { return m.dependencies }

func (m *MockService) Start(context.Context) error {
	if m.failStart {
		return errors.New("mock start failure")
	}
	m.journal.add("start:" + m.name)
	return nil
}

func (m *MockService) Stop(context.Context) error {
	m.journal.add("stop:" + m.name)
	if m.failStop {
		return errors.New("mock stop failure")
	}
	return nil
}

func TestServiceOrchestrator_DependencyOrder(t *testing.T) {
	j := &journal{}
	so := NewServiceOrchestrator()
	require.NoError(t, so.RegisterService(NewMockService(j, "http", "eventstore", "notifier")))
	require.NoError(t, so.RegisterService(NewMockService(j, "notifier")))
	require.NoError(t, so.RegisterService(NewMockService(j, "eventstore")))

	require.NoError(t, so.StartAll(testContext(t)))
	info, ok := so.GetServiceInfo("http")
	require.True(t, ok)
	assert.Equal(t, StatusRunning, info.Status)
	assert.NotNil(t, info.StartedAt)

	require.NoError(t, so.StopAll(testContext(t)))
	assert.Equal(t, []string{
		"start:eventstore", "start:notifier", "start:http",
		"stop:http", "stop:notifier", "stop:eventstore",
	}, j.all())

	info, _ = so.GetServiceInfo("http")
	assert.Equal(t, StatusStopped, info.Status)
}

func TestServiceOrchestrator_RegisterValidation(t *testing.T) {
	j := &journal{}
	so := NewServiceOrchestrator()
	require.NoError(t, so.RegisterService(NewMockService(j, "a")))

	err := so.RegisterService(NewMockService(j, "a"))
	require.Error(t, err)
	assert.Equal(t, ferrors.CategoryValidation, ferrors.GetCategory(err))

	err = so.RegisterService(NewMockService(j, ""))
	require.Error(t, err)

	_, ok := so.GetServiceInfo("missing")
	assert.False(t, ok)
}

func TestServiceOrchestrator_CircularDependency(t *testing.T) {
	j := &journal{}
	so := NewServiceOrchestrator()
	require.NoError(t, so.RegisterService(NewMockService(j, "a", "b")))
	require.NoError(t, so.RegisterService(NewMockService(j, "b", "a")))

	err := so.StartAll(testContext(t))
	require.Error(t, err)
	assert.Equal(t, ferrors.CategoryInternal, ferrors.GetCategory(err))
	assert.Empty(t, j.all())
}

func TestServiceOrchestrator_UnknownDependency(t *testing.T) {
	so := NewServiceOrchestrator()
	require.NoError(t, so.RegisterService(NewMockService(&journal{}, "a", "ghost")))
	require.Error(t, so.StartAll(testContext(t)))
}

func TestServiceOrchestrator_StartFailureRollsBack(t *testing.T) {
	j := &journal{}
	so := NewServiceOrchestrator()
	failing := NewMockService(j, "b", "a")
	failing.failStart = true
	require.NoError(t, so.RegisterService(NewMockService(j, "a")))
	require.NoError(t, so.RegisterService(failing))

	err := so.StartAll(testContext(t))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "mock start failure")
	assert.Equal(t, []string{"start:a", "stop:a"}, j.all())

	info, _ := so.GetServiceInfo("b")
	assert.Equal(t, StatusFailed, info.Status)
	assert.Equal(t, "mock start failure", info.LastError)
}

func TestServiceOrchestrator_StopContinuesAfterFailure(t *testing.T) {
	j := &journal{}
	so := NewServiceOrchestrator()
	flaky := NewMockService(j, "b", "a")
	flaky.failStop = true
	require.NoError(t, so.RegisterService(NewMockService(j, "a")))
	require.NoError(t, so.RegisterService(flaky))

	require.NoError(t, so.StartAll(testContext(t)))
	err := so.StopAll(testContext(t))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "b: mock stop failure")
	assert.Equal(t, []string{"start:a", "start:b", "stop:b", "stop:a"}, j.all())
}

type fakeScheduler struct{ started, stopped bool }

func (f *fakeScheduler) Start()      { f.started = true }
func (f *fakeScheduler) Stop() error { f.stopped = true; return nil }

type fakeCloser struct{ closed bool }

func (f *fakeCloser) Close() error { f.closed = true; return nil }

func TestAdapters(t *testing.T) {
	sched := &fakeScheduler{}
	closer := &fakeCloser{}

	so := NewServiceOrchestrator()
	require.NoError(t, so.RegisterService(NewResourceService("eventstore", closer)))
	require.NoError(t, so.RegisterService(NewSchedulerService("maintenance", sched, "eventstore")))

	require.NoError(t, so.StartAll(testContext(t)))
	assert.True(t, sched.started)
	require.NoError(t, so.StopAll(testContext(t)))
	assert.True(t, sched.stopped)
	assert.True(t, closer.closed)
}
