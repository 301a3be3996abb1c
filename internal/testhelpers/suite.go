// Package testhelpers provides shared test infrastructure for exercising
// the routing core end to end. Grounded on
// internal/testhelpers/integration_suite.go's IntegrationSuite shape
// (context + logger + cleanup + WaitFor/AssertEventually polling
// helpers), re-themed from DMR mock peers to in-memory pipe
// participants.
package testhelpers

import (
	"context"
	"testing"
	"time"

	"github.com/ddspipe/ddspipe-go/pkg/discovery"
	"github.com/ddspipe/ddspipe-go/pkg/logger"
	"github.com/ddspipe/ddspipe-go/pkg/memparticipant"
	"github.com/ddspipe/ddspipe-go/pkg/participant"
	"github.com/ddspipe/ddspipe-go/pkg/payload"
	"github.com/ddspipe/ddspipe-go/pkg/track"
)

// Suite bundles the infrastructure most pipe integration tests need: a
// bounded context, a logger, and the two databases the Pipe Controller
// is built from.
type Suite struct {
	T            *testing.T
	Logger       *logger.Logger
	Ctx          context.Context
	Cancel       context.CancelFunc
	Participants *participant.Database
	Discovery    *discovery.Database
	Pool         *payload.Pool
	Dispatcher   *track.WorkerPool
}

// NewSuite creates a Suite with a 30-second bounded context, a debug
// logger, fresh databases, and a small bounded worker pool.
func NewSuite(t *testing.T) *Suite {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)

	return &Suite{
		T:            t,
		Logger:       logger.New(logger.Config{Level: "debug", Format: "text"}),
		Ctx:          ctx,
		Cancel:       cancel,
		Participants: participant.NewDatabase(),
		Discovery:    discovery.NewDatabase(),
		Pool:         payload.NewPool(),
		Dispatcher:   track.NewWorkerPool(4),
	}
}

// AddParticipant creates an in-memory participant with id, registers it
// with the suite's Participants database, and returns it for direct
// Publish/Writers access.
func (s *Suite) AddParticipant(id participant.ID, repeater bool) *memparticipant.Participant {
	p := memparticipant.New(id, repeater, 16)
	s.Participants.Add(p)
	return p
}

// WaitFor polls condition every 10ms until it returns true or timeout
// elapses, returning whether it succeeded.
func (s *Suite) WaitFor(condition func() bool, timeout time.Duration, message string) bool {
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if condition() {
			return true
		}
		time.Sleep(10 * time.Millisecond)
	}
	s.T.Logf("WaitFor timeout: %s", message)
	return false
}

// AssertEventually fails the test if condition does not become true
// within timeout.
func (s *Suite) AssertEventually(condition func() bool, timeout time.Duration, message string) {
	if !s.WaitFor(condition, timeout, message) {
		s.T.Errorf("Assertion failed: %s", message)
	}
}

// Cleanup cancels the suite's context and waits for the dispatcher to
// drain. Call via defer immediately after NewSuite.
func (s *Suite) Cleanup() {
	s.Cancel()
	s.Dispatcher.Wait()
}
