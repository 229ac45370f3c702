package report

import (
	"context"
	"errors"
	"sync"

	"github.com/fleet-tools/work-ledger/pkg/models/domain"
)

// Executor turns a report configuration into rows. Implemented by the SQL
// report store; abstracted here so preview sessions and handlers can be
// tested against fakes.
type Executor interface {
	Execute(ctx context.Context, cfg domain.ReportConfig) ([]domain.ResultRow, error)
}

// ErrSuperseded reports that a newer configuration replaced this execution
// while it was in flight. The result carrying it must be discarded, not
// shown.
var ErrSuperseded = errors.New("preview superseded by a newer configuration")

// Session serializes preview executions for one interactive report session.
// Each submission is stamped with a session-local generation under the lock,
// so two submissions are always ordered even when their configurations carry
// equal version counters (rebuilt configs start from zero every request).
// Submitting cancels the in-flight execution, and a result only wins if its
// generation is still the latest: last-write-wins by submission order, never
// by completion order.
type Session struct {
	exec Executor

	mu     sync.Mutex
	cancel context.CancelFunc
	gen    uint64
}

func NewSession(exec Executor) *Session {
	return &Session{exec: exec}
}

// Run executes cfg, superseding any outstanding execution of this session.
// It returns ErrSuperseded when a later Run replaced this one before it
// finished.
func (s *Session) Run(ctx context.Context, cfg domain.ReportConfig) ([]domain.ResultRow, error) {
	s.mu.Lock()
	if s.cancel != nil {
		s.cancel()
	}
	runCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.gen++
	gen := s.gen
	s.mu.Unlock()

	rows, err := s.exec.Execute(runCtx, cfg)

	// Cancellation of a predecessor and the generation bump happen under one
	// lock acquisition, so a superseded run can never observe its own
	// generation as current here.
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.gen != gen {
		return nil, ErrSuperseded
	}
	s.cancel = nil
	cancel()

	if err != nil {
		return nil, err
	}
	return rows, nil
}
