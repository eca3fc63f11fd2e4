package pipeline

import (
	"fmt"
	"sync"

	"go.uber.org/zap"
)

// State is the lifecycle position of one orchestrated run.
type State int

const (
	StateIdle State = iota
	StateGrouped
	StateDispatched
	StateMerged
	StateWritten
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateGrouped:
		return "grouped"
	case StateDispatched:
		return "dispatched"
	case StateMerged:
		return "merged"
	case StateWritten:
		return "written"
	case StateFailed:
		return "failed"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// machine enforces Idle -> Grouped -> Dispatched -> Merged -> Written. Any
// non-terminal state may move to Failed.
type machine struct {
	mu      sync.Mutex
	log     *zap.Logger
	current State
	history []State
}

func newMachine(log *zap.Logger) *machine {
	return &machine{log: log, current: StateIdle, history: []State{StateIdle}}
}

func (m *machine) advance(next State) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	allowed := next == m.current+1 && next <= StateWritten
	if next == StateFailed {
		allowed = m.current != StateWritten && m.current != StateFailed
	}
	if !allowed {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, m.current, next)
	}
	m.log.Debug("state transition", zap.Stringer("from", m.current), zap.Stringer("to", next))
	m.current = next
	m.history = append(m.history, next)
	return nil
}

func (m *machine) state() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.current
}

func (m *machine) trail() []State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]State(nil), m.history...)
}
