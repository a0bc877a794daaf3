// Package journal records bootstrap runs: an exclusive run lock so two
// operators cannot drive the same topology at once, and each router's
// latest lifecycle state for the status command.
package journal

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/newtron-network/newtboot/pkg/device"
	"github.com/newtron-network/newtboot/pkg/util"
)

// Journal is the run lock and state log for one run name.
type Journal interface {
	// Acquire takes the run lock for ttl. It fails with util.ErrLocked if
	// another holder has it.
	Acquire(ctx context.Context, holder string, ttl time.Duration) error
	// Release drops the run lock if holder still owns it.
	Release(ctx context.Context, holder string) error
	// Record stores a router's current state.
	Record(ctx context.Context, router string, state device.State) error
	// Status returns the lock and the recorded router states.
	Status(ctx context.Context) (*Status, error)
	Close() error
}

// LockInfo describes the current run lock holder.
type LockInfo struct {
	Holder   string        `json:"holder"`
	Acquired time.Time     `json:"acquired"`
	TTL      time.Duration `json:"ttl"`
}

// RouterState is one router's recorded state.
type RouterState struct {
	Router  string    `json:"router"`
	State   string    `json:"state"`
	Updated time.Time `json:"updated"`
}

// Status is a snapshot of a run.
type Status struct {
	Run     string        `json:"run"`
	Lock    *LockInfo     `json:"lock,omitempty"`
	Routers []RouterState `json:"routers"`
}

func sortRouters(states []RouterState) {
	sort.Slice(states, func(i, j int) bool { return states[i].Router < states[j].Router })
}

var (
	_ Journal = Noop{}
	_ Journal = (*Memory)(nil)
	_ Journal = (*Redis)(nil)
	_ Journal = (*File)(nil)
)

// Noop is a Journal that records nothing.
type Noop struct{}

func (Noop) Acquire(context.Context, string, time.Duration) error { return nil }
func (Noop) Release(context.Context, string) error { return nil }
func (Noop) Record(context.Context, string, device.State) error { return nil }
func (Noop) Status(context.Context) (*Status, error) { return &Status{}, nil }
func (Noop) Close() error { return nil }

// Memory is an in-process Journal.
type Memory struct {
	run string
	now func() time.Time

	mu     sync.Mutex
	lock   *LockInfo
	states map[string]RouterState
}

// NewMemory returns an empty in-process journal for run.
func NewMemory(run string) *Memory {
	return &Memory{run: run, now: time.Now, states: make(map[string]RouterState)}
}

func (m *Memory) Acquire(_ context.Context, holder string, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.lock != nil && m.now().Before(m.lock.Acquired.Add(m.lock.TTL)) {
		return util.ErrLocked
	}
	m.lock = &LockInfo{Holder: holder, Acquired: m.now(), TTL: ttl}
	return nil
}

func (m *Memory) Release(_ context.Context, holder string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.lock != nil && m.lock.Holder == holder {
		m.lock = nil
	}
	return nil
}

func (m *Memory) Record(_ context.Context, router string, state device.State) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.states[router] = RouterState{Router: router, State: state.String(), Updated: m.now()}
	return nil
}

func (m *Memory) Status(context.Context) (*Status, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	st := &Status{Run: m.run}
	if m.lock != nil {
		lock := *m.lock
		st.Lock = &lock
	}
	for _, rs := range m.states {
		st.Routers = append(st.Routers, rs)
	}
	sortRouters(st.Routers)
	return st, nil
}

func (m *Memory) Close() error { return nil }
