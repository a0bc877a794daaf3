// Package testutil provides fakes and fixtures shared by package tests.
package testutil

import (
	"context"
	"fmt"
	"sync"

	"github.com/newtron-network/newtboot/pkg/device"
	"github.com/newtron-network/newtboot/pkg/topology"
)

// FakeDriver is a scripted device.Driver that records its calls.
type FakeDriver struct {
	mu sync.Mutex

	// OpenErrs are returned by successive Open calls; Open succeeds once
	// they are used up.
	OpenErrs   []error
	LoadErr    error
	CommitErr  error
	DiscardErr error
	CompareErr error
	DiffText   string

	calls  []string
	addr   string
	creds  device.Credentials
	loaded string
	closed bool
}

var _ device.Driver = (*FakeDriver)(nil)

func (f *FakeDriver) record(call string) {
	f.calls = append(f.calls, call)
}

func (f *FakeDriver) Open(_ context.Context, addr string, creds device.Credentials) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("open")
	if len(f.OpenErrs) > 0 {
		err := f.OpenErrs[0]
		f.OpenErrs = f.OpenErrs[1:]
		if err != nil {
			return err
		}
	}
	f.addr = addr
	f.creds = creds
	return nil
}

func (f *FakeDriver) LoadCandidate(_ context.Context, config string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("load")
	if f.LoadErr != nil {
		return f.LoadErr
	}
	f.loaded = config
	return nil
}

func (f *FakeDriver) Commit(context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("commit")
	return f.CommitErr
}

func (f *FakeDriver) Discard(context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("discard")
	return f.DiscardErr
}

func (f *FakeDriver) Compare(context.Context) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("compare")
	if f.CompareErr != nil {
		return "", f.CompareErr
	}
	return f.DiffText, nil
}

func (f *FakeDriver) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("close")
	f.closed = true
	return nil
}

// Calls returns the driver methods called so far, in order.
func (f *FakeDriver) Calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

// Loaded returns the last candidate loaded.
func (f *FakeDriver) Loaded() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.loaded
}

// Addr returns the address the driver was opened with.
func (f *FakeDriver) Addr() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.addr
}

// Creds returns the credentials the driver was opened with.
func (f *FakeDriver) Creds() device.Credentials {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.creds
}

// Closed reports whether Close was called.
func (f *FakeDriver) Closed() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.closed
}

// Fleet hands out one FakeDriver per router.
type Fleet struct {
	mu      sync.Mutex
	drivers map[string]*FakeDriver

	// Configure, if set, scripts each driver when it is created.
	Configure func(router string, d *FakeDriver)
}

// Factory creates the driver for r. Its signature matches the
// orchestrator's driver factory.
func (f *Fleet) Factory(r *topology.Router) (device.Driver, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.drivers == nil {
		f.drivers = make(map[string]*FakeDriver)
	}
	if _, ok := f.drivers[r.Name]; ok {
		return nil, fmt.Errorf("driver for %s created twice", r.Name)
	}
	d := &FakeDriver{}
	if f.Configure != nil {
		f.Configure(r.Name, d)
	}
	f.drivers[r.Name] = d
	return d, nil
}

// Driver returns the driver created for router, or nil.
func (f *Fleet) Driver(router string) *FakeDriver {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.drivers[router]
}

// Resolver maps router names to fixed addresses; unknown names fail.
func Resolver(addrs map[string]string) device.Resolver {
	return device.ResolverFunc(func(_ context.Context, name string) (string, error) {
		if addr, ok := addrs[name]; ok {
			return addr, nil
		}
		return "", fmt.Errorf("no address for %s", name)
	})
}
