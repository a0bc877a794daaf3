package journal

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/newtron-network/newtboot/pkg/device"
	"github.com/newtron-network/newtboot/pkg/util"
)

func TestMemory_Lock(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	m := NewMemory("lab")
	m.now = func() time.Time { return now }

	if err := m.Acquire(ctx, "alice", time.Minute); err != nil {
		t.Fatalf("Acquire: %v", err)
	}
	if err := m.Acquire(ctx, "bob", time.Minute); !errors.Is(err, util.ErrLocked) {
		t.Errorf("second Acquire = %v, want ErrLocked", err)
	}

	// Release by a non-holder leaves the lock alone.
	m.Release(ctx, "bob")
	if err := m.Acquire(ctx, "bob", time.Minute); !errors.Is(err, util.ErrLocked) {
		t.Errorf("Acquire after foreign release = %v, want ErrLocked", err)
	}

	m.Release(ctx, "alice")
	if err := m.Acquire(ctx, "bob", time.Minute); err != nil {
		t.Errorf("Acquire after release: %v", err)
	}

	// Expired locks can be taken over.
	now = now.Add(2 * time.Minute)
	if err := m.Acquire(ctx, "carol", time.Minute); err != nil {
		t.Errorf("Acquire after expiry: %v", err)
	}
}

func TestMemory_Status(t *testing.T) {
	ctx := context.Background()
	m := NewMemory("lab")

	m.Record(ctx, "r2", device.StateConnecting)
	m.Record(ctx, "r1", device.StateConnected)
	m.Record(ctx, "r2", device.StateStaged)
	m.Acquire(ctx, "alice", time.Minute)

	st, err := m.Status(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if st.Run != "lab" {
		t.Errorf("Run = %q", st.Run)
	}
	if st.Lock == nil || st.Lock.Holder != "alice" {
		t.Errorf("Lock = %+v", st.Lock)
	}
	if len(st.Routers) != 2 {
		t.Fatalf("Routers = %+v", st.Routers)
	}
	if st.Routers[0].Router != "r1" || st.Routers[0].State != "connected" {
		t.Errorf("Routers[0] = %+v", st.Routers[0])
	}
	if st.Routers[1].Router != "r2" || st.Routers[1].State != "staged" {
		t.Errorf("Routers[1] = %+v", st.Routers[1])
	}
}

func TestNoop(t *testing.T) {
	ctx := context.Background()
	var j Journal = Noop{}
	if err := j.Acquire(ctx, "x", time.Second); err != nil {
		t.Error(err)
	}
	if err := j.Record(ctx, "r1", device.StateStaged); err != nil {
		t.Error(err)
	}
	st, err := j.Status(ctx)
	if err != nil || st == nil || len(st.Routers) != 0 {
		t.Errorf("Status = %+v, %v", st, err)
	}
}

func TestParseAddr(t *testing.T) {
	tests := []struct {
		addr    string
		want    string
		db      int
		wantErr bool
	}{
		{"localhost:6379", "localhost:6379", 0, false},
		{"redis://10.0.0.5:6380/3", "10.0.0.5:6380", 3, false},
		{"redis://10.0.0.5:6380/notadb", "", 0, true},
		{"", "", 0, true},
	}
	for _, tt := range tests {
		opts, err := parseAddr(tt.addr)
		if (err != nil) != tt.wantErr {
			t.Errorf("parseAddr(%q) error = %v, wantErr %v", tt.addr, err, tt.wantErr)
			continue
		}
		if err != nil {
			continue
		}
		if opts.Addr != tt.want || opts.DB != tt.db {
			t.Errorf("parseAddr(%q) = %s db %d, want %s db %d", tt.addr, opts.Addr, opts.DB, tt.want, tt.db)
		}
	}
}
