package metrics

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/newtron-network/newtboot/pkg/device"
)

func TestRecordAttempt(t *testing.T) {
	m := New()
	m.RecordAttempt("r1", errors.New("refused"))
	m.RecordAttempt("r1", errors.New("refused"))
	m.RecordAttempt("r1", nil)

	if got := testutil.ToFloat64(m.ConnectAttempts.WithLabelValues("r1", "error")); got != 2 {
		t.Errorf("error attempts = %v, want 2", got)
	}
	if got := testutil.ToFloat64(m.ConnectAttempts.WithLabelValues("r1", "success")); got != 1 {
		t.Errorf("success attempts = %v, want 1", got)
	}
}

func TestRecordTransition(t *testing.T) {
	m := New()
	m.RecordTransition("r1", device.StateDisconnected, device.StateConnecting)
	m.RecordTransition("r1", device.StateConnecting, device.StateConnected)
	m.RecordTransition("r2", device.StateDisconnected, device.StateConnecting)

	if got := testutil.ToFloat64(m.RouterState.WithLabelValues("r1")); got != float64(device.StateConnected) {
		t.Errorf("r1 state = %v, want %d", got, device.StateConnected)
	}
	if got := testutil.ToFloat64(m.Transitions.WithLabelValues("connecting")); got != 2 {
		t.Errorf("connecting transitions = %v, want 2", got)
	}
}

func TestObservePhase(t *testing.T) {
	m := New()
	m.ObservePhase("connect", 3*time.Second, 0)
	m.ObservePhase("commit", time.Second, 2)

	if got := testutil.CollectAndCount(m.PhaseDuration); got != 2 {
		t.Errorf("phase duration series = %d, want 2", got)
	}
	if got := testutil.ToFloat64(m.PhaseFailures.WithLabelValues("commit")); got != 2 {
		t.Errorf("commit failures = %v, want 2", got)
	}
	if got := testutil.CollectAndCount(m.PhaseFailures); got != 1 {
		t.Errorf("phase failure series = %d, want 1 (no series for clean phases)", got)
	}
}

func TestWriteTextfile(t *testing.T) {
	m := New()
	m.RecordAttempt("r1", nil)
	m.RecordRun(time.Unix(1700000000, 0), nil)

	path := filepath.Join(t.TempDir(), "newtboot.prom")
	if err := m.WriteTextfile(path); err != nil {
		t.Fatalf("WriteTextfile: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	for _, want := range []string{
		`newtboot_connect_attempts_total{outcome="success",router="r1"} 1`,
		`newtboot_last_run_timestamp_seconds{result="success"}`,
	} {
		if !strings.Contains(string(data), want) {
			t.Errorf("textfile missing %q:\n%s", want, data)
		}
	}

	if err := m.WriteTextfile(filepath.Join(t.TempDir(), "missing", "x.prom")); err == nil {
		t.Error("WriteTextfile to missing dir should fail")
	}
}
