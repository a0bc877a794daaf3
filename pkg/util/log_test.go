package util

import (
	"bytes"
	"io"
	"strings"
	"testing"

	"github.com/sirupsen/logrus"
)

// saveLoggerState saves the current logger state for restoration
func saveLoggerState() (io.Writer, logrus.Level, logrus.Formatter) {
	return Logger.Out, Logger.Level, Logger.Formatter
}

// restoreLoggerState restores the logger to its previous state
func restoreLoggerState(out io.Writer, level logrus.Level, formatter logrus.Formatter) {
	Logger.SetOutput(out)
	Logger.SetLevel(level)
	Logger.SetFormatter(formatter)
}

func TestSetLogLevel(t *testing.T) {
	out, level, formatter := saveLoggerState()
	defer restoreLoggerState(out, level, formatter)

	tests := []struct {
		level   string
		wantErr bool
	}{
		{"debug", false},
		{"info", false},
		{"warn", false},
		{"warning", false},
		{"error", false},
		{"invalid", true},
	}

	for _, tt := range tests {
		t.Run(tt.level, func(t *testing.T) {
			err := SetLogLevel(tt.level)
			if (err != nil) != tt.wantErr {
				t.Errorf("SetLogLevel(%q) error = %v, wantErr %v", tt.level, err, tt.wantErr)
			}
		})
	}
}

func TestSetJSONFormat(t *testing.T) {
	out, level, formatter := saveLoggerState()
	defer restoreLoggerState(out, level, formatter)

	var buf bytes.Buffer
	SetLogOutput(&buf)
	SetJSONFormat()

	Infof("test %s", "json")

	output := buf.String()
	if len(output) == 0 || output[0] != '{' {
		t.Errorf("Expected JSON output starting with '{', got: %s", output)
	}
}

func TestWithRouter(t *testing.T) {
	out, level, formatter := saveLoggerState()
	defer restoreLoggerState(out, level, formatter)

	var buf bytes.Buffer
	SetLogOutput(&buf)

	WithRouter("r1").Info("connected")
	if !strings.Contains(buf.String(), "router=r1") {
		t.Errorf("expected router field in output, got: %s", buf.String())
	}
}

func TestWithPhase(t *testing.T) {
	out, level, formatter := saveLoggerState()
	defer restoreLoggerState(out, level, formatter)

	var buf bytes.Buffer
	SetLogOutput(&buf)

	WithPhase("stage").Info("begin")
	if !strings.Contains(buf.String(), "phase=stage") {
		t.Errorf("expected phase field in output, got: %s", buf.String())
	}
}

func TestDebugfRespectsLevel(t *testing.T) {
	out, level, formatter := saveLoggerState()
	defer restoreLoggerState(out, level, formatter)

	var buf bytes.Buffer
	SetLogOutput(&buf)

	SetLogLevel("warn")
	Debugf("hidden %d", 1)
	Infof("hidden %d", 2)
	if buf.Len() != 0 {
		t.Errorf("expected no output at warn level, got: %s", buf.String())
	}

	Warnf("shown %d", 3)
	if !strings.Contains(buf.String(), "shown 3") {
		t.Errorf("expected warning output, got: %s", buf.String())
	}

	SetLogLevel("debug")
	Debugf("debug %s", "visible")
	if !strings.Contains(buf.String(), "debug visible") {
		t.Errorf("expected debug output, got: %s", buf.String())
	}
}
