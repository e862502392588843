package logger

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/rs/zerolog"
)

func TestNew(t *testing.T) {
	t.Setenv("BILLED_LOG_LEVEL", "")
	log := New()
	if log.GetLevel() != zerolog.InfoLevel {
		t.Errorf("level = %v, want info", log.GetLevel())
	}
}

func TestNew_Level(t *testing.T) {
	t.Setenv("BILLED_LOG_LEVEL", "debug")
	log := New()
	if log.GetLevel() != zerolog.DebugLevel {
		t.Errorf("level = %v, want debug", log.GetLevel())
	}
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want zerolog.Level
	}{
		{"", zerolog.InfoLevel},
		{"warn", zerolog.WarnLevel},
		{" ERROR ", zerolog.ErrorLevel},
		{"verbose", zerolog.InfoLevel},
	}
	for _, tt := range tests {
		if got := ParseLevel(tt.in); got != tt.want {
			t.Errorf("ParseLevel(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestNewWithWriter(t *testing.T) {
	buf := &bytes.Buffer{}
	log := NewWithWriter(buf)

	log.Info().Msg("test message")

	if !strings.Contains(buf.String(), "test message") {
		t.Errorf("Expected output to contain 'test message', got: %s", buf.String())
	}
}

func TestFromContext(t *testing.T) {
	buf := &bytes.Buffer{}
	ctx := WithContext(context.Background(), NewWithWriter(buf))

	retrievedLog := FromContext(ctx)
	retrievedLog.Info().Msg("test")

	if buf.Len() == 0 {
		t.Error("Expected log output from retrieved logger")
	}
}

func TestFromContext_DefaultLogger(t *testing.T) {
	log := FromContext(context.Background())
	if log.GetLevel() == zerolog.Disabled {
		t.Error("Expected default logger to be enabled")
	}
}

func TestForBill(t *testing.T) {
	buf := &bytes.Buffer{}
	log := ForBill(NewWithWriter(buf), "bill-1", "a@a")
	log.Error().Msg("update failed")

	output := buf.String()
	for _, want := range []string{`"bill_id":"bill-1"`, `"email":"a@a"`, "update failed"} {
		if !strings.Contains(output, want) {
			t.Errorf("Expected output to contain %s, got: %s", want, output)
		}
	}

	buf.Reset()
	plain := ForBill(NewWithWriter(buf), "", "")
	plain.Info().Msg("plain")
	if strings.Contains(buf.String(), "bill_id") {
		t.Errorf("Expected no bill_id field, got: %s", buf.String())
	}
}

func TestNewConsole(t *testing.T) {
	t.Setenv("BILLED_LOG_LEVEL", "warn")
	buf := &bytes.Buffer{}
	log := NewConsole(buf)

	log.Info().Msg("hidden")
	log.Warn().Msg("shown")

	out := buf.String()
	if strings.Contains(out, "hidden") || !strings.Contains(out, "shown") {
		t.Errorf("console output = %q", out)
	}
}
