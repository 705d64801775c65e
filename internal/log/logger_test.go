package log

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"testing"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in      string
		want    slog.Level
		wantErr bool
	}{
		{"", slog.LevelInfo, false},
		{"DEBUG", slog.LevelDebug, false},
		{"warning", slog.LevelWarn, false},
		{" error ", slog.LevelError, false},
		{"verbose", slog.LevelInfo, true},
	}
	for _, tt := range tests {
		got, err := ParseLevel(tt.in)
		if (err != nil) != tt.wantErr {
			t.Fatalf("ParseLevel(%q) err = %v, wantErr %v", tt.in, err, tt.wantErr)
		}
		if got != tt.want {
			t.Errorf("ParseLevel(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestLogMutationFields(t *testing.T) {
	var buf bytes.Buffer
	logger := New(Config{Component: "test", Handler: slog.NewTextHandler(&buf, nil)})

	NewStructuredLogger(logger).LogMutation(context.Background(), OpBulkDelete, "u1", "", FieldTxCount, 3)

	out := buf.String()
	for _, want := range []string{"operation=bulk_delete", "user_id=u1", "transaction_count=3"} {
		if !strings.Contains(out, want) {
			t.Errorf("log line missing %q: %s", want, out)
		}
	}
	if strings.Contains(out, "account_id") {
		t.Errorf("empty account id should be omitted: %s", out)
	}
}

func TestWithComponentReplacesComponent(t *testing.T) {
	var buf bytes.Buffer
	logger := New(Config{Component: ComponentApp, Handler: slog.NewTextHandler(&buf, nil)})

	logger.With(FieldRequestID, "r1").WithComponent(ComponentHTTP).Info("hello")

	out := buf.String()
	if strings.Count(out, "component=") != 1 || !strings.Contains(out, "component=http") {
		t.Errorf("want exactly one component=http: %s", out)
	}
	if !strings.Contains(out, "request_id=r1") {
		t.Errorf("attributes lost across WithComponent: %s", out)
	}
}

func TestFromContextFallsBack(t *testing.T) {
	if FromContext(context.Background()) == nil {
		t.Fatal("FromContext without a logger returned nil")
	}
	l := Discard()
	if FromContext(NewContext(context.Background(), l)) != l {
		t.Error("FromContext did not return the stored logger")
	}
}
