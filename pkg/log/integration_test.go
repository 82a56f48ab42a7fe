package log

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"testing"

	"github.com/YuminosukeSato/gbdtcheck/pkg/errors"
)

// TestLoggerInterface tests the TestLogger implementation of Logger
func TestLoggerInterface(t *testing.T) {
	testLogger, buffer := NewTestLogger(LevelDebug)

	testLogger.Debug("debug message", "key1", "value1", "number", 42)
	testLogger.Info("info message", OperationKey, OperationTrain)
	testLogger.Warn("warning message", FamilyKey, "binary")
	testLogger.Error("error message", fmt.Errorf("test error"), FamilyKey, "regression")

	if buffer.String() == "" {
		t.Fatal("Expected log output, got empty string")
	}
	for _, msg := range []string{"debug message", "info message", "warning message", "error message"} {
		if !testLogger.ContainsMessage(msg) {
			t.Errorf("%q not found in output", msg)
		}
	}
	if !testLogger.ContainsField("key1", "value1") {
		t.Error("Expected field key1=value1 not found")
	}
	if !testLogger.ContainsField("number", 42.0) { // JSON unmarshaling converts numbers to float64
		t.Error("Expected field number=42 not found")
	}
	if !testLogger.ContainsField(ErrAttrKey, "test error") {
		t.Error("Expected leading error to be stored under the error key")
	}
}

// TestLoggerWith tests the With method for context-aware logging
func TestLoggerWith(t *testing.T) {
	testLogger, _ := NewTestLogger(LevelDebug)

	contextLogger := testLogger.With(ComponentKey, "consistency", FamilyKey, "lambdarank")
	contextLogger.Info("contextual message", OperationKey, OperationCheck)

	if !testLogger.ContainsField(ComponentKey, "consistency") {
		t.Error("Component context not found")
	}
	if !testLogger.ContainsField(FamilyKey, "lambdarank") {
		t.Error("Family context not found")
	}
	if !testLogger.ContainsField(OperationKey, OperationCheck) {
		t.Error("Operation field not found")
	}
}

func TestTestLoggerLevelFiltering(t *testing.T) {
	testLogger, _ := NewTestLogger(LevelWarn)

	testLogger.Debug("hidden debug")
	testLogger.Info("hidden info")
	testLogger.Warn("visible warn")

	if testLogger.ContainsMessage("hidden") {
		t.Error("messages below the minimum level should be dropped")
	}
	if !testLogger.ContainsMessage("visible warn") {
		t.Error("warn message should be captured")
	}
	if testLogger.Enabled(context.Background(), LevelInfo) {
		t.Error("info should not be enabled at warn level")
	}
}

func TestProviderSwap(t *testing.T) {
	provider, captured := NewTestLoggerProvider(LevelDebug)
	prev := SetProvider(provider)
	defer SetProvider(prev)

	GetLoggerWithName("dataset").Info("loaded", SamplesKey, 100)

	if !captured.ContainsField(ComponentKey, "dataset") {
		t.Error("named logger should carry the component key")
	}
	if !captured.ContainsField(SamplesKey, 100.0) {
		t.Error("samples field not captured")
	}
}

func TestSetupLoggerWritesCloudLoggingKeys(t *testing.T) {
	prev := slog.Default()
	defer slog.SetDefault(prev)

	var buf bytes.Buffer
	if err := SetupLoggerTo(&buf, "debug"); err != nil {
		t.Fatalf("SetupLoggerTo: %v", err)
	}

	GetLoggerWithName("consistency").Error("check failed", errors.New("mismatch"), FamilyKey, "binary")

	var entry map[string]interface{}
	if err := json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &entry); err != nil {
		t.Fatalf("invalid JSON %q: %v", buf.String(), err)
	}
	if entry["severity"] != "ERROR" {
		t.Errorf("severity = %v, want ERROR", entry["severity"])
	}
	if entry["message"] != "check failed" {
		t.Errorf("message = %v", entry["message"])
	}
	if entry[ComponentKey] != "consistency" {
		t.Errorf("component = %v", entry[ComponentKey])
	}
	st, ok := entry[StacktraceAttrKey].(string)
	if !ok || !strings.Contains(st, "integration_test.go") {
		t.Errorf("expected stacktrace attribute from cockroachdb error, got %v", entry[StacktraceAttrKey])
	}
}

func TestToLogLevel(t *testing.T) {
	tests := []struct {
		in      string
		want    slog.Level
		wantErr bool
	}{
		{"debug", slog.LevelDebug, false},
		{"INFO", slog.LevelInfo, false},
		{"warn", slog.LevelWarn, false},
		{"error", slog.LevelError, false},
		{"verbose", slog.LevelInfo, true},
	}
	for _, tt := range tests {
		got, err := ToLogLevel(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ToLogLevel(%q) err = %v, wantErr %v", tt.in, err, tt.wantErr)
		}
		if !tt.wantErr && got != tt.want {
			t.Errorf("ToLogLevel(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestSetupLoggerLiftsMismatchDetails(t *testing.T) {
	prev := slog.Default()
	defer slog.SetDefault(prev)

	var buf bytes.Buffer
	if err := SetupLoggerTo(&buf, "info"); err != nil {
		t.Fatalf("SetupLoggerTo: %v", err)
	}

	err := errors.NewPredictionMismatchError(&errors.PredictionMismatchError{
		Family: "multiclass", Expected: "in_process", Actual: "file_path",
		MaxAbsDiff: 0.25, Decimal: 5, Mismatched: 1, Total: 30,
	})
	slog.Error("check failed", ErrAttr(errors.Wrap(err, "multiclass")))

	var entry map[string]interface{}
	if err := json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &entry); err != nil {
		t.Fatalf("invalid JSON %q: %v", buf.String(), err)
	}
	if entry[FamilyKey] != "multiclass" {
		t.Errorf("family = %v, want multiclass", entry[FamilyKey])
	}
	if entry[MaxAbsDiffKey] != 0.25 {
		t.Errorf("max abs diff = %v, want 0.25", entry[MaxAbsDiffKey])
	}
	if entry[DecimalKey] != 5.0 {
		t.Errorf("decimal = %v, want 5", entry[DecimalKey])
	}
}

func TestSetupLoggerPlainRecord(t *testing.T) {
	prev := slog.Default()
	defer slog.SetDefault(prev)

	var buf bytes.Buffer
	if err := SetupLoggerTo(&buf, "info"); err != nil {
		t.Fatalf("SetupLoggerTo: %v", err)
	}
	slog.Info("loaded", SamplesKey, 10)

	if strings.Contains(buf.String(), StacktraceAttrKey) || strings.Contains(buf.String(), FamilyKey) {
		t.Errorf("records without an error should pass through untouched: %s", buf.String())
	}
}
