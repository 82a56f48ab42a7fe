package errors

import (
	"bytes"
	"fmt"
	"io/fs"
	"strings"
	"testing"

	"github.com/rs/zerolog"
)

func TestNewFileAccessError(t *testing.T) {
	err := NewFileAccessError("config", "/tmp/missing/train.conf", fs.ErrNotExist)

	want := "gbdtcheck: config: cannot access /tmp/missing/train.conf: file does not exist"
	if err.Error() != want {
		t.Errorf("Error() = %v, want %v", err.Error(), want)
	}

	// スタックトレースの存在確認
	formatted := fmt.Sprintf("%+v", err)
	if !strings.Contains(formatted, "errors_test.go") {
		t.Error("Expected stack trace to contain test file name")
	}

	var accessErr *FileAccessError
	if !As(err, &accessErr) {
		t.Fatal("Error should be castable to *FileAccessError")
	}
	if !Is(err, fs.ErrNotExist) {
		t.Error("FileAccessError should unwrap to fs.ErrNotExist")
	}
}

func TestNewMalformedConfigError(t *testing.T) {
	tests := []struct {
		name    string
		path    string
		line    int
		text    string
		wantMsg string
	}{
		{
			name:    "from file",
			path:    "train.conf",
			line:    3,
			text:    "foo bar",
			wantMsg: `gbdtcheck: malformed config train.conf:3 "foo bar": expected exactly one '='`,
		},
		{
			name:    "from args",
			path:    "",
			line:    1,
			text:    "a=b=c",
			wantMsg: `gbdtcheck: malformed config <args>:1 "a=b=c": expected exactly one '='`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := NewMalformedConfigError(tt.path, tt.line, tt.text, "expected exactly one '='")
			if err.Error() != tt.wantMsg {
				t.Errorf("Error() = %v, want %v", err.Error(), tt.wantMsg)
			}
			var cfgErr *MalformedConfigError
			if !As(err, &cfgErr) {
				t.Fatal("Error should be castable to *MalformedConfigError")
			}
			if cfgErr.Line != tt.line {
				t.Errorf("Line = %d, want %d", cfgErr.Line, tt.line)
			}
		})
	}
}

func TestDatasetParseErrorMessages(t *testing.T) {
	err := NewDatasetParseError("binary.train", 7, "invalid number \"x\"", nil)
	want := `gbdtcheck: cannot parse binary.train line 7: invalid number "x"`
	if err.Error() != want {
		t.Errorf("Error() = %v, want %v", err.Error(), want)
	}

	err = NewShapeMismatchError("rank.train.query", "query groups", 201, 200)
	want = "gbdtcheck: cannot parse rank.train.query: shape mismatch: query groups expected 201 rows, got 200"
	if err.Error() != want {
		t.Errorf("Error() = %v, want %v", err.Error(), want)
	}

	var parseErr *DatasetParseError
	if !As(Wrap(err, "load dataset"), &parseErr) {
		t.Error("wrapped error should still be castable to *DatasetParseError")
	}
}

func TestPredictionMismatchErrorReportsLocation(t *testing.T) {
	err := NewPredictionMismatchError(&PredictionMismatchError{
		Family:     "binary",
		Expected:   "in-process",
		Actual:     "file",
		Index:      42,
		Row:        42,
		Col:        0,
		Want:       0.5,
		Got:        0.51,
		MaxAbsDiff: 0.01,
		Decimal:    5,
		Mismatched: 1,
		Total:      100,
	})

	msg := err.Error()
	for _, part := range []string{"binary", "index 42", "row 42", "1/100", "decimal=5"} {
		if !strings.Contains(msg, part) {
			t.Errorf("message %q should contain %q", msg, part)
		}
	}

	var mismatch *PredictionMismatchError
	if !As(err, &mismatch) {
		t.Fatal("Error should be castable to *PredictionMismatchError")
	}
	if mismatch.MaxAbsDiff != 0.01 {
		t.Errorf("MaxAbsDiff = %v, want 0.01", mismatch.MaxAbsDiff)
	}
}

func TestZerologMarshalers(t *testing.T) {
	var buf bytes.Buffer
	logger := zerolog.New(&buf)

	logger.Error().EmbedObject(&MalformedConfigError{Path: "train.conf", Line: 2, Text: "foo bar"}).Msg("config")
	if !strings.Contains(buf.String(), `"type":"MalformedConfigError"`) {
		t.Errorf("expected structured type field, got %s", buf.String())
	}

	buf.Reset()
	logger.Error().EmbedObject(&PredictionMismatchError{Family: "regression", Index: 3}).Msg("mismatch")
	if !strings.Contains(buf.String(), `"family":"regression"`) || !strings.Contains(buf.String(), `"index":3`) {
		t.Errorf("expected family and index fields, got %s", buf.String())
	}
}

func TestWarnUsesZerologWhenConfigured(t *testing.T) {
	var buf bytes.Buffer
	SetZerologWarnFunc(ZerologWarnFunc(zerolog.New(&buf)))
	defer SetZerologWarnFunc(nil)

	Warn(NewDisabledOptionWarning("early_stopping_round", "10", "early_stopping"))

	out := buf.String()
	if !strings.Contains(out, `"level":"warn"`) {
		t.Errorf("expected warn level, got %s", out)
	}
	if !strings.Contains(out, `"key":"early_stopping_round"`) {
		t.Errorf("expected key field, got %s", out)
	}
}

func TestWarnFallsBackToHandler(t *testing.T) {
	var got error
	SetWarningHandler(func(w error) { got = w })
	defer SetWarningHandler(nil)

	w := NewDisabledOptionWarning("early_stopping", "5", "early_stopping")
	Warn(w)

	if got != w {
		t.Errorf("handler received %v, want %v", got, w)
	}
}

func TestCheckNumericalStability(t *testing.T) {
	if err := CheckNumericalStability("predict", []float64{0.1, 0.2}, 0); err != nil {
		t.Errorf("unexpected error: %v", err)
	}

	nan := 0.0
	nan = nan / nan
	err := CheckNumericalStability("predict", []float64{0.1, nan}, 3)
	var instability *NumericalInstabilityError
	if !As(err, &instability) {
		t.Fatalf("expected NumericalInstabilityError, got %v", err)
	}
	if instability.Iteration != 3 {
		t.Errorf("Iteration = %d, want 3", instability.Iteration)
	}
}
