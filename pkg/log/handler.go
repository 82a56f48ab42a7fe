package log

import (
	"context"
	"log/slog"

	"github.com/YuminosukeSato/gbdtcheck/pkg/errors"
	crdb "github.com/cockroachdb/errors"
)

// ErrFmtHandler decorates records that carry an error attribute. It adds the
// cockroachdb stacktrace and, for prediction mismatches, the family and the
// worst deviation so failed checks can be filtered without parsing messages.
type ErrFmtHandler struct {
	handler slog.Handler
}

// WrapByErrFmtHandler wraps handler with an ErrFmtHandler.
func WrapByErrFmtHandler(handler slog.Handler) slog.Handler {
	return &ErrFmtHandler{handler: handler}
}

func (eh *ErrFmtHandler) Enabled(ctx context.Context, l slog.Level) bool {
	return eh.handler.Enabled(ctx, l)
}

func (eh *ErrFmtHandler) Handle(ctx context.Context, r slog.Record) error {
	var cause error
	r.Attrs(func(attr slog.Attr) bool {
		if attr.Key != ErrAttrKey {
			return true
		}
		cause, _ = attr.Value.Any().(error)
		return false
	})
	if cause == nil {
		return eh.handler.Handle(ctx, r)
	}

	if stacktrace := extractStacktrace(cause); stacktrace != "" {
		r.AddAttrs(slog.String(StacktraceAttrKey, stacktrace))
	}
	var mismatch *errors.PredictionMismatchError
	if errors.As(cause, &mismatch) {
		if mismatch.Family != "" {
			r.AddAttrs(slog.String(FamilyKey, mismatch.Family))
		}
		r.AddAttrs(
			slog.Float64(MaxAbsDiffKey, mismatch.MaxAbsDiff),
			slog.Int(DecimalKey, mismatch.Decimal),
		)
	}
	return eh.handler.Handle(ctx, r)
}

func (eh *ErrFmtHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &ErrFmtHandler{handler: eh.handler.WithAttrs(attrs)}
}

func (eh *ErrFmtHandler) WithGroup(g string) slog.Handler {
	return &ErrFmtHandler{handler: eh.handler.WithGroup(g)}
}

func extractStacktrace(err error) string {
	if details := crdb.GetSafeDetails(err).SafeDetails; len(details) > 0 {
		return details[0]
	}
	return ""
}
