package errs

import (
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"
)

// Wrap adds context while keeping the chain intact for errors.Is/As.
func Wrap(err error, msg string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", msg, err)
}

// Wrapf is Wrap with a format string.
func Wrapf(err error, format string, args ...any) error {
	if err == nil {
		return nil
	}

	args = append(args, err)
	return fmt.Errorf(format+": %w", args...)
}

// WithStack attaches a stack trace at the root cause boundary. Wrapping an
// error that already carries a stack returns it unchanged.
func WithStack(err error) error {
	if err == nil {
		return nil
	}

	var se *StackError
	if errors.As(err, &se) {
		return err
	}

	return &StackError{
		err:   err,
		stack: debug.Stack(),
	}
}

// StackError pairs an error with the stack captured at wrap time.
type StackError struct {
	err   error
	stack []byte
}

func (e *StackError) Error() string { return e.err.Error() }
func (e *StackError) Unwrap() error { return e.err }
func (e *StackError) Stack() []byte { return e.stack }

// Loggable exposes an error to slog as structured fields.
// Usage: slog.Any("err", errs.Loggable(err))
func Loggable(err error) slog.LogValuer { return loggable{err: err} }

type loggable struct{ err error }

func (l loggable) LogValue() slog.Value {
	if l.err == nil {
		return slog.GroupValue()
	}

	attrs := []slog.Attr{
		slog.String("message", l.err.Error()),
		slog.Any("chain", ErrorChainStrings(l.err)),
	}

	var se *StackError
	if errors.As(l.err, &se) {
		attrs = append(attrs, slog.String("stack", string(se.Stack())))
	}

	return slog.GroupValue(attrs...)
}

// ErrorChainStrings returns the unwrap chain, outer to inner.
func ErrorChainStrings(err error) []string {
	if err == nil {
		return nil
	}

	out := make([]string, 0, 8)
	for e := err; e != nil; e = errors.Unwrap(e) {
		out = append(out, e.Error())
	}
	return out
}
