// recover.go turns recovered panics into exception reports.
// Use this in HTTP handlers, goroutines, or other code outside of a framework
// error path.

package er2

import (
	"context"
	"fmt"
	"runtime"
	"runtime/debug"
	"strings"
)

// PanicError wraps a recovered panic value. When the value is itself an
// error it becomes the next level of the exception chain.
type PanicError struct {
	Value any
	Stack string

	file string
	line int
}

// NewPanicError wraps value and records the panic site. It must be called
// from the deferred function that recovered the panic.
func NewPanicError(value any) *PanicError {
	p := &PanicError{Value: value, Stack: string(debug.Stack())}
	p.file, p.line = panicSite()
	return p
}

func (p *PanicError) Error() string {
	return formatRecovered(p.Value)
}

// Unwrap returns the panic value when it is an error.
func (p *PanicError) Unwrap() error {
	if err, ok := p.Value.(error); ok {
		return err
	}
	return nil
}

// Location returns the file and line that panicked.
func (p *PanicError) Location() (string, int) {
	return p.file, p.line
}

// Recover captures a panic, reports it as an exception, and returns the
// recovered value. It does NOT re-panic. The correlation id is taken from
// ctx (see WithCorrelationID).
//
// Use in defer:
//
//	func handler(ctx context.Context) {
//	    defer client.Recover(ctx, nil)
//	    // code that might panic
//	}
func (c *Client) Recover(ctx context.Context, snap *Snapshot) any {
	r := recover()
	if r == nil {
		return nil
	}

	// Reporting is best effort; the caller's recovery path must not fail.
	_, _ = c.ReportPanic(ctx, snap, r)
	return r
}

// ReportPanic reports a value already obtained from recover().
func (c *Client) ReportPanic(ctx context.Context, snap *Snapshot, recovered any) (bool, error) {
	return c.ReportException(ctx, CorrelationIDFromContext(ctx), snap, NewPanicError(recovered))
}

// panicSite finds the first non-runtime frame after the runtime's panic
// machinery on the current goroutine's stack.
func panicSite() (string, int) {
	pcs := make([]uintptr, 64)
	n := runtime.Callers(3, pcs)
	frames := runtime.CallersFrames(pcs[:n])

	inPanic := false
	for {
		frame, more := frames.Next()
		if isRuntimeFrame(frame.Function) {
			if frame.Function == "runtime.gopanic" || frame.Function == "runtime.sigpanic" {
				inPanic = true
			}
		} else if inPanic {
			return frame.File, frame.Line
		}
		if !more {
			return "", 0
		}
	}
}

func isRuntimeFrame(function string) bool {
	return strings.HasPrefix(function, "runtime.") || strings.HasPrefix(function, "internal/runtime/")
}

// formatRecovered formats a recovered panic value as a string.
func formatRecovered(recovered any) string {
	if recovered == nil || isNilPointer(recovered) {
		return "<nil>"
	}
	if err, ok := recovered.(error); ok {
		return safeText(err.Error)
	}
	return fmt.Sprintf("%v", recovered)
}
