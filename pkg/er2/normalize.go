// normalize.go converts raw error signals and Go error chains into the flat
// records carried by a report.

package er2

import (
	"fmt"
	"runtime"
	"syscall"

	"github.com/pkg/errors"
)

// RawError is one error signal raised by the host (a warning, a notice, a
// fatal condition) before normalization.
type RawError struct {
	Fatal   bool
	Code    int
	Message string
	File    string
	Line    int
}

// ErrorFilter decides whether a raw error is reported. It is the host's
// applicability policy and runs before normalization.
type ErrorFilter func(RawError) bool

// NewRawError builds a RawError from err, attributed to the caller's file and line.
func NewRawError(err error, fatal bool) RawError {
	raw := RawError{Fatal: fatal, Code: errorCode(err)}
	switch {
	case isNilPointer(err):
		raw.Message = "<nil>"
	case err != nil:
		raw.Message = safeText(err.Error)
	}
	if _, file, line, ok := runtime.Caller(1); ok {
		raw.File, raw.Line = file, line
	}
	return raw
}

// NormalizeErrors applies filter and maps the remaining errors 1:1 into
// records, preserving order. A nil filter keeps everything. The result is
// never nil.
func NormalizeErrors(errs []RawError, filter ErrorFilter) []ErrorRecord {
	records := make([]ErrorRecord, 0, len(errs))
	for _, e := range errs {
		if filter != nil && !filter(e) {
			continue
		}
		records = append(records, ErrorRecord{
			Fatal:   e.Fatal,
			Code:    e.Code,
			Message: e.Message,
			File:    e.File,
			Line:    e.Line,
		})
	}
	return records
}

// Locator is implemented by errors that know where they were raised.
type Locator interface {
	Location() (file string, line int)
}

// Coder is implemented by errors carrying a numeric code.
type Coder interface {
	Code() int
}

// NormalizeException walks err's cause chain outermost first and returns one
// linked record per level. It returns nil for a nil error. The chain length
// is whatever the host built; no cap is applied.
func NormalizeException(err error) *ExceptionRecord {
	if err == nil {
		return nil
	}
	// A typed nil ends the chain; none of its methods are safe to call.
	if isNilPointer(err) {
		return &ExceptionRecord{ClassName: fmt.Sprintf("%T", err), Message: "<nil>"}
	}

	file, line := errorLocation(err)
	return &ExceptionRecord{
		ClassName: className(err),
		Code:      errorCode(err),
		Message:   safeText(err.Error),
		File:      file,
		Line:      line,
		Previous:  NormalizeException(cause(err)),
	}
}

// cause returns the next error in the chain. Multi-errors follow their first
// member so the result stays a single linked list.
func cause(err error) error {
	switch u := err.(type) {
	case interface{ Unwrap() error }:
		return u.Unwrap()
	case interface{ Unwrap() []error }:
		for _, e := range u.Unwrap() {
			if e != nil {
				return e
			}
		}
	}
	return nil
}

func className(err error) string {
	if p, ok := err.(*PanicError); ok && p != nil {
		return "panic"
	}
	return fmt.Sprintf("%T", err)
}

// errorCode only inspects err itself, not its causes; every level of a
// chain reports its own code.
func errorCode(err error) int {
	if isNilPointer(err) {
		return 0
	}
	switch e := err.(type) {
	case Coder:
		return e.Code()
	case syscall.Errno:
		return int(e)
	}
	return 0
}

type stackTracer interface {
	StackTrace() errors.StackTrace
}

func errorLocation(err error) (string, int) {
	switch e := err.(type) {
	case Locator:
		return e.Location()
	case stackTracer:
		if st := e.StackTrace(); len(st) > 0 {
			return frameLocation(st[0])
		}
	}
	return "", 0
}

// frameLocation resolves a pkg/errors frame. Frames hold return addresses,
// so the lookup uses pc-1 to land inside the calling instruction.
func frameLocation(f errors.Frame) (string, int) {
	pc := uintptr(f) - 1
	fn := runtime.FuncForPC(pc)
	if fn == nil {
		return "", 0
	}
	return fn.FileLine(pc)
}
