// redact.go implements block-list redaction of input snapshots and the
// deterministic text rendering of their values.

package er2

import (
	"fmt"
	"math"
	"reflect"
	"strconv"
	"strings"

	"github.com/davecgh/go-spew/spew"
)

// BlockSet is an immutable set of exact key names.
type BlockSet map[string]struct{}

// NewBlockSet builds a BlockSet from key names. Duplicates collapse.
func NewBlockSet(keys ...string) BlockSet {
	set := make(BlockSet, len(keys))
	for _, k := range keys {
		set[k] = struct{}{}
	}
	return set
}

// Contains reports whether key is blocked. Matching is exact and case-sensitive.
func (b BlockSet) Contains(key string) bool {
	_, ok := b[key]
	return ok
}

// Redactor holds the four per-category block sets.
type Redactor struct {
	cookies BlockSet
	get     BlockSet
	post    BlockSet
	session BlockSet
}

// NewRedactor copies the block lists into sets.
func NewRedactor(lists BlockLists) *Redactor {
	return &Redactor{
		cookies: NewBlockSet(lists.Cookies...),
		get:     NewBlockSet(lists.Get...),
		post:    NewBlockSet(lists.Post...),
		session: NewBlockSet(lists.Session...),
	}
}

// Cookies redacts a cookie snapshot.
func (r *Redactor) Cookies(src map[string]any) map[string]string { return Redact(src, r.cookies) }

// Get redacts a query parameter snapshot.
func (r *Redactor) Get(src map[string]any) map[string]string { return Redact(src, r.get) }

// Post redacts a form parameter snapshot.
func (r *Redactor) Post(src map[string]any) map[string]string { return Redact(src, r.post) }

// Session redacts a session variable snapshot.
func (r *Redactor) Session(src map[string]any) map[string]string { return Redact(src, r.session) }

// Redact drops every key of src present in block and renders the remaining
// values with Render. Blocked keys are omitted, not masked. The result is
// never nil, so an enabled but empty section encodes as {}.
func Redact(src map[string]any, block BlockSet) map[string]string {
	result := make(map[string]string, len(src))
	for key, value := range src {
		if block.Contains(key) {
			continue
		}
		result[key] = Render(value)
	}
	return result
}

// compositeDumper renders maps, slices and structs. Sorted keys and hidden
// pointer addresses keep the output identical across runs.
var compositeDumper = spew.ConfigState{
	Indent:                  "  ",
	SortKeys:                true,
	DisablePointerAddresses: true,
	DisableCapacities:       true,
	DisableMethods:          true,
}

// Render converts any value to a human-readable debug text form.
//
// Scalars use an export style: strings are single-quoted with \ and '
// escaped, nil is NULL, floats always carry a decimal point. Errors and
// Stringers render as their quoted text. Everything else is dumped.
func Render(value any) string {
	if isNilPointer(value) {
		return "NULL"
	}

	switch v := value.(type) {
	case nil:
		return "NULL"
	case string:
		return quote(v)
	case bool:
		return strconv.FormatBool(v)
	case int:
		return strconv.FormatInt(int64(v), 10)
	case int8:
		return strconv.FormatInt(int64(v), 10)
	case int16:
		return strconv.FormatInt(int64(v), 10)
	case int32:
		return strconv.FormatInt(int64(v), 10)
	case int64:
		return strconv.FormatInt(v, 10)
	case uint:
		return strconv.FormatUint(uint64(v), 10)
	case uint8:
		return strconv.FormatUint(uint64(v), 10)
	case uint16:
		return strconv.FormatUint(uint64(v), 10)
	case uint32:
		return strconv.FormatUint(uint64(v), 10)
	case uint64:
		return strconv.FormatUint(v, 10)
	case float32:
		return formatFloat(float64(v), 32)
	case float64:
		return formatFloat(v, 64)
	case error:
		return quote(safeText(v.Error))
	case fmt.Stringer:
		return quote(safeText(v.String))
	}

	return strings.TrimRight(compositeDumper.Sdump(value), "\n")
}

func isNilPointer(value any) bool {
	rv := reflect.ValueOf(value)
	return rv.Kind() == reflect.Pointer && rv.IsNil()
}

// safeText calls a host-supplied Error or String method. A panicking method
// yields fmt's PANIC marker instead of unwinding into the report path.
func safeText(method func() string) (text string) {
	defer func() {
		if r := recover(); r != nil {
			text = fmt.Sprintf("%%!v(PANIC=%v)", r)
		}
	}()
	return method()
}

func quote(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, `'`, `\'`)
	return "'" + s + "'"
}

func formatFloat(f float64, bits int) string {
	switch {
	case math.IsNaN(f):
		return "NAN"
	case math.IsInf(f, 1):
		return "INF"
	case math.IsInf(f, -1):
		return "-INF"
	}
	s := strconv.FormatFloat(f, 'g', -1, bits)
	if !strings.ContainsAny(s, ".e") {
		s += ".0"
	}
	return s
}
