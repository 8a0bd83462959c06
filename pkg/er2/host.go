// host.go defines the data the hosting application hands to the client.
// Nothing here reads ambient global state except the explicit helpers
// CLIRequest and ProcessEnvironment.

package er2

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"strings"
)

// Optional holds a value that a best-effort host lookup may not produce.
// An absent Optional encodes as JSON null.
type Optional[T any] struct {
	value T
	ok    bool
}

// Some returns a present Optional.
func Some[T any](v T) Optional[T] {
	return Optional[T]{value: v, ok: true}
}

// None returns an absent Optional.
func None[T any]() Optional[T] {
	return Optional[T]{}
}

// Get returns the value and whether it is present.
func (o Optional[T]) Get() (T, bool) {
	return o.value, o.ok
}

// MarshalJSON encodes the value, or null when absent.
func (o Optional[T]) MarshalJSON() ([]byte, error) {
	if !o.ok {
		return []byte("null"), nil
	}
	return json.Marshal(o.value)
}

// UnmarshalJSON decodes null as absent.
func (o *Optional[T]) UnmarshalJSON(data []byte) error {
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		*o = None[T]()
		return nil
	}
	var v T
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	*o = Some(v)
	return nil
}

// RequestInfo describes the request being served when the failure happened.
type RequestInfo struct {
	Method    string `json:"method"`
	Domain    string `json:"domain"`
	Subdomain string `json:"subdomain"`
	TCPPort   int    `json:"tcp_port"`
	Path      string `json:"path"`
	CLI       bool   `json:"cli"`
	Secure    bool   `json:"secure_connection"`
}

// CLIRequest describes the current process as a command line invocation.
func CLIRequest() RequestInfo {
	return RequestInfo{
		Method: "CLI",
		Path:   strings.Join(os.Args, " "),
		CLI:    true,
	}
}

// QuerySource supplies the queries already executed in this process,
// keyed by connection identifier, in execution order.
type QuerySource interface {
	ExecutedQueries() map[string][]string
}

// EnvironmentInfo is what the host's configuration resolver knows.
type EnvironmentInfo struct {
	Name      string
	DebugMode bool
}

// EnvironmentResolver resolves the hosting application's active environment.
// Implementations may fail; the client degrades to null fields.
type EnvironmentResolver interface {
	ResolveEnvironment(ctx context.Context) (EnvironmentInfo, error)
}

// EnvironmentFunc adapts a function to EnvironmentResolver.
type EnvironmentFunc func(ctx context.Context) (EnvironmentInfo, error)

// ResolveEnvironment calls f.
func (f EnvironmentFunc) ResolveEnvironment(ctx context.Context) (EnvironmentInfo, error) {
	return f(ctx)
}

// Snapshot is the immutable input captured by the caller for one report.
// Maps are read, never modified.
type Snapshot struct {
	// Request is the current request. Nil means CLIRequest is used.
	Request *RequestInfo

	// Environment is the host environment variable mapping.
	Environment map[string]string

	Cookies map[string]any
	Query   map[string]any
	Form    map[string]any
	Session map[string]any

	// Queries supplies executed database queries. It may be nil.
	Queries QuerySource
}

// ProcessEnvironment returns a copy of the process environment.
func ProcessEnvironment() map[string]string {
	env := make(map[string]string)
	for _, kv := range os.Environ() {
		key, value, _ := strings.Cut(kv, "=")
		if key == "" {
			continue
		}
		env[key] = value
	}
	return env
}

// QueryMap is a static QuerySource.
type QueryMap map[string][]string

// ExecutedQueries returns m.
func (m QueryMap) ExecutedQueries() map[string][]string {
	return m
}
