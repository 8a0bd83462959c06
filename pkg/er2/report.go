// report.go defines the outbound report payload and its wire encoding.

package er2

import (
	"encoding/json"

	"github.com/pkg/errors"
)

const (
	// ClientVersion identifies this reporting library's release.
	ClientVersion = "2.1.1"

	// ProtocolVersion lets the collector interpret schema evolution.
	ProtocolVersion = 2

	// NoSessionID is sent when the caller supplies no correlation id.
	NoSessionID = "No session id"

	// TimestampLayout is ISO-8601 without a timezone offset.
	TimestampLayout = "2006-01-02T15:04:05"
)

// Authentication identifies the reporting service to the collector.
type Authentication struct {
	Token           string `json:"token"`
	ServiceID       string `json:"service_id"`
	ClientVersion   string `json:"er2_version"`
	ProtocolVersion int    `json:"er2_protocol_version"`
}

// General describes the process and host at report time.
// Every host-derived field is null when the lookup was unavailable.
type General struct {
	SessionID       string           `json:"er2_session_id"`
	Timestamp       string           `json:"timestamp"`
	HostName        Optional[string] `json:"host_name"`
	HostOS          Optional[string] `json:"host_os"`
	HostOSRelease   Optional[string] `json:"host_os_release"`
	HostOSVersion   Optional[string] `json:"host_os_version"`
	RuntimeVersion  string           `json:"php_version"`
	RuntimeMode     string           `json:"php_mode"`
	MemoryUsage     uint64           `json:"php_mem_usage"`
	EnvironmentName Optional[string] `json:"environment_name"`
	DebugMode       Optional[bool]   `json:"debug_mode"`
}

// ErrorRecord is a normalized non-exception error signal.
type ErrorRecord struct {
	Fatal   bool   `json:"fatal"`
	Code    int    `json:"error_no"`
	Message string `json:"message"`
	File    string `json:"file"`
	Line    int    `json:"line"`
}

// ExceptionRecord is one level of a normalized error chain.
// Previous points at the cause and is nil on the innermost level.
type ExceptionRecord struct {
	ClassName string           `json:"class_name"`
	Code      int              `json:"error_no"`
	Message   string           `json:"message"`
	File      string           `json:"file"`
	Line      int              `json:"line"`
	Previous  *ExceptionRecord `json:"previous"`
}

// Depth returns the number of records in the chain starting at e.
func (e *ExceptionRecord) Depth() int {
	n := 0
	for cur := e; cur != nil; cur = cur.Previous {
		n++
	}
	return n
}

// Report is the full payload sent per failure event.
//
// Nil maps mean the section was disabled and encode as JSON null. Exactly
// one of Errors or Throwable is set by the assembler.
type Report struct {
	// ID is a per-report UUID. It is not part of the wire format; mirrors use it
	// as an idempotency key.
	ID string `json:"-"`

	Authentication Authentication      `json:"authentication"`
	General        General             `json:"general"`
	Environment    map[string]string   `json:"environment"`
	Request        RequestInfo         `json:"request"`
	Database       map[string][]string `json:"database"`
	Cookies        map[string]string   `json:"cookies"`
	Get            map[string]string   `json:"get"`
	Post           map[string]string   `json:"post"`
	Session        map[string]string   `json:"session"`

	Errors    []ErrorRecord    `json:"-"`
	Throwable *ExceptionRecord `json:"-"`
}

// reportSections has the Report fields without the MarshalJSON method.
type reportSections Report

// MarshalJSON encodes the report, emitting either "errors" or "throwable".
func (r *Report) MarshalJSON() ([]byte, error) {
	if r.Throwable != nil {
		if r.Errors != nil {
			return nil, errors.New("report carries both errors and throwable")
		}
		return json.Marshal(struct {
			*reportSections
			Throwable *ExceptionRecord `json:"throwable"`
		}{(*reportSections)(r), r.Throwable})
	}

	errs := r.Errors
	if errs == nil {
		errs = []ErrorRecord{}
	}
	return json.Marshal(struct {
		*reportSections
		Errors []ErrorRecord `json:"errors"`
	}{(*reportSections)(r), errs})
}

// Kind reports which payload the report carries: "exception" or "errors".
func (r *Report) Kind() string {
	if r.Throwable != nil {
		return "exception"
	}
	return "errors"
}
