// Package stderr provides a sink that prints reports in human-readable format.
// Useful for development and debugging.
package stderr

import (
	"context"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"sync"

	"github.com/strongdm/er2-go/pkg/er2"
)

// StderrSinkOption configures the stderr sink.
type StderrSinkOption func(*stderrSinkConfig)

type stderrSinkConfig struct {
	verbose bool
	out     io.Writer
}

// WithVerbose enables the full exception chain and every error record.
func WithVerbose() StderrSinkOption {
	return func(c *stderrSinkConfig) {
		c.verbose = true
	}
}

// WithWriter sends output to w instead of os.Stderr.
func WithWriter(w io.Writer) StderrSinkOption {
	return func(c *stderrSinkConfig) {
		c.out = w
	}
}

// stderrSink writes reports in human-readable format.
type stderrSink struct {
	verbose bool

	mu  sync.Mutex
	out io.Writer
}

// NewStderrSink creates a sink that writes to stderr.
func NewStderrSink(opts ...StderrSinkOption) er2.Sink {
	cfg := &stderrSinkConfig{out: os.Stderr}
	for _, opt := range opts {
		opt(cfg)
	}
	return &stderrSink{
		verbose: cfg.verbose,
		out:     cfg.out,
	}
}

// Write formats and outputs the report.
func (s *stderrSink) Write(ctx context.Context, report *er2.Report) error {
	var b strings.Builder

	// Format: [ER2] <timestamp> <KIND> <title> (service: <service_id>)
	fmt.Fprintf(&b, "[ER2] %s %s %s (service: %s)\n",
		report.General.Timestamp,
		strings.ToUpper(report.Kind()),
		er2.Title(report),
		report.Authentication.ServiceID)

	fmt.Fprintf(&b, "        Session: %s\n", report.General.SessionID)
	fmt.Fprintf(&b, "        Fingerprint: %s\n", er2.Fingerprint(report))

	req := report.Request
	if req.CLI {
		fmt.Fprintf(&b, "        Command: %s\n", req.Path)
	} else {
		fmt.Fprintf(&b, "        Request: %s %s%s\n", req.Method, requestHost(req), req.Path)
	}

	if s.verbose {
		for e := report.Throwable; e != nil; e = e.Previous {
			prefix := "Exception"
			if e != report.Throwable {
				prefix = "Caused by"
			}
			fmt.Fprintf(&b, "        %s: %s [%d] %s (%s:%d)\n", prefix, e.ClassName, e.Code, e.Message, e.File, e.Line)
		}
		for _, e := range report.Errors {
			severity := "error"
			if e.Fatal {
				severity = "fatal"
			}
			fmt.Fprintf(&b, "        %s [%d] %s (%s:%d)\n", severity, e.Code, e.Message, e.File, e.Line)
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := io.WriteString(s.out, b.String())
	return err
}

// requestHost joins subdomain and domain, adding the port unless it is the
// scheme default.
func requestHost(req er2.RequestInfo) string {
	host := req.Domain
	if req.Subdomain != "" {
		host = req.Subdomain + "." + host
	}
	defaultPort := 80
	if req.Secure {
		defaultPort = 443
	}
	if req.TCPPort != 0 && req.TCPPort != defaultPort {
		host += ":" + strconv.Itoa(req.TCPPort)
	}
	return host
}

// Close is a no-op for stderr sink.
func (s *stderrSink) Close() error {
	return nil
}
