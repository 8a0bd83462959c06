// client.go provides the Client entry points and its functional options.

package er2

import (
	"context"
	"net/http"
	"time"

	"github.com/mongodb/grip"
	"github.com/mongodb/grip/logging"
	"github.com/mongodb/grip/message"
	"github.com/prometheus/client_golang/prometheus"
)

// ClientOption configures a Client.
type ClientOption func(*clientConfig)

type clientConfig struct {
	resolver   EnvironmentResolver
	host       HostLookup
	now        func() time.Time
	filter     ErrorFilter
	httpClient *http.Client
	transport  Sink
	mirrors    []Sink
	logger     grip.Journaler
	metrics    *Metrics
}

// WithEnvironmentResolver sets the resolver supplying environment_name and debug_mode.
func WithEnvironmentResolver(r EnvironmentResolver) ClientOption {
	return func(c *clientConfig) {
		c.resolver = r
	}
}

// WithHostLookup replaces the platform host identity lookup.
func WithHostLookup(fn HostLookup) ClientOption {
	return func(c *clientConfig) {
		c.host = fn
	}
}

// WithClock replaces time.Now for report timestamps.
func WithClock(now func() time.Time) ClientOption {
	return func(c *clientConfig) {
		c.now = now
	}
}

// WithErrorFilter sets the applicability policy applied to raw errors.
func WithErrorFilter(filter ErrorFilter) ClientOption {
	return func(c *clientConfig) {
		c.filter = filter
	}
}

// WithHTTPClient makes the transport use client instead of the shared pool.
func WithHTTPClient(client *http.Client) ClientOption {
	return func(c *clientConfig) {
		c.httpClient = client
	}
}

// WithTransport replaces the HTTP transport as the primary destination.
func WithTransport(sink Sink) ClientOption {
	return func(c *clientConfig) {
		c.transport = sink
	}
}

// WithSink adds a mirror. Mirrors receive every built report after the
// primary delivery; their failures are logged and never change the result.
func WithSink(sink Sink) ClientOption {
	return func(c *clientConfig) {
		c.mirrors = append(c.mirrors, sink)
	}
}

// WithLogger sets the logger used for delivery diagnostics.
func WithLogger(logger grip.Journaler) ClientOption {
	return func(c *clientConfig) {
		c.logger = logger
	}
}

// WithMetrics registers delivery metrics on reg.
func WithMetrics(reg prometheus.Registerer) ClientOption {
	return func(c *clientConfig) {
		c.metrics = NewMetrics(reg)
	}
}

// Client reports failures to the collector. It is immutable after
// NewClient and safe for concurrent use.
type Client struct {
	assembler *Assembler
	filter    ErrorFilter
	transport Sink
	mirrors   []Sink
	logger    grip.Journaler
	metrics   *Metrics
}

// NewClient creates a Client for cfg. Defaults are applied to a copy of cfg;
// the caller's value is not retained.
func NewClient(cfg Config, opts ...ClientOption) *Client {
	ApplyDefaults(&cfg)

	cc := &clientConfig{}
	for _, opt := range opts {
		opt(cc)
	}

	if cc.transport == nil {
		cc.transport = NewHTTPTransport(cfg, cc.httpClient)
	}
	if cc.logger == nil {
		cc.logger = logging.MakeGrip(grip.GetSender())
	}

	return &Client{
		assembler: NewAssembler(cfg, cc.resolver, cc.host, cc.now),
		filter:    cc.filter,
		transport: cc.transport,
		mirrors:   cc.mirrors,
		logger:    cc.logger,
		metrics:   cc.metrics,
	}
}

// ReportErrors builds a report carrying errs and delivers it once.
// It returns false without an error when delivery fails; an error means the
// report could not be built or serialized.
func (c *Client) ReportErrors(ctx context.Context, correlationID *string, snap *Snapshot, errs ...RawError) (bool, error) {
	return c.report(ctx, correlationID, snap, ErrorList{Errors: errs, Filter: c.filter})
}

// ReportException builds a report carrying err and its cause chain and
// delivers it once. Results follow ReportErrors.
func (c *Client) ReportException(ctx context.Context, correlationID *string, snap *Snapshot, err error) (bool, error) {
	return c.report(ctx, correlationID, snap, Exception{Err: err})
}

// Build assembles a report without sending it.
func (c *Client) Build(ctx context.Context, correlationID *string, snap *Snapshot, payload Payload) (*Report, error) {
	return c.assembler.Build(ctx, correlationID, snap, payload)
}

func (c *Client) report(ctx context.Context, correlationID *string, snap *Snapshot, payload Payload) (bool, error) {
	report, err := c.assembler.Build(ctx, correlationID, snap, payload)
	if err != nil {
		c.metrics.observe(payloadKind(payload), resultDefect, 0)
		return false, err
	}
	return c.Deliver(ctx, report)
}

func payloadKind(p Payload) string {
	if _, ok := p.(Exception); ok {
		return "exception"
	}
	return "errors"
}

// Deliver sends an already built report to the collector and then to every
// mirror. The report must not be modified afterwards.
func (c *Client) Deliver(ctx context.Context, report *Report) (bool, error) {
	start := time.Now()
	writeErr := c.transport.Write(ctx, report)
	ok, err := delivered(writeErr)
	elapsed := time.Since(start)

	fields := message.Fields{
		"message":     "error report",
		"report_id":   report.ID,
		"kind":        report.Kind(),
		"session_id":  report.General.SessionID,
		"duration_ms": elapsed.Milliseconds(),
	}

	switch {
	case err != nil:
		c.metrics.observe(report.Kind(), resultDefect, elapsed)
		c.logger.Error(message.WrapError(err, fields))
		return false, err
	case !ok:
		c.metrics.observe(report.Kind(), resultFailed, elapsed)
		c.logger.Warning(message.WrapError(writeErr, fields))
	default:
		c.metrics.observe(report.Kind(), resultDelivered, elapsed)
		c.logger.Debug(fields)
	}

	c.mirror(ctx, report)
	return ok, nil
}

func (c *Client) mirror(ctx context.Context, report *Report) {
	for _, sink := range c.mirrors {
		if err := sink.Write(ctx, report); err != nil {
			c.logger.Warning(message.WrapError(err, message.Fields{
				"message":   "mirroring error report",
				"report_id": report.ID,
			}))
		}
	}
}

// Close releases the transport and every mirror.
func (c *Client) Close() error {
	catcher := grip.NewBasicCatcher()
	catcher.Add(c.transport.Close())
	for _, sink := range c.mirrors {
		catcher.Add(sink.Close())
	}
	return catcher.Resolve()
}
