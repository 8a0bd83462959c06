// Package httpcapture derives er2 request info and input snapshots from
// net/http requests, and provides a panic-reporting middleware.
package httpcapture

import (
	"net"
	"net/http"
	"strconv"
	"strings"

	"github.com/strongdm/er2-go/pkg/er2"
)

// ForwardedProtoHeader is consulted for the scheme when the server runs
// behind a TLS-terminating proxy and WithTrustProxy is set.
const ForwardedProtoHeader = "X-Forwarded-Proto"

// Option configures request capture.
type Option func(*captureConfig)

type captureConfig struct {
	trustProxy  bool
	session     func(*http.Request) map[string]any
	queries     er2.QuerySource
	environment map[string]string
}

// WithTrustProxy makes X-Forwarded-Proto decide whether the connection is
// secure.
func WithTrustProxy() Option {
	return func(c *captureConfig) {
		c.trustProxy = true
	}
}

// WithSession supplies the session variables of a request.
func WithSession(fn func(*http.Request) map[string]any) Option {
	return func(c *captureConfig) {
		c.session = fn
	}
}

// WithQuerySource attaches executed database queries to every snapshot.
func WithQuerySource(src er2.QuerySource) Option {
	return func(c *captureConfig) {
		c.queries = src
	}
}

// WithEnvironment sets the environment mapping for every snapshot.
// The default is the process environment read once at construction.
func WithEnvironment(env map[string]string) Option {
	return func(c *captureConfig) {
		c.environment = env
	}
}

func newCaptureConfig(opts []Option) *captureConfig {
	cfg := &captureConfig{}
	for _, opt := range opts {
		opt(cfg)
	}
	if cfg.environment == nil {
		cfg.environment = er2.ProcessEnvironment()
	}
	return cfg
}

// RequestFromHTTP describes r. The domain is the registrable part of the
// host (its last two labels); anything before it is the subdomain. IP
// hosts and single-label hosts have no subdomain. A missing port is
// inferred from the scheme.
func RequestFromHTTP(r *http.Request, opts ...Option) er2.RequestInfo {
	cfg := &captureConfig{}
	for _, opt := range opts {
		opt(cfg)
	}
	return requestInfo(r, cfg.trustProxy)
}

func requestInfo(r *http.Request, trustProxy bool) er2.RequestInfo {
	secure := r.TLS != nil
	if trustProxy && strings.EqualFold(r.Header.Get(ForwardedProtoHeader), "https") {
		secure = true
	}

	host, port := splitHostPort(r.Host, secure)
	domain, subdomain := splitDomain(host)

	return er2.RequestInfo{
		Method:    r.Method,
		Domain:    domain,
		Subdomain: subdomain,
		TCPPort:   port,
		Path:      r.URL.Path,
		Secure:    secure,
	}
}

func splitHostPort(hostport string, secure bool) (string, int) {
	port := 80
	if secure {
		port = 443
	}

	host, p, err := net.SplitHostPort(hostport)
	if err != nil {
		// No port present.
		return strings.Trim(hostport, "[]"), port
	}
	if n, err := strconv.Atoi(p); err == nil {
		port = n
	}
	return host, port
}

func splitDomain(host string) (string, string) {
	host = strings.TrimSuffix(strings.ToLower(host), ".")
	if net.ParseIP(host) != nil {
		return host, ""
	}
	labels := strings.Split(host, ".")
	if len(labels) <= 2 {
		return host, ""
	}
	cut := len(labels) - 2
	return strings.Join(labels[cut:], "."), strings.Join(labels[:cut], ".")
}

// SnapshotFromRequest captures r's input for a report. Form values come
// from r.PostForm, which is only populated once the handler has parsed
// the form; the body is never read here.
func SnapshotFromRequest(r *http.Request, opts ...Option) *er2.Snapshot {
	return snapshot(r, newCaptureConfig(opts))
}

func snapshot(r *http.Request, cfg *captureConfig) *er2.Snapshot {
	req := requestInfo(r, cfg.trustProxy)

	cookies := make(map[string]any)
	for _, c := range r.Cookies() {
		if _, dup := cookies[c.Name]; !dup {
			cookies[c.Name] = c.Value
		}
	}

	snap := &er2.Snapshot{
		Request:     &req,
		Environment: cfg.environment,
		Cookies:     cookies,
		Query:       flatten(r.URL.Query()),
		Form:        flatten(r.PostForm),
		Session:     map[string]any{},
		Queries:     cfg.queries,
	}
	if cfg.session != nil {
		if session := cfg.session(r); session != nil {
			snap.Session = session
		}
	}
	return snap
}

// flatten keeps single values as strings and repeated keys as []string.
func flatten(values map[string][]string) map[string]any {
	out := make(map[string]any, len(values))
	for key, vals := range values {
		switch len(vals) {
		case 0:
			out[key] = ""
		case 1:
			out[key] = vals[0]
		default:
			out[key] = append([]string(nil), vals...)
		}
	}
	return out
}
