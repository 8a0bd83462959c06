// transport.go delivers a serialized report to the collector with a single
// bounded HTTP POST.

package er2

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/evergreen-ci/utility"
	"github.com/pkg/errors"
)

// ContentType is the header value the collector's wire contract expects.
// The body is JSON text regardless; collectors depend on this value.
const ContentType = "application/x-www-form-urlencoded"

// DeliveryError is a transport-level failure: the collector could not be
// reached, timed out, or answered with a non-2xx status. It is never fatal
// to the caller.
type DeliveryError struct {
	URL        string
	StatusCode int
	Err        error
}

func (e *DeliveryError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("delivering report to '%s': %s", e.URL, e.Err)
	}
	return fmt.Sprintf("delivering report to '%s': collector answered %d", e.URL, e.StatusCode)
}

func (e *DeliveryError) Unwrap() error {
	return e.Err
}

// HTTPTransport is the Sink that POSTs reports to the collector.
type HTTPTransport struct {
	serverURL string
	timeout   time.Duration
	client    *http.Client
}

// NewHTTPTransport builds a transport for cfg. A nil client borrows one from
// the shared pool for each send.
func NewHTTPTransport(cfg Config, client *http.Client) *HTTPTransport {
	ApplyDefaults(&cfg)
	return &HTTPTransport{
		serverURL: cfg.ServerURL,
		timeout:   cfg.Timeout,
		client:    client,
	}
}

// Write serializes report and POSTs it once. Serialization and request
// construction failures are returned as plain errors; everything that
// happens on the wire is returned as a *DeliveryError.
func (t *HTTPTransport) Write(ctx context.Context, report *Report) error {
	body, err := json.Marshal(report)
	if err != nil {
		return errors.Wrap(err, "serializing report")
	}

	ctx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.serverURL, bytes.NewReader(body))
	if err != nil {
		return errors.Wrapf(err, "creating request for '%s'", t.serverURL)
	}
	req.Header.Set("Content-Type", ContentType)

	client := t.client
	if client == nil {
		client = utility.GetHTTPClient()
		defer utility.PutHTTPClient(client)
	}

	resp, err := client.Do(req)
	if err != nil {
		return &DeliveryError{URL: t.serverURL, Err: err}
	}
	defer resp.Body.Close()

	answer, err := io.ReadAll(resp.Body)
	if err != nil {
		return &DeliveryError{URL: t.serverURL, StatusCode: resp.StatusCode, Err: err}
	}
	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return &DeliveryError{URL: t.serverURL, StatusCode: resp.StatusCode}
	}
	if isFailureBody(answer) {
		return &DeliveryError{URL: t.serverURL, StatusCode: resp.StatusCode, Err: errors.Errorf("collector answered body '%s'", answer)}
	}
	return nil
}

// isFailureBody reports whether the collector's answer counts as a refusal.
// An empty body and a literal "0" are refusals; anything else is accepted.
func isFailureBody(body []byte) bool {
	return len(body) == 0 || string(body) == "0"
}

// Close is a no-op; pooled clients are returned after every send.
func (t *HTTPTransport) Close() error {
	return nil
}

// Send POSTs report to cfg.ServerURL once. It returns false without an error
// for any transport failure. A non-nil error means the report could not be
// serialized or the request could not be built.
func Send(ctx context.Context, report *Report, cfg Config) (bool, error) {
	return delivered(NewHTTPTransport(cfg, nil).Write(ctx, report))
}

func delivered(err error) (bool, error) {
	if err == nil {
		return true, nil
	}
	var deliveryErr *DeliveryError
	if errors.As(err, &deliveryErr) {
		return false, nil
	}
	return false, err
}
