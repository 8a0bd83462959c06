package httpcapture

import (
	"context"
	"net/http"

	"github.com/google/uuid"
	"github.com/strongdm/er2-go/pkg/er2"
)

// RequestIDHeader carries the correlation id sent as er2_session_id.
const RequestIDHeader = "X-Request-ID"

// Reporter is the part of *er2.Client the middleware needs.
type Reporter interface {
	ReportException(ctx context.Context, correlationID *string, snap *er2.Snapshot, err error) (bool, error)
}

// Middleware recovers panics in next, reports them as exceptions and
// answers 500. The request id is taken from X-Request-ID or generated, and
// is attached to the request context with er2.WithCorrelationID.
// http.ErrAbortHandler is re-panicked without a report.
//
// Example usage:
//
//	handler = httpcapture.Middleware(client)(handler)
func Middleware(reporter Reporter, opts ...Option) func(http.Handler) http.Handler {
	cfg := newCaptureConfig(opts)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			requestID := r.Header.Get(RequestIDHeader)
			if requestID == "" {
				requestID = uuid.NewString()
			}
			w.Header().Set(RequestIDHeader, requestID)
			r = r.WithContext(er2.WithCorrelationID(r.Context(), requestID))

			defer func() {
				rec := recover()
				if rec == nil {
					return
				}
				if rec == http.ErrAbortHandler {
					panic(rec)
				}

				perr := er2.NewPanicError(rec)
				// Delivery is best effort; the response goes out regardless.
				_, _ = reporter.ReportException(r.Context(), &requestID, snapshot(r, cfg), perr)

				http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
			}()

			next.ServeHTTP(w, r)
		})
	}
}
