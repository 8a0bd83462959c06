package er2

import (
	"context"
	"sync"
	"time"
)

var fixedTime = time.Date(2025, 1, 26, 15, 4, 5, 0, time.Local)

func fixedClock() time.Time { return fixedTime }

func fixedHost(context.Context) HostIdentity {
	return HostIdentity{
		Name:      Some("web-1"),
		OS:        Some("linux"),
		OSRelease: Some("6.1.0"),
		OSVersion: Some("12"),
	}
}

func unavailableHost(context.Context) HostIdentity {
	return HostIdentity{}
}

// testSink captures reports for verification in tests.
type testSink struct {
	mu       sync.Mutex
	reports  []*Report
	writeErr error
	closed   bool
	closeErr error
}

func (s *testSink) Write(ctx context.Context, report *Report) error {
	if s.writeErr != nil {
		return s.writeErr
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reports = append(s.reports, report)
	return nil
}

func (s *testSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return s.closeErr
}

func (s *testSink) getReports() []*Report {
	s.mu.Lock()
	defer s.mu.Unlock()
	result := make([]*Report, len(s.reports))
	copy(result, s.reports)
	return result
}

func strPtr(s string) *string { return &s }
