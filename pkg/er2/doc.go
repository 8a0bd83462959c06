// Package er2 is a client for the ErrorReport2 crash and error collector.
//
// When the hosting application detects a runtime error, a panic, or a list
// of error signals, er2 assembles a structured snapshot of the failure and
// the surrounding execution context, removes blocked input keys, and sends
// it to the collector with a single bounded HTTP POST.
//
// # Core Components
//
//   - Report: the wire payload (authentication, general, environment, request,
//     database, cookies, get, post, session, and errors or throwable)
//   - Assembler: builds a Report from a Snapshot and a Payload, honoring the
//     section toggles of Config
//   - Redactor: drops block-listed keys and renders surviving values as text
//   - HTTPTransport: the primary Sink, posting JSON to the collector
//   - Client: entry points ReportErrors, ReportException, and Recover
//
// # Quick Start
//
//	client := er2.NewClient(er2.DefaultConfig(url, token))
//	snap := &er2.Snapshot{Environment: er2.ProcessEnvironment()}
//	ok, err := client.ReportException(ctx, nil, snap, err)
//
// For panics:
//
//	defer client.Recover(ctx, snap)
//
// # Design Principles
//
//   - Reporting is best effort: delivery failures return false, never an error
//   - Serialization defects are returned, since they indicate a packaging bug
//   - A disabled section is sent as null, an enabled empty one as {}
//   - Host input is passed as explicit snapshots; nothing reads global request state
package er2
