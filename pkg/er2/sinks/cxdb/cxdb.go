// Package cxdb provides a sink that mirrors reports into cxdb as SystemMessage items.
package cxdb

import (
	"context"
	"encoding/json"
	"time"

	"github.com/pkg/errors"
	cxdbclient "github.com/strongdm/ai-cxdb/clients/go"
	cxdtypes "github.com/strongdm/ai-cxdb/clients/go/types"
	"github.com/strongdm/er2-go/pkg/er2"
)

const maxTitleLen = 100

// CXDBClient is the minimal interface for cxdb client operations.
// The real *cxdb.Client satisfies this interface.
type CXDBClient interface {
	CreateContext(ctx context.Context, baseTurnID uint64) (*cxdbclient.ContextHead, error)
	AppendTurn(ctx context.Context, req *cxdbclient.AppendRequest) (*cxdbclient.AppendResult, error)
}

// CXDBSinkOption configures the CXDB sink.
type CXDBSinkOption func(*cxdbSinkConfig)

type cxdbSinkConfig struct {
	orphanLabels []string
	clientTag    string
}

// WithOrphanLabels sets labels for contexts created for unlinked reports.
func WithOrphanLabels(labels []string) CXDBSinkOption {
	return func(c *cxdbSinkConfig) {
		c.orphanLabels = labels
	}
}

// WithClientTag sets the client tag for orphan contexts.
func WithClientTag(tag string) CXDBSinkOption {
	return func(c *cxdbSinkConfig) {
		c.clientTag = tag
	}
}

// cxdbSink writes reports to cxdb as SystemMessage items.
type cxdbSink struct {
	client       CXDBClient
	orphanLabels []string
	clientTag    string
}

// NewCXDBSink creates a sink that writes to cxdb. Reports go to the context
// attached with er2.WithContextID, or to a new orphan context.
func NewCXDBSink(client CXDBClient, opts ...CXDBSinkOption) er2.Sink {
	cfg := &cxdbSinkConfig{
		orphanLabels: []string{"er2", "unlinked"},
		clientTag:    "er2",
	}
	for _, opt := range opts {
		opt(cfg)
	}

	return &cxdbSink{
		client:       client,
		orphanLabels: cfg.orphanLabels,
		clientTag:    cfg.clientTag,
	}
}

// Write appends the report to cxdb. The report id is the idempotency key.
// The collector token is blanked in the stored content.
func (s *cxdbSink) Write(ctx context.Context, report *er2.Report) error {
	stored := *report
	stored.Authentication.Token = ""
	content, err := json.Marshal(&stored)
	if err != nil {
		return errors.Wrap(err, "encoding report")
	}

	contextID, linked := er2.ContextIDFromContext(ctx)
	if !linked {
		head, err := s.client.CreateContext(ctx, 0)
		if err != nil {
			return errors.Wrap(err, "creating orphan context")
		}
		contextID = head.ContextID
	}

	item := s.buildConversationItem(report, string(content), !linked)

	// Encode to msgpack using the official cxdb encoder.
	payload, err := cxdbclient.EncodeMsgpack(item)
	if err != nil {
		return errors.Wrap(err, "encoding payload")
	}

	_, err = s.client.AppendTurn(ctx, &cxdbclient.AppendRequest{
		ContextID:      contextID,
		ParentTurnID:   0,
		TypeID:         cxdtypes.TypeIDConversationItem,
		TypeVersion:    cxdtypes.TypeVersionConversationItem,
		Payload:        payload,
		IdempotencyKey: report.ID,
	})
	if err != nil {
		return errors.Wrap(err, "appending turn")
	}
	return nil
}

// buildConversationItem wraps the report JSON in a canonical ConversationItem.
func (s *cxdbSink) buildConversationItem(report *er2.Report, content string, isOrphan bool) *cxdtypes.ConversationItem {
	title := er2.Title(report)
	if len(title) > maxTitleLen {
		title = title[:maxTitleLen-3] + "..."
	}

	item := &cxdtypes.ConversationItem{
		ItemType: cxdtypes.ItemTypeSystem,
		Status:   cxdtypes.ItemStatusComplete,
		ID:       report.ID,
		System: &cxdtypes.SystemMessage{
			Kind:    cxdtypes.SystemKindError,
			Title:   title,
			Content: content,
		},
	}
	if ts, ok := reportTime(report); ok {
		item.Timestamp = ts
	}

	// cxdb expects context metadata on the first turn of a new context.
	if isOrphan {
		item.ContextMetadata = &cxdtypes.ContextMetadata{
			Labels:    s.orphanLabels,
			ClientTag: s.clientTag,
		}
	}
	return item
}

// reportTime reads the general timestamp, which carries no zone and is
// interpreted as local time.
func reportTime(report *er2.Report) (int64, bool) {
	t, err := time.ParseInLocation(er2.TimestampLayout, report.General.Timestamp, time.Local)
	if err != nil {
		return 0, false
	}
	return t.UnixMilli(), true
}

// Close is a no-op for the cxdb sink.
func (s *cxdbSink) Close() error {
	return nil
}
