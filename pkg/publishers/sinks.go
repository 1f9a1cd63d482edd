package publishers

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// sinkBuilder creates a Publisher from a sink definition.
type sinkBuilder func(ctx context.Context, cfg PublisherConfig, log Logger) (Publisher, error)

var sinkBuilders = map[string]sinkBuilder{
	TypeHTTP:   newHTTPPublisher,
	TypeSQS:    newSQSPublisher,
	TypeSNS:    newSNSPublisher,
	TypePubSub: newPubSubPublisher,
}

// BuildSink instantiates the publisher for one sink definition.
func BuildSink(ctx context.Context, cfg PublisherConfig, log Logger) (Publisher, error) {
	build, ok := sinkBuilders[strings.ToLower(strings.TrimSpace(cfg.Type))]
	if !ok {
		return nil, fmt.Errorf("sink %q: unsupported type %q", cfg.ID, cfg.Type)
	}
	return build(ctx, cfg, log)
}

// OpenSinks loads the sinks file and returns a fanout over its enabled sinks.
// An empty path yields an empty fanout. If any sink fails to build, the ones
// already built are closed.
func OpenSinks(ctx context.Context, path string, log Logger) (*Fanout, error) {
	reg, err := LoadRegistry(path)
	if err != nil {
		return nil, fmt.Errorf("load sinks: %w", err)
	}

	enabled := reg.Enabled()
	pubs := make([]Publisher, 0, len(enabled))
	for _, cfg := range enabled {
		pub, err := BuildSink(ctx, cfg, log)
		if err != nil {
			closeErr := NewFanout(pubs, log).Close()
			return nil, errors.Join(fmt.Errorf("build sink %q: %w", cfg.ID, err), closeErr)
		}
		pubs = append(pubs, pub)
	}

	summaries := make([]map[string]string, 0, len(enabled))
	for _, cfg := range enabled {
		summaries = append(summaries, map[string]string{"id": cfg.ID, "type": cfg.Type})
	}
	ensureLogger(log).InfoObj("mirror sinks loaded", "sinks_meta", map[string]any{
		"path":  path,
		"count": len(summaries),
		"sinks": summaries,
	})
	return NewFanout(pubs, log), nil
}
