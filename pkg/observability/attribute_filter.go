package observability

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"go.opentelemetry.io/otel/attribute"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

// attrAction is what the exporter-side filter does with one span attribute.
type attrAction uint8

const (
	attrDrop attrAction = iota
	attrKeep
	attrRedact
)

// Decoded payloads can carry serial numbers or customer data. They are
// exported only as their length.
var redactedKeys = map[string]bool{
	"detection.payload": true,
	"scan.payload":      true,
}

// exportedNamespaces lists the attribute namespaces the pipeline and the admin
// server emit. Keys outside them are dropped.
var exportedNamespaces = []string{"proscan", "frame", "detection", "decoder", "pipeline", "scan", "http", "error"}

func classifyAttr(key string) attrAction {
	if redactedKeys[key] {
		return attrRedact
	}

	namespace, _, _ := strings.Cut(key, ".")

	for _, ns := range exportedNamespaces {
		if namespace == ns {
			return attrKeep
		}
	}

	return attrDrop
}

// attributeFilter is a SpanProcessor that rewrites span attributes before they
// reach the exporter.
type attributeFilter struct {
	delegate sdktrace.SpanProcessor
	logger   *slog.Logger
}

// NewAttributeFilter wraps delegate so that exported spans keep only the
// pipeline's attribute namespaces and carry payloads as lengths. When logger is
// non-nil, dropped keys are logged as warnings.
func NewAttributeFilter(delegate sdktrace.SpanProcessor, logger *slog.Logger) sdktrace.SpanProcessor {
	return &attributeFilter{delegate: delegate, logger: logger}
}

func (f *attributeFilter) OnStart(parent context.Context, s sdktrace.ReadWriteSpan) {
	f.delegate.OnStart(parent, s)
}

// OnEnd hands the delegate a view with rewritten attributes; ended spans are read-only.
func (f *attributeFilter) OnEnd(s sdktrace.ReadOnlySpan) {
	f.delegate.OnEnd(&filteredSpan{ReadOnlySpan: s, attrs: f.rewrite(s.Attributes())})
}

func (f *attributeFilter) Shutdown(ctx context.Context) error {
	err := f.delegate.Shutdown(ctx)
	if err != nil {
		return fmt.Errorf("attribute filter shutdown: %w", err)
	}

	return nil
}

func (f *attributeFilter) ForceFlush(ctx context.Context) error {
	err := f.delegate.ForceFlush(ctx)
	if err != nil {
		return fmt.Errorf("attribute filter flush: %w", err)
	}

	return nil
}

func (f *attributeFilter) rewrite(attrs []attribute.KeyValue) []attribute.KeyValue {
	out := make([]attribute.KeyValue, 0, len(attrs))

	for _, kv := range attrs {
		switch classifyAttr(string(kv.Key)) {
		case attrKeep:
			out = append(out, kv)
		case attrRedact:
			out = append(out, attribute.Int(string(kv.Key)+"_len", len(kv.Value.Emit())))
		case attrDrop:
			if f.logger != nil {
				f.logger.Warn("span attribute dropped", "key", string(kv.Key))
			}
		}
	}

	return out
}

type filteredSpan struct {
	sdktrace.ReadOnlySpan

	attrs []attribute.KeyValue
}

func (s *filteredSpan) Attributes() []attribute.KeyValue {
	return s.attrs
}
