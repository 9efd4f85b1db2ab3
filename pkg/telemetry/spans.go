package telemetry

import (
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// dropKeys are never exported: they may carry private message text.
var dropKeys = map[string]struct{}{
	"command.body":    {},
	"message.body":    {},
	"message.subject": {},
}

// RecordDecisionEvent attaches a permission or filter decision to span.
func RecordDecisionEvent(span trace.Span, kind string, allowed bool, reason string, attrs ...attribute.KeyValue) {
	if span == nil || !span.IsRecording() {
		return
	}

	eventAttrs := []attribute.KeyValue{
		attribute.String("decision.kind", kind),
		attribute.Bool("decision.allowed", allowed),
	}
	if reason != "" {
		eventAttrs = append(eventAttrs, attribute.String("decision.reason", reason))
	}
	eventAttrs = append(eventAttrs, RedactAttributes(attrs)...)

	span.AddEvent("tor.decision", trace.WithAttributes(eventAttrs...))
	if !allowed {
		span.SetAttributes(attribute.Bool("decision.denied", true))
	}
}

// RedactAttributes removes attributes that may carry message content.
// Usernames are masked down to their first and last characters.
func RedactAttributes(attrs []attribute.KeyValue) []attribute.KeyValue {
	if len(attrs) == 0 {
		return attrs
	}

	redacted := make([]attribute.KeyValue, 0, len(attrs))
	for _, kv := range attrs {
		key := string(kv.Key)
		if _, drop := dropKeys[key]; drop {
			continue
		}
		if key == "command.author" {
			redacted = append(redacted, attribute.String(key, maskValue(kv.Value.AsString())))
			continue
		}
		redacted = append(redacted, kv)
	}
	return redacted
}

// maskValue keeps the first and last character: "tor_mod" becomes "t***d".
func maskValue(s string) string {
	if len(s) <= 2 {
		return "***"
	}
	return s[:1] + "***" + s[len(s)-1:]
}
