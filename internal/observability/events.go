package observability

import "time"

// EventEnvelope is the wire shape for relay lifecycle events published to
// the broker. EmittedAt is stamped by PublishEvent.
type EventEnvelope struct {
	EventType string      `json:"event_type"`
	EventName string      `json:"event_name"`
	EmittedAt string      `json:"emitted_at,omitempty"`
	Payload   interface{} `json:"payload"`
}

// BuildHeaders carries request and trace correlation ids into the message
// headers so consumers can join broker events with traces.
func BuildHeaders(requestID, traceID string) map[string]string {
	headers := make(map[string]string, 2)
	if requestID != "" {
		headers["x-request-id"] = requestID
	}
	if traceID != "" {
		headers["trace_id"] = traceID
	}
	return headers
}

func stampEnvelope(envelope EventEnvelope) EventEnvelope {
	if envelope.EmittedAt == "" {
		envelope.EmittedAt = time.Now().UTC().Format(time.RFC3339Nano)
	}
	return envelope
}
