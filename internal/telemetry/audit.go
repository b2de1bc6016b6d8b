package telemetry

import (
	"context"
	"log"
	"time"
)

// Audit event levels.
const (
	LevelInfo  = "INFO"
	LevelError = "ERROR"
)

// Publisher publishes audit events to the broker.
type Publisher interface {
	Publish(ctx context.Context, routingKey string, event any) error
	Close() error
}

// AuditEmitter writes structured audit records for the security-relevant
// operations: signup, login, room creation, invites. Emission is
// best-effort and never fails the request it describes.
type AuditEmitter struct {
	publisher   Publisher
	routingKey  string
	service     string
	environment string
}

// AuditEnvelope is the broker wire shape of one audit record.
type AuditEnvelope struct {
	SchemaVersion int          `json:"schema_version"`
	EventType     string       `json:"event_type"`
	OccurredAt    string       `json:"occurred_at"`
	Service       string       `json:"service"`
	Environment   string       `json:"environment"`
	RequestID     string       `json:"request_id"`
	UserID        *string      `json:"user_id,omitempty"`
	Payload       AuditPayload `json:"payload"`
}

type AuditPayload struct {
	Level string `json:"level"`
	Text  string `json:"text"`
}

func NewAuditEmitter(publisher Publisher, routingKey, service, environment string) *AuditEmitter {
	return &AuditEmitter{
		publisher:   publisher,
		routingKey:  routingKey,
		service:     service,
		environment: environment,
	}
}

// Info records a successful operation.
func (e *AuditEmitter) Info(ctx context.Context, text, requestID string, userID *string) {
	e.emit(ctx, LevelInfo, text, requestID, userID)
}

// Error records a rejected or failed operation.
func (e *AuditEmitter) Error(ctx context.Context, text, requestID string, userID *string) {
	e.emit(ctx, LevelError, text, requestID, userID)
}

func (e *AuditEmitter) emit(ctx context.Context, level, text, requestID string, userID *string) {
	if e == nil || e.publisher == nil {
		return
	}

	envelope := AuditEnvelope{
		SchemaVersion: 1,
		EventType:     "audit_log",
		OccurredAt:    time.Now().UTC().Format(time.RFC3339Nano),
		Service:       e.service,
		Environment:   e.environment,
		RequestID:     requestID,
		UserID:        userID,
		Payload: AuditPayload{
			Level: level,
			Text:  text,
		},
	}

	if err := e.publisher.Publish(ctx, e.routingKey, envelope); err != nil {
		log.Printf("audit publish failed: %v", err)
	}
}
