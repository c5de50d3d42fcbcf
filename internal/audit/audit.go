package audit

import (
	"log"
	"time"
)

// EventType represents the type of audit event
type EventType string

const (
	EventDispatchAccepted    EventType = "dispatch_accepted"
	EventDispatchRejected    EventType = "dispatch_rejected"
	EventExecutionStarted    EventType = "execution_started"
	EventExecutionCompleted  EventType = "execution_completed"
	EventExecutionFailed     EventType = "execution_failed"
	EventExecutionCancelled  EventType = "execution_cancelled"
	EventRepositoryUpserted  EventType = "repository_upserted"
)

// Log records an audit event. Details must never contain tokens or key
// material; callers pass identifiers only.
// In production, this should write to a database or external audit service
func Log(eventType EventType, repositoryID, trackingID string, details map[string]interface{}) {
	timestamp := time.Now().UTC().Format(time.RFC3339)

	log.Printf("AUDIT [%s] event=%s repository=%s tracking=%s details=%v",
		timestamp, eventType, repositoryID, trackingID, details)
}
