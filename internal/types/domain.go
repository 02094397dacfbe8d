// Package types defines the domain model shared across the vitalmsg service:
// inbound and outgoing vital-records messages, IJE artifacts, the audit log,
// and the application error taxonomy.
package types

import "time"

// InboundMessage is one received vital-records message, persisted by the
// ingestion boundary before the conversion pipeline sees it.
//
// MessageID is the business message identifier: a globally unique string
// assigned by the sender to one message instance. A resend carries a new
// MessageID; the underlying death record keeps its NCHS identifier across
// submission and updates (see AuditLogEntry.RecordID).
type InboundMessage struct {
	ID           int64             `json:"id"`
	Payload      []byte            `json:"-"` // raw serialized message as received
	MessageID    string            `json:"message_id"`
	Kind         MessageKind       `json:"kind"`
	Jurisdiction string            `json:"jurisdiction"`
	CertNumber   string            `json:"cert_number"`
	EventYear    int               `json:"event_year"`
	EventType    string            `json:"event_type"`
	Status       ProcessingStatus  `json:"status"`
	Outcome      ConversionOutcome `json:"conversion_outcome"`
	Source       string            `json:"source"` // submission channel tag, e.g. "api"
	CreatedAt    time.Time         `json:"created_at"`
	UpdatedAt    time.Time         `json:"updated_at"`
}

// OutgoingMessage is one message available for retrieval by a jurisdiction
// or by the STEVE aggregator. Exactly one acknowledgement or error is
// produced per processed inbound message, regardless of duplicate or
// ordering outcome.
//
// RetrievedAt and SteveRetrievedAt are independent delivery markers, each
// set at most once by the corresponding consumer and never cleared.
type OutgoingMessage struct {
	ID               string       `json:"id"`
	Payload          []byte       `json:"payload"`
	MessageID        string       `json:"message_id"`
	Kind             MessageKind  `json:"kind"`
	Jurisdiction     string       `json:"jurisdiction"`
	CertNumber       string       `json:"cert_number"`
	EventYear        int          `json:"event_year"`
	EventType        string       `json:"event_type"`
	CreatedAt        time.Time    `json:"created_at"`
	RetrievedAt      *time.Time   `json:"retrieved_at,omitempty"`
	SteveRetrievedAt *time.Time   `json:"steve_retrieved_at,omitempty"`
}

// IJEArtifact is the converted fixed-width representation of a death record,
// keyed by the business message identifier that produced it. Artifacts are
// append-only: a later update produces a new row, never a mutation.
type IJEArtifact struct {
	ID        int64     `json:"id"`
	MessageID string    `json:"message_id"`
	RecordID  string    `json:"record_id"` // NCHS identifier
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}

// AuditLogEntry is an append-only record of one conversion decision. Entries
// are used both for duplicate detection (by MessageID) and for establishing
// message recency per death record (latest MessageTime by RecordID).
// They are never updated or deleted.
type AuditLogEntry struct {
	ID               int64     `json:"id"`
	MessageID        string    `json:"message_id"`
	RecordID         string    `json:"record_id"` // NCHS identifier
	Jurisdiction     string    `json:"jurisdiction"`
	MessageTime      time.Time `json:"message_time"` // sender-supplied, ordering key
	StateAuxiliaryID string    `json:"state_auxiliary_id"`
	CreatedAt        time.Time `json:"created_at"`
}

// AckPayload is the body of an acknowledgement outgoing message. It
// references the acknowledged inbound message by its business identifier.
type AckPayload struct {
	MessageID      string      `json:"message_id"`
	Kind           MessageKind `json:"kind"`
	AckedMessageID string      `json:"acked_message_id"`
	RecordID       string      `json:"record_id,omitempty"`
	CertNumber     string      `json:"cert_number,omitempty"`
	Jurisdiction   string      `json:"jurisdiction,omitempty"`
}

// ErrorPayload is the body of an error-kind outgoing message, emitted when
// decode or conversion of an inbound message throws. It carries a reference
// to the original message so the sender can correlate.
type ErrorPayload struct {
	MessageID        string      `json:"message_id"`
	Kind             MessageKind `json:"kind"`
	FailedMessageID  string      `json:"failed_message_id"`
	Code             string      `json:"code"`
	Detail           string      `json:"detail"`
}
