// Package ije is the message codec for the conversion pipeline. It parses
// raw inbound payloads into typed envelopes and renders death records into
// the fixed-width IJE text format consumed by the national statistics
// system.
package ije

import (
	"encoding/json"
	"time"

	"vitalmsg/internal/types"
)

// Envelope is the typed form of one inbound vital-records message.
type Envelope struct {
	MessageID        string            `json:"message_id"`
	Kind             types.MessageKind `json:"kind"`
	RecordID         string            `json:"record_id"` // NCHS identifier
	Timestamp        time.Time         `json:"timestamp"` // sender-supplied
	CertNumber       string            `json:"cert_number"`
	StateAuxiliaryID string            `json:"state_auxiliary_id"`
	Jurisdiction     string            `json:"jurisdiction"`
	EventYear        int               `json:"event_year"`
	DeathRecord      *DeathRecord      `json:"death_record,omitempty"`
}

// DeathRecord carries the demographic and medical fields of a death
// certificate that feed the IJE rendering. Dates are ISO "2006-01-02"
// strings as received; partial dates are not modeled.
type DeathRecord struct {
	FirstName       string `json:"first_name"`
	MiddleInitial   string `json:"middle_initial"`
	LastName        string `json:"last_name"`
	Suffix          string `json:"suffix"`
	FatherLastName  string `json:"father_last_name"`
	Sex             string `json:"sex"` // M, F, U
	SSN             string `json:"ssn"`
	AgeYears        int    `json:"age_years"`
	DateOfBirth     string `json:"date_of_birth"`
	DateOfDeath     string `json:"date_of_death"`
	MaritalStatus   string `json:"marital_status"`
	MannerOfDeath   string `json:"manner_of_death"`
	UnderlyingCause string `json:"underlying_cause"` // ICD-10 code
}

// Codec parses raw payloads and renders IJE text. The zero value is ready
// to use.
type Codec struct{}

// NewCodec returns the message codec.
func NewCodec() *Codec {
	return &Codec{}
}

// Decode parses a raw payload into a typed Envelope.
//
// Failures are distinguishable by error code: a payload that is not valid
// JSON yields decode_message_parse; a well-formed payload missing required
// envelope fields yields decode_failed.
func (c *Codec) Decode(payload []byte) (*Envelope, error) {
	var env Envelope
	if err := json.Unmarshal(payload, &env); err != nil {
		return nil, types.NewAppError(types.ErrCodeDecodeParse, "payload is not a valid message", err)
	}

	if env.MessageID == "" {
		return nil, types.NewAppError(types.ErrCodeDecodeFailed, "message is missing message_id", nil)
	}
	if !env.Kind.Valid() {
		return nil, types.NewAppError(types.ErrCodeDecodeFailed, "message has unknown kind "+string(env.Kind), nil)
	}
	if env.Timestamp.IsZero() {
		return nil, types.NewAppError(types.ErrCodeDecodeFailed, "message is missing timestamp", nil)
	}

	return &env, nil
}
