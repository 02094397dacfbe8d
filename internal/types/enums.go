package types

// MessageKind identifies the kind of a vital-records message as assigned by
// the sender. Inbound messages carry submission/update/void/alias kinds;
// outgoing messages produced by this service are acknowledgements or errors.
type MessageKind string

const (
	KindSubmission      MessageKind = "submission"
	KindUpdate          MessageKind = "update"
	KindVoid            MessageKind = "void"
	KindAlias           MessageKind = "alias"
	KindAcknowledgement MessageKind = "acknowledgement"
	KindError           MessageKind = "error"
)

// Valid reports whether the kind is one accepted on the ingestion boundary.
// Acknowledgement and error kinds are produced by this service, never
// accepted from senders.
func (k MessageKind) Valid() bool {
	switch k {
	case KindSubmission, KindUpdate, KindVoid, KindAlias:
		return true
	}
	return false
}

// ProcessingStatus is the lifecycle state of an inbound message.
// A message transitions QUEUED -> PROCESSED exactly once and is never
// reverted. PROCESSED means "conversion was attempted", not "succeeded";
// the ConversionOutcome field records what happened.
type ProcessingStatus string

const (
	StatusQueued    ProcessingStatus = "QUEUED"
	StatusProcessed ProcessingStatus = "PROCESSED"
)

// ConversionOutcome records the result of the legacy-conversion attempt for
// an inbound message. It is kept separate from ProcessingStatus so that a
// crash between "attempted" and "outcome recorded" is diagnosable: a row
// with status=PROCESSED and outcome=pending was lost mid-conversion.
type ConversionOutcome string

const (
	// OutcomePending is set when the message is marked PROCESSED, before
	// the conversion attempt begins.
	OutcomePending ConversionOutcome = "pending"
	// OutcomeConverted means an IJE artifact was written.
	OutcomeConverted ConversionOutcome = "converted"
	// OutcomeSkipped means the message was acknowledged (where applicable)
	// but no artifact was written: duplicates, stale updates, and message
	// kinds that carry no death record.
	OutcomeSkipped ConversionOutcome = "skipped"
	// OutcomeFailed means decode or conversion threw; an error-kind
	// outgoing message referencing the original was emitted instead.
	OutcomeFailed ConversionOutcome = "failed"
)

// FeedConsumer distinguishes the two pollers of the outgoing-message feed.
// Each consumer has its own retrieved marker on outgoing_messages; the rows
// themselves are shared.
type FeedConsumer string

const (
	// ConsumerJurisdiction is the submitting state/territory polling for
	// acknowledgements of its own messages.
	ConsumerJurisdiction FeedConsumer = "jurisdiction"
	// ConsumerSteve is the national aggregator, which polls the feed across
	// all jurisdictions.
	ConsumerSteve FeedConsumer = "steve"
)
