package convert

import (
	"context"

	"vitalmsg/internal/types"
)

// fakeStore is an in-memory PipelineStore. WithTx snapshots state before the
// callback and restores it on error, matching the all-or-nothing behavior of
// the real transaction runner.
type fakeStore struct {
	inbound   map[int64]*types.InboundMessage
	outgoing  []*types.OutgoingMessage
	artifacts []*types.IJEArtifact
	audit     []*types.AuditLogEntry
	outcomes  map[int64]types.ConversionOutcome
	processed map[int64]bool

	failOn map[string]error
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		inbound:   make(map[int64]*types.InboundMessage),
		outcomes:  make(map[int64]types.ConversionOutcome),
		processed: make(map[int64]bool),
		failOn:    make(map[string]error),
	}
}

func (s *fakeStore) fail(method string) error {
	return s.failOn[method]
}

func (s *fakeStore) GetInbound(_ context.Context, id int64) (*types.InboundMessage, error) {
	if err := s.fail("GetInbound"); err != nil {
		return nil, err
	}
	msg, ok := s.inbound[id]
	if !ok {
		return nil, types.NewAppError(types.ErrCodeNotFoundMessage, "inbound message not found", nil)
	}
	return msg, nil
}

func (s *fakeStore) MarkProcessed(_ context.Context, id int64) error {
	if err := s.fail("MarkProcessed"); err != nil {
		return err
	}
	s.processed[id] = true
	return nil
}

func (s *fakeStore) InsertOutgoing(_ context.Context, m *types.OutgoingMessage) error {
	if err := s.fail("InsertOutgoing"); err != nil {
		return err
	}
	s.outgoing = append(s.outgoing, m)
	return nil
}

func (s *fakeStore) InsertArtifact(_ context.Context, a *types.IJEArtifact) error {
	if err := s.fail("InsertArtifact"); err != nil {
		return err
	}
	s.artifacts = append(s.artifacts, a)
	return nil
}

func (s *fakeStore) AppendAuditEntry(_ context.Context, e *types.AuditLogEntry) error {
	if err := s.fail("AppendAuditEntry"); err != nil {
		return err
	}
	s.audit = append(s.audit, e)
	return nil
}

func (s *fakeStore) AuditEntryExists(_ context.Context, messageID string) (bool, error) {
	if err := s.fail("AuditEntryExists"); err != nil {
		return false, err
	}
	for _, e := range s.audit {
		if e.MessageID == messageID {
			return true, nil
		}
	}
	return false, nil
}

func (s *fakeStore) LatestAuditEntry(_ context.Context, recordID string) (*types.AuditLogEntry, error) {
	if err := s.fail("LatestAuditEntry"); err != nil {
		return nil, err
	}
	var latest *types.AuditLogEntry
	for _, e := range s.audit {
		if e.RecordID != recordID {
			continue
		}
		if latest == nil || e.MessageTime.After(latest.MessageTime) {
			latest = e
		}
	}
	return latest, nil
}

func (s *fakeStore) SetOutcome(_ context.Context, id int64, outcome types.ConversionOutcome) error {
	if err := s.fail("SetOutcome"); err != nil {
		return err
	}
	s.outcomes[id] = outcome
	return nil
}

type fakeSnapshot struct {
	outgoing  []*types.OutgoingMessage
	artifacts []*types.IJEArtifact
	audit     []*types.AuditLogEntry
	outcomes  map[int64]types.ConversionOutcome
}

func (s *fakeStore) WithTx(_ context.Context, fn func(tx types.PipelineTx) error) error {
	if err := s.fail("WithTx"); err != nil {
		return err
	}

	snap := fakeSnapshot{
		outgoing:  append([]*types.OutgoingMessage(nil), s.outgoing...),
		artifacts: append([]*types.IJEArtifact(nil), s.artifacts...),
		audit:     append([]*types.AuditLogEntry(nil), s.audit...),
		outcomes:  make(map[int64]types.ConversionOutcome, len(s.outcomes)),
	}
	for k, v := range s.outcomes {
		snap.outcomes[k] = v
	}

	if err := fn(s); err != nil {
		s.outgoing = snap.outgoing
		s.artifacts = snap.artifacts
		s.audit = snap.audit
		s.outcomes = snap.outcomes
		return err
	}
	return nil
}

var _ types.PipelineStore = (*fakeStore)(nil)
