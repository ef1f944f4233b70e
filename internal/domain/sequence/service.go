package sequence

import (
	"context"
	"fmt"
	"time"

	"ncfledger/internal/core/apperror"
	"ncfledger/internal/core/events"
	"ncfledger/internal/core/id"
	"ncfledger/internal/core/ncf"
	"ncfledger/internal/core/tx"
	"ncfledger/pkg/logger"
)

// Auditor records administrative changes.
type Auditor interface {
	LogChange(ctx context.Context, entityType string, entityID id.ID, action string, changes map[string]any) error
}

const auditEntity = "ncf_sequence"

// ServiceConfig wires the registry.
type ServiceConfig struct {
	Repo      Repository
	TxManager tx.Manager
	Events    events.Publisher // optional
	Audit     Auditor          // optional
	Clock     ncf.Clock        // optional, defaults to the wall clock
}

// Service is the Sequence Registry.
type Service struct {
	repo   Repository
	txm    tx.Manager
	events events.Publisher
	audit  Auditor
	clock  ncf.Clock
}

// NewService creates the registry.
func NewService(cfg ServiceConfig) *Service {
	s := &Service{
		repo:   cfg.Repo,
		txm:    cfg.TxManager,
		events: cfg.Events,
		audit:  cfg.Audit,
		clock:  cfg.Clock,
	}
	if s.events == nil {
		s.events = events.Nop{}
	}
	if s.clock == nil {
		s.clock = ncf.SystemClock
	}
	return s
}

// Today returns the registry's current calendar day.
func (s *Service) Today() time.Time {
	return ncf.Day(s.clock())
}

// Create validates spec and registers the sequence with cursor = rangeStart.
func (s *Service) Create(ctx context.Context, spec Spec) (*Sequence, error) {
	seq, err := spec.Build(s.Today())
	if err != nil {
		return nil, err
	}

	err = s.txm.RunInTransaction(ctx, func(ctx context.Context) error {
		open, err := s.repo.List(ctx, ListFilter{
			OwnerID:      seq.OwnerID,
			DocumentType: seq.DocumentType,
			States:       []ncf.State{ncf.StateActive, ncf.StateInactive},
		})
		if err != nil {
			return fmt.Errorf("check open sequences: %w", err)
		}
		for _, o := range open {
			if o.Prefix == seq.Prefix {
				return duplicateOpen(seq)
			}
		}

		if err := s.repo.Create(ctx, seq); err != nil {
			return err
		}
		if err := s.logAudit(ctx, seq.ID, "create", map[string]any{
			"prefix":        seq.Prefix,
			"document_type": seq.DocumentType,
			"range_start":   seq.RangeStart,
			"range_end":     seq.RangeEnd,
			"valid_from":    seq.ValidFrom.Format(time.DateOnly),
			"valid_until":   seq.ValidUntil.Format(time.DateOnly),
			"state":         seq.State,
		}); err != nil {
			return err
		}
		return s.events.Publish(ctx, events.Event{
			AggregateType: events.AggregateSequence,
			AggregateID:   seq.ID,
			EventType:     events.TypeSequenceCreated,
			Payload:       seq,
		})
	})
	if err != nil {
		return nil, err
	}

	logger.Info(ctx, "ncf sequence created",
		"sequence_id", seq.ID,
		"owner_id", seq.OwnerID,
		"prefix", seq.Prefix,
		"document_type", seq.DocumentType,
		"range", fmt.Sprintf("%d-%d", seq.RangeStart, seq.RangeEnd),
		"state", seq.State)

	return seq, nil
}

// PreviewRange shows the first and last number a spec would issue
// without registering anything.
func (s *Service) PreviewRange(spec Spec) (Preview, error) {
	seq, err := spec.Build(s.Today())
	if err != nil {
		return Preview{}, err
	}
	return PreviewOf(*seq), nil
}

// Get returns a sequence by ID.
func (s *Service) Get(ctx context.Context, sequenceID id.ID) (*Sequence, error) {
	return s.repo.GetByID(ctx, sequenceID)
}

// List returns sequences matching filter.
func (s *Service) List(ctx context.Context, filter ListFilter) ([]*Sequence, error) {
	return s.repo.List(ctx, filter)
}

// PreviewNext returns the number the next allocation would receive.
// It never advances the cursor.
func (s *Service) PreviewNext(ctx context.Context, sequenceID id.ID) (Preview, error) {
	seq, err := s.repo.GetByID(ctx, sequenceID)
	if err != nil {
		return Preview{}, err
	}
	return PreviewOf(*seq), nil
}

// SetLifecycle toggles a sequence between Active and Inactive.
// Expired and Depleted sequences cannot be changed.
func (s *Service) SetLifecycle(ctx context.Context, sequenceID id.ID, to ncf.State) (*Sequence, error) {
	if to != ncf.StateActive && to != ncf.StateInactive {
		return nil, apperror.NewValidation("state must be active or inactive").
			WithDetail("field", "state").
			WithDetail("value", to)
	}

	var seq *Sequence
	err := s.txm.RunInTransaction(ctx, func(ctx context.Context) error {
		var err error
		seq, err = s.repo.GetForUpdate(ctx, sequenceID)
		if err != nil {
			return err
		}
		if seq.State == to {
			return nil
		}
		if !seq.State.CanTransition(to) {
			return apperror.NewInvalidTransition(string(seq.State), string(to)).
				WithDetail("sequence_id", seq.ID)
		}
		if to == ncf.StateActive && seq.ExpiredOn(s.Today()) {
			return apperror.NewInvalidTransition(string(seq.State), string(to)).
				WithDetail("sequence_id", seq.ID).
				WithDetail("reason", "validity window has ended")
		}
		return s.transition(ctx, seq, to, "admin")
	})
	if err != nil {
		return nil, err
	}
	return seq, nil
}

// FindEligible resolves the sequence an allocation should draw from.
func (s *Service) FindEligible(ctx context.Context, ownerID id.ID, documentType ncf.DocumentType, asOf time.Time, exclude ...id.ID) (*Sequence, error) {
	seq, err := s.repo.FindEligible(ctx, ownerID, documentType, ncf.Day(asOf), exclude)
	if err != nil {
		if apperror.IsNotFound(err) {
			return nil, apperror.NewNoEligibleSequence(ownerID, string(documentType))
		}
		return nil, err
	}
	return seq, nil
}

// Reservation is the outcome of ReserveNext.
type Reservation struct {
	Sequence *Sequence
	Number   string
	Counter  int64
}

// ReserveNext locks the sequence, re-checks it can issue on asOf, and
// advances the cursor by one. It must run inside the caller's transaction,
// which also records the assignment.
//
// When the sequence turns out to be expired or exhausted the corrected state
// is written before the refusal is returned; the caller commits it.
func (s *Service) ReserveNext(ctx context.Context, sequenceID id.ID, asOf time.Time) (*Reservation, error) {
	seq, err := s.repo.GetForUpdate(ctx, sequenceID)
	if err != nil {
		return nil, err
	}
	if err := s.checkIssuable(ctx, seq, ncf.Day(asOf)); err != nil {
		return nil, err
	}

	counter := seq.Cursor
	next := counter + 1
	state := seq.State
	if next > seq.RangeEnd {
		state = ncf.StateDepleted
	}

	if err := s.repo.AdvanceCursor(ctx, seq.ID, counter, next, state); err != nil {
		return nil, err
	}
	seq.Cursor = next

	if state != seq.State {
		seq.State = state
		if err := s.afterTransition(ctx, seq, ncf.StateActive, "last number issued"); err != nil {
			return nil, err
		}
	}

	return &Reservation{
		Sequence: seq,
		Number:   ncf.Format(seq.Prefix, counter),
		Counter:  counter,
	}, nil
}

// checkIssuable refuses locked sequences that cannot issue on asOf and
// persists lazily discovered expiry (as of today) or depletion.
func (s *Service) checkIssuable(ctx context.Context, seq *Sequence, asOf time.Time) error {
	switch seq.State {
	case ncf.StateDepleted:
		return apperror.NewSequenceDepleted(seq.Prefix).WithDetail("sequence_id", seq.ID)
	case ncf.StateExpired:
		return apperror.NewSequenceUnavailable(seq.Prefix, "expired").WithDetail("sequence_id", seq.ID)
	case ncf.StateInactive:
		return apperror.NewSequenceUnavailable(seq.Prefix, "inactive").WithDetail("sequence_id", seq.ID)
	}

	// Only the registry clock may end a window. A document dated past
	// validUntil is refused but leaves the sequence live.
	if seq.ExpiredOn(s.Today()) {
		if err := s.transition(ctx, seq, ncf.StateExpired, "expired on allocation"); err != nil {
			return err
		}
		return apperror.NewSequenceUnavailable(seq.Prefix, "expired").
			WithDetail("sequence_id", seq.ID).
			WithDetail("valid_until", seq.ValidUntil.Format(time.DateOnly))
	}
	if seq.ExpiredOn(asOf) {
		return apperror.NewSequenceUnavailable(seq.Prefix, "not valid after "+seq.ValidUntil.Format(time.DateOnly)).
			WithDetail("sequence_id", seq.ID).
			WithDetail("valid_until", seq.ValidUntil.Format(time.DateOnly)).
			WithDetail("as_of", asOf.Format(time.DateOnly))
	}
	if !seq.StartedOn(asOf) {
		return apperror.NewSequenceUnavailable(seq.Prefix, "not valid before "+seq.ValidFrom.Format(time.DateOnly)).
			WithDetail("sequence_id", seq.ID)
	}
	if seq.Exhausted() {
		if err := s.transition(ctx, seq, ncf.StateDepleted, "depleted on allocation"); err != nil {
			return err
		}
		return apperror.NewSequenceDepleted(seq.Prefix).WithDetail("sequence_id", seq.ID)
	}
	return nil
}

// ExplainIneligible turns "nothing eligible" into the most specific refusal.
// Active sequences that are past their window or exhausted are corrected in
// their own transaction so the state change survives the refusal.
func (s *Service) ExplainIneligible(ctx context.Context, ownerID id.ID, documentType ncf.DocumentType, asOf time.Time) error {
	asOf = ncf.Day(asOf)
	seqs, err := s.repo.List(ctx, ListFilter{OwnerID: ownerID, DocumentType: documentType})
	if err != nil {
		return fmt.Errorf("list sequences: %w", err)
	}

	var inactive, pending, terminal *Sequence
	for _, seq := range seqs {
		switch {
		case seq.State == ncf.StateActive && (seq.ExpiredOn(asOf) || seq.Exhausted()):
			var refusal error
			err := s.txm.RunInTransaction(ctx, func(ctx context.Context) error {
				locked, err := s.repo.GetForUpdate(ctx, seq.ID)
				if err != nil {
					return err
				}
				refusal = s.checkIssuable(ctx, locked, asOf)
				if refusal != nil && !apperror.IsAllocationRefusal(refusal) {
					return refusal
				}
				return nil
			})
			if err != nil {
				return err
			}
			if refusal != nil {
				return refusal
			}
		case seq.State == ncf.StateActive && !seq.StartedOn(asOf):
			if pending == nil {
				pending = seq
			}
		case seq.State == ncf.StateInactive:
			if inactive == nil {
				inactive = seq
			}
		case seq.State.Terminal():
			if terminal == nil {
				terminal = seq
			}
		}
	}

	switch {
	case pending != nil:
		return apperror.NewSequenceUnavailable(pending.Prefix, "not valid before "+pending.ValidFrom.Format(time.DateOnly)).
			WithDetail("sequence_id", pending.ID)
	case inactive != nil:
		return apperror.NewSequenceUnavailable(inactive.Prefix, "inactive").
			WithDetail("sequence_id", inactive.ID)
	case terminal != nil && terminal.State == ncf.StateDepleted:
		return apperror.NewSequenceDepleted(terminal.Prefix).WithDetail("sequence_id", terminal.ID)
	case terminal != nil:
		return apperror.NewSequenceUnavailable(terminal.Prefix, "expired").WithDetail("sequence_id", terminal.ID)
	}
	return apperror.NewNoEligibleSequence(ownerID, string(documentType))
}

// SweepResult counts transitions made by Sweep.
type SweepResult struct {
	Expired  int `json:"expired"`
	Depleted int `json:"depleted"`
}

// Sweep expires every Active sequence whose validUntil is before asOf and
// marks exhausted ones Depleted. Each transition is a compare-and-set; a
// sequence changed concurrently is skipped.
func (s *Service) Sweep(ctx context.Context, asOf time.Time) (SweepResult, error) {
	asOf = ncf.Day(asOf)
	var res SweepResult

	active, err := s.repo.List(ctx, ListFilter{States: []ncf.State{ncf.StateActive}})
	if err != nil {
		return res, fmt.Errorf("list active sequences: %w", err)
	}

	for _, seq := range active {
		var to ncf.State
		switch {
		case seq.ExpiredOn(asOf):
			to = ncf.StateExpired
		case seq.Exhausted():
			to = ncf.StateDepleted
		default:
			continue
		}

		changed := false
		err := s.txm.RunInTransaction(ctx, func(ctx context.Context) error {
			ok, err := s.repo.Transition(ctx, seq.ID, ncf.StateActive, to)
			if err != nil || !ok {
				return err
			}
			changed = true
			seq.State = to
			return s.afterTransition(ctx, seq, ncf.StateActive, "sweep")
		})
		if err != nil {
			return res, fmt.Errorf("sweep sequence %s: %w", seq.ID, err)
		}
		if !changed {
			logger.Debug(ctx, "sweep skipped sequence changed concurrently", "sequence_id", seq.ID)
			continue
		}
		if to == ncf.StateExpired {
			res.Expired++
		} else {
			res.Depleted++
		}
	}

	if res.Expired+res.Depleted > 0 {
		logger.Info(ctx, "ncf lifecycle sweep",
			"as_of", asOf.Format(time.DateOnly),
			"expired", res.Expired,
			"depleted", res.Depleted)
	}
	return res, nil
}

// transition moves a locked sequence to a new state.
func (s *Service) transition(ctx context.Context, seq *Sequence, to ncf.State, reason string) error {
	from := seq.State
	ok, err := s.repo.Transition(ctx, seq.ID, from, to)
	if err != nil {
		return err
	}
	if !ok {
		return apperror.NewConcurrentModification(auditEntity, seq.ID)
	}
	seq.State = to
	return s.afterTransition(ctx, seq, from, reason)
}

func (s *Service) afterTransition(ctx context.Context, seq *Sequence, from ncf.State, reason string) error {
	if err := s.logAudit(ctx, seq.ID, "state_change", map[string]any{
		"from":   from,
		"to":     seq.State,
		"reason": reason,
		"cursor": seq.Cursor,
	}); err != nil {
		return err
	}

	eventType := events.TypeSequenceState
	switch seq.State {
	case ncf.StateExpired:
		eventType = events.TypeSequenceExpired
	case ncf.StateDepleted:
		eventType = events.TypeSequenceDepleted
	}

	logger.Info(ctx, "ncf sequence state changed",
		"sequence_id", seq.ID,
		"prefix", seq.Prefix,
		"from", from,
		"to", seq.State,
		"reason", reason)

	return s.events.Publish(ctx, events.Event{
		AggregateType: events.AggregateSequence,
		AggregateID:   seq.ID,
		EventType:     eventType,
		Payload: map[string]any{
			"sequence_id":   seq.ID,
			"owner_id":      seq.OwnerID,
			"prefix":        seq.Prefix,
			"document_type": seq.DocumentType,
			"from":          from,
			"to":            seq.State,
			"reason":        reason,
		},
	})
}

func (s *Service) logAudit(ctx context.Context, sequenceID id.ID, action string, changes map[string]any) error {
	if s.audit == nil {
		return nil
	}
	if err := s.audit.LogChange(ctx, auditEntity, sequenceID, action, changes); err != nil {
		return fmt.Errorf("audit %s: %w", action, err)
	}
	return nil
}

func duplicateOpen(seq *Sequence) error {
	return apperror.NewDuplicate("sequence", "prefix", seq.Prefix).
		WithDetail("document_type", seq.DocumentType).
		WithDetail("reason", "an active or inactive sequence already exists for this prefix and document type")
}

// DuplicateOpenError is the error stores return when the open-sequence
// uniqueness constraint rejects an insert.
func DuplicateOpenError(seq *Sequence) error {
	return duplicateOpen(seq)
}
