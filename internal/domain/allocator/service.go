// Package allocator hands out NCF numbers: it resolves an eligible
// sequence, reserves its next number and records the assignment in one
// transaction.
package allocator

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"ncfledger/internal/core/apperror"
	"ncfledger/internal/core/events"
	"ncfledger/internal/core/id"
	"ncfledger/internal/core/ncf"
	"ncfledger/internal/core/tx"
	"ncfledger/internal/domain/assignment"
	"ncfledger/internal/domain/sequence"
	"ncfledger/pkg/logger"
)

var tracer = otel.Tracer("ncfledger/allocator")

// Request asks for one number for one document.
type Request struct {
	OwnerID      id.ID
	DocumentType ncf.DocumentType
	DocumentID   id.ID
	// AsOf is the issuing day; zero means today.
	AsOf time.Time
}

// DocumentLinker stores the assignment on the document inside the
// allocation transaction.
type DocumentLinker interface {
	LinkAssignment(ctx context.Context, documentID, ownerID, assignmentID id.ID, number string) error
}

// ServiceConfig wires the allocator.
type ServiceConfig struct {
	TxManager tx.Manager
	Registry  *sequence.Service
	Ledger    *assignment.Service
	Documents DocumentLinker   // optional
	Events    events.Publisher // optional
	Metrics   Recorder         // optional
	Clock     ncf.Clock        // optional
	Config    Config
}

// Service is the allocator.
type Service struct {
	txm       tx.Manager
	registry  *sequence.Service
	ledger    *assignment.Service
	documents DocumentLinker
	events    events.Publisher
	metrics   Recorder
	clock     ncf.Clock
	cfg       Config
}

// NewService creates an allocator.
func NewService(cfg ServiceConfig) *Service {
	s := &Service{
		txm:       cfg.TxManager,
		registry:  cfg.Registry,
		ledger:    cfg.Ledger,
		documents: cfg.Documents,
		events:    cfg.Events,
		metrics:   cfg.Metrics,
		clock:     cfg.Clock,
		cfg:       cfg.Config.withDefaults(),
	}
	if s.events == nil {
		s.events = events.Nop{}
	}
	if s.metrics == nil {
		s.metrics = nopRecorder{}
	}
	if s.clock == nil {
		s.clock = ncf.SystemClock
	}
	return s
}

// Allocate issues the next number for req.DocumentID.
//
// Refusals (NoEligibleSequence, SequenceUnavailable, SequenceDepleted,
// AlreadyAssigned) are returned as AppErrors; the caller decides whether the
// document waits or proceeds unnumbered.
func (s *Service) Allocate(ctx context.Context, req Request) (*assignment.Assignment, error) {
	start := time.Now()
	ctx, span := tracer.Start(ctx, "ncf.allocate",
		trace.WithAttributes(
			attribute.String("ncf.owner_id", req.OwnerID.String()),
			attribute.String("ncf.document_type", string(req.DocumentType)),
			attribute.String("ncf.document_id", req.DocumentID.String()),
		))
	defer span.End()

	a, err := s.allocate(ctx, req)

	outcome := outcomeOf(err)
	s.metrics.ObserveAllocation(outcome, time.Since(start))
	span.SetAttributes(attribute.String("ncf.outcome", outcome))

	if err != nil {
		span.SetStatus(codes.Error, outcome)
		s.logFailure(ctx, req, outcome, err)
		return nil, err
	}

	span.SetAttributes(attribute.String("ncf.number", a.Number))
	logger.Info(ctx, "ncf assigned",
		"number", a.Number,
		"sequence_id", a.SequenceID,
		"document_id", a.DocumentID,
		"owner_id", a.OwnerID,
		"document_type", a.DocumentType)
	return a, nil
}

func (s *Service) allocate(ctx context.Context, req Request) (*assignment.Assignment, error) {
	if id.IsNil(req.OwnerID) || id.IsNil(req.DocumentID) {
		return nil, apperror.NewValidation("owner and document are required").WithDetail("field", "documentId")
	}
	if !req.DocumentType.Valid() {
		return nil, apperror.NewValidation("unknown document type").
			WithDetail("field", "documentType").
			WithDetail("value", req.DocumentType)
	}

	asOf := ncf.Day(req.AsOf)
	if req.AsOf.IsZero() {
		asOf = ncf.Day(s.clock())
	}

	existing, err := s.ledger.FindByDocument(ctx, req.DocumentID)
	switch {
	case err == nil:
		return nil, apperror.NewAlreadyAssigned(req.DocumentID, existing.Number)
	case !apperror.IsNotFound(err):
		return nil, fmt.Errorf("check existing assignment: %w", err)
	}

	var exclude []id.ID
	var lastRefusal error

	for hop := 0; hop < s.cfg.MaxSequenceHops; hop++ {
		seq, err := s.registry.FindEligible(ctx, req.OwnerID, req.DocumentType, asOf, exclude...)
		if err != nil {
			if !apperror.IsCode(err, apperror.CodeNoEligibleSequence) {
				return nil, err
			}
			if lastRefusal != nil {
				return nil, lastRefusal
			}
			return nil, s.registry.ExplainIneligible(ctx, req.OwnerID, req.DocumentType, asOf)
		}

		a, err := s.allocateFrom(ctx, seq, req, asOf)
		switch {
		case err == nil:
			return a, nil
		case apperror.IsCode(err, apperror.CodeSequenceUnavailable, apperror.CodeSequenceDepleted):
			// Lost a race for the last number or the window closed; another
			// sequence may still serve the request.
		case apperror.IsCode(err, apperror.CodeDuplicateNumber):
			logger.Error(ctx, "ncf number collision on insert",
				"integrity", true,
				"sequence_id", seq.ID,
				"prefix", seq.Prefix,
				"error", err)
		case apperror.IsCode(err, apperror.CodeAlreadyAssigned):
			// The pre-check passed, so a concurrent request numbered the
			// same document first.
			logger.Error(ctx, "ncf document numbered concurrently",
				"integrity", true,
				"document_id", req.DocumentID,
				"error", err)
			return nil, err
		default:
			return nil, err
		}
		exclude = append(exclude, seq.ID)
		lastRefusal = err
	}

	return nil, lastRefusal
}

// allocateFrom runs the reservation transaction against one sequence,
// retrying lock timeouts and serialization failures with backoff.
func (s *Service) allocateFrom(ctx context.Context, seq *sequence.Sequence, req Request, asOf time.Time) (*assignment.Assignment, error) {
	for attempt := 1; ; attempt++ {
		a, err := s.reserveAndRecord(ctx, seq.ID, req, asOf)
		if err == nil || !apperror.IsTransient(err) {
			return a, err
		}

		if attempt >= s.cfg.MaxAttempts {
			return nil, apperror.NewSequenceUnavailable(seq.Prefix, "contention").
				WithDetail("sequence_id", seq.ID).
				WithDetail("attempts", attempt).
				WithCause(err)
		}

		s.metrics.IncRetry()
		wait := s.cfg.backoff(attempt)
		logger.Warn(ctx, "ncf reservation contended, retrying",
			"sequence_id", seq.ID,
			"attempt", attempt,
			"backoff_ms", wait.Milliseconds())

		if err := sleep(ctx, wait); err != nil {
			return nil, err
		}
	}
}

// reserveAndRecord advances the cursor, appends the assignment and links the
// document as one atomic unit. A refusal discovered under the lock commits
// the corrected lifecycle state and is then returned.
func (s *Service) reserveAndRecord(ctx context.Context, sequenceID id.ID, req Request, asOf time.Time) (*assignment.Assignment, error) {
	var (
		result  *assignment.Assignment
		refusal error
	)

	err := s.txm.RunInTransaction(ctx, func(ctx context.Context) error {
		res, err := s.registry.ReserveNext(ctx, sequenceID, asOf)
		if err != nil {
			if apperror.IsCode(err, apperror.CodeSequenceUnavailable, apperror.CodeSequenceDepleted) {
				refusal = err
				return nil
			}
			return err
		}

		a := assignment.New(req.OwnerID, res.Sequence.ID, req.DocumentID, req.DocumentType, res.Number, s.clock())
		if err := s.ledger.Record(ctx, a); err != nil {
			return err
		}

		if s.documents != nil {
			if err := s.documents.LinkAssignment(ctx, req.DocumentID, req.OwnerID, a.ID, a.Number); err != nil {
				return err
			}
		}

		if err := s.events.Publish(ctx, events.Event{
			AggregateType: events.AggregateAssignment,
			AggregateID:   a.ID,
			EventType:     events.TypeNumberAssigned,
			Payload:       a,
		}); err != nil {
			return err
		}

		result = a
		return nil
	})
	if err != nil {
		return nil, err
	}
	if refusal != nil {
		return nil, refusal
	}
	return result, nil
}

func (s *Service) logFailure(ctx context.Context, req Request, outcome string, err error) {
	kv := []any{
		"outcome", outcome,
		"owner_id", req.OwnerID,
		"document_id", req.DocumentID,
		"document_type", req.DocumentType,
		"error", err,
	}
	switch outcome {
	case OutcomeIntegrity:
		logger.Error(ctx, "ncf allocation integrity violation", append(kv, "integrity", true)...)
	case OutcomeError:
		logger.Error(ctx, "ncf allocation failed", kv...)
	default:
		logger.Warn(ctx, "ncf allocation refused", kv...)
	}
}

func outcomeOf(err error) string {
	if err == nil {
		return OutcomeSuccess
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return OutcomeError
	}
	appErr, ok := apperror.AsAppError(err)
	if !ok {
		return OutcomeError
	}
	switch appErr.Code {
	case apperror.CodeNoEligibleSequence:
		return OutcomeNoSequence
	case apperror.CodeSequenceUnavailable:
		return OutcomeUnavailable
	case apperror.CodeSequenceDepleted:
		return OutcomeDepleted
	case apperror.CodeAlreadyAssigned:
		return OutcomeAlreadyAssigned
	case apperror.CodeDuplicateNumber:
		return OutcomeIntegrity
	}
	return OutcomeError
}
