package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"

	"ncfledger/internal/core/events"
	"ncfledger/internal/core/id"
	"ncfledger/pkg/logger"
)

// OutboxStatus is the delivery state of an outbox message.
type OutboxStatus string

const (
	OutboxStatusPending   OutboxStatus = "pending"
	OutboxStatusPublished OutboxStatus = "published"
	OutboxStatusFailed    OutboxStatus = "failed"
)

// maxOutboxRetries moves a message to failed after this many handler errors.
const maxOutboxRetries = 5

// OutboxMessage is a row of sys_outbox.
type OutboxMessage struct {
	ID            id.ID        `db:"id"`
	AggregateType string       `db:"aggregate_type"`
	AggregateID   id.ID        `db:"aggregate_id"`
	EventType     string       `db:"event_type"`
	Payload       []byte       `db:"payload"`
	Status        OutboxStatus `db:"status"`
	RetryCount    int          `db:"retry_count"`
	LastError     *string      `db:"last_error"`
	NextRetryAt   *time.Time   `db:"next_retry_at"`
	CreatedAt     time.Time    `db:"created_at"`
	PublishedAt   *time.Time   `db:"published_at"`
}

var _ events.Publisher = (*Outbox)(nil)

// Outbox writes domain events to sys_outbox inside the caller's transaction,
// so an event exists exactly when the state change that caused it committed.
type Outbox struct {
	txm *TxManager
}

// NewOutbox creates the outbox publisher.
func NewOutbox(txm *TxManager) *Outbox {
	return &Outbox{txm: txm}
}

// Publish implements events.Publisher. It must run inside a transaction.
func (o *Outbox) Publish(ctx context.Context, e events.Event) error {
	if !o.txm.InTx(ctx) {
		return fmt.Errorf("outbox publish of %s requires a transaction", e.EventType)
	}

	payload, err := json.Marshal(e.Payload)
	if err != nil {
		return fmt.Errorf("marshal %s payload: %w", e.EventType, err)
	}

	query, args, err := psql.Insert("sys_outbox").
		Columns("id", "aggregate_type", "aggregate_id", "event_type", "payload", "status", "created_at").
		Values(id.New(), e.AggregateType, e.AggregateID, e.EventType, payload, OutboxStatusPending, time.Now().UTC()).
		ToSql()
	if err != nil {
		return fmt.Errorf("build outbox insert: %w", err)
	}
	if _, err := o.txm.GetQuerier(ctx).Exec(ctx, query, args...); err != nil {
		return classifyError(fmt.Errorf("insert outbox message: %w", err))
	}
	return nil
}

// OutboxHandler delivers one message.
type OutboxHandler interface {
	Handle(ctx context.Context, msg *OutboxMessage) error
}

// OutboxRelay delivers pending messages. Rows are claimed with
// FOR UPDATE SKIP LOCKED so several workers can relay concurrently.
type OutboxRelay struct {
	txm       *TxManager
	batchSize int
	handler   OutboxHandler
}

// NewOutboxRelay creates a relay.
func NewOutboxRelay(txm *TxManager, batchSize int, handler OutboxHandler) *OutboxRelay {
	if batchSize <= 0 {
		batchSize = 100
	}
	return &OutboxRelay{txm: txm, batchSize: batchSize, handler: handler}
}

// ProcessBatch claims and delivers one batch. Returns the number delivered.
func (r *OutboxRelay) ProcessBatch(ctx context.Context) (int, error) {
	delivered := 0
	err := r.txm.RunInTransaction(ctx, func(ctx context.Context) error {
		query, args, err := psql.Select("id", "aggregate_type", "aggregate_id", "event_type", "payload", "status",
			"retry_count", "last_error", "next_retry_at", "created_at", "published_at").
			From("sys_outbox").
			Where(sq.Eq{"status": OutboxStatusPending}).
			Where(sq.Or{sq.Eq{"next_retry_at": nil}, sq.Expr("next_retry_at <= NOW()")}).
			OrderBy("created_at").
			Limit(uint64(r.batchSize)).
			Suffix("FOR UPDATE SKIP LOCKED").
			ToSql()
		if err != nil {
			return fmt.Errorf("build outbox fetch: %w", err)
		}

		var msgs []*OutboxMessage
		if err := pgxscan.Select(ctx, r.txm.GetQuerier(ctx), &msgs, query, args...); err != nil {
			return classifyError(fmt.Errorf("fetch outbox messages: %w", err))
		}

		for _, msg := range msgs {
			if err := r.deliver(ctx, msg); err != nil {
				return err
			}
			if msg.Status == OutboxStatusPublished {
				delivered++
			}
		}
		return nil
	})
	return delivered, err
}

// deliver runs the handler and records the outcome. Handler failures are
// recorded, not returned; only storage errors abort the batch.
func (r *OutboxRelay) deliver(ctx context.Context, msg *OutboxMessage) error {
	q := r.txm.GetQuerier(ctx)

	if herr := r.handler.Handle(ctx, msg); herr != nil {
		retries := msg.RetryCount + 1
		status := OutboxStatusPending
		if retries >= maxOutboxRetries {
			status = OutboxStatusFailed
		}
		logger.Warn(ctx, "outbox delivery failed",
			"message_id", msg.ID,
			"event_type", msg.EventType,
			"retry", retries,
			"error", herr)

		query, args, err := psql.Update("sys_outbox").
			Set("retry_count", retries).
			Set("last_error", herr.Error()).
			Set("next_retry_at", time.Now().UTC().Add(time.Duration(retries)*time.Minute)).
			Set("status", status).
			Where(sq.Eq{"id": msg.ID}).
			ToSql()
		if err != nil {
			return err
		}
		if _, err := q.Exec(ctx, query, args...); err != nil {
			return classifyError(fmt.Errorf("record outbox failure: %w", err))
		}
		msg.Status = status
		return nil
	}

	query, args, err := psql.Update("sys_outbox").
		Set("status", OutboxStatusPublished).
		Set("published_at", time.Now().UTC()).
		Where(sq.Eq{"id": msg.ID}).
		ToSql()
	if err != nil {
		return err
	}
	if _, err := q.Exec(ctx, query, args...); err != nil {
		return classifyError(fmt.Errorf("mark outbox published: %w", err))
	}
	msg.Status = OutboxStatusPublished
	return nil
}

// LogHandler delivers messages to the structured log. It is the default
// sink when no broker is configured.
type LogHandler struct{}

// Handle implements OutboxHandler.
func (LogHandler) Handle(ctx context.Context, msg *OutboxMessage) error {
	logger.Info(ctx, "ncf event",
		"event_type", msg.EventType,
		"aggregate_type", msg.AggregateType,
		"aggregate_id", msg.AggregateID,
		"payload", json.RawMessage(msg.Payload))
	return nil
}
