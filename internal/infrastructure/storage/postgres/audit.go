package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/klauspost/compress/zstd"

	appctx "ncfledger/internal/core/context"
	"ncfledger/internal/core/id"
	"ncfledger/internal/domain/sequence"
)

var _ sequence.Auditor = (*AuditLog)(nil)

// CompressionAlgo names how the changes column is stored.
type CompressionAlgo string

const (
	CompressionNone CompressionAlgo = "none"
	CompressionZstd CompressionAlgo = "zstd"
)

// AuditEntry is one row of sys_audit.
type AuditEntry struct {
	ID                id.ID           `db:"id" json:"id"`
	EntityType        string          `db:"entity_type" json:"entityType"`
	EntityID          id.ID           `db:"entity_id" json:"entityId"`
	Action            string          `db:"action" json:"action"`
	ActorID           string          `db:"actor_id" json:"actorId"`
	ActorSource       string          `db:"actor_source" json:"actorSource"`
	RequestID         string          `db:"request_id" json:"requestId,omitempty"`
	Changes           json.RawMessage `db:"changes" json:"changes"`
	ChangesCompressed []byte          `db:"changes_compressed" json:"-"`
	CompressionAlgo   CompressionAlgo `db:"compression_algo" json:"-"`
	CreatedAt         time.Time       `db:"created_at" json:"createdAt"`
}

// AuditLog writes administrative changes to sys_audit in the caller's
// transaction. Large change sets are stored zstd-compressed.
type AuditLog struct {
	txm               *TxManager
	encoder           *zstd.Encoder
	decoder           *zstd.Decoder
	compressThreshold int
}

// NewAuditLog creates the audit log.
func NewAuditLog(txm *TxManager) (*AuditLog, error) {
	encoder, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		return nil, fmt.Errorf("create zstd encoder: %w", err)
	}
	decoder, err := zstd.NewReader(nil)
	if err != nil {
		return nil, fmt.Errorf("create zstd decoder: %w", err)
	}
	return &AuditLog{
		txm:               txm,
		encoder:           encoder,
		decoder:           decoder,
		compressThreshold: 8 * 1024,
	}, nil
}

// LogChange implements sequence.Auditor.
func (a *AuditLog) LogChange(ctx context.Context, entityType string, entityID id.ID, action string, changes map[string]any) error {
	raw, err := json.Marshal(changes)
	if err != nil {
		return fmt.Errorf("marshal changes: %w", err)
	}

	entry := AuditEntry{
		ID:              id.New(),
		EntityType:      entityType,
		EntityID:        entityID,
		Action:          action,
		ActorID:         appctx.GetActorID(ctx),
		ActorSource:     "system",
		RequestID:       appctx.GetRequestID(ctx),
		Changes:         raw,
		CompressionAlgo: CompressionNone,
		CreatedAt:       time.Now().UTC(),
	}
	if actor := appctx.GetActor(ctx); actor != nil && actor.Source != "" {
		entry.ActorSource = actor.Source
	}
	a.compress(&entry)

	query, args, err := psql.Insert("sys_audit").
		Columns("id", "entity_type", "entity_id", "action", "actor_id", "actor_source",
			"request_id", "changes", "changes_compressed", "compression_algo", "created_at").
		Values(entry.ID, entry.EntityType, entry.EntityID, entry.Action, entry.ActorID, entry.ActorSource,
			entry.RequestID, entry.Changes, entry.ChangesCompressed, entry.CompressionAlgo, entry.CreatedAt).
		ToSql()
	if err != nil {
		return fmt.Errorf("build audit insert: %w", err)
	}
	if _, err := a.txm.GetQuerier(ctx).Exec(ctx, query, args...); err != nil {
		return classifyError(fmt.Errorf("insert audit entry: %w", err))
	}
	return nil
}

// History returns the newest entries for an entity.
func (a *AuditLog) History(ctx context.Context, entityType string, entityID id.ID, limit int) ([]AuditEntry, error) {
	query, args, err := psql.Select("id", "entity_type", "entity_id", "action", "actor_id", "actor_source",
		"request_id", "changes", "changes_compressed", "compression_algo", "created_at").
		From("sys_audit").
		Where(sq.Eq{"entity_type": entityType, "entity_id": entityID}).
		OrderBy("created_at DESC").
		Limit(uint64(limit)).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build audit query: %w", err)
	}

	var entries []AuditEntry
	if err := pgxscan.Select(ctx, a.txm.GetQuerier(ctx), &entries, query, args...); err != nil {
		return nil, classifyError(fmt.Errorf("query audit history: %w", err))
	}
	for i := range entries {
		if err := a.decompress(&entries[i]); err != nil {
			return nil, err
		}
	}
	return entries, nil
}

func (a *AuditLog) compress(e *AuditEntry) {
	if len(e.Changes) <= a.compressThreshold {
		return
	}
	e.ChangesCompressed = a.encoder.EncodeAll(e.Changes, nil)
	e.Changes = nil
	e.CompressionAlgo = CompressionZstd
}

func (a *AuditLog) decompress(e *AuditEntry) error {
	if e.CompressionAlgo != CompressionZstd || len(e.ChangesCompressed) == 0 {
		return nil
	}
	raw, err := a.decoder.DecodeAll(e.ChangesCompressed, nil)
	if err != nil {
		return fmt.Errorf("decompress audit changes: %w", err)
	}
	e.Changes = raw
	e.ChangesCompressed = nil
	return nil
}
