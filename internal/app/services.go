// Package app wires repositories and domain services into one container
// shared by the server, the worker and ncfctl.
package app

import (
	"context"
	"fmt"

	"ncfledger/internal/config"
	"ncfledger/internal/core/events"
	"ncfledger/internal/core/ncf"
	"ncfledger/internal/core/tx"
	"ncfledger/internal/domain/allocator"
	"ncfledger/internal/domain/assignment"
	"ncfledger/internal/domain/document"
	"ncfledger/internal/domain/monitor"
	"ncfledger/internal/domain/owner"
	"ncfledger/internal/domain/reports"
	"ncfledger/internal/domain/sequence"
	"ncfledger/internal/infrastructure/archive"
	"ncfledger/internal/infrastructure/storage/memory"
	"ncfledger/internal/infrastructure/storage/postgres"
)

// Backend is one storage implementation of every repository plus the
// transactional outbox and audit trail.
type Backend struct {
	TxManager   tx.Manager
	Owners      owner.Repository
	Sequences   sequence.Repository
	Assignments assignment.Repository
	Documents   document.Repository
	Events      events.Publisher
	Audit       sequence.Auditor

	// Pool and PgTx are set for the postgres driver only.
	Pool *postgres.Pool
	PgTx *postgres.TxManager

	// Ping reports storage health; nil means always healthy.
	Ping  func(ctx context.Context) error
	Close func()
}

// MemoryBackend serves everything from an in-memory store.
func MemoryBackend(store *memory.Store) Backend {
	return Backend{
		TxManager:   store,
		Owners:      store.Owners(),
		Sequences:   store.Sequences(),
		Assignments: store.Assignments(),
		Documents:   store.Documents(),
		Events:      store,
		Audit:       store,
		Close:       func() {},
	}
}

// PostgresBackend serves everything from pool.
func PostgresBackend(pool *postgres.Pool, opts postgres.TxOptions) (Backend, error) {
	txm := postgres.NewTxManager(pool, opts)
	audit, err := postgres.NewAuditLog(txm)
	if err != nil {
		return Backend{}, fmt.Errorf("audit log: %w", err)
	}
	return Backend{
		TxManager:   txm,
		Owners:      postgres.NewOwnerRepo(txm),
		Sequences:   postgres.NewSequenceRepo(txm),
		Assignments: postgres.NewAssignmentRepo(txm),
		Documents:   postgres.NewDocumentRepo(txm),
		Events:      postgres.NewOutbox(txm),
		Audit:       audit,
		Pool:        pool,
		PgTx:        txm,
		Ping:        func(ctx context.Context) error { return pool.Ping(ctx) },
		Close:       pool.Close,
	}, nil
}

// Options carries the optional collaborators.
type Options struct {
	Allocator allocator.Config
	Metrics   interface {
		allocator.Recorder
		monitor.UsageRecorder
	}
	Archive reports.Archive
	Clock   ncf.Clock
}

// Services is the wired domain layer.
type Services struct {
	Backend   Backend
	Owners    *owner.Service
	Sequences *sequence.Service
	Ledger    *assignment.Service
	Allocator *allocator.Service
	Documents *document.Service
	Monitor   *monitor.Service
	Reports   *reports.Service
}

// NewServices wires the domain services over b.
func NewServices(b Backend, opts Options) *Services {
	registry := sequence.NewService(sequence.ServiceConfig{
		Repo:      b.Sequences,
		TxManager: b.TxManager,
		Events:    b.Events,
		Audit:     b.Audit,
		Clock:     opts.Clock,
	})
	ledger := assignment.NewService(b.Assignments)

	var (
		recorder allocator.Recorder
		usage    monitor.UsageRecorder
	)
	if opts.Metrics != nil {
		recorder = opts.Metrics
		usage = opts.Metrics
	}

	alloc := allocator.NewService(allocator.ServiceConfig{
		TxManager: b.TxManager,
		Registry:  registry,
		Ledger:    ledger,
		Documents: b.Documents,
		Events:    b.Events,
		Metrics:   recorder,
		Clock:     opts.Clock,
		Config:    opts.Allocator,
	})

	return &Services{
		Backend:   b,
		Owners:    owner.NewService(b.Owners),
		Sequences: registry,
		Ledger:    ledger,
		Allocator: alloc,
		Documents: document.NewService(b.Documents, b.Owners, alloc, b.TxManager),
		Monitor: monitor.NewService(monitor.ServiceConfig{
			Registry:  registry,
			TxManager: b.TxManager,
			Events:    b.Events,
			Usage:     usage,
			Clock:     opts.Clock,
		}),
		Reports: reports.NewService(ledger, b.Documents, b.Owners, opts.Archive),
	}
}

// AllocatorConfig maps configuration onto allocator settings.
func AllocatorConfig(c config.AllocatorConfig) allocator.Config {
	return allocator.Config{
		MaxAttempts:     c.MaxAttempts,
		BaseBackoff:     c.BaseBackoff,
		MaxBackoff:      c.MaxBackoff,
		MaxSequenceHops: c.MaxSequenceHops,
	}
}

// ArchiveConfig maps configuration onto S3 archive settings.
func ArchiveConfig(c config.ArchiveConfig) archive.Config {
	return archive.Config{
		Bucket:          c.Bucket,
		Region:          c.Region,
		Endpoint:        c.Endpoint,
		Prefix:          c.Prefix,
		AccessKeyID:     c.AccessKeyID,
		SecretAccessKey: c.SecretAccessKey,
		PathStyle:       c.PathStyle,
		Compress:        c.Compress,
	}
}

// OpenBackend opens the configured storage driver.
func OpenBackend(ctx context.Context, cfg *config.Config) (Backend, error) {
	switch cfg.Storage.Driver {
	case config.DriverMemory:
		return MemoryBackend(memory.New()), nil
	case config.DriverPostgres:
		poolCfg := postgres.DefaultPoolConfig(cfg.Database.URL)
		if cfg.Database.MaxConns > 0 {
			poolCfg.MaxConns = cfg.Database.MaxConns
		}
		if cfg.Database.MinConns > 0 {
			poolCfg.MinConns = cfg.Database.MinConns
		}
		pool, err := postgres.NewPool(ctx, poolCfg)
		if err != nil {
			return Backend{}, err
		}
		txOpts := postgres.DefaultTxOptions()
		txOpts.StatementTimeout = cfg.Database.StatementTimeout
		txOpts.LockTimeout = cfg.Database.LockTimeout
		b, err := PostgresBackend(pool, txOpts)
		if err != nil {
			pool.Close()
			return Backend{}, err
		}
		return b, nil
	}
	return Backend{}, fmt.Errorf("unknown storage driver %q", cfg.Storage.Driver)
}
