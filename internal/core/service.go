package core

import (
	"context"
	"fmt"
	"time"

	db "github.com/JonMunkholm/custload/internal/database"
	"github.com/jackc/pgx/v5"
)

// UploadTimeout is the maximum duration for an upload operation.
var UploadTimeout = 10 * time.Minute

// ResetTimeout is the maximum duration for a reset operation.
var ResetTimeout = 30 * time.Second

// DefaultHistoryLimit caps ListUploads when no limit is given.
const DefaultHistoryLimit = 100

// ServiceConfig carries the settings the service needs from configuration.
type ServiceConfig struct {
	Formats       FormatConfig
	Encoding      string // charset label, "" means utf-8
	UploadTimeout time.Duration
	ResetTimeout  time.Duration
	MaxWaitTime   time.Duration // how long an upload queues for the writer slot
}

// UploadNotifier is told about every committed upload.
type UploadNotifier interface {
	UploadCommitted(ctx context.Context, res UploadResult) error
}

type nopNotifier struct{}

func (nopNotifier) UploadCommitted(context.Context, UploadResult) error { return nil }

// DB is the database handle the service runs on. *pgxpool.Pool satisfies it.
type DB interface {
	db.DBTX
	Begin(ctx context.Context) (pgx.Tx, error)
	Ping(ctx context.Context) error
}

// Service runs uploads and queries against Postgres.
type Service struct {
	pool     DB
	queries  *db.Queries
	ingester Ingester
	limiter  *UploadLimiter
	notifier UploadNotifier

	uploadTimeout time.Duration
	resetTimeout  time.Duration
}

// NewService creates a Service. notifier may be nil.
func NewService(pool DB, cfg ServiceConfig, notifier UploadNotifier) (*Service, error) {
	formats, err := NewFormatSet(cfg.Formats)
	if err != nil {
		return nil, err
	}

	label := cfg.Encoding
	if label == "" {
		label = "utf-8"
	}
	enc, err := LookupEncoding(label)
	if err != nil {
		return nil, err
	}

	if notifier == nil {
		notifier = nopNotifier{}
	}

	uploadTimeout := cfg.UploadTimeout
	if uploadTimeout <= 0 {
		uploadTimeout = UploadTimeout
	}
	resetTimeout := cfg.ResetTimeout
	if resetTimeout <= 0 {
		resetTimeout = ResetTimeout
	}

	return &Service{
		pool:     pool,
		queries:  db.New(pool),
		ingester: Ingester{Formats: formats, Encoding: enc},
		// One slot: address dedup is read-then-insert and must not interleave.
		limiter:       NewUploadLimiter(1, cfg.MaxWaitTime),
		notifier:      notifier,
		uploadTimeout: uploadTimeout,
		resetTimeout:  resetTimeout,
	}, nil
}

// Ping checks database connectivity.
func (s *Service) Ping(ctx context.Context) error {
	if err := s.pool.Ping(ctx); err != nil {
		return fmt.Errorf("ping database: %w", err)
	}
	return nil
}

// UploadLimiterStatus reports whether an upload currently holds the store.
type UploadLimiterStatus struct {
	Active int `json:"active"`
}

// UploadLimiterStatus returns the current writer slot usage.
func (s *Service) UploadLimiterStatus() UploadLimiterStatus {
	return UploadLimiterStatus{Active: s.limiter.ActiveCount()}
}

// WaitForUploads blocks until the in-flight upload, if any, finishes.
func (s *Service) WaitForUploads(ctx context.Context) error {
	return s.limiter.WaitForDrain(ctx)
}
