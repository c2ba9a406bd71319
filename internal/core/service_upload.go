package core

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	db "github.com/JonMunkholm/custload/internal/database"
	"github.com/JonMunkholm/custload/internal/logging"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// recordTimeout bounds the write of a rejected upload's history row.
const recordTimeout = 5 * time.Second

// Upload ingests one file synchronously. Either every customer in the file is
// committed, or nothing is and the returned error says why.
//
// Returns ErrTooManyUploads if another upload holds the store for longer than
// the configured wait.
func (s *Service) Upload(ctx context.Context, fileName string, content io.Reader) (UploadResult, error) {
	start := time.Now()
	res := UploadResult{
		UploadID: uuid.New().String(),
		FileName: fileName,
		Phase:    PhaseRejected,
	}
	log := logging.WithFields(ctx, "upload_id", res.UploadID, "file", fileName)

	if err := s.limiter.Acquire(ctx); err != nil {
		log.Warn("upload not admitted", "error", err)
		res.Error = err.Error()
		return res, err
	}
	defer s.limiter.Release()

	uploadCtx, cancel := context.WithTimeout(ctx, s.uploadTimeout)
	defer cancel()

	log.Info("upload started")

	var stats IngestStats
	err := pgx.BeginFunc(uploadCtx, s.pool, func(tx pgx.Tx) error {
		q := s.queries.WithTx(tx)

		// Other processes may write the same database.
		if err := q.LockAddresses(uploadCtx); err != nil {
			return fmt.Errorf("lock addresses: %w", err)
		}

		var err error
		stats, err = s.ingester.Ingest(uploadCtx,
			Upload{FileName: fileName, Content: content},
			NewPgAddressStore(tx),
			NewPgCustomerStore(tx),
		)
		if err != nil {
			return err
		}

		return q.InsertUpload(uploadCtx, uploadParams(res.UploadID, fileName, stats, PhaseCommitted, ""))
	})
	res.Duration = time.Since(start)

	if err != nil {
		// Nothing from the file survived the rollback.
		res.Stats = IngestStats{Format: stats.Format, Lines: stats.Lines}
		res.Error = err.Error()
		s.recordRejected(ctx, res, log)

		msg := MapError(err)
		var line int
		var ie *IngestError
		if errors.As(err, &ie) {
			line = ie.Line
		}
		log.Warn("upload rejected",
			"kind", KindOf(err),
			"code", msg.Code,
			"line", line,
			"duration", res.Duration,
			"error", err,
		)
		return res, err
	}

	res.Phase = PhaseCommitted
	res.Stats = stats
	log.Info("upload committed",
		"format", stats.Format,
		"customers", stats.Customers,
		"addresses_created", stats.AddressesCreated,
		"addresses_reused", stats.AddressesReused,
		"duration", res.Duration,
	)

	if err := s.notifier.UploadCommitted(ctx, res); err != nil {
		log.Error("failed to publish upload event", "error", err)
	}

	return res, nil
}

// recordRejected writes the history row for a failed upload. It runs after
// rollback, so it must not use the upload's transaction or its deadline.
func (s *Service) recordRejected(ctx context.Context, res UploadResult, log *slog.Logger) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), recordTimeout)
	defer cancel()

	params := uploadParams(res.UploadID, res.FileName, res.Stats, PhaseRejected, res.Error)
	if err := s.queries.InsertUpload(ctx, params); err != nil {
		log.Error("failed to record rejected upload", "error", err)
	}
}

func uploadParams(id, fileName string, stats IngestStats, phase UploadPhase, errText string) db.InsertUploadParams {
	return db.InsertUploadParams{
		ID:               ToPgUUID(id),
		FileName:         fileName,
		Format:           ToPgText(string(stats.Format)),
		Status:           string(phase),
		Customers:        int32(stats.Customers),
		AddressesCreated: int32(stats.AddressesCreated),
		Error:            ToPgText(errText),
	}
}
