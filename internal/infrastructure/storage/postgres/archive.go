package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/klauspost/compress/zstd"

	"navgate/internal/core/id"
	"navgate/pkg/logger"
)

const payloadArchiveTable = "sys_payload_archive"

// ArchivedExchange is one stored protocol exchange.
type ArchivedExchange struct {
	ID        id.ID     `db:"id"`
	Operation string    `db:"operation"`
	Request   []byte    `db:"request"`
	Response  []byte    `db:"response"`
	CreatedAt time.Time `db:"created_at"`
}

// PayloadArchive stores raw authority request/response payloads for audit
// and recovery forensics. Payloads above the size threshold are
// zstd-compressed; decompression is transparent on read. Implements
// nav.Archiver.
type PayloadArchive struct {
	txManager         *TxManager
	encoder           *zstd.Encoder
	decoder           *zstd.Decoder
	compressThreshold int
}

// NewPayloadArchive creates a payload archive.
func NewPayloadArchive(txManager *TxManager) (*PayloadArchive, error) {
	encoder, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		return nil, fmt.Errorf("create zstd encoder: %w", err)
	}

	decoder, err := zstd.NewReader(nil)
	if err != nil {
		return nil, fmt.Errorf("create zstd decoder: %w", err)
	}

	return &PayloadArchive{
		txManager:         txManager,
		encoder:           encoder,
		decoder:           decoder,
		compressThreshold: 10 * 1024, // 10KB
	}, nil
}

// Archive stores one exchange. Failures are logged, never propagated: a
// broken archive must not fail the authority call it observed.
func (a *PayloadArchive) Archive(ctx context.Context, operation string, request, response []byte) {
	request, reqAlgo := a.compress(request)
	response, respAlgo := a.compress(response)

	sql := `
		INSERT INTO sys_payload_archive (
			id, operation,
			request, request_algo, response, response_algo,
			created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7)
	`

	querier := a.txManager.GetQuerier(ctx)
	_, err := querier.Exec(ctx, sql,
		id.New(), operation,
		request, reqAlgo, response, respAlgo,
		time.Now().UTC(),
	)
	if err != nil {
		logger.Error(ctx, "payload archive write failed", "operation", operation, "error", err)
	}
}

// ListRecent returns the latest exchanges of one operation, decompressed.
func (a *PayloadArchive) ListRecent(ctx context.Context, operation string, limit int) ([]ArchivedExchange, error) {
	sql := `
		SELECT id, operation, request, request_algo, response, response_algo, created_at
		FROM sys_payload_archive
		WHERE operation = $1
		ORDER BY created_at DESC
		LIMIT $2
	`

	rows, err := a.txManager.GetQuerier(ctx).Query(ctx, sql, operation, limit)
	if err != nil {
		return nil, fmt.Errorf("query archive: %w", err)
	}
	defer rows.Close()

	var entries []ArchivedExchange
	for rows.Next() {
		var e ArchivedExchange
		var reqAlgo, respAlgo CompressionAlgo
		if err := rows.Scan(&e.ID, &e.Operation, &e.Request, &reqAlgo, &e.Response, &respAlgo, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan archive entry: %w", err)
		}

		if e.Request, err = a.decompress(e.Request, reqAlgo); err != nil {
			return nil, err
		}
		if e.Response, err = a.decompress(e.Response, respAlgo); err != nil {
			return nil, err
		}

		entries = append(entries, e)
	}

	return entries, rows.Err()
}

// PruneOlderThan deletes exchanges archived before the cutoff.
func (a *PayloadArchive) PruneOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	sql := "DELETE FROM " + payloadArchiveTable + " WHERE created_at < $1"
	tag, err := a.txManager.GetQuerier(ctx).Exec(ctx, sql, cutoff)
	if err != nil {
		return 0, fmt.Errorf("prune archive: %w", err)
	}
	return tag.RowsAffected(), nil
}

func (a *PayloadArchive) compress(data []byte) ([]byte, CompressionAlgo) {
	if len(data) <= a.compressThreshold {
		return data, CompressionNone
	}
	return a.encoder.EncodeAll(data, nil), CompressionZstd
}

func (a *PayloadArchive) decompress(data []byte, algo CompressionAlgo) ([]byte, error) {
	if algo != CompressionZstd || len(data) == 0 {
		return data, nil
	}
	out, err := a.decoder.DecodeAll(data, nil)
	if err != nil {
		return nil, fmt.Errorf("decompress archived payload: %w", err)
	}
	return out, nil
}
