// Package postgres provides PostgreSQL infrastructure components.
package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/klauspost/compress/zstd"

	appctx "navgate/internal/core/context"
	"navgate/internal/core/id"
	"navgate/internal/core/security"
)

// Audit actions recorded for API-driven mutations.
const (
	AuditActionCreate       = "create"
	AuditActionUpdate       = "update"
	AuditActionDelete       = "delete"
	AuditActionDeletionMark = "deletion_mark"
	AuditActionFinalize     = "finalize"
)

// CompressionAlgo names the codec a stored snapshot was compressed with.
type CompressionAlgo string

const (
	CompressionNone CompressionAlgo = "none"
	CompressionZstd CompressionAlgo = "zstd"
)

// AuditEntry is one sys_audit row: who changed which entity, and the
// entity snapshot taken right after the change.
type AuditEntry struct {
	ID                id.ID           `db:"id" json:"id"`
	EntityType        string          `db:"entity_type" json:"entityType"`
	EntityID          id.ID           `db:"entity_id" json:"entityId"`
	Action            string          `db:"action" json:"action"`
	UserID            string          `db:"user_id" json:"userId,omitempty"`
	UserEmail         string          `db:"user_email" json:"userEmail,omitempty"`
	Changes           json.RawMessage `db:"changes" json:"changes,omitempty"`
	ChangesCompressed []byte          `db:"changes_compressed" json:"-"`
	CompressionAlgo   CompressionAlgo `db:"compression_algo" json:"-"`
	Metadata          json.RawMessage `db:"metadata" json:"metadata,omitempty"`
	CreatedAt         time.Time       `db:"created_at" json:"createdAt"`
}

// auditCompressThreshold is the snapshot size above which the JSON is
// stored zstd-compressed instead of inline.
const auditCompressThreshold = 10 * 1024

// AuditService writes the sys_audit trail of catalog and invoice
// mutations made through the API.
type AuditService struct {
	txm     *TxManager
	encoder *zstd.Encoder
	decoder *zstd.Decoder
}

// NewAuditService creates the audit writer.
func NewAuditService(txm *TxManager) (*AuditService, error) {
	encoder, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		return nil, fmt.Errorf("create zstd encoder: %w", err)
	}
	decoder, err := zstd.NewReader(nil)
	if err != nil {
		return nil, fmt.Errorf("create zstd decoder: %w", err)
	}
	return &AuditService{txm: txm, encoder: encoder, decoder: decoder}, nil
}

// prepare fills in the actor from the request context, assigns defaults
// and decides snapshot compression.
func (s *AuditService) prepare(ctx context.Context, entry AuditEntry) AuditEntry {
	if entry.UserID == "" {
		if scope := security.GetScope(ctx); scope != nil {
			entry.UserID = scope.UserID
		}
	}
	if entry.UserEmail == "" {
		if user := appctx.GetUser(ctx); user != nil {
			entry.UserEmail = user.Email
		}
	}
	if id.IsNil(entry.ID) {
		entry.ID = id.New()
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}

	entry.CompressionAlgo = CompressionNone
	if len(entry.Changes) > auditCompressThreshold {
		entry.ChangesCompressed = s.encoder.EncodeAll(entry.Changes, nil)
		entry.Changes = nil
		entry.CompressionAlgo = CompressionZstd
	}
	return entry
}

// Log records one audit entry.
func (s *AuditService) Log(ctx context.Context, entry AuditEntry) error {
	entry = s.prepare(ctx, entry)

	sql := `
		INSERT INTO sys_audit (
			id, entity_type, entity_id, action, user_id, user_email,
			changes, changes_compressed, compression_algo, metadata,
			created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`

	_, err := s.txm.GetQuerier(ctx).Exec(ctx, sql,
		entry.ID, entry.EntityType, entry.EntityID, entry.Action,
		entry.UserID, entry.UserEmail,
		entry.Changes, entry.ChangesCompressed, entry.CompressionAlgo,
		entry.Metadata, entry.CreatedAt,
	)
	return err
}

// LogChange records one mutation with the entity snapshot after the
// change. A nil snapshot records the action alone (deletes).
func (s *AuditService) LogChange(ctx context.Context, entityType string, entityID id.ID, action string, snapshot any) error {
	var changes json.RawMessage
	if snapshot != nil {
		b, err := json.Marshal(snapshot)
		if err != nil {
			return fmt.Errorf("marshal audit snapshot: %w", err)
		}
		changes = b
	}
	return s.Log(ctx, AuditEntry{
		EntityType: entityType,
		EntityID:   entityID,
		Action:     action,
		Changes:    changes,
	})
}

// History returns the newest audit entries of one entity, snapshots
// decompressed.
func (s *AuditService) History(ctx context.Context, entityType string, entityID id.ID, limit int) ([]AuditEntry, error) {
	sql := `
		SELECT id, entity_type, entity_id, action, user_id, user_email,
			   changes, changes_compressed, compression_algo, metadata,
			   created_at
		FROM sys_audit
		WHERE entity_type = $1 AND entity_id = $2
		ORDER BY created_at DESC
		LIMIT $3
	`

	rows, err := s.txm.GetQuerier(ctx).Query(ctx, sql, entityType, entityID, limit)
	if err != nil {
		return nil, fmt.Errorf("query audit history: %w", err)
	}
	defer rows.Close()

	var entries []AuditEntry
	for rows.Next() {
		var e AuditEntry
		err := rows.Scan(
			&e.ID, &e.EntityType, &e.EntityID, &e.Action, &e.UserID, &e.UserEmail,
			&e.Changes, &e.ChangesCompressed, &e.CompressionAlgo, &e.Metadata,
			&e.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan audit entry: %w", err)
		}

		if e.CompressionAlgo == CompressionZstd && len(e.ChangesCompressed) > 0 {
			decompressed, err := s.decoder.DecodeAll(e.ChangesCompressed, nil)
			if err != nil {
				return nil, fmt.Errorf("decompress audit snapshot: %w", err)
			}
			e.Changes = decompressed
			e.ChangesCompressed = nil
		}

		entries = append(entries, e)
	}

	return entries, rows.Err()
}
