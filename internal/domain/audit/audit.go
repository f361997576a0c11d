// Package audit records immutable snapshots of settlement changes.
package audit

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/klauspost/compress/zstd"

	"arriendos/internal/core/id"
)

// Action represents the type of audited operation.
type Action string

const (
	ActionCreate   Action = "create"
	ActionMarkPaid Action = "mark_paid"
)

// CompressionAlgo specifies the compression algorithm used for a payload.
type CompressionAlgo string

const (
	CompressionNone CompressionAlgo = "none"
	CompressionZstd CompressionAlgo = "zstd"
)

// DefaultCompressThreshold is the payload size above which snapshots are compressed.
const DefaultCompressThreshold = 4 * 1024

// Entry is a single audit log row.
type Entry struct {
	ID                id.ID           `db:"id"`
	TenantID          id.ID           `db:"tenant_id"`
	EntityType        string          `db:"entity_type"`
	EntityID          id.ID           `db:"entity_id"`
	Action            Action          `db:"action"`
	Changes           json.RawMessage `db:"changes"`
	ChangesCompressed []byte          `db:"changes_compressed"`
	CompressionAlgo   CompressionAlgo `db:"compression_algo"`
	CreatedAt         time.Time       `db:"created_at"`
}

// Store persists audit entries.
type Store interface {
	Insert(ctx context.Context, e Entry) error
	History(ctx context.Context, tenantID id.ID, entityType string, entityID id.ID) ([]Entry, error)
}

// Logger builds entries and hands them to a Store.
type Logger struct {
	store             Store
	encoder           *zstd.Encoder
	decoder           *zstd.Decoder
	compressThreshold int
}

// NewLogger creates an audit logger. A threshold <= 0 selects the default.
func NewLogger(store Store, compressThreshold int) (*Logger, error) {
	encoder, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		return nil, fmt.Errorf("create zstd encoder: %w", err)
	}
	decoder, err := zstd.NewReader(nil)
	if err != nil {
		return nil, fmt.Errorf("create zstd decoder: %w", err)
	}
	if compressThreshold <= 0 {
		compressThreshold = DefaultCompressThreshold
	}
	return &Logger{
		store:             store,
		encoder:           encoder,
		decoder:           decoder,
		compressThreshold: compressThreshold,
	}, nil
}

// LogChange stores a snapshot of the entity after the action.
func (l *Logger) LogChange(ctx context.Context, tenantID id.ID, entityType string, entityID id.ID, action Action, snapshot any) error {
	payload, err := json.Marshal(snapshot)
	if err != nil {
		return fmt.Errorf("marshal audit snapshot: %w", err)
	}

	entry := Entry{
		ID:              id.New(),
		TenantID:        tenantID,
		EntityType:      entityType,
		EntityID:        entityID,
		Action:          action,
		CompressionAlgo: CompressionNone,
		CreatedAt:       time.Now().UTC(),
	}
	if len(payload) > l.compressThreshold {
		entry.ChangesCompressed = l.encoder.EncodeAll(payload, nil)
		entry.CompressionAlgo = CompressionZstd
	} else {
		entry.Changes = payload
	}

	if err := l.store.Insert(ctx, entry); err != nil {
		return fmt.Errorf("insert audit entry: %w", err)
	}
	return nil
}

// History returns the entity's entries with payloads decompressed, oldest first.
func (l *Logger) History(ctx context.Context, tenantID id.ID, entityType string, entityID id.ID) ([]Entry, error) {
	entries, err := l.store.History(ctx, tenantID, entityType, entityID)
	if err != nil {
		return nil, err
	}
	for i := range entries {
		if entries[i].CompressionAlgo != CompressionZstd {
			continue
		}
		raw, err := l.decoder.DecodeAll(entries[i].ChangesCompressed, nil)
		if err != nil {
			return nil, fmt.Errorf("decompress audit entry %s: %w", entries[i].ID, err)
		}
		entries[i].Changes = raw
	}
	return entries, nil
}
