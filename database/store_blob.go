package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

type StoreBlobRow struct {
	InstanceID    string
	SchemaVersion int
	Payload       []byte
	UpdatedAt     time.Time
}

func (r StoreBlobRow) IsZero() bool {
	return r.InstanceID == ""
}

// SaveStoreBlob upserts the one persisted blob for an install instance. I/O
// errors propagate to the caller; there are no retries here.
func (d *Database) SaveStoreBlob(ctx context.Context, instanceID string, schemaVersion int, payload []byte) error {
	d.logger.Debug("saving store blob",
		"instanceId", instanceID,
		"schemaVersion", schemaVersion,
		"bytes", len(payload))

	_, err := d.write.ExecContext(ctx, `
		INSERT INTO store_blob (instance_id, schema_version, payload, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(instance_id) DO UPDATE SET
			schema_version = excluded.schema_version,
			payload = excluded.payload,
			updated_at = excluded.updated_at`,
		instanceID,
		schemaVersion,
		payload,
		time.Now().UTC().Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("saving store blob for %s: %w", instanceID, err)
	}

	return nil
}

// GetStoreBlob returns the zero row when the instance has never been saved.
func (d *Database) GetStoreBlob(ctx context.Context, instanceID string) (StoreBlobRow, error) {
	row := d.read.QueryRowContext(ctx, `
		SELECT instance_id, schema_version, payload, updated_at
		FROM store_blob
		WHERE instance_id = ?`,
		instanceID)

	var updatedAt string
	var r StoreBlobRow
	err := row.Scan(&r.InstanceID, &r.SchemaVersion, &r.Payload, &updatedAt)
	if err == sql.ErrNoRows {
		return StoreBlobRow{}, nil
	}
	if err != nil {
		return StoreBlobRow{}, fmt.Errorf("fetching store blob for %s: %w", instanceID, err)
	}

	r.UpdatedAt, err = time.Parse(time.RFC3339, updatedAt)
	if err != nil {
		return StoreBlobRow{}, fmt.Errorf("parsing store blob timestamp: %w", err)
	}

	return r, nil
}
