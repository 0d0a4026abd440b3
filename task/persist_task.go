package task

import (
	"context"
	"log/slog"
	"time"

	"github.com/angas/tariffsaver-go/accounting"
	"github.com/angas/tariffsaver-go/database"
)

// NewPersistTask flushes the store to its blob when dirty. The dirty flag is
// cleared by the save itself, under the store's lock, so a mutation racing
// the flush is never lost.
func NewPersistTask(logger *slog.Logger, db *database.Database, store *accounting.Store, instanceID string) func() {
	return func() {
		if !store.Dirty() {
			return
		}

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		err := store.Save(ctx, func(ctx context.Context, version int, payload []byte) error {
			return db.SaveStoreBlob(ctx, instanceID, version, payload)
		})
		if err != nil {
			logger.Error("persist task error", slog.Any("error", err))
			return
		}

		logger.Debug("store persisted")
	}
}
